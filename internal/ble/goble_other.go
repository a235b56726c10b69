//go:build !linux

package ble

import "errors"

// NewGoBLEAdapter is only implemented on Linux, where go-ble drives the HCI
// socket directly.
func NewGoBLEAdapter() (Adapter, error) {
	return nil, errors.New("ble: go-ble backend is only available on linux")
}
