//go:build !darwin && !windows

package ble

import (
	"errors"

	"tinygo.org/x/bluetooth"
)

// errAckedWriteUnsupported makes the transport fall back to unacknowledged
// writes on BlueZ, where tinygo only offers WriteWithoutResponse.
var errAckedWriteUnsupported = errors.New("ble: acknowledged writes are not supported by the tinygo backend on this platform")

func tinyGoProperties(bluetooth.DeviceCharacteristic) Property { return 0 }

func tinyGoWriteAcked(bluetooth.DeviceCharacteristic, []byte) error {
	return errAckedWriteUnsupported
}
