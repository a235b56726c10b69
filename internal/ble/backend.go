package ble

import (
	"fmt"
	"runtime"
)

// Backend names accepted by NewAdapter.
const (
	BackendAuto   = "auto"
	BackendTinyGo = "tinygo"
	BackendGoBLE  = "goble"
)

// NewAdapter returns the adapter for backend. Auto picks go-ble on Linux and
// tinygo everywhere else. No radio is touched until Enable.
func NewAdapter(backend string) (Adapter, error) {
	switch backend {
	case BackendAuto, "":
		if runtime.GOOS == "linux" {
			return NewGoBLEAdapter()
		}
		return NewTinyGoAdapter(), nil
	case BackendTinyGo:
		return NewTinyGoAdapter(), nil
	case BackendGoBLE:
		return NewGoBLEAdapter()
	default:
		return nil, fmt.Errorf("ble: unknown backend %q", backend)
	}
}
