// Package ble connects to ESC/POS thermal printers over Bluetooth Low Energy.
// It discovers a writable GATT characteristic on printers whose layout is not
// known in advance and streams encoded receipts to it in paced chunks.
package ble

import (
	"context"
	"strings"
)

// Property is the capability set a characteristic advertises.
type Property uint8

const (
	PropRead Property = 1 << iota
	PropWrite
	PropWriteWithoutResponse
	PropNotify
	PropIndicate
)

// CanWrite reports whether either write mode is advertised.
func (p Property) CanWrite() bool {
	return p&(PropWrite|PropWriteWithoutResponse) != 0
}

func (p Property) String() string {
	if p == 0 {
		return "none"
	}
	var names []string
	for _, f := range []struct {
		bit  Property
		name string
	}{
		{PropRead, "read"},
		{PropWrite, "write"},
		{PropWriteWithoutResponse, "write-without-response"},
		{PropNotify, "notify"},
		{PropIndicate, "indicate"},
	} {
		if p&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	return strings.Join(names, "|")
}

// Characteristic property bits as they appear in a GATT characteristic
// declaration.
const (
	gattRead                 = 0x02
	gattWriteWithoutResponse = 0x04
	gattWrite                = 0x08
	gattNotify               = 0x10
	gattIndicate             = 0x20
)

// PropertyFromGATT converts declaration property bits into a Property.
// Broadcast, signed writes and extended properties are dropped.
func PropertyFromGATT(bits uint32) Property {
	var p Property
	if bits&gattRead != 0 {
		p |= PropRead
	}
	if bits&gattWriteWithoutResponse != 0 {
		p |= PropWriteWithoutResponse
	}
	if bits&gattWrite != 0 {
		p |= PropWrite
	}
	if bits&gattNotify != 0 {
		p |= PropNotify
	}
	if bits&gattIndicate != 0 {
		p |= PropIndicate
	}
	return p
}

// Characteristic is a GATT characteristic resolved for one connection.
// Handles are never reused across reconnects.
type Characteristic interface {
	// UUID returns the normalized 128-bit UUID.
	UUID() string
	// Properties returns the advertised capabilities. Backends that cannot
	// read them report 0.
	Properties() Property
	// Write sends one payload. withResponse selects an acknowledged write.
	Write(data []byte, withResponse bool) error
}

// Service is a GATT service on a connected peripheral.
type Service interface {
	UUID() string
	Characteristics(ctx context.Context) ([]Characteristic, error)
}

// Device represents a discovered BLE peripheral.
type Device struct {
	Name string
	ID   string // MAC on Linux, CoreBluetooth UUID on macOS
	RSSI int
}

// ScanFilter narrows which advertisements Scan reports.
type ScanFilter struct {
	// NamePrefixes matches advertised local names. Empty matches everything.
	NamePrefixes []string
}

// Match reports whether a device with the given local name passes the filter.
func (f ScanFilter) Match(name string) bool {
	if len(f.NamePrefixes) == 0 {
		return true
	}
	for _, p := range f.NamePrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Connection represents an active BLE connection to a peripheral.
type Connection interface {
	// Services returns the services whose UUIDs are in uuids, or every
	// service on the device when uuids is nil.
	Services(ctx context.Context, uuids []string) ([]Service, error)
	// Disconnect terminates the connection.
	Disconnect() error
	// OnDisconnect registers a callback invoked when the connection drops.
	OnDisconnect(callback func())
}

// Adapter abstracts the BLE hardware adapter for testing.
type Adapter interface {
	// Enable powers on the BLE adapter. An error means BLE is unavailable.
	Enable() error
	// Scan reports devices passing filter until ctx is done.
	Scan(ctx context.Context, filter ScanFilter) ([]Device, error)
	// Connect establishes a connection to the device with the given ID.
	Connect(ctx context.Context, id string) (Connection, error)
}
