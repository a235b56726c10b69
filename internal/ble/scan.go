package ble

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// ScanForDevices enables the adapter and scans for timeout, returning the
// devices whose names match filter sorted by signal strength.
func ScanForDevices(ctx context.Context, adapter Adapter, filter ScanFilter, timeout time.Duration) ([]Device, error) {
	if err := adapter.Enable(); err != nil {
		return nil, &Error{Kind: KindConnectionUnavailable, Detail: "enable adapter", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	devices, err := adapter.Scan(ctx, filter)
	if err != nil {
		return nil, &Error{Kind: KindConnectionUnavailable, Detail: "scan", Err: err}
	}
	sort.SliceStable(devices, func(i, j int) bool { return devices[i].RSSI > devices[j].RSSI })

	slog.Info("[BLE] scan finished", "devices", len(devices), "timeout", timeout)
	return devices, nil
}

// ProbeResult is what Probe learned about a device.
type ProbeResult struct {
	Device    Device
	Inventory []ServiceInfo
	// Discovery is nil when no writable characteristic was found.
	Discovery *DiscoveryResult
}

// Probe connects to id, dumps its GATT table and runs discovery, then
// disconnects. It is a diagnostic for printers that fail to print.
func Probe(ctx context.Context, adapter Adapter, dev Device, opts DiscoveryOptions, timeout time.Duration) (*ProbeResult, error) {
	if err := adapter.Enable(); err != nil {
		return nil, &Error{Kind: KindConnectionUnavailable, Detail: "enable adapter", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := adapter.Connect(ctx, dev.ID)
	if err != nil {
		return nil, &Error{Kind: KindConnectionUnavailable, Detail: fmt.Sprintf("connect %s", dev.ID), Err: err}
	}
	defer func() { _ = conn.Disconnect() }()

	inv, err := Inventory(ctx, conn)
	if err != nil {
		slog.Warn("[BLE] inventory incomplete", "device", dev.ID, "error", err)
	}

	res := &ProbeResult{Device: dev, Inventory: inv}
	found, err := Discover(ctx, conn, DefaultStrategies(opts))
	if err != nil {
		if KindOf(err) != KindNoWritableCharacteristic {
			return res, err
		}
		return res, nil
	}
	res.Discovery = found
	return res, nil
}
