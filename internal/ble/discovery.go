package ble

import (
	"context"
	"fmt"
	"log/slog"
)

// PriorityServiceUUIDs are probed first, in order. They cover the services
// thermal printers commonly expose their data characteristic on.
var PriorityServiceUUIDs = []string{
	mustNormalize("18f0"), // generic "printer" service used by most cheap ESC/POS units
	mustNormalize("ff00"),
	mustNormalize("ffe0"),
	mustNormalize("fff0"),
	mustNormalize("ae30"),
	mustNormalize("49535343-fe7d-4ae5-8fa9-9fafd205e455"), // ISSC/Microchip transparent UART
	mustNormalize("e7810a71-73ae-499d-8c15-faa9aef0c3f2"), // vendor printer service
	mustNormalize("6e400001-b5a3-f393-e0a9-e50e24dcca9e"), // Nordic UART
	mustNormalize("1800"), // Generic Access
	mustNormalize("180a"), // Device Information
}

// DiscoveryOptions configures FindWritableCharacteristic.
type DiscoveryOptions struct {
	// ExtraServiceUUIDs are probed before PriorityServiceUUIDs.
	ExtraServiceUUIDs []string
}

// Strategy is one discovery tier. Find returns (nil, nil) when the tier
// found nothing, and an error only when the device could not be queried.
type Strategy struct {
	Name string
	Find func(ctx context.Context, conn Connection) (Characteristic, error)
}

// DiscoveryResult reports which tier matched.
type DiscoveryResult struct {
	Characteristic Characteristic
	Strategy       string
}

// DefaultStrategies returns the tiers in the order they are tried: known
// printer services, every service, then any characteristic regardless of
// advertised write support.
func DefaultStrategies(opts DiscoveryOptions) []Strategy {
	known := make([]string, 0, len(opts.ExtraServiceUUIDs)+len(PriorityServiceUUIDs))
	seen := make(map[string]bool)
	for _, u := range append(append([]string{}, opts.ExtraServiceUUIDs...), PriorityServiceUUIDs...) {
		n, err := NormalizeUUID(u)
		if err != nil {
			slog.Warn("[DISCOVERY] skipping invalid service uuid", "uuid", u, "error", err)
			continue
		}
		if !seen[n] {
			seen[n] = true
			known = append(known, n)
		}
	}

	return []Strategy{
		{Name: "known-services", Find: knownServices(known, Property.CanWrite)},
		{Name: "all-services", Find: allServices(Property.CanWrite)},
		{Name: "any-characteristic", Find: anyCharacteristic(known)},
	}
}

// FindWritableCharacteristic runs the default tiers against conn.
func FindWritableCharacteristic(ctx context.Context, conn Connection, opts DiscoveryOptions) (Characteristic, error) {
	res, err := Discover(ctx, conn, DefaultStrategies(opts))
	if err != nil {
		return nil, err
	}
	return res.Characteristic, nil
}

// Discover tries each strategy in order and returns the first match. A tier
// that errors is logged and treated as exhausted. When every tier comes up
// empty the returned *Error carries the device inventory.
func Discover(ctx context.Context, conn Connection, strategies []Strategy) (*DiscoveryResult, error) {
	var lastErr error
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return nil, discoveryCancelled(err)
		}

		c, err := s.Find(ctx, conn)
		if err != nil {
			slog.Warn("[DISCOVERY] tier failed", "tier", s.Name, "error", err)
			lastErr = err
			continue
		}
		if c != nil {
			slog.Info("[DISCOVERY] found characteristic",
				"tier", s.Name,
				"uuid", ShortUUID(c.UUID()),
				"properties", c.Properties().String(),
			)
			return &DiscoveryResult{Characteristic: c, Strategy: s.Name}, nil
		}
		slog.Debug("[DISCOVERY] tier exhausted", "tier", s.Name)
	}

	// Tiers fail once the deadline passes; that says nothing about the device.
	if err := ctx.Err(); err != nil {
		return nil, discoveryCancelled(err)
	}

	inv, invErr := Inventory(ctx, conn)
	if invErr != nil {
		slog.Debug("[DISCOVERY] inventory incomplete", "error", invErr)
	}
	LogInventory(inv)

	return nil, &Error{
		Kind:      KindNoWritableCharacteristic,
		Detail:    fmt.Sprintf("searched %d services", len(inv)),
		Inventory: inv,
		Err:       lastErr,
	}
}

func discoveryCancelled(err error) error {
	return &Error{Kind: KindConnectionUnavailable, Detail: "discovery interrupted", Err: err}
}

func knownServices(uuids []string, accept func(Property) bool) func(context.Context, Connection) (Characteristic, error) {
	return func(ctx context.Context, conn Connection) (Characteristic, error) {
		for _, u := range uuids {
			svcs, err := conn.Services(ctx, []string{u})
			if err != nil {
				// Most backends report a missing service as an error.
				slog.Debug("[DISCOVERY] service not present", "uuid", ShortUUID(u), "error", err)
				continue
			}
			if c := firstMatching(ctx, svcs, accept); c != nil {
				return c, nil
			}
		}
		return nil, nil
	}
}

func allServices(accept func(Property) bool) func(context.Context, Connection) (Characteristic, error) {
	return func(ctx context.Context, conn Connection) (Characteristic, error) {
		svcs, err := conn.Services(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("enumerate services: %w", err)
		}
		return firstMatching(ctx, svcs, accept), nil
	}
}

// anyCharacteristic accepts any characteristic, walking the known printer
// services before the rest. Backends that report no properties land here,
// and the first service on most devices is Generic Access.
func anyCharacteristic(known []string) func(context.Context, Connection) (Characteristic, error) {
	acceptAll := func(Property) bool { return true }
	preferred := knownServices(known, acceptAll)
	rest := allServices(acceptAll)
	return func(ctx context.Context, conn Connection) (Characteristic, error) {
		if c, err := preferred(ctx, conn); c != nil || err != nil {
			return c, err
		}
		return rest(ctx, conn)
	}
}

func firstMatching(ctx context.Context, svcs []Service, accept func(Property) bool) Characteristic {
	for _, svc := range svcs {
		chars, err := svc.Characteristics(ctx)
		if err != nil {
			slog.Debug("[DISCOVERY] characteristics unavailable", "service", ShortUUID(svc.UUID()), "error", err)
			continue
		}
		for _, c := range chars {
			if accept(c.Properties()) {
				return c
			}
		}
	}
	return nil
}

// CharInfo describes one characteristic in an inventory.
type CharInfo struct {
	UUID       string
	Properties Property
}

// ServiceInfo describes one service and its characteristics.
type ServiceInfo struct {
	UUID            string
	Characteristics []CharInfo
}

// Inventory enumerates every service and characteristic on conn. Services
// whose characteristics cannot be read are listed empty; the first such
// error is returned alongside the partial inventory.
func Inventory(ctx context.Context, conn Connection) ([]ServiceInfo, error) {
	svcs, err := conn.Services(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ble: enumerate services: %w", err)
	}

	var firstErr error
	inv := make([]ServiceInfo, 0, len(svcs))
	for _, svc := range svcs {
		info := ServiceInfo{UUID: svc.UUID()}
		chars, err := svc.Characteristics(ctx)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("ble: characteristics of %s: %w", svc.UUID(), err)
		}
		for _, c := range chars {
			info.Characteristics = append(info.Characteristics, CharInfo{UUID: c.UUID(), Properties: c.Properties()})
		}
		inv = append(inv, info)
	}
	return inv, firstErr
}

// LogInventory writes inv at debug level.
func LogInventory(inv []ServiceInfo) {
	for _, s := range inv {
		slog.Debug("[DISCOVERY] service", "uuid", ShortUUID(s.UUID), "characteristics", len(s.Characteristics))
		for _, c := range s.Characteristics {
			slog.Debug("[DISCOVERY]   characteristic", "uuid", ShortUUID(c.UUID), "properties", c.Properties.String())
		}
	}
}
