package ble

import (
	"context"
	"errors"
	"testing"
)

func TestDiscoverKnownServiceFirst(t *testing.T) {
	printerChar := newMockCharacteristic("2af1", PropWriteWithoutResponse)
	// A writable characteristic on an unlisted service must not win over the
	// priority list.
	otherChar := newMockCharacteristic("1234", PropWrite)
	conn := newMockConnection(
		newMockService("abcd", otherChar),
		newMockService("18f0", newMockCharacteristic("2af0", PropNotify), printerChar),
	)

	res, err := Discover(context.Background(), conn, DefaultStrategies(DiscoveryOptions{}))
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if res.Strategy != "known-services" {
		t.Errorf("Strategy = %q, want known-services", res.Strategy)
	}
	if res.Characteristic != printerChar {
		t.Errorf("Characteristic = %s, want %s", res.Characteristic.UUID(), printerChar.UUID())
	}
	if n := conn.fullEnumerations(); n != 0 {
		t.Errorf("full enumerations = %d, want 0 when tier 1 matches", n)
	}
}

func TestDiscoverPriorityOrder(t *testing.T) {
	// ff00 comes after 18f0 in the priority list even though the device
	// lists it first.
	ff00 := newMockCharacteristic("ff02", PropWrite)
	x18f0 := newMockCharacteristic("2af1", PropWrite)
	conn := newMockConnection(
		newMockService("ff00", ff00),
		newMockService("18f0", x18f0),
	)

	c, err := FindWritableCharacteristic(context.Background(), conn, DiscoveryOptions{})
	if err != nil {
		t.Fatalf("FindWritableCharacteristic() error = %v", err)
	}
	if c != x18f0 {
		t.Errorf("got %s, want the 18f0 characteristic", c.UUID())
	}
}

func TestDiscoverExtraServicesProbedFirst(t *testing.T) {
	custom := newMockCharacteristic("c0de0002-0000-4000-8000-000000000000", PropWrite)
	conn := newMockConnection(
		newMockService("18f0", newMockCharacteristic("2af1", PropWrite)),
		newMockService("c0de0001-0000-4000-8000-000000000000", custom),
	)

	c, err := FindWritableCharacteristic(context.Background(), conn, DiscoveryOptions{
		ExtraServiceUUIDs: []string{"C0DE0001-0000-4000-8000-000000000000", "not-a-uuid"},
	})
	if err != nil {
		t.Fatalf("FindWritableCharacteristic() error = %v", err)
	}
	if c != custom {
		t.Errorf("got %s, want the configured service's characteristic", c.UUID())
	}
}

func TestDiscoverFallsThroughToAllServices(t *testing.T) {
	// Only a non-priority service with one writable characteristic: tier 1
	// exhausts, tier 2 succeeds, tier 3 is never reached.
	writable := newMockCharacteristic("beef", PropWrite)
	conn := newMockConnection(
		newMockService("abcd", newMockCharacteristic("bee0", PropRead), writable),
	)

	var tier3Called bool
	strategies := DefaultStrategies(DiscoveryOptions{})
	tier3 := strategies[2].Find
	strategies[2].Find = func(ctx context.Context, c Connection) (Characteristic, error) {
		tier3Called = true
		return tier3(ctx, c)
	}

	res, err := Discover(context.Background(), conn, strategies)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if res.Strategy != "all-services" {
		t.Errorf("Strategy = %q, want all-services", res.Strategy)
	}
	if res.Characteristic != writable {
		t.Errorf("Characteristic = %s, want %s", res.Characteristic.UUID(), writable.UUID())
	}
	if tier3Called {
		t.Error("tier 3 should not run when tier 2 succeeds")
	}
}

func TestDiscoverRelaxedTier(t *testing.T) {
	// Firmware that misreports capabilities: nothing advertises write.
	readOnly := newMockCharacteristic("beef", PropRead)
	conn := newMockConnection(
		newMockService("abcd", readOnly),
	)

	res, err := Discover(context.Background(), conn, DefaultStrategies(DiscoveryOptions{}))
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if res.Strategy != "any-characteristic" {
		t.Errorf("Strategy = %q, want any-characteristic", res.Strategy)
	}
	if res.Characteristic != readOnly {
		t.Errorf("Characteristic = %s, want %s", res.Characteristic.UUID(), readOnly.UUID())
	}
}

func TestDiscoverRelaxedTierPrefersPrinterServices(t *testing.T) {
	// Backends without property support report 0 everywhere, and Generic
	// Access is enumerated first.
	deviceName := newMockCharacteristic("2a00", 0)
	printerChar := newMockCharacteristic("2af1", 0)
	conn := newMockConnection(
		newMockService("1800", deviceName),
		newMockService("18f0", printerChar),
	)

	res, err := Discover(context.Background(), conn, DefaultStrategies(DiscoveryOptions{}))
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if res.Strategy != "any-characteristic" {
		t.Errorf("Strategy = %q, want any-characteristic", res.Strategy)
	}
	if res.Characteristic != printerChar {
		t.Errorf("Characteristic = %s, want 2af1", ShortUUID(res.Characteristic.UUID()))
	}
}

func TestDiscoverNoCharacteristics(t *testing.T) {
	conn := newMockConnection(
		newMockService("1800"),
		newMockService("180a"),
	)

	_, err := FindWritableCharacteristic(context.Background(), conn, DiscoveryOptions{})
	if err == nil {
		t.Fatal("FindWritableCharacteristic() should fail on a device without characteristics")
	}
	if !errors.Is(err, ErrNoWritableCharacteristic) {
		t.Fatalf("error = %v, want ErrNoWritableCharacteristic", err)
	}

	var bleErr *Error
	if !errors.As(err, &bleErr) {
		t.Fatalf("error %T is not *Error", err)
	}
	if len(bleErr.Inventory) != 2 {
		t.Errorf("Inventory has %d services, want 2", len(bleErr.Inventory))
	}
}

func TestDiscoverEnumerationErrorSurfaces(t *testing.T) {
	conn := newMockConnection()
	conn.enumErr = errors.New("mock: gatt timeout")

	_, err := FindWritableCharacteristic(context.Background(), conn, DiscoveryOptions{})
	if KindOf(err) != KindNoWritableCharacteristic {
		t.Fatalf("KindOf(err) = %v, want KindNoWritableCharacteristic", KindOf(err))
	}
	if !errors.Is(err, conn.enumErr) {
		t.Errorf("error should wrap the enumeration failure, got %v", err)
	}
}

func TestDiscoverSkipsBrokenService(t *testing.T) {
	broken := newMockService("18f0")
	broken.err = errors.New("mock: att error")
	good := newMockCharacteristic("ff02", PropWriteWithoutResponse)
	conn := newMockConnection(broken, newMockService("ff00", good))

	c, err := FindWritableCharacteristic(context.Background(), conn, DiscoveryOptions{})
	if err != nil {
		t.Fatalf("FindWritableCharacteristic() error = %v", err)
	}
	if c != good {
		t.Errorf("got %s, want %s", c.UUID(), good.UUID())
	}
}

func TestDiscoverCancelled(t *testing.T) {
	conn := newMockConnection(newMockService("18f0", newMockCharacteristic("2af1", PropWrite)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FindWritableCharacteristic(ctx, conn, DiscoveryOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled in chain", err)
	}
	if KindOf(err) != KindConnectionUnavailable {
		t.Errorf("KindOf(err) = %v, want KindConnectionUnavailable", KindOf(err))
	}
}

func TestInventory(t *testing.T) {
	conn := newMockConnection(
		newMockService("18f0",
			newMockCharacteristic("2af0", PropNotify),
			newMockCharacteristic("2af1", PropWrite|PropWriteWithoutResponse),
		),
		newMockService("180a", newMockCharacteristic("2a29", PropRead)),
	)

	inv, err := Inventory(context.Background(), conn)
	if err != nil {
		t.Fatalf("Inventory() error = %v", err)
	}
	if len(inv) != 2 {
		t.Fatalf("got %d services, want 2", len(inv))
	}
	if ShortUUID(inv[0].UUID) != "18f0" {
		t.Errorf("inv[0].UUID = %q, want 18f0", inv[0].UUID)
	}
	if len(inv[0].Characteristics) != 2 {
		t.Fatalf("inv[0] has %d characteristics, want 2", len(inv[0].Characteristics))
	}
	if got := inv[0].Characteristics[1].Properties; got != PropWrite|PropWriteWithoutResponse {
		t.Errorf("inv[0].Characteristics[1].Properties = %v", got)
	}
}
