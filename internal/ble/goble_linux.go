//go:build linux

package ble

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goble "github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

const gobleTimeout = 20 * time.Second

// GoBLEAdapter talks to the HCI socket directly through go-ble. Unlike the
// tinygo backend it reports characteristic properties, so discovery can
// match on advertised write support. Requires CAP_NET_ADMIN.
type GoBLEAdapter struct {
	mu     sync.Mutex
	device goble.Device
}

// NewGoBLEAdapter returns an adapter whose HCI device is opened on Enable.
func NewGoBLEAdapter() (Adapter, error) {
	return &GoBLEAdapter{}, nil
}

func (a *GoBLEAdapter) Enable() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Opening the HCI device twice on Linux fails, so reuse it.
	if a.device != nil {
		return nil
	}
	dev, err := linux.NewDevice(goble.OptDialerTimeout(gobleTimeout), goble.OptListenerTimeout(gobleTimeout))
	if err != nil {
		return fmt.Errorf("ble: open hci device: %w", err)
	}
	a.device = dev
	return nil
}

func (a *GoBLEAdapter) dev() (goble.Device, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.device == nil {
		return nil, errors.New("ble: adapter not enabled")
	}
	return a.device, nil
}

func (a *GoBLEAdapter) Scan(ctx context.Context, filter ScanFilter) ([]Device, error) {
	dev, err := a.dev()
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var devices []Device
	seen := make(map[string]bool)

	handler := func(adv goble.Advertisement) {
		name := adv.LocalName()
		if !filter.Match(name) {
			return
		}
		id := adv.Addr().String()
		mu.Lock()
		defer mu.Unlock()
		if seen[id] {
			return
		}
		seen[id] = true
		devices = append(devices, Device{Name: name, ID: id, RSSI: adv.RSSI()})
	}

	// Scan only returns once ctx is done; that is the normal exit.
	err = dev.Scan(ctx, false, handler)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("ble: scan: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	return devices, nil
}

func (a *GoBLEAdapter) Connect(ctx context.Context, id string) (Connection, error) {
	dev, err := a.dev()
	if err != nil {
		return nil, err
	}

	client, err := dev.Dial(ctx, goble.NewAddr(id))
	if err != nil {
		return nil, fmt.Errorf("ble: connect to %s: %w", id, err)
	}

	if txMTU, err := client.ExchangeMTU(goble.MaxMTU); err != nil {
		slog.Debug("[BLE] mtu exchange failed", "error", err)
	} else {
		slog.Debug("[BLE] mtu negotiated", "mtu", txMTU)
	}

	conn := &gobleConnection{client: client}
	go conn.watch()
	return conn, nil
}

var _ Adapter = (*GoBLEAdapter)(nil)

type gobleConnection struct {
	client goble.Client

	mu           sync.Mutex
	disconnectCb func()
	closed       bool
}

func (c *gobleConnection) watch() {
	<-c.client.Disconnected()
	c.mu.Lock()
	cb := c.disconnectCb
	closed := c.closed
	c.mu.Unlock()
	// A local Disconnect is not a dropped link.
	if cb != nil && !closed {
		cb()
	}
}

func (c *gobleConnection) Services(_ context.Context, uuids []string) ([]Service, error) {
	var filter []goble.UUID
	for _, u := range uuids {
		parsed, err := goble.Parse(u)
		if err != nil {
			return nil, fmt.Errorf("ble: parse service uuid: %w", err)
		}
		filter = append(filter, parsed)
	}

	svcs, err := c.client.DiscoverServices(filter)
	if err != nil {
		return nil, fmt.Errorf("ble: discover services: %w", err)
	}
	if len(uuids) > 0 && len(svcs) == 0 {
		return nil, fmt.Errorf("ble: service %s not found", uuids[0])
	}

	out := make([]Service, 0, len(svcs))
	for _, s := range svcs {
		out = append(out, &gobleService{client: c.client, svc: s})
	}
	return out, nil
}

func (c *gobleConnection) Disconnect() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.client.CancelConnection()
}

func (c *gobleConnection) OnDisconnect(cb func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectCb = cb
}

type gobleService struct {
	client goble.Client
	svc    *goble.Service
}

func (s *gobleService) UUID() string {
	return normalizeOrRaw(s.svc.UUID.String())
}

func (s *gobleService) Characteristics(_ context.Context) ([]Characteristic, error) {
	chars, err := s.client.DiscoverCharacteristics(nil, s.svc)
	if err != nil {
		return nil, fmt.Errorf("ble: discover characteristics: %w", err)
	}
	out := make([]Characteristic, 0, len(chars))
	for _, ch := range chars {
		out = append(out, &gobleCharacteristic{client: s.client, char: ch})
	}
	return out, nil
}

type gobleCharacteristic struct {
	client goble.Client
	char   *goble.Characteristic
}

func (c *gobleCharacteristic) UUID() string {
	return normalizeOrRaw(c.char.UUID.String())
}

func (c *gobleCharacteristic) Properties() Property {
	var p Property
	prop := c.char.Property
	if prop&goble.CharRead != 0 {
		p |= PropRead
	}
	if prop&goble.CharWrite != 0 {
		p |= PropWrite
	}
	if prop&goble.CharWriteNR != 0 {
		p |= PropWriteWithoutResponse
	}
	if prop&goble.CharNotify != 0 {
		p |= PropNotify
	}
	if prop&goble.CharIndicate != 0 {
		p |= PropIndicate
	}
	return p
}

func (c *gobleCharacteristic) Write(data []byte, withResponse bool) error {
	return c.client.WriteCharacteristic(c.char, data, !withResponse)
}

// normalizeOrRaw maps go-ble's undashed UUID strings onto the dashed form
// used everywhere else.
func normalizeOrRaw(s string) string {
	if n, err := NormalizeUUID(s); err == nil {
		return n
	}
	return s
}
