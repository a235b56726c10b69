package printer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/PEWANG24/thermal-printer-pos/internal/ble"
)

const printerService = "000018f0-0000-1000-8000-00805f9b34fb"

// fakeChar is a writable characteristic. When block is set, Write waits on
// it so tests can hold a print in flight.
type fakeChar struct {
	mu     sync.Mutex
	writes [][]byte
	err    error
	block  chan struct{}
	wrote  chan struct{}
}

func (c *fakeChar) UUID() string             { return "00002af1-0000-1000-8000-00805f9b34fb" }
func (c *fakeChar) Properties() ble.Property { return ble.PropWriteWithoutResponse }

func (c *fakeChar) Write(data []byte, _ bool) error {
	if c.wrote != nil {
		select {
		case c.wrote <- struct{}{}:
		default:
		}
	}
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.writes = append(c.writes, append([]byte(nil), data...))
	return nil
}

func (c *fakeChar) bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []byte
	for _, w := range c.writes {
		out = append(out, w...)
	}
	return out
}

type fakeService struct {
	uuid  string
	chars []ble.Characteristic
}

func (s *fakeService) UUID() string { return s.uuid }
func (s *fakeService) Characteristics(context.Context) ([]ble.Characteristic, error) {
	return s.chars, nil
}

type fakeConn struct {
	mu           sync.Mutex
	services     []*fakeService
	disconnects  int
	onDisconnect func()

	// dropOnRegister fires the callback as soon as it is registered, as a
	// link lost during discovery would.
	dropOnRegister bool
}

func newPrinterConn(c ble.Characteristic) *fakeConn {
	return &fakeConn{services: []*fakeService{{uuid: printerService, chars: []ble.Characteristic{c}}}}
}

func (c *fakeConn) Services(_ context.Context, uuids []string) ([]ble.Service, error) {
	var out []ble.Service
	for _, s := range c.services {
		if uuids == nil {
			out = append(out, s)
			continue
		}
		for _, u := range uuids {
			if u == s.uuid {
				out = append(out, s)
			}
		}
	}
	if uuids != nil && len(out) == 0 {
		return nil, errors.New("fake: service not found")
	}
	return out, nil
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	return nil
}

func (c *fakeConn) OnDisconnect(cb func()) {
	c.mu.Lock()
	c.onDisconnect = cb
	fire := c.dropOnRegister
	c.mu.Unlock()
	if fire {
		cb()
	}
}

// drop simulates the printer going away.
func (c *fakeConn) drop() {
	c.mu.Lock()
	cb := c.onDisconnect
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

type fakeAdapter struct {
	mu        sync.Mutex
	enableErr error
	scanErr   error
	devices   []ble.Device
	conns     map[string]*fakeConn
	failFirst map[string]int // connect failures before success
	connects  []string
	scans     int
}

func (a *fakeAdapter) Enable() error { return a.enableErr }

func (a *fakeAdapter) Scan(_ context.Context, filter ble.ScanFilter) ([]ble.Device, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scans++
	if a.scanErr != nil {
		return nil, a.scanErr
	}
	var out []ble.Device
	for _, d := range a.devices {
		if filter.Match(d.Name) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (a *fakeAdapter) Connect(_ context.Context, id string) (ble.Connection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connects = append(a.connects, id)
	if a.failFirst[id] > 0 {
		a.failFirst[id]--
		return nil, fmt.Errorf("fake: %s out of range", id)
	}
	conn, ok := a.conns[id]
	if !ok {
		return nil, fmt.Errorf("fake: %s out of range", id)
	}
	return conn, nil
}

func (a *fakeAdapter) connectCalls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.connects...)
}
