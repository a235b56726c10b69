// Package printer manages the link to one BLE receipt printer: picking a
// device, remembering it, and sending receipts to it.
package printer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PEWANG24/thermal-printer-pos/internal/ble"
	"github.com/PEWANG24/thermal-printer-pos/internal/ble/protocol"
	"github.com/PEWANG24/thermal-printer-pos/internal/devicestore"
	"github.com/PEWANG24/thermal-printer-pos/internal/escpos"
	"github.com/PEWANG24/thermal-printer-pos/internal/receipt"
)

var (
	ErrNotConnected = errors.New("printer: not connected")
	ErrBusy         = errors.New("printer: another operation is in progress")
)

// StateKind is the externally visible connection state.
type StateKind int

const (
	StateDisconnected StateKind = iota
	StateConnecting
	StateConnectedReal
	StateConnectedSimulated
)

func (k StateKind) String() string {
	switch k {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnectedReal:
		return "connected"
	case StateConnectedSimulated:
		return "simulated"
	default:
		return fmt.Sprintf("state(%d)", int(k))
	}
}

// state is a tagged variant; only connectedReal carries link data, so a
// characteristic can never outlive its connection.
type state interface{ kind() StateKind }

type disconnected struct{}
type connecting struct{}
type connectedSimulated struct{}

type connectedReal struct {
	device ble.Device
	conn   ble.Connection
	char   ble.Characteristic
	gen    uint64
}

func (disconnected) kind() StateKind       { return StateDisconnected }
func (connecting) kind() StateKind         { return StateConnecting }
func (connectedReal) kind() StateKind      { return StateConnectedReal }
func (connectedSimulated) kind() StateKind { return StateConnectedSimulated }

// Options configures a Manager.
type Options struct {
	NamePrefixes      []string
	Discovery         ble.DiscoveryOptions
	Transport         ble.TransportOptions
	Encoder           escpos.Options
	ScanTimeout       time.Duration
	ConnectTimeout    time.Duration
	ReconnectAttempts int // tries at the remembered device before scanning
	// AllowSimulated switches to a simulated printer when Bluetooth is
	// missing or cannot be enabled.
	AllowSimulated bool

	// Backoff returns the pause before reconnect attempt n (n >= 1).
	Backoff func(attempt int) time.Duration
	Now     func() time.Time
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		NamePrefixes:      []string{"M35", "Micro", "Thermal"},
		Transport:         ble.DefaultTransportOptions(),
		ScanTimeout:       10 * time.Second,
		ConnectTimeout:    15 * time.Second,
		ReconnectAttempts: 2,
		AllowSimulated:    true,
	}
}

// Manager owns the printer connection. Safe for concurrent use; at most one
// connect or print runs at a time.
type Manager struct {
	adapter   ble.Adapter
	store     devicestore.Store
	selector  Selector
	transport *ble.Transport
	opts      Options

	mu      sync.Mutex
	st      state
	gen     atomic.Uint64
	dropped uint64 // last generation reported lost, guarded by mu

	printing atomic.Bool
}

// NewManager creates a disconnected manager. adapter may be nil when the
// platform has no Bluetooth support.
func NewManager(adapter ble.Adapter, store devicestore.Store, selector Selector, opts Options) *Manager {
	def := DefaultOptions()
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = def.ScanTimeout
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = def.ConnectTimeout
	}
	if opts.ReconnectAttempts <= 0 {
		opts.ReconnectAttempts = 1
	}
	if opts.Backoff == nil {
		opts.Backoff = func(attempt int) time.Duration { return ble.BackoffDelay(attempt-1, 8) }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if store == nil {
		store = &devicestore.MemoryStore{}
	}
	if selector == nil {
		selector = FirstDeviceSelector{}
	}
	return &Manager{
		adapter:   adapter,
		store:     store,
		selector:  selector,
		transport: ble.NewTransport(opts.Transport),
		opts:      opts,
		st:        disconnected{},
	}
}

// State reports the current connection state.
func (m *Manager) State() StateKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.kind()
}

// Device returns the connected printer, if the link is real.
func (m *Manager) Device() (ble.Device, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.st.(connectedReal); ok {
		return s.device, true
	}
	return ble.Device{}, false
}

// Connect brings the manager to a connected state. It tries the remembered
// printer first, then scans and asks the selector. Calling Connect while
// connected is a no-op.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.st.(type) {
	case connectedReal, connectedSimulated:
		m.mu.Unlock()
		return nil
	case connecting:
		m.mu.Unlock()
		return ErrBusy
	}
	m.st = connecting{}
	m.mu.Unlock()

	st, err := m.connect(ctx)

	m.mu.Lock()
	if err != nil {
		m.st = disconnected{}
		m.mu.Unlock()
		return err
	}
	cur, ok := st.(connectedReal)
	if ok && cur.gen == m.dropped {
		m.st = disconnected{}
		m.mu.Unlock()
		_ = cur.conn.Disconnect()
		slog.Warn("[PRINTER] printer disconnected while connecting", "device", cur.device.ID)
		return &ble.Error{Kind: ble.KindConnectionUnavailable, Detail: "link lost while connecting to " + cur.device.ID}
	}
	m.st = st
	m.mu.Unlock()
	return nil
}

// ConnectSimulated enters test mode without touching Bluetooth. An existing
// real link is closed first.
func (m *Manager) ConnectSimulated() error {
	if err := m.Disconnect(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st = connectedSimulated{}
	slog.Info("[PRINTER] simulated printer connected")
	return nil
}

func (m *Manager) connect(ctx context.Context) (state, error) {
	if m.adapter == nil {
		return m.unavailable(errors.New("no bluetooth adapter on this platform"))
	}
	if err := m.adapter.Enable(); err != nil {
		return m.unavailable(err)
	}

	rec, err := m.store.Get()
	if err != nil {
		slog.Warn("[PRINTER] could not read remembered printer", "error", err)
	}
	if rec != nil {
		st, err := m.reconnect(ctx, *rec)
		if err == nil {
			return st, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		slog.Warn("[PRINTER] remembered printer unavailable, scanning", "device", rec.ID, "error", err)
	}

	dev, err := m.choose(ctx)
	if err != nil {
		return nil, err
	}
	return m.open(ctx, dev)
}

func (m *Manager) unavailable(cause error) (state, error) {
	if m.opts.AllowSimulated {
		slog.Warn("[PRINTER] bluetooth unavailable, using simulated printer", "error", cause)
		return connectedSimulated{}, nil
	}
	return nil, &ble.Error{Kind: ble.KindConnectionUnavailable, Detail: "bluetooth unavailable", Err: cause}
}

// reconnect retries the remembered device with backoff. A device that
// connects but has nothing writable is not retried.
func (m *Manager) reconnect(ctx context.Context, rec devicestore.Record) (state, error) {
	dev := ble.Device{ID: rec.ID, Name: rec.Name}
	var lastErr error
	for attempt := 0; attempt < m.opts.ReconnectAttempts; attempt++ {
		if attempt > 0 {
			delay := m.opts.Backoff(attempt)
			slog.Info("[PRINTER] reconnect backoff", "attempt", attempt+1, "delay", delay)
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, err
			}
		}

		st, err := m.open(ctx, dev)
		if err == nil {
			return st, nil
		}
		lastErr = err
		slog.Warn("[PRINTER] reconnect failed", "device", rec.ID, "attempt", attempt+1, "error", err)
		if ble.KindOf(err) == ble.KindNoWritableCharacteristic || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// choose scans for printers and lets the selector pick one.
func (m *Manager) choose(ctx context.Context) (ble.Device, error) {
	scanCtx, cancel := context.WithTimeout(ctx, m.opts.ScanTimeout)
	defer cancel()

	slog.Info("[PRINTER] scanning", "timeout", m.opts.ScanTimeout, "prefixes", m.opts.NamePrefixes)
	devices, err := m.adapter.Scan(scanCtx, ble.ScanFilter{NamePrefixes: m.opts.NamePrefixes})
	if err != nil {
		return ble.Device{}, &ble.Error{Kind: ble.KindConnectionUnavailable, Detail: "scan", Err: err}
	}
	if len(devices) == 0 {
		return ble.Device{}, &ble.Error{Kind: ble.KindConnectionUnavailable, Detail: "no printers found"}
	}
	sort.SliceStable(devices, func(i, j int) bool { return devices[i].RSSI > devices[j].RSSI })

	dev, err := m.selector.Select(ctx, devices)
	if errors.Is(err, ErrSelectionCancelled) {
		return ble.Device{}, &ble.Error{Kind: ble.KindSelectionCancelled, Err: err}
	}
	if err != nil {
		return ble.Device{}, &ble.Error{Kind: ble.KindConnectionUnavailable, Detail: "select device", Err: err}
	}
	return dev, nil
}

// open connects to dev, discovers its write characteristic and remembers it.
func (m *Manager) open(ctx context.Context, dev ble.Device) (state, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.ConnectTimeout)
	defer cancel()

	conn, err := m.adapter.Connect(ctx, dev.ID)
	if err != nil {
		return nil, &ble.Error{Kind: ble.KindConnectionUnavailable, Detail: "connect " + dev.ID, Err: err}
	}

	res, err := ble.Discover(ctx, conn, ble.DefaultStrategies(m.opts.Discovery))
	if err != nil {
		_ = conn.Disconnect()
		return nil, err
	}

	if err := m.store.Put(devicestore.Record{ID: dev.ID, Name: dev.Name, LastConnectedAt: m.opts.Now()}); err != nil {
		slog.Warn("[PRINTER] could not remember printer", "device", dev.ID, "error", err)
	}

	gen := m.gen.Add(1)
	conn.OnDisconnect(func() { m.handleDisconnect(gen) })

	slog.Info("[PRINTER] connected",
		"device", dev.ID,
		"name", dev.Name,
		"characteristic", ble.ShortUUID(res.Characteristic.UUID()),
		"tier", res.Strategy,
	)
	return connectedReal{device: dev, conn: conn, char: res.Characteristic, gen: gen}, nil
}

// handleDisconnect drops a real link that went away. Callbacks from an
// older connection are ignored. A link lost before Connect commits it is
// recorded so the commit can refuse it.
func (m *Manager) handleDisconnect(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = gen
	cur, ok := m.st.(connectedReal)
	if !ok || cur.gen != gen {
		return
	}
	m.st = disconnected{}
	slog.Warn("[PRINTER] printer disconnected", "device", cur.device.ID)
}

// Disconnect closes a real link. The remembered device is kept.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	if _, ok := m.st.(connecting); ok {
		m.mu.Unlock()
		return ErrBusy
	}
	prev := m.st
	m.st = disconnected{}
	m.mu.Unlock()

	if cur, ok := prev.(connectedReal); ok {
		if err := cur.conn.Disconnect(); err != nil {
			return fmt.Errorf("printer: disconnect %s: %w", cur.device.ID, err)
		}
		slog.Info("[PRINTER] disconnected", "device", cur.device.ID)
	}
	return nil
}

// Forget clears the remembered device. The current link, if any, stays up.
func (m *Manager) Forget() error {
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("printer: forget device: %w", err)
	}
	return nil
}

// Print encodes doc and sends it. In simulated mode nothing is sent.
func (m *Manager) Print(ctx context.Context, doc receipt.Document) error {
	data := escpos.Encode(doc, m.opts.Encoder)
	return m.send(ctx, data)
}

// PrintRaw sends an already encoded buffer, e.g. to retry a failed print.
func (m *Manager) PrintRaw(ctx context.Context, data []byte) error {
	return m.send(ctx, data)
}

func (m *Manager) send(ctx context.Context, data []byte) error {
	if !m.printing.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer m.printing.Store(false)

	m.mu.Lock()
	st := m.st
	m.mu.Unlock()

	switch s := st.(type) {
	case connectedSimulated:
		slog.Info("[PRINTER] simulated print", "bytes", len(data),
			"chunks", protocol.ChunkCount(len(data), m.transport.Options().ChunkSize))
		return nil
	case connectedReal:
		return m.transport.Send(ctx, data, s.char)
	default:
		return ErrNotConnected
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
