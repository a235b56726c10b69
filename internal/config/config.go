package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/PEWANG24/thermal-printer-pos/internal/ble"
	"github.com/PEWANG24/thermal-printer-pos/internal/devicestore"
	"github.com/PEWANG24/thermal-printer-pos/internal/escpos"
	"github.com/PEWANG24/thermal-printer-pos/internal/printer"
	"github.com/PEWANG24/thermal-printer-pos/internal/receipt"
)

// Config holds all application configuration.
type Config struct {
	Printer  PrinterConfig `yaml:"printer"`
	Store    StoreConfig   `yaml:"store"`
	Memory   MemoryConfig  `yaml:"memory"`
	LogLevel string        `yaml:"log_level"`
}

// PrinterConfig holds BLE and print settings.
type PrinterConfig struct {
	NamePrefixes      []string      `yaml:"name_prefixes"`
	ExtraServiceUUIDs []string      `yaml:"extra_service_uuids"`
	ChunkSize         int           `yaml:"chunk_size"`
	ChunkDelay        time.Duration `yaml:"chunk_delay"`
	ScanTimeout       time.Duration `yaml:"scan_timeout"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	Backend           string        `yaml:"backend"` // "auto", "tinygo" or "goble"
	AllowSimulated    bool          `yaml:"allow_simulated"`
	ReconnectAttempts int           `yaml:"reconnect_attempts"`
	PartialCut        bool          `yaml:"partial_cut"`
	CodePage          string        `yaml:"code_page"`
}

// StoreConfig is the receipt header.
type StoreConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Phone   string `yaml:"phone"`
	TaxRate string `yaml:"tax_rate"` // decimal string, e.g. "0.08"
}

// MemoryConfig selects where the last used printer is remembered.
type MemoryConfig struct {
	Backend string `yaml:"backend"` // "file", "keyring" or "memory"
	Path    string `yaml:"path"`
}

// DefaultConfigDir returns the default config directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "blepos")
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultDeviceMemoryPath returns where the file backend keeps the last
// used printer.
func DefaultDeviceMemoryPath() string {
	return filepath.Join(DefaultConfigDir(), "device.yaml")
}

// Default returns a Config with sensible default values.
func Default() *Config {
	opts := printer.DefaultOptions()
	transport := ble.DefaultTransportOptions()
	store := receipt.DefaultStore

	return &Config{
		Printer: PrinterConfig{
			NamePrefixes:      opts.NamePrefixes,
			ExtraServiceUUIDs: []string{},
			ChunkSize:         transport.ChunkSize,
			ChunkDelay:        transport.ChunkDelay,
			ScanTimeout:       opts.ScanTimeout,
			ConnectTimeout:    opts.ConnectTimeout,
			Backend:           ble.BackendAuto,
			AllowSimulated:    opts.AllowSimulated,
			ReconnectAttempts: opts.ReconnectAttempts,
			PartialCut:        false,
			CodePage:          escpos.DefaultCodePage,
		},
		Store: StoreConfig{
			Name:    store.Name,
			Address: store.Address,
			Phone:   store.Phone,
			TaxRate: receipt.DefaultTaxRate.String(),
		},
		Memory: MemoryConfig{
			Backend: devicestore.BackendFile,
			Path:    DefaultDeviceMemoryPath(),
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML config file. Missing fields are filled
// with defaults. Tilde (~) in memory.path is expanded to the user's home directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.Memory.Path = expandTilde(cfg.Memory.Path)

	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	p := c.Printer

	if len(p.NamePrefixes) == 0 {
		return fmt.Errorf("printer.name_prefixes must not be empty")
	}

	for _, u := range p.ExtraServiceUUIDs {
		if _, err := ble.NormalizeUUID(u); err != nil {
			return fmt.Errorf("printer.extra_service_uuids: %w", err)
		}
	}

	if p.ChunkSize <= 0 {
		return fmt.Errorf("printer.chunk_size must be > 0")
	}
	if p.ChunkDelay <= 0 {
		return fmt.Errorf("printer.chunk_delay must be > 0")
	}
	if p.ScanTimeout <= 0 {
		return fmt.Errorf("printer.scan_timeout must be > 0")
	}
	if p.ConnectTimeout <= 0 {
		return fmt.Errorf("printer.connect_timeout must be > 0")
	}
	if p.ReconnectAttempts < 1 {
		return fmt.Errorf("printer.reconnect_attempts must be >= 1")
	}

	switch p.Backend {
	case ble.BackendAuto, ble.BackendTinyGo, ble.BackendGoBLE:
	default:
		return fmt.Errorf("printer.backend must be \"auto\", \"tinygo\" or \"goble\", got %q", p.Backend)
	}

	if !escpos.ValidCodePage(p.CodePage) {
		return fmt.Errorf("printer.code_page must be one of %s, got %q",
			strings.Join(escpos.CodePages(), ", "), p.CodePage)
	}

	if c.Store.Name == "" {
		return fmt.Errorf("store.name must not be empty")
	}
	rate, err := decimal.NewFromString(c.Store.TaxRate)
	if err != nil {
		return fmt.Errorf("store.tax_rate: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("store.tax_rate must be in [0, 1), got %s", c.Store.TaxRate)
	}

	switch c.Memory.Backend {
	case devicestore.BackendFile:
		if c.Memory.Path == "" {
			return fmt.Errorf("memory.path must not be empty for the file backend")
		}
	case devicestore.BackendKeyring, devicestore.BackendMemory:
	default:
		return fmt.Errorf("memory.backend must be \"file\", \"keyring\" or \"memory\", got %q", c.Memory.Backend)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error, got %q", c.LogLevel)
	}

	return nil
}

// TaxRate returns store.tax_rate as a decimal. Call Validate first; an
// unparsable rate falls back to the default.
func (c *Config) TaxRate() decimal.Decimal {
	rate, err := decimal.NewFromString(c.Store.TaxRate)
	if err != nil {
		return receipt.DefaultTaxRate
	}
	return rate
}

// ReceiptStore returns the receipt header details.
func (c *Config) ReceiptStore() receipt.Store {
	return receipt.Store{Name: c.Store.Name, Address: c.Store.Address, Phone: c.Store.Phone}
}

// EncoderOptions returns the ESC/POS encoder settings.
func (c *Config) EncoderOptions() escpos.Options {
	return escpos.Options{CodePage: c.Printer.CodePage, PartialCut: c.Printer.PartialCut}
}

// ManagerOptions returns the connection manager settings.
func (c *Config) ManagerOptions() printer.Options {
	opts := printer.DefaultOptions()
	p := c.Printer
	opts.NamePrefixes = p.NamePrefixes
	opts.Discovery = ble.DiscoveryOptions{ExtraServiceUUIDs: p.ExtraServiceUUIDs}
	opts.Transport = ble.TransportOptions{ChunkSize: p.ChunkSize, ChunkDelay: p.ChunkDelay}
	opts.Encoder = c.EncoderOptions()
	opts.ScanTimeout = p.ScanTimeout
	opts.ConnectTimeout = p.ConnectTimeout
	opts.ReconnectAttempts = p.ReconnectAttempts
	opts.AllowSimulated = p.AllowSimulated
	return opts
}

// ParseLogLevel maps a log_level value to a slog.Level. Unknown values
// yield slog.LevelInfo.
func ParseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

const defaultHeader = `# blepos configuration
# Generated on first run. Edit to taste; delete to regenerate.
# Durations use Go syntax (10ms, 15s).
# printer.backend: auto|tinygo|goble
# printer.code_page: cp437|cp850|cp858|cp1252|latin1
# memory.backend: file|keyring|memory (memory forgets on exit)

`

// WriteDefault writes the default config to DefaultConfigPath if no file
// exists there yet. It returns the path written, or "" when a config was
// already present.
func WriteDefault() (string, error) {
	path := DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return "", nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("checking config file: %w", err)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("encoding default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(defaultHeader), data...), 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
