// Command blepos builds receipts from the demo catalog and prints them on a
// Bluetooth LE thermal printer.
//
// Usage:
//
//	blepos [-config path] <command> [args]
//
// Commands:
//
//	scan                          list nearby printers
//	print [flags] item[:qty]...   print a receipt (see print -h)
//	test-print                    print a short sample receipt
//	catalog                       list products
//	inventory                     dump the GATT table of a chosen printer
//	forget                        clear the remembered printer
//	init                          write the default config file
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/PEWANG24/thermal-printer-pos/internal/ble"
	"github.com/PEWANG24/thermal-printer-pos/internal/config"
	"github.com/PEWANG24/thermal-printer-pos/internal/devicestore"
	"github.com/PEWANG24/thermal-printer-pos/internal/escpos"
	"github.com/PEWANG24/thermal-printer-pos/internal/printer"
	"github.com/PEWANG24/thermal-printer-pos/internal/receipt"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/blepos/config.yaml)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	if cmd == "init" {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if path == "" {
			fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
			return
		}
		fmt.Printf("Wrote default config to %s\n", path)
		return
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	// Signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "scan":
		err = runScan(ctx, cfg)
	case "print":
		err = runPrint(ctx, cfg, args)
	case "test-print":
		err = runTestPrint(ctx, cfg)
	case "catalog":
		runCatalog()
	case "inventory":
		err = runInventory(ctx, cfg)
	case "forget":
		err = runForget(cfg)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		stop()
		log.Fatalf("%s: %v", cmd, err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: blepos [-config path] <command> [args]

Commands:
  scan                          list nearby printers
  print [flags] item[:qty]...   print a receipt (print -h for flags)
  test-print                    print a short sample receipt
  catalog                       list products
  inventory                     dump the GATT table of a chosen printer
  forget                        clear the remembered printer
  init                          write the default config file

Flags:
`)
	flag.PrintDefaults()
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	// Try default config path
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	// No config file, use defaults
	log.Println("No config file found, using defaults (run 'blepos init' to write one)")
	return config.Default(), nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== blepos ===")
	fmt.Printf("  Store:    %s\n", cfg.Store.Name)
	fmt.Printf("  Printers: %s*\n", strings.Join(cfg.Printer.NamePrefixes, "*, "))
	fmt.Printf("  Backend:  %s\n", cfg.Printer.Backend)
	fmt.Printf("  Chunks:   %d bytes every %s\n", cfg.Printer.ChunkSize, cfg.Printer.ChunkDelay)
	fmt.Printf("  Memory:   %s\n", cfg.Memory.Backend)
	fmt.Printf("  Log:      %s\n", cfg.LogLevel)
	fmt.Println("==============")
}

// newManager wires the adapter, device memory and terminal selector. A
// backend that cannot be created leaves the adapter nil, which the manager
// treats as Bluetooth being unavailable.
func newManager(cfg *config.Config) (*printer.Manager, error) {
	adapter, err := ble.NewAdapter(cfg.Printer.Backend)
	if err != nil {
		slog.Warn("[PRINTER] bluetooth backend unavailable", "backend", cfg.Printer.Backend, "error", err)
		adapter = nil
	}

	store, err := devicestore.Open(cfg.Memory.Backend, cfg.Memory.Path)
	if err != nil {
		return nil, fmt.Errorf("opening device memory: %w", err)
	}

	return printer.NewManager(adapter, store, &printer.TerminalSelector{}, cfg.ManagerOptions()), nil
}

func runScan(ctx context.Context, cfg *config.Config) error {
	adapter, err := ble.NewAdapter(cfg.Printer.Backend)
	if err != nil {
		return err
	}

	fmt.Printf("Scanning for %s...\n", cfg.Printer.ScanTimeout)
	devices, err := ble.ScanForDevices(ctx, adapter, ble.ScanFilter{NamePrefixes: cfg.Printer.NamePrefixes}, cfg.Printer.ScanTimeout)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No printers found.")
		return nil
	}
	fmt.Printf("Found %d printer(s):\n", len(devices))
	for _, d := range devices {
		name := d.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("  %-20s %s  %d dBm\n", name, d.ID, d.RSSI)
	}
	return nil
}

func runPrint(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("print", flag.ExitOnError)
	preview := fs.Bool("preview", false, "show the receipt as text instead of printing")
	storeName := fs.String("store", "", "demo store preset to print as")
	number := fs.Int("number", 0, "receipt number (default: derived from the clock)")
	simulate := fs.Bool("simulate", false, "print to a simulated printer")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no items given; try 'blepos catalog'")
	}

	items, err := receipt.DefaultCatalog.ParseCart(fs.Args())
	if err != nil {
		return err
	}

	store := cfg.ReceiptStore()
	if *storeName != "" {
		s, ok := receipt.FindStore(*storeName)
		if !ok {
			return fmt.Errorf("unknown store %q", *storeName)
		}
		store = s
	}

	now := time.Now()
	n := *number
	if n <= 0 {
		n = int(now.Unix() % 100000)
	}
	doc := receipt.New(store, items, n, now)
	doc.TaxRate = cfg.TaxRate()

	if *preview {
		fmt.Print(escpos.Preview(doc))
		return nil
	}

	printBanner(cfg)
	return printDocument(ctx, cfg, doc, *simulate)
}

func runTestPrint(ctx context.Context, cfg *config.Config) error {
	items, err := receipt.DefaultCatalog.ParseCart([]string{"coffee:2", "cookie"})
	if err != nil {
		return err
	}
	doc := receipt.New(cfg.ReceiptStore(), items, 1, time.Now())
	doc.TaxRate = cfg.TaxRate()

	printBanner(cfg)
	return printDocument(ctx, cfg, doc, false)
}

// printDocument connects, sends doc and disconnects. A failed chunk write
// is retried once by resending the whole buffer.
func printDocument(ctx context.Context, cfg *config.Config, doc receipt.Document, simulate bool) error {
	mgr, err := newManager(cfg)
	if err != nil {
		return err
	}

	if simulate {
		err = mgr.ConnectSimulated()
	} else {
		err = mgr.Connect(ctx)
	}
	if err != nil {
		if errors.Is(err, ble.ErrSelectionCancelled) {
			fmt.Println("Cancelled.")
			return nil
		}
		return err
	}
	defer func() {
		if err := mgr.Disconnect(); err != nil {
			slog.Warn("[PRINTER] disconnect failed", "error", err)
		}
	}()

	if dev, ok := mgr.Device(); ok {
		log.Printf("Printing on %s (%s)", dev.Name, dev.ID)
	} else {
		log.Printf("Printing in %s mode", mgr.State())
	}

	data := escpos.Encode(doc, cfg.EncoderOptions())
	start := time.Now()
	err = mgr.PrintRaw(ctx, data)
	if ble.IsRetryable(err) {
		log.Printf("Print interrupted (%v), retrying once...", err)
		err = mgr.PrintRaw(ctx, data)
	}
	if err != nil {
		return err
	}

	log.Printf("Receipt #%d sent (%d bytes, total %s) in %s",
		doc.Number, len(data), doc.Total(), time.Since(start).Round(time.Millisecond))
	return nil
}

func runCatalog() {
	fmt.Printf("%-4s %-14s %-10s %8s\n", "ID", "Name", "Category", "Price")
	for _, p := range receipt.DefaultCatalog {
		fmt.Printf("%-4d %-14s %-10s %8s\n", p.ID, p.Name, p.Category, p.Price)
	}
	fmt.Println("\nStores:")
	for _, s := range receipt.DemoStores {
		fmt.Printf("  %s\n", s.Name)
	}
}

func runInventory(ctx context.Context, cfg *config.Config) error {
	adapter, err := ble.NewAdapter(cfg.Printer.Backend)
	if err != nil {
		return err
	}

	devices, err := ble.ScanForDevices(ctx, adapter, ble.ScanFilter{NamePrefixes: cfg.Printer.NamePrefixes}, cfg.Printer.ScanTimeout)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return errors.New("no printers found")
	}

	sel := &printer.TerminalSelector{}
	dev, err := sel.Select(ctx, devices)
	if err != nil {
		return err
	}

	res, err := ble.Probe(ctx, adapter, dev, ble.DiscoveryOptions{ExtraServiceUUIDs: cfg.Printer.ExtraServiceUUIDs}, cfg.Printer.ConnectTimeout)
	if err != nil {
		return err
	}
	printInventory(res)
	return nil
}

func printInventory(res *ble.ProbeResult) {
	fmt.Printf("%s (%s)\n", res.Device.Name, res.Device.ID)
	for _, s := range res.Inventory {
		fmt.Printf("  service %s\n", ble.ShortUUID(s.UUID))
		for _, c := range s.Characteristics {
			fmt.Printf("    characteristic %s [%s]\n", ble.ShortUUID(c.UUID), c.Properties)
		}
	}
	if res.Discovery == nil {
		fmt.Println("No writable characteristic found.")
		return
	}
	fmt.Printf("Would print on %s (%s tier)\n", ble.ShortUUID(res.Discovery.Characteristic.UUID()), res.Discovery.Strategy)
}

func runForget(cfg *config.Config) error {
	store, err := devicestore.Open(cfg.Memory.Backend, cfg.Memory.Path)
	if err != nil {
		return err
	}
	rec, err := store.Get()
	if err != nil {
		slog.Warn("[PRINTER] could not read remembered printer", "error", err)
	}
	if err := store.Clear(); err != nil {
		return err
	}
	if rec != nil {
		fmt.Printf("Forgot %s (%s)\n", rec.Name, rec.ID)
	} else {
		fmt.Println("No printer remembered.")
	}
	return nil
}
