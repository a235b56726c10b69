// Command printer-probe is a manual diagnostic for BLE receipt printers.
// It scans, dumps the GATT table of the chosen printer, shows which
// characteristic discovery would print on and optionally sends a test page
// with a barcode and a QR code.
//
// Usage:
//
//	go run ./cmd/printer-probe [--backend auto|tinygo|goble] [--id ID] [--page] [--prefix M35,Thermal]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/PEWANG24/thermal-printer-pos/internal/ble"
	"github.com/PEWANG24/thermal-printer-pos/internal/escpos"
	"github.com/PEWANG24/thermal-printer-pos/internal/printer"
)

func main() {
	backend := flag.String("backend", ble.BackendAuto, "bluetooth backend: auto, tinygo or goble")
	id := flag.String("id", "", "device ID to probe (default: choose from a scan)")
	prefix := flag.String("prefix", "", "comma separated name prefixes to scan for (default: any name)")
	page := flag.Bool("page", false, "send a test page after probing")
	timeout := flag.Duration("timeout", 10*time.Second, "scan and connect timeout")
	codePage := flag.String("codepage", escpos.DefaultCodePage, "code page for the test page")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	adapter, err := ble.NewAdapter(*backend)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	var prefixes []string
	if *prefix != "" {
		prefixes = strings.Split(*prefix, ",")
	}

	dev := ble.Device{ID: *id}
	if dev.ID == "" {
		fmt.Printf("Scanning for %s...\n", *timeout)
		devices, err := ble.ScanForDevices(ctx, adapter, ble.ScanFilter{NamePrefixes: prefixes}, *timeout)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		if len(devices) == 0 {
			fmt.Println("No devices found.")
			return
		}
		sel := &printer.TerminalSelector{}
		dev, err = sel.Select(ctx, devices)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
	}

	res, err := ble.Probe(ctx, adapter, dev, ble.DiscoveryOptions{}, *timeout)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("\n%s (%s)\n", dev.Name, dev.ID)
	for _, s := range res.Inventory {
		fmt.Printf("  service %s\n", s.UUID)
		for _, c := range s.Characteristics {
			fmt.Printf("    %s [%s]\n", c.UUID, c.Properties)
		}
	}
	if res.Discovery == nil {
		fmt.Println("\nNo writable characteristic found.")
		return
	}
	fmt.Printf("\nPrint characteristic: %s (tier %s)\n",
		res.Discovery.Characteristic.UUID(), res.Discovery.Strategy)

	if !*page {
		fmt.Println("\nDone!")
		return
	}

	opts := printer.DefaultOptions()
	opts.NamePrefixes = prefixes
	opts.ConnectTimeout = *timeout
	opts.AllowSimulated = false
	pick := printer.SelectorFunc(func(context.Context, []ble.Device) (ble.Device, error) { return dev, nil })
	mgr := printer.NewManager(adapter, nil, pick, opts)
	if err := mgr.Connect(ctx); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer func() { _ = mgr.Disconnect() }()

	data := testPage(escpos.Options{CodePage: *codePage}, dev)
	fmt.Printf("Sending %d byte test page...\n", len(data))
	if err := mgr.PrintRaw(ctx, data); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("\nDone!")
}

// testPage exercises text styles, the code page, a barcode and a QR code.
func testPage(opts escpos.Options, dev ble.Device) []byte {
	e := escpos.NewEncoder(opts).Initialize()
	e.Align(escpos.AlignCenter).Emphasized(func(e *escpos.Encoder) { e.Line("TEST PAGE") })
	e.Line(dev.Name).Line(dev.ID).DefaultRule()

	e.Align(escpos.AlignLeft)
	e.Line("Normal text")
	e.WithBold(func(e *escpos.Encoder) { e.Line("Bold text") })
	e.Underline(true).Line("Underlined text").Underline(false)
	e.Line("Code page " + opts.CodePage + ": café £5 ±1°")
	e.DefaultRule()

	e.Align(escpos.AlignCenter)
	e.Barcode("012345678905", escpos.UPCA).Feed(1)
	e.QRCode("https://example.com/receipt/test", escpos.QRLevelM, escpos.DefaultQRModuleSize).Feed(1)
	e.Line(time.Now().Format("1/2/2006 3:04:05 PM"))
	e.Feed(3).Cut(opts.PartialCut)
	return e.Bytes()
}
