package printer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/PEWANG24/thermal-printer-pos/internal/ble"
)

// ErrSelectionCancelled is returned by a Selector when the user declines to
// pick a device.
var ErrSelectionCancelled = errors.New("printer: device selection cancelled")

// Selector picks one printer out of a scan. Devices arrive strongest
// signal first.
type Selector interface {
	Select(ctx context.Context, devices []ble.Device) (ble.Device, error)
}

// SelectorFunc adapts a function to Selector.
type SelectorFunc func(ctx context.Context, devices []ble.Device) (ble.Device, error)

func (f SelectorFunc) Select(ctx context.Context, devices []ble.Device) (ble.Device, error) {
	return f(ctx, devices)
}

// FirstDeviceSelector takes the strongest device without asking.
type FirstDeviceSelector struct{}

func (FirstDeviceSelector) Select(_ context.Context, devices []ble.Device) (ble.Device, error) {
	if len(devices) == 0 {
		return ble.Device{}, errors.New("printer: no devices to choose from")
	}
	return devices[0], nil
}

// TerminalSelector lists the devices and reads a choice. When In is a
// terminal it is switched to raw mode for line editing; otherwise lines are
// read as-is. Entering q or closing input cancels.
type TerminalSelector struct {
	In  io.Reader // default os.Stdin
	Out io.Writer // default os.Stdout
}

func (s *TerminalSelector) Select(ctx context.Context, devices []ble.Device) (ble.Device, error) {
	if len(devices) == 0 {
		return ble.Device{}, errors.New("printer: no devices to choose from")
	}
	in, out := s.In, s.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	prompt := fmt.Sprintf("Select printer [1-%d, q to cancel]: ", len(devices))

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		old, err := term.MakeRaw(fd)
		if err != nil {
			return ble.Device{}, fmt.Errorf("printer: terminal raw mode: %w", err)
		}
		defer func() { _ = term.Restore(fd, old) }()

		t := term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{in, out}, prompt)
		listDevices(t, devices, "\r\n")
		return readChoice(ctx, t, devices, t.ReadLine, func() {})
	}

	listDevices(out, devices, "\n")
	br := bufio.NewReader(in)
	readLine := func() (string, error) {
		line, err := br.ReadString('\n')
		if errors.Is(err, io.EOF) && line != "" {
			err = nil
		}
		return line, err
	}
	fmt.Fprint(out, prompt)
	return readChoice(ctx, out, devices, readLine, func() { fmt.Fprint(out, prompt) })
}

func listDevices(w io.Writer, devices []ble.Device, nl string) {
	fmt.Fprintf(w, "Found %d printer(s):%s", len(devices), nl)
	for i, d := range devices {
		name := d.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(w, "  %d) %-20s %s  %d dBm%s", i+1, name, d.ID, d.RSSI, nl)
	}
}

func readChoice(ctx context.Context, w io.Writer, devices []ble.Device, readLine func() (string, error), reprompt func()) (ble.Device, error) {
	for {
		if err := ctx.Err(); err != nil {
			return ble.Device{}, err
		}
		line, err := readLine()
		if errors.Is(err, io.EOF) {
			return ble.Device{}, ErrSelectionCancelled
		}
		if err != nil {
			return ble.Device{}, fmt.Errorf("printer: reading choice: %w", err)
		}

		line = strings.TrimSpace(line)
		if strings.EqualFold(line, "q") {
			return ble.Device{}, ErrSelectionCancelled
		}
		if line == "" && len(devices) == 1 {
			return devices[0], nil
		}
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(devices) {
			return devices[n-1], nil
		}
		fmt.Fprintf(w, "invalid choice %q\n", line)
		reprompt()
	}
}
