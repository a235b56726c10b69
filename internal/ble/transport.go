package ble

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/PEWANG24/thermal-printer-pos/internal/ble/protocol"
)

// TransportOptions configures chunked writes.
type TransportOptions struct {
	ChunkSize  int           // max bytes per write (default 20)
	ChunkDelay time.Duration // pause between writes (default 10ms)
}

// DefaultTransportOptions returns the settings that work with printers that
// never negotiate a larger MTU.
func DefaultTransportOptions() TransportOptions {
	return TransportOptions{
		ChunkSize:  protocol.DefaultChunkSize,
		ChunkDelay: 10 * time.Millisecond,
	}
}

// Transport streams a byte buffer to a characteristic in paced chunks.
// A Transport has no per-send state; one print must finish before the next
// starts on the same characteristic.
type Transport struct {
	opts TransportOptions
}

// NewTransport fills unset options with defaults.
func NewTransport(opts TransportOptions) *Transport {
	def := DefaultTransportOptions()
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = def.ChunkSize
	}
	if opts.ChunkDelay <= 0 {
		opts.ChunkDelay = def.ChunkDelay
	}
	return &Transport{opts: opts}
}

// Options returns the effective options.
func (t *Transport) Options() TransportOptions { return t.opts }

// Send writes data to c in order. The first failing chunk aborts the send
// with a KindChunkTransmission error; later chunks are never attempted.
// Callers retry by calling Send again with the full buffer.
func (t *Transport) Send(ctx context.Context, data []byte, c Characteristic) error {
	chunks := protocol.ChunkBytes(data, t.opts.ChunkSize)
	if len(chunks) == 0 {
		return nil
	}

	modes := writeModes(c.Properties())
	slog.Debug("[BLE] sending buffer",
		"bytes", len(data),
		"chunks", len(chunks),
		"uuid", ShortUUID(c.UUID()),
		"properties", c.Properties().String(),
	)

	start := time.Now()
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return chunkError(i, len(chunks), err)
		}

		used, err := writeChunk(c, chunk, modes)
		if err != nil {
			slog.Error("[BLE] chunk write failed", "chunk", i, "chunks", len(chunks), "error", err)
			return chunkError(i, len(chunks), err)
		}
		// Once a mode works, stop probing the other one.
		modes = modes[used : used+1]

		// Small delay between chunks to avoid overrunning the printer's input buffer
		if i < len(chunks)-1 {
			if err := sleepCtx(ctx, t.opts.ChunkDelay); err != nil {
				return chunkError(i+1, len(chunks), err)
			}
		}
	}

	slog.Info("[BLE] buffer sent", "bytes", len(data), "chunks", len(chunks), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// writeModes lists the withResponse values to try, preferred first.
// Unacknowledged writes avoid a round trip per chunk. When the
// characteristic advertises neither mode both are attempted.
func writeModes(p Property) []bool {
	var modes []bool
	if p&PropWriteWithoutResponse != 0 {
		modes = append(modes, false)
	}
	if p&PropWrite != 0 {
		modes = append(modes, true)
	}
	if len(modes) == 0 {
		modes = []bool{false, true}
	}
	return modes
}

// writeChunk tries each mode in turn and returns the index of the one that
// succeeded.
func writeChunk(c Characteristic, chunk []byte, modes []bool) (int, error) {
	var err error
	for i, withResponse := range modes {
		if err = c.Write(chunk, withResponse); err == nil {
			return i, nil
		}
		if i < len(modes)-1 {
			slog.Debug("[BLE] write mode rejected, trying next", "with_response", withResponse, "error", err)
		}
	}
	return 0, err
}

func chunkError(i, n int, err error) error {
	return &Error{
		Kind:   KindChunkTransmission,
		Detail: fmt.Sprintf("chunk %d of %d", i, n),
		Chunk:  i,
		Err:    err,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
