package ble

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// bluetoothBase is the Bluetooth SIG base UUID that 16- and 32-bit short
// UUIDs expand into.
const bluetoothBase = "-0000-1000-8000-00805f9b34fb"

// NormalizeUUID returns the lowercase, dashed 128-bit form of a service or
// characteristic UUID. Short forms ("18f0", "0x18F0", "000018f0") expand
// against the Bluetooth base UUID. 128-bit forms are accepted with or
// without dashes.
func NormalizeUUID(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "0x")

	switch len(s) {
	case 4, 8:
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return "", fmt.Errorf("ble: invalid short uuid %q: %w", s, err)
		}
		return fmt.Sprintf("%08x%s", v, bluetoothBase), nil
	}

	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("ble: invalid uuid %q: %w", s, err)
	}
	return u.String(), nil
}

// mustNormalize is for compile-time constants only.
func mustNormalize(s string) string {
	n, err := NormalizeUUID(s)
	if err != nil {
		panic(err)
	}
	return n
}

// ShortUUID returns the 16-bit form for SIG-assigned UUIDs and the full
// string otherwise. Used for log output.
func ShortUUID(full string) string {
	if len(full) == 36 && strings.HasSuffix(full, bluetoothBase) && strings.HasPrefix(full, "0000") {
		return full[4:8]
	}
	return full
}
