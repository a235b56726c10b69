package ble

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: KindSelectionCancelled}, "ble: device selection cancelled"},
		{&Error{Kind: KindChunkTransmission, Detail: "chunk 3 of 9"}, "ble: chunk transmission failed: chunk 3 of 9"},
		{
			&Error{Kind: KindConnectionUnavailable, Detail: "scan", Err: errors.New("adapter off")},
			"ble: connection unavailable: scan: adapter off",
		},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	cause := errors.New("gatt: 0x0e")
	err := fmt.Errorf("print: %w", &Error{Kind: KindChunkTransmission, Chunk: 4, Err: cause})

	if !errors.Is(err, ErrChunkTransmission) {
		t.Error("errors.Is should match the sentinel of the same kind")
	}
	if errors.Is(err, ErrNoWritableCharacteristic) {
		t.Error("errors.Is should not match a different kind")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	if KindOf(err) != KindChunkTransmission {
		t.Errorf("KindOf() = %v", KindOf(err))
	}
}

func TestKindOfPlainError(t *testing.T) {
	if k := KindOf(errors.New("boom")); k != 0 {
		t.Errorf("KindOf(plain) = %v, want 0", k)
	}
	if IsRetryable(nil) {
		t.Error("nil should not be retryable")
	}
	if IsRetryable(ErrNoWritableCharacteristic) {
		t.Error("discovery failure should not be retryable")
	}
}

func TestKindString(t *testing.T) {
	if got := Kind(42).String(); got != "kind(42)" {
		t.Errorf("Kind(42).String() = %q", got)
	}
}
