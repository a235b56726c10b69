package ble

import (
	"errors"
	"fmt"
)

// Kind classifies connection and print failures.
type Kind int

const (
	// KindConnectionUnavailable: no BLE support, or no device could be chosen
	// or reached. Recoverable by falling back to simulated mode.
	KindConnectionUnavailable Kind = iota + 1
	// KindSelectionCancelled: the user dismissed device selection.
	KindSelectionCancelled
	// KindNoWritableCharacteristic: discovery exhausted every tier. Terminal
	// for the session.
	KindNoWritableCharacteristic
	// KindChunkTransmission: a chunk write failed. Terminal for the current
	// print; the whole buffer may be resent.
	KindChunkTransmission
)

func (k Kind) String() string {
	switch k {
	case KindConnectionUnavailable:
		return "connection unavailable"
	case KindSelectionCancelled:
		return "device selection cancelled"
	case KindNoWritableCharacteristic:
		return "no writable characteristic found"
	case KindChunkTransmission:
		return "chunk transmission failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the structured failure returned by this package and by the
// printer connection manager.
type Error struct {
	Kind   Kind
	Detail string
	// Chunk is the failing chunk index for KindChunkTransmission.
	Chunk int
	// Inventory is the service/characteristic dump gathered when discovery
	// fails. Diagnostic only.
	Inventory []ServiceInfo
	Err       error
}

func (e *Error) Error() string {
	msg := "ble: " + e.Kind.String()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrConnectionUnavailable    = &Error{Kind: KindConnectionUnavailable}
	ErrSelectionCancelled       = &Error{Kind: KindSelectionCancelled}
	ErrNoWritableCharacteristic = &Error{Kind: KindNoWritableCharacteristic}
	ErrChunkTransmission        = &Error{Kind: KindChunkTransmission}
)

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsRetryable reports whether resending the whole buffer may succeed.
func IsRetryable(err error) bool {
	return KindOf(err) == KindChunkTransmission
}
