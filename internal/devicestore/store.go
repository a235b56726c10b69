// Package devicestore remembers the last printer that connected
// successfully. At most one record is stored; Put overwrites it.
package devicestore

import (
	"fmt"
	"time"
)

// Record identifies the last known good printer.
type Record struct {
	ID              string    `yaml:"id"`
	Name            string    `yaml:"name"`
	LastConnectedAt time.Time `yaml:"last_connected_at"`
}

// Store persists a single Record.
type Store interface {
	// Get returns nil, nil when nothing is stored.
	Get() (*Record, error)
	Put(Record) error
	Clear() error
}

// Backend names accepted by Open.
const (
	BackendFile    = "file"
	BackendKeyring = "keyring"
	BackendMemory  = "memory"
)

// Open returns the store for backend. path is used by the file backend only.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendFile, "":
		return NewFileStore(path), nil
	case BackendKeyring:
		return OpenKeyringStore()
	case BackendMemory:
		return &MemoryStore{}, nil
	default:
		return nil, fmt.Errorf("devicestore: unknown backend %q", backend)
	}
}

// MemoryStore keeps the record for the life of the process.
type MemoryStore struct {
	rec *Record
}

func (m *MemoryStore) Get() (*Record, error) {
	if m.rec == nil {
		return nil, nil
	}
	r := *m.rec
	return &r, nil
}

func (m *MemoryStore) Put(r Record) error {
	m.rec = &r
	return nil
}

func (m *MemoryStore) Clear() error {
	m.rec = nil
	return nil
}
