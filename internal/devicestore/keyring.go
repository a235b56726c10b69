package devicestore

import (
	"errors"
	"fmt"

	"github.com/99designs/keyring"
	"gopkg.in/yaml.v3"
)

const (
	keyringServiceName = "blepos"
	keyringRecordKey   = "last-device"
)

// KeyringStore keeps the record in the OS credential store.
type KeyringStore struct {
	kr keyring.Keyring
}

// OpenKeyringStore opens the platform keyring.
func OpenKeyringStore() (*KeyringStore, error) {
	kr, err := keyring.Open(keyring.Config{
		ServiceName:              keyringServiceName,
		KeychainTrustApplication: true,
		KeyCtlScope:              "user",
	})
	if err != nil {
		return nil, fmt.Errorf("devicestore: opening keyring: %w", err)
	}
	return NewKeyringStore(kr), nil
}

// NewKeyringStore wraps an already opened keyring.
func NewKeyringStore(kr keyring.Keyring) *KeyringStore {
	return &KeyringStore{kr: kr}
}

func (s *KeyringStore) Get() (*Record, error) {
	item, err := s.kr.Get(keyringRecordKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("devicestore: loading record: %w", err)
	}

	var rec Record
	if err := yaml.Unmarshal(item.Data, &rec); err != nil {
		return nil, fmt.Errorf("devicestore: parsing record: %w", err)
	}
	return &rec, nil
}

func (s *KeyringStore) Put(rec Record) error {
	data, err := yaml.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("devicestore: encoding record: %w", err)
	}
	if err := s.kr.Set(keyring.Item{
		Key:         keyringRecordKey,
		Data:        data,
		Label:       "blepos printer",
		Description: "last connected receipt printer",
	}); err != nil {
		return fmt.Errorf("devicestore: saving record: %w", err)
	}
	return nil
}

func (s *KeyringStore) Clear() error {
	err := s.kr.Remove(keyringRecordKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("devicestore: removing record: %w", err)
	}
	return nil
}
