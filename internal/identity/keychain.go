// Package identity manages the household's long-lived key material: the
// parent signing identity, the separate key-agreement pair used for media-key
// wrapping, and the derived pseudo-identities of child profiles.
package identity

import (
	"encoding/hex"
	"errors"
	"sync"

	"github.com/nestclip/nestclip/internal/common"
	"github.com/zalando/go-keyring"
)

// Keychain is the secure key-storage collaborator. Implementations must keep
// key bytes out of ordinary persistence. Accounts are stable per-identity
// strings such as "parent.signing" and "parent.wrap.x25519".
type Keychain interface {
	// Store saves key bytes under account. requireExtraAuth asks the
	// platform for an additional presence check where supported;
	// implementations without that capability ignore it.
	Store(account string, key []byte, requireExtraAuth bool) error

	// Fetch returns the key bytes for account, or common.ErrNotFound.
	Fetch(account string) ([]byte, error)

	// Delete removes the key for account. Deleting a missing account is
	// not an error.
	Delete(account string) error
}

const keyringService = "nestclip"

// SystemKeychain stores keys in the platform keychain (macOS Keychain,
// libsecret, Windows Credential Manager) via go-keyring. Key bytes are hex
// encoded since the backend stores strings.
type SystemKeychain struct{}

func (SystemKeychain) Store(account string, key []byte, _ bool) error {
	return keyring.Set(keyringService, account, hex.EncodeToString(key))
}

func (SystemKeychain) Fetch(account string) ([]byte, error) {
	s, err := keyring.Get(keyringService, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return hex.DecodeString(s)
}

func (SystemKeychain) Delete(account string) error {
	err := keyring.Delete(keyringService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// MemoryKeychain is an in-process Keychain for tests.
type MemoryKeychain struct {
	mu   sync.Mutex
	keys map[string][]byte
}

func NewMemoryKeychain() *MemoryKeychain {
	return &MemoryKeychain{keys: make(map[string][]byte)}
}

func (m *MemoryKeychain) Store(account string, key []byte, _ bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(key))
	copy(cp, key)
	m.keys[account] = cp
	return nil
}

func (m *MemoryKeychain) Fetch(account string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.keys[account]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := make([]byte, len(key))
	copy(cp, key)
	return cp, nil
}

func (m *MemoryKeychain) Delete(account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, account)
	return nil
}
