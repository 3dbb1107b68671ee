package identity

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nestclip/nestclip/internal/common"
	"github.com/nestclip/nestclip/internal/cryptox"
)

const (
	accountParentSigning = "parent.signing"
	accountParentWrap    = "parent.wrap.x25519"
)

// Parent is the household's root-of-trust signing identity. Exactly one per
// installation. The 32-byte seed is what the keychain holds; the ed25519
// private key is expanded from it on load.
type Parent struct {
	PublicKey  []byte // 32 bytes
	PrivateKey ed25519.PrivateKey
	CreatedAt  time.Time
}

// WrapKeyPair is the X25519 key-agreement pair used only for wrapping media
// keys. Deliberately distinct material from the signing identity; the two are
// never interchanged.
type WrapKeyPair struct {
	PublicKey  []byte // 32 bytes
	PrivateKey []byte // 32 bytes
	CreatedAt  time.Time
}

// Child is a child profile's pseudo-identity: a stable identifier derived
// from the profile id. Children carry no key material of their own, so there
// is nothing here to sign or decrypt with.
type Child struct {
	ProfileID string
	ID        string // canonical lowercase hex
}

// Store implements key lifecycle policy over a Keychain collaborator.
type Store struct {
	kc Keychain
}

func NewStore(kc Keychain) *Store {
	return &Store{kc: kc}
}

// keychain record layout: seed/private scalar (32) ‖ big-endian unix seconds (8).
func encodeKeyRecord(seed []byte, created time.Time) []byte {
	out := make([]byte, 40)
	copy(out, seed)
	binary.BigEndian.PutUint64(out[32:], uint64(created.Unix()))
	return out
}

func decodeKeyRecord(rec []byte) ([]byte, time.Time, error) {
	if len(rec) != 40 {
		return nil, time.Time{}, fmt.Errorf("%w: bad key record length %d", common.ErrInvalidKeyLength, len(rec))
	}
	return rec[:32], time.Unix(int64(binary.BigEndian.Uint64(rec[32:])), 0).UTC(), nil
}

// ParentIdentity loads the household identity, or common.ErrParentIdentityMissing.
func (s *Store) ParentIdentity() (*Parent, error) {
	rec, err := s.kc.Fetch(accountParentSigning)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrParentIdentityMissing
		}
		return nil, fmt.Errorf("fetch parent identity: %w", err)
	}
	seed, created, err := decodeKeyRecord(rec)
	if err != nil {
		return nil, err
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Parent{
		PublicKey:  priv.Public().(ed25519.PublicKey),
		PrivateKey: priv,
		CreatedAt:  created,
	}, nil
}

// GenerateParentIdentity creates and persists the household identity.
// Exactly-once: fails with common.ErrParentIdentityExists if one is stored.
func (s *Store) GenerateParentIdentity() (*Parent, error) {
	if _, err := s.kc.Fetch(accountParentSigning); err == nil {
		return nil, common.ErrParentIdentityExists
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("check parent identity: %w", err)
	}

	seed, err := common.RandBytes(ed25519.SeedSize)
	if err != nil {
		return nil, err
	}
	return s.storeParentSeed(seed, time.Now().UTC())
}

// ImportParentIdentity restores a household identity from shared secret
// material: either the bech32 secret encoding or 64 hex characters.
func (s *Store) ImportParentIdentity(secret string) (*Parent, error) {
	if _, err := s.kc.Fetch(accountParentSigning); err == nil {
		return nil, common.ErrParentIdentityExists
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("check parent identity: %w", err)
	}

	var seed []byte
	switch {
	case strings.HasPrefix(secret, secretHRP+"1"):
		var err error
		seed, err = DecodeSecret(secret)
		if err != nil {
			return nil, err
		}
	default:
		b, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(secret)))
		if err != nil || len(b) != ed25519.SeedSize {
			return nil, common.ErrInvalidSecretEncoding
		}
		seed = b
	}
	return s.storeParentSeed(seed, time.Now().UTC())
}

func (s *Store) storeParentSeed(seed []byte, created time.Time) (*Parent, error) {
	if err := s.kc.Store(accountParentSigning, encodeKeyRecord(seed, created), true); err != nil {
		return nil, fmt.Errorf("store parent identity: %w", err)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Parent{
		PublicKey:  priv.Public().(ed25519.PublicKey),
		PrivateKey: priv,
		CreatedAt:  created,
	}, nil
}

// ParentWrapKeyPair returns the household's media-wrap key pair, creating it
// on first use. Requires the signing identity to exist first so imported
// households don't mint a wrap key before restore completes.
func (s *Store) ParentWrapKeyPair() (*WrapKeyPair, error) {
	if _, err := s.ParentIdentity(); err != nil {
		return nil, err
	}

	rec, err := s.kc.Fetch(accountParentWrap)
	if err == nil {
		priv, created, err := decodeKeyRecord(rec)
		if err != nil {
			return nil, err
		}
		pub, err := cryptox.AgreementPublicKey(priv)
		if err != nil {
			return nil, err
		}
		return &WrapKeyPair{PublicKey: pub, PrivateKey: priv, CreatedAt: created}, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("fetch wrap key: %w", err)
	}

	pub, priv, err := cryptox.GenerateAgreementKeyPair()
	if err != nil {
		return nil, err
	}
	created := time.Now().UTC()
	if err := s.kc.Store(accountParentWrap, encodeKeyRecord(priv, created), false); err != nil {
		return nil, fmt.Errorf("store wrap key: %w", err)
	}
	return &WrapKeyPair{PublicKey: pub, PrivateKey: priv, CreatedAt: created}, nil
}

const childIDDomain = "nestclip/v1/child-id"

// ChildIdentity derives the stable pseudo-identity for a child profile.
// Pure function of the profile id: always succeeds, never persists anything,
// and two profiles never share an id.
func ChildIdentity(profileID string) Child {
	h := sha256.Sum256([]byte(childIDDomain + ":" + profileID))
	return Child{ProfileID: profileID, ID: hex.EncodeToString(h[:])}
}

// CanonicalID lowercases a hex identifier so alternate encodings of the same
// key resolve to the same record.
func CanonicalID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
