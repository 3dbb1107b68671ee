package cryptox

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/nestclip/nestclip/internal/common"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// AlgorithmKeyWrap identifies the key-wrap envelope construction.
const AlgorithmKeyWrap = "x25519-hkdf-chacha20poly1305"

const wrapInfo = "nestclip/v1/media-key-wrap"

// WrappedKey carries one media key encrypted to one recipient. Never reused
// across recipients: every wrap uses a fresh ephemeral key and salt.
type WrappedKey struct {
	Algorithm    string `json:"algorithm"`
	EphemeralPub []byte `json:"ephemeral_pub"` // 32 bytes
	Salt         []byte `json:"salt"`          // 32 bytes, fresh per wrap
	Nonce        []byte `json:"nonce"`         // 12 bytes
	Ciphertext   []byte `json:"ciphertext"`    // wrapped key ‖ tag
}

// deriveWrapKey runs HKDF-SHA256 over the ECDH shared secret.
func deriveWrapKey(shared, salt []byte) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, salt, []byte(wrapInfo)), key); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return key, nil
}

// WrapMediaKey encrypts mediaKey to recipientPub: fresh ephemeral X25519
// pair, ECDH, HKDF-SHA256 with a random 32-byte salt, then a
// ChaCha20-Poly1305 seal under a random 96-bit nonce.
func WrapMediaKey(mediaKey, recipientPub []byte) (*WrappedKey, error) {
	if len(mediaKey) != KeySize {
		return nil, common.ErrInvalidKeyLength
	}
	if len(recipientPub) != KeySize {
		return nil, common.ErrInvalidRecipientKey
	}

	ephPub, ephPriv, err := GenerateAgreementKeyPair()
	if err != nil {
		return nil, err
	}
	defer common.WipeBytes(ephPriv)

	shared, err := curve25519.X25519(ephPriv, recipientPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidRecipientKey, err)
	}
	defer common.WipeBytes(shared)

	salt, err := common.RandBytes(SaltSize)
	if err != nil {
		return nil, err
	}
	key, err := deriveWrapKey(shared, salt)
	if err != nil {
		return nil, err
	}
	defer common.WipeBytes(key)

	nonce, err := common.RandBytes(NonceSize)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, common.ErrAlgorithmUnavailable
	}

	return &WrappedKey{
		Algorithm:    AlgorithmKeyWrap,
		EphemeralPub: ephPub,
		Salt:         salt,
		Nonce:        nonce,
		Ciphertext:   aead.Seal(nil, nonce, mediaKey, nil),
	}, nil
}

// UnwrapMediaKey recovers the media key from a WrappedKey using the
// recipient's X25519 private key. The algorithm identifier is checked before
// any cryptographic work; a tag failure (wrong key, corrupted envelope)
// surfaces as common.ErrDecryptionFailed.
func UnwrapMediaKey(wk *WrappedKey, recipientPriv []byte) ([]byte, error) {
	if wk.Algorithm != AlgorithmKeyWrap {
		return nil, common.ErrUnsupportedAlgorithm
	}
	if len(wk.EphemeralPub) != KeySize || len(wk.Salt) != SaltSize || len(wk.Nonce) != NonceSize {
		return nil, common.ErrInvalidEnvelope
	}
	if len(recipientPriv) != KeySize {
		return nil, common.ErrInvalidKeyLength
	}

	shared, err := curve25519.X25519(recipientPriv, wk.EphemeralPub)
	if err != nil {
		return nil, common.ErrInvalidEnvelope
	}
	defer common.WipeBytes(shared)

	key, err := deriveWrapKey(shared, wk.Salt)
	if err != nil {
		return nil, err
	}
	defer common.WipeBytes(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, common.ErrAlgorithmUnavailable
	}
	mediaKey, err := aead.Open(nil, wk.Nonce, wk.Ciphertext, nil)
	if err != nil {
		return nil, common.ErrDecryptionFailed
	}
	return mediaKey, nil
}
