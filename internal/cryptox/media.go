// Package cryptox implements the envelope cryptography of the nestclip
// sharing protocol: authenticated encryption for media blobs, asymmetric
// key wrapping for multi-recipient key distribution, and encrypted
// one-to-one message frames.
package cryptox

import (
	"github.com/nestclip/nestclip/internal/common"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeySize is the length of media keys and derived symmetric keys.
	KeySize = 32
	// NonceSizeX is the extended media nonce: 16 bytes consumed by the
	// sub-derivation step, 8 bytes carried into the AEAD nonce.
	NonceSizeX = 24
	// NonceSize is the 96-bit AEAD nonce.
	NonceSize = 12
	// TagSize is the Poly1305 authentication tag.
	TagSize = 16
	// SaltSize is the HKDF salt used by the key-wrap envelope.
	SaltSize = 32
)

// AlgorithmMediaAEAD identifies the extended-nonce media cipher.
const AlgorithmMediaAEAD = "xchacha20poly1305"

// MediaEnvelope is the result of encrypting one media blob. Immutable once
// created; the nonce is random per encryption, which the 192-bit nonce
// budget makes collision-safe without a stateful counter.
type MediaEnvelope struct {
	Algorithm  string
	Nonce      []byte // NonceSizeX bytes
	Ciphertext []byte
	Tag        []byte // TagSize bytes
}

// GenerateMediaKey returns a fresh 32-byte media key.
func GenerateMediaKey() ([]byte, error) {
	return common.RandBytes(KeySize)
}

// GenerateNonce returns length random bytes from the cryptographic RNG.
func GenerateNonce(length int) ([]byte, error) {
	return common.RandBytes(length)
}

// aeadNonce builds the 12-byte AEAD nonce from the extended nonce tail:
// four zero bytes followed by nonce[16:24].
func aeadNonce(extended []byte) []byte {
	n := make([]byte, NonceSize)
	copy(n[4:], extended[16:NonceSizeX])
	return n
}

// sealX encrypts plaintext under key with a caller-supplied 24-byte nonce:
// sub-derive a key from nonce[:16], then run the 96-bit-nonce AEAD with the
// remaining 8 nonce bytes. Returns ciphertext‖tag.
func sealX(key, nonce, plaintext []byte) ([]byte, error) {
	subkey, err := hChaCha20(key, nonce[:16])
	if err != nil {
		return nil, err
	}
	defer common.WipeBytes(subkey)

	aead, err := chacha20poly1305.New(subkey)
	if err != nil {
		return nil, common.ErrAlgorithmUnavailable
	}
	return aead.Seal(nil, aeadNonce(nonce), plaintext, nil), nil
}

// openX is the inverse of sealX. sealed is ciphertext‖tag.
func openX(key, nonce, sealed []byte) ([]byte, error) {
	if len(nonce) != NonceSizeX {
		return nil, common.ErrInvalidNonceLength
	}
	subkey, err := hChaCha20(key, nonce[:16])
	if err != nil {
		return nil, err
	}
	defer common.WipeBytes(subkey)

	aead, err := chacha20poly1305.New(subkey)
	if err != nil {
		return nil, common.ErrAlgorithmUnavailable
	}
	plaintext, err := aead.Open(nil, aeadNonce(nonce), sealed, nil)
	if err != nil {
		// Tag mismatch, wrong key, or corrupted data. Terminal; no
		// partial plaintext is ever released.
		return nil, common.ErrDecryptionFailed
	}
	return plaintext, nil
}

// EncryptMedia encrypts plaintext under a 32-byte key with a fresh random
// extended nonce.
func EncryptMedia(plaintext, key []byte) (*MediaEnvelope, error) {
	nonce, err := GenerateNonce(NonceSizeX)
	if err != nil {
		return nil, err
	}
	sealed, err := sealX(key, nonce, plaintext)
	if err != nil {
		return nil, err
	}
	return &MediaEnvelope{
		Algorithm:  AlgorithmMediaAEAD,
		Nonce:      nonce,
		Ciphertext: sealed[:len(sealed)-TagSize],
		Tag:        sealed[len(sealed)-TagSize:],
	}, nil
}

// DecryptMedia is the exact inverse of EncryptMedia. It fails with
// common.ErrDecryptionFailed on any tag mismatch and with
// common.ErrUnsupportedAlgorithm if the envelope names a different cipher.
func DecryptMedia(env *MediaEnvelope, key []byte) ([]byte, error) {
	if env.Algorithm != AlgorithmMediaAEAD {
		return nil, common.ErrUnsupportedAlgorithm
	}
	if len(env.Tag) != TagSize {
		return nil, common.ErrDecryptionFailed
	}
	sealed := make([]byte, 0, len(env.Ciphertext)+TagSize)
	sealed = append(sealed, env.Ciphertext...)
	sealed = append(sealed, env.Tag...)
	return openX(key, env.Nonce, sealed)
}

// EncodeBlob lays an envelope out as nonce‖ciphertext‖tag, the format media
// blobs are uploaded in.
func EncodeBlob(env *MediaEnvelope) []byte {
	out := make([]byte, 0, len(env.Nonce)+len(env.Ciphertext)+len(env.Tag))
	out = append(out, env.Nonce...)
	out = append(out, env.Ciphertext...)
	out = append(out, env.Tag...)
	return out
}

// DecodeBlob splits a downloaded blob back into an envelope using the nonce
// length carried in share metadata and the fixed tag length.
func DecodeBlob(blob []byte, nonceLen int) (*MediaEnvelope, error) {
	if nonceLen != NonceSizeX {
		return nil, common.ErrInvalidNonceLength
	}
	if len(blob) < nonceLen+TagSize {
		return nil, common.ErrInvalidFrame
	}
	return &MediaEnvelope{
		Algorithm:  AlgorithmMediaAEAD,
		Nonce:      blob[:nonceLen],
		Ciphertext: blob[nonceLen : len(blob)-TagSize],
		Tag:        blob[len(blob)-TagSize:],
	}, nil
}
