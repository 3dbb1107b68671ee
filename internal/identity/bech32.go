package identity

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/nestclip/nestclip/internal/common"
)

// Human-shareable key encodings. The secret form is what a parent types on a
// new device to restore the household identity; the public form is what
// families exchange to follow each other.
const (
	secretHRP = "nestsec"
	publicHRP = "nestpub"
)

func encode(hrp string, data []byte) (string, error) {
	conv, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert bits: %w", err)
	}
	return bech32.Encode(hrp, conv)
}

func decode(wantHRP, s string) ([]byte, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidSecretEncoding, err)
	}
	if hrp != wantHRP {
		return nil, common.ErrInvalidSecretEncoding
	}
	out, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidSecretEncoding, err)
	}
	if len(out) != 32 {
		return nil, common.ErrInvalidSecretEncoding
	}
	return out, nil
}

// EncodeSecret renders a 32-byte identity seed as a nestsec1... string.
func EncodeSecret(seed []byte) (string, error) {
	if len(seed) != 32 {
		return "", common.ErrInvalidKeyLength
	}
	return encode(secretHRP, seed)
}

// DecodeSecret parses a nestsec1... string back to the 32-byte seed.
func DecodeSecret(s string) ([]byte, error) {
	return decode(secretHRP, s)
}

// EncodePublic renders a 32-byte public key as a nestpub1... string.
func EncodePublic(pub []byte) (string, error) {
	if len(pub) != 32 {
		return "", common.ErrInvalidKeyLength
	}
	return encode(publicHRP, pub)
}

// DecodePublic parses a nestpub1... string back to the 32-byte public key.
func DecodePublic(s string) ([]byte, error) {
	return decode(publicHRP, s)
}
