package cryptox

import (
	"github.com/nestclip/nestclip/internal/common"
	"golang.org/x/crypto/curve25519"
)

// GenerateAgreementKeyPair returns a fresh X25519 key pair used for ECDH
// (key wrapping and message-key derivation), never for signing.
func GenerateAgreementKeyPair() (pub, priv []byte, err error) {
	priv, err = common.RandBytes(KeySize)
	if err != nil {
		return nil, nil, err
	}
	pub, err = curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, nil, err
	}
	return pub, priv, nil
}

// AgreementPublicKey derives the X25519 public key for a 32-byte private key.
func AgreementPublicKey(priv []byte) ([]byte, error) {
	if len(priv) != KeySize {
		return nil, common.ErrInvalidKeyLength
	}
	return curve25519.X25519(priv, curve25519.Basepoint)
}
