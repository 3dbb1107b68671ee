package cryptox

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/nestclip/nestclip/internal/common"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// Direct-message frames: [version byte][24-byte nonce][ciphertext‖tag].
// Gift-wrap frames add the sender's ephemeral public key after the version
// byte so the recipient can derive the message key without knowing the
// sender: [version byte][32-byte ephemeral pub][24-byte nonce][ciphertext‖tag].
//
// The version byte lets future frames evolve the format; readers reject
// unknown versions and under-length frames before attempting decryption.

const frameVersion byte = 0x01

const (
	dmInfo   = "nestclip/v1/direct-message"
	giftInfo = "nestclip/v1/gift-wrap"
)

const (
	minDirectFrame = 1 + NonceSizeX + TagSize
	minGiftFrame   = 1 + KeySize + NonceSizeX + TagSize
)

func deriveMessageKey(shared []byte, info string) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return key, nil
}

// conversationKey derives the symmetric message key shared by a key pair and
// a peer public key. ECDH is commutative, so sender and recipient arrive at
// the same key from opposite ends.
func conversationKey(priv, peerPub []byte, info string) ([]byte, error) {
	if len(priv) != KeySize {
		return nil, common.ErrInvalidKeyLength
	}
	if len(peerPub) != KeySize {
		return nil, common.ErrInvalidRecipientKey
	}
	shared, err := curve25519.X25519(priv, peerPub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidRecipientKey, err)
	}
	defer common.WipeBytes(shared)
	return deriveMessageKey(shared, info)
}

// EncryptDirect encrypts a one-to-one payload from the sender's static
// agreement key to the recipient.
func EncryptDirect(plaintext, senderPriv, recipientPub []byte) ([]byte, error) {
	key, err := conversationKey(senderPriv, recipientPub, dmInfo)
	if err != nil {
		return nil, err
	}
	defer common.WipeBytes(key)

	nonce, err := GenerateNonce(NonceSizeX)
	if err != nil {
		return nil, err
	}
	sealed, err := sealX(key, nonce, plaintext)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, 0, 1+NonceSizeX+len(sealed))
	frame = append(frame, frameVersion)
	frame = append(frame, nonce...)
	frame = append(frame, sealed...)
	return frame, nil
}

// DecryptDirect opens a direct-message frame addressed to recipientPriv from
// senderPub.
func DecryptDirect(frame, recipientPriv, senderPub []byte) ([]byte, error) {
	if len(frame) < minDirectFrame {
		return nil, common.ErrInvalidFrame
	}
	if frame[0] != frameVersion {
		return nil, common.ErrInvalidFrame
	}

	key, err := conversationKey(recipientPriv, senderPub, dmInfo)
	if err != nil {
		return nil, err
	}
	defer common.WipeBytes(key)

	return openX(key, frame[1:1+NonceSizeX], frame[1+NonceSizeX:])
}

// GiftWrap encrypts a payload to recipientPub under a single-use ephemeral
// key, used to deliver group welcomes without tying them to the sender's
// static identity.
func GiftWrap(plaintext, recipientPub []byte) ([]byte, error) {
	ephPub, ephPriv, err := GenerateAgreementKeyPair()
	if err != nil {
		return nil, err
	}
	defer common.WipeBytes(ephPriv)

	key, err := conversationKey(ephPriv, recipientPub, giftInfo)
	if err != nil {
		return nil, err
	}
	defer common.WipeBytes(key)

	nonce, err := GenerateNonce(NonceSizeX)
	if err != nil {
		return nil, err
	}
	sealed, err := sealX(key, nonce, plaintext)
	if err != nil {
		return nil, err
	}

	frame := make([]byte, 0, 1+KeySize+NonceSizeX+len(sealed))
	frame = append(frame, frameVersion)
	frame = append(frame, ephPub...)
	frame = append(frame, nonce...)
	frame = append(frame, sealed...)
	return frame, nil
}

// OpenGift opens a gift-wrapped frame with the recipient's private key.
func OpenGift(frame, recipientPriv []byte) ([]byte, error) {
	if len(frame) < minGiftFrame {
		return nil, common.ErrInvalidFrame
	}
	if frame[0] != frameVersion {
		return nil, common.ErrInvalidFrame
	}

	ephPub := frame[1 : 1+KeySize]
	key, err := conversationKey(recipientPriv, ephPub, giftInfo)
	if err != nil {
		return nil, err
	}
	defer common.WipeBytes(key)

	off := 1 + KeySize
	return openX(key, frame[off:off+NonceSizeX], frame[off+NonceSizeX:])
}
