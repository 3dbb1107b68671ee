package cryptox

import (
	"testing"

	"github.com/nestclip/nestclip/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectMessage_RoundTripBothDirections(t *testing.T) {
	alicePub, alicePriv, err := GenerateAgreementKeyPair()
	require.NoError(t, err)
	bobPub, bobPriv, err := GenerateAgreementKeyPair()
	require.NoError(t, err)

	msg := []byte(`{"type":"follow-request"}`)

	frame, err := EncryptDirect(msg, alicePriv, bobPub)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), frame[0])

	got, err := DecryptDirect(frame, bobPriv, alicePub)
	require.NoError(t, err)
	assert.Equal(t, msg, got)

	// reply direction uses the same conversation key
	reply, err := EncryptDirect([]byte("approved"), bobPriv, alicePub)
	require.NoError(t, err)
	gotReply, err := DecryptDirect(reply, alicePriv, bobPub)
	require.NoError(t, err)
	assert.Equal(t, []byte("approved"), gotReply)
}

func TestDecryptDirect_RejectsBadFramesBeforeCrypto(t *testing.T) {
	alicePub, _, err := GenerateAgreementKeyPair()
	require.NoError(t, err)
	_, bobPriv, err := GenerateAgreementKeyPair()
	require.NoError(t, err)

	// under-length
	_, err = DecryptDirect(make([]byte, minDirectFrame-1), bobPriv, alicePub)
	assert.ErrorIs(t, err, common.ErrInvalidFrame)

	// unknown version byte
	frame := make([]byte, minDirectFrame)
	frame[0] = 0x7f
	_, err = DecryptDirect(frame, bobPriv, alicePub)
	assert.ErrorIs(t, err, common.ErrInvalidFrame)
}

func TestDecryptDirect_TamperFails(t *testing.T) {
	alicePub, alicePriv, err := GenerateAgreementKeyPair()
	require.NoError(t, err)
	bobPub, bobPriv, err := GenerateAgreementKeyPair()
	require.NoError(t, err)

	frame, err := EncryptDirect([]byte("hello"), alicePriv, bobPub)
	require.NoError(t, err)

	frame[len(frame)-1] ^= 0x01
	_, err = DecryptDirect(frame, bobPriv, alicePub)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestGiftWrap_RoundTrip(t *testing.T) {
	pub, priv, err := GenerateAgreementKeyPair()
	require.NoError(t, err)

	welcome := []byte(`{"welcome":"mls-artifact"}`)
	frame, err := GiftWrap(welcome, pub)
	require.NoError(t, err)

	got, err := OpenGift(frame, priv)
	require.NoError(t, err)
	assert.Equal(t, welcome, got)
}

func TestGiftWrap_DistinctFramesPerCall(t *testing.T) {
	pub, _, err := GenerateAgreementKeyPair()
	require.NoError(t, err)

	a, err := GiftWrap([]byte("w"), pub)
	require.NoError(t, err)
	b, err := GiftWrap([]byte("w"), pub)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpenGift_WrongRecipientFails(t *testing.T) {
	pub, _, err := GenerateAgreementKeyPair()
	require.NoError(t, err)
	_, otherPriv, err := GenerateAgreementKeyPair()
	require.NoError(t, err)

	frame, err := GiftWrap([]byte("w"), pub)
	require.NoError(t, err)

	_, err = OpenGift(frame, otherPriv)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestOpenGift_Underlength(t *testing.T) {
	_, priv, err := GenerateAgreementKeyPair()
	require.NoError(t, err)

	_, err = OpenGift(make([]byte, minGiftFrame-1), priv)
	assert.ErrorIs(t, err, common.ErrInvalidFrame)
}
