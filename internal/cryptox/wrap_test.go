package cryptox

import (
	"testing"

	"github.com/nestclip/nestclip/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapUnwrapMediaKey_RoundTrip(t *testing.T) {
	pub, priv, err := GenerateAgreementKeyPair()
	require.NoError(t, err)

	mediaKey := randBytes(t, KeySize)

	wk, err := WrapMediaKey(mediaKey, pub)
	require.NoError(t, err)

	assert.Equal(t, AlgorithmKeyWrap, wk.Algorithm)
	assert.Len(t, wk.EphemeralPub, KeySize)
	assert.Len(t, wk.Salt, SaltSize)
	assert.Len(t, wk.Nonce, NonceSize)

	got, err := UnwrapMediaKey(wk, priv)
	require.NoError(t, err)
	assert.Equal(t, mediaKey, got)
}

func TestWrapMediaKey_FreshEphemeralAndSaltPerWrap(t *testing.T) {
	pub, _, err := GenerateAgreementKeyPair()
	require.NoError(t, err)
	mediaKey := randBytes(t, KeySize)

	a, err := WrapMediaKey(mediaKey, pub)
	require.NoError(t, err)
	b, err := WrapMediaKey(mediaKey, pub)
	require.NoError(t, err)

	assert.NotEqual(t, a.EphemeralPub, b.EphemeralPub)
	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestUnwrapMediaKey_WrongPrivateKeyFails(t *testing.T) {
	pub, _, err := GenerateAgreementKeyPair()
	require.NoError(t, err)
	_, otherPriv, err := GenerateAgreementKeyPair()
	require.NoError(t, err)

	wk, err := WrapMediaKey(randBytes(t, KeySize), pub)
	require.NoError(t, err)

	_, err = UnwrapMediaKey(wk, otherPriv)
	assert.ErrorIs(t, err, common.ErrDecryptionFailed)
}

func TestUnwrapMediaKey_AlgorithmMismatchBeforeCrypto(t *testing.T) {
	pub, priv, err := GenerateAgreementKeyPair()
	require.NoError(t, err)

	wk, err := WrapMediaKey(randBytes(t, KeySize), pub)
	require.NoError(t, err)
	wk.Algorithm = "rsa-oaep"

	_, err = UnwrapMediaKey(wk, priv)
	assert.ErrorIs(t, err, common.ErrUnsupportedAlgorithm)
}

func TestUnwrapMediaKey_MalformedEnvelope(t *testing.T) {
	pub, priv, err := GenerateAgreementKeyPair()
	require.NoError(t, err)

	wk, err := WrapMediaKey(randBytes(t, KeySize), pub)
	require.NoError(t, err)
	wk.Salt = wk.Salt[:16]

	_, err = UnwrapMediaKey(wk, priv)
	assert.ErrorIs(t, err, common.ErrInvalidEnvelope)
}

func TestWrapMediaKey_RejectsBadInputs(t *testing.T) {
	pub, _, err := GenerateAgreementKeyPair()
	require.NoError(t, err)

	_, err = WrapMediaKey(make([]byte, 16), pub)
	assert.ErrorIs(t, err, common.ErrInvalidKeyLength)

	_, err = WrapMediaKey(randBytes(t, KeySize), make([]byte, 31))
	assert.ErrorIs(t, err, common.ErrInvalidRecipientKey)
}
