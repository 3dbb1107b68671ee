package cryptox

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/chacha20"
)

// Vector from the IETF XChaCha draft (HChaCha20 test vector).
func TestHChaCha20_KnownVector(t *testing.T) {
	key, err := hex.DecodeString("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	require.NoError(t, err)
	nonce, err := hex.DecodeString("000000090000004a0000000031415927")
	require.NoError(t, err)

	got, err := hChaCha20(key, nonce)
	require.NoError(t, err)

	want := "82413b4227b27bfed30e42508a877d73a0f9e4d58185d47ba14dbb2886b98fa8"
	assert.Equal(t, want, hex.EncodeToString(got))
}

// The core must match the independent x/crypto implementation bit-for-bit:
// other implementations of the extended-nonce scheme depend on it.
func TestHChaCha20_MatchesReferenceImplementation(t *testing.T) {
	for i := 0; i < 100; i++ {
		key := make([]byte, KeySize)
		nonce := make([]byte, 16)
		_, err := rand.Read(key)
		require.NoError(t, err)
		_, err = rand.Read(nonce)
		require.NoError(t, err)

		ours, err := hChaCha20(key, nonce)
		require.NoError(t, err)

		ref, err := chacha20.HChaCha20(key, nonce)
		require.NoError(t, err)

		require.Equal(t, ref, ours)
	}
}

func TestHChaCha20_RejectsBadLengths(t *testing.T) {
	_, err := hChaCha20(make([]byte, 16), make([]byte, 16))
	assert.Error(t, err)

	_, err = hChaCha20(make([]byte, KeySize), make([]byte, 12))
	assert.Error(t, err)
}
