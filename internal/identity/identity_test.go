package identity

import (
	"crypto/ed25519"
	"encoding/hex"
	"testing"

	"github.com/nestclip/nestclip/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParentIdentity_ExactlyOnce(t *testing.T) {
	s := NewStore(NewMemoryKeychain())

	p, err := s.GenerateParentIdentity()
	require.NoError(t, err)
	require.Len(t, p.PublicKey, 32)
	require.False(t, p.CreatedAt.IsZero())

	_, err = s.GenerateParentIdentity()
	assert.ErrorIs(t, err, common.ErrParentIdentityExists)
}

func TestParentIdentity_RoundTripsThroughKeychain(t *testing.T) {
	s := NewStore(NewMemoryKeychain())

	_, err := s.ParentIdentity()
	assert.ErrorIs(t, err, common.ErrParentIdentityMissing)

	generated, err := s.GenerateParentIdentity()
	require.NoError(t, err)

	loaded, err := s.ParentIdentity()
	require.NoError(t, err)
	assert.Equal(t, generated.PublicKey, loaded.PublicKey)
	assert.Equal(t, generated.PrivateKey, loaded.PrivateKey)
	assert.Equal(t, generated.CreatedAt.Unix(), loaded.CreatedAt.Unix())
}

func TestImportParentIdentity_Bech32AndHex(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	want := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)

	encoded, err := EncodeSecret(seed)
	require.NoError(t, err)

	s1 := NewStore(NewMemoryKeychain())
	p1, err := s1.ImportParentIdentity(encoded)
	require.NoError(t, err)
	assert.Equal(t, []byte(want), p1.PublicKey)

	s2 := NewStore(NewMemoryKeychain())
	p2, err := s2.ImportParentIdentity(hex.EncodeToString(seed))
	require.NoError(t, err)
	assert.Equal(t, []byte(want), p2.PublicKey)
}

func TestImportParentIdentity_RejectsGarbage(t *testing.T) {
	s := NewStore(NewMemoryKeychain())
	_, err := s.ImportParentIdentity("not-a-secret")
	assert.ErrorIs(t, err, common.ErrInvalidSecretEncoding)
}

func TestParentWrapKeyPair_LazyAndDistinctFromSigning(t *testing.T) {
	s := NewStore(NewMemoryKeychain())

	// wrap key requires the signing identity first
	_, err := s.ParentWrapKeyPair()
	assert.ErrorIs(t, err, common.ErrParentIdentityMissing)

	parent, err := s.GenerateParentIdentity()
	require.NoError(t, err)

	wrap, err := s.ParentWrapKeyPair()
	require.NoError(t, err)
	require.Len(t, wrap.PublicKey, 32)
	require.Len(t, wrap.PrivateKey, 32)
	assert.NotEqual(t, parent.PublicKey, wrap.PublicKey)

	// lazily created once, stable afterwards
	again, err := s.ParentWrapKeyPair()
	require.NoError(t, err)
	assert.Equal(t, wrap.PublicKey, again.PublicKey)
	assert.Equal(t, wrap.PrivateKey, again.PrivateKey)
}

func TestChildIdentity_StableAndDistinct(t *testing.T) {
	a := ChildIdentity("profile-a")
	b := ChildIdentity("profile-a")
	c := ChildIdentity("profile-b")

	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
	assert.Equal(t, a.ID, CanonicalID(a.ID), "derived ids are already canonical")
	assert.Len(t, a.ID, 64)
}

func TestBech32_RoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(255 - i)
	}

	sec, err := EncodeSecret(key)
	require.NoError(t, err)
	assert.Contains(t, sec, "nestsec1")
	back, err := DecodeSecret(sec)
	require.NoError(t, err)
	assert.Equal(t, key, back)

	pub, err := EncodePublic(key)
	require.NoError(t, err)
	assert.Contains(t, pub, "nestpub1")
	backPub, err := DecodePublic(pub)
	require.NoError(t, err)
	assert.Equal(t, key, backPub)

	// wrong HRP is rejected
	_, err = DecodeSecret(pub)
	assert.ErrorIs(t, err, common.ErrInvalidSecretEncoding)
}
