package cryptox

import (
	"encoding/binary"
	"math/bits"

	"github.com/nestclip/nestclip/internal/common"
)

// The extended-nonce media cipher needs a key/nonce sub-derivation step: a
// 20-round ChaCha permutation over the key and the first 16 nonce bytes,
// keyed output taken from the first and last four state words. The routine is
// implemented here rather than pulled from a library because its bit-for-bit
// behavior is part of the wire contract; the tests pin it against an
// independent implementation.

const (
	// Constants "expand 32-byte k", little-endian.
	sigma0 = 0x61707865
	sigma1 = 0x3320646e
	sigma2 = 0x79622d32
	sigma3 = 0x6b206574
)

// quarterRound applies the ChaCha add-rotate-xor quarter round to state
// words a, b, c, d.
func quarterRound(x *[16]uint32, a, b, c, d int) {
	x[a] += x[b]
	x[d] ^= x[a]
	x[d] = bits.RotateLeft32(x[d], 16)

	x[c] += x[d]
	x[b] ^= x[c]
	x[b] = bits.RotateLeft32(x[b], 12)

	x[a] += x[b]
	x[d] ^= x[a]
	x[d] = bits.RotateLeft32(x[d], 8)

	x[c] += x[d]
	x[b] ^= x[c]
	x[b] = bits.RotateLeft32(x[b], 7)
}

// hChaCha20 derives a 32-byte subkey from a 32-byte key and a 16-byte nonce
// prefix: 10 double rounds (columns then diagonals) over the initialized
// state, output words 0..3 and 12..15 without the feed-forward addition.
func hChaCha20(key, nonce []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, common.ErrInvalidKeyLength
	}
	if len(nonce) != 16 {
		return nil, common.ErrInvalidNonceLength
	}

	var x [16]uint32
	x[0] = sigma0
	x[1] = sigma1
	x[2] = sigma2
	x[3] = sigma3
	for i := 0; i < 8; i++ {
		x[4+i] = binary.LittleEndian.Uint32(key[4*i:])
	}
	for i := 0; i < 4; i++ {
		x[12+i] = binary.LittleEndian.Uint32(nonce[4*i:])
	}

	for i := 0; i < 10; i++ {
		// column rounds
		quarterRound(&x, 0, 4, 8, 12)
		quarterRound(&x, 1, 5, 9, 13)
		quarterRound(&x, 2, 6, 10, 14)
		quarterRound(&x, 3, 7, 11, 15)
		// diagonal rounds
		quarterRound(&x, 0, 5, 10, 15)
		quarterRound(&x, 1, 6, 11, 12)
		quarterRound(&x, 2, 7, 8, 13)
		quarterRound(&x, 3, 4, 9, 14)
	}

	out := make([]byte, KeySize)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(out[4*i:], x[i])
	}
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint32(out[16+4*i:], x[12+i])
	}
	return out, nil
}
