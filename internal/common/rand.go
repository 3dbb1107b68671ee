package common

import (
	"crypto/rand"
	"fmt"
)

// RandBytes returns size cryptographically random bytes. It fails only if the
// platform RNG is unavailable, which is surfaced as ErrAlgorithmUnavailable.
func RandBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAlgorithmUnavailable, err)
	}
	return b, nil
}

// WipeBytes overwrites b with zeros. Used to scrub key material after use.
// A nil slice is a no-op.
func WipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
