// Package common defines shared constants and sentinel errors used across
// nestclip components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Cryptographic failures. Terminal for the operation that raised them;
	// never retried, never release partial plaintext.
	ErrDecryptionFailed      = errors.New("decryption failed")
	ErrUnsupportedAlgorithm  = errors.New("unsupported algorithm")
	ErrAlgorithmUnavailable  = errors.New("algorithm unavailable")
	ErrInvalidKeyLength      = errors.New("invalid key length")
	ErrInvalidNonceLength    = errors.New("invalid nonce length")
	ErrInvalidFrame          = errors.New("invalid message frame")
	ErrMediaDecryptionFailed = errors.New("media decryption failed")

	// Identity / configuration failures. User-actionable setup errors.
	ErrParentIdentityMissing = errors.New("parent identity missing")
	ErrParentIdentityExists  = errors.New("parent identity already exists")
	ErrWrapKeyMissing        = errors.New("wrap key missing")
	ErrInvalidRecipientKey   = errors.New("invalid recipient key")
	ErrInvalidSecretEncoding = errors.New("invalid secret encoding")

	// Transport / storage failures. Retryable by the coordinators.
	ErrRelayTimeout        = errors.New("relay publish timeout")
	ErrNoConnectedRelays   = errors.New("no connected relays")
	ErrUploadFailed        = errors.New("upload failed")
	ErrDownloadFailed      = errors.New("download failed")
	ErrCommitPublishFailed = errors.New("commit publish failed")

	// Protocol-state / domain failures. Not retried; require a new request.
	ErrNotFound             = errors.New("not found")
	ErrRelationshipNotFound = errors.New("relationship not found")
	ErrInvalidRole          = errors.New("invalid role for this action")
	ErrInvalidPointer       = errors.New("malformed follow pointer")
	ErrRateLimited          = errors.New("rate limited")
	ErrVideoRevoked         = errors.New("video revoked or deleted")
	ErrInvalidEnvelope      = errors.New("invalid crypto envelope")
	ErrFileMissing          = errors.New("source file missing")
	ErrThumbnailMissing     = errors.New("thumbnail missing")
	ErrGroupNotFound        = errors.New("group not provisioned")
)

// Retryable reports whether err belongs to the transport/storage class that
// the share coordinator may retry. Crypto, identity and protocol-state errors
// are never retryable.
func Retryable(err error) bool {
	return errors.Is(err, ErrRelayTimeout) ||
		errors.Is(err, ErrNoConnectedRelays) ||
		errors.Is(err, ErrUploadFailed) ||
		errors.Is(err, ErrDownloadFailed) ||
		errors.Is(err, ErrCommitPublishFailed) ||
		errors.Is(err, ErrGroupNotFound)
}
