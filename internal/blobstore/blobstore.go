// Package blobstore is the object-storage collaborator used for encrypted
// media blobs. The store is never trusted with plaintext: callers upload
// AEAD-sealed bytes under a generic binary content type.
package blobstore

import "context"

// Stored describes one uploaded object.
type Stored struct {
	Key    string
	URL    string
	Length int64
}

// ObjectStore is the upload/download contract.
type ObjectStore interface {
	// Upload stores data under the suggested key and returns the final
	// key plus an access URL.
	Upload(ctx context.Context, data []byte, contentType, key string) (Stored, error)

	// Download fetches the object at key, falling back to fetching
	// fallbackURL directly when the key lookup fails and a URL is given.
	Download(ctx context.Context, key, fallbackURL string) ([]byte, error)

	// ObjectURL returns a time-limited access URL for key.
	ObjectURL(ctx context.Context, key string) (string, error)
}
