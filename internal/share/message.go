// Package share implements the outbound media share pipeline, the
// recipient-side download pipeline, and the coordinator that drives a video
// from approval to a published share message.
package share

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nestclip/nestclip/internal/cryptox"
)

// Content types used for blob uploads. Encrypted media always goes up as a
// generic binary blob; object storage is never trusted with plaintext media.
const (
	MIMEEncryptedBlob = "application/octet-stream"
	MIMEThumbnailJPEG = "image/jpeg"
	MIMEVideoMP4      = "video/mp4"
)

// Visibility policies.
const (
	PolicyFollowers = "followers"
	PolicyHousehold = "household"
)

// BlobRef locates one uploaded blob in object storage.
type BlobRef struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	MIME   string `json:"mime"`
	Length int64  `json:"length"`
}

// Metadata is the shareable description of a video.
type Metadata struct {
	Title     string    `json:"title"`
	Duration  float64   `json:"duration_seconds"`
	CreatedAt time.Time `json:"created_at"`
}

// CryptoInfo carries what a recipient needs to decrypt the media blob.
// WrappedKey and DirectKey are mutually exclusive: DirectKey is the inline
// fallback for recipients without a published wrap key, protected only by the
// transport layer's own encryption.
type CryptoInfo struct {
	Algorithm  string              `json:"algorithm"`
	MediaNonce []byte              `json:"media_nonce"`
	WrappedKey *cryptox.WrappedKey `json:"wrapped_key,omitempty"`
	DirectKey  []byte              `json:"direct_key,omitempty"`
}

// Visibility scopes who may act on the share and until when.
type Visibility struct {
	Policy    string     `json:"policy"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// ShareMessage is the immutable payload of one share action. Recipients
// consume it to drive download and decryption.
type ShareMessage struct {
	VideoID      string     `json:"video_id"`
	OwnerID      string     `json:"owner_id"`
	Metadata     Metadata   `json:"metadata"`
	Media        BlobRef    `json:"media"`
	Thumbnail    BlobRef    `json:"thumbnail"`
	Crypto       CryptoInfo `json:"crypto"`
	Visibility   Visibility `json:"visibility"`
	PublisherKey string     `json:"publisher_key"`
	SharedAt     time.Time  `json:"shared_at"`
}

// EncodeMessage serializes a share message for an event payload.
func EncodeMessage(msg *ShareMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode share message: %w", err)
	}
	return data, nil
}

// DecodeMessage parses an event payload back into a share message.
func DecodeMessage(data []byte) (*ShareMessage, error) {
	var msg ShareMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode share message: %w", err)
	}
	return &msg, nil
}
