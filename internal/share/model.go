package share

import "time"

// LifecycleStatus is the recipient-side projection of one shared video.
type LifecycleStatus string

const (
	StatusAvailable   LifecycleStatus = "available"
	StatusDownloading LifecycleStatus = "downloading"
	StatusDownloaded  LifecycleStatus = "downloaded"
	StatusFailed      LifecycleStatus = "failed"
	StatusReported    LifecycleStatus = "reported"
	StatusBlocked     LifecycleStatus = "blocked"
	StatusRevoked     LifecycleStatus = "revoked"
	StatusDeleted     LifecycleStatus = "deleted"
)

// rank orders the lifecycle. Transitions only move forward; failed sits on
// the downloading tier so a retry may re-enter downloading.
func (s LifecycleStatus) rank() int {
	switch s {
	case StatusAvailable:
		return 1
	case StatusDownloading, StatusFailed:
		return 2
	case StatusDownloaded:
		return 3
	case StatusReported, StatusBlocked:
		return 4
	case StatusRevoked, StatusDeleted:
		return 5
	}
	return 0
}

// Terminal reports whether no further download activity is allowed.
func (s LifecycleStatus) Terminal() bool {
	return s.rank() >= StatusReported.rank()
}

// RemoteVideo is the persisted projection of a video shared with this
// household. MetadataJSON keeps the raw share message for replay/audit.
type RemoteVideo struct {
	VideoID       string
	OwnerID       string
	GroupID       string
	Status        LifecycleStatus
	MediaPath     string
	ThumbnailPath string
	LastSyncedAt  time.Time
	MetadataJSON  string
	LastError     string
}

// Advance applies an incoming lifecycle status and reports whether the record
// changed. Same-status application is a no-op; backward transitions are
// ignored, which makes replayed protocol events idempotent.
func (v *RemoteVideo) Advance(incoming LifecycleStatus) bool {
	if incoming == v.Status || incoming.rank() < v.Status.rank() {
		return false
	}
	v.Status = incoming
	return true
}

// Message decodes the stored share message.
func (v *RemoteVideo) Message() (*ShareMessage, error) {
	return DecodeMessage([]byte(v.MetadataJSON))
}

// ShareStatus is the sender-side approval state for one local video.
type ShareStatus string

const (
	SharePendingApproval ShareStatus = "pending_approval"
	ShareApproved        ShareStatus = "approved"
	ShareShared          ShareStatus = "shared"
	ShareRejected        ShareStatus = "rejected"
)

// ShareState is the persisted sender-side record: which of the household's
// own videos are cleared for publishing, and whether they went out.
type ShareState struct {
	VideoID   string
	ProfileID string
	Status    ShareStatus
	UpdatedAt time.Time
	LastError string
}
