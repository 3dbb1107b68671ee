package share

import "context"

// RemoteVideoRepository persists recipient-side video projections.
type RemoteVideoRepository interface {
	// Get returns the record for videoID, or common.ErrNotFound.
	Get(ctx context.Context, videoID string) (*RemoteVideo, error)

	// Upsert inserts or replaces the record.
	Upsert(ctx context.Context, v *RemoteVideo) error

	// ApplyLifecycle advances the record's status (forward-only, idempotent)
	// and returns the resulting view.
	ApplyLifecycle(ctx context.Context, videoID string, status LifecycleStatus) (*RemoteVideo, error)

	// SetPaths records local file locations after a successful download and
	// clears any prior error.
	SetPaths(ctx context.Context, videoID, mediaPath, thumbnailPath string) error

	// SetError records a failure reason alongside the failed status.
	SetError(ctx context.Context, videoID, reason string) error

	// GetAllByStatus lists records in the given lifecycle status.
	GetAllByStatus(ctx context.Context, status LifecycleStatus) ([]*RemoteVideo, error)
}

// ShareStateRepository persists sender-side approval state.
type ShareStateRepository interface {
	// Get returns the state for videoID, or common.ErrNotFound.
	Get(ctx context.Context, videoID string) (*ShareState, error)

	// Upsert inserts or replaces the state.
	Upsert(ctx context.Context, st *ShareState) error

	// SetStatus updates the status and error message for videoID.
	SetStatus(ctx context.Context, videoID string, status ShareStatus, lastError string) error

	// GetAllByStatus lists states in the given status.
	GetAllByStatus(ctx context.Context, status ShareStatus) ([]*ShareState, error)
}
