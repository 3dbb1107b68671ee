package relationship

import (
	"context"
)

// Repository describes persistence for relationship records.
// Implementations are typically backed by the local sqlite database.
type Repository interface {
	// FindByCandidates returns the record matching any (follower, target)
	// candidate pair, or common.ErrNotFound. Candidate sets let legacy
	// non-canonical records still match.
	FindByCandidates(ctx context.Context, followerCandidates, targetCandidates []string) (*Relationship, error)

	// Upsert inserts or replaces the record for (FollowerID, TargetID).
	Upsert(ctx context.Context, rel *Relationship) error

	// Get returns the record at the pointer, or common.ErrNotFound.
	Get(ctx context.Context, p Pointer) (*Relationship, error)

	// SetGroupID attaches a provisioned messaging group to the record.
	SetGroupID(ctx context.Context, p Pointer, groupID string) error

	// GetAllByStatus lists records in the given status.
	GetAllByStatus(ctx context.Context, status Status) ([]*Relationship, error)
}
