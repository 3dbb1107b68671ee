package relationship

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nestclip/nestclip/internal/common"
	"github.com/nestclip/nestclip/internal/dbx"
	"github.com/nestclip/nestclip/internal/identity"
	"github.com/nestclip/nestclip/internal/logging"
	"github.com/nestclip/nestclip/internal/syncx"
)

// Service applies follow messages to persisted relationship state. All
// mutations for one record run under a per-record lock and a transaction, so
// concurrent merges cannot lose updates (revoke in particular must see the
// actual latest state).
type Service struct {
	db      *sql.DB
	locks   *syncx.KeyedMutex
	limiter *RateLimiter
	log     logging.Logger
	now     func() time.Time
}

func NewService(db *sql.DB, limiter *RateLimiter, log logging.Logger) *Service {
	if log == nil {
		log = logging.Nop{}
	}
	return &Service{
		db:      db,
		locks:   syncx.NewKeyedMutex(),
		limiter: limiter,
		log:     log,
		now:     time.Now,
	}
}

// candidates returns the lookup forms for an id: canonical plus the
// raw-lowercased original, so legacy non-canonical records still match.
func candidates(raw string) []string {
	canon := identity.CanonicalID(raw)
	if canon == raw {
		return []string{canon}
	}
	return []string{canon, raw}
}

// Apply merges msg into the stored relationship and returns the resulting
// view. The merged view is returned even when nothing needed persisting.
func (s *Service) Apply(ctx context.Context, msg FollowMessage) (*Relationship, error) {
	p := Pointer{
		FollowerID: identity.CanonicalID(msg.FollowerID),
		TargetID:   identity.CanonicalID(msg.TargetID),
	}
	if p.FollowerID == "" || p.TargetID == "" {
		return nil, common.ErrInvalidPointer
	}

	s.locks.Lock(p.String())
	defer s.locks.Unlock(p.String())

	var merged *Relationship
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := NewSQLiteRepository(tx)

		existing, err := repo.FindByCandidates(ctx, candidates(msg.FollowerID), candidates(msg.TargetID))
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}

		var changed bool
		merged, changed = merge(existing, msg)
		if !changed {
			return nil
		}
		return repo.Upsert(ctx, merged)
	})
	if err != nil {
		return nil, fmt.Errorf("apply follow message: %w", err)
	}
	return merged, nil
}

// RequestFollow initiates a follow from the acting parent's child toward the
// target child. Rate-limited per acting identity.
func (s *Service) RequestFollow(ctx context.Context, followerID, targetID, actingParentKey string) (*Relationship, error) {
	if actingParentKey == "" {
		return nil, common.ErrInvalidRole
	}
	if s.limiter != nil && !s.limiter.Allow(identity.CanonicalID(actingParentKey)) {
		return nil, common.ErrRateLimited
	}

	return s.Apply(ctx, FollowMessage{
		FollowerID:      followerID,
		TargetID:        targetID,
		ApprovedFrom:    true,
		Status:          StatusPending,
		Timestamp:       s.now(),
		ActingParentKey: actingParentKey,
	})
}

// Approve records the target household's consent. The relationship must
// already exist, and the requesting parent cannot approve its own request.
func (s *Service) Approve(ctx context.Context, followerID, targetID, actingParentKey string) (*Relationship, error) {
	if actingParentKey == "" {
		return nil, common.ErrInvalidRole
	}

	p := Pointer{FollowerID: identity.CanonicalID(followerID), TargetID: identity.CanonicalID(targetID)}
	existing, err := NewSQLiteRepository(s.db).Get(ctx, p)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrRelationshipNotFound
		}
		return nil, err
	}
	if existing.RequestedBy != "" && existing.RequestedBy == identity.CanonicalID(actingParentKey) {
		return nil, common.ErrInvalidRole
	}

	return s.Apply(ctx, FollowMessage{
		FollowerID:      followerID,
		TargetID:        targetID,
		ApprovedTo:      true,
		Status:          StatusPending,
		Timestamp:       s.now(),
		ActingParentKey: actingParentKey,
	})
}

// Revoke withdraws the relationship: both approval flags reset, status
// becomes revoked.
func (s *Service) Revoke(ctx context.Context, followerID, targetID, actingParentKey string) (*Relationship, error) {
	return s.Apply(ctx, FollowMessage{
		FollowerID:      followerID,
		TargetID:        targetID,
		Status:          StatusRevoked,
		Timestamp:       s.now(),
		ActingParentKey: actingParentKey,
	})
}

// Block is Revoke with a block marker; blocked records stay blocked until an
// explicit new handshake.
func (s *Service) Block(ctx context.Context, followerID, targetID, actingParentKey string) (*Relationship, error) {
	return s.Apply(ctx, FollowMessage{
		FollowerID:      followerID,
		TargetID:        targetID,
		Status:          StatusBlocked,
		Timestamp:       s.now(),
		ActingParentKey: actingParentKey,
	})
}

// AttachGroup records the provisioned messaging group for the relationship.
func (s *Service) AttachGroup(ctx context.Context, pointer string, groupID string) error {
	p, err := ParsePointer(pointer)
	if err != nil {
		return err
	}

	s.locks.Lock(p.String())
	defer s.locks.Unlock(p.String())

	return NewSQLiteRepository(s.db).SetGroupID(ctx, p, groupID)
}

// Get returns the relationship at the pointer.
func (s *Service) Get(ctx context.Context, followerID, targetID string) (*Relationship, error) {
	p := Pointer{FollowerID: identity.CanonicalID(followerID), TargetID: identity.CanonicalID(targetID)}
	rel, err := NewSQLiteRepository(s.db).Get(ctx, p)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrRelationshipNotFound
	}
	return rel, err
}
