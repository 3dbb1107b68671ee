// Package relationship tracks the bidirectional follow handshake between two
// households' child profiles. Approval is asynchronous — each side's parent
// acts independently and messages can arrive out of order or replayed — so
// state converges via a monotonic OR-merge, with revoke/block as an
// authoritative hard reset.
package relationship

import (
	"fmt"
	"strings"
	"time"

	"github.com/nestclip/nestclip/internal/common"
	"github.com/nestclip/nestclip/internal/identity"
)

// Status of a follow relationship.
type Status string

const (
	StatusUnknown Status = "unknown"
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	StatusBlocked Status = "blocked"
)

// informative reports whether s carries signal worth adopting over an
// uninitialized record.
func (s Status) informative() bool {
	switch s {
	case StatusPending, StatusActive, StatusRevoked, StatusBlocked:
		return true
	}
	return false
}

// Relationship is the persisted state for a directed (follower, target)
// child pair. Records are soft state: never hard-deleted.
type Relationship struct {
	FollowerID   string // canonical lowercase hex child pseudo-id
	TargetID     string
	ApprovedFrom bool // set by the follower household's parent
	ApprovedTo   bool // set by the target household's parent
	Status       Status
	RequestedBy  string   // parent key that initiated the follow
	Participants []string // parent public keys, hex; grows as a set
	GroupID      string   // messaging group, once provisioned
	UpdatedAt    time.Time
}

// HasParticipant reports whether key is already in the participant set.
func (r *Relationship) HasParticipant(key string) bool {
	key = identity.CanonicalID(key)
	for _, p := range r.Participants {
		if p == key {
			return true
		}
	}
	return false
}

// FollowMessage is one follow/approval/revocation event, inbound or outbound.
type FollowMessage struct {
	FollowerID      string    `json:"follower_id"`
	TargetID        string    `json:"target_id"`
	ApprovedFrom    bool      `json:"approved_from"`
	ApprovedTo      bool      `json:"approved_to"`
	Status          Status    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
	ActingParentKey string    `json:"acting_parent_key"`
}

// Pointer identifies a relationship record as "<followerID>/<targetID>".
type Pointer struct {
	FollowerID string
	TargetID   string
}

// ParsePointer splits a follow pointer identifier, canonicalizing both sides.
func ParsePointer(s string) (Pointer, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pointer{}, fmt.Errorf("%w: %q", common.ErrInvalidPointer, s)
	}
	return Pointer{
		FollowerID: identity.CanonicalID(parts[0]),
		TargetID:   identity.CanonicalID(parts[1]),
	}, nil
}

func (p Pointer) String() string {
	return p.FollowerID + "/" + p.TargetID
}
