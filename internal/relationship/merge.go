package relationship

import (
	"github.com/nestclip/nestclip/internal/identity"
)

// merge applies an incoming follow message to the existing record and reports
// whether the result needs persisting. existing may be nil for a first
// contact.
//
// Rules:
//   - revoked/blocked is a hard reset: approval flags become exactly the
//     message's flags and the status overrides. Deliberately not
//     timestamp-gated — an authoritative revoke short-circuits the
//     monotonicity below even against later-stamped replays.
//   - otherwise approvals accumulate with OR, making convergence
//     order-independent. Both flags true derives active, exactly one derives
//     pending; a message with neither only informs an unknown record.
//   - participant parent keys accumulate as a set and never shrink here.
func merge(existing *Relationship, msg FollowMessage) (*Relationship, bool) {
	out := &Relationship{
		FollowerID: identity.CanonicalID(msg.FollowerID),
		TargetID:   identity.CanonicalID(msg.TargetID),
		Status:     StatusUnknown,
	}
	if existing != nil {
		*out = *existing
		out.Participants = append([]string(nil), existing.Participants...)
	}

	prev := *out
	prevParticipants := len(out.Participants)

	if msg.Status == StatusRevoked || msg.Status == StatusBlocked {
		out.ApprovedFrom = msg.ApprovedFrom
		out.ApprovedTo = msg.ApprovedTo
		out.Status = msg.Status
	} else {
		out.ApprovedFrom = out.ApprovedFrom || msg.ApprovedFrom
		out.ApprovedTo = out.ApprovedTo || msg.ApprovedTo

		switch {
		case out.ApprovedFrom && out.ApprovedTo:
			out.Status = StatusActive
		case out.ApprovedFrom || out.ApprovedTo:
			out.Status = StatusPending
		case out.Status == StatusUnknown && msg.Status.informative():
			out.Status = msg.Status
		}
	}

	if msg.ActingParentKey != "" && !out.HasParticipant(msg.ActingParentKey) {
		out.Participants = append(out.Participants, identity.CanonicalID(msg.ActingParentKey))
	}
	if out.RequestedBy == "" && msg.ApprovedFrom && msg.ActingParentKey != "" {
		out.RequestedBy = identity.CanonicalID(msg.ActingParentKey)
	}

	changed := existing == nil ||
		prev.ApprovedFrom != out.ApprovedFrom ||
		prev.ApprovedTo != out.ApprovedTo ||
		prev.Status != out.Status ||
		prev.RequestedBy != out.RequestedBy ||
		prevParticipants != len(out.Participants)

	if changed || msg.Timestamp.After(out.UpdatedAt) {
		if msg.Timestamp.After(out.UpdatedAt) {
			out.UpdatedAt = msg.Timestamp
		}
		return out, true
	}
	return out, false
}
