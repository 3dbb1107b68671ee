// Package transport is the relay collaborator: publish/subscribe of
// encrypted protocol events over a set of relay endpoints. Direct messages,
// group messages, commits and welcomes are all Publish calls; payloads are
// already encrypted by the caller.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a protocol event.
type Kind string

const (
	KindDirectShare  Kind = "direct-share"
	KindGroupMessage Kind = "group-message"
	KindGroupCommit  Kind = "group-commit"
	KindWelcome      Kind = "welcome"
	KindFollow       Kind = "follow"
)

// Event is one relay-borne protocol artifact. The id is unique per artifact,
// which makes republishing after a partial failure idempotent at the
// transport layer.
type Event struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	AuthorKey string            `json:"author_key"`
	CreatedAt time.Time         `json:"created_at"`
	Tags      map[string]string `json:"tags,omitempty"`
	Payload   []byte            `json:"payload"`
}

// NewEvent builds an event with a fresh unique id.
func NewEvent(kind Kind, authorKey string, payload []byte, tags map[string]string) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		AuthorKey: authorKey,
		CreatedAt: time.Now().UTC(),
		Tags:      tags,
		Payload:   payload,
	}
}

// Filter selects events from a subscription.
type Filter struct {
	Kinds   []Kind
	Authors []string
	Since   time.Time
}

// Match reports whether ev passes the filter.
func (f Filter) Match(ev Event) bool {
	if len(f.Kinds) > 0 {
		ok := false
		for _, k := range f.Kinds {
			if ev.Kind == k {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.Authors) > 0 {
		ok := false
		for _, a := range f.Authors {
			if ev.AuthorKey == a {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if !f.Since.IsZero() && ev.CreatedAt.Before(f.Since) {
		return false
	}
	return true
}
