// Package groups couples membership mutations against an external
// group-messaging engine with publication of the resulting protocol
// artifacts. The engine is treated as an opaque MLS-equivalent; this package
// never reimplements group key-schedule logic.
package groups

import "context"

// Group is the engine's view of one messaging group.
type Group struct {
	ID      string
	Name    string
	Epoch   uint64
	Members []string
	Admins  []string
}

// KeyPackage is a prospective member's join material, opaque to this package.
type KeyPackage struct {
	OwnerKey string
	Data     []byte
}

// Commit is an evolution event produced by a membership mutation. Payload is
// already encrypted by the engine and goes on the wire as-is.
type Commit struct {
	GroupID string
	Epoch   uint64
	Payload []byte
}

// Welcome is a per-recipient invitation artifact. RecipientKey is the new
// member's hex-encoded X25519 public key; Payload is gift-wrapped to it
// before publication so relays never see the group's join secrets.
type Welcome struct {
	RecipientKey string
	Payload      []byte
}

// Result is the engine's interpretation of one inbound group event.
type Result struct {
	GroupID     string
	Epoch       uint64
	Application []byte
}

// Engine is the external group-messaging engine contract.
type Engine interface {
	CreateGroup(ctx context.Context, creator string, memberKeyPackages []KeyPackage, name string, admins []string) (Group, []Welcome, error)
	AddMembers(ctx context.Context, groupID string, keyPackages []KeyPackage) (Commit, []Welcome, error)
	RemoveMembers(ctx context.Context, groupID string, memberKeys []string) (Commit, error)
	ProcessWelcome(ctx context.Context, welcome []byte) (Group, error)
	ProcessMessage(ctx context.Context, eventJSON []byte) (Result, error)
	MergePendingCommit(ctx context.Context, groupID string) error
	CreateMessage(ctx context.Context, groupID string, payload []byte) ([]byte, error)
}
