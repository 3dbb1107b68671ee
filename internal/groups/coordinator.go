package groups

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/nestclip/nestclip/internal/common"
	"github.com/nestclip/nestclip/internal/cryptox"
	"github.com/nestclip/nestclip/internal/logging"
	"github.com/nestclip/nestclip/internal/syncx"
	"github.com/nestclip/nestclip/internal/transport"
)

// EventKind classifies coordinator notifications.
type EventKind string

const (
	EventCreated        EventKind = "created"
	EventMembersAdded   EventKind = "members-added"
	EventMembersRemoved EventKind = "members-removed"
	EventJoined         EventKind = "joined"
	EventMessage        EventKind = "message"
)

// GroupEvent notifies observers (the video share coordinator among them) that
// a group changed, so shares pending on group provisioning can be retried.
type GroupEvent struct {
	Kind    EventKind
	GroupID string
	Epoch   uint64
}

// Coordinator serializes membership mutations per group and couples each one
// to artifact publication. A mutation is complete only once its commit and
// welcomes are published; a publish failure after a successful engine call is
// surfaced (wrapping ErrCommitPublishFailed) without rolling the engine back,
// and the caller retries the publish step. Republishing is safe because every
// artifact carries a unique event id.
type Coordinator struct {
	engine    Engine
	publisher transport.Publisher
	authorKey string
	locks     *syncx.KeyedMutex
	events    chan<- GroupEvent
	log       logging.Logger
}

func NewCoordinator(engine Engine, publisher transport.Publisher, authorKey string, events chan<- GroupEvent, log logging.Logger) *Coordinator {
	if log == nil {
		log = logging.Nop{}
	}
	return &Coordinator{
		engine:    engine,
		publisher: publisher,
		authorKey: authorKey,
		locks:     syncx.NewKeyedMutex(),
		events:    events,
		log:       log,
	}
}

// CreateGroup provisions a group and publishes one gift-wrapped welcome per
// initial member.
func (c *Coordinator) CreateGroup(ctx context.Context, creator string, memberKeyPackages []KeyPackage, name string, admins []string) (Group, error) {
	group, welcomes, err := c.engine.CreateGroup(ctx, creator, memberKeyPackages, name, admins)
	if err != nil {
		return Group{}, fmt.Errorf("create group %q: %w", name, err)
	}

	c.locks.Lock(group.ID)
	defer c.locks.Unlock(group.ID)

	if err := c.publishWelcomes(ctx, group.ID, welcomes); err != nil {
		return group, err
	}

	c.log.Info(ctx, "group created", "group_id", group.ID, "members", len(group.Members))
	c.emit(GroupEvent{Kind: EventCreated, GroupID: group.ID, Epoch: group.Epoch})
	return group, nil
}

// AddMembers runs the engine mutation, publishes the commit and the welcomes,
// then merges the pending commit into local state.
func (c *Coordinator) AddMembers(ctx context.Context, groupID string, keyPackages []KeyPackage) error {
	c.locks.Lock(groupID)
	defer c.locks.Unlock(groupID)

	commit, welcomes, err := c.engine.AddMembers(ctx, groupID, keyPackages)
	if err != nil {
		return fmt.Errorf("add members to %s: %w", groupID, err)
	}

	if err := c.publishCommit(ctx, commit); err != nil {
		return err
	}
	if err := c.publishWelcomes(ctx, groupID, welcomes); err != nil {
		return err
	}
	if err := c.engine.MergePendingCommit(ctx, groupID); err != nil {
		return fmt.Errorf("merge pending commit for %s: %w", groupID, err)
	}

	c.emit(GroupEvent{Kind: EventMembersAdded, GroupID: groupID, Epoch: commit.Epoch})
	return nil
}

// RemoveMembers runs the engine mutation, publishes the commit, then merges
// the pending commit.
func (c *Coordinator) RemoveMembers(ctx context.Context, groupID string, memberKeys []string) error {
	c.locks.Lock(groupID)
	defer c.locks.Unlock(groupID)

	commit, err := c.engine.RemoveMembers(ctx, groupID, memberKeys)
	if err != nil {
		return fmt.Errorf("remove members from %s: %w", groupID, err)
	}

	if err := c.publishCommit(ctx, commit); err != nil {
		return err
	}
	if err := c.engine.MergePendingCommit(ctx, groupID); err != nil {
		return fmt.Errorf("merge pending commit for %s: %w", groupID, err)
	}

	c.emit(GroupEvent{Kind: EventMembersRemoved, GroupID: groupID, Epoch: commit.Epoch})
	return nil
}

// SendMessage encrypts an application payload for the group and publishes it.
func (c *Coordinator) SendMessage(ctx context.Context, groupID string, payload []byte) error {
	c.locks.Lock(groupID)
	defer c.locks.Unlock(groupID)

	sealed, err := c.engine.CreateMessage(ctx, groupID, payload)
	if err != nil {
		return fmt.Errorf("create message for %s: %w", groupID, err)
	}

	ev := transport.NewEvent(transport.KindGroupMessage, c.authorKey, sealed, map[string]string{"group": groupID})
	if err := c.publisher.Publish(ctx, ev); err != nil {
		return fmt.Errorf("%w: group message %s: %v", common.ErrCommitPublishFailed, groupID, err)
	}
	return nil
}

// HandleWelcome processes an inbound (already unwrapped) welcome and reports
// the joined group.
func (c *Coordinator) HandleWelcome(ctx context.Context, welcome []byte) (Group, error) {
	group, err := c.engine.ProcessWelcome(ctx, welcome)
	if err != nil {
		return Group{}, fmt.Errorf("process welcome: %w", err)
	}
	c.log.Info(ctx, "joined group", "group_id", group.ID)
	c.emit(GroupEvent{Kind: EventJoined, GroupID: group.ID, Epoch: group.Epoch})
	return group, nil
}

// HandleMessage feeds an inbound group event through the engine. Commits
// advance the epoch; application messages surface their plaintext.
func (c *Coordinator) HandleMessage(ctx context.Context, eventJSON []byte) (Result, error) {
	res, err := c.engine.ProcessMessage(ctx, eventJSON)
	if err != nil {
		return Result{}, fmt.Errorf("process message: %w", err)
	}
	c.emit(GroupEvent{Kind: EventMessage, GroupID: res.GroupID, Epoch: res.Epoch})
	return res, nil
}

func (c *Coordinator) publishCommit(ctx context.Context, commit Commit) error {
	ev := transport.NewEvent(transport.KindGroupCommit, c.authorKey, commit.Payload, map[string]string{"group": commit.GroupID})
	if err := c.publisher.Publish(ctx, ev); err != nil {
		return fmt.Errorf("%w: commit for %s: %v", common.ErrCommitPublishFailed, commit.GroupID, err)
	}
	return nil
}

func (c *Coordinator) publishWelcomes(ctx context.Context, groupID string, welcomes []Welcome) error {
	for _, w := range welcomes {
		recipientPub, err := hex.DecodeString(w.RecipientKey)
		if err != nil || len(recipientPub) != cryptox.KeySize {
			return fmt.Errorf("%w: welcome recipient %q", common.ErrInvalidRecipientKey, w.RecipientKey)
		}
		wrapped, err := cryptox.GiftWrap(w.Payload, recipientPub)
		if err != nil {
			return fmt.Errorf("gift wrap welcome for %s: %w", w.RecipientKey, err)
		}

		ev := transport.NewEvent(transport.KindWelcome, c.authorKey, wrapped, map[string]string{
			"group":     groupID,
			"recipient": w.RecipientKey,
		})
		if err := c.publisher.Publish(ctx, ev); err != nil {
			return fmt.Errorf("%w: welcome for %s: %v", common.ErrCommitPublishFailed, w.RecipientKey, err)
		}
	}
	return nil
}

func (c *Coordinator) emit(ev GroupEvent) {
	if c.events == nil {
		return
	}
	select {
	case c.events <- ev:
	default:
		c.log.Warn(context.Background(), "group event dropped, observer channel full", "group_id", ev.GroupID)
	}
}
