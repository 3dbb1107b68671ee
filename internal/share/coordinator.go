package share

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/nestclip/nestclip/internal/common"
	"github.com/nestclip/nestclip/internal/groups"
	"github.com/nestclip/nestclip/internal/logging"
)

// VideoEvent is a local persistence change notification for one of the
// household's own videos.
type VideoEvent struct {
	VideoID   string
	ProfileID string
	Status    ShareStatus
}

// GroupResolver maps an owning profile to its provisioned messaging group.
type GroupResolver interface {
	GroupForProfile(ctx context.Context, profileID string) (string, error)
}

// GroupSender publishes an encrypted application payload into a group.
// *groups.Coordinator satisfies it.
type GroupSender interface {
	SendMessage(ctx context.Context, groupID string, payload []byte) error
}

// VideoSource loads a local video's file locations and metadata.
type VideoSource interface {
	Video(ctx context.Context, videoID string) (LocalVideo, error)
}

// Coordinator drives each local video through pendingApproval -> approved ->
// shared, with rejected as a terminal dead-end. Videos whose share attempt
// fails (group not provisioned, transient publish error) go into a pending
// set and are retried when group membership changes. An in-flight set
// suppresses concurrent share attempts for the same video id.
type Coordinator struct {
	states          ShareStateRepository
	publisher       *Publisher
	sender          GroupSender
	resolver        GroupResolver
	source          VideoSource
	log             logging.Logger
	requireApproval bool
	backoff         time.Duration

	mu       sync.Mutex
	pending  map[string]string // video id -> profile id
	inFlight map[string]struct{}
}

func NewCoordinator(states ShareStateRepository, publisher *Publisher, sender GroupSender, resolver GroupResolver, source VideoSource, requireApproval bool, log logging.Logger) *Coordinator {
	if log == nil {
		log = logging.Nop{}
	}
	return &Coordinator{
		states:          states,
		publisher:       publisher,
		sender:          sender,
		resolver:        resolver,
		source:          source,
		log:             log,
		requireApproval: requireApproval,
		backoff:         200 * time.Millisecond,
		pending:         make(map[string]string),
		inFlight:        make(map[string]struct{}),
	}
}

// Submit registers a local video for sharing. With approval required it
// parks in pendingApproval; otherwise it is approved and shared immediately.
func (c *Coordinator) Submit(ctx context.Context, videoID, profileID string) error {
	status := SharePendingApproval
	if !c.requireApproval {
		status = ShareApproved
	}
	err := c.states.Upsert(ctx, &ShareState{
		VideoID:   videoID,
		ProfileID: profileID,
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if status == ShareApproved {
		c.tryShare(ctx, videoID, profileID)
	}
	return nil
}

// Approve moves a pendingApproval video to approved and attempts the share.
// Rejected is terminal; approving a rejected video is an error.
func (c *Coordinator) Approve(ctx context.Context, videoID string) error {
	st, err := c.states.Get(ctx, videoID)
	if err != nil {
		return err
	}
	switch st.Status {
	case ShareRejected:
		return fmt.Errorf("%w: video %s was rejected", common.ErrInvalidRole, videoID)
	case ShareShared:
		return nil
	case ShareApproved:
		// Re-approval retries a stuck share.
	case SharePendingApproval:
		if err := c.states.SetStatus(ctx, videoID, ShareApproved, ""); err != nil {
			return err
		}
	}
	c.tryShare(ctx, videoID, st.ProfileID)
	return nil
}

// Reject terminally declines a pendingApproval video.
func (c *Coordinator) Reject(ctx context.Context, videoID string) error {
	st, err := c.states.Get(ctx, videoID)
	if err != nil {
		return err
	}
	if st.Status != SharePendingApproval {
		return fmt.Errorf("%w: cannot reject video in status %s", common.ErrInvalidRole, st.Status)
	}
	c.mu.Lock()
	delete(c.pending, videoID)
	c.mu.Unlock()
	return c.states.SetStatus(ctx, videoID, ShareRejected, "")
}

// Run consumes persistence and group notifications until ctx is done.
// Approved videos trigger a share attempt; group changes retry everything in
// the pending set (a newly provisioned group is the usual unblocker).
func (c *Coordinator) Run(ctx context.Context, videoEvents <-chan VideoEvent, groupEvents <-chan groups.GroupEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-videoEvents:
			if !ok {
				videoEvents = nil
				continue
			}
			if ev.Status == ShareApproved {
				c.tryShare(ctx, ev.VideoID, ev.ProfileID)
			}
		case ev, ok := <-groupEvents:
			if !ok {
				groupEvents = nil
				continue
			}
			c.log.Debug(ctx, "group changed, retrying pending shares", "group_id", ev.GroupID)
			c.retryPending(ctx)
		}
	}
}

// Pending returns the video ids currently parked for retry.
func (c *Coordinator) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	return ids
}

func (c *Coordinator) retryPending(ctx context.Context) {
	c.mu.Lock()
	snapshot := make(map[string]string, len(c.pending))
	for id, profile := range c.pending {
		snapshot[id] = profile
	}
	c.mu.Unlock()

	for id, profile := range snapshot {
		c.tryShare(ctx, id, profile)
	}
}

func (c *Coordinator) tryShare(ctx context.Context, videoID, profileID string) {
	c.mu.Lock()
	if _, busy := c.inFlight[videoID]; busy {
		c.mu.Unlock()
		return
	}
	c.inFlight[videoID] = struct{}{}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inFlight, videoID)
		c.mu.Unlock()
	}()

	if err := c.share(ctx, videoID, profileID); err != nil {
		c.log.Warn(ctx, "share attempt failed", "video_id", videoID, "error", err.Error())
		c.mu.Lock()
		c.pending[videoID] = profileID
		c.mu.Unlock()
		// The video stays approved: intent is never lost, only deferred.
		if serr := c.states.SetStatus(ctx, videoID, ShareApproved, err.Error()); serr != nil {
			c.log.Error(ctx, "record share failure", "video_id", videoID, "error", serr.Error())
		}
		return
	}

	c.mu.Lock()
	delete(c.pending, videoID)
	c.mu.Unlock()
	if err := c.states.SetStatus(ctx, videoID, ShareShared, ""); err != nil {
		c.log.Error(ctx, "record shared status", "video_id", videoID, "error", err.Error())
	}
}

func (c *Coordinator) share(ctx context.Context, videoID, profileID string) error {
	groupID, err := c.resolver.GroupForProfile(ctx, profileID)
	if err != nil {
		return err
	}
	if groupID == "" {
		return fmt.Errorf("%w: profile %s", common.ErrGroupNotFound, profileID)
	}

	video, err := c.source.Video(ctx, videoID)
	if err != nil {
		return err
	}
	msg, err := c.publisher.PrepareGroupShare(ctx, video, profileID)
	if err != nil {
		return err
	}
	payload, err := EncodeMessage(msg)
	if err != nil {
		return err
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(c.backoff))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.sender.SendMessage(ctx, groupID, payload)
		if err == nil {
			return nil
		}
		if common.Retryable(err) && !errors.Is(err, common.ErrGroupNotFound) {
			return retry.RetryableError(err)
		}
		return err
	})
}
