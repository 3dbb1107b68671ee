package share

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nestclip/nestclip/internal/blobstore"
	"github.com/nestclip/nestclip/internal/common"
	"github.com/nestclip/nestclip/internal/groups"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	mu      sync.Mutex
	groupID string
}

func (s *stubResolver) set(groupID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groupID = groupID
}

func (s *stubResolver) GroupForProfile(_ context.Context, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groupID, nil
}

type stubSender struct {
	mu       sync.Mutex
	sent     [][]byte
	groups   []string
	failures int
	failWith error
}

func (s *stubSender) SendMessage(_ context.Context, groupID string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return s.failWith
	}
	s.groups = append(s.groups, groupID)
	s.sent = append(s.sent, payload)
	return nil
}

func (s *stubSender) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type stubSource struct {
	videos map[string]LocalVideo
}

func (s *stubSource) Video(_ context.Context, videoID string) (LocalVideo, error) {
	v, ok := s.videos[videoID]
	if !ok {
		return LocalVideo{}, common.ErrFileMissing
	}
	return v, nil
}

func newTestCoordinator(t *testing.T, requireApproval bool) (*Coordinator, *stubResolver, *stubSender, ShareStateRepository) {
	t.Helper()
	states := NewSQLiteShareStateRepository(setupDB(t))
	publisher := NewPublisher(blobstore.NewMemoryStore(), testIdentityStore(t), nil)
	resolver := &stubResolver{groupID: "g1"}
	sender := &stubSender{}
	source := &stubSource{videos: map[string]LocalVideo{"v1": testVideo(t, "v1")}}

	c := NewCoordinator(states, publisher, sender, resolver, source, requireApproval, nil)
	c.backoff = time.Millisecond
	return c, resolver, sender, states
}

func TestCoordinator_AutoApproveSharesImmediately(t *testing.T) {
	c, _, sender, states := newTestCoordinator(t, false)
	ctx := context.Background()

	require.NoError(t, c.Submit(ctx, "v1", "profile-1"))

	require.Equal(t, 1, sender.sentCount())
	msg, err := DecodeMessage(sender.sent[0])
	require.NoError(t, err)
	assert.Equal(t, "v1", msg.VideoID)
	assert.Equal(t, []string{"g1"}, sender.groups)

	st, err := states.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, ShareShared, st.Status)
}

func TestCoordinator_ApprovalGate(t *testing.T) {
	c, _, sender, states := newTestCoordinator(t, true)
	ctx := context.Background()

	require.NoError(t, c.Submit(ctx, "v1", "profile-1"))
	assert.Equal(t, 0, sender.sentCount())

	st, err := states.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, SharePendingApproval, st.Status)

	require.NoError(t, c.Approve(ctx, "v1"))
	assert.Equal(t, 1, sender.sentCount())

	st, err = states.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, ShareShared, st.Status)
}

func TestCoordinator_RejectIsTerminal(t *testing.T) {
	c, _, sender, states := newTestCoordinator(t, true)
	ctx := context.Background()

	require.NoError(t, c.Submit(ctx, "v1", "profile-1"))
	require.NoError(t, c.Reject(ctx, "v1"))

	st, err := states.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, ShareRejected, st.Status)

	assert.Error(t, c.Approve(ctx, "v1"))
	assert.Equal(t, 0, sender.sentCount())
}

func TestCoordinator_TransientPublishErrorRetriedInline(t *testing.T) {
	c, _, sender, states := newTestCoordinator(t, false)
	sender.failures = 2
	sender.failWith = common.ErrRelayTimeout
	ctx := context.Background()

	require.NoError(t, c.Submit(ctx, "v1", "profile-1"))

	require.Equal(t, 1, sender.sentCount())
	st, err := states.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, ShareShared, st.Status)
}

func TestCoordinator_GroupNotProvisionedParksAndRetries(t *testing.T) {
	c, resolver, sender, states := newTestCoordinator(t, false)
	resolver.set("")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, c.Submit(ctx, "v1", "profile-1"))

	// The attempt parks: still approved, error recorded, id pending.
	assert.Equal(t, 0, sender.sentCount())
	st, err := states.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, ShareApproved, st.Status)
	assert.NotEmpty(t, st.LastError)
	assert.Equal(t, []string{"v1"}, c.Pending())

	videoEvents := make(chan VideoEvent)
	groupEvents := make(chan groups.GroupEvent, 1)
	go c.Run(ctx, videoEvents, groupEvents)

	// Group becomes available; a membership notification unblocks the share.
	resolver.set("g1")
	groupEvents <- groups.GroupEvent{Kind: groups.EventCreated, GroupID: "g1"}

	require.Eventually(t, func() bool {
		st, err := states.Get(context.Background(), "v1")
		return err == nil && st.Status == ShareShared
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, sender.sentCount())
	assert.Empty(t, c.Pending())
}

func TestCoordinator_ApprovedVideoEventTriggersShare(t *testing.T) {
	c, _, sender, states := newTestCoordinator(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, states.Upsert(ctx, &ShareState{
		VideoID: "v1", ProfileID: "profile-1", Status: ShareApproved, UpdatedAt: time.Now().UTC(),
	}))

	videoEvents := make(chan VideoEvent, 1)
	groupEvents := make(chan groups.GroupEvent)
	go c.Run(ctx, videoEvents, groupEvents)

	videoEvents <- VideoEvent{VideoID: "v1", ProfileID: "profile-1", Status: ShareApproved}

	require.Eventually(t, func() bool {
		st, err := states.Get(context.Background(), "v1")
		return err == nil && st.Status == ShareShared
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, sender.sentCount())
}
