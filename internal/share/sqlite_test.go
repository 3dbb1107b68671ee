package share

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/nestclip/nestclip/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE remote_videos (
  video_id       TEXT    NOT NULL PRIMARY KEY,
  owner_id       TEXT    NOT NULL,
  group_id       TEXT    NOT NULL DEFAULT '',
  status         TEXT    NOT NULL DEFAULT 'available',
  media_path     TEXT    NOT NULL DEFAULT '',
  thumbnail_path TEXT    NOT NULL DEFAULT '',
  last_synced_at INTEGER NOT NULL DEFAULT 0,
  metadata_json  TEXT    NOT NULL DEFAULT '',
  last_error     TEXT    NOT NULL DEFAULT ''
);
CREATE TABLE share_states (
  video_id   TEXT    NOT NULL PRIMARY KEY,
  profile_id TEXT    NOT NULL,
  status     TEXT    NOT NULL DEFAULT 'pending_approval',
  updated_at INTEGER NOT NULL DEFAULT 0,
  last_error TEXT    NOT NULL DEFAULT ''
);
`)
	require.NoError(t, err)
	return db
}

func sampleRemoteVideo() *RemoteVideo {
	return &RemoteVideo{
		VideoID:      "v1",
		OwnerID:      "owner-child",
		GroupID:      "g1",
		Status:       StatusAvailable,
		LastSyncedAt: time.Unix(100, 0).UTC(),
		MetadataJSON: `{"video_id":"v1"}`,
	}
}

func TestSQLiteRemoteVideoRepository_UpsertAndGet(t *testing.T) {
	r := NewSQLiteRemoteVideoRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, sampleRemoteVideo()))

	got, err := r.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "owner-child", got.OwnerID)
	assert.Equal(t, StatusAvailable, got.Status)
	assert.Equal(t, `{"video_id":"v1"}`, got.MetadataJSON)

	_, err = r.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteRemoteVideoRepository_ApplyLifecycleIdempotent(t *testing.T) {
	r := NewSQLiteRemoteVideoRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Upsert(ctx, sampleRemoteVideo()))

	v, err := r.ApplyLifecycle(ctx, "v1", StatusDownloading)
	require.NoError(t, err)
	assert.Equal(t, StatusDownloading, v.Status)

	// Same event twice is a no-op.
	v, err = r.ApplyLifecycle(ctx, "v1", StatusDownloading)
	require.NoError(t, err)
	assert.Equal(t, StatusDownloading, v.Status)

	// Backward transition is ignored.
	v, err = r.ApplyLifecycle(ctx, "v1", StatusAvailable)
	require.NoError(t, err)
	assert.Equal(t, StatusDownloading, v.Status)
}

func TestSQLiteRemoteVideoRepository_SetPathsClearsError(t *testing.T) {
	r := NewSQLiteRemoteVideoRepository(setupDB(t))
	ctx := context.Background()
	require.NoError(t, r.Upsert(ctx, sampleRemoteVideo()))

	require.NoError(t, r.SetError(ctx, "v1", "relay down"))
	got, err := r.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "relay down", got.LastError)

	require.NoError(t, r.SetPaths(ctx, "v1", "/data/v1.mp4", "/data/v1.jpg"))
	got, err = r.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "/data/v1.mp4", got.MediaPath)
	assert.Empty(t, got.LastError)

	assert.ErrorIs(t, r.SetPaths(ctx, "missing", "a", "b"), common.ErrNotFound)
}

func TestSQLiteRemoteVideoRepository_GetAllByStatus(t *testing.T) {
	r := NewSQLiteRemoteVideoRepository(setupDB(t))
	ctx := context.Background()

	a := sampleRemoteVideo()
	b := sampleRemoteVideo()
	b.VideoID = "v2"
	b.Status = StatusDownloaded
	require.NoError(t, r.Upsert(ctx, a))
	require.NoError(t, r.Upsert(ctx, b))

	got, err := r.GetAllByStatus(ctx, StatusAvailable)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "v1", got[0].VideoID)
}

func TestSQLiteShareStateRepository_Lifecycle(t *testing.T) {
	r := NewSQLiteShareStateRepository(setupDB(t))
	ctx := context.Background()

	st := &ShareState{
		VideoID:   "v1",
		ProfileID: "p1",
		Status:    SharePendingApproval,
		UpdatedAt: time.Unix(100, 0).UTC(),
	}
	require.NoError(t, r.Upsert(ctx, st))

	require.NoError(t, r.SetStatus(ctx, "v1", ShareApproved, ""))
	got, err := r.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, ShareApproved, got.Status)

	require.NoError(t, r.SetStatus(ctx, "v1", ShareApproved, "publish failed"))
	got, err = r.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, "publish failed", got.LastError)

	pending, err := r.GetAllByStatus(ctx, SharePendingApproval)
	require.NoError(t, err)
	assert.Empty(t, pending)

	approved, err := r.GetAllByStatus(ctx, ShareApproved)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "p1", approved[0].ProfileID)

	assert.ErrorIs(t, r.SetStatus(ctx, "missing", ShareShared, ""), common.ErrNotFound)
	_, err = r.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
