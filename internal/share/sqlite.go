package share

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nestclip/nestclip/internal/common"
	"github.com/nestclip/nestclip/internal/dbx"
)

// SQLiteRemoteVideoRepository implements RemoteVideoRepository over a DBTX.
type SQLiteRemoteVideoRepository struct {
	db dbx.DBTX
}

func NewSQLiteRemoteVideoRepository(db dbx.DBTX) *SQLiteRemoteVideoRepository {
	return &SQLiteRemoteVideoRepository{db: db}
}

const remoteVideoColumns = `video_id, owner_id, group_id, status, media_path, thumbnail_path, last_synced_at, metadata_json, last_error`

func scanRemoteVideo(row interface{ Scan(...any) error }) (*RemoteVideo, error) {
	var (
		v      RemoteVideo
		status string
		synced int64
	)
	if err := row.Scan(&v.VideoID, &v.OwnerID, &v.GroupID, &status,
		&v.MediaPath, &v.ThumbnailPath, &synced, &v.MetadataJSON, &v.LastError); err != nil {
		return nil, err
	}
	v.Status = LifecycleStatus(status)
	if synced > 0 {
		v.LastSyncedAt = time.Unix(synced, 0).UTC()
	}
	return &v, nil
}

func (r *SQLiteRemoteVideoRepository) Get(ctx context.Context, videoID string) (*RemoteVideo, error) {
	query := fmt.Sprintf(`SELECT %s FROM remote_videos WHERE video_id = ?`, remoteVideoColumns)
	v, err := scanRemoteVideo(r.db.QueryRowContext(ctx, query, videoID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get remote video: %w", err)
	}
	return v, nil
}

func (r *SQLiteRemoteVideoRepository) Upsert(ctx context.Context, v *RemoteVideo) error {
	query := `INSERT INTO remote_videos (video_id, owner_id, group_id, status, media_path, thumbnail_path, last_synced_at, metadata_json, last_error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(video_id) DO UPDATE SET
				owner_id = excluded.owner_id,
				group_id = excluded.group_id,
				status = excluded.status,
				media_path = excluded.media_path,
				thumbnail_path = excluded.thumbnail_path,
				last_synced_at = excluded.last_synced_at,
				metadata_json = excluded.metadata_json,
				last_error = excluded.last_error
	`
	_, err := r.db.ExecContext(ctx, query,
		v.VideoID, v.OwnerID, v.GroupID, string(v.Status),
		v.MediaPath, v.ThumbnailPath, v.LastSyncedAt.Unix(), v.MetadataJSON, v.LastError)
	if err != nil {
		return fmt.Errorf("failed to upsert remote video: %w", err)
	}
	return nil
}

func (r *SQLiteRemoteVideoRepository) ApplyLifecycle(ctx context.Context, videoID string, status LifecycleStatus) (*RemoteVideo, error) {
	v, err := r.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !v.Advance(status) {
		return v, nil
	}
	v.LastSyncedAt = time.Now().UTC()
	if err := r.Upsert(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *SQLiteRemoteVideoRepository) SetPaths(ctx context.Context, videoID, mediaPath, thumbnailPath string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE remote_videos SET media_path = ?, thumbnail_path = ?, last_error = '', last_synced_at = ? WHERE video_id = ?`,
		mediaPath, thumbnailPath, time.Now().UTC().Unix(), videoID)
	if err != nil {
		return fmt.Errorf("set paths: %w", err)
	}
	return requireRow(res, videoID)
}

func (r *SQLiteRemoteVideoRepository) SetError(ctx context.Context, videoID, reason string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE remote_videos SET last_error = ?, last_synced_at = ? WHERE video_id = ?`,
		reason, time.Now().UTC().Unix(), videoID)
	if err != nil {
		return fmt.Errorf("set error: %w", err)
	}
	return requireRow(res, videoID)
}

func (r *SQLiteRemoteVideoRepository) GetAllByStatus(ctx context.Context, status LifecycleStatus) ([]*RemoteVideo, error) {
	query := fmt.Sprintf(`SELECT %s FROM remote_videos WHERE status = ?`, remoteVideoColumns)
	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("select remote videos: %w", err)
	}
	defer rows.Close()

	var result []*RemoteVideo
	for rows.Next() {
		v, err := scanRemoteVideo(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func requireRow(res sql.Result, videoID string) error {
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return fmt.Errorf("%w: video %s", common.ErrNotFound, videoID)
	}
	return nil
}

// SQLiteShareStateRepository implements ShareStateRepository over a DBTX.
type SQLiteShareStateRepository struct {
	db dbx.DBTX
}

func NewSQLiteShareStateRepository(db dbx.DBTX) *SQLiteShareStateRepository {
	return &SQLiteShareStateRepository{db: db}
}

const shareStateColumns = `video_id, profile_id, status, updated_at, last_error`

func scanShareState(row interface{ Scan(...any) error }) (*ShareState, error) {
	var (
		st      ShareState
		status  string
		updated int64
	)
	if err := row.Scan(&st.VideoID, &st.ProfileID, &status, &updated, &st.LastError); err != nil {
		return nil, err
	}
	st.Status = ShareStatus(status)
	if updated > 0 {
		st.UpdatedAt = time.Unix(updated, 0).UTC()
	}
	return &st, nil
}

func (r *SQLiteShareStateRepository) Get(ctx context.Context, videoID string) (*ShareState, error) {
	query := fmt.Sprintf(`SELECT %s FROM share_states WHERE video_id = ?`, shareStateColumns)
	st, err := scanShareState(r.db.QueryRowContext(ctx, query, videoID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get share state: %w", err)
	}
	return st, nil
}

func (r *SQLiteShareStateRepository) Upsert(ctx context.Context, st *ShareState) error {
	query := `INSERT INTO share_states (video_id, profile_id, status, updated_at, last_error)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(video_id) DO UPDATE SET
				profile_id = excluded.profile_id,
				status = excluded.status,
				updated_at = excluded.updated_at,
				last_error = excluded.last_error
	`
	_, err := r.db.ExecContext(ctx, query,
		st.VideoID, st.ProfileID, string(st.Status), st.UpdatedAt.Unix(), st.LastError)
	if err != nil {
		return fmt.Errorf("failed to upsert share state: %w", err)
	}
	return nil
}

func (r *SQLiteShareStateRepository) SetStatus(ctx context.Context, videoID string, status ShareStatus, lastError string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE share_states SET status = ?, last_error = ?, updated_at = ? WHERE video_id = ?`,
		string(status), lastError, time.Now().UTC().Unix(), videoID)
	if err != nil {
		return fmt.Errorf("set share status: %w", err)
	}
	return requireRow(res, videoID)
}

func (r *SQLiteShareStateRepository) GetAllByStatus(ctx context.Context, status ShareStatus) ([]*ShareState, error) {
	query := fmt.Sprintf(`SELECT %s FROM share_states WHERE status = ?`, shareStateColumns)
	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("select share states: %w", err)
	}
	defer rows.Close()

	var result []*ShareState
	for rows.Next() {
		st, err := scanShareState(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
