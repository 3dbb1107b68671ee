package relationship

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nestclip/nestclip/internal/common"
	"github.com/nestclip/nestclip/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const relColumns = `follower_id, target_id, approved_from, approved_to, status, requested_by, participant_keys, group_id, updated_at`

func scanRelationship(row interface{ Scan(...any) error }) (*Relationship, error) {
	var (
		r            Relationship
		status       string
		participants string
		updated      int64
	)
	if err := row.Scan(&r.FollowerID, &r.TargetID, &r.ApprovedFrom, &r.ApprovedTo,
		&status, &r.RequestedBy, &participants, &r.GroupID, &updated); err != nil {
		return nil, err
	}
	r.Status = Status(status)
	if err := json.Unmarshal([]byte(participants), &r.Participants); err != nil {
		return nil, fmt.Errorf("decode participant keys: %w", err)
	}
	if updated > 0 {
		r.UpdatedAt = time.Unix(updated, 0).UTC()
	}
	return &r, nil
}

func (r *SQLiteRepository) FindByCandidates(ctx context.Context, followerCandidates, targetCandidates []string) (*Relationship, error) {
	if len(followerCandidates) == 0 || len(targetCandidates) == 0 {
		return nil, common.ErrNotFound
	}

	args := make([]any, 0, len(followerCandidates)+len(targetCandidates))
	for _, c := range followerCandidates {
		args = append(args, c)
	}
	for _, c := range targetCandidates {
		args = append(args, c)
	}
	query := fmt.Sprintf(`SELECT %s FROM relationships WHERE follower_id IN (%s) AND target_id IN (%s) LIMIT 1`,
		relColumns,
		placeholders(len(followerCandidates)),
		placeholders(len(targetCandidates)))

	rel, err := scanRelationship(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find relationship: %w", err)
	}
	return rel, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func (r *SQLiteRepository) Upsert(ctx context.Context, rel *Relationship) error {
	participants, err := json.Marshal(rel.Participants)
	if err != nil {
		return fmt.Errorf("encode participant keys: %w", err)
	}
	if rel.Participants == nil {
		participants = []byte("[]")
	}

	query := `INSERT INTO relationships (follower_id, target_id, approved_from, approved_to, status, requested_by, participant_keys, group_id, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(follower_id, target_id) DO UPDATE SET
				approved_from = excluded.approved_from,
				approved_to = excluded.approved_to,
				status = excluded.status,
				requested_by = excluded.requested_by,
				participant_keys = excluded.participant_keys,
				group_id = excluded.group_id,
				updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		rel.FollowerID, rel.TargetID, rel.ApprovedFrom, rel.ApprovedTo,
		string(rel.Status), rel.RequestedBy, string(participants), rel.GroupID,
		rel.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert relationship: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, p Pointer) (*Relationship, error) {
	query := fmt.Sprintf(`SELECT %s FROM relationships WHERE follower_id = ? AND target_id = ?`, relColumns)
	rel, err := scanRelationship(r.db.QueryRowContext(ctx, query, p.FollowerID, p.TargetID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get relationship: %w", err)
	}
	return rel, nil
}

func (r *SQLiteRepository) SetGroupID(ctx context.Context, p Pointer, groupID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE relationships SET group_id = ? WHERE follower_id = ? AND target_id = ?`,
		groupID, p.FollowerID, p.TargetID)
	if err != nil {
		return fmt.Errorf("set group id: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrRelationshipNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetAllByStatus(ctx context.Context, status Status) ([]*Relationship, error) {
	query := fmt.Sprintf(`SELECT %s FROM relationships WHERE status = ?`, relColumns)
	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("select relationships: %w", err)
	}
	defer rows.Close()

	var result []*Relationship
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
