package audit

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository PostgreSQL 审计存储
type Repository struct {
	Pool *pgxpool.Pool
}

func (r *Repository) InsertAction(ctx context.Context, a Action) error {
	a = normalize(a)
	const q = `INSERT INTO amp_actions (id, request_id, amp_id, action, channel, success, error, duration_ms, created_at)
               VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.Pool.Exec(ctx, q, a.ID, a.RequestID, a.AmpID, a.Action, a.Channel, a.Success, a.Error,
		a.Duration.Milliseconds(), a.CreatedAt)
	return err
}

// ListRecent 按时间倒序返回最近的记录
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Action, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	const q = `SELECT id, request_id, amp_id, action, channel, success, error, duration_ms, created_at
               FROM amp_actions ORDER BY created_at DESC LIMIT $1`
	rows, err := r.Pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Action
	for rows.Next() {
		var a Action
		var ms int64
		if err := rows.Scan(&a.ID, &a.RequestID, &a.AmpID, &a.Action, &a.Channel, &a.Success, &a.Error, &ms, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, a)
	}
	return out, rows.Err()
}
