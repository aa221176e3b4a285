package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dashboard_sync/internal/models"
)

type CursorSQLite struct {
	db *sql.DB
}

func NewCursorSQLite(db *sql.DB) *CursorSQLite { return &CursorSQLite{db: db} }

var _ CursorRepo = (*CursorSQLite)(nil)

const (
	upsertCursorSQL = `
		INSERT INTO instance_cursors (instance_id, last_line, last_poll_at, last_gc_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(instance_id) DO UPDATE SET
			last_line=excluded.last_line,
			last_poll_at=excluded.last_poll_at,
			last_gc_at=excluded.last_gc_at
	`

	selectCursorsSQL = `SELECT instance_id, last_line, last_poll_at, last_gc_at FROM instance_cursors`
)

// Save upserts the cursor row of c.InstanceID.
func (r *CursorSQLite) Save(ctx context.Context, c models.InstanceCursor) error {
	_, err := r.db.ExecContext(ctx, upsertCursorSQL,
		c.InstanceID,
		c.LastLine,
		nullTime(c.LastPollAt),
		nullTime(c.LastGCAt),
	)
	if err != nil {
		return fmt.Errorf("save cursor of instance %d: %w", c.InstanceID, err)
	}
	return nil
}

// LoadAll returns every persisted cursor; called once at startup.
func (r *CursorSQLite) LoadAll(ctx context.Context) ([]models.InstanceCursor, error) {
	rows, err := r.db.QueryContext(ctx, selectCursorsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.InstanceCursor
	for rows.Next() {
		var (
			c          models.InstanceCursor
			poll, gcAt sql.NullTime
		)
		if err := rows.Scan(&c.InstanceID, &c.LastLine, &poll, &gcAt); err != nil {
			return nil, err
		}
		if poll.Valid {
			c.LastPollAt = poll.Time.UTC()
		}
		if gcAt.Valid {
			c.LastGCAt = gcAt.Time.UTC()
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
