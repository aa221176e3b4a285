package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dashboard_sync/internal/models"

	"github.com/google/uuid"
)

type PurchaseSQLite struct {
	db *sql.DB
}

func NewPurchaseSQLite(db *sql.DB) *PurchaseSQLite { return &PurchaseSQLite{db: db} }

var _ PurchaseRepo = (*PurchaseSQLite)(nil)

const (
	insertPurchaseSQL = `
		INSERT INTO purchases (id, instance_id, actor_name, item_class, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	fulfillPurchaseSQL = `
		UPDATE purchases SET status = ?, pos_x = ?, pos_y = ?, pos_z = ?, error = '', fulfilled_at = ?
		WHERE id = ?
	`

	failPurchaseSQL = `UPDATE purchases SET status = ?, error = ? WHERE id = ?`

	selectPurchaseColumns = `SELECT id, instance_id, actor_name, item_class, status,
		pos_x, pos_y, pos_z, error, created_at, fulfilled_at FROM purchases`
)

// Create inserts p. ID, Status and CreatedAt get defaults when empty.
func (r *PurchaseSQLite) Create(ctx context.Context, p models.PurchaseRecord) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = models.PurchasePending
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, insertPurchaseSQL,
		p.ID, p.InstanceID, p.ActorName, p.ItemClass, p.Status, p.Error, p.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert purchase %s: %w", p.ID, err)
	}
	return nil
}

// MarkFulfilled records the placement position.
func (r *PurchaseSQLite) MarkFulfilled(ctx context.Context, id string, pos models.Vec3, at time.Time) error {
	return r.exec(ctx, id, fulfillPurchaseSQL, models.PurchaseFulfilled, pos.X, pos.Y, pos.Z, at.UTC(), id)
}

// MarkFailed records why a purchase could not be placed.
func (r *PurchaseSQLite) MarkFailed(ctx context.Context, id, reason string) error {
	return r.exec(ctx, id, failPurchaseSQL, models.PurchaseFailed, reason, id)
}

// ListPending returns pending purchases of the instance, oldest first.
func (r *PurchaseSQLite) ListPending(ctx context.Context, instanceID int64) ([]models.PurchaseRecord, error) {
	return r.query(ctx, selectPurchaseColumns+` WHERE instance_id = ? AND status = ? ORDER BY created_at ASC`,
		instanceID, models.PurchasePending)
}

// List returns every purchase of the instance, newest first.
func (r *PurchaseSQLite) List(ctx context.Context, instanceID int64) ([]models.PurchaseRecord, error) {
	return r.query(ctx, selectPurchaseColumns+` WHERE instance_id = ? ORDER BY created_at DESC`, instanceID)
}

func (r *PurchaseSQLite) exec(ctx context.Context, id, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update purchase %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update purchase %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (r *PurchaseSQLite) query(ctx context.Context, q string, args ...any) ([]models.PurchaseRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.PurchaseRecord, 0, 16)
	for rows.Next() {
		var (
			p         models.PurchaseRecord
			x, y, z   sql.NullFloat64
			fulfilled sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.InstanceID, &p.ActorName, &p.ItemClass, &p.Status,
			&x, &y, &z, &p.Error, &p.CreatedAt, &fulfilled); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		if x.Valid && y.Valid && z.Valid {
			p.Position = &models.Vec3{X: x.Float64, Y: y.Float64, Z: z.Float64}
		}
		if fulfilled.Valid {
			t := fulfilled.Time.UTC()
			p.FulfilledAt = &t
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
