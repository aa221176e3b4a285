package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dashboard_sync/internal/models"
)

type LocationSQLite struct {
	db *sql.DB
}

func NewLocationSQLite(db *sql.DB) *LocationSQLite { return &LocationSQLite{db: db} }

var _ LocationRepo = (*LocationSQLite)(nil)

const (
	upsertLocationSQL = `
		INSERT INTO player_locations (instance_id, actor, x, y, z, seen_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(instance_id, actor) DO UPDATE SET
			x=excluded.x,
			y=excluded.y,
			z=excluded.z,
			seen_at=excluded.seen_at
	`

	selectLocationSQL = `SELECT instance_id, actor, x, y, z, seen_at FROM player_locations
		WHERE instance_id = ? AND actor = ?`

	listLocationsSQL = `SELECT instance_id, actor, x, y, z, seen_at FROM player_locations
		WHERE instance_id = ? ORDER BY seen_at DESC`
)

// Upsert writes all locations in one transaction. Last write wins per actor.
func (r *LocationSQLite) Upsert(ctx context.Context, locs []models.PlayerLocation) error {
	if len(locs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin location upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertLocationSQL)
	if err != nil {
		return fmt.Errorf("prepare location upsert: %w", err)
	}
	defer stmt.Close()

	for _, l := range locs {
		if _, err := stmt.ExecContext(ctx, l.InstanceID, l.Actor,
			l.Position.X, l.Position.Y, l.Position.Z, l.SeenAt.UTC()); err != nil {
			return fmt.Errorf("upsert location of %q: %w", l.Actor, err)
		}
	}
	return tx.Commit()
}

// Get returns (nil, nil) when the actor has never been seen on the instance.
func (r *LocationSQLite) Get(ctx context.Context, instanceID int64, actor string) (*models.PlayerLocation, error) {
	var l models.PlayerLocation
	err := r.db.QueryRowContext(ctx, selectLocationSQL, instanceID, actor).Scan(
		&l.InstanceID, &l.Actor, &l.Position.X, &l.Position.Y, &l.Position.Z, &l.SeenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select location of %q: %w", actor, err)
	}
	l.SeenAt = l.SeenAt.UTC()
	return &l, nil
}

// List returns the instance's known locations, most recent first.
func (r *LocationSQLite) List(ctx context.Context, instanceID int64) ([]models.PlayerLocation, error) {
	rows, err := r.db.QueryContext(ctx, listLocationsSQL, instanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.PlayerLocation, 0, 32)
	for rows.Next() {
		var l models.PlayerLocation
		if err := rows.Scan(&l.InstanceID, &l.Actor, &l.Position.X, &l.Position.Y, &l.Position.Z, &l.SeenAt); err != nil {
			return nil, err
		}
		l.SeenAt = l.SeenAt.UTC()
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
