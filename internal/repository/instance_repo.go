package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dashboard_sync/internal/models"
)

type InstanceSQLite struct {
	db *sql.DB
}

func NewInstanceSQLite(db *sql.DB) *InstanceSQLite { return &InstanceSQLite{db: db} }

var _ InstanceRepo = (*InstanceSQLite)(nil)

const (
	insertInstanceSQL = `
		INSERT INTO instances (name, service_id, api_token, map_name, restart_hours, platform,
			log_dir, spawner_path, gameplay_config_path, channels, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectInstanceColumns = `SELECT id, name, service_id, api_token, map_name, restart_hours, platform,
		log_dir, spawner_path, gameplay_config_path, channels, created_at FROM instances`
)

// Create inserts inst and returns the new id. CreatedAt defaults to now.
func (r *InstanceSQLite) Create(ctx context.Context, inst models.ManagedInstance) (int64, error) {
	hours, err := json.Marshal(normalizeHours(inst.RestartHours))
	if err != nil {
		return 0, err
	}
	channels, err := json.Marshal(inst.Channels)
	if err != nil {
		return 0, err
	}
	created := inst.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	res, err := r.db.ExecContext(ctx, insertInstanceSQL,
		strings.TrimSpace(inst.Name),
		inst.ServiceID,
		inst.APIToken,
		inst.MapName,
		string(hours),
		strings.ToLower(strings.TrimSpace(inst.Platform)),
		inst.LogDir,
		inst.SpawnerPath,
		inst.GameplayConfigPath,
		string(channels),
		created.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert instance %q: %w", inst.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id for instance %q: %w", inst.Name, err)
	}
	return id, nil
}

// Get returns (nil, nil) when no instance has the id.
func (r *InstanceSQLite) Get(ctx context.Context, id int64) (*models.ManagedInstance, error) {
	row := r.db.QueryRowContext(ctx, selectInstanceColumns+` WHERE id = ?`, id)
	inst, err := scanInstance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select instance %d: %w", id, err)
	}
	return inst, nil
}

// List returns every instance ordered by id.
func (r *InstanceSQLite) List(ctx context.Context) ([]models.ManagedInstance, error) {
	rows, err := r.db.QueryContext(ctx, selectInstanceColumns+` ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ManagedInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstance(s rowScanner) (*models.ManagedInstance, error) {
	var (
		inst     models.ManagedInstance
		hours    string
		channels string
	)
	if err := s.Scan(
		&inst.ID,
		&inst.Name,
		&inst.ServiceID,
		&inst.APIToken,
		&inst.MapName,
		&hours,
		&inst.Platform,
		&inst.LogDir,
		&inst.SpawnerPath,
		&inst.GameplayConfigPath,
		&channels,
		&inst.CreatedAt,
	); err != nil {
		return nil, err
	}
	if hours != "" {
		if err := json.Unmarshal([]byte(hours), &inst.RestartHours); err != nil {
			return nil, fmt.Errorf("decode restart_hours of instance %d: %w", inst.ID, err)
		}
	}
	if channels != "" {
		if err := json.Unmarshal([]byte(channels), &inst.Channels); err != nil {
			return nil, fmt.Errorf("decode channels of instance %d: %w", inst.ID, err)
		}
	}
	inst.CreatedAt = inst.CreatedAt.UTC()
	return &inst, nil
}

// normalizeHours keeps valid, unique UTC hours in ascending order.
func normalizeHours(in []int) []int {
	seen := [24]bool{}
	for _, h := range in {
		if h >= 0 && h < 24 {
			seen[h] = true
		}
	}
	out := make([]int, 0, len(in))
	for h, ok := range seen {
		if ok {
			out = append(out, h)
		}
	}
	return out
}
