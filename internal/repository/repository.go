package repository

import (
	"context"
	"database/sql"
	"time"

	"dashboard_sync/internal/models"
)

// Authorization stores admin API operator accounts.
type Authorization interface {
	Create(ctx context.Context, username, hash string) (int64, error)
	GetByUsername(ctx context.Context, username string) (*models.Operator, error)
}

// InstanceRepo stores managed instances.
type InstanceRepo interface {
	Create(ctx context.Context, inst models.ManagedInstance) (int64, error)
	Get(ctx context.Context, id int64) (*models.ManagedInstance, error)
	List(ctx context.Context) ([]models.ManagedInstance, error)
}

// CursorRepo persists per-instance tailing and GC bookkeeping.
type CursorRepo interface {
	Save(ctx context.Context, c models.InstanceCursor) error
	LoadAll(ctx context.Context) ([]models.InstanceCursor, error)
}

// LocationRepo keeps the last known position per actor and instance.
type LocationRepo interface {
	Upsert(ctx context.Context, locs []models.PlayerLocation) error
	Get(ctx context.Context, instanceID int64, actor string) (*models.PlayerLocation, error)
	List(ctx context.Context, instanceID int64) ([]models.PlayerLocation, error)
}

// PurchaseRepo tracks purchases through placement.
type PurchaseRepo interface {
	Create(ctx context.Context, p models.PurchaseRecord) error
	MarkFulfilled(ctx context.Context, id string, pos models.Vec3, at time.Time) error
	MarkFailed(ctx context.Context, id, reason string) error
	ListPending(ctx context.Context, instanceID int64) ([]models.PurchaseRecord, error)
	List(ctx context.Context, instanceID int64) ([]models.PurchaseRecord, error)
}

type Repository struct {
	Instances InstanceRepo
	Cursors   CursorRepo
	Locations LocationRepo
	Purchases PurchaseRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Instances: NewInstanceSQLite(db),
		Cursors:   NewCursorSQLite(db),
		Locations: NewLocationSQLite(db),
		Purchases: NewPurchaseSQLite(db),
		Auth:      NewOperatorSQLite(db),
	}
}
