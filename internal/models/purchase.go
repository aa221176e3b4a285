package models

import "time"

// Purchase statuses.
const (
	PurchasePending   = "PENDING"
	PurchaseFulfilled = "FULFILLED"
	PurchaseFailed    = "FAILED"
)

// PurchaseRecord is a store purchase waiting for, or done with, world placement.
type PurchaseRecord struct {
	ID          string     `json:"id"`
	InstanceID  int64      `json:"instance_id"`
	ActorName   string     `json:"actor_name"`
	ItemClass   string     `json:"item_class"`
	Status      string     `json:"status"`
	Position    *Vec3      `json:"position,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	FulfilledAt *time.Time `json:"fulfilled_at,omitempty"`
}
