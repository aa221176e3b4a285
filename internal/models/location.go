package models

import (
	"math"
	"time"
)

// Vec3 is a world position. Y is height; X and Z are the horizontal plane.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PlanarDistance ignores height.
func (v Vec3) PlanarDistance(o Vec3) float64 {
	return math.Hypot(v.X-o.X, v.Z-o.Z)
}

// Add returns the component-wise sum.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// PlayerLocation is the last known position of an actor on an instance.
type PlayerLocation struct {
	InstanceID int64     `json:"instance_id"`
	Actor      string    `json:"actor"`
	Position   Vec3      `json:"position"`
	SeenAt     time.Time `json:"seen_at"`
}
