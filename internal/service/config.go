package service

import (
	"fmt"
	"os"
	"strings"
	"time"

	"dashboard_sync/internal/models"

	"gopkg.in/yaml.v3"
)

// Config carries the tunables of the sync core.
type Config struct {
	Auth      AuthConfig
	Poll      PollConfig
	Placement PlacementConfig
	GC        GCConfig
	// QueueOpTimeout bounds each queued spawn-resource operation.
	QueueOpTimeout time.Duration
}

// PollConfig tunes log tailing.
type PollConfig struct {
	Interval time.Duration
	// RotationGrace separates a genuine log rotation from a resync after an outage.
	RotationGrace time.Duration
	// CycleTimeout bounds one poll+GC cycle of one instance.
	CycleTimeout time.Duration
}

// PlacementConfig tunes the item grid laid out around tables.
type PlacementConfig struct {
	Radius         float64
	ItemsPerRow    int
	ColumnSpacing  float64 // along X
	RowSpacing     float64 // along Z
	BaseOffset     models.Vec3
	TableClass     string
	DefaultYOffset float64
	ClassYOffsets  map[string]float64
}

// GCConfig describes the prune window after each scheduled restart.
type GCConfig struct {
	WindowStart time.Duration
	WindowEnd   time.Duration
	Guard       time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Auth: AuthConfig{TokenTTL: defaultTokenTTL},
		Poll: PollConfig{
			Interval:      time.Minute,
			RotationGrace: 5 * time.Minute,
			CycleTimeout:  2 * time.Minute,
		},
		Placement: PlacementConfig{
			Radius:         10,
			ItemsPerRow:    5,
			ColumnSpacing:  0.5,
			RowSpacing:     0.5,
			BaseOffset:     models.Vec3{X: -1.0, Y: 0, Z: -0.5},
			TableClass:     "StaticObj_Furniture_kitchen_table_a",
			DefaultYOffset: 0.85,
			ClassYOffsets:  map[string]float64{},
		},
		GC: GCConfig{
			WindowStart: 15 * time.Minute,
			WindowEnd:   25 * time.Minute,
			Guard:       30 * time.Minute,
		},
		QueueOpTimeout: 45 * time.Second,
	}
}

// YOffset returns the vertical offset for class, falling back to the default.
func (c PlacementConfig) YOffset(class string) float64 {
	if off, ok := c.ClassYOffsets[class]; ok {
		return off
	}
	return c.DefaultYOffset
}

// placementTemplates is the on-disk shape of placement.templates_file.
type placementTemplates struct {
	DefaultYOffset *float64           `yaml:"default_y_offset"`
	TableClass     string             `yaml:"table_class"`
	Classes        map[string]float64 `yaml:"classes"`
}

// LoadTemplates merges a YAML templates file into c. An empty path is a no-op.
func (c *PlacementConfig) LoadTemplates(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read placement templates: %w", err)
	}
	return c.applyTemplates(b)
}

func (c *PlacementConfig) applyTemplates(b []byte) error {
	var t placementTemplates
	if err := yaml.Unmarshal(b, &t); err != nil {
		return fmt.Errorf("placement templates: %w", err)
	}
	if t.DefaultYOffset != nil {
		c.DefaultYOffset = *t.DefaultYOffset
	}
	if t.TableClass != "" {
		c.TableClass = t.TableClass
	}
	if c.ClassYOffsets == nil {
		c.ClassYOffsets = map[string]float64{}
	}
	for class, off := range t.Classes {
		c.ClassYOffsets[class] = off
	}
	return nil
}
