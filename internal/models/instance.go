package models

import "time"

// Platforms a managed instance can run on.
const (
	PlatformPC          = "pc"
	PlatformXbox        = "xbox"
	PlatformPlayStation = "ps"
)

// Channels maps event categories to chat channel ids for one instance.
// An empty id disables posting for that category.
type Channels struct {
	Combat  string `json:"combat"`  // kill + hit
	Session string `json:"session"` // connect + disconnect
	Suicide string `json:"suicide"`
	Build   string `json:"build"`
}

// ManagedInstance is one registered game-server endpoint.
type ManagedInstance struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	ServiceID          string    `json:"service_id"`
	APIToken           string    `json:"-"`
	MapName            string    `json:"map_name"`
	RestartHours       []int     `json:"restart_hours"` // UTC hours, 0..23
	Platform           string    `json:"platform"`
	LogDir             string    `json:"log_dir"`
	SpawnerPath        string    `json:"spawner_path"`
	GameplayConfigPath string    `json:"gameplay_config_path"`
	Channels           Channels  `json:"channels"`
	CreatedAt          time.Time `json:"created_at"`
}

// InstanceCursor is the persisted tailing/GC bookkeeping for one instance.
type InstanceCursor struct {
	InstanceID int64     `json:"instance_id"`
	LastLine   string    `json:"last_line"`
	LastPollAt time.Time `json:"last_poll_at"`
	LastGCAt   time.Time `json:"last_gc_at"`
}
