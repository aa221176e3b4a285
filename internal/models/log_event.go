package models

import (
	"fmt"
	"time"
)

// EventKind discriminates LogEvent variants.
type EventKind string

const (
	KindKill       EventKind = "kill"
	KindHit        EventKind = "hit"
	KindConnect    EventKind = "connect"
	KindDisconnect EventKind = "disconnect"
	KindSuicide    EventKind = "suicide"
	KindBuild      EventKind = "build"
)

// LogEvent is a single typed event derived from one server log line.
type LogEvent struct {
	Kind     EventKind `json:"kind"`
	Clock    string    `json:"clock"`        // HH:MM:SS as written in the log
	At       time.Time `json:"at,omitempty"` // zero when the log carries no date header
	Actor    string    `json:"actor,omitempty"`
	Target   string    `json:"target,omitempty"`
	Weapon   string    `json:"weapon,omitempty"`
	Action   string    `json:"action,omitempty"` // build: placed | raised | dismantled | built
	Item     string    `json:"item,omitempty"`
	Damage   float64   `json:"damage,omitempty"`
	Distance float64   `json:"distance,omitempty"`
	Raw      string    `json:"raw"`
	Degraded bool      `json:"degraded,omitempty"`
}

// Summary renders a one-line plain text description.
func (e LogEvent) Summary() string {
	if e.Degraded {
		return fmt.Sprintf("[%s] %s", e.Kind, e.Raw)
	}
	switch e.Kind {
	case KindKill:
		if e.Weapon != "" {
			return fmt.Sprintf("%s killed %s with %s (%.0fm)", e.Actor, e.Target, e.Weapon, e.Distance)
		}
		return fmt.Sprintf("%s killed %s", e.Actor, e.Target)
	case KindHit:
		return fmt.Sprintf("%s hit %s for %.1f damage", e.Actor, e.Target, e.Damage)
	case KindConnect:
		return fmt.Sprintf("%s connected", e.Actor)
	case KindDisconnect:
		return fmt.Sprintf("%s disconnected", e.Actor)
	case KindSuicide:
		return fmt.Sprintf("%s committed suicide", e.Actor)
	case KindBuild:
		return fmt.Sprintf("%s %s %s", e.Actor, e.Action, e.Item)
	default:
		return e.Raw
	}
}
