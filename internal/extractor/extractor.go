// Package extractor turns raw server admin-log text into typed events and
// player positions. Every function here is pure and never fails.
package extractor

import (
	"strconv"
	"strings"
	"time"

	"dashboard_sync/internal/models"
)

const (
	layoutDate  = "2006-01-02"
	layoutClock = "15:04:05"
)

// Extract classifies every line of text and returns the derived events in log order.
// A line yields at most one event. Lines that match a category keyword but not its
// detailed pattern produce a degraded event carrying only the raw line.
func Extract(text string) []models.LogEvent {
	var (
		out []models.LogEvent
		dc  dateClock
	)
	for _, line := range splitLines(text) {
		if dc.header(line) {
			continue
		}
		ev, ok := classify(line)
		if !ok {
			continue
		}
		ev.At = dc.resolve(ev.Clock)
		out = append(out, ev)
	}
	return out
}

// Locations returns the latest position per actor found in text, in order of last sighting.
func Locations(text string) []models.PlayerLocation {
	var (
		dc    dateClock
		order []string
		byKey = map[string]models.PlayerLocation{}
	)
	for _, line := range splitLines(text) {
		if dc.header(line) {
			continue
		}
		matches := reLocation.FindAllStringSubmatch(line, -1)
		if len(matches) == 0 {
			continue
		}
		at := dc.resolve(clockOf(line))
		for _, m := range matches {
			x, errX := strconv.ParseFloat(m[2], 64)
			z, errZ := strconv.ParseFloat(m[3], 64)
			y, errY := strconv.ParseFloat(m[4], 64)
			if errX != nil || errY != nil || errZ != nil {
				continue
			}
			name := m[1]
			if _, seen := byKey[name]; seen {
				order = removeString(order, name)
			}
			order = append(order, name)
			byKey[name] = models.PlayerLocation{
				Actor:    name,
				Position: models.Vec3{X: x, Y: y, Z: z},
				SeenAt:   at,
			}
		}
	}
	out := make([]models.PlayerLocation, 0, len(order))
	for _, name := range order {
		out = append(out, byKey[name])
	}
	return out
}

func classify(line string) (models.LogEvent, bool) {
	for _, marker := range ignoreMarkers {
		if strings.Contains(line, marker) {
			return models.LogEvent{}, false
		}
	}
	for _, c := range categories {
		if !containsAny(line, c.keywords) {
			continue
		}
		ev := models.LogEvent{Kind: c.kind, Clock: clockOf(line), Raw: line}
		if !parseFields(&ev, line) {
			ev.Degraded = true
		}
		return ev, true
	}
	return models.LogEvent{}, false
}

// parseFields fills kind-specific fields; false means the strict match failed.
func parseFields(ev *models.LogEvent, line string) bool {
	switch ev.Kind {
	case models.KindKill:
		m := reKill.FindStringSubmatch(line)
		if m == nil {
			return false
		}
		ev.Target = m[1]
		ev.Actor = firstNonEmpty(m[2], m[3])
		ev.Weapon = strings.TrimSpace(m[4])
		ev.Distance = parseFloat(m[5])
	case models.KindHit:
		m := reHit.FindStringSubmatch(line)
		if m == nil {
			return false
		}
		ev.Target = m[1]
		ev.Actor = firstNonEmpty(m[2], m[3])
		ev.Damage = parseFloat(m[4])
		ev.Item = m[5]
		ev.Weapon = strings.TrimSpace(m[6])
		ev.Distance = parseFloat(m[7])
	case models.KindConnect:
		m := reConnect.FindStringSubmatch(line)
		if m == nil {
			return false
		}
		ev.Actor = m[1]
	case models.KindDisconnect:
		m := reDisconnect.FindStringSubmatch(line)
		if m == nil {
			return false
		}
		ev.Actor = m[1]
	case models.KindSuicide:
		m := reSuicide.FindStringSubmatch(line)
		if m == nil {
			return false
		}
		ev.Actor = m[1]
	case models.KindBuild:
		m := reBuild.FindStringSubmatch(line)
		if m == nil {
			return false
		}
		ev.Actor = m[1]
		ev.Action = strings.ToLower(m[2])
		ev.Item = m[3]
	default:
		return false
	}
	return true
}

// dateClock tracks the log date announced by the admin-log header and rolls
// it forward when the wall clock wraps past midnight.
type dateClock struct {
	day  time.Time
	last string
}

func (d *dateClock) header(line string) bool {
	m := reHeader.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	day, err := time.Parse(layoutDate, m[1])
	if err != nil {
		return true
	}
	d.day = day.UTC()
	d.last = m[2]
	return true
}

func (d *dateClock) resolve(clock string) time.Time {
	if d.day.IsZero() || clock == "" {
		return time.Time{}
	}
	c, err := time.Parse(layoutClock, clock)
	if err != nil {
		return time.Time{}
	}
	if d.last != "" && clock < d.last {
		d.day = d.day.AddDate(0, 0, 1)
	}
	d.last = clock
	return d.day.Add(time.Duration(c.Hour())*time.Hour +
		time.Duration(c.Minute())*time.Minute +
		time.Duration(c.Second())*time.Second)
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\r")
	}
	return lines
}

func clockOf(line string) string {
	if m := reClock.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func removeString(ss []string, want string) []string {
	out := ss[:0]
	for _, s := range ss {
		if s != want {
			out = append(out, s)
		}
	}
	return out
}
