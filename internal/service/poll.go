package service

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"dashboard_sync/internal/extractor"
	"dashboard_sync/internal/logger"
	"dashboard_sync/internal/models"
	"dashboard_sync/internal/remote"
	"dashboard_sync/internal/repository"
)

// Phase names the tailing state an instance was in when a poll completed.
type Phase string

const (
	PhaseUnpolled Phase = "unpolled" // first poll, backlog suppressed
	PhaseSynced   Phase = "synced"   // cursor found, delta emitted
	PhaseRotated  Phase = "rotated"  // cursor lost shortly after a poll: log rotation
	PhaseResync   Phase = "resync"   // cursor lost after an outage
	PhaseIdle     Phase = "idle"     // log holds no events yet
)

// PollResult summarizes one completed poll.
type PollResult struct {
	Phase      Phase
	LogPath    string
	Emitted    []models.LogEvent
	Suppressed int
	Locations  int
}

// PollService tails each instance's admin log and forwards new events.
type PollService struct {
	state     *StateStore
	cursors   repository.CursorRepo
	locations repository.LocationRepo
	stores    remote.Factory
	sink      EventSink
	grace     time.Duration
	log       *logger.Logger
}

func NewPollService(state *StateStore, cursors repository.CursorRepo, locations repository.LocationRepo,
	stores remote.Factory, sink EventSink, cfg PollConfig, log *logger.Logger) *PollService {
	if log == nil {
		log = logger.Nop()
	}
	return &PollService{
		state:     state,
		cursors:   cursors,
		locations: locations,
		stores:    stores,
		sink:      sink,
		grace:     cfg.RotationGrace,
		log:       log,
	}
}

// PollOnce runs one tailing cycle for inst. On any fetch or persistence error
// nothing is emitted and the cursor is left where it was.
func (s *PollService) PollOnce(ctx context.Context, inst models.ManagedInstance, now time.Time) (PollResult, error) {
	log := s.log.ForInstance(inst.ID)
	store := s.stores(credentialsOf(inst))

	logPath, err := latestLog(ctx, store, inst.LogDir)
	if err != nil {
		return PollResult{}, err
	}
	data, err := store.Get(ctx, logPath)
	if err != nil {
		return PollResult{}, fmt.Errorf("fetch log %q: %w", logPath, err)
	}
	text, err := remote.Text(data)
	if err != nil {
		return PollResult{}, fmt.Errorf("decode log %q: %w", logPath, err)
	}

	events := extractor.Extract(text)

	locs := extractor.Locations(text)
	for i := range locs {
		locs[i].InstanceID = inst.ID
		if locs[i].SeenAt.IsZero() {
			locs[i].SeenAt = now.UTC()
		}
	}
	if err := s.locations.Upsert(ctx, locs); err != nil {
		log.Warnw("location_upsert_failed", "err", err, "count", len(locs))
	}

	cur := s.state.Get(inst.ID)
	fresh, nextLine, phase := advanceCursor(events, cur.LastLine, cur.LastPollAt, now, s.grace)

	next := cur
	next.LastLine = nextLine
	next.LastPollAt = now.UTC()
	if err := s.cursors.Save(ctx, next); err != nil {
		return PollResult{}, err
	}
	s.state.Set(next)

	switch phase {
	case PhaseRotated:
		log.Infow("log_rotated", "log", logPath, "suppressed", len(events))
	case PhaseResync:
		log.Warnw("cursor_lost_after_outage", "log", logPath, "suppressed", len(events),
			"last_poll", cur.LastPollAt)
	case PhaseUnpolled:
		log.Infow("initial_sync", "log", logPath, "suppressed", len(events))
	}

	if len(fresh) > 0 && s.sink != nil {
		s.sink.Deliver(ctx, inst, fresh)
	}

	return PollResult{
		Phase:      phase,
		LogPath:    logPath,
		Emitted:    fresh,
		Suppressed: len(events) - len(fresh),
		Locations:  len(locs),
	}, nil
}

// advanceCursor computes which events are new relative to cursor and the
// cursor to store afterwards. It never emits a backlog: only the delta between
// two consecutive successful polls with a stable cursor is returned.
func advanceCursor(events []models.LogEvent, cursor string, lastPoll, now time.Time, grace time.Duration) ([]models.LogEvent, string, Phase) {
	if len(events) == 0 {
		if cursor == "" {
			return nil, "", PhaseUnpolled
		}
		return nil, cursor, PhaseIdle
	}
	last := events[len(events)-1].Raw

	if cursor == "" {
		return nil, last, PhaseUnpolled
	}
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Raw == cursor {
			return events[i+1:], last, PhaseSynced
		}
	}
	if !lastPoll.IsZero() && now.Sub(lastPoll) <= grace {
		return nil, last, PhaseRotated
	}
	return nil, last, PhaseResync
}

// latestLog picks the most recently modified admin log in dir.
func latestLog(ctx context.Context, store remote.FileStore, dir string) (string, error) {
	entries, err := store.List(ctx, dir)
	if err != nil {
		return "", fmt.Errorf("list %q: %w", dir, err)
	}
	var logs []remote.FileInfo
	for _, e := range entries {
		if !e.IsDir && isAdminLog(e.Name) {
			logs = append(logs, e)
		}
	}
	if len(logs) == 0 {
		return "", fmt.Errorf("%w in %q", errNoLogFile, dir)
	}
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].ModifiedAt.Equal(logs[j].ModifiedAt) {
			return logs[i].ModifiedAt.After(logs[j].ModifiedAt)
		}
		return logs[i].Name > logs[j].Name
	})
	if logs[0].Path != "" {
		return logs[0].Path, nil
	}
	return path.Join(dir, logs[0].Name), nil
}

func isAdminLog(name string) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, ".adm") || strings.HasSuffix(n, ".adm.gz")
}

func credentialsOf(inst models.ManagedInstance) remote.Credentials {
	return remote.Credentials{ServiceID: inst.ServiceID, Token: inst.APIToken}
}
