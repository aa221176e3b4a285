package sink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dashboard_sync/internal/logger"
	"dashboard_sync/internal/models"
)

var (
	evKill    = models.LogEvent{Kind: models.KindKill, Actor: "Alice", Target: "Bob", Weapon: "M4A1", Distance: 12, Raw: "k"}
	evConnect = models.LogEvent{Kind: models.KindConnect, Actor: "Carol", Raw: "c"}
	evBuild   = models.LogEvent{Kind: models.KindBuild, Actor: "Eve", Action: "placed", Item: "Fence", Raw: "b"}
)

type recordingPoster struct {
	mu    sync.Mutex
	posts []string // channel:raw
	err   error
}

func (p *recordingPoster) Post(_ context.Context, channelID string, ev models.LogEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, channelID+":"+ev.Raw)
	return p.err
}

func TestChannelFor(t *testing.T) {
	ch := models.Channels{Combat: "c1", Session: "s1", Suicide: "x1", Build: "b1"}
	cases := map[models.EventKind]string{
		models.KindKill:       "c1",
		models.KindHit:        "c1",
		models.KindConnect:    "s1",
		models.KindDisconnect: "s1",
		models.KindSuicide:    "x1",
		models.KindBuild:      "b1",
		"other":               "",
	}
	for kind, want := range cases {
		if got := ChannelFor(ch, kind); got != want {
			t.Errorf("%s: want %q, got %q", kind, want, got)
		}
	}
}

func TestRouter_PostsInOrderAndSkipsUnconfigured(t *testing.T) {
	poster := &recordingPoster{}
	r := NewRouter(poster, nil, time.Second, logger.Nop())
	inst := models.ManagedInstance{ID: 1, Channels: models.Channels{Combat: "combat", Session: "session"}}

	r.Deliver(context.Background(), inst, []models.LogEvent{evConnect, evKill, evBuild})
	r.Wait()

	want := []string{"session:c", "combat:k"}
	if len(poster.posts) != len(want) {
		t.Fatalf("want %v, got %v", want, poster.posts)
	}
	for i := range want {
		if poster.posts[i] != want[i] {
			t.Errorf("post %d: want %q, got %q", i, want[i], poster.posts[i])
		}
	}
}

// slowPoster delays the post of one raw line.
type slowPoster struct {
	recordingPoster
	slowRaw string
	delay   time.Duration
}

func (p *slowPoster) Post(ctx context.Context, channelID string, ev models.LogEvent) error {
	if ev.Raw == p.slowRaw {
		time.Sleep(p.delay)
	}
	return p.recordingPoster.Post(ctx, channelID, ev)
}

func TestRouter_ConsecutiveDeliveriesKeepLogOrder(t *testing.T) {
	poster := &slowPoster{slowRaw: "a1", delay: 100 * time.Millisecond}
	r := NewRouter(poster, nil, time.Second, logger.Nop())
	inst := models.ManagedInstance{ID: 1, Channels: models.Channels{Session: "s"}}
	other := models.ManagedInstance{ID: 2, Channels: models.Channels{Session: "s"}}

	ev := func(raw string) models.LogEvent { return models.LogEvent{Kind: models.KindConnect, Raw: raw} }
	r.Deliver(context.Background(), inst, []models.LogEvent{ev("a1"), ev("a2")})
	r.Deliver(context.Background(), inst, []models.LogEvent{ev("b1")})
	r.Deliver(context.Background(), other, []models.LogEvent{ev("x1")})
	r.Wait()

	poster.mu.Lock()
	defer poster.mu.Unlock()
	var got []string
	for _, p := range poster.posts {
		if p != "s:x1" {
			got = append(got, p)
		}
	}
	want := []string{"s:a1", "s:a2", "s:b1"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("want %v, got %v", want, got)
	}
	// another instance is not held back by a slow one
	if len(poster.posts) != 4 || poster.posts[0] != "s:x1" {
		t.Errorf("other instance must post independently, got %v", poster.posts)
	}
	if len(r.tails) != 0 {
		t.Errorf("finished deliveries must be forgotten, got %d", len(r.tails))
	}
}

func TestRouter_PostFailureIsNotFatal(t *testing.T) {
	poster := &recordingPoster{err: errors.New("down")}
	r := NewRouter(poster, nil, time.Second, logger.Nop())
	inst := models.ManagedInstance{ID: 1, Channels: models.Channels{Combat: "c", Session: "s"}}

	// a canceled caller context does not stop background posts
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Deliver(ctx, inst, []models.LogEvent{evKill, evConnect})
	r.Wait()
	if len(poster.posts) != 2 {
		t.Errorf("every event must be attempted, got %v", poster.posts)
	}
}

func TestRouter_BroadcastsToHub(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(7)
	other := hub.Subscribe(8)
	defer other.Close()

	r := NewRouter(nil, hub, time.Second, logger.Nop())
	r.Deliver(context.Background(), models.ManagedInstance{ID: 7}, []models.LogEvent{evKill, evBuild})

	for _, want := range []string{"k", "b"} {
		select {
		case ev := <-sub.C:
			if ev.Raw != want {
				t.Errorf("want %q, got %q", want, ev.Raw)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %q not received", want)
		}
	}
	select {
	case ev := <-other.C:
		t.Errorf("other instance received %+v", ev)
	default:
	}

	sub.Close()
	sub.Close()
	if _, ok := <-sub.C; ok {
		t.Errorf("channel must be closed")
	}
	if hub.Subscribers(7) != 0 {
		t.Errorf("subscription not removed")
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(1)
	defer sub.Close()

	events := make([]models.LogEvent, subscriberBuffer+5)
	done := make(chan struct{})
	go func() {
		hub.Broadcast(1, events)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked")
	}
	if hub.Dropped() != 5 {
		t.Errorf("want 5 dropped, got %d", hub.Dropped())
	}
}

// postedMessage is the subset of Discord's create-message body the tests read.
type postedMessage struct {
	Content string `json:"content"`
}

func writeMessage(w http.ResponseWriter, channelID string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"id":"900","channel_id":"` + channelID + `","content":"ok"}`))
}

func newTestPoster(t *testing.T, srv *httptest.Server) *DiscordPoster {
	t.Helper()
	p, err := NewDiscordPoster(srv.URL, "bot-token", time.Second)
	if err != nil {
		t.Fatalf("NewDiscordPoster: %v", err)
	}
	return p
}

func TestDiscordPoster_Post(t *testing.T) {
	var (
		gotAuth, gotPath string
		gotBody          postedMessage
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeMessage(w, "123")
	}))
	defer srv.Close()

	if err := newTestPoster(t, srv).Post(context.Background(), "123", evKill); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if gotAuth != "Bot bot-token" {
		t.Errorf("auth header: %q", gotAuth)
	}
	if gotPath != "/channels/123/messages" {
		t.Errorf("path: %q", gotPath)
	}
	if gotBody.Content != evKill.Summary() {
		t.Errorf("content: %q", gotBody.Content)
	}
}

func TestDiscordPoster_TruncatesLongContent(t *testing.T) {
	var got postedMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeMessage(w, "1")
	}))
	defer srv.Close()

	long := models.LogEvent{Kind: models.KindBuild, Actor: strings.Repeat("A", 3000), Action: "placed", Item: "Fence"}
	if err := newTestPoster(t, srv).Post(context.Background(), "1", long); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if len(got.Content) != maxContentLen {
		t.Errorf("content length: want %d, got %d", maxContentLen, len(got.Content))
	}
}

func TestDiscordPoster_RetriesWhenRateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"You are being rate limited.","retry_after":0.01,"global":false}`))
			return
		}
		writeMessage(w, "1")
	}))
	defer srv.Close()

	if err := newTestPoster(t, srv).Post(context.Background(), "1", evConnect); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("want 2 calls, got %d", got)
	}
}

func TestDiscordPoster_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message": "Missing Access", "code": 50001}`))
	}))
	defer srv.Close()

	if err := newTestPoster(t, srv).Post(context.Background(), "1", evConnect); err == nil {
		t.Fatal("want error for 403")
	}
}

func TestNewDiscordPoster_BadBaseURL(t *testing.T) {
	if _, err := NewDiscordPoster("http://bad host\x7f", "t", time.Second); err == nil {
		t.Fatal("want error for unparsable base url")
	}
}
