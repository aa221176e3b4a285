// Package sink forwards tailed log events to chat channels and live subscribers.
package sink

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dashboard_sync/internal/models"

	"github.com/bwmarrin/discordgo"
)

const (
	maxContentLen = 2000
	// maxRestRetries bounds discordgo's retries on rate limits and 502s.
	maxRestRetries = 1
)

// Poster publishes one event into a chat channel.
type Poster interface {
	Post(ctx context.Context, channelID string, ev models.LogEvent) error
}

// DiscordPoster posts events through the Discord REST API as a bot.
type DiscordPoster struct {
	session *discordgo.Session
}

var _ Poster = (*DiscordPoster)(nil)

// NewDiscordPoster builds a REST-only bot session. An empty baseURL uses
// Discord's public API; any other value replaces its API root.
func NewDiscordPoster(baseURL, token string, timeout time.Duration) (*DiscordPoster, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := http.DefaultTransport
	if base := strings.TrimRight(strings.TrimSpace(baseURL), "/"); base != "" {
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("discord base url: %w", err)
		}
		transport = &apiRootTransport{root: u, next: transport}
	}
	session.Client = &http.Client{Timeout: timeout, Transport: transport}
	session.MaxRestRetries = maxRestRetries
	session.ShouldRetryOnRateLimit = true
	return &DiscordPoster{session: session}, nil
}

// Post sends ev.Summary() to channelID.
func (p *DiscordPoster) Post(ctx context.Context, channelID string, ev models.LogEvent) error {
	content := ev.Summary()
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}
	if _, err := p.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("post to channel %s: %w", channelID, err)
	}
	return nil
}

// apiRootTransport rewrites requests for discordgo's API root onto root.
type apiRootTransport struct {
	root *url.URL
	next http.RoundTripper
}

func (t *apiRootTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rest, ok := strings.CutPrefix(req.URL.String(), discordgo.EndpointAPI)
	if !ok {
		return t.next.RoundTrip(req)
	}
	u, err := url.Parse(t.root.String() + "/" + rest)
	if err != nil {
		return nil, err
	}
	out := req.Clone(req.Context())
	out.URL = u
	out.Host = u.Host
	return t.next.RoundTrip(out)
}
