package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.nitrado.net"
	defaultTimeout = 30 * time.Second
	maxRetries     = 3
	maxBodyPreview = 512
	maxFileSize    = 64 << 20
)

// Provider talks to the hosting provider's file server API.
//
// Reads go through a two-step protocol: the control plane issues a short-lived
// download URL which is then fetched. Writes ask the control plane for an
// upload slot and stream the body to the separate transfer endpoint it names.
// Callers see neither step.
type Provider struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
	maxBody    int64
}

var _ FileStore = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL overrides the control plane URL.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			p.baseURL = u
		}
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// NewProvider returns a Provider for one service.
func NewProvider(creds Credentials, opts ...Option) *Provider {
	p := &Provider{
		baseURL:    defaultBaseURL,
		creds:      creds,
		httpClient: &http.Client{Timeout: defaultTimeout},
		sleep:      sleepCtx,
		maxBody:    maxFileSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFactory returns a Factory producing Providers that share opts.
func NewFactory(opts ...Option) Factory {
	return func(c Credentials) FileStore {
		return NewProvider(c, opts...)
	}
}

type listResponse struct {
	Data struct {
		Entries []struct {
			Type       string `json:"type"`
			Path       string `json:"path"`
			Name       string `json:"name"`
			Size       int64  `json:"size"`
			ModifiedAt int64  `json:"modified_at"`
		} `json:"entries"`
	} `json:"data"`
}

type tokenResponse struct {
	Data struct {
		Token struct {
			URL   string `json:"url"`
			Token string `json:"token"`
		} `json:"token"`
	} `json:"data"`
}

// List returns the entries of dir.
func (p *Provider) List(ctx context.Context, dir string) ([]FileInfo, error) {
	var resp listResponse
	q := url.Values{"dir": {dir}}
	if err := p.controlJSON(ctx, http.MethodGet, "file_server/list", q, &resp); err != nil {
		return nil, fmt.Errorf("list %q: %w", dir, err)
	}
	out := make([]FileInfo, 0, len(resp.Data.Entries))
	for _, e := range resp.Data.Entries {
		name := e.Name
		if name == "" {
			name = path.Base(e.Path)
		}
		out = append(out, FileInfo{
			Name:       name,
			Path:       e.Path,
			Size:       e.Size,
			ModifiedAt: time.Unix(e.ModifiedAt, 0).UTC(),
			IsDir:      e.Type == "dir",
		})
	}
	return out, nil
}

// Get downloads the file at filePath.
func (p *Provider) Get(ctx context.Context, filePath string) ([]byte, error) {
	var tok tokenResponse
	q := url.Values{"file": {filePath}}
	if err := p.controlJSON(ctx, http.MethodGet, "file_server/download", q, &tok); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("download token %q: %w", filePath, err)
	}
	if tok.Data.Token.URL == "" {
		return nil, fmt.Errorf("download token %q: empty url", filePath)
	}

	var body []byte
	err := p.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, tok.Data.Token.URL, nil)
		if err != nil {
			return err
		}
		body, err = p.do(req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("download %q: %w", filePath, err)
	}
	return body, nil
}

// Put uploads data to filePath, replacing any existing content.
func (p *Provider) Put(ctx context.Context, filePath string, data []byte) error {
	var tok tokenResponse
	q := url.Values{"path": {path.Dir(filePath)}, "file": {path.Base(filePath)}}
	if err := p.controlJSON(ctx, http.MethodPost, "file_server/upload", q, &tok); err != nil {
		return fmt.Errorf("upload slot %q: %w", filePath, err)
	}
	if tok.Data.Token.URL == "" {
		return fmt.Errorf("upload slot %q: empty url", filePath)
	}

	err := p.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, tok.Data.Token.URL, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/binary")
		req.Header.Set("token", tok.Data.Token.Token)
		_, err = p.do(req)
		return err
	})
	if err != nil {
		return fmt.Errorf("upload %q: %w", filePath, err)
	}
	return nil
}

// controlJSON calls a control plane endpoint under /services/{id}/gameservers/.
func (p *Provider) controlJSON(ctx context.Context, method, endpoint string, q url.Values, dest any) error {
	full := fmt.Sprintf("%s/services/%s/gameservers/%s", p.baseURL, url.PathEscape(p.creds.ServiceID), endpoint)
	if len(q) > 0 {
		full += "?" + q.Encode()
	}
	return p.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, method, full, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+p.creds.Token)
		req.Header.Set("Accept", "application/json")
		body, err := p.do(req)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, dest)
	})
}

func (p *Provider) do(req *http.Request) ([]byte, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBody+1))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if int64(len(body)) > p.maxBody {
			return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, p.maxBody)
		}
		return body, nil
	}
	if int64(len(body)) > p.maxBody {
		body = body[:p.maxBody]
	}
	preview := string(body)
	if len(preview) > maxBodyPreview {
		preview = preview[:maxBodyPreview]
	}
	return nil, &APIError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(preview),
		retryAfter: resp.Header.Get("Retry-After"),
	}
}

// withRetry retries fn on 429 and 5xx with exponential backoff: 1s, 2s, 4s.
func (p *Provider) withRetry(ctx context.Context, fn func() error) error {
	var lastErr *APIError
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := p.sleep(ctx, backoffDelay(attempt, lastErr)); err != nil {
				return err
			}
		}
		err := fn()
		if err == nil {
			return nil
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !errors.Is(apiErr, ErrTransient) {
			return err
		}
		lastErr = apiErr
	}
	return lastErr
}

func backoffDelay(attempt int, lastErr *APIError) time.Duration {
	if lastErr != nil && lastErr.StatusCode == http.StatusTooManyRequests && lastErr.retryAfter != "" {
		if secs, err := strconv.Atoi(lastErr.retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Duration(1<<(attempt-1)) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
