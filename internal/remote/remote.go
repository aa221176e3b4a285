// Package remote abstracts the game host's file server behind List/Get/Put.
package remote

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the path does not exist.
var ErrNotFound = errors.New("remote file not found")

// ErrTooLarge is returned when a response body exceeds the download limit.
var ErrTooLarge = errors.New("remote file too large")

// FileInfo describes one directory entry.
type FileInfo struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	IsDir      bool      `json:"is_dir"`
}

// FileStore is the provider-neutral file server contract.
// Implementations must honor ctx deadlines on every call.
type FileStore interface {
	List(ctx context.Context, dir string) ([]FileInfo, error)
	Get(ctx context.Context, path string) ([]byte, error)
	Put(ctx context.Context, path string, data []byte) error
}

// Credentials identify one hosted game service at the provider.
type Credentials struct {
	ServiceID string
	Token     string
}

// Factory builds the FileStore for one instance's credentials.
type Factory func(c Credentials) FileStore
