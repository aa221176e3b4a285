package remote

import (
	"context"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process FileStore. Tests use its hooks to inject
// latency and failures.
type MemoryStore struct {
	mu    sync.Mutex
	files map[string]memFile
	now   func() time.Time

	// Hooks, all optional. A non-nil return aborts the call.
	BeforeGet  func(ctx context.Context, path string) error
	BeforePut  func(ctx context.Context, path string) error
	BeforeList func(ctx context.Context, dir string) error

	gets, puts int
}

type memFile struct {
	data       []byte
	modifiedAt time.Time
}

var _ FileStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: map[string]memFile{}, now: time.Now}
}

// Seed stores data at p with an explicit modification time.
func (m *MemoryStore) Seed(p string, data []byte, modifiedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[clean(p)] = memFile{data: append([]byte(nil), data...), modifiedAt: modifiedAt}
}

// Snapshot returns a copy of the content at p.
func (m *MemoryStore) Snapshot(p string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[clean(p)]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), f.data...), true
}

// Calls returns how many Get and Put calls completed.
func (m *MemoryStore) Calls() (gets, puts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets, m.puts
}

func (m *MemoryStore) List(ctx context.Context, dir string) ([]FileInfo, error) {
	if m.BeforeList != nil {
		if err := m.BeforeList(ctx, dir); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir = clean(dir)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []FileInfo
	for p, f := range m.files {
		if path.Dir(p) != dir {
			continue
		}
		out = append(out, FileInfo{
			Name:       path.Base(p),
			Path:       p,
			Size:       int64(len(f.data)),
			ModifiedAt: f.modifiedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) Get(ctx context.Context, p string) ([]byte, error) {
	if m.BeforeGet != nil {
		if err := m.BeforeGet(ctx, p); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[clean(p)]
	if !ok {
		return nil, ErrNotFound
	}
	m.gets++
	return append([]byte(nil), f.data...), nil
}

func (m *MemoryStore) Put(ctx context.Context, p string, data []byte) error {
	if m.BeforePut != nil {
		if err := m.BeforePut(ctx, p); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[clean(p)] = memFile{data: append([]byte(nil), data...), modifiedAt: m.now().UTC()}
	m.puts++
	return nil
}

func clean(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	return path.Clean("/" + p)
}
