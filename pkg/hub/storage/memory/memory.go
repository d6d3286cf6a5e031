package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tendant/resource-hub/pkg/hub"
)

// ErrObjectNotFound is returned for keys that were never stored or were deleted.
var ErrObjectNotFound = errors.New("object not found")

type object struct {
	data       []byte
	mimeType   string
	modifiedAt time.Time
}

// Backend is an in-memory implementation of the hub.BlobStore interface
type Backend struct {
	mu        sync.RWMutex
	objects   map[string]*object
	urlPrefix string
	now       func() time.Time
}

// Option configures the in-memory backend
type Option func(*Backend)

// WithURLPrefix sets the prefix of returned URLs. Defaults to "memory://".
func WithURLPrefix(prefix string) Option {
	return func(b *Backend) {
		b.urlPrefix = prefix
	}
}

// WithClock sets the clock used for modification times.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

// New creates a new in-memory storage backend
func New(opts ...Option) *Backend {
	b := &Backend{
		objects:   make(map[string]*object),
		urlPrefix: "memory://",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Put stores the content under params.Key
func (b *Backend) Put(ctx context.Context, params hub.PutParams) (string, error) {
	data, err := io.ReadAll(params.Reader)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	mimeType := params.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[params.Key] = &object{data: data, mimeType: mimeType, modifiedAt: b.now()}
	return b.urlPrefix + params.Key, nil
}

// Open returns the stored content
func (b *Backend) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[key]
	if !exists {
		return nil, "", ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.mimeType, nil
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[key]; !exists {
		return ErrObjectNotFound
	}
	delete(b.objects, key)
	return nil
}

// List returns the stored blobs under prefix in key order
func (b *Backend) List(ctx context.Context, prefix string) ([]hub.BlobInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var infos []hub.BlobInfo
	for key, obj := range b.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		infos = append(infos, hub.BlobInfo{Key: key, Size: int64(len(obj.data)), ModifiedAt: obj.modifiedAt})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Exists reports whether key is stored
func (b *Backend) Exists(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.objects[key]
	return exists
}
