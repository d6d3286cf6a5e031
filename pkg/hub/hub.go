package hub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/resource-hub/pkg/hub/objectkey"
)

// DefaultCallTimeout bounds each round trip to a store or the identity provider.
const DefaultCallTimeout = 15 * time.Second

// Hub wires the stores and the identity provider into the catalog engine,
// the contribution pipeline and the download tracker.
type Hub struct {
	repository  Repository
	blobStore   BlobStore
	identity    IdentityProvider
	catalog     Catalog
	keys        objectkey.Generator
	logger      *slog.Logger
	metrics     MetricsRecorder
	callTimeout time.Duration
	now         func() time.Time
}

// Option represents a functional option for configuring the hub
type Option func(*Hub)

// WithRepository sets the metadata store
func WithRepository(repo Repository) Option {
	return func(h *Hub) {
		h.repository = repo
	}
}

// WithBlobStore sets the object storage backend
func WithBlobStore(store BlobStore) Option {
	return func(h *Hub) {
		h.blobStore = store
	}
}

// WithIdentityProvider sets the source of the current caller
func WithIdentityProvider(p IdentityProvider) Option {
	return func(h *Hub) {
		h.identity = p
	}
}

// WithCatalog replaces the default enumerations
func WithCatalog(c Catalog) Option {
	return func(h *Hub) {
		h.catalog = c
	}
}

// WithKeyGenerator sets how blob paths are derived
func WithKeyGenerator(g objectkey.Generator) Option {
	return func(h *Hub) {
		h.keys = g
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m MetricsRecorder) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

// WithCallTimeout bounds every external call. Zero disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(h *Hub) {
		h.callTimeout = d
	}
}

// WithClock overrides time.Now, used for blob paths and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		h.now = now
	}
}

// New creates a hub with the given options. A repository is required; the
// blob store is only required by the pipeline and the sweeper.
func New(options ...Option) (*Hub, error) {
	h := &Hub{
		identity:    Anonymous,
		catalog:     DefaultCatalog(),
		keys:        objectkey.NewTimestampGenerator(),
		metrics:     NewNoopMetrics(),
		callTimeout: DefaultCallTimeout,
		now:         time.Now,
	}

	for _, option := range options {
		option(h)
	}

	if h.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}

	return h, nil
}

// Catalog returns the enumerations used for validation.
func (h *Hub) Catalog() Catalog {
	return h.catalog
}

// Repository returns the metadata store.
func (h *Hub) Repository() Repository {
	return h.repository
}

// BlobStore returns the object storage backend, or nil when none is set.
func (h *Hub) BlobStore() BlobStore {
	return h.blobStore
}

// NewEngine creates a catalog engine holding its own result sequence.
func (h *Hub) NewEngine() *Engine {
	return &Engine{
		repo:        h.repository,
		catalog:     h.catalog,
		logger:      h.logger.With("component", "catalog"),
		metrics:     h.metrics,
		callTimeout: h.callTimeout,
		now:         h.now,
		sort:        SortRecent,
	}
}

// Pipeline returns the contribution pipeline.
func (h *Hub) Pipeline() (*Pipeline, error) {
	if h.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	return &Pipeline{
		repo:        h.repository,
		blobs:       h.blobStore,
		identity:    h.identity,
		catalog:     h.catalog,
		keys:        h.keys,
		logger:      h.logger.With("component", "pipeline"),
		metrics:     h.metrics,
		callTimeout: h.callTimeout,
		now:         h.now,
	}, nil
}

// Tracker returns a download tracker that refreshes r after each recorded
// download. r may be nil.
func (h *Hub) Tracker(r Refresher) *Tracker {
	return &Tracker{
		repo:        h.repository,
		identity:    h.identity,
		refresher:   r,
		logger:      h.logger.With("component", "tracker"),
		metrics:     h.metrics,
		callTimeout: h.callTimeout,
		now:         h.now,
	}
}

// Sweeper returns the orphaned blob collector.
func (h *Hub) Sweeper(grace time.Duration) (*Sweeper, error) {
	if h.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	return &Sweeper{
		repo:    h.repository,
		blobs:   h.blobStore,
		grace:   grace,
		logger:  h.logger.With("component", "sweeper"),
		metrics: h.metrics,
		now:     h.now,
	}, nil
}

// withTimeout bounds ctx by d when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// currentIdentity asks p for the caller. Anonymous callers and lookup
// failures both yield ErrAuthenticationRequired.
func currentIdentity(ctx context.Context, p IdentityProvider, timeout time.Duration, logger *slog.Logger) (*Identity, error) {
	idCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	identity, err := p.CurrentIdentity(idCtx)
	if err != nil {
		logger.Warn("Identity lookup failed", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationRequired, err)
	}
	if identity == nil || identity.ID == uuid.Nil {
		return nil, ErrAuthenticationRequired
	}
	return identity, nil
}
