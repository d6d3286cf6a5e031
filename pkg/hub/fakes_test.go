package hub_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tendant/resource-hub/pkg/hub"
	"github.com/tendant/resource-hub/pkg/hub/repo/memory"
	memorystorage "github.com/tendant/resource-hub/pkg/hub/storage/memory"
)

// fakeRepo wraps the in-memory repository with call counting and failure
// injection.
type fakeRepo struct {
	*memory.Repository

	mu          sync.Mutex
	queries     []hub.MaterialQuery
	creates     int
	queryErr    error
	createErr   error
	downloadErr error
	// beforeQuery runs before each query outside the lock.
	beforeQuery func(q hub.MaterialQuery)
	// beforeCreate runs before each insert outside the lock.
	beforeCreate func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{Repository: memory.New()}
}

func (r *fakeRepo) QueryMaterials(ctx context.Context, q hub.MaterialQuery) ([]*hub.Material, error) {
	r.mu.Lock()
	r.queries = append(r.queries, q)
	hook := r.beforeQuery
	r.mu.Unlock()

	if hook != nil {
		hook(q)
	}
	r.mu.Lock()
	err := r.queryErr
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.Repository.QueryMaterials(ctx, q)
}

func (r *fakeRepo) CreateMaterial(ctx context.Context, m *hub.Material) error {
	r.mu.Lock()
	r.creates++
	hook, err := r.beforeCreate, r.createErr
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return err
	}
	return r.Repository.CreateMaterial(ctx, m)
}

func (r *fakeRepo) RecordDownload(ctx context.Context, ev *hub.DownloadEvent) (hub.RecordOutcome, error) {
	r.mu.Lock()
	err := r.downloadErr
	r.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return r.Repository.RecordDownload(ctx, ev)
}

func (r *fakeRepo) queryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queries)
}

func (r *fakeRepo) createCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates
}

func (r *fakeRepo) setQueryErr(err error) {
	r.mu.Lock()
	r.queryErr = err
	r.mu.Unlock()
}

// fakeBlobs wraps the in-memory blob store with call recording and failure
// injection.
type fakeBlobs struct {
	*memorystorage.Backend

	mu        sync.Mutex
	puts      []string
	deletes   []string
	putErr    error
	deleteErr error
	// deleteCtxErr is the state of the context Delete was called with.
	deleteCtxErr error
}

func newFakeBlobs(opts ...memorystorage.Option) *fakeBlobs {
	return &fakeBlobs{Backend: memorystorage.New(opts...)}
}

func (b *fakeBlobs) Put(ctx context.Context, params hub.PutParams) (string, error) {
	b.mu.Lock()
	b.puts = append(b.puts, params.Key)
	err := b.putErr
	b.mu.Unlock()
	if err != nil {
		return "", err
	}
	return b.Backend.Put(ctx, params)
}

func (b *fakeBlobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	b.deletes = append(b.deletes, key)
	b.deleteCtxErr = ctx.Err()
	err := b.deleteErr
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.Backend.Delete(ctx, key)
}

// countingMetrics counts outcomes reported by the core components.
type countingMetrics struct {
	mu          sync.Mutex
	fetches     map[string]int
	submissions map[string]int
	downloads   map[string]int
	orphaned    int
	swept       int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		fetches:     make(map[string]int),
		submissions: make(map[string]int),
		downloads:   make(map[string]int),
	}
}

func (m *countingMetrics) FetchCompleted(outcome string, took time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[outcome]++
}

func (m *countingMetrics) SubmissionCompleted(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions[outcome]++
}

func (m *countingMetrics) DownloadRecorded(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads[outcome]++
}

func (m *countingMetrics) BlobOrphaned() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orphaned++
}

func (m *countingMetrics) BlobSwept() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swept++
}

// failingIdentity fails every lookup.
type failingIdentity struct {
	err error
}

func (f failingIdentity) CurrentIdentity(ctx context.Context) (*hub.Identity, error) {
	return nil, f.err
}

// countingIdentity returns id and counts lookups.
type countingIdentity struct {
	id      *hub.Identity
	lookups atomic.Int32
}

func (c *countingIdentity) CurrentIdentity(ctx context.Context) (*hub.Identity, error) {
	c.lookups.Add(1)
	return c.id, nil
}
