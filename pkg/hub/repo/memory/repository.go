package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/resource-hub/pkg/hub"
)

type downloadKey struct {
	user     uuid.UUID
	material uuid.UUID
}

// Repository implements hub.Repository using in-memory storage
type Repository struct {
	mu        sync.RWMutex
	materials map[uuid.UUID]*hub.Material
	order     []uuid.UUID // insertion order, used to break created_at ties
	profiles  map[uuid.UUID]string
	downloads map[downloadKey]*hub.DownloadEvent
	now       func() time.Time
}

// New creates a new in-memory repository
func New() *Repository {
	return NewWithClock(time.Now)
}

// NewWithClock creates a repository that stamps new materials with now.
func NewWithClock(now func() time.Time) *Repository {
	return &Repository{
		materials: make(map[uuid.UUID]*hub.Material),
		profiles:  make(map[uuid.UUID]string),
		downloads: make(map[downloadKey]*hub.DownloadEvent),
		now:       now,
	}
}

func (r *Repository) QueryMaterials(ctx context.Context, q hub.MaterialQuery) ([]*hub.Material, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	search := hub.CleanSearch(q.Search)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*hub.Material
	// Newest insert first so that equal created_at values come out newest first.
	for i := len(r.order) - 1; i >= 0; i-- {
		m := r.materials[r.order[i]]
		if !hub.Match(m, search, q.Filters) {
			continue
		}
		result = append(result, r.withUploader(m))
	}
	hub.SortMaterials(result, hub.SortRecent)
	return result, nil
}

func (r *Repository) GetMaterial(ctx context.Context, id uuid.UUID) (*hub.Material, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.materials[id]
	if !exists {
		return nil, hub.ErrMaterialNotFound
	}
	return r.withUploader(m), nil
}

// CreateMaterial stores a copy of m. A nil ID and zero timestamps are filled
// in and written back to m.
func (r *Repository) CreateMaterial(ctx context.Context, m *hub.Material) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.now().UTC()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}

	materialCopy := *m
	materialCopy.UploaderName = ""
	if _, exists := r.materials[m.ID]; !exists {
		r.order = append(r.order, m.ID)
	}
	r.materials[m.ID] = &materialCopy
	return nil
}

func (r *Repository) RecordDownload(ctx context.Context, ev *hub.DownloadEvent) (hub.RecordOutcome, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	m, exists := r.materials[ev.MaterialID]
	if !exists {
		return 0, hub.ErrMaterialNotFound
	}
	key := downloadKey{user: ev.UserID, material: ev.MaterialID}
	if _, exists := r.downloads[key]; exists {
		return hub.RecordAlreadyExists, nil
	}

	eventCopy := *ev
	r.downloads[key] = &eventCopy
	m.Downloads++
	m.UpdatedAt = r.now().UTC()
	return hub.RecordInserted, nil
}

func (r *Repository) UpsertProfile(ctx context.Context, p *hub.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles[p.UserID] = p.FullName
	return nil
}

func (r *Repository) ListFilePaths(ctx context.Context) (map[string]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make(map[string]struct{}, len(r.materials))
	for _, m := range r.materials {
		if m.FilePath != "" {
			paths[m.FilePath] = struct{}{}
		}
	}
	return paths, nil
}

// Downloads returns the recorded events for a material, oldest first.
func (r *Repository) Downloads(materialID uuid.UUID) []hub.DownloadEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var events []hub.DownloadEvent
	for key, ev := range r.downloads {
		if key.material == materialID {
			events = append(events, *ev)
		}
	}
	slices.SortFunc(events, func(a, b hub.DownloadEvent) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return events
}

// withUploader returns a copy of m joined with its uploader's display name.
// Caller must hold the lock.
func (r *Repository) withUploader(m *hub.Material) *hub.Material {
	materialCopy := *m
	materialCopy.UploaderName = r.profiles[m.UploaderID]
	return &materialCopy
}
