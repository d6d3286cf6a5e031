package hub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// View is a sorted projection of the engine's held sequence.
type View struct {
	Materials []*Material `json:"materials"`
	Stats     Stats       `json:"stats"`
	Search    string      `json:"search"`
	Filters   FilterSet   `json:"filters"`
	Sort      SortMode    `json:"sort"`
	FetchedAt time.Time   `json:"fetched_at"`
}

type fetchParams struct {
	search  string
	filters FilterSet
}

// snapshot is an installed fetch result. It is never mutated after install.
type snapshot struct {
	materials  []*Material
	params     fetchParams
	fetchedAt  time.Time
	generation uint64
}

// Engine executes filtered catalog reads and holds the last successfully
// fetched sequence. Sorting and statistics work on the held sequence without
// touching the store.
type Engine struct {
	repo        Repository
	catalog     Catalog
	logger      *slog.Logger
	metrics     MetricsRecorder
	callTimeout time.Duration
	now         func() time.Time

	mu         sync.RWMutex
	issued     uint64
	lastIssued fetchParams
	current    *snapshot
	sort       SortMode
}

// Fetch queries the store for materials matching search and filters and
// replaces the held sequence in one step. On a store failure the previous
// sequence is kept and a *CatalogUnavailableError is returned. When a
// later-issued fetch has already installed its result, this result is
// dropped and ErrFetchSuperseded is returned.
func (e *Engine) Fetch(ctx context.Context, search string, filters FilterSet) error {
	search = CleanSearch(search)
	if err := e.catalog.ValidateFilters(filters); err != nil {
		return err
	}
	params := fetchParams{search: search, filters: filters}

	e.mu.Lock()
	e.issued++
	gen := e.issued
	e.lastIssued = params
	e.mu.Unlock()

	start := e.now()
	callCtx, cancel := withTimeout(ctx, e.callTimeout)
	materials, err := e.repo.QueryMaterials(callCtx, MaterialQuery{Search: search, Filters: filters})
	cancel()
	took := e.now().Sub(start)

	if err != nil {
		if e.installedAfter(gen) {
			e.metrics.FetchCompleted("superseded", took)
			return ErrFetchSuperseded
		}
		e.metrics.FetchCompleted("unavailable", took)
		e.logger.Error("Failed to fetch materials", "search", search, "filters", filters, "err", err)
		return &CatalogUnavailableError{Err: err}
	}

	snap := &snapshot{
		materials:  materials,
		params:     params,
		fetchedAt:  e.now(),
		generation: gen,
	}

	e.mu.Lock()
	if e.current != nil && e.current.generation > gen {
		e.mu.Unlock()
		e.metrics.FetchCompleted("superseded", took)
		e.logger.Debug("Discarded superseded fetch", "generation", gen)
		return ErrFetchSuperseded
	}
	e.current = snap
	e.mu.Unlock()

	e.metrics.FetchCompleted("ok", took)
	e.logger.Debug("Fetched materials", "count", len(materials), "search", search, "took", took)
	return nil
}

// Refresh re-issues the most recently issued fetch. With no prior fetch it
// loads the unfiltered catalog.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.RLock()
	params := e.lastIssued
	e.mu.RUnlock()
	return e.Fetch(ctx, params.search, params.filters)
}

// SetSort changes the ordering used by Sorted and View. It never reads the
// store.
func (e *Engine) SetSort(mode SortMode) error {
	if !mode.IsValid() {
		return &ValidationError{Invalid: []string{"sort"}}
	}
	e.mu.Lock()
	e.sort = mode
	e.mu.Unlock()
	return nil
}

// SortMode returns the current ordering.
func (e *Engine) SortMode() SortMode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sort
}

// Loaded reports whether any fetch has installed a result.
func (e *Engine) Loaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current != nil
}

// Results returns a copy of the held sequence in store order.
func (e *Engine) Results() []*Material {
	snap, _ := e.load()
	return copyMaterials(snap)
}

// Sorted returns a copy of the held sequence in the current sort order.
func (e *Engine) Sorted() []*Material {
	snap, mode := e.load()
	ms := copyMaterials(snap)
	SortMaterials(ms, mode)
	return ms
}

// Stats aggregates the held sequence.
func (e *Engine) Stats() Stats {
	snap, _ := e.load()
	if snap == nil {
		return Stats{}
	}
	return ComputeStats(snap.materials)
}

// View returns the sorted sequence together with its statistics and the
// parameters it was fetched with.
func (e *Engine) View() View {
	snap, mode := e.load()
	v := View{Sort: mode, Materials: copyMaterials(snap)}
	SortMaterials(v.Materials, mode)
	if snap != nil {
		v.Stats = ComputeStats(snap.materials)
		v.Search = snap.params.search
		v.Filters = snap.params.filters
		v.FetchedAt = snap.fetchedAt
	}
	return v
}

func (e *Engine) String() string {
	snap, mode := e.load()
	if snap == nil {
		return "engine(empty)"
	}
	return fmt.Sprintf("engine(%d materials, sort=%s, generation=%d)", len(snap.materials), mode, snap.generation)
}

func (e *Engine) load() (*snapshot, SortMode) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current, e.sort
}

func (e *Engine) installedAfter(gen uint64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current != nil && e.current.generation > gen
}

func copyMaterials(snap *snapshot) []*Material {
	if snap == nil {
		return []*Material{}
	}
	out := make([]*Material, len(snap.materials))
	for i, m := range snap.materials {
		c := *m
		out[i] = &c
	}
	return out
}
