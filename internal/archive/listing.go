package archive

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/community-archive/internal/models"
	appErrors "github.com/noah-isme/community-archive/pkg/errors"
)

// ListingStore holds the last fetched snapshot of materials, newest first.
type ListingStore struct {
	records RecordStore
	sink    Sink
	logger  *zap.Logger

	mu    sync.RWMutex
	items []models.Material

	hookMu sync.Mutex
	hooks  []func([]models.Material)
}

// NewListingStore builds an empty listing.
func NewListingStore(records RecordStore, sink Sink, logger *zap.Logger) *ListingStore {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListingStore{records: records, sink: sink, logger: logger}
}

// OnRefresh registers fn to run with a copy of every replaced snapshot.
func (l *ListingStore) OnRefresh(fn func([]models.Material)) {
	l.hookMu.Lock()
	defer l.hookMu.Unlock()
	l.hooks = append(l.hooks, fn)
}

// Refresh fetches all materials and replaces the snapshot. On failure the
// snapshot is cleared so stale data is never shown.
func (l *ListingStore) Refresh(ctx context.Context) error {
	l.sink.SetLoading(true)
	defer l.sink.SetLoading(false)

	var items []models.Material
	err := l.records.Query(ctx, models.CollectionMaterials, "dateArchived", Descending, &items)
	if err != nil {
		l.logger.Warn("load materials failed", zap.Error(err))
		l.replace(nil)
		return fetchFailed(err)
	}

	l.replace(normalize(items))
	return nil
}

// All returns a copy of the current snapshot.
func (l *ListingStore) All() []models.Material {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return models.CloneMaterials(l.items)
}

// Len returns the snapshot size.
func (l *ListingStore) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Find looks a material up in the snapshot.
func (l *ListingStore) Find(id string) (models.Material, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range l.items {
		if l.items[i].ID == id {
			return l.items[i].Clone(), true
		}
	}
	return models.Material{}, false
}

// patch mutates one material in place under the write lock and returns the
// updated copy. A non-nil error from fn leaves the material untouched.
func (l *ListingStore) patch(id string, fn func(*models.Material) error) (models.Material, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID != id {
			continue
		}
		updated := l.items[i].Clone()
		if err := fn(&updated); err != nil {
			return l.items[i].Clone(), err
		}
		l.items[i] = updated
		return updated.Clone(), nil
	}
	return models.Material{}, appErrors.Clone(appErrors.ErrMaterialNotFound, "")
}

func (l *ListingStore) replace(items []models.Material) {
	if items == nil {
		items = []models.Material{}
	}
	l.mu.Lock()
	l.items = items
	l.mu.Unlock()

	l.hookMu.Lock()
	hooks := slices.Clone(l.hooks)
	l.hookMu.Unlock()
	for _, hook := range hooks {
		hook(models.CloneMaterials(items))
	}
}

// normalize fills empty flag sets and enforces newest-first order with id as
// the tie breaker.
func normalize(items []models.Material) []models.Material {
	for i := range items {
		if items[i].FlaggedBy == nil {
			items[i].FlaggedBy = []string{}
		}
	}
	slices.SortStableFunc(items, func(a, b models.Material) int {
		if c := b.DateArchived.Compare(a.DateArchived); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return items
}
