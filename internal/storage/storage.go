package storage

import (
	"errors"
	"sync"
	"time"

	"github.com/eugenenazirov/music-school-planner/internal/calculator"
	"github.com/eugenenazirov/music-school-planner/internal/catalog"
)

var (
	// ErrNoCatalog indicates nothing has been loaded yet.
	ErrNoCatalog = errors.New("no catalog loaded")
	// ErrInvalidCatalog indicates a nil catalog was offered for storage.
	ErrInvalidCatalog = errors.New("catalog must not be nil")
)

// Snapshot is a loaded catalog together with where and when it was read.
type Snapshot struct {
	Catalog  *catalog.Catalog
	Source   string
	LoadedAt time.Time
}

// Storage provides access to the catalog used by the calculator.
type Storage interface {
	GetCatalog() (Snapshot, error)
	SetCatalog(cat *catalog.Catalog, source string, loadedAt time.Time) error
}

// MemoryStorage keeps the current catalog in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu      sync.RWMutex
	current Snapshot
}

// NewMemoryStorage initialises storage with a copy of cat. A nil cat leaves
// the storage empty until SetCatalog is called.
func NewMemoryStorage(cat *catalog.Catalog, source string, loadedAt time.Time) *MemoryStorage {
	s := &MemoryStorage{}
	if cat != nil {
		s.current = Snapshot{Catalog: cloneCatalog(cat), Source: source, LoadedAt: loadedAt}
	}
	return s
}

// GetCatalog returns a defensive copy of the current catalog.
func (s *MemoryStorage) GetCatalog() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current.Catalog == nil {
		return Snapshot{}, ErrNoCatalog
	}
	out := s.current
	out.Catalog = cloneCatalog(s.current.Catalog)
	return out, nil
}

// SetCatalog replaces the current catalog with a copy of cat.
func (s *MemoryStorage) SetCatalog(cat *catalog.Catalog, source string, loadedAt time.Time) error {
	if cat == nil {
		return ErrInvalidCatalog
	}
	snap := Snapshot{Catalog: cloneCatalog(cat), Source: source, LoadedAt: loadedAt}

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	return nil
}

func cloneCatalog(src *catalog.Catalog) *catalog.Catalog {
	out := &catalog.Catalog{
		Prices:      src.Prices.Clone(),
		Enrollments: make(calculator.Enrollments, len(src.Enrollments)),
		Specials:    make(map[calculator.ActivityKey]calculator.Activity, len(src.Specials)),
		Stats:       src.Stats,
	}
	for k, v := range src.Enrollments {
		out.Enrollments[k] = v
	}
	for k, v := range src.Specials {
		out.Specials[k] = v
	}
	return out
}
