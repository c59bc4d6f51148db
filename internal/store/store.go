// Package store persists audit runs and the cross-run geocode cache.
// Two drivers exist: sqlite (default, zero setup) and postgres.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/cavena/mobility-cli/internal/config"
	"github.com/cavena/mobility-cli/internal/model"
	"github.com/cavena/mobility-cli/pkg/geocode"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = eris.New("store: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Site   string          `json:"site,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the audit pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, siteName, city string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, summaries []model.StageSummary, state *model.RunState) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Geocode cache
	LookupGeocode(ctx context.Context, key string) (*geocode.Entry, error)
	StoreGeocode(ctx context.Context, key string, entry geocode.Entry, ttl time.Duration) error
	DeleteExpiredGeocodes(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store selected by configuration and runs migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// CacheAdapter binds a Store and a TTL into the resolver's persistent
// cache interface.
type CacheAdapter struct {
	store Store
	ttl   time.Duration
}

// NewCacheAdapter wires the store's geocode cache table to the resolver.
func NewCacheAdapter(s Store, ttl time.Duration) *CacheAdapter {
	return &CacheAdapter{store: s, ttl: ttl}
}

func (a *CacheAdapter) Lookup(ctx context.Context, key string) (*geocode.Entry, error) {
	return a.store.LookupGeocode(ctx, key)
}

func (a *CacheAdapter) Store(ctx context.Context, key string, entry geocode.Entry) error {
	return a.store.StoreGeocode(ctx, key, entry, a.ttl)
}
