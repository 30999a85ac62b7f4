package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"orderbot/internal/metrics"
	"orderbot/internal/model"
)

// Loader reads the raw catalog tables.
type Loader interface {
	LoadCatalog(ctx context.Context) (model.CatalogData, error)
}

// Refresher owns the catalog store and rebuilds it on a schedule.
type Refresher struct {
	store    *Store
	loader   Loader
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
	now      func() time.Time

	mu sync.Mutex // serialises refreshes
}

// NewRefresher creates a refresher that publishes into store.
func NewRefresher(store *Store, loader Loader, interval, timeout time.Duration, logger zerolog.Logger) *Refresher {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Refresher{
		store:    store,
		loader:   loader,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// Refresh loads the catalog once and swaps it in. On failure the previous
// snapshot stays published.
func (r *Refresher) Refresh(ctx context.Context) (model.CatalogStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := r.now()
	data, err := r.loader.LoadCatalog(ctx)
	if err != nil {
		metrics.RecordCatalogRefresh(err, 0)
		r.logger.Error().Err(err).Msg("catalog refresh failed, keeping previous snapshot")
		return r.store.Stats(), fmt.Errorf("failed to load catalog: %w", err)
	}
	if data.LoadedAt.IsZero() {
		data.LoadedAt = r.now()
	}

	snap := NewSnapshot(data)
	r.store.Swap(snap)
	stats := snap.Stats()
	metrics.RecordCatalogRefresh(nil, stats.Products)

	r.logger.Info().
		Int("categories", stats.Categories).
		Int("tags", stats.Tags).
		Int("terms", stats.Terms).
		Int("products", stats.Products).
		Dur("took", r.now().Sub(start)).
		Msg("catalog snapshot refreshed")
	return stats, nil
}

// Run refreshes immediately and then on every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	_, _ = r.Refresh(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("catalog refresher stopped")
			return
		case <-ticker.C:
			_, _ = r.Refresh(ctx)
		}
	}
}
