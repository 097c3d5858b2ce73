package tokens

import (
	"context"
	"time"

	"docpress/internal/infra/logging"
)

// Repo loads the full token set from the backing store.
type Repo interface {
	LoadTokens(ctx context.Context) (map[string]Entry, error)
}

// Reloader keeps a Cache in sync with a Repo. Load failures leave the
// previous snapshot in place so a database outage does not lock out
// known tokens.
type Reloader struct {
	repo     Repo
	cache    *Cache
	interval time.Duration
}

// NewReloader wires a repo to a cache with the given refresh interval.
func NewReloader(repo Repo, cache *Cache, interval time.Duration) *Reloader {
	return &Reloader{repo: repo, cache: cache, interval: interval}
}

// LoadOnce performs a single synchronous load. The cache is only replaced
// on success.
func (r *Reloader) LoadOnce(ctx context.Context) error {
	m, err := r.repo.LoadTokens(ctx)
	if err != nil {
		return err
	}
	r.cache.Replace(m)
	return nil
}

// Start launches the periodic refresh goroutine. It runs until ctx is
// canceled.
func (r *Reloader) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := r.LoadOnce(ctx); err != nil {
					logging.Warn("Token reload failed", "error", err.Error())
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
