package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Fetcher retrieves the catalog from the catalog service.
type Fetcher interface {
	FetchCatalog(ctx context.Context) ([]SyntaxEntry, error)
}

// Loader fills a Store from the catalog service, keeping a disk cache as
// fallback.
type Loader struct {
	fetcher Fetcher
	store   *Store
	cache   *Cache // optional
	source  string
	logger  *zap.Logger
}

// NewLoader returns a loader. cache may be nil.
func NewLoader(fetcher Fetcher, store *Store, cache *Cache, source string, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		fetcher: fetcher,
		store:   store,
		cache:   cache,
		source:  source,
		logger:  logger,
	}
}

// Warm loads the cached catalog into the store if the store is empty.
// It reports whether entries were loaded.
func (l *Loader) Warm() bool {
	if l.store.Len() > 0 {
		return false
	}
	payload, ok, err := l.cache.Get()
	if err != nil {
		l.logger.Warn("reading catalog cache", zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	l.store.Replace(payload.Entries)
	l.logger.Info("catalog loaded from cache",
		zap.Int("entries", len(payload.Entries)),
		zap.Time("fetchedAt", payload.FetchedAt))
	return true
}

// Load fetches the catalog and replaces the store content. When the fetch
// fails the cached catalog is used if the store is still empty, and the
// fetch error is returned.
func (l *Loader) Load(ctx context.Context) (int, error) {
	entries, err := l.fetcher.FetchCatalog(ctx)
	if err != nil {
		l.Warm()
		return l.store.Len(), fmt.Errorf("fetching catalog: %w", err)
	}
	l.store.Replace(entries)
	l.logger.Info("catalog loaded", zap.Int("entries", len(entries)), zap.Int("completions", len(l.store.Completions())))
	if err := l.cache.Put(l.source, entries); err != nil {
		l.logger.Warn("writing catalog cache", zap.Error(err))
	}
	return len(entries), nil
}
