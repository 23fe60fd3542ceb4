// Package reload reads the raw file behind a stored upload back into a table.
package reload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mwantia/chemviz/pkg/dataset"
	"github.com/mwantia/chemviz/pkg/db/models"
	"github.com/mwantia/chemviz/pkg/log"
	"github.com/mwantia/chemviz/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chemviz_reload_cache_hits_total",
		Help: "Raw file reloads served from the cache.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chemviz_reload_cache_misses_total",
		Help: "Raw file reloads that read the blob store.",
	})
	unavailableTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chemviz_reload_unavailable_total",
		Help: "Raw file reloads that failed, by reason.",
	}, []string{"reason"})
)

// Reason tells why a raw file could not be reloaded.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonMissing    Reason = "missing"
	ReasonUnreadable Reason = "unreadable"
	ReasonEmpty      Reason = "empty"
	ReasonSchema     Reason = "schema"
)

// Result is either a loaded table or the reason it is unavailable.
type Result struct {
	Table  *dataset.Table
	Reason Reason
	Err    error
}

func (r Result) Available() bool {
	return r.Table != nil
}

func loaded(t *dataset.Table) Result {
	return Result{Table: t}
}

func unavailable(reason Reason, err error) Result {
	unavailableTotal.WithLabelValues(string(reason)).Inc()
	return Result{Reason: reason, Err: err}
}

type Options struct {
	CacheSize int
	CacheTTL  time.Duration
}

// Loader caches successfully parsed tables by blob reference. Blobs are
// immutable, so a cached entry only goes stale when the upload is deleted.
type Loader struct {
	blobs storage.BlobStore
	cache *expirable.LRU[string, *dataset.Table]
	log   log.LoggerService
}

func NewLoader(opts Options, blobs storage.BlobStore, logger log.LoggerService) *Loader {
	loader := &Loader{blobs: blobs, log: logger}
	if opts.CacheSize > 0 {
		loader.cache = expirable.NewLRU[string, *dataset.Table](opts.CacheSize, nil, opts.CacheTTL)
	}
	return loader
}

// Load returns the schema-validated raw table of an upload. Failures are
// reported in the Result, never as an error.
func (l *Loader) Load(ctx context.Context, upload *models.Upload) Result {
	if l.cache != nil {
		if table, ok := l.cache.Get(upload.FileRef); ok {
			cacheHitsTotal.Inc()
			return loaded(table)
		}
		cacheMissesTotal.Inc()
	}

	result := l.load(ctx, upload.FileRef)
	if !result.Available() {
		l.log.Warn("Raw file of upload %d is unavailable (%s): %v", upload.ID, result.Reason, result.Err)
		return result
	}

	if l.cache != nil {
		l.cache.Add(upload.FileRef, result.Table)
	}
	return result
}

// Forget drops a cached table, used when its upload is deleted.
func (l *Loader) Forget(ref string) {
	if l.cache != nil {
		l.cache.Remove(ref)
	}
}

func (l *Loader) load(ctx context.Context, ref string) Result {
	reader, err := l.blobs.Open(ctx, ref)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return unavailable(ReasonMissing, err)
		}
		return unavailable(ReasonUnreadable, err)
	}
	defer reader.Close()

	table, err := dataset.ParseCSV(reader)
	if err != nil {
		return unavailable(ReasonUnreadable, fmt.Errorf("failed to parse raw file: %w", err))
	}
	if table.Len() == 0 {
		return unavailable(ReasonEmpty, dataset.ErrNoRows)
	}

	table, err = dataset.ValidateSchema(table)
	if err != nil {
		return unavailable(ReasonSchema, err)
	}
	return loaded(table)
}
