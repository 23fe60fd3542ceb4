// Package retention keeps the number of stored uploads per owner bounded.
package retention

import (
	"context"
	"fmt"
	"sync"

	"github.com/mwantia/chemviz/pkg/db/models"
	"github.com/mwantia/chemviz/pkg/db/store"
	"github.com/mwantia/chemviz/pkg/log"
	"github.com/mwantia/chemviz/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chemviz_retention_pruned_uploads_total",
		Help: "Uploads deleted because they fell out of the retention window.",
	})
	pruneFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chemviz_retention_failures_total",
		Help: "Retention failures by stage.",
	}, []string{"stage"})
)

const DefaultKeep = 5

// Event announces a committed upload for an owner.
type Event struct {
	Owner    store.Owner
	UploadID uint
}

// Store is the part of the upload store the pruner needs.
type Store interface {
	PruneUploads(ctx context.Context, owner store.Owner, keep int) ([]models.Upload, error)
	ListOwners(ctx context.Context) ([]store.Owner, error)
}

type Options struct {
	Keep      int
	QueueSize int
}

// Pruner consumes Events on a single worker, so prunes never overlap.
type Pruner struct {
	store Store
	blobs storage.BlobStore
	log   log.LoggerService
	keep  int

	mutex  sync.Mutex
	closed bool
	queue  chan Event
}

func NewPruner(opts Options, s Store, blobs storage.BlobStore, logger log.LoggerService) *Pruner {
	if opts.Keep < 1 {
		opts.Keep = DefaultKeep
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 1
	}
	return &Pruner{
		store: s,
		blobs: blobs,
		log:   logger,
		keep:  opts.Keep,
		queue: make(chan Event, opts.QueueSize),
	}
}

// Notify queues an event without blocking. It reports false when the event was
// dropped because the queue is full or the pruner is closed.
func (p *Pruner) Notify(event Event) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		p.log.Warn("Dropping prune event for owner '%s': pruner closed", ownerName(event.Owner))
		return false
	}

	select {
	case p.queue <- event:
		return true
	default:
		pruneFailuresTotal.WithLabelValues("queue_full").Inc()
		p.log.Warn("Dropping prune event for owner '%s': queue full", ownerName(event.Owner))
		return false
	}
}

// Close stops accepting events; Run drains what is queued and returns.
func (p *Pruner) Close() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.closed {
		p.closed = true
		close(p.queue)
	}
}

// Run handles events until the context is cancelled or the pruner is closed
// and drained.
func (p *Pruner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-p.queue:
			if !ok {
				return nil
			}
			if _, err := p.Prune(ctx, event.Owner); err != nil {
				p.log.Error("Failed to prune uploads of owner '%s' after upload %d: %v", ownerName(event.Owner), event.UploadID, err)
			}
		}
	}
}

// Prune deletes every upload of owner outside the newest Keep, then releases
// their blobs. Blob failures are logged; the record is already gone.
func (p *Pruner) Prune(ctx context.Context, owner store.Owner) (int, error) {
	evicted, err := p.store.PruneUploads(ctx, owner, p.keep)
	if err != nil {
		pruneFailuresTotal.WithLabelValues("store").Inc()
		return 0, fmt.Errorf("failed to prune uploads: %w", err)
	}

	for _, upload := range evicted {
		if err := p.blobs.Delete(ctx, upload.FileRef); err != nil {
			pruneFailuresTotal.WithLabelValues("blob").Inc()
			p.log.Warn("Failed to delete file '%s' of pruned upload %d: %v", upload.FileRef, upload.ID, err)
		}
	}

	if len(evicted) > 0 {
		prunedTotal.Add(float64(len(evicted)))
		p.log.Info("Pruned %d upload(s) of owner '%s'", len(evicted), ownerName(owner))
	}
	return len(evicted), nil
}

// Sweep queues an event for every owner that has uploads.
func (p *Pruner) Sweep(ctx context.Context) error {
	owners, err := p.store.ListOwners(ctx)
	if err != nil {
		return fmt.Errorf("failed to list owners: %w", err)
	}

	queued := 0
	for _, owner := range owners {
		if p.Notify(Event{Owner: owner}) {
			queued++
		}
	}
	p.log.Debug("Retention sweep queued %d of %d owner(s)", queued, len(owners))
	return nil
}

func ownerName(owner store.Owner) string {
	if owner == nil {
		return "<anonymous>"
	}
	return *owner
}
