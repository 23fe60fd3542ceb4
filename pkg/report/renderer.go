package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mwantia/chemviz/pkg/db/models"
	"github.com/mwantia/chemviz/pkg/db/store"
	"github.com/mwantia/chemviz/pkg/log"
	"github.com/mwantia/chemviz/pkg/reload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chemviz_report_renders_total",
		Help: "Rendered reports by outcome.",
	}, []string{"outcome"})
	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "chemviz_report_render_duration_seconds",
		Help:    "Time spent building and drawing a report.",
		Buckets: prometheus.DefBuckets,
	})
)

// ErrNoUploads is returned when an owner has nothing to report on.
var ErrNoUploads = errors.New("no datasets available")

// Store is the part of the upload store the renderer reads.
type Store interface {
	GetUpload(ctx context.Context, owner store.Owner, id uint) (*models.Upload, error)
	LatestUpload(ctx context.Context, owner store.Owner) (*models.Upload, error)
}

type Options struct {
	Version       string
	SnapshotRows  int
	HistogramBins int
}

// Output is a rendered report.
type Output struct {
	UploadID uint
	FileName string
	Data     []byte
	// Degraded is set when the raw file could not be reloaded.
	Degraded bool
}

type Renderer struct {
	opts   Options
	store  Store
	loader *reload.Loader
	log    log.LoggerService

	now func() time.Time
}

func NewRenderer(opts Options, s Store, loader *reload.Loader, logger log.LoggerService) *Renderer {
	return &Renderer{
		opts:   opts,
		store:  s,
		loader: loader,
		log:    logger,
		now:    time.Now,
	}
}

// Render builds the report of one upload of owner. An unknown upload yields
// store.ErrNotFound.
func (r *Renderer) Render(ctx context.Context, owner store.Owner, id uint) (*Output, error) {
	upload, err := r.store.GetUpload(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return r.render(ctx, upload)
}

// RenderLatest builds the report of the newest upload of owner.
func (r *Renderer) RenderLatest(ctx context.Context, owner store.Owner) (*Output, error) {
	upload, err := r.store.LatestUpload(ctx, owner)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoUploads
		}
		return nil, err
	}
	return r.render(ctx, upload)
}

func (r *Renderer) render(ctx context.Context, upload *models.Upload) (*Output, error) {
	start := time.Now()
	defer func() {
		renderDuration.Observe(time.Since(start).Seconds())
	}()

	raw := r.loader.Load(ctx, upload)
	now := r.now()

	doc := Build(Input{
		Upload:        upload,
		Raw:           raw,
		GeneratedAt:   now,
		Version:       r.opts.Version,
		SnapshotRows:  r.opts.SnapshotRows,
		HistogramBins: r.opts.HistogramBins,
	})

	var buf bytes.Buffer
	if err := WritePDF(&buf, doc, now); err != nil {
		rendersTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("failed to render report of upload %d: %w", upload.ID, err)
	}

	outcome := "full"
	if !raw.Available() {
		outcome = "degraded"
	}
	rendersTotal.WithLabelValues(outcome).Inc()
	r.log.Debug("Rendered %s report of upload %d (%d bytes)", outcome, upload.ID, buf.Len())

	return &Output{
		UploadID: upload.ID,
		FileName: FileName(upload.ID),
		Data:     buf.Bytes(),
		Degraded: !raw.Available(),
	}, nil
}
