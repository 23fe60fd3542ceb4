// Package app wires the chemviz components from a server configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	config "github.com/mwantia/chemviz/internal/config/server"
	"github.com/mwantia/chemviz/pkg/db/store"
	"github.com/mwantia/chemviz/pkg/ingest"
	"github.com/mwantia/chemviz/pkg/log"
	"github.com/mwantia/chemviz/pkg/reload"
	"github.com/mwantia/chemviz/pkg/report"
	"github.com/mwantia/chemviz/pkg/retention"
	"github.com/mwantia/chemviz/pkg/storage"
)

type App struct {
	Config *config.BaseServerConfig
	Log    log.LoggerService

	Store   store.UploadStore
	Blobs   storage.BlobStore
	Loader  *reload.Loader
	Pruner  *retention.Pruner
	Ingest  *ingest.Service
	Reports *report.Renderer
}

// Open connects and migrates the metadata store and builds every service on
// top of it. The retention worker is not started.
func Open(ctx context.Context, cfg *config.BaseServerConfig, version string, logger log.LoggerService) (*App, error) {
	s, err := openStore(ctx, cfg.Metadata)
	if err != nil {
		return nil, err
	}

	blobs, err := storage.NewLocalBlobStore(cfg.Storage.Path)
	if err != nil {
		s.Close()
		return nil, err
	}

	loader := reload.NewLoader(reload.Options{
		CacheSize: cfg.Report.CacheSize,
		CacheTTL:  cfg.Report.CacheDuration(),
	}, blobs, logger.Named("reload"))

	pruner := retention.NewPruner(retention.Options{
		Keep:      cfg.Retention.Keep,
		QueueSize: cfg.Retention.QueueSize,
	}, s, blobs, logger.Named("retention"))

	return &App{
		Config:  cfg,
		Log:     logger,
		Store:   s,
		Blobs:   blobs,
		Loader:  loader,
		Pruner:  pruner,
		Ingest:  ingest.NewService(cfg.Ingest, s, blobs, loader, pruner, logger.Named("ingest")),
		Reports: report.NewRenderer(report.Options{
			Version:       version,
			SnapshotRows:  cfg.Report.SnapshotRows,
			HistogramBins: cfg.Report.HistogramBins,
		}, s, loader, logger.Named("report")),
	}, nil
}

func openStore(ctx context.Context, cfg config.MetadataServerConfig) (store.UploadStore, error) {
	switch cfg.Type {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}

		s, err := store.NewSQLiteStore(store.SQLiteConfig{
			Path:     cfg.SQLite.Path,
			LogLevel: store.ParseLogLevel(cfg.SQLite.LogLevel),
		})
		if err != nil {
			return nil, err
		}
		if err := s.Connect(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to connect metadata store: %w", err)
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to migrate metadata store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported metadata store type '%s'", cfg.Type)
	}
}

// Close stops the retention queue, applies what is still queued and closes
// the metadata store. It must only be called once no worker is consuming the
// queue anymore.
func (a *App) Close(ctx context.Context) error {
	a.Pruner.Close()

	var errs []error
	if err := a.Pruner.Run(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to drain retention queue: %w", err))
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close metadata store: %w", err))
	}
	return errors.Join(errs...)
}
