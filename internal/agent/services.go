package agent

import (
	"github.com/mwantia/chemviz/internal/app"
	config "github.com/mwantia/chemviz/internal/config/server"
	"github.com/mwantia/chemviz/pkg/db/store"
	"github.com/mwantia/chemviz/pkg/ingest"
	"github.com/mwantia/chemviz/pkg/log"
	"github.com/mwantia/chemviz/pkg/retention"
	"github.com/mwantia/chemviz/pkg/storage"
	"github.com/mwantia/fabric/pkg/container"
)

// BuildInfo carries the running version into injected services.
type BuildInfo struct {
	Version string
}

// registerServices makes the opened app available to the container and
// registers the agent services built from it. Agent services receive their
// dependencies through `fabric:"inject"` fields and their named loggers
// through `fabric:"logger:<name>"` fields.
func registerServices(sc *container.ServiceContainer, cfg *config.BaseServerConfig, version string, a *app.App, logger log.LoggerService) error {
	sc.AddTagProcessor(log.NewLoggerTagProcessor())

	errs := container.Errors{}

	logger.Debug("Registering 'LoggerService'...")
	errs.Add(container.Register[log.LoggerServiceImpl](sc,
		container.With[log.LoggerService](),
		container.WithInstance(logger)))

	logger.Debug("Registering 'BaseServerConfig'...")
	errs.Add(container.Register[*config.BaseServerConfig](sc,
		container.WithInstance(cfg)))
	errs.Add(container.Register[*BuildInfo](sc,
		container.WithInstance(&BuildInfo{Version: version})))

	logger.Debug("Registering 'UploadStore'...")
	errs.Add(container.Register[store.SQLiteStore](sc,
		container.With[store.UploadStore](),
		container.With[HealthChecker](),
		container.WithInstance(a.Store)))

	logger.Debug("Registering 'BlobStore'...")
	errs.Add(container.Register[storage.LocalBlobStore](sc,
		container.With[storage.BlobStore](),
		container.WithInstance(a.Blobs)))

	logger.Debug("Registering 'Pruner'...")
	errs.Add(container.Register[*retention.Pruner](sc,
		container.With[SweepTarget](),
		container.WithInstance(a.Pruner)))

	logger.Debug("Registering 'IngestService'...")
	errs.Add(container.Register[*ingest.Service](sc,
		container.With[Ingester](),
		container.WithInstance(a.Ingest)))

	logger.Debug("Registering agent services...")
	errs.Add(container.Register[*Sweeper](sc, container.AsSingleton()))
	errs.Add(container.Register[*Inbox](sc, container.AsSingleton()))
	errs.Add(container.Register[*MetricsServer](sc, container.AsSingleton()))

	return errs.Errors()
}
