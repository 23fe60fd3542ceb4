package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mwantia/chemviz/internal/app"
	config "github.com/mwantia/chemviz/internal/config/server"
	"github.com/mwantia/chemviz/pkg/log"
	"github.com/mwantia/fabric/pkg/container"
	"golang.org/x/sync/errgroup"
)

type ChemVizAgent struct {
	mutex sync.RWMutex

	cfg     *config.BaseServerConfig
	sc      *container.ServiceContainer
	log     log.LoggerService
	version string

	app *app.App
}

func NewAgent(cfg *config.BaseServerConfig, version string) *ChemVizAgent {
	return &ChemVizAgent{
		cfg:     cfg,
		sc:      container.NewServiceContainer(),
		log:     log.NewLoggerService("agent", cfg.Log),
		version: version,
	}
}

func (cva *ChemVizAgent) setupServices(ctx context.Context) error {
	a, err := app.Open(ctx, cva.cfg, cva.version, cva.log)
	if err != nil {
		return err
	}
	cva.app = a

	return registerServices(cva.sc, cva.cfg, cva.version, a, cva.log)
}

// Serve runs the retention worker and the optional inbox, sweep and metrics
// services until the context is cancelled or the process is interrupted.
func (cva *ChemVizAgent) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cva.mutex.Lock()
	if err := cva.setupServices(ctx); err != nil {
		cva.mutex.Unlock()
		if cva.app != nil {
			cva.abort()
		}
		return err
	}
	cva.mutex.Unlock()

	sweeper, inbox, metrics, err := cva.resolveServices(ctx)
	if err != nil {
		cva.abort()
		return err
	}

	// The retention worker outlives ctx so queued events are still applied
	// during shutdown; it stops once the queue is closed and drained.
	workerCtx, stopWorker := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorker()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return cva.app.Pruner.Run(workerCtx)
	})
	if sweeper != nil {
		sweeper.Start(gctx)
	}
	if inbox != nil {
		g.Go(func() error {
			return inbox.Run(gctx)
		})
	}
	if metrics != nil {
		g.Go(func() error {
			return metrics.Run(gctx)
		})
	}

	cva.log.Info("ChemViz agent %s started", cva.version)
	<-gctx.Done()
	cva.log.Info("Shutting down ChemViz agent...")

	shutdown, cancelShutdown := context.WithTimeout(context.Background(), cva.cfg.ShutdownDuration())
	defer cancelShutdown()
	stop := context.AfterFunc(shutdown, stopWorker)
	defer stop()

	if sweeper != nil {
		sweeper.Stop()
	}
	cva.app.Pruner.Close()

	var errs []error
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		errs = append(errs, err)
	}

	if err := cva.sc.Cleanup(shutdown); err != nil {
		errs = append(errs, fmt.Errorf("failed to complete service container cleanup: %w", err))
	}
	if err := cva.app.Close(shutdown); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// resolveServices builds the agent services enabled in the config. Disabled
// services are returned as nil.
func (cva *ChemVizAgent) resolveServices(ctx context.Context) (*Sweeper, *Inbox, *MetricsServer, error) {
	var (
		sweeper *Sweeper
		inbox   *Inbox
		metrics *MetricsServer
		err     error
	)

	if cva.cfg.Retention.SweepSchedule != "" {
		if sweeper, err = container.Resolve[*Sweeper](ctx, cva.sc); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to resolve sweeper: %w", err)
		}
	}
	if cva.cfg.Agent.Inbox != "" {
		if inbox, err = container.Resolve[*Inbox](ctx, cva.sc); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to resolve inbox: %w", err)
		}
	}
	if cva.cfg.Agent.MetricsAddress != "" {
		if metrics, err = container.Resolve[*MetricsServer](ctx, cva.sc); err != nil {
			return nil, nil, nil, fmt.Errorf("failed to resolve metrics server: %w", err)
		}
	}
	return sweeper, inbox, metrics, nil
}

// abort releases everything opened so far when startup fails.
func (cva *ChemVizAgent) abort() {
	if err := cva.sc.Cleanup(context.Background()); err != nil {
		cva.log.Warn("Service container cleanup failed: %v", err)
	}
	if err := cva.app.Close(context.Background()); err != nil {
		cva.log.Warn("Failed to close app: %v", err)
	}
}
