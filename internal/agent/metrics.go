package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	config "github.com/mwantia/chemviz/internal/config/server"
	"github.com/mwantia/chemviz/pkg/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker reports whether a dependency is usable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

type healthResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// MetricsServer exposes /metrics and /health/ready on agent.metrics_address.
type MetricsServer struct {
	Config  *config.BaseServerConfig `fabric:"inject"`
	Checker HealthChecker            `fabric:"inject"`
	Build   *BuildInfo               `fabric:"inject"`
	Log     log.LoggerService        `fabric:"logger:metrics"`

	server *http.Server
}

func (ms *MetricsServer) Init(ctx context.Context) error {
	addr := ms.Config.Agent.MetricsAddress
	if addr == "" {
		return errors.New("agent.metrics_address is not configured")
	}

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health/ready", ms.ready)

	ms.server = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

// Cleanup closes the listener if Run did not shut it down already.
func (ms *MetricsServer) Cleanup(ctx context.Context) error {
	if err := ms.server.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (ms *MetricsServer) Handler() http.Handler {
	return ms.server.Handler
}

func (ms *MetricsServer) ready(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   ms.Build.Version,
	}
	code := http.StatusOK
	if err := ms.Checker.Health(r.Context()); err != nil {
		resp.Status = "fail"
		resp.Message = err.Error()
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

// Run serves until ctx is cancelled, then shuts the listener down.
func (ms *MetricsServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		ms.Log.Info("Serving metrics on %s", ms.server.Addr)
		if err := ms.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ms.server.Shutdown(shutdown)
}
