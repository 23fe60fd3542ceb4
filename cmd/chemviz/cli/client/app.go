package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/mwantia/chemviz/internal/app"
	config "github.com/mwantia/chemviz/internal/config/server"
	"github.com/mwantia/chemviz/pkg/ingest"
	"github.com/mwantia/chemviz/pkg/log"
	"github.com/spf13/cobra"
)

// withApp opens the configured stores for the duration of fn. Retention
// events raised by fn are applied before the stores are closed.
func withApp(cmd *cobra.Command, version string, fn func(ctx context.Context, a *app.App) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load server configuration: %w", err)
	}

	a, err := app.Open(ctx, cfg, version, log.NewLoggerService("chemviz", cfg.Log))
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close(context.WithoutCancel(ctx)))
	}()

	return fn(ctx, a)
}

func addOwnerFlag(cmd *cobra.Command, owner *string) {
	cmd.Flags().StringVar(owner, "owner", "", "owner the uploads belong to (default anonymous)")
}

func session(owner string) ingest.Session {
	return ingest.Session{Owner: owner}
}
