package server

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mwantia/chemviz/cmd/chemviz/cli/render"
	config "github.com/mwantia/chemviz/internal/config/server"
	"github.com/mwantia/chemviz/pkg/db/store"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending metadata store migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, s *store.SQLiteStore) error {
				if err := s.Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, s *store.SQLiteStore) error {
				statuses, err := s.MigrationStatus(ctx)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(statuses))
				for _, status := range statuses {
					rows = append(rows, []string{strconv.Itoa(status.Version), status.Description, strconv.FormatBool(status.Applied)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), render.Table([]string{"Version", "Description", "Applied"}, rows))
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Roll back the latest applied migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), func(ctx context.Context, s *store.SQLiteStore) error {
				if err := s.Rollback(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Rolled back latest migration")
				return nil
			})
		},
	})

	return cmd
}

func withStore(ctx context.Context, fn func(context.Context, *store.SQLiteStore) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load server configuration: %w", err)
	}

	s, err := store.NewSQLiteStore(store.SQLiteConfig{
		Path:     cfg.Metadata.SQLite.Path,
		LogLevel: store.ParseLogLevel(cfg.Metadata.SQLite.LogLevel),
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect metadata store: %w", err)
	}
	return fn(ctx, s)
}
