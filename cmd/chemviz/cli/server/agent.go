package server

import (
	"context"
	"fmt"

	"github.com/mwantia/chemviz/internal/agent"
	"github.com/spf13/cobra"

	config "github.com/mwantia/chemviz/internal/config/server"
)

func NewAgentCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Start the ChemViz agent",
		Long: `Start the ChemViz agent.

The agent applies upload retention in the background, ingests CSV files
dropped into the configured inbox, runs the optional retention sweep and
serves metrics when an address is configured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return fmt.Errorf("failed to load server configuration: %w", err)
			}

			return agent.NewAgent(cfg, version).Serve(context.Background())
		},
	}

	return cmd
}
