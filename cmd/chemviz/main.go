package main

import (
	"fmt"
	"os"

	"github.com/mwantia/chemviz/cmd/chemviz/cli"
	"github.com/mwantia/chemviz/cmd/chemviz/cli/client"
	"github.com/mwantia/chemviz/cmd/chemviz/cli/server"
)

var (
	version = "1.0"
	commit  = "main"
)

func main() {
	info := cli.VersionInfo{
		Version: version,
		Commit:  commit,
	}
	root := cli.NewRootCommand(info)

	root.AddCommand(cli.NewVersionCommand(info))

	root.AddCommand(server.NewAgentCommand(info.Version))
	root.AddCommand(server.NewConfigCommand())
	root.AddCommand(server.NewMigrateCommand())

	root.AddCommand(client.NewUploadCommand())
	root.AddCommand(client.NewHistoryCommand())
	root.AddCommand(client.NewRowsCommand())
	root.AddCommand(client.NewReportCommand(info.Version))
	root.AddCommand(client.NewDeleteCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
