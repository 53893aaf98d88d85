// Package cmd holds the linkit-engine command line: the API server, migrations and
// one-off maintenance tasks.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func newRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:     "linkit-engine",
		Short:   "LinkIT matchmaking engine",
		Long:    `LinkIT matchmaking engine: profiles, project teams, connection requests and feeds for the chat front end.`,
		Version: version,
		// Running without a subcommand starts the server.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), version)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: ./config.yaml when present)")

	root.AddCommand(serveCmd(version))
	root.AddCommand(migrateCmd(version))
	root.AddCommand(remindCmd(version))
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute(version string) {
	if err := newRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
