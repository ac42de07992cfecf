// Package commands implements the chitieu command line.
package commands

import (
	"context"

	"github.com/spf13/cobra"

	"chitieu/internal/buildinfo"
	"chitieu/internal/cli"
	"chitieu/internal/config"
)

type rootOptions struct {
	configPath string
	envFiles   []string

	// config replaces loading from files and the environment; used by tests.
	config *config.Config
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&rootOptions{})
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "chitieu",
		Short:   "Family expense ledger",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	rootCmd.AddCommand(
		newAddCommand(opts),
		newListCommand(opts),
		newRemoveCommand(opts),
		newClearCommand(opts),
		newSummaryCommand(opts),
		newExportCommand(opts),
		newCategoriesCommand(),
		newServeCommand(opts),
		newWatchCommand(opts),
	)

	return rootCmd
}

// withApp bootstraps the application for one command and closes it afterwards.
func withApp(cmd *cobra.Command, opts *rootOptions, requireEvents bool, run func(ctx context.Context, app *cli.App) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := cli.Bootstrap(ctx, cli.Options{
		ConfigPath:    opts.configPath,
		EnvFiles:      opts.envFiles,
		LogOutput:     cmd.ErrOrStderr(),
		RequireEvents: requireEvents,
		Config:        opts.config,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return run(ctx, app)
}
