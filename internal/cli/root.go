package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"taskflow/internal/config"
)

// App carries state shared by all subcommands.
type App struct {
	loader     *config.Loader
	configPath string
}

// NewRootCommand builds the taskflow command tree. Running it without a
// subcommand starts the server.
func NewRootCommand() *cobra.Command {
	app := &App{loader: config.NewLoader()}

	serve := newServeCommand(app)
	root := &cobra.Command{
		Use:           "taskflow",
		Short:         "Team task tracking with a fixed approval workflow",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVar(&app.configPath, "config", "", "path to a YAML config file")
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, newStepsCommand(), newTokenCommand(app))
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *App) loadConfig() (config.Config, error) {
	if a.configPath != "" {
		return a.loader.LoadFromFile(a.configPath)
	}
	return a.loader.Load()
}
