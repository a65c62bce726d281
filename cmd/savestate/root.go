package main

import (
	"github.com/spf13/cobra"

	"github.com/zeusync/savestate/internal/config"
	"github.com/zeusync/savestate/internal/core/observability/log"
	"github.com/zeusync/savestate/internal/injector"
)

// cli carries state shared by subcommands once the root pre-run has loaded
// the configuration.
type cli struct {
	configPath string
	verbose    bool

	cfg *config.Config
	app *injector.App
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "savestate",
		Short:        "Save, inspect and serve entity graph snapshots",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.app != nil {
				_ = c.app.Logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (.yaml, .yml or .toml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newSaveCmd(c))
	root.AddCommand(newInspectCmd(c))
	root.AddCommand(newServeCmd(c))
	return root
}

func (c *cli) setup() error {
	cfg := config.Default()
	if c.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(c.configPath); err != nil {
			return err
		}
	}
	if c.verbose {
		cfg.Log.Level = log.LevelDebug.String()
	}
	c.cfg = cfg
	return nil
}

// application builds the world, engine and server on first use.
func (c *cli) application() (*injector.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	app, err := injector.InitializeApp(c.cfg)
	if err != nil {
		return nil, err
	}
	c.app = app
	return app, nil
}
