package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/zeusync/savestate/internal/core/observability/log"
	"github.com/zeusync/savestate/internal/demo"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		restore bool
		persist bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo party over HTTP and websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.application()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			file := c.cfg.Snapshot.File

			restored := false
			if restore && file != "" {
				if _, err = os.Stat(file); err == nil {
					if _, err = app.Engine.LoadFile(ctx, file); err != nil {
						return err
					}
					restored = true
				} else if !errors.Is(err, os.ErrNotExist) {
					return err
				}
			}
			if !restored {
				if _, err = demo.Populate(app.World, app.Catalog); err != nil {
					return err
				}
			}

			if err = app.Server.Start(ctx, c.cfg.Addr()); err != nil {
				return err
			}
			<-ctx.Done()

			stopCtx, cancel := context.WithTimeout(context.Background(), c.cfg.Server.ShutdownTimeout)
			defer cancel()
			stopErr := app.Server.Stop(stopCtx)
			if persist && file != "" {
				if err = app.Engine.SaveFile(stopCtx, file); err != nil {
					app.Logger.Error("persist failed", log.String("file", file), log.Error(err))
					return errors.Join(stopErr, err)
				}
				app.Logger.Info("snapshot persisted", log.String("file", file))
			}
			return stopErr
		},
	}
	cmd.Flags().BoolVar(&restore, "restore", false, "load snapshot.file before serving")
	cmd.Flags().BoolVar(&persist, "persist", false, "save to snapshot.file on shutdown")
	return cmd
}
