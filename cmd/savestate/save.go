package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zeusync/savestate/internal/core/snapshot"
	"github.com/zeusync/savestate/internal/demo"
)

func newSaveCmd(c *cli) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Build the demo party and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.application()
			if err != nil {
				return err
			}
			if _, err = demo.Populate(app.World, app.Catalog); err != nil {
				return err
			}
			if out == "" {
				out = c.cfg.Snapshot.File
			}
			res, err := app.Engine.Save(cmd.Context(), snapshot.Sinks{File: out})
			if err != nil {
				return err
			}
			if res.Sinks.File != nil {
				return res.Sinks.File
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %d records to %s (%s)\n", res.Records, out, res.Digest)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, defaults to snapshot.file from the config")
	return cmd
}
