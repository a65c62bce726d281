package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zeusync/savestate/pkg/encoding"
)

func newInspectCmd(c *cli) *cobra.Command {
	var codecName string
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Print the record counts of a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if codecName == "" {
				codecName = c.cfg.Snapshot.Codec
			}
			codec, err := encoding.Lookup(codecName)
			if err != nil {
				return err
			}
			doc, err := encoding.ReadFile(codec, args[0])
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tRECORDS\tNAMED\tROOTS")
			for _, name := range doc.TypeNames() {
				named, roots := 0, 0
				for _, rec := range doc[name] {
					if rec.Path.Kind == encoding.PathNamed {
						named++
					}
					if rec.Parent.IsRoot() {
						roots++
					}
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", name, len(doc[name]), named, roots)
			}
			fmt.Fprintf(tw, "total\t%d\t\t\n", doc.Len())
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&codecName, "codec", "", "codec of FILE, defaults to snapshot.codec from the config")
	return cmd
}
