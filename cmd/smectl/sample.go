package main

import (
	"github.com/spf13/cobra"

	"smechannel/internal/dataprocessing"
	"smechannel/internal/exporter"
	"smechannel/internal/services"
)

func (c *cli) sampleCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print the analysis of the built-in sample dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := dataprocessing.NewPipeline(c.logger).IngestGrid(cmd.Context(), services.SampleSource, dataprocessing.SampleGrid())
			if err != nil {
				return err
			}
			return c.writeSnapshot(cmd, snap, exporter.FormatJSON, out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	return cmd
}
