package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"smechannel/internal/config"
	"smechannel/internal/dataprocessing"
	"smechannel/internal/exporter"
	"smechannel/internal/files"
	"smechannel/internal/validation"
	"smechannel/pkg/contracts/domain"
)

func (c *cli) analyzeCmd() *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "analyze <file|dir>",
		Short: "Analyze a policy export and print the snapshot",
		Long: `Reads a CSV or Excel policy export, resolves its columns and prints
the resulting snapshot. Given a directory, the most recently modified
export in it is analyzed.

Examples:
  smectl analyze policies.csv
  smectl analyze ./exports
  smectl analyze book.xlsx --format xlsx --out summary.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, ok := exporter.ParseFormat(format)
			if !ok {
				return fmt.Errorf("unsupported format %q (want one of %s)", format, strings.Join(exporter.SupportedFormats, ", "))
			}

			path, err := resolveInput(args[0])
			if err != nil {
				return err
			}
			c.logger.DebugContext(cmd.Context(), "analyzing export", slog.String("file", path))

			if err := validation.NewFileValidator(config.DefaultMaxUploadBytes, c.logger).ValidateInputFile(path); err != nil {
				return err
			}

			snap, err := dataprocessing.NewPipeline(c.logger).IngestFile(cmd.Context(), path)
			if err != nil {
				var schemaErr *dataprocessing.SchemaError
				if errors.As(err, &schemaErr) {
					return fmt.Errorf("%s: missing required columns: %s", path, strings.Join(schemaErr.MissingNames(), ", "))
				}
				return err
			}
			c.logWarnings(snap)

			return c.writeSnapshot(cmd, snap, f, out)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(exporter.FormatJSON), "output format: json, csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	return cmd
}

// resolveInput maps a directory argument to its newest policy export
func resolveInput(arg string) (string, error) {
	info, err := os.Stat(arg)
	if err != nil || !info.IsDir() {
		return arg, nil
	}
	latest, err := files.NewDiscovery("").LatestPolicyFile(arg)
	if err != nil {
		return "", err
	}
	return latest.Path, nil
}

func (c *cli) writeSnapshot(cmd *cobra.Command, snap *domain.AnalysisSnapshot, f exporter.Format, out string) error {
	if f == exporter.FormatXLSX && out == "" {
		return errors.New("xlsx output needs --out")
	}

	w, err := c.output(out)
	if err != nil {
		return err
	}

	exp := exporter.NewExporter(config.PathsConfig{}, c.logger)
	if err := exp.Write(cmd.Context(), w, snap, f); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (c *cli) logWarnings(snap *domain.AnalysisSnapshot) {
	for _, cond := range snap.Meta.Conditions {
		c.logger.Warn(cond.Message,
			slog.String("code", string(cond.Code)),
			slog.String("source", snap.Meta.Source))
	}
}
