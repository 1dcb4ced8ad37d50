// Command smectl analyzes policy exports and runs channel projections from
// the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"smechannel/internal/config"
	"smechannel/internal/infrastructure"
	"smechannel/pkg/contracts"
)

// cli carries the state shared by every subcommand
type cli struct {
	verbose bool
	logger  *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "smectl",
		Short: "SME channel analytics from the command line",
		Long: `smectl runs the SME channel analyzer without the web dashboard.

It reads policy exports (CSV or Excel), prints the analysis snapshot in
JSON, CSV or XLSX, and projects premium growth for a hiring plan.`,
		Version:       contracts.GetVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if c.verbose {
				level = "debug"
			}
			logger, err := infrastructure.NewLogger(config.LoggingConfig{
				Level:  level,
				Format: "json",
				Output: "console",
			}, c.stderr)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			c.logger = logger
			cmd.SetContext(infrastructure.EnsureTraceID(cmd.Context()))
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate(contracts.GetFullVersionString() + "\n")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging on stderr")

	root.AddCommand(
		c.analyzeCmd(),
		c.projectCmd(),
		c.sampleCmd(),
	)
	return root
}

// output returns the destination for command results: a created file when
// path is set, stdout otherwise.
func (c *cli) output(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{c.stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
