package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/hostdiag/internal/config"
	"github.com/hugo-lorenzo-mato/hostdiag/internal/diagnostics"
)

type snapshotBuilder interface {
	Build(ctx context.Context) (*diagnostics.Snapshot, error)
}

type metricsCollector interface {
	Collect() diagnostics.SystemMetrics
}

// Replaced in tests.
var (
	newBuilder = func() snapshotBuilder { return diagnostics.NewBuilder() }
	newMetrics = func() metricsCollector { return diagnostics.NewSystemMetricsCollector() }
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print a diagnostics snapshot of this host",
	Long: `Build one diagnostics snapshot and print it.

Examples:
  hostdiag snapshot
  hostdiag snapshot --format json
  hostdiag snapshot --format yaml --output snapshot.yaml`,
	RunE: runSnapshot,
}

var (
	outputFormat string
	outputPath   string
)

func addOutputFlags(c *cobra.Command) {
	c.Flags().StringVarP(&outputFormat, "format", "f", formatText,
		"Output format (text, json, yaml)")
	c.Flags().StringVarP(&outputPath, "output", "o", "",
		"Write to this file instead of stdout (replaced atomically)")
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	addOutputFlags(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd, cfg)
	defer cancel()

	snap, err := newBuilder().Build(ctx)
	if err != nil {
		return err
	}

	var metrics *diagnostics.SystemMetrics
	if outputFormat == formatText || outputFormat == "" {
		m := newMetrics().Collect()
		metrics = &m
	}

	plain := noColor || outputPath != ""
	return writeOutput(cmd.OutOrStdout(), outputPath, snapshotFileMode, func(w io.Writer) error {
		return renderSnapshot(w, outputFormat, snap, metrics, plain)
	})
}

// commandContext bounds a one-shot command by the configured request timeout.
func commandContext(cmd *cobra.Command, cfg *config.Config) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, cfg.Server.RequestTimeoutDuration())
}
