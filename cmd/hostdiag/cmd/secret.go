package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/hostdiag/internal/config"
	"github.com/hugo-lorenzo-mato/hostdiag/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/hostdiag/internal/logging"
	"github.com/hugo-lorenzo-mato/hostdiag/internal/secrets"
)

type secretFetcher interface {
	Fetch(ctx context.Context, cfg config.SecretsConfig) (*diagnostics.Snapshot, error)
}

// Replaced in tests.
var newFetcher = func(logger *logging.Logger) secretFetcher {
	return secrets.NewFetcher(newBuilder(), secrets.WithLogger(logger))
}

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Fetch the configured vault secret and print it with a snapshot",
	Long: `Read secrets.secret_name from the configured store and print it merged
into a diagnostics snapshot.

Azure Key Vault is reached with a managed identity first and the Azure CLI
login second. HashiCorp Vault uses the token in VAULT_TOKEN.`,
	RunE: runSecret,
}

func init() {
	rootCmd.AddCommand(secretCmd)
	addOutputFlags(secretCmd)
}

func runSecret(cmd *cobra.Command, _ []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	ctx, cancel := commandContext(cmd, cfg)
	defer cancel()

	snap, err := newFetcher(logger).Fetch(ctx, cfg.Secrets)
	if err != nil {
		return err
	}

	plain := noColor || outputPath != ""
	return writeOutput(cmd.OutOrStdout(), outputPath, secretFileMode, func(w io.Writer) error {
		return renderSnapshot(w, outputFormat, snap, nil, plain)
	})
}
