package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/hostdiag/internal/config"
	"github.com/hugo-lorenzo-mato/hostdiag/internal/core"
	"github.com/hugo-lorenzo-mato/hostdiag/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/hostdiag/internal/logging"
)

type stubBuilder struct{ err error }

func (b stubBuilder) Build(context.Context) (*diagnostics.Snapshot, error) {
	if b.err != nil {
		return nil, b.err
	}
	return testSnapshot(), nil
}

type stubMetrics struct{}

func (stubMetrics) Collect() diagnostics.SystemMetrics {
	return diagnostics.SystemMetrics{
		Platform:   "ubuntu 22.04",
		CPUModel:   "Test CPU",
		CPUCores:   4,
		CPUThreads: 8,
		MemTotal:   "8.00 GiB",
		MemUsed:    "2.00 GiB",
		MemPercent: 25,
		Uptime:     90 * time.Minute,
	}
}

type stubFetcher struct {
	err error
	cfg config.SecretsConfig
}

func (f *stubFetcher) Fetch(_ context.Context, cfg config.SecretsConfig) (*diagnostics.Snapshot, error) {
	f.cfg = cfg
	if f.err != nil {
		return nil, f.err
	}
	snap := testSnapshot()
	snap.Secret = cfg.SecretName + ": s3cr3t"
	return snap, nil
}

func testSnapshot() *diagnostics.Snapshot {
	return &diagnostics.Snapshot{
		TotalAvailableMemory: "2.00 GiB",
		HostName:             "web-1",
		IPList:               []netip.Addr{netip.MustParseAddr("10.0.0.4"), netip.MustParseAddr("fe80::1")},
		CGroup:               true,
		MemoryUsage:          "50.00 MiB",
		MemoryLimit:          "512.00 MiB",
		CPUUsage:             "1.50 ms",
	}
}

// setupCommand isolates global command state for one test.
func setupCommand(t *testing.T, builderErr error) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	viper.Reset()
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	oldBuilder, oldMetrics, oldFetcher := newBuilder, newMetrics, newFetcher
	newBuilder = func() snapshotBuilder { return stubBuilder{err: builderErr} }
	newMetrics = func() metricsCollector { return stubMetrics{} }
	t.Cleanup(func() {
		newBuilder, newMetrics, newFetcher = oldBuilder, oldMetrics, oldFetcher
		cfgFile, outputFormat, outputPath, noColor = "", formatText, "", false
		viper.Reset()
	})
	cfgFile, outputFormat, outputPath, noColor = "", formatText, "", true
}

func TestExecute_Help(t *testing.T) {
	rootCmd.SetArgs([]string{"--help"})
	defer rootCmd.SetArgs(nil)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	defer rootCmd.SetOut(nil)

	require.NoError(t, Execute())
	assert.Contains(t, out.String(), "snapshot")
	assert.Contains(t, out.String(), "serve")
}

func TestVersionCommand(t *testing.T) {
	SetVersion("v1.2.3", "abc123def", "2024-01-15")
	defer SetVersion("", "", "")

	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)
	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, out.String(), "hostdiag v1.2.3")
	assert.Contains(t, out.String(), "commit: abc123def")
	assert.Contains(t, out.String(), "built:  2024-01-15")
	assert.Equal(t, "v1.2.3", GetVersion())
}

func TestRunSnapshot_Text(t *testing.T) {
	setupCommand(t, nil)

	var out bytes.Buffer
	snapshotCmd.SetOut(&out)
	defer snapshotCmd.SetOut(nil)

	require.NoError(t, runSnapshot(snapshotCmd, nil))

	text := out.String()
	for _, want := range []string{
		"Host diagnostics", "web-1", "10.0.0.4, fe80::1", "512.00 MiB", "1.50 ms",
		"System", "Test CPU", "(4 cores, 8 threads)", "2.00 GiB / 8.00 GiB", "1h30m0s",
	} {
		assert.Contains(t, text, want)
	}
	assert.NotContains(t, text, "Secret")
}

func TestRunSnapshot_FormatsToFile(t *testing.T) {
	setupCommand(t, nil)

	t.Run("json", func(t *testing.T) {
		outputFormat = formatJSON
		outputPath = filepath.Join(t.TempDir(), "snap.json")
		require.NoError(t, runSnapshot(snapshotCmd, nil))

		data, err := os.ReadFile(outputPath)
		require.NoError(t, err)
		var got diagnostics.Snapshot
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, *testSnapshot(), got)
	})

	t.Run("yaml", func(t *testing.T) {
		outputFormat = formatYAML
		outputPath = filepath.Join(t.TempDir(), "snap.yaml")
		require.NoError(t, runSnapshot(snapshotCmd, nil))

		data, err := os.ReadFile(outputPath)
		require.NoError(t, err)
		var got map[string]interface{}
		require.NoError(t, yaml.Unmarshal(data, &got))
		assert.Equal(t, "web-1", got["host_name"])
		assert.Equal(t, []interface{}{"10.0.0.4", "fe80::1"}, got["ip_list"])
	})
}

func TestRunSnapshot_Errors(t *testing.T) {
	t.Run("unknown format", func(t *testing.T) {
		setupCommand(t, nil)
		outputFormat = "xml"
		var out bytes.Buffer
		snapshotCmd.SetOut(&out)
		defer snapshotCmd.SetOut(nil)

		err := runSnapshot(snapshotCmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown format")
	})

	t.Run("builder failure", func(t *testing.T) {
		boom := core.ErrFileRead(diagnostics.CGroupCPUAcctUsage, errors.New("permission denied"))
		setupCommand(t, boom)

		err := runSnapshot(snapshotCmd, nil)
		require.ErrorIs(t, err, boom)
	})

	t.Run("invalid config", func(t *testing.T) {
		setupCommand(t, nil)
		require.NoError(t, os.WriteFile(".hostdiag.yaml", []byte("server:\n  port: 99999\n"), 0o644))

		err := runSnapshot(snapshotCmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestRunSecret(t *testing.T) {
	setupCommand(t, nil)
	require.NoError(t, os.WriteFile(".hostdiag.yaml", []byte(`secrets:
  key_vault_uri: https://diag-kv.vault.azure.net/
  secret_name: app-secret
`), 0o644))

	fetcher := &stubFetcher{}
	newFetcher = func(*logging.Logger) secretFetcher { return fetcher }

	var out bytes.Buffer
	secretCmd.SetOut(&out)
	defer secretCmd.SetOut(nil)

	require.NoError(t, runSecret(secretCmd, nil))
	assert.Contains(t, out.String(), "app-secret: s3cr3t")
	assert.Equal(t, config.ProviderAzure, fetcher.cfg.Provider)
	assert.Equal(t, "https://diag-kv.vault.azure.net/", fetcher.cfg.KeyVaultURI)
}

func TestRunSecret_OutputFileOwnerOnly(t *testing.T) {
	tests := []struct {
		name     string
		existing bool
	}{
		{"new file", false},
		{"replaces world-readable file", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupCommand(t, nil)
			require.NoError(t, os.WriteFile(".hostdiag.yaml", []byte(`secrets:
  key_vault_uri: https://diag-kv.vault.azure.net/
  secret_name: app-secret
`), 0o644))
			newFetcher = func(*logging.Logger) secretFetcher { return &stubFetcher{} }

			outputPath = filepath.Join(t.TempDir(), "secret.txt")
			if tt.existing {
				require.NoError(t, os.WriteFile(outputPath, []byte("old"), 0o644))
				require.NoError(t, os.Chmod(outputPath, 0o644))
			}

			require.NoError(t, runSecret(secretCmd, nil))

			info, err := os.Stat(outputPath)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
			data, err := os.ReadFile(outputPath)
			require.NoError(t, err)
			assert.Contains(t, string(data), "app-secret: s3cr3t")
		})
	}
}

func TestRunSnapshot_OutputFileMode(t *testing.T) {
	setupCommand(t, nil)
	outputPath = filepath.Join(t.TempDir(), "snap.txt")

	require.NoError(t, runSnapshot(snapshotCmd, nil))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Zero(t, info.Mode().Perm()&^snapshotFileMode)
}

func TestRunSecret_Error(t *testing.T) {
	setupCommand(t, nil)

	denied := core.ErrVaultAccess(core.CodeAccessDenied, "denied")
	newFetcher = func(*logging.Logger) secretFetcher { return &stubFetcher{err: denied} }

	err := runSecret(secretCmd, nil)
	require.ErrorIs(t, err, denied)
}

func TestRenderSnapshot_Styled(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, renderSnapshot(&out, formatText, testSnapshot(), nil, false))
	assert.Contains(t, out.String(), "web-1")
	assert.NotContains(t, out.String(), "System")
}

func TestWriteOutput_ReplacesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(path, []byte("old contents that are longer"), 0o644))

	err := writeOutput(nil, path, snapshotFileMode, func(w io.Writer) error {
		_, err := w.Write([]byte("new"))
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}
