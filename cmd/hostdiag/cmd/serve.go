package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/hostdiag/internal/config"
	"github.com/hugo-lorenzo-mato/hostdiag/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/hostdiag/internal/secrets"
	"github.com/hugo-lorenzo-mato/hostdiag/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the diagnostics web server.

The server renders the diagnostics page at /, the page with the vault secret
merged in at /secret, and a JSON mirror of both under /api/v1.

Examples:
  # Start with defaults (localhost:8080)
  hostdiag serve

  # Start on custom host and port
  hostdiag serve --host 0.0.0.0 --port 3000

  # Disable CORS (for production behind a reverse proxy)
  hostdiag serve --no-cors`,
	RunE: runServe,
}

var (
	serveHost   string
	servePort   int
	serveNoCORS bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", config.DefaultHost,
		"Host address to bind to")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", config.DefaultPort,
		"Port to listen on")
	serveCmd.Flags().BoolVar(&serveNoCORS, "no-cors", false,
		"Disable CORS headers")
}

func runServe(cmd *cobra.Command, _ []string) error {
	loader, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	webCfg := web.ConfigFrom(cfg.Server)
	if cmd.Flags().Changed("host") {
		webCfg.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		webCfg.Port = servePort
	}
	if serveNoCORS {
		webCfg.EnableCORS = false
	}

	builder := diagnostics.NewBuilder()
	fetcher := secrets.NewFetcher(builder, secrets.WithLogger(logger))
	server := web.New(webCfg, logger,
		web.WithBuilder(builder),
		web.WithFetcher(fetcher),
		web.WithSecrets(cfg.Secrets),
	)

	watching := loader.Watch(
		func(next *config.Config, e fsnotify.Event) {
			logger.Info("config reloaded", slog.String("file", e.Name))
			server.UpdateSecrets(next.Secrets)
		},
		func(err error) {
			logger.Warn("ignoring invalid config change", slog.String("error", err.Error()))
		},
	)
	if watching {
		logger.Info("watching config file", slog.String("path", loader.ConfigFile()))
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("server starting",
		slog.String("addr", server.Addr()),
		slog.Bool("cors", webCfg.EnableCORS),
		slog.String("secrets_provider", cfg.Secrets.Provider),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		return server.Shutdown(context.Background())
	})
	return g.Wait()
}
