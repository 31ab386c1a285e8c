package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mlviz/internal/api"
	"mlviz/internal/chart"
	"mlviz/internal/config"
	"mlviz/internal/state"
)

const shutdownTimeout = 5 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chart HTTP API",
		Long: `Start the HTTP API used by the web frontend.

Endpoints:
- POST /upload                  store a CSV and return its columns
- POST /visualize               render a chart inline as base64 PNG
- GET  /download/{png|pdf}      re-render the last chart as a file
- POST /api/db/tables           list tables of a PostgreSQL database
- POST /api/db/import           import a table preview as a dataset`,
		Example: `  # Start on the default port
  mlviz serve

  # Custom port and storage directories
  mlviz serve --port 9000 --upload-dir /var/lib/mlviz/uploads`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, GetConfig(cmd.Context()), GetLogger(cmd.Context()))
		},
	}

	cmd.Flags().Int("port", config.DefaultPort, "Port to listen on")
	cmd.Flags().String("upload-dir", config.DefaultUploadDir, "Directory for uploaded and imported CSV files")
	cmd.Flags().String("download-dir", config.DefaultDownloadDir, "Directory for rendered chart files")
	cmd.Flags().Int64("max-upload-bytes", config.DefaultMaxUploadBytes, "Largest accepted upload")
	cmd.Flags().StringSlice("allowed-origins", config.DefaultAllowedOrigins, "CORS origins allowed to call the API")

	return cmd
}

// newServer builds the handler stack for cfg and creates the storage
// directories.
func newServer(cfg *config.Config, logger *slog.Logger) (*http.Server, error) {
	for _, dir := range []string{cfg.UploadDir, cfg.DownloadDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	generated, err := cfg.EnsureSessionSecret()
	if err != nil {
		return nil, err
	}
	if generated {
		logger.Warn("no session_secret configured, sessions will not survive a restart")
	}

	sessions := state.New(state.NewCookieStore(cfg.SessionSecret, cfg.SessionMaxAge))
	h := api.NewHandler(logger, chart.NewDispatcher(logger), sessions, api.Options{
		UploadDir:      cfg.UploadDir,
		DownloadDir:    cfg.DownloadDir,
		MaxFileSize:    cfg.MaxUploadBytes,
		DBPreviewLimit: cfg.DBPreviewLimit,
	})

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.NewRouter(h, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// runServe serves until ctx is cancelled, then shuts down gracefully.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	srv, err := newServer(cfg, logger)
	if err != nil {
		return err
	}

	eg, egctx := errgroup.WithContext(ctx)
	srv.BaseContext = func(_ net.Listener) context.Context {
		return egctx
	}

	eg.Go(func() error {
		logger.Info("starting server",
			"addr", fmt.Sprintf("http://localhost:%d", cfg.Port),
			"upload_dir", cfg.UploadDir,
			"allowed_origins", cfg.AllowedOrigins)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
