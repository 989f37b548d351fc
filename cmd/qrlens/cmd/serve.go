package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/qrlens/internal/barcode"
	"github.com/MeKo-Tech/qrlens/internal/config"
	"github.com/MeKo-Tech/qrlens/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP scanning server",
		Long: `Start an HTTP server exposing the scanner over REST and WebSocket.

Endpoints:
  GET    /health        health check
  GET    /metrics       Prometheus metrics
  POST   /scan/image    scan an uploaded image (multipart field "image")
  POST   /scan/pdf      scan an uploaded PDF (multipart field "pdf")
  POST   /generate      render a QR code PNG from JSON
  GET    /history       list recent scans
  DELETE /history       clear history
  GET    /ws/scan       live scanning over WebSocket`,
		Example: `  qrlens serve
  qrlens serve --host 0.0.0.0 --port 3000
  qrlens serve --rate-limit --rate-limit-per-minute 30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a)
		},
	}

	cmd.Flags().String("host", "localhost", "server host")
	cmd.Flags().IntP("port", "p", 8080, "server port")
	cmd.Flags().String("cors-origin", "*", "allowed CORS origin")
	cmd.Flags().Int("max-upload-size", 20, "maximum upload size in MB")
	cmd.Flags().Int("timeout", 30, "per-request scan timeout in seconds")
	cmd.Flags().Int("shutdown-timeout", 10, "graceful shutdown timeout in seconds")
	cmd.Flags().Int("history-size", 100, "number of scans kept in history")
	a.bind(cmd, "server.host", "host")
	a.bind(cmd, "server.port", "port")
	a.bind(cmd, "server.cors_origin", "cors-origin")
	a.bind(cmd, "server.max_upload_mb", "max-upload-size")
	a.bind(cmd, "server.timeout_sec", "timeout")
	a.bind(cmd, "server.shutdown_timeout", "shutdown-timeout")
	a.bind(cmd, "server.history_size", "history-size")

	cmd.Flags().Bool("rate-limit", false, "enable per-client rate limiting")
	cmd.Flags().Int("rate-limit-per-minute", 60, "requests per minute per client")
	cmd.Flags().Int("rate-limit-per-hour", 1000, "requests per hour per client")
	cmd.Flags().Int("rate-limit-per-day", 10000, "requests per day per client")
	cmd.Flags().Int("rate-limit-data-mb", 1024, "uploaded MB per day per client")
	a.bind(cmd, "server.rate_limit.enabled", "rate-limit")
	a.bind(cmd, "server.rate_limit.requests_per_minute", "rate-limit-per-minute")
	a.bind(cmd, "server.rate_limit.requests_per_hour", "rate-limit-per-hour")
	a.bind(cmd, "server.rate_limit.max_requests_per_day", "rate-limit-per-day")
	a.bind(cmd, "server.rate_limit.max_data_per_day_mb", "rate-limit-data-mb")

	a.addScanFlags(cmd)
	return cmd
}

// serverConfig maps the resolved configuration onto the server package.
func serverConfig(cfg *config.Config) server.Config {
	rl := cfg.Server.RateLimit
	return server.Config{
		CORSOrigin:  cfg.Server.CORSOrigin,
		MaxUploadMB: int64(cfg.Server.MaxUploadMB),
		TimeoutSec:  cfg.Server.TimeoutSec,
		HistorySize: cfg.Server.HistorySize,
		PDFWorkers:  cfg.Batch.Workers,
		Scan:        cfg.ScanPipelineConfig(),
		Generate:    cfg.GenerateOptions(),
		Constraints: cfg.ImageConstraints(),
		RateLimit: server.RateLimitConfig{
			Enabled:           rl.Enabled,
			RequestsPerMinute: rl.RequestsPerMinute,
			RequestsPerHour:   rl.RequestsPerHour,
			MaxRequestsPerDay: rl.MaxRequestsPerDay,
			MaxDataPerDay:     int64(rl.MaxDataPerDayMB) * 1024 * 1024,
		},
	}
}

func runServe(ctx context.Context, a *app) error {
	cfg := a.cfg
	srv := server.NewServer(serverConfig(cfg), barcode.NewBackend())
	srv.StartBackground(ctx)

	// No read/write deadlines: they would outlive the upgrade on /ws/scan.
	// Scan handlers bound their own work with the request timeout.
	httpServer := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	ln, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", httpServer.Addr, err)
	}
	slog.Info("Starting qrlens server",
		"address", ln.Addr().String(),
		"cors_origin", cfg.Server.CORSOrigin,
		"max_upload_mb", cfg.Server.MaxUploadMB,
		"rate_limit", cfg.Server.RateLimit.Enabled)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("Server stopped")
	return nil
}
