package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/platefinder/internal/batch"
	"github.com/MeKo-Tech/platefinder/internal/config"
	"github.com/MeKo-Tech/platefinder/internal/pdf"
	"github.com/MeKo-Tech/platefinder/internal/server"
	"github.com/MeKo-Tech/platefinder/internal/version"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for the plate API",
	Long: `Start an HTTP server that exposes plate localization and lookup.

The server provides the following endpoints:
  GET  /health         - Health check endpoint
  POST /plates/image   - Process an uploaded image (multipart field "image")
  POST /plates/batch   - Process several base64 encoded images
  POST /plates/pdf     - Process the images of an uploaded PDF (field "pdf")
  GET  /plates/{plate} - Look a plate up in the vehicle database
  GET  /ws/plates      - WebSocket variant of image processing and lookup
  GET  /metrics        - Prometheus metrics

Examples:
  platefinder serve
  platefinder serve --port 8080
  platefinder serve --host 0.0.0.0 --port 3000 --db plates.json`,
	SilenceUsage: true,
	RunE:         runServeCommand,
}

// configToServerConfig maps centralized configuration to server.Config
// with CLI flag overrides.
func configToServerConfig(cfg *config.Config, cmd *cobra.Command) (server.Config, int) {
	sc := cfg.Server
	flags := cmd.Flags()

	if flags.Changed("host") {
		sc.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		sc.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("cors-origin") {
		sc.CORSOrigin, _ = flags.GetString("cors-origin")
	}
	if flags.Changed("max-upload-size") {
		sc.MaxUploadMB, _ = flags.GetInt("max-upload-size")
	}
	if flags.Changed("timeout") {
		sc.TimeoutSec, _ = flags.GetInt("timeout")
	}
	if flags.Changed("shutdown-timeout") {
		sc.ShutdownTimeout, _ = flags.GetInt("shutdown-timeout")
	}
	if flags.Changed("overlay-enable") {
		sc.OverlayEnabled, _ = flags.GetBool("overlay-enable")
	}
	if flags.Changed("overlay-color") {
		sc.OverlayColor, _ = flags.GetString("overlay-color")
	}
	if flags.Changed("max-batch-items") {
		sc.MaxBatchItems, _ = flags.GetInt("max-batch-items")
	}
	if flags.Changed("rate-limit-enabled") {
		sc.RateLimitEnabled, _ = flags.GetBool("rate-limit-enabled")
	}
	if flags.Changed("requests-per-minute") {
		sc.RequestsPerMinute, _ = flags.GetInt("requests-per-minute")
	}
	if flags.Changed("requests-per-hour") {
		sc.RequestsPerHour, _ = flags.GetInt("requests-per-hour")
	}
	if flags.Changed("max-requests-per-day") {
		sc.MaxRequestsPerDay, _ = flags.GetInt("max-requests-per-day")
	}
	if flags.Changed("max-data-per-day") {
		sc.MaxDataPerDay, _ = flags.GetInt64("max-data-per-day")
	}

	var creds *pdf.PasswordCredentials
	if pw, _ := flags.GetString("pdf-password"); pw != "" {
		creds = &pdf.PasswordCredentials{UserPassword: pw}
	}

	return server.Config{
		Host:           sc.Host,
		Port:           sc.Port,
		CORSOrigin:     sc.CORSOrigin,
		MaxUploadMB:    int64(sc.MaxUploadMB),
		TimeoutSec:     sc.TimeoutSec,
		OverlayEnabled: sc.OverlayEnabled,
		OverlayColor:   sc.OverlayColor,
		MaxBatchItems:  sc.MaxBatchItems,
		RateLimit: server.RateLimitConfig{
			Enabled:           sc.RateLimitEnabled,
			RequestsPerMinute: sc.RequestsPerMinute,
			RequestsPerHour:   sc.RequestsPerHour,
			MaxRequestsPerDay: sc.MaxRequestsPerDay,
			MaxDataPerDay:     sc.MaxDataPerDay,
		},
		PDFCredentials: creds,
		Version:        version.Version,
	}, sc.ShutdownTimeout
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	serverConfig, shutdownTimeout := configToServerConfig(cfg, cmd)

	if serverConfig.Port < 1 || serverConfig.Port > 65535 {
		return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", serverConfig.Port)
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	pl, err := batch.BuildPipeline(ctx, configToBatchConfig(cfg, cmd), nil)
	if err != nil {
		return fmt.Errorf("failed to build plate pipeline: %w", err)
	}

	plateServer := server.NewServer(serverConfig, pl)
	defer func() { _ = plateServer.Close() }()

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port),
		Handler:           plateServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(serverConfig.TimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(serverConfig.TimeoutSec) * time.Second,
	}

	go func() {
		slog.Info("Starting plate server", "host", serverConfig.Host, "port", serverConfig.Port,
			"version", version.Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server shutdown completed")
	}

	if err := plateServer.Close(); err != nil {
		slog.Error("Server cleanup error", "error", err)
	}

	slog.Info("Graceful shutdown completed")
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addPipelineFlags(serveCmd)

	d := config.DefaultConfig().Server
	serveCmd.Flags().StringP("host", "H", d.Host, "server host")
	serveCmd.Flags().IntP("port", "p", d.Port, "server port")
	serveCmd.Flags().String("cors-origin", d.CORSOrigin, "CORS allowed origins")
	serveCmd.Flags().Int("max-upload-size", d.MaxUploadMB, "maximum upload size in MB")
	serveCmd.Flags().Int("timeout", d.TimeoutSec, "request timeout in seconds")
	serveCmd.Flags().Int("shutdown-timeout", d.ShutdownTimeout, "shutdown timeout in seconds")
	serveCmd.Flags().Bool("overlay-enable", d.OverlayEnabled, "enable annotated image responses")
	serveCmd.Flags().String("overlay-color", d.OverlayColor, "annotation color (hex)")
	serveCmd.Flags().Int("max-batch-items", d.MaxBatchItems, "maximum images per batch request")
	serveCmd.Flags().String("pdf-password", "", "default user password for uploaded PDFs")

	// Rate limiting flags
	serveCmd.Flags().Bool("rate-limit-enabled", d.RateLimitEnabled, "enable rate limiting")
	serveCmd.Flags().Int("requests-per-minute", d.RequestsPerMinute, "maximum requests per minute per client")
	serveCmd.Flags().Int("requests-per-hour", d.RequestsPerHour, "maximum requests per hour per client")
	serveCmd.Flags().Int("max-requests-per-day", d.MaxRequestsPerDay, "maximum requests per day per client")
	serveCmd.Flags().Int64("max-data-per-day", d.MaxDataPerDay, "maximum data processed per day per client (bytes)")
}
