/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the timesheet reconciliation server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env files, recon.yaml, RECON_* variables)
  2. Apply command-line flag overrides
  3. Configure logging
  4. Open the package and attestation store
  5. Create the attestation service and completion scheduler
  6. Configure HTTP router and start the server

COMMAND-LINE FLAGS:
  -config  Config file path (default: ./recon.yaml when present)
  -port    HTTP server port, overrides RECON_PORT
  -db      SQLite database path, overrides RECON_STORE_SQLITE_PATH
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the completion scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the store

EXAMPLES:
  # Run with the defaults (sqlite at ./recon.db)
  ./server

  # Run against Postgres
  RECON_STORE_DRIVER=postgres RECON_STORE_DATABASE_URL=postgres://... ./server

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
  - attest/service.go: Packages and attestations
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/timesheet-recon/api"
	"github.com/warp/timesheet-recon/attest"
	"github.com/warp/timesheet-recon/config"
	"github.com/warp/timesheet-recon/logging"
	"github.com/warp/timesheet-recon/notify"
	"github.com/warp/timesheet-recon/recon"
	"github.com/warp/timesheet-recon/recon/store"
	"github.com/warp/timesheet-recon/store/postgres"
	"github.com/warp/timesheet-recon/store/sqlite"
)

// backend is what every store driver provides.
type backend interface {
	recon.PackageStore
	recon.AttestationLog
	io.Closer
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	configFile := flag.String("config", "", "Config file path")
	port := flag.Int("port", 0, "HTTP server port")
	dbPath := flag.String("db", "", "SQLite database path")
	flag.Parse()

	cfg, err := config.Load(config.Options{ConfigFile: *configFile})
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dbPath != "" {
		cfg.Store.Driver = config.DriverSQLite
		cfg.Store.SQLitePath = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.Configure(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	db, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn().Err(err).Msg("store close failed")
		}
	}()
	logger.Info().Str("driver", cfg.Store.Driver).Msg("store ready")

	// Attestation service and completion mail
	svc := attest.NewService(db, db, attest.Options{
		Notifier:   newNotifier(cfg.Mail, logger),
		Recipients: cfg.Mail.Recipients,
		Logger:     &logger,
	})
	scheduler := attest.NewCompletionScheduler(svc, logger)
	scheduler.Start()
	defer scheduler.Stop()

	// Initialize handler
	handler := api.NewHandler(recon.NewSession(nil), svc)
	handler.MaxUploadBytes = cfg.Upload.MaxBytes()

	router := api.NewRouter(handler, api.RouterOptions{
		AdminPasscode:  cfg.AdminPasscode,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Port).Msgf("API available at http://localhost:%d/api", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (backend, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseURL)
	case config.DriverMemory:
		return store.NewMemory(), nil
	default:
		return sqlite.New(cfg.SQLitePath)
	}
}

func newNotifier(cfg config.MailConfig, logger zerolog.Logger) notify.Notifier {
	if !cfg.Enabled() {
		logger.Warn().Msg("mail not configured, completion notices are logged only")
		return notify.LogNotifier{Logger: logger}
	}
	return &notify.SMTPNotifier{
		Addr:     cfg.SMTPAddr,
		From:     cfg.From,
		Username: cfg.Username,
		Password: cfg.Password,
	}
}
