/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the campus wallet server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from the environment (.env honored)
  2. Build the zap logger
  3. Initialize SQLite store
  4. Wire auth service and API handler
  5. Optionally bootstrap the admin account
  6. Start server with graceful shutdown

CONFIGURATION (environment variables):
  CAMPUSPAY_ADDR          Listen address (default ":8080")
  CAMPUSPAY_DB_PATH       SQLite database path (default "campuspay.db",
                          ":memory:" for throwaway runs)
  CAMPUSPAY_JWT_SECRET    Token signing secret (required)
  CAMPUSPAY_TOKEN_TTL     Token lifetime (default "24h")
  CAMPUSPAY_LOCK_TIMEOUT  Account lock wait bound (default "3s")
  CAMPUSPAY_LOG_LEVEL     zap level (default "info")
  CAMPUSPAY_SEED_DEMO     "true" bootstraps admin@campus.demo

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/juanbytes/campuspay/api"
	"github.com/juanbytes/campuspay/auth"
	"github.com/juanbytes/campuspay/config"
	"github.com/juanbytes/campuspay/store/sqlite"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		// Logger is not up yet.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	authSvc := auth.NewService(store, []byte(cfg.JWTSecret), cfg.TokenTTL)
	handler := api.NewHandler(store, authSvc, log)
	handler.Mutator.Locks.Timeout = cfg.LockTimeout

	if cfg.SeedDemo {
		if err := handler.SeedAdmin(context.Background(), "admin@campus.demo", "campus123"); err != nil {
			log.Warn("failed to bootstrap admin account", zap.Error(err))
		}
	}

	router := api.NewRouter(handler, log)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting",
			zap.String("addr", cfg.Addr),
			zap.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zapcfg := zap.NewProductionConfig()
	zapcfg.Level = lvl
	return zapcfg.Build()
}
