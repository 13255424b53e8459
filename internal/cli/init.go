// Package cli provides the start-up steps shared by every command: env
// loading, logger and config setup, opening the store and signal handling.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"subtrack/internal/backend"
	"subtrack/internal/config"
	"subtrack/internal/log"
	"subtrack/internal/storage"
	"subtrack/internal/store"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger at the given LOG_LEVEL and makes it
// the slog default. An unknown level falls back to info.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	if lvl, err := log.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// Bootstrap loads .env and the configuration, sets up logging and exits the
// process when the configuration is invalid.
func Bootstrap(command string) (*config.Config, *log.Logger) {
	LoadEnvFile()
	cfg := config.Load()
	logger := SetupLogger(cfg.LogLevel)
	logger.Info("Starting "+command, log.FieldOperation, log.OpStartup)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg, logger
}

// OpenStore creates the configured backend and loads the persisted
// collection into a new store. A corrupt snapshot is logged and the
// defaults are kept; any other failure is returned.
func OpenStore(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...store.Option) (*store.Store, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}

	opts = append([]store.Option{store.WithLogger(logger)}, opts...)
	st := store.New(res.Persister, opts...)
	if err := st.Load(ctx); err != nil {
		if !errors.Is(err, storage.ErrCorruptSnapshot) {
			_ = st.Close()
			return nil, err
		}
		logger.WarnContext(ctx, "Continuing with default subscriptions", log.FieldError, err)
	}
	return st, nil
}

// MustOpenStore is OpenStore for main packages: it exits on failure.
func MustOpenStore(ctx context.Context, cfg *config.Config, logger *log.Logger, opts ...store.Option) *store.Store {
	st, err := OpenStore(ctx, cfg, logger, opts...)
	if err != nil {
		logger.Error("Failed to open subscription store", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	return st
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}()
	return ctx, stop
}
