package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mmynk/expensedash/internal/auth"
	"github.com/mmynk/expensedash/internal/config"
	"github.com/mmynk/expensedash/internal/metrics"
	"github.com/mmynk/expensedash/internal/registry"
	"github.com/mmynk/expensedash/internal/server"
	"github.com/mmynk/expensedash/internal/service"
	"github.com/mmynk/expensedash/internal/session"
	"github.com/mmynk/expensedash/internal/snapshot"
	"github.com/mmynk/expensedash/internal/storage"
	"github.com/mmynk/expensedash/internal/storage/postgres"
	"github.com/mmynk/expensedash/internal/storage/sqlite"
	"github.com/mmynk/expensedash/pkg/logging"
)

// ledgerStore is a storage backend that owns resources.
type ledgerStore interface {
	storage.Store
	io.Closer
}

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Setup(os.Getenv("LOG_LEVEL"))
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)
	if envErr != nil {
		slog.Debug("No .env file found; relying on existing environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("Failed to close storage", "error", err)
		}
	}()

	m := metrics.New()
	reg := registry.New(m)
	deps := &session.Deps{
		Auth:      service.NewAuthService(auth.NewTokenAuthenticator(store), slog.Default()),
		Groups:    service.NewGroupService(store),
		Expenses:  service.NewExpenseService(store),
		Snapshots: snapshot.NewBuilder(store),
		Registry:  reg,
		Metrics:   m,
	}
	srv := server.New(deps, cfg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() { errCh <- srv.Serve(ctx, ln) }()
	listeners := 1

	if cfg.HTTPAddr != "" {
		adminLn, err := net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			cancel()
			<-errCh
			return err
		}
		go func() { errCh <- srv.ServeAdmin(ctx, adminLn) }()
		listeners++
	}

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down")
	case runErr = <-errCh:
		listeners--
	}

	// Listeners first, then sessions; the store closes last via defer.
	cancel()
	for ; listeners > 0; listeners-- {
		if err := <-errCh; err != nil {
			slog.Warn("Listener stopped with error", "error", err)
		}
	}
	reg.CloseAll()
	srv.Wait()

	return runErr
}

func openStore(ctx context.Context, cfg config.Config) (ledgerStore, error) {
	if cfg.UsesPostgres() {
		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		slog.Info("Storage initialized", "backend", "postgres")
		return store, nil
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Info("Storage initialized", "backend", "sqlite", "database", cfg.DBPath)
	return store, nil
}
