// Package main is the steward demo admin application. It wires a Book
// resource over either PostgreSQL or an in-memory backend and serves the
// admin app with a JSON renderer.
package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/veldtlabs/steward/admin"
	"github.com/veldtlabs/steward/datasource"
	"github.com/veldtlabs/steward/datasource/pgds"
	"github.com/veldtlabs/steward/internal/config"
	"github.com/veldtlabs/steward/internal/observability"
	"github.com/veldtlabs/steward/storage"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0"
var version = "dev"

//go:embed schema.sql
var schemaSQL string

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "steward-demo", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	source, closeSource, err := buildBookSource(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("datasource initialization failed", zap.Error(err))
		return 1
	}
	if closeSource != nil {
		defer closeSource()
	}

	media, err := buildMedia(ctx, cfg.Storage)
	if err != nil {
		logger.Error("storage initialization failed", zap.Error(err))
		return 1
	}

	sessions, err := admin.NewSessions([]byte(cfg.Auth.SessionSecret), cfg.Auth.SessionTTL, cfg.Auth.SecureCookies)
	if err != nil {
		logger.Error("session initialization failed", zap.Error(err))
		return 1
	}

	app := &admin.App{
		Name:        cfg.App.Name,
		MountPrefix: cfg.App.MountPrefix,
		Renderer:    jsonRenderer{},
		Sessions:    sessions,
		Auth:        newStaticAuth(),
		Media:       media,
		Middleware:  []func(http.Handler) http.Handler{metrics.Middleware},
	}
	app.Register(bookResource(source))

	adminHandler, err := app.Handler()
	if err != nil {
		logger.Error("app assembly failed", zap.Error(err))
		return 1
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.App.MountPrefix+"/", adminHandler)
	mux.Handle("/", http.RedirectHandler(cfg.App.MountPrefix+"/", http.StatusFound))
	if cfg.Observability.Metrics.Enabled {
		mux.Handle(cfg.Observability.Metrics.Path, observability.Handler())
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("prefix", cfg.App.MountPrefix),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}

// buildBookSource selects the backend: PostgreSQL when a DSN is configured,
// seeded in-memory data otherwise.
func buildBookSource(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (datasource.DataSource[Book], func(), error) {
	if cfg.DSN == "" {
		logger.Info("using in-memory datasource with seeded demo data")
		return datasource.NewMemory(bookMapper(), newBook, seedBooks()...), nil, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("database: parse DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("database: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("database: apply schema: %w", err)
	}

	logger.Info("using PostgreSQL datasource", zap.String("table", "books"))
	return pgds.New(pool, "books", bookMapper(), newBook), pool.Close, nil
}

// buildMedia selects the file storage backend.
func buildMedia(ctx context.Context, cfg config.StorageConfig) (storage.FileStorage, error) {
	switch cfg.Backend {
	case "minio":
		return storage.NewMinIO(ctx, cfg.MinIO)
	default:
		return storage.NewLocal(cfg.LocalDir)
	}
}
