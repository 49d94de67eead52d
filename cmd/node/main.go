// Command node starts a content node: the internal HTTP API plus the
// secondary-side replication engine behind it.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/harmonia-net/content-node/internal/config"
	"github.com/harmonia-net/content-node/internal/content"
	"github.com/harmonia-net/content-node/internal/directory"
	"github.com/harmonia-net/content-node/internal/export"
	"github.com/harmonia-net/content-node/internal/ledger"
	"github.com/harmonia-net/content-node/internal/locker"
	"github.com/harmonia-net/content-node/internal/migrate"
	"github.com/harmonia-net/content-node/internal/peering"
	"github.com/harmonia-net/content-node/internal/repository/postgres"
	httpserver "github.com/harmonia-net/content-node/internal/server/http"
	"github.com/harmonia-net/content-node/internal/syncer"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and starts the HTTP server.
func main() {
	cfgPath := flag.String("config", "node.toml", "path to TOML config")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("endpoint", cfg.Node.Endpoint),
		zap.String("addr", cfg.Node.ListenAddr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.Database.DSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	db := &postgres.DB{Pool: pool}
	repo := postgres.NewSyncRepo(db)
	locks := locker.NewPG(pool, cfg.Node.Endpoint)
	outcomes := ledger.NewPG(pool)

	networkKey := []byte(cfg.Node.NetworkKey)
	registry := peering.NewRegistry()
	peers := peering.NewHelper(registry, cfg.Node.Endpoint, 30*time.Second, logger)
	resolver := directory.NewHTTPResolver(cfg.Directory.Endpoint,
		time.Duration(cfg.Directory.TimeoutSeconds)*time.Second)
	materializer := content.New(cfg.Node.StorageRoot, cfg.Sync.MaxConcurrentFetches,
		time.Duration(cfg.Sync.FetchTimeoutSeconds)*time.Second, logger)
	exporter := export.NewClient(time.Duration(cfg.Sync.ExportTimeoutSeconds)*time.Second,
		cfg.Node.Endpoint, networkKey)

	coordinator := syncer.NewCoordinator(syncer.Deps{
		Locks:        locks,
		Exporter:     exporter,
		Directory:    resolver,
		Reconciler:   syncer.NewReconciler(repo, materializer, logger),
		Repo:         repo,
		Peers:        peers,
		Outcomes:     outcomes,
		SelfEndpoint: cfg.Node.Endpoint,
		Log:          logger,
	})

	srv := httpserver.New(httpserver.Deps{
		Repo:                repo,
		Syncer:              coordinator,
		Registry:            registry,
		SelfEndpoint:        cfg.Node.Endpoint,
		NetworkKey:          networkKey,
		MaxExportClockRange: cfg.Sync.MaxExportClockRange,
		Log:                 logger,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Node.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Node.ListenAddr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
