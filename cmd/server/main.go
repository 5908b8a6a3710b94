// Command server is the billing-core API entrypoint: it loads configuration
// from the environment, opens the database pool, builds one PSP adapter per
// configured app, and serves the HTTP edge until interrupted.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ledgerline/billing-core/internal/config"
	"github.com/ledgerline/billing-core/internal/httpapi"
	"github.com/ledgerline/billing-core/internal/idempotency"
	"github.com/ledgerline/billing-core/internal/logger"
	"github.com/ledgerline/billing-core/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open database pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal("database unreachable at startup", zap.Error(err))
	}

	registry := httpapi.NewRegistry(pool, cfg, log)
	idem := idempotency.New(pool, cfg.IdempotencyTTL())

	engine := httpapi.NewRouter(httpapi.RouterDeps{
		Pool:     pool,
		Cfg:      cfg,
		Logger:   log,
		Registry: registry,
		Idem:     idem,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("billing-core listening",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.Strings("apps", cfg.KnownAppIDs()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
