package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/edukit/edukit/internal/auth"
	"github.com/edukit/edukit/internal/config"
	"github.com/edukit/edukit/internal/db"
	internalhttp "github.com/edukit/edukit/internal/http"
	"github.com/edukit/edukit/internal/migrations"
	"github.com/edukit/edukit/internal/observability"
	"github.com/edukit/edukit/internal/repository"
	"github.com/edukit/edukit/internal/tenancy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		observability.NewLogger("error", os.Stderr).Error("config load failed", "error", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := applySharedMigrations(cfg.DatabaseURL); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("redis url invalid", "error", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	codec, err := auth.NewCodec([]byte(cfg.TokenSecret), cfg.TokenAlgorithm, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	if err != nil {
		log.Error("token codec init failed", "error", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	registry := tenancy.NewRegistry(pool, cfg.SharedSchema, cfg.TenantCacheSize, cfg.TenantCacheTTL, rdb)
	binder := tenancy.NewBinder(pool, cfg.SharedSchema, log)
	store := repository.NewStore()

	server := internalhttp.NewServer(cfg, log, metrics, registry, internalhttp.NewPoolBinder(binder), store, codec)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}

// applySharedMigrations runs goose over a short-lived database/sql handle;
// the pgx pool is opened afterwards.
func applySharedMigrations(databaseURL string) error {
	handle, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer handle.Close()
	return migrations.ApplyShared(handle)
}
