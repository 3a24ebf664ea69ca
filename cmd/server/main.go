package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aldr/autonomi-service/internal/config"
	"github.com/aldr/autonomi-service/internal/database"
	"github.com/aldr/autonomi-service/internal/handler"
	"github.com/aldr/autonomi-service/internal/logger"
	"github.com/aldr/autonomi-service/internal/middleware"
	"github.com/aldr/autonomi-service/internal/queue"
	"github.com/aldr/autonomi-service/internal/router"
	"github.com/aldr/autonomi-service/internal/service"
	"github.com/aldr/autonomi-service/internal/store"
)

func main() {
	cfg := config.Load()
	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	if cfg.EnvFileLoaded {
		zl.Info("config: loaded .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()

	backend, err := store.ParseBackend(cfg.StoreBackend)
	if err != nil {
		zl.Fatal("invalid store backend", zap.Error(err))
	}

	// Redis is optional unless it is the record store.
	var rdb *redis.Client
	if backend == store.BackendRedis || cacheCfg.Enabled || rlCfg.Enabled {
		rdb = config.NewRedisClient()
		if rdb == nil {
			if backend == store.BackendRedis {
				zl.Fatal("redis unreachable", zap.String("addr", config.RedisOptions().Addr))
			}
			zl.Warn("redis unreachable; cache and rate limit disabled")
		} else {
			defer func() { _ = rdb.Close() }()
		}
	}

	st, closeStore, err := openStore(ctx, backend, cfg, rdb)
	if err != nil {
		zl.Fatal("open store", zap.String("backend", backend), zap.Error(err))
	}
	defer closeStore()

	var events handler.EventPublisher
	if cfg.EventsEnabled {
		events = service.NewRecordPublisher(cfg.AMQPURL, zl)
	}
	if cfg.EventsConsumer {
		c := queue.NewConsumer(cfg.AMQPURL, "", zl)
		go func() {
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zl.Error("record consumer stopped", zap.Error(err))
			}
		}()
	}

	opts := router.Options{
		Log:    zl,
		Cache:  middleware.NewRedisCache(cacheCfg, rdb),
		Global: []echo.MiddlewareFunc{middleware.NewTokenBucket(rlCfg, rdb, zl)},
	}
	if cfg.MetricsEnabled {
		opts.Metrics = middleware.NewMetrics()
	}
	e := router.New(handler.NewRecordHandler(st, events, zl), opts)

	addr := cfg.Addr()
	fmt.Printf("Starting Autonomi microservice on http://%s\n", addr)
	zl.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", backend))

	errc := make(chan error, 1)
	go func() { errc <- e.Start(addr) }()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			zl.Error("shutdown", zap.Error(err))
		}
	}
}

// openStore builds the configured record store and a matching close func.
func openStore(ctx context.Context, backend string, cfg config.Config, rdb *redis.Client) (store.Store, func(), error) {
	noop := func() {}
	switch backend {
	case store.BackendMemory:
		return store.NewMemory(), noop, nil
	case store.BackendRedis:
		return store.NewRedis(rdb, cfg.RecordPrefix), noop, nil
	case store.BackendMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, noop, err
		}
		schemaCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := database.EnsureSchema(schemaCtx, db); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return store.NewMySQL(db), func() { _ = db.Close() }, nil
	default:
		return store.NewMock(), noop, nil
	}
}
