package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/wellnesshub/internal/cache"
	"github.com/geocoder89/wellnesshub/internal/config"
	"github.com/geocoder89/wellnesshub/internal/db"
	httpx "github.com/geocoder89/wellnesshub/internal/http"
	"github.com/geocoder89/wellnesshub/internal/http/handlers"
	"github.com/geocoder89/wellnesshub/internal/observability"
	"github.com/geocoder89/wellnesshub/internal/redisclient"
	"github.com/geocoder89/wellnesshub/internal/repo/memory"
	"github.com/geocoder89/wellnesshub/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if cfg.JWTSecret == "" {
		log.Error("JWT_SECRET must be set outside dev")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, "wellnesshub-api", cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	var draining atomic.Bool

	deps := httpx.Deps{
		Prom:         prom,
		Checks:       map[string]handlers.Pinger{},
		ShuttingDown: draining.Load,
	}

	switch cfg.Store {
	case config.StoreMemory:
		users := memory.NewUsersRepo()
		deps.Users = users
		deps.Sessions = memory.NewSessionsRepo(users)
		log.Warn("using in-memory store; data is lost on restart")

	default:
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := db.EnsureSchema(ctx, pool); err != nil {
			log.Error("schema bootstrap failed", "err", err)
			os.Exit(1)
		}

		deps.Users = postgres.NewUsersRepo(pool, prom)
		deps.Sessions = postgres.NewSessionsRepo(pool, prom)
		deps.Checks["postgres"] = pool.Ping
	}

	// published listing cache: redis when configured, otherwise in-process
	deps.Cache = cache.New(cfg.PublicCacheTTL())
	if cfg.RedisAddr != "" {
		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx)
		cancel()

		if err != nil {
			log.Warn("redis unavailable, using in-process cache", "addr", cfg.RedisAddr, "err", err)
		} else {
			deps.Cache = cache.NewBreaker(cache.NewRedisCache(rdb.Raw(), cfg.PublicCacheTTL()), cache.BreakerConfig{}, nil)
			deps.Checks["redis"] = rdb.Ping
		}
	}

	router, err := httpx.NewRouter(log, cfg, deps)
	if err != nil {
		log.Error("router setup failed", "err", err)
		os.Exit(1)
	}

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("server shutting down")

	// fail readiness first so the balancer stops routing here
	draining.Store(true)

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}

	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("tracer shutdown failed", "err", err)
	}

	log.Info("shutdown complete")
}
