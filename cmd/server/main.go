package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcalder/bloghub/internal/auth"
	"github.com/mcalder/bloghub/internal/cache"
	"github.com/mcalder/bloghub/internal/config"
	"github.com/mcalder/bloghub/internal/db"
	httpx "github.com/mcalder/bloghub/internal/http"
	"github.com/mcalder/bloghub/internal/observability"
	"github.com/mcalder/bloghub/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	// tracing is optional; without an endpoint spans stay local no-ops
	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(context.Background(), "bloghub", cfg.OTLPEndpoint)

		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdown(ctx)
			}()
		}
	}

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	if err := db.RunMigrations(cfg.DBURL); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	bootCtx, bootCancel := config.WithTimeout(10 * time.Second)

	if err := db.EnsureAdminUser(bootCtx, pool, cfg); err != nil {
		log.Error("admin bootstrap failed", "err", err)
		bootCancel()
		os.Exit(1)
	}

	bootCancel()

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	usersRepo := postgres.NewUsersRepo(pool, prom)
	contentRepo := postgres.NewContentRepo(pool, prom)
	jobsRepo := postgres.NewJobsRepo(pool, prom)

	sessions := auth.NewManager(cfg.SessionSecret, cfg.SessionTTL)

	var store cache.Store

	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})

		defer redisCache.Close()

		pingCtx, pingCancel := config.WithTimeout(2 * time.Second)

		if err := redisCache.Ping(pingCtx); err != nil {
			log.Warn("redis unreachable, using in-memory cache", "err", err)
			store = cache.NewMemory(cfg.CacheTTL)
		} else {
			store = redisCache
		}

		pingCancel()
	} else {
		store = cache.NewMemory(cfg.CacheTTL)
	}

	router := httpx.NewRouter(httpx.Deps{
		Env:      cfg.Env,
		Log:      log,
		Users:    usersRepo,
		Content:  contentRepo,
		Jobs:     jobsRepo,
		Sessions: sessions,
		Cache:    store,
		Prom:     prom,
		Ping: func(ctx context.Context) error {
			return pool.Ping(ctx)
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
