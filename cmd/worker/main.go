package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mcalder/bloghub/internal/config"
	"github.com/mcalder/bloghub/internal/db"
	"github.com/mcalder/bloghub/internal/notifications"
	"github.com/mcalder/bloghub/internal/observability"
	"github.com/mcalder/bloghub/internal/queue/worker"
	"github.com/mcalder/bloghub/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	prom := observability.NewProm(prometheus.DefaultRegisterer)
	jobsRepo := postgres.NewJobsRepo(pool, prom)
	notifier := notifications.NewLogNotifier()

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval: 500 * time.Millisecond,
		WorkerID:     workerID,
	}, jobsRepo, notifier, prom, log)

	log.Info("worker started", "worker_id", workerID)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	log.Info("worker shutdown complete")
}
