package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mcalder/bloghub/internal/domain/job"
	"github.com/mcalder/bloghub/internal/notifications"
	"github.com/mcalder/bloghub/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
}

type Config struct {
	PollInterval time.Duration
	WorkerID     string
}

type Worker struct {
	cfg      Config
	repo     JobsRepository
	notifier notifications.Notifier
	prom     *observability.Prom
	log      *slog.Logger
}

func New(cfg Config, repo JobsRepository, notifier notifications.Notifier, prom *observability.Prom, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		notifier: notifier,
		prom:     prom,
		log:      log,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker received shutdown signal")
			return nil

		case <-ticker.C:
			// drain everything runnable before going back to sleep
			for {
				processed, err := w.ProcessOne(ctx)

				if err != nil {
					w.log.Error("process job", "err", err)
					break
				}

				if !processed {
					break
				}
			}
		}
	}
}

// ProcessOne claims and executes a single job. The bool reports whether a job
// was claimed at all.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	err = w.execute(ctx, j)

	if err != nil {
		w.handleFailure(ctx, j, err)
		return true, nil
	}

	err = w.repo.MarkDone(ctx, j.ID)

	if err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		return true, err
	}

	w.log.Info("job done", "job_id", j.ID, "type", j.Type, "attempts", j.Attempts)
	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	run := func() error {
		switch j.Type {
		case job.TypeWelcomeEmail:
			p, err := job.DecodeWelcomeEmail(j)

			if err != nil {
				return err
			}

			return w.notifier.SendWelcome(ctx, notifications.WelcomeInput{
				Email: p.Email,
				Name:  p.Name,
			})

		default:
			return fmt.Errorf("unknown job type %q", j.Type)
		}
	}

	if w.prom != nil {
		return w.prom.ObserveJob(j.Type, run)
	}

	return run()
}

func (w *Worker) handleFailure(ctx context.Context, j job.Job, execErr error) {
	// a payload that cannot decode will never succeed; don't burn retries
	if errors.Is(execErr, job.ErrInvalidPayload) || j.Attempts >= j.MaxAttempts {
		if err := w.repo.MarkFailed(ctx, j.ID, execErr.Error()); err != nil {
			w.log.Error("mark failed", "job_id", j.ID, "err", err)
		}

		w.log.Warn("job failed permanently", "job_id", j.ID, "type", j.Type, "attempts", j.Attempts, "err", execErr)
		return
	}

	delay := ExponentialBackoff(j.Attempts)

	if err := w.repo.Reschedule(ctx, j.ID, time.Now().UTC().Add(delay), execErr.Error()); err != nil {
		w.log.Error("reschedule", "job_id", j.ID, "err", err)
		return
	}

	w.log.Info("job rescheduled", "job_id", j.ID, "type", j.Type, "attempts", j.Attempts, "delay", delay.String())
}
