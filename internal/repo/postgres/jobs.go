package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcalder/bloghub/internal/domain/job"
	"github.com/mcalder/bloghub/internal/observability"
)

type JobsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewJobsRepo(pool *pgxpool.Pool, prom *observability.Prom) *JobsRepo {
	return &JobsRepo{pool: pool, prom: prom}
}

func (r *JobsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *JobsRepo) Enqueue(ctx context.Context, req job.CreateRequest) (job.Job, error) {
	j := job.New(req)

	op := "jobs.enqueue"

	err := r.observe(op, func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO jobs (id, type, payload, status, attempts, max_attempts, run_at, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			j.ID, j.Type, j.Payload, string(j.Status), j.Attempts, j.MaxAttempts, j.RunAt, j.CreatedAt, j.UpdatedAt,
		)

		return err
	})

	if err != nil {
		return job.Job{}, err
	}

	return j, nil
}

// ClaimNext atomically picks the oldest runnable pending job and marks it
// processing. SKIP LOCKED keeps concurrent workers from fighting over a row.
func (r *JobsRepo) ClaimNext(ctx context.Context, workerID string) (job.Job, error) {
	var j job.Job
	var status string

	op := "jobs.claim_next"

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE jobs
				SET status = 'processing',
					attempts = attempts + 1,
					locked_at = now(),
					locked_by = $1,
					updated_at = now()
			 WHERE id = (
				SELECT id FROM jobs
				WHERE status = 'pending' AND run_at <= now()
				ORDER BY run_at ASC, created_at ASC
				LIMIT 1
				FOR UPDATE SKIP LOCKED
			 )
			 RETURNING id, type, payload, status, attempts, max_attempts, run_at, locked_at, locked_by, last_error, created_at, updated_at`,
			workerID,
		).Scan(&j.ID, &j.Type, &j.Payload, &status, &j.Attempts, &j.MaxAttempts, &j.RunAt, &j.LockedAt, &j.LockedBy, &j.LastError, &j.CreatedAt, &j.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job.Job{}, job.ErrJobNotFound
		}

		return job.Job{}, err
	}

	j.Status = job.Status(status)
	return j, nil
}

func (r *JobsRepo) MarkDone(ctx context.Context, id string) error {
	op := "jobs.mark_done"

	return r.observe(op, func() error {
		_, err := r.pool.Exec(ctx,
			`UPDATE jobs
				SET status = 'done',
					locked_at = NULL,
					locked_by = NULL,
					updated_at = now()
			 WHERE id = $1`,
			id,
		)
		return err
	})
}

// Reschedule releases a failed attempt back to pending with a delayed run_at.
func (r *JobsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	op := "jobs.reschedule"

	return r.observe(op, func() error {
		_, err := r.pool.Exec(ctx,
			`UPDATE jobs
				SET status = 'pending',
					run_at = $2,
					locked_at = NULL,
					locked_by = NULL,
					last_error = $3,
					updated_at = now()
			 WHERE id = $1`,
			id, runAt, errMsg,
		)
		return err
	})
}

func (r *JobsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	op := "jobs.mark_failed"

	return r.observe(op, func() error {
		_, err := r.pool.Exec(ctx,
			`UPDATE jobs
				SET status = 'failed',
					locked_at = NULL,
					locked_by = NULL,
					last_error = $2,
					updated_at = now()
			 WHERE id = $1`,
			id, errMsg,
		)
		return err
	})
}
