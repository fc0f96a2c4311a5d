package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcalder/bloghub/internal/domain/comment"
	"github.com/mcalder/bloghub/internal/domain/post"
	"github.com/mcalder/bloghub/internal/observability"
)

type CommentsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewCommentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *CommentsRepo {
	return &CommentsRepo{pool: pool, prom: prom}
}

func (r *CommentsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// Create inserts a comment. Both FKs are enforced at insert time; a post that
// vanished between page load and submit surfaces as post.ErrNotFound.
func (r *CommentsRepo) Create(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	op := "comments.create"

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO comments (author, body, user_id, post_id)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, created_at`,
			c.Author, c.Body, c.UserID, c.PostID,
		).Scan(&c.ID, &c.CreatedAt)
	})

	if err != nil {
		if IsForeignKeyViolation(err) {
			return comment.Comment{}, post.ErrNotFound
		}

		return comment.Comment{}, err
	}

	return c, nil
}

func (r *CommentsRepo) ListByPost(ctx context.Context, postID int64) ([]comment.Comment, error) {
	var output []comment.Comment

	op := "comments.list_by_post"

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, author, body, created_at, user_id, post_id
			 FROM comments
			 WHERE post_id = $1
			 ORDER BY id ASC`,
			postID,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		output = make([]comment.Comment, 0)

		for rows.Next() {
			var c comment.Comment

			err = rows.Scan(&c.ID, &c.Author, &c.Body, &c.CreatedAt, &c.UserID, &c.PostID)

			if err != nil {
				return err
			}

			output = append(output, c)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}
