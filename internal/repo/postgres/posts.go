package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcalder/bloghub/internal/domain/post"
	"github.com/mcalder/bloghub/internal/observability"
)

type PostsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPostsRepo(pool *pgxpool.Pool, prom *observability.Prom) *PostsRepo {
	return &PostsRepo{pool: pool, prom: prom}
}

func (r *PostsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *PostsRepo) Create(ctx context.Context, p post.Post) (post.Post, error) {
	op := "posts.create"

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO posts (author, title, subtitle, date, body, img_url, user_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id`,
			p.Author, p.Title, p.Subtitle, p.Date, p.Body, p.ImgURL, p.UserID,
		).Scan(&p.ID)
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return post.Post{}, post.ErrTitleTaken
		}

		return post.Post{}, err
	}

	return p, nil
}

// List returns every post, newest first. Pagination is deliberately absent.
func (r *PostsRepo) List(ctx context.Context) ([]post.Post, error) {
	var output []post.Post

	op := "posts.list"

	err := r.observe(op, func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT id, author, title, subtitle, date, body, img_url, user_id
			 FROM posts
			 ORDER BY id DESC`,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		output = make([]post.Post, 0)

		for rows.Next() {
			var p post.Post

			err = rows.Scan(&p.ID, &p.Author, &p.Title, &p.Subtitle, &p.Date, &p.Body, &p.ImgURL, &p.UserID)

			if err != nil {
				return err
			}

			output = append(output, p)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

func (r *PostsRepo) GetByID(ctx context.Context, id int64) (post.Post, error) {
	var p post.Post

	op := "posts.get_by_id"

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, author, title, subtitle, date, body, img_url, user_id
			 FROM posts
			 WHERE id = $1`,
			id,
		).Scan(&p.ID, &p.Author, &p.Title, &p.Subtitle, &p.Date, &p.Body, &p.ImgURL, &p.UserID)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.Post{}, post.ErrNotFound
		}

		return post.Post{}, err
	}

	return p, nil
}

func (r *PostsRepo) Update(ctx context.Context, id int64, req post.UpdateRequest) (post.Post, error) {
	var p post.Post

	op := "posts.update"

	err := r.observe(op, func() error {
		return r.pool.QueryRow(ctx,
			`UPDATE posts
				SET author = $2,
					title = $3,
					subtitle = $4,
					img_url = $5,
					body = $6
			 WHERE id = $1
			 RETURNING id, author, title, subtitle, date, body, img_url, user_id`,
			id, req.Author, req.Title, req.Subtitle, req.ImgURL, req.Body,
		).Scan(&p.ID, &p.Author, &p.Title, &p.Subtitle, &p.Date, &p.Body, &p.ImgURL, &p.UserID)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.Post{}, post.ErrNotFound
		}

		if IsUniqueViolation(err) {
			return post.Post{}, post.ErrTitleTaken
		}

		return post.Post{}, err
	}

	return p, nil
}

// Delete removes a post; dependent comments go with it via the FK cascade.
func (r *PostsRepo) Delete(ctx context.Context, id int64) error {
	op := "posts.delete"

	var tag int64

	err := r.observe(op, func() error {
		res, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)

		if err != nil {
			return err
		}

		tag = res.RowsAffected()
		return nil
	})

	if err != nil {
		return err
	}

	if tag == 0 {
		return post.ErrNotFound
	}

	return nil
}
