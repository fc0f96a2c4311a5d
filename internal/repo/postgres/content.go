package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcalder/bloghub/internal/domain/comment"
	"github.com/mcalder/bloghub/internal/domain/post"
	"github.com/mcalder/bloghub/internal/observability"
)

// ContentRepo bundles the post and comment repos behind a single surface so
// the page handlers depend on one store.
type ContentRepo struct {
	posts    *PostsRepo
	comments *CommentsRepo
}

func NewContentRepo(pool *pgxpool.Pool, prom *observability.Prom) *ContentRepo {
	return &ContentRepo{
		posts:    NewPostsRepo(pool, prom),
		comments: NewCommentsRepo(pool, prom),
	}
}

func (r *ContentRepo) CreatePost(ctx context.Context, p post.Post) (post.Post, error) {
	return r.posts.Create(ctx, p)
}

func (r *ContentRepo) ListPosts(ctx context.Context) ([]post.Post, error) {
	return r.posts.List(ctx)
}

func (r *ContentRepo) GetPost(ctx context.Context, id int64) (post.Post, error) {
	return r.posts.GetByID(ctx, id)
}

func (r *ContentRepo) UpdatePost(ctx context.Context, id int64, req post.UpdateRequest) (post.Post, error) {
	return r.posts.Update(ctx, id, req)
}

func (r *ContentRepo) DeletePost(ctx context.Context, id int64) error {
	return r.posts.Delete(ctx, id)
}

func (r *ContentRepo) CreateComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	return r.comments.Create(ctx, c)
}

func (r *ContentRepo) ListComments(ctx context.Context, postID int64) ([]comment.Comment, error) {
	return r.comments.ListByPost(ctx, postID)
}
