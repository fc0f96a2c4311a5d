package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcalder/bloghub/internal/domain/comment"
	"github.com/mcalder/bloghub/internal/domain/post"
	"github.com/mcalder/bloghub/internal/domain/user"
)

// ContentRepo is an in-memory stand-in for the Postgres repos. It enforces the
// same invariants (unique email, unique title, FK existence, first user is
// admin) so handler tests exercise real conflict paths without a database.
type ContentRepo struct {
	mu sync.RWMutex

	users    map[int64]user.User
	posts    map[int64]post.Post
	comments map[int64]comment.Comment

	nextUserID    int64
	nextPostID    int64
	nextCommentID int64
}

func NewContentRepo() *ContentRepo {
	return &ContentRepo{
		users:    make(map[int64]user.User),
		posts:    make(map[int64]post.Post),
		comments: make(map[int64]comment.Comment),
	}
}

// Users

func (r *ContentRepo) Create(ctx context.Context, name, email, passwordHash string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email = user.NormalizeEmail(email)

	for _, u := range r.users {
		if u.Email == email {
			return user.User{}, user.ErrEmailTaken
		}
	}

	role := user.RoleUser

	if len(r.users) == 0 {
		role = user.RoleAdmin
	}

	r.nextUserID++

	u := user.User{
		ID:           r.nextUserID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	r.users[u.ID] = u
	return u, nil
}

func (r *ContentRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = user.NormalizeEmail(email)

	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}

	return user.User{}, user.ErrNotFound
}

func (r *ContentRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

// Posts

func (r *ContentRepo) CreatePost(ctx context.Context, p post.Post) (post.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.posts {
		if existing.Title == p.Title {
			return post.Post{}, post.ErrTitleTaken
		}
	}

	r.nextPostID++
	p.ID = r.nextPostID
	r.posts[p.ID] = p

	return p, nil
}

func (r *ContentRepo) ListPosts(ctx context.Context) ([]post.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]post.Post, 0, len(r.posts))

	// newest first, matching the SQL ordering
	for id := r.nextPostID; id >= 1; id-- {
		if p, ok := r.posts[id]; ok {
			out = append(out, p)
		}
	}

	return out, nil
}

func (r *ContentRepo) GetPost(ctx context.Context, id int64) (post.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[id]

	if !ok {
		return post.Post{}, post.ErrNotFound
	}

	return p, nil
}

func (r *ContentRepo) UpdatePost(ctx context.Context, id int64, req post.UpdateRequest) (post.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]

	if !ok {
		return post.Post{}, post.ErrNotFound
	}

	for otherID, other := range r.posts {
		if otherID != id && other.Title == req.Title {
			return post.Post{}, post.ErrTitleTaken
		}
	}

	p.Author = req.Author
	p.Title = req.Title
	p.Subtitle = req.Subtitle
	p.ImgURL = req.ImgURL
	p.Body = req.Body

	r.posts[id] = p
	return p, nil
}

func (r *ContentRepo) DeletePost(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return post.ErrNotFound
	}

	delete(r.posts, id)

	// cascade, mirroring the FK
	for cid, c := range r.comments {
		if c.PostID == id {
			delete(r.comments, cid)
		}
	}

	return nil
}

// Comments

func (r *ContentRepo) CreateComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[c.PostID]; !ok {
		return comment.Comment{}, post.ErrNotFound
	}

	if _, ok := r.users[c.UserID]; !ok {
		return comment.Comment{}, user.ErrNotFound
	}

	r.nextCommentID++
	c.ID = r.nextCommentID
	c.CreatedAt = time.Now().UTC()
	r.comments[c.ID] = c

	return c, nil
}

func (r *ContentRepo) ListComments(ctx context.Context, postID int64) ([]comment.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]comment.Comment, 0)

	for id := int64(1); id <= r.nextCommentID; id++ {
		if c, ok := r.comments[id]; ok && c.PostID == postID {
			out = append(out, c)
		}
	}

	return out, nil
}
