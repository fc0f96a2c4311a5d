package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mcalder/bloghub/internal/auth"
	"github.com/mcalder/bloghub/internal/cache"
	"github.com/mcalder/bloghub/internal/domain/comment"
	"github.com/mcalder/bloghub/internal/domain/post"
	"github.com/mcalder/bloghub/internal/domain/user"
	"github.com/mcalder/bloghub/internal/http/handlers"
	"github.com/mcalder/bloghub/internal/http/middlewares"
	"github.com/mcalder/bloghub/internal/view"
)

// Fake implementation of the handlers.ContentStore interface

type fakeContentRepo struct {
	listFn          func(ctx context.Context) ([]post.Post, error)
	getFn           func(ctx context.Context, id int64) (post.Post, error)
	createPostFn    func(ctx context.Context, p post.Post) (post.Post, error)
	updateFn        func(ctx context.Context, id int64, req post.UpdateRequest) (post.Post, error)
	deleteFn        func(ctx context.Context, id int64) error
	createCommentFn func(ctx context.Context, c comment.Comment) (comment.Comment, error)
	listCommentsFn  func(ctx context.Context, postID int64) ([]comment.Comment, error)
}

func (f *fakeContentRepo) ListPosts(ctx context.Context) ([]post.Post, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}

	return nil, nil
}

func (f *fakeContentRepo) GetPost(ctx context.Context, id int64) (post.Post, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}

	return post.Post{}, post.ErrNotFound
}

func (f *fakeContentRepo) CreatePost(ctx context.Context, p post.Post) (post.Post, error) {
	if f.createPostFn != nil {
		return f.createPostFn(ctx, p)
	}

	p.ID = 1
	return p, nil
}

func (f *fakeContentRepo) UpdatePost(ctx context.Context, id int64, req post.UpdateRequest) (post.Post, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}

	return post.Post{}, post.ErrNotFound
}

func (f *fakeContentRepo) DeletePost(ctx context.Context, id int64) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}

	return nil
}

func (f *fakeContentRepo) CreateComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	if f.createCommentFn != nil {
		return f.createCommentFn(ctx, c)
	}

	c.ID = 1
	return c, nil
}

func (f *fakeContentRepo) ListComments(ctx context.Context, postID int64) ([]comment.Comment, error) {
	if f.listCommentsFn != nil {
		return f.listCommentsFn(ctx, postID)
	}

	return nil, nil
}

// fakeAuthors doubles as the session user finder and the comment author
// directory, both only need GetByID.

type fakeAuthors struct {
	users map[int64]user.User
}

func (f *fakeAuthors) GetByID(ctx context.Context, id int64) (user.User, error) {
	u, ok := f.users[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

type postsFixture struct {
	store    *fakeContentRepo
	authors  *fakeAuthors
	sessions *auth.Manager
	cache    cache.Store
	router   *gin.Engine
}

func newPostsFixture(store *fakeContentRepo, authors *fakeAuthors, c cache.Store) *postsFixture {
	sessions := auth.NewManager("test-secret-key", time.Hour)
	session := middlewares.NewSessionMiddleware(sessions, authors)

	h := handlers.NewPostsHandler(store, authors, c, quietLogger())

	r := gin.New()
	r.SetHTMLTemplate(view.Templates())
	r.Use(session.Resolve())

	r.GET("/", h.List)
	r.GET("/post/:id", h.Show)
	r.POST("/post/:id", h.AddComment)
	r.POST("/new-post", h.Create)
	r.POST("/edit-post/:id", h.Edit)
	r.GET("/delete/:id", h.Delete)

	return &postsFixture{
		store:    store,
		authors:  authors,
		sessions: sessions,
		cache:    c,
		router:   r,
	}
}

func (fx *postsFixture) request(t *testing.T, method, path string, form url.Values, as *user.User) *httptest.ResponseRecorder {
	t.Helper()

	var body *strings.Reader

	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, body)

	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	if as != nil {
		token, err := fx.sessions.Login(*as)

		if err != nil {
			t.Fatalf("issue session: %v", err)
		}

		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}

	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)

	return w
}

var (
	adminUser  = user.User{ID: 1, Name: "Ada", Email: "ada@example.com", Role: user.RoleAdmin}
	readerUser = user.User{ID: 2, Name: "Bob", Email: "bob@example.com", Role: user.RoleUser}
)

func knownAuthors() *fakeAuthors {
	return &fakeAuthors{users: map[int64]user.User{
		adminUser.ID:  adminUser,
		readerUser.ID: readerUser,
	}}
}

func TestListPosts(t *testing.T) {
	store := &fakeContentRepo{
		listFn: func(ctx context.Context) ([]post.Post, error) {
			return []post.Post{
				{ID: 2, Title: "Second Post", Author: "Ada", Date: "May 02, 2026"},
				{ID: 1, Title: "First Post", Author: "Ada", Date: "May 01, 2026"},
			}, nil
		},
	}

	fx := newPostsFixture(store, knownAuthors(), nil)

	w := fx.request(t, http.MethodGet, "/", nil, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	body := w.Body.String()

	if !strings.Contains(body, "Second Post") || !strings.Contains(body, "First Post") {
		t.Fatalf("post titles missing from body: %s", body)
	}

	if strings.Index(body, "Second Post") > strings.Index(body, "First Post") {
		t.Fatal("posts should render newest first")
	}
}

func TestListPostsServesFromCache(t *testing.T) {
	calls := 0

	store := &fakeContentRepo{
		listFn: func(ctx context.Context) ([]post.Post, error) {
			calls++
			return []post.Post{{ID: 1, Title: "Cached Post"}}, nil
		},
	}

	fx := newPostsFixture(store, knownAuthors(), cache.NewMemory(time.Minute))

	for i := 0; i < 3; i++ {
		w := fx.request(t, http.MethodGet, "/", nil, nil)

		if w.Code != http.StatusOK {
			t.Fatalf("got status %d", w.Code)
		}

		if !strings.Contains(w.Body.String(), "Cached Post") {
			t.Fatal("post missing from body")
		}
	}

	if calls != 1 {
		t.Fatalf("expected one store hit, got %d", calls)
	}
}

func TestShowPost(t *testing.T) {
	known := post.Post{ID: 5, Title: "A Day Out", Author: "Ada", Body: "<p>Lovely.</p>", Date: "May 01, 2026"}

	store := &fakeContentRepo{
		getFn: func(ctx context.Context, id int64) (post.Post, error) {
			if id == known.ID {
				return known, nil
			}

			return post.Post{}, post.ErrNotFound
		},
		listCommentsFn: func(ctx context.Context, postID int64) ([]comment.Comment, error) {
			return []comment.Comment{
				{ID: 1, Author: "Bob", Body: "Nice one", UserID: readerUser.ID, PostID: postID},
			}, nil
		},
	}

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantInBody string
	}{
		{name: "success", path: "/post/5", wantStatus: http.StatusOK, wantInBody: "A Day Out"},
		{name: "has_comments", path: "/post/5", wantStatus: http.StatusOK, wantInBody: "Nice one"},
		{name: "unknown_id", path: "/post/99", wantStatus: http.StatusNotFound, wantInBody: "does not exist"},
		{name: "malformed_id", path: "/post/abc", wantStatus: http.StatusNotFound, wantInBody: "does not exist"},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			fx := newPostsFixture(store, knownAuthors(), nil)

			w := fx.request(t, http.MethodGet, tt.path, nil, nil)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if !strings.Contains(w.Body.String(), tt.wantInBody) {
				t.Fatalf("body does not mention %q: %s", tt.wantInBody, w.Body.String())
			}
		})
	}
}

func TestAddComment(t *testing.T) {
	known := post.Post{ID: 5, Title: "A Day Out", Author: "Ada"}

	tests := []struct {
		name         string
		as           *user.User
		form         url.Values
		wantStatus   int
		wantLocation string
		wantInBody   string
		wantBody     string // stored comment body, empty means no store call
	}{
		{
			name:         "signed_in_user_comments",
			as:           &readerUser,
			form:         url.Values{"comment_text": {"<p>Great read!</p>"}},
			wantStatus:   http.StatusFound,
			wantLocation: "/post/5",
			wantBody:     "<p>Great read!</p>",
		},
		{
			name:         "markup_is_sanitized",
			as:           &readerUser,
			form:         url.Values{"comment_text": {`<p>hey</p><script>alert(1)</script>`}},
			wantStatus:   http.StatusFound,
			wantLocation: "/post/5",
			wantBody:     "<p>hey</p>",
		},
		{
			name:       "empty_comment_rejected",
			as:         &readerUser,
			form:       url.Values{"comment_text": {""}},
			wantStatus: http.StatusOK,
			wantInBody: "Comment cannot be empty",
		},
		{
			name:       "markup_only_comment_rejected",
			as:         &readerUser,
			form:       url.Values{"comment_text": {"<script>alert(1)</script>"}},
			wantStatus: http.StatusOK,
			wantInBody: "Comment cannot be empty",
		},
		{
			name:         "anonymous_redirected_to_login",
			as:           nil,
			form:         url.Values{"comment_text": {"hi"}},
			wantStatus:   http.StatusFound,
			wantLocation: "/login",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			var stored *comment.Comment

			store := &fakeContentRepo{
				getFn: func(ctx context.Context, id int64) (post.Post, error) {
					return known, nil
				},
				createCommentFn: func(ctx context.Context, c comment.Comment) (comment.Comment, error) {
					c.ID = 1
					stored = &c
					return c, nil
				},
			}

			fx := newPostsFixture(store, knownAuthors(), nil)

			w := fx.request(t, http.MethodPost, "/post/5", tt.form, tt.as)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantLocation != "" && w.Header().Get("Location") != tt.wantLocation {
				t.Fatalf("got location %q, want %q", w.Header().Get("Location"), tt.wantLocation)
			}

			if tt.wantInBody != "" && !strings.Contains(w.Body.String(), tt.wantInBody) {
				t.Fatalf("body does not mention %q: %s", tt.wantInBody, w.Body.String())
			}

			if tt.wantBody == "" {
				if stored != nil {
					t.Fatalf("did not expect a stored comment, got %+v", *stored)
				}
				return
			}

			if stored == nil {
				t.Fatal("expected a stored comment")
			}

			if stored.Body != tt.wantBody {
				t.Fatalf("got body %q, want %q", stored.Body, tt.wantBody)
			}

			if stored.Author != tt.as.Name || stored.UserID != tt.as.ID {
				t.Fatalf("comment should carry the session identity, got %+v", *stored)
			}

			if stored.PostID != known.ID {
				t.Fatalf("got post id %d, want %d", stored.PostID, known.ID)
			}
		})
	}
}

func TestCreatePost(t *testing.T) {
	tests := []struct {
		name         string
		form         url.Values
		repoSetUp    func(*fakeContentRepo)
		wantStatus   int
		wantLocation string
		wantInBody   string
		wantStored   bool
	}{
		{
			name: "success",
			form: url.Values{
				"title":    {"New Horizons"},
				"subtitle": {"A fresh start"},
				"img_url":  {"https://example.com/cover.jpg"},
				"body":     {"<p>Welcome!</p><script>alert(1)</script>"},
			},
			wantStatus:   http.StatusFound,
			wantLocation: "/",
			wantStored:   true,
		},
		{
			name: "duplicate_title",
			form: url.Values{
				"title":    {"New Horizons"},
				"subtitle": {"A fresh start"},
				"img_url":  {"https://example.com/cover.jpg"},
				"body":     {"<p>Welcome!</p>"},
			},
			repoSetUp: func(f *fakeContentRepo) {
				f.createPostFn = func(ctx context.Context, p post.Post) (post.Post, error) {
					return post.Post{}, post.ErrTitleTaken
				}
			},
			wantStatus: http.StatusOK,
			wantInBody: "already exists",
		},
		{
			name: "invalid_image_url",
			form: url.Values{
				"title":    {"New Horizons"},
				"subtitle": {"A fresh start"},
				"img_url":  {"not a url"},
				"body":     {"<p>Welcome!</p>"},
			},
			wantStatus: http.StatusOK,
			wantInBody: "must be a valid URL",
		},
		{
			name: "missing_title",
			form: url.Values{
				"subtitle": {"A fresh start"},
				"img_url":  {"https://example.com/cover.jpg"},
				"body":     {"<p>Welcome!</p>"},
			},
			wantStatus: http.StatusOK,
			wantInBody: "is required",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			var stored *post.Post

			store := &fakeContentRepo{}

			if tt.repoSetUp != nil {
				tt.repoSetUp(store)
			} else {
				store.createPostFn = func(ctx context.Context, p post.Post) (post.Post, error) {
					p.ID = 1
					stored = &p
					return p, nil
				}
			}

			fx := newPostsFixture(store, knownAuthors(), nil)

			w := fx.request(t, http.MethodPost, "/new-post", tt.form, &adminUser)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantLocation != "" && w.Header().Get("Location") != tt.wantLocation {
				t.Fatalf("got location %q, want %q", w.Header().Get("Location"), tt.wantLocation)
			}

			if tt.wantInBody != "" && !strings.Contains(w.Body.String(), tt.wantInBody) {
				t.Fatalf("body does not mention %q: %s", tt.wantInBody, w.Body.String())
			}

			if !tt.wantStored {
				return
			}

			if stored == nil {
				t.Fatal("expected a stored post")
			}

			if stored.Author != adminUser.Name || stored.UserID != adminUser.ID {
				t.Fatalf("post should carry the session identity, got %+v", *stored)
			}

			if stored.Date != post.DisplayDate(time.Now()) {
				t.Fatalf("got date %q", stored.Date)
			}

			if strings.Contains(stored.Body, "<script>") {
				t.Fatalf("body was not sanitized: %q", stored.Body)
			}
		})
	}
}

func TestEditPost(t *testing.T) {
	var updatedWith *post.UpdateRequest

	store := &fakeContentRepo{
		updateFn: func(ctx context.Context, id int64, req post.UpdateRequest) (post.Post, error) {
			if id != 5 {
				return post.Post{}, post.ErrNotFound
			}

			updatedWith = &req
			return post.Post{ID: id, Title: req.Title}, nil
		},
	}

	fx := newPostsFixture(store, knownAuthors(), nil)

	form := url.Values{
		"title":    {"A Day Out, Revised"},
		"subtitle": {"Second thoughts"},
		"author":   {"Ada"},
		"img_url":  {"https://example.com/cover.jpg"},
		"body":     {"<p>Still lovely.</p>"},
	}

	w := fx.request(t, http.MethodPost, "/edit-post/5", form, &adminUser)

	if w.Code != http.StatusFound || w.Header().Get("Location") != "/post/5" {
		t.Fatalf("got status %d location %q body=%s", w.Code, w.Header().Get("Location"), w.Body.String())
	}

	if updatedWith == nil || updatedWith.Title != "A Day Out, Revised" {
		t.Fatalf("unexpected update request: %+v", updatedWith)
	}

	w = fx.request(t, http.MethodPost, "/edit-post/99", form, &adminUser)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown post, got %d", w.Code)
	}
}

func TestDeletePost(t *testing.T) {
	deleted := int64(0)

	store := &fakeContentRepo{
		deleteFn: func(ctx context.Context, id int64) error {
			if id != 5 {
				return post.ErrNotFound
			}

			deleted = id
			return nil
		},
		listFn: func(ctx context.Context) ([]post.Post, error) {
			return []post.Post{{ID: 5, Title: "Doomed"}}, nil
		},
	}

	c := cache.NewMemory(time.Minute)
	fx := newPostsFixture(store, knownAuthors(), c)

	// warm the cache through the index page
	if w := fx.request(t, http.MethodGet, "/", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("warm up failed with status %d", w.Code)
	}

	w := fx.request(t, http.MethodGet, "/delete/5", nil, &adminUser)

	if w.Code != http.StatusFound || w.Header().Get("Location") != "/" {
		t.Fatalf("got status %d location %q", w.Code, w.Header().Get("Location"))
	}

	if deleted != 5 {
		t.Fatalf("expected post 5 deleted, got %d", deleted)
	}

	if _, ok := c.Get(context.Background(), "posts:index"); ok {
		t.Fatal("expected the post list cache to be invalidated")
	}

	w = fx.request(t, http.MethodGet, "/delete/99", nil, &adminUser)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown post, got %d", w.Code)
	}
}
