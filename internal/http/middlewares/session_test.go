package middlewares_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mcalder/bloghub/internal/auth"
	"github.com/mcalder/bloghub/internal/domain/user"
	"github.com/mcalder/bloghub/internal/http/middlewares"
	"github.com/mcalder/bloghub/internal/view"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUserFinder struct {
	users map[int64]user.User
}

func (f *fakeUserFinder) GetByID(ctx context.Context, id int64) (user.User, error) {
	u, ok := f.users[id]

	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

var (
	adminUser  = user.User{ID: 1, Name: "Ada", Email: "ada@example.com", Role: user.RoleAdmin}
	readerUser = user.User{ID: 2, Name: "Bob", Email: "bob@example.com", Role: user.RoleUser}
)

func setupSessionRouter() (*gin.Engine, *auth.Manager) {
	sessions := auth.NewManager("test-secret-key", time.Hour)

	finder := &fakeUserFinder{users: map[int64]user.User{
		adminUser.ID:  adminUser,
		readerUser.ID: readerUser,
	}}

	m := middlewares.NewSessionMiddleware(sessions, finder)

	r := gin.New()
	r.SetHTMLTemplate(view.Templates())
	r.Use(m.Resolve())

	r.GET("/probe", func(c *gin.Context) {
		if u, ok := middlewares.CurrentUser(c); ok {
			c.String(http.StatusOK, "hello "+u.Name)
			return
		}

		c.String(http.StatusOK, "hello stranger")
	})

	return r, sessions
}

func probe(t *testing.T, r *gin.Engine, cookie string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)

	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: cookie})
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestResolve(t *testing.T) {
	r, sessions := setupSessionRouter()

	validToken, err := sessions.Login(readerUser)

	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	otherSecret := auth.NewManager("a-different-secret", time.Hour)
	forgedToken, err := otherSecret.Login(readerUser)

	if err != nil {
		t.Fatalf("issue forged session: %v", err)
	}

	deletedToken, err := sessions.Login(user.User{ID: 42, Name: "Ghost", Role: user.RoleUser})

	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	tests := []struct {
		name     string
		cookie   string
		wantBody string
	}{
		{name: "valid_session", cookie: validToken, wantBody: "hello Bob"},
		{name: "no_cookie", cookie: "", wantBody: "hello stranger"},
		{name: "garbage_token", cookie: "not.a.jwt", wantBody: "hello stranger"},
		{name: "wrong_secret", cookie: forgedToken, wantBody: "hello stranger"},
		{name: "user_no_longer_exists", cookie: deletedToken, wantBody: "hello stranger"},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			w := probe(t, r, tt.cookie)

			if w.Code != http.StatusOK {
				t.Fatalf("got status %d", w.Code)
			}

			if w.Body.String() != tt.wantBody {
				t.Fatalf("got body %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	sessions := auth.NewManager("test-secret-key", time.Hour)

	finder := &fakeUserFinder{users: map[int64]user.User{readerUser.ID: readerUser}}
	m := middlewares.NewSessionMiddleware(sessions, finder)

	r := gin.New()
	r.SetHTMLTemplate(view.Templates())
	r.Use(m.Resolve())
	r.GET("/probe", m.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, "in")
	})

	w := probe(t, r, "")

	if w.Code != http.StatusFound || w.Header().Get("Location") != "/login" {
		t.Fatalf("anonymous should be sent to login, got status %d location %q", w.Code, w.Header().Get("Location"))
	}

	token, err := sessions.Login(readerUser)

	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	w = probe(t, r, token)

	if w.Code != http.StatusOK || w.Body.String() != "in" {
		t.Fatalf("signed-in user should pass, got status %d body %q", w.Code, w.Body.String())
	}
}

func TestRequireAdmin(t *testing.T) {
	sessions := auth.NewManager("test-secret-key", time.Hour)

	finder := &fakeUserFinder{users: map[int64]user.User{
		adminUser.ID:  adminUser,
		readerUser.ID: readerUser,
	}}

	m := middlewares.NewSessionMiddleware(sessions, finder)

	r := gin.New()
	r.SetHTMLTemplate(view.Templates())
	r.Use(m.Resolve())
	r.GET("/probe", m.RequireAdmin(), func(c *gin.Context) {
		c.String(http.StatusOK, "in")
	})

	adminToken, err := sessions.Login(adminUser)

	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	readerToken, err := sessions.Login(readerUser)

	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	tests := []struct {
		name       string
		cookie     string
		wantStatus int
	}{
		{name: "admin_passes", cookie: adminToken, wantStatus: http.StatusOK},
		{name: "reader_forbidden", cookie: readerToken, wantStatus: http.StatusForbidden},
		{name: "anonymous_forbidden", cookie: "", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			w := probe(t, r, tt.cookie)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			// never a redirect, even for anonymous callers
			if loc := w.Header().Get("Location"); loc != "" {
				t.Fatalf("admin gate must not redirect, got location %q", loc)
			}
		})
	}
}
