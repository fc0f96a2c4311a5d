package middlewares

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mcalder/bloghub/internal/auth"
	"github.com/mcalder/bloghub/internal/domain/user"
)

// Small interfaces so tests can fake both sides easily.
type SessionVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type UserFinder interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
}

type SessionMiddleware struct {
	sessions SessionVerifier
	users    UserFinder
}

func NewSessionMiddleware(sessions SessionVerifier, users UserFinder) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions, users: users}
}

const ctxUserKey = "session.user"

// Resolve turns the session cookie into an identity on the request context.
// A missing or invalid cookie, or a token whose user no longer exists, means
// the request proceeds anonymously; this middleware never aborts.
func (m *SessionMiddleware) Resolve() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(auth.CookieName)

		if err != nil || raw == "" {
			c.Next()
			return
		}

		claims, err := m.sessions.Verify(raw)

		if err != nil {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		u, err := m.users.GetByID(ctx, claims.UserID)
		cancel()

		if err != nil {
			c.Next()
			return
		}

		c.Set(ctxUserKey, u)
		c.Next()
	}
}

// CurrentUser reads the identity Resolve stashed on the context. The second
// return is false for anonymous requests.
func CurrentUser(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return user.User{}, false
	}

	u, ok := v.(user.User)
	return u, ok
}

// RequireAuth sends anonymous requests to the login page.
func (m *SessionMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAdmin gates post mutation to the administrator. Anything else gets a
// 403 page; never a redirect, never a silent pass.
func (m *SessionMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)

		if !ok || !u.IsAdmin() {
			c.HTML(http.StatusForbidden, "error.html", gin.H{
				"title":   "Forbidden",
				"message": "You do not have permission to do that.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
