package http

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/mcalder/bloghub/internal/auth"
	"github.com/mcalder/bloghub/internal/cache"
	"github.com/mcalder/bloghub/internal/domain/user"
	"github.com/mcalder/bloghub/internal/http/handlers"
	"github.com/mcalder/bloghub/internal/http/middlewares"
	"github.com/mcalder/bloghub/internal/observability"
	"github.com/mcalder/bloghub/internal/view"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// UsersStore is everything the router needs from the user directory: account
// creation for register, lookup by email for login and lookup by id for
// session resolution and comment avatars.
type UsersStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
}

// Deps carries everything the router wires together. Jobs, Cache, Prom and
// Ping are optional; nil disables the corresponding feature.
type Deps struct {
	Env      string
	Log      *slog.Logger
	Users    UsersStore
	Content  handlers.ContentStore
	Jobs     handlers.JobEnqueuer
	Sessions *auth.Manager
	Cache    cache.Store
	Prom     *observability.Prom
	Ping     func(ctx context.Context) error
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.SetHTMLTemplate(view.Templates())

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(otelgin.Middleware("bloghub"))

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	session := middlewares.NewSessionMiddleware(d.Sessions, d.Users)
	r.Use(session.Resolve())

	// Wire up handlers

	authHandler := handlers.NewAuthHandler(d.Users, d.Jobs, d.Sessions, d.Env, d.Log)
	postsHandler := handlers.NewPostsHandler(d.Content, d.Users, d.Cache, d.Log)
	pagesHandler := handlers.NewPagesHandler()
	healthHandler := handlers.NewHealthHandler(d.Ping)

	// health + metrics
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/readyz", healthHandler.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// public pages
	r.GET("/", postsHandler.List)
	r.GET("/about", pagesHandler.About)
	r.GET("/contact", pagesHandler.Contact)
	r.GET("/post/:id", postsHandler.Show)

	// auth
	r.GET("/register", authHandler.ShowRegister)
	r.POST("/register", authHandler.Register)
	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)

	// comments need a session but not a role
	r.POST("/post/:id", session.RequireAuth(), postsHandler.AddComment)

	// post management is admin only
	admin := r.Group("/", session.RequireAdmin())
	admin.GET("/new-post", postsHandler.ShowNew)
	admin.POST("/new-post", postsHandler.Create)
	admin.GET("/edit-post/:id", postsHandler.ShowEdit)
	admin.POST("/edit-post/:id", postsHandler.Edit)
	admin.GET("/delete/:id", postsHandler.Delete)

	return r
}
