package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mcalder/bloghub/internal/auth"
	"github.com/mcalder/bloghub/internal/domain/job"
	"github.com/mcalder/bloghub/internal/domain/user"
	"github.com/mcalder/bloghub/internal/http/middlewares"
	"github.com/mcalder/bloghub/internal/security"
)

type UserDirectory interface {
	Create(ctx context.Context, name, email, passwordHash string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

type AuthHandler struct {
	users    UserDirectory
	jobs     JobEnqueuer // optional; nil skips the welcome mail
	sessions *auth.Manager
	env      string
	log      *slog.Logger
}

func NewAuthHandler(users UserDirectory, jobs JobEnqueuer, sessions *auth.Manager, env string, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		jobs:     jobs,
		sessions: sessions,
		env:      env,
		log:      log,
	}
}

func (h *AuthHandler) ShowRegister(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "register.html", gin.H{})
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if err := ctx.ShouldBind(&req); err != nil {
		ctx.HTML(http.StatusOK, "register.html", gin.H{
			"fieldErrors": FormErrors(err, &req),
			"name":        ctx.PostForm("name"),
			"email":       ctx.PostForm("email"),
		})
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, h.log, "hash password", err)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	u, err := h.users.Create(cctx, req.Name, req.Email, hash)

	if err != nil {
		if err == user.ErrEmailTaken {
			ctx.HTML(http.StatusOK, "register.html", gin.H{
				"error": "That email is already registered. Try logging in instead.",
				"name":  req.Name,
				"email": req.Email,
			})
			return
		}

		RespondInternal(ctx, h.log, "create user", err)
		return
	}

	h.enqueueWelcome(cctx, u)

	// no automatic session on signup; the user logs in explicitly
	ctx.Redirect(http.StatusFound, "/login")
}

func (h *AuthHandler) ShowLogin(ctx *gin.Context) {
	if _, ok := middlewares.CurrentUser(ctx); ok {
		ctx.Redirect(http.StatusFound, "/")
		return
	}

	ctx.HTML(http.StatusOK, "login.html", gin.H{})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	if _, ok := middlewares.CurrentUser(ctx); ok {
		ctx.Redirect(http.StatusFound, "/")
		return
	}

	var req user.LoginRequest

	if err := ctx.ShouldBind(&req); err != nil {
		ctx.HTML(http.StatusOK, "login.html", gin.H{
			"error": "Please provide a valid email and password.",
			"email": ctx.PostForm("email"),
		})
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	found, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		if err == user.ErrNotFound {
			ctx.HTML(http.StatusOK, "login.html", gin.H{
				"error": "No user found",
				"email": req.Email,
			})
			return
		}

		RespondInternal(ctx, h.log, "look up user", err)
		return
	}

	if !security.CheckPassword(found.PasswordHash, req.Password) {
		ctx.HTML(http.StatusOK, "login.html", gin.H{
			"error": "Password is incorrect",
			"email": req.Email,
		})
		return
	}

	token, err := h.sessions.Login(found)

	if err != nil {
		RespondInternal(ctx, h.log, "issue session", err)
		return
	}

	h.setSessionCookie(ctx, token)
	ctx.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	h.clearSessionCookie(ctx)
	ctx.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) enqueueWelcome(ctx context.Context, u user.User) {
	if h.jobs == nil {
		return
	}

	payload, err := job.WelcomeEmailPayload{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
	}.Encode()

	if err != nil {
		h.log.Error("encode welcome payload", "err", err, "user_id", u.ID)
		return
	}

	// the registration already committed; a lost welcome mail is not worth
	// failing the request over
	if _, err := h.jobs.Enqueue(ctx, job.CreateRequest{Type: job.TypeWelcomeEmail, Payload: payload}); err != nil {
		h.log.Error("enqueue welcome mail", "err", err, "user_id", u.ID)
	}
}

func (h *AuthHandler) setSessionCookie(ctx *gin.Context, token string) {
	secure := h.env == "prod"
	maxAge := int(h.sessions.TTL().Seconds())

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(auth.CookieName, token, maxAge, "/", "", secure, true)
}

func (h *AuthHandler) clearSessionCookie(ctx *gin.Context) {
	secure := h.env == "prod"

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(auth.CookieName, "", -1, "/", "", secure, true)
}
