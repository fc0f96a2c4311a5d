package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get("request_id")

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

func RenderError(ctx *gin.Context, status int, title, message string) {
	ctx.HTML(status, "error.html", gin.H{
		"title":   title,
		"message": message,
	})
}

func RespondNotFound(ctx *gin.Context, message string) {
	RenderError(ctx, http.StatusNotFound, "Not Found", message)
}

// RespondInternal logs the underlying fault and shows the generic 500 page.
// Storage errors must never be swallowed silently.
func RespondInternal(ctx *gin.Context, log *slog.Logger, msg string, err error) {
	log.Error(msg, "err", err, "request_id", requestIDFrom(ctx))
	RenderError(ctx, http.StatusInternalServerError, "Something went wrong", "Please try again later.")
}
