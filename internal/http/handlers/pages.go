package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PagesHandler serves the static about and contact pages.
type PagesHandler struct{}

func NewPagesHandler() *PagesHandler {
	return &PagesHandler{}
}

func (h *PagesHandler) About(ctx *gin.Context) {
	identity, isAdmin := viewIdentity(ctx)

	ctx.HTML(http.StatusOK, "about.html", gin.H{
		"user":    identity,
		"isAdmin": isAdmin,
	})
}

func (h *PagesHandler) Contact(ctx *gin.Context) {
	identity, isAdmin := viewIdentity(ctx)

	ctx.HTML(http.StatusOK, "contact.html", gin.H{
		"user":    identity,
		"isAdmin": isAdmin,
	})
}
