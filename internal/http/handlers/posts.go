package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mcalder/bloghub/internal/cache"
	"github.com/mcalder/bloghub/internal/domain/comment"
	"github.com/mcalder/bloghub/internal/domain/post"
	"github.com/mcalder/bloghub/internal/domain/user"
	"github.com/mcalder/bloghub/internal/http/middlewares"
	"github.com/mcalder/bloghub/internal/view"
)

type ContentStore interface {
	ListPosts(ctx context.Context) ([]post.Post, error)
	GetPost(ctx context.Context, id int64) (post.Post, error)
	CreatePost(ctx context.Context, p post.Post) (post.Post, error)
	UpdatePost(ctx context.Context, id int64, req post.UpdateRequest) (post.Post, error)
	DeletePost(ctx context.Context, id int64) error
	CreateComment(ctx context.Context, c comment.Comment) (comment.Comment, error)
	ListComments(ctx context.Context, postID int64) ([]comment.Comment, error)
}

type AuthorDirectory interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
}

type PostsHandler struct {
	store ContentStore
	users AuthorDirectory
	cache cache.Store // optional
	log   *slog.Logger
}

func NewPostsHandler(store ContentStore, users AuthorDirectory, c cache.Store, log *slog.Logger) *PostsHandler {
	return &PostsHandler{
		store: store,
		users: users,
		cache: c,
		log:   log,
	}
}

const postListCacheKey = "posts:index"

// CommentView pairs a comment with its author's email so the view can build
// the avatar URL.
type CommentView struct {
	Comment     comment.Comment
	AuthorEmail string
}

func viewIdentity(ctx *gin.Context) (any, bool) {
	u, ok := middlewares.CurrentUser(ctx)

	if !ok {
		return nil, false
	}

	return u, u.IsAdmin()
}

func (h *PostsHandler) List(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	posts, err := h.cachedPosts(cctx)

	if err != nil {
		RespondInternal(ctx, h.log, "list posts", err)
		return
	}

	identity, isAdmin := viewIdentity(ctx)

	ctx.HTML(http.StatusOK, "index.html", gin.H{
		"posts":   posts,
		"user":    identity,
		"isAdmin": isAdmin,
	})
}

func (h *PostsHandler) cachedPosts(ctx context.Context) ([]post.Post, error) {
	if h.cache != nil {
		if raw, ok := h.cache.Get(ctx, postListCacheKey); ok {
			var posts []post.Post

			if err := json.Unmarshal(raw, &posts); err == nil {
				return posts, nil
			}
			// fall through to the store on a corrupt entry
		}
	}

	posts, err := h.store.ListPosts(ctx)

	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if raw, err := json.Marshal(posts); err == nil {
			h.cache.Set(ctx, postListCacheKey, raw)
		}
	}

	return posts, nil
}

func (h *PostsHandler) invalidatePostList(ctx context.Context) {
	if h.cache != nil {
		h.cache.Delete(ctx, postListCacheKey)
	}
}

func postID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)

	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}

func (h *PostsHandler) Show(ctx *gin.Context) {
	id, ok := postID(ctx)

	if !ok {
		RespondNotFound(ctx, "That post does not exist.")
		return
	}

	h.renderPost(ctx, id, "")
}

func (h *PostsHandler) renderPost(ctx *gin.Context, id int64, commentError string) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	p, err := h.store.GetPost(cctx, id)

	if err != nil {
		if err == post.ErrNotFound {
			RespondNotFound(ctx, "That post does not exist.")
			return
		}

		RespondInternal(ctx, h.log, "load post", err)
		return
	}

	comments, err := h.store.ListComments(cctx, id)

	if err != nil {
		RespondInternal(ctx, h.log, "load comments", err)
		return
	}

	views := make([]CommentView, 0, len(comments))

	for _, c := range comments {
		cv := CommentView{Comment: c}

		// best effort; a missing author just falls back to the default avatar
		if author, err := h.users.GetByID(cctx, c.UserID); err == nil {
			cv.AuthorEmail = author.Email
		}

		views = append(views, cv)
	}

	identity, isAdmin := viewIdentity(ctx)

	ctx.HTML(http.StatusOK, "post.html", gin.H{
		"post":     p,
		"comments": views,
		"user":     identity,
		"isAdmin":  isAdmin,
		"error":    commentError,
	})
}

// AddComment handles the comment form on the post page. Anonymous users are
// sent to login rather than shown an error page.
func (h *PostsHandler) AddComment(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)

	if !ok {
		ctx.Redirect(http.StatusFound, "/login")
		return
	}

	id, okID := postID(ctx)

	if !okID {
		RespondNotFound(ctx, "That post does not exist.")
		return
	}

	var req comment.CreateRequest

	if err := ctx.ShouldBind(&req); err != nil {
		h.renderPost(ctx, id, "Comment cannot be empty.")
		return
	}

	body := strings.TrimSpace(view.SanitizeUGC(req.Body))

	if body == "" {
		h.renderPost(ctx, id, "Comment cannot be empty.")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	_, err := h.store.CreateComment(cctx, comment.Comment{
		Author: u.Name,
		Body:   body,
		UserID: u.ID,
		PostID: id,
	})

	if err != nil {
		if err == post.ErrNotFound {
			RespondNotFound(ctx, "That post does not exist.")
			return
		}

		RespondInternal(ctx, h.log, "create comment", err)
		return
	}

	ctx.Redirect(http.StatusFound, "/post/"+strconv.FormatInt(id, 10))
}

func (h *PostsHandler) ShowNew(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "make-post.html", gin.H{
		"action": "/new-post",
	})
}

func (h *PostsHandler) Create(ctx *gin.Context) {
	u, _ := middlewares.CurrentUser(ctx) // admin guard already ran

	var req post.CreateRequest

	if err := ctx.ShouldBind(&req); err != nil {
		ctx.HTML(http.StatusOK, "make-post.html", gin.H{
			"action":      "/new-post",
			"fieldErrors": FormErrors(err, &req),
			"title":       ctx.PostForm("title"),
			"subtitle":    ctx.PostForm("subtitle"),
			"imgURL":      ctx.PostForm("img_url"),
			"body":        ctx.PostForm("body"),
		})
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	p, err := h.store.CreatePost(cctx, post.Post{
		Author:   u.Name,
		Title:    req.Title,
		Subtitle: req.Subtitle,
		Date:     post.DisplayDate(time.Now()),
		Body:     view.SanitizeUGC(req.Body),
		ImgURL:   req.ImgURL,
		UserID:   u.ID,
	})

	if err != nil {
		if err == post.ErrTitleTaken {
			ctx.HTML(http.StatusOK, "make-post.html", gin.H{
				"action":   "/new-post",
				"error":    "A post with that title already exists.",
				"title":    req.Title,
				"subtitle": req.Subtitle,
				"imgURL":   req.ImgURL,
				"body":     req.Body,
			})
			return
		}

		RespondInternal(ctx, h.log, "create post", err)
		return
	}

	h.invalidatePostList(cctx)
	h.log.Info("post created", "post_id", p.ID, "user_id", u.ID)
	ctx.Redirect(http.StatusFound, "/")
}

func (h *PostsHandler) ShowEdit(ctx *gin.Context) {
	id, ok := postID(ctx)

	if !ok {
		RespondNotFound(ctx, "That post does not exist.")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	p, err := h.store.GetPost(cctx, id)

	if err != nil {
		if err == post.ErrNotFound {
			RespondNotFound(ctx, "That post does not exist.")
			return
		}

		RespondInternal(ctx, h.log, "load post", err)
		return
	}

	ctx.HTML(http.StatusOK, "make-post.html", gin.H{
		"action":   "/edit-post/" + strconv.FormatInt(id, 10),
		"editing":  true,
		"title":    p.Title,
		"subtitle": p.Subtitle,
		"author":   p.Author,
		"imgURL":   p.ImgURL,
		"body":     p.Body,
	})
}

// Edit accepts the submission on POST; the form itself is served on GET.
func (h *PostsHandler) Edit(ctx *gin.Context) {
	id, ok := postID(ctx)

	if !ok {
		RespondNotFound(ctx, "That post does not exist.")
		return
	}

	action := "/edit-post/" + strconv.FormatInt(id, 10)

	var req post.UpdateRequest

	if err := ctx.ShouldBind(&req); err != nil {
		ctx.HTML(http.StatusOK, "make-post.html", gin.H{
			"action":      action,
			"editing":     true,
			"fieldErrors": FormErrors(err, &req),
			"title":       ctx.PostForm("title"),
			"subtitle":    ctx.PostForm("subtitle"),
			"author":      ctx.PostForm("author"),
			"imgURL":      ctx.PostForm("img_url"),
			"body":        ctx.PostForm("body"),
		})
		return
	}

	req.Body = view.SanitizeUGC(req.Body)

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	p, err := h.store.UpdatePost(cctx, id, req)

	if err != nil {
		switch err {
		case post.ErrNotFound:
			RespondNotFound(ctx, "That post does not exist.")
		case post.ErrTitleTaken:
			ctx.HTML(http.StatusOK, "make-post.html", gin.H{
				"action":   action,
				"editing":  true,
				"error":    "A post with that title already exists.",
				"title":    req.Title,
				"subtitle": req.Subtitle,
				"author":   req.Author,
				"imgURL":   req.ImgURL,
				"body":     req.Body,
			})
		default:
			RespondInternal(ctx, h.log, "update post", err)
		}
		return
	}

	h.invalidatePostList(cctx)
	ctx.Redirect(http.StatusFound, "/post/"+strconv.FormatInt(p.ID, 10))
}

func (h *PostsHandler) Delete(ctx *gin.Context) {
	id, ok := postID(ctx)

	if !ok {
		RespondNotFound(ctx, "That post does not exist.")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	err := h.store.DeletePost(cctx, id)

	if err != nil {
		if err == post.ErrNotFound {
			RespondNotFound(ctx, "That post does not exist.")
			return
		}

		RespondInternal(ctx, h.log, "delete post", err)
		return
	}

	h.invalidatePostList(cctx)
	ctx.Redirect(http.StatusFound, "/")
}
