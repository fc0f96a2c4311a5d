package post

import (
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("post not found")
	ErrTitleTaken = errors.New("post title already in use")
)

type Post struct {
	ID       int64  `json:"id"`
	Author   string `json:"author"` // display name, denormalized at creation
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Date     string `json:"date"` // formatted display date, e.g. "August 29, 2026"
	Body     string `json:"body"` // sanitized HTML
	ImgURL   string `json:"imgUrl"`
	UserID   int64  `json:"userId"`
}

type CreateRequest struct {
	Title    string `form:"title" binding:"required,max=250"`
	Subtitle string `form:"subtitle" binding:"required,max=250"`
	ImgURL   string `form:"img_url" binding:"required,url,max=250"`
	Body     string `form:"body" binding:"required"`
}

type UpdateRequest struct {
	Title    string `form:"title" binding:"required,max=250"`
	Subtitle string `form:"subtitle" binding:"required,max=250"`
	Author   string `form:"author" binding:"required,max=250"`
	ImgURL   string `form:"img_url" binding:"required,url,max=250"`
	Body     string `form:"body" binding:"required"`
}

// DisplayDate is the publish date format the post list and post page render.
func DisplayDate(t time.Time) string {
	return t.Format("January 02, 2006")
}
