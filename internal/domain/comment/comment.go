package comment

import "time"

type Comment struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"` // display name, denormalized at creation
	Body      string    `json:"body"`   // sanitized HTML
	CreatedAt time.Time `json:"createdAt"`
	UserID    int64     `json:"userId"`
	PostID    int64     `json:"postId"`
}

type CreateRequest struct {
	Body string `form:"comment_text" binding:"required"`
}
