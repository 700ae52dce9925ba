package models

import "time"

// Comment is a comment on a post. Soft-deleted via the Deleted flag.
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	PostID    uint      `json:"post_id" gorm:"index;not null"`
	Content   string    `json:"content" gorm:"not null"`
	Deleted   bool      `json:"-" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Comment) TableName() string { return "comments" }

// CommentLike is a join row; unique per (user, comment).
type CommentLike struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index:idx_comment_like_user_comment,unique;not null"`
	CommentID uint      `json:"comment_id" gorm:"index:idx_comment_like_user_comment,unique;index;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (CommentLike) TableName() string { return "comment_likes" }

// PublicComment is the externally visible view of a comment.
type PublicComment struct {
	ID        uint       `json:"id"`
	User      PublicUser `json:"user"`
	PostID    uint       `json:"post_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	LikeCount int64      `json:"like_count"`
	Liked     bool       `json:"liked"`
}

// CreateCommentRequest is the payload for creating a comment.
type CreateCommentRequest struct {
	PostID  uint   `json:"post_id" validate:"required"`
	Content string `json:"content" validate:"required,min=1,max=200"`
}

// LikeCommentResponse reports the comment's live like count.
type LikeCommentResponse struct {
	Likes int64 `json:"likes"`
}

// CommentPage is a cursor-paginated page of comments, oldest first.
type CommentPage struct {
	Comments []PublicComment `json:"comments"`
	Cursor   *uint           `json:"cursor"`
}
