package models

import "time"

// Categories is the fixed set of post categories.
var Categories = []string{"food", "cafe", "activity", "attraction", "lodging", "shopping", "nightlife"}

// IsValidCategory reports whether the given category is one of the fixed set.
func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Post is a user's post about a place. Soft-deleted via the Deleted flag.
// At most one non-deleted post may exist per (user, place) pair.
type Post struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index:idx_post_user_place,unique;not null"`
	PlaceID   uint      `json:"place_id" gorm:"index:idx_post_user_place,unique;index;not null"`
	Category  string    `json:"category" gorm:"not null"`
	Content   string    `json:"content" gorm:"not null"`
	ImageID   *uint     `json:"image_id" gorm:"uniqueIndex"`
	Deleted   bool      `json:"-" gorm:"not null;default:false;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Place *Place       `json:"-" gorm:"foreignKey:PlaceID"`
	Image *ImageUpload `json:"-" gorm:"foreignKey:ImageID"`
}

func (Post) TableName() string { return "posts" }

// ImageURL returns the public URL of the post's image, or nil.
func (p *Post) ImageURL() *string {
	if p.Image == nil {
		return nil
	}
	return p.Image.URL
}

// PostLike is a join row; unique per (user, post) so duplicate likes are
// rejected by the database and treated as no-ops.
type PostLike struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index:idx_post_like_user_post,unique;not null"`
	PostID    uint      `json:"post_id" gorm:"index:idx_post_like_user_post,unique;index;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (PostLike) TableName() string { return "post_likes" }

// PostSave is a join row; unique per (user, post).
type PostSave struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index:idx_post_save_user_post,unique;index;not null"`
	PostID    uint      `json:"post_id" gorm:"index:idx_post_save_user_post,unique;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (PostSave) TableName() string { return "post_saves" }

// PostReport is a user's report of a post; unique per (post, reporter).
type PostReport struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	PostID           uint      `json:"post_id" gorm:"index:idx_post_report_post_user,unique;not null"`
	ReportedByUserID uint      `json:"reported_by_user_id" gorm:"index:idx_post_report_post_user,unique;not null"`
	Details          string    `json:"details"`
	CreatedAt        time.Time `json:"created_at"`
}

func (PostReport) TableName() string { return "post_reports" }

// PublicPost is the externally visible view of a post, enriched with the
// place, author, derived counts, and the caller's like/save state.
type PublicPost struct {
	ID           uint       `json:"id"`
	Place        Place      `json:"place"`
	Category     string     `json:"category"`
	Content      string     `json:"content"`
	ImageURL     *string    `json:"image_url"`
	CreatedAt    time.Time  `json:"created_at"`
	LikeCount    int64      `json:"like_count"`
	CommentCount int64      `json:"comment_count"`
	User         PublicUser `json:"user"`
	Liked        bool       `json:"liked"`
	Saved        bool       `json:"saved"`
}

// CreatePostRequest is the payload for creating or updating a post. Exactly
// one of PlaceID or Place must be set.
type CreatePostRequest struct {
	PlaceID  *uint                    `json:"place_id,omitempty"`
	Place    *MaybeCreatePlaceRequest `json:"place,omitempty"`
	Category string                   `json:"category" validate:"required"`
	Content  string                   `json:"content" validate:"max=2000"`
	ImageID  *uint                    `json:"image_id,omitempty"`
}

// ReportPostRequest carries the optional free-form report details.
type ReportPostRequest struct {
	Details string `json:"details" validate:"max=2000"`
}

// LikePostResponse reports the post's live like count after the operation.
type LikePostResponse struct {
	Likes int64 `json:"likes"`
}

// DeletePostResponse reports whether a post was deleted.
type DeletePostResponse struct {
	Deleted bool `json:"deleted"`
}

// PaginatedPosts is a cursor-paginated page of posts. A nil cursor means
// there are no more pages.
type PaginatedPosts struct {
	Posts  []PublicPost `json:"posts"`
	Cursor *uint        `json:"cursor"`
}
