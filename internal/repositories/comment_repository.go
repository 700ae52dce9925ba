package repositories

import (
	"errors"

	"github.com/placemark-app/backend/internal/models"
	"gorm.io/gorm"
)

// CommentRepository owns comments and comment likes.
type CommentRepository interface {
	CreateComment(userID, postID uint, content string) (*models.Comment, error)
	GetComment(commentID uint) (*models.Comment, error)
	GetComments(postID uint, cursor *uint, limit int) ([]models.Comment, *uint, error)
	SoftDeleteComment(commentID uint) error
	LikeComment(commentID, userID uint) error
	UnlikeComment(commentID, userID uint) error
	GetLikeCount(commentID uint) (int64, error)
	GetLikedCommentIDs(userID uint, commentIDs []uint) (map[uint]bool, error)
}

// PostgresCommentRepository implements CommentRepository for PostgreSQL.
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository.
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

// CreateComment creates a comment on the given post.
func (r *PostgresCommentRepository) CreateComment(userID, postID uint, content string) (*models.Comment, error) {
	comment := models.Comment{UserID: userID, PostID: postID, Content: content}
	if err := r.db.Create(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetComment returns the comment with the given id, or ErrNotFound.
func (r *PostgresCommentRepository) GetComment(commentID uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.Where("NOT deleted").First(&comment, commentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetComments returns a page of the post's comments, oldest first. The cursor
// is the last-seen comment id; following pages return strictly newer ids.
func (r *PostgresCommentRepository) GetComments(postID uint, cursor *uint, limit int) ([]models.Comment, *uint, error) {
	query := r.db.Where("post_id = ? AND NOT deleted", postID)
	if cursor != nil {
		query = query.Where("id > ?", *cursor)
	}
	var comments []models.Comment
	if err := query.Order("id ASC").Limit(limit).Find(&comments).Error; err != nil {
		return nil, nil, err
	}
	ids := make([]uint, len(comments))
	for i, comment := range comments {
		ids[i] = comment.ID
	}
	return comments, NextCursor(ids, limit), nil
}

// SoftDeleteComment marks the comment as deleted.
func (r *PostgresCommentRepository) SoftDeleteComment(commentID uint) error {
	return r.db.Model(&models.Comment{}).Where("id = ?", commentID).Update("deleted", true).Error
}

// LikeComment likes the comment. Liking twice is a silent no-op.
func (r *PostgresCommentRepository) LikeComment(commentID, userID uint) error {
	err := r.db.Create(&models.CommentLike{UserID: userID, CommentID: commentID}).Error
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

// UnlikeComment removes the like; a no-op if the comment was never liked.
func (r *PostgresCommentRepository) UnlikeComment(commentID, userID uint) error {
	return r.db.Where("user_id = ? AND comment_id = ?", userID, commentID).Delete(&models.CommentLike{}).Error
}

// GetLikeCount returns the comment's live like count.
func (r *PostgresCommentRepository) GetLikeCount(commentID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.CommentLike{}).Where("comment_id = ?", commentID).Count(&count).Error
	return count, err
}

// GetLikedCommentIDs returns which of commentIDs the user has liked.
func (r *PostgresCommentRepository) GetLikedCommentIDs(userID uint, commentIDs []uint) (map[uint]bool, error) {
	set := make(map[uint]bool)
	if len(commentIDs) == 0 {
		return set, nil
	}
	var ids []uint
	err := r.db.Model(&models.CommentLike{}).
		Where("user_id = ? AND comment_id IN ?", userID, commentIDs).
		Pluck("comment_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
