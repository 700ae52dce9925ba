package repositories

import (
	"errors"

	"github.com/placemark-app/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository owns post lifecycle and engagement (likes, saves, reports).
type PostRepository interface {
	CreatePost(userID, placeID uint, category, content string, imageID *uint) (*models.Post, error)
	UpdatePost(postID, placeID uint, category, content string, imageID *uint) (*models.Post, error)
	GetPost(postID uint) (*models.Post, error)
	GetPosts(postIDs []uint) ([]models.Post, error)
	GetPostIDsByUser(userID uint, cursor *uint, limit int) ([]uint, error)
	SoftDeletePost(postID uint) error
	LikePost(userID, postID uint) error
	UnlikePost(userID, postID uint) error
	SavePost(userID, postID uint) error
	UnsavePost(userID, postID uint) error
	GetLikeCount(postID uint) (int64, error)
	GetCommentCount(postID uint) (int64, error)
	GetLikeCounts(postIDs []uint) (map[uint]int64, error)
	GetCommentCounts(postIDs []uint) (map[uint]int64, error)
	IsPostLiked(postID, userID uint) (bool, error)
	IsPostSaved(postID, userID uint) (bool, error)
	GetLikedPostIDs(userID uint, postIDs []uint) (map[uint]bool, error)
	GetSavedPostIDs(userID uint, postIDs []uint) (map[uint]bool, error)
	GetSavedPostsByUser(userID uint, cursor *uint, limit int) ([]models.PostSave, *uint, error)
	ReportPost(postID, reportedByUserID uint, details string) (bool, error)
}

// PostgresPostRepository implements PostRepository for PostgreSQL.
type PostgresPostRepository struct {
	db *gorm.DB
}

// NewPostgresPostRepository creates a new PostgresPostRepository.
func NewPostgresPostRepository(db *gorm.DB) *PostgresPostRepository {
	return &PostgresPostRepository{db: db}
}

// CreatePost creates a post, validating the category and the one-post-per-
// place rule. When an image is attached, the upload row is locked, checked
// for ownership and reuse, and marked used inside the same transaction.
func (r *PostgresPostRepository) CreatePost(userID, placeID uint, category, content string, imageID *uint) (*models.Post, error) {
	if !models.IsValidCategory(category) {
		return nil, ErrInvalidCategory
	}
	var alreadyPosted int64
	err := r.db.Model(&models.Post{}).
		Where("user_id = ? AND place_id = ? AND NOT deleted", userID, placeID).
		Count(&alreadyPosted).Error
	if err != nil {
		return nil, err
	}
	if alreadyPosted > 0 {
		return nil, ErrAlreadyPosted
	}
	post := models.Post{
		UserID:   userID,
		PlaceID:  placeID,
		Category: category,
		Content:  content,
	}
	err = r.db.Transaction(func(tx *gorm.DB) error {
		if imageID != nil {
			if err := claimImage(tx, userID, *imageID); err != nil {
				return err
			}
			post.ImageID = imageID
		}
		return tx.Create(&post).Error
	})
	if err != nil {
		if isUniqueViolationOn(err, "idx_post_user_place") {
			// Concurrent create for the same (user, place) pair.
			return nil, ErrAlreadyPosted
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicateImage
		}
		return nil, err
	}
	return r.GetPost(post.ID)
}

// UpdatePost rewrites the post's place, category, content, and image. Image
// swaps claim the new upload under the same row lock as CreatePost.
func (r *PostgresPostRepository) UpdatePost(postID, placeID uint, category, content string, imageID *uint) (*models.Post, error) {
	if !models.IsValidCategory(category) {
		return nil, ErrInvalidCategory
	}
	post, err := r.GetPost(postID)
	if err != nil {
		return nil, err
	}
	err = r.db.Transaction(func(tx *gorm.DB) error {
		if imageID != nil && (post.ImageID == nil || *post.ImageID != *imageID) {
			if err := claimImage(tx, post.UserID, *imageID); err != nil {
				return err
			}
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).Updates(map[string]any{
			"place_id": placeID,
			"category": category,
			"content":  content,
			"image_id": imageID,
		}).Error
	})
	if err != nil {
		if isUniqueViolationOn(err, "idx_post_user_place") {
			return nil, ErrAlreadyPosted
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicateImage
		}
		return nil, err
	}
	return r.GetPost(postID)
}

// GetPost returns the post with the given id, or ErrNotFound if it does not
// exist or is soft-deleted.
func (r *PostgresPostRepository) GetPost(postID uint) (*models.Post, error) {
	var post models.Post
	err := r.db.Preload("Place").Preload("Image").
		Where("NOT deleted").
		First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// GetPosts returns the non-deleted posts among postIDs, newest first.
func (r *PostgresPostRepository) GetPosts(postIDs []uint) ([]models.Post, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var posts []models.Post
	err := r.db.Preload("Place").Preload("Image").
		Where("id IN ? AND NOT deleted", postIDs).
		Order("id DESC").
		Find(&posts).Error
	return posts, err
}

// GetPostIDsByUser returns a page of the user's post ids, newest first.
func (r *PostgresPostRepository) GetPostIDsByUser(userID uint, cursor *uint, limit int) ([]uint, error) {
	query := r.db.Model(&models.Post{}).Where("user_id = ? AND NOT deleted", userID)
	if cursor != nil {
		query = query.Where("id < ?", *cursor)
	}
	var ids []uint
	err := query.Order("id DESC").Limit(limit).Pluck("id", &ids).Error
	return ids, err
}

// SoftDeletePost marks the post as deleted. The row and its engagement rows
// are preserved so the post can be restored.
func (r *PostgresPostRepository) SoftDeletePost(postID uint) error {
	return r.db.Model(&models.Post{}).Where("id = ?", postID).Update("deleted", true).Error
}

// LikePost likes the post. Liking a post twice is a silent no-op.
func (r *PostgresPostRepository) LikePost(userID, postID uint) error {
	err := r.db.Create(&models.PostLike{UserID: userID, PostID: postID}).Error
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

// UnlikePost removes the like. Unliking a never-liked post is a no-op.
func (r *PostgresPostRepository) UnlikePost(userID, postID uint) error {
	return r.db.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.PostLike{}).Error
}

// SavePost saves the post. Saving twice is a silent no-op.
func (r *PostgresPostRepository) SavePost(userID, postID uint) error {
	err := r.db.Create(&models.PostSave{UserID: userID, PostID: postID}).Error
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

// UnsavePost removes the save. Unsaving a never-saved post is a no-op.
func (r *PostgresPostRepository) UnsavePost(userID, postID uint) error {
	return r.db.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.PostSave{}).Error
}

// GetLikeCount returns the post's live like count.
func (r *PostgresPostRepository) GetLikeCount(postID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

// GetCommentCount returns the post's live count of non-deleted comments.
func (r *PostgresPostRepository) GetCommentCount(postID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Comment{}).Where("post_id = ? AND NOT deleted", postID).Count(&count).Error
	return count, err
}

// GetLikeCounts returns like counts for the given posts, keyed by post id.
func (r *PostgresPostRepository) GetLikeCounts(postIDs []uint) (map[uint]int64, error) {
	return r.countByPost(r.db.Model(&models.PostLike{}), postIDs)
}

// GetCommentCounts returns non-deleted comment counts for the given posts.
func (r *PostgresPostRepository) GetCommentCounts(postIDs []uint) (map[uint]int64, error) {
	return r.countByPost(r.db.Model(&models.Comment{}).Where("NOT deleted"), postIDs)
}

func (r *PostgresPostRepository) countByPost(query *gorm.DB, postIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64)
	if len(postIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		PostID uint
		Count  int64
	}
	err := query.Select("post_id, COUNT(*) AS count").
		Where("post_id IN ?", postIDs).
		Group("post_id").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.PostID] = row.Count
	}
	return counts, nil
}

// IsPostLiked reports whether the user has liked the post.
func (r *PostgresPostRepository) IsPostLiked(postID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.PostLike{}).Where("post_id = ? AND user_id = ?", postID, userID).Count(&count).Error
	return count > 0, err
}

// IsPostSaved reports whether the user has saved the post.
func (r *PostgresPostRepository) IsPostSaved(postID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.PostSave{}).Where("post_id = ? AND user_id = ?", postID, userID).Count(&count).Error
	return count > 0, err
}

// GetLikedPostIDs returns which of postIDs the user has liked.
func (r *PostgresPostRepository) GetLikedPostIDs(userID uint, postIDs []uint) (map[uint]bool, error) {
	return r.engagementSet(&models.PostLike{}, userID, postIDs)
}

// GetSavedPostIDs returns which of postIDs the user has saved.
func (r *PostgresPostRepository) GetSavedPostIDs(userID uint, postIDs []uint) (map[uint]bool, error) {
	return r.engagementSet(&models.PostSave{}, userID, postIDs)
}

// GetSavedPostsByUser returns a page of the user's saves, newest save first.
func (r *PostgresPostRepository) GetSavedPostsByUser(userID uint, cursor *uint, limit int) ([]models.PostSave, *uint, error) {
	query := r.db.Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("id < ?", *cursor)
	}
	var saves []models.PostSave
	if err := query.Order("id DESC").Limit(limit).Find(&saves).Error; err != nil {
		return nil, nil, err
	}
	ids := make([]uint, len(saves))
	for i, save := range saves {
		ids[i] = save.ID
	}
	return saves, NextCursor(ids, limit), nil
}

// ReportPost records a report. A repeat report from the same user for the
// same post is a silent no-op; the return value reports whether a row was
// inserted.
func (r *PostgresPostRepository) ReportPost(postID, reportedByUserID uint, details string) (bool, error) {
	report := models.PostReport{PostID: postID, ReportedByUserID: reportedByUserID, Details: details}
	err := r.db.Create(&report).Error
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *PostgresPostRepository) engagementSet(model any, userID uint, postIDs []uint) (map[uint]bool, error) {
	set := make(map[uint]bool)
	if len(postIDs) == 0 {
		return set, nil
	}
	var ids []uint
	err := r.db.Model(model).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// claimImage locks the upload row, verifies it belongs to the user and is
// unused, and marks it used. The row lock closes the window where two
// requests could attach the same upload.
func claimImage(tx *gorm.DB, userID, imageID uint) error {
	var image models.ImageUpload
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ? AND NOT used", imageID, userID).
		First(&image).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrImageNotFound
	}
	if err != nil {
		return err
	}
	return tx.Model(&models.ImageUpload{}).Where("id = ?", imageID).Update("used", true).Error
}
