package repositories

import (
	"errors"

	"github.com/placemark-app/backend/internal/models"
	"gorm.io/gorm"
)

// RelationRepository is the social-graph ledger: directed following/blocked
// edges between users.
type RelationRepository interface {
	FollowUser(fromUserID, toUserID uint) error
	UnfollowUser(fromUserID, toUserID uint) error
	BlockUser(fromUserID, toUserID uint) error
	UnblockUser(fromUserID, toUserID uint) error
	IsBlocked(blockedByUserID, blockedUserID uint) (bool, error)
	GetRelation(fromUserID, toUserID uint) (*models.RelationType, error)
	GetRelations(fromUserID uint, toUserIDs []uint) (map[uint]models.RelationType, error)
	GetFollowers(userID uint, cursor *uint, limit int) ([]uint, *uint, error)
	GetFollowing(userID uint, cursor *uint, limit int) ([]uint, *uint, error)
	GetFollowingIDs(userID uint) ([]uint, error)
	GetFollowerCount(userID uint) (int64, error)
	GetFollowingCount(userID uint) (int64, error)
}

// PostgresRelationRepository implements RelationRepository for PostgreSQL.
type PostgresRelationRepository struct {
	db *gorm.DB
}

// NewPostgresRelationRepository creates a new PostgresRelationRepository.
func NewPostgresRelationRepository(db *gorm.DB) *PostgresRelationRepository {
	return &PostgresRelationRepository{db: db}
}

// FollowUser adds a following edge from one user to another. Fails if any
// relation already exists for the ordered pair.
func (r *PostgresRelationRepository) FollowUser(fromUserID, toUserID uint) error {
	return r.tryAddRelation(fromUserID, toUserID, models.RelationFollowing, nil)
}

// UnfollowUser removes the following edge. Fails with ErrNotFollowing if the
// edge does not exist.
func (r *PostgresRelationRepository) UnfollowUser(fromUserID, toUserID uint) error {
	deleted, err := r.removeRelation(fromUserID, toUserID, models.RelationFollowing)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFollowing
	}
	return nil
}

// BlockUser adds a blocked edge from one user to another, atomically severing
// any reverse following edge in the same transaction. The caller must
// unfollow before blocking; an existing following edge is an error.
//
// Two users blocking each other concurrently can both succeed, leaving a
// mutual block; unblock does not require reciprocity so neither side is
// stuck. A follow committed between the reverse-edge delete starting and this
// transaction committing also goes through. Both races are accepted.
func (r *PostgresRelationRepository) BlockUser(fromUserID, toUserID uint) error {
	return r.tryAddRelation(fromUserID, toUserID, models.RelationBlocked, func(tx *gorm.DB) error {
		return tx.
			Where("from_user_id = ? AND to_user_id = ? AND relation = ?", toUserID, fromUserID, models.RelationFollowing).
			Delete(&models.UserRelation{}).Error
	})
}

// UnblockUser removes the blocked edge. Fails with ErrNotBlocked if none
// exists.
func (r *PostgresRelationRepository) UnblockUser(fromUserID, toUserID uint) error {
	deleted, err := r.removeRelation(fromUserID, toUserID, models.RelationBlocked)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotBlocked
	}
	return nil
}

// IsBlocked reports whether blockedByUserID has blocked blockedUserID. Used
// pervasively as the visibility gate.
func (r *PostgresRelationRepository) IsBlocked(blockedByUserID, blockedUserID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.UserRelation{}).
		Where("from_user_id = ? AND to_user_id = ? AND relation = ?", blockedByUserID, blockedUserID, models.RelationBlocked).
		Count(&count).Error
	return count > 0, err
}

// GetRelation returns the relation from one user to another, or nil if none.
func (r *PostgresRelationRepository) GetRelation(fromUserID, toUserID uint) (*models.RelationType, error) {
	var relation models.UserRelation
	err := r.db.Where("from_user_id = ? AND to_user_id = ?", fromUserID, toUserID).First(&relation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &relation.Relation, nil
}

// GetRelations returns a map from target user id to the caller's following
// relation for each user in toUserIDs. Blocked edges are not exposed here.
func (r *PostgresRelationRepository) GetRelations(fromUserID uint, toUserIDs []uint) (map[uint]models.RelationType, error) {
	relations := make(map[uint]models.RelationType)
	if len(toUserIDs) == 0 {
		return relations, nil
	}
	var rows []models.UserRelation
	err := r.db.
		Where("from_user_id = ? AND to_user_id IN ? AND relation = ?", fromUserID, toUserIDs, models.RelationFollowing).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		relations[row.ToUserID] = row.Relation
	}
	return relations, nil
}

// GetFollowers returns a page of user ids following the given user, newest
// relationships first.
func (r *PostgresRelationRepository) GetFollowers(userID uint, cursor *uint, limit int) ([]uint, *uint, error) {
	return r.relationPage("to_user_id", "from_user_id", userID, cursor, limit)
}

// GetFollowing returns a page of user ids the given user follows, newest
// relationships first.
func (r *PostgresRelationRepository) GetFollowing(userID uint, cursor *uint, limit int) ([]uint, *uint, error) {
	return r.relationPage("from_user_id", "to_user_id", userID, cursor, limit)
}

// GetFollowingIDs returns all user ids the given user follows.
func (r *PostgresRelationRepository) GetFollowingIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.UserRelation{}).
		Where("from_user_id = ? AND relation = ?", userID, models.RelationFollowing).
		Pluck("to_user_id", &ids).Error
	return ids, err
}

// GetFollowerCount returns the user's live follower count.
func (r *PostgresRelationRepository) GetFollowerCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.UserRelation{}).
		Where("to_user_id = ? AND relation = ?", userID, models.RelationFollowing).
		Count(&count).Error
	return count, err
}

// GetFollowingCount returns the user's live following count.
func (r *PostgresRelationRepository) GetFollowingCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.UserRelation{}).
		Where("from_user_id = ? AND relation = ?", userID, models.RelationFollowing).
		Count(&count).Error
	return count, err
}

func (r *PostgresRelationRepository) relationPage(matchColumn, pluckColumn string, userID uint, cursor *uint, limit int) ([]uint, *uint, error) {
	query := r.db.Model(&models.UserRelation{}).
		Where(matchColumn+" = ? AND relation = ?", userID, models.RelationFollowing)
	if cursor != nil {
		query = query.Where("id < ?", *cursor)
	}
	var rows []models.UserRelation
	if err := query.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	userIDs := make([]uint, len(rows))
	rowIDs := make([]uint, len(rows))
	for i, row := range rows {
		rowIDs[i] = row.ID
		if pluckColumn == "from_user_id" {
			userIDs[i] = row.FromUserID
		} else {
			userIDs[i] = row.ToUserID
		}
	}
	return userIDs, NextCursor(rowIDs, limit), nil
}

// tryAddRelation inserts a relation for the ordered (from, to) pair inside a
// transaction, running beforeCommit first when given. If a relation already
// exists the matching domain error is returned; a unique-violation race is
// reported as ErrConflict.
func (r *PostgresRelationRepository) tryAddRelation(fromUserID, toUserID uint, relationType models.RelationType, beforeCommit func(tx *gorm.DB) error) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.UserRelation
		findErr := tx.Where("from_user_id = ? AND to_user_id = ?", fromUserID, toUserID).First(&existing).Error
		if findErr == nil {
			return existingRelationError(existing.Relation, relationType)
		}
		if !errors.Is(findErr, gorm.ErrRecordNotFound) {
			return findErr
		}
		if beforeCommit != nil {
			if err := beforeCommit(tx); err != nil {
				return err
			}
		}
		relation := models.UserRelation{
			FromUserID: fromUserID,
			ToUserID:   toUserID,
			Relation:   relationType,
		}
		return tx.Create(&relation).Error
	})
	if isUniqueViolation(err) {
		// Another request inserted between our check and insert.
		return ErrConflict
	}
	return err
}

func existingRelationError(existing, attempted models.RelationType) error {
	switch {
	case attempted == models.RelationFollowing && existing == models.RelationFollowing:
		return ErrAlreadyFollowing
	case attempted == models.RelationFollowing && existing == models.RelationBlocked:
		return ErrCannotFollowBlocked
	case attempted == models.RelationBlocked && existing == models.RelationFollowing:
		return ErrCannotBlockFollowed
	default:
		return ErrAlreadyBlocked
	}
}

func (r *PostgresRelationRepository) removeRelation(fromUserID, toUserID uint, relationType models.RelationType) (bool, error) {
	res := r.db.
		Where("from_user_id = ? AND to_user_id = ? AND relation = ?", fromUserID, toUserID, relationType).
		Delete(&models.UserRelation{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
