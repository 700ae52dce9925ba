package repositories

import (
	"errors"
	"strings"

	"github.com/placemark-app/backend/internal/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user account operations.
type UserRepository interface {
	CreateUser(firebaseUID, username, firstName, lastName string, phoneNumber *string) (*models.User, error)
	GetUserByID(userID uint) (*models.User, error)
	GetUserByFirebaseUID(firebaseUID string) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	GetAnyUserByUsername(username string) (*models.User, error)
	GetUsers(userIDs []uint) (map[uint]models.User, error)
	GetUsersByPhoneNumber(phoneNumbers []string, limit int) ([]uint, error)
	SearchUsers(keyword string, limit int) ([]uint, error)
	UpdateProfile(userID uint, username, firstName, lastName string, profilePictureID *uint) (*models.User, error)
	SoftDeleteUser(userID uint) error
	HardDeleteUser(userID uint) error
	GetCounts(userID uint) (models.UserCounts, error)
	GetPreferences(userID uint) (*models.UserPrefs, error)
	UpdatePreferences(userID uint, req models.UpdatePrefsRequest) (*models.UserPrefs, error)
	GetSuggestedUsers(userID uint, limit int) ([]uint, error)
}

// PostgresUserRepository implements UserRepository for PostgreSQL.
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository.
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// CreateUser creates a user and their preferences row in one transaction.
// Uniqueness races on the Firebase UID or username come back as the matching
// domain error rather than a raw constraint violation.
func (r *PostgresUserRepository) CreateUser(firebaseUID, username, firstName, lastName string, phoneNumber *string) (*models.User, error) {
	user := models.User{
		FirebaseUID:   firebaseUID,
		Username:      username,
		UsernameLower: models.NormalizeUsername(username),
		FirstName:     firstName,
		LastName:      lastName,
		PhoneNumber:   phoneNumber,
	}
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&models.UserPrefs{UserID: user.ID}).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			if exists, checkErr := r.userExists("firebase_uid = ?", firebaseUID); checkErr == nil && exists {
				return nil, ErrUserExists
			}
			return nil, ErrUsernameTaken
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByID returns the user with the given id, excluding soft-deleted
// accounts. Returns ErrNotFound if no such user exists.
func (r *PostgresUserRepository) GetUserByID(userID uint) (*models.User, error) {
	return r.getUser("id = ?", userID)
}

// GetUserByFirebaseUID resolves an external identity to the internal account.
func (r *PostgresUserRepository) GetUserByFirebaseUID(firebaseUID string) (*models.User, error) {
	return r.getUser("firebase_uid = ?", firebaseUID)
}

// GetUserByUsername looks a user up by username, case-insensitively.
func (r *PostgresUserRepository) GetUserByUsername(username string) (*models.User, error) {
	return r.getUser("username_lower = ?", models.NormalizeUsername(username))
}

// GetAnyUserByUsername looks a user up by username including soft-deleted
// accounts. Admin use only.
func (r *PostgresUserRepository) GetAnyUserByUsername(username string) (*models.User, error) {
	var user models.User
	err := r.db.Where("username_lower = ?", models.NormalizeUsername(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUsers returns the non-deleted users among userIDs, keyed by id.
func (r *PostgresUserRepository) GetUsers(userIDs []uint) (map[uint]models.User, error) {
	users := make(map[uint]models.User)
	if len(userIDs) == 0 {
		return users, nil
	}
	var rows []models.User
	err := r.db.Preload("ProfilePicture").
		Where("id IN ? AND NOT deleted", userIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		users[row.ID] = row
	}
	return users, nil
}

// GetUsersByPhoneNumber returns up to limit user ids matching the given phone
// numbers, honoring the searchable-by-phone-number preference.
func (r *PostgresUserRepository) GetUsersByPhoneNumber(phoneNumbers []string, limit int) ([]uint, error) {
	if len(phoneNumbers) == 0 {
		return nil, nil
	}
	var ids []uint
	err := r.db.Model(&models.User{}).
		Joins("JOIN user_prefs ON user_prefs.user_id = users.id").
		Where("users.phone_number IN ? AND NOT users.deleted AND user_prefs.searchable_by_phone_number", phoneNumbers).
		Limit(limit).
		Pluck("users.id", &ids).Error
	return ids, err
}

// SearchUsers matches the keyword as a prefix of the username or the full
// name, case-insensitively. ILIKE wildcards in the keyword are escaped, so
// they match literally. Results are ordered by follower count.
func (r *PostgresUserRepository) SearchUsers(keyword string, limit int) ([]uint, error) {
	escaped := strings.NewReplacer(`\`, `\\`, `_`, `\_`, `%`, `\%`).Replace(keyword)
	pattern := escaped + "%"
	var ids []uint
	err := r.db.Raw(`
		SELECT u.id
		FROM users u
		LEFT JOIN user_relations ur ON ur.to_user_id = u.id AND ur.relation = 'following'
		WHERE NOT u.deleted
		  AND (u.username_lower ILIKE ? OR CONCAT(u.first_name, ' ', u.last_name) ILIKE ?)
		GROUP BY u.id
		ORDER BY COUNT(ur.id) DESC
		LIMIT ?`, pattern, pattern, limit).Scan(&ids).Error
	return ids, err
}

// UpdateProfile updates the given fields, skipping empty ones. A username
// change re-derives the lowercase shadow column.
func (r *PostgresUserRepository) UpdateProfile(userID uint, username, firstName, lastName string, profilePictureID *uint) (*models.User, error) {
	updates := map[string]any{}
	if username != "" {
		updates["username"] = username
		updates["username_lower"] = models.NormalizeUsername(username)
	}
	if firstName != "" {
		updates["first_name"] = firstName
	}
	if lastName != "" {
		updates["last_name"] = lastName
	}
	if profilePictureID != nil {
		updates["profile_picture_id"] = *profilePictureID
	}
	if len(updates) > 0 {
		err := r.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error
		if err != nil {
			if isUniqueViolation(err) {
				return nil, ErrUsernameTaken
			}
			return nil, err
		}
	}
	return r.GetUserByID(userID)
}

// SoftDeleteUser marks the account as deleted, hiding it and its content from
// every read path. The row is preserved.
func (r *PostgresUserRepository) SoftDeleteUser(userID uint) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).Update("deleted", true).Error
}

// HardDeleteUser removes the account row entirely. Dependent rows cascade via
// foreign keys. Admin purge only.
func (r *PostgresUserRepository) HardDeleteUser(userID uint) error {
	return r.db.Delete(&models.User{}, userID).Error
}

// GetCounts computes the user's derived counters at read time.
func (r *PostgresUserRepository) GetCounts(userID uint) (models.UserCounts, error) {
	var counts models.UserCounts
	err := r.db.Model(&models.Post{}).
		Where("user_id = ? AND NOT deleted", userID).
		Count(&counts.PostCount).Error
	if err != nil {
		return counts, err
	}
	err = r.db.Model(&models.UserRelation{}).
		Where("to_user_id = ? AND relation = ?", userID, models.RelationFollowing).
		Count(&counts.FollowerCount).Error
	if err != nil {
		return counts, err
	}
	err = r.db.Model(&models.UserRelation{}).
		Where("from_user_id = ? AND relation = ?", userID, models.RelationFollowing).
		Count(&counts.FollowingCount).Error
	return counts, err
}

// GetPreferences returns the user's preferences. A missing row (should not
// happen, prefs are created with the user) reads as everything off.
func (r *PostgresUserRepository) GetPreferences(userID uint) (*models.UserPrefs, error) {
	var prefs models.UserPrefs
	err := r.db.Where("user_id = ?", userID).First(&prefs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UserPrefs{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

// UpdatePreferences overwrites the user's preference toggles.
func (r *PostgresUserRepository) UpdatePreferences(userID uint, req models.UpdatePrefsRequest) (*models.UserPrefs, error) {
	err := r.db.Model(&models.UserPrefs{}).Where("user_id = ?", userID).Updates(map[string]any{
		"follow_notifications":        req.FollowNotifications,
		"post_liked_notifications":    req.PostLikedNotifications,
		"comment_notifications":       req.CommentNotifications,
		"comment_liked_notifications": req.CommentLikedNotifications,
		"searchable_by_phone_number":  req.SearchableByPhoneNumber,
	}).Error
	if err != nil {
		return nil, err
	}
	return r.GetPreferences(userID)
}

// GetSuggestedUsers returns featured accounts first, then users followed by
// the given user's followees ordered by mutual-follower count. Accounts the
// user already follows are excluded from both tiers.
func (r *PostgresUserRepository) GetSuggestedUsers(userID uint, limit int) ([]uint, error) {
	var ids []uint
	err := r.db.Raw(`
		WITH already_followed AS (
			SELECT to_user_id AS id FROM user_relations
			WHERE from_user_id = ? AND relation = 'following'
		), featured AS (
			SELECT id FROM users
			WHERE is_featured AND NOT deleted AND id <> ?
			  AND id NOT IN (SELECT id FROM already_followed)
		), mutual AS (
			SELECT ur.to_user_id AS id, COUNT(*) AS mutual_count
			FROM user_relations ur
			JOIN already_followed af ON af.id = ur.from_user_id
			WHERE ur.to_user_id NOT IN (SELECT id FROM already_followed)
			  AND ur.to_user_id NOT IN (SELECT id FROM featured)
			  AND ur.to_user_id <> ?
			  AND ur.relation = 'following'
			GROUP BY ur.to_user_id
		)
		SELECT id FROM (
			SELECT id, 0 AS tier, 0 AS mutual_count FROM featured
			UNION ALL
			SELECT id, 1 AS tier, mutual_count FROM mutual
		) suggestions
		ORDER BY tier, mutual_count DESC
		LIMIT ?`, userID, userID, userID, limit).Scan(&ids).Error
	return ids, err
}

func (r *PostgresUserRepository) getUser(query string, arg any) (*models.User, error) {
	var user models.User
	err := r.db.Preload("ProfilePicture").
		Where("NOT deleted").
		Where(query, arg).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresUserRepository) userExists(query string, arg any) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where(query, arg).Count(&count).Error
	return count > 0, err
}
