package repositories

import (
	"github.com/placemark-app/backend/internal/models"
	"gorm.io/gorm"
)

// TokenRepository stores FCM registration tokens.
type TokenRepository interface {
	RegisterToken(userID uint, token string) error
	RemoveToken(userID uint, token string) error
	GetTokensForUser(userID uint) ([]models.FCMToken, error)
	DeleteToken(tokenID uint) error
}

// PostgresTokenRepository implements TokenRepository for PostgreSQL.
type PostgresTokenRepository struct {
	db *gorm.DB
}

// NewPostgresTokenRepository creates a new PostgresTokenRepository.
func NewPostgresTokenRepository(db *gorm.DB) *PostgresTokenRepository {
	return &PostgresTokenRepository{db: db}
}

// RegisterToken stores a token for the user. Registering the same token
// twice is a no-op.
func (r *PostgresTokenRepository) RegisterToken(userID uint, token string) error {
	err := r.db.Create(&models.FCMToken{UserID: userID, Token: token}).Error
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

// RemoveToken deletes the user's copy of a token.
func (r *PostgresTokenRepository) RemoveToken(userID uint, token string) error {
	return r.db.Where("user_id = ? AND token = ?", userID, token).
		Delete(&models.FCMToken{}).Error
}

// GetTokensForUser returns every token registered by the user.
func (r *PostgresTokenRepository) GetTokensForUser(userID uint) ([]models.FCMToken, error) {
	var tokens []models.FCMToken
	err := r.db.Where("user_id = ?", userID).Find(&tokens).Error
	return tokens, err
}

// DeleteToken removes a token row by id. Used to prune tokens the push
// service reports as dead.
func (r *PostgresTokenRepository) DeleteToken(tokenID uint) error {
	return r.db.Delete(&models.FCMToken{}, tokenID).Error
}
