package repositories

import (
	"errors"

	"github.com/placemark-app/backend/internal/models"
	"gorm.io/gorm"
)

// ImageRepository tracks uploaded images. Rows are created before the blob
// goes to object storage and deleted if the upload fails, so a row with a
// blob name always has a real object behind it.
type ImageRepository interface {
	CreateImage(userID uint) (*models.ImageUpload, error)
	SetBlob(imageID uint, blobName, url string) error
	GetImage(imageID uint) (*models.ImageUpload, error)
	DeleteImage(imageID uint) error
}

// PostgresImageRepository implements ImageRepository for PostgreSQL.
type PostgresImageRepository struct {
	db *gorm.DB
}

// NewPostgresImageRepository creates a new PostgresImageRepository.
func NewPostgresImageRepository(db *gorm.DB) *PostgresImageRepository {
	return &PostgresImageRepository{db: db}
}

// CreateImage inserts an empty image row owned by the user.
func (r *PostgresImageRepository) CreateImage(userID uint) (*models.ImageUpload, error) {
	image := models.ImageUpload{UserID: userID}
	if err := r.db.Create(&image).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// SetBlob records the storage blob name and public URL for an image.
func (r *PostgresImageRepository) SetBlob(imageID uint, blobName, url string) error {
	return r.db.Model(&models.ImageUpload{}).
		Where("id = ?", imageID).
		Updates(map[string]interface{}{"blob_name": blobName, "url": url}).Error
}

// GetImage fetches an image row by id.
func (r *PostgresImageRepository) GetImage(imageID uint) (*models.ImageUpload, error) {
	var image models.ImageUpload
	err := r.db.First(&image, imageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// DeleteImage removes an image row. Used to compensate when the storage
// upload fails after the row was created.
func (r *PostgresImageRepository) DeleteImage(imageID uint) error {
	return r.db.Delete(&models.ImageUpload{}, imageID).Error
}
