package models

import "time"

// ImageUpload is an uploaded image. BlobName and URL are filled in after the
// blob is written to storage. Used prevents attaching the same upload to two
// different posts or profiles; it only flips under a row lock.
type ImageUpload struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"-" gorm:"index;not null"`
	BlobName  *string   `json:"-"`
	URL       *string   `json:"url"`
	Used      bool      `json:"-" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"-"`
}

func (ImageUpload) TableName() string { return "image_uploads" }
