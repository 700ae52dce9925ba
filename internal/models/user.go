package models

import (
	"strings"
	"time"
)

// User represents an account. Accounts are soft-deleted via the Deleted flag;
// rows are only removed by the admin purge endpoint.
type User struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	FirebaseUID      string    `json:"-" gorm:"uniqueIndex;not null"`
	Username         string    `json:"username" gorm:"not null"`
	UsernameLower    string    `json:"-" gorm:"uniqueIndex;not null"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	PhoneNumber      *string   `json:"-" gorm:"uniqueIndex"`
	ProfilePictureID *uint     `json:"-" gorm:"uniqueIndex"`
	IsFeatured       bool      `json:"-" gorm:"not null;default:false"`
	IsAdmin          bool      `json:"-" gorm:"not null;default:false"`
	Deleted          bool      `json:"-" gorm:"not null;default:false;index"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	ProfilePicture *ImageUpload `json:"-" gorm:"foreignKey:ProfilePictureID"`
}

func (User) TableName() string { return "users" }

// ProfilePictureURL returns the public URL of the user's profile picture, or
// nil if they don't have one.
func (u *User) ProfilePictureURL() *string {
	if u.ProfilePicture == nil {
		return nil
	}
	return u.ProfilePicture.URL
}

// PublicUser is the externally visible view of a user, including the derived
// counters. Counters are computed at read time, never stored.
type PublicUser struct {
	ID                uint    `json:"id"`
	Username          string  `json:"username"`
	FirstName         string  `json:"first_name"`
	LastName          string  `json:"last_name"`
	ProfilePictureURL *string `json:"profile_picture_url"`
	PostCount         int64   `json:"post_count"`
	FollowerCount     int64   `json:"follower_count"`
	FollowingCount    int64   `json:"following_count"`
}

// UserCounts holds the derived per-user counters.
type UserCounts struct {
	PostCount      int64
	FollowerCount  int64
	FollowingCount int64
}

// ToPublic converts a user row plus its derived counters into the public view.
func (u *User) ToPublic(counts UserCounts) PublicUser {
	return PublicUser{
		ID:                u.ID,
		Username:          u.Username,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		ProfilePictureURL: u.ProfilePictureURL(),
		PostCount:         counts.PostCount,
		FollowerCount:     counts.FollowerCount,
		FollowingCount:    counts.FollowingCount,
	}
}

// NormalizeUsername returns the canonical lowercase form used for the
// case-insensitive uniqueness check.
func NormalizeUsername(username string) string {
	return strings.ToLower(username)
}

// UserPrefs holds a user's notification and discoverability preferences.
// A row is created together with the user; all toggles default to on.
type UserPrefs struct {
	ID                        uint      `json:"-" gorm:"primaryKey"`
	UserID                    uint      `json:"-" gorm:"uniqueIndex;not null"`
	FollowNotifications       bool      `json:"follow_notifications" gorm:"not null;default:true"`
	PostLikedNotifications    bool      `json:"post_liked_notifications" gorm:"not null;default:true"`
	CommentNotifications      bool      `json:"comment_notifications" gorm:"not null;default:true"`
	CommentLikedNotifications bool      `json:"comment_liked_notifications" gorm:"not null;default:true"`
	SearchableByPhoneNumber   bool      `json:"searchable_by_phone_number" gorm:"not null;default:true"`
	UpdatedAt                 time.Time `json:"-"`
}

func (UserPrefs) TableName() string { return "user_prefs" }

// CreateUserRequest is the signup payload. The phone number comes from the
// verified Firebase account, not the request.
type CreateUserRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=20,alphanum"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
}

// UpdateProfileRequest is the profile edit payload.
type UpdateProfileRequest struct {
	Username         string `json:"username,omitempty" validate:"omitempty,min=3,max=20,alphanum"`
	FirstName        string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName         string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	ProfilePictureID *uint  `json:"profile_picture_id,omitempty"`
}

// UpdatePrefsRequest is the preferences edit payload.
type UpdatePrefsRequest struct {
	FollowNotifications       bool `json:"follow_notifications"`
	PostLikedNotifications    bool `json:"post_liked_notifications"`
	CommentNotifications      bool `json:"comment_notifications"`
	CommentLikedNotifications bool `json:"comment_liked_notifications"`
	SearchableByPhoneNumber   bool `json:"searchable_by_phone_number"`
}
