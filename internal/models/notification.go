package models

import "time"

// FCMToken is a device push token. Unique per (user, token); tokens that the
// messaging provider reports as dead are pruned.
type FCMToken struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	UserID    uint      `json:"-" gorm:"index:idx_fcm_token_user_token,unique;not null"`
	Token     string    `json:"-" gorm:"index:idx_fcm_token_user_token,unique;not null"`
	CreatedAt time.Time `json:"-"`
}

func (FCMToken) TableName() string { return "fcm_tokens" }

// NotificationTokenRequest registers or removes a device push token.
type NotificationTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// NotificationItemType tags the source event of a notification feed item.
type NotificationItemType string

const (
	NotificationFollow  NotificationItemType = "follow"
	NotificationLike    NotificationItemType = "like"
	NotificationSave    NotificationItemType = "save"
	NotificationComment NotificationItemType = "comment"
)

// NotificationItem is one entry in the merged notification feed. ItemID is
// the identifier of the underlying source row (relation, like, save, or
// comment) and doubles as the merge-sort key and pagination cursor.
type NotificationItem struct {
	Type      NotificationItemType `json:"type"`
	ItemID    uint                 `json:"item_id"`
	CreatedAt time.Time            `json:"created_at"`
	User      PublicUser           `json:"user"`
	Post      *PublicPost          `json:"post,omitempty"`
	Comment   *PublicComment       `json:"comment,omitempty"`
}

// NotificationFeedResponse is a cursor-paginated page of the merged feed.
type NotificationFeedResponse struct {
	Notifications []NotificationItem `json:"notifications"`
	Cursor        *uint              `json:"cursor"`
}
