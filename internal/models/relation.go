package models

import "time"

// RelationType is the kind of directed edge between two users.
type RelationType string

const (
	RelationFollowing RelationType = "following"
	RelationBlocked   RelationType = "blocked"
)

// UserRelation is a directed edge in the social graph. At most one row may
// exist per ordered (from, to) pair; the relation type is immutable once
// created (changing it requires delete + recreate).
type UserRelation struct {
	ID         uint         `json:"id" gorm:"primaryKey"`
	FromUserID uint         `json:"from_user_id" gorm:"index:idx_relation_from_to,unique;index:idx_relation_from_relation;not null"`
	ToUserID   uint         `json:"to_user_id" gorm:"index:idx_relation_from_to,unique;index:idx_relation_to_relation;not null"`
	Relation   RelationType `json:"relation" gorm:"index:idx_relation_from_relation;index:idx_relation_to_relation;not null"`
	CreatedAt  time.Time    `json:"created_at"`
}

func (UserRelation) TableName() string { return "user_relations" }

// RelationToUser is the response body for the relation lookup endpoint.
type RelationToUser struct {
	Relation *RelationType `json:"relation"`
}

// FollowUserResponse reports the outcome of a follow/unfollow call along with
// the target's updated follower count.
type FollowUserResponse struct {
	Followed  bool  `json:"followed"`
	Followers int64 `json:"followers"`
}

// FollowFeedItem pairs a user with the caller's relation to them.
type FollowFeedItem struct {
	User     PublicUser    `json:"user"`
	Relation *RelationType `json:"relation"`
}

// FollowFeedResponse is a cursor-paginated page of followers or followees.
type FollowFeedResponse struct {
	Users  []FollowFeedItem `json:"users"`
	Cursor *uint            `json:"cursor"`
}
