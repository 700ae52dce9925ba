package repositories

import (
	"sort"
	"time"

	"github.com/placemark-app/backend/internal/models"
	"gorm.io/gorm"
)

// NotificationEvent is one source event feeding the merged notification
// stream. ItemID comes from the shared notification-source sequence, so ids
// are comparable across the four source tables and double as the cursor.
type NotificationEvent struct {
	Type        models.NotificationItemType
	ItemID      uint
	CreatedAt   time.Time
	ActorUserID uint
	PostID      uint // zero for follows
	CommentID   uint // zero unless a comment event
}

// NotificationFeedRepository derives the notification stream from the four
// independent source tables: new followers, post likes, post saves, and
// comments. There is no stored notification entity.
type NotificationFeedRepository interface {
	GetFeedEvents(userID uint, cursor *uint, limit int) ([]NotificationEvent, *uint, error)
}

// PostgresNotificationFeedRepository implements NotificationFeedRepository
// for PostgreSQL.
type PostgresNotificationFeedRepository struct {
	db *gorm.DB
}

// NewPostgresNotificationFeedRepository creates a new
// PostgresNotificationFeedRepository.
func NewPostgresNotificationFeedRepository(db *gorm.DB) *PostgresNotificationFeedRepository {
	return &PostgresNotificationFeedRepository{db: db}
}

// GetFeedEvents queries each source for up to limit rows under the shared
// cursor bound, merges them, and truncates to limit. Each source is capped
// before the merge, so a high-volume source can crowd out a low-volume one
// within a page; faithful to the feed's documented behavior.
func (r *PostgresNotificationFeedRepository) GetFeedEvents(userID uint, cursor *uint, limit int) ([]NotificationEvent, *uint, error) {
	follows, err := r.followEvents(userID, cursor, limit)
	if err != nil {
		return nil, nil, err
	}
	likes, err := r.postLikeEvents(userID, cursor, limit)
	if err != nil {
		return nil, nil, err
	}
	saves, err := r.postSaveEvents(userID, cursor, limit)
	if err != nil {
		return nil, nil, err
	}
	comments, err := r.commentEvents(userID, cursor, limit)
	if err != nil {
		return nil, nil, err
	}
	merged := append(append(append(follows, likes...), saves...), comments...)
	events, next := MergeNotificationEvents(merged, limit)
	return events, next, nil
}

// MergeNotificationEvents sorts events by id descending and truncates to
// limit. The next cursor is the last item's id, or nil if the page came up
// short.
func MergeNotificationEvents(events []NotificationEvent, limit int) ([]NotificationEvent, *uint) {
	sort.Slice(events, func(i, j int) bool { return events[i].ItemID > events[j].ItemID })
	if len(events) > limit {
		events = events[:limit]
	}
	if len(events) < limit || len(events) == 0 {
		return events, nil
	}
	last := events[len(events)-1].ItemID
	return events, &last
}

func (r *PostgresNotificationFeedRepository) followEvents(userID uint, cursor *uint, limit int) ([]NotificationEvent, error) {
	query := r.db.Model(&models.UserRelation{}).
		Select("user_relations.id AS item_id, user_relations.created_at, user_relations.from_user_id AS actor_user_id").
		Joins("JOIN users ON users.id = user_relations.from_user_id").
		Where("user_relations.to_user_id = ? AND user_relations.relation = ? AND NOT users.deleted",
			userID, models.RelationFollowing)
	return r.scanEvents(query, "user_relations.id", models.NotificationFollow, cursor, limit)
}

func (r *PostgresNotificationFeedRepository) postLikeEvents(userID uint, cursor *uint, limit int) ([]NotificationEvent, error) {
	query := r.db.Model(&models.PostLike{}).
		Select("post_likes.id AS item_id, post_likes.created_at, post_likes.user_id AS actor_user_id, post_likes.post_id").
		Joins("JOIN posts ON posts.id = post_likes.post_id").
		Joins("JOIN users ON users.id = post_likes.user_id").
		Where("posts.user_id = ? AND post_likes.user_id <> ? AND NOT posts.deleted AND NOT users.deleted", userID, userID)
	return r.scanEvents(query, "post_likes.id", models.NotificationLike, cursor, limit)
}

func (r *PostgresNotificationFeedRepository) postSaveEvents(userID uint, cursor *uint, limit int) ([]NotificationEvent, error) {
	query := r.db.Model(&models.PostSave{}).
		Select("post_saves.id AS item_id, post_saves.created_at, post_saves.user_id AS actor_user_id, post_saves.post_id").
		Joins("JOIN posts ON posts.id = post_saves.post_id").
		Joins("JOIN users ON users.id = post_saves.user_id").
		Where("posts.user_id = ? AND post_saves.user_id <> ? AND NOT posts.deleted AND NOT users.deleted", userID, userID)
	return r.scanEvents(query, "post_saves.id", models.NotificationSave, cursor, limit)
}

func (r *PostgresNotificationFeedRepository) commentEvents(userID uint, cursor *uint, limit int) ([]NotificationEvent, error) {
	query := r.db.Model(&models.Comment{}).
		Select("comments.id AS item_id, comments.created_at, comments.user_id AS actor_user_id, comments.post_id, comments.id AS comment_id").
		Joins("JOIN posts ON posts.id = comments.post_id").
		Joins("JOIN users ON users.id = comments.user_id").
		Where("posts.user_id = ? AND comments.user_id <> ?", userID, userID).
		Where("NOT comments.deleted AND NOT posts.deleted AND NOT users.deleted")
	return r.scanEvents(query, "comments.id", models.NotificationComment, cursor, limit)
}

func (r *PostgresNotificationFeedRepository) scanEvents(query *gorm.DB, idColumn string, eventType models.NotificationItemType, cursor *uint, limit int) ([]NotificationEvent, error) {
	if cursor != nil {
		query = query.Where(idColumn+" < ?", *cursor)
	}
	var events []NotificationEvent
	err := query.Order(idColumn + " DESC").Limit(limit).Scan(&events).Error
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].Type = eventType
	}
	return events, nil
}
