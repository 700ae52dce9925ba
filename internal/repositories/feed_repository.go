package repositories

import (
	"github.com/placemark-app/backend/internal/models"
	"gorm.io/gorm"
)

// mapQueryLimit caps the number of posts considered for one map load.
const mapQueryLimit = 500

// MapUserFilter selects which users' posts contribute to a map query.
// Exactly one variant applies per request.
type MapUserFilter struct {
	Type    models.MapType
	UserID  uint   // following, saved, me
	UserIDs []uint // custom
}

// FilterEveryone includes any post with an image or non-empty text.
func FilterEveryone() MapUserFilter { return MapUserFilter{Type: models.MapTypeEveryone} }

// FilterFollowing includes the user's own posts and those of everyone they
// follow.
func FilterFollowing(userID uint) MapUserFilter {
	return MapUserFilter{Type: models.MapTypeFollowing, UserID: userID}
}

// FilterSaved includes the posts the user has saved.
func FilterSaved(userID uint) MapUserFilter {
	return MapUserFilter{Type: models.MapTypeSaved, UserID: userID}
}

// FilterUserList includes posts by the listed users.
func FilterUserList(userIDs []uint) MapUserFilter {
	return MapUserFilter{Type: models.MapTypeCustom, UserIDs: userIDs}
}

// FilterMe includes only the user's own posts.
func FilterMe(userID uint) MapUserFilter {
	return MapUserFilter{Type: models.MapTypeMe, UserID: userID}
}

// apply adds the filter's predicate to a query over the posts table.
func (f MapUserFilter) apply(db *gorm.DB, query *gorm.DB) *gorm.DB {
	switch f.Type {
	case models.MapTypeFollowing:
		following := db.Model(&models.UserRelation{}).Select("to_user_id").
			Where("from_user_id = ? AND relation = ?", f.UserID, models.RelationFollowing)
		return query.Where("posts.user_id = ? OR posts.user_id IN (?)", f.UserID, following)
	case models.MapTypeSaved:
		saved := db.Model(&models.PostSave{}).Select("post_id").Where("user_id = ?", f.UserID)
		return query.Where("posts.id IN (?)", saved)
	case models.MapTypeCustom:
		return query.Where("posts.user_id IN ?", f.UserIDs)
	case models.MapTypeMe:
		return query.Where("posts.user_id = ?", f.UserID)
	default:
		return query.Where("posts.image_id IS NOT NULL OR posts.content <> ''")
	}
}

// MapPostRow is one post row feeding the pin aggregation, ordered newest
// post first.
type MapPostRow struct {
	PlaceID           uint
	Latitude          float64
	Longitude         float64
	Category          string
	ProfilePictureURL *string
}

// FeedRepository composes the ordered content sequences: home feed, discover
// feed, and map pins.
type FeedRepository interface {
	GetFeedPostIDs(userID uint, cursor *uint, limit int) ([]uint, error)
	GetDiscoverPostIDs(userID uint, limit int) ([]uint, error)
	GetMapPostRows(region models.Region, userFilter MapUserFilter, categories []string) ([]MapPostRow, error)
	GetPostIDsForPin(placeID uint, userFilter MapUserFilter, categories []string, limit int) ([]uint, error)
}

// PostgresFeedRepository implements FeedRepository for PostgreSQL.
type PostgresFeedRepository struct {
	db *gorm.DB
}

// NewPostgresFeedRepository creates a new PostgresFeedRepository.
func NewPostgresFeedRepository(db *gorm.DB) *PostgresFeedRepository {
	return &PostgresFeedRepository{db: db}
}

// GetFeedPostIDs returns a page of the home feed: posts by the user or by
// anyone they follow, newest first.
func (r *PostgresFeedRepository) GetFeedPostIDs(userID uint, cursor *uint, limit int) ([]uint, error) {
	following := r.db.Model(&models.UserRelation{}).Select("to_user_id").
		Where("from_user_id = ? AND relation = ?", userID, models.RelationFollowing)
	query := r.db.Model(&models.Post{}).
		Where("(user_id = ? OR user_id IN (?)) AND NOT deleted", userID, following)
	if cursor != nil {
		query = query.Where("id < ?", *cursor)
	}
	var ids []uint
	err := query.Order("id DESC").Limit(limit).Pluck("id", &ids).Error
	return ids, err
}

// GetDiscoverPostIDs returns the most recent posts by other, non-deleted
// users that carry an image or non-empty text.
func (r *PostgresFeedRepository) GetDiscoverPostIDs(userID uint, limit int) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Post{}).
		Joins("JOIN users ON users.id = posts.user_id").
		Where("posts.user_id <> ? AND NOT posts.deleted AND NOT users.deleted", userID).
		Where("posts.image_id IS NOT NULL OR posts.content <> ''").
		Order("posts.id DESC").
		Limit(limit).
		Pluck("posts.id", &ids).Error
	return ids, err
}

// GetMapPostRows returns the posts inside the region that pass the user and
// category filters, joined with their place and author's profile picture,
// newest post first. Region distance is geodesic (PostGIS geography).
func (r *PostgresFeedRepository) GetMapPostRows(region models.Region, userFilter MapUserFilter, categories []string) ([]MapPostRow, error) {
	query := r.db.Model(&models.Post{}).
		Select("places.id AS place_id, places.latitude, places.longitude, posts.category, pictures.url AS profile_picture_url").
		Joins("JOIN places ON places.id = posts.place_id").
		Joins("JOIN users ON users.id = posts.user_id").
		Joins("LEFT JOIN image_uploads pictures ON pictures.id = users.profile_picture_id").
		Where("ST_DWithin(ST_MakePoint(places.longitude, places.latitude)::geography, ST_MakePoint(?, ?)::geography, ?)",
			region.Longitude, region.Latitude, region.Radius).
		Where("NOT posts.deleted AND NOT users.deleted")
	query = userFilter.apply(r.db, query)
	if len(categories) > 0 {
		query = query.Where("posts.category IN ?", categories)
	}
	var rows []MapPostRow
	err := query.Order("posts.id DESC").Limit(mapQueryLimit).Scan(&rows).Error
	return rows, err
}

// GetPostIDsForPin returns the posts at one place that pass the same filters
// as the map query, newest first.
func (r *PostgresFeedRepository) GetPostIDsForPin(placeID uint, userFilter MapUserFilter, categories []string, limit int) ([]uint, error) {
	query := r.db.Model(&models.Post{}).
		Where("posts.place_id = ? AND NOT posts.deleted", placeID)
	query = userFilter.apply(r.db, query)
	if len(categories) > 0 {
		query = query.Where("posts.category IN ?", categories)
	}
	var ids []uint
	err := query.Order("posts.id DESC").Limit(limit).Pluck("posts.id", &ids).Error
	return ids, err
}

// BuildMapPins aggregates post rows into one pin per place. The icon comes
// from the place's most recent contributing post (rows arrive newest first);
// NumPosts counts all contributing posts.
func BuildMapPins(rows []MapPostRow) []models.MapPin {
	pins := make([]models.MapPin, 0, len(rows))
	index := make(map[uint]int)
	for _, row := range rows {
		if i, ok := index[row.PlaceID]; ok {
			pins[i].Icon.NumPosts++
			continue
		}
		category := row.Category
		index[row.PlaceID] = len(pins)
		pins = append(pins, models.MapPin{
			PlaceID:  row.PlaceID,
			Location: models.Location{Latitude: row.Latitude, Longitude: row.Longitude},
			Icon: models.MapPinIcon{
				Category: &category,
				IconURL:  row.ProfilePictureURL,
				NumPosts: 1,
			},
		})
	}
	return pins
}
