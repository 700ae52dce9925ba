package repositories

import (
	"errors"

	"github.com/placemark-app/backend/internal/models"
	"gorm.io/gorm"
)

// defaultPlaceSearchRadiusMeters bounds the dedup search when no region is
// supplied with the place.
const defaultPlaceSearchRadiusMeters = 10

// PlaceRepository owns places and their crowd-sourced metadata.
type PlaceRepository interface {
	GetPlaceByID(placeID uint) (*models.Place, error)
	GetPlaces(placeIDs []uint) (map[uint]models.Place, error)
	GetOrCreatePlace(name string, latitude, longitude, searchRadiusMeters float64) (*models.Place, error)
	MaybeCreatePlaceData(userID, placeID uint, region *models.Region, additionalData models.JSONMap) error
	AggregateCity(placeID uint) (*string, error)
	UpdateCity(placeID uint, city *string) error
	SavePlace(userID, placeID uint, note string) (*models.PlaceSave, error)
	UnsavePlace(userID, placeID uint) error
	GetSavedPlaces(userID uint, cursor *uint, limit int) ([]models.PlaceSave, error)
}

// PostgresPlaceRepository implements PlaceRepository for PostgreSQL.
// Proximity searches run through PostGIS geography operators, so distances
// are geodesic.
type PostgresPlaceRepository struct {
	db *gorm.DB
}

// NewPostgresPlaceRepository creates a new PostgresPlaceRepository.
func NewPostgresPlaceRepository(db *gorm.DB) *PostgresPlaceRepository {
	return &PostgresPlaceRepository{db: db}
}

// GetPlaceByID returns the place with the given id, or ErrNotFound.
func (r *PostgresPlaceRepository) GetPlaceByID(placeID uint) (*models.Place, error) {
	var place models.Place
	err := r.db.First(&place, placeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &place, nil
}

// GetPlaces returns the given places keyed by id.
func (r *PostgresPlaceRepository) GetPlaces(placeIDs []uint) (map[uint]models.Place, error) {
	places := make(map[uint]models.Place)
	if len(placeIDs) == 0 {
		return places, nil
	}
	var rows []models.Place
	if err := r.db.Where("id IN ?", placeIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		places[row.ID] = row
	}
	return places, nil
}

// GetOrCreatePlace finds a place with the same name within the search radius,
// creating one if none matches. The dedup is best-effort: two near-
// simultaneous creates at slightly different coordinates can both insert; the
// (name, lat, lng) unique constraint only backstops exact duplicates.
func (r *PostgresPlaceRepository) GetOrCreatePlace(name string, latitude, longitude, searchRadiusMeters float64) (*models.Place, error) {
	if searchRadiusMeters <= 0 {
		searchRadiusMeters = defaultPlaceSearchRadiusMeters
	}
	place, err := r.findPlace(name, latitude, longitude, searchRadiusMeters)
	if err != nil {
		return nil, err
	}
	if place != nil {
		return place, nil
	}
	created := models.Place{Name: name, Latitude: latitude, Longitude: longitude}
	if err := r.db.Create(&created).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost the race to an identical (name, lat, lng) insert.
			return r.findPlace(name, latitude, longitude, searchRadiusMeters)
		}
		return nil, err
	}
	return &created, nil
}

// MaybeCreatePlaceData appends a crowd-sourced metadata row for the place.
// Each user contributes at most one row per place; a repeat contribution is a
// silent no-op.
func (r *PostgresPlaceRepository) MaybeCreatePlaceData(userID, placeID uint, region *models.Region, additionalData models.JSONMap) error {
	data := models.PlaceData{
		UserID:         userID,
		PlaceID:        placeID,
		AdditionalData: additionalData,
	}
	if region != nil {
		data.RegionCenterLat = &region.Latitude
		data.RegionCenterLng = &region.Longitude
		data.RadiusMeters = &region.Radius
	}
	err := r.db.Create(&data).Error
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

// AggregateCity returns the most common city value contributed for the place
// across all metadata rows, or nil if none was contributed. Recomputable at
// any time; never cached.
func (r *PostgresPlaceRepository) AggregateCity(placeID uint) (*string, error) {
	var city *string
	err := r.db.Raw(`
		SELECT additional_data->>'city' AS city
		FROM place_data
		WHERE place_id = ? AND additional_data->>'city' IS NOT NULL
		GROUP BY city
		ORDER BY COUNT(*) DESC
		LIMIT 1`, placeID).Scan(&city).Error
	return city, err
}

// UpdateCity stores the aggregated city on the place row.
func (r *PostgresPlaceRepository) UpdateCity(placeID uint, city *string) error {
	return r.db.Model(&models.Place{}).Where("id = ?", placeID).Update("city", city).Error
}

// SavePlace bookmarks the place for the user. Saving an already-saved place
// replaces the note on the existing row rather than erroring.
func (r *PostgresPlaceRepository) SavePlace(userID, placeID uint, note string) (*models.PlaceSave, error) {
	save := models.PlaceSave{UserID: userID, PlaceID: placeID, Note: note}
	err := r.db.Create(&save).Error
	if isUniqueViolation(err) {
		err = r.db.Model(&models.PlaceSave{}).
			Where("user_id = ? AND place_id = ?", userID, placeID).
			Update("note", note).Error
		if err != nil {
			return nil, err
		}
		var existing models.PlaceSave
		err = r.db.Preload("Place").
			Where("user_id = ? AND place_id = ?", userID, placeID).
			First(&existing).Error
		if err != nil {
			return nil, err
		}
		return &existing, nil
	}
	if err != nil {
		return nil, err
	}
	return &save, nil
}

// UnsavePlace removes the bookmark. Removing an absent bookmark is a no-op.
func (r *PostgresPlaceRepository) UnsavePlace(userID, placeID uint) error {
	return r.db.Where("user_id = ? AND place_id = ?", userID, placeID).
		Delete(&models.PlaceSave{}).Error
}

// GetSavedPlaces returns a page of the user's saved places, newest first.
func (r *PostgresPlaceRepository) GetSavedPlaces(userID uint, cursor *uint, limit int) ([]models.PlaceSave, error) {
	query := r.db.Preload("Place").Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("id < ?", *cursor)
	}
	var saves []models.PlaceSave
	err := query.Order("id DESC").Limit(limit).Find(&saves).Error
	return saves, err
}

func (r *PostgresPlaceRepository) findPlace(name string, latitude, longitude, searchRadiusMeters float64) (*models.Place, error) {
	var place models.Place
	err := r.db.
		Where("name = ?", name).
		Where("ST_DWithin(ST_MakePoint(longitude, latitude)::geography, ST_MakePoint(?, ?)::geography, ?)",
			longitude, latitude, searchRadiusMeters).
		First(&place).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &place, nil
}
