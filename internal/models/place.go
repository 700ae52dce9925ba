package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Place is a physical location users post about. The coordinates are the
// canonical point for the place (entrance, most visited spot, etc.), not
// necessarily its centroid. Deduplicated best-effort by name + proximity.
type Place struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"index:idx_place_name_location,unique;not null"`
	Latitude  float64   `json:"latitude" gorm:"index:idx_place_name_location,unique;not null"`
	Longitude float64   `json:"longitude" gorm:"index:idx_place_name_location,unique;not null"`
	City      *string   `json:"city"`
	Category  *string   `json:"category"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Place) TableName() string { return "places" }

// JSONMap is a map stored as a Postgres jsonb column.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("jsonb scan: unsupported type")
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, m)
}

// PlaceData is a crowd-sourced metadata contribution for a place. Rows are
// append-only, one per (user, place) pair; aggregate values (e.g. the place's
// city) are recomputed by majority vote across all rows, never maintained
// incrementally.
type PlaceData struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	UserID          uint      `json:"user_id" gorm:"index:idx_place_data_user_place,unique;not null"`
	PlaceID         uint      `json:"place_id" gorm:"index:idx_place_data_user_place,unique;index;not null"`
	RegionCenterLat *float64  `json:"region_center_lat"`
	RegionCenterLng *float64  `json:"region_center_lng"`
	RadiusMeters    *float64  `json:"radius_meters"`
	AdditionalData  JSONMap   `json:"additional_data" gorm:"type:jsonb"`
	CreatedAt       time.Time `json:"created_at"`
}

func (PlaceData) TableName() string { return "place_data" }

// PlaceSave bookmarks a place for a user, with an optional note. Unique per
// (user, place); re-saving replaces the note.
type PlaceSave struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"index:idx_place_save_user_place,unique;not null"`
	PlaceID   uint      `json:"place_id" gorm:"index:idx_place_save_user_place,unique;index;not null"`
	Note      string    `json:"note" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`

	Place *Place `json:"-" gorm:"foreignKey:PlaceID"`
}

func (PlaceSave) TableName() string { return "place_saves" }

// SavePlaceRequest bookmarks an existing place.
type SavePlaceRequest struct {
	PlaceID uint   `json:"place_id" validate:"required"`
	Note    string `json:"note" validate:"max=500"`
}

// PublicPlaceSave is the externally visible view of a saved place.
type PublicPlaceSave struct {
	ID        uint      `json:"id"`
	Place     Place     `json:"place"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// SavedPlacesResponse is a cursor-paginated page of saved places.
type SavedPlacesResponse struct {
	Saves  []PublicPlaceSave `json:"saves"`
	Cursor *uint             `json:"cursor"`
}

// Location is a latitude/longitude pair in SRID 4326.
type Location struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// Region is a circular geographic region.
type Region struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
	Radius    float64 `json:"radius" validate:"gt=0"`
}

// MaybeCreatePlaceRequest describes a place attached to a new post. The
// region, when present, bounds the dedup search; additional data is merged
// into the crowd-sourced metadata.
type MaybeCreatePlaceRequest struct {
	Name           string    `json:"name" validate:"required,max=255"`
	Location       Location  `json:"location" validate:"required"`
	Region         *Region   `json:"region,omitempty"`
	AdditionalData JSONMap   `json:"additional_data,omitempty"`
}
