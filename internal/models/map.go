package models

// MapType selects which users' posts contribute to the map.
type MapType string

const (
	MapTypeEveryone  MapType = "everyone"
	MapTypeFollowing MapType = "following"
	MapTypeSaved     MapType = "saved"
	MapTypeCustom    MapType = "custom"
	MapTypeMe        MapType = "me"
)

// MapPinIcon is the representative icon for a pin: the category and author
// profile picture of the most recent contributing post, plus the number of
// contributing posts at the place.
type MapPinIcon struct {
	Category *string `json:"category"`
	IconURL  *string `json:"icon_url"`
	NumPosts int     `json:"num_posts"`
}

// MapPin is one aggregated place on the map.
type MapPin struct {
	PlaceID  uint       `json:"place_id"`
	Location Location   `json:"location"`
	Icon     MapPinIcon `json:"icon"`
}

// GetMapRequest asks for the pins in a region, filtered by the given strategy
// and optional category allow-list. UserIDs is only consulted for the custom
// strategy and is capped at 100 users.
type GetMapRequest struct {
	Region     Region   `json:"region" validate:"required"`
	MapType    MapType  `json:"map_type" validate:"required,oneof=everyone following saved custom me"`
	Categories []string `json:"categories,omitempty"`
	UserIDs    []uint   `json:"user_ids,omitempty" validate:"omitempty,max=100"`
}

// GetMapResponse carries the aggregated pins.
type GetMapResponse struct {
	Pins []MapPin `json:"pins"`
}
