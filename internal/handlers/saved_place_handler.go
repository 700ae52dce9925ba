package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/placemark-app/backend/internal/models"
	"github.com/placemark-app/backend/internal/repositories"
)

// SavedPlaceHandler handles place bookmark HTTP requests
type SavedPlaceHandler struct {
	placeRepository repositories.PlaceRepository
}

// NewSavedPlaceHandler creates a new SavedPlaceHandler
func NewSavedPlaceHandler(placeRepo repositories.PlaceRepository) *SavedPlaceHandler {
	return &SavedPlaceHandler{placeRepository: placeRepo}
}

// RegisterSavedPlaceRoutes registers place bookmark routes
func (h *SavedPlaceHandler) RegisterSavedPlaceRoutes(g *echo.Group) {
	g.GET("/me/saved-places", h.GetSavedPlaces)
	g.POST("/me/saved-places", h.SavePlace)
	g.DELETE("/me/saved-places/:placeId", h.UnsavePlace)
}

// SavePlace bookmarks a place with an optional note. Saving an already-saved
// place replaces the note.
func (h *SavedPlaceHandler) SavePlace(c echo.Context) error {
	user := getCurrentUser(c)

	req := new(models.SavePlaceRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	place, err := h.placeRepository.GetPlaceByID(req.PlaceID)
	if errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Place not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load place")
	}

	save, err := h.placeRepository.SavePlace(user.ID, place.ID, req.Note)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save place")
	}
	if save.Place == nil {
		save.Place = place
	}
	return c.JSON(http.StatusOK, echo.Map{"save": toPublicPlaceSave(save)})
}

// UnsavePlace removes a place bookmark. Removing an absent bookmark is a
// no-op.
func (h *SavedPlaceHandler) UnsavePlace(c echo.Context) error {
	user := getCurrentUser(c)
	placeID, err := parseIDParam(c, "placeId")
	if err != nil {
		return err
	}

	if err := h.placeRepository.UnsavePlace(user.ID, placeID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to unsave place")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// GetSavedPlaces returns the caller's saved places, most recently saved first
func (h *SavedPlaceHandler) GetSavedPlaces(c echo.Context) error {
	user := getCurrentUser(c)
	cursor, err := parseCursor(c)
	if err != nil {
		return err
	}
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}

	saves, err := h.placeRepository.GetSavedPlaces(user.ID, cursor, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load saved places")
	}

	items := make([]models.PublicPlaceSave, 0, len(saves))
	ids := make([]uint, 0, len(saves))
	for i := range saves {
		items = append(items, toPublicPlaceSave(&saves[i]))
		ids = append(ids, saves[i].ID)
	}
	return c.JSON(http.StatusOK, models.SavedPlacesResponse{
		Saves:  items,
		Cursor: repositories.NextCursor(ids, limit),
	})
}

func toPublicPlaceSave(save *models.PlaceSave) models.PublicPlaceSave {
	public := models.PublicPlaceSave{
		ID:        save.ID,
		Note:      save.Note,
		CreatedAt: save.CreatedAt,
	}
	if save.Place != nil {
		public.Place = *save.Place
	}
	return public
}
