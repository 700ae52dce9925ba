package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/placemark-app/backend/internal/models"
	"github.com/placemark-app/backend/internal/repositories"
)

const pinPostsLimit = 50

// MapHandler handles map HTTP requests
type MapHandler struct {
	feedRepository repositories.FeedRepository
	enricher       postEnricher
}

// NewMapHandler creates a new MapHandler
func NewMapHandler(feedRepo repositories.FeedRepository, postRepo repositories.PostRepository, userRepo repositories.UserRepository) *MapHandler {
	return &MapHandler{
		feedRepository: feedRepo,
		enricher:       postEnricher{postRepository: postRepo, userRepository: userRepo},
	}
}

// RegisterMapRoutes registers map routes
func (h *MapHandler) RegisterMapRoutes(g *echo.Group) {
	g.POST("/map/load", h.LoadMap)
	g.POST("/places/:placeId/posts", h.GetPlacePosts)
}

// LoadMap returns one pin per place with posts inside the region that pass
// the user and category filters
func (h *MapHandler) LoadMap(c echo.Context) error {
	user := getCurrentUser(c)

	req := new(models.GetMapRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	filter, err := h.buildFilter(user.ID, req.MapType, req.UserIDs)
	if err != nil {
		return err
	}
	categories, err := checkCategories(req.Categories)
	if err != nil {
		return err
	}

	rows, err := h.feedRepository.GetMapPostRows(req.Region, filter, categories)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load map")
	}
	return c.JSON(http.StatusOK, models.GetMapResponse{Pins: repositories.BuildMapPins(rows)})
}

// GetPlacePosts returns the posts behind one map pin, filtered the same way
// the map was
func (h *MapHandler) GetPlacePosts(c echo.Context) error {
	user := getCurrentUser(c)
	placeID, err := parseIDParam(c, "placeId")
	if err != nil {
		return err
	}

	type placePostsRequest struct {
		MapType    models.MapType `json:"map_type" validate:"required,oneof=everyone following saved custom me"`
		Categories []string       `json:"categories,omitempty"`
		UserIDs    []uint         `json:"user_ids,omitempty" validate:"omitempty,max=100"`
	}
	req := new(placePostsRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	filter, err := h.buildFilter(user.ID, req.MapType, req.UserIDs)
	if err != nil {
		return err
	}
	categories, err := checkCategories(req.Categories)
	if err != nil {
		return err
	}

	postIDs, err := h.feedRepository.GetPostIDsForPin(placeID, filter, categories, pinPostsLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load posts")
	}
	posts, err := h.enricher.buildPublicPosts(user.ID, postIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load posts")
	}
	return c.JSON(http.StatusOK, echo.Map{"posts": posts})
}

func (h *MapHandler) buildFilter(userID uint, mapType models.MapType, userIDs []uint) (repositories.MapUserFilter, error) {
	switch mapType {
	case models.MapTypeEveryone:
		return repositories.FilterEveryone(), nil
	case models.MapTypeFollowing:
		return repositories.FilterFollowing(userID), nil
	case models.MapTypeSaved:
		return repositories.FilterSaved(userID), nil
	case models.MapTypeCustom:
		return repositories.FilterUserList(userIDs), nil
	case models.MapTypeMe:
		return repositories.FilterMe(userID), nil
	default:
		return repositories.MapUserFilter{}, echo.NewHTTPError(http.StatusBadRequest, "Invalid map type")
	}
}

func checkCategories(categories []string) ([]string, error) {
	for _, category := range categories {
		if !models.IsValidCategory(category) {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid category "+category)
		}
	}
	return categories, nil
}
