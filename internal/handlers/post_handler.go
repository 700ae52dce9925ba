package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/placemark-app/backend/internal/models"
	"github.com/placemark-app/backend/internal/repositories"
)

// PostHandler handles post CRUD HTTP requests
type PostHandler struct {
	postRepository     repositories.PostRepository
	placeRepository    repositories.PlaceRepository
	relationRepository repositories.RelationRepository
	userRepository     repositories.UserRepository
	store              ObjectStore
	enricher           postEnricher
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(postRepo repositories.PostRepository, placeRepo repositories.PlaceRepository, relationRepo repositories.RelationRepository, userRepo repositories.UserRepository, store ObjectStore) *PostHandler {
	return &PostHandler{
		postRepository:     postRepo,
		placeRepository:    placeRepo,
		relationRepository: relationRepo,
		userRepository:     userRepo,
		store:              store,
		enricher:           postEnricher{postRepository: postRepo, userRepository: userRepo},
	}
}

// RegisterPostRoutes registers post CRUD routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:postId", h.GetPost)
	g.PUT("/posts/:postId", h.UpdatePost)
	g.DELETE("/posts/:postId", h.DeletePost)
	g.POST("/posts/:postId/report", h.ReportPost)
}

// CreatePost creates a post about a place. The place may be referenced by id
// or described inline, in which case it is deduplicated against nearby
// places with the same name.
func (h *PostHandler) CreatePost(c echo.Context) error {
	user := getCurrentUser(c)

	req := new(models.CreatePostRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	placeID, err := h.resolvePlace(user.ID, req)
	if err != nil {
		return err
	}

	post, err := h.postRepository.CreatePost(user.ID, placeID, req.Category, req.Content, req.ImageID)
	if err != nil {
		return h.mapPostWriteError(err, "Failed to create post")
	}

	public, err := h.enricher.buildPublicPost(user.ID, post)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load post")
	}
	return c.JSON(http.StatusCreated, public)
}

// GetPost returns a single post if the caller may see it
func (h *PostHandler) GetPost(c echo.Context) error {
	user := getCurrentUser(c)
	postID, err := parseIDParam(c, "postId")
	if err != nil {
		return err
	}

	post, err := getVisiblePost(h.postRepository, h.relationRepository, user.ID, postID)
	if err != nil {
		return err
	}

	public, err := h.enricher.buildPublicPost(user.ID, post)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load post")
	}
	return c.JSON(http.StatusOK, public)
}

// UpdatePost replaces a post's place, category, content, and image
func (h *PostHandler) UpdatePost(c echo.Context) error {
	user := getCurrentUser(c)
	postID, err := parseIDParam(c, "postId")
	if err != nil {
		return err
	}

	post, err := getVisiblePost(h.postRepository, h.relationRepository, user.ID, postID)
	if err != nil {
		return err
	}
	if post.UserID != user.ID {
		return echo.NewHTTPError(http.StatusForbidden, "Not allowed")
	}

	req := new(models.CreatePostRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	placeID, err := h.resolvePlace(user.ID, req)
	if err != nil {
		return err
	}

	updated, err := h.postRepository.UpdatePost(post.ID, placeID, req.Category, req.Content, req.ImageID)
	if err != nil {
		return h.mapPostWriteError(err, "Failed to update post")
	}

	public, err := h.enricher.buildPublicPost(user.ID, updated)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load post")
	}
	return c.JSON(http.StatusOK, public)
}

// DeletePost soft-deletes the caller's post and revokes public access to its
// image
func (h *PostHandler) DeletePost(c echo.Context) error {
	user := getCurrentUser(c)
	postID, err := parseIDParam(c, "postId")
	if err != nil {
		return err
	}

	post, err := getVisiblePost(h.postRepository, h.relationRepository, user.ID, postID)
	if err != nil {
		return err
	}
	if post.UserID != user.ID {
		return echo.NewHTTPError(http.StatusForbidden, "Not allowed")
	}

	if err := h.postRepository.SoftDeletePost(post.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete post")
	}

	if post.Image != nil && post.Image.BlobName != nil {
		if err := h.store.MakeObjectPrivate(c.Request().Context(), *post.Image.BlobName); err != nil {
			log.Printf("Failed to make image %d private: %v", post.Image.ID, err)
		}
	}
	return c.JSON(http.StatusOK, models.DeletePostResponse{Deleted: true})
}

// ReportPost records a report against another user's post. Re-reporting the
// same post is a no-op.
func (h *PostHandler) ReportPost(c echo.Context) error {
	user := getCurrentUser(c)
	postID, err := parseIDParam(c, "postId")
	if err != nil {
		return err
	}

	post, err := getVisiblePost(h.postRepository, h.relationRepository, user.ID, postID)
	if err != nil {
		return err
	}
	if post.UserID == user.ID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot report your own post")
	}

	req := new(models.ReportPostRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	created, err := h.postRepository.ReportPost(post.ID, user.ID, req.Details)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to report post")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": created})
}

// resolvePlace turns the place reference in a post request into a place id.
// Inline places also record the contributor's metadata and refresh the
// aggregated city.
func (h *PostHandler) resolvePlace(userID uint, req *models.CreatePostRequest) (uint, error) {
	if (req.PlaceID == nil) == (req.Place == nil) {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Exactly one of place_id or place must be set")
	}

	if req.PlaceID != nil {
		place, err := h.placeRepository.GetPlaceByID(*req.PlaceID)
		if errors.Is(err, repositories.ErrNotFound) {
			return 0, echo.NewHTTPError(http.StatusBadRequest, "Place not found")
		}
		if err != nil {
			return 0, echo.NewHTTPError(http.StatusInternalServerError, "Failed to load place")
		}
		return place.ID, nil
	}

	var searchRadius float64
	if req.Place.Region != nil {
		searchRadius = req.Place.Region.Radius
	}
	place, err := h.placeRepository.GetOrCreatePlace(req.Place.Name, req.Place.Location.Latitude, req.Place.Location.Longitude, searchRadius)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusInternalServerError, "Failed to create place")
	}

	if err := h.placeRepository.MaybeCreatePlaceData(userID, place.ID, req.Place.Region, req.Place.AdditionalData); err != nil {
		log.Printf("Failed to save place data for place %d: %v", place.ID, err)
		return place.ID, nil
	}
	city, err := h.placeRepository.AggregateCity(place.ID)
	if err != nil {
		log.Printf("Failed to aggregate city for place %d: %v", place.ID, err)
		return place.ID, nil
	}
	if err := h.placeRepository.UpdateCity(place.ID, city); err != nil {
		log.Printf("Failed to update city for place %d: %v", place.ID, err)
	}
	return place.ID, nil
}

func (h *PostHandler) mapPostWriteError(err error, fallback string) error {
	switch {
	case errors.Is(err, repositories.ErrInvalidCategory):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, repositories.ErrAlreadyPosted):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, repositories.ErrImageNotFound),
		errors.Is(err, repositories.ErrDuplicateImage):
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid image")
	case errors.Is(err, repositories.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Post not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, fallback)
	}
}
