package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/placemark-app/backend/internal/models"
	"github.com/placemark-app/backend/internal/notify"
	"github.com/placemark-app/backend/internal/repositories"
)

// SavedPostHandler handles post save HTTP requests
type SavedPostHandler struct {
	postRepository     repositories.PostRepository
	relationRepository repositories.RelationRepository
	userRepository     repositories.UserRepository
	notifier           *notify.Notifier
	enricher           postEnricher
}

// NewSavedPostHandler creates a new SavedPostHandler
func NewSavedPostHandler(postRepo repositories.PostRepository, relationRepo repositories.RelationRepository, userRepo repositories.UserRepository, notifier *notify.Notifier) *SavedPostHandler {
	return &SavedPostHandler{
		postRepository:     postRepo,
		relationRepository: relationRepo,
		userRepository:     userRepo,
		notifier:           notifier,
		enricher:           postEnricher{postRepository: postRepo, userRepository: userRepo},
	}
}

// RegisterSavedPostRoutes registers post save routes
func (h *SavedPostHandler) RegisterSavedPostRoutes(g *echo.Group) {
	g.POST("/posts/:postId/save", h.SavePost)
	g.POST("/posts/:postId/unsave", h.UnsavePost)
	g.GET("/me/saved-posts", h.GetSavedPosts)
}

// SavePost saves a post for the caller. Saving twice is a no-op.
func (h *SavedPostHandler) SavePost(c echo.Context) error {
	user := getCurrentUser(c)
	postID, err := parseIDParam(c, "postId")
	if err != nil {
		return err
	}

	post, err := getVisiblePost(h.postRepository, h.relationRepository, user.ID, postID)
	if err != nil {
		return err
	}

	if err := h.postRepository.SavePost(user.ID, post.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to save post")
	}

	go h.notifier.NotifyPostSaved(post, user)

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// UnsavePost removes a save. Unsaving a post that was never saved is a no-op.
func (h *SavedPostHandler) UnsavePost(c echo.Context) error {
	user := getCurrentUser(c)
	postID, err := parseIDParam(c, "postId")
	if err != nil {
		return err
	}

	post, err := getVisiblePost(h.postRepository, h.relationRepository, user.ID, postID)
	if err != nil {
		return err
	}

	if err := h.postRepository.UnsavePost(user.ID, post.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to unsave post")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// GetSavedPosts returns the caller's saved posts, most recently saved first.
// The cursor pages over save ids, not post ids.
func (h *SavedPostHandler) GetSavedPosts(c echo.Context) error {
	user := getCurrentUser(c)
	cursor, err := parseCursor(c)
	if err != nil {
		return err
	}
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}

	saves, next, err := h.postRepository.GetSavedPostsByUser(user.ID, cursor, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load saved posts")
	}

	postIDs := make([]uint, 0, len(saves))
	for _, save := range saves {
		postIDs = append(postIDs, save.PostID)
	}
	posts, err := h.enricher.buildPublicPosts(user.ID, postIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load saved posts")
	}
	return c.JSON(http.StatusOK, models.PaginatedPosts{Posts: posts, Cursor: next})
}
