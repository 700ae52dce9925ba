package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/placemark-app/backend/internal/models"
	"github.com/placemark-app/backend/internal/repositories"
)

const discoverFeedLimit = 100

// FeedHandler handles feed HTTP requests
type FeedHandler struct {
	feedRepository repositories.FeedRepository
	enricher       postEnricher
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(feedRepo repositories.FeedRepository, postRepo repositories.PostRepository, userRepo repositories.UserRepository) *FeedHandler {
	return &FeedHandler{
		feedRepository: feedRepo,
		enricher:       postEnricher{postRepository: postRepo, userRepository: userRepo},
	}
}

// RegisterFeedRoutes registers feed routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/me/feed", h.GetFeed)
	g.GET("/me/discover", h.GetDiscoverFeed)
}

// GetFeed returns the caller's home feed: their own posts and posts by
// people they follow, newest first
func (h *FeedHandler) GetFeed(c echo.Context) error {
	user := getCurrentUser(c)
	cursor, err := parseCursor(c)
	if err != nil {
		return err
	}
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}

	postIDs, err := h.feedRepository.GetFeedPostIDs(user.ID, cursor, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load feed")
	}
	posts, err := h.enricher.buildPublicPosts(user.ID, postIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load feed")
	}
	return c.JSON(http.StatusOK, models.PaginatedPosts{
		Posts:  posts,
		Cursor: repositories.NextCursor(postIDs, limit),
	})
}

// GetDiscoverFeed returns recent posts by other users that have an image or
// non-empty text
func (h *FeedHandler) GetDiscoverFeed(c echo.Context) error {
	user := getCurrentUser(c)

	postIDs, err := h.feedRepository.GetDiscoverPostIDs(user.ID, discoverFeedLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load discover feed")
	}
	posts, err := h.enricher.buildPublicPosts(user.ID, postIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load discover feed")
	}
	return c.JSON(http.StatusOK, echo.Map{"posts": posts})
}
