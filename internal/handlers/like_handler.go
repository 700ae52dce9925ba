package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/placemark-app/backend/internal/models"
	"github.com/placemark-app/backend/internal/notify"
	"github.com/placemark-app/backend/internal/repositories"
)

// LikeHandler handles post like HTTP requests
type LikeHandler struct {
	postRepository     repositories.PostRepository
	relationRepository repositories.RelationRepository
	notifier           *notify.Notifier
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(postRepo repositories.PostRepository, relationRepo repositories.RelationRepository, notifier *notify.Notifier) *LikeHandler {
	return &LikeHandler{
		postRepository:     postRepo,
		relationRepository: relationRepo,
		notifier:           notifier,
	}
}

// RegisterLikeRoutes registers post like routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:postId/like", h.LikePost)
	g.POST("/posts/:postId/unlike", h.UnlikePost)
}

// LikePost likes a post. Liking an already-liked post is a no-op.
func (h *LikeHandler) LikePost(c echo.Context) error {
	user := getCurrentUser(c)
	postID, err := parseIDParam(c, "postId")
	if err != nil {
		return err
	}

	post, err := getVisiblePost(h.postRepository, h.relationRepository, user.ID, postID)
	if err != nil {
		return err
	}

	if err := h.postRepository.LikePost(user.ID, post.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to like post")
	}

	go h.notifier.NotifyPostLiked(post, user)

	return h.likeResponse(c, post.ID)
}

// UnlikePost removes a like. Unliking a post that was never liked is a no-op.
func (h *LikeHandler) UnlikePost(c echo.Context) error {
	user := getCurrentUser(c)
	postID, err := parseIDParam(c, "postId")
	if err != nil {
		return err
	}

	post, err := getVisiblePost(h.postRepository, h.relationRepository, user.ID, postID)
	if err != nil {
		return err
	}

	if err := h.postRepository.UnlikePost(user.ID, post.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to unlike post")
	}
	return h.likeResponse(c, post.ID)
}

func (h *LikeHandler) likeResponse(c echo.Context, postID uint) error {
	likes, err := h.postRepository.GetLikeCount(postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load like count")
	}
	return c.JSON(http.StatusOK, models.LikePostResponse{Likes: likes})
}
