package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/placemark-app/backend/internal/models"
	"github.com/placemark-app/backend/internal/notify"
	"github.com/placemark-app/backend/internal/repositories"
)

// FollowHandler handles social graph HTTP requests
type FollowHandler struct {
	relationRepository repositories.RelationRepository
	userRepository     repositories.UserRepository
	notifier           *notify.Notifier
	loader             userLoader
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(relationRepo repositories.RelationRepository, userRepo repositories.UserRepository, notifier *notify.Notifier) *FollowHandler {
	return &FollowHandler{
		relationRepository: relationRepo,
		userRepository:     userRepo,
		notifier:           notifier,
		loader:             userLoader{userRepository: userRepo, relationRepository: relationRepo},
	}
}

// RegisterFollowRoutes registers social graph routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:username/follow", h.FollowUser)
	g.POST("/users/:username/unfollow", h.UnfollowUser)
	g.POST("/users/:username/block", h.BlockUser)
	g.POST("/users/:username/unblock", h.UnblockUser)
	g.GET("/users/:username/followers", h.GetFollowers)
	g.GET("/users/:username/following", h.GetFollowing)
	g.GET("/users/:username/relation", h.GetRelation)
}

// FollowUser creates a follow edge to the target user
func (h *FollowHandler) FollowUser(c echo.Context) error {
	viewer := getCurrentUser(c)
	target, err := h.loader.getUserForViewer(viewer.ID, c.Param("username"))
	if err != nil {
		return err
	}
	if target.ID == viewer.ID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot follow yourself")
	}

	err = h.relationRepository.FollowUser(viewer.ID, target.ID)
	switch {
	case errors.Is(err, repositories.ErrAlreadyFollowing),
		errors.Is(err, repositories.ErrCannotFollowBlocked),
		errors.Is(err, repositories.ErrConflict):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to follow user")
	}

	go h.notifier.NotifyFollowed(target.ID, viewer)

	return h.followResponse(c, target.ID, true)
}

// UnfollowUser removes the follow edge to the target user
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	viewer := getCurrentUser(c)
	target, err := h.loader.getUserForViewer(viewer.ID, c.Param("username"))
	if err != nil {
		return err
	}
	if target.ID == viewer.ID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot unfollow yourself")
	}

	err = h.relationRepository.UnfollowUser(viewer.ID, target.ID)
	if errors.Is(err, repositories.ErrNotFollowing) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to unfollow user")
	}
	return h.followResponse(c, target.ID, false)
}

// BlockUser blocks the target user, severing any follow from them. Deleted
// accounts cannot be blocked, but an account that blocked the caller can be,
// so blocks may end up mutual.
func (h *FollowHandler) BlockUser(c echo.Context) error {
	viewer := getCurrentUser(c)
	target, err := h.getUserRaw(c.Param("username"))
	if err != nil {
		return err
	}
	if target.ID == viewer.ID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot block yourself")
	}

	err = h.relationRepository.BlockUser(viewer.ID, target.ID)
	switch {
	case errors.Is(err, repositories.ErrAlreadyBlocked),
		errors.Is(err, repositories.ErrCannotBlockFollowed),
		errors.Is(err, repositories.ErrConflict):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to block user")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// UnblockUser removes the caller's block on the target user
func (h *FollowHandler) UnblockUser(c echo.Context) error {
	viewer := getCurrentUser(c)
	target, err := h.getUserRaw(c.Param("username"))
	if err != nil {
		return err
	}
	if target.ID == viewer.ID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot unblock yourself")
	}

	err = h.relationRepository.UnblockUser(viewer.ID, target.ID)
	if errors.Is(err, repositories.ErrNotBlocked) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to unblock user")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// GetFollowers lists the target user's followers, most recent first
func (h *FollowHandler) GetFollowers(c echo.Context) error {
	return h.followFeed(c, h.relationRepository.GetFollowers)
}

// GetFollowing lists who the target user follows, most recent first
func (h *FollowHandler) GetFollowing(c echo.Context) error {
	return h.followFeed(c, h.relationRepository.GetFollowing)
}

// GetRelation returns the caller's relation to the target user, if any
func (h *FollowHandler) GetRelation(c echo.Context) error {
	viewer := getCurrentUser(c)
	target, err := h.getUserRaw(c.Param("username"))
	if err != nil {
		return err
	}

	relation, err := h.relationRepository.GetRelation(viewer.ID, target.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load relation")
	}
	return c.JSON(http.StatusOK, models.RelationToUser{Relation: relation})
}

func (h *FollowHandler) followFeed(c echo.Context, page func(uint, *uint, int) ([]uint, *uint, error)) error {
	viewer := getCurrentUser(c)
	target, err := h.loader.getUserForViewer(viewer.ID, c.Param("username"))
	if err != nil {
		return err
	}
	cursor, err := parseCursor(c)
	if err != nil {
		return err
	}
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}

	userIDs, next, err := page(target.ID, cursor, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load users")
	}

	users, err := h.userRepository.GetUsers(userIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load users")
	}
	relations, err := h.relationRepository.GetRelations(viewer.ID, userIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load users")
	}

	items := make([]models.FollowFeedItem, 0, len(userIDs))
	for _, id := range userIDs {
		user, ok := users[id]
		if !ok {
			continue
		}
		public, err := toPublicUser(h.userRepository, &user)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load users")
		}
		item := models.FollowFeedItem{User: public}
		if relation, ok := relations[id]; ok {
			item.Relation = &relation
		}
		items = append(items, item)
	}
	return c.JSON(http.StatusOK, models.FollowFeedResponse{Users: items, Cursor: next})
}

func (h *FollowHandler) followResponse(c echo.Context, targetID uint, followed bool) error {
	followers, err := h.relationRepository.GetFollowerCount(targetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load follower count")
	}
	return c.JSON(http.StatusOK, models.FollowUserResponse{Followed: followed, Followers: followers})
}

func (h *FollowHandler) getUserRaw(username string) (*models.User, error) {
	user, err := h.userRepository.GetUserByUsername(username)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to load user")
	}
	return user, nil
}
