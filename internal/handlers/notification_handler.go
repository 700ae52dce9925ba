package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/placemark-app/backend/internal/models"
	"github.com/placemark-app/backend/internal/repositories"
)

// NotificationHandler handles the notification feed and token registration
type NotificationHandler struct {
	feedRepository    repositories.NotificationFeedRepository
	tokenRepository   repositories.TokenRepository
	userRepository    repositories.UserRepository
	commentRepository repositories.CommentRepository
	enricher          postEnricher
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(feedRepo repositories.NotificationFeedRepository, tokenRepo repositories.TokenRepository, userRepo repositories.UserRepository, postRepo repositories.PostRepository, commentRepo repositories.CommentRepository) *NotificationHandler {
	return &NotificationHandler{
		feedRepository:    feedRepo,
		tokenRepository:   tokenRepo,
		userRepository:    userRepo,
		commentRepository: commentRepo,
		enricher:          postEnricher{postRepository: postRepo, userRepository: userRepo},
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotificationFeed)
	g.POST("/notifications/token", h.RegisterToken)
	g.DELETE("/notifications/token", h.RemoveToken)
}

// GetNotificationFeed returns the merged stream of follows, likes, saves,
// and comments aimed at the caller
func (h *NotificationHandler) GetNotificationFeed(c echo.Context) error {
	user := getCurrentUser(c)
	cursor, err := parseCursor(c)
	if err != nil {
		return err
	}
	limit, err := parseLimit(c)
	if err != nil {
		return err
	}

	events, next, err := h.feedRepository.GetFeedEvents(user.ID, cursor, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load notifications")
	}

	items, err := h.buildItems(user.ID, events)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load notifications")
	}
	return c.JSON(http.StatusOK, models.NotificationFeedResponse{Notifications: items, Cursor: next})
}

// RegisterToken saves an FCM token for the caller's device
func (h *NotificationHandler) RegisterToken(c echo.Context) error {
	return h.tokenRequest(c, h.tokenRepository.RegisterToken)
}

// RemoveToken deletes an FCM token previously registered by the caller
func (h *NotificationHandler) RemoveToken(c echo.Context) error {
	return h.tokenRequest(c, h.tokenRepository.RemoveToken)
}

func (h *NotificationHandler) tokenRequest(c echo.Context, op func(uint, string) error) error {
	user := getCurrentUser(c)

	req := new(models.NotificationTokenRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	if err := op(user.ID, req.Token); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update token")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

func (h *NotificationHandler) buildItems(viewerID uint, events []repositories.NotificationEvent) ([]models.NotificationItem, error) {
	actorIDs := make([]uint, 0, len(events))
	postIDs := make([]uint, 0, len(events))
	seenActors := make(map[uint]bool)
	seenPosts := make(map[uint]bool)
	for _, event := range events {
		if !seenActors[event.ActorUserID] {
			seenActors[event.ActorUserID] = true
			actorIDs = append(actorIDs, event.ActorUserID)
		}
		if event.PostID != 0 && !seenPosts[event.PostID] {
			seenPosts[event.PostID] = true
			postIDs = append(postIDs, event.PostID)
		}
	}

	actors, err := h.userRepository.GetUsers(actorIDs)
	if err != nil {
		return nil, err
	}
	publicActors := make(map[uint]models.PublicUser, len(actors))
	for id := range actors {
		actor := actors[id]
		public, err := toPublicUser(h.userRepository, &actor)
		if err != nil {
			return nil, err
		}
		publicActors[id] = public
	}

	posts, err := h.enricher.buildPublicPosts(viewerID, postIDs)
	if err != nil {
		return nil, err
	}
	publicPosts := make(map[uint]models.PublicPost, len(posts))
	for _, post := range posts {
		publicPosts[post.ID] = post
	}

	items := make([]models.NotificationItem, 0, len(events))
	for _, event := range events {
		actor, ok := publicActors[event.ActorUserID]
		if !ok {
			continue
		}
		item := models.NotificationItem{
			Type:      event.Type,
			ItemID:    event.ItemID,
			CreatedAt: event.CreatedAt,
			User:      actor,
		}
		if event.PostID != 0 {
			post, ok := publicPosts[event.PostID]
			if !ok {
				continue
			}
			item.Post = &post
		}
		if event.CommentID != 0 {
			comment, err := h.buildComment(actor, event.CommentID)
			if errors.Is(err, repositories.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			item.Comment = comment
		}
		items = append(items, item)
	}
	return items, nil
}

func (h *NotificationHandler) buildComment(author models.PublicUser, commentID uint) (*models.PublicComment, error) {
	comment, err := h.commentRepository.GetComment(commentID)
	if err != nil {
		return nil, err
	}
	likes, err := h.commentRepository.GetLikeCount(comment.ID)
	if err != nil {
		return nil, err
	}
	return &models.PublicComment{
		ID:        comment.ID,
		User:      author,
		PostID:    comment.PostID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		LikeCount: likes,
	}, nil
}
