package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/placemark-app/backend/internal/models"
	"github.com/placemark-app/backend/internal/notify"
	"github.com/placemark-app/backend/internal/repositories"
)

// CommentHandler handles comment HTTP requests
type CommentHandler struct {
	commentRepository  repositories.CommentRepository
	postRepository     repositories.PostRepository
	relationRepository repositories.RelationRepository
	userRepository     repositories.UserRepository
	notifier           *notify.Notifier
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentRepo repositories.CommentRepository, postRepo repositories.PostRepository, relationRepo repositories.RelationRepository, userRepo repositories.UserRepository, notifier *notify.Notifier) *CommentHandler {
	return &CommentHandler{
		commentRepository:  commentRepo,
		postRepository:     postRepo,
		relationRepository: relationRepo,
		userRepository:     userRepo,
		notifier:           notifier,
	}
}

// RegisterCommentRoutes registers comment routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/comments", h.CreateComment)
	g.DELETE("/comments/:commentId", h.DeleteComment)
	g.POST("/comments/:commentId/like", h.LikeComment)
	g.POST("/comments/:commentId/unlike", h.UnlikeComment)
	g.GET("/posts/:postId/comments", h.GetComments)
}

// CreateComment adds a comment to a visible post
func (h *CommentHandler) CreateComment(c echo.Context) error {
	user := getCurrentUser(c)

	req := new(models.CreateCommentRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	post, err := getVisiblePost(h.postRepository, h.relationRepository, user.ID, req.PostID)
	if err != nil {
		return err
	}

	comment, err := h.commentRepository.CreateComment(user.ID, post.ID, req.Content)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create comment")
	}

	go h.notifier.NotifyComment(post, user, comment.Content)

	public, err := h.buildPublicComment(user.ID, comment)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load comment")
	}
	return c.JSON(http.StatusCreated, public)
}

// GetComments lists a post's comments, oldest first
func (h *CommentHandler) GetComments(c echo.Context) error {
	user := getCurrentUser(c)
	postID, err := parseIDParam(c, "postId")
	if err != nil {
		return err
	}

	post, err := getVisiblePost(h.postRepository, h.relationRepository, user.ID, postID)
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

	comments, next, err := h.commentRepository.GetComments(post.ID, cursor, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load comments")
	}

	// Comments from deleted or blocked accounts stay in the page count but
	// are dropped from the response.
	loader := userLoader{userRepository: h.userRepository, relationRepository: h.relationRepository}
	items := make([]models.PublicComment, 0, len(comments))
	for i := range comments {
		if comments[i].UserID != user.ID {
			if _, err := h.userRepository.GetUserByID(comments[i].UserID); errors.Is(err, repositories.ErrNotFound) {
				continue
			} else if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load comments")
			}
			blocked, err := loader.blockedEitherWay(user.ID, comments[i].UserID)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load comments")
			}
			if blocked {
				continue
			}
		}
		public, err := h.buildPublicComment(user.ID, &comments[i])
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load comments")
		}
		items = append(items, public)
	}
	return c.JSON(http.StatusOK, models.CommentPage{Comments: items, Cursor: next})
}

// DeleteComment removes a comment. Allowed for the comment's author and for
// the author of the post it is on.
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	user := getCurrentUser(c)
	commentID, err := parseIDParam(c, "commentId")
	if err != nil {
		return err
	}

	comment, err := h.getComment(commentID)
	if err != nil {
		return err
	}

	if comment.UserID != user.ID {
		post, err := h.postRepository.GetPost(comment.PostID)
		if err != nil || post.UserID != user.ID {
			return echo.NewHTTPError(http.StatusForbidden, "Not allowed")
		}
	}

	if err := h.commentRepository.SoftDeleteComment(comment.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete comment")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// LikeComment likes a comment. Liking twice is a no-op.
func (h *CommentHandler) LikeComment(c echo.Context) error {
	user := getCurrentUser(c)
	commentID, err := parseIDParam(c, "commentId")
	if err != nil {
		return err
	}

	comment, err := h.getComment(commentID)
	if err != nil {
		return err
	}
	if _, err := getVisiblePost(h.postRepository, h.relationRepository, user.ID, comment.PostID); err != nil {
		return err
	}

	if err := h.commentRepository.LikeComment(comment.ID, user.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to like comment")
	}

	go h.notifier.NotifyCommentLiked(comment, user)

	return h.likeResponse(c, comment.ID)
}

// UnlikeComment removes a comment like. A no-op if never liked.
func (h *CommentHandler) UnlikeComment(c echo.Context) error {
	user := getCurrentUser(c)
	commentID, err := parseIDParam(c, "commentId")
	if err != nil {
		return err
	}

	comment, err := h.getComment(commentID)
	if err != nil {
		return err
	}

	if err := h.commentRepository.UnlikeComment(comment.ID, user.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to unlike comment")
	}
	return h.likeResponse(c, comment.ID)
}

func (h *CommentHandler) getComment(commentID uint) (*models.Comment, error) {
	comment, err := h.commentRepository.GetComment(commentID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Comment not found")
	}
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to load comment")
	}
	return comment, nil
}

func (h *CommentHandler) buildPublicComment(viewerID uint, comment *models.Comment) (models.PublicComment, error) {
	author, err := h.userRepository.GetUserByID(comment.UserID)
	if err != nil {
		return models.PublicComment{}, err
	}
	publicAuthor, err := toPublicUser(h.userRepository, author)
	if err != nil {
		return models.PublicComment{}, err
	}
	likes, err := h.commentRepository.GetLikeCount(comment.ID)
	if err != nil {
		return models.PublicComment{}, err
	}
	liked, err := h.commentRepository.GetLikedCommentIDs(viewerID, []uint{comment.ID})
	if err != nil {
		return models.PublicComment{}, err
	}
	return models.PublicComment{
		ID:        comment.ID,
		User:      publicAuthor,
		PostID:    comment.PostID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		LikeCount: likes,
		Liked:     liked[comment.ID],
	}, nil
}

func (h *CommentHandler) likeResponse(c echo.Context, commentID uint) error {
	likes, err := h.commentRepository.GetLikeCount(commentID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load like count")
	}
	return c.JSON(http.StatusOK, models.LikeCommentResponse{Likes: likes})
}
