package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/placemark-app/backend/internal/models"
	"github.com/placemark-app/backend/internal/repositories"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

// getCurrentUser returns the authenticated account set by the middleware.
func getCurrentUser(c echo.Context) *models.User {
	user, _ := c.Get("currentUser").(*models.User)
	return user
}

// parseCursor reads the optional cursor query parameter.
func parseCursor(c echo.Context) (*uint, error) {
	raw := c.QueryParam("cursor")
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid cursor")
	}
	cursor := uint(value)
	return &cursor, nil
}

// parseLimit reads the optional limit query parameter, clamped to the page
// size cap.
func parseLimit(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return defaultPageLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid limit")
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return limit, nil
}

// parseIDParam reads a numeric path parameter.
func parseIDParam(c echo.Context, name string) (uint, error) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return uint(value), nil
}

// userLoader resolves usernames to accounts while hiding the ones the caller
// must not see. Deleted accounts and accounts with a block in either
// direction read as 404, never 403, so a block is indistinguishable from a
// missing user.
type userLoader struct {
	userRepository     repositories.UserRepository
	relationRepository repositories.RelationRepository
}

func (l *userLoader) getUserForViewer(viewerID uint, username string) (*models.User, error) {
	user, err := l.userRepository.GetUserByUsername(username)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to load user")
	}
	if user.ID == viewerID {
		return user, nil
	}
	blocked, err := l.blockedEitherWay(viewerID, user.ID)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to load user")
	}
	if blocked {
		return nil, echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	return user, nil
}

func (l *userLoader) blockedEitherWay(userA, userB uint) (bool, error) {
	blocked, err := l.relationRepository.IsBlocked(userA, userB)
	if err != nil || blocked {
		return blocked, err
	}
	return l.relationRepository.IsBlocked(userB, userA)
}

// toPublicUser builds the public view of a user with live counts.
func toPublicUser(userRepo repositories.UserRepository, user *models.User) (models.PublicUser, error) {
	counts, err := userRepo.GetCounts(user.ID)
	if err != nil {
		return models.PublicUser{}, err
	}
	return user.ToPublic(counts), nil
}

// postEnricher assembles PublicPost views: place, author, counts, and the
// viewer's like/save state, in one batch per page.
type postEnricher struct {
	postRepository repositories.PostRepository
	userRepository repositories.UserRepository
}

func (e *postEnricher) buildPublicPosts(viewerID uint, postIDs []uint) ([]models.PublicPost, error) {
	if len(postIDs) == 0 {
		return []models.PublicPost{}, nil
	}
	posts, err := e.postRepository.GetPosts(postIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Post, len(posts))
	authorIDs := make([]uint, 0, len(posts))
	seen := make(map[uint]bool)
	for _, post := range posts {
		byID[post.ID] = post
		if !seen[post.UserID] {
			seen[post.UserID] = true
			authorIDs = append(authorIDs, post.UserID)
		}
	}

	authors, err := e.userRepository.GetUsers(authorIDs)
	if err != nil {
		return nil, err
	}
	publicAuthors := make(map[uint]models.PublicUser, len(authors))
	for id := range authors {
		author := authors[id]
		publicAuthor, err := toPublicUser(e.userRepository, &author)
		if err != nil {
			return nil, err
		}
		publicAuthors[id] = publicAuthor
	}

	likeCounts, err := e.postRepository.GetLikeCounts(postIDs)
	if err != nil {
		return nil, err
	}
	commentCounts, err := e.postRepository.GetCommentCounts(postIDs)
	if err != nil {
		return nil, err
	}
	liked, err := e.postRepository.GetLikedPostIDs(viewerID, postIDs)
	if err != nil {
		return nil, err
	}
	saved, err := e.postRepository.GetSavedPostIDs(viewerID, postIDs)
	if err != nil {
		return nil, err
	}

	result := make([]models.PublicPost, 0, len(postIDs))
	for _, id := range postIDs {
		post, ok := byID[id]
		if !ok {
			continue
		}
		author, ok := publicAuthors[post.UserID]
		if !ok {
			continue
		}
		result = append(result, e.toPublicPost(&post, author, likeCounts[id], commentCounts[id], liked[id], saved[id]))
	}
	return result, nil
}

func (e *postEnricher) buildPublicPost(viewerID uint, post *models.Post) (models.PublicPost, error) {
	posts, err := e.buildPublicPosts(viewerID, []uint{post.ID})
	if err != nil {
		return models.PublicPost{}, err
	}
	if len(posts) == 0 {
		return models.PublicPost{}, repositories.ErrNotFound
	}
	return posts[0], nil
}

func (e *postEnricher) toPublicPost(post *models.Post, author models.PublicUser, likeCount, commentCount int64, liked, saved bool) models.PublicPost {
	var place models.Place
	if post.Place != nil {
		place = *post.Place
	}
	return models.PublicPost{
		ID:           post.ID,
		Place:        place,
		Category:     post.Category,
		Content:      post.Content,
		ImageURL:     post.ImageURL(),
		CreatedAt:    post.CreatedAt,
		LikeCount:    likeCount,
		CommentCount: commentCount,
		User:         author,
		Liked:        liked,
		Saved:        saved,
	}
}

// getVisiblePost loads a non-deleted post the viewer is allowed to see.
// A block in either direction between the viewer and the author hides the
// post as 404.
func getVisiblePost(postRepo repositories.PostRepository, relationRepo repositories.RelationRepository, viewerID, postID uint) (*models.Post, error) {
	post, err := postRepo.GetPost(postID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Post not found")
	}
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to load post")
	}
	if post.UserID != viewerID {
		loader := userLoader{relationRepository: relationRepo}
		blocked, err := loader.blockedEitherWay(viewerID, post.UserID)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusInternalServerError, "Failed to load post")
		}
		if blocked {
			return nil, echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
	}
	return post, nil
}
