package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/placemark-app/backend/internal/models"
	"github.com/placemark-app/backend/internal/repositories"
)

const (
	suggestedUsersLimit = 25
	searchUsersLimit    = 25
)

// PhoneLookup resolves a Firebase UID to its verified phone number.
type PhoneLookup interface {
	GetPhoneNumber(ctx context.Context, uid string) (string, error)
}

// UserHandler handles account and profile HTTP requests
type UserHandler struct {
	userRepository     repositories.UserRepository
	relationRepository repositories.RelationRepository
	postRepository     repositories.PostRepository
	phoneLookup        PhoneLookup
	loader             userLoader
	enricher           postEnricher
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, relationRepo repositories.RelationRepository, postRepo repositories.PostRepository, phoneLookup PhoneLookup) *UserHandler {
	return &UserHandler{
		userRepository:     userRepo,
		relationRepository: relationRepo,
		postRepository:     postRepo,
		phoneLookup:        phoneLookup,
		loader:             userLoader{userRepository: userRepo, relationRepository: relationRepo},
		enricher:           postEnricher{postRepository: postRepo, userRepository: userRepo},
	}
}

// RegisterOnboardingRoutes registers routes that only require a verified
// Firebase token, not an existing account
func (h *UserHandler) RegisterOnboardingRoutes(g *echo.Group) {
	g.POST("/users", h.CreateUser)
}

// RegisterUserRoutes registers account-level routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/me", h.GetMe)
	g.PATCH("/me", h.UpdateProfile)
	g.DELETE("/me", h.DeleteMe)
	g.GET("/me/preferences", h.GetPreferences)
	g.PATCH("/me/preferences", h.UpdatePreferences)
	g.GET("/me/suggested", h.GetSuggestedUsers)
	g.POST("/me/contacts", h.SearchByContacts)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/:username", h.GetUser)
	g.GET("/users/:username/posts", h.GetUserPosts)
}

// CreateUser finishes onboarding for a verified Firebase account
func (h *UserHandler) CreateUser(c echo.Context) error {
	uid, ok := c.Get("firebaseUID").(string)
	if !ok || uid == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
	}

	req := new(models.CreateUserRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	phone, err := h.phoneLookup.GetPhoneNumber(c.Request().Context(), uid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to look up account")
	}
	if phone == "" {
		return echo.NewHTTPError(http.StatusForbidden, "A verified phone number is required to sign up")
	}

	user, err := h.userRepository.CreateUser(uid, req.Username, req.FirstName, req.LastName, &phone)
	if errors.Is(err, repositories.ErrUserExists) {
		return echo.NewHTTPError(http.StatusBadRequest, "User already exists")
	}
	if errors.Is(err, repositories.ErrUsernameTaken) {
		return echo.NewHTTPError(http.StatusBadRequest, "Username taken")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create user")
	}

	public, err := toPublicUser(h.userRepository, user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load user")
	}
	return c.JSON(http.StatusCreated, public)
}

// GetMe returns the caller's own profile
func (h *UserHandler) GetMe(c echo.Context) error {
	user := getCurrentUser(c)
	public, err := toPublicUser(h.userRepository, user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load user")
	}
	return c.JSON(http.StatusOK, public)
}

// UpdateProfile edits the caller's profile fields
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	user := getCurrentUser(c)

	req := new(models.UpdateProfileRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	username := user.Username
	if req.Username != "" {
		username = req.Username
	}
	firstName := user.FirstName
	if req.FirstName != "" {
		firstName = req.FirstName
	}
	lastName := user.LastName
	if req.LastName != "" {
		lastName = req.LastName
	}
	pictureID := user.ProfilePictureID
	if req.ProfilePictureID != nil {
		pictureID = req.ProfilePictureID
	}

	updated, err := h.userRepository.UpdateProfile(user.ID, username, firstName, lastName, pictureID)
	if errors.Is(err, repositories.ErrUsernameTaken) {
		return echo.NewHTTPError(http.StatusBadRequest, "Username taken")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update profile")
	}

	public, err := toPublicUser(h.userRepository, updated)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load user")
	}
	return c.JSON(http.StatusOK, public)
}

// DeleteMe soft-deletes the caller's account
func (h *UserHandler) DeleteMe(c echo.Context) error {
	user := getCurrentUser(c)
	if err := h.userRepository.SoftDeleteUser(user.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete account")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// GetPreferences returns the caller's notification and discoverability
// preferences
func (h *UserHandler) GetPreferences(c echo.Context) error {
	user := getCurrentUser(c)
	prefs, err := h.userRepository.GetPreferences(user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load preferences")
	}
	return c.JSON(http.StatusOK, prefs)
}

// UpdatePreferences replaces the caller's preferences
func (h *UserHandler) UpdatePreferences(c echo.Context) error {
	user := getCurrentUser(c)

	req := new(models.UpdatePrefsRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	prefs, err := h.userRepository.UpdatePreferences(user.ID, *req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update preferences")
	}
	return c.JSON(http.StatusOK, prefs)
}

// GetSuggestedUsers returns featured accounts plus accounts followed by
// people the caller follows
func (h *UserHandler) GetSuggestedUsers(c echo.Context) error {
	user := getCurrentUser(c)

	userIDs, err := h.userRepository.GetSuggestedUsers(user.ID, suggestedUsersLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load suggestions")
	}

	users, err := h.buildPublicUsers(userIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load suggestions")
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

// SearchByContacts finds accounts matching the given phone numbers. Accounts
// that opted out of phone discovery are never returned.
func (h *UserHandler) SearchByContacts(c echo.Context) error {
	type contactsRequest struct {
		PhoneNumbers []string `json:"phone_numbers" validate:"required,max=5000"`
	}
	req := new(contactsRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	userIDs, err := h.userRepository.GetUsersByPhoneNumber(req.PhoneNumbers, maxPageLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to search contacts")
	}

	users, err := h.buildPublicUsers(userIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to search contacts")
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

// SearchUsers finds accounts whose username or full name starts with the
// given keyword
func (h *UserHandler) SearchUsers(c echo.Context) error {
	keyword := c.QueryParam("q")
	if keyword == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing search query")
	}

	userIDs, err := h.userRepository.SearchUsers(keyword, searchUsersLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to search users")
	}

	users, err := h.buildPublicUsers(userIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to search users")
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

// GetUser returns another user's public profile
func (h *UserHandler) GetUser(c echo.Context) error {
	viewer := getCurrentUser(c)
	user, err := h.loader.getUserForViewer(viewer.ID, c.Param("username"))
	if err != nil {
		return err
	}
	public, err := toPublicUser(h.userRepository, user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load user")
	}
	return c.JSON(http.StatusOK, public)
}

// GetUserPosts returns a user's posts, newest first
func (h *UserHandler) GetUserPosts(c echo.Context) error {
	viewer := getCurrentUser(c)
	user, err := h.loader.getUserForViewer(viewer.ID, c.Param("username"))
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

	postIDs, err := h.postRepository.GetPostIDsByUser(user.ID, cursor, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load posts")
	}
	posts, err := h.enricher.buildPublicPosts(viewer.ID, postIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load posts")
	}
	return c.JSON(http.StatusOK, models.PaginatedPosts{
		Posts:  posts,
		Cursor: repositories.NextCursor(postIDs, limit),
	})
}

func (h *UserHandler) buildPublicUsers(userIDs []uint) ([]models.PublicUser, error) {
	users, err := h.userRepository.GetUsers(userIDs)
	if err != nil {
		return nil, err
	}
	result := make([]models.PublicUser, 0, len(userIDs))
	for _, id := range userIDs {
		user, ok := users[id]
		if !ok {
			continue
		}
		public, err := toPublicUser(h.userRepository, &user)
		if err != nil {
			log.Printf("Failed to load counts for user %d: %v", id, err)
			continue
		}
		result = append(result, public)
	}
	return result, nil
}
