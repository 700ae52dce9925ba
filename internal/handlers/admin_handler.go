package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/placemark-app/backend/internal/repositories"
)

// AdminHandler handles admin-only HTTP requests
type AdminHandler struct {
	userRepository repositories.UserRepository
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(userRepo repositories.UserRepository) *AdminHandler {
	return &AdminHandler{userRepository: userRepo}
}

// RegisterAdminRoutes registers admin routes
func (h *AdminHandler) RegisterAdminRoutes(g *echo.Group) {
	g.DELETE("/admin/users/:username", h.PurgeUser)
}

// PurgeUser permanently removes an account and everything attached to it.
// Works on soft-deleted accounts too.
func (h *AdminHandler) PurgeUser(c echo.Context) error {
	user, err := h.userRepository.GetAnyUserByUsername(c.Param("username"))
	if errors.Is(err, repositories.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load user")
	}

	if err := h.userRepository.HardDeleteUser(user.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to purge user")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
