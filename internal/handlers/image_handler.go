package handlers

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/placemark-app/backend/internal/repositories"
)

const maxImageBytes = 2 << 20

var jpegMagic = []byte{0xFF, 0xD8, 0xFF}

// ObjectStore is the blob storage surface the handlers need. pkg/firebase's
// App satisfies it.
type ObjectStore interface {
	UploadImage(ctx context.Context, blobName string, data []byte) (string, error)
	MakeObjectPrivate(ctx context.Context, blobName string) error
	MakeObjectPublic(ctx context.Context, blobName string) error
	DeleteObject(ctx context.Context, blobName string) error
}

// ImageHandler handles image upload HTTP requests
type ImageHandler struct {
	imageRepository repositories.ImageRepository
	store           ObjectStore
}

// NewImageHandler creates a new ImageHandler
func NewImageHandler(imageRepo repositories.ImageRepository, store ObjectStore) *ImageHandler {
	return &ImageHandler{imageRepository: imageRepo, store: store}
}

// RegisterImageRoutes registers image upload routes
func (h *ImageHandler) RegisterImageRoutes(g *echo.Group) {
	g.POST("/images", h.UploadImage)
}

// UploadImage accepts a JPEG under the size cap, stores it, and returns the
// image record. The row is created before the blob upload and removed again
// if the upload fails.
func (h *ImageHandler) UploadImage(c echo.Context) error {
	user := getCurrentUser(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing file")
	}
	if fileHeader.Size > maxImageBytes {
		return echo.NewHTTPError(http.StatusBadRequest, "Image too large")
	}
	if fileHeader.Header.Get(echo.HeaderContentType) != "image/jpeg" {
		return echo.NewHTTPError(http.StatusBadRequest, "Only JPEG images are supported")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Could not read file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Could not read file")
	}
	if len(data) > maxImageBytes {
		return echo.NewHTTPError(http.StatusBadRequest, "Image too large")
	}
	if !bytes.HasPrefix(data, jpegMagic) {
		return echo.NewHTTPError(http.StatusBadRequest, "Only JPEG images are supported")
	}

	image, err := h.imageRepository.CreateImage(user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to store image")
	}

	blobName := "images/" + uuid.NewString() + ".jpg"
	url, err := h.store.UploadImage(c.Request().Context(), blobName, data)
	if err != nil {
		if deleteErr := h.imageRepository.DeleteImage(image.ID); deleteErr != nil {
			log.Printf("Failed to clean up image %d after upload failure: %v", image.ID, deleteErr)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to store image")
	}

	if err := h.imageRepository.SetBlob(image.ID, blobName, url); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to store image")
	}

	return c.JSON(http.StatusCreated, echo.Map{"id": image.ID, "url": url})
}
