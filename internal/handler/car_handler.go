package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/openwheel/carmarket/internal/domain"
	"github.com/openwheel/carmarket/internal/middleware"
)

// CarHandler handles HTTP requests for car listing operations
type CarHandler struct {
	listings    domain.ListingService
	maxUploadMB int64
}

// NewCarHandler creates a new car handler
func NewCarHandler(listings domain.ListingService, maxUploadMB int64) *CarHandler {
	return &CarHandler{
		listings:    listings,
		maxUploadMB: maxUploadMB,
	}
}

// CreateCar handles POST /v1/cars
func (h *CarHandler) CreateCar(c *fiber.Ctx) error {
	ownerID := middleware.GetUserID(c)
	if ownerID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "user not authenticated",
		})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid multipart form: " + err.Error(),
		})
	}

	input := domain.AddCarInput{
		Title:       formValue(form, "title"),
		Description: formValue(form, "description"),
		CarType:     formValue(form, "car_type"),
		Company:     formValue(form, "company"),
		Dealer:      formValue(form, "dealer"),
		Tags:        form.Value["tags"],
	}

	images, err := h.readImages(form.File["images"])
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	input.Images = images

	car, err := h.listings.AddListing(c.UserContext(), input, ownerID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    car,
	})
}

// ListMyCars handles GET /v1/cars
func (h *CarHandler) ListMyCars(c *fiber.Ctx) error {
	ownerID := middleware.GetUserID(c)
	if ownerID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "user not authenticated",
		})
	}

	cars, err := h.listings.ListByOwner(c.UserContext(), ownerID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    cars,
	})
}

// SearchCars handles GET /v1/cars/search?keyword=
func (h *CarHandler) SearchCars(c *fiber.Ctx) error {
	keyword := c.Query("keyword")

	cars, err := h.listings.Search(c.UserContext(), keyword)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    cars,
	})
}

// GetCar handles GET /v1/cars/:id
func (h *CarHandler) GetCar(c *fiber.Ctx) error {
	car, err := h.listings.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    car,
	})
}

// UpdateCar handles PATCH /v1/cars/:id. Metadata fields arrive as multipart
// values or a JSON body; a non-empty "images" file set replaces the stored
// image batch.
func (h *CarHandler) UpdateCar(c *fiber.Ctx) error {
	ownerID := middleware.GetUserID(c)
	if ownerID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "user not authenticated",
		})
	}

	var input domain.UpdateCarInput
	if form, err := c.MultipartForm(); err == nil {
		input = domain.UpdateCarInput{
			Title:       formValuePtr(form, "title"),
			Description: formValuePtr(form, "description"),
			CarType:     formValuePtr(form, "car_type"),
			Company:     formValuePtr(form, "company"),
			Dealer:      formValuePtr(form, "dealer"),
		}
		if _, ok := form.Value["tags"]; ok {
			input.Tags = form.Value["tags"]
		}
		if files := form.File["images"]; len(files) > 0 {
			images, err := h.readImages(files)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"success": false,
					"error":   err.Error(),
				})
			}
			input.Images = images
		}
	} else {
		var body updateCarRequest
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "invalid request body: " + err.Error(),
			})
		}
		input = domain.UpdateCarInput{
			Title:       body.Title,
			Description: body.Description,
			CarType:     body.CarType,
			Company:     body.Company,
			Dealer:      body.Dealer,
			Tags:        body.Tags,
		}
	}

	car, err := h.listings.UpdateListing(c.UserContext(), c.Params("id"), input, ownerID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    car,
	})
}

// DeleteCar handles DELETE /v1/cars/:id
func (h *CarHandler) DeleteCar(c *fiber.Ctx) error {
	ownerID := middleware.GetUserID(c)
	if ownerID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "user not authenticated",
		})
	}

	if err := h.listings.DeleteListing(c.UserContext(), c.Params("id"), ownerID); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "car deleted successfully",
	})
}

type updateCarRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	CarType     *string  `json:"car_type"`
	Company     *string  `json:"company"`
	Dealer      *string  `json:"dealer"`
	Tags        []string `json:"tags"`
}

// readImages loads the uploaded files into memory, enforcing size and MIME
// limits at the transport edge before the service sees them
func (h *CarHandler) readImages(files []*multipart.FileHeader) ([]domain.ImageUpload, error) {
	maxBytes := h.maxUploadMB * 1024 * 1024

	images := make([]domain.ImageUpload, 0, len(files))
	for _, file := range files {
		if file.Size > maxBytes {
			return nil, fmt.Errorf("file %s exceeds maximum of %dMB", file.Filename, h.maxUploadMB)
		}
		if !isValidImageType(file) {
			return nil, fmt.Errorf("file %s has invalid type, only JPEG, PNG and WEBP images are allowed", file.Filename)
		}

		f, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open uploaded file %s", file.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read uploaded file %s", file.Filename)
		}

		images = append(images, domain.ImageUpload{
			Filename:    file.Filename,
			ContentType: file.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return images, nil
}

// isValidImageType checks the uploaded file by content type, falling back to
// the file extension when the header is missing
func isValidImageType(file *multipart.FileHeader) bool {
	switch file.Header.Get("Content-Type") {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	}

	switch strings.ToLower(filepath.Ext(file.Filename)) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	}
	return false
}

func formValue(form *multipart.Form, key string) string {
	if v, ok := form.Value[key]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

func formValuePtr(form *multipart.Form, key string) *string {
	if v, ok := form.Value[key]; ok && len(v) > 0 {
		return &v[0]
	}
	return nil
}

// errorResponse maps domain errors onto HTTP status codes. ErrForbidden is
// served as 404 on purpose: a dealer must not be able to distinguish
// "someone else's car" from "no such car".
func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrMissingFields),
		errors.Is(err, domain.ErrNoImages),
		errors.Is(err, domain.ErrTooManyImages):
		status = fiber.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrForbidden):
		status = fiber.StatusNotFound
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}
