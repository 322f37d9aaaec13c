package domain

import (
	"context"
)

// ImageRepository defines the interface for image storage operations
type ImageRepository interface {
	// Upload saves an image payload and returns its access URL
	Upload(ctx context.Context, data []byte, filename string, contentType string) (string, error)

	// Delete removes a previously uploaded image by its URL. Deleting an
	// already-deleted image is not an error.
	Delete(ctx context.Context, url string) error
}

// ImageUpload is a raw image payload accepted by AddListing/UpdateListing
// before it has been exchanged for a storage URL.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}
