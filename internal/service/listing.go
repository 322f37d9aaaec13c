package service

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/openwheel/carmarket/internal/domain"
)

const (
	cacheCarDetailTTL = 15 * time.Minute
)

// ListingServiceImpl implements domain.ListingService
type ListingServiceImpl struct {
	repository domain.CarRepository
	images     domain.ImageRepository
	cache      domain.CarCache
}

// NewListingService creates a new listing service. The cache is optional and
// may be nil.
func NewListingService(
	repository domain.CarRepository,
	images domain.ImageRepository,
	cache domain.CarCache,
) *ListingServiceImpl {
	return &ListingServiceImpl{
		repository: repository,
		images:     images,
		cache:      cache,
	}
}

// AddListing validates the input, uploads the image batch and persists the
// new car. Validation runs in full before the first upload is issued. If any
// upload fails the whole operation fails and nothing is persisted; handles
// already uploaded by sibling goroutines are not cleaned up (there is no
// compensation step across the image store and the document store).
func (s *ListingServiceImpl) AddListing(ctx context.Context, input domain.AddCarInput, ownerID string) (*domain.Car, error) {
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Description) == "" {
		return nil, domain.ErrMissingFields
	}
	if len(input.Images) == 0 {
		return nil, domain.ErrNoImages
	}
	if len(input.Images) > domain.MaxImages {
		return nil, domain.ErrTooManyImages
	}

	urls, err := s.uploadImages(ctx, ownerID, input.Images)
	if err != nil {
		return nil, err
	}

	car := &domain.Car{
		Title:       input.Title,
		Description: input.Description,
		Tags:        input.Tags,
		CarType:     input.CarType,
		Company:     input.Company,
		Dealer:      input.Dealer,
		Images:      urls,
		CreatedBy:   ownerID,
	}
	if car.Tags == nil {
		car.Tags = []string{}
	}

	if err := s.repository.Create(ctx, car); err != nil {
		return nil, fmt.Errorf("failed to save car: %w", err)
	}
	return car, nil
}

// ListByOwner returns every car created by the given owner
func (s *ListingServiceImpl) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Car, error) {
	return s.repository.FindByOwner(ctx, ownerID)
}

// Search matches keyword case-insensitively against title, description and
// tags across all owners. An empty keyword matches every car.
func (s *ListingServiceImpl) Search(ctx context.Context, keyword string) ([]*domain.Car, error) {
	return s.repository.Search(ctx, keyword)
}

// GetByID returns a single car regardless of owner
func (s *ListingServiceImpl) GetByID(ctx context.Context, id string) (*domain.Car, error) {
	if s.cache != nil {
		cached, err := s.cache.GetCar(ctx, id)
		if err != nil {
			log.Printf("Warning: car cache lookup failed: %v", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	car, err := s.repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetCar(ctx, car, cacheCarDetailTTL); err != nil {
			log.Printf("Warning: failed to cache car %s: %v", id, err)
		}
	}
	return car, nil
}

// UpdateListing applies a partial update to a car owned by ownerID. A lookup
// miss and a mismatched owner both surface as ErrForbidden. When the input
// carries a replacement image batch it is uploaded first and the resulting
// URLs take the place of the stored set; the previous handles are left in the
// image store untouched.
func (s *ListingServiceImpl) UpdateListing(ctx context.Context, id string, input domain.UpdateCarInput, ownerID string) (*domain.Car, error) {
	if _, err := s.repository.FindByIDAndOwner(ctx, id, ownerID); err != nil {
		if err == domain.ErrNotFound {
			return nil, domain.ErrForbidden
		}
		return nil, err
	}

	update := domain.CarUpdate{
		Title:       input.Title,
		Description: input.Description,
		CarType:     input.CarType,
		Company:     input.Company,
		Dealer:      input.Dealer,
		Tags:        input.Tags,
	}

	if input.Images != nil {
		if len(input.Images) == 0 {
			return nil, domain.ErrNoImages
		}
		if len(input.Images) > domain.MaxImages {
			return nil, domain.ErrTooManyImages
		}
		urls, err := s.uploadImages(ctx, ownerID, input.Images)
		if err != nil {
			return nil, err
		}
		update.Images = urls
	}

	car, err := s.repository.UpdateByID(ctx, id, update)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateCar(ctx, id); err != nil {
			log.Printf("Warning: failed to invalidate car cache %s: %v", id, err)
		}
	}
	return car, nil
}

// DeleteListing removes a car owned by ownerID together with its stored
// images. Image deletions run concurrently; the first failure aborts the
// operation before the document is removed, so the caller must not assume
// the car is gone when an error is returned.
func (s *ListingServiceImpl) DeleteListing(ctx context.Context, id, ownerID string) error {
	car, err := s.repository.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		if err == domain.ErrNotFound {
			return domain.ErrForbidden
		}
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, url := range car.Images {
		g.Go(func() error {
			if err := s.images.Delete(gCtx, url); err != nil {
				return fmt.Errorf("failed to delete image %s: %w", url, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.repository.DeleteByID(ctx, id); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateCar(ctx, id); err != nil {
			log.Printf("Warning: failed to invalidate car cache %s: %v", id, err)
		}
	}
	return nil
}

// uploadImages pushes the whole batch to the image store concurrently and
// returns the URLs in input order
func (s *ListingServiceImpl) uploadImages(ctx context.Context, ownerID string, images []domain.ImageUpload) ([]string, error) {
	urls := make([]string, len(images))

	g, gCtx := errgroup.WithContext(ctx)
	for i, img := range images {
		g.Go(func() error {
			url, err := s.images.Upload(gCtx, img.Data, objectKey(ownerID, img.Filename), img.ContentType)
			if err != nil {
				return fmt.Errorf("failed to upload image %s: %w", img.Filename, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

// objectKey builds a collision-free storage key per owner, keeping the
// original file extension
func objectKey(ownerID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("cars/%s/%s%s", ownerID, ulid.Make().String(), ext)
}
