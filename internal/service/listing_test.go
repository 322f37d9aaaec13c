package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openwheel/carmarket/internal/domain"
)

// fakeCarRepo is an in-memory domain.CarRepository
type fakeCarRepo struct {
	mu     sync.Mutex
	seq    int
	cars   map[string]*domain.Car
	failOn string // method name that should return an error
}

func newFakeCarRepo() *fakeCarRepo {
	return &fakeCarRepo{cars: map[string]*domain.Car{}}
}

func (f *fakeCarRepo) Create(ctx context.Context, car *domain.Car) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == "Create" {
		return errors.New("write failed")
	}
	f.seq++
	car.ID = fmt.Sprintf("car-%d", f.seq)
	car.CreatedAt = time.Now()
	car.UpdatedAt = car.CreatedAt
	clone := *car
	f.cars[car.ID] = &clone
	return nil
}

func (f *fakeCarRepo) FindByID(ctx context.Context, id string) (*domain.Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	car, ok := f.cars[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *car
	return &clone, nil
}

func (f *fakeCarRepo) FindByOwner(ctx context.Context, ownerID string) ([]*domain.Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*domain.Car{}
	for _, car := range f.cars {
		if car.CreatedBy == ownerID {
			clone := *car
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeCarRepo) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	car, ok := f.cars[id]
	if !ok || car.CreatedBy != ownerID {
		return nil, domain.ErrNotFound
	}
	clone := *car
	return &clone, nil
}

func (f *fakeCarRepo) UpdateByID(ctx context.Context, id string, update domain.CarUpdate) (*domain.Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	car, ok := f.cars[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if update.Title != nil {
		car.Title = *update.Title
	}
	if update.Description != nil {
		car.Description = *update.Description
	}
	if update.Tags != nil {
		car.Tags = update.Tags
	}
	if update.Images != nil {
		car.Images = update.Images
	}
	car.UpdatedAt = time.Now()
	clone := *car
	return &clone, nil
}

func (f *fakeCarRepo) DeleteByID(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.cars[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.cars, id)
	return nil
}

func (f *fakeCarRepo) Search(ctx context.Context, keyword string) ([]*domain.Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kw := strings.ToLower(keyword)
	out := []*domain.Car{}
	for _, car := range f.cars {
		if matchesKeyword(car, kw) {
			clone := *car
			out = append(out, &clone)
		}
	}
	return out, nil
}

func matchesKeyword(car *domain.Car, kw string) bool {
	if kw == "" {
		return true
	}
	if strings.Contains(strings.ToLower(car.Title), kw) ||
		strings.Contains(strings.ToLower(car.Description), kw) {
		return true
	}
	for _, tag := range car.Tags {
		if strings.Contains(strings.ToLower(tag), kw) {
			return true
		}
	}
	return false
}

// fakeImageRepo records uploads and deletes; failUploads/failDeletes trip
// errors on the matching filename substring
type fakeImageRepo struct {
	mu          sync.Mutex
	uploaded    []string
	deleted     []string
	failUploads string
	failDeletes bool
}

func (f *fakeImageRepo) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUploads != "" && strings.Contains(filename, f.failUploads) {
		return "", errors.New("upload rejected")
	}
	url := "https://img.test/" + filename
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeImageRepo) Delete(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeletes {
		return errors.New("delete rejected")
	}
	f.deleted = append(f.deleted, url)
	return nil
}

func rawImages(n int) []domain.ImageUpload {
	images := make([]domain.ImageUpload, n)
	for i := range images {
		images[i] = domain.ImageUpload{
			Filename:    fmt.Sprintf("photo-%d.jpg", i),
			ContentType: "image/jpeg",
			Data:        []byte{0xff, 0xd8},
		}
	}
	return images
}

func validInput(n int) domain.AddCarInput {
	return domain.AddCarInput{
		Title:       "2019 Honda Civic",
		Description: "One owner, clean history",
		Tags:        []string{"sedan", "honda"},
		CarType:     "sedan",
		Company:     "Honda",
		Dealer:      "Downtown Motors",
		Images:      rawImages(n),
	}
}

func TestAddListing(t *testing.T) {
	ctx := context.Background()

	t.Run("valid input persists car with uploaded handles", func(t *testing.T) {
		repo := newFakeCarRepo()
		images := &fakeImageRepo{}
		svc := NewListingService(repo, images, nil)

		car, err := svc.AddListing(ctx, validInput(3), "owner-a")
		require.NoError(t, err)
		assert.NotEmpty(t, car.ID)
		assert.Equal(t, "owner-a", car.CreatedBy)
		assert.Len(t, car.Images, 3)
		assert.Len(t, images.uploaded, 3)
		for _, url := range car.Images {
			assert.Contains(t, url, "https://img.test/cars/owner-a/")
		}
	})

	t.Run("ten images is the accepted maximum", func(t *testing.T) {
		svc := NewListingService(newFakeCarRepo(), &fakeImageRepo{}, nil)

		car, err := svc.AddListing(ctx, validInput(10), "owner-a")
		require.NoError(t, err)
		assert.Len(t, car.Images, 10)
	})

	t.Run("missing title fails before any upload", func(t *testing.T) {
		images := &fakeImageRepo{}
		svc := NewListingService(newFakeCarRepo(), images, nil)

		input := validInput(2)
		input.Title = "  "
		_, err := svc.AddListing(ctx, input, "owner-a")
		assert.ErrorIs(t, err, domain.ErrMissingFields)
		assert.Empty(t, images.uploaded)
	})

	t.Run("missing description fails", func(t *testing.T) {
		svc := NewListingService(newFakeCarRepo(), &fakeImageRepo{}, nil)

		input := validInput(2)
		input.Description = ""
		_, err := svc.AddListing(ctx, input, "owner-a")
		assert.ErrorIs(t, err, domain.ErrMissingFields)
	})

	t.Run("zero images fails", func(t *testing.T) {
		svc := NewListingService(newFakeCarRepo(), &fakeImageRepo{}, nil)

		input := validInput(0)
		_, err := svc.AddListing(ctx, input, "owner-a")
		assert.ErrorIs(t, err, domain.ErrNoImages)
	})

	t.Run("eleven images fails", func(t *testing.T) {
		svc := NewListingService(newFakeCarRepo(), &fakeImageRepo{}, nil)

		_, err := svc.AddListing(ctx, validInput(11), "owner-a")
		assert.ErrorIs(t, err, domain.ErrTooManyImages)
	})

	t.Run("upload failure aborts without persisting", func(t *testing.T) {
		repo := newFakeCarRepo()
		images := &fakeImageRepo{failUploads: ".jpg"}
		svc := NewListingService(repo, images, nil)

		_, err := svc.AddListing(ctx, validInput(3), "owner-a")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upload rejected")
		assert.Empty(t, repo.cars)
	})
}

func TestGetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trips a created car", func(t *testing.T) {
		repo := newFakeCarRepo()
		svc := NewListingService(repo, &fakeImageRepo{}, nil)

		created, err := svc.AddListing(ctx, validInput(2), "owner-a")
		require.NoError(t, err)

		got, err := svc.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Title, got.Title)
		assert.Equal(t, created.Description, got.Description)
		assert.Equal(t, created.Tags, got.Tags)
		assert.Len(t, got.Images, 2)
	})

	t.Run("unknown id returns not found", func(t *testing.T) {
		svc := NewListingService(newFakeCarRepo(), &fakeImageRepo{}, nil)

		_, err := svc.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestListByOwner(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCarRepo()
	svc := NewListingService(repo, &fakeImageRepo{}, nil)

	_, err := svc.AddListing(ctx, validInput(1), "owner-a")
	require.NoError(t, err)
	_, err = svc.AddListing(ctx, validInput(1), "owner-a")
	require.NoError(t, err)
	_, err = svc.AddListing(ctx, validInput(1), "owner-b")
	require.NoError(t, err)

	cars, err := svc.ListByOwner(ctx, "owner-a")
	require.NoError(t, err)
	assert.Len(t, cars, 2)
	for _, car := range cars {
		assert.Equal(t, "owner-a", car.CreatedBy)
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCarRepo()
	svc := NewListingService(repo, &fakeImageRepo{}, nil)

	sedan := validInput(1)
	_, err := svc.AddListing(ctx, sedan, "owner-a")
	require.NoError(t, err)

	truck := validInput(1)
	truck.Title = "2017 Ford F-150"
	truck.Description = "Crew cab pickup"
	truck.Tags = []string{"truck", "ford"}
	_, err = svc.AddListing(ctx, truck, "owner-b")
	require.NoError(t, err)

	t.Run("matches across owners case-insensitively", func(t *testing.T) {
		cars, err := svc.Search(ctx, "SEDAN")
		require.NoError(t, err)
		require.Len(t, cars, 1)
		assert.Equal(t, "owner-a", cars[0].CreatedBy)
	})

	t.Run("excludes non-matching cars", func(t *testing.T) {
		cars, err := svc.Search(ctx, "convertible")
		require.NoError(t, err)
		assert.Empty(t, cars)
	})

	t.Run("empty keyword matches everything", func(t *testing.T) {
		// The source treated an absent keyword as a match-all regex; the
		// contract here pins that behavior down.
		cars, err := svc.Search(ctx, "")
		require.NoError(t, err)
		assert.Len(t, cars, 2)
	})
}

func TestUpdateListing(t *testing.T) {
	ctx := context.Background()

	newTitle := "2019 Honda Civic EX"

	t.Run("owner can patch metadata", func(t *testing.T) {
		repo := newFakeCarRepo()
		svc := NewListingService(repo, &fakeImageRepo{}, nil)

		created, err := svc.AddListing(ctx, validInput(2), "owner-a")
		require.NoError(t, err)

		updated, err := svc.UpdateListing(ctx, created.ID, domain.UpdateCarInput{Title: &newTitle}, "owner-a")
		require.NoError(t, err)
		assert.Equal(t, newTitle, updated.Title)
		assert.Equal(t, created.Description, updated.Description)
		assert.Len(t, updated.Images, 2)

		got, err := svc.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, newTitle, got.Title)
	})

	t.Run("non-owner gets the same error as not found", func(t *testing.T) {
		repo := newFakeCarRepo()
		svc := NewListingService(repo, &fakeImageRepo{}, nil)

		created, err := svc.AddListing(ctx, validInput(2), "owner-a")
		require.NoError(t, err)

		_, err = svc.UpdateListing(ctx, created.ID, domain.UpdateCarInput{Title: &newTitle}, "owner-b")
		assert.ErrorIs(t, err, domain.ErrForbidden)

		_, err = svc.UpdateListing(ctx, "missing", domain.UpdateCarInput{Title: &newTitle}, "owner-a")
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("replacement images are uploaded and swapped in", func(t *testing.T) {
		repo := newFakeCarRepo()
		images := &fakeImageRepo{}
		svc := NewListingService(repo, images, nil)

		created, err := svc.AddListing(ctx, validInput(2), "owner-a")
		require.NoError(t, err)
		oldImages := created.Images

		updated, err := svc.UpdateListing(ctx, created.ID, domain.UpdateCarInput{Images: rawImages(3)}, "owner-a")
		require.NoError(t, err)
		assert.Len(t, updated.Images, 3)
		assert.NotEqual(t, oldImages, updated.Images)
		// Replaced handles stay in the image store; no cleanup on update
		assert.Empty(t, images.deleted)
	})

	t.Run("replacement batch is bounded like creation", func(t *testing.T) {
		repo := newFakeCarRepo()
		svc := NewListingService(repo, &fakeImageRepo{}, nil)

		created, err := svc.AddListing(ctx, validInput(1), "owner-a")
		require.NoError(t, err)

		_, err = svc.UpdateListing(ctx, created.ID, domain.UpdateCarInput{Images: rawImages(11)}, "owner-a")
		assert.ErrorIs(t, err, domain.ErrTooManyImages)

		_, err = svc.UpdateListing(ctx, created.ID, domain.UpdateCarInput{Images: []domain.ImageUpload{}}, "owner-a")
		assert.ErrorIs(t, err, domain.ErrNoImages)
	})
}

func TestDeleteListing(t *testing.T) {
	ctx := context.Background()

	t.Run("owner delete removes car and stored images", func(t *testing.T) {
		repo := newFakeCarRepo()
		images := &fakeImageRepo{}
		svc := NewListingService(repo, images, nil)

		created, err := svc.AddListing(ctx, validInput(2), "owner-a")
		require.NoError(t, err)

		require.NoError(t, svc.DeleteListing(ctx, created.ID, "owner-a"))

		_, err = svc.GetByID(ctx, created.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ElementsMatch(t, created.Images, images.deleted)
	})

	t.Run("non-owner delete is refused", func(t *testing.T) {
		repo := newFakeCarRepo()
		svc := NewListingService(repo, &fakeImageRepo{}, nil)

		created, err := svc.AddListing(ctx, validInput(1), "owner-a")
		require.NoError(t, err)

		err = svc.DeleteListing(ctx, created.ID, "owner-b")
		assert.ErrorIs(t, err, domain.ErrForbidden)

		_, err = svc.GetByID(ctx, created.ID)
		assert.NoError(t, err)
	})

	t.Run("image deletion failure keeps the document", func(t *testing.T) {
		repo := newFakeCarRepo()
		images := &fakeImageRepo{failDeletes: true}
		svc := NewListingService(repo, images, nil)

		created, err := svc.AddListing(ctx, validInput(2), "owner-a")
		require.NoError(t, err)

		err = svc.DeleteListing(ctx, created.ID, "owner-a")
		require.Error(t, err)

		// No compensation: the document survives a failed image sweep
		_, err = svc.GetByID(ctx, created.ID)
		assert.NoError(t, err)
	})
}
