package domain

import (
	"context"
)

// AddCarInput carries the fields accepted when creating a listing
type AddCarInput struct {
	Title       string
	Description string
	CarType     string
	Company     string
	Dealer      string
	Tags        []string
	Images      []ImageUpload
}

// UpdateCarInput carries the fields accepted when patching a listing.
// Nil pointer fields are not applied. A non-nil Images slice replaces the
// stored image set with freshly uploaded payloads.
type UpdateCarInput struct {
	Title       *string
	Description *string
	CarType     *string
	Company     *string
	Dealer      *string
	Tags        []string
	Images      []ImageUpload
}

// ListingService defines the car listing operations exposed to transports
type ListingService interface {
	AddListing(ctx context.Context, input AddCarInput, ownerID string) (*Car, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Car, error)
	Search(ctx context.Context, keyword string) ([]*Car, error)
	GetByID(ctx context.Context, id string) (*Car, error)
	UpdateListing(ctx context.Context, id string, input UpdateCarInput, ownerID string) (*Car, error)
	DeleteListing(ctx context.Context, id, ownerID string) error
}
