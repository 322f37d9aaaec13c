package domain

import "errors"

// Common errors
var (
	// ErrNotFound is returned when a car does not exist for a plain read.
	ErrNotFound = errors.New("car not found")

	// ErrForbidden is returned for mutating operations when the car does not
	// exist OR belongs to another owner. The two cases are deliberately
	// indistinguishable so callers cannot probe for other dealers' listings.
	ErrForbidden = errors.New("unauthorized or car not found")
)

// Validation errors for listing input
var (
	ErrMissingFields = errors.New("title and description are required")
	ErrNoImages      = errors.New("at least one image is required")
	ErrTooManyImages = errors.New("maximum of 10 images allowed")
)
