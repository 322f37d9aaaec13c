package domain

import (
	"context"
	"time"
)

// MaxImages is the upper bound on image handles a car may carry.
const MaxImages = 10

// Car represents a single advertisement on the marketplace
type Car struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	Tags        []string  `bson:"tags" json:"tags"`
	CarType     string    `bson:"car_type" json:"car_type"`
	Company     string    `bson:"company" json:"company"`
	Dealer      string    `bson:"dealer" json:"dealer"`
	Images      []string  `bson:"images" json:"images"` // URLs returned by the image store
	CreatedBy   string    `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// CarUpdate is a partial patch applied to an existing car. Nil fields are
// left untouched; Images and Tags replace the stored sequence wholesale.
type CarUpdate struct {
	Title       *string
	Description *string
	CarType     *string
	Company     *string
	Dealer      *string
	Tags        []string
	Images      []string
}

// CarRepository defines operations for managing car documents
type CarRepository interface {
	Create(ctx context.Context, car *Car) error
	FindByID(ctx context.Context, id string) (*Car, error)
	FindByOwner(ctx context.Context, ownerID string) ([]*Car, error)
	FindByIDAndOwner(ctx context.Context, id, ownerID string) (*Car, error)
	UpdateByID(ctx context.Context, id string, update CarUpdate) (*Car, error)
	DeleteByID(ctx context.Context, id string) error

	// Search matches keyword case-insensitively against title, description
	// and tags. An empty keyword matches every car.
	Search(ctx context.Context, keyword string) ([]*Car, error)
}

// CarCache is a read-through cache for individual car lookups. A nil result
// with a nil error is a cache miss.
type CarCache interface {
	GetCar(ctx context.Context, id string) (*Car, error)
	SetCar(ctx context.Context, car *Car, ttl time.Duration) error
	InvalidateCar(ctx context.Context, id string) error
}
