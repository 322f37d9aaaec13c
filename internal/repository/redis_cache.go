package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openwheel/carmarket/internal/domain"
)

const (
	carDetailKeyPrefix = "car:detail:"
)

// RedisCacheRepository implements domain.CarCache using Redis
type RedisCacheRepository struct {
	client *redis.Client
}

// NewRedisCacheRepository creates a new Redis cache repository
func NewRedisCacheRepository(client *redis.Client) *RedisCacheRepository {
	return &RedisCacheRepository{
		client: client,
	}
}

// SetCar caches a car detail document with TTL
func (r *RedisCacheRepository) SetCar(ctx context.Context, car *domain.Car, ttl time.Duration) error {
	key := carDetailKeyPrefix + car.ID

	data, err := json.Marshal(car)
	if err != nil {
		return fmt.Errorf("failed to marshal car: %w", err)
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache car: %w", err)
	}
	return nil
}

// GetCar retrieves a cached car detail. A miss returns (nil, nil).
func (r *RedisCacheRepository) GetCar(ctx context.Context, id string) (*domain.Car, error) {
	key := carDetailKeyPrefix + id

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached car: %w", err)
	}

	var car domain.Car
	if err := json.Unmarshal(data, &car); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached car: %w", err)
	}
	return &car, nil
}

// InvalidateCar drops the cached detail after a mutation
func (r *RedisCacheRepository) InvalidateCar(ctx context.Context, id string) error {
	key := carDetailKeyPrefix + id

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached car: %w", err)
	}
	return nil
}
