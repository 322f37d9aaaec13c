package tests

import (
	"context"
	"fmt"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openwheel/carmarket/internal/config"
	"github.com/openwheel/carmarket/internal/domain"
	"github.com/openwheel/carmarket/internal/server"
)

const testJWTSecret = "e2e-test-secret"

// SetupTestDB spins up a fresh MongoDB container and returns the database
// connection along with a cleanup function.
func SetupTestDB(t *testing.T) (*mongo.Database, func()) {
	ctx := context.Background()

	mongodbContainer, err := mongodb.Run(ctx, "mongo:latest")
	if err != nil {
		t.Fatalf("failed to start container: %s", err)
	}

	endpoint, err := mongodbContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get connection string: %s", err)
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(endpoint))
	if err != nil {
		t.Fatalf("failed to connect to mongo: %v", err)
	}

	return mongoClient.Database("test_db"), func() {
		if err := mongoClient.Disconnect(ctx); err != nil {
			log.Printf("failed to disconnect mongo: %v", err)
		}
		if err := mongodbContainer.Terminate(ctx); err != nil {
			log.Printf("failed to terminate container: %v", err)
		}
	}
}

// FakeImageStore implements domain.ImageRepository in memory so the flow
// tests do not need a running S3 endpoint
type FakeImageStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Deleted []string
}

func NewFakeImageStore() *FakeImageStore {
	return &FakeImageStore{Objects: make(map[string][]byte)}
}

func (f *FakeImageStore) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	url := "https://images.test/" + ulid.Make().String()
	f.Objects[url] = data
	return url, nil
}

func (f *FakeImageStore) Delete(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Objects, url)
	f.Deleted = append(f.Deleted, url)
	return nil
}

// SetupTestApp wires the whole application against containerized Mongo,
// miniredis and the fake image store
func SetupTestApp(t *testing.T) (*fiber.App, *FakeImageStore, func()) {
	db, dbCleanup := SetupTestDB(t)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	images := NewFakeImageStore()

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "0", MaxUploadSizeMB: 5},
		JWT:    config.JWTConfig{Secret: testJWTSecret},
	}

	app := server.NewApp(server.AppDependencies{
		Config:      cfg,
		MongoDB:     db,
		RedisClient: redisClient,
		Images:      images,
	})

	return app, images, func() {
		redisClient.Close()
		dbCleanup()
	}
}

// MintToken issues a signed JWT for the given identity, mirroring what the
// identity service produces in production
func MintToken(t *testing.T, userID string, roles ...string) string {
	t.Helper()
	claims := domain.CarmarketClaims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return fmt.Sprintf("Bearer %s", token)
}
