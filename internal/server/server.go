package server

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/openwheel/carmarket/internal/config"
	"github.com/openwheel/carmarket/internal/domain"
	"github.com/openwheel/carmarket/internal/handler"
	"github.com/openwheel/carmarket/internal/middleware"
	"github.com/openwheel/carmarket/internal/repository"
	"github.com/openwheel/carmarket/internal/service"
	"github.com/openwheel/carmarket/internal/telemetry"
)

const idempotencyTTL = 10 * time.Minute

// AppDependencies holds the dependencies required to start the application.
// Images is injectable so tests can swap the S3 store for a fake.
type AppDependencies struct {
	Config      *config.Config
	MongoDB     *mongo.Database
	RedisClient *redis.Client
	Images      domain.ImageRepository
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *fiber.App {
	// Repositories
	carRepo := repository.NewMongoCarRepository(deps.MongoDB)

	var carCache domain.CarCache
	if deps.RedisClient != nil {
		carCache = repository.NewRedisCacheRepository(deps.RedisClient)
	}

	// Services
	listingService := service.NewListingService(carRepo, deps.Images, carCache)

	// Handlers
	carHandler := handler.NewCarHandler(listingService, deps.Config.Server.MaxUploadSizeMB)

	app := fiber.New(fiber.Config{
		AppName:      "Carmarket Listing API",
		BodyLimit:    int(deps.Config.Server.MaxUploadSizeMB*1024*1024)*domain.MaxImages + 1024*1024,
		ErrorHandler: customErrorHandler,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(telemetry.FiberMiddleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Correlation-ID",
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
	}))

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "carmarket-listing",
		})
	})

	// API v1 routes; every route requires an authenticated caller
	v1 := app.Group("/v1")

	cars := v1.Group("/cars")
	cars.Use(middleware.VerifyToken(deps.Config.JWT.Secret))

	// Reads are open to any authenticated user
	cars.Get("/search", carHandler.SearchCars)
	cars.Get("/:id", carHandler.GetCar)

	// Writes are restricted to dealers and admins
	dealerOnly := middleware.AuthorizeRole(domain.RoleDealer, domain.RoleAdmin)

	cars.Get("/", dealerOnly, carHandler.ListMyCars)

	if deps.RedisClient != nil {
		idempotent := middleware.Idempotency(deps.RedisClient, idempotencyTTL)
		cars.Post("/", dealerOnly, idempotent, carHandler.CreateCar)
		cars.Patch("/:id", dealerOnly, idempotent, carHandler.UpdateCar)
		cars.Delete("/:id", dealerOnly, idempotent, carHandler.DeleteCar)
	} else {
		cars.Post("/", dealerOnly, carHandler.CreateCar)
		cars.Patch("/:id", dealerOnly, carHandler.UpdateCar)
		cars.Delete("/:id", dealerOnly, carHandler.DeleteCar)
	}

	return app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	log.Printf("Error: %v", err)
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
