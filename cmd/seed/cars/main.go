package main

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openwheel/carmarket/internal/config"
	"github.com/openwheel/carmarket/internal/domain"
	"github.com/openwheel/carmarket/internal/repository"
)

// Seeds a handful of demo listings for local development. Image URLs point at
// placeholder objects; run against a store that already has them or ignore
// the broken links.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		log.Fatalf("Failed to connect to Mongo: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDB.Database)
	repo := repository.NewMongoCarRepository(db)

	const demoDealer = "000000000000000000000001"
	imageBase := cfg.S3.Endpoint + "/" + cfg.S3.Bucket + "/seed/"

	cars := []*domain.Car{
		{
			Title:       "2019 Honda Civic EX",
			Description: "Single owner, full service history, minor wear on the rear bumper.",
			Tags:        []string{"sedan", "honda", "low-mileage"},
			CarType:     "sedan",
			Company:     "Honda",
			Dealer:      "Downtown Motors",
			Images:      []string{imageBase + "civic-front.jpg", imageBase + "civic-interior.jpg"},
			CreatedBy:   demoDealer,
		},
		{
			Title:       "2021 Toyota RAV4 Hybrid",
			Description: "AWD hybrid crossover, still under factory warranty.",
			Tags:        []string{"suv", "hybrid", "toyota"},
			CarType:     "suv",
			Company:     "Toyota",
			Dealer:      "Downtown Motors",
			Images:      []string{imageBase + "rav4-front.jpg"},
			CreatedBy:   demoDealer,
		},
		{
			Title:       "2017 Ford F-150 XLT",
			Description: "Crew cab pickup with towing package, new tires.",
			Tags:        []string{"truck", "ford", "towing"},
			CarType:     "truck",
			Company:     "Ford",
			Dealer:      "Downtown Motors",
			Images:      []string{imageBase + "f150-front.jpg", imageBase + "f150-bed.jpg"},
			CreatedBy:   demoDealer,
		},
	}

	for _, car := range cars {
		if err := repo.Create(ctx, car); err != nil {
			log.Fatalf("Failed to seed car %q: %v", car.Title, err)
		}
		log.Printf("Seeded %q as %s", car.Title, car.ID)
	}

	log.Printf("Done, %d cars seeded", len(cars))
}
