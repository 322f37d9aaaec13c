package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openwheel/carmarket/internal/domain"
)

// MongoCarRepository implements domain.CarRepository
type MongoCarRepository struct {
	collection *mongo.Collection
}

func NewMongoCarRepository(db *mongo.Database) *MongoCarRepository {
	coll := db.Collection("cars")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_by", Value: 1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})

	return &MongoCarRepository{
		collection: coll,
	}
}

func (r *MongoCarRepository) Create(ctx context.Context, car *domain.Car) error {
	now := time.Now()
	car.CreatedAt = now
	car.UpdatedAt = now
	objID := primitive.NewObjectID()
	car.ID = objID.Hex()

	doc := bson.M{
		"_id":         objID,
		"title":       car.Title,
		"description": car.Description,
		"tags":        car.Tags,
		"car_type":    car.CarType,
		"company":     car.Company,
		"dealer":      car.Dealer,
		"images":      car.Images,
		"created_by":  car.CreatedBy,
		"created_at":  car.CreatedAt,
		"updated_at":  car.UpdatedAt,
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create car: %w", err)
	}
	return nil
}

func (r *MongoCarRepository) FindByID(ctx context.Context, id string) (*domain.Car, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var raw bson.M
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get car: %w", err)
	}
	return mapBsonToCar(raw), nil
}

func (r *MongoCarRepository) FindByOwner(ctx context.Context, ownerID string) ([]*domain.Car, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"created_by": ownerID})
	if err != nil {
		return nil, fmt.Errorf("failed to find cars by owner: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeCars(ctx, cursor)
}

func (r *MongoCarRepository) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Car, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var raw bson.M
	filter := bson.M{"_id": objID, "created_by": ownerID}
	if err := r.collection.FindOne(ctx, filter).Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get car by owner: %w", err)
	}
	return mapBsonToCar(raw), nil
}

func (r *MongoCarRepository) UpdateByID(ctx context.Context, id string, update domain.CarUpdate) (*domain.Car, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	set := bson.M{"updated_at": time.Now()}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.CarType != nil {
		set["car_type"] = *update.CarType
	}
	if update.Company != nil {
		set["company"] = *update.Company
	}
	if update.Dealer != nil {
		set["dealer"] = *update.Dealer
	}
	if update.Tags != nil {
		set["tags"] = update.Tags
	}
	if update.Images != nil {
		set["images"] = update.Images
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var raw bson.M
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, bson.M{"$set": set}, opts).Decode(&raw)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update car: %w", err)
	}
	return mapBsonToCar(raw), nil
}

func (r *MongoCarRepository) DeleteByID(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("failed to delete car: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Search runs a case-insensitive regex match over title, description and
// tags. An empty keyword degenerates to a match-all pattern, which mirrors
// the original query shape rather than special-casing it.
func (r *MongoCarRepository) Search(ctx context.Context, keyword string) ([]*domain.Car, error) {
	regex := primitive.Regex{Pattern: keyword, Options: "i"}
	filter := bson.M{
		"$or": []bson.M{
			{"title": regex},
			{"description": regex},
			{"tags": regex},
		},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search cars: %w", err)
	}
	defer cursor.Close(ctx)

	return decodeCars(ctx, cursor)
}

func decodeCars(ctx context.Context, cursor *mongo.Cursor) ([]*domain.Car, error) {
	cars := []*domain.Car{}
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode car: %w", err)
		}
		cars = append(cars, mapBsonToCar(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cars: %w", err)
	}
	return cars, nil
}

func mapBsonToCar(raw bson.M) *domain.Car {
	car := &domain.Car{
		Tags:   []string{},
		Images: []string{},
	}

	if objID, ok := raw["_id"].(primitive.ObjectID); ok {
		car.ID = objID.Hex()
	}
	if v, ok := raw["title"].(string); ok {
		car.Title = v
	}
	if v, ok := raw["description"].(string); ok {
		car.Description = v
	}
	if v, ok := raw["car_type"].(string); ok {
		car.CarType = v
	}
	if v, ok := raw["company"].(string); ok {
		car.Company = v
	}
	if v, ok := raw["dealer"].(string); ok {
		car.Dealer = v
	}
	if v, ok := raw["created_by"].(string); ok {
		car.CreatedBy = v
	}
	if v, ok := raw["tags"].(primitive.A); ok {
		for _, t := range v {
			if s, ok := t.(string); ok {
				car.Tags = append(car.Tags, s)
			}
		}
	}
	if v, ok := raw["images"].(primitive.A); ok {
		for _, img := range v {
			if s, ok := img.(string); ok {
				car.Images = append(car.Images, s)
			}
		}
	}
	if v, ok := raw["created_at"].(primitive.DateTime); ok {
		car.CreatedAt = v.Time()
	}
	if v, ok := raw["updated_at"].(primitive.DateTime); ok {
		car.UpdatedAt = v.Time()
	}
	return car
}
