package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gigbazaar/api/internal/db"
	"gigbazaar/api/internal/models"
)

// IGigService defines the interface for catalog listing operations.
type IGigService interface {
	CreateGig(ctx context.Context, gig *models.Gig) (*models.Gig, error)
	FindGigByID(ctx context.Context, id uuid.UUID) (*models.Gig, error)
	FindGigsBySupplier(ctx context.Context, supplierID uuid.UUID, limit int64) ([]models.Gig, error)
	DeactivateGig(ctx context.Context, id uuid.UUID, supplierID uuid.UUID) error
}

const gigCollection = "gig"

type gigService struct {
	db *mongo.Database
}

// NewGigService creates a new GigService.
func NewGigService(database *mongo.Database) IGigService {
	return &gigService{db: database}
}

func (s *gigService) CreateGig(ctx context.Context, gig *models.Gig) (*models.Gig, error) {
	if gig.Title == "" {
		return nil, fmt.Errorf("gig title is required")
	}
	if gig.BulkPrice <= 0 {
		return nil, fmt.Errorf("bulk price must be positive")
	}
	if gig.MinOrderQty <= 0 {
		return nil, fmt.Errorf("minimum order quantity must be positive")
	}

	now := time.Now().UTC()
	gig.Active = true
	gig.CreatedAt = now
	gig.UpdatedAt = now

	collection := s.db.Collection(gigCollection)
	if _, err := db.InsertOne(ctx, collection, gig); err != nil {
		return nil, fmt.Errorf("failed to insert gig: %w", err)
	}
	return gig, nil
}

func (s *gigService) FindGigByID(ctx context.Context, id uuid.UUID) (*models.Gig, error) {
	collection := s.db.Collection(gigCollection)
	var gig models.Gig
	err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&gig)
	if err != nil {
		return nil, err
	}
	return &gig, nil
}

func (s *gigService) FindGigsBySupplier(ctx context.Context, supplierID uuid.UUID, limit int64) ([]models.Gig, error) {
	collection := s.db.Collection(gigCollection)
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := collection.Find(ctx, bson.M{"supplier_id": supplierID, "active": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query gigs for supplier %s: %w", supplierID, err)
	}
	defer cursor.Close(ctx)

	var gigs []models.Gig
	if err := cursor.All(ctx, &gigs); err != nil {
		return nil, fmt.Errorf("failed to decode gigs: %w", err)
	}
	return gigs, nil
}

// DeactivateGig hides a listing from new inquiries. Existing inquiries keep
// their snapshotted terms and continue unaffected.
func (s *gigService) DeactivateGig(ctx context.Context, id uuid.UUID, supplierID uuid.UUID) error {
	collection := s.db.Collection(gigCollection)
	result, err := collection.UpdateOne(ctx,
		bson.M{"_id": id, "supplier_id": supplierID},
		bson.M{"$set": bson.M{"active": false, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to deactivate gig %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
