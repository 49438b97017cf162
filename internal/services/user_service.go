package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"gigbazaar/api/internal/db"
	"gigbazaar/api/internal/models"
)

// IUserService defines the interface for user operations.
type IUserService interface {
	CreateUser(ctx context.Context, username, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	RecordNegotiationOutcome(ctx context.Context, userID uuid.UUID, accepted bool, rounds int) error
}

const userCollection = "user"

type userService struct {
	db *mongo.Database
}

// NewUserService creates a new UserService.
func NewUserService(database *mongo.Database) IUserService {
	return &userService{db: database}
}

func (s *userService) CreateUser(ctx context.Context, username, email string) (*models.User, error) {
	now := time.Now().UTC()
	user := &models.User{
		Base:      models.NewBase(),
		Username:  username,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}

	collection := s.db.Collection(userCollection)
	if _, err := db.InsertOne(ctx, collection, user); err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

func (s *userService) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	collection := s.db.Collection(userCollection)
	var user models.User
	err := collection.FindOne(ctx, bson.M{"_id": id, "deleted": bson.M{"$ne": true}}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *userService) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	collection := s.db.Collection(userCollection)
	var user models.User
	err := collection.FindOne(ctx, bson.M{"username": username, "deleted": bson.M{"$ne": true}}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// RecordNegotiationOutcome folds a settled negotiation into the user's
// running stats. The average round count is recomputed from the stored
// aggregate rather than re-reading every inquiry.
func (s *userService) RecordNegotiationOutcome(ctx context.Context, userID uuid.UUID, accepted bool, rounds int) error {
	user, err := s.FindUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user %s for stats update: %w", userID, err)
	}

	stats := user.Stats
	newTotal := stats.Total + 1
	stats.AvgRounds = (stats.AvgRounds*float64(stats.Total) + float64(rounds)) / float64(newTotal)
	stats.Total = newTotal
	if accepted {
		stats.Accepted++
	} else {
		stats.Rejected++
	}

	collection := s.db.Collection(userCollection)
	update := bson.M{"$set": bson.M{
		"stats":      stats,
		"updated_at": time.Now().UTC(),
	}}
	result, err := collection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to update stats for user %s: %w", userID, err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}

	log.Printf("Recorded negotiation outcome for user %s (accepted=%t, rounds=%d, total=%d)", userID, accepted, rounds, stats.Total)
	return nil
}
