package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gigbazaar/api/internal/config"
	"gigbazaar/api/internal/db"
	"gigbazaar/api/internal/models"
	"gigbazaar/api/internal/negotiation"
)

// IInquiryService defines the interface for negotiation inquiry operations.
type IInquiryService interface {
	CreateInquiry(ctx context.Context, buyerID, gigID uuid.UUID, quantity int, price float64, message string) (*models.Inquiry, error)
	FindInquiryByID(ctx context.Context, id uuid.UUID) (*models.Inquiry, error)
	FindInquiriesByUser(ctx context.Context, userID uuid.UUID, limit int64) ([]models.Inquiry, error)
	SubmitCounterOffer(ctx context.Context, id uuid.UUID, offer negotiation.CounterOffer) (*models.Inquiry, error)
	AcceptInquiry(ctx context.Context, id, actorID uuid.UUID) (*models.Inquiry, error)
	RejectInquiry(ctx context.Context, id, actorID uuid.UUID) (*models.Inquiry, error)
	DeleteInquiry(ctx context.Context, id, actorID uuid.UUID) error
	ExpireInquiry(ctx context.Context, id uuid.UUID) (bool, error)
	ExpireDueInquiries(ctx context.Context) (int64, error)
	OfferTTL(ctx context.Context) time.Duration
}

const inquiryCollection = "inquiry"

// Service-level preconditions distinct from the engine's transition errors.
var (
	ErrGigInactive     = errors.New("gig is not accepting inquiries")
	ErrOwnGig          = errors.New("cannot open an inquiry on your own gig")
	ErrPriceTooLow     = errors.New("price is below the platform minimum")
	ErrVersionConflict = errors.New("inquiry was modified concurrently, please retry")
)

type inquiryService struct {
	db            *mongo.Database
	cfg           *config.Config
	configService IConfigService
	userService   IUserService
	gigService    IGigService
}

// NewInquiryService creates a new InquiryService.
func NewInquiryService(database *mongo.Database, cfg *config.Config, configService IConfigService, userService IUserService, gigService IGigService) IInquiryService {
	return &inquiryService{
		db:            database,
		cfg:           cfg,
		configService: configService,
		userService:   userService,
		gigService:    gigService,
	}
}

// OfferTTL returns how long a freshly made (counter-)offer stays open,
// preferring the DB-backed runtime config over the env default.
func (s *inquiryService) OfferTTL(ctx context.Context) time.Duration {
	hours := s.configService.GetInt(ctx, "OFFER_TTL_HOURS", int(s.cfg.OfferTTL.Hours()))
	if hours <= 0 {
		return s.cfg.OfferTTL
	}
	return time.Duration(hours) * time.Hour
}

func (s *inquiryService) maxRound(ctx context.Context) int {
	return s.configService.GetInt(ctx, "MAX_NEGOTIATION_ROUND", s.cfg.MaxNegotiationRound)
}

func (s *inquiryService) minOfferPrice(ctx context.Context) float64 {
	return s.configService.GetFloat64(ctx, "MIN_OFFER_PRICE", s.cfg.MinOfferPrice)
}

// CreateInquiry opens a negotiation: the buyer asks for quantity units at
// price per unit. Gig terms and both party profiles are snapshotted onto
// the inquiry so later catalog or profile edits cannot shift the goalposts
// mid-negotiation.
func (s *inquiryService) CreateInquiry(ctx context.Context, buyerID, gigID uuid.UUID, quantity int, price float64, message string) (*models.Inquiry, error) {
	gig, err := s.gigService.FindGigByID(ctx, gigID)
	if err != nil {
		return nil, err
	}
	if !gig.Active {
		return nil, ErrGigInactive
	}
	if gig.SupplierID == buyerID {
		return nil, ErrOwnGig
	}
	if quantity < gig.MinOrderQty {
		return nil, negotiation.ErrQuantityBelowMinimum
	}
	if price <= 0 {
		return nil, negotiation.ErrNonPositivePrice
	}
	if price < s.minOfferPrice(ctx) {
		return nil, ErrPriceTooLow
	}

	buyer, err := s.userService.FindUserByID(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load buyer %s: %w", buyerID, err)
	}
	supplier, err := s.userService.FindUserByID(ctx, gig.SupplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to load supplier %s: %w", gig.SupplierID, err)
	}

	now := time.Now().UTC()
	opening := models.Offer{Quantity: quantity, Price: price}
	inquiry := &models.Inquiry{
		Base:              models.NewBase(),
		GigID:             gig.ID,
		GigTitle:          gig.Title,
		Gig:               gig.Terms(),
		Buyer:             buyer.Snapshot(),
		Supplier:          supplier.Snapshot(),
		RequestedQuantity: quantity,
		RequestedPrice:    price,
		Status:            models.InquiryStatusPending,
		Round:             0,
		Version:           0,
		ExpiresAt:         now.Add(s.OfferTTL(ctx)),
		History: []models.NegotiationEvent{{
			Timestamp: now,
			ActorID:   buyerID,
			Action:    models.ActionInitialInquiry,
			Offer:     &opening,
			Message:   message,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	collection := s.db.Collection(inquiryCollection)
	if _, err := db.InsertOne(ctx, collection, inquiry); err != nil {
		return nil, fmt.Errorf("failed to insert inquiry: %w", err)
	}
	return inquiry, nil
}

// FindInquiryByID loads an inquiry. A past-due inquiry is flipped to
// expired on read so callers never observe a stale open state, even if the
// background sweep has not caught it yet.
func (s *inquiryService) FindInquiryByID(ctx context.Context, id uuid.UUID) (*models.Inquiry, error) {
	collection := s.db.Collection(inquiryCollection)
	var inquiry models.Inquiry
	if err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&inquiry); err != nil {
		return nil, err
	}

	if inquiry.PastDue(time.Now().UTC()) {
		if _, err := s.ExpireInquiry(ctx, id); err != nil {
			log.Printf("Warning: Failed to lazily expire inquiry %s: %v", id, err)
		} else {
			if err := collection.FindOne(ctx, bson.M{"_id": id}).Decode(&inquiry); err != nil {
				return nil, err
			}
		}
	}
	return &inquiry, nil
}

func (s *inquiryService) FindInquiriesByUser(ctx context.Context, userID uuid.UUID, limit int64) ([]models.Inquiry, error) {
	collection := s.db.Collection(inquiryCollection)
	filter := bson.M{"$or": []bson.M{
		{"buyer.id": userID},
		{"supplier.id": userID},
	}}
	opts := options.Find().SetSort(bson.M{"updated_at": -1})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query inquiries for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var inquiries []models.Inquiry
	if err := cursor.All(ctx, &inquiries); err != nil {
		return nil, fmt.Errorf("failed to decode inquiries: %w", err)
	}
	return inquiries, nil
}

// SubmitCounterOffer applies a counter-offer through the negotiation engine
// and persists it under an optimistic version guard.
func (s *inquiryService) SubmitCounterOffer(ctx context.Context, id uuid.UUID, offer negotiation.CounterOffer) (*models.Inquiry, error) {
	if offer.Price > 0 && offer.Price < s.minOfferPrice(ctx) {
		return nil, ErrPriceTooLow
	}
	offer.MaxRound = s.maxRound(ctx)
	ttl := s.OfferTTL(ctx)

	return s.applyGuarded(ctx, id, func(inq *models.Inquiry) error {
		return negotiation.ApplyCounterOffer(inq, offer, ttl, time.Now().UTC())
	})
}

// AcceptInquiry settles the negotiation at the terms currently on the
// table and folds the outcome into both parties' stats.
func (s *inquiryService) AcceptInquiry(ctx context.Context, id, actorID uuid.UUID) (*models.Inquiry, error) {
	inquiry, err := s.applyGuarded(ctx, id, func(inq *models.Inquiry) error {
		return negotiation.Accept(inq, actorID, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}
	s.recordOutcome(ctx, inquiry, true)
	return inquiry, nil
}

// RejectInquiry declines the negotiation and folds the outcome into both
// parties' stats.
func (s *inquiryService) RejectInquiry(ctx context.Context, id, actorID uuid.UUID) (*models.Inquiry, error) {
	inquiry, err := s.applyGuarded(ctx, id, func(inq *models.Inquiry) error {
		return negotiation.Reject(inq, actorID, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}
	s.recordOutcome(ctx, inquiry, false)
	return inquiry, nil
}

// recordOutcome updates both parties' negotiation stats. Failures are
// logged, not returned: the settlement itself already committed.
func (s *inquiryService) recordOutcome(ctx context.Context, inquiry *models.Inquiry, accepted bool) {
	for _, partyID := range []uuid.UUID{inquiry.Buyer.ID, inquiry.Supplier.ID} {
		if err := s.userService.RecordNegotiationOutcome(ctx, partyID, accepted, inquiry.Round); err != nil {
			log.Printf("Warning: Failed to record negotiation outcome for user %s on inquiry %s: %v", partyID, inquiry.ID, err)
		}
	}
}

// DeleteInquiry removes an inquiry and its history. Buyer-initiated only.
func (s *inquiryService) DeleteInquiry(ctx context.Context, id, actorID uuid.UUID) error {
	inquiry, err := s.FindInquiryByID(ctx, id)
	if err != nil {
		return err
	}
	if err := negotiation.AuthorizeDelete(inquiry, actorID); err != nil {
		return err
	}

	collection := s.db.Collection(inquiryCollection)
	result, err := collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete inquiry %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	log.Printf("Deleted inquiry %s on request of buyer %s", id, actorID)
	return nil
}

// ExpireInquiry flips a single past-due inquiry to expired. The filter
// doubles as the idempotency guard: a settled, already expired or still
// open inquiry matches nothing and the call reports false.
func (s *inquiryService) ExpireInquiry(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := s.db.Collection(inquiryCollection).UpdateOne(ctx,
		expiryFilter(bson.M{"_id": id}, time.Now().UTC()),
		expiryUpdate(time.Now().UTC()))
	if err != nil {
		return false, fmt.Errorf("failed to expire inquiry %s: %w", id, err)
	}
	return result.ModifiedCount > 0, nil
}

// ExpireDueInquiries expires every past-due open inquiry in one sweep and
// returns how many were flipped.
func (s *inquiryService) ExpireDueInquiries(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	result, err := s.db.Collection(inquiryCollection).UpdateMany(ctx,
		expiryFilter(bson.M{}, now),
		expiryUpdate(now))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired inquiries: %w", err)
	}
	if result.ModifiedCount > 0 {
		log.Printf("Expired %d past-due inquiries", result.ModifiedCount)
	}
	return result.ModifiedCount, nil
}

func expiryFilter(base bson.M, now time.Time) bson.M {
	base["status"] = bson.M{"$in": []models.InquiryStatus{models.InquiryStatusPending, models.InquiryStatusNegotiating}}
	base["expires_at"] = bson.M{"$lt": now}
	return base
}

func expiryUpdate(now time.Time) bson.M {
	return bson.M{
		"$set": bson.M{
			"status":     models.InquiryStatusExpired,
			"updated_at": now,
		},
		"$inc": bson.M{"version": 1},
		"$push": bson.M{"history": models.NegotiationEvent{
			Timestamp: now,
			ActorID:   uuid.Nil,
			Action:    models.ActionExpiredOffer,
		}},
	}
}

// applyGuarded runs an engine transition against a freshly loaded copy and
// persists the result with a filter on the loaded version and status. A
// write that matches nothing while the document still exists means another
// actor moved the inquiry first.
func (s *inquiryService) applyGuarded(ctx context.Context, id uuid.UUID, transition func(*models.Inquiry) error) (*models.Inquiry, error) {
	inquiry, err := s.FindInquiryByID(ctx, id)
	if err != nil {
		return nil, err
	}
	loadedVersion := inquiry.Version
	loadedStatus := inquiry.Status

	if err := transition(inquiry); err != nil {
		return nil, err
	}

	// Engine transitions always append exactly one event.
	newEvent := inquiry.History[len(inquiry.History)-1]
	set := bson.M{
		"status":     inquiry.Status,
		"round":      inquiry.Round,
		"version":    inquiry.Version,
		"expires_at": inquiry.ExpiresAt,
		"updated_at": inquiry.UpdatedAt,
	}
	if inquiry.Proposed != nil {
		set["proposed"] = inquiry.Proposed
	}

	collection := s.db.Collection(inquiryCollection)
	res := collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "version": loadedVersion, "status": loadedStatus},
		bson.M{"$set": set, "$push": bson.M{"history": newEvent}},
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Distinguish a lost race from a vanished document.
			count, countErr := collection.CountDocuments(ctx, bson.M{"_id": id})
			if countErr == nil && count > 0 {
				return nil, ErrVersionConflict
			}
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to persist inquiry transition: %w", err)
	}

	var updated models.Inquiry
	if err := res.Decode(&updated); err != nil {
		return nil, fmt.Errorf("failed to decode updated inquiry: %w", err)
	}
	return &updated, nil
}
