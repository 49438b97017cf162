package negotiation

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"gigbazaar/api/internal/models"
)

// Validation and precondition errors surfaced by lifecycle transitions.
// Handlers map these onto HTTP status codes; none of them implies the
// inquiry was modified.
var (
	ErrSettled               = errors.New("inquiry is already accepted or rejected")
	ErrNotOpen               = errors.New("inquiry is not open for settlement")
	ErrQuantityBelowMinimum  = errors.New("quantity is below the gig's minimum order quantity")
	ErrNonPositivePrice      = errors.New("price must be greater than zero")
	ErrBelowCostConfirmation = errors.New("price below production cost requires explicit confirmation")
	ErrRoundLimitReached     = errors.New("negotiation round limit reached")
	ErrBuyerOnly             = errors.New("only the buyer may perform this action")
)

// CounterOffer carries a revised quantity/price proposal from one party.
type CounterOffer struct {
	ActorID  uuid.UUID
	Quantity int
	Price    float64
	Message  string
	// ConfirmBelowCost must be set when a supplier knowingly proposes a
	// price under their own production cost.
	ConfirmBelowCost bool
	// MaxRound caps how many counter-offers may be exchanged; zero means
	// unlimited.
	MaxRound int
}

// ApplyCounterOffer validates and applies a counter-offer to the inquiry,
// mutating it in place. On success the status becomes negotiating, the
// round and version counters advance, the offer window is extended by ttl
// and a history event is appended. An expired inquiry is revived by the
// same path. On error the inquiry is left untouched.
func ApplyCounterOffer(inq *models.Inquiry, offer CounterOffer, ttl time.Duration, now time.Time) error {
	role, err := RoleOf(inq, offer.ActorID)
	if err != nil {
		return err
	}
	if inq.Status.IsTerminal() {
		return ErrSettled
	}
	if offer.Quantity < inq.Gig.MinOrderQty {
		return ErrQuantityBelowMinimum
	}
	if offer.Price <= 0 {
		return ErrNonPositivePrice
	}
	if role == RoleSupplier && offer.Price < inq.Gig.ProductionCost && !offer.ConfirmBelowCost {
		return ErrBelowCostConfirmation
	}
	if offer.MaxRound > 0 && inq.Round >= offer.MaxRound {
		return ErrRoundLimitReached
	}

	proposed := models.Offer{Quantity: offer.Quantity, Price: offer.Price}
	inq.Proposed = &proposed
	inq.Status = models.InquiryStatusNegotiating
	inq.Round++
	inq.Version++
	inq.ExpiresAt = now.Add(ttl)
	inq.UpdatedAt = now
	inq.History = append(inq.History, models.NegotiationEvent{
		Timestamp: now,
		ActorID:   offer.ActorID,
		Action:    models.ActionCounterOffer,
		Offer:     &proposed,
		Message:   offer.Message,
	})
	return nil
}

// Accept settles the inquiry at the terms currently on the table.
// Only reachable from pending or negotiating.
func Accept(inq *models.Inquiry, actorID uuid.UUID, now time.Time) error {
	return settle(inq, actorID, now, models.InquiryStatusAccepted, models.ActionAcceptedOffer)
}

// Reject declines the inquiry. Only reachable from pending or negotiating.
func Reject(inq *models.Inquiry, actorID uuid.UUID, now time.Time) error {
	return settle(inq, actorID, now, models.InquiryStatusRejected, models.ActionRejectedOffer)
}

func settle(inq *models.Inquiry, actorID uuid.UUID, now time.Time, status models.InquiryStatus, action models.NegotiationAction) error {
	if _, err := RoleOf(inq, actorID); err != nil {
		return err
	}
	if inq.Status != models.InquiryStatusPending && inq.Status != models.InquiryStatusNegotiating {
		if inq.Status.IsTerminal() {
			return ErrSettled
		}
		return ErrNotOpen
	}

	terms := inq.CurrentTerms()
	inq.Status = status
	inq.Version++
	inq.UpdatedAt = now
	inq.History = append(inq.History, models.NegotiationEvent{
		Timestamp: now,
		ActorID:   actorID,
		Action:    action,
		Offer:     &terms,
	})
	return nil
}

// Expire transitions a past-due, non-terminal inquiry to expired. It is
// idempotent: repeated calls on an already expired or settled inquiry, or
// on one whose window is still open, change nothing and return false.
func Expire(inq *models.Inquiry, now time.Time) bool {
	if !inq.PastDue(now) {
		return false
	}
	inq.Status = models.InquiryStatusExpired
	inq.Version++
	inq.UpdatedAt = now
	inq.History = append(inq.History, models.NegotiationEvent{
		Timestamp: now,
		ActorID:   uuid.Nil, // System transition, no acting party
		Action:    models.ActionExpiredOffer,
	})
	return true
}

// AuthorizeDelete checks that the given user may delete the inquiry.
// Deletion is buyer-initiated regardless of status.
func AuthorizeDelete(inq *models.Inquiry, userID uuid.UUID) error {
	if _, err := RoleOf(inq, userID); err != nil {
		return err
	}
	if !inq.IsBuyer(userID) {
		return ErrBuyerOnly
	}
	return nil
}
