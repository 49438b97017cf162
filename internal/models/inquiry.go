package models

import (
	"time"

	"github.com/google/uuid"
)

// InquiryStatus is the lifecycle state of a bulk-purchase negotiation.
type InquiryStatus string

const (
	InquiryStatusPending     InquiryStatus = "pending"
	InquiryStatusNegotiating InquiryStatus = "negotiating"
	InquiryStatusAccepted    InquiryStatus = "accepted"
	InquiryStatusRejected    InquiryStatus = "rejected"
	InquiryStatusExpired     InquiryStatus = "expired"
)

// IsTerminal reports whether no further counter-offers are possible.
// Expired inquiries are not terminal: a new counter-offer revives them.
func (s InquiryStatus) IsTerminal() bool {
	return s == InquiryStatusAccepted || s == InquiryStatusRejected
}

// NegotiationAction identifies the kind of a negotiation history event.
type NegotiationAction string

const (
	ActionInitialInquiry NegotiationAction = "initial_inquiry"
	ActionCounterOffer   NegotiationAction = "counter_offer"
	ActionAcceptedOffer  NegotiationAction = "accepted_offer"
	ActionRejectedOffer  NegotiationAction = "rejected_offer"
	ActionExpiredOffer   NegotiationAction = "expired_offer"
)

// Offer is a quantity/price pair proposed by one of the parties.
// Keeping both values in a single optional struct makes a half-set
// counter-offer unrepresentable.
type Offer struct {
	Quantity int     `bson:"quantity" json:"quantity"`
	Price    float64 `bson:"price" json:"price"` // Unit price
}

// Total returns the total value of the offer.
func (o Offer) Total() float64 {
	return float64(o.Quantity) * o.Price
}

// NegotiationEvent is a single entry in an inquiry's audit trail.
// Events are append-only; existing entries are never mutated.
type NegotiationEvent struct {
	Timestamp time.Time         `bson:"timestamp" json:"timestamp"`
	ActorID   uuid.UUID         `bson:"actor_id" json:"actor_id"`
	Action    NegotiationAction `bson:"action" json:"action"`
	Offer     *Offer            `bson:"offer,omitempty" json:"offer,omitempty"` // Terms at the time of the event, where relevant
	Message   string            `bson:"message,omitempty" json:"message,omitempty"`
}

// NegotiationStats summarises a party's negotiation track record.
type NegotiationStats struct {
	Total     int     `bson:"total" json:"total"`
	Accepted  int     `bson:"accepted" json:"accepted"`
	Rejected  int     `bson:"rejected" json:"rejected"`
	AvgRounds float64 `bson:"avg_rounds" json:"avg_rounds"`
}

// Party is a denormalized snapshot of one side of the negotiation.
type Party struct {
	ID         uuid.UUID        `bson:"id" json:"id"`
	Username   string           `bson:"username" json:"username"`
	Reputation float64          `bson:"reputation" json:"reputation"`
	Stats      NegotiationStats `bson:"stats" json:"stats"`
}

// GigTerms is the catalog data an inquiry negotiates against, snapshotted
// at creation time. Read-only for the lifetime of the inquiry.
type GigTerms struct {
	BulkPrice         float64 `bson:"bulk_price" json:"bulk_price"`                     // Listed per-unit bulk price
	MarketRatePerUnit float64 `bson:"market_rate_per_unit" json:"market_rate_per_unit"` // Reference market price
	ProductionCost    float64 `bson:"production_cost" json:"production_cost"`           // Supplier's per-unit cost
	MinOrderQty       int     `bson:"min_order_qty" json:"min_order_qty"`
	LeadTimeDays      int     `bson:"lead_time_days" json:"lead_time_days"`
}

// Inquiry is a single bulk-purchase negotiation thread between a buyer
// and a supplier over a gig.
type Inquiry struct {
	Base              `bson:",inline"`
	GigID             uuid.UUID          `bson:"gig_id" json:"gig_id"`
	GigTitle          string             `bson:"gig_title" json:"gig_title"` // Denormalized for display and emails
	Gig               GigTerms           `bson:"gig" json:"gig"`
	Buyer             Party              `bson:"buyer" json:"buyer"`
	Supplier          Party              `bson:"supplier" json:"supplier"`
	RequestedQuantity int                `bson:"requested_quantity" json:"requested_quantity"`
	RequestedPrice    float64            `bson:"requested_price" json:"requested_price"` // Buyer's opening per-unit ask
	Proposed          *Offer             `bson:"proposed,omitempty" json:"proposed,omitempty"`
	Status            InquiryStatus      `bson:"status" json:"status"`
	Round             int                `bson:"round" json:"round"`
	Version           int64              `bson:"version" json:"version"` // Bumped on every state-changing write
	ExpiresAt         time.Time          `bson:"expires_at" json:"expires_at"`
	History           []NegotiationEvent `bson:"history" json:"history"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updated_at"`
}

// CurrentTerms returns the terms currently on the table: the latest
// counter-offer if one exists, otherwise the buyer's opening request.
func (inq *Inquiry) CurrentTerms() Offer {
	if inq.Proposed != nil {
		return *inq.Proposed
	}
	return Offer{Quantity: inq.RequestedQuantity, Price: inq.RequestedPrice}
}

// PartyOf returns the party snapshot for the given user ID, or nil if the
// user is not a participant.
func (inq *Inquiry) PartyOf(userID uuid.UUID) *Party {
	switch userID {
	case inq.Buyer.ID:
		return &inq.Buyer
	case inq.Supplier.ID:
		return &inq.Supplier
	}
	return nil
}

// Counterparty returns the other side of the negotiation relative to the
// given user ID, or nil if the user is not a participant.
func (inq *Inquiry) Counterparty(userID uuid.UUID) *Party {
	switch userID {
	case inq.Buyer.ID:
		return &inq.Supplier
	case inq.Supplier.ID:
		return &inq.Buyer
	}
	return nil
}

// IsBuyer reports whether the given user is the inquiry's buyer.
func (inq *Inquiry) IsBuyer(userID uuid.UUID) bool {
	return inq.Buyer.ID == userID
}

// PastDue reports whether the inquiry's offer window has lapsed at the
// given instant while the negotiation is still open.
func (inq *Inquiry) PastDue(now time.Time) bool {
	return !inq.Status.IsTerminal() && inq.Status != InquiryStatusExpired && now.After(inq.ExpiresAt)
}
