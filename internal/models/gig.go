package models

import (
	"time"

	"github.com/google/uuid"
)

// Gig represents a catalog listing offered by a supplier for bulk purchase.
type Gig struct {
	Base              `bson:",inline"`
	SupplierID        uuid.UUID `bson:"supplier_id" json:"supplier_id"`
	Title             string    `bson:"title" json:"title"`
	Description       string    `bson:"description" json:"description"`
	BulkPrice         float64   `bson:"bulk_price" json:"bulk_price"` // Per-unit price at bulk volume
	MarketRatePerUnit float64   `bson:"market_rate_per_unit" json:"market_rate_per_unit"`
	ProductionCost    float64   `bson:"production_cost" json:"production_cost"`
	MinOrderQty       int       `bson:"min_order_qty" json:"min_order_qty"`
	LeadTimeDays      int       `bson:"lead_time_days" json:"lead_time_days"`
	Active            bool      `bson:"active" json:"active"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updated_at"`
}

// Terms extracts the negotiation-relevant snapshot of the gig.
func (g *Gig) Terms() GigTerms {
	return GigTerms{
		BulkPrice:         g.BulkPrice,
		MarketRatePerUnit: g.MarketRatePerUnit,
		ProductionCost:    g.ProductionCost,
		MinOrderQty:       g.MinOrderQty,
		LeadTimeDays:      g.LeadTimeDays,
	}
}
