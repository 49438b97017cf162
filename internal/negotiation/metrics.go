package negotiation

import (
	"strconv"

	"gigbazaar/api/internal/models"
)

// NotApplicable is the value reported for percentage fields that cannot be
// computed because the opening request had a zero price or quantity.
const NotApplicable = "N/A"

// Metrics summarises how the deal currently on the table compares to the
// buyer's opening request. All percentage fields are fixed two-decimal
// strings. The deal rating deliberately uses the same formula for both
// parties; perspective-sensitive analysis belongs to FairnessScore.
type Metrics struct {
	PriceChangePct    string  `json:"price_change_pct"`
	QuantityChangePct string  `json:"quantity_change_pct"`
	TotalChangePct    string  `json:"total_change_pct"`
	DealRating        int     `json:"deal_rating"` // 0..100
	MarginalSavings   float64 `json:"marginal_savings"`
	IsProfitable      bool    `json:"is_profitable"`
	Valid             bool    `json:"valid"` // False when the opening terms cannot support percentages
}

// Calculate derives read-only analytics from an inquiry snapshot.
// The input is never mutated.
func Calculate(inq *models.Inquiry) Metrics {
	current := inq.CurrentTerms()

	m := Metrics{
		MarginalSavings: (inq.Gig.BulkPrice - current.Price) * float64(current.Quantity),
		IsProfitable:    current.Price > inq.Gig.ProductionCost,
		DealRating:      dealRating(inq, current),
	}

	// A zero opening price or quantity would make the percentage deltas
	// meaningless (division by zero), so report N/A instead.
	if inq.RequestedPrice <= 0 || inq.RequestedQuantity <= 0 {
		m.PriceChangePct = NotApplicable
		m.QuantityChangePct = NotApplicable
		m.TotalChangePct = NotApplicable
		return m
	}

	requestedTotal := float64(inq.RequestedQuantity) * inq.RequestedPrice
	m.PriceChangePct = formatPct(current.Price, inq.RequestedPrice)
	m.QuantityChangePct = formatPct(float64(current.Quantity), float64(inq.RequestedQuantity))
	m.TotalChangePct = formatPct(current.Total(), requestedTotal)
	m.Valid = true
	return m
}

// formatPct renders the relative change from base to current as a fixed
// two-decimal percentage string.
func formatPct(current, base float64) string {
	return strconv.FormatFloat((current-base)/base*100, 'f', 2, 64)
}

// dealRating scores the terms on the table against the gig's catalog data
// on a 0..100 scale. Neutral terms land at 50.
func dealRating(inq *models.Inquiry, current models.Offer) int {
	rating := 50

	// Price relative to the listed bulk price.
	if inq.Gig.BulkPrice > 0 {
		ratio := current.Price / inq.Gig.BulkPrice
		switch {
		case ratio <= 0.8:
			rating += 25
		case ratio <= 0.9:
			rating += 15
		case ratio <= 1.0:
			rating += 5
		case ratio <= 1.1:
			rating -= 10
		default:
			rating -= 20
		}
	}

	// Volume relative to the minimum order quantity.
	if inq.Gig.MinOrderQty > 0 {
		qty := float64(current.Quantity)
		min := float64(inq.Gig.MinOrderQty)
		switch {
		case qty >= 2*min:
			rating += 15
		case qty >= 1.5*min:
			rating += 10
		case qty < min:
			rating -= 15
		}
	}

	// A deal below production cost is unsustainable for the supplier.
	if current.Price > inq.Gig.ProductionCost {
		rating += 10
	} else {
		rating -= 10
	}

	return clampScore(rating)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
