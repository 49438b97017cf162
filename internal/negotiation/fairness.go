package negotiation

import (
	"github.com/google/uuid"

	"gigbazaar/api/internal/models"
)

// FairnessScore rates how favourable the terms currently on the table are
// from the given viewer's perspective, on a 0..100 scale. 50 is neutral.
// The score is deterministic for identical input.
func FairnessScore(inq *models.Inquiry, viewerID uuid.UUID) (int, error) {
	role, err := RoleOf(inq, viewerID)
	if err != nil {
		return 0, err
	}
	return fairnessForRole(inq, role), nil
}

func fairnessForRole(inq *models.Inquiry, role Role) int {
	score := 50
	current := inq.CurrentTerms()

	// Price deviation from the market rate. Buyers are better off below
	// market, suppliers above it.
	if inq.Gig.MarketRatePerUnit > 0 {
		ratio := current.Price / inq.Gig.MarketRatePerUnit
		var priceAdj int
		switch {
		case ratio <= 0.8:
			priceAdj = 20
		case ratio <= 0.9:
			priceAdj = 10
		case ratio >= 1.2:
			priceAdj = -20
		case ratio >= 1.1:
			priceAdj = -10
		}
		if role == RoleSupplier {
			priceAdj = -priceAdj
		}
		score += priceAdj
	}

	// Volume above the minimum order sweetens the deal for both sides;
	// volume below it sours it.
	if inq.Gig.MinOrderQty > 0 {
		qty := float64(current.Quantity)
		min := float64(inq.Gig.MinOrderQty)
		switch {
		case qty >= 2*min:
			score += 15
		case qty >= 1.5*min:
			score += 10
		case qty < min:
			score -= 10
		}
	}

	// Drawn-out negotiations erode goodwill on both sides.
	if inq.Round > 5 {
		score -= 15
	} else if inq.Round > 3 {
		score -= 5
	}

	return clampScore(score)
}
