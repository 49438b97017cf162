package negotiation

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"gigbazaar/api/internal/models"
)

// Action is the suggested next move for the viewer.
type Action string

const (
	ActionAccept  Action = "accept"
	ActionCounter Action = "counter"
	ActionReject  Action = "reject"
)

// Recommendation maps a fairness score to a suggested next action. When the
// action is ActionCounter, SuggestedPrice holds a rounded per-unit price for
// the counter-offer.
type Recommendation struct {
	Action         Action `json:"action"`
	Reason         string `json:"reason"`
	Score          int    `json:"score"`
	SuggestedPrice *int   `json:"suggested_price,omitempty"`
}

// Recommend suggests the viewer's next move based on the fairness score of
// the terms currently on the table.
func Recommend(inq *models.Inquiry, viewerID uuid.UUID) (Recommendation, error) {
	role, err := RoleOf(inq, viewerID)
	if err != nil {
		return Recommendation{}, err
	}

	score := fairnessForRole(inq, role)
	current := inq.CurrentTerms()

	switch {
	case score >= 80:
		return Recommendation{
			Action: ActionAccept,
			Reason: fmt.Sprintf("Terms strongly favour you (fairness %d/100). Accepting locks them in.", score),
			Score:  score,
		}, nil
	case score >= 60:
		price := counterPrice(current.Price, role, 0.05)
		return Recommendation{
			Action:         ActionCounter,
			Reason:         fmt.Sprintf("Terms are reasonable (fairness %d/100) but a small counter could improve them.", score),
			Score:          score,
			SuggestedPrice: &price,
		}, nil
	case score >= 40:
		price := counterPrice(current.Price, role, 0.15)
		return Recommendation{
			Action:         ActionCounter,
			Reason:         fmt.Sprintf("Terms lean against you (fairness %d/100); counter firmly before settling.", score),
			Score:          score,
			SuggestedPrice: &price,
		}, nil
	default:
		return Recommendation{
			Action: ActionReject,
			Reason: fmt.Sprintf("Terms are unfavourable (fairness %d/100); rejecting is safer than continuing.", score),
			Score:  score,
		}, nil
	}
}

// counterPrice nudges the current price by the given fraction in the
// direction that benefits the viewer: buyers counter down, suppliers up.
func counterPrice(current float64, role Role, fraction float64) int {
	adjusted := current * (1 - fraction)
	if role == RoleSupplier {
		adjusted = current * (1 + fraction)
	}
	return int(math.Round(adjusted))
}
