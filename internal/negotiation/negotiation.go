// Package negotiation contains the pure deal-analysis and lifecycle rules
// for bulk-purchase inquiries. Nothing in this package touches the network
// or the database; the services layer persists what these functions decide.
package negotiation

import (
	"errors"

	"github.com/google/uuid"

	"gigbazaar/api/internal/models"
)

// Role is the side of the negotiation a user is on for a given inquiry.
type Role string

const (
	RoleBuyer    Role = "buyer"
	RoleSupplier Role = "supplier"
)

// ErrNotParticipant is returned when a user is neither the buyer nor the
// supplier of the inquiry they are trying to act on.
var ErrNotParticipant = errors.New("user is not a party to this inquiry")

// RoleOf resolves which side of the inquiry the given user is on.
func RoleOf(inq *models.Inquiry, userID uuid.UUID) (Role, error) {
	switch userID {
	case inq.Buyer.ID:
		return RoleBuyer, nil
	case inq.Supplier.ID:
		return RoleSupplier, nil
	}
	return "", ErrNotParticipant
}
