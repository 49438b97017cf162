package email

import (
	"fmt"
	"strings"

	"gigbazaar/api/internal/models"
)

// Notification is a negotiation event rendered for the counterparty's inbox.
type Notification struct {
	To      string
	Subject string
	Body    string
}

// BuildNotification renders the email for a negotiation event on the given
// inquiry, addressed to the party that did NOT act.
func BuildNotification(inq *models.Inquiry, action models.NegotiationAction, recipientEmail string, appName string) Notification {
	terms := inq.CurrentTerms()
	var subject, lede string

	switch action {
	case models.ActionInitialInquiry:
		subject = fmt.Sprintf("New bulk inquiry on %q", inq.GigTitle)
		lede = fmt.Sprintf("%s asked for %d units at %.2f per unit.", inq.Buyer.Username, inq.RequestedQuantity, inq.RequestedPrice)
	case models.ActionCounterOffer:
		subject = fmt.Sprintf("Counter-offer on %q (round %d)", inq.GigTitle, inq.Round)
		lede = fmt.Sprintf("The latest proposal is %d units at %.2f per unit (%.2f total).", terms.Quantity, terms.Price, terms.Total())
	case models.ActionAcceptedOffer:
		subject = fmt.Sprintf("Deal closed on %q", inq.GigTitle)
		lede = fmt.Sprintf("The offer was accepted: %d units at %.2f per unit (%.2f total).", terms.Quantity, terms.Price, terms.Total())
	case models.ActionRejectedOffer:
		subject = fmt.Sprintf("Inquiry declined on %q", inq.GigTitle)
		lede = "The negotiation was declined. No order will be placed."
	case models.ActionExpiredOffer:
		subject = fmt.Sprintf("Offer expired on %q", inq.GigTitle)
		lede = "The open offer lapsed without a response. A new counter-offer reopens the negotiation."
	default:
		subject = fmt.Sprintf("Update on %q", inq.GigTitle)
		lede = "There is activity on your negotiation."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", lede)
	fmt.Fprintf(&b, "Gig: %s\n", inq.GigTitle)
	fmt.Fprintf(&b, "Buyer: %s\n", inq.Buyer.Username)
	fmt.Fprintf(&b, "Supplier: %s\n", inq.Supplier.Username)
	fmt.Fprintf(&b, "Status: %s (round %d)\n", inq.Status, inq.Round)
	if !inq.Status.IsTerminal() {
		fmt.Fprintf(&b, "Offer open until: %s\n", inq.ExpiresAt.Format("2006-01-02 15:04 MST"))
	}
	fmt.Fprintf(&b, "\n%s\n", appName)

	return Notification{
		To:      recipientEmail,
		Subject: subject,
		Body:    b.String(),
	}
}

// RawMessage assembles the RFC 5322 message for the notification.
func (n Notification) RawMessage(from string) []byte {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s",
		from, n.To, n.Subject, n.Body)
	return []byte(msg)
}
