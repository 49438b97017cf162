package negotiation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"gigbazaar/api/internal/models"
)

const offerTTL = 48 * time.Hour

func TestApplyCounterOffer_AdvancesRoundAndStatus(t *testing.T) {
	inq := testInquiry()
	now := time.Now().UTC()

	err := ApplyCounterOffer(inq, CounterOffer{
		ActorID:  inq.Supplier.ID,
		Quantity: 45,
		Price:    110,
		Message:  "Can do 110 at that volume",
	}, offerTTL, now)

	assert.NoError(t, err)
	assert.Equal(t, models.InquiryStatusNegotiating, inq.Status)
	assert.Equal(t, 1, inq.Round)
	assert.Equal(t, int64(1), inq.Version)
	if assert.NotNil(t, inq.Proposed) {
		assert.Equal(t, 45, inq.Proposed.Quantity)
		assert.Equal(t, 110.0, inq.Proposed.Price)
	}
	assert.Equal(t, now.Add(offerTTL), inq.ExpiresAt)
	if assert.Len(t, inq.History, 1) {
		assert.Equal(t, models.ActionCounterOffer, inq.History[0].Action)
		assert.Equal(t, inq.Supplier.ID, inq.History[0].ActorID)
	}
}

func TestApplyCounterOffer_RoundStrictlyIncreases(t *testing.T) {
	inq := testInquiry()
	now := time.Now().UTC()

	for i := 1; i <= 4; i++ {
		actor := inq.Buyer.ID
		if i%2 == 1 {
			actor = inq.Supplier.ID
		}
		err := ApplyCounterOffer(inq, CounterOffer{ActorID: actor, Quantity: 40 + i, Price: 100 + float64(i)}, offerTTL, now)
		assert.NoError(t, err)
		assert.Equal(t, i, inq.Round)
	}
}

func TestApplyCounterOffer_ValidationLeavesStateIntact(t *testing.T) {
	now := time.Now().UTC()

	cases := []struct {
		name  string
		offer CounterOffer
		want  error
	}{
		{"below minimum order", CounterOffer{Quantity: 5, Price: 100}, ErrQuantityBelowMinimum},
		{"zero price", CounterOffer{Quantity: 30, Price: 0}, ErrNonPositivePrice},
		{"negative price", CounterOffer{Quantity: 30, Price: -10}, ErrNonPositivePrice},
	}
	for _, tc := range cases {
		inq := testInquiry()
		tc.offer.ActorID = inq.Buyer.ID
		err := ApplyCounterOffer(inq, tc.offer, offerTTL, now)
		assert.ErrorIs(t, err, tc.want, tc.name)
		assert.Equal(t, models.InquiryStatusPending, inq.Status, tc.name)
		assert.Equal(t, 0, inq.Round, tc.name)
		assert.Nil(t, inq.Proposed, tc.name)
		assert.Empty(t, inq.History, tc.name)
	}
}

func TestApplyCounterOffer_SupplierBelowCostNeedsConfirmation(t *testing.T) {
	inq := testInquiry() // Production cost 70
	now := time.Now().UTC()

	offer := CounterOffer{ActorID: inq.Supplier.ID, Quantity: 30, Price: 65}
	err := ApplyCounterOffer(inq, offer, offerTTL, now)
	assert.ErrorIs(t, err, ErrBelowCostConfirmation)
	assert.Equal(t, 0, inq.Round)

	offer.ConfirmBelowCost = true
	err = ApplyCounterOffer(inq, offer, offerTTL, now)
	assert.NoError(t, err)
	assert.Equal(t, 1, inq.Round)
}

func TestApplyCounterOffer_BuyerBelowCostNeedsNoConfirmation(t *testing.T) {
	inq := testInquiry()
	now := time.Now().UTC()

	err := ApplyCounterOffer(inq, CounterOffer{ActorID: inq.Buyer.ID, Quantity: 30, Price: 65}, offerTTL, now)
	assert.NoError(t, err)
}

func TestApplyCounterOffer_TerminalStatesAreFinal(t *testing.T) {
	now := time.Now().UTC()
	for _, status := range []models.InquiryStatus{models.InquiryStatusAccepted, models.InquiryStatusRejected} {
		inq := testInquiry()
		inq.Status = status
		err := ApplyCounterOffer(inq, CounterOffer{ActorID: inq.Buyer.ID, Quantity: 30, Price: 100}, offerTTL, now)
		assert.ErrorIs(t, err, ErrSettled)
	}
}

func TestApplyCounterOffer_RevivesExpiredInquiry(t *testing.T) {
	inq := testInquiry()
	inq.Status = models.InquiryStatusExpired
	now := time.Now().UTC()

	err := ApplyCounterOffer(inq, CounterOffer{ActorID: inq.Buyer.ID, Quantity: 30, Price: 95}, offerTTL, now)
	assert.NoError(t, err)
	assert.Equal(t, models.InquiryStatusNegotiating, inq.Status)
	assert.True(t, inq.ExpiresAt.After(now))
}

func TestApplyCounterOffer_RoundLimit(t *testing.T) {
	inq := testInquiry()
	inq.Round = 10
	now := time.Now().UTC()

	err := ApplyCounterOffer(inq, CounterOffer{ActorID: inq.Buyer.ID, Quantity: 30, Price: 95, MaxRound: 10}, offerTTL, now)
	assert.ErrorIs(t, err, ErrRoundLimitReached)
}

func TestAccept_FromPendingAndNegotiating(t *testing.T) {
	now := time.Now().UTC()
	for _, status := range []models.InquiryStatus{models.InquiryStatusPending, models.InquiryStatusNegotiating} {
		inq := testInquiry()
		inq.Status = status
		err := Accept(inq, inq.Supplier.ID, now)
		assert.NoError(t, err)
		assert.Equal(t, models.InquiryStatusAccepted, inq.Status)
		if assert.Len(t, inq.History, 1) {
			assert.Equal(t, models.ActionAcceptedOffer, inq.History[0].Action)
			// History records the terms in effect at settlement.
			if assert.NotNil(t, inq.History[0].Offer) {
				assert.Equal(t, inq.CurrentTerms(), *inq.History[0].Offer)
			}
		}
	}
}

func TestAcceptReject_UnreachableFromSettledOrExpired(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		status models.InquiryStatus
		want   error
	}{
		{models.InquiryStatusAccepted, ErrSettled},
		{models.InquiryStatusRejected, ErrSettled},
		{models.InquiryStatusExpired, ErrNotOpen},
	}
	for _, tc := range cases {
		inq := testInquiry()
		inq.Status = tc.status
		assert.ErrorIs(t, Accept(inq, inq.Buyer.ID, now), tc.want)

		inq = testInquiry()
		inq.Status = tc.status
		assert.ErrorIs(t, Reject(inq, inq.Buyer.ID, now), tc.want)
	}
}

func TestReject_AppendsHistoryAndSettles(t *testing.T) {
	inq := testInquiry()
	inq.Proposed = &models.Offer{Quantity: 40, Price: 115}
	now := time.Now().UTC()

	err := Reject(inq, inq.Buyer.ID, now)
	assert.NoError(t, err)
	assert.Equal(t, models.InquiryStatusRejected, inq.Status)
	if assert.Len(t, inq.History, 1) {
		assert.Equal(t, models.ActionRejectedOffer, inq.History[0].Action)
		assert.Equal(t, inq.Buyer.ID, inq.History[0].ActorID)
	}
}

func TestExpire_FlipsPastDueExactlyOnce(t *testing.T) {
	inq := testInquiry()
	inq.Status = models.InquiryStatusNegotiating
	inq.ExpiresAt = time.Now().Add(-time.Hour)
	now := time.Now().UTC()

	assert.True(t, Expire(inq, now))
	assert.Equal(t, models.InquiryStatusExpired, inq.Status)
	versionAfterFirst := inq.Version

	// Repeated checks are no-ops.
	assert.False(t, Expire(inq, now))
	assert.False(t, Expire(inq, now.Add(time.Hour)))
	assert.Equal(t, versionAfterFirst, inq.Version)
	assert.Len(t, inq.History, 1)
}

func TestExpire_LeavesOpenAndSettledInquiriesAlone(t *testing.T) {
	now := time.Now().UTC()

	inq := testInquiry() // ExpiresAt in the future
	assert.False(t, Expire(inq, now))
	assert.Equal(t, models.InquiryStatusPending, inq.Status)

	for _, status := range []models.InquiryStatus{models.InquiryStatusAccepted, models.InquiryStatusRejected} {
		inq := testInquiry()
		inq.Status = status
		inq.ExpiresAt = now.Add(-time.Hour)
		assert.False(t, Expire(inq, now))
		assert.Equal(t, status, inq.Status)
	}
}

func TestAuthorizeDelete_BuyerOnly(t *testing.T) {
	inq := testInquiry()

	assert.NoError(t, AuthorizeDelete(inq, inq.Buyer.ID))
	assert.ErrorIs(t, AuthorizeDelete(inq, inq.Supplier.ID), ErrBuyerOnly)
	assert.ErrorIs(t, AuthorizeDelete(inq, uuid.New()), ErrNotParticipant)
}

func TestTransitions_RejectOutsiders(t *testing.T) {
	inq := testInquiry()
	now := time.Now().UTC()
	outsider := uuid.New()

	assert.ErrorIs(t, ApplyCounterOffer(inq, CounterOffer{ActorID: outsider, Quantity: 30, Price: 100}, offerTTL, now), ErrNotParticipant)
	assert.ErrorIs(t, Accept(inq, outsider, now), ErrNotParticipant)
	assert.ErrorIs(t, Reject(inq, outsider, now), ErrNotParticipant)
}
