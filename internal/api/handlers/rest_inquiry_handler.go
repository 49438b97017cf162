package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"

	"gigbazaar/api/internal/api/middleware"
	"gigbazaar/api/internal/models"
	"gigbazaar/api/internal/negotiation"
	"gigbazaar/api/internal/services"
	"gigbazaar/api/internal/tasks"
)

// IAsynqClient abstracts the asynq client for task enqueueing, mockable in
// handler tests.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RestInquiryHandler handles REST requests for negotiation inquiries.
type RestInquiryHandler struct {
	inquiryService services.IInquiryService
	taskClient     IAsynqClient
}

// NewRestInquiryHandler creates a new RestInquiryHandler.
func NewRestInquiryHandler(inquiryService services.IInquiryService, taskClient IAsynqClient) *RestInquiryHandler {
	return &RestInquiryHandler{
		inquiryService: inquiryService,
		taskClient:     taskClient,
	}
}

// authedUserID pulls the authenticated user out of the Gin context.
func authedUserID(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get(middleware.ContextKeyUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return uuid.Nil, false
	}
	userID, ok := val.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return uuid.Nil, false
	}
	return userID, true
}

// pathID parses the :id path parameter.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inquiry ID format"})
		return uuid.Nil, false
	}
	return id, true
}

// respondInquiryError maps service and engine errors to HTTP statuses.
func respondInquiryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		c.JSON(http.StatusNotFound, gin.H{"error": "Inquiry not found"})
	case errors.Is(err, negotiation.ErrNotParticipant),
		errors.Is(err, negotiation.ErrBuyerOnly):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, negotiation.ErrSettled),
		errors.Is(err, negotiation.ErrNotOpen),
		errors.Is(err, negotiation.ErrRoundLimitReached),
		errors.Is(err, services.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, negotiation.ErrQuantityBelowMinimum),
		errors.Is(err, negotiation.ErrNonPositivePrice),
		errors.Is(err, negotiation.ErrBelowCostConfirmation),
		errors.Is(err, services.ErrGigInactive),
		errors.Is(err, services.ErrOwnGig),
		errors.Is(err, services.ErrPriceTooLow):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// CreateInquiryRequest is the body for POST /v1/inquiry.
type CreateInquiryRequest struct {
	GigID    string  `json:"gig_id" binding:"required"`
	Quantity int     `json:"quantity" binding:"required"`
	Price    float64 `json:"price" binding:"required"`
	Message  string  `json:"message"`
}

// CreateInquiry handles POST /v1/inquiry
func (h *RestInquiryHandler) CreateInquiry(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	var req CreateInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	gigID, err := uuid.Parse(req.GigID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid gig ID format"})
		return
	}

	inquiry, err := h.inquiryService.CreateInquiry(c.Request.Context(), userID, gigID, req.Quantity, req.Price, req.Message)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Gig not found"})
			return
		}
		respondInquiryError(c, err)
		return
	}

	h.scheduleExpiry(c, inquiry)
	h.notifyCounterparty(c, inquiry, userID, models.ActionInitialInquiry)

	c.JSON(http.StatusCreated, inquiry)
}

// GetInquiryByID handles GET /v1/inquiry/:id
func (h *RestInquiryHandler) GetInquiryByID(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	inquiry, err := h.inquiryService.FindInquiryByID(c.Request.Context(), id)
	if err != nil {
		respondInquiryError(c, err)
		return
	}
	if inquiry.PartyOf(userID) == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this inquiry"})
		return
	}

	c.JSON(http.StatusOK, inquiry)
}

// GetInquiryAnalysis handles GET /v1/inquiry/:id/analysis
// The response is viewer-specific: fairness and the recommendation are
// computed from the requesting party's perspective.
func (h *RestInquiryHandler) GetInquiryAnalysis(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	inquiry, err := h.inquiryService.FindInquiryByID(c.Request.Context(), id)
	if err != nil {
		respondInquiryError(c, err)
		return
	}

	metrics := negotiation.Calculate(inquiry)
	fairness, err := negotiation.FairnessScore(inquiry, userID)
	if err != nil {
		respondInquiryError(c, err)
		return
	}
	recommendation, err := negotiation.Recommend(inquiry, userID)
	if err != nil {
		respondInquiryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"inquiry_id":     inquiry.ID,
		"status":         inquiry.Status,
		"round":          inquiry.Round,
		"metrics":        metrics,
		"fairness_score": fairness,
		"recommendation": recommendation,
	})
}

// CounterOfferRequest is the body for PUT /v1/inquiry/:id.
type CounterOfferRequest struct {
	Quantity         int     `json:"quantity" binding:"required"`
	Price            float64 `json:"price" binding:"required"`
	Message          string  `json:"message"`
	ConfirmBelowCost bool    `json:"confirm_below_cost"`
}

// SubmitCounterOffer handles PUT /v1/inquiry/:id
func (h *RestInquiryHandler) SubmitCounterOffer(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req CounterOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	inquiry, err := h.inquiryService.SubmitCounterOffer(c.Request.Context(), id, negotiation.CounterOffer{
		ActorID:          userID,
		Quantity:         req.Quantity,
		Price:            req.Price,
		Message:          req.Message,
		ConfirmBelowCost: req.ConfirmBelowCost,
	})
	if err != nil {
		respondInquiryError(c, err)
		return
	}

	h.scheduleExpiry(c, inquiry)
	h.notifyCounterparty(c, inquiry, userID, models.ActionCounterOffer)

	c.JSON(http.StatusOK, inquiry)
}

// AcceptInquiry handles POST /v1/inquiry/:id/accept
func (h *RestInquiryHandler) AcceptInquiry(c *gin.Context) {
	h.settle(c, models.ActionAcceptedOffer)
}

// RejectInquiry handles POST /v1/inquiry/:id/reject
func (h *RestInquiryHandler) RejectInquiry(c *gin.Context) {
	h.settle(c, models.ActionRejectedOffer)
}

func (h *RestInquiryHandler) settle(c *gin.Context, action models.NegotiationAction) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var inquiry *models.Inquiry
	var err error
	if action == models.ActionAcceptedOffer {
		inquiry, err = h.inquiryService.AcceptInquiry(c.Request.Context(), id, userID)
	} else {
		inquiry, err = h.inquiryService.RejectInquiry(c.Request.Context(), id, userID)
	}
	if err != nil {
		respondInquiryError(c, err)
		return
	}

	h.notifyCounterparty(c, inquiry, userID, action)

	c.JSON(http.StatusOK, inquiry)
}

// DeleteInquiry handles DELETE /v1/inquiry/:id
func (h *RestInquiryHandler) DeleteInquiry(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.inquiryService.DeleteInquiry(c.Request.Context(), id, userID); err != nil {
		respondInquiryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ListUserInquiries handles GET /v1/user/:id/inquiry
// Users may only list their own negotiations.
func (h *RestInquiryHandler) ListUserInquiries(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	requestedID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}
	if requestedID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot list another user's inquiries"})
		return
	}

	inquiries, err := h.inquiryService.FindInquiriesByUser(c.Request.Context(), userID, 100)
	if err != nil {
		respondInquiryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": inquiries})
}

// scheduleExpiry enqueues the expiry timer for the current offer window.
// Failures are logged, not surfaced: the sweep task is the safety net.
func (h *RestInquiryHandler) scheduleExpiry(c *gin.Context, inquiry *models.Inquiry) {
	if h.taskClient == nil {
		return
	}
	task, err := tasks.NewInquiryExpireTask(inquiry.ID)
	if err != nil {
		log.Printf("Warning: Failed to build expiry task for inquiry %s: %v", inquiry.ID, err)
		return
	}
	if _, err := h.taskClient.EnqueueContext(c.Request.Context(), task, asynq.ProcessAt(inquiry.ExpiresAt)); err != nil {
		log.Printf("Warning: Failed to enqueue expiry task for inquiry %s: %v", inquiry.ID, err)
	}
}

// notifyCounterparty enqueues an email notification to the party that did
// not act.
func (h *RestInquiryHandler) notifyCounterparty(c *gin.Context, inquiry *models.Inquiry, actorID uuid.UUID, action models.NegotiationAction) {
	if h.taskClient == nil {
		return
	}
	counterparty := inquiry.Counterparty(actorID)
	if counterparty == nil {
		return
	}
	task, err := tasks.NewEmailDeliveryTask(inquiry.ID, counterparty.ID, action)
	if err != nil {
		log.Printf("Warning: Failed to build notification task for inquiry %s: %v", inquiry.ID, err)
		return
	}
	if _, err := h.taskClient.EnqueueContext(c.Request.Context(), task, asynq.Queue("low")); err != nil {
		log.Printf("Warning: Failed to enqueue notification for inquiry %s: %v", inquiry.ID, err)
	}
}
