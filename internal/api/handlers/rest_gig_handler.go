package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"gigbazaar/api/internal/models"
	"gigbazaar/api/internal/services"
)

// RestGigHandler handles REST requests for catalog gigs.
type RestGigHandler struct {
	gigService services.IGigService
}

// NewRestGigHandler creates a new RestGigHandler.
func NewRestGigHandler(gigService services.IGigService) *RestGigHandler {
	return &RestGigHandler{gigService: gigService}
}

// CreateGigRequest is the body for POST /v1/gig.
type CreateGigRequest struct {
	Title             string  `json:"title" binding:"required"`
	Description       string  `json:"description"`
	BulkPrice         float64 `json:"bulk_price" binding:"required"`
	MarketRatePerUnit float64 `json:"market_rate_per_unit"`
	ProductionCost    float64 `json:"production_cost"`
	MinOrderQty       int     `json:"min_order_qty" binding:"required"`
	LeadTimeDays      int     `json:"lead_time_days"`
}

// CreateGig handles POST /v1/gig
func (h *RestGigHandler) CreateGig(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	var req CreateGigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	gig := &models.Gig{
		Base:              models.NewBase(),
		SupplierID:        userID,
		Title:             req.Title,
		Description:       req.Description,
		BulkPrice:         req.BulkPrice,
		MarketRatePerUnit: req.MarketRatePerUnit,
		ProductionCost:    req.ProductionCost,
		MinOrderQty:       req.MinOrderQty,
		LeadTimeDays:      req.LeadTimeDays,
	}
	created, err := h.gigService.CreateGig(c.Request.Context(), gig)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetGigByID handles GET /v1/gig/:id
func (h *RestGigHandler) GetGigByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid gig ID format"})
		return
	}

	gig, err := h.gigService.FindGigByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Gig not found"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve gig"})
		}
		return
	}
	c.JSON(http.StatusOK, gig)
}

// ListSupplierGigs handles GET /v1/user/:id/gig
func (h *RestGigHandler) ListSupplierGigs(c *gin.Context) {
	supplierID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	if err != nil || limit <= 0 || limit > 200 {
		limit = 50
	}

	gigs, err := h.gigService.FindGigsBySupplier(c.Request.Context(), supplierID, limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list gigs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gigs})
}

// DeactivateGig handles DELETE /v1/gig/:id
func (h *RestGigHandler) DeactivateGig(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid gig ID format"})
		return
	}

	if err := h.gigService.DeactivateGig(c.Request.Context(), id, userID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Gig not found or not owned by you"})
		} else {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate gig"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"deactivated": true})
}
