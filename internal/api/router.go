package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"gigbazaar/api/internal/api/handlers"
	"gigbazaar/api/internal/api/middleware"
	"gigbazaar/api/internal/config"
	"gigbazaar/api/internal/services"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, taskClient handlers.IAsynqClient, configSvc services.IConfigService) *gin.Engine {
	// Initialize services needed by API handlers
	userService := services.NewUserService(db)
	gigService := services.NewGigService(db)
	inquiryService := services.NewInquiryService(db, cfg, configSvc, userService, gigService)

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg, configSvc)

	// Global middleware first (order matters)
	r.Use(middleware.CORSMiddleware())

	// Initialize handlers
	restConfigHandler := handlers.NewRestConfigHandler(configSvc)
	restUserHandler := handlers.NewRestUserHandler(userService)
	restGigHandler := handlers.NewRestGigHandler(gigService)
	restInquiryHandler := handlers.NewRestInquiryHandler(inquiryService, taskClient)

	v1 := r.Group("/v1")
	{
		// Public routes
		public := v1.Group("/")
		public.Use(rateLimiter.Limit())
		{
			public.GET("/config", restConfigHandler.GetPublicConfig)
			public.GET("/user/:id", restUserHandler.GetUserByID)
			public.GET("/user/:id/gig", restGigHandler.ListSupplierGigs)
			public.GET("/gig/:id", restGigHandler.GetGigByID)

			public.GET("/ping", func(c *gin.Context) {
				c.String(http.StatusOK, "pong")
			})
		}

		// Authenticated routes. Auth runs before the limiter so logged-in
		// clients skip the soft bucket.
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), rateLimiter.Limit())
		{
			authRequired.POST("/gig", restGigHandler.CreateGig)
			authRequired.DELETE("/gig/:id", restGigHandler.DeactivateGig)

			authRequired.POST("/inquiry", restInquiryHandler.CreateInquiry)
			authRequired.GET("/inquiry/:id", restInquiryHandler.GetInquiryByID)
			authRequired.GET("/inquiry/:id/analysis", restInquiryHandler.GetInquiryAnalysis)
			authRequired.PUT("/inquiry/:id", restInquiryHandler.SubmitCounterOffer)
			authRequired.POST("/inquiry/:id/accept", restInquiryHandler.AcceptInquiry)
			authRequired.POST("/inquiry/:id/reject", restInquiryHandler.RejectInquiry)
			authRequired.DELETE("/inquiry/:id", restInquiryHandler.DeleteInquiry)
			authRequired.GET("/user/:id/inquiry", restInquiryHandler.ListUserInquiries)
		}
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine used by
// operational tooling and end-to-end tests.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			fmt.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
				fmt.Println("Shutdown signal sent successfully.")
			default:
				fmt.Println("Shutdown channel already signaled or blocked.")
			}
		case "getTestEmail":
			var args []string // Expect ["action_type", "email"]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [actionType, email]"})
				return
			}
			actionType := args[0]
			emailAddr := args[1]
			redisKey := fmt.Sprintf("mockemail:%s:%s", emailAddr, actionType)

			// Poll Redis briefly for the key
			var emailJsonData string
			var getErr error
			found := false
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()
			for i := 0; i < 10; i++ { // Poll up to ~2 seconds
				emailJsonData, getErr = rdb.Get(ctx, redisKey).Result()
				if getErr == nil {
					found = true
					rdb.Del(ctx, redisKey) // Delete after fetching
					break
				}
				if getErr != redis.Nil {
					log.Printf("Service API: Error getting key %s from Redis: %v", redisKey, getErr)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				// If redis.Nil, wait and retry
				time.Sleep(200 * time.Millisecond)
			}

			if !found {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", redisKey)})
				return
			}

			var emailData map[string]interface{}
			if err := json.Unmarshal([]byte(emailJsonData), &emailData); err != nil {
				log.Printf("Service API: Error unmarshalling email data from key %s: %v", redisKey, err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
				return
			}

			c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
