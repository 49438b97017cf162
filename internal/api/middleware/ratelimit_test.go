package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"gigbazaar/api/internal/config"
	"gigbazaar/api/internal/models"
)

type stubConfigService struct {
	endpointCfg *models.APIEndpointConfig
}

func (s *stubConfigService) GetAllPublic(ctx context.Context) (map[string]interface{}, error) {
	return nil, nil
}
func (s *stubConfigService) Get(ctx context.Context, key string) (interface{}, error) {
	return nil, errors.New("not found")
}
func (s *stubConfigService) GetInt(ctx context.Context, key string, d int) int          { return d }
func (s *stubConfigService) GetString(ctx context.Context, key string, d string) string { return d }
func (s *stubConfigService) GetBool(ctx context.Context, key string, d bool) bool       { return d }
func (s *stubConfigService) GetFloat64(ctx context.Context, key string, d float64) float64 {
	return d
}
func (s *stubConfigService) GetDuration(ctx context.Context, key string, d time.Duration) time.Duration {
	return d
}
func (s *stubConfigService) Load(ctx context.Context) error               { return nil }
func (s *stubConfigService) SubscribeToChanges(ctx context.Context) error { return nil }
func (s *stubConfigService) SetConfigValue(ctx context.Context, key string, value interface{}, isPublic bool) error {
	return nil
}
func (s *stubConfigService) GetAPIEndpointConfig(ctx context.Context, endpoint string, isAuthenticated bool) (*models.APIEndpointConfig, error) {
	return s.endpointCfg, nil
}

func limiterTestRouter(cfg *config.Config, svc *stubConfigService, authenticated bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	rm := NewRateLimiterMiddleware(cfg, svc)
	handlers := []gin.HandlerFunc{}
	if authenticated {
		handlers = append(handlers, func(c *gin.Context) { c.Set(ContextKeyIsAuthenticated, true) })
	}
	handlers = append(handlers, rm.Limit(), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/v1/ping", handlers...)
	return r
}

func hit(r *gin.Engine) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_SoftLimitThrottlesAnonymousClients(t *testing.T) {
	cfg := &config.Config{
		RateLimitSoftBucketSize: 2,
		RateLimitSoftRefillRate: 1,
		RateLimitHardBucketSize: 100,
		RateLimitHardRefillRate: 100,
	}
	r := limiterTestRouter(cfg, &stubConfigService{}, false)

	assert.Equal(t, http.StatusOK, hit(r))
	assert.Equal(t, http.StatusOK, hit(r))
	assert.Equal(t, http.StatusTooManyRequests, hit(r))
}

func TestRateLimiter_AuthenticatedClientsSkipSoftLimit(t *testing.T) {
	cfg := &config.Config{
		RateLimitSoftBucketSize: 1,
		RateLimitSoftRefillRate: 1,
		RateLimitHardBucketSize: 100,
		RateLimitHardRefillRate: 100,
	}
	r := limiterTestRouter(cfg, &stubConfigService{}, true)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(r))
	}
}

func TestRateLimiter_HardLimitAppliesToEveryone(t *testing.T) {
	cfg := &config.Config{
		RateLimitSoftBucketSize: 100,
		RateLimitSoftRefillRate: 100,
		RateLimitHardBucketSize: 3,
		RateLimitHardRefillRate: 1,
	}
	r := limiterTestRouter(cfg, &stubConfigService{}, true)

	assert.Equal(t, http.StatusOK, hit(r))
	assert.Equal(t, http.StatusOK, hit(r))
	assert.Equal(t, http.StatusOK, hit(r))
	assert.Equal(t, http.StatusTooManyRequests, hit(r))
}

func TestRateLimiter_EndpointOverridesReplaceDefaults(t *testing.T) {
	cfg := &config.Config{
		RateLimitSoftBucketSize: 100,
		RateLimitSoftRefillRate: 100,
		RateLimitHardBucketSize: 100,
		RateLimitHardRefillRate: 100,
	}
	svc := &stubConfigService{endpointCfg: &models.APIEndpointConfig{
		Endpoint:      "/v1/ping",
		RateLimitHard: &models.RateLimitConfig{BucketSize: 1, TokenRefillRate: 1},
	}}
	r := limiterTestRouter(cfg, svc, true)

	assert.Equal(t, http.StatusOK, hit(r))
	assert.Equal(t, http.StatusTooManyRequests, hit(r))
}
