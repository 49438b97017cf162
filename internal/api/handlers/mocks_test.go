package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"gigbazaar/api/internal/api/middleware"
	"gigbazaar/api/internal/models"
	"gigbazaar/api/internal/negotiation"
)

// --- Service mocks shared across handler tests ---

type mockInquiryService struct {
	mock.Mock
}

func (m *mockInquiryService) CreateInquiry(ctx context.Context, buyerID, gigID uuid.UUID, quantity int, price float64, message string) (*models.Inquiry, error) {
	args := m.Called(ctx, buyerID, gigID, quantity, price, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *mockInquiryService) FindInquiryByID(ctx context.Context, id uuid.UUID) (*models.Inquiry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *mockInquiryService) FindInquiriesByUser(ctx context.Context, userID uuid.UUID, limit int64) ([]models.Inquiry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Inquiry), args.Error(1)
}
func (m *mockInquiryService) SubmitCounterOffer(ctx context.Context, id uuid.UUID, offer negotiation.CounterOffer) (*models.Inquiry, error) {
	args := m.Called(ctx, id, offer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *mockInquiryService) AcceptInquiry(ctx context.Context, id, actorID uuid.UUID) (*models.Inquiry, error) {
	args := m.Called(ctx, id, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *mockInquiryService) RejectInquiry(ctx context.Context, id, actorID uuid.UUID) (*models.Inquiry, error) {
	args := m.Called(ctx, id, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}
func (m *mockInquiryService) DeleteInquiry(ctx context.Context, id, actorID uuid.UUID) error {
	args := m.Called(ctx, id, actorID)
	return args.Error(0)
}
func (m *mockInquiryService) ExpireInquiry(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
func (m *mockInquiryService) ExpireDueInquiries(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
func (m *mockInquiryService) OfferTTL(ctx context.Context) time.Duration {
	args := m.Called(ctx)
	return args.Get(0).(time.Duration)
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) CreateUser(ctx context.Context, username, email string) (*models.User, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockUserService) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockUserService) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockUserService) RecordNegotiationOutcome(ctx context.Context, userID uuid.UUID, accepted bool, rounds int) error {
	args := m.Called(ctx, userID, accepted, rounds)
	return args.Error(0)
}

type mockGigService struct {
	mock.Mock
}

func (m *mockGigService) CreateGig(ctx context.Context, gig *models.Gig) (*models.Gig, error) {
	args := m.Called(ctx, gig)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Gig), args.Error(1)
}
func (m *mockGigService) FindGigByID(ctx context.Context, id uuid.UUID) (*models.Gig, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Gig), args.Error(1)
}
func (m *mockGigService) FindGigsBySupplier(ctx context.Context, supplierID uuid.UUID, limit int64) ([]models.Gig, error) {
	args := m.Called(ctx, supplierID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Gig), args.Error(1)
}
func (m *mockGigService) DeactivateGig(ctx context.Context, id uuid.UUID, supplierID uuid.UUID) error {
	args := m.Called(ctx, id, supplierID)
	return args.Error(0)
}

// mockAsynqClient records enqueued tasks.
type mockAsynqClient struct {
	tasks []*asynq.Task
}

func (m *mockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	m.tasks = append(m.tasks, task)
	return &asynq.TaskInfo{ID: uuid.NewString(), Type: task.Type()}, nil
}

func (m *mockAsynqClient) typesEnqueued() []string {
	var types []string
	for _, t := range m.tasks {
		types = append(types, t.Type())
	}
	return types
}

// --- HTTP test helpers ---

// asUser injects the authenticated user the way AuthMiddleware would.
func asUser(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID)
		c.Set(middleware.ContextKeyIsAuthenticated, true)
		c.Next()
	}
}

func performRequest(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func testInquiryFixture(buyerID, supplierID uuid.UUID) *models.Inquiry {
	return &models.Inquiry{
		Base:     models.Base{ID: uuid.New()},
		GigID:    uuid.New(),
		GigTitle: "Bulk ceramic mugs",
		Gig: models.GigTerms{
			BulkPrice:         120,
			MarketRatePerUnit: 120,
			ProductionCost:    70,
			MinOrderQty:       20,
			LeadTimeDays:      14,
		},
		Buyer:             models.Party{ID: buyerID, Username: "buyer1"},
		Supplier:          models.Party{ID: supplierID, Username: "supplier1"},
		RequestedQuantity: 50,
		RequestedPrice:    100,
		Status:            models.InquiryStatusPending,
		ExpiresAt:         time.Now().Add(48 * time.Hour),
	}
}

func init() {
	gin.SetMode(gin.TestMode)
}
