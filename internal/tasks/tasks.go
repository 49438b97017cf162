package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"gigbazaar/api/internal/config"
	"gigbazaar/api/internal/email"
	"gigbazaar/api/internal/models"
	"gigbazaar/api/internal/services"
)

// TaskType defines the type of a background task.
const (
	TypeEmailDelivery = "email:deliver"
	TypeInquiryExpire = "inquiry:expire"
	TypeExpirySweep   = "inquiry:expire_sweep"
)

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return asynq.NewClient(clientOpt)
}

// InquiryExpirePayload targets a single inquiry whose offer window closes.
type InquiryExpirePayload struct {
	InquiryID string `json:"inquiry_id"`
}

// NewInquiryExpireTask builds the task that fires when an inquiry's offer
// window lapses. Enqueue it with asynq.ProcessAt(inquiry.ExpiresAt).
func NewInquiryExpireTask(inquiryID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(InquiryExpirePayload{InquiryID: inquiryID.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inquiry expire payload: %w", err)
	}
	return asynq.NewTask(TypeInquiryExpire, payload), nil
}

// NewExpirySweepTask builds the periodic safety-net sweep task.
func NewExpirySweepTask() *asynq.Task {
	return asynq.NewTask(TypeExpirySweep, nil)
}

// EmailTaskPayload asks for a negotiation event to be mailed to one party.
type EmailTaskPayload struct {
	InquiryID       string `json:"inquiry_id"`
	RecipientUserID string `json:"recipient_user_id"`
	Action          string `json:"action"`
}

// NewEmailDeliveryTask builds a notification delivery task for the given
// party on an inquiry.
func NewEmailDeliveryTask(inquiryID, recipientUserID uuid.UUID, action models.NegotiationAction) (*asynq.Task, error) {
	payload, err := json.Marshal(EmailTaskPayload{
		InquiryID:       inquiryID.String(),
		RecipientUserID: recipientUserID.String(),
		Action:          string(action),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal email task payload: %w", err)
	}
	return asynq.NewTask(TypeEmailDelivery, payload), nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg            *config.Config
	emailSender    email.Sender
	inquiryService services.IInquiryService
	userService    services.IUserService
	configService  services.IConfigService
	taskClient     *asynq.Client
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	inquiryService services.IInquiryService,
	userService services.IUserService,
	configService services.IConfigService,
	taskClient *asynq.Client,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:            cfg,
		emailSender:    emailSender,
		inquiryService: inquiryService,
		userService:    userService,
		configService:  configService,
		taskClient:     taskClient,
	}
}

// SetupServer configures and runs an Asynq server instance. Returns nil in
// API mode where no task server runs.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isBgWorker bool) *asynq.Server {
	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	if !isBgWorker {
		log.Println("Running in API mode, no task server started.")
		return nil
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	mux.HandleFunc(TypeInquiryExpire, processor.HandleInquiryExpireTask)
	mux.HandleFunc(TypeExpirySweep, processor.HandleExpirySweepTask)
	log.Println("Registered background task handlers (expiry & email).")

	if err := srv.Start(mux); err != nil {
		log.Fatalf("Could not start Asynq server: %v", err)
	}

	return srv
}

// --- Task Handlers ---

// HandleInquiryExpireTask flips a single past-due inquiry to expired. The
// service call is idempotent, so a task that fires after the negotiation
// moved on is a clean no-op.
func (p *TaskProcessor) HandleInquiryExpireTask(ctx context.Context, t *asynq.Task) error {
	var payload InquiryExpirePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal inquiry expire payload: %v: %w", err, asynq.SkipRetry)
	}

	inquiryID, err := uuid.Parse(payload.InquiryID)
	if err != nil {
		log.Printf("Invalid InquiryID in expire task payload: %s", payload.InquiryID)
		return fmt.Errorf("invalid inquiry ID in payload: %w", asynq.SkipRetry)
	}

	flipped, err := p.inquiryService.ExpireInquiry(ctx, inquiryID)
	if err != nil {
		return fmt.Errorf("failed to expire inquiry %s: %w", inquiryID, err)
	}
	if !flipped {
		log.Printf("Inquiry %s no longer due for expiry (settled, revived or already expired). Skipping.", inquiryID)
		return nil
	}

	log.Printf("Inquiry %s expired by scheduled task.", inquiryID)
	p.enqueueExpiryNotifications(ctx, inquiryID)
	return nil
}

// HandleExpirySweepTask is the safety net behind the per-inquiry timers:
// it expires everything past due in bulk and re-enqueues itself.
func (p *TaskProcessor) HandleExpirySweepTask(ctx context.Context, t *asynq.Task) error {
	count, err := p.inquiryService.ExpireDueInquiries(ctx)
	if err != nil {
		log.Printf("Expiry sweep failed: %v", err)
		return err
	}
	if count > 0 {
		log.Printf("Expiry sweep flipped %d inquiries.", count)
	}

	interval := p.configService.GetDuration(ctx, "EXPIRY_SWEEP_SECONDS", p.cfg.ExpirySweepInterval)
	taskInfo, err := p.taskClient.EnqueueContext(ctx, NewExpirySweepTask(), asynq.ProcessIn(interval))
	if err != nil {
		log.Printf("ERROR failed to re-enqueue expiry sweep task: %v", err)
		return err
	}
	log.Printf("Re-enqueued expiry sweep task %s to run in %v.", taskInfo.ID, interval)
	return nil
}

func (p *TaskProcessor) enqueueExpiryNotifications(ctx context.Context, inquiryID uuid.UUID) {
	inquiry, err := p.inquiryService.FindInquiryByID(ctx, inquiryID)
	if err != nil {
		log.Printf("Warning: Could not load inquiry %s for expiry notifications: %v", inquiryID, err)
		return
	}
	for _, partyID := range []uuid.UUID{inquiry.Buyer.ID, inquiry.Supplier.ID} {
		task, err := NewEmailDeliveryTask(inquiryID, partyID, models.ActionExpiredOffer)
		if err != nil {
			log.Printf("Warning: Failed to build expiry notification task for %s: %v", partyID, err)
			continue
		}
		if _, err := p.taskClient.EnqueueContext(ctx, task, asynq.Queue("low")); err != nil {
			log.Printf("Warning: Failed to enqueue expiry notification for %s: %v", partyID, err)
		}
	}
}

// HandleEmailDeliveryTask renders and sends a negotiation notification.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}

	inquiryID, err := uuid.Parse(payload.InquiryID)
	if err != nil {
		return fmt.Errorf("invalid inquiry ID in payload: %w", asynq.SkipRetry)
	}
	recipientID, err := uuid.Parse(payload.RecipientUserID)
	if err != nil {
		return fmt.Errorf("invalid recipient ID in payload: %w", asynq.SkipRetry)
	}

	inquiry, err := p.inquiryService.FindInquiryByID(ctx, inquiryID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Printf("Inquiry %s gone before notification could be sent. Skipping.", inquiryID)
			return fmt.Errorf("inquiry not found: %w", asynq.SkipRetry)
		}
		return err
	}

	recipient, err := p.userService.FindUserByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("recipient not found: %w", asynq.SkipRetry)
		}
		return err
	}

	appName := p.configService.GetString(ctx, "APP_NAME", p.cfg.AppName)
	notification := email.BuildNotification(inquiry, models.NegotiationAction(payload.Action), recipient.Email, appName)

	if err := p.emailSender.Send(ctx, []string{notification.To}, notification.Subject, notification.RawMessage(p.cfg.SmtpFromAddress)); err != nil {
		log.Printf("Email sending failed for inquiry %s to %s: %v", inquiryID, notification.To, err)
		return err
	}

	log.Printf("Notification sent: inquiry=%s action=%s to=%s", inquiryID, payload.Action, notification.To)
	return nil
}

// ScheduleExpiry enqueues the per-inquiry expiry timer for the current
// offer window. Called after create and after every counter-offer; stale
// timers from earlier windows fall through the idempotent handler.
func ScheduleExpiry(ctx context.Context, client *asynq.Client, inquiryID uuid.UUID, expiresAt time.Time) error {
	task, err := NewInquiryExpireTask(inquiryID)
	if err != nil {
		return err
	}
	info, err := client.EnqueueContext(ctx, task, asynq.ProcessAt(expiresAt))
	if err != nil {
		return fmt.Errorf("failed to enqueue expiry task for inquiry %s: %w", inquiryID, err)
	}
	log.Printf("Scheduled expiry task %s for inquiry %s at %s", info.ID, inquiryID, expiresAt.Format(time.RFC3339))
	return nil
}
