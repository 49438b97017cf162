package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"gigbazaar/api/internal/config"
	"gigbazaar/api/internal/models"
)

// RedisSender implements the Sender interface by storing emails in Redis.
// End-to-end tests fetch them back through the service API instead of
// polling a real inbox.
type RedisSender struct {
	client *redis.Client
	cfg    *config.Config
}

// NewRedisSender creates a new RedisSender.
func NewRedisSender(client *redis.Client, cfg *config.Config) Sender {
	return &RedisSender{
		client: client,
		cfg:    cfg,
	}
}

// Send stores a representation of the email in Redis instead of delivering
// it. The key is derived from the recipient and the negotiation action the
// subject line maps to, so a test can await a specific event.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	actionType := classifySubject(subject)

	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}

	emailData := map[string]interface{}{
		"to":         strings.Join(to, ", "),
		"from":       s.cfg.SmtpFromAddress,
		"subject":    subject,
		"body":       string(rawMessage),
		"sent_at":    time.Now().UTC().Format(time.RFC3339Nano),
		"actionType": actionType,
	}

	jsonData, err := json.Marshal(emailData)
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := fmt.Sprintf("mockemail:%s:%s", primaryTo, actionType)
	ttl := 5 * time.Minute

	if err := s.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}

	log.Printf("Mock email stored in Redis key '%s' (TTL: %v, To: %s, Subject: %s)", key, ttl, strings.Join(to, ", "), subject)
	return nil
}

// classifySubject maps a notification subject back to the negotiation
// action that produced it. Heuristic, matches BuildNotification's wording.
func classifySubject(subject string) string {
	switch {
	case strings.Contains(subject, "New bulk inquiry"):
		return string(models.ActionInitialInquiry)
	case strings.Contains(subject, "Counter-offer"):
		return string(models.ActionCounterOffer)
	case strings.Contains(subject, "Deal closed"):
		return string(models.ActionAcceptedOffer)
	case strings.Contains(subject, "declined"):
		return string(models.ActionRejectedOffer)
	case strings.Contains(subject, "expired"):
		return string(models.ActionExpiredOffer)
	default:
		return "unknown"
	}
}
