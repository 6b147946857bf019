// Package notify posts planning lifecycle events to a configured
// webhook URL. Dispatch is asynchronous and failures are logged, never
// returned, so notification can't affect a planning result.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shiftcast/shiftcast/internal/config"
	"github.com/shiftcast/shiftcast/pkg/models"
)

// ── Event types ─────────────────────────────────────────────

// EventType describes what happened.
type EventType string

const (
	EventPlanCompleted       EventType = "plan_completed"
	EventPlanFailed          EventType = "plan_failed"
	EventEvaluationCompleted EventType = "evaluation_completed"
)

// Event is the webhook payload.
type Event struct {
	Type      EventType              `json:"type"`
	RequestID string                 `json:"request_id"`
	Shift     string                 `json:"shift,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// PlanCompleted builds the event for a finished planning session.
func PlanCompleted(resp *models.PlanningResponse) Event {
	payload := map[string]interface{}{
		"iterations":             len(resp.Iterations),
		"execution_time_seconds": resp.ExecutionTimeSeconds,
	}
	if best := resp.BestEvaluation(); best != nil {
		payload["best_score"] = best.Scores.Aggregate()
	}
	return Event{
		Type:      EventPlanCompleted,
		RequestID: resp.RequestID,
		Shift:     string(resp.Scenario.Shift),
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// PlanFailed builds the event for a planning session that returned an
// error.
func PlanFailed(requestID string, scenario models.Scenario, err error) Event {
	return Event{
		Type:      EventPlanFailed,
		RequestID: requestID,
		Shift:     string(scenario.Shift),
		Timestamp: time.Now().UTC(),
		Payload:   map[string]interface{}{"error": err.Error()},
	}
}

// EvaluationCompleted builds the event for a finished shift evaluation.
func EvaluationCompleted(resp *models.EvaluationResponse) Event {
	return Event{
		Type:      EventEvaluationCompleted,
		RequestID: resp.RequestID,
		Timestamp: time.Now().UTC(),
		Payload:   map[string]interface{}{"prediction_quality": resp.PredictionQuality},
	}
}

// ── Service ─────────────────────────────────────────────────

const maxAttempts = 3

// Service delivers events to the configured webhook with HMAC-SHA256
// signing and bounded retries.
type Service struct {
	url        string
	secret     string
	client     *http.Client
	retryDelay time.Duration
}

// NewService creates a webhook dispatcher. An empty webhook URL
// disables dispatch entirely.
func NewService(cfg config.NotifyConfig) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		url:        cfg.WebhookURL,
		secret:     cfg.Secret,
		client:     &http.Client{Timeout: timeout},
		retryDelay: 2 * time.Second,
	}
}

// Enabled reports whether a webhook URL is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.url != ""
}

// DispatchAsync fires the event in the background.
func (s *Service) DispatchAsync(event Event) {
	if !s.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.send(ctx, event); err != nil {
			log.Warn().
				Err(err).
				Str("event", string(event.Type)).
				Str("request_id", event.RequestID).
				Msg("Webhook notification failed")
			return
		}
		log.Info().
			Str("event", string(event.Type)).
			Str("request_id", event.RequestID).
			Msg("Webhook notification dispatched")
	}()
}

// send posts the event, signing the body when a secret is configured.
// The request is rebuilt per attempt so the body reader is fresh.
func (s *Service) send(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * s.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build webhook request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "Shiftcast-Webhook/1.0")
		req.Header.Set("X-Shiftcast-Event", string(event.Type))
		if s.secret != "" {
			mac := hmac.New(sha256.New, []byte(s.secret))
			mac.Write(body)
			req.Header.Set("X-Shiftcast-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
		}

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("webhook HTTP %d from %s", resp.StatusCode, s.url)
	}
	return fmt.Errorf("webhook failed after %d attempts: %w", maxAttempts, lastErr)
}
