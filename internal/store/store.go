// Package store persists completed planning sessions and shift
// evaluations. The memory driver (default) keeps everything in maps
// with a JSON snapshot on disk; the postgres driver stores the same
// records as JSONB rows.
package store

import (
	"context"
	"time"

	"github.com/shiftcast/shiftcast/pkg/models"
)

// Store is the primary storage interface for the planning service.
// All handler and worker code depends on this interface, making it
// easy to swap between in-memory (default, tests) and PostgreSQL
// (production) implementations.
type Store interface {
	PlanStore
	EvaluationStore

	// Ping checks if the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}

// ── Plan Store ──────────────────────────────────────────────

// PlanStore persists completed planning sessions keyed by request ID.
type PlanStore interface {
	SavePlan(ctx context.Context, plan *models.PlanningResponse) error
	GetPlan(ctx context.Context, id string) (*models.PlanningResponse, error)

	// ListPlans returns newest-first summaries, at most limit entries.
	ListPlans(ctx context.Context, limit int) ([]PlanSummary, error)

	// DeletePlansBefore removes sessions older than cutoff and reports
	// how many were removed.
	DeletePlansBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// PlanSummary is the listing row for stored planning sessions.
type PlanSummary struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Shift     string    `json:"shift"`
	DayOfWeek string    `json:"day_of_week"`
	Weather   string    `json:"weather"`
	Location  string    `json:"location"`
	BestScore float64   `json:"best_score"`
}

// ── Evaluation Store ────────────────────────────────────────

// EvaluationStore persists post-shift evaluations keyed by request ID.
type EvaluationStore interface {
	SaveEvaluation(ctx context.Context, eval *models.EvaluationResponse) error
	GetEvaluation(ctx context.Context, id string) (*models.EvaluationResponse, error)
	DeleteEvaluationsBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned when a requested record does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}

// summarize builds the listing row for a stored planning session.
func summarize(p *models.PlanningResponse) PlanSummary {
	s := PlanSummary{
		RequestID: p.RequestID,
		Timestamp: p.Timestamp,
		Shift:     string(p.Scenario.Shift),
		DayOfWeek: p.Scenario.DayOfWeek,
		Weather:   string(p.Scenario.Weather),
		Location:  p.Scenario.Restaurant.Location,
	}
	if best := p.BestEvaluation(); best != nil {
		s.BestScore = best.Scores.Aggregate()
	}
	return s
}
