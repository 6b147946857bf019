// Package retention sweeps expired planning results out of the store.
// Plans and evaluations older than the configured age are deleted. The
// sweep runs once at startup and then on a fixed interval until the
// context is canceled.
package retention

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shiftcast/shiftcast/internal/store"
)

// CycleStats tracks what happened in a single retention sweep.
type CycleStats struct {
	PlansPurged       int
	EvaluationsPurged int
	Errors            []error
}

// Janitor periodically deletes plans and evaluations older than maxAge.
type Janitor struct {
	store    store.Store
	maxAge   time.Duration
	interval time.Duration
}

// NewJanitor creates a retention janitor that sweeps on the given
// interval. A zero or negative maxAge disables deletion entirely.
func NewJanitor(s store.Store, maxAge, interval time.Duration) *Janitor {
	if interval < time.Minute {
		interval = time.Hour
	}
	return &Janitor{store: s, maxAge: maxAge, interval: interval}
}

// Start runs the janitor. It blocks until ctx is canceled.
func (j *Janitor) Start(ctx context.Context) {
	log.Info().
		Dur("interval", j.interval).
		Dur("max_result_age", j.maxAge).
		Msg("Retention janitor started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	j.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Retention janitor stopped")
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep performs one retention pass over plans and evaluations.
func (j *Janitor) Sweep(ctx context.Context) CycleStats {
	var stats CycleStats
	if j.maxAge <= 0 {
		return stats
	}

	start := time.Now()
	cutoff := start.Add(-j.maxAge)

	plans, err := j.store.DeletePlansBefore(ctx, cutoff)
	if err != nil {
		log.Warn().Err(err).Msg("Retention sweep: failed to delete expired plans")
		stats.Errors = append(stats.Errors, err)
	}
	stats.PlansPurged = plans

	evals, err := j.store.DeleteEvaluationsBefore(ctx, cutoff)
	if err != nil {
		log.Warn().Err(err).Msg("Retention sweep: failed to delete expired evaluations")
		stats.Errors = append(stats.Errors, err)
	}
	stats.EvaluationsPurged = evals

	if stats.PlansPurged > 0 || stats.EvaluationsPurged > 0 {
		log.Info().
			Int("purged_plans", stats.PlansPurged).
			Int("purged_evaluations", stats.EvaluationsPurged).
			Time("cutoff", cutoff).
			Dur("elapsed", time.Since(start)).
			Msg("Retention sweep complete")
	}
	return stats
}
