package retention_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shiftcast/shiftcast/internal/retention"
	"github.com/shiftcast/shiftcast/internal/store"
	"github.com/shiftcast/shiftcast/pkg/models"
)

func newSeededStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })
	return s
}

func seedPlan(t *testing.T, s store.Store, id string, ts time.Time) {
	t.Helper()
	err := s.SavePlan(context.Background(), &models.PlanningResponse{
		RequestID: id,
		Timestamp: ts,
		Scenario:  models.Scenario{Shift: models.ShiftDinner, DayOfWeek: "friday"},
	})
	if err != nil {
		t.Fatalf("seed plan %s: %v", id, err)
	}
}

func seedEvaluation(t *testing.T, s store.Store, id string, ts time.Time) {
	t.Helper()
	err := s.SaveEvaluation(context.Background(), &models.EvaluationResponse{
		RequestID:         id,
		Timestamp:         ts,
		PredictionQuality: "good",
	})
	if err != nil {
		t.Fatalf("seed evaluation %s: %v", id, err)
	}
}

func TestSweepDeletesExpiredRecords(t *testing.T) {
	s := newSeededStore(t)
	now := time.Now()
	seedPlan(t, s, "stale-plan", now.Add(-48*time.Hour))
	seedPlan(t, s, "fresh-plan", now.Add(-time.Hour))
	seedEvaluation(t, s, "stale-eval", now.Add(-72*time.Hour))
	seedEvaluation(t, s, "fresh-eval", now.Add(-time.Hour))

	j := retention.NewJanitor(s, 24*time.Hour, time.Hour)
	stats := j.Sweep(context.Background())

	if stats.PlansPurged != 1 {
		t.Errorf("got %d plans purged, want 1", stats.PlansPurged)
	}
	if stats.EvaluationsPurged != 1 {
		t.Errorf("got %d evaluations purged, want 1", stats.EvaluationsPurged)
	}
	if len(stats.Errors) != 0 {
		t.Errorf("got %d errors, want 0", len(stats.Errors))
	}

	var notFound *store.ErrNotFound
	if _, err := s.GetPlan(context.Background(), "stale-plan"); !errors.As(err, &notFound) {
		t.Errorf("stale plan should be deleted, got err %v", err)
	}
	if _, err := s.GetPlan(context.Background(), "fresh-plan"); err != nil {
		t.Errorf("fresh plan should survive, got err %v", err)
	}
	if _, err := s.GetEvaluation(context.Background(), "stale-eval"); !errors.As(err, &notFound) {
		t.Errorf("stale evaluation should be deleted, got err %v", err)
	}
	if _, err := s.GetEvaluation(context.Background(), "fresh-eval"); err != nil {
		t.Errorf("fresh evaluation should survive, got err %v", err)
	}
}

func TestSweepDisabledWithZeroAge(t *testing.T) {
	s := newSeededStore(t)
	seedPlan(t, s, "ancient", time.Now().Add(-365*24*time.Hour))

	j := retention.NewJanitor(s, 0, time.Hour)
	stats := j.Sweep(context.Background())

	if stats.PlansPurged != 0 || stats.EvaluationsPurged != 0 {
		t.Errorf("disabled sweep purged %d plans, %d evaluations, want none",
			stats.PlansPurged, stats.EvaluationsPurged)
	}
	if _, err := s.GetPlan(context.Background(), "ancient"); err != nil {
		t.Errorf("plan should survive disabled sweep, got err %v", err)
	}
}

func TestStartSweepsOnceThenStopsOnCancel(t *testing.T) {
	s := newSeededStore(t)
	seedPlan(t, s, "stale-plan", time.Now().Add(-48*time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	j := retention.NewJanitor(s, 24*time.Hour, time.Hour)
	done := make(chan struct{})
	go func() {
		j.Start(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}

	var notFound *store.ErrNotFound
	if _, err := s.GetPlan(context.Background(), "stale-plan"); !errors.As(err, &notFound) {
		t.Errorf("startup sweep should have deleted stale plan, got err %v", err)
	}
}
