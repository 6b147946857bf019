package sessions

import (
	"errors"
	"testing"
)

func TestBeginAndGet(t *testing.T) {
	r := NewRegistry()
	r.Begin("run-1", "dinner")

	s := r.Get("run-1")
	if s == nil {
		t.Fatal("expected session run-1")
	}
	if s.State != StateRunning {
		t.Errorf("got state %q, want %q", s.State, StateRunning)
	}
	if s.Shift != "dinner" {
		t.Errorf("got shift %q, want %q", s.Shift, "dinner")
	}
	if s.StartedAt.IsZero() {
		t.Error("StartedAt should be set")
	}
	if s.FinishedAt != nil {
		t.Error("FinishedAt should be nil while running")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.Begin("run-1", "dinner")

	r.Get("run-1").State = StateFailed
	if got := r.Get("run-1").State; got != StateRunning {
		t.Errorf("mutating a returned session changed the registry: got %q", got)
	}
}

func TestGetUnknown(t *testing.T) {
	r := NewRegistry()
	if s := r.Get("missing"); s != nil {
		t.Errorf("got %+v, want nil", s)
	}
}

func TestComplete(t *testing.T) {
	r := NewRegistry()
	r.Begin("run-1", "lunch")
	r.Complete("run-1", "res-1", 0.91)

	s := r.Get("run-1")
	if s.State != StateCompleted {
		t.Errorf("got state %q, want %q", s.State, StateCompleted)
	}
	if s.ResultID != "res-1" {
		t.Errorf("got result id %q, want %q", s.ResultID, "res-1")
	}
	if s.BestScore != 0.91 {
		t.Errorf("got best score %v, want 0.91", s.BestScore)
	}
	if s.FinishedAt == nil {
		t.Error("FinishedAt should be set")
	}
}

func TestFail(t *testing.T) {
	r := NewRegistry()
	r.Begin("run-1", "breakfast")
	r.Fail("run-1", errors.New("model unavailable"))

	s := r.Get("run-1")
	if s.State != StateFailed {
		t.Errorf("got state %q, want %q", s.State, StateFailed)
	}
	if s.Error != "model unavailable" {
		t.Errorf("got error %q, want %q", s.Error, "model unavailable")
	}
	if s.FinishedAt == nil {
		t.Error("FinishedAt should be set")
	}
}

func TestCompleteUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Complete("missing", "res-x", 0.5)
	r.Fail("missing", errors.New("boom"))
	if got := len(r.List()); got != 0 {
		t.Errorf("got %d sessions, want 0", got)
	}
}

func TestListNewestFirst(t *testing.T) {
	r := NewRegistry()
	r.Begin("run-1", "breakfast")
	r.Begin("run-2", "lunch")
	r.Begin("run-3", "dinner")
	r.Complete("run-2", "res-2", 0.8)

	got := r.List()
	if len(got) != 3 {
		t.Fatalf("got %d sessions, want 3", len(got))
	}
	wantOrder := []string{"run-3", "run-2", "run-1"}
	for i, want := range wantOrder {
		if got[i].ID != want {
			t.Errorf("position %d: got %q, want %q", i, got[i].ID, want)
		}
	}
	if got[1].State != StateCompleted {
		t.Errorf("run-2 state: got %q, want %q", got[1].State, StateCompleted)
	}
}

func TestEvictionDropsOldestFinished(t *testing.T) {
	r := NewRegistry()
	r.limit = 3

	r.Begin("run-1", "dinner")
	r.Complete("run-1", "res-1", 0.7)
	r.Begin("run-2", "dinner")
	r.Begin("run-3", "dinner")
	r.Complete("run-3", "res-3", 0.8)

	// Registry is at the limit; run-1 is the oldest finished session
	// and should be evicted, run-2 is still running and must survive.
	r.Begin("run-4", "lunch")

	if r.Get("run-1") != nil {
		t.Error("run-1 should have been evicted")
	}
	if r.Get("run-2") == nil {
		t.Error("running session run-2 must not be evicted")
	}
	if r.Get("run-4") == nil {
		t.Error("run-4 should be registered")
	}
	if got := len(r.List()); got != 3 {
		t.Errorf("got %d sessions, want 3", got)
	}
}

func TestEvictionSparesAllRunning(t *testing.T) {
	r := NewRegistry()
	r.limit = 2

	r.Begin("run-1", "dinner")
	r.Begin("run-2", "dinner")
	// All sessions are running, so the registry grows past the limit
	// rather than dropping an in-flight run.
	r.Begin("run-3", "dinner")

	for _, id := range []string{"run-1", "run-2", "run-3"} {
		if r.Get(id) == nil {
			t.Errorf("session %s should survive", id)
		}
	}
}
