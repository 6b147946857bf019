// Package store: in-memory Store implementation.
// Used when PostgreSQL is not configured (local dev, tests).
// Supports file-based snapshot persistence so data survives restarts.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shiftcast/shiftcast/pkg/models"
)

// defaultListLimit caps ListPlans when the caller passes no limit.
const defaultListLimit = 100

// snapshot is the JSON-serializable shape written to disk.
type snapshot struct {
	Plans       map[string]*models.PlanningResponse   `json:"plans"`
	Evaluations map[string]*models.EvaluationResponse `json:"evaluations"`
}

// MemoryStore implements Store with in-memory maps.
type MemoryStore struct {
	mu          sync.RWMutex
	plans       map[string]*models.PlanningResponse   // key: request_id
	evaluations map[string]*models.EvaluationResponse // key: request_id

	// Persistence
	snapshotPath string        // empty = no persistence
	saveMu       sync.Mutex    // guards file writes
	saveCh       chan struct{} // debounce channel
	doneCh       chan struct{} // signals background goroutines to stop
}

// NewMemoryStore creates a new in-memory store. If snapshotPath is
// non-empty, data is persisted to that JSON file and reloaded on the
// next start.
func NewMemoryStore(snapshotPath string) *MemoryStore {
	m := &MemoryStore{
		plans:        make(map[string]*models.PlanningResponse),
		evaluations:  make(map[string]*models.EvaluationResponse),
		snapshotPath: snapshotPath,
		saveCh:       make(chan struct{}, 1),
		doneCh:       make(chan struct{}),
	}

	if m.snapshotPath != "" {
		if dir := filepath.Dir(m.snapshotPath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				log.Warn().Err(err).Str("dir", dir).Msg("Cannot create data dir, persistence disabled")
				m.snapshotPath = ""
			}
		}
	}

	if m.snapshotPath != "" {
		m.loadSnapshot()
		// Background save goroutine (debounced)
		go m.saveLoop()
	}

	log.Info().Str("snapshot", m.snapshotPath).Msg("Memory store configured")
	return m
}

// requestSave signals the background goroutine to persist data.
// Non-blocking: coalesces multiple rapid writes into one disk flush.
func (m *MemoryStore) requestSave() {
	if m.snapshotPath == "" {
		return
	}
	select {
	case m.saveCh <- struct{}{}:
	default:
		// Already pending
	}
}

// saveLoop runs in a goroutine, debouncing save requests (max 1 write per 500ms).
func (m *MemoryStore) saveLoop() {
	for {
		select {
		case <-m.doneCh:
			return
		case <-m.saveCh:
			time.Sleep(500 * time.Millisecond) // debounce
			m.saveSnapshot()
		}
	}
}

// saveSnapshot persists all data to disk as JSON.
func (m *MemoryStore) saveSnapshot() {
	m.mu.RLock()
	snap := snapshot{
		Plans:       m.plans,
		Evaluations: m.evaluations,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	m.mu.RUnlock()

	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal snapshot")
		return
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	// Write to temp file then rename for atomicity
	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.Error().Err(err).Str("path", tmp).Msg("Failed to write snapshot tmp")
		return
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Failed to rename snapshot")
		return
	}

	log.Debug().Str("path", m.snapshotPath).Msg("Snapshot saved")
}

// loadSnapshot reads data from disk on startup.
func (m *MemoryStore) loadSnapshot() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", m.snapshotPath).Msg("No snapshot file found, starting fresh")
			return
		}
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Failed to read snapshot")
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Failed to parse snapshot, starting fresh")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if snap.Plans != nil {
		m.plans = snap.Plans
	}
	if snap.Evaluations != nil {
		m.evaluations = snap.Evaluations
	}

	log.Info().
		Int("plans", len(m.plans)).
		Int("evaluations", len(m.evaluations)).
		Str("path", m.snapshotPath).
		Msg("Snapshot loaded")
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Close stops the background goroutine and forces a final snapshot
// write. Safe to call multiple times (second call is a no-op).
func (m *MemoryStore) Close() error {
	select {
	case <-m.doneCh:
		// Already closed
		return nil
	default:
		close(m.doneCh)
	}

	// Force a final snapshot write so no in-flight data is lost
	if m.snapshotPath != "" {
		m.saveSnapshot()
	}

	log.Info().Msg("Memory store closed")
	return nil
}

// ── Plan Store ──────────────────────────────────────────────

func (m *MemoryStore) SavePlan(_ context.Context, plan *models.PlanningResponse) error {
	m.mu.Lock()
	copy := *plan
	m.plans[plan.RequestID] = &copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) GetPlan(_ context.Context, id string) (*models.PlanningResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "plan", Key: id}
	}
	copy := *p
	return &copy, nil
}

func (m *MemoryStore) ListPlans(_ context.Context, limit int) ([]PlanSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	m.mu.RLock()
	summaries := make([]PlanSummary, 0, len(m.plans))
	for _, p := range m.plans {
		summaries = append(summaries, summarize(p))
	}
	m.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Timestamp.After(summaries[j].Timestamp)
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (m *MemoryStore) DeletePlansBefore(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	var deleted int
	for id, p := range m.plans {
		if p.Timestamp.Before(cutoff) {
			delete(m.plans, id)
			deleted++
		}
	}
	m.mu.Unlock()

	if deleted > 0 {
		m.requestSave()
	}
	return deleted, nil
}

// ── Evaluation Store ────────────────────────────────────────

func (m *MemoryStore) SaveEvaluation(_ context.Context, eval *models.EvaluationResponse) error {
	m.mu.Lock()
	copy := *eval
	m.evaluations[eval.RequestID] = &copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) GetEvaluation(_ context.Context, id string) (*models.EvaluationResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.evaluations[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "evaluation", Key: id}
	}
	copy := *e
	return &copy, nil
}

func (m *MemoryStore) DeleteEvaluationsBefore(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	var deleted int
	for id, e := range m.evaluations {
		if e.Timestamp.Before(cutoff) {
			delete(m.evaluations, id)
			deleted++
		}
	}
	m.mu.Unlock()

	if deleted > 0 {
		m.requestSave()
	}
	return deleted, nil
}
