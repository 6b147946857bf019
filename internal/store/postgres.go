// Package store: PostgreSQL Store implementation backed by pgx.
// Sessions and evaluations are stored as JSONB payloads alongside a
// few promoted columns used by listing and retention queries.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/shiftcast/shiftcast/pkg/models"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL and creates the required
// tables if they don't exist.
func NewPostgresStore(ctx context.Context, connURL string, maxConns int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connURL)
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}

	log.Info().Int("max_conns", maxConns).Msg("Postgres store initialized")
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS shiftcast_plans (
			request_id  TEXT PRIMARY KEY,
			created_at  TIMESTAMPTZ NOT NULL,
			shift       TEXT NOT NULL DEFAULT '',
			day_of_week TEXT NOT NULL DEFAULT '',
			weather     TEXT NOT NULL DEFAULT '',
			location    TEXT NOT NULL DEFAULT '',
			best_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
			payload     JSONB NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_shiftcast_plans_created ON shiftcast_plans (created_at DESC);

		CREATE TABLE IF NOT EXISTS shiftcast_evaluations (
			request_id         TEXT PRIMARY KEY,
			created_at         TIMESTAMPTZ NOT NULL,
			prediction_quality TEXT NOT NULL DEFAULT '',
			payload            JSONB NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_shiftcast_evaluations_created ON shiftcast_evaluations (created_at DESC);
	`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// ── Plan Store ──────────────────────────────────────────────

func (s *PostgresStore) SavePlan(ctx context.Context, plan *models.PlanningResponse) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	sum := summarize(plan)

	_, err = s.pool.Exec(ctx, `
		INSERT INTO shiftcast_plans (request_id, created_at, shift, day_of_week, weather, location, best_score, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (request_id) DO UPDATE SET
			created_at  = EXCLUDED.created_at,
			shift       = EXCLUDED.shift,
			day_of_week = EXCLUDED.day_of_week,
			weather     = EXCLUDED.weather,
			location    = EXCLUDED.location,
			best_score  = EXCLUDED.best_score,
			payload     = EXCLUDED.payload`,
		sum.RequestID, sum.Timestamp, sum.Shift, sum.DayOfWeek, sum.Weather, sum.Location, sum.BestScore, payload)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPlan(ctx context.Context, id string) (*models.PlanningResponse, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, "SELECT payload FROM shiftcast_plans WHERE request_id = $1", id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ErrNotFound{Entity: "plan", Key: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	var plan models.PlanningResponse
	if err := json.Unmarshal(payload, &plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}
	return &plan, nil
}

func (s *PostgresStore) ListPlans(ctx context.Context, limit int) ([]PlanSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.pool.Query(ctx, `
		SELECT request_id, created_at, shift, day_of_week, weather, location, best_score
		FROM shiftcast_plans
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var summaries []PlanSummary
	for rows.Next() {
		var row PlanSummary
		if err := rows.Scan(&row.RequestID, &row.Timestamp, &row.Shift, &row.DayOfWeek, &row.Weather, &row.Location, &row.BestScore); err != nil {
			return nil, fmt.Errorf("scan plan summary: %w", err)
		}
		summaries = append(summaries, row)
	}
	return summaries, rows.Err()
}

func (s *PostgresStore) DeletePlansBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM shiftcast_plans WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete plans: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ── Evaluation Store ────────────────────────────────────────

func (s *PostgresStore) SaveEvaluation(ctx context.Context, eval *models.EvaluationResponse) error {
	payload, err := json.Marshal(eval)
	if err != nil {
		return fmt.Errorf("encode evaluation: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO shiftcast_evaluations (request_id, created_at, prediction_quality, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (request_id) DO UPDATE SET
			created_at         = EXCLUDED.created_at,
			prediction_quality = EXCLUDED.prediction_quality,
			payload            = EXCLUDED.payload`,
		eval.RequestID, eval.Timestamp, eval.PredictionQuality, payload)
	if err != nil {
		return fmt.Errorf("save evaluation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEvaluation(ctx context.Context, id string) (*models.EvaluationResponse, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, "SELECT payload FROM shiftcast_evaluations WHERE request_id = $1", id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ErrNotFound{Entity: "evaluation", Key: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get evaluation: %w", err)
	}

	var eval models.EvaluationResponse
	if err := json.Unmarshal(payload, &eval); err != nil {
		return nil, fmt.Errorf("decode evaluation: %w", err)
	}
	return &eval, nil
}

func (s *PostgresStore) DeleteEvaluationsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM shiftcast_evaluations WHERE created_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete evaluations: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
