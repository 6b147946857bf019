// Package planner implements the iterative staffing decision loop.
//
// One planning session runs:
//
//	analyze demand + capacity → shared context →
//	operator proposes initial plan → simulate → score →
//	repeat up to MaxRefinements: shadow operator refines the best plan
//	using synthesized feedback → simulate → score → keep if strictly
//	better → stop early once the best aggregate reaches TargetScore.
//
// Every reasoning call goes through the retry envelope in
// internal/reasoning. Context analysis degrades to fixed fallbacks;
// the initial plan is fatal on failure; a failed refinement round is
// skipped with the running best unchanged.
package planner

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shiftcast/shiftcast/internal/reasoning"
	"github.com/shiftcast/shiftcast/pkg/models"
)

var tracer = otel.Tracer("shiftcast")

// Loop defaults, applied when Options leaves them zero.
const (
	DefaultMaxRefinements = 2
	DefaultTargetScore    = 0.95
	defaultTemperature    = 0.5
	defaultMaxTokens      = 8192
)

// Options configure a Planner.
type Options struct {
	Invoker reasoning.Invoker
	Retry   reasoning.Policy

	// Generation parameters for the plan, simulation, and evaluation
	// stages. Analyzer and scorer stages pin their own.
	Temperature     float64
	MaxOutputTokens int

	// Loop bounds.
	MaxRefinements int
	TargetScore    float64

	// Clock and id source, overridable in tests.
	Now   func() time.Time
	NewID func() string
}

// Planner sequences the staffing decision loop. It owns no session
// state; every PlanShift call carries its own best-candidate and
// trace, so sessions can run concurrently on one Planner.
type Planner struct {
	invoker reasoning.Invoker
	retry   reasoning.Policy

	temperature float64
	maxTokens   int
	maxRounds   int
	targetScore float64

	now   func() time.Time
	newID func() string
}

// New builds a Planner, filling unset options with defaults.
func New(opts Options) *Planner {
	p := &Planner{
		invoker:     opts.Invoker,
		retry:       opts.Retry,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxOutputTokens,
		maxRounds:   opts.MaxRefinements,
		targetScore: opts.TargetScore,
		now:         opts.Now,
		newID:       opts.NewID,
	}
	if p.retry.MaxAttempts == 0 {
		p.retry = reasoning.DefaultPolicy()
	}
	if p.temperature == 0 {
		p.temperature = defaultTemperature
	}
	if p.maxTokens == 0 {
		p.maxTokens = defaultMaxTokens
	}
	if p.maxRounds == 0 {
		p.maxRounds = DefaultMaxRefinements
	}
	if p.targetScore == 0 {
		p.targetScore = DefaultTargetScore
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	return p
}

// PlanShift runs one complete planning session and returns the final
// selection with its full audit trail. The request is validated before
// any reasoning call is made.
func (p *Planner) PlanShift(ctx context.Context, req models.PlanningRequest) (*models.PlanningResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	requestID := p.newID()
	startedAt := p.now()

	ctx, span := tracer.Start(ctx, "planner.plan_shift",
		trace.WithAttributes(
			attribute.String("planning.request_id", requestID),
			attribute.String("planning.shift", string(req.Scenario.Shift)),
		))
	defer span.End()

	constraints := req.Constraints
	if constraints == nil {
		constraints = models.DefaultConstraints()
	}
	targets := req.AlignmentTargets
	if targets == nil {
		targets = models.DefaultAlignmentTargets()
	}

	log.Info().
		Str("request_id", requestID).
		Str("shift", string(req.Scenario.Shift)).
		Str("day", req.Scenario.DayOfWeek).
		Str("weather", string(req.Scenario.Weather)).
		Str("priority", string(req.OperatorPriority)).
		Msg("Planning session started")

	// Context analysis. Both documents are advisory; failures inside
	// degrade to fallbacks, never abort the session.
	demand := p.analyzeDemand(ctx, req.Scenario)
	capacity := p.analyzeCapacity(ctx, req.Scenario.Restaurant)
	shared := sharedContext(demand, capacity)

	log.Info().
		Str("request_id", requestID).
		Float64("demand_multiplier", demand.DemandMultiplier).
		Int("max_throughput", capacity.MaxThroughputPerHour).
		Msg("Context analysis complete")

	// Initial plan. Failure here means no candidate at all, which is
	// fatal to the run.
	initialPlan, err := p.generateInitialPlan(ctx, req.Scenario, constraints, req.OperatorPriority, shared)
	if err != nil {
		return nil, fmt.Errorf("initial plan: %w", err)
	}
	initialEval, err := p.evaluateCandidate(ctx, req.Scenario, initialPlan, targets, shared)
	if err != nil {
		return nil, fmt.Errorf("initial plan evaluation: %w", err)
	}

	best := initialEval
	bestScore := best.Scores.Aggregate()
	completed := 1 // generate-simulate-score cycles finished so far
	feedback := synthesizeFeedback(completed, best)

	log.Info().
		Str("request_id", requestID).
		Str("plan_id", initialPlan.ID).
		Int("staffing_total", initialPlan.Staffing.Total).
		Float64("score", bestScore).
		Msg("Initial operator plan evaluated")

	// Refinement loop. The trace records every completed round,
	// improvements and regressions alike; a failed round leaves no
	// entry and keeps the running best.
	var iterations []models.IterationTrace
	for round := 1; round <= p.maxRounds; round++ {
		eval, err := p.refineOnce(ctx, req.Scenario, constraints, feedback, best.Option, shared, targets)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			log.Warn().
				Err(err).
				Str("request_id", requestID).
				Int("round", round).
				Msg("Refinement round failed, keeping current best")
			continue
		}

		completed++
		iterations = append(iterations, models.IterationTrace{
			IterationNumber: round,
			Evaluations:     []models.OptionEvaluation{*eval},
			Feedback:        feedback,
		})

		score := eval.Scores.Aggregate()
		if score > bestScore {
			best = eval
			bestScore = score
		}

		log.Info().
			Str("request_id", requestID).
			Int("round", round).
			Str("plan_id", eval.Option.ID).
			Float64("score", score).
			Float64("best_score", bestScore).
			Msg("Refinement round complete")

		if bestScore >= p.targetScore {
			log.Info().
				Str("request_id", requestID).
				Float64("best_score", bestScore).
				Msg("Target score reached, stopping refinement early")
			break
		}
		if round < p.maxRounds {
			feedback = synthesizeFeedback(completed, best)
		}
	}

	elapsed := p.now().Sub(startedAt)
	span.SetAttributes(
		attribute.Float64("planning.best_score", bestScore),
		attribute.Int("planning.rounds", len(iterations)),
	)

	log.Info().
		Str("request_id", requestID).
		Float64("best_score", bestScore).
		Int("rounds", len(iterations)).
		Dur("elapsed", elapsed).
		Msg("Planning session complete")

	return &models.PlanningResponse{
		RequestID:              requestID,
		Timestamp:              p.now(),
		Scenario:               req.Scenario,
		RestaurantOperatorPlan: initialEval,
		ShadowOperatorBestPlan: best,
		Iterations:             iterations,
		DemandAnalysis:         demand,
		CapacityAnalysis:       capacity,
		ExecutionTimeSeconds:   math.Round(elapsed.Seconds()*100) / 100,
	}, nil
}

// refineOnce runs one full refinement round: refine, simulate, score.
func (p *Planner) refineOnce(ctx context.Context, scenario models.Scenario, constraints *models.Constraints, feedback string, previous models.StaffingPlan, shared string, targets *models.AlignmentTargets) (*models.OptionEvaluation, error) {
	plan, err := p.generateRefinedPlan(ctx, scenario, constraints, feedback, previous, shared)
	if err != nil {
		return nil, err
	}
	return p.evaluateCandidate(ctx, scenario, plan, targets, shared)
}

// evaluateCandidate simulates a plan and scores the outcome, yielding
// the atomic unit the loop compares across rounds.
func (p *Planner) evaluateCandidate(ctx context.Context, scenario models.Scenario, plan *models.StaffingPlan, targets *models.AlignmentTargets, shared string) (*models.OptionEvaluation, error) {
	sim, err := p.simulate(ctx, scenario, plan.Staffing, shared)
	if err != nil {
		return nil, err
	}
	scores, err := p.score(ctx, scenario, *plan, sim, targets)
	if err != nil {
		return nil, err
	}
	return &models.OptionEvaluation{
		Option:     *plan,
		Simulation: *sim,
		Scores:     *scores,
	}, nil
}

// synthesizeFeedback builds the corrective prompt text for the next
// refinement round from the current best evaluation. attempt counts
// completed generate-simulate-score cycles, so the initial plan is
// attempt 1.
func synthesizeFeedback(attempt int, best *models.OptionEvaluation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Attempt %d result: Score %.3f. ", attempt, best.Scores.Aggregate())
	if len(best.Simulation.Bottlenecks) > 0 {
		fmt.Fprintf(&sb, "Bottlenecks identified: %s. ", strings.Join(best.Simulation.Bottlenecks, ", "))
	}
	if len(best.Scores.Weaknesses) > 0 {
		fmt.Fprintf(&sb, "Weaknesses: %s. ", strings.Join(best.Scores.Weaknesses, ", "))
	}
	sb.WriteString("Please adjust staffing to address these specific issues.")
	return sb.String()
}
