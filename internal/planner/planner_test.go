package planner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shiftcast/shiftcast/internal/reasoning"
	"github.com/shiftcast/shiftcast/pkg/models"
)

// ── Scripted reasoning driver ────────────────────────────────

// scriptedCall is one expected reasoning call and its canned outcome.
type scriptedCall struct {
	stage string
	out   string
	err   error
}

// scriptedInvoker replays a fixed call script in order, failing the
// test on any deviation. Inputs are recorded per stage so tests can
// assert on prompt contents.
type scriptedInvoker struct {
	t      *testing.T
	script []scriptedCall
	calls  int
	inputs map[string][]string
}

func newScripted(t *testing.T, script ...scriptedCall) *scriptedInvoker {
	return &scriptedInvoker{t: t, script: script, inputs: map[string][]string{}}
}

func (s *scriptedInvoker) Invoke(_ context.Context, spec reasoning.PromptSpec, input string) (string, error) {
	s.t.Helper()
	if s.calls >= len(s.script) {
		s.t.Fatalf("unexpected reasoning call %d to stage %q", s.calls+1, spec.Stage)
	}
	call := s.script[s.calls]
	s.calls++
	if spec.Stage != call.stage {
		s.t.Fatalf("call %d: got stage %q, want %q", s.calls, spec.Stage, call.stage)
	}
	s.inputs[spec.Stage] = append(s.inputs[spec.Stage], input)
	return call.out, call.err
}

func (s *scriptedInvoker) assertDrained(t *testing.T) {
	t.Helper()
	if s.calls != len(s.script) {
		t.Fatalf("script not drained: %d of %d calls made", s.calls, len(s.script))
	}
}

// testPlanner wires a planner with a single-attempt retry policy so
// no test ever sleeps, plus a fixed clock and id source.
func testPlanner(inv reasoning.Invoker, opts ...func(*Options)) *Planner {
	o := Options{
		Invoker: inv,
		Retry: reasoning.Policy{
			MaxAttempts:       1,
			InitialBackoff:    time.Millisecond,
			BackoffMultiplier: 2.0,
			MaxBackoff:        time.Millisecond,
		},
		Now:   func() time.Time { return time.Date(2026, 8, 21, 17, 0, 0, 0, time.UTC) },
		NewID: func() string { return "req-test" },
	}
	for _, fn := range opts {
		fn(&o)
	}
	return New(o)
}

// ── Canned payloads ──────────────────────────────────────────

const demandPayload = `{
  "demand_multiplier": 1.3,
  "channel_preference": {"drive_thru": 1.25, "dine_in": 0.9},
  "context_factors": ["Friday rush implies high peak load at 6PM"]
}`

const capacityPayload = `{
  "max_throughput_per_hour": 140,
  "station_capacities": {"kitchen": 80, "drive_thru": 60, "dine_in": 50},
  "infrastructure_constraints": ["Two drive-thru lanes available"]
}`

func planPayload(id string, driveThru, kitchen, front int) string {
	// Wire total is deliberately wrong; decode must recompute it.
	return fmt.Sprintf(`{
  "id": %q,
  "strategy": "balanced",
  "estimated_total_guest": 420,
  "estimated_peak_guest": 130,
  "staffing": {"drive_thru": %d, "kitchen": %d, "front_counter": %d, "total": 99},
  "estimated_labor_cost": 840.0,
  "risk_level": "medium",
  "rationale": "standard allocation for a busy dinner"
}`, id, driveThru, kitchen, front)
}

func simPayload(bottlenecks ...string) string {
	quoted := make([]string, len(bottlenecks))
	for i, b := range bottlenecks {
		quoted[i] = fmt.Sprintf("%q", b)
	}
	return fmt.Sprintf(`{
  "predicted_metrics": {
    "customers_served": 380,
    "revenue": 6800.0,
    "avg_wait_time_seconds": 210,
    "peak_wait_time_seconds": 420,
    "max_queue_length": 9,
    "labor_cost": 900.0,
    "food_cost": 1904.0,
    "staff_utilization": 0.87,
    "order_accuracy": 0.96
  },
  "key_events": ["6:00 PM: Rush begins"],
  "bottlenecks": [%s],
  "confidence": 0.85
}`, strings.Join(quoted, ", "))
}

func scoresPayload(profit, customer, staff float64, weaknesses ...string) string {
	quoted := make([]string, len(weaknesses))
	for i, w := range weaknesses {
		quoted[i] = fmt.Sprintf("%q", w)
	}
	return fmt.Sprintf(`{
  "profit": {"raw_score": %g, "deviation": 2.1, "weighted": %g},
  "customer_satisfaction": {"raw_score": %g, "deviation": 30, "weighted": %g},
  "staff_wellbeing": {"raw_score": %g, "deviation": 0.05, "weighted": %g},
  "ranking": "good",
  "strengths": ["kitchen fully covered"],
  "weaknesses": [%s],
  "recommendation": "rebalance front counter toward drive-thru"
}`, profit, profit, customer, customer, staff, staff, strings.Join(quoted, ", "))
}

func dinnerRequest() models.PlanningRequest {
	return models.PlanningRequest{
		Scenario: models.Scenario{
			Shift:         models.ShiftDinner,
			Date:          "2026-08-21",
			DayOfWeek:     "friday",
			Weather:       models.WeatherRainy,
			SpecialEvents: []string{"friday_rush"},
			Restaurant: models.RestaurantConfig{
				Location:           "downtown",
				HasDriveThru:       true,
				DriveThruLanes:     2,
				KitchenCapacity:    models.KitchenMedium,
				DineIn:             true,
				DineInSeatCapacity: 50,
			},
		},
		Constraints: &models.Constraints{AvailableStaff: 15, BudgetHours: 60},
	}
}

func closeTo(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// ── PlanShift ────────────────────────────────────────────────

func TestPlanShiftImprovesAcrossRounds(t *testing.T) {
	inv := newScripted(t,
		scriptedCall{stage: stageDemand, out: demandPayload},
		scriptedCall{stage: stageCapacity, out: capacityPayload},
		scriptedCall{stage: stageGenerate, out: planPayload("plan-initial", 4, 5, 3)},
		scriptedCall{stage: stageSimulate, out: simPayload("Kitchen overwhelmed 6:00-7:00 PM")},
		scriptedCall{stage: stageScore, out: scoresPayload(0.7, 0.7, 0.7, "labor cost above target")},
		scriptedCall{stage: stageRefine, out: planPayload("plan-r1", 4, 6, 3)},
		scriptedCall{stage: stageSimulate, out: simPayload()},
		scriptedCall{stage: stageScore, out: scoresPayload(0.9, 0.8, 0.85)},
		scriptedCall{stage: stageRefine, out: planPayload("plan-r2", 5, 6, 3)},
		scriptedCall{stage: stageSimulate, out: simPayload()},
		scriptedCall{stage: stageScore, out: scoresPayload(0.97, 0.96, 0.95)},
	)
	p := testPlanner(inv)

	resp, err := p.PlanShift(context.Background(), dinnerRequest())
	if err != nil {
		t.Fatalf("PlanShift: %v", err)
	}
	inv.assertDrained(t)

	if resp.RequestID != "req-test" {
		t.Errorf("request id = %q, want req-test", resp.RequestID)
	}
	if resp.RestaurantOperatorPlan == nil || resp.RestaurantOperatorPlan.Option.ID != "plan-initial" {
		t.Fatalf("initial evaluation missing or wrong: %+v", resp.RestaurantOperatorPlan)
	}
	if got := resp.RestaurantOperatorPlan.Option.Staffing.Total; got != 12 {
		t.Errorf("initial staffing total = %d, want 12 (wire value must be recomputed)", got)
	}
	if resp.ShadowOperatorBestPlan == nil || resp.ShadowOperatorBestPlan.Option.ID != "plan-r2" {
		t.Fatalf("best plan = %+v, want plan-r2", resp.ShadowOperatorBestPlan)
	}

	initial := resp.RestaurantOperatorPlan.Scores.Aggregate()
	best := resp.ShadowOperatorBestPlan.Scores.Aggregate()
	if best < initial {
		t.Errorf("best aggregate %.3f < initial %.3f, best-so-far must never regress", best, initial)
	}
	if !closeTo(initial, 0.7) {
		t.Errorf("initial aggregate = %v, want 0.7", initial)
	}

	if len(resp.Iterations) != 2 {
		t.Fatalf("iterations = %d, want 2", len(resp.Iterations))
	}
	if resp.Iterations[0].IterationNumber != 1 || resp.Iterations[1].IterationNumber != 2 {
		t.Errorf("iteration numbers = %d, %d, want 1, 2",
			resp.Iterations[0].IterationNumber, resp.Iterations[1].IterationNumber)
	}
	if !strings.HasPrefix(resp.Iterations[0].Feedback, "Attempt 1 result: Score 0.700. ") {
		t.Errorf("round 1 feedback = %q", resp.Iterations[0].Feedback)
	}
	if !strings.HasPrefix(resp.Iterations[1].Feedback, "Attempt 2 result: Score 0.850. ") {
		t.Errorf("round 2 feedback = %q", resp.Iterations[1].Feedback)
	}

	if resp.DemandAnalysis == nil || !closeTo(resp.DemandAnalysis.DemandMultiplier, 1.3) {
		t.Errorf("demand analysis not propagated: %+v", resp.DemandAnalysis)
	}
	if resp.CapacityAnalysis == nil || resp.CapacityAnalysis.MaxThroughputPerHour != 140 {
		t.Errorf("capacity analysis not propagated: %+v", resp.CapacityAnalysis)
	}

	// Shared context and feedback must reach the downstream prompts.
	genInput := inv.inputs[stageGenerate][0]
	if !strings.Contains(genInput, "CONTEXT ANALYSIS:") || !strings.Contains(genInput, "1.3") {
		t.Errorf("generate prompt missing shared context:\n%s", genInput)
	}
	if !strings.Contains(genInput, "OPERATOR PRIORITY: balanced") {
		t.Errorf("generate prompt missing defaulted priority:\n%s", genInput)
	}
	refineInput := inv.inputs[stageRefine][0]
	if !strings.Contains(refineInput, "Kitchen overwhelmed 6:00-7:00 PM") ||
		!strings.Contains(refineInput, "labor cost above target") {
		t.Errorf("refine prompt missing feedback details:\n%s", refineInput)
	}
	if !strings.Contains(refineInput, `"plan-initial"`) {
		t.Errorf("refine prompt missing previous plan:\n%s", refineInput)
	}
}

func TestPlanShiftStopsEarlyAtTargetScore(t *testing.T) {
	inv := newScripted(t,
		scriptedCall{stage: stageDemand, out: demandPayload},
		scriptedCall{stage: stageCapacity, out: capacityPayload},
		scriptedCall{stage: stageGenerate, out: planPayload("plan-initial", 4, 5, 3)},
		scriptedCall{stage: stageSimulate, out: simPayload()},
		scriptedCall{stage: stageScore, out: scoresPayload(0.7, 0.7, 0.7)},
		scriptedCall{stage: stageRefine, out: planPayload("plan-r1", 5, 6, 3)},
		scriptedCall{stage: stageSimulate, out: simPayload()},
		scriptedCall{stage: stageScore, out: scoresPayload(0.96, 0.96, 0.96)},
	)
	p := testPlanner(inv, func(o *Options) { o.MaxRefinements = 5 })

	resp, err := p.PlanShift(context.Background(), dinnerRequest())
	if err != nil {
		t.Fatalf("PlanShift: %v", err)
	}
	inv.assertDrained(t)

	if len(resp.Iterations) != 1 {
		t.Fatalf("iterations = %d, want 1 (early stop)", len(resp.Iterations))
	}
	if resp.ShadowOperatorBestPlan.Option.ID != "plan-r1" {
		t.Errorf("best plan = %s, want plan-r1", resp.ShadowOperatorBestPlan.Option.ID)
	}
}

func TestPlanShiftTieKeepsEarliestPlan(t *testing.T) {
	inv := newScripted(t,
		scriptedCall{stage: stageDemand, out: demandPayload},
		scriptedCall{stage: stageCapacity, out: capacityPayload},
		scriptedCall{stage: stageGenerate, out: planPayload("plan-initial", 4, 5, 3)},
		scriptedCall{stage: stageSimulate, out: simPayload()},
		scriptedCall{stage: stageScore, out: scoresPayload(0.9, 0.8, 0.85)},
		// Round 1 ties the initial aggregate exactly.
		scriptedCall{stage: stageRefine, out: planPayload("plan-r1", 5, 5, 2)},
		scriptedCall{stage: stageSimulate, out: simPayload()},
		scriptedCall{stage: stageScore, out: scoresPayload(0.9, 0.8, 0.85)},
		// Round 2 scores strictly worse.
		scriptedCall{stage: stageRefine, out: planPayload("plan-r2", 3, 5, 2)},
		scriptedCall{stage: stageSimulate, out: simPayload()},
		scriptedCall{stage: stageScore, out: scoresPayload(0.7, 0.7, 0.7)},
	)
	p := testPlanner(inv)

	resp, err := p.PlanShift(context.Background(), dinnerRequest())
	if err != nil {
		t.Fatalf("PlanShift: %v", err)
	}
	inv.assertDrained(t)

	if resp.ShadowOperatorBestPlan.Option.ID != "plan-initial" {
		t.Errorf("best plan = %s, want plan-initial (ties keep the earliest)",
			resp.ShadowOperatorBestPlan.Option.ID)
	}
	if len(resp.Iterations) != 2 {
		t.Errorf("iterations = %d, want 2 (worse rounds still traced)", len(resp.Iterations))
	}
	if !strings.HasPrefix(resp.Iterations[1].Feedback, "Attempt 2 result: Score 0.850. ") {
		t.Errorf("round 2 feedback = %q, want it synthesized from the unchanged best",
			resp.Iterations[1].Feedback)
	}
}

func TestPlanShiftSkipsFailedRefinementRound(t *testing.T) {
	inv := newScripted(t,
		scriptedCall{stage: stageDemand, out: demandPayload},
		scriptedCall{stage: stageCapacity, out: capacityPayload},
		scriptedCall{stage: stageGenerate, out: planPayload("plan-initial", 4, 5, 3)},
		scriptedCall{stage: stageSimulate, out: simPayload()},
		scriptedCall{stage: stageScore, out: scoresPayload(0.8, 0.8, 0.8)},
		// Round 1 refinement exhausts its quota budget.
		scriptedCall{stage: stageRefine, err: errors.New("429 too many requests")},
		// Round 2 succeeds.
		scriptedCall{stage: stageRefine, out: planPayload("plan-r2", 5, 6, 3)},
		scriptedCall{stage: stageSimulate, out: simPayload()},
		scriptedCall{stage: stageScore, out: scoresPayload(0.9, 0.9, 0.9)},
	)
	p := testPlanner(inv)

	resp, err := p.PlanShift(context.Background(), dinnerRequest())
	if err != nil {
		t.Fatalf("PlanShift: %v (failed rounds must not abort the run)", err)
	}
	inv.assertDrained(t)

	if len(resp.Iterations) != 1 {
		t.Fatalf("iterations = %d, want 1 (failed round leaves no trace entry)", len(resp.Iterations))
	}
	if resp.Iterations[0].IterationNumber != 2 {
		t.Errorf("iteration number = %d, want 2", resp.Iterations[0].IterationNumber)
	}
	if resp.ShadowOperatorBestPlan.Option.ID != "plan-r2" {
		t.Errorf("best plan = %s, want plan-r2", resp.ShadowOperatorBestPlan.Option.ID)
	}
	// The skipped round leaves feedback untouched for the next one.
	if got := inv.inputs[stageRefine][1]; !strings.Contains(got, "Attempt 1 result: Score 0.800. ") {
		t.Errorf("round 2 fed stale feedback, got:\n%s", got)
	}
}

func TestPlanShiftSkipsRoundOnSimulationFailure(t *testing.T) {
	inv := newScripted(t,
		scriptedCall{stage: stageDemand, out: demandPayload},
		scriptedCall{stage: stageCapacity, out: capacityPayload},
		scriptedCall{stage: stageGenerate, out: planPayload("plan-initial", 4, 5, 3)},
		scriptedCall{stage: stageSimulate, out: simPayload()},
		scriptedCall{stage: stageScore, out: scoresPayload(0.8, 0.8, 0.8)},
		scriptedCall{stage: stageRefine, out: planPayload("plan-r1", 4, 6, 3)},
		// Malformed simulation output: never retried, round skipped.
		scriptedCall{stage: stageSimulate, out: "not json at all"},
		scriptedCall{stage: stageRefine, out: planPayload("plan-r2", 5, 6, 3)},
		scriptedCall{stage: stageSimulate, out: simPayload()},
		scriptedCall{stage: stageScore, out: scoresPayload(0.85, 0.85, 0.85)},
	)
	p := testPlanner(inv)

	resp, err := p.PlanShift(context.Background(), dinnerRequest())
	if err != nil {
		t.Fatalf("PlanShift: %v", err)
	}
	inv.assertDrained(t)

	if len(resp.Iterations) != 1 || resp.Iterations[0].IterationNumber != 2 {
		t.Fatalf("iterations = %+v, want a single entry for round 2", resp.Iterations)
	}
	if resp.ShadowOperatorBestPlan.Option.ID != "plan-r2" {
		t.Errorf("best plan = %s, want plan-r2", resp.ShadowOperatorBestPlan.Option.ID)
	}
}

func TestPlanShiftInitialPlanFailureIsFatal(t *testing.T) {
	inv := newScripted(t,
		scriptedCall{stage: stageDemand, out: demandPayload},
		scriptedCall{stage: stageCapacity, out: capacityPayload},
		scriptedCall{stage: stageGenerate, out: "{not valid json"},
	)
	p := testPlanner(inv)

	resp, err := p.PlanShift(context.Background(), dinnerRequest())
	if err == nil {
		t.Fatal("PlanShift succeeded, want fatal error on malformed initial plan")
	}
	if resp != nil {
		t.Errorf("got partial response %+v, want nil", resp)
	}
	if !reasoning.IsMalformed(err) {
		t.Errorf("error = %v, want malformed-output kind", err)
	}
	// Malformed output is never retried: exactly one generate call.
	inv.assertDrained(t)
}

func TestPlanShiftInitialQuotaFailureIsFatal(t *testing.T) {
	inv := newScripted(t,
		scriptedCall{stage: stageDemand, out: demandPayload},
		scriptedCall{stage: stageCapacity, out: capacityPayload},
		scriptedCall{stage: stageGenerate, err: errors.New("429 resource exhausted")},
	)
	p := testPlanner(inv)

	_, err := p.PlanShift(context.Background(), dinnerRequest())
	if !reasoning.IsQuota(err) {
		t.Fatalf("error = %v, want quota kind", err)
	}
	inv.assertDrained(t)
}

func TestPlanShiftAnalyzerFailuresFallBack(t *testing.T) {
	inv := newScripted(t,
		scriptedCall{stage: stageDemand, err: errors.New("503 service unavailable")},
		scriptedCall{stage: stageCapacity, out: "garbage output"},
		scriptedCall{stage: stageGenerate, out: planPayload("plan-initial", 4, 5, 3)},
		scriptedCall{stage: stageSimulate, out: simPayload()},
		scriptedCall{stage: stageScore, out: scoresPayload(0.96, 0.96, 0.96)},
		scriptedCall{stage: stageRefine, out: planPayload("plan-r1", 5, 6, 3)},
		scriptedCall{stage: stageSimulate, out: simPayload()},
		scriptedCall{stage: stageScore, out: scoresPayload(0.96, 0.96, 0.96)},
	)
	p := testPlanner(inv)

	resp, err := p.PlanShift(context.Background(), dinnerRequest())
	if err != nil {
		t.Fatalf("PlanShift: %v (analyzer failures must not abort)", err)
	}
	inv.assertDrained(t)

	if !closeTo(resp.DemandAnalysis.DemandMultiplier, 1.0) {
		t.Errorf("demand multiplier = %v, want fallback 1.0", resp.DemandAnalysis.DemandMultiplier)
	}
	if resp.CapacityAnalysis.MaxThroughputPerHour != 100 {
		t.Errorf("max throughput = %d, want fallback 100", resp.CapacityAnalysis.MaxThroughputPerHour)
	}
	// The fallback documents still feed the shared context.
	if got := inv.inputs[stageGenerate][0]; !strings.Contains(got, "Default fallback capacities used") {
		t.Errorf("generate prompt missing fallback context:\n%s", got)
	}
}

func TestPlanShiftDefaultsConfidence(t *testing.T) {
	noConfidence := `{
  "predicted_metrics": {
    "customers_served": 380, "revenue": 6800.0, "avg_wait_time_seconds": 210,
    "peak_wait_time_seconds": 420, "max_queue_length": 9, "labor_cost": 900.0,
    "food_cost": 1904.0, "staff_utilization": 0.87, "order_accuracy": 0.96
  },
  "key_events": [], "bottlenecks": []
}`
	inv := newScripted(t,
		scriptedCall{stage: stageDemand, out: demandPayload},
		scriptedCall{stage: stageCapacity, out: capacityPayload},
		scriptedCall{stage: stageGenerate, out: planPayload("plan-initial", 4, 5, 3)},
		scriptedCall{stage: stageSimulate, out: noConfidence},
		scriptedCall{stage: stageScore, out: scoresPayload(0.96, 0.96, 0.96)},
		scriptedCall{stage: stageRefine, out: planPayload("plan-r1", 5, 6, 3)},
		scriptedCall{stage: stageSimulate, out: simPayload()},
		scriptedCall{stage: stageScore, out: scoresPayload(0.96, 0.96, 0.96)},
	)
	p := testPlanner(inv)

	resp, err := p.PlanShift(context.Background(), dinnerRequest())
	if err != nil {
		t.Fatalf("PlanShift: %v", err)
	}
	if got := resp.RestaurantOperatorPlan.Simulation.Confidence; !closeTo(got, 0.8) {
		t.Errorf("confidence = %v, want default 0.8", got)
	}
}

func TestPlanShiftRejectsInvalidScenario(t *testing.T) {
	inv := newScripted(t) // any call fails the test
	p := testPlanner(inv)

	req := dinnerRequest()
	req.Scenario.DayOfWeek = "funday"

	_, err := p.PlanShift(context.Background(), req)
	if err == nil {
		t.Fatal("PlanShift accepted an invalid day of week")
	}
	if !models.IsValidation(err) {
		t.Errorf("error = %v, want validation error before any reasoning call", err)
	}
}

func TestPlanShiftAppliesDefaults(t *testing.T) {
	inv := newScripted(t,
		scriptedCall{stage: stageDemand, out: demandPayload},
		scriptedCall{stage: stageCapacity, out: capacityPayload},
		scriptedCall{stage: stageGenerate, out: planPayload("plan-initial", 4, 5, 3)},
		scriptedCall{stage: stageSimulate, out: simPayload()},
		scriptedCall{stage: stageScore, out: scoresPayload(0.96, 0.96, 0.96)},
		scriptedCall{stage: stageRefine, out: planPayload("plan-r1", 5, 6, 3)},
		scriptedCall{stage: stageSimulate, out: simPayload()},
		scriptedCall{stage: stageScore, out: scoresPayload(0.96, 0.96, 0.96)},
	)
	p := testPlanner(inv)

	req := dinnerRequest()
	req.Constraints = nil
	req.AlignmentTargets = nil
	req.OperatorPriority = ""

	if _, err := p.PlanShift(context.Background(), req); err != nil {
		t.Fatalf("PlanShift: %v", err)
	}

	genInput := inv.inputs[stageGenerate][0]
	if !strings.Contains(genInput, `"available_staff": 15`) {
		t.Errorf("generate prompt missing default constraints:\n%s", genInput)
	}
	scoreInput := inv.inputs[stageScore][0]
	if !strings.Contains(scoreInput, `"labor_cost_pct": 30`) {
		t.Errorf("score prompt missing default targets:\n%s", scoreInput)
	}
}

// ── Feedback synthesis ───────────────────────────────────────

func TestSynthesizeFeedback(t *testing.T) {
	eval := &models.OptionEvaluation{
		Simulation: models.SimulationResult{
			Bottlenecks: []string{"kitchen overwhelmed", "drive-thru backup"},
		},
		Scores: models.Scores{
			Profit:               models.ScoreDetails{RawScore: 0.8},
			CustomerSatisfaction: models.ScoreDetails{RawScore: 0.9},
			StaffWellbeing:       models.ScoreDetails{RawScore: 0.8},
			Weaknesses:           []string{"labor cost high"},
		},
	}

	got := synthesizeFeedback(1, eval)
	want := "Attempt 1 result: Score 0.833. " +
		"Bottlenecks identified: kitchen overwhelmed, drive-thru backup. " +
		"Weaknesses: labor cost high. " +
		"Please adjust staffing to address these specific issues."
	if got != want {
		t.Errorf("feedback:\n got %q\nwant %q", got, want)
	}
}

func TestSynthesizeFeedbackOmitsEmptySections(t *testing.T) {
	eval := &models.OptionEvaluation{
		Scores: models.Scores{
			Profit:               models.ScoreDetails{RawScore: 0.9},
			CustomerSatisfaction: models.ScoreDetails{RawScore: 0.9},
			StaffWellbeing:       models.ScoreDetails{RawScore: 0.9},
		},
	}

	got := synthesizeFeedback(3, eval)
	want := "Attempt 3 result: Score 0.900. Please adjust staffing to address these specific issues."
	if got != want {
		t.Errorf("feedback:\n got %q\nwant %q", got, want)
	}
}

// ── EvaluateShift ────────────────────────────────────────────

func evaluationPayload(overall string) string {
	acc := `"customers_served": "good"`
	if overall != "" {
		acc += fmt.Sprintf(`, "overall_prediction_quality": %q`, overall)
	}
	return fmt.Sprintf(`{
  "accuracy_analysis": {%s},
  "error_analysis": [{"metric": "revenue", "predicted": 6800, "actual": 7050, "error_pct": 3.7}],
  "root_causes": ["demand slightly underestimated"],
  "model_improvements": [{"area": "demand_multiplier", "suggestion": "raise friday factor to 1.35"}],
  "decision_quality": {"optimal": true, "assessment": "staffing matched the rush"},
  "learning_summary": "prediction held up well"
}`, acc)
}

func completedPlanning() models.PlanningResponse {
	eval := models.OptionEvaluation{
		Option: models.StaffingPlan{
			ID:        "plan-1",
			Strategy:  "balanced",
			Staffing:  models.NewStaffing(4, 6, 3),
			RiskLevel: models.RiskMedium,
			Rationale: "steady dinner coverage",
		},
		Simulation: models.SimulationResult{
			PredictedMetrics: models.PredictedMetrics{
				CustomersServed:    380,
				Revenue:            6800,
				AvgWaitTimeSeconds: 210,
				LaborCost:          900,
				StaffUtilization:   0.87,
				OrderAccuracy:      0.96,
			},
			Confidence: 0.85,
		},
		Scores: models.Scores{
			Profit:               models.ScoreDetails{RawScore: 0.9},
			CustomerSatisfaction: models.ScoreDetails{RawScore: 0.8},
			StaffWellbeing:       models.ScoreDetails{RawScore: 0.85},
			Ranking:              "very good",
		},
	}
	return models.PlanningResponse{
		RequestID:              "plan-req",
		RestaurantOperatorPlan: &eval,
		ShadowOperatorBestPlan: &eval,
	}
}

func TestEvaluateShiftQualityMapping(t *testing.T) {
	cases := []struct {
		rating string
		want   string
	}{
		{"excellent", "excellent"},
		{"good", "good"},
		{"acceptable", "fair"},
		{"poor", "poor"},
		{"very poor", "fair"},
		{"", "fair"},
	}
	for _, tc := range cases {
		name := tc.rating
		if name == "" {
			name = "missing"
		}
		t.Run(name, func(t *testing.T) {
			inv := newScripted(t,
				scriptedCall{stage: stageEvaluate, out: evaluationPayload(tc.rating)},
			)
			p := testPlanner(inv)

			resp, err := p.EvaluateShift(context.Background(), models.EvaluationRequest{
				PlanningResponse: completedPlanning(),
				ActualData: models.ActualPerformanceData{
					CustomersServed:    402,
					Revenue:            7050,
					AvgWaitTimeSeconds: 195,
					LaborCost:          915,
				},
			})
			if err != nil {
				t.Fatalf("EvaluateShift: %v", err)
			}
			inv.assertDrained(t)

			if resp.PredictionQuality != tc.want {
				t.Errorf("prediction quality = %q, want %q", resp.PredictionQuality, tc.want)
			}
			if resp.RequestID == "" || resp.Timestamp.IsZero() {
				t.Errorf("response metadata incomplete: %+v", resp)
			}
			if got := inv.inputs[stageEvaluate][0]; !strings.Contains(got, "ACTUAL RESULTS:") {
				t.Errorf("evaluator prompt missing actual data:\n%s", got)
			}
		})
	}
}

func TestEvaluateShiftPropagatesFailure(t *testing.T) {
	inv := newScripted(t,
		scriptedCall{stage: stageEvaluate, err: errors.New("429 too many requests")},
	)
	p := testPlanner(inv)

	_, err := p.EvaluateShift(context.Background(), models.EvaluationRequest{
		PlanningResponse: completedPlanning(),
		ActualData:       models.ActualPerformanceData{CustomersServed: 400, Revenue: 7000},
	})
	if !reasoning.IsQuota(err) {
		t.Fatalf("error = %v, want quota kind", err)
	}
}

func TestEvaluateShiftRejectsEmptyPlanning(t *testing.T) {
	inv := newScripted(t)
	p := testPlanner(inv)

	_, err := p.EvaluateShift(context.Background(), models.EvaluationRequest{
		ActualData: models.ActualPerformanceData{CustomersServed: 400},
	})
	if !models.IsValidation(err) {
		t.Fatalf("error = %v, want validation error", err)
	}
}
