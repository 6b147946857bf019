package evals

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/rs/zerolog/log"

	"github.com/shiftcast/shiftcast/pkg/models"
)

// PlanFunc runs one planning session. Satisfied by
// (*planner.Planner).PlanShift.
type PlanFunc func(ctx context.Context, req models.PlanningRequest) (*models.PlanningResponse, error)

// Runner executes eval cases against a planning function.
type Runner struct {
	plan PlanFunc
}

func NewRunner(plan PlanFunc) *Runner {
	return &Runner{plan: plan}
}

// CaseResult is the verdict for one case. Failures holds every hard
// constraint violation and unsatisfied check; Error is set when the
// planning session itself failed.
type CaseResult struct {
	CaseID    string           `json:"case_id"`
	Passed    bool             `json:"passed"`
	BestScore float64          `json:"best_score"`
	Staffing  *models.Staffing `json:"staffing,omitempty"`
	Failures  []string         `json:"failures,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Summary aggregates a full eval run.
type Summary struct {
	TotalCases  int          `json:"total_cases"`
	PassedCases int          `json:"passed_cases"`
	PassRate    float64      `json:"pass_rate"`
	Results     []CaseResult `json:"results"`
}

// Run executes every case in order, stopping early only if the run
// context is cancelled.
func (r *Runner) Run(ctx context.Context, cases []Case) (*Summary, error) {
	results := make([]CaseResult, 0, len(cases))
	passed := 0

	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := r.runCase(ctx, c)
		if result.Passed {
			passed++
		}
		results = append(results, result)

		log.Info().
			Str("case", c.ID).
			Bool("passed", result.Passed).
			Float64("best_score", result.BestScore).
			Int("failures", len(result.Failures)).
			Msg("Eval case finished")
	}

	summary := &Summary{
		TotalCases:  len(cases),
		PassedCases: passed,
		Results:     results,
	}
	if summary.TotalCases > 0 {
		rate := float64(passed) / float64(summary.TotalCases)
		summary.PassRate = math.Round(rate*10000) / 10000
	}
	return summary, nil
}

func (r *Runner) runCase(ctx context.Context, c Case) CaseResult {
	req := models.PlanningRequest{
		Scenario:         c.Scenario,
		Constraints:      c.Constraints,
		OperatorPriority: c.OperatorPriority,
	}

	resp, err := r.plan(ctx, req)
	if err != nil {
		return CaseResult{CaseID: c.ID, Error: err.Error()}
	}

	best := resp.BestEvaluation()
	result := CaseResult{
		CaseID:    c.ID,
		BestScore: best.Scores.Aggregate(),
		Staffing:  &best.Option.Staffing,
	}

	failures := hardConstraintFailures(effectiveConstraints(c.Constraints), best.Option.Staffing)
	env := checkEnv(c, best)
	for _, check := range c.Checks {
		if msg := evalCheck(check, env); msg != "" {
			failures = append(failures, msg)
		}
	}

	result.Failures = failures
	result.Passed = len(failures) == 0
	return result
}

func effectiveConstraints(c *models.Constraints) *models.Constraints {
	if c != nil {
		return c
	}
	return models.DefaultConstraints()
}

// hardConstraintFailures checks the invariants every plan must hold
// regardless of what the case's expression checks say: the total never
// exceeds the available pool, and every station meets its minimum.
func hardConstraintFailures(cons *models.Constraints, staffing models.Staffing) []string {
	var failures []string

	if cons.AvailableStaff > 0 && staffing.Total > cons.AvailableStaff {
		failures = append(failures, fmt.Sprintf("staffing total %d exceeds available staff %d", staffing.Total, cons.AvailableStaff))
	}

	byStation := map[string]int{
		"drive_thru":    staffing.DriveThru,
		"kitchen":       staffing.Kitchen,
		"front_counter": staffing.FrontCounter,
	}
	stations := make([]string, 0, len(cons.MinStaffPerStation))
	for station := range cons.MinStaffPerStation {
		stations = append(stations, station)
	}
	sort.Strings(stations)
	for _, station := range stations {
		min := cons.MinStaffPerStation[station]
		if got := byStation[station]; got < min {
			failures = append(failures, fmt.Sprintf("station %s has %d staff, minimum is %d", station, got, min))
		}
	}
	return failures
}

// checkEnv builds the expression environment. Scenario and constraints
// are exposed in their wire shape (snake_case keys) so checks read the
// same way the JSON does.
func checkEnv(c Case, best *models.OptionEvaluation) map[string]interface{} {
	return map[string]interface{}{
		"scenario":    toMap(c.Scenario),
		"constraints": toMap(effectiveConstraints(c.Constraints)),
		"plan": map[string]interface{}{
			"drive_thru":    best.Option.Staffing.DriveThru,
			"kitchen":       best.Option.Staffing.Kitchen,
			"front_counter": best.Option.Staffing.FrontCounter,
			"total":         best.Option.Staffing.Total,
			"risk_level":    string(best.Option.RiskLevel),
			"strategy":      best.Option.Strategy,
		},
		"scores": map[string]interface{}{
			"profit":                best.Scores.Profit.RawScore,
			"customer_satisfaction": best.Scores.CustomerSatisfaction.RawScore,
			"staff_wellbeing":       best.Scores.StaffWellbeing.RawScore,
			"ranking":               best.Scores.Ranking,
		},
		"aggregate": best.Scores.Aggregate(),
	}
}

func toMap(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]interface{}{}
	}
	return m
}

// evalCheck compiles and runs one boolean expression, returning a
// failure message or "" when the check passes.
func evalCheck(src string, env map[string]interface{}) string {
	program, err := expr.Compile(src, expr.Env(env), expr.AsBool())
	if err != nil {
		return fmt.Sprintf("check %q does not compile: %v", src, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return fmt.Sprintf("check %q failed to evaluate: %v", src, err)
	}
	if pass, ok := out.(bool); !ok || !pass {
		return fmt.Sprintf("check %q not satisfied", src)
	}
	return ""
}

// WriteSummary writes the run summary as indented JSON.
func WriteSummary(summary *Summary, path string) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode eval summary: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create summary dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write eval summary: %w", err)
	}
	return nil
}
