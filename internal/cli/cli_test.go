package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shiftcast/shiftcast/internal/config"
	"github.com/shiftcast/shiftcast/internal/evals"
	"github.com/shiftcast/shiftcast/internal/store"
	"github.com/shiftcast/shiftcast/pkg/models"
)

// useTempStore points the store env at a throwaway snapshot so CLI
// tests never touch the real data directory.
func useTempStore(t *testing.T) string {
	t.Helper()
	snap := filepath.Join(t.TempDir(), "snapshot.json")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("STORE_SNAPSHOT_PATH", snap)
	return snap
}

func cannedPlan(id string, score float64) *models.PlanningResponse {
	return &models.PlanningResponse{
		RequestID: id,
		Timestamp: time.Now().UTC(),
		Scenario: models.Scenario{
			Shift:     models.ShiftDinner,
			DayOfWeek: "friday",
			Weather:   models.WeatherRainy,
			Restaurant: models.RestaurantConfig{
				Location:        "downtown",
				HasDriveThru:    true,
				KitchenCapacity: models.KitchenMedium,
			},
		},
		ShadowOperatorBestPlan: &models.OptionEvaluation{
			Option: models.StaffingPlan{
				ID:        "opt-1",
				Strategy:  "balanced_coverage",
				Staffing:  models.NewStaffing(3, 5, 2),
				RiskLevel: models.RiskMedium,
				Rationale: "Covers the rush with two floaters in reserve.",
			},
			Scores: models.Scores{
				Profit:               models.ScoreDetails{RawScore: score},
				CustomerSatisfaction: models.ScoreDetails{RawScore: score},
				StaffWellbeing:       models.ScoreDetails{RawScore: score},
			},
		},
		Iterations:           []models.IterationTrace{{IterationNumber: 1}},
		ExecutionTimeSeconds: 3.7,
	}
}

// ── Plan request assembly ───────────────────────────────────

func TestBuildPlanRequestFromFlags(t *testing.T) {
	planPreset = ""
	planShift = "lunch"
	planDay = "tuesday"
	planWeather = "cloudy"
	planDate = ""
	planLocation = "airport"
	planEvents = []string{"concert"}
	planStaff = 12
	planBudget = 0
	planPriority = "profit_focus"

	req, err := buildPlanRequest(planCmd, config.Load())
	if err != nil {
		t.Fatalf("buildPlanRequest() error = %v", err)
	}

	if req.Scenario.Shift != models.ShiftLunch {
		t.Errorf("shift = %q, want lunch", req.Scenario.Shift)
	}
	if req.Scenario.DayOfWeek != "tuesday" {
		t.Errorf("day = %q, want tuesday", req.Scenario.DayOfWeek)
	}
	if req.Scenario.Weather != models.WeatherCloudy {
		t.Errorf("weather = %q, want cloudy", req.Scenario.Weather)
	}
	if req.Scenario.Restaurant.Location != "airport" {
		t.Errorf("location = %q, want airport", req.Scenario.Restaurant.Location)
	}
	if len(req.Scenario.SpecialEvents) != 1 || req.Scenario.SpecialEvents[0] != "concert" {
		t.Errorf("events = %v, want [concert]", req.Scenario.SpecialEvents)
	}
	if req.OperatorPriority != models.PriorityProfitFocus {
		t.Errorf("priority = %q, want profit_focus", req.OperatorPriority)
	}
	if req.Constraints == nil || req.Constraints.AvailableStaff != 12 {
		t.Errorf("constraints = %+v, want available staff 12", req.Constraints)
	}
}

func TestBuildPlanRequestPresetWithOverrides(t *testing.T) {
	planPreset = "friday-dinner-rush"
	planStaff = 0
	planBudget = 0
	planPriority = ""

	// Set through the flag set so Changed() reports the override.
	if err := planCmd.Flags().Set("weather", "stormy"); err != nil {
		t.Fatalf("set weather flag: %v", err)
	}

	req, err := buildPlanRequest(planCmd, config.Load())
	if err != nil {
		t.Fatalf("buildPlanRequest() error = %v", err)
	}

	if req.Scenario.Shift != models.ShiftDinner {
		t.Errorf("shift = %q, want dinner from preset", req.Scenario.Shift)
	}
	if req.Scenario.Weather != models.WeatherStormy {
		t.Errorf("weather = %q, want stormy override", req.Scenario.Weather)
	}
	if req.Scenario.Restaurant.Location != "downtown" {
		t.Errorf("location = %q, want downtown from preset profile", req.Scenario.Restaurant.Location)
	}
}

func TestBuildPlanRequestUnknownPreset(t *testing.T) {
	planPreset = "no-such-preset"

	if _, err := buildPlanRequest(planCmd, config.Load()); err == nil {
		t.Fatal("expected error for unknown preset, got nil")
	}
	planPreset = ""
}

// ── Evaluate input handling ─────────────────────────────────

func TestLoadPlanForEvaluationFromFile(t *testing.T) {
	useTempStore(t)

	path := filepath.Join(t.TempDir(), "plan.json")
	data, err := json.Marshal(cannedPlan("plan-file-1", 0.9))
	if err != nil {
		t.Fatalf("marshal plan: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write plan file: %v", err)
	}

	evalPlanFile = path
	evalPlanID = ""
	defer func() { evalPlanFile = "" }()

	evaluateCmd.SetContext(context.Background())
	resp, err := loadPlanForEvaluation(evaluateCmd, config.Load())
	if err != nil {
		t.Fatalf("loadPlanForEvaluation() error = %v", err)
	}
	if resp.RequestID != "plan-file-1" {
		t.Errorf("RequestID = %q, want plan-file-1", resp.RequestID)
	}
}

func TestLoadPlanForEvaluationRequiresSource(t *testing.T) {
	evalPlanFile = ""
	evalPlanID = ""

	evaluateCmd.SetContext(context.Background())
	_, err := loadPlanForEvaluation(evaluateCmd, config.Load())
	if err == nil {
		t.Fatal("expected error with no plan source, got nil")
	}
	if !strings.Contains(err.Error(), "--plan-file or --plan-id") {
		t.Errorf("error = %v, want mention of the required flags", err)
	}
}

// ── Results listing ─────────────────────────────────────────

func TestRunResultsEmptyStore(t *testing.T) {
	useTempStore(t)
	resultsLimit = 20
	resultsJSON = false

	buf := new(bytes.Buffer)
	resultsCmd.SetContext(context.Background())
	resultsCmd.SetOut(buf)
	resultsCmd.SetErr(buf)

	if err := runResults(resultsCmd, nil); err != nil {
		t.Fatalf("runResults() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No planning results stored yet") {
		t.Errorf("output = %q, want empty-store hint", buf.String())
	}
}

func TestRunResultsListsStoredPlans(t *testing.T) {
	snap := useTempStore(t)

	seed := store.NewMemoryStore(snap)
	if err := seed.SavePlan(context.Background(), cannedPlan("plan-cli-1", 0.9)); err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	if err := seed.Close(); err != nil {
		t.Fatalf("close seed store: %v", err)
	}

	resultsLimit = 20
	resultsJSON = false

	buf := new(bytes.Buffer)
	resultsCmd.SetContext(context.Background())
	resultsCmd.SetOut(buf)
	resultsCmd.SetErr(buf)

	if err := runResults(resultsCmd, nil); err != nil {
		t.Fatalf("runResults() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "plan-cli-1") {
		t.Errorf("output missing stored plan id:\n%s", out)
	}
	if !strings.Contains(out, "downtown") {
		t.Errorf("output missing location column:\n%s", out)
	}
}

func TestRunResultsShowNotFound(t *testing.T) {
	useTempStore(t)

	resultsShowCmd.SetContext(context.Background())
	resultsShowCmd.SetOut(new(bytes.Buffer))

	err := runResultsShow(resultsShowCmd, []string{"missing-id"})
	if err == nil {
		t.Fatal("expected error for unknown id, got nil")
	}
	if _, ok := err.(*store.ErrNotFound); !ok {
		t.Errorf("error = %T (%v), want *store.ErrNotFound", err, err)
	}
}

// ── Presets listing ─────────────────────────────────────────

func TestRunPresetsListsBuiltins(t *testing.T) {
	buf := new(bytes.Buffer)
	presetsCmd.SetContext(context.Background())
	presetsCmd.SetOut(buf)

	if err := runPresets(presetsCmd, nil); err != nil {
		t.Fatalf("runPresets() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"downtown-drive-thru", "friday-dinner-rush", "SCENARIO"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

// ── Eval harness ────────────────────────────────────────────

const cliCaseYAML = `cases:
  - id: cli-dinner-rush
    description: busy Friday dinner against the stub driver
    scenario:
      shift: dinner
      day_of_week: friday
      weather: rainy
      special_events:
        - friday_rush
      restaurant:
        location: downtown
        has_drive_thru: true
        drive_thru_lanes: 2
        kitchen_capacity: medium
        dine_in: true
        dine_in_seat_capacity: 50
    checks:
      - plan.total <= constraints.available_staff
      - aggregate >= 0.8
`

func TestRunEvalsStubDriver(t *testing.T) {
	dir := t.TempDir()
	casePath := filepath.Join(dir, "cases.yaml")
	if err := os.WriteFile(casePath, []byte(cliCaseYAML), 0644); err != nil {
		t.Fatalf("write case file: %v", err)
	}
	outPath := filepath.Join(dir, "summary.json")

	evalsCases = casePath
	evalsOutput = outPath
	evalsLive = false

	buf := new(bytes.Buffer)
	evalsRunCmd.SetContext(context.Background())
	evalsRunCmd.SetOut(buf)
	evalsRunCmd.SetErr(buf)

	if err := runEvals(evalsRunCmd, nil); err != nil {
		t.Fatalf("runEvals() error = %v", err)
	}
	if !strings.Contains(buf.String(), "1/1 cases passed") {
		t.Errorf("output = %q, want pass line", buf.String())
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var summary evals.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("parse summary: %v", err)
	}
	if summary.TotalCases != 1 || summary.PassedCases != 1 {
		t.Errorf("summary = %d/%d, want 1/1", summary.PassedCases, summary.TotalCases)
	}
}

func TestRunEvalsMissingCases(t *testing.T) {
	evalsCases = filepath.Join(t.TempDir(), "does-not-exist")
	evalsOutput = ""

	evalsRunCmd.SetContext(context.Background())
	evalsRunCmd.SetOut(new(bytes.Buffer))

	if err := runEvals(evalsRunCmd, nil); err == nil {
		t.Fatal("expected error for missing case path, got nil")
	}
}

// ── Rendering ───────────────────────────────────────────────

func TestRenderPlanResponse(t *testing.T) {
	out := renderPlanResponse(cannedPlan("plan-render", 0.9))

	for _, want := range []string{"Recommended staffing", "Drive-thru", "Kitchen", "Front counter", "very good"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered plan missing %q", want)
		}
	}
}

func TestRenderPlanResponseNoPlan(t *testing.T) {
	out := renderPlanResponse(&models.PlanningResponse{RequestID: "empty"})
	if !strings.Contains(out, "No plan produced") {
		t.Errorf("output = %q, want no-plan notice", out)
	}
}

func TestRenderEvalSummaryMarksFailures(t *testing.T) {
	out := renderEvalSummary(&evals.Summary{
		TotalCases:  2,
		PassedCases: 1,
		PassRate:    0.5,
		Results: []evals.CaseResult{
			{CaseID: "ok", Passed: true, BestScore: 0.9},
			{CaseID: "bad", Passed: false, BestScore: 0.4, Failures: []string{"aggregate >= 0.8"}},
		},
	})

	if !strings.Contains(out, "PASS") || !strings.Contains(out, "FAIL") {
		t.Errorf("output missing PASS/FAIL markers:\n%s", out)
	}
	if !strings.Contains(out, "1/2 cases passed") {
		t.Errorf("output missing pass-rate line:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly-ten", 11, "exactly-ten"},
		{"a-very-long-location-name", 10, "a-very-..."},
		{"abc", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestWrapRespectsWidth(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog near the river bank"
	for _, line := range strings.Split(wrap(text, 20), "\n") {
		if len(line) > 20 {
			t.Errorf("line %q exceeds width 20", line)
		}
	}
	if wrapped := wrap(text, 200); strings.Contains(wrapped, "\n") {
		t.Errorf("wrap(%q, 200) should stay on one line", text)
	}
}
