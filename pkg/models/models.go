package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ── Validation ───────────────────────────────────────────────

// ValidationError reports a rejected field on an inbound request.
// Raised during request validation, before any reasoning call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err (or anything it wraps) is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ── Enumerations ─────────────────────────────────────────────

type ShiftType string

const (
	ShiftBreakfast ShiftType = "breakfast"
	ShiftLunch     ShiftType = "lunch"
	ShiftDinner    ShiftType = "dinner"
)

func (s ShiftType) Valid() bool {
	switch s {
	case ShiftBreakfast, ShiftLunch, ShiftDinner:
		return true
	}
	return false
}

type WeatherType string

const (
	WeatherSunny  WeatherType = "sunny"
	WeatherCloudy WeatherType = "cloudy"
	WeatherRainy  WeatherType = "rainy"
	WeatherStormy WeatherType = "stormy"
)

func (w WeatherType) Valid() bool {
	switch w {
	case WeatherSunny, WeatherCloudy, WeatherRainy, WeatherStormy:
		return true
	}
	return false
}

// RiskLevel is the five-point ordinal risk rating attached to a plan.
type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "very_low"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskVeryLow, RiskLow, RiskMedium, RiskHigh, RiskVeryHigh:
		return true
	}
	return false
}

// OperatorPriority steers plan generation toward one objective.
type OperatorPriority string

const (
	PriorityBalanced     OperatorPriority = "balanced"
	PriorityProfitFocus  OperatorPriority = "profit_focus"
	PriorityServiceFocus OperatorPriority = "service_focus"
)

func (p OperatorPriority) Valid() bool {
	switch p {
	case PriorityBalanced, PriorityProfitFocus, PriorityServiceFocus:
		return true
	}
	return false
}

// KitchenCapacity is the kitchen throughput tier.
type KitchenCapacity string

const (
	KitchenSmall  KitchenCapacity = "small"
	KitchenMedium KitchenCapacity = "medium"
	KitchenLarge  KitchenCapacity = "large"
)

func (k KitchenCapacity) Valid() bool {
	switch k {
	case KitchenSmall, KitchenMedium, KitchenLarge:
		return true
	}
	return false
}

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// ── Scenario ─────────────────────────────────────────────────

// RestaurantConfig describes the restaurant's fixed infrastructure.
// YAML tags allow presets and eval cases to be written by hand.
type RestaurantConfig struct {
	Location           string          `json:"location" yaml:"location"`
	HasDriveThru       bool            `json:"has_drive_thru" yaml:"has_drive_thru"`
	DriveThruLanes     int             `json:"drive_thru_lanes,omitempty" yaml:"drive_thru_lanes,omitempty"`
	KitchenCapacity    KitchenCapacity `json:"kitchen_capacity" yaml:"kitchen_capacity"`
	DineIn             bool            `json:"dine_in" yaml:"dine_in"`
	DineInSeatCapacity int             `json:"dine_in_seat_capacity,omitempty" yaml:"dine_in_seat_capacity,omitempty"`
}

// Validate fills infrastructure defaults and rejects out-of-range values.
func (rc *RestaurantConfig) Validate() error {
	if strings.TrimSpace(rc.Location) == "" {
		return &ValidationError{Field: "restaurant.location", Reason: "must not be empty"}
	}
	if rc.KitchenCapacity == "" {
		rc.KitchenCapacity = KitchenMedium
	}
	if !rc.KitchenCapacity.Valid() {
		return &ValidationError{Field: "restaurant.kitchen_capacity", Reason: "must be one of small, medium, large"}
	}
	if rc.HasDriveThru {
		if rc.DriveThruLanes == 0 {
			rc.DriveThruLanes = 2
		}
		if rc.DriveThruLanes < 1 || rc.DriveThruLanes > 4 {
			return &ValidationError{Field: "restaurant.drive_thru_lanes", Reason: "must be between 1 and 4"}
		}
	}
	if rc.DineIn && rc.DineInSeatCapacity == 0 {
		rc.DineInSeatCapacity = 50
	}
	if rc.DineInSeatCapacity < 0 {
		return &ValidationError{Field: "restaurant.dine_in_seat_capacity", Reason: "must be >= 0"}
	}
	return nil
}

// Scenario is the situational input a planning session evaluates
// against. Immutable once validated; every downstream stage consumes
// it as-is.
type Scenario struct {
	Shift         ShiftType        `json:"shift" yaml:"shift"`
	Date          string           `json:"date" yaml:"date"` // YYYY-MM-DD
	DayOfWeek     string           `json:"day_of_week" yaml:"day_of_week"`
	Weather       WeatherType      `json:"weather" yaml:"weather"`
	SpecialEvents []string         `json:"special_events,omitempty" yaml:"special_events,omitempty"`
	Restaurant    RestaurantConfig `json:"restaurant" yaml:"restaurant"`
}

// Validate lowercases the day-of-week, checks every enum, and
// validates the embedded restaurant config.
func (s *Scenario) Validate() error {
	if !s.Shift.Valid() {
		return &ValidationError{Field: "shift", Reason: "must be one of breakfast, lunch, dinner"}
	}
	s.DayOfWeek = strings.ToLower(strings.TrimSpace(s.DayOfWeek))
	if !weekdays[s.DayOfWeek] {
		return &ValidationError{Field: "day_of_week", Reason: "must be a weekday name (monday..sunday)"}
	}
	if !s.Weather.Valid() {
		return &ValidationError{Field: "weather", Reason: "must be one of sunny, cloudy, rainy, stormy"}
	}
	if s.Date != "" {
		if _, err := time.Parse("2006-01-02", s.Date); err != nil {
			return &ValidationError{Field: "date", Reason: "must be formatted YYYY-MM-DD"}
		}
	}
	return s.Restaurant.Validate()
}

// ── Constraints & Targets ────────────────────────────────────

// Constraints bounds the staffing pool a planning session may allocate.
type Constraints struct {
	AvailableStaff     int            `json:"available_staff" yaml:"available_staff"`
	BudgetHours        float64        `json:"budget_hours" yaml:"budget_hours"`
	MinStaffPerStation map[string]int `json:"min_staff_per_station,omitempty" yaml:"min_staff_per_station,omitempty"`
}

// DefaultConstraints is the stock constraint set applied when a
// request omits constraints entirely.
func DefaultConstraints() *Constraints {
	return &Constraints{
		AvailableStaff: 15,
		BudgetHours:    60,
		MinStaffPerStation: map[string]int{
			"drive_thru":    2,
			"kitchen":       3,
			"front_counter": 1,
		},
	}
}

func (c *Constraints) Validate() error {
	if c.AvailableStaff < 1 {
		return &ValidationError{Field: "constraints.available_staff", Reason: "must be >= 1"}
	}
	if c.BudgetHours < 0 {
		return &ValidationError{Field: "constraints.budget_hours", Reason: "must be >= 0"}
	}
	if c.MinStaffPerStation == nil {
		c.MinStaffPerStation = DefaultConstraints().MinStaffPerStation
	}
	for station, n := range c.MinStaffPerStation {
		if n < 0 {
			return &ValidationError{Field: "constraints.min_staff_per_station." + station, Reason: "must be >= 0"}
		}
	}
	return nil
}

// AlignmentTargets are the operational ideals the scoring engine
// measures proximity against. Labor cost and wait time score 1.0 at or
// below target; utilization is an ideal point penalized in both
// directions.
type AlignmentTargets struct {
	LaborCostPct       float64 `json:"labor_cost_pct" yaml:"labor_cost_pct"`
	AvgWaitTimeSeconds int     `json:"avg_wait_time_seconds" yaml:"avg_wait_time_seconds"`
	StaffUtilization   float64 `json:"staff_utilization" yaml:"staff_utilization"`
}

func DefaultAlignmentTargets() *AlignmentTargets {
	return &AlignmentTargets{
		LaborCostPct:       30.0,
		AvgWaitTimeSeconds: 180,
		StaffUtilization:   0.82,
	}
}

func (t *AlignmentTargets) Validate() error {
	if t.LaborCostPct <= 0 || t.LaborCostPct > 100 {
		return &ValidationError{Field: "alignment_targets.labor_cost_pct", Reason: "must be in (0, 100]"}
	}
	if t.AvgWaitTimeSeconds <= 0 {
		return &ValidationError{Field: "alignment_targets.avg_wait_time_seconds", Reason: "must be > 0"}
	}
	if t.StaffUtilization <= 0 || t.StaffUtilization > 1 {
		return &ValidationError{Field: "alignment_targets.staff_utilization", Reason: "must be in (0, 1]"}
	}
	return nil
}

// ── Staffing ─────────────────────────────────────────────────

// Staffing allocates workers to the three stations. Total is derived:
// it is recomputed on construction and on decode, so a total arriving
// on the wire is ignored.
type Staffing struct {
	DriveThru    int `json:"drive_thru"`
	Kitchen      int `json:"kitchen"`
	FrontCounter int `json:"front_counter"`
	Total        int `json:"total"`
}

// NewStaffing builds an allocation with the derived total set.
func NewStaffing(driveThru, kitchen, frontCounter int) Staffing {
	s := Staffing{DriveThru: driveThru, Kitchen: kitchen, FrontCounter: frontCounter}
	s.Recompute()
	return s
}

// Recompute re-derives Total from the station counts.
func (s *Staffing) Recompute() {
	s.Total = s.DriveThru + s.Kitchen + s.FrontCounter
}

func (s *Staffing) UnmarshalJSON(data []byte) error {
	type alias Staffing
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = Staffing(a)
	s.Recompute()
	return nil
}

func (s *Staffing) Validate() error {
	if s.DriveThru < 0 || s.Kitchen < 0 || s.FrontCounter < 0 {
		return &ValidationError{Field: "staffing", Reason: "station counts must be >= 0"}
	}
	return nil
}

// StaffingPlan is one proposed allocation with its cost and risk
// metadata. Produced once per generator invocation, never mutated.
type StaffingPlan struct {
	ID                  string    `json:"id"`
	Strategy            string    `json:"strategy"`
	EstimatedTotalGuest int       `json:"estimated_total_guest"`
	EstimatedPeakGuest  int       `json:"estimated_peak_guest"`
	Staffing            Staffing  `json:"staffing"`
	EstimatedLaborCost  float64   `json:"estimated_labor_cost"`
	RiskLevel           RiskLevel `json:"risk_level"`
	Rationale           string    `json:"rationale"`
	Reasoning           string    `json:"reasoning,omitempty"`
}

func (p *StaffingPlan) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return &ValidationError{Field: "plan.id", Reason: "must not be empty"}
	}
	if err := p.Staffing.Validate(); err != nil {
		return err
	}
	if !p.RiskLevel.Valid() {
		return &ValidationError{Field: "plan.risk_level", Reason: "must be one of very_low, low, medium, high, very_high"}
	}
	if p.EstimatedTotalGuest < 0 || p.EstimatedPeakGuest < 0 {
		return &ValidationError{Field: "plan.estimated_guests", Reason: "must be >= 0"}
	}
	if p.EstimatedLaborCost < 0 {
		return &ValidationError{Field: "plan.estimated_labor_cost", Reason: "must be >= 0"}
	}
	return nil
}

// ── Simulation ───────────────────────────────────────────────

// PredictedMetrics are the operational outcomes a simulation predicts
// for one scenario+staffing pair.
type PredictedMetrics struct {
	CustomersServed     int     `json:"customers_served"`
	Revenue             float64 `json:"revenue"`
	AvgWaitTimeSeconds  int     `json:"avg_wait_time_seconds"`
	PeakWaitTimeSeconds int     `json:"peak_wait_time_seconds,omitempty"`
	MaxQueueLength      int     `json:"max_queue_length"`
	LaborCost           float64 `json:"labor_cost"`
	FoodCost            float64 `json:"food_cost"`
	StaffUtilization    float64 `json:"staff_utilization"`
	OrderAccuracy       float64 `json:"order_accuracy"`
}

func (m *PredictedMetrics) Validate() error {
	if m.CustomersServed < 0 || m.Revenue < 0 || m.AvgWaitTimeSeconds < 0 ||
		m.PeakWaitTimeSeconds < 0 || m.MaxQueueLength < 0 || m.LaborCost < 0 || m.FoodCost < 0 {
		return &ValidationError{Field: "predicted_metrics", Reason: "values must be >= 0"}
	}
	if m.StaffUtilization < 0 || m.StaffUtilization > 1 {
		return &ValidationError{Field: "predicted_metrics.staff_utilization", Reason: "must be in [0, 1]"}
	}
	if m.OrderAccuracy < 0 || m.OrderAccuracy > 1 {
		return &ValidationError{Field: "predicted_metrics.order_accuracy", Reason: "must be in [0, 1]"}
	}
	return nil
}

// SimulationResult is the structured outcome prediction for one plan.
type SimulationResult struct {
	PredictedMetrics PredictedMetrics `json:"predicted_metrics"`
	KeyEvents        []string         `json:"key_events,omitempty"`
	Bottlenecks      []string         `json:"bottlenecks,omitempty"`
	Confidence       float64          `json:"confidence"`
	Reasoning        string           `json:"reasoning,omitempty"`
}

func (r *SimulationResult) Validate() error {
	if err := r.PredictedMetrics.Validate(); err != nil {
		return err
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return &ValidationError{Field: "simulation.confidence", Reason: "must be in [0, 1]"}
	}
	return nil
}

// ── Scores ───────────────────────────────────────────────────

// ScoreDetails is the per-objective proximity breakdown. RawScore is
// in [0,1] where 1.0 means the target was met or exceeded; Deviation
// is the signed Actual - Target difference.
type ScoreDetails struct {
	RawScore  float64                `json:"raw_score"`
	Deviation float64                `json:"deviation"`
	Weighted  float64                `json:"weighted"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Scores holds the three per-objective proximity scores plus the
// scorer's qualitative commentary. It deliberately carries no
// aggregate field: the aggregate is always recomputed locally via
// Aggregate so comparisons stay reproducible across rounds.
type Scores struct {
	Profit               ScoreDetails `json:"profit"`
	CustomerSatisfaction ScoreDetails `json:"customer_satisfaction"`
	StaffWellbeing       ScoreDetails `json:"staff_wellbeing"`
	Ranking              string       `json:"ranking"`
	Strengths            []string     `json:"strengths,omitempty"`
	Weaknesses           []string     `json:"weaknesses,omitempty"`
	Recommendation       string       `json:"recommendation"`
	Reasoning            string       `json:"reasoning,omitempty"`
}

// Aggregate returns the unweighted arithmetic mean of the three raw
// proximity scores. This is the loop's single source of truth for
// best-candidate comparison and threshold checks.
func (s Scores) Aggregate() float64 {
	return (s.Profit.RawScore + s.CustomerSatisfaction.RawScore + s.StaffWellbeing.RawScore) / 3
}

// Clamp forces each raw proximity score into [0,1].
func (s *Scores) Clamp() {
	s.Profit.RawScore = clamp01(s.Profit.RawScore)
	s.CustomerSatisfaction.RawScore = clamp01(s.CustomerSatisfaction.RawScore)
	s.StaffWellbeing.RawScore = clamp01(s.StaffWellbeing.RawScore)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// RankingForScore maps an aggregate score onto the qualitative
// five-bucket ranking. Display only, never used for comparison.
func RankingForScore(score float64) string {
	switch {
	case score >= 0.95:
		return "excellent"
	case score >= 0.85:
		return "very good"
	case score >= 0.70:
		return "good"
	case score >= 0.50:
		return "fair"
	default:
		return "poor"
	}
}

// ── Evaluations & Traces ─────────────────────────────────────

// OptionEvaluation is the atomic candidate unit compared across
// rounds: one plan, its simulated outcome, and its scores.
type OptionEvaluation struct {
	Option     StaffingPlan     `json:"option"`
	Simulation SimulationResult `json:"simulation"`
	Scores     Scores           `json:"scores"`
}

// IterationTrace is the append-only audit record of one refinement
// round, including rounds that scored worse than the running best.
type IterationTrace struct {
	IterationNumber int                `json:"iteration_number"`
	Evaluations     []OptionEvaluation `json:"evaluations"`
	Feedback        string             `json:"feedback,omitempty"`
}

// ── Context Analyses ─────────────────────────────────────────

// DemandPrediction is the demand analyzer's advisory output.
type DemandPrediction struct {
	DemandMultiplier  float64            `json:"demand_multiplier"`
	ChannelPreference map[string]float64 `json:"channel_preference"`
	ContextFactors    []string           `json:"context_factors"`
}

// FallbackDemandPrediction is the conservative default substituted
// when demand analysis fails entirely.
func FallbackDemandPrediction() *DemandPrediction {
	return &DemandPrediction{
		DemandMultiplier:  1.0,
		ChannelPreference: map[string]float64{"drive_thru": 1.0, "dine_in": 1.0},
		ContextFactors:    []string{"Analysis failed, using defaults"},
	}
}

// CapacityAnalysis is the capacity analyzer's advisory output.
type CapacityAnalysis struct {
	MaxThroughputPerHour      int            `json:"max_throughput_per_hour"`
	StationCapacities         map[string]int `json:"station_capacities"`
	InfrastructureConstraints []string       `json:"infrastructure_constraints"`
}

// FallbackCapacityAnalysis is the conservative default substituted
// when capacity analysis fails entirely.
func FallbackCapacityAnalysis() *CapacityAnalysis {
	return &CapacityAnalysis{
		MaxThroughputPerHour:      100,
		StationCapacities:         map[string]int{"kitchen": 80, "drive_thru": 60, "dine_in": 50},
		InfrastructureConstraints: []string{"Default fallback capacities used"},
	}
}

// ── Planning Request & Response ──────────────────────────────

// PlanningRequest is the inbound payload for one planning session.
// Constraints and targets are optional; defaults are applied by the
// planner.
type PlanningRequest struct {
	Scenario         Scenario          `json:"scenario"`
	Constraints      *Constraints      `json:"constraints,omitempty"`
	AlignmentTargets *AlignmentTargets `json:"alignment_targets,omitempty"`
	OperatorPriority OperatorPriority  `json:"operator_priority,omitempty"`
}

// Validate checks the scenario, any provided constraints and targets,
// and normalizes the operator priority to "balanced" when empty.
func (r *PlanningRequest) Validate() error {
	if err := r.Scenario.Validate(); err != nil {
		return err
	}
	if r.Constraints != nil {
		if err := r.Constraints.Validate(); err != nil {
			return err
		}
	}
	if r.AlignmentTargets != nil {
		if err := r.AlignmentTargets.Validate(); err != nil {
			return err
		}
	}
	if r.OperatorPriority == "" {
		r.OperatorPriority = PriorityBalanced
	}
	if !r.OperatorPriority.Valid() {
		return &ValidationError{Field: "operator_priority", Reason: "must be one of balanced, profit_focus, service_focus"}
	}
	return nil
}

// PlanningResponse is the loop's final, immutable output: the initial
// operator plan evaluation, the best plan found across refinement
// rounds, the full per-round trace, and the two advisory context
// analyses.
type PlanningResponse struct {
	RequestID              string            `json:"request_id"`
	Timestamp              time.Time         `json:"timestamp"`
	Scenario               Scenario          `json:"scenario"`
	RestaurantOperatorPlan *OptionEvaluation `json:"restaurant_operator_plan"`
	ShadowOperatorBestPlan *OptionEvaluation `json:"shadow_operator_best_plan,omitempty"`
	Iterations             []IterationTrace  `json:"iterations"`
	DemandAnalysis         *DemandPrediction `json:"demand_analysis,omitempty"`
	CapacityAnalysis       *CapacityAnalysis `json:"capacity_analysis,omitempty"`
	ExecutionTimeSeconds   float64           `json:"execution_time_seconds"`
}

// BestEvaluation returns the best refined plan when present, falling
// back to the initial operator plan.
func (r *PlanningResponse) BestEvaluation() *OptionEvaluation {
	if r.ShadowOperatorBestPlan != nil {
		return r.ShadowOperatorBestPlan
	}
	return r.RestaurantOperatorPlan
}

// ── Shift Evaluation ─────────────────────────────────────────

// ActualPerformanceData is the observed outcome of an executed shift.
type ActualPerformanceData struct {
	CustomersServed    int      `json:"customers_served"`
	Revenue            float64  `json:"revenue"`
	AvgWaitTimeSeconds int      `json:"avg_wait_time_seconds"`
	LaborCost          float64  `json:"labor_cost"`
	ReportedIssues     []string `json:"reported_issues,omitempty"`
}

func (a *ActualPerformanceData) Validate() error {
	if a.CustomersServed < 0 || a.Revenue < 0 || a.AvgWaitTimeSeconds < 0 || a.LaborCost < 0 {
		return &ValidationError{Field: "actual_data", Reason: "values must be >= 0"}
	}
	return nil
}

// EvaluationRequest asks for a prediction-vs-actual comparison of a
// completed planning session.
type EvaluationRequest struct {
	PlanningResponse PlanningResponse      `json:"planning_response"`
	ActualData       ActualPerformanceData `json:"actual_data"`
}

func (r *EvaluationRequest) Validate() error {
	if r.PlanningResponse.BestEvaluation() == nil {
		return &ValidationError{Field: "planning_response", Reason: "must contain at least one evaluation"}
	}
	return r.ActualData.Validate()
}

// EvaluationResult is the structured prediction-accuracy analysis.
type EvaluationResult struct {
	AccuracyAnalysis  map[string]string        `json:"accuracy_analysis"`
	ErrorAnalysis     []map[string]interface{} `json:"error_analysis"`
	RootCauses        []string                 `json:"root_causes"`
	ModelImprovements []map[string]interface{} `json:"model_improvements"`
	DecisionQuality   map[string]interface{}   `json:"decision_quality"`
	LearningSummary   string                   `json:"learning_summary"`
}

// EvaluationResponse wraps an EvaluationResult with the overall
// quality verdict.
type EvaluationResponse struct {
	RequestID         string           `json:"request_id"`
	Timestamp         time.Time        `json:"timestamp"`
	Evaluation        EvaluationResult `json:"evaluation"`
	PredictionQuality string           `json:"prediction_quality"`
}
