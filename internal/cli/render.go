package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/shiftcast/shiftcast/internal/evals"
	"github.com/shiftcast/shiftcast/internal/store"
	"github.com/shiftcast/shiftcast/pkg/models"
)

// Shared terminal styles. lipgloss drops the escape codes when no TTY
// is attached, so plain output stays clean.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFD93D"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#555555")).
			Padding(0, 1)

	goodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF87")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD93D"))

	badStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)
)

// scoreStyle picks the color band for an aggregate score.
func scoreStyle(score float64) lipgloss.Style {
	switch {
	case score >= 0.85:
		return goodStyle
	case score >= 0.60:
		return warnStyle
	default:
		return badStyle
	}
}

func formatScore(score float64) string {
	return scoreStyle(score).Render(fmt.Sprintf("%.3f", score))
}

func riskStyle(risk models.RiskLevel) lipgloss.Style {
	switch risk {
	case models.RiskVeryLow, models.RiskLow:
		return goodStyle
	case models.RiskMedium:
		return warnStyle
	default:
		return badStyle
	}
}

func renderScenario(req *models.PlanningRequest) string {
	s := req.Scenario
	detail := fmt.Sprintf("%s, %s, %s", s.DayOfWeek, s.Weather, s.Restaurant.Location)
	if len(s.SpecialEvents) > 0 {
		detail += "  [" + strings.Join(s.SpecialEvents, ", ") + "]"
	}
	return titleStyle.Render(fmt.Sprintf("Planning %s shift", s.Shift)) + "\n" + dimStyle.Render(detail)
}

// renderPlanResponse draws the recommended staffing panel: station
// allocation, per-objective scores, and the plan metadata.
func renderPlanResponse(resp *models.PlanningResponse) string {
	best := resp.BestEvaluation()
	if best == nil {
		return badStyle.Render("No plan produced")
	}

	plan := best.Option
	scores := best.Scores
	aggregate := scores.Aggregate()

	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render("Recommended staffing"))
	fmt.Fprintf(&b, "%-22s %d\n", "Drive-thru", plan.Staffing.DriveThru)
	fmt.Fprintf(&b, "%-22s %d\n", "Kitchen", plan.Staffing.Kitchen)
	fmt.Fprintf(&b, "%-22s %d\n", "Front counter", plan.Staffing.FrontCounter)
	fmt.Fprintf(&b, "%-22s %d\n\n", "Total", plan.Staffing.Total)

	fmt.Fprintf(&b, "%-22s %s\n", "Profit", formatScore(scores.Profit.RawScore))
	fmt.Fprintf(&b, "%-22s %s\n", "Customer satisfaction", formatScore(scores.CustomerSatisfaction.RawScore))
	fmt.Fprintf(&b, "%-22s %s\n", "Staff wellbeing", formatScore(scores.StaffWellbeing.RawScore))
	fmt.Fprintf(&b, "%-22s %s  %s\n\n", "Aggregate",
		formatScore(aggregate), dimStyle.Render(models.RankingForScore(aggregate)))

	fmt.Fprintf(&b, "Strategy: %s   Risk: %s   Est. labor cost: $%.2f\n",
		plan.Strategy, riskStyle(plan.RiskLevel).Render(string(plan.RiskLevel)), plan.EstimatedLaborCost)
	fmt.Fprintf(&b, "Iterations: %d   Time: %.1fs",
		len(resp.Iterations), resp.ExecutionTimeSeconds)

	if plan.Rationale != "" {
		fmt.Fprintf(&b, "\n\n%s", dimStyle.Render(wrap(plan.Rationale, 72)))
	}

	return panelStyle.Render(b.String())
}

func renderEvaluationResponse(resp *models.EvaluationResponse) string {
	var b strings.Builder

	quality := resp.PredictionQuality
	style := warnStyle
	switch strings.ToLower(quality) {
	case "excellent", "good":
		style = goodStyle
	case "poor":
		style = badStyle
	}

	fmt.Fprintf(&b, "%s\n\n", titleStyle.Render("Shift post-mortem"))
	fmt.Fprintf(&b, "Prediction quality: %s\n", style.Render(quality))

	if len(resp.Evaluation.RootCauses) > 0 {
		b.WriteString("\nRoot causes:\n")
		for _, cause := range resp.Evaluation.RootCauses {
			fmt.Fprintf(&b, "  - %s\n", cause)
		}
	}
	if resp.Evaluation.LearningSummary != "" {
		fmt.Fprintf(&b, "\n%s", dimStyle.Render(wrap(resp.Evaluation.LearningSummary, 72)))
	}

	return panelStyle.Render(b.String())
}

func renderResultsTable(summaries []store.PlanSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-36s  %-16s  %-9s  %-9s  %-7s  %-14s  %s\n",
		"REQUEST ID", "TIMESTAMP", "SHIFT", "DAY", "WEATHER", "LOCATION", "SCORE")
	for _, s := range summaries {
		fmt.Fprintf(&b, "%-36s  %-16s  %-9s  %-9s  %-7s  %-14s  %s\n",
			s.RequestID,
			s.Timestamp.Format("2006-01-02 15:04"),
			s.Shift,
			s.DayOfWeek,
			s.Weather,
			truncate(s.Location, 14),
			formatScore(s.BestScore),
		)
	}
	return b.String()
}

func renderEvalSummary(summary *evals.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-30s  %-6s  %-7s  %s\n", "CASE", "RESULT", "SCORE", "DETAIL")
	for _, r := range summary.Results {
		status := badStyle.Render("FAIL")
		if r.Passed {
			status = goodStyle.Render("PASS")
		}

		detail := strings.Join(r.Failures, "; ")
		if r.Error != "" {
			detail = r.Error
		}

		fmt.Fprintf(&b, "%-30s  %s    %-7s  %s\n",
			truncate(r.CaseID, 30),
			status,
			fmt.Sprintf("%.3f", r.BestScore),
			truncate(detail, 60),
		)
	}

	rate := summary.PassRate * 100
	line := fmt.Sprintf("%d/%d cases passed (%.1f%%)", summary.PassedCases, summary.TotalCases, rate)
	b.WriteString("\n" + scoreStyle(summary.PassRate).Render(line) + "\n")
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// wrap folds text at word boundaries so panel content stays readable.
func wrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	var b strings.Builder
	lineLen := 0
	for i, word := range words {
		if i > 0 {
			if lineLen+1+len(word) > width {
				b.WriteByte('\n')
				lineLen = 0
			} else {
				b.WriteByte(' ')
				lineLen++
			}
		}
		b.WriteString(word)
		lineLen += len(word)
	}
	return b.String()
}
