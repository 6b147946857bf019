package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shiftcast/shiftcast/internal/config"
	"github.com/shiftcast/shiftcast/pkg/models"
	"github.com/shiftcast/shiftcast/pkg/server"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Run one planning session from the terminal",
	Long: `Plan staffing for a single shift. The scenario comes from flags or
from a named preset; explicit flags override preset values.

Requires GOOGLE_API_KEY for the reasoning service.`,
	Example: `  shiftcast plan --shift dinner --day friday --weather rainy
  shiftcast plan --preset friday-dinner-rush --available-staff 12
  shiftcast plan --shift lunch --events "stadium game" --priority profit_focus`,
	RunE: runPlan,
}

// Flags for plan
var (
	planShift    string
	planDay      string
	planWeather  string
	planDate     string
	planLocation string
	planEvents   []string
	planStaff    int
	planBudget   float64
	planPriority string
	planPreset   string
	planOutput   string
)

func init() {
	planCmd.Flags().StringVar(&planShift, "shift", "dinner", "Shift to plan (breakfast, lunch, dinner)")
	planCmd.Flags().StringVar(&planDay, "day", "friday", "Day of week")
	planCmd.Flags().StringVar(&planWeather, "weather", "sunny", "Weather forecast (sunny, cloudy, rainy, stormy)")
	planCmd.Flags().StringVar(&planDate, "date", "", "Shift date (YYYY-MM-DD)")
	planCmd.Flags().StringVar(&planLocation, "location", "downtown", "Restaurant location")
	planCmd.Flags().StringSliceVar(&planEvents, "events", nil, "Special events near the restaurant")
	planCmd.Flags().IntVar(&planStaff, "available-staff", 0, "Staff available for the shift (0 = default pool)")
	planCmd.Flags().Float64Var(&planBudget, "budget-hours", 0, "Labor budget in hours (0 = default)")
	planCmd.Flags().StringVar(&planPriority, "priority", "", "Operator priority (balanced, profit_focus, service_focus)")
	planCmd.Flags().StringVar(&planPreset, "preset", "", "Scenario preset name (see 'shiftcast presets')")
	planCmd.Flags().StringVar(&planOutput, "output", "", "Write the full planning response JSON to this file")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	req, err := buildPlanRequest(cmd, cfg)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderScenario(req))

	pl := server.NewPlanner(cfg)
	resp, err := pl.PlanShift(ctx, *req)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderPlanResponse(resp))

	if err := persistPlan(cmd, cfg, resp); err != nil {
		log.Warn().Err(err).Msg("Failed to persist planning result")
	}

	if planOutput != "" {
		if err := writeJSONFile(planOutput, resp); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		cmd.Printf("Full response written to %s\n", planOutput)
	}
	return nil
}

// buildPlanRequest assembles the planning request from the preset (if
// any) and the scenario flags. With a preset, only flags the user
// explicitly set override it.
func buildPlanRequest(cmd *cobra.Command, cfg *config.Config) (*models.PlanningRequest, error) {
	var req *models.PlanningRequest

	if planPreset != "" {
		cat := server.NewCatalog(cfg.Catalog)
		resolved, err := cat.Resolve(planPreset)
		if err != nil {
			return nil, err
		}
		req = resolved

		flags := cmd.Flags()
		if flags.Changed("shift") {
			req.Scenario.Shift = models.ShiftType(planShift)
		}
		if flags.Changed("day") {
			req.Scenario.DayOfWeek = planDay
		}
		if flags.Changed("weather") {
			req.Scenario.Weather = models.WeatherType(planWeather)
		}
		if flags.Changed("date") {
			req.Scenario.Date = planDate
		}
		if flags.Changed("location") {
			req.Scenario.Restaurant.Location = planLocation
		}
		if flags.Changed("events") {
			req.Scenario.SpecialEvents = planEvents
		}
	} else {
		req = &models.PlanningRequest{
			Scenario: models.Scenario{
				Shift:         models.ShiftType(planShift),
				Date:          planDate,
				DayOfWeek:     planDay,
				Weather:       models.WeatherType(planWeather),
				SpecialEvents: planEvents,
				Restaurant: models.RestaurantConfig{
					Location:     planLocation,
					HasDriveThru: true,
					DineIn:       true,
				},
			},
		}
	}

	if planPriority != "" {
		req.OperatorPriority = models.OperatorPriority(planPriority)
	}
	if planStaff > 0 || planBudget > 0 {
		cons := req.Constraints
		if cons == nil {
			cons = models.DefaultConstraints()
		}
		if planStaff > 0 {
			cons.AvailableStaff = planStaff
		}
		if planBudget > 0 {
			cons.BudgetHours = planBudget
		}
		req.Constraints = cons
	}
	return req, nil
}

// persistPlan saves the response to the configured store so
// 'shiftcast results' can list it later.
func persistPlan(cmd *cobra.Command, cfg *config.Config, resp *models.PlanningResponse) error {
	st, err := server.NewStore(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SavePlan(cmd.Context(), resp); err != nil {
		return err
	}
	cmd.Printf("Result stored as %s\n", resp.RequestID)
	return nil
}

func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
