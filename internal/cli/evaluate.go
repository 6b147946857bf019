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

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Compare a plan's predictions against the shift that actually happened",
	Long: `Feed the observed outcome of an executed shift back to the reasoning
service for a prediction-accuracy post-mortem. The plan comes from a
JSON file (--plan-file) or from the result store (--plan-id).`,
	Example: `  shiftcast evaluate --plan-id 8f14e45f --customers 412 --revenue 5180.50 \
      --wait-time 205 --labor-cost 1390 --issues "drive-thru backed up at 19:00"`,
	RunE: runEvaluate,
}

// Flags for evaluate
var (
	evalPlanFile  string
	evalPlanID    string
	evalCustomers int
	evalRevenue   float64
	evalWaitTime  int
	evalLaborCost float64
	evalIssues    []string
	evalOutput    string
)

func init() {
	evaluateCmd.Flags().StringVar(&evalPlanFile, "plan-file", "", "Path to a planning response JSON file")
	evaluateCmd.Flags().StringVar(&evalPlanID, "plan-id", "", "Request ID of a stored planning result")
	evaluateCmd.Flags().IntVar(&evalCustomers, "customers", 0, "Customers actually served")
	evaluateCmd.Flags().Float64Var(&evalRevenue, "revenue", 0, "Actual revenue")
	evaluateCmd.Flags().IntVar(&evalWaitTime, "wait-time", 0, "Actual average wait time in seconds")
	evaluateCmd.Flags().Float64Var(&evalLaborCost, "labor-cost", 0, "Actual labor cost")
	evaluateCmd.Flags().StringSliceVar(&evalIssues, "issues", nil, "Issues reported during the shift")
	evaluateCmd.Flags().StringVar(&evalOutput, "output", "", "Write the full evaluation response JSON to this file")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := config.Load()

	planResp, err := loadPlanForEvaluation(cmd, cfg)
	if err != nil {
		return err
	}

	req := models.EvaluationRequest{
		PlanningResponse: *planResp,
		ActualData: models.ActualPerformanceData{
			CustomersServed:    evalCustomers,
			Revenue:            evalRevenue,
			AvgWaitTimeSeconds: evalWaitTime,
			LaborCost:          evalLaborCost,
			ReportedIssues:     evalIssues,
		},
	}

	pl := server.NewPlanner(cfg)
	resp, err := pl.EvaluateShift(ctx, req)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderEvaluationResponse(resp))

	if err := persistEvaluation(cmd, cfg, resp); err != nil {
		log.Warn().Err(err).Msg("Failed to persist evaluation result")
	}

	if evalOutput != "" {
		if err := writeJSONFile(evalOutput, resp); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		cmd.Printf("Full response written to %s\n", evalOutput)
	}
	return nil
}

func loadPlanForEvaluation(cmd *cobra.Command, cfg *config.Config) (*models.PlanningResponse, error) {
	switch {
	case evalPlanFile != "" && evalPlanID != "":
		return nil, fmt.Errorf("--plan-file and --plan-id are mutually exclusive")

	case evalPlanFile != "":
		data, err := os.ReadFile(evalPlanFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read plan file: %w", err)
		}
		var resp models.PlanningResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("failed to parse plan file: %w", err)
		}
		return &resp, nil

	case evalPlanID != "":
		st, err := server.NewStore(cmd.Context(), cfg.Store)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		resp, err := st.GetPlan(cmd.Context(), evalPlanID)
		if err != nil {
			return nil, err
		}
		return resp, nil

	default:
		return nil, fmt.Errorf("either --plan-file or --plan-id is required")
	}
}

func persistEvaluation(cmd *cobra.Command, cfg *config.Config, resp *models.EvaluationResponse) error {
	st, err := server.NewStore(cmd.Context(), cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SaveEvaluation(cmd.Context(), resp); err != nil {
		return err
	}
	cmd.Printf("Evaluation stored as %s\n", resp.RequestID)
	return nil
}
