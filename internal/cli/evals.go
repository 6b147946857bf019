package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shiftcast/shiftcast/internal/config"
	"github.com/shiftcast/shiftcast/internal/evals"
	"github.com/shiftcast/shiftcast/pkg/server"
)

var evalsCmd = &cobra.Command{
	Use:   "evals",
	Short: "Offline eval harness for the planning loop",
}

var evalsRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run eval cases against the planner",
	Long: `Execute every eval case found in the case file or directory and
report hard-constraint violations and failed checks per case.

The default driver is a deterministic stub, so runs are free and
reproducible. --live routes each case through the real reasoning
service instead.`,
	Example: `  shiftcast evals run --cases evals/cases
  shiftcast evals run --cases evals/cases/rush.yaml --output summary.json
  shiftcast evals run --live`,
	RunE: runEvals,
}

// Flags for evals run
var (
	evalsCases  string
	evalsOutput string
	evalsLive   bool
)

func init() {
	evalsRunCmd.Flags().StringVar(&evalsCases, "cases", "evals/cases", "Eval case YAML file or directory")
	evalsRunCmd.Flags().StringVar(&evalsOutput, "output", "", "Write the run summary JSON to this file")
	evalsRunCmd.Flags().BoolVar(&evalsLive, "live", false, "Call the real reasoning service instead of the stub driver")

	evalsCmd.AddCommand(evalsRunCmd)
}

func runEvals(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cases, err := evals.LoadCases(evalsCases)
	if err != nil {
		return fmt.Errorf("failed to load cases: %w", err)
	}
	if len(cases) == 0 {
		return fmt.Errorf("no eval cases found under %s", evalsCases)
	}

	plan := evals.StubPlanFunc()
	if evalsLive {
		plan = server.NewPlanner(config.Load()).PlanShift
	}

	summary, err := evals.NewRunner(plan).Run(ctx, cases)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), renderEvalSummary(summary))

	if evalsOutput != "" {
		if err := evals.WriteSummary(summary, evalsOutput); err != nil {
			return fmt.Errorf("failed to write summary: %w", err)
		}
		cmd.Printf("Summary written to %s\n", evalsOutput)
	}

	if summary.PassedCases < summary.TotalCases {
		return fmt.Errorf("%d of %d cases failed", summary.TotalCases-summary.PassedCases, summary.TotalCases)
	}
	return nil
}
