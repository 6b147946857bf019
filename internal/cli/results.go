package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shiftcast/shiftcast/internal/config"
	"github.com/shiftcast/shiftcast/internal/store"
	"github.com/shiftcast/shiftcast/pkg/server"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List recent planning results",
	RunE:  runResults,
}

var resultsShowCmd = &cobra.Command{
	Use:   "show REQUEST_ID",
	Short: "Print one stored result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runResultsShow,
}

// Flags for results
var (
	resultsLimit int
	resultsJSON  bool
)

func init() {
	resultsCmd.Flags().IntVar(&resultsLimit, "limit", 20, "Maximum number of results to list")
	resultsCmd.Flags().BoolVar(&resultsJSON, "json", false, "Emit the listing as JSON")
	resultsCmd.AddCommand(resultsShowCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := server.NewStore(ctx, config.Load().Store)
	if err != nil {
		return err
	}
	defer st.Close()

	summaries, err := st.ListPlans(ctx, resultsLimit)
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}

	if resultsJSON {
		data, err := marshalIndent(summaries)
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	if len(summaries) == 0 {
		cmd.Println("No planning results stored yet. Run 'shiftcast plan' first.")
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), renderResultsTable(summaries))
	return nil
}

func runResultsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := args[0]

	st, err := server.NewStore(ctx, config.Load().Store)
	if err != nil {
		return err
	}
	defer st.Close()

	// Same lookup order as the API: plans, then evaluations.
	if plan, err := st.GetPlan(ctx, id); err == nil {
		return printJSON(cmd, plan)
	} else if _, ok := err.(*store.ErrNotFound); !ok {
		return err
	}

	eval, err := st.GetEvaluation(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(cmd, eval)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := marshalIndent(v)
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}

func marshalIndent(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}
	return data, nil
}
