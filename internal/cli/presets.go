package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shiftcast/shiftcast/internal/config"
	"github.com/shiftcast/shiftcast/pkg/server"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List restaurant profiles and scenario presets",
	Long: `List every profile and scenario preset the catalog knows: the
builtins plus anything loaded from CATALOG_PRESETS_DIR. Preset names
are accepted by 'shiftcast plan --preset'.`,
	RunE: runPresets,
}

func runPresets(cmd *cobra.Command, args []string) error {
	cat := server.NewCatalog(config.Load().Catalog)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "PROFILE\tLOCATION\tKITCHEN\tDESCRIPTION")
	for _, p := range cat.ListProfiles() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			p.Name,
			p.Restaurant.Location,
			p.Restaurant.KitchenCapacity,
			p.Description,
		)
	}

	fmt.Fprintln(w, "\t\t\t")
	fmt.Fprintln(w, "SCENARIO\tSHIFT\tDAY\tDESCRIPTION")
	for _, s := range cat.ListScenarios() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			s.Name,
			s.Scenario.Shift,
			s.Scenario.DayOfWeek,
			s.Description,
		)
	}

	return w.Flush()
}
