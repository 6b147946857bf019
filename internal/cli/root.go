// Package cli implements the shiftcast command line interface: the API
// server, one-shot planning and evaluation runs, stored-result listing,
// and the offline eval harness.
package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shiftcast/shiftcast/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "shiftcast",
	Short: "Shiftcast - reasoning-driven shift staffing planner",
	Long: `Shiftcast plans quick-service restaurant shift staffing with an
iterative reasoning loop: generate candidate plans, simulate each shift,
score the outcomes, and refine until the plan is good enough.

Run 'shiftcast serve' to start the HTTP API, or 'shiftcast plan' to run
a single planning session from the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with a signal-aware context. SIGINT and
// SIGTERM cancel the context so long-running commands shut down cleanly.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(setupLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(evalsCmd)
	rootCmd.AddCommand(versionCmd)
}

// setupLogging configures zerolog from LOG_LEVEL and LOG_FORMAT before
// any command runs. Console output is the default; LOG_FORMAT=json
// keeps the raw structured stream for log collectors.
func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if strings.ToLower(os.Getenv("LOG_FORMAT")) != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	level := zerolog.InfoLevel
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(raw))
		if err != nil || parsed == zerolog.NoLevel {
			log.Warn().Str("level", raw).Msg("Unknown LOG_LEVEL, using info")
		} else {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("shiftcast v%s\n", config.Load().Version)
	},
}
