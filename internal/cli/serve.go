package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shiftcast/shiftcast/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the shiftcast API server",
	Long: `Start the HTTP API. All settings come from environment variables;
the defaults run a fully in-memory service on port 8081.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	log.Info().Msg("🍽️ Shiftcast starting...")

	srv, err := server.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", srv.Port),
		Handler:      srv.Handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM via the command context.
	go func() {
		<-ctx.Done()
		log.Info().Msg("🛑 Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP shutdown failed")
		}
	}()

	log.Info().
		Int("port", srv.Port).
		Str("store", srv.Config.Store.Driver).
		Str("model", srv.Config.Reasoning.Model).
		Msg("✅ Shiftcast is ready to plan shifts")

	serveErr := httpServer.ListenAndServe()

	closeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Close(closeCtx); err != nil {
		log.Warn().Err(err).Msg("Cleanup failed")
	}

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", serveErr)
	}
	return nil
}
