// Package server wires the full planning service: configuration,
// telemetry, store, planner, preset catalog, notifications, retention,
// and the HTTP router. It is the single composition root used by the
// CLI's serve command.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/shiftcast/shiftcast/internal/api"
	"github.com/shiftcast/shiftcast/internal/api/handlers"
	"github.com/shiftcast/shiftcast/internal/catalog"
	"github.com/shiftcast/shiftcast/internal/config"
	"github.com/shiftcast/shiftcast/internal/notify"
	"github.com/shiftcast/shiftcast/internal/planner"
	"github.com/shiftcast/shiftcast/internal/reasoning"
	"github.com/shiftcast/shiftcast/internal/retention"
	"github.com/shiftcast/shiftcast/internal/sessions"
	"github.com/shiftcast/shiftcast/internal/store"
	"github.com/shiftcast/shiftcast/internal/telemetry"
)

// Server holds the initialized planning service.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Store is the result store (memory or postgres).
	Store store.Store

	// Config is the effective configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	shutdownTelemetry func(context.Context) error
	stopJanitor       context.CancelFunc
}

// New initializes all components from environment configuration.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, config.Load())
}

// NewWithConfig initializes the service with an explicit configuration.
func NewWithConfig(ctx context.Context, cfg *config.Config) (*Server, error) {
	shutdown, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	dataStore, err := NewStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	pl := NewPlanner(cfg)
	cat := NewCatalog(cfg.Catalog)
	reg := sessions.NewRegistry()
	notifier := notify.NewService(cfg.Notify)
	if notifier.Enabled() {
		log.Info().Str("url", cfg.Notify.WebhookURL).Msg("Webhook notifications enabled")
	}

	h := handlers.New(pl, dataStore, cat, reg, notifier)
	router := api.NewRouter(cfg, h)

	stopJanitor := func() {}
	if cfg.Retention.Enabled && cfg.Retention.MaxResultAge > 0 {
		jctx, cancel := context.WithCancel(context.Background())
		stopJanitor = cancel
		j := retention.NewJanitor(dataStore, cfg.Retention.MaxResultAge, cfg.Retention.SweepInterval)
		go j.Start(jctx)
	}

	return &Server{
		Handler:           router,
		Store:             dataStore,
		Config:            cfg,
		Port:              cfg.Port,
		shutdownTelemetry: shutdown,
		stopJanitor:       stopJanitor,
	}, nil
}

// NewStore builds the result store named by the driver config.
func NewStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "postgres":
		s, err := store.NewPostgresStore(ctx, cfg.DatabaseURL, cfg.MaxConnections)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return s, nil
	case "", "memory":
		return store.NewMemoryStore(cfg.SnapshotPath), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// NewPlanner builds the decision-loop planner against the configured
// reasoning service.
func NewPlanner(cfg *config.Config) *planner.Planner {
	invoker := reasoning.NewClient(reasoning.Options{
		Endpoint: cfg.Reasoning.Endpoint,
		Model:    cfg.Reasoning.Model,
		APIKey:   cfg.Reasoning.APIKey,
		Timeout:  cfg.Reasoning.RequestTimeout,
	})
	return planner.New(planner.Options{
		Invoker: invoker,
		Retry: reasoning.Policy{
			MaxAttempts:       cfg.Reasoning.MaxAttempts,
			InitialBackoff:    cfg.Reasoning.InitialBackoff,
			BackoffMultiplier: cfg.Reasoning.BackoffMultiplier,
			MaxBackoff:        cfg.Reasoning.MaxBackoff,
		},
		Temperature:     cfg.Reasoning.Temperature,
		MaxOutputTokens: cfg.Reasoning.MaxOutputTokens,
		MaxRefinements:  cfg.Planner.MaxRefinements,
		TargetScore:     cfg.Planner.TargetScore,
	})
}

// NewCatalog builds the preset catalog, loading the optional YAML
// presets directory on top of the builtins.
func NewCatalog(cfg config.CatalogConfig) *catalog.Catalog {
	cat := catalog.New()
	if cfg.PresetsDir != "" {
		if err := cat.LoadDir(cfg.PresetsDir); err != nil {
			log.Warn().Err(err).Str("dir", cfg.PresetsDir).Msg("Failed to load preset directory")
		}
	}
	return cat
}

// Close stops background work, flushes telemetry, and closes the store.
func (s *Server) Close(ctx context.Context) error {
	s.stopJanitor()
	if s.shutdownTelemetry != nil {
		if err := s.shutdownTelemetry(ctx); err != nil {
			log.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}
	return s.Store.Close()
}
