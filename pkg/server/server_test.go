package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shiftcast/shiftcast/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Port = 0
	cfg.Store.Driver = "memory"
	cfg.Store.SnapshotPath = ""
	cfg.Telemetry.Enabled = false
	cfg.Retention.Enabled = false
	cfg.Notify.WebhookURL = ""
	cfg.Auth.APIKey = ""
	return cfg
}

func TestNewWithConfigWiresMemoryStack(t *testing.T) {
	ctx := context.Background()
	srv, err := NewWithConfig(ctx, testConfig())
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	defer srv.Close(ctx)

	if srv.Handler == nil {
		t.Fatal("Handler is nil")
	}
	if err := srv.Store.Ping(ctx); err != nil {
		t.Fatalf("store ping: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestNewStoreUnknownDriver(t *testing.T) {
	if _, err := NewStore(context.Background(), config.StoreConfig{Driver: "cassandra"}); err == nil {
		t.Fatal("expected error for unknown driver, got nil")
	}
}

func TestNewStoreDefaultsToMemory(t *testing.T) {
	s, err := NewStore(context.Background(), config.StoreConfig{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestNewCatalogToleratesMissingDir(t *testing.T) {
	cat := NewCatalog(config.CatalogConfig{PresetsDir: "testdata/does-not-exist"})
	if len(cat.ListScenarios()) == 0 {
		t.Error("builtin scenarios missing after failed directory load")
	}
}
