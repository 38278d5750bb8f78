package startup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hurricanerix/darkroom/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:          8080,
		MaxUploadMB:   32,
		MaxSessions:   8,
		SessionTTL:    30,
		AIURL:         "http://localhost:8601",
		AIModel:       "pixelforge-2",
		AITimeout:     120,
		PresetDB:      "",
		ExportQuality: 92,
		LogLevel:      "info",
	}
}

func TestCreateLogger(t *testing.T) {
	logger := CreateLogger(testConfig())

	if logger == nil {
		t.Fatal("CreateLogger() returned nil")
	}
}

func TestCreateAIClient(t *testing.T) {
	cfg := testConfig()

	client := CreateAIClient(cfg)

	if client == nil {
		t.Fatal("CreateAIClient() returned nil")
	}

	if client.Endpoint() != cfg.AIURL {
		t.Errorf("Endpoint() = %s, want %s", client.Endpoint(), cfg.AIURL)
	}

	if client.Model() != cfg.AIModel {
		t.Errorf("Model() = %s, want %s", client.Model(), cfg.AIModel)
	}
}

func TestCreateSessionManager(t *testing.T) {
	cfg := testConfig()
	manager := CreateSessionManager(cfg, CreateLogger(cfg))

	if manager == nil {
		t.Fatal("CreateSessionManager() returned nil")
	}
	defer manager.Shutdown()

	if manager.Count() != 0 {
		t.Errorf("Count() = %d, want 0", manager.Count())
	}
}

func TestCreatePresetStoreMemory(t *testing.T) {
	cfg := testConfig()
	cfg.PresetDB = ""

	store, err := CreatePresetStore(cfg)
	if err != nil {
		t.Fatalf("CreatePresetStore() error = %v, want nil", err)
	}
	defer store.Close()

	presets, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(presets) == 0 {
		t.Error("List() returned no presets, want built-ins")
	}
}

func TestCreatePresetStoreSQLite(t *testing.T) {
	cfg := testConfig()
	cfg.PresetDB = filepath.Join(t.TempDir(), "presets.db")

	store, err := CreatePresetStore(cfg)
	if err != nil {
		t.Fatalf("CreatePresetStore() error = %v, want nil", err)
	}
	defer store.Close()

	if _, err := store.List(); err != nil {
		t.Errorf("List() error = %v, want nil", err)
	}
}

func TestInitializeAll(t *testing.T) {
	cfg := testConfig()
	logger := CreateLogger(cfg)

	components, err := InitializeAll(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("InitializeAll() error = %v, want nil", err)
	}
	defer Cleanup(components, logger)

	if components.AIClient == nil {
		t.Error("AIClient is nil")
	}
	if components.SessionManager == nil {
		t.Error("SessionManager is nil")
	}
	if components.ImageStore == nil {
		t.Error("ImageStore is nil")
	}
	if components.PresetStore == nil {
		t.Error("PresetStore is nil")
	}
	if components.WebServer == nil {
		t.Error("WebServer is nil")
	}
	if components.Logger == nil {
		t.Error("Logger is nil")
	}
}

func TestCleanupNilComponents(t *testing.T) {
	// Must not panic
	Cleanup(nil, CreateLogger(testConfig()))
}
