package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/hurricanerix/darkroom/internal/config"
	"github.com/hurricanerix/darkroom/internal/genai"
	"github.com/hurricanerix/darkroom/internal/imagestore"
	"github.com/hurricanerix/darkroom/internal/logging"
	"github.com/hurricanerix/darkroom/internal/preset"
	"github.com/hurricanerix/darkroom/internal/web"
)

// Components holds all initialized application components
type Components struct {
	AIClient       *genai.Client
	SessionManager *web.SessionManager
	ImageStore     *imagestore.Store
	PresetStore    preset.Store
	WebServer      *web.Server
	Logger         *logging.Logger
}

// CreateLogger creates a logger with the configured log level
func CreateLogger(cfg *config.Config) *logging.Logger {
	return logging.NewFromString(cfg.LogLevel, nil)
}

// CreateAIClient creates a generative gateway client with the configured
// endpoint and model. It does NOT validate the connection - use
// ValidateAI() separately.
func CreateAIClient(cfg *config.Config) *genai.Client {
	return genai.NewClientWithConfig(cfg.AIURL, cfg.AIModel, time.Duration(cfg.AITimeout)*time.Second)
}

// CreateSessionManager creates a session manager for edit session state
func CreateSessionManager(cfg *config.Config, logger *logging.Logger) *web.SessionManager {
	ttl := time.Duration(cfg.SessionTTL) * time.Minute
	return web.NewSessionManager(cfg.MaxSessions, ttl, logger)
}

// CreatePresetStore opens the preset database at the configured path.
// An empty path selects an in-memory store that is discarded on exit.
func CreatePresetStore(cfg *config.Config) (preset.Store, error) {
	if cfg.PresetDB == "" {
		return preset.NewMemoryStore(), nil
	}
	store, err := preset.OpenSQLite(cfg.PresetDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open preset database %s: %w", cfg.PresetDB, err)
	}
	return store, nil
}

// CreateWebServer creates the HTTP server with all dependencies wired
func CreateWebServer(cfg *config.Config, ai *genai.Client, sessions *web.SessionManager, store *imagestore.Store, presets preset.Store, logger *logging.Logger) *web.Server {
	return web.NewServer(web.Options{
		Addr:           fmt.Sprintf("localhost:%d", cfg.Port),
		MaxUploadBytes: int64(cfg.MaxUploadMB) * 1024 * 1024,
		ExportQuality:  cfg.ExportQuality,
		Sessions:       sessions,
		Store:          store,
		Presets:        presets,
		AI:             ai,
		Log:            logger,
	})
}

// InitializeAll creates and initializes all application components.
// It does NOT validate dependencies - validation should be done separately.
func InitializeAll(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Components, error) {
	logger.Debug("Initializing components")

	aiClient := CreateAIClient(cfg)
	logger.Debug("Created generative client: endpoint=%s, model=%s", cfg.AIURL, cfg.AIModel)

	sessionManager := CreateSessionManager(cfg, logger)
	logger.Debug("Created session manager: max=%d, ttl=%dm", cfg.MaxSessions, cfg.SessionTTL)

	imageStore := imagestore.New()
	logger.Debug("Created image store")

	presetStore, err := CreatePresetStore(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.PresetDB == "" {
		logger.Debug("Created in-memory preset store")
	} else {
		logger.Debug("Opened preset database at %s", cfg.PresetDB)
	}

	webServer := CreateWebServer(cfg, aiClient, sessionManager, imageStore, presetStore, logger)
	logger.Debug("Created web server on port %d", cfg.Port)

	return &Components{
		AIClient:       aiClient,
		SessionManager: sessionManager,
		ImageStore:     imageStore,
		PresetStore:    presetStore,
		WebServer:      webServer,
		Logger:         logger,
	}, nil
}
