package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hurricanerix/darkroom/internal/config"
	"github.com/hurricanerix/darkroom/internal/startup"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse configuration from CLI flags
	cfg, err := config.Parse(os.Args[1:], os.Stderr)
	if errors.Is(err, config.ErrShowHelp) || errors.Is(err, config.ErrShowVersion) {
		// Help or version was shown, exit successfully
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// Create logger early
	logger := startup.CreateLogger(cfg)

	// Log startup
	logger.Info("Starting darkroom...")
	logger.Debug("Configuration: port=%d, max-upload-mb=%d, max-sessions=%d, session-ttl=%dm, export-quality=%d",
		cfg.Port, cfg.MaxUploadMB, cfg.MaxSessions, cfg.SessionTTL, cfg.ExportQuality)
	logger.Debug("Generative service: url=%s, model=%s, timeout=%ds", cfg.AIURL, cfg.AIModel, cfg.AITimeout)
	logger.Debug("Log level: %s", cfg.LogLevel)

	// A malformed endpoint URL is a configuration error
	if err := startup.ValidateAIURL(cfg.AIURL); err != nil {
		logger.Error("Generative URL validation failed: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx := context.Background()

	// Initialize all components
	logger.Debug("Initializing components...")
	components, err := startup.InitializeAll(ctx, cfg, logger)
	if err != nil {
		logger.Error("Initialization failed: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer startup.Cleanup(components, logger)

	// Check the generative service. The editor runs fine without it, so an
	// unreachable service only disables the generative actions.
	logger.Debug("Validating generative service connection...")
	if err := startup.ValidateAI(ctx, components.AIClient); err != nil {
		logger.Warn("Generative service unavailable: %v", err)
		fmt.Fprintf(os.Stderr, "Warning: generative service unavailable: %v\n", err)
		fmt.Fprintf(os.Stderr, "Generative actions are disabled. To enable them, start the service at %s\n", cfg.AIURL)
		fmt.Fprintf(os.Stderr, "with the %s model available, then restart darkroom.\n", cfg.AIModel)
	} else {
		logger.Info("Connected to generative service at %s (model: %s)", cfg.AIURL, cfg.AIModel)
	}

	// Log server startup
	logger.Info("Listening on http://localhost:%d", cfg.Port)

	// Run server and wait for shutdown signal
	if err := startup.Run(ctx, components.WebServer, logger); err != nil {
		logger.Error("Server error: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}
