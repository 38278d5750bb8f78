package startup

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hurricanerix/darkroom/internal/logging"
	"github.com/hurricanerix/darkroom/internal/web"
)

// Cleanup releases resources held by the components: the session manager's
// background cleanup goroutine and the preset database handle.
//
// Errors during cleanup are logged but do not cause the function to fail,
// so cleanup proceeds even if individual steps fail. If components is nil,
// this is a no-op.
func Cleanup(components *Components, logger *logging.Logger) {
	if components == nil {
		return
	}

	logger.Debug("Starting cleanup")

	if components.SessionManager != nil {
		components.SessionManager.Shutdown()
		logger.Debug("Session manager stopped")
	}

	if components.PresetStore != nil {
		if err := components.PresetStore.Close(); err != nil {
			logger.Error("Failed to close preset store: %v", err)
		} else {
			logger.Debug("Preset store closed")
		}
	}

	logger.Debug("Cleanup complete")
}

// Run starts the web server and blocks until a shutdown signal is received.
// It handles SIGTERM and SIGINT signals for graceful shutdown.
//
// Returns nil on clean shutdown, error otherwise.
func Run(ctx context.Context, server *web.Server, logger *logging.Logger) error {
	// Create context that will be cancelled on signal
	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ListenAndServe blocks until the context is cancelled or an error
	// occurs; the server logs its own shutdown progress.
	if err := server.ListenAndServe(shutdownCtx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
