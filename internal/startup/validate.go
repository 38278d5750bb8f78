// Package startup provides startup validation and initialization for darkroom.
//
// It wires configuration into components and checks that the optional
// generative service is reachable before the application starts accepting
// requests.
package startup

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/hurricanerix/darkroom/internal/genai"
)

// ErrInvalidAIURL is returned when the generative endpoint URL is malformed
var ErrInvalidAIURL = errors.New("invalid generative service URL")

// validateTimeout is the timeout for the generative service health check
const validateTimeout = 5 * time.Second

// ValidateAIURL checks that the configured endpoint is a well-formed
// http(s) URL. A bad URL is a configuration mistake and is always fatal,
// unlike an unreachable service.
func ValidateAIURL(baseURL string) error {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAIURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: must use http or https scheme, got: %s", ErrInvalidAIURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: must have a host", ErrInvalidAIURL)
	}
	return nil
}

// ValidateAI checks that the generative service is running and serving the
// configured model. The editor works without it - local adjustments, masks,
// undo and export never touch the service - so callers should treat a
// failure here as a warning, not a startup error.
func ValidateAI(ctx context.Context, client *genai.Client) error {
	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	return client.Connect(ctx)
}
