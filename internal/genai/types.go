// Package genai provides the client for the external generative image
// service. The service is treated as an opaque, fallible function: image +
// instruction + optional mask in, new image or advisory text out. The
// client owns no retry policy; a failed call surfaces as a single error.
package genai

// Default configuration constants.
const (
	DefaultEndpoint = "http://localhost:8601"
	DefaultModel    = "pixelforge-2"
	DefaultTimeout  = 120 // seconds
)

// API endpoints.
const (
	EndpointHealth   = "/v1/health"
	EndpointGenerate = "/v1/generate"
)

// Mask polarity clauses appended to the instruction when a mask payload is
// attached. The clause names which region of the mask confines the edit.
const (
	MaskClauseWhite = " You have been provided a second image which is a mask. Apply the effect ONLY to the area corresponding to the WHITE region of the mask."
	MaskClauseBlack = " You have been provided a second image which is a mask. Apply the effect ONLY to the area corresponding to the BLACK region of the mask."
)

// payload is an encoded image on the wire.
type payload struct {
	// MimeType tags the encoding, e.g. "image/png".
	MimeType string `json:"mimeType"`
	// Data is the base64-encoded image.
	Data string `json:"data"`
}

// generateRequest is the request body for EndpointGenerate.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`

	// Image is the primary payload: the current render at natural
	// resolution.
	Image payload `json:"image"`

	// Mask is the optional secondary payload confining the edit.
	Mask *payload `json:"mask,omitempty"`
}

// generateResponse is the response body for EndpointGenerate. Exactly one
// of Image or Text is expected on success.
type generateResponse struct {
	Image *payload `json:"image,omitempty"`
	Text  string   `json:"text,omitempty"`
	Error string   `json:"error,omitempty"`
}

// healthResponse is the response body for EndpointHealth.
type healthResponse struct {
	Models []string `json:"models"`
}
