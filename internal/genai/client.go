package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"time"
)

// Sentinel errors for generative client operations.
var (
	// ErrNotRunning is returned when the service is not reachable at the
	// configured endpoint.
	ErrNotRunning = errors.New("generative service not running")
	// ErrModelNotFound is returned when the configured model is not
	// offered by the service.
	ErrModelNotFound = errors.New("model not available on generative service")
	// ErrConnectionTimeout is returned when the connection times out.
	ErrConnectionTimeout = errors.New("generative service connection timeout")
	// ErrRequestFailed is returned when an API request fails.
	ErrRequestFailed = errors.New("generative request failed")
	// ErrConnectionFailed is returned when connection fails for unknown
	// reasons.
	ErrConnectionFailed = errors.New("generative service connection failed")
	// ErrNoBaseImage is returned when Invoke is called without a primary
	// image payload.
	ErrNoBaseImage = errors.New("no base image to send")
	// ErrNoPayload is returned when the service responds with neither
	// image data nor text.
	ErrNoPayload = errors.New("generative service returned no usable payload")
	// ErrBusy is returned when a generative call is already outstanding.
	// Exactly one call may be in flight at a time.
	ErrBusy = errors.New("a generative operation is already in progress")
)

// Request is one generative invocation.
type Request struct {
	// Prompt is the instruction text. The mask clause is appended
	// automatically when a mask is attached.
	Prompt string

	// ImagePNG is the primary payload: the tone-mapped render at natural
	// resolution, PNG-encoded. Required.
	ImagePNG []byte

	// MaskPNG optionally confines the edit. Callers resolve precedence:
	// an explicit per-call mask wins over the committed state's mask.
	MaskPNG []byte

	// MaskInverted selects the BLACK-region clause instead of WHITE.
	// Meaningful only when MaskPNG is set.
	MaskInverted bool

	// WantText requests an advisory text response instead of an image.
	WantText bool
}

// Result is a successful generative response: either a new image payload
// or advisory text.
type Result struct {
	ImagePNG []byte
	MimeType string
	Text     string
}

// IsImage reports whether the result carries image data.
func (r Result) IsImage() bool {
	return len(r.ImagePNG) > 0
}

// Client communicates with the generative image service. It enforces the
// single-outstanding-call rule: Invoke fails fast with ErrBusy while
// another call is in flight, and the busy flag is released on every exit
// path.
type Client struct {
	endpoint   string
	model      string
	httpClient *http.Client
	busy       atomic.Bool
}

// NewClient creates a client with default settings.
func NewClient() *Client {
	return NewClientWithConfig(DefaultEndpoint, DefaultModel, DefaultTimeout*time.Second)
}

// NewClientWithConfig creates a client with custom endpoint, model and
// request timeout.
func NewClientWithConfig(endpoint, model string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		model:    model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// Endpoint returns the configured endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Busy reports whether a generative call is currently outstanding.
func (c *Client) Busy() bool {
	return c.busy.Load()
}

// Connect verifies the service is reachable and offers the configured
// model.
//
// Returns ErrNotRunning if the service is unreachable, ErrModelNotFound if
// the model is missing, ErrConnectionTimeout on timeout.
func (c *Client) Connect(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+EndpointHealth, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		classified := c.classifyError(err)
		if errors.Is(classified, ErrNotRunning) {
			return fmt.Errorf("%w at %s", ErrNotRunning, c.endpoint)
		}
		return classified
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrRequestFailed, resp.StatusCode)
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	for _, m := range health.Models {
		if m == c.model {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrModelNotFound, c.model)
}

// Invoke sends one generative request and blocks until the service
// responds. The mask clause is appended to the prompt when a mask payload
// is attached, naming the WHITE region normally and the BLACK region when
// the polarity is inverted.
//
// Returns ErrBusy if another call is outstanding, ErrNoBaseImage if the
// request has no primary payload, and ErrNoPayload if the service returns
// neither image data nor text.
func (c *Client) Invoke(ctx context.Context, r Request) (Result, error) {
	if !c.busy.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer c.busy.Store(false)

	if len(r.ImagePNG) == 0 {
		return Result{}, ErrNoBaseImage
	}

	prompt := r.Prompt
	genReq := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Image: payload{
			MimeType: "image/png",
			Data:     base64.StdEncoding.EncodeToString(r.ImagePNG),
		},
	}
	if len(r.MaskPNG) > 0 {
		if r.MaskInverted {
			prompt += MaskClauseBlack
		} else {
			prompt += MaskClauseWhite
		}
		genReq.Prompt = prompt
		genReq.Mask = &payload{
			MimeType: "image/png",
			Data:     base64.StdEncoding.EncodeToString(r.MaskPNG),
		}
	}

	body, err := json.Marshal(genReq)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+EndpointGenerate, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		classified := c.classifyError(err)
		if errors.Is(classified, ErrNotRunning) {
			return Result{}, fmt.Errorf("%w at %s", ErrNotRunning, c.endpoint)
		}
		return Result{}, classified
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if readErr != nil {
			return Result{}, fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
		}
		return Result{}, fmt.Errorf("%w: status %d: %s", ErrRequestFailed, resp.StatusCode, bytes.TrimSpace(errBody))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return Result{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if genResp.Error != "" {
		return Result{}, fmt.Errorf("%w: %s", ErrRequestFailed, genResp.Error)
	}

	if r.WantText {
		if genResp.Text == "" {
			return Result{}, ErrNoPayload
		}
		return Result{Text: genResp.Text}, nil
	}

	if genResp.Image != nil && genResp.Image.Data != "" {
		data, err := base64.StdEncoding.DecodeString(genResp.Image.Data)
		if err != nil {
			return Result{}, fmt.Errorf("invalid image payload: %w", err)
		}
		return Result{ImagePNG: data, MimeType: genResp.Image.MimeType, Text: genResp.Text}, nil
	}

	if genResp.Text != "" {
		// The service answered with text where an image was expected;
		// surface it as diagnostic context.
		return Result{}, fmt.Errorf("%w: %s", ErrNoPayload, genResp.Text)
	}
	return Result{}, ErrNoPayload
}

// classifyError converts low-level HTTP errors into user-facing errors.
func (c *Client) classifyError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrConnectionTimeout
	}
	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrConnectionTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Err != nil && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return ErrNotRunning
		}
	}

	var syscallErr syscall.Errno
	if errors.As(err, &syscallErr) {
		if syscallErr == syscall.ECONNREFUSED {
			return ErrNotRunning
		}
	}

	return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
}
