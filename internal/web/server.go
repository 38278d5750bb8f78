// Package web exposes the editing engine over HTTP: one edit session per
// browser session cookie, JSON control endpoints, and PNG render delivery.
//
// Handlers hold the per-session mutex for the duration of a request, which
// gives the engine the single-writer confinement it requires.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hurricanerix/darkroom/internal/editor"
	"github.com/hurricanerix/darkroom/internal/genai"
	"github.com/hurricanerix/darkroom/internal/imageio"
	"github.com/hurricanerix/darkroom/internal/imagestore"
	"github.com/hurricanerix/darkroom/internal/logging"
	"github.com/hurricanerix/darkroom/internal/mask"
	"github.com/hurricanerix/darkroom/internal/preset"
	"github.com/hurricanerix/darkroom/internal/preview"
	"github.com/hurricanerix/darkroom/internal/render"
)

const (
	// DefaultAddr is the default address the server listens on.
	DefaultAddr = "localhost:8080"

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration before timing out writes.
	// Generative requests are the slow path.
	WriteTimeout = 180 * time.Second

	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout = 60 * time.Second

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 30 * time.Second

	// MaxJSONBodySize is the maximum size of JSON request bodies (1MB).
	MaxJSONBodySize = 1 * 1024 * 1024

	// DefaultMaxUploadBytes bounds image uploads when no limit is
	// configured (32 MiB).
	DefaultMaxUploadBytes = 32 * 1024 * 1024
)

// aiClient is the generative gateway surface the server needs.
// It allows mocking in tests.
type aiClient interface {
	Invoke(ctx context.Context, r genai.Request) (genai.Result, error)
	Busy() bool
}

// Options configures a Server. Zero-value fields fall back to defaults.
type Options struct {
	Addr           string
	MaxUploadBytes int64
	ExportQuality  int

	Sessions *SessionManager
	Store    *imagestore.Store
	Presets  preset.Store
	AI       aiClient
	Log      *logging.Logger
}

// Server provides the HTTP surface over the editing engine.
type Server struct {
	addr   string
	server *http.Server

	sessions *SessionManager
	store    *imagestore.Store
	presets  preset.Store
	ai       aiClient
	limiter  *rateLimiter
	log      *logging.Logger

	maxUploadBytes int64
	exportQuality  int
}

// NewServer creates a Server with the given options.
func NewServer(opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.ExportQuality <= 0 {
		opts.ExportQuality = imageio.DefaultQuality
	}
	if opts.Log == nil {
		opts.Log = logging.New(logging.LevelInfo, nil)
	}
	if opts.Sessions == nil {
		opts.Sessions = NewSessionManager(0, 0, opts.Log)
	}
	if opts.Store == nil {
		opts.Store = imagestore.New()
	}
	if opts.Presets == nil {
		opts.Presets = preset.NewMemoryStore()
	}
	if opts.AI == nil {
		opts.AI = genai.NewClient()
	}

	s := &Server{
		addr:           opts.Addr,
		sessions:       opts.Sessions,
		store:          opts.Store,
		presets:        opts.Presets,
		ai:             opts.AI,
		limiter:        newRateLimiter(),
		log:            opts.Log.With("web"),
		maxUploadBytes: opts.MaxUploadBytes,
		exportQuality:  opts.ExportQuality,
	}

	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}

	return s
}

// Handler builds the route tree. Exposed for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(SessionMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Post("/image", s.handleUpload)
		r.Get("/image/{id}", s.handleImage)
		r.Get("/render", s.handleRender)
		r.Get("/state", s.handleState)

		r.Post("/adjust/start", s.handleAdjustStart)
		r.Post("/adjust/live", s.handleAdjustLive)
		r.Post("/adjust/commit", s.handleAdjustCommit)

		r.Post("/undo", s.handleUndo)
		r.Post("/redo", s.handleRedo)
		r.Post("/reset", s.handleReset)
		r.Post("/transform", s.handleTransform)

		r.Post("/mask/gradient", s.handleMaskGradient)
		r.Post("/mask/stroke", s.handleMaskStroke)
		r.Post("/mask/invert", s.handleMaskInvert)
		r.Post("/mask/clear", s.handleMaskClear)

		r.Post("/ai/{action}", s.handleAI)

		r.Get("/presets", s.handlePresetList)
		r.Post("/presets", s.handlePresetSave)
		r.Delete("/presets/{name}", s.handlePresetDelete)
		r.Post("/presets/apply", s.handlePresetApply)

		r.Post("/export", s.handleExport)
	})

	return r
}

// ListenAndServe starts the HTTP server and blocks until the context is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.limiter.startCleanup(ctx)

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("listening on http://%s", s.addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil

	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// --- request/response shapes ---

type hslChange struct {
	Band  string          `json:"band"`
	Shift editor.HSLShift `json:"shift"`
}

type adjustRequest struct {
	// Start fields: on-screen render size captured before the gesture.
	DisplayWidth  int `json:"displayWidth"`
	DisplayHeight int `json:"displayHeight"`

	// Live fields: either a full adjustment set or one band's HSL shift.
	Adjustments *editor.AdjustmentSet `json:"adjustments"`
	HSL         *hslChange            `json:"hsl"`
}

type strokeRequest struct {
	Phase string  `json:"phase"` // begin, move, end
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  float64 `json:"size"`
	Mode  string  `json:"mode"` // paint, erase
	Zoom  float64 `json:"zoom"`

	DisplayWidth  int `json:"displayWidth"`
	DisplayHeight int `json:"displayHeight"`
}

type maskRequest struct {
	Kind     string `json:"kind"`
	Inverted bool   `json:"inverted"`
}

type aiRequest struct {
	Prompt string `json:"prompt"`
}

type exportRequest struct {
	Format  string `json:"format"`
	Quality int    `json:"quality"`
}

type presetNameRequest struct {
	Name string `json:"name"`
}

type stateResponse struct {
	Loaded       bool                 `json:"loaded"`
	ImageRef     string               `json:"imageRef,omitempty"`
	MaskRef      string               `json:"maskRef,omitempty"`
	MaskInverted bool                 `json:"maskInverted"`
	Adjustments  editor.AdjustmentSet `json:"adjustments"`
	HSL          editor.HSLMix        `json:"hsl"`
	Transform    editor.Transform     `json:"transform"`
	Width        int                  `json:"width"`
	Height       int                  `json:"height"`
	CanUndo      bool                 `json:"canUndo"`
	CanRedo      bool                 `json:"canRedo"`
	AIBusy       bool                 `json:"aiBusy"`
}

// --- JSON helpers ---

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// errMaskRequired rejects mask-dependent actions run without a mask.
var errMaskRequired = errors.New("a mask is required for this action")

// writeEngineError maps engine and gateway errors onto HTTP statuses with a
// single user-facing message.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, editor.ErrNoImage):
		s.writeError(w, http.StatusBadRequest, "no image loaded")
	case errors.Is(err, errMaskRequired):
		s.writeError(w, http.StatusBadRequest, "this action requires a mask")
	case errors.Is(err, imagestore.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "image not found")
	case errors.Is(err, imagestore.ErrInvalidID):
		s.writeError(w, http.StatusBadRequest, "invalid image ID")
	case errors.Is(err, imagestore.ErrTooLarge):
		s.writeError(w, http.StatusRequestEntityTooLarge, "image is too large")
	case errors.Is(err, imageio.ErrPresetFile):
		s.writeError(w, http.StatusBadRequest, "this looks like a preset file, not an image")
	case errors.Is(err, imageio.ErrUnsupportedInput):
		s.writeError(w, http.StatusBadRequest, "unsupported image format")
	case errors.Is(err, imageio.ErrUnknownFormat):
		s.writeError(w, http.StatusBadRequest, "unknown export format")
	case errors.Is(err, preset.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "preset not found")
	case errors.Is(err, preset.ErrEmptyName):
		s.writeError(w, http.StatusBadRequest, "preset name is required")
	case errors.Is(err, preset.ErrBuiltin):
		s.writeError(w, http.StatusForbidden, "built-in presets cannot be changed")
	case errors.Is(err, genai.ErrBusy):
		s.writeError(w, http.StatusConflict, "a generative operation is already in progress")
	case errors.Is(err, genai.ErrNoBaseImage):
		s.writeError(w, http.StatusBadRequest, "no image loaded")
	case errors.Is(err, genai.ErrNotRunning),
		errors.Is(err, genai.ErrConnectionTimeout),
		errors.Is(err, genai.ErrConnectionFailed),
		errors.Is(err, genai.ErrModelNotFound):
		s.writeError(w, http.StatusServiceUnavailable, "the generative service is not available")
	case errors.Is(err, genai.ErrRequestFailed), errors.Is(err, genai.ErrNoPayload):
		s.writeError(w, http.StatusBadGateway, "the generative request failed")
	default:
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// session fetches the caller's edit session.
func (s *Server) session(r *http.Request) *EditSession {
	return s.sessions.GetOrCreate(GetSessionID(r.Context()))
}

// sweep releases store entries no live session can reach. Callers must not
// hold any session lock.
func (s *Server) sweep() {
	if n := s.store.Sweep(s.sessions.Refs()); n > 0 {
		s.log.Debug("released %d unreachable images", n)
	}
}

// --- handlers ---

// handleUpload decodes an uploaded image and seeds the session with it.
// POST /api/image, multipart field "image".
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionID(r.Context())

	if !s.limiter.allowUpload(sessionID) {
		s.writeError(w, http.StatusTooManyRequests, "too many uploads, please wait a moment")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid upload")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	img, err := imageio.Decode(data, header.Filename)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	b := img.Bounds()

	// Put and LoadImage must happen under the session lock: a concurrent
	// sweep blocks on this mutex in SessionManager.Refs, so the new ref is
	// reachable before any reachability set can be collected.
	es := s.session(r)
	es.Lock()
	ref, err := s.store.Put(img)
	if err != nil {
		es.Unlock()
		s.writeEngineError(w, err)
		return
	}
	es.Editor.LoadImage(ref, b.Dx(), b.Dy())
	es.ResetBrush()
	es.Unlock()

	s.sweep()
	s.log.Info("session %s loaded image %s (%dx%d)", sessionID, ref, b.Dx(), b.Dy())

	writeJSON(w, http.StatusOK, map[string]any{
		"imageRef": ref,
		"width":    b.Dx(),
		"height":   b.Dy(),
	})
}

// handleImage serves a stored image as PNG.
// GET /api/image/{id}
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(chi.URLParam(r, "id"), ".png")

	data, err := s.store.PNG(id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.log.Debug("failed to write image %s: %v", id, err)
	}
}

// handleRender delivers the current view as PNG. While a preview snapshot
// is active the low-resolution stand-in is rendered instead of the full
// pipeline.
// GET /api/render?width=&height=
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	es := s.session(r)
	es.Lock()
	img, err := s.renderLocked(es, r)
	es.Unlock()

	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := imageio.Export(&buf, img, imageio.Options{Format: imageio.FormatPNG}); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to encode render")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) renderLocked(es *EditSession, r *http.Request) (image.Image, error) {
	if !es.Editor.Loaded() {
		return nil, editor.ErrNoImage
	}

	state := es.Editor.View()

	if snap := es.Editor.Preview(); snap.Active && snap.Image != nil {
		frame := render.PreviewFrame(snap.Image, state.Adjustments, snap.DisplayWidth, snap.DisplayHeight)
		if t := es.Editor.Transform(); t != editor.IdentityTransform() {
			frame = render.View(frame, t, snap.DisplayWidth, snap.DisplayHeight)
		}
		return frame, nil
	}

	width, height := es.Editor.Bounds()
	if v := r.URL.Query().Get("width"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			width = n
		}
	}
	if v := r.URL.Query().Get("height"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			height = n
		}
	}

	opts := render.Options{}
	if es.Brush != nil && es.Brush.Stroking() {
		opts.OmitMaskOverlay = true
	}

	img, err := render.Render(state, es.Editor.Transform(), s.store, opts, width, height)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, editor.ErrNoImage
	}
	return img, nil
}

// handleState reports the session state for UI synchronization.
// GET /api/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	es := s.session(r)
	es.Lock()
	state := es.Editor.View()
	width, height := es.Editor.Bounds()
	resp := stateResponse{
		Loaded:       es.Editor.Loaded(),
		ImageRef:     state.ImageRef,
		MaskRef:      state.MaskRef,
		MaskInverted: state.MaskInverted,
		Adjustments:  state.Adjustments,
		HSL:          state.HSL,
		Transform:    es.Editor.Transform(),
		Width:        width,
		Height:       height,
		CanUndo:      es.Editor.CanUndo(),
		CanRedo:      es.Editor.CanRedo(),
		AIBusy:       s.ai.Busy(),
	}
	es.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// handleAdjustStart begins a continuous slider interaction: the preview
// snapshot is synthesized from the original image at the display size the
// client reports.
// POST /api/adjust/start
func (s *Server) handleAdjustStart(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	es := s.session(r)
	es.Lock()
	defer es.Unlock()

	if !es.Editor.Loaded() {
		s.writeError(w, http.StatusBadRequest, "no image loaded")
		return
	}

	snap := editor.PreviewSnapshot{
		DisplayWidth:  req.DisplayWidth,
		DisplayHeight: req.DisplayHeight,
	}
	if original, err := s.store.Image(es.Editor.OriginalRef()); err == nil {
		if p, err := preview.Synthesize(original, req.DisplayWidth, req.DisplayHeight); err == nil {
			snap = p
		}
	}

	started := es.Editor.BeginInteraction(snap)
	writeJSON(w, http.StatusOK, map[string]bool{"started": started})
}

// handleAdjustLive applies a draft change to the live overlay. Ignored
// when no interaction is active.
// POST /api/adjust/live
func (s *Server) handleAdjustLive(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	update, err := adjustUpdater(req)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	es := s.session(r)
	es.Lock()
	applied := es.Editor.LiveChange(update)
	es.Unlock()

	writeJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}

// handleAdjustCommit ends the interaction, committing the overlay as one
// history entry. The preview stays active for a short settle period.
// POST /api/adjust/commit
func (s *Server) handleAdjustCommit(w http.ResponseWriter, r *http.Request) {
	es := s.session(r)
	es.Lock()
	committed := es.Editor.EndInteraction(false)
	if committed {
		es.ResetBrush()
	}
	es.ScheduleSettle()
	es.Unlock()

	s.sweep()
	writeJSON(w, http.StatusOK, map[string]bool{"committed": committed})
}

// adjustUpdater builds the overlay updater for a live change request.
func adjustUpdater(req adjustRequest) (editor.Updater, error) {
	switch {
	case req.Adjustments != nil:
		a := *req.Adjustments
		return func(st editor.EditState) editor.EditState {
			return st.WithAdjustments(a)
		}, nil
	case req.HSL != nil:
		band, ok := editor.ParseBand(req.HSL.Band)
		if !ok {
			return nil, fmt.Errorf("unknown color band %q", req.HSL.Band)
		}
		shift := req.HSL.Shift
		return func(st editor.EditState) editor.EditState {
			return st.WithHSL(band, shift)
		}, nil
	default:
		return nil, errors.New("nothing to change")
	}
}

// handleUndo steps the history cursor back.
// POST /api/undo
func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	es := s.session(r)
	es.Lock()
	es.Editor.Undo()
	es.ResetBrush()
	canUndo, canRedo := es.Editor.CanUndo(), es.Editor.CanRedo()
	es.Unlock()

	s.sweep()
	writeJSON(w, http.StatusOK, map[string]bool{"canUndo": canUndo, "canRedo": canRedo})
}

// handleRedo steps the history cursor forward.
// POST /api/redo
func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	es := s.session(r)
	es.Lock()
	es.Editor.Redo()
	es.ResetBrush()
	canUndo, canRedo := es.Editor.CanUndo(), es.Editor.CanRedo()
	es.Unlock()

	s.sweep()
	writeJSON(w, http.StatusOK, map[string]bool{"canUndo": canUndo, "canRedo": canRedo})
}

// handleReset replaces the whole history with a fresh seed on the original
// image. Reset is not undoable.
// POST /api/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	es := s.session(r)
	es.Lock()
	err := es.Editor.Reset()
	es.ResetBrush()
	es.Unlock()

	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.sweep()
	writeJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

// handleTransform updates the view-only zoom/pan. Not a history entry.
// POST /api/transform
func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	var t editor.Transform
	if !s.decodeJSON(w, r, &t) {
		return
	}

	es := s.session(r)
	es.Lock()
	es.Editor.SetTransform(t)
	applied := es.Editor.Transform()
	es.Unlock()

	writeJSON(w, http.StatusOK, applied)
}

// handleMaskGradient commits a generated gradient mask.
// POST /api/mask/gradient
func (s *Server) handleMaskGradient(w http.ResponseWriter, r *http.Request) {
	var req maskRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	kind, ok := mask.ParseGradientKind(req.Kind)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unknown gradient kind")
		return
	}

	es := s.session(r)
	es.Lock()
	err := s.commitGradientLocked(es, kind)
	es.Unlock()

	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.sweep()
	writeJSON(w, http.StatusOK, map[string]bool{"committed": true})
}

func (s *Server) commitGradientLocked(es *EditSession, kind mask.GradientKind) error {
	if !es.Editor.Loaded() {
		return editor.ErrNoImage
	}

	width, height := es.Editor.Bounds()
	m, err := mask.Gradient(kind, width, height)
	if err != nil {
		return err
	}

	ref, err := s.store.Put(m)
	if err != nil {
		return err
	}

	_, err = es.Editor.Commit(func(st editor.EditState) editor.EditState {
		return st.WithMask(ref)
	}, false)
	es.ResetBrush()
	return err
}

// handleMaskStroke feeds one brush event into the current stroke. The
// stroke becomes a single history entry at phase "end"; strokes after the
// first within the same brush run overwrite that entry.
// POST /api/mask/stroke
func (s *Server) handleMaskStroke(w http.ResponseWriter, r *http.Request) {
	var req strokeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	es := s.session(r)
	es.Lock()
	err := s.strokeLocked(es, req)
	es.Unlock()

	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	if req.Phase == "end" {
		s.sweep()
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) strokeLocked(es *EditSession, req strokeRequest) error {
	if !es.Editor.Loaded() {
		return editor.ErrNoImage
	}

	mode := mask.ModePaint
	if req.Mode == "erase" {
		mode = mask.ModeErase
	}

	x, y := mask.CorrectForZoom(req.X, req.Y, req.Zoom)

	switch req.Phase {
	case "begin":
		if es.Brush == nil {
			width, height := es.Editor.Bounds()
			var base image.Image
			if ref := es.Editor.Current().MaskRef; ref != "" {
				base, _ = s.store.Image(ref)
			}
			es.Brush = mask.NewBrush(width, height, base)
		}

		snap := editor.PreviewSnapshot{
			DisplayWidth:  req.DisplayWidth,
			DisplayHeight: req.DisplayHeight,
		}
		if original, err := s.store.Image(es.Editor.OriginalRef()); err == nil {
			if p, err := preview.Synthesize(original, req.DisplayWidth, req.DisplayHeight); err == nil {
				snap = p
			}
		}
		es.Editor.BeginInteraction(snap)
		es.Brush.Begin(x, y, req.Size, mode)
		return nil

	case "move":
		if es.Brush == nil {
			return nil
		}
		es.Brush.StrokeTo(x, y, req.Size, mode)
		return nil

	case "end":
		if es.Brush == nil {
			return nil
		}
		es.Brush.End()

		ref, err := s.store.Put(es.Brush.Snapshot())
		if err != nil {
			return err
		}

		if !es.Editor.LiveChange(func(st editor.EditState) editor.EditState {
			return st.WithMask(ref)
		}) {
			return nil
		}
		es.Editor.EndInteraction(es.brushCommitted)
		es.brushCommitted = true
		es.ScheduleSettle()
		return nil

	default:
		return fmt.Errorf("unknown stroke phase %q", req.Phase)
	}
}

// handleMaskInvert flips the mask polarity as a history entry.
// POST /api/mask/invert
func (s *Server) handleMaskInvert(w http.ResponseWriter, r *http.Request) {
	var req maskRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	es := s.session(r)
	es.Lock()
	_, err := es.Editor.Commit(func(st editor.EditState) editor.EditState {
		return st.WithMaskInverted(req.Inverted)
	}, false)
	es.Unlock()

	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.sweep()
	writeJSON(w, http.StatusOK, map[string]bool{"committed": true})
}

// handleMaskClear removes the committed mask.
// POST /api/mask/clear
func (s *Server) handleMaskClear(w http.ResponseWriter, r *http.Request) {
	es := s.session(r)
	es.Lock()
	_, err := es.Editor.Commit(func(st editor.EditState) editor.EditState {
		return st.WithMask("")
	}, false)
	es.ResetBrush()
	es.Unlock()

	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.sweep()
	writeJSON(w, http.StatusOK, map[string]bool{"committed": true})
}

// handleAI runs a built-in generative action against the current render.
// POST /api/ai/{action}
func (s *Server) handleAI(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionID(r.Context())
	actionName := chi.URLParam(r, "action")

	if !s.limiter.allowAI(sessionID) {
		s.writeError(w, http.StatusTooManyRequests, "too many generative requests, please wait a moment")
		return
	}

	var req aiRequest
	if r.ContentLength > 0 && !s.decodeJSON(w, r, &req) {
		return
	}

	if actionName == "fill" && strings.TrimSpace(req.Prompt) == "" {
		s.writeError(w, http.StatusBadRequest, "a prompt is required for generative fill")
		return
	}

	action, ok := lookupAIAction(actionName, req.Prompt)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown action")
		return
	}

	es := s.session(r)
	es.Lock()
	text, err := s.invokeAILocked(r.Context(), es, action)
	es.Unlock()

	if err != nil {
		s.log.Warn("generative action %s failed for session %s: %v", actionName, sessionID, err)
		s.writeEngineError(w, err)
		return
	}

	s.sweep()
	s.log.Info("generative action %s completed for session %s", actionName, sessionID)

	if action.Kind == genai.KindText {
		writeJSON(w, http.StatusOK, map[string]string{"text": text})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"committed": true})
}

// lookupAIAction resolves the action name, including the prompt-driven
// fill action.
func lookupAIAction(name, userPrompt string) (genai.Action, bool) {
	if name == "fill" {
		if strings.TrimSpace(userPrompt) == "" {
			return genai.Action{}, false
		}
		return genai.Action{
			Name:      "fill",
			Prompt:    genai.FillPrompt(userPrompt),
			Kind:      genai.KindImage,
			NeedsMask: true,
		}, true
	}
	return genai.LookupAction(name)
}

func (s *Server) invokeAILocked(ctx context.Context, es *EditSession, action genai.Action) (string, error) {
	if !es.Editor.Loaded() {
		return "", editor.ErrNoImage
	}

	state := es.Editor.View()
	if action.NeedsMask && state.MaskRef == "" {
		return "", errMaskRequired
	}

	// The payload is the tone-mapped render without the mask wash.
	base, err := render.Base(state, s.store)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := imageio.Export(&buf, base, imageio.Options{Format: imageio.FormatPNG}); err != nil {
		return "", err
	}

	greq := genai.Request{
		Prompt:       action.Prompt,
		ImagePNG:     buf.Bytes(),
		MaskInverted: state.MaskInverted,
		WantText:     action.Kind == genai.KindText,
	}
	// The committed mask travels with every call, mask-producing actions
	// included, so the service sees the same region the user sees.
	if state.MaskRef != "" {
		maskPNG, err := s.store.PNG(state.MaskRef)
		if err != nil {
			return "", err
		}
		greq.MaskPNG = maskPNG
	}

	res, err := s.ai.Invoke(ctx, greq)
	if err != nil {
		return "", err
	}

	switch action.Kind {
	case genai.KindText:
		return res.Text, nil

	case genai.KindMask:
		img, err := imageio.Decode(res.ImagePNG, "mask.png")
		if err != nil {
			return "", fmt.Errorf("%w: unreadable mask payload", genai.ErrNoPayload)
		}
		ref, err := s.store.Put(img)
		if err != nil {
			return "", err
		}
		_, err = es.Editor.Commit(func(st editor.EditState) editor.EditState {
			return st.WithMask(ref)
		}, false)
		es.ResetBrush()
		return "", err

	default:
		img, err := imageio.Decode(res.ImagePNG, "result.png")
		if err != nil {
			return "", fmt.Errorf("%w: unreadable image payload", genai.ErrNoPayload)
		}
		ref, err := s.store.Put(img)
		if err != nil {
			return "", err
		}
		// A generative edit consumes the mask; WithImage clears it.
		_, err = es.Editor.Commit(func(st editor.EditState) editor.EditState {
			return st.WithImage(ref)
		}, false)
		es.ResetBrush()
		return res.Text, err
	}
}

// handlePresetList returns built-in and saved presets.
// GET /api/presets
func (s *Server) handlePresetList(w http.ResponseWriter, r *http.Request) {
	list, err := s.presets.List()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handlePresetSave stores the session's current recipe under a name.
// POST /api/presets
func (s *Server) handlePresetSave(w http.ResponseWriter, r *http.Request) {
	var req presetNameRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	es := s.session(r)
	es.Lock()
	state := es.Editor.View()
	es.Unlock()

	p := preset.Preset{
		Name:        strings.TrimSpace(req.Name),
		Adjustments: state.Adjustments,
		HSL:         state.HSL,
	}
	if err := s.presets.Save(p); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handlePresetDelete removes a saved preset.
// DELETE /api/presets/{name}
func (s *Server) handlePresetDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.presets.Delete(name); err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// handlePresetApply commits a preset's recipe as one history entry.
// POST /api/presets/apply
func (s *Server) handlePresetApply(w http.ResponseWriter, r *http.Request) {
	var req presetNameRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	list, err := s.presets.List()
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	var found *preset.Preset
	for i := range list {
		if list[i].Name == req.Name {
			found = &list[i]
			break
		}
	}
	if found == nil {
		s.writeEngineError(w, preset.ErrNotFound)
		return
	}

	es := s.session(r)
	es.Lock()
	_, err = es.Editor.Commit(preset.Apply(*found), false)
	es.ResetBrush()
	es.Unlock()

	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.sweep()
	writeJSON(w, http.StatusOK, map[string]bool{"committed": true})
}

// handleExport renders the committed state at natural resolution, without
// the mask wash, and streams it in the requested format.
// POST /api/export
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if r.ContentLength > 0 && !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Format == "" {
		req.Format = string(imageio.FormatPNG)
	}
	if req.Quality <= 0 {
		req.Quality = s.exportQuality
	}

	format, err := imageio.ParseFormat(req.Format)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	es := s.session(r)
	es.Lock()
	var img image.Image
	if es.Editor.Loaded() {
		img, err = render.Base(es.Editor.View(), s.store)
	} else {
		err = editor.ErrNoImage
	}
	es.Unlock()

	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := imageio.Export(&buf, img, imageio.Options{Format: format, Quality: req.Quality}); err != nil {
		s.writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "edited-image."+string(format)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
