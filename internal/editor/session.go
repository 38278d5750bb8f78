package editor

import (
	"errors"
	"image"
)

// ErrNoImage is returned by operations that require a loaded image.
// Interactive frontends disable the triggering controls instead of hitting
// this, but the API surface still refuses cleanly.
var ErrNoImage = errors.New("no image loaded")

// PreviewSnapshot is the transient low-resolution stand-in rendered while a
// continuous interaction is in progress. It is created at interaction start
// from the original unedited image and discarded shortly after commit.
type PreviewSnapshot struct {
	// Active reports whether renders should use the low-res image.
	Active bool

	// Image is the downscaled original, nil when no snapshot exists.
	Image image.Image

	// DisplayWidth and DisplayHeight are the on-screen render dimensions
	// captured synchronously at interaction start, before any asynchronous
	// decode, so a viewport resize mid-gesture cannot skew the preview.
	DisplayWidth  int
	DisplayHeight int
}

// Session owns the complete editable state for one image: the committed
// history, the transient live overlay, the viewport transform, and the
// preview snapshot. A Session is confined to a single logical writer.
//
// The interaction state machine per continuous control is
// Idle -> Dragging -> Idle: BeginInteraction, any number of LiveChange
// calls, then EndInteraction. At most one overlay exists at a time; a second
// BeginInteraction while dragging is ignored rather than corrupting state.
type Session struct {
	history *History

	// overlay is the uncommitted draft state, nil while idle.
	overlay  *EditState
	dragging bool

	transform Transform
	preview   PreviewSnapshot

	// originalRef is the handle of the unedited source image. Preview
	// snapshots and reset both derive from it.
	originalRef string
	width       int
	height      int
}

// NewSession creates an empty session with no image loaded.
func NewSession() *Session {
	return &Session{
		history:   NewHistory(EditState{Adjustments: DefaultAdjustments()}),
		transform: IdentityTransform(),
	}
}

// LoadImage seeds the session with a freshly decoded source image. The
// entire history is replaced by the seed state and the viewport resets.
func (s *Session) LoadImage(ref string, width, height int) {
	s.originalRef = ref
	s.width = width
	s.height = height
	s.history.Reset(NewEditState(ref))
	s.overlay = nil
	s.dragging = false
	s.preview = PreviewSnapshot{}
	s.transform = IdentityTransform()
}

// Loaded reports whether an image has been loaded.
func (s *Session) Loaded() bool {
	return s.originalRef != ""
}

// OriginalRef returns the handle of the unedited source image, or "" when
// no image is loaded.
func (s *Session) OriginalRef() string {
	return s.originalRef
}

// Bounds returns the natural dimensions of the loaded image.
func (s *Session) Bounds() (width, height int) {
	return s.width, s.height
}

// View returns the state renderers should draw: the live overlay while a
// gesture is in progress, otherwise the committed current state.
func (s *Session) View() EditState {
	if s.overlay != nil {
		return *s.overlay
	}
	return s.history.Current()
}

// Current returns the committed current state, ignoring any overlay.
func (s *Session) Current() EditState {
	return s.history.Current()
}

// History exposes the underlying history for inspection.
func (s *Session) History() *History {
	return s.history
}

// BeginInteraction transitions Idle -> Dragging and installs the preview
// snapshot. It reports whether the transition happened: a call with no image
// loaded, or while another interaction is active, is ignored.
func (s *Session) BeginInteraction(snap PreviewSnapshot) bool {
	if !s.Loaded() || s.dragging {
		return false
	}
	s.dragging = true
	s.preview = snap
	return true
}

// Dragging reports whether an interaction is in progress.
func (s *Session) Dragging() bool {
	return s.dragging
}

// LiveChange applies update to the draft state, replacing the overlay. The
// draft derives from the previous draft when one exists, otherwise from the
// committed current state. History is untouched. Calls outside a gesture
// are ignored.
func (s *Session) LiveChange(update Updater) bool {
	if !s.dragging {
		return false
	}
	base := s.history.Current()
	if s.overlay != nil {
		base = *s.overlay
	}
	draft := update(base).normalize()
	s.overlay = &draft
	return true
}

// EndInteraction commits the overlay draft (when one exists) and returns to
// Idle. Discrete controls commit with overwrite false; stroke-accumulating
// controls pass overwrite true so the whole gesture collapses into one
// history entry. The preview snapshot stays active; the caller deactivates
// it after its settle delay via DeactivatePreview.
func (s *Session) EndInteraction(overwrite bool) (committed bool) {
	if s.overlay != nil {
		draft := *s.overlay
		s.history.Commit(func(EditState) EditState { return draft }, overwrite)
		s.overlay = nil
		committed = true
	}
	s.dragging = false
	return committed
}

// Commit applies a discrete edit directly to history, outside any gesture.
// It returns ErrNoImage when nothing is loaded.
func (s *Session) Commit(update Updater, overwrite bool) (EditState, error) {
	if !s.Loaded() {
		return EditState{}, ErrNoImage
	}
	return s.history.Commit(update, overwrite), nil
}

// Undo steps the history cursor back. The overlay, if any, is discarded
// first so a stale draft cannot shadow the restored state.
func (s *Session) Undo() {
	s.overlay = nil
	s.dragging = false
	s.history.Undo()
}

// Redo steps the history cursor forward.
func (s *Session) Redo() {
	s.overlay = nil
	s.dragging = false
	s.history.Redo()
}

// CanUndo reports whether an older state exists.
func (s *Session) CanUndo() bool { return s.history.CanUndo() }

// CanRedo reports whether an undone state can be restored.
func (s *Session) CanRedo() bool { return s.history.CanRedo() }

// Reset discards all edits, reseeding history from the original image.
func (s *Session) Reset() error {
	if !s.Loaded() {
		return ErrNoImage
	}
	s.history.Reset(NewEditState(s.originalRef))
	s.overlay = nil
	s.dragging = false
	s.preview = PreviewSnapshot{}
	s.transform = IdentityTransform()
	return nil
}

// Preview returns the current preview snapshot.
func (s *Session) Preview() PreviewSnapshot {
	return s.preview
}

// DeactivatePreview turns off the low-res preview. Callers invoke this a
// short delay after commit so the full-resolution render settles in before
// the preview disappears.
func (s *Session) DeactivatePreview() {
	s.preview.Active = false
}

// Transform returns the current viewport transform.
func (s *Session) Transform() Transform {
	return s.transform
}

// SetTransform replaces the viewport transform, clamping zoom. The
// transform is view-only and never enters history.
func (s *Session) SetTransform(t Transform) {
	s.transform = t.Clamp()
}

// Refs returns every image handle the session can still reach: all history
// states, the overlay draft, and the original source. The image store must
// not release any of them.
func (s *Session) Refs() []string {
	refs := make([]string, 0, 2*s.history.Len()+3)
	refs = s.history.Refs(refs)
	if s.overlay != nil {
		if s.overlay.ImageRef != "" {
			refs = append(refs, s.overlay.ImageRef)
		}
		if s.overlay.MaskRef != "" {
			refs = append(refs, s.overlay.MaskRef)
		}
	}
	if s.originalRef != "" {
		refs = append(refs, s.originalRef)
	}
	return refs
}
