// Package editor implements the edit-history engine for a non-destructive
// photo editor: immutable edit snapshots, a bounded undo/redo history, and
// the live-overlay draft used for low-latency slider and brush feedback.
//
// # Design Overview
//
// Every user-visible edit is an immutable EditState value. The package never
// copies pixel data; states hold opaque string handles into an image store,
// so cloning a state per history step costs only the small adjustment struct.
//
// 1. History is a Bounded Snapshot Stack
//
// History keeps full snapshots rather than inverse operations. Undo and redo
// only move a cursor, so every step reconstructs exactly the state that was
// current at commit time. Depth is capped at MaxDepth; once full, each
// append silently drops the oldest entry. That bound is a documented policy,
// not an error.
//
// 2. Live Overlay Shadows History
//
// While a slider drag or brush stroke is in progress, the draft state lives
// in a Session overlay outside History. Renderers read View(), which is the
// overlay when present and the committed current state otherwise. On
// interaction end the overlay is committed exactly once and cleared, so a
// 50-event drag still produces a single history entry.
//
// # Thread Safety
//
// Session and History are confined to a single logical writer. Callers that
// serve multiple goroutines (the web layer) must serialize access per
// session; see web.SessionManager.
package editor

// Band identifies one of the fixed HSL color bands.
type Band int

// Fixed color bands, in display order.
const (
	BandRed Band = iota
	BandOrange
	BandYellow
	BandGreen
	BandAqua
	BandBlue
	BandPurple
	BandMagenta

	// NumBands is the number of fixed HSL color bands.
	NumBands
)

// String returns the lowercase band name used on the wire and in presets.
func (b Band) String() string {
	switch b {
	case BandRed:
		return "red"
	case BandOrange:
		return "orange"
	case BandYellow:
		return "yellow"
	case BandGreen:
		return "green"
	case BandAqua:
		return "aqua"
	case BandBlue:
		return "blue"
	case BandPurple:
		return "purple"
	case BandMagenta:
		return "magenta"
	default:
		return "unknown"
	}
}

// ParseBand parses a band name. The second result is false if the name is
// not one of the eight fixed bands.
func ParseBand(s string) (Band, bool) {
	for b := BandRed; b < NumBands; b++ {
		if b.String() == s {
			return b, true
		}
	}
	return 0, false
}

// Slider ranges. Brightness, contrast and saturate are percentages where 100
// means unchanged; the remaining adjustments are signed or unsigned offsets.
const (
	MinPercent = 0
	MaxPercent = 200
	MinOffset  = -100
	MaxOffset  = 100
	MinAmount  = 0
	MaxAmount  = 100
)

// AdjustmentSet holds the basic tone and color sliders. All values are
// bounded integers; the zero value is NOT a valid default, use
// DefaultAdjustments.
type AdjustmentSet struct {
	Brightness  int `json:"brightness"`
	Contrast    int `json:"contrast"`
	Saturate    int `json:"saturate"`
	Sepia       int `json:"sepia"`
	Exposure    int `json:"exposure"`
	Highlights  int `json:"highlights"`
	Shadows     int `json:"shadows"`
	Temperature int `json:"temperature"`
	Vibrance    int `json:"vibrance"`
	Sharpen     int `json:"sharpen"`
	Dehaze      int `json:"dehaze"`
	Grain       int `json:"grain"`
}

// DefaultAdjustments returns the neutral adjustment set applied to a freshly
// loaded image: 100% brightness/contrast/saturation, everything else zero.
func DefaultAdjustments() AdjustmentSet {
	return AdjustmentSet{
		Brightness: 100,
		Contrast:   100,
		Saturate:   100,
	}
}

// Clamp bounds every slider to its valid range and returns the result.
func (a AdjustmentSet) Clamp() AdjustmentSet {
	a.Brightness = clamp(a.Brightness, MinPercent, MaxPercent)
	a.Contrast = clamp(a.Contrast, MinPercent, MaxPercent)
	a.Saturate = clamp(a.Saturate, MinPercent, MaxPercent)
	a.Sepia = clamp(a.Sepia, MinAmount, MaxAmount)
	a.Exposure = clamp(a.Exposure, MinOffset, MaxOffset)
	a.Highlights = clamp(a.Highlights, MinOffset, MaxOffset)
	a.Shadows = clamp(a.Shadows, MinOffset, MaxOffset)
	a.Temperature = clamp(a.Temperature, MinOffset, MaxOffset)
	a.Vibrance = clamp(a.Vibrance, MinOffset, MaxOffset)
	a.Sharpen = clamp(a.Sharpen, MinAmount, MaxAmount)
	a.Dehaze = clamp(a.Dehaze, MinAmount, MaxAmount)
	a.Grain = clamp(a.Grain, MinAmount, MaxAmount)
	return a
}

// HSLShift holds the per-band hue, saturation and lightness offsets.
type HSLShift struct {
	Hue        int `json:"h"`
	Saturation int `json:"s"`
	Lightness  int `json:"l"`
}

// Clamp bounds each channel to [-100, 100] and returns the result.
func (h HSLShift) Clamp() HSLShift {
	h.Hue = clamp(h.Hue, MinOffset, MaxOffset)
	h.Saturation = clamp(h.Saturation, MinOffset, MaxOffset)
	h.Lightness = clamp(h.Lightness, MinOffset, MaxOffset)
	return h
}

// HSLMix holds one HSLShift per fixed color band, indexed by Band.
// It is an array, not a map, so EditState stays comparable with ==.
type HSLMix [NumBands]HSLShift

// EditState is one immutable snapshot of the editable image: slider values,
// HSL band shifts, and opaque handles to the rendered source and mask
// images. An empty handle means absent. States are plain values; two states
// are equal exactly when every field compares equal with ==.
type EditState struct {
	Adjustments  AdjustmentSet
	HSL          HSLMix
	ImageRef     string
	MaskRef      string
	MaskInverted bool
}

// NewEditState returns the seed state for a freshly loaded image: default
// adjustments, no mask, rendering the given source handle.
func NewEditState(imageRef string) EditState {
	return EditState{
		Adjustments: DefaultAdjustments(),
		ImageRef:    imageRef,
	}
}

// normalize enforces the invariant that MaskInverted is meaningful only
// while a mask is present.
func (s EditState) normalize() EditState {
	if s.MaskRef == "" {
		s.MaskInverted = false
	}
	return s
}

// WithAdjustments returns a copy of s with the adjustment set replaced
// (clamped to slider bounds).
func (s EditState) WithAdjustments(a AdjustmentSet) EditState {
	s.Adjustments = a.Clamp()
	return s
}

// WithHSL returns a copy of s with one band's shift replaced (clamped).
func (s EditState) WithHSL(b Band, shift HSLShift) EditState {
	s.HSL[b] = shift.Clamp()
	return s
}

// WithImage returns a copy of s rendering a new source image. A generative
// edit consumes the mask, so the mask reference is cleared.
func (s EditState) WithImage(imageRef string) EditState {
	s.ImageRef = imageRef
	s.MaskRef = ""
	return s.normalize()
}

// WithMask returns a copy of s with the mask handle replaced. An empty ref
// clears the mask and resets the invert flag.
func (s EditState) WithMask(maskRef string) EditState {
	s.MaskRef = maskRef
	return s.normalize()
}

// WithMaskInverted returns a copy of s with the mask polarity flag set.
// The flag only sticks while a mask is present.
func (s EditState) WithMaskInverted(inverted bool) EditState {
	s.MaskInverted = inverted
	return s.normalize()
}

// Transform is the view-only zoom/pan applied at render time. It is not part
// of the edit history.
type Transform struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
}

// Zoom limits matching the viewport controls.
const (
	MinZoom = 0.2
	MaxZoom = 5.0
)

// IdentityTransform returns the neutral viewport transform.
func IdentityTransform() Transform {
	return Transform{Zoom: 1}
}

// Clamp bounds the zoom factor and returns the result. Pan is unbounded.
func (t Transform) Clamp() Transform {
	if t.Zoom < MinZoom {
		t.Zoom = MinZoom
	}
	if t.Zoom > MaxZoom {
		t.Zoom = MaxZoom
	}
	return t
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
