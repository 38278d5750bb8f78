package mask

import (
	"image"
	"image/draw"

	"github.com/gogpu/gg"
)

// Mode selects the brush compositing behavior.
type Mode int

const (
	// ModePaint adds white, source-over.
	ModePaint Mode = iota
	// ModeErase knocks accumulated coverage out, destination-out.
	ModeErase
)

// Brush size limits matching the UI slider.
const (
	MinBrushSize = 1
	MaxBrushSize = 100
)

// Brush accumulates one or more freehand strokes into a scratch mask
// surface sized to the image. Segments are stroked with round caps and
// joins; painting composites white source-over, erasing knocks coverage out
// destination-out. The accumulated surface is read with Snapshot at stroke
// end for the single overwrite-style history commit.
//
// Brush is not safe for concurrent use; it belongs to the single active
// interaction.
type Brush struct {
	buf      *image.RGBA
	lastX    float64
	lastY    float64
	stroking bool
}

// NewBrush creates a brush over a width x height scratch surface. When the
// committed state already has a mask, pass it as base so the stroke extends
// it; base may be nil for a fresh mask.
func NewBrush(width, height int, base image.Image) *Brush {
	buf := image.NewRGBA(image.Rect(0, 0, width, height))
	if base != nil {
		draw.Draw(buf, buf.Bounds(), base, base.Bounds().Min, draw.Src)
	}
	return &Brush{buf: buf}
}

// CorrectForZoom converts pointer-relative coordinates to image coordinates
// by dividing out the viewport zoom.
func CorrectForZoom(x, y, zoom float64) (float64, float64) {
	if zoom == 0 {
		return x, y
	}
	return x / zoom, y / zoom
}

// Begin starts a stroke at the given image coordinates and stamps a single
// dot so a click without movement still marks the mask.
func (b *Brush) Begin(x, y, size float64, mode Mode) {
	b.lastX, b.lastY = x, y
	b.stroking = true
	b.stamp(x, y, x, y, size, mode)
}

// StrokeTo extends the stroke to the given image coordinates. Calls before
// Begin are ignored.
func (b *Brush) StrokeTo(x, y, size float64, mode Mode) {
	if !b.stroking {
		return
	}
	b.stamp(b.lastX, b.lastY, x, y, size, mode)
	b.lastX, b.lastY = x, y
}

// End finishes the stroke. The accumulated surface is retained for further
// strokes or for Snapshot.
func (b *Brush) End() {
	b.stroking = false
}

// Stroking reports whether a stroke is in progress.
func (b *Brush) Stroking() bool {
	return b.stroking
}

// Snapshot returns a copy of the accumulated mask surface.
func (b *Brush) Snapshot() *image.RGBA {
	out := image.NewRGBA(b.buf.Bounds())
	copy(out.Pix, b.buf.Pix)
	return out
}

// stamp renders one segment's coverage and composites it into the surface.
func (b *Brush) stamp(x0, y0, x1, y1, size float64, mode Mode) {
	if size < MinBrushSize {
		size = MinBrushSize
	}
	if size > MaxBrushSize {
		size = MaxBrushSize
	}

	bounds := b.buf.Bounds()
	dc := gg.NewContext(bounds.Dx(), bounds.Dy())
	dc.SetColor(white.Color())
	if x0 == x1 && y0 == y1 {
		dc.DrawCircle(x0, y0, size/2)
		if err := dc.Fill(); err != nil {
			return
		}
	} else {
		dc.SetStroke(gg.DefaultStroke().WithWidth(size).WithCap(gg.LineCapRound).WithJoin(gg.LineJoinRound))
		dc.MoveTo(x0, y0)
		dc.LineTo(x1, y1)
		if err := dc.Stroke(); err != nil {
			return
		}
	}

	coverage := dc.Image()
	switch mode {
	case ModeErase:
		knockout(b.buf, coverage)
	default:
		draw.Draw(b.buf, bounds, coverage, image.Point{}, draw.Over)
	}
}

// knockout applies destination-out: wherever coverage has alpha, the
// destination is attenuated toward fully transparent.
func knockout(dst *image.RGBA, coverage image.Image) {
	b := dst.Bounds()
	cb := coverage.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			_, _, _, ca := coverage.At(cb.Min.X+x, cb.Min.Y+y).RGBA()
			if ca == 0 {
				continue
			}
			i := dst.PixOffset(b.Min.X+x, b.Min.Y+y)
			inv := uint32(0xffff - ca)
			// Premultiplied: scale every channel by the inverse coverage.
			dst.Pix[i] = uint8(uint32(dst.Pix[i]) * inv / 0xffff)
			dst.Pix[i+1] = uint8(uint32(dst.Pix[i+1]) * inv / 0xffff)
			dst.Pix[i+2] = uint8(uint32(dst.Pix[i+2]) * inv / 0xffff)
			dst.Pix[i+3] = uint8(uint32(dst.Pix[i+3]) * inv / 0xffff)
		}
	}
}
