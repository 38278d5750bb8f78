// Package mask implements mask authoring: procedural gradient masks and the
// freehand brush that accumulates a stroke into a scratch surface. Masks
// are single-channel by convention, stored as white-on-transparent or
// white-to-black RGBA images; polarity (white vs. black region) travels as
// the invert flag on the edit state, never as inverted pixels.
package mask

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/gogpu/gg"
)

// GradientKind selects a procedural gradient shape.
type GradientKind int

const (
	// GradientLinear fades top (white) to bottom (black).
	GradientLinear GradientKind = iota
	// GradientRadial fades center (white) to edge (black).
	GradientRadial
)

// ParseGradientKind parses "linear" or "radial".
func ParseGradientKind(s string) (GradientKind, bool) {
	switch s {
	case "linear":
		return GradientLinear, true
	case "radial":
		return GradientRadial, true
	}
	return 0, false
}

var (
	white = gg.RGB(1, 1, 1)
	black = gg.RGB(0, 0, 0)
)

// Gradient renders a procedural mask sized to the current image. Linear
// masks run top white to bottom black; radial masks run center white to
// edge black with radius max(width/2, height/2).
func Gradient(kind GradientKind, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid mask dimensions %dx%d", width, height)
	}

	dc := gg.NewContext(width, height)

	var brush gg.Brush
	switch kind {
	case GradientLinear:
		brush = gg.NewLinearGradientBrush(0, 0, 0, float64(height)).
			AddColorStop(0, white).
			AddColorStop(1, black)
	case GradientRadial:
		cx := float64(width) / 2
		cy := float64(height) / 2
		r := cx
		if cy > r {
			r = cy
		}
		brush = gg.NewRadialGradientBrush(cx, cy, 0, r).
			AddColorStop(0, white).
			AddColorStop(1, black)
	default:
		return nil, fmt.Errorf("unknown gradient kind %d", kind)
	}

	dc.SetFillBrush(brush)
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	if err := dc.Fill(); err != nil {
		return nil, fmt.Errorf("render gradient mask: %w", err)
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), dc.Image(), image.Point{}, draw.Src)
	return out, nil
}
