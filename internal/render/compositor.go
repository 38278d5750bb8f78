package render

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/gogpu/gg"

	"github.com/hurricanerix/darkroom/internal/editor"
)

// Source resolves opaque image handles to decoded pixels. The image store
// satisfies this.
type Source interface {
	Image(id string) (image.Image, error)
}

// Mask overlay tint colors: a translucent red wash for a normal mask and a
// translucent blue wash when the polarity is inverted.
var (
	tintNormal   = tint{r: 255, g: 0, b: 0, a: 102} // rgba(255,0,0,0.4)
	tintInverted = tint{r: 0, g: 0, b: 255, a: 102} // rgba(0,0,255,0.4)
)

type tint struct {
	r, g, b, a uint32
}

// Options controls optional compositing stages.
type Options struct {
	// OmitMaskOverlay suppresses the committed-mask wash. Set while a
	// brush stroke is in progress so the stroke is not drawn twice, and
	// for export or generative payloads where the wash is a viewport aid
	// rather than part of the picture.
	OmitMaskOverlay bool
}

// Compose renders state at natural resolution: base image, tone mapping,
// then the mask overlay. It returns nil (and no error) when the state has
// no rendered image. The result is a fresh buffer; callers may mutate it.
//
// Compose is deterministic: identical state and source pixels produce
// byte-identical output.
func Compose(state editor.EditState, src Source, opts Options) (*image.RGBA, error) {
	if state.ImageRef == "" {
		return nil, nil
	}

	base, err := src.Image(state.ImageRef)
	if err != nil {
		return nil, fmt.Errorf("resolve image %s: %w", state.ImageRef, err)
	}

	b := base.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), base, b.Min, draw.Src)

	ToneMatrix(state.Adjustments).Apply(out)

	if state.MaskRef != "" && !opts.OmitMaskOverlay {
		maskImg, err := src.Image(state.MaskRef)
		if err != nil {
			return nil, fmt.Errorf("resolve mask %s: %w", state.MaskRef, err)
		}
		c := tintNormal
		if state.MaskInverted {
			c = tintInverted
		}
		overlayMask(out, maskImg, c)
	}

	return out, nil
}

// Base renders state at natural resolution with tone mapping only. Export
// and generative payloads use this instead of Compose so the mask wash
// never leaks into delivered pixels.
func Base(state editor.EditState, src Source) (*image.RGBA, error) {
	return Compose(state, src, Options{OmitMaskOverlay: true})
}

// overlayMask tints dst where the mask covers it. Coverage is the mask's
// whiteness scaled by its own alpha, and the wash is restricted to pixels
// dst has already drawn (a source-atop composite: nothing is painted onto
// transparent output).
func overlayMask(dst *image.RGBA, mask image.Image, c tint) {
	db := dst.Bounds()
	mb := mask.Bounds()
	for y := 0; y < db.Dy(); y++ {
		if y >= mb.Dy() {
			break
		}
		for x := 0; x < db.Dx(); x++ {
			if x >= mb.Dx() {
				break
			}
			i := dst.PixOffset(db.Min.X+x, db.Min.Y+y)
			if dst.Pix[i+3] == 0 {
				continue
			}

			mr, mg, mbl, ma := mask.At(mb.Min.X+x, mb.Min.Y+y).RGBA()
			if ma == 0 {
				continue
			}
			// Whiteness of the mask pixel, un-premultiplied, 0-65535.
			lum := (19595*(mr*0xffff/ma) + 38470*(mg*0xffff/ma) + 7471*(mbl*0xffff/ma)) >> 16
			// Effective wash alpha 0-255.
			wash := c.a * lum * (ma >> 8) / (0xffff * 255)
			if wash == 0 {
				continue
			}

			inv := 255 - wash
			dst.Pix[i] = uint8((c.r*wash + uint32(dst.Pix[i])*inv) / 255)
			dst.Pix[i+1] = uint8((c.g*wash + uint32(dst.Pix[i+1])*inv) / 255)
			dst.Pix[i+2] = uint8((c.b*wash + uint32(dst.Pix[i+2])*inv) / 255)
		}
	}
}

// PreviewFrame renders the low-resolution preview stand-in: tone mapping
// applied to the downscaled original, stretched to the display size. The
// mask overlay is skipped; previews trade fidelity for latency. Callers
// apply the viewport transform with View, the same formula as the full
// pipeline.
func PreviewFrame(snap image.Image, a editor.AdjustmentSet, width, height int) *image.RGBA {
	b := snap.Bounds()
	work := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(work, work.Bounds(), snap, b.Min, draw.Src)
	ToneMatrix(a).Apply(work)

	if width <= 0 || height <= 0 || (width == b.Dx() && height == b.Dy()) {
		return work
	}

	dc := gg.NewContext(width, height)
	dc.Scale(float64(width)/float64(b.Dx()), float64(height)/float64(b.Dy()))
	dc.DrawImage(gg.ImageBufFromImage(work), 0, 0)

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), dc.Image(), image.Point{}, draw.Src)
	return out
}

// View applies the viewport transform to a composed image: uniform scale by
// zoom about the viewport origin, then translate by pan. Every rendered
// layer goes through this same formula so they stay pixel-aligned.
func View(img image.Image, t editor.Transform, width, height int) *image.RGBA {
	dc := gg.NewContext(width, height)
	dc.Translate(t.PanX, t.PanY)
	dc.Scale(t.Zoom, t.Zoom)
	dc.DrawImage(gg.ImageBufFromImage(img), 0, 0)

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), dc.Image(), image.Point{}, draw.Src)
	return out
}

// Render runs the full pipeline: Compose at natural resolution, then the
// viewport transform into a width x height surface. A state with no image
// yields nil.
func Render(state editor.EditState, t editor.Transform, src Source, opts Options, width, height int) (*image.RGBA, error) {
	composed, err := Compose(state, src, opts)
	if err != nil || composed == nil {
		return nil, err
	}
	if t == editor.IdentityTransform() && composed.Bounds().Dx() == width && composed.Bounds().Dy() == height {
		return composed, nil
	}
	return View(composed, t, width, height), nil
}
