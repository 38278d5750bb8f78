// Package preview synthesizes the cheap low-resolution snapshot used while
// a continuous interaction is in progress, so the compositor runs against a
// small buffer during drags instead of the full image.
package preview

import (
	"errors"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/hurricanerix/darkroom/internal/editor"
)

// MaxSide caps the longest side of a preview snapshot.
const MaxSide = 400

// ErrNoSource is returned when the original image is nil.
var ErrNoSource = errors.New("no source image for preview")

// Synthesize downscales the original unedited image so its longest side is
// at most MaxSide, preserving aspect ratio, and packages it with the
// on-screen render dimensions the caller captured at interaction start.
//
// displayWidth and displayHeight must be read synchronously before any
// decode or other asynchronous work, so a viewport resize mid-gesture
// cannot race the snapshot.
func Synthesize(original image.Image, displayWidth, displayHeight int) (editor.PreviewSnapshot, error) {
	if original == nil {
		return editor.PreviewSnapshot{}, ErrNoSource
	}

	b := original.Bounds()
	w, h := ScaledSize(b.Dx(), b.Dy())
	if w <= 0 || h <= 0 {
		return editor.PreviewSnapshot{}, errors.New("source image has no pixels")
	}

	low := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(low, low.Bounds(), original, b, xdraw.Src, nil)

	return editor.PreviewSnapshot{
		Active:        true,
		Image:         low,
		DisplayWidth:  displayWidth,
		DisplayHeight: displayHeight,
	}, nil
}

// ScaledSize returns the snapshot dimensions for a source of the given
// size: the longest side capped at MaxSide, aspect preserved. Sources
// already small enough pass through unchanged.
func ScaledSize(width, height int) (int, int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	long := width
	if height > long {
		long = height
	}
	if long <= MaxSide {
		return width, height
	}
	scale := float64(MaxSide) / float64(long)
	w := int(float64(width)*scale + 0.5)
	h := int(float64(height)*scale + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
