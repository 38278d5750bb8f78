// Package render implements the deterministic compositor: it turns an
// EditState plus a viewport transform into pixels. Tone mapping uses 4x5
// color matrices composed in a fixed order, so identical inputs always
// produce bit-identical output.
package render

import (
	"image"

	"github.com/hurricanerix/darkroom/internal/editor"
)

// ColorMatrix is a 4x5 color transformation in row-major order:
//
//	[R']   [m0  m1  m2  m3  m4 ]   [R]
//	[G'] = [m5  m6  m7  m8  m9 ] * [G]
//	[B']   [m10 m11 m12 m13 m14]   [B]
//	[A']   [m15 m16 m17 m18 m19]   [A]
//	                               [1]
//
// The fifth column is a bias in the 0-255 range. Results are clamped back
// to [0, 255].
type ColorMatrix [20]float64

// Identity returns the pass-through matrix.
func Identity() ColorMatrix {
	return ColorMatrix{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// Brightness returns a matrix scaling all color channels.
// factor 0 is black, 1 unchanged, 2 twice as bright.
func Brightness(factor float64) ColorMatrix {
	return ColorMatrix{
		factor, 0, 0, 0, 0,
		0, factor, 0, 0, 0,
		0, 0, factor, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// Contrast returns a matrix pivoting channels about mid-gray:
// (c - 128)*factor + 128.
func Contrast(factor float64) ColorMatrix {
	offset := 128 * (1 - factor)
	return ColorMatrix{
		factor, 0, 0, 0, offset,
		0, factor, 0, 0, offset,
		0, 0, factor, 0, offset,
		0, 0, 0, 1, 0,
	}
}

// Rec. 709 luminance weights.
const (
	lumR = 0.2126
	lumG = 0.7152
	lumB = 0.0722
)

// Saturation returns a matrix blending between luminance (factor 0,
// grayscale) and identity (factor 1).
func Saturation(factor float64) ColorMatrix {
	inv := 1 - factor
	return ColorMatrix{
		lumR*inv + factor, lumG * inv, lumB * inv, 0, 0,
		lumR * inv, lumG*inv + factor, lumB * inv, 0, 0,
		lumR * inv, lumG * inv, lumB*inv + factor, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// sepiaFull is the classic full-strength sepia matrix.
var sepiaFull = ColorMatrix{
	0.393, 0.769, 0.189, 0, 0,
	0.349, 0.686, 0.168, 0, 0,
	0.272, 0.534, 0.131, 0, 0,
	0, 0, 0, 1, 0,
}

// Sepia returns a matrix interpolating between identity (amount 0) and the
// full sepia tone (amount 1).
func Sepia(amount float64) ColorMatrix {
	id := Identity()
	var m ColorMatrix
	for i := range m {
		m[i] = id[i] + (sepiaFull[i]-id[i])*amount
	}
	return m
}

// Mul composes two matrices: applying the result equals applying m first,
// then n.
func (m ColorMatrix) Mul(n ColorMatrix) ColorMatrix {
	var out ColorMatrix
	for row := 0; row < 4; row++ {
		for col := 0; col < 5; col++ {
			sum := 0.0
			for k := 0; k < 4; k++ {
				sum += n[row*5+k] * m[k*5+col]
			}
			if col == 4 {
				sum += n[row*5+4]
			}
			out[row*5+col] = sum
		}
	}
	return out
}

// FinalBrightness combines the brightness and exposure sliders into the
// single effective brightness percentage: max(0, brightness+exposure).
func FinalBrightness(brightness, exposure int) int {
	v := brightness + exposure
	if v < 0 {
		return 0
	}
	return v
}

// ToneMatrix builds the composed tone-mapping matrix for an adjustment set.
// The filter order is fixed: brightness (with exposure folded in), then
// contrast, saturation, sepia. Highlights, shadows, temperature, vibrance,
// sharpen, dehaze, grain and the HSL band shifts are tracked in the model
// but composited by the rendering backend, not here.
func ToneMatrix(a editor.AdjustmentSet) ColorMatrix {
	m := Brightness(float64(FinalBrightness(a.Brightness, a.Exposure)) / 100)
	m = m.Mul(Contrast(float64(a.Contrast) / 100))
	m = m.Mul(Saturation(float64(a.Saturate) / 100))
	m = m.Mul(Sepia(float64(a.Sepia) / 100))
	return m
}

// Apply transforms every pixel of img in place. Alpha is carried through
// the matrix like the color channels; fully transparent pixels stay
// transparent under every tone matrix used here.
func (m ColorMatrix) Apply(img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride : (y-b.Min.Y)*img.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			r := float64(row[x])
			g := float64(row[x+1])
			bl := float64(row[x+2])
			al := float64(row[x+3])

			row[x] = clamp8(m[0]*r + m[1]*g + m[2]*bl + m[3]*al + m[4])
			row[x+1] = clamp8(m[5]*r + m[6]*g + m[7]*bl + m[8]*al + m[9])
			row[x+2] = clamp8(m[10]*r + m[11]*g + m[12]*bl + m[13]*al + m[14])
			row[x+3] = clamp8(m[15]*r + m[16]*g + m[17]*bl + m[18]*al + m[19])
		}
	}
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
