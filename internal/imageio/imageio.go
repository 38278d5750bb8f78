// Package imageio implements the image source and export boundaries:
// decoding uploaded blobs into pixels the compositor can use, and encoding
// rendered output to a downloadable raster format.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	// Registered decode formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/gogpu/gg"
)

var (
	// ErrUnsupportedInput indicates the uploaded blob is not a decodable
	// image. The message is user-facing.
	ErrUnsupportedInput = errors.New("this file type may not be supported; please use standard image formats like JPEG, PNG, or WEBP")

	// ErrPresetFile indicates a foreign preset file (XMP) was uploaded
	// where an image was expected.
	ErrPresetFile = errors.New("XMP preset files are not supported; save and load presets with the built-in preset manager")

	// ErrUnknownFormat indicates an unrecognized export format name.
	ErrUnknownFormat = errors.New("unknown export format")
)

// Decode validates and decodes an uploaded image blob. filename is used
// only to reject preset files by extension; detection otherwise relies on
// content sniffing and the registered image decoders.
func Decode(data []byte, filename string) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrUnsupportedInput
	}
	if strings.HasSuffix(strings.ToLower(filename), ".xmp") {
		return nil, ErrPresetFile
	}

	sniffed := http.DetectContentType(data)
	if strings.Contains(sniffed, "xmp") || strings.HasPrefix(string(data), "<x:xmpmeta") {
		return nil, ErrPresetFile
	}
	if !strings.HasPrefix(sniffed, "image/") {
		return nil, ErrUnsupportedInput
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedInput, err)
	}
	return img, nil
}

// Format is an export raster format.
type Format string

// Supported export formats.
const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// ParseFormat accepts format names and image MIME types.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, "image/")) {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type for a format.
func (f Format) ContentType() string {
	return "image/" + string(f)
}

// Options controls export encoding.
type Options struct {
	Format Format

	// Quality applies to lossy formats only, range 1-100. Zero selects
	// DefaultQuality. PNG ignores it.
	Quality int
}

// DefaultQuality is the JPEG quality used when none is specified.
const DefaultQuality = 92

// Export encodes a rendered image to the chosen format.
func Export(w io.Writer, img image.Image, opts Options) error {
	if img == nil {
		return errors.New("nil image")
	}

	dc := gg.NewContextForImage(img)
	switch opts.Format {
	case FormatPNG:
		return dc.EncodePNG(w)
	case FormatJPEG:
		q := opts.Quality
		if q == 0 {
			q = DefaultQuality
		}
		if q < 1 || q > 100 {
			return fmt.Errorf("jpeg quality %d out of range 1-100", q)
		}
		return dc.EncodeJPEG(w, q)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}
