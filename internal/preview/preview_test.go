package preview

import (
	"image"
	"testing"
)

func TestScaledSize(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		wantW int
		wantH int
	}{
		{"landscape capped by width", 4000, 2000, 400, 200},
		{"portrait capped by height", 1000, 2000, 200, 400},
		{"square", 800, 800, 400, 400},
		{"already small passes through", 320, 240, 320, 240},
		{"exactly at cap", 400, 300, 400, 300},
		{"extreme aspect keeps at least one pixel", 10000, 2, 400, 1},
		{"degenerate", 0, 100, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := ScaledSize(tt.w, tt.h)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("ScaledSize(%d, %d) = %dx%d, want %dx%d", tt.w, tt.h, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestSynthesize(t *testing.T) {
	original := image.NewRGBA(image.Rect(0, 0, 1600, 1200))

	snap, err := Synthesize(original, 800, 600)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	if !snap.Active {
		t.Error("snapshot not active")
	}
	b := snap.Image.Bounds()
	if b.Dx() != 400 || b.Dy() != 300 {
		t.Errorf("snapshot size = %dx%d, want 400x300", b.Dx(), b.Dy())
	}
	if snap.DisplayWidth != 800 || snap.DisplayHeight != 600 {
		t.Errorf("display dims = %dx%d, want the captured 800x600", snap.DisplayWidth, snap.DisplayHeight)
	}
}

func TestSynthesizeNilSource(t *testing.T) {
	if _, err := Synthesize(nil, 100, 100); err != ErrNoSource {
		t.Errorf("Synthesize(nil) error = %v, want ErrNoSource", err)
	}
}
