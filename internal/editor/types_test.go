package editor

import (
	"testing"
)

func TestDefaultAdjustments(t *testing.T) {
	a := DefaultAdjustments()

	if a.Brightness != 100 || a.Contrast != 100 || a.Saturate != 100 {
		t.Errorf("defaults = %+v, want brightness/contrast/saturate 100", a)
	}
	if a.Sepia != 0 || a.Exposure != 0 || a.Grain != 0 {
		t.Errorf("defaults = %+v, want zero sepia/exposure/grain", a)
	}
}

func TestAdjustmentClamp(t *testing.T) {
	tests := []struct {
		name string
		in   AdjustmentSet
		want AdjustmentSet
	}{
		{
			name: "in range unchanged",
			in:   AdjustmentSet{Brightness: 150, Contrast: 90, Saturate: 100, Exposure: -40, Sepia: 25},
			want: AdjustmentSet{Brightness: 150, Contrast: 90, Saturate: 100, Exposure: -40, Sepia: 25},
		},
		{
			name: "percent sliders capped at 200",
			in:   AdjustmentSet{Brightness: 500, Contrast: 201, Saturate: -5},
			want: AdjustmentSet{Brightness: 200, Contrast: 200, Saturate: 0},
		},
		{
			name: "offsets capped at +-100",
			in:   AdjustmentSet{Exposure: 150, Temperature: -150, Vibrance: 101},
			want: AdjustmentSet{Exposure: 100, Temperature: -100, Vibrance: 100},
		},
		{
			name: "amounts floor at 0",
			in:   AdjustmentSet{Sepia: -1, Sharpen: 120, Dehaze: -30, Grain: 100},
			want: AdjustmentSet{Sepia: 0, Sharpen: 100, Dehaze: 0, Grain: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Clamp(); got != tt.want {
				t.Errorf("Clamp() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestHSLShiftClamp(t *testing.T) {
	got := HSLShift{Hue: 300, Saturation: -300, Lightness: 50}.Clamp()
	want := HSLShift{Hue: 100, Saturation: -100, Lightness: 50}
	if got != want {
		t.Errorf("Clamp() = %+v, want %+v", got, want)
	}
}

func TestEditStateValueEquality(t *testing.T) {
	a := NewEditState("img-0").WithHSL(BandBlue, HSLShift{Lightness: -10})
	b := NewEditState("img-0").WithHSL(BandBlue, HSLShift{Lightness: -10})

	if a != b {
		t.Error("structurally identical states compare unequal")
	}

	c := b.WithHSL(BandBlue, HSLShift{Lightness: -11})
	if a == c {
		t.Error("different states compare equal")
	}
	// b itself is untouched (value semantics).
	if a != b {
		t.Error("WithHSL mutated its receiver")
	}
}

func TestMaskInvertNormalization(t *testing.T) {
	s := NewEditState("img-0").WithMaskInverted(true)
	if s.MaskInverted {
		t.Error("MaskInverted stuck without a mask present")
	}

	s = s.WithMask("mask-1").WithMaskInverted(true)
	if !s.MaskInverted {
		t.Error("MaskInverted lost with a mask present")
	}

	// Replacing the rendered image consumes the mask and its polarity.
	s = s.WithImage("img-1")
	if s.MaskRef != "" || s.MaskInverted {
		t.Errorf("WithImage kept mask state: %+v", s)
	}
}

func TestParseBand(t *testing.T) {
	for b := BandRed; b < NumBands; b++ {
		got, ok := ParseBand(b.String())
		if !ok || got != b {
			t.Errorf("ParseBand(%q) = %v, %v", b.String(), got, ok)
		}
	}
	if _, ok := ParseBand("chartreuse"); ok {
		t.Error("ParseBand accepted an unknown band")
	}
}
