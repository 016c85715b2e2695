package resample

import (
	"image"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		mode Interpolation
		w, h int
		want Interpolation
	}{
		{"small auto", Auto, 64, 64, NearestNeighbor},
		{"boundary auto", Auto, 128, 128, NearestNeighbor},
		{"large auto", Auto, 256, 256, HighQualityBicubic},
		{"wide auto", Auto, 129, 16, HighQualityBicubic},
		{"tall auto", Auto, 16, 200, HighQualityBicubic},
		{"explicit nearest", NearestNeighbor, 1000, 1000, NearestNeighbor},
		{"explicit bicubic", HighQualityBicubic, 8, 8, HighQualityBicubic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mode.Resolve(tt.w, tt.h); got != tt.want {
				t.Errorf("Resolve(%d, %d) = %v, want %v", tt.w, tt.h, got, tt.want)
			}
		})
	}
}

func TestParseInterpolation(t *testing.T) {
	for _, want := range []Interpolation{Auto, NearestNeighbor, HighQualityBicubic} {
		got, err := ParseInterpolation(want.String())
		if err != nil {
			t.Fatalf("ParseInterpolation(%q) failed: %v", want.String(), err)
		}
		if got != want {
			t.Errorf("ParseInterpolation(%q) = %v", want.String(), got)
		}
	}
	if _, err := ParseInterpolation("lanczos"); err == nil {
		t.Errorf("ParseInterpolation(lanczos) expected error")
	}
}

func checker(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{0, 0, 0, 255})
			}
		}
	}
	return img
}

func TestResizeExactSize(t *testing.T) {
	src := checker(37, 91)
	for _, mode := range []Interpolation{Auto, NearestNeighbor, HighQualityBicubic} {
		for _, size := range [][2]int{{128, 128}, {256, 128}, {384, 512}} {
			dst := Resize(src, size[0], size[1], mode)
			if got := dst.Bounds().Size(); got != image.Pt(size[0], size[1]) {
				t.Errorf("Resize(%v) size = %v, want %v", mode, got, size)
			}
		}
	}
}

func TestResizeNearestKeepsHardEdges(t *testing.T) {
	src := checker(4, 4)
	dst := Resize(src, 128, 128, Auto)
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			c := dst.NRGBAAt(x, y)
			if c.R != 0 && c.R != 255 {
				t.Fatalf("pixel (%d,%d) blended: %v", x, y, c)
			}
			want := src.NRGBAAt(x/32, y/32)
			if c != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, c, want)
			}
		}
	}
}

func TestResizeSameSizeIsIdentity(t *testing.T) {
	src := checker(128, 128)
	for _, mode := range []Interpolation{NearestNeighbor, HighQualityBicubic} {
		dst := Resize(src, 128, 128, mode)
		if !cmp.Equal(dst.Pix, src.Pix) {
			t.Errorf("Resize(%v) to same size changed pixels", mode)
		}
	}
}
