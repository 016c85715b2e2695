package split

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/PhantomInTheWire/imagemap/pkg/resample"
	"github.com/PhantomInTheWire/imagemap/pkg/tile"
	"github.com/google/go-cmp/cmp"
)

func TestParseGrid(t *testing.T) {
	tests := []struct {
		in      string
		want    Grid
		wantErr bool
	}{
		{in: "1x1", want: Grid{1, 1}},
		{in: "3x2", want: Grid{3, 2}},
		{in: " 4X5 ", want: Grid{4, 5}},
		{in: "0x1", wantErr: true},
		{in: "2", wantErr: true},
		{in: "ax2", wantErr: true},
		{in: "2x-1", wantErr: true},
		{in: "4611686018427387904x4", wantErr: true},
		{in: "4x16777216", wantErr: true},
		{in: "16777215x1", want: Grid{16777215, 1}},
	}
	for _, tt := range tests {
		got, err := ParseGrid(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidGrid) {
				t.Errorf("ParseGrid(%q) error = %v, want ErrInvalidGrid", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseGrid(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseGrid(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidateRejectsOverflow(t *testing.T) {
	g := Grid{Columns: math.MaxInt / 2, Rows: 4}
	if err := g.Validate(); !errors.Is(err, ErrInvalidGrid) {
		t.Fatalf("Validate(%v) = %v, want ErrInvalidGrid", g, err)
	}
	if _, err := Tiles(image.NewNRGBA(image.Rect(0, 0, 1, 1)), g); !errors.Is(err, ErrInvalidGrid) {
		t.Errorf("Tiles(%v) = %v, want ErrInvalidGrid", g, err)
	}
}

// labelled fills every pixel with a color encoding its coordinates.
func labelled(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(x >> 8), uint8(y), uint8(y >> 8)})
		}
	}
	return img
}

func TestImageBoundsAreIndependent(t *testing.T) {
	// A fixed stride of 11/4=2 would put the columns at 0,2,4,6.
	img := labelled(11, 7)
	g := Grid{Columns: 4, Rows: 3}
	parts := Image(img, g)
	if len(parts) != g.Count() {
		t.Fatalf("got %d parts, want %d", len(parts), g.Count())
	}
	wantLeft := []int{0, 2, 5, 8}
	wantTop := []int{0, 2, 4}
	for i, p := range parts {
		x, y := i%g.Columns, i/g.Columns
		if got := p.Bounds().Size(); got != image.Pt(2, 2) {
			t.Errorf("part %d size = %v, want 2x2", i, got)
		}
		c := p.NRGBAAt(0, 0)
		if int(c.R) != wantLeft[x] || int(c.B) != wantTop[y] {
			t.Errorf("part %d origin = (%d,%d), want (%d,%d)", i, c.R, c.B, wantLeft[x], wantTop[y])
		}
	}
}

func TestImageHonoursBoundsOrigin(t *testing.T) {
	img := labelled(20, 20).SubImage(image.Rect(4, 6, 12, 10))
	parts := Image(img, Grid{Columns: 2, Rows: 1})
	if c := parts[1].NRGBAAt(0, 0); c.R != 8 || c.B != 6 {
		t.Errorf("second part origin = (%d,%d), want (8,6)", c.R, c.B)
	}
}

func TestTilesCoverImage(t *testing.T) {
	for _, g := range []Grid{{1, 1}, {2, 1}, {1, 3}, {3, 2}} {
		w, h := g.Pixels()
		img := labelled(w, h)
		tiles, err := Tiles(img, g)
		if err != nil {
			t.Fatalf("Tiles(%v) failed: %v", g, err)
		}
		if len(tiles) != g.Count() {
			t.Fatalf("Tiles(%v) produced %d tiles, want %d", g, len(tiles), g.Count())
		}
		covered := make(map[image.Point]int)
		for i, tl := range tiles {
			if got := tl.Image().Bounds().Size(); got != image.Pt(tile.Size, tile.Size) {
				t.Errorf("tile %d size = %v", i, got)
			}
			ox, oy := (i%g.Columns)*tile.Size, (i/g.Columns)*tile.Size
			for y := 0; y < tile.Size; y++ {
				for x := 0; x < tile.Size; x++ {
					covered[image.Pt(ox+x, oy+y)]++
				}
			}
			first := tl.Image().(*image.NRGBA).NRGBAAt(0, 0)
			if want := img.NRGBAAt(ox, oy); first != want {
				t.Errorf("tile %d first pixel = %v, want %v", i, first, want)
			}
		}
		if len(covered) != w*h {
			t.Errorf("%v: covered %d pixels, want %d", g, len(covered), w*h)
		}
		for p, n := range covered {
			if n != 1 {
				t.Fatalf("%v: pixel %v covered %d times", g, p, n)
			}
		}
	}
}

func TestTilesRejectWrongSize(t *testing.T) {
	if _, err := Tiles(labelled(100, 100), Grid{1, 1}); !errors.Is(err, tile.ErrInvalidSize) {
		t.Errorf("Tiles error = %v, want ErrInvalidSize", err)
	}
}

func TestResizeThenSplitIsIdentityForSingleTile(t *testing.T) {
	src := labelled(tile.Size, tile.Size)
	g := Grid{1, 1}
	w, h := g.Pixels()
	resized := resample.Resize(src, w, h, resample.NearestNeighbor)
	tiles, err := Tiles(resized, g)
	if err != nil {
		t.Fatalf("Tiles failed: %v", err)
	}
	direct, err := tile.New(src)
	if err != nil {
		t.Fatalf("tile.New failed: %v", err)
	}
	if !cmp.Equal(tiles[0].Encode(), direct.Encode()) {
		t.Errorf("resize+split differs from direct slicing")
	}
}
