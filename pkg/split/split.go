// Package split partitions a resized image into a grid of map tiles.
package split

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/PhantomInTheWire/imagemap/pkg/tile"
	"github.com/disintegration/imaging"
)

var ErrInvalidGrid = errors.New("imagemap: invalid grid")

// Grid is the number of tile columns and rows an image is split into.
type Grid struct {
	Columns int `yaml:"columns"`
	Rows    int `yaml:"rows"`
}

// maxSide keeps a resized image's pixel dimensions within int32.
const maxSide = math.MaxInt32 / tile.Size

// Validate rejects empty grids and grids whose tile count or pixel size
// does not fit in an int.
func (g Grid) Validate() error {
	if g.Columns < 1 || g.Rows < 1 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidGrid, g.Columns, g.Rows)
	}
	if g.Columns > maxSide || g.Rows > maxSide || g.Columns > math.MaxInt/g.Rows {
		return fmt.Errorf("%w: %dx%d is too large", ErrInvalidGrid, g.Columns, g.Rows)
	}
	return nil
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%d", g.Columns, g.Rows)
}

// Count returns the number of tiles the grid produces.
func (g Grid) Count() int {
	return g.Columns * g.Rows
}

// Pixels returns the size an image must be resized to before splitting.
func (g Grid) Pixels() (w, h int) {
	return tile.Size * g.Columns, tile.Size * g.Rows
}

// ParseGrid parses "CxR", e.g. "3x2".
func ParseGrid(s string) (Grid, error) {
	c, r, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Grid{}, fmt.Errorf("%w: %q (want CxR)", ErrInvalidGrid, s)
	}
	cols, err := strconv.Atoi(c)
	if err != nil {
		return Grid{}, fmt.Errorf("%w: %q: %w", ErrInvalidGrid, s, err)
	}
	rows, err := strconv.Atoi(r)
	if err != nil {
		return Grid{}, fmt.Errorf("%w: %q: %w", ErrInvalidGrid, s, err)
	}
	g := Grid{Columns: cols, Rows: rows}
	return g, g.Validate()
}

// Image splits img into g.Columns×g.Rows regions in row-major order.
// Every region's origin is derived from the full image size rather than
// by adding a fixed stride, so uneven divisions never drift.
func Image(img image.Image, g Grid) []*image.NRGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	tw, th := w/g.Columns, h/g.Rows

	parts := make([]*image.NRGBA, 0, g.Count())
	for y := 0; y < g.Rows; y++ {
		for x := 0; x < g.Columns; x++ {
			left := x * w / g.Columns
			top := y * h / g.Rows
			rect := image.Rect(left, top, left+tw, top+th).Add(bounds.Min)
			parts = append(parts, imaging.Crop(img, rect))
		}
	}
	return parts
}

// Tiles splits an image that has already been resized to g.Pixels() into
// map tiles.
func Tiles(img image.Image, g Grid) ([]*tile.Tile, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	parts := Image(img, g)
	tiles := make([]*tile.Tile, 0, len(parts))
	for i, p := range parts {
		t, err := tile.New(p)
		if err != nil {
			return nil, fmt.Errorf("tile %d of %v: %w", i, g, err)
		}
		tiles = append(tiles, t)
	}
	return tiles, nil
}
