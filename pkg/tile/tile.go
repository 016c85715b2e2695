// Package tile provides the fixed-size map tile produced by the importer
// and its raw RGBA encoding.
package tile

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Size is the edge length of a map tile in pixels.
const Size = 128

// EncodedLen is the length of a tile encoded as raw RGBA.
const EncodedLen = Size * Size * 4

var ErrInvalidSize = errors.New("imagemap: invalid tile size")

// Tile is an immutable Size×Size raster.
type Tile struct {
	img *image.NRGBA
}

// New copies img into a new Tile. The image must be exactly Size×Size.
func New(img image.Image) (*Tile, error) {
	b := img.Bounds()
	if b.Dx() != Size || b.Dy() != Size {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidSize, b.Dx(), b.Dy())
	}
	return &Tile{img: imaging.Clone(img)}, nil
}

// Decode builds a Tile from raw RGBA bytes as produced by Encode.
func Decode(data []byte) (*Tile, error) {
	if len(data) != EncodedLen {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSize, len(data), EncodedLen)
	}
	img := image.NewNRGBA(image.Rect(0, 0, Size, Size))
	copy(img.Pix, data)
	return &Tile{img: img}, nil
}

// Image returns the tile pixels as an *image.NRGBA with origin (0,0).
// Callers must not modify the result.
func (t *Tile) Image() image.Image {
	return t.img
}

// Encode returns the tile as raw RGBA: row-major, top to bottom, no padding.
func (t *Tile) Encode() []byte {
	out := make([]byte, 0, EncodedLen)
	for y := 0; y < Size; y++ {
		off := y * t.img.Stride
		out = append(out, t.img.Pix[off:off+Size*4]...)
	}
	return out
}
