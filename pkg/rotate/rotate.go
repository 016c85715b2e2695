// Package rotate holds the quarter-turn rotation applied to a source image
// before it is resampled.
package rotate

import (
	"image"

	"github.com/disintegration/imaging"
)

// Rotation is a clockwise rotation in quarter turns.
type Rotation int

const (
	None Rotation = iota
	CW90
	CW180
	CW270
)

// Next returns the rotation one clockwise quarter turn further, wrapping
// back to None after CW270.
func (r Rotation) Next() Rotation {
	return (r.norm() + 1) % 4
}

// Degrees returns the clockwise angle.
func (r Rotation) Degrees() int {
	return int(r.norm()) * 90
}

// Swaps reports whether the rotation exchanges width and height.
func (r Rotation) Swaps() bool {
	return r.norm()%2 == 1
}

func (r Rotation) norm() Rotation {
	return ((r % 4) + 4) % 4
}

// Apply renders img at this orientation. None returns a copy.
// imaging rotates counter-clockwise, hence the swapped calls.
func (r Rotation) Apply(img image.Image) *image.NRGBA {
	switch r.norm() {
	case CW90:
		return imaging.Rotate270(img)
	case CW180:
		return imaging.Rotate180(img)
	case CW270:
		return imaging.Rotate90(img)
	default:
		return imaging.Clone(img)
	}
}
