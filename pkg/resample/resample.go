// Package resample resizes source images to an exact pixel size with a
// selectable interpolation filter.
package resample

import (
	"fmt"
	"image"
	"strings"

	"github.com/PhantomInTheWire/imagemap/pkg/tile"
	"github.com/disintegration/imaging"
)

// Interpolation selects the resampling filter. The numeric values are
// stored in user preferences and must not change.
type Interpolation int

const (
	Auto Interpolation = iota
	NearestNeighbor
	HighQualityBicubic
)

var names = map[Interpolation]string{
	Auto:               "auto",
	NearestNeighbor:    "nearest",
	HighQualityBicubic: "bicubic",
}

func (i Interpolation) String() string {
	if s, ok := names[i]; ok {
		return s
	}
	return fmt.Sprintf("Interpolation(%d)", int(i))
}

// Valid reports whether i is one of the known choices.
func (i Interpolation) Valid() bool {
	_, ok := names[i]
	return ok
}

// ParseInterpolation accepts the names printed by String.
func ParseInterpolation(s string) (Interpolation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range names {
		if name == s {
			return i, nil
		}
	}
	return Auto, fmt.Errorf("unknown interpolation %q (want auto, nearest or bicubic)", s)
}

// Resolve turns Auto into a concrete filter for a source of w×h pixels.
// Small images keep hard edges; anything larger than one tile in either
// dimension is smoothed.
func (i Interpolation) Resolve(w, h int) Interpolation {
	if i != Auto {
		return i
	}
	if w <= tile.Size && h <= tile.Size {
		return NearestNeighbor
	}
	return HighQualityBicubic
}

func (i Interpolation) filter() imaging.ResampleFilter {
	if i == NearestNeighbor {
		return imaging.NearestNeighbor
	}
	return imaging.CatmullRom
}

// Resize returns img scaled to exactly w×h pixels. Auto is resolved
// against the dimensions of img.
func Resize(img image.Image, w, h int, mode Interpolation) *image.NRGBA {
	b := img.Bounds()
	mode = mode.Resolve(b.Dx(), b.Dy())
	return imaging.Resize(img, w, h, mode.filter())
}
