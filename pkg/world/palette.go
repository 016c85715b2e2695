package world

import (
	"image"
	"image/color"

	"github.com/PhantomInTheWire/imagemap/pkg/tile"
)

// baseColors are the Java Edition map base colors, indexed by base id.
// Base 0 is transparent.
var baseColors = [...]color.NRGBA{
	{0, 0, 0, 0},
	{127, 178, 56, 255},
	{247, 233, 163, 255},
	{199, 199, 199, 255},
	{255, 0, 0, 255},
	{160, 160, 255, 255},
	{167, 167, 167, 255},
	{0, 124, 0, 255},
	{255, 255, 255, 255},
	{164, 168, 184, 255},
	{151, 109, 77, 255},
	{112, 112, 112, 255},
	{64, 64, 255, 255},
	{143, 119, 72, 255},
	{255, 252, 245, 255},
	{216, 127, 51, 255},
	{178, 76, 216, 255},
	{102, 153, 216, 255},
	{229, 229, 51, 255},
	{127, 204, 25, 255},
	{242, 127, 165, 255},
	{76, 76, 76, 255},
	{153, 153, 153, 255},
	{76, 127, 153, 255},
	{127, 63, 178, 255},
	{51, 76, 178, 255},
	{102, 76, 51, 255},
	{102, 127, 51, 255},
	{153, 51, 51, 255},
	{25, 25, 25, 255},
	{250, 238, 77, 255},
	{92, 219, 213, 255},
	{74, 128, 255, 255},
	{0, 217, 58, 255},
	{129, 86, 49, 255},
	{112, 2, 0, 255},
	{209, 177, 161, 255},
	{159, 82, 36, 255},
	{149, 87, 108, 255},
	{112, 108, 138, 255},
	{186, 133, 36, 255},
	{103, 117, 53, 255},
	{160, 77, 78, 255},
	{57, 41, 35, 255},
	{135, 107, 98, 255},
	{87, 92, 92, 255},
	{122, 73, 88, 255},
	{76, 62, 92, 255},
	{76, 50, 35, 255},
	{76, 82, 42, 255},
	{142, 60, 46, 255},
	{37, 22, 16, 255},
	{189, 48, 49, 255},
	{148, 63, 97, 255},
	{92, 25, 29, 255},
	{22, 126, 134, 255},
	{58, 142, 140, 255},
	{86, 44, 62, 255},
	{20, 180, 133, 255},
	{100, 100, 100, 255},
	{216, 175, 147, 255},
	{127, 167, 150, 255},
}

// shades are the brightness multipliers (out of 255) of the four variants
// of every base color.
var shades = [4]uint32{180, 220, 255, 135}

// palette maps a map color index (base*4 + shade) to its RGBA value.
var palette = func() []color.NRGBA {
	p := make([]color.NRGBA, len(baseColors)*4)
	for b, c := range baseColors {
		if b == 0 {
			continue
		}
		for s, m := range shades {
			p[b*4+s] = color.NRGBA{
				R: uint8(uint32(c.R) * m / 255),
				G: uint8(uint32(c.G) * m / 255),
				B: uint8(uint32(c.B) * m / 255),
				A: 255,
			}
		}
	}
	return p
}()

// quantizer finds the nearest palette entry for a color, caching results.
type quantizer map[color.NRGBA]byte

func (q quantizer) index(c color.NRGBA) byte {
	if c.A < 128 {
		return 0
	}
	c.A = 255
	if idx, ok := q[c]; ok {
		return idx
	}
	best, bestDist := 0, int(^uint(0)>>1)
	for i := 4; i < len(palette); i++ {
		p := palette[i]
		dr, dg, db := int(c.R)-int(p.R), int(c.G)-int(p.G), int(c.B)-int(p.B)
		if d := dr*dr + dg*dg + db*db; d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	q[c] = byte(best)
	return byte(best)
}

// mapColors converts a tile into map color indices, row-major.
func mapColors(t *tile.Tile, q quantizer) []byte {
	img := t.Image().(*image.NRGBA)
	out := make([]byte, tile.Size*tile.Size)
	for y := 0; y < tile.Size; y++ {
		for x := 0; x < tile.Size; x++ {
			out[y*tile.Size+x] = q.index(img.NRGBAAt(x, y))
		}
	}
	return out
}

// tileFromColors is the inverse of mapColors. Unknown indices render
// transparent.
func tileFromColors(colors []byte) (*tile.Tile, error) {
	img := image.NewNRGBA(image.Rect(0, 0, tile.Size, tile.Size))
	for i, idx := range colors {
		if i >= tile.Size*tile.Size {
			break
		}
		if int(idx) < len(palette) {
			img.SetNRGBA(i%tile.Size, i/tile.Size, palette[idx])
		}
	}
	return tile.New(img)
}
