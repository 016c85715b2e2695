package tile_test

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/PhantomInTheWire/imagemap/pkg/tile"
	"github.com/google/go-cmp/cmp"
)

func TestNewRejectsWrongSize(t *testing.T) {
	for _, r := range []image.Rectangle{
		image.Rect(0, 0, 127, 128),
		image.Rect(0, 0, 128, 129),
		image.Rect(0, 0, 256, 256),
	} {
		_, err := tile.New(image.NewNRGBA(r))
		if !errors.Is(err, tile.ErrInvalidSize) {
			t.Errorf("New(%v) error = %v, want ErrInvalidSize", r, err)
		}
	}
}

func TestEncodeLayout(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, tile.Size, tile.Size))
	img.SetNRGBA(0, 0, color.NRGBA{1, 2, 3, 4})
	img.SetNRGBA(tile.Size-1, 1, color.NRGBA{5, 6, 7, 8})

	tl, err := tile.New(img)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	data := tl.Encode()
	if len(data) != tile.EncodedLen {
		t.Fatalf("Encode length = %d, want %d", len(data), tile.EncodedLen)
	}
	if got := data[0:4]; !cmp.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("pixel (0,0) = %v", got)
	}
	off := (1*tile.Size + tile.Size - 1) * 4
	if got := data[off : off+4]; !cmp.Equal(got, []byte{5, 6, 7, 8}) {
		t.Errorf("pixel (127,1) = %v", got)
	}

	back, err := tile.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !cmp.Equal(back.Encode(), data) {
		t.Errorf("Decode(Encode()) mismatch")
	}
}

func TestNewCopiesSubImage(t *testing.T) {
	big := image.NewNRGBA(image.Rect(0, 0, 2*tile.Size, tile.Size))
	big.SetNRGBA(tile.Size, 0, color.NRGBA{9, 9, 9, 255})
	sub := big.SubImage(image.Rect(tile.Size, 0, 2*tile.Size, tile.Size))

	tl, err := tile.New(sub)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := tl.Encode()[0:4]; !cmp.Equal(got, []byte{9, 9, 9, 255}) {
		t.Errorf("first pixel = %v", got)
	}
	big.SetNRGBA(tile.Size, 0, color.NRGBA{})
	if got := tl.Encode()[0]; got != 9 {
		t.Errorf("tile shares pixels with source")
	}
}

func TestDecodeRejectsShortInput(t *testing.T) {
	if _, err := tile.Decode(make([]byte, 10)); !errors.Is(err, tile.ErrInvalidSize) {
		t.Errorf("Decode error = %v, want ErrInvalidSize", err)
	}
}
