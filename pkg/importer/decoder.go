package importer

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Decoder loads a source image from a path.
type Decoder interface {
	Decode(path string) (image.Image, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(path string) (image.Image, error)

func (f DecoderFunc) Decode(path string) (image.Image, error) { return f(path) }

// FileDecoder decodes any format registered with the image package
// (png, jpeg, gif, bmp, tiff, webp).
type FileDecoder struct{}

func (FileDecoder) Decode(path string) (image.Image, error) {
	return imaging.Open(path)
}

// DecodeError reports a source that could not be loaded. The session skips
// such sources and carries on.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("the image %s could not be loaded: %v", filepath.Base(e.Path), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
