// Package importer sequences source images through rotation, resampling and
// grid partitioning, accumulating the produced map tiles.
package importer

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/PhantomInTheWire/imagemap/pkg/resample"
	"github.com/PhantomInTheWire/imagemap/pkg/rotate"
	"github.com/PhantomInTheWire/imagemap/pkg/split"
	"github.com/PhantomInTheWire/imagemap/pkg/tile"
)

var (
	ErrNotEditing = errors.New("imagemap: no image is being edited")
	ErrStarted    = errors.New("imagemap: session already started")
)

// State is the position of a Session in its lifecycle.
type State int

const (
	AwaitingNext State = iota
	Editing
	Finished
)

func (s State) String() string {
	switch s {
	case AwaitingNext:
		return "awaiting-next"
	case Editing:
		return "editing"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type sessionConfig struct {
	Decoder       Decoder
	Logger        *slog.Logger
	Interpolation resample.Interpolation
	OnDecodeError func(*DecodeError)
}

type Option func(*sessionConfig)

func WithDecoder(d Decoder) Option {
	return func(c *sessionConfig) { c.Decoder = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *sessionConfig) { c.Logger = logger }
}

func WithInterpolation(mode resample.Interpolation) Option {
	return func(c *sessionConfig) { c.Interpolation = mode }
}

// WithDecodeErrorHandler sets a callback for sources that fail to decode.
// The session has already moved past the source when it is called.
func WithDecodeErrorHandler(fn func(*DecodeError)) Option {
	return func(c *sessionConfig) { c.OnDecodeError = fn }
}

// Session imports one batch of source images. It is not safe for
// concurrent use and cannot be restarted once Finished.
type Session struct {
	paths  []string
	total  int
	index  int
	state  State
	source image.Image

	rotation rotate.Rotation
	preview  image.Image
	interp   resample.Interpolation

	tiles    []*tile.Tile
	failures []*DecodeError

	decoder       Decoder
	logger        *slog.Logger
	onDecodeError func(*DecodeError)
}

// NewSession creates a session over paths in the given order. Call Start to
// load the first image.
func NewSession(paths []string, opts ...Option) *Session {
	config := sessionConfig{
		Decoder: FileDecoder{},
		Logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Session{
		paths:         append([]string(nil), paths...),
		total:         len(paths),
		index:         -1,
		state:         AwaitingNext,
		interp:        config.Interpolation,
		decoder:       config.Decoder,
		logger:        config.Logger,
		onDecodeError: config.OnDecodeError,
	}
}

// Start loads the first decodable image. The session is Finished
// immediately if no image can be loaded.
func (s *Session) Start() error {
	if s.state != AwaitingNext || s.index != -1 {
		return ErrStarted
	}
	s.advance()
	return nil
}

func (s *Session) State() State { return s.state }

// Index is the zero-based position of the current image, -1 before Start.
func (s *Session) Index() int { return s.index }

// Len is the number of input paths in the batch.
func (s *Session) Len() int { return s.total }

// Path returns the path of the image being edited.
func (s *Session) Path() string {
	if s.state != Editing {
		return ""
	}
	return s.paths[s.index]
}

// Preview returns the current image at its current rotation.
func (s *Session) Preview() image.Image {
	if s.state != Editing {
		return nil
	}
	return s.preview
}

func (s *Session) Rotation() rotate.Rotation { return s.rotation }

func (s *Session) Interpolation() resample.Interpolation { return s.interp }

// SetInterpolation changes the filter used by subsequent confirms.
func (s *Session) SetInterpolation(mode resample.Interpolation) {
	s.interp = mode
}

// ResolvedInterpolation is the filter Confirm would use for the current image.
func (s *Session) ResolvedInterpolation() resample.Interpolation {
	if s.source == nil {
		return s.interp
	}
	b := s.source.Bounds()
	return s.interp.Resolve(b.Dx(), b.Dy())
}

// Tiles returns the tiles produced so far, in production order.
func (s *Session) Tiles() []*tile.Tile { return s.tiles }

// Failures returns every decode failure reported during the session.
func (s *Session) Failures() []*DecodeError { return s.failures }

// Rotate turns the current image a further quarter turn clockwise and
// returns the new preview.
func (s *Session) Rotate() (image.Image, error) {
	if s.state != Editing {
		return nil, ErrNotEditing
	}
	s.rotation = s.rotation.Next()
	s.preview = s.rotation.Apply(s.source)
	s.logger.Debug("rotated image", "path", s.paths[s.index], "degrees", s.rotation.Degrees())
	return s.preview, nil
}

// Confirm produces tiles for the current image using g. With applyAll the
// same grid and interpolation are applied, unrotated, to every remaining
// image and the session finishes.
func (s *Session) Confirm(g split.Grid, applyAll bool) error {
	if s.state != Editing {
		return ErrNotEditing
	}
	if err := g.Validate(); err != nil {
		return err
	}

	tiles, err := s.process(s.source, s.rotation, g)
	if err != nil {
		return fmt.Errorf("%s: %w", s.paths[s.index], err)
	}
	s.tiles = append(s.tiles, tiles...)
	s.logger.Info("imported image", "path", s.paths[s.index], "grid", g.String(), "tiles", len(tiles))

	if !applyAll {
		s.advance()
		return nil
	}

	for s.index+1 < s.total {
		s.index++
		path := s.paths[s.index]
		src, ok := s.load(path)
		if !ok {
			continue
		}
		tiles, err := s.process(src, rotate.None, g)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		s.tiles = append(s.tiles, tiles...)
		s.logger.Info("imported image", "path", path, "grid", g.String(), "tiles", len(tiles))
	}
	s.finish()
	return nil
}

// Cancel skips the current image. With applyAll the remaining images are
// abandoned and the session finishes.
func (s *Session) Cancel(applyAll bool) error {
	if s.state != Editing {
		return ErrNotEditing
	}
	if applyAll {
		s.logger.Info("import aborted", "path", s.paths[s.index])
		s.finish()
		return nil
	}
	s.logger.Info("skipped image", "path", s.paths[s.index])
	s.advance()
	return nil
}

func (s *Session) process(src image.Image, r rotate.Rotation, g split.Grid) ([]*tile.Tile, error) {
	b := src.Bounds()
	mode := s.interp.Resolve(b.Dx(), b.Dy())
	w, h := g.Pixels()
	resized := resample.Resize(r.Apply(src), w, h, mode)
	return split.Tiles(resized, g)
}

// advance moves to the next decodable image, or finishes.
func (s *Session) advance() {
	s.state = AwaitingNext
	s.source, s.preview = nil, nil
	for {
		s.index++
		if s.index >= s.total {
			s.finish()
			return
		}
		src, ok := s.load(s.paths[s.index])
		if !ok {
			continue
		}
		s.source = src
		s.rotation = rotate.None
		s.preview = src
		s.state = Editing
		s.logger.Debug("editing image", "path", s.paths[s.index], "index", s.index+1, "of", s.total)
		return
	}
}

func (s *Session) load(path string) (image.Image, bool) {
	img, err := s.decoder.Decode(path)
	if err != nil {
		derr := &DecodeError{Path: path, Err: err}
		s.failures = append(s.failures, derr)
		s.logger.Warn("skipping image", "path", path, "err", err)
		if s.onDecodeError != nil {
			s.onDecodeError(derr)
		}
		return nil, false
	}
	return img, true
}

func (s *Session) finish() {
	if s.total > 0 && s.index >= s.total {
		s.index = s.total - 1
	}
	s.state = Finished
	s.source, s.preview = nil, nil
	s.paths = nil
}
