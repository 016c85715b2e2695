// Package world opens the worlds maps are imported into. A local directory
// is tried against each supported format in turn; s3:// locations are
// served by package storage.
package world

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PhantomInTheWire/imagemap/pkg/registry"
	"github.com/PhantomInTheWire/imagemap/pkg/storage"
)

var ErrStorageUnavailable = errors.New("imagemap: no world could be opened")

// World is an opened map store.
type World interface {
	registry.Store
	Name() string
	Format() string
	Close() error
}

// Format is one way of reading a world directory.
type Format struct {
	Name string
	Open func(dir string, logger *slog.Logger) (World, error)
}

// Formats is the order in which local directories are tried.
var Formats = []Format{
	{Name: "java", Open: func(dir string, logger *slog.Logger) (World, error) { return OpenJava(dir, logger) }},
	{Name: "sqlite", Open: func(dir string, logger *slog.Logger) (World, error) { return OpenSQLite(dir, logger) }},
}

type openConfig struct {
	Logger  *slog.Logger
	S3      storage.Config
	Formats []Format
}

type Option func(*openConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *openConfig) { c.Logger = logger }
}

// WithS3Config supplies the endpoint and credentials for s3:// locations.
func WithS3Config(cfg storage.Config) Option {
	return func(c *openConfig) { c.S3 = cfg }
}

// WithFormats overrides the fallback chain used for local directories.
func WithFormats(formats ...Format) Option {
	return func(c *openConfig) { c.Formats = formats }
}

// attempt is the outcome of parsing a directory with one format.
type attempt struct {
	format string
	world  World
	err    error
}

func tryParse(f Format, dir string, logger *slog.Logger) attempt {
	w, err := f.Open(dir, logger)
	return attempt{format: f.Name, world: w, err: err}
}

// Open opens the world at location. Local directories are tried against
// every format in order; if all fail the returned error wraps
// ErrStorageUnavailable and carries each format's error.
func Open(ctx context.Context, location string, opts ...Option) (World, error) {
	config := openConfig{
		Logger:  slog.New(slog.DiscardHandler),
		Formats: Formats,
	}
	for _, opt := range opts {
		opt(&config)
	}

	if strings.HasPrefix(location, "s3://") {
		cfg := config.S3
		bucket, prefix, err := storage.ParseLocation(location)
		if err != nil {
			return nil, err
		}
		cfg.Bucket, cfg.Prefix = bucket, prefix
		w, err := storage.OpenS3(ctx, cfg, storage.WithLogger(config.Logger))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, location, err)
		}
		return w, nil
	}

	if len(config.Formats) == 0 {
		return nil, fmt.Errorf("%w: %s: no formats configured", ErrStorageUnavailable, location)
	}
	var errs []error
	for _, f := range config.Formats {
		a := tryParse(f, location, config.Logger)
		if a.err == nil {
			config.Logger.Debug("opened world", "dir", location, "format", a.format)
			return a.world, nil
		}
		config.Logger.Debug("world format did not match", "dir", location, "format", a.format, "err", a.err)
		errs = append(errs, fmt.Errorf("%s: %w", a.format, a.err))
	}
	return nil, fmt.Errorf("%w: %s:\n%w", ErrStorageUnavailable, location, errors.Join(errs...))
}
