// Package registry allocates map IDs and tracks staged tiles against the
// tiles already persisted in a world.
package registry

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"slices"

	"github.com/PhantomInTheWire/imagemap/pkg/tile"
)

var (
	ErrDuplicateID       = errors.New("imagemap: duplicate map id")
	ErrNotFound          = errors.New("imagemap: map id not found")
	ErrInvalidID         = errors.New("imagemap: invalid map id")
	ErrAttachUnsupported = errors.New("imagemap: world cannot hold map containers")
)

// Store is the world a registry reads existing maps from and writes new
// maps to.
type Store interface {
	// LoadTiles returns every map currently stored, keyed by ID.
	LoadTiles(ctx context.Context) (map[int64]*tile.Tile, error)

	// PersistTiles stores all given maps. Implementations should not leave a
	// partial batch behind on failure.
	PersistTiles(ctx context.Context, tiles map[int64]*tile.Tile) error

	// DeleteTile removes a single map.
	DeleteTile(ctx context.Context, id int64) error
}

// Attacher is implemented by stores that can place references to maps into
// a container object in the world.
type Attacher interface {
	AttachTiles(ctx context.Context, ids []int64) error
}

// Registry holds the persisted and staged maps of one world. It is not safe
// for concurrent use.
type Registry struct {
	store     Store
	persisted map[int64]*tile.Tile
	staged    map[int64]*tile.Tile
	logger    *slog.Logger
}

type registryConfig struct {
	Logger *slog.Logger
}

type Option func(*registryConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *registryConfig) { c.Logger = logger }
}

// Load creates a Registry populated with the maps already in store.
func Load(ctx context.Context, store Store, opts ...Option) (*Registry, error) {
	existing, err := store.LoadTiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading maps: %w", err)
	}
	r := New(store, existing, opts...)
	r.logger.Debug("loaded maps", "count", len(existing))
	return r, nil
}

// New creates a Registry over an already loaded set of persisted maps.
func New(store Store, persisted map[int64]*tile.Tile, opts ...Option) *Registry {
	config := registryConfig{
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}
	if persisted == nil {
		persisted = make(map[int64]*tile.Tile)
	}
	return &Registry{
		store:     store,
		persisted: persisted,
		staged:    make(map[int64]*tile.Tile),
		logger:    config.Logger,
	}
}

// Allocate returns count consecutive IDs above every ID in use. Gaps below
// the highest ID are never reused.
func (r *Registry) Allocate(count int) []int64 {
	next := int64(-1)
	for id := range r.persisted {
		next = max(next, id)
	}
	for id := range r.staged {
		next = max(next, id)
	}
	next++

	ids := make([]int64, count)
	for i := range ids {
		ids[i] = next + int64(i)
	}
	return ids
}

// Stage adds a map waiting to be committed.
func (r *Registry) Stage(id int64, t *tile.Tile) error {
	if id < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	if _, ok := r.persisted[id]; ok {
		return fmt.Errorf("%w: %d is already in the world", ErrDuplicateID, id)
	}
	if _, ok := r.staged[id]; ok {
		return fmt.Errorf("%w: %d is already staged", ErrDuplicateID, id)
	}
	r.staged[id] = t
	return nil
}

// StageAll allocates one contiguous block of IDs for tiles and stages them
// in order.
func (r *Registry) StageAll(tiles []*tile.Tile) ([]int64, error) {
	ids := r.Allocate(len(tiles))
	for i, t := range tiles {
		if err := r.Stage(ids[i], t); err != nil {
			for _, id := range ids[:i] {
				delete(r.staged, id)
			}
			return nil, err
		}
	}
	r.logger.Debug("staged maps", "count", len(ids))
	return ids, nil
}

// Unstage drops a staged map. Unknown IDs are ignored.
func (r *Registry) Unstage(id int64) {
	delete(r.staged, id)
}

// Commit writes every staged map to the store and moves them to the
// persisted set. On error nothing is moved and the staged set is kept.
func (r *Registry) Commit(ctx context.Context) ([]int64, error) {
	ids := slices.Sorted(maps.Keys(r.staged))
	if len(ids) == 0 {
		return nil, nil
	}
	for _, id := range ids {
		if _, ok := r.persisted[id]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, id)
		}
	}
	if err := r.store.PersistTiles(ctx, maps.Clone(r.staged)); err != nil {
		return nil, fmt.Errorf("persisting %d maps: %w", len(ids), err)
	}
	maps.Copy(r.persisted, r.staged)
	clear(r.staged)
	r.logger.Info("committed maps", "count", len(ids), "first", ids[0], "last", ids[len(ids)-1])
	return ids, nil
}

// DeletePersisted removes a map from the world.
func (r *Registry) DeletePersisted(ctx context.Context, id int64) error {
	if _, ok := r.persisted[id]; !ok {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err := r.store.DeleteTile(ctx, id); err != nil {
		return fmt.Errorf("deleting map %d: %w", id, err)
	}
	delete(r.persisted, id)
	r.logger.Info("deleted map", "id", id)
	return nil
}

// Attach asks the store to place references to the given persisted maps
// into a container.
func (r *Registry) Attach(ctx context.Context, ids []int64) error {
	a, ok := r.store.(Attacher)
	if !ok {
		return ErrAttachUnsupported
	}
	for _, id := range ids {
		if _, ok := r.persisted[id]; !ok {
			return fmt.Errorf("%w: %d", ErrNotFound, id)
		}
	}
	return a.AttachTiles(ctx, ids)
}

// Persisted iterates persisted maps in ascending ID order.
func (r *Registry) Persisted() iter.Seq2[int64, *tile.Tile] {
	return sortedSeq(r.persisted)
}

// Staged iterates staged maps in ascending ID order.
func (r *Registry) Staged() iter.Seq2[int64, *tile.Tile] {
	return sortedSeq(r.staged)
}

func (r *Registry) PersistedLen() int { return len(r.persisted) }

func (r *Registry) StagedLen() int { return len(r.staged) }

// Lookup returns a persisted or staged map.
func (r *Registry) Lookup(id int64) (*tile.Tile, bool) {
	if t, ok := r.persisted[id]; ok {
		return t, true
	}
	t, ok := r.staged[id]
	return t, ok
}

func sortedSeq(m map[int64]*tile.Tile) iter.Seq2[int64, *tile.Tile] {
	ids := slices.Sorted(maps.Keys(m))
	return func(yield func(int64, *tile.Tile) bool) {
		for _, id := range ids {
			t, ok := m[id]
			if !ok {
				continue
			}
			if !yield(id, t) {
				return
			}
		}
	}
}
