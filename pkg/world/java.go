package world

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"

	"github.com/PhantomInTheWire/imagemap/pkg/registry"
	"github.com/PhantomInTheWire/imagemap/pkg/tile"
	"github.com/Tnze/go-mc/nbt"
)

const (
	// defaultDataVersion is written when level.dat does not carry one
	// (1.20.1).
	defaultDataVersion = 3465

	chestSlots = 27
)

var mapFileRegexp = regexp.MustCompile(`^map_(\d+)\.dat$`)

type levelDat struct {
	Data struct {
		LevelName   string `nbt:"LevelName"`
		DataVersion int32  `nbt:"DataVersion"`
	} `nbt:"Data"`
}

type mapData struct {
	Scale             int8   `nbt:"scale"`
	Dimension         string `nbt:"dimension"`
	TrackingPosition  int8   `nbt:"trackingPosition"`
	UnlimitedTracking int8   `nbt:"unlimitedTracking"`
	Locked            int8   `nbt:"locked"`
	XCenter           int32  `nbt:"xCenter"`
	ZCenter           int32  `nbt:"zCenter"`
	Colors            []byte `nbt:"colors"`
}

type mapFile struct {
	DataVersion int32   `nbt:"DataVersion"`
	Data        mapData `nbt:"data"`
}

type idCounts struct {
	DataVersion int32 `nbt:"DataVersion"`
	Data        struct {
		Map int32 `nbt:"map"`
	} `nbt:"data"`
}

// JavaWorld stores maps as data/map_<id>.dat files of a Java Edition world.
type JavaWorld struct {
	dir         string
	name        string
	dataVersion int32
	logger      *slog.Logger
}

// OpenJava opens dir if it holds a level.dat.
func OpenJava(dir string, logger *slog.Logger) (*JavaWorld, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var level levelDat
	if err := readNBT(filepath.Join(dir, "level.dat"), &level); err != nil {
		return nil, fmt.Errorf("reading level.dat: %w", err)
	}
	name := level.Data.LevelName
	if name == "" {
		name = filepath.Base(dir)
	}
	version := level.Data.DataVersion
	if version == 0 {
		version = defaultDataVersion
	}
	return &JavaWorld{dir: dir, name: name, dataVersion: version, logger: logger}, nil
}

func (w *JavaWorld) Name() string   { return w.name }
func (w *JavaWorld) Format() string { return "java" }
func (w *JavaWorld) Close() error   { return nil }

func (w *JavaWorld) dataDir() string { return filepath.Join(w.dir, "data") }

func (w *JavaWorld) mapPath(id int64) string {
	return filepath.Join(w.dataDir(), fmt.Sprintf("map_%d.dat", id))
}

func (w *JavaWorld) LoadTiles(ctx context.Context) (map[int64]*tile.Tile, error) {
	entries, err := os.ReadDir(w.dataDir())
	if errors.Is(err, os.ErrNotExist) {
		return make(map[int64]*tile.Tile), nil
	}
	if err != nil {
		return nil, err
	}

	tiles := make(map[int64]*tile.Tile)
	for _, e := range entries {
		m := mapFileRegexp.FindStringSubmatch(e.Name())
		if e.IsDir() || m == nil {
			continue
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		var f mapFile
		if err := readNBT(filepath.Join(w.dataDir(), e.Name()), &f); err != nil {
			w.logger.Warn("skipping unreadable map", "file", e.Name(), "err", err)
			continue
		}
		t, err := tileFromColors(f.Data.Colors)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		tiles[id] = t
	}
	return tiles, nil
}

// PersistTiles writes every map and the raised map counter to temporary
// files first and only renames them into place once all have been written.
// A failed rename removes the maps already moved.
func (w *JavaWorld) PersistTiles(ctx context.Context, tiles map[int64]*tile.Tile) error {
	if len(tiles) == 0 {
		return nil
	}
	if err := os.MkdirAll(w.dataDir(), 0o755); err != nil {
		return err
	}

	ids := slices.Sorted(maps.Keys(tiles))
	for _, id := range ids {
		if _, err := os.Stat(w.mapPath(id)); err == nil {
			return fmt.Errorf("%w: map_%d.dat exists", registry.ErrDuplicateID, id)
		}
	}

	counts, bump, err := w.nextIDCounts(ids[len(ids)-1])
	if err != nil {
		return err
	}

	var temps, targets []string
	cleanup := func() {
		for _, p := range temps {
			os.Remove(p)
		}
	}
	q := make(quantizer)
	for _, id := range ids {
		f := mapFile{
			DataVersion: w.dataVersion,
			Data: mapData{
				Dimension: "minecraft:overworld",
				Locked:    1,
				// Far outside any normal play area so the map never updates.
				XCenter: 1 << 30,
				ZCenter: 1 << 30,
				Colors:  mapColors(tiles[id], q),
			},
		}
		tmp := w.mapPath(id) + ".tmp"
		temps = append(temps, tmp)
		targets = append(targets, w.mapPath(id))
		if err := writeNBT(tmp, f); err != nil {
			cleanup()
			return fmt.Errorf("writing map %d: %w", id, err)
		}
	}
	if bump {
		path := w.idCountsPath()
		temps = append(temps, path+".tmp")
		targets = append(targets, path)
		if err := writeNBT(path+".tmp", counts); err != nil {
			cleanup()
			return fmt.Errorf("writing idcounts.dat: %w", err)
		}
	}

	for i := range temps {
		if err := os.Rename(temps[i], targets[i]); err != nil {
			// Only map files precede the counter, so everything moved so
			// far is a new map.
			for _, done := range targets[:i] {
				os.Remove(done)
			}
			cleanup()
			return err
		}
	}
	w.logger.Debug("wrote map files", "count", len(ids), "idcounts", bump)
	return nil
}

func (w *JavaWorld) idCountsPath() string {
	return filepath.Join(w.dataDir(), "idcounts.dat")
}

// nextIDCounts reads the world's map counter and reports whether it must be
// raised to highest so the game does not hand out IDs that are already
// taken.
func (w *JavaWorld) nextIDCounts(highest int64) (idCounts, bool, error) {
	var counts idCounts
	if err := readNBT(w.idCountsPath(), &counts); err != nil && !errors.Is(err, os.ErrNotExist) {
		return counts, false, fmt.Errorf("reading idcounts.dat: %w", err)
	}
	if int64(counts.Data.Map) >= highest {
		return counts, false, nil
	}
	counts.DataVersion = w.dataVersion
	counts.Data.Map = int32(highest)
	return counts, true, nil
}

func (w *JavaWorld) DeleteTile(ctx context.Context, id int64) error {
	err := os.Remove(w.mapPath(id))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %d", registry.ErrNotFound, id)
	}
	return err
}

type structureBlock struct {
	Pos   []int32        `nbt:"pos" nbt_type:"list"`
	State int32          `nbt:"state"`
	NBT   chestBlockData `nbt:"nbt"`
}

type chestBlockData struct {
	ID    string      `nbt:"id"`
	Items []chestItem `nbt:"Items"`
}

type chestItem struct {
	Slot  int8   `nbt:"Slot"`
	ID    string `nbt:"id"`
	Count int8   `nbt:"Count"`
	Tag   struct {
		Map int32 `nbt:"map"`
	} `nbt:"tag"`
}

type paletteEntry struct {
	Name string `nbt:"Name"`
}

type structureFile struct {
	DataVersion int32            `nbt:"DataVersion"`
	Size        []int32          `nbt:"size" nbt_type:"list"`
	Palette     []paletteEntry   `nbt:"palette"`
	Blocks      []structureBlock `nbt:"blocks"`
}

// AttachTiles writes a structure of stacked chests holding one filled map
// per ID. It can be placed in game with a structure block as
// imagemap:maps_<first id>.
func (w *JavaWorld) AttachTiles(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	s := structureFile{
		DataVersion: w.dataVersion,
		Palette:     []paletteEntry{{Name: "minecraft:chest"}},
	}
	for start := 0; start < len(ids); start += chestSlots {
		chunk := ids[start:min(start+chestSlots, len(ids))]
		block := structureBlock{
			Pos: []int32{0, int32(len(s.Blocks)), 0},
			NBT: chestBlockData{ID: "minecraft:chest"},
		}
		for slot, id := range chunk {
			item := chestItem{Slot: int8(slot), ID: "minecraft:filled_map", Count: 1}
			item.Tag.Map = int32(id)
			block.NBT.Items = append(block.NBT.Items, item)
		}
		s.Blocks = append(s.Blocks, block)
	}
	s.Size = []int32{1, int32(len(s.Blocks)), 1}

	dir := filepath.Join(w.dir, "generated", "imagemap", "structures")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("maps_%d.nbt", ids[0]))
	if err := writeNBT(path, s); err != nil {
		return err
	}
	w.logger.Info("wrote map chest structure", "path", path, "chests", len(s.Blocks))
	return nil
}

// CreateJava initialises an empty Java world directory with a minimal
// level.dat.
func CreateJava(dir, name string) (*JavaWorld, error) {
	if err := os.MkdirAll(filepath.Join(dir, "data"), 0o755); err != nil {
		return nil, err
	}
	var level levelDat
	level.Data.LevelName = name
	level.Data.DataVersion = defaultDataVersion
	if err := writeNBT(filepath.Join(dir, "level.dat"), level); err != nil {
		return nil, err
	}
	return OpenJava(dir, nil)
}

func readNBT(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer zr.Close()
	_, err = nbt.NewDecoder(zr).Decode(v)
	return err
}

func writeNBT(path string, v any) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	zw := gzip.NewWriter(f)
	if err := nbt.NewEncoder(zw).Encode(v, ""); err != nil {
		return err
	}
	return zw.Close()
}
