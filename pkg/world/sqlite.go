package world

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/PhantomInTheWire/imagemap/pkg/registry"
	"github.com/PhantomInTheWire/imagemap/pkg/tile"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteFile is the database file that marks a directory as an SQLite world.
const SQLiteFile = "imagemap.db"

const sqliteSchema = `
	CREATE TABLE meta (name TEXT PRIMARY KEY, value TEXT);
	CREATE TABLE maps (id INTEGER PRIMARY KEY, pixels BLOB NOT NULL);
	CREATE TABLE containers (id INTEGER PRIMARY KEY AUTOINCREMENT, map_ids TEXT NOT NULL);
`

// SQLiteWorld stores maps as raw RGBA blobs in a single database file.
type SQLiteWorld struct {
	db     *sql.DB
	name   string
	logger *slog.Logger
}

// OpenSQLite opens the imagemap.db inside dir. The file must already exist.
func OpenSQLite(dir string, logger *slog.Logger) (*SQLiteWorld, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	path := filepath.Join(dir, SQLiteFile)
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=rw", path))
	if err != nil {
		return nil, err
	}
	var name string
	err = db.QueryRow("SELECT value FROM meta WHERE name = 'name'").Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		name, err = filepath.Base(dir), nil
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", SQLiteFile, err)
	}
	return &SQLiteWorld{db: db, name: name, logger: logger}, nil
}

// CreateSQLite creates a new, empty SQLite world in dir.
func CreateSQLite(dir, name string, logger *slog.Logger) (w *SQLiteWorld, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, SQLiteFile)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%s already exists", path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()
	if _, err = db.Exec(sqliteSchema); err != nil {
		return nil, err
	}
	if _, err = db.Exec("INSERT INTO meta (name, value) VALUES ('name', ?)", name); err != nil {
		return nil, err
	}
	if err = db.Close(); err != nil {
		return nil, err
	}
	return OpenSQLite(dir, logger)
}

func (w *SQLiteWorld) Name() string   { return w.name }
func (w *SQLiteWorld) Format() string { return "sqlite" }

func (w *SQLiteWorld) Close() error {
	return w.db.Close()
}

func (w *SQLiteWorld) LoadTiles(ctx context.Context) (map[int64]*tile.Tile, error) {
	rows, err := w.db.QueryContext(ctx, "SELECT id, pixels FROM maps")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tiles := make(map[int64]*tile.Tile)
	for rows.Next() {
		var id int64
		var pixels []byte
		if err := rows.Scan(&id, &pixels); err != nil {
			return nil, err
		}
		t, err := tile.Decode(pixels)
		if err != nil {
			return nil, fmt.Errorf("map %d: %w", id, err)
		}
		tiles[id] = t
	}
	return tiles, rows.Err()
}

// PersistTiles inserts all maps in one transaction.
func (w *SQLiteWorld) PersistTiles(ctx context.Context, tiles map[int64]*tile.Tile) (err error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO maps (id, pixels) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range slices.Sorted(maps.Keys(tiles)) {
		if _, err = stmt.ExecContext(ctx, id, tiles[id].Encode()); err != nil {
			return fmt.Errorf("inserting map %d: %w", id, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	w.logger.Debug("inserted maps", "count", len(tiles))
	return nil
}

func (w *SQLiteWorld) DeleteTile(ctx context.Context, id int64) error {
	res, err := w.db.ExecContext(ctx, "DELETE FROM maps WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", registry.ErrNotFound, id)
	}
	return nil
}

// AttachTiles records a container holding the given maps.
func (w *SQLiteWorld) AttachTiles(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	_, err := w.db.ExecContext(ctx, "INSERT INTO containers (map_ids) VALUES (?)", strings.Join(parts, ","))
	return err
}

// Containers returns the map IDs of every recorded container, oldest first.
func (w *SQLiteWorld) Containers(ctx context.Context) ([][]int64, error) {
	rows, err := w.db.QueryContext(ctx, "SELECT map_ids FROM containers ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]int64
	for rows.Next() {
		var list string
		if err := rows.Scan(&list); err != nil {
			return nil, err
		}
		var ids []int64
		for _, s := range strings.Split(list, ",") {
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("container %q: %w", list, err)
			}
			ids = append(ids, id)
		}
		out = append(out, ids)
	}
	return out, rows.Err()
}
