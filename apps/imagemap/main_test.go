package main

import (
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PhantomInTheWire/imagemap/pkg/prefs"
	"github.com/PhantomInTheWire/imagemap/pkg/resample"
	"github.com/PhantomInTheWire/imagemap/pkg/world"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dir      string
	worldDir string
	prefs    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:      dir,
		worldDir: filepath.Join(dir, "world"),
		prefs:    filepath.Join(dir, "prefs.yaml"),
	}
	w, err := world.CreateSQLite(f.worldDir, "Fixture", nil)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return f
}

func (f *fixture) image(t *testing.T, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, imaging.Save(imaging.New(w, h, color.NRGBA{10, 200, 30, 255}), path))
	return path
}

func (f *fixture) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--prefs", f.prefs}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (f *fixture) mapCount(t *testing.T) int {
	t.Helper()
	w, err := world.Open(context.Background(), f.worldDir)
	require.NoError(t, err)
	defer w.Close()
	tiles, err := w.LoadTiles(context.Background())
	require.NoError(t, err)
	return len(tiles)
}

func TestImportApplyAll(t *testing.T) {
	f := newFixture(t)
	a := f.image(t, "a.png", 64, 64)
	b := f.image(t, "b.png", 300, 200)
	bad := filepath.Join(f.dir, "corrupt.dat")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o644))
	c := f.image(t, "c.png", 20, 20)

	out, err := f.run(t, "", "import", f.worldDir, a, bad, b, c, "--grid", "2x1", "--apply-all", "--interp", "bicubic")
	require.NoError(t, err, out)
	require.Contains(t, out, "corrupt.dat")
	require.Contains(t, out, "Added 6 map(s)")
	require.Contains(t, out, "0-5")
	require.Equal(t, 6, f.mapCount(t))

	p, err := prefs.Load(f.prefs)
	require.NoError(t, err)
	require.True(t, p.ApplyAll)
	require.Equal(t, resample.HighQualityBicubic, p.InterpolationMode())
	require.Equal(t, f.dir, p.LastOpenDir)

	out, err = f.run(t, "", "import", f.worldDir, "a.png", "--apply-all=false")
	require.NoError(t, err, out)
	require.Contains(t, out, "Added 1 map(s)")
	require.Contains(t, out, ": 6\n")

	out, err = f.run(t, "", "list", f.worldDir)
	require.NoError(t, err, out)
	require.Contains(t, out, "Fixture (sqlite)")
	require.Contains(t, out, "IDs:   0-6")
	require.Contains(t, out, "Next:  7")
}

func TestImportInteractive(t *testing.T) {
	f := newFixture(t)
	a := f.image(t, "a.png", 64, 32)
	b := f.image(t, "b.png", 64, 64)
	c := f.image(t, "c.png", 64, 64)

	// Rotate and confirm a.png as 1x2, skip b.png, confirm c.png 2x2,
	// then drop two of the staged maps before saving.
	input := strings.Join([]string{"r", "c 1x2", "s", "c 2x2", "3-4", ""}, "\n") + "\n"
	out, err := f.run(t, input, "import", f.worldDir, a, b, c, "--interactive")
	require.NoError(t, err, out)
	require.Contains(t, out, "rotation 90°")
	require.Contains(t, out, "Staged 6 map(s): 0-5")
	require.Contains(t, out, "Added 4 map(s) to Fixture: 0-2, 5")
	require.Equal(t, 4, f.mapCount(t))
}

func TestImportInteractiveApplyAllUppercase(t *testing.T) {
	t.Setenv("IMAGEMAP_MAX_TILES", "4")
	f := newFixture(t)
	a := f.image(t, "a.png", 32, 16)
	b := f.image(t, "b.png", 32, 16)

	input := strings.Join([]string{"c 3x2", "A 2x1", ""}, "\n") + "\n"
	out, err := f.run(t, input, "import", f.worldDir, a, b, "--interactive")
	require.NoError(t, err, out)
	require.Contains(t, out, "more than IMAGEMAP_MAX_TILES=4")
	require.Contains(t, out, "Staged 4 map(s): 0-3")
	require.Equal(t, 4, f.mapCount(t))
}

func TestImportInteractiveAbort(t *testing.T) {
	f := newFixture(t)
	a := f.image(t, "a.png", 16, 16)
	b := f.image(t, "b.png", 16, 16)

	out, err := f.run(t, "x\n", "import", f.worldDir, a, b, "--interactive")
	require.NoError(t, err, out)
	require.Contains(t, out, "No maps were produced.")
	require.Equal(t, 0, f.mapCount(t))
}

func TestDeleteAndExport(t *testing.T) {
	f := newFixture(t)
	a := f.image(t, "a.png", 64, 64)
	_, err := f.run(t, "", "import", f.worldDir, a, "--grid", "3x1")
	require.NoError(t, err)

	out, err := f.run(t, "n\n", "delete", f.worldDir, "1")
	require.NoError(t, err, out)
	require.Contains(t, out, "Nothing deleted.")
	require.Equal(t, 3, f.mapCount(t))

	out, err = f.run(t, "", "delete", f.worldDir, "1", "--yes")
	require.NoError(t, err, out)
	require.Equal(t, 2, f.mapCount(t))

	_, err = f.run(t, "", "delete", f.worldDir, "1", "--yes")
	require.Error(t, err)

	exportDir := filepath.Join(f.dir, "export")
	out, err = f.run(t, "", "export", f.worldDir, exportDir)
	require.NoError(t, err, out)
	require.Contains(t, out, "Exported 2 map(s)")
	for _, name := range []string{"map_0.png", "map_2.png"} {
		img, err := imaging.Open(filepath.Join(exportDir, name))
		require.NoError(t, err)
		require.Equal(t, 128, img.Bounds().Dx())
	}

	p, err := prefs.Load(f.prefs)
	require.NoError(t, err)
	require.Equal(t, exportDir, p.LastExportDir)
}

func TestImportUnknownWorld(t *testing.T) {
	f := newFixture(t)
	empty := filepath.Join(f.dir, "empty")
	require.NoError(t, os.Mkdir(empty, 0o755))
	a := f.image(t, "a.png", 16, 16)

	_, err := f.run(t, "", "import", empty, a)
	require.ErrorIs(t, err, world.ErrStorageUnavailable)
}

func TestInitJava(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(f.dir, "java")
	out, err := f.run(t, "", "init", dir, "--format", "java", "--name", "Blocky")
	require.NoError(t, err, out)
	require.Contains(t, out, `java world "Blocky"`)

	a := f.image(t, "a.png", 256, 128)
	out, err = f.run(t, "", "import", dir, a, "--grid", "2x1", "--attach")
	require.NoError(t, err, out)
	require.FileExists(t, filepath.Join(dir, "data", "map_0.dat"))
	require.FileExists(t, filepath.Join(dir, "data", "map_1.dat"))
	require.FileExists(t, filepath.Join(dir, "generated", "imagemap", "structures", "maps_0.nbt"))
}
