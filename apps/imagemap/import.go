package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/PhantomInTheWire/imagemap/pkg/importer"
	"github.com/PhantomInTheWire/imagemap/pkg/registry"
	"github.com/PhantomInTheWire/imagemap/pkg/resample"
	"github.com/PhantomInTheWire/imagemap/pkg/split"
	"github.com/spf13/cobra"
)

type importOptions struct {
	grid        string
	interp      string
	rotate      int
	applyAll    bool
	attach      bool
	interactive bool
}

func newImportCmd(a *app) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <world> <image>...",
		Short: "Split images into maps and add them to a world",
		Long: `Resizes every image to a grid of 128x128 maps and stores the maps in the
world under new IDs above the highest ID already in use.

Images that cannot be decoded are reported and skipped.`,
		Example: `  # One 2x1 banner per image
  imagemap import ./saves/MyWorld banner.png --grid 2x1

  # Same settings for every image, rotated a quarter turn, in a chest
  imagemap import ./saves/MyWorld *.png --grid 1x1 --rotate 1 --apply-all --attach

  # Decide per image
  imagemap import ./saves/MyWorld a.png b.jpg --interactive`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("interp") {
				opts.interp = a.prefs.InterpolationMode().String()
			}
			if !flags.Changed("apply-all") {
				opts.applyAll = a.prefs.ApplyAll
			}
			if !flags.Changed("attach") {
				opts.attach = a.prefs.AttachContainer
			}
			return runImport(cmd, a, args[0], resolvePaths(args[1:], a.prefs.LastOpenDir), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.grid, "grid", "g", "1x1", "Maps per image as COLUMNSxROWS")
	cmd.Flags().StringVarP(&opts.interp, "interp", "i", "auto", "Interpolation: auto, nearest or bicubic")
	cmd.Flags().IntVarP(&opts.rotate, "rotate", "r", 0, "Clockwise quarter turns applied to each edited image")
	cmd.Flags().BoolVarP(&opts.applyAll, "apply-all", "a", false, "Apply the first image's settings to all images")
	cmd.Flags().BoolVar(&opts.attach, "attach", false, "Put the new maps into a container in the world")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "I", false, "Prompt for every image")

	return cmd
}

// resolvePaths looks up relative paths that do not exist in the working
// directory under the last directory images were opened from.
func resolvePaths(paths []string, lastDir string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p
		if lastDir == "" || filepath.IsAbs(p) {
			continue
		}
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			if _, err := os.Stat(filepath.Join(lastDir, p)); err == nil {
				out[i] = filepath.Join(lastDir, p)
			}
		}
	}
	return out
}

// checkGrid enforces IMAGEMAP_MAX_TILES on a parsed grid.
func checkGrid(g split.Grid) error {
	if limit := maxTiles(); g.Count() > limit {
		return fmt.Errorf("grid %v makes %d maps per image, more than IMAGEMAP_MAX_TILES=%d", g, g.Count(), limit)
	}
	return nil
}

func runImport(cmd *cobra.Command, a *app, location string, paths []string, opts importOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	grid, err := split.ParseGrid(opts.grid)
	if err != nil {
		return err
	}
	if err := checkGrid(grid); err != nil {
		return err
	}
	mode, err := resample.ParseInterpolation(opts.interp)
	if err != nil {
		return err
	}

	w, err := openWorld(ctx, location)
	if err != nil {
		return err
	}
	defer w.Close()

	reg, err := registry.Load(ctx, w, registry.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Opened %s world %q with %d map(s)\n", w.Format(), w.Name(), reg.PersistedLen())

	sess := importer.NewSession(paths,
		importer.WithLogger(slog.Default()),
		importer.WithInterpolation(mode),
		importer.WithDecodeErrorHandler(func(e *importer.DecodeError) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Bad image! %v\n", e)
		}),
	)
	if err := sess.Start(); err != nil {
		return err
	}

	var p *prompter
	if opts.interactive {
		p = newPrompter(cmd.InOrStdin(), out)
		if err := p.run(sess, grid, opts.applyAll); err != nil {
			return err
		}
	} else {
		for sess.State() == importer.Editing {
			for range ((opts.rotate % 4) + 4) % 4 {
				if _, err := sess.Rotate(); err != nil {
					return err
				}
			}
			if err := sess.Confirm(grid, opts.applyAll); err != nil {
				return err
			}
		}
	}

	tiles := sess.Tiles()
	if len(tiles) == 0 {
		fmt.Fprintln(out, "No maps were produced.")
		return nil
	}
	staged, err := reg.StageAll(tiles)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Staged %d map(s): %s\n", len(staged), formatIDs(staged))

	if p != nil {
		if err := p.review(reg); err != nil {
			return err
		}
	}

	committed, err := reg.Commit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Added %d map(s) to %s: %s\n", len(committed), w.Name(), formatIDs(committed))

	if opts.attach && len(committed) > 0 {
		switch err := reg.Attach(ctx, committed); {
		case errors.Is(err, registry.ErrAttachUnsupported):
			slog.Warn("world does not support map containers", "format", w.Format())
		case err != nil:
			return fmt.Errorf("maps were added but the container could not be written: %w", err)
		default:
			fmt.Fprintln(out, "Added a container holding the new maps.")
		}
	}

	if abs, err := filepath.Abs(paths[0]); err == nil {
		a.prefs.LastOpenDir = filepath.Dir(abs)
	}
	a.prefs.Interpolation = int(sess.Interpolation())
	a.prefs.ApplyAll = opts.applyAll
	a.prefs.AttachContainer = opts.attach
	a.dirty = true
	return nil
}
