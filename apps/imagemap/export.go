package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/PhantomInTheWire/imagemap/pkg/registry"
	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <world> [dir] [id...]",
		Short: "Save maps from a world as PNG files",
		Long: `Writes maps as map_<id>.png into dir. Without IDs every map in the
world is exported. dir defaults to the last export directory.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir := a.prefs.LastExportDir
			if len(args) > 1 {
				dir = args[1]
			}
			if dir == "" {
				return fmt.Errorf("no export directory given")
			}
			var only []int64
			if len(args) > 2 {
				var err error
				if only, err = parseIDs(args[2:]); err != nil {
					return err
				}
			}

			w, err := openWorld(ctx, args[0])
			if err != nil {
				return err
			}
			defer w.Close()

			reg, err := registry.Load(ctx, w, registry.WithLogger(slog.Default()))
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}

			written := 0
			save := func(id int64) error {
				t, ok := reg.Lookup(id)
				if !ok {
					return fmt.Errorf("%w: %d", registry.ErrNotFound, id)
				}
				path := filepath.Join(dir, fmt.Sprintf("map_%d.png", id))
				if err := imaging.Save(t.Image(), path); err != nil {
					return err
				}
				slog.Debug("exported map", "id", id, "path", path)
				written++
				return nil
			}
			if len(only) > 0 {
				for _, id := range only {
					if err := save(id); err != nil {
						return err
					}
				}
			} else {
				for id := range reg.Persisted() {
					if err := save(id); err != nil {
						return err
					}
				}
			}

			a.prefs.LastExportDir = dir
			a.dirty = true
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d map(s) to %s\n", written, dir)
			return nil
		},
	}
	return cmd
}
