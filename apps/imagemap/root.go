package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/PhantomInTheWire/imagemap/pkg/prefs"
	"github.com/PhantomInTheWire/imagemap/pkg/world"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// app carries state shared by every subcommand.
type app struct {
	prefsPath string
	verbose   bool
	prefs     prefs.Preferences
	dirty     bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "imagemap",
		Short: "Turn images into map items and import them into a world",
		Long: `Imagemap resizes images, splits them into a grid of 128x128 maps and
stores those maps in a world under fresh, unused map IDs.

Worlds can be Java Edition save folders, imagemap SQLite folders, or
S3/MinIO buckets given as s3://bucket/prefix.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

			if a.prefsPath == "" {
				a.prefsPath = getEnv("IMAGEMAP_PREFS", "")
			}
			if a.prefsPath == "" {
				p, err := prefs.DefaultPath()
				if err != nil {
					return err
				}
				a.prefsPath = p
			}
			p, err := prefs.Load(a.prefsPath)
			if err != nil {
				slog.Warn("ignoring preferences", "path", a.prefsPath, "err", err)
			}
			a.prefs = p
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !a.dirty {
				return nil
			}
			if err := prefs.Save(a.prefsPath, a.prefs); err != nil {
				return fmt.Errorf("saving preferences: %w", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.prefsPath, "prefs", "", "Preferences file (default $IMAGEMAP_PREFS or the user config dir)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newInitCmd(a))
	cmd.AddCommand(newListCmd(a))
	cmd.AddCommand(newImportCmd(a))
	cmd.AddCommand(newDeleteCmd(a))
	cmd.AddCommand(newExportCmd(a))

	return cmd
}

func openWorld(ctx context.Context, location string) (world.World, error) {
	if location == "" {
		return nil, fmt.Errorf("no world given")
	}
	if _, err := os.Stat(location); err != nil && !isBucket(location) {
		return nil, err
	}
	return world.Open(ctx, location,
		world.WithLogger(slog.Default()),
		world.WithS3Config(s3ConfigFromEnv()),
	)
}

func isBucket(location string) bool {
	return strings.HasPrefix(location, "s3://")
}
