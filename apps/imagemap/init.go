package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/PhantomInTheWire/imagemap/pkg/world"
	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	var name, format string

	cmd := &cobra.Command{
		Use:   "init <dir>",
		Short: "Create an empty world",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if name == "" {
				name = filepath.Base(dir)
			}
			var w world.World
			var err error
			switch format {
			case "sqlite":
				w, err = world.CreateSQLite(dir, name, slog.Default())
			case "java":
				w, err = world.CreateJava(dir, name)
			default:
				return fmt.Errorf("unknown format %q (want sqlite or java)", format)
			}
			if err != nil {
				return err
			}
			defer w.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s world %q in %s\n", w.Format(), w.Name(), dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "World name (default: directory name)")
	cmd.Flags().StringVar(&format, "format", "sqlite", "World format: sqlite or java")

	return cmd
}
