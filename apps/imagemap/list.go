package main

import (
	"fmt"
	"log/slog"

	"github.com/PhantomInTheWire/imagemap/pkg/registry"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <world>",
		Short: "Show the maps stored in a world",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w, err := openWorld(ctx, args[0])
			if err != nil {
				return err
			}
			defer w.Close()

			reg, err := registry.Load(ctx, w, registry.WithLogger(slog.Default()))
			if err != nil {
				return err
			}
			var ids []int64
			for id := range reg.Persisted() {
				ids = append(ids, id)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "World: %s (%s)\n", w.Name(), w.Format())
			fmt.Fprintf(out, "Maps:  %d\n", len(ids))
			fmt.Fprintf(out, "IDs:   %s\n", formatIDs(ids))
			if next := reg.Allocate(1); len(next) == 1 {
				fmt.Fprintf(out, "Next:  %d\n", next[0])
			}
			return nil
		},
	}
}
