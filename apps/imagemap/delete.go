package main

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PhantomInTheWire/imagemap/pkg/registry"
	"github.com/spf13/cobra"
)

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <world> <id>...",
		Short: "Permanently remove maps from a world",
		Long: `Deletes maps from a world. Every copy of a deleted map in the world
becomes blank, so this cannot be undone.`,
		Example: `  imagemap delete ./saves/MyWorld 12
  imagemap delete ./saves/MyWorld 3-7,9 --yes`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
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

			if !yes {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleting maps %s will remove all copies of them from %s permanently.\nDelete? [y/N] ",
					formatIDs(ids), w.Name())
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if ans := strings.ToLower(strings.TrimSpace(answer)); ans != "y" && ans != "yes" {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing deleted.")
					return nil
				}
			}

			var errs []error
			deleted := 0
			for _, id := range ids {
				if err := reg.DeletePersisted(ctx, id); err != nil {
					errs = append(errs, err)
					continue
				}
				deleted++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d map(s).\n", deleted)
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}
