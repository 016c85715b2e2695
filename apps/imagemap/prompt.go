package main

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/PhantomInTheWire/imagemap/pkg/importer"
	"github.com/PhantomInTheWire/imagemap/pkg/registry"
	"github.com/PhantomInTheWire/imagemap/pkg/resample"
	"github.com/PhantomInTheWire/imagemap/pkg/split"
)

const promptHelp = `  c [CxR]   confirm this image (optionally with a new grid)
  a [CxR]   confirm this and every remaining image
  r         rotate a quarter turn clockwise
  i MODE    interpolation: auto, nearest or bicubic
  s         skip this image
  x         skip this and every remaining image
`

// prompter drives an import session from line-based terminal input.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

// readLine returns the next trimmed input line; ok is false at end of input.
func (p *prompter) readLine(prompt string) (line string, ok bool) {
	fmt.Fprint(p.out, prompt)
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

func (p *prompter) run(sess *importer.Session, grid split.Grid, applyAll bool) error {
	for sess.State() == importer.Editing {
		b := sess.Preview().Bounds()
		fmt.Fprintf(p.out, "[%d/%d] %s  %dx%d  rotation %d°  %s  grid %v\n",
			sess.Index()+1, sess.Len(), filepath.Base(sess.Path()), b.Dx(), b.Dy(),
			sess.Rotation().Degrees(), sess.ResolvedInterpolation(), grid)

		line, ok := p.readLine("> ")
		if !ok {
			return sess.Cancel(true)
		}
		verb, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		verb = strings.ToLower(verb)
		switch verb {
		case "", "c", "a":
			if arg != "" {
				g, err := split.ParseGrid(arg)
				if err == nil {
					err = checkGrid(g)
				}
				if err != nil {
					fmt.Fprintln(p.out, err)
					continue
				}
				grid = g
			}
			all := applyAll
			if verb == "a" {
				all = true
			}
			if err := sess.Confirm(grid, all); err != nil {
				return err
			}
		case "r":
			if _, err := sess.Rotate(); err != nil {
				return err
			}
		case "i":
			mode, err := resample.ParseInterpolation(arg)
			if err != nil {
				fmt.Fprintln(p.out, err)
				continue
			}
			sess.SetInterpolation(mode)
		case "s":
			if err := sess.Cancel(false); err != nil {
				return err
			}
		case "x":
			if err := sess.Cancel(true); err != nil {
				return err
			}
		default:
			fmt.Fprint(p.out, promptHelp)
		}
	}
	return nil
}

// review lets the user drop staged maps before they are committed.
func (p *prompter) review(reg *registry.Registry) error {
	for reg.StagedLen() > 0 {
		var ids []int64
		for id := range reg.Staged() {
			ids = append(ids, id)
		}
		fmt.Fprintf(p.out, "Staged: %s\n", formatIDs(ids))

		line, ok := p.readLine("Remove IDs (enter to save, q to discard all): ")
		if !ok || line == "" {
			return nil
		}
		if strings.EqualFold(line, "q") {
			for _, id := range ids {
				reg.Unstage(id)
			}
			return nil
		}
		remove, err := parseIDs([]string{line})
		if err != nil {
			fmt.Fprintln(p.out, err)
			continue
		}
		for _, id := range remove {
			reg.Unstage(id)
		}
	}
	return nil
}
