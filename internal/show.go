package internal

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/starford/linkbook/internal/graph"
	"github.com/starford/linkbook/internal/notebook"
)

var (
	brand  = color.New(color.FgHiGreen, color.Bold)
	subtle = color.New(color.FgHiBlack)
	info   = color.New(color.FgCyan)
	warn   = color.New(color.FgYellow)
)

// Show prints the note order and link graph of the configured store. It
// reads the store only; stubs healed for display are not saved.
func Show(ctx context.Context, w io.Writer, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := app.start(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	renderSnapshot(w, rt.nb.Snapshot())
	return nil
}

func renderSnapshot(w io.Writer, snap notebook.Snapshot) {
	g := snap.Graph
	if g == nil {
		g = &graph.Graph{}
	}
	brand.Fprintf(w, "linkbook")
	subtle.Fprintf(w, ": %d notes, %d links\n\n", len(g.Nodes), len(g.Edges))

	width := 0
	for _, n := range g.Nodes {
		width = max(width, len(n.Label))
	}

	for _, n := range g.Nodes {
		marker := "  "
		if n.Active {
			marker = info.Sprint("* ")
		}
		pos := subtle.Sprint("(unplaced)")
		if n.Position != nil {
			pos = subtle.Sprintf("(%g, %g)", n.Position.X, n.Position.Y)
		}
		fmt.Fprintf(w, "%s%-*s  %s\n", marker, width, n.Label, pos)

		out := g.Neighbors(n.ID)
		if len(out) > 0 {
			fmt.Fprintf(w, "    %s %s\n", info.Sprint("→"), strings.Join(out, ", "))
		}
		if back := g.Backlinks(n.ID); len(back) == 0 && n.ID != snap.Active {
			fmt.Fprintf(w, "    %s\n", warn.Sprint("no backlinks"))
		}
	}
}
