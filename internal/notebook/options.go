package notebook

import (
	"log/slog"

	"github.com/starford/linkbook/internal/layout"
	"github.com/starford/linkbook/internal/linksync"
	"github.com/starford/linkbook/internal/mirror"
)

// Option configures a Notebook.
type Option func(*Notebook)

// WithLogger sets the logger used for persistence and mirror failures.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notebook) {
		n.logger = l
	}
}

// WithPlacer sets the placer used for new nodes.
func WithPlacer(p *layout.Placer) Option {
	return func(n *Notebook) {
		n.placer = p
	}
}

// WithRenameStrategy sets how unknown links are matched to existing notes.
func WithRenameStrategy(s linksync.RenameStrategy) Option {
	return func(n *Notebook) {
		n.strategy = s
	}
}

// WithRewriteOnRename makes explicit renames rewrite [[old]] links in every
// other note.
func WithRewriteOnRename(enabled bool) Option {
	return func(n *Notebook) {
		n.rewriteOnRename = enabled
	}
}

// WithSnapGrid snaps moved nodes to a grid of the given size. Zero disables
// snapping.
func WithSnapGrid(size float64) Option {
	return func(n *Notebook) {
		n.snapGrid = size
	}
}

// WithListener registers a function called after every operation, once per
// event, outside the notebook lock. Events arrive in operation order.
func WithListener(fn func(Event)) Option {
	return func(n *Notebook) {
		if fn != nil {
			n.listeners = append(n.listeners, fn)
		}
	}
}

// WithMirror writes every note to a Markdown mirror after each pass.
func WithMirror(m *mirror.Mirror) Option {
	return func(n *Notebook) {
		n.mirror = m
	}
}

// WithReadOnly keeps every change in memory: nothing is written to the
// store or the mirror.
func WithReadOnly() Option {
	return func(n *Notebook) {
		n.readOnly = true
	}
}
