// Package notebook is the application surface over the note corpus. It keeps
// the active note and editing buffer, runs a synchronization pass for every
// operation, and persists the result.
package notebook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/linkbook/internal/apperr"
	"github.com/starford/linkbook/internal/corpus"
	"github.com/starford/linkbook/internal/graph"
	"github.com/starford/linkbook/internal/kvstore"
	"github.com/starford/linkbook/internal/layout"
	"github.com/starford/linkbook/internal/linksync"
	"github.com/starford/linkbook/internal/mirror"
	"github.com/starford/linkbook/internal/parser"
)

// Event kinds delivered to listeners.
const (
	EventNoteCreated   = "note.created"
	EventNoteRenamed   = "note.renamed"
	EventNoteDeleted   = "note.deleted"
	EventNoteUpdated   = "note.updated"
	EventNoteOpened    = "note.opened"
	EventLayoutUpdated = "layout.updated"
)

// Event describes one change made by an operation.
type Event struct {
	Kind    string `json:"kind"`
	Note    string `json:"note"`
	OldName string `json:"old_name,omitempty"`
}

// Snapshot is a consistent view of the notebook after the last pass.
type Snapshot struct {
	Order  []string     `json:"order"`
	Active string       `json:"active"`
	Buffer string       `json:"buffer"`
	Graph  *graph.Graph `json:"graph"`
}

// NoteView is one note with its outgoing and incoming links.
type NoteView struct {
	Name      string        `json:"name"`
	Content   string        `json:"content"`
	Active    bool          `json:"active"`
	Position  *layout.Point `json:"position,omitempty"`
	Links     []string      `json:"links"`
	Backlinks []string      `json:"backlinks"`
}

// errNoop ends an operation that changed nothing without running a pass.
var errNoop = errors.New("notebook: no change")

// Notebook serializes all operations; it is safe for concurrent use.
// Listeners receive events in the order the operations ran. A listener may
// read the Notebook but must not run operations on it.
type Notebook struct {
	mu sync.Mutex

	// Each pass takes a ticket under mu; batches are delivered in ticket order.
	deliverMu   sync.Mutex
	deliverCond *sync.Cond
	issued      uint64
	delivered   uint64

	store     kvstore.Store
	corpus    *corpus.Corpus
	syncer    *linksync.Synchronizer
	projector *graph.Projector
	graph     *graph.Graph
	active    string
	buffer    string

	logger          *slog.Logger
	placer          *layout.Placer
	strategy        linksync.RenameStrategy
	rewriteOnRename bool
	snapGrid        float64
	listeners       []func(Event)
	mirror          *mirror.Mirror
	readOnly        bool
}

// pass collects the events of one operation.
type pass struct {
	events []Event
}

func (p *pass) emit(kind, note string) {
	p.events = append(p.events, Event{Kind: kind, Note: note})
}

// New loads the notebook from store and opens Home.
func New(ctx context.Context, store kvstore.Store, opts ...Option) (*Notebook, error) {
	n := &Notebook{
		store:     store,
		projector: graph.NewProjector(),
	}
	n.deliverCond = sync.NewCond(&n.deliverMu)
	for _, opt := range opts {
		opt(n)
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	n.syncer = linksync.New(n.strategy)

	c, err := n.load(ctx)
	if err != nil {
		return nil, err
	}
	n.corpus = c

	err = n.run(ctx, func(p *pass) error {
		n.activate(p, corpus.HomeNote)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

// run executes fn under the lock, then projects the graph and persists.
// Events are delivered after the lock is released.
func (n *Notebook) run(ctx context.Context, fn func(p *pass) error) error {
	p := &pass{}

	n.mu.Lock()
	err := fn(p)
	if err == nil {
		n.finish(ctx, p)
	}
	ticket := n.issued
	n.issued++
	n.mu.Unlock()

	n.deliver(ticket, p.events)
	if errors.Is(err, errNoop) {
		return nil
	}
	return err
}

// deliver waits for every earlier pass to be delivered, then hands events
// to the listeners.
func (n *Notebook) deliver(ticket uint64, events []Event) {
	n.deliverMu.Lock()
	for n.delivered != ticket {
		n.deliverCond.Wait()
	}
	n.deliverMu.Unlock()

	for _, ev := range events {
		for _, l := range n.listeners {
			l(ev)
		}
	}

	n.deliverMu.Lock()
	n.delivered++
	n.deliverCond.Broadcast()
	n.deliverMu.Unlock()
}

func (n *Notebook) finish(ctx context.Context, p *pass) {
	g, healed := n.projector.Project(n.corpus, n.active)
	for _, name := range healed {
		p.emit(EventNoteCreated, name)
	}
	n.graph = g
	n.persist(ctx)
}

// activate makes name the active note and loads it into the buffer.
func (n *Notebook) activate(p *pass, name string) {
	n.active = name
	n.buffer, _ = n.corpus.Content(name)
	n.syncer.Prime(parser.Links(n.buffer))
	p.emit(EventNoteOpened, name)
}

// OpenNote makes name the active note, creating it when it does not exist.
func (n *Notebook) OpenNote(ctx context.Context, name string) error {
	if name == "" {
		return apperr.ErrInvalidName
	}
	return n.run(ctx, func(p *pass) error {
		if n.corpus.Materialize(name) {
			p.emit(EventNoteCreated, name)
		}
		n.activate(p, name)
		return nil
	})
}

// CreateNote creates a note and opens it. An empty name picks the next free
// "New Note" name. ok is false when the name is taken or blank.
func (n *Notebook) CreateNote(ctx context.Context, name string) (created string, ok bool) {
	created, ok, _ = n.CreateNoteWithContent(ctx, name, "")
	return created, ok
}

// CreateNoteWithContent creates a note, opens it and, when content is not
// empty, stores content as if typed into the new note. All of it happens in
// one pass, so no other operation can change the active note in between.
func (n *Notebook) CreateNoteWithContent(ctx context.Context, name, content string) (created string, ok bool, res linksync.Result) {
	_ = n.run(ctx, func(p *pass) error {
		if name == "" {
			created = n.corpus.CreateUntitled()
		} else if n.corpus.Create(name) {
			created = name
		} else {
			return errNoop
		}
		ok = true
		p.emit(EventNoteCreated, created)
		n.activate(p, created)
		if content != "" {
			res = n.edit(p, content)
		}
		return nil
	})
	return created, ok, res
}

// RenameNote renames a note. ok is false when the new name is empty or
// taken, the old note is missing, or the old note is Home.
func (n *Notebook) RenameNote(ctx context.Context, oldName, newName string) (ok bool) {
	_ = n.run(ctx, func(p *pass) error {
		if !n.corpus.Rename(oldName, newName) {
			return errNoop
		}
		ok = true
		p.events = append(p.events, Event{Kind: EventNoteRenamed, Note: newName, OldName: oldName})

		if n.rewriteOnRename {
			for _, changed := range n.corpus.RewriteReferences(oldName, newName) {
				p.emit(EventNoteUpdated, changed)
			}
		}
		if n.active == oldName {
			n.active = newName
		}
		n.buffer, _ = n.corpus.Content(n.active)
		n.syncer.Prime(parser.Links(n.buffer))
		return nil
	})
	return ok
}

// DeleteNote removes a note. Home cannot be deleted. Deleting the active
// note opens Home.
func (n *Notebook) DeleteNote(ctx context.Context, name string) error {
	return n.run(ctx, func(p *pass) error {
		if err := n.corpus.Delete(name); err != nil {
			return err
		}
		p.emit(EventNoteDeleted, name)
		if n.active == name {
			n.activate(p, corpus.HomeNote)
		}
		return nil
	})
}

// EditActiveNoteContent stores text as the content of the active note and
// reconciles its links.
func (n *Notebook) EditActiveNoteContent(ctx context.Context, text string) (res linksync.Result) {
	_ = n.run(ctx, func(p *pass) error {
		res = n.edit(p, text)
		return nil
	})
	return res
}

func (n *Notebook) edit(p *pass, text string) linksync.Result {
	res := n.syncer.Sync(n.corpus, n.active, text)
	n.buffer = text
	for _, r := range res.Renamed {
		p.events = append(p.events, Event{Kind: EventNoteRenamed, Note: r.To, OldName: r.From})
	}
	for _, name := range res.Created {
		p.emit(EventNoteCreated, name)
	}
	for _, name := range res.Deleted {
		p.emit(EventNoteDeleted, name)
	}
	p.emit(EventNoteUpdated, n.active)
	return res
}

// ApplyExternalEdit stores content changed outside the editor. Edits of the
// active note go through the synchronizer; other notes are replaced as is,
// and created when missing.
func (n *Notebook) ApplyExternalEdit(ctx context.Context, name, text string) error {
	if name == "" {
		return apperr.ErrInvalidName
	}
	return n.run(ctx, func(p *pass) error {
		if cur, ok := n.corpus.Content(name); ok && cur == text {
			return errNoop
		}
		if name == n.active {
			n.edit(p, text)
			return nil
		}
		if n.corpus.Materialize(name) {
			p.emit(EventNoteCreated, name)
		}
		if err := n.corpus.SetContent(name, text); err != nil {
			return err
		}
		p.emit(EventNoteUpdated, name)
		return nil
	})
}

// MoveNode records a dragged node position, snapped to the grid when
// snapping is enabled, and returns the stored position.
func (n *Notebook) MoveNode(ctx context.Context, name string, pos layout.Point) (layout.Point, error) {
	if n.snapGrid > 0 {
		pos = layout.Snap(pos, n.snapGrid)
	}
	err := n.run(ctx, func(p *pass) error {
		if err := n.corpus.SetPosition(name, pos); err != nil {
			return err
		}
		p.emit(EventLayoutUpdated, name)
		return nil
	})
	return pos, err
}

// ReorderNote moves name to index in the display order.
func (n *Notebook) ReorderNote(ctx context.Context, name string, index int) error {
	return n.run(ctx, func(p *pass) error {
		if !n.corpus.Move(name, index) {
			return fmt.Errorf("notebook: reorder %q: %w", name, apperr.ErrNotFound)
		}
		p.emit(EventLayoutUpdated, name)
		return nil
	})
}

// Snapshot returns the state after the last pass.
func (n *Notebook) Snapshot() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Snapshot{
		Order:  n.corpus.Names(),
		Active: n.active,
		Buffer: n.buffer,
		Graph:  n.graph,
	}
}

// Note returns one note with its links and backlinks.
func (n *Notebook) Note(name string) (NoteView, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	content, ok := n.corpus.Content(name)
	if !ok {
		return NoteView{}, fmt.Errorf("notebook: note %q: %w", name, apperr.ErrNotFound)
	}
	v := NoteView{
		Name:      name,
		Content:   content,
		Active:    name == n.active,
		Links:     parser.Links(content),
		Backlinks: n.corpus.Referrers(name),
	}
	if pos, ok := n.corpus.Position(name); ok {
		v.Position = &pos
	}
	if v.Links == nil {
		v.Links = []string{}
	}
	if v.Backlinks == nil {
		v.Backlinks = []string{}
	}
	return v, nil
}

// Notes returns the content of every note keyed by name.
func (n *Notebook) Notes() map[string]string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.corpus.State().Notes
}

// Has reports whether a note exists.
func (n *Notebook) Has(name string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.corpus.Has(name)
}

// Order returns note names in display order.
func (n *Notebook) Order() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.corpus.Names()
}
