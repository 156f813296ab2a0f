// Package corpus owns the note collection: name to content, display order,
// and node positions, kept consistent by every mutating operation.
package corpus

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/starford/linkbook/internal/apperr"
	"github.com/starford/linkbook/internal/layout"
	"github.com/starford/linkbook/internal/parser"
)

// HomeNote is the reserved note that always exists.
const HomeNote = "Home"

const untitledBase = "New Note"

// State is the persisted form of a Corpus.
type State struct {
	Notes     map[string]string       `json:"notes"`
	Order     []string                `json:"noteOrder"`
	Positions map[string]layout.Point `json:"positions"`
}

// Corpus is the single owned aggregate of notes, order and positions.
// It is not safe for concurrent use; callers serialize access.
type Corpus struct {
	notes     map[string]string
	order     []string
	positions map[string]layout.Point
	placer    *layout.Placer
}

// New returns a corpus holding only the Home note.
func New(placer *layout.Placer) *Corpus {
	if placer == nil {
		placer = layout.NewPlacer(nil)
	}
	c := &Corpus{
		notes:     make(map[string]string),
		positions: make(map[string]layout.Point),
		placer:    placer,
	}
	c.ensureHome()
	return c
}

// FromState rebuilds a corpus from persisted state, repairing anything
// inconsistent instead of failing.
func FromState(s State, placer *layout.Placer) *Corpus {
	c := New(placer)
	for name, content := range s.Notes {
		c.notes[name] = content
	}

	c.order = c.order[:0]
	seen := make(map[string]struct{}, len(s.Order))
	for _, name := range s.Order {
		if _, ok := c.notes[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		c.order = append(c.order, name)
	}
	var missing []string
	for name := range c.notes {
		if _, ok := seen[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	c.order = append(c.order, missing...)

	for name, p := range s.Positions {
		if _, ok := c.notes[name]; ok {
			c.positions[name] = p
		}
	}
	c.ensureHome()
	return c
}

func (c *Corpus) ensureHome() {
	if _, ok := c.notes[HomeNote]; !ok {
		c.notes[HomeNote] = parser.Stub(HomeNote)
	}
	if !slices.Contains(c.order, HomeNote) {
		c.order = append(c.order, HomeNote)
	}
}

// State returns a deep copy suitable for persistence.
func (c *Corpus) State() State {
	s := State{
		Notes:     make(map[string]string, len(c.notes)),
		Order:     slices.Clone(c.order),
		Positions: make(map[string]layout.Point, len(c.positions)),
	}
	for k, v := range c.notes {
		s.Notes[k] = v
	}
	for k, v := range c.positions {
		s.Positions[k] = v
	}
	return s
}

// Has reports whether a note with this exact name exists.
func (c *Corpus) Has(name string) bool {
	_, ok := c.notes[name]
	return ok
}

// Len returns the number of notes.
func (c *Corpus) Len() int { return len(c.notes) }

// Names returns note names in display order.
func (c *Corpus) Names() []string { return slices.Clone(c.order) }

// Content returns the text of a note.
func (c *Corpus) Content(name string) (string, bool) {
	s, ok := c.notes[name]
	return s, ok
}

// SetContent replaces the text of an existing note.
func (c *Corpus) SetContent(name, content string) error {
	if _, ok := c.notes[name]; !ok {
		return fmt.Errorf("corpus: set content %q: %w", name, apperr.ErrNotFound)
	}
	c.notes[name] = content
	return nil
}

// Position returns the stored coordinate of a note, if any.
func (c *Corpus) Position(name string) (layout.Point, bool) {
	p, ok := c.positions[name]
	return p, ok
}

// SetPosition records a user-chosen coordinate for an existing note.
func (c *Corpus) SetPosition(name string, p layout.Point) error {
	if _, ok := c.notes[name]; !ok {
		return fmt.Errorf("corpus: set position %q: %w", name, apperr.ErrNotFound)
	}
	c.positions[name] = p
	return nil
}

// Create adds a stub note named name. It refuses existing names and names
// that are blank after trimming.
func (c *Corpus) Create(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	return c.Materialize(name)
}

// Materialize adds a stub note for a link target. Only existing names are
// refused; link targets are kept verbatim.
func (c *Corpus) Materialize(name string) bool {
	if name == "" || c.Has(name) {
		return false
	}
	c.notes[name] = parser.Stub(name)
	if !slices.Contains(c.order, name) {
		c.order = append(c.order, name)
	}
	c.positions[name] = c.placer.FindFree(c.occupied())
	return true
}

// CreateUntitled creates "New Note", "New Note 1", ... using the first name
// not present in either the notes or the order.
func (c *Corpus) CreateUntitled() string {
	name := untitledBase
	for i := 1; c.Has(name) || slices.Contains(c.order, name); i++ {
		name = fmt.Sprintf("%s %d", untitledBase, i)
	}
	c.Materialize(name)
	return name
}

// Rename moves a note to a new name. The first heading is retitled, the
// position follows, and the order slot is replaced in place. Links in other
// notes are left untouched.
func (c *Corpus) Rename(oldName, newName string) bool {
	if newName == "" || newName == oldName || oldName == HomeNote {
		return false
	}
	content, ok := c.notes[oldName]
	if !ok || c.Has(newName) {
		return false
	}

	delete(c.notes, oldName)
	c.notes[newName] = parser.Retitle(content, newName)

	if p, ok := c.positions[oldName]; ok {
		delete(c.positions, oldName)
		c.positions[newName] = p
	}

	if i := slices.Index(c.order, oldName); i >= 0 {
		c.order[i] = newName
	} else {
		c.order = append(c.order, newName)
	}
	return true
}

// Delete removes a note with its order entry and position. It does not
// check whether other notes still link to it.
func (c *Corpus) Delete(name string) error {
	if name == HomeNote {
		return apperr.ErrReservedNote
	}
	if !c.Has(name) {
		return fmt.Errorf("corpus: delete %q: %w", name, apperr.ErrNotFound)
	}
	delete(c.notes, name)
	delete(c.positions, name)
	c.order = slices.DeleteFunc(c.order, func(n string) bool { return n == name })
	return nil
}

// Move relocates name to index in the display order, clamped to bounds.
func (c *Corpus) Move(name string, index int) bool {
	from := slices.Index(c.order, name)
	if from < 0 {
		return false
	}
	c.order = slices.Delete(c.order, from, from+1)
	index = max(0, min(index, len(c.order)))
	c.order = slices.Insert(c.order, index, name)
	return true
}

// Referenced reports whether any note links to name.
func (c *Corpus) Referenced(name string) bool {
	for _, content := range c.notes {
		if parser.References(content, name) {
			return true
		}
	}
	return false
}

// Referrers returns, in display order, the notes that link to name.
func (c *Corpus) Referrers(name string) []string {
	var out []string
	for _, n := range c.order {
		if parser.References(c.notes[n], name) {
			out = append(out, n)
		}
	}
	return out
}

// RewriteReferences replaces [[oldName]] with [[newName]] in every note and
// returns the names of the notes that changed.
func (c *Corpus) RewriteReferences(oldName, newName string) []string {
	var changed []string
	for _, n := range c.order {
		out, count := parser.ReplaceLinks(c.notes[n], oldName, newName)
		if count > 0 {
			c.notes[n] = out
			changed = append(changed, n)
		}
	}
	return changed
}

func (c *Corpus) occupied() []layout.Point {
	out := make([]layout.Point, 0, len(c.positions))
	for _, n := range c.order {
		if p, ok := c.positions[n]; ok {
			out = append(out, p)
		}
	}
	return out
}
