// Package linksync reconciles the link set of the active note against the
// corpus on every edit: creating, renaming and deleting notes as links
// appear, change and disappear.
package linksync

import (
	"slices"

	"github.com/starford/linkbook/internal/corpus"
	"github.com/starford/linkbook/internal/parser"
)

// Rename records a note renamed by the heuristic.
type Rename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Result lists the identity changes made by one pass.
type Result struct {
	Created []string `json:"created,omitempty"`
	Renamed []Rename `json:"renamed,omitempty"`
	Deleted []string `json:"deleted,omitempty"`
}

// Empty reports whether the pass changed no note identities.
func (r Result) Empty() bool {
	return len(r.Created) == 0 && len(r.Renamed) == 0 && len(r.Deleted) == 0
}

// Synchronizer holds the link set of the active note as of its last pass.
type Synchronizer struct {
	previous []string
	strategy RenameStrategy
}

// New returns a Synchronizer. A nil strategy means PrefixRename.
func New(strategy RenameStrategy) *Synchronizer {
	if strategy == nil {
		strategy = PrefixRename{}
	}
	return &Synchronizer{strategy: strategy}
}

// Prime replaces the remembered link set, used when another note becomes
// active.
func (s *Synchronizer) Prime(links []string) {
	s.previous = slices.Clone(links)
}

// Previous returns the remembered link set.
func (s *Synchronizer) Previous() []string {
	return slices.Clone(s.previous)
}

// Sync stores content as the text of the active note and reconciles its
// links against the corpus.
func (s *Synchronizer) Sync(c *corpus.Corpus, active, content string) Result {
	current := parser.Links(content)
	if c.Has(active) {
		_ = c.SetContent(active, content)
	}

	inCurrent := make(map[string]struct{}, len(current))
	for _, l := range current {
		inCurrent[l] = struct{}{}
	}

	var res Result
	consumed := make(map[string]struct{})
	handled := make(map[string]struct{}, len(current))
	for _, link := range current {
		if _, ok := handled[link]; ok {
			continue
		}
		handled[link] = struct{}{}
		if c.Has(link) {
			continue
		}

		pool := s.pool(c, active, inCurrent, consumed)
		if from, ok := s.strategy.Candidate(link, pool); ok && c.Rename(from, link) {
			consumed[from] = struct{}{}
			res.Renamed = append(res.Renamed, Rename{From: from, To: link})
			continue
		}
		if c.Materialize(link) {
			res.Created = append(res.Created, link)
		}
	}

	checked := make(map[string]struct{}, len(s.previous))
	for _, name := range s.previous {
		if _, ok := checked[name]; ok {
			continue
		}
		checked[name] = struct{}{}
		if _, still := inCurrent[name]; still {
			continue
		}
		if name == corpus.HomeNote || name == active || !c.Has(name) {
			continue
		}
		if c.Referenced(name) {
			continue
		}
		if err := c.Delete(name); err == nil {
			res.Deleted = append(res.Deleted, name)
		}
	}

	s.previous = current
	return res
}

// pool lists the notes eligible as rename sources for this pass.
func (s *Synchronizer) pool(c *corpus.Corpus, active string, inCurrent, consumed map[string]struct{}) []string {
	names := c.Names()
	out := names[:0]
	for _, n := range names {
		if n == corpus.HomeNote || n == active {
			continue
		}
		if _, ok := inCurrent[n]; ok {
			continue
		}
		if _, ok := consumed[n]; ok {
			continue
		}
		out = append(out, n)
	}
	return out
}
