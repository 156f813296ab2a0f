// Package graph derives the node/edge view of the corpus for visualization.
package graph

import (
	"github.com/starford/linkbook/internal/corpus"
	"github.com/starford/linkbook/internal/layout"
	"github.com/starford/linkbook/internal/parser"
)

// Node is one note in the graph.
type Node struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Active   bool          `json:"active"`
	Position *layout.Point `json:"position,omitempty"`
}

// Edge is one link occurrence from a note to its target.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is a derived snapshot; it is never stored.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Projector scans the whole corpus and heals missing link targets.
type Projector struct{}

// NewProjector returns a Projector.
func NewProjector() *Projector {
	return &Projector{}
}

// Project materializes a stub for every link target without a note, then
// returns the graph and the names of the stubs it created. Edges keep
// duplicates: a note linking the same target twice yields two edges.
func (p *Projector) Project(c *corpus.Corpus, active string) (*Graph, []string) {
	var healed []string
	var edges []Edge
	for _, name := range c.Names() {
		text, _ := c.Content(name)
		for _, target := range parser.Links(text) {
			if c.Materialize(target) {
				healed = append(healed, target)
			}
			edges = append(edges, Edge{From: name, To: target})
		}
	}

	names := c.Names()
	nodes := make([]Node, 0, len(names))
	for _, name := range names {
		n := Node{ID: name, Label: name, Active: name == active}
		if pos, ok := c.Position(name); ok {
			n.Position = &pos
		}
		nodes = append(nodes, n)
	}

	if edges == nil {
		edges = []Edge{}
	}
	return &Graph{Nodes: nodes, Edges: edges}, healed
}

// Neighbors returns the distinct targets id links to, in edge order.
func (g *Graph) Neighbors(id string) []string {
	return g.collect(func(e Edge) (string, bool) { return e.To, e.From == id })
}

// Backlinks returns the distinct notes linking to id, in edge order.
func (g *Graph) Backlinks(id string) []string {
	return g.collect(func(e Edge) (string, bool) { return e.From, e.To == id })
}

func (g *Graph) collect(pick func(Edge) (string, bool)) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, e := range g.Edges {
		v, ok := pick(e)
		if !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}
