// Package graph holds the directed link networks and the unit-weight
// shortest-path oracle used on both the service and the demand side.
package graph

import (
	"github.com/kilianp07/drtmdp/core/model"
)

// Graph is an immutable directed network of links. Nodes are implicit in the
// link endpoints. Links keep their input order so indices are stable.
type Graph struct {
	links []model.Link
	index map[int]int
	succ  [][]int
}

// New validates the links and builds the successor table.
func New(links []model.Link) (*Graph, error) {
	g := &Graph{
		links: append([]model.Link(nil), links...),
		index: make(map[int]int, len(links)),
		succ:  make([][]int, len(links)),
	}
	for i, l := range g.links {
		if _, dup := g.index[l.ID]; dup {
			return nil, &model.MalformedInputError{Kind: "link", ID: l.ID, Reason: "duplicate id"}
		}
		g.index[l.ID] = i
	}
	byOrigin := make(map[int][]int)
	for i, l := range g.links {
		byOrigin[l.Origin] = append(byOrigin[l.Origin], i)
	}
	for i, l := range g.links {
		g.succ[i] = byOrigin[l.Destination]
	}
	return g, nil
}

// Len returns the number of links.
func (g *Graph) Len() int { return len(g.links) }

// Links returns the links in input order. The slice must not be modified.
func (g *Graph) Links() []model.Link { return g.links }

// Link returns the link at index i.
func (g *Graph) Link(i int) model.Link { return g.links[i] }

// Index resolves a link id to its index.
func (g *Graph) Index(id int) (int, error) {
	i, ok := g.index[id]
	if !ok {
		return 0, &model.MalformedInputError{Kind: "link", ID: id, Reason: "unknown id"}
	}
	return i, nil
}

// Successors returns the indices of links whose origin is the destination
// of link i, in input order.
func (g *Graph) Successors(i int) []int { return g.succ[i] }
