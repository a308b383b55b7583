package topicgraph

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"git.home.luguber.info/inful/doctopics/internal/topic"
)

var (
	// ErrSelfLoop is returned by AddEdge when source and target are the same topic.
	ErrSelfLoop = errors.New("topic graph: edge would curate a topic under itself")

	// ErrUnknownNode is returned when an operation names a topic that is not in the graph.
	ErrUnknownNode = errors.New("topic graph: unknown node")
)

// CycleError reports a curation cycle reachable from a traversal start.
// Traversals panic with a *CycleError since a cycle makes the rendered
// hierarchy undefined.
type CycleError struct {
	Cycle []topic.Reference
}

func (e *CycleError) Error() string {
	paths := make([]string, 0, len(e.Cycle)+1)
	for _, r := range e.Cycle {
		paths = append(paths, r.Path())
	}
	if len(e.Cycle) > 0 {
		paths = append(paths, e.Cycle[0].Path())
	}
	return "topic graph: curation cycle " + strings.Join(paths, " -> ")
}

// Node is a topic in the graph. Nodes are values; changing a node means
// replacing it with ReplaceNode.
type Node struct {
	Reference topic.Reference
	Kind      topic.Kind
	Location  topic.ContentLocation
	Title     string

	// IsResolvable is false for topics that exist in the hierarchy but can't
	// be the target of a link.
	IsResolvable bool
	// IsVirtual marks synthesized topics that have no page of their own.
	IsVirtual bool
	// IsEmptyExtension marks an extension topic whose members were all curated elsewhere.
	IsEmptyExtension bool
}

// Graph is a directed graph of topics.
type Graph struct {
	ids     map[topic.Reference]int
	nodes   []Node
	live    []bool
	edges   [][]int
	reverse [][]int
	count   int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{ids: make(map[topic.Reference]int)}
}

// key drops the language variant; all variants of a topic share one node.
func key(ref topic.Reference) topic.Reference {
	return ref.WithLanguage("")
}

func (g *Graph) index(ref topic.Reference) (int, bool) {
	i, ok := g.ids[key(ref)]
	return i, ok
}

func (g *Graph) intern(n Node) int {
	if i, ok := g.index(n.Reference); ok {
		return i
	}
	i := len(g.nodes)
	g.ids[key(n.Reference)] = i
	g.nodes = append(g.nodes, n)
	g.live = append(g.live, true)
	g.edges = append(g.edges, nil)
	g.reverse = append(g.reverse, nil)
	g.count++
	return i
}

// AddNode inserts n. It reports false and keeps the existing node when a node
// with the same reference is already present.
func (g *Graph) AddNode(n Node) bool {
	if _, ok := g.index(n.Reference); ok {
		return false
	}
	g.intern(n)
	return true
}

// AddEdge adds an edge from source to target, inserting either node if it is
// missing. Adding an existing edge is a no-op.
func (g *Graph) AddEdge(source, target Node) error {
	if key(source.Reference) == key(target.Reference) {
		return fmt.Errorf("%w: %s", ErrSelfLoop, source.Reference.Path())
	}
	s := g.intern(source)
	t := g.intern(target)
	g.link(s, t)
	return nil
}

// Link adds an edge between two existing nodes.
func (g *Graph) Link(source, target topic.Reference) error {
	s, ok := g.index(source)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, source.Path())
	}
	t, ok := g.index(target)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, target.Path())
	}
	if s == t {
		return fmt.Errorf("%w: %s", ErrSelfLoop, source.Path())
	}
	g.link(s, t)
	return nil
}

func (g *Graph) link(s, t int) {
	if slices.Contains(g.edges[s], t) {
		return
	}
	g.edges[s] = append(g.edges[s], t)
	g.reverse[t] = append(g.reverse[t], s)
}

func (g *Graph) unlink(s, t int) {
	g.edges[s] = slices.DeleteFunc(g.edges[s], func(i int) bool { return i == t })
	g.reverse[t] = slices.DeleteFunc(g.reverse[t], func(i int) bool { return i == s })
}

// HasEdge reports whether source curates target.
func (g *Graph) HasEdge(source, target topic.Reference) bool {
	s, ok := g.index(source)
	if !ok {
		return false
	}
	t, ok := g.index(target)
	if !ok {
		return false
	}
	return slices.Contains(g.edges[s], t)
}

// RemoveEdge removes the edge from source to target if present.
func (g *Graph) RemoveEdge(source, target topic.Reference) {
	s, ok := g.index(source)
	if !ok {
		return
	}
	t, ok := g.index(target)
	if !ok {
		return
	}
	g.unlink(s, t)
}

// RemoveEdgesFrom removes all outgoing edges of ref.
func (g *Graph) RemoveEdgesFrom(ref topic.Reference) {
	s, ok := g.index(ref)
	if !ok {
		return
	}
	for _, t := range slices.Clone(g.edges[s]) {
		g.unlink(s, t)
	}
}

// RemoveEdgesTo removes all incoming edges of ref.
func (g *Graph) RemoveEdgesTo(ref topic.Reference) {
	t, ok := g.index(ref)
	if !ok {
		return
	}
	for _, s := range slices.Clone(g.reverse[t]) {
		g.unlink(s, t)
	}
}

// ReplaceNode swaps old for replacement. The replacement takes over every
// parent edge and child edge of old. When the references differ, old is
// removed from the graph.
func (g *Graph) ReplaceNode(old topic.Reference, replacement Node) error {
	o, ok := g.index(old)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, old.Path())
	}
	if key(old) == key(replacement.Reference) {
		g.nodes[o] = replacement
		return nil
	}

	parents := slices.Clone(g.reverse[o])
	children := slices.Clone(g.edges[o])
	for _, p := range parents {
		g.unlink(p, o)
	}
	for _, c := range children {
		g.unlink(o, c)
	}
	g.live[o] = false
	delete(g.ids, key(old))
	g.count--

	n := g.intern(replacement)
	for _, p := range parents {
		if p != n {
			g.link(p, n)
		}
	}
	for _, c := range children {
		if c != n {
			g.link(n, c)
		}
	}
	return nil
}

// Node returns the node for ref.
func (g *Graph) Node(ref topic.Reference) (Node, bool) {
	i, ok := g.index(ref)
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Children returns the topics curated by ref in insertion order.
func (g *Graph) Children(ref topic.Reference) []topic.Reference {
	i, ok := g.index(ref)
	if !ok {
		return nil
	}
	return g.refs(g.edges[i])
}

// Parents returns the topics curating ref in insertion order.
func (g *Graph) Parents(ref topic.Reference) []topic.Reference {
	i, ok := g.index(ref)
	if !ok {
		return nil
	}
	return g.refs(g.reverse[i])
}

func (g *Graph) refs(idx []int) []topic.Reference {
	if len(idx) == 0 {
		return nil
	}
	out := make([]topic.Reference, len(idx))
	for j, i := range idx {
		out[j] = g.nodes[i].Reference
	}
	return out
}

// References returns every node reference sorted by path.
func (g *Graph) References() []topic.Reference {
	out := make([]topic.Reference, 0, g.count)
	for i, n := range g.nodes {
		if g.live[i] {
			out = append(out, n.Reference)
		}
	}
	slices.SortFunc(out, topic.Compare)
	return out
}

// Roots returns the references of nodes without parents, sorted by path.
func (g *Graph) Roots() []topic.Reference {
	var out []topic.Reference
	for i, n := range g.nodes {
		if g.live[i] && len(g.reverse[i]) == 0 {
			out = append(out, n.Reference)
		}
	}
	slices.SortFunc(out, topic.Compare)
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return g.count }

// IsLinkable reports whether a resolvable node exists for the page of ref.
func (g *Graph) IsLinkable(ref topic.Reference) bool {
	n, ok := g.Node(ref.WithoutFragment())
	return ok && n.IsResolvable
}
