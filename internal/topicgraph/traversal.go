package topicgraph

import (
	"iter"
	"slices"

	"git.home.luguber.info/inful/doctopics/internal/topic"
)

const (
	white = iota
	gray
	black
)

// DepthFirstSearch returns a lazy pre-order traversal starting at from.
// Every reachable node is yielded at most once and children are visited in
// insertion order. The sequence can be iterated any number of times.
//
// Iterating panics with a *CycleError when a cycle is reachable from from.
func (g *Graph) DepthFirstSearch(from topic.Reference) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		start, ok := g.index(from)
		if !ok {
			return
		}
		color := make([]uint8, len(g.nodes))
		var stack []int
		var visit func(i int) bool
		visit = func(i int) bool {
			color[i] = gray
			stack = append(stack, i)
			if !yield(g.nodes[i]) {
				return false
			}
			for _, c := range g.edges[i] {
				switch color[c] {
				case gray:
					panic(g.cycleError(stack, c))
				case white:
					if !visit(c) {
						return false
					}
				}
			}
			stack = stack[:len(stack)-1]
			color[i] = black
			return true
		}
		visit(start)
	}
}

// BreadthFirstSearch returns a lazy level-order traversal starting at from.
// Every reachable node is yielded at most once. The sequence can be iterated
// any number of times.
//
// Iterating panics with a *CycleError when a cycle is reachable from from.
// The check runs before the first node is yielded.
func (g *Graph) BreadthFirstSearch(from topic.Reference) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		start, ok := g.index(from)
		if !ok {
			return
		}
		if cycle := g.FirstCycle(from); cycle != nil {
			panic(&CycleError{Cycle: cycle})
		}
		seen := make([]bool, len(g.nodes))
		seen[start] = true
		queue := []int{start}
		for len(queue) > 0 {
			i := queue[0]
			queue = queue[1:]
			if !yield(g.nodes[i]) {
				return
			}
			for _, c := range g.edges[i] {
				if !seen[c] {
					seen[c] = true
					queue = append(queue, c)
				}
			}
		}
	}
}

// FirstCycle returns the first cycle reachable from from, or nil.
// The cycle is listed starting at the node that closes it.
func (g *Graph) FirstCycle(from topic.Reference) []topic.Reference {
	start, ok := g.index(from)
	if !ok {
		return nil
	}
	return g.findCycle(make([]uint8, len(g.nodes)), start)
}

// Cycle returns the first cycle anywhere in the graph, or nil. Unlike
// FirstCycle it also finds cycles no root can reach, such as two topics
// curated only under each other. Start nodes are tried in References order.
func (g *Graph) Cycle() []topic.Reference {
	color := make([]uint8, len(g.nodes))
	for _, ref := range g.References() {
		i, _ := g.index(ref)
		if color[i] != white {
			continue
		}
		if cycle := g.findCycle(color, i); cycle != nil {
			return cycle
		}
	}
	return nil
}

func (g *Graph) findCycle(color []uint8, start int) []topic.Reference {
	var stack []int
	var found []topic.Reference
	var visit func(i int) bool
	visit = func(i int) bool {
		color[i] = gray
		stack = append(stack, i)
		for _, c := range g.edges[i] {
			switch color[c] {
			case gray:
				found = g.cycleError(stack, c).Cycle
				return false
			case white:
				if !visit(c) {
					return false
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		return true
	}
	visit(start)
	return found
}

func (g *Graph) cycleError(stack []int, closing int) *CycleError {
	at := slices.Index(stack, closing)
	cycle := make([]topic.Reference, 0, len(stack)-at)
	for _, i := range stack[at:] {
		cycle = append(cycle, g.nodes[i].Reference)
	}
	return &CycleError{Cycle: cycle}
}

// Walk visits the curation tree below from, calling fn with each node and its
// depth. Unlike the searches, a node curated in several places is visited once
// per parent. Returning false from fn skips the node's children. A cycle
// stops the walk with a *CycleError.
func (g *Graph) Walk(from topic.Reference, fn func(n Node, depth int) bool) error {
	start, ok := g.index(from)
	if !ok {
		return nil
	}
	var stack []int
	var walk func(i, depth int) error
	walk = func(i, depth int) error {
		if slices.Contains(stack, i) {
			return g.cycleError(stack, i)
		}
		if !fn(g.nodes[i], depth) {
			return nil
		}
		stack = append(stack, i)
		defer func() { stack = stack[:len(stack)-1] }()
		for _, c := range g.edges[i] {
			if err := walk(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(start, 0)
}

// PathsTo returns every chain of references from a root down to a parent of
// ref. Shorter paths come first; paths of equal length are ordered by their
// component paths. Root nodes have a single empty path.
func (g *Graph) PathsTo(ref topic.Reference) [][]topic.Reference {
	target, ok := g.index(ref)
	if !ok {
		return nil
	}
	var out [][]int
	var walk func(i int, suffix []int)
	walk = func(i int, suffix []int) {
		parents := g.reverse[i]
		if len(parents) == 0 {
			out = append(out, slices.Clone(suffix))
			return
		}
		for _, p := range parents {
			if p == target || slices.Contains(suffix, p) {
				continue
			}
			walk(p, append([]int{p}, suffix...))
		}
	}
	walk(target, nil)

	paths := make([][]topic.Reference, len(out))
	for i, idx := range out {
		paths[i] = g.refs(idx)
		if paths[i] == nil {
			paths[i] = []topic.Reference{}
		}
	}
	slices.SortStableFunc(paths, func(a, b []topic.Reference) int {
		if len(a) != len(b) {
			return len(a) - len(b)
		}
		return slices.CompareFunc(a, b, topic.Compare)
	})
	return paths
}
