package topicgraph

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// diamond builds M -> A, M -> B, A -> C, B -> C, C -> D.
func diamond(t *testing.T) *Graph {
	t.Helper()
	g := New()
	m, a, b := node("/documentation/M"), node("/documentation/M/A"), node("/documentation/M/B")
	c, d := node("/documentation/M/C"), node("/documentation/M/D")
	for _, e := range [][2]Node{{m, a}, {m, b}, {a, c}, {b, c}, {c, d}} {
		require.NoError(t, g.AddEdge(e[0], e[1]))
	}
	return g
}

func TestDepthFirstSearch_VisitsEachNodeOnce(t *testing.T) {
	g := diamond(t)
	got := paths(slices.Collect(g.DepthFirstSearch(ref("/documentation/M"))))
	assert.Equal(t, []string{
		"/documentation/M",
		"/documentation/M/A",
		"/documentation/M/C",
		"/documentation/M/D",
		"/documentation/M/B",
	}, got)
}

func TestDepthFirstSearch_Restartable(t *testing.T) {
	g := diamond(t)
	seq := g.DepthFirstSearch(ref("/documentation/M"))
	first := paths(slices.Collect(seq))
	second := paths(slices.Collect(seq))
	assert.Equal(t, first, second)
}

func TestDepthFirstSearch_Lazy(t *testing.T) {
	g := diamond(t)
	var seen []string
	for n := range g.DepthFirstSearch(ref("/documentation/M")) {
		seen = append(seen, n.Reference.Path())
		if len(seen) == 2 {
			break
		}
	}
	assert.Len(t, seen, 2)
}

func TestBreadthFirstSearch_LevelOrder(t *testing.T) {
	g := diamond(t)
	got := paths(slices.Collect(g.BreadthFirstSearch(ref("/documentation/M"))))
	assert.Equal(t, []string{
		"/documentation/M",
		"/documentation/M/A",
		"/documentation/M/B",
		"/documentation/M/C",
		"/documentation/M/D",
	}, got)
}

func TestTraversal_UnknownStartIsEmpty(t *testing.T) {
	g := diamond(t)
	assert.Empty(t, slices.Collect(g.DepthFirstSearch(ref("/documentation/X"))))
	assert.Empty(t, slices.Collect(g.BreadthFirstSearch(ref("/documentation/X"))))
}

func cyclic(t *testing.T) *Graph {
	t.Helper()
	g := New()
	m, a, b := node("/documentation/M"), node("/documentation/M/A"), node("/documentation/M/B")
	require.NoError(t, g.AddEdge(m, a))
	require.NoError(t, g.AddEdge(a, b))
	require.NoError(t, g.AddEdge(b, a))
	return g
}

func TestDepthFirstSearch_PanicsOnCycle(t *testing.T) {
	g := cyclic(t)
	defer func() {
		r := recover()
		require.NotNil(t, r)
		ce, ok := r.(*CycleError)
		require.True(t, ok, "panic value %T", r)
		assert.Equal(t, []string{"/documentation/M/A", "/documentation/M/B"}, refPaths(ce.Cycle))
		assert.Contains(t, ce.Error(), "/documentation/M/A -> /documentation/M/B -> /documentation/M/A")
	}()
	for range g.DepthFirstSearch(ref("/documentation/M")) {
	}
	t.Fatal("expected panic")
}

func TestBreadthFirstSearch_PanicsOnCycle(t *testing.T) {
	g := cyclic(t)
	assert.PanicsWithError(t, "topic graph: curation cycle /documentation/M/A -> /documentation/M/B -> /documentation/M/A", func() {
		for range g.BreadthFirstSearch(ref("/documentation/M")) {
		}
	})
}

func TestFirstCycle(t *testing.T) {
	assert.Nil(t, diamond(t).FirstCycle(ref("/documentation/M")))
	assert.Equal(t, []string{"/documentation/M/A", "/documentation/M/B"},
		refPaths(cyclic(t).FirstCycle(ref("/documentation/M"))))
}

func TestCycle_FindsCyclesWithoutRoots(t *testing.T) {
	assert.Nil(t, diamond(t).Cycle())

	g := New()
	m, a, b := node("/documentation/M"), node("/documentation/M/A"), node("/documentation/M/B")
	require.True(t, g.AddNode(m))
	require.NoError(t, g.AddEdge(a, b))
	require.NoError(t, g.AddEdge(b, a))

	assert.Equal(t, []string{"/documentation/M"}, refPaths(g.Roots()))
	assert.Nil(t, g.FirstCycle(ref("/documentation/M")))
	assert.Equal(t, []string{"/documentation/M/A", "/documentation/M/B"}, refPaths(g.Cycle()))
}

func TestWalk_VisitsPerParent(t *testing.T) {
	g := diamond(t)
	var lines []string
	err := g.Walk(ref("/documentation/M"), func(n Node, depth int) bool {
		lines = append(lines, fmt.Sprintf("%d %s", depth, n.Reference.LastComponent()))
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"0 M", "1 A", "2 C", "3 D", "1 B", "2 C", "3 D"}, lines)

	var ce *CycleError
	err = cyclic(t).Walk(ref("/documentation/M"), func(Node, int) bool { return true })
	require.ErrorAs(t, err, &ce)
}

func TestPathsTo(t *testing.T) {
	g := diamond(t)
	// A second, longer route to C.
	require.NoError(t, g.AddEdge(node("/documentation/M/B"), node("/documentation/M/E")))
	require.NoError(t, g.AddEdge(node("/documentation/M/E"), node("/documentation/M/C")))

	got := g.PathsTo(ref("/documentation/M/C"))
	require.Len(t, got, 3)
	assert.Equal(t, []string{"/documentation/M", "/documentation/M/A"}, refPaths(got[0]))
	assert.Equal(t, []string{"/documentation/M", "/documentation/M/B"}, refPaths(got[1]))
	assert.Equal(t, []string{"/documentation/M", "/documentation/M/B", "/documentation/M/E"}, refPaths(got[2]))

	roots := g.PathsTo(ref("/documentation/M"))
	require.Len(t, roots, 1)
	assert.Empty(t, roots[0])
}

func TestPathsTo_IgnoresCycles(t *testing.T) {
	g := cyclic(t)
	got := g.PathsTo(ref("/documentation/M/B"))
	require.Len(t, got, 1)
	assert.Equal(t, []string{"/documentation/M", "/documentation/M/A"}, refPaths(got[0]))
}
