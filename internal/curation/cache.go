package curation

import (
	"context"

	"git.home.luguber.info/inful/doctopics/internal/config"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

// RenderContentCache holds curation results computed ahead of conversion.
type RenderContentCache interface {
	CanonicalPath(ref topic.Reference) ([]topic.Reference, bool)
	TaskGroups(ref topic.Reference) ([]topic.TaskGroup, bool)
}

// PrecomputedCache is a RenderContentCache filled once before conversion
// and read-only afterwards, so concurrent readers need no locking.
type PrecomputedCache struct {
	paths  map[topic.Reference][]topic.Reference
	groups map[topic.Reference][]topic.TaskGroup
}

// Precompute computes the canonical path and full task groups of every
// topic in the source graph, walking depth first from each root so parents
// are cached before their children. Groups are computed for all languages.
//
// A curation cycle in the graph surfaces as a panic carrying a
// *topicgraph.CycleError.
func Precompute(ctx context.Context, source Source, features config.Features) (*PrecomputedCache, error) {
	g := source.Graph()
	c := &PrecomputedCache{
		paths:  make(map[topic.Reference][]topic.Reference, g.Len()),
		groups: make(map[topic.Reference][]topic.TaskGroup, g.Len()),
	}
	auto := NewAutomatic(source, features, nil)
	for _, root := range g.Roots() {
		for n := range g.DepthFirstSearch(root) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			ref := n.Reference
			if _, done := c.groups[key(ref)]; done {
				continue
			}
			if p, ok := auto.canonicalPath(ref); ok {
				c.paths[key(ref)] = p
			}
			c.groups[key(ref)] = auto.taskGroups(ref)
		}
	}
	return c, nil
}

// CanonicalPath implements RenderContentCache.
func (c *PrecomputedCache) CanonicalPath(ref topic.Reference) ([]topic.Reference, bool) {
	p, ok := c.paths[key(ref)]
	return p, ok
}

// TaskGroups implements RenderContentCache.
func (c *PrecomputedCache) TaskGroups(ref topic.Reference) ([]topic.TaskGroup, bool) {
	g, ok := c.groups[key(ref)]
	return g, ok
}

// Len returns the number of cached topics.
func (c *PrecomputedCache) Len() int { return len(c.groups) }
