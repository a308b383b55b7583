package curation

import (
	"fmt"
	"slices"

	"git.home.luguber.info/inful/doctopics/internal/markup"
	"git.home.luguber.info/inful/doctopics/internal/problems"
	"git.home.luguber.info/inful/doctopics/internal/topic"
	"git.home.luguber.info/inful/doctopics/internal/topicgraph"
)

// Crawler applies explicit curation: every link in a page's Topics section
// becomes an edge from the page to the linked topic. Links that would
// curate a page under itself or under one of its descendants are refused.
type Crawler struct {
	graph    *topicgraph.Graph
	resolver Resolver
	problems *problems.List
}

// NewCrawler creates a crawler that adds edges to graph and reports
// problems into list.
func NewCrawler(graph *topicgraph.Graph, resolver Resolver, list *problems.List) *Crawler {
	return &Crawler{graph: graph, resolver: resolver, problems: list}
}

// Curate resolves the links of a page's Topics groups and curates each
// resolved topic under the page. source is the file the groups were written
// in. It returns the groups with their resolved references; links that fail
// are dropped and groups left empty are omitted.
func (c *Crawler) Curate(page topic.Reference, source string, groups []markup.TaskGroup) []topic.TaskGroup {
	var out []topic.TaskGroup
	var seen []topic.Reference
	for _, group := range groups {
		resolved := topic.TaskGroup{Title: group.Title}
		for _, link := range group.Links {
			target, ok := c.resolve(page, source, link)
			if !ok {
				continue
			}
			target = target.WithoutFragment()
			if target.IsSamePage(page) {
				c.problems.Add(problems.Problem{
					Identifier: problems.SelfCuration,
					Severity:   problems.SeverityWarning,
					Summary:    fmt.Sprintf("%s can't curate itself", page.Path()),
					Source:     source,
					Line:       link.Line,
					Reference:  page,
				})
				continue
			}
			if Reaches(c.graph, target, page) {
				c.problems.Add(problems.Problem{
					Identifier:  problems.CurationCycle,
					Severity:    problems.SeverityWarning,
					Summary:     fmt.Sprintf("%s can't be curated under its descendant %s", target.Path(), page.Path()),
					Explanation: "Curating a topic below one of its own descendants would make the hierarchy cyclic; the link is ignored.",
					Source:      source,
					Line:        link.Line,
					Reference:   page,
				})
				continue
			}
			if slices.ContainsFunc(seen, target.IsSamePage) {
				continue
			}
			if err := c.graph.Link(page, target); err != nil {
				c.problems.Add(problems.Problem{
					Identifier: problems.UnresolvedTopicReference,
					Severity:   problems.SeverityWarning,
					Summary:    err.Error(),
					Source:     source,
					Line:       link.Line,
					Reference:  page,
				})
				continue
			}
			seen = append(seen, target)
			resolved.References = append(resolved.References, target)
		}
		if len(resolved.References) > 0 {
			out = append(out, resolved)
		}
	}
	return out
}

// ResolveGroups resolves the links of groups without curating anything.
// It is used for authored See Also sections.
func (c *Crawler) ResolveGroups(page topic.Reference, source string, groups []markup.TaskGroup) []topic.TaskGroup {
	var out []topic.TaskGroup
	for _, group := range groups {
		resolved := topic.TaskGroup{Title: group.Title}
		for _, link := range group.Links {
			if target, ok := c.resolve(page, source, link); ok && !target.IsSamePage(page) {
				resolved.References = append(resolved.References, target)
			}
		}
		if len(resolved.References) > 0 {
			out = append(out, resolved)
		}
	}
	return out
}

func (c *Crawler) resolve(page topic.Reference, source string, link markup.Link) (topic.Reference, bool) {
	target, err := c.resolver.Resolve(link.Target(), page)
	if err != nil {
		c.problems.Add(ResolutionProblem(err, link, source, page))
		return topic.Reference{}, false
	}
	return target, true
}

// Reaches reports whether to is reachable from from along curation edges.
// Curating from under to would then close a cycle.
func Reaches(g *topicgraph.Graph, from, to topic.Reference) bool {
	visited := map[topic.Reference]bool{key(from): true}
	queue := []topic.Reference{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.IsSamePage(to) {
			return true
		}
		for _, child := range g.Children(cur) {
			if !visited[key(child)] {
				visited[key(child)] = true
				queue = append(queue, child)
			}
		}
	}
	return false
}
