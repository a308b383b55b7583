package doccontext

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"git.home.luguber.info/inful/doctopics/internal/curation"
	ferrors "git.home.luguber.info/inful/doctopics/internal/foundation/errors"
	"git.home.luguber.info/inful/doctopics/internal/logfields"
	"git.home.luguber.info/inful/doctopics/internal/markup"
	"git.home.luguber.info/inful/doctopics/internal/observability"
	"git.home.luguber.info/inful/doctopics/internal/problems"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

// Curate builds the curation hierarchy: symbols below their declaring
// types, default implementations below their requirements, the author's
// Topics sections, and uncurated articles below the technology root. It
// then checks body links and authored content. The graph is frozen when
// Curate returns.
func (c *Context) Curate(ctx context.Context) error {
	if err := c.transition(StateCurating); err != nil {
		return err
	}
	refs := c.References()

	for _, ref := range refs {
		e := c.entities[key(ref)]
		if e.Symbol == nil {
			continue
		}
		parent, ok := c.symbolParents[key(ref)]
		if !ok {
			parent = topic.NewReference(c.bundle.Identifier, c.bundle.DefaultLanguage, topic.DocumentationRoot, e.Module)
		}
		c.link(parent, ref, RelationshipMember)
	}
	for _, req := range sortedKeys(c.defaultImpls) {
		for _, impl := range c.defaultImpls[req] {
			c.link(req, impl, RelationshipDefaultImplementation)
		}
	}

	crawler := curation.NewCrawler(c.graph, c, c.problems)
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}
		e := c.entities[key(ref)]
		doc := e.Document()
		if doc == nil {
			continue
		}
		c.diagnoseSections(e, doc)
		if len(doc.TopicsSections) > 0 {
			groups := crawler.Curate(ref, e.Source, doc.TopicsSections[0].Groups)
			c.manualTopics[key(ref)] = groups
			for _, target := range topic.Flatten(groups) {
				c.edgeKinds[edge{key(ref), key(target)}] = RelationshipCuration
			}
		}
		if len(doc.SeeAlso) > 0 {
			c.manualSeeAlso[key(ref)] = crawler.ResolveGroups(ref, e.Source, doc.SeeAlso)
		}
	}

	c.curateArticles(refs)
	c.markEmptyExtensions(refs)

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.checkLinks(c.entities[key(ref)])
	}

	if cycle := c.graph.Cycle(); cycle != nil {
		c.problems.Add(problems.Problem{
			Identifier:  problems.CurationCycle,
			Severity:    problems.SeverityError,
			Summary:     fmt.Sprintf("%s is curated under its own descendant", cycle[0].Path()),
			Explanation: "Every topic in the cycle is a member of the next one, so none of them has a place in the hierarchy.",
			Reference:   cycle[0],
		})
		return ferrors.GraphError("curation produced a cycle").
			WithContext("cycle", fmt.Sprint(cycle)).Build()
	}

	observability.InfoContext(ctx, "Curation complete",
		logfields.Count(c.graph.Len()),
		slog.Int("manual_pages", len(c.manualTopics)),
		slog.Int("problems", c.problems.Len()))
	return c.transition(StateReadyToConvert)
}

func (c *Context) link(parent, child topic.Reference, rel Relationship) {
	if err := c.graph.Link(parent, child); err != nil {
		slog.Debug("Skipping curation edge", logfields.Topic(child.Path()), logfields.Error(err))
		return
	}
	k := edge{key(parent), key(child)}
	if _, ok := c.edgeKinds[k]; !ok {
		c.edgeKinds[k] = rel
	}
}

// diagnoseSections reports structural problems of a page's authored content.
func (c *Context) diagnoseSections(e *Entity, doc *markup.Document) {
	for _, extra := range doc.TopicsSections[min(1, len(doc.TopicsSections)):] {
		c.problems.Add(problems.Problem{
			Identifier:  problems.DuplicateTopicsSection,
			Severity:    problems.SeverityWarning,
			Summary:     "Only one Topics section is allowed per page",
			Explanation: "The links in this section are ignored; move them into the first Topics section.",
			Source:      e.Source,
			Line:        extra.Line,
			Reference:   e.Reference,
		})
	}
	for _, h := range doc.InvalidHeadings {
		c.problems.Add(problems.Problem{
			Identifier: problems.InvalidHeading,
			Severity:   problems.SeverityWarning,
			Summary:    fmt.Sprintf("Level 1 heading %q below the page title", h.Text),
			Source:     e.Source,
			Line:       h.Line,
			Reference:  e.Reference,
			Solutions:  []problems.Solution{{Summary: "Use a level 2 heading", Replacement: "## " + h.Text}},
		})
	}
	if (e.Kind.IsArticle() || e.Kind.IsTutorial()) && e.Abstract() == "" {
		c.problems.Add(problems.Problem{
			Identifier: problems.MissingAbstract,
			Severity:   problems.SeverityWarning,
			Summary:    fmt.Sprintf("%s has no abstract", e.Title),
			Explanation: "The first paragraph after the title is the page's abstract; " +
				"it appears in Topics lists and search results.",
			Source:    e.Source,
			Line:      1,
			Reference: e.Reference,
		})
	}
}

// curateArticles attaches articles and tutorials nobody curated to the
// technology root, or reports them when that is not possible.
func (c *Context) curateArticles(refs []topic.Reference) {
	for _, ref := range refs {
		e := c.entities[key(ref)]
		if !e.Kind.IsArticle() && !e.Kind.IsTutorial() {
			continue
		}
		if ref.IsSamePage(c.root) || len(c.graph.Parents(ref)) > 0 {
			continue
		}
		// An article curating the root sits above it already.
		if !c.root.IsZero() && curation.Reaches(c.graph, ref, c.root) {
			continue
		}
		if c.features.AutomaticArticleCuration && !c.root.IsZero() {
			c.link(c.root, ref, RelationshipMember)
			continue
		}
		c.problems.Add(problems.Problem{
			Identifier: problems.OrphanedArticle,
			Severity:   problems.SeverityWarning,
			Summary:    fmt.Sprintf("%s isn't curated in any Topics section", e.Title),
			Source:     e.Source,
			Reference:  ref,
		})
	}
}

// markEmptyExtensions flags extension topics whose members are all curated
// somewhere else so they are left out of the rendered hierarchy.
func (c *Context) markEmptyExtensions(refs []topic.Reference) {
	for _, ref := range refs {
		n, ok := c.graph.Node(ref)
		if !ok || n.Kind != topic.KindExtension {
			continue
		}
		empty := true
		for _, child := range c.graph.Children(ref) {
			if len(c.graph.Parents(child)) < 2 {
				empty = false
				break
			}
		}
		if !empty {
			continue
		}
		n.IsEmptyExtension = true
		if err := c.graph.ReplaceNode(ref, n); err != nil {
			slog.Warn("Failed to mark empty extension", logfields.Topic(ref.Path()), logfields.Error(err))
		}
	}
}

// checkLinks resolves the body links of a page, recording the ones that
// resolve and reporting the rest.
func (c *Context) checkLinks(e *Entity) {
	doc := e.Document()
	if doc == nil {
		return
	}
	for _, l := range doc.Links {
		target, err := c.Resolve(l.Target(), e.Reference)
		if err != nil {
			c.problems.Add(curation.ResolutionProblem(err, l, e.Source, e.Reference))
			continue
		}
		if target.Fragment != "" && !c.hasAnchor(target) {
			c.problems.Add(problems.Problem{
				Identifier: problems.UnresolvedTopicReference,
				Severity:   problems.SeverityWarning,
				Summary:    fmt.Sprintf("%s has no section named %q", target.Path(), target.Fragment),
				Source:     e.Source,
				Line:       l.Line,
				Reference:  e.Reference,
			})
			continue
		}
		if c.links[key(e.Reference)] == nil {
			c.links[key(e.Reference)] = make(map[string]topic.Reference)
		}
		c.links[key(e.Reference)][l.Target()] = target
	}
}

func (c *Context) hasAnchor(ref topic.Reference) bool {
	e, ok := c.entities[key(ref)]
	if !ok {
		return false
	}
	doc := e.Document()
	return doc != nil && slices.Contains(doc.Anchors(), ref.Fragment)
}

func sortedKeys(m map[topic.Reference][]topic.Reference) []topic.Reference {
	out := make([]topic.Reference, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.SortFunc(out, topic.Compare)
	return out
}
