package renderunit

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"git.home.luguber.info/inful/doctopics/internal/curation"
	"git.home.luguber.info/inful/doctopics/internal/doccontext"
	"git.home.luguber.info/inful/doctopics/internal/symbolgraph"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

var relationshipTitles = map[symbolgraph.RelationshipKind]string{
	symbolgraph.ConformsTo:   "Conforms To",
	symbolgraph.InheritsFrom: "Inherits From",
	symbolgraph.Overrides:    "Overrides",
	symbolgraph.ExtensionTo:  "Extends",
}

// Converter turns topics of a curated context into render units. It only
// reads the context, so one Converter may be shared by concurrent workers.
type Converter struct {
	docs      *doccontext.Context
	auto      *curation.Automatic
	languages topic.LanguageSet
}

// NewConverter creates a converter over a curated context. languages limits
// the languages of generated content; nil keeps all of them.
func NewConverter(docs *doccontext.Context, auto *curation.Automatic, languages topic.LanguageSet) *Converter {
	return &Converter{docs: docs, auto: auto, languages: languages}
}

// Convert renders the topic ref. It returns ErrSkipped for topics that have
// no page of their own.
func (c *Converter) Convert(ctx context.Context, ref topic.Reference) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	node, ok := c.docs.Graph().Node(ref)
	if !ok {
		return nil, fmt.Errorf("convert %s: %w", ref.Path(), doccontext.ErrNotFound)
	}
	if node.IsVirtual || node.IsEmptyExtension {
		return nil, ErrSkipped
	}
	e, err := c.docs.Entity(ref)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", ref.Path(), err)
	}

	refs := newCollector(c.docs)
	unit := &RenderUnit{
		Identifier:  e.Reference.String(),
		Kind:        e.Kind.Identifier(),
		Title:       e.Title,
		Abstract:    e.Abstract(),
		Module:      e.Module,
		Languages:   languageStrings(e.Languages),
		Source:      e.Source,
		Fingerprint: e.Fingerprint(),
	}
	if e.Symbol != nil {
		unit.Declaration = e.Symbol.DeclarationText()
	}

	if path, ok := c.auto.CanonicalPath(ref); ok {
		for _, p := range path {
			unit.Breadcrumbs = append(unit.Breadcrumbs, refs.add(p))
		}
	}

	for _, g := range c.docs.ManualTopics(ref) {
		unit.Topics = append(unit.Topics, refs.section(g, false))
	}
	for _, g := range c.auto.Topics(ref, c.languages) {
		if g.Title == curation.DefaultImplementationsTitle {
			unit.DefaultImplementations = append(unit.DefaultImplementations, refs.section(g, true))
			continue
		}
		unit.Topics = append(unit.Topics, refs.section(g, true))
	}

	for _, g := range c.docs.ManualSeeAlso(ref) {
		unit.SeeAlso = append(unit.SeeAlso, refs.section(g, false))
	}
	if g, ok := c.auto.SeeAlso(ref, c.languages); ok {
		unit.SeeAlso = append(unit.SeeAlso, refs.section(g, true))
	}

	unit.Relationships = c.relationships(ref, refs)
	for _, target := range c.docs.Links(ref) {
		refs.add(target)
	}
	unit.References = refs.summaries

	out := &Output{
		Unit:    unit,
		Summary: c.summary(e),
		Records: records(e, unit),
	}
	if doc := e.Document(); doc != nil {
		out.Assets = slices.Clone(doc.Images)
	}
	return out, nil
}

func (c *Converter) relationships(ref topic.Reference, refs *collector) []RelationshipSection {
	byKind := make(map[symbolgraph.RelationshipKind]*RelationshipSection)
	for _, r := range c.docs.Relationships(ref) {
		title, ok := relationshipTitles[r.Kind]
		if !ok {
			continue
		}
		s, ok := byKind[r.Kind]
		if !ok {
			s = &RelationshipSection{Kind: string(r.Kind), Title: title}
			byKind[r.Kind] = s
		}
		if r.Target.IsZero() {
			s.ExternalNames = append(s.ExternalNames, r.TargetName)
			continue
		}
		s.Identifiers = append(s.Identifiers, refs.add(r.Target))
	}
	out := make([]RelationshipSection, 0, len(byKind))
	for _, k := range slices.Sorted(maps.Keys(byKind)) {
		s := byKind[k]
		slices.Sort(s.Identifiers)
		slices.Sort(s.ExternalNames)
		out = append(out, *s)
	}
	return out
}

func (c *Converter) summary(e *doccontext.Entity) LinkSummary {
	s := LinkSummary{
		Identifier: e.Reference.String(),
		Path:       e.Reference.Path(),
		Title:      e.Title,
		Kind:       e.Kind.Identifier(),
		Abstract:   e.Abstract(),
		Languages:  languageStrings(e.Languages),
	}
	if doc := e.Document(); doc != nil {
		s.Fragments = doc.Anchors()
	}
	return s
}

// records returns the page record followed by one record per section heading.
func records(e *doccontext.Entity, unit *RenderUnit) []IndexRecord {
	out := []IndexRecord{{
		Identifier: unit.Identifier,
		Kind:       unit.Kind,
		Title:      unit.Title,
		Summary:    unit.Abstract,
		Module:     unit.Module,
	}}
	doc := e.Document()
	if doc == nil {
		return out
	}
	for _, h := range doc.Headings {
		if h.Level < 2 || strings.EqualFold(h.Text, "topics") || strings.EqualFold(h.Text, "see also") {
			continue
		}
		out = append(out, IndexRecord{
			Identifier: e.Reference.WithFragment(h.Anchor).String(),
			Kind:       "section",
			Title:      h.Text,
			Summary:    unit.Title,
			Module:     unit.Module,
		})
	}
	return out
}

func languageStrings(langs topic.LanguageSet) []string {
	out := make([]string, len(langs))
	for i, l := range langs {
		out[i] = string(l)
	}
	return out
}

// collector gathers summaries of every topic a page refers to.
type collector struct {
	docs      *doccontext.Context
	summaries map[string]TopicSummary
}

func newCollector(docs *doccontext.Context) *collector {
	return &collector{docs: docs, summaries: make(map[string]TopicSummary)}
}

func (c *collector) add(ref topic.Reference) string {
	id := ref.String()
	if _, ok := c.summaries[id]; ok {
		return id
	}
	s := TopicSummary{Identifier: id, Title: ref.LastComponent()}
	if e, err := c.docs.Entity(ref); err == nil {
		s.Title = e.Title
		s.Kind = e.Kind.Identifier()
		s.Abstract = e.Abstract()
	}
	s.URL = (&RenderUnit{Identifier: id}).URL()
	c.summaries[id] = s
	return id
}

func (c *collector) section(g topic.TaskGroup, generated bool) Section {
	s := Section{Title: g.Title, Generated: generated}
	for _, r := range g.References {
		s.Identifiers = append(s.Identifiers, c.add(r))
	}
	return s
}
