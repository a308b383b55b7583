package doccontext

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"git.home.luguber.info/inful/doctopics/internal/catalog"
	ferrors "git.home.luguber.info/inful/doctopics/internal/foundation/errors"
	"git.home.luguber.info/inful/doctopics/internal/logfields"
	"git.home.luguber.info/inful/doctopics/internal/markup"
	"git.home.luguber.info/inful/doctopics/internal/observability"
	"git.home.luguber.info/inful/doctopics/internal/pathhierarchy"
	"git.home.luguber.info/inful/doctopics/internal/problems"
	"git.home.luguber.info/inful/doctopics/internal/symbolgraph"
	"git.home.luguber.info/inful/doctopics/internal/topic"
	"git.home.luguber.info/inful/doctopics/internal/topicgraph"
)

type extensionFile struct {
	file catalog.File
	doc  *markup.Document
}

// Register adds every input of bundle to the context: one topic per symbol
// and per module, then articles and tutorials, then documentation
// extensions attached to the symbols they extend. It builds the path
// hierarchy last. ctx is polled between inputs; when it is done the context
// moves to StateCancelled and ctx.Err() is returned.
func (c *Context) Register(ctx context.Context, bundle *catalog.Bundle) error {
	if err := c.transition(StateRegistering); err != nil {
		return err
	}
	c.bundle = bundle

	for _, g := range symbolgraph.Merge(bundle.SymbolGraphs...) {
		if err := c.poll(ctx); err != nil {
			return err
		}
		c.registerModule(g)
	}
	c.chooseRoot()

	var extensions []extensionFile
	for _, f := range bundle.Markup {
		if err := c.poll(ctx); err != nil {
			return err
		}
		doc, err := markup.Parse(f.Content)
		if err != nil {
			return ferrors.RegistrationError("parse markup").Wrap(err).
				WithContext("path", f.Path).Build()
		}
		switch {
		case doc.IsExtension():
			extensions = append(extensions, extensionFile{file: f, doc: doc})
		case doc.Kind() == topic.KindTutorial:
			c.registerTutorial(f, doc)
		default:
			c.registerArticle(f, doc)
		}
	}
	for _, f := range bundle.Tutorials {
		if err := c.poll(ctx); err != nil {
			return err
		}
		doc, err := markup.Parse(f.Content)
		if err != nil {
			return ferrors.RegistrationError("parse tutorial").Wrap(err).
				WithContext("path", f.Path).Build()
		}
		c.registerTutorial(f, doc)
	}

	c.buildHierarchy()

	for _, ext := range extensions {
		if err := c.poll(ctx); err != nil {
			return err
		}
		c.attachExtension(ext)
	}

	observability.InfoContext(ctx, "Registration complete",
		logfields.Bundle(bundle.Identifier),
		logfields.Count(len(c.entities)),
		slog.Int("modules", len(c.modules)),
		slog.Int("extensions", len(extensions)))
	return nil
}

func (c *Context) poll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		c.state = StateCancelled
		return err
	}
	return nil
}

func (c *Context) add(e *Entity) bool {
	k := key(e.Reference)
	if _, exists := c.entities[k]; exists {
		return false
	}
	c.entities[k] = e
	c.graph.AddNode(topicgraph.Node{
		Reference:    e.Reference,
		Kind:         e.Kind,
		Location:     e.Location,
		Title:        e.Title,
		IsResolvable: true,
	})
	return true
}

// registerModule adds the module topic and one topic per symbol. Symbols
// whose paths collide get a "-suffix" on their last path component: the
// kind identifier when it tells them apart, else the short hash of their
// precise identifier.
func (c *Context) registerModule(g *symbolgraph.Graph) {
	lang := c.bundle.DefaultLanguage
	module := topic.NewReference(c.bundle.Identifier, lang, topic.DocumentationRoot, g.Module.Name)
	moduleEntity := &Entity{
		Reference: module,
		Kind:      topic.KindModule,
		Title:     g.Module.Name,
		Name:      g.Module.Name,
		Module:    g.Module.Name,
		Location:  topic.ExternalLocation(g.Module.Name + ".symbols.json"),
	}
	if !c.add(moduleEntity) {
		return
	}
	c.modules = append(c.modules, module)

	// One entity per precise identifier; other languages add availability.
	var symbols []*symbolgraph.Symbol
	languages := make(map[string]topic.LanguageSet)
	for i := range g.Symbols {
		s := &g.Symbols[i]
		id := s.Identifier.Precise
		if _, seen := languages[id]; !seen {
			symbols = append(symbols, s)
		}
		languages[id] = languages[id].Add(s.Language())
		moduleEntity.Languages = moduleEntity.Languages.Add(s.Language())
	}

	parentID := make(map[string]string)
	for _, r := range g.Relationships {
		switch r.Kind {
		case symbolgraph.MemberOf, symbolgraph.RequirementOf, symbolgraph.OptionalRequirementOf:
			if _, ok := parentID[r.Source]; !ok {
				parentID[r.Source] = r.Target
			}
		}
	}

	slices.SortFunc(symbols, func(a, b *symbolgraph.Symbol) int {
		if d := len(a.PathComponents) - len(b.PathComponents); d != 0 {
			return d
		}
		if d := slices.Compare(a.PathComponents, b.PathComponents); d != 0 {
			return d
		}
		return strings.Compare(a.Identifier.Precise, b.Identifier.Precise)
	})

	byID := make(map[string]*symbolgraph.Symbol, len(symbols))
	for _, s := range symbols {
		byID[s.Identifier.Precise] = s
	}

	// Process one depth at a time so parents have references before children.
	for start := 0; start < len(symbols); {
		depth := len(symbols[start].PathComponents)
		end := start
		for end < len(symbols) && len(symbols[end].PathComponents) == depth {
			end++
		}

		type placed struct {
			sym  *symbolgraph.Symbol
			base topic.Reference
		}
		groups := make(map[topic.Reference][]placed)
		var order []topic.Reference
		for _, s := range symbols[start:end] {
			prefix := module.AppendingPath(s.PathComponents[:depth-1]...)
			if pid, ok := parentID[s.Identifier.Precise]; ok {
				if p, known := byID[pid]; known && slices.Equal(p.PathComponents, s.PathComponents[:depth-1]) {
					if pref, ok := c.byPrecise[pid]; ok {
						prefix = pref
					}
				}
			}
			base := prefix.AppendingPath(s.Name())
			k := key(base)
			if _, ok := groups[k]; !ok {
				order = append(order, k)
			}
			groups[k] = append(groups[k], placed{sym: s, base: base})
		}

		for _, k := range order {
			group := groups[k]
			syms := make([]*symbolgraph.Symbol, len(group))
			for i, p := range group {
				syms[i] = p.sym
			}
			for _, p := range group {
				ref := p.base
				if len(group) > 1 {
					ref = disambiguatedReference(p.base, p.sym, syms)
				}
				c.registerSymbol(g.Module.Name, ref, p.sym, languages[p.sym.Identifier.Precise])
			}
		}
		start = end
	}

	for _, r := range g.Relationships {
		c.registerRelationship(module, r)
	}
	for req := range c.defaultImpls {
		slices.SortFunc(c.defaultImpls[req], topic.Compare)
	}
}

// disambiguatedReference gives a symbol whose path collides with others its
// own last path component.
func disambiguatedReference(base topic.Reference, s *symbolgraph.Symbol, group []*symbolgraph.Symbol) topic.Reference {
	sameKind := 0
	for _, o := range group {
		if o.TopicKind() == s.TopicKind() {
			sameKind++
		}
	}
	suffix := s.TopicKind().Identifier()
	if sameKind > 1 {
		suffix = pathhierarchy.ShortHash(s.Identifier.Precise)
	}
	parent, _ := base.Parent()
	return parent.AppendingPath(s.Name() + "-" + suffix)
}

func (c *Context) registerSymbol(module string, ref topic.Reference, s *symbolgraph.Symbol, langs topic.LanguageSet) {
	loc := topic.ExternalLocation(module + ".symbols.json")
	if s.Location != nil && s.Location.URI != "" {
		loc = topic.RangeLocation(s.Location.URI, s.Location.Position.Line, s.Location.Position.Line)
	}
	e := &Entity{
		Reference: ref,
		Kind:      s.TopicKind(),
		Title:     s.Title(),
		Name:      s.Name(),
		Module:    module,
		PreciseID: s.Identifier.Precise,
		Languages: langs,
		Location:  loc,
		Symbol:    s,
	}
	if text := s.DocText(); text != "" {
		e.Comment = markup.ParseString(text)
	}
	if c.add(e) {
		c.byPrecise[s.Identifier.Precise] = ref
	}
}

func (c *Context) registerRelationship(module topic.Reference, r symbolgraph.Relationship) {
	source, ok := c.byPrecise[r.Source]
	if !ok {
		return
	}
	target, targetKnown := c.byPrecise[r.Target]
	switch r.Kind {
	case symbolgraph.MemberOf, symbolgraph.RequirementOf, symbolgraph.OptionalRequirementOf:
		if r.SourceOrigin != nil {
			c.entities[key(source)].Inherited = true
		}
		if _, has := c.symbolParents[key(source)]; has {
			return
		}
		if targetKnown {
			c.symbolParents[key(source)] = target
		}
	case symbolgraph.DefaultImplementationOf:
		if !targetKnown {
			return
		}
		c.defaultImpls[key(target)] = append(c.defaultImpls[key(target)], source)
		c.implementations[key(source)] = true
	default:
		rel := SymbolRelationship{Kind: r.Kind, TargetName: r.TargetFallback}
		if targetKnown {
			rel.Target = target
			rel.TargetName = c.entities[key(target)].Title
		}
		c.relationships[key(source)] = append(c.relationships[key(source)], rel)
	}
}

// chooseRoot picks the technology root: the first module, else an article
// that declares itself the root (registered later).
func (c *Context) chooseRoot() {
	slices.SortFunc(c.modules, topic.Compare)
	if len(c.modules) > 0 {
		c.root = c.modules[0]
	}
}

// articleRoot is the path component articles are registered below.
func (c *Context) articleRoot() string {
	if !c.root.IsZero() {
		return c.root.LastComponent()
	}
	return topic.URLReadable(c.bundle.DisplayName)
}

func (c *Context) registerArticle(f catalog.File, doc *markup.Document) {
	name := topic.URLReadable(f.Name())
	lang := c.bundle.DefaultLanguage
	var ref topic.Reference
	if doc.Metadata.TechnologyRoot && c.root.IsZero() {
		ref = topic.NewReference(c.bundle.Identifier, lang, topic.DocumentationRoot, name)
	} else {
		ref = topic.NewReference(c.bundle.Identifier, lang, topic.DocumentationRoot, c.articleRoot(), name)
	}
	e := &Entity{
		Reference: ref,
		Kind:      topic.KindArticle,
		Title:     cmpTitle(doc, f),
		Name:      name,
		Module:    c.articleRoot(),
		Languages: topic.LanguageSet{lang},
		Location:  topic.FileLocation(f.Path),
		Article:   doc,
		Source:    f.Path,
	}
	if !c.add(e) {
		slog.Warn("Skipping article with duplicate reference", logfields.Path(f.Path), logfields.Topic(ref.Path()))
		return
	}
	if doc.Metadata.TechnologyRoot && c.root.IsZero() {
		c.root = ref
	}
}

func (c *Context) registerTutorial(f catalog.File, doc *markup.Document) {
	name := topic.URLReadable(f.Name())
	lang := c.bundle.DefaultLanguage
	ref := topic.NewReference(c.bundle.Identifier, lang, topic.TutorialsRoot, topic.URLReadable(c.bundle.DisplayName), name)
	e := &Entity{
		Reference: ref,
		Kind:      topic.KindTutorial,
		Title:     cmpTitle(doc, f),
		Name:      name,
		Languages: topic.LanguageSet{lang},
		Location:  topic.FileLocation(f.Path),
		Article:   doc,
		Source:    f.Path,
	}
	if !c.add(e) {
		slog.Warn("Skipping tutorial with duplicate reference", logfields.Path(f.Path), logfields.Topic(ref.Path()))
	}
}

func cmpTitle(doc *markup.Document, f catalog.File) string {
	if doc.Title != "" {
		return doc.Title
	}
	return f.Name()
}

func (c *Context) buildHierarchy() {
	c.hierarchy = pathhierarchy.New(c.bundle.Identifier, c.features)
	for _, ref := range c.References() {
		e := c.entities[key(ref)]
		c.hierarchy.AddNamed(e.Reference, e.Name, e.Kind, e.PreciseID)
	}
}

// attachExtension resolves the symbol a documentation extension extends,
// relative to the technology root, and attaches the file to it.
func (c *Context) attachExtension(ext extensionFile) {
	var target topic.Reference
	var err error
	scopes := append([]topic.Reference{c.root}, c.modules...)
	for _, scope := range scopes {
		target, err = c.Resolve(ext.doc.ExtensionTarget, scope)
		if err == nil {
			break
		}
	}
	if err != nil {
		c.problems.Add(problems.Problem{
			Identifier: problems.UnknownExtensionSymbol,
			Severity:   problems.SeverityWarning,
			Summary:    fmt.Sprintf("No symbol matched %q", ext.doc.ExtensionTarget),
			Explanation: "A documentation extension's title must link to a symbol in the bundle. " +
				err.Error(),
			Source: ext.file.Path,
			Line:   1,
		})
		return
	}
	e := c.entities[key(target)]
	if e.Extension != nil {
		c.problems.Add(problems.Problem{
			Identifier:  problems.DuplicateExtensionFile,
			Severity:    problems.SeverityWarning,
			Summary:     fmt.Sprintf("Duplicate documentation extension for %s", target.Path()),
			Explanation: fmt.Sprintf("%s already extends this symbol; this file is ignored.", e.Source),
			Source:      ext.file.Path,
			Line:        1,
			Reference:   target,
		})
		return
	}
	e.Extension = ext.doc
	e.Source = ext.file.Path
}
