package curation

import (
	"slices"

	"git.home.luguber.info/inful/doctopics/internal/config"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

// DefaultImplementationsTitle is the title of the group listing the default
// implementations of a protocol requirement.
const DefaultImplementationsTitle = "Default Implementations"

// groupOrder is the fixed order of automatic Topics groups.
var groupOrder = []topic.Kind{
	topic.KindArticle,
	topic.KindTutorial,
	topic.KindModule,
	topic.KindClass,
	topic.KindStructure,
	topic.KindEnumeration,
	topic.KindTypeAlias,
	topic.KindProtocol,
	topic.KindGlobalVariable,
	topic.KindFunction,
	topic.KindOperator,
	topic.KindMacro,
	topic.KindAssociatedType,
	topic.KindEnumerationCase,
	topic.KindInitializer,
	topic.KindInstanceProperty,
	topic.KindInstanceMethod,
	topic.KindSubscript,
	topic.KindTypeProperty,
	topic.KindTypeMethod,
	topic.KindTypeSubscript,
	topic.KindExtension,
	topic.KindUnknown,
}

// Automatic derives Topics and See Also groups for pages the author did not
// fully curate. Results depend only on the graph and the requested
// languages, so repeated calls return identical groups.
type Automatic struct {
	source   Source
	features config.Features
	cache    RenderContentCache

	// KeepMultiParent reports whether a child curated in several places
	// still appears in its parents' automatic Topics.
	KeepMultiParent func(ref topic.Reference) bool
}

// NewAutomatic creates automatic curation over source. cache may be nil.
func NewAutomatic(source Source, features config.Features, cache RenderContentCache) *Automatic {
	a := &Automatic{source: source, features: features, cache: cache}
	a.KeepMultiParent = func(ref topic.Reference) bool {
		return features.CurateInheritedSymbols && source.IsInherited(ref)
	}
	return a
}

// Topics groups the children of ref that are not curated elsewhere by kind.
// Groups come in a fixed kind order and list their references by path. A
// "Default Implementations" group is appended for protocol requirements.
func (a *Automatic) Topics(ref topic.Reference, langs topic.LanguageSet) []topic.TaskGroup {
	g := a.source.Graph()
	manual := topic.Flatten(a.source.ManualTopics(ref))

	buckets := make(map[topic.Kind][]topic.Reference)
	for _, child := range g.Children(ref) {
		if slices.ContainsFunc(manual, child.IsSamePage) {
			continue
		}
		n, ok := g.Node(child)
		if !ok || n.IsVirtual || n.IsEmptyExtension {
			continue
		}
		if len(g.Parents(child)) > 1 && !a.KeepMultiParent(child) {
			continue
		}
		if a.source.IsDefaultImplementation(child) {
			continue
		}
		if !langs.Intersects(a.source.Languages(child)) {
			continue
		}
		buckets[n.Kind] = append(buckets[n.Kind], child)
	}

	var out []topic.TaskGroup
	for _, kind := range groupOrder {
		refs := buckets[kind]
		if len(refs) == 0 {
			continue
		}
		slices.SortFunc(refs, topic.Compare)
		out = append(out, topic.TaskGroup{Title: kind.Title(), References: refs})
	}

	var impls []topic.Reference
	for _, impl := range a.source.DefaultImplementations(ref) {
		if langs.Intersects(a.source.Languages(impl)) {
			impls = append(impls, impl)
		}
	}
	if len(impls) > 0 {
		slices.SortFunc(impls, topic.Compare)
		out = append(out, topic.TaskGroup{Title: DefaultImplementationsTitle, References: impls})
	}
	return out
}

// SeeAlso returns the other members of the group that curates ref under its
// canonical parent. It returns false when automatic See Also is disabled,
// when ref has no parent, or when ref is alone in its group.
func (a *Automatic) SeeAlso(ref topic.Reference, langs topic.LanguageSet) (topic.TaskGroup, bool) {
	if !a.features.AutomaticSeeAlso || a.source.AutomaticSeeAlsoDisabled(ref) {
		return topic.TaskGroup{}, false
	}
	path, ok := a.canonicalPath(ref)
	if !ok || len(path) == 0 {
		return topic.TaskGroup{}, false
	}
	parent := path[len(path)-1]

	for _, group := range a.taskGroups(parent) {
		if !group.Contains(ref) {
			continue
		}
		if len(group.References) < 2 {
			return topic.TaskGroup{}, false
		}
		var siblings []topic.Reference
		for _, r := range group.References {
			if r.IsSamePage(ref) || !langs.Intersects(a.source.Languages(r)) {
				continue
			}
			siblings = append(siblings, r)
		}
		if len(siblings) == 0 {
			return topic.TaskGroup{}, false
		}
		return topic.TaskGroup{Title: group.Title, References: siblings}, true
	}
	return topic.TaskGroup{}, false
}

// CanonicalPath returns the chain of references from a root to the parent
// of ref that breadcrumbs follow.
func (a *Automatic) CanonicalPath(ref topic.Reference) ([]topic.Reference, bool) {
	return a.canonicalPath(ref)
}

func (a *Automatic) canonicalPath(ref topic.Reference) ([]topic.Reference, bool) {
	if a.cache != nil {
		if p, ok := a.cache.CanonicalPath(ref); ok {
			return p, true
		}
	}
	paths := a.source.Graph().PathsTo(ref)
	if len(paths) == 0 {
		return nil, false
	}
	return paths[0], true
}

// taskGroups returns every group shown on the page: the author's groups
// first, then the automatic ones.
func (a *Automatic) taskGroups(ref topic.Reference) []topic.TaskGroup {
	if a.cache != nil {
		if groups, ok := a.cache.TaskGroups(ref); ok {
			return groups
		}
	}
	return slices.Concat(a.source.ManualTopics(ref), a.Topics(ref, nil))
}
