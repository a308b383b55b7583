// Package doccontext holds the documentation context of one compilation:
// every registered topic, the topic graph that curates them, and the path
// hierarchy that resolves links between them.
//
// A Context is built in two single-threaded phases, Register and Curate.
// After Curate returns, the graph and the hierarchy are frozen and every
// query is safe for concurrent use.
package doccontext

import (
	"errors"
	"fmt"
	"slices"

	"git.home.luguber.info/inful/doctopics/internal/catalog"
	"git.home.luguber.info/inful/doctopics/internal/config"
	"git.home.luguber.info/inful/doctopics/internal/metrics"
	"git.home.luguber.info/inful/doctopics/internal/pathhierarchy"
	"git.home.luguber.info/inful/doctopics/internal/problems"
	"git.home.luguber.info/inful/doctopics/internal/topic"
	"git.home.luguber.info/inful/doctopics/internal/topicgraph"
)

type edge struct {
	parent, child topic.Reference
}

// Context is the documentation context of one bundle.
type Context struct {
	features config.Features
	state    State
	recorder metrics.Recorder

	bundle    *catalog.Bundle
	graph     *topicgraph.Graph
	hierarchy *pathhierarchy.Hierarchy
	problems  *problems.List

	entities  map[topic.Reference]*Entity
	byPrecise map[string]topic.Reference
	modules   []topic.Reference
	root      topic.Reference

	symbolParents   map[topic.Reference]topic.Reference
	relationships   map[topic.Reference][]SymbolRelationship
	defaultImpls    map[topic.Reference][]topic.Reference
	implementations map[topic.Reference]bool
	edgeKinds       map[edge]Relationship
	manualTopics    map[topic.Reference][]topic.TaskGroup
	manualSeeAlso   map[topic.Reference][]topic.TaskGroup
	links           map[topic.Reference]map[string]topic.Reference
}

// New creates an empty context.
func New(features config.Features) *Context {
	return &Context{
		features:        features,
		recorder:        metrics.NoopRecorder{},
		graph:           topicgraph.New(),
		problems:        &problems.List{},
		entities:        make(map[topic.Reference]*Entity),
		byPrecise:       make(map[string]topic.Reference),
		symbolParents:   make(map[topic.Reference]topic.Reference),
		relationships:   make(map[topic.Reference][]SymbolRelationship),
		defaultImpls:    make(map[topic.Reference][]topic.Reference),
		implementations: make(map[topic.Reference]bool),
		edgeKinds:       make(map[edge]Relationship),
		manualTopics:    make(map[topic.Reference][]topic.TaskGroup),
		manualSeeAlso:   make(map[topic.Reference][]topic.TaskGroup),
		links:           make(map[topic.Reference]map[string]topic.Reference),
	}
}

func key(ref topic.Reference) topic.Reference {
	return ref.WithoutFragment().WithLanguage("")
}

func (c *Context) transition(to State) error {
	if !canTransition(c.state, to) {
		return &StateError{From: c.state, To: to}
	}
	c.state = to
	return nil
}

// State returns the lifecycle state.
func (c *Context) State() State { return c.state }

// BeginConversion moves a curated context into the converting state.
func (c *Context) BeginConversion() error { return c.transition(StateConverting) }

// FinishConversion marks the compilation done.
func (c *Context) FinishConversion() error { return c.transition(StateDone) }

// Cancel marks the compilation cancelled. Only registration and conversion
// can be cancelled; in any other state Cancel returns a *StateError.
func (c *Context) Cancel() error { return c.transition(StateCancelled) }

// Features returns the feature toggles the context was created with.
func (c *Context) Features() config.Features { return c.features }

// Bundle returns the registered bundle, nil before Register.
func (c *Context) Bundle() *catalog.Bundle { return c.bundle }

// Graph returns the topic graph.
func (c *Context) Graph() *topicgraph.Graph { return c.graph }

// Hierarchy returns the path hierarchy, nil before Register.
func (c *Context) Hierarchy() *pathhierarchy.Hierarchy { return c.hierarchy }

// Problems returns the diagnostics recorded so far.
func (c *Context) Problems() *problems.List { return c.problems }

// TechnologyRoot returns the topic uncurated articles are attached to: the
// bundle's module when there is one, else its technology root article.
func (c *Context) TechnologyRoot() topic.Reference { return c.root }

// Modules returns the module references in path order.
func (c *Context) Modules() []topic.Reference { return slices.Clone(c.modules) }

// Entity returns the registered topic for ref.
func (c *Context) Entity(ref topic.Reference) (*Entity, error) {
	e, ok := c.entities[key(ref)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref.Path())
	}
	return e, nil
}

// EntityByPreciseID returns the symbol topic with the given precise identifier.
func (c *Context) EntityByPreciseID(id string) (*Entity, error) {
	ref, ok := c.byPrecise[id]
	if !ok {
		return nil, fmt.Errorf("%w: symbol %s", ErrNotFound, id)
	}
	return c.Entity(ref)
}

// References returns every registered topic reference in path order.
func (c *Context) References() []topic.Reference {
	out := make([]topic.Reference, 0, len(c.entities))
	for _, e := range c.entities {
		out = append(out, e.Reference)
	}
	slices.SortFunc(out, topic.Compare)
	return out
}

// Children returns the children of ref with the reason each is curated there.
func (c *Context) Children(ref topic.Reference) []Child {
	children := c.graph.Children(ref)
	out := make([]Child, 0, len(children))
	for _, child := range children {
		out = append(out, Child{Reference: child, Relationship: c.edgeKinds[edge{key(ref), key(child)}]})
	}
	return out
}

// Parents returns the topics that curate ref.
func (c *Context) Parents(ref topic.Reference) []topic.Reference {
	return c.graph.Parents(ref)
}

// IsLinkable reports whether links may point at ref.
func (c *Context) IsLinkable(ref topic.Reference) bool {
	return c.graph.IsLinkable(ref)
}

// Resolve resolves an authored link written on the page scope.
func (c *Context) Resolve(link string, scope topic.Reference) (topic.Reference, error) {
	if c.hierarchy == nil {
		return topic.Reference{}, &StateError{From: c.state, To: StateCurating}
	}
	ref, err := c.hierarchy.Resolve(link, scope)
	if err == nil && !c.graph.IsLinkable(ref) {
		err = &pathhierarchy.ResolutionError{Kind: pathhierarchy.NotLinkable, Link: link, PartialResult: ref}
	}
	c.recorder.IncLinkResolution(linkOutcome(err))
	if err != nil {
		return topic.Reference{}, err
	}
	return ref, nil
}

// SetRecorder routes link resolution counts to r.
func (c *Context) SetRecorder(r metrics.Recorder) {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	c.recorder = r
}

func linkOutcome(err error) metrics.LinkOutcome {
	var re *pathhierarchy.ResolutionError
	if err == nil {
		return metrics.LinkResolved
	}
	if !errors.As(err, &re) {
		return metrics.LinkNotFound
	}
	switch re.Kind {
	case pathhierarchy.Ambiguous:
		return metrics.LinkAmbiguous
	case pathhierarchy.NotLinkable:
		return metrics.LinkNotLinkable
	default:
		return metrics.LinkNotFound
	}
}

// ManualTopics returns the resolved Topics groups the author wrote for ref.
func (c *Context) ManualTopics(ref topic.Reference) []topic.TaskGroup {
	return c.manualTopics[key(ref)]
}

// ManualSeeAlso returns the resolved See Also groups the author wrote for ref.
func (c *Context) ManualSeeAlso(ref topic.Reference) []topic.TaskGroup {
	return c.manualSeeAlso[key(ref)]
}

// DefaultImplementations returns the implementations of the protocol
// requirement ref, in path order.
func (c *Context) DefaultImplementations(ref topic.Reference) []topic.Reference {
	return c.defaultImpls[key(ref)]
}

// IsDefaultImplementation reports whether ref implements a protocol requirement.
func (c *Context) IsDefaultImplementation(ref topic.Reference) bool {
	return c.implementations[key(ref)]
}

// IsInherited reports whether ref is a symbol inherited from another type.
func (c *Context) IsInherited(ref topic.Reference) bool {
	e, ok := c.entities[key(ref)]
	return ok && e.Inherited
}

// Languages returns the source languages ref is available in.
func (c *Context) Languages(ref topic.Reference) topic.LanguageSet {
	if e, ok := c.entities[key(ref)]; ok {
		return e.Languages
	}
	return nil
}

// AutomaticSeeAlsoDisabled reports whether automatic See Also is turned off
// for ref, either by its own content or by its technology root.
func (c *Context) AutomaticSeeAlsoDisabled(ref topic.Reference) bool {
	for _, r := range []topic.Reference{ref, c.root} {
		if e, ok := c.entities[key(r)]; ok {
			if d := e.Document(); d != nil && d.AutomaticSeeAlsoDisabled() {
				return true
			}
		}
	}
	return false
}

// Relationships returns the non-hierarchical relationships of the symbol ref.
func (c *Context) Relationships(ref topic.Reference) []SymbolRelationship {
	return c.relationships[key(ref)]
}

// Links returns the body links of ref that resolved, keyed by the link
// destination as written.
func (c *Context) Links(ref topic.Reference) map[string]topic.Reference {
	return c.links[key(ref)]
}
