package curation

import (
	"git.home.luguber.info/inful/doctopics/internal/topic"
	"git.home.luguber.info/inful/doctopics/internal/topicgraph"
)

// Source is the read-only view of a curated documentation context that
// automatic curation works from.
type Source interface {
	Graph() *topicgraph.Graph
	Languages(ref topic.Reference) topic.LanguageSet
	ManualTopics(ref topic.Reference) []topic.TaskGroup
	DefaultImplementations(ref topic.Reference) []topic.Reference
	IsDefaultImplementation(ref topic.Reference) bool
	IsInherited(ref topic.Reference) bool
	AutomaticSeeAlsoDisabled(ref topic.Reference) bool
}

// Resolver resolves an authored link written on the page scope.
type Resolver interface {
	Resolve(link string, scope topic.Reference) (topic.Reference, error)
}

func key(ref topic.Reference) topic.Reference {
	return ref.WithoutFragment().WithLanguage("")
}
