package doccontext

import (
	"git.home.luguber.info/inful/doctopics/internal/markup"
	"git.home.luguber.info/inful/doctopics/internal/symbolgraph"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

// Entity is a registered topic with the content it was built from.
type Entity struct {
	Reference topic.Reference
	Kind      topic.Kind
	Title     string
	// Name is the path component the topic is linked by, without any
	// disambiguation suffix.
	Name      string
	Module    string
	PreciseID string
	Languages topic.LanguageSet
	Location  topic.ContentLocation

	// Symbol is nil for articles and tutorials.
	Symbol *symbolgraph.Symbol
	// Inherited marks symbols a type inherits from another type.
	Inherited bool

	// Comment is the parsed in-source documentation of a symbol.
	Comment *markup.Document
	// Extension is the documentation extension file attached to a symbol.
	Extension *markup.Document
	// Article is the content of an article or tutorial.
	Article *markup.Document
	// Source is the catalog file that authored content came from.
	Source string
}

// Document returns the authored content that curates the topic: the article
// body, else the documentation extension, else the doc comment.
func (e *Entity) Document() *markup.Document {
	switch {
	case e.Article != nil:
		return e.Article
	case e.Extension != nil:
		return e.Extension
	default:
		return e.Comment
	}
}

// Abstract returns the first non-empty abstract of the topic's content.
func (e *Entity) Abstract() string {
	for _, d := range []*markup.Document{e.Article, e.Extension, e.Comment} {
		if d != nil && d.Abstract != "" {
			return d.Abstract
		}
	}
	return ""
}

// Fingerprint returns the content fingerprint of the authored content, if any.
func (e *Entity) Fingerprint() string {
	if d := e.Document(); d != nil {
		return d.Fingerprint
	}
	return ""
}

// Relationship describes why a child appears below its parent.
type Relationship int

const (
	// RelationshipMember is a symbol below its declaring type or module,
	// or an uncurated article below the technology root.
	RelationshipMember Relationship = iota
	// RelationshipCuration is an explicit Topics link.
	RelationshipCuration
	// RelationshipDefaultImplementation links a requirement to an implementation.
	RelationshipDefaultImplementation
)

func (r Relationship) String() string {
	switch r {
	case RelationshipCuration:
		return "curation"
	case RelationshipDefaultImplementation:
		return "default_implementation"
	default:
		return "member"
	}
}

// Child is one child of a topic.
type Child struct {
	Reference    topic.Reference
	Relationship Relationship
}

// SymbolRelationship is a typed link between two symbols that does not
// affect the hierarchy, such as a conformance.
type SymbolRelationship struct {
	Kind symbolgraph.RelationshipKind
	// Target is zero when the target symbol is not part of the bundle.
	Target topic.Reference
	// TargetName is the fallback display name for external targets.
	TargetName string
}
