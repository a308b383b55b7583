// Package markup parses authored documentation (articles, documentation
// extensions, tutorials and symbol doc comments) into the structure the
// compiler needs: title, abstract, curation sections and links.
package markup

import (
	"git.home.luguber.info/inful/doctopics/internal/frontmatter"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

// LinkKind discriminates how a link was written.
type LinkKind int

const (
	// LinkDoc is a "doc:" link, written as <doc:Name> or [text](doc:Name).
	LinkDoc LinkKind = iota
	// LinkSymbol is a double backtick symbol link, written as ``Name``.
	LinkSymbol
)

// Link is a topic reference found in markup.
type Link struct {
	Kind        LinkKind
	Destination string
	Text        string
	Line        int
}

// Target returns the link string handed to the resolver.
func (l Link) Target() string { return l.Destination }

// Heading is a section heading.
type Heading struct {
	Level  int
	Text   string
	Anchor string
	Line   int
}

// TaskGroup is a titled list of links inside a Topics or See Also section.
type TaskGroup struct {
	Title string
	Links []Link
	Line  int
}

// TopicsSection is one "## Topics" section.
type TopicsSection struct {
	Line   int
	Groups []TaskGroup
}

// Document is the parsed form of a markup file.
type Document struct {
	Title           string
	Abstract        string
	ExtensionTarget string
	Headings        []Heading
	InvalidHeadings []Heading
	TopicsSections  []TopicsSection
	SeeAlso         []TaskGroup
	Links           []Link
	Images          []string
	Metadata        frontmatter.Metadata
	Fingerprint     string
}

// IsExtension reports whether the document extends a symbol's documentation.
func (d *Document) IsExtension() bool { return d.ExtensionTarget != "" }

// Kind returns the topic kind the document registers as.
func (d *Document) Kind() topic.Kind {
	if d.Metadata.Kind != "" && topic.ParseSymbolKind(d.Metadata.Kind) == topic.KindTutorial {
		return topic.KindTutorial
	}
	return topic.KindArticle
}

// TaskGroups flattens every Topics section into one list of groups in
// document order.
func (d *Document) TaskGroups() []TaskGroup {
	var out []TaskGroup
	for _, s := range d.TopicsSections {
		out = append(out, s.Groups...)
	}
	return out
}

// AutomaticSeeAlsoDisabled reports whether the page opted out of automatic See Also.
func (d *Document) AutomaticSeeAlsoDisabled() bool {
	return d.Metadata.AutomaticSeeAlso == "disabled"
}

// Anchors returns the fragment anchors the page defines.
func (d *Document) Anchors() []string {
	out := make([]string, 0, len(d.Headings))
	for _, h := range d.Headings {
		if h.Level > 1 {
			out = append(out, h.Anchor)
		}
	}
	return out
}
