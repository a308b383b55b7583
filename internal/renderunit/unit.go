// Package renderunit converts curated topics into render units: the
// self-contained, serializable description of one documentation page, plus
// the aggregate records (link summaries, search index records and asset
// references) collected across a compilation.
package renderunit

import (
	"errors"
	"slices"
	"strings"
)

// ErrSkipped is returned for topics that have no page of their own, such as
// virtual topics and extensions whose members are all curated elsewhere.
var ErrSkipped = errors.New("renderunit: topic is not rendered")

// Section is a titled list of topic identifiers.
type Section struct {
	Title       string   `json:"title"`
	Identifiers []string `json:"identifiers"`
	// Generated marks sections synthesized by automatic curation.
	Generated bool `json:"generated,omitempty"`
}

// RelationshipSection lists symbols related to the page by one relationship kind.
type RelationshipSection struct {
	Kind        string   `json:"kind"`
	Title       string   `json:"title"`
	Identifiers []string `json:"identifiers,omitempty"`
	// ExternalNames holds related symbols outside the bundle.
	ExternalNames []string `json:"external_names,omitempty"`
}

// TopicSummary describes a topic referenced from a page.
type TopicSummary struct {
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	Kind       string `json:"kind"`
	Abstract   string `json:"abstract,omitempty"`
	URL        string `json:"url"`
}

// RenderUnit is the rendered form of one topic.
type RenderUnit struct {
	Identifier             string                  `json:"identifier"`
	Kind                   string                  `json:"kind"`
	Title                  string                  `json:"title"`
	Abstract               string                  `json:"abstract,omitempty"`
	Module                 string                  `json:"module,omitempty"`
	Declaration            string                  `json:"declaration,omitempty"`
	Languages              []string                `json:"languages"`
	Breadcrumbs            []string                `json:"breadcrumbs,omitempty"`
	Topics                 []Section               `json:"topics,omitempty"`
	SeeAlso                []Section               `json:"see_also,omitempty"`
	Relationships          []RelationshipSection   `json:"relationships,omitempty"`
	DefaultImplementations []Section               `json:"default_implementations,omitempty"`
	References             map[string]TopicSummary `json:"references,omitempty"`
	Source                 string                  `json:"source,omitempty"`
	Fingerprint            string                  `json:"fingerprint,omitempty"`
}

// URL returns the page path the unit is served at.
func (u *RenderUnit) URL() string {
	_, rest, _ := strings.Cut(strings.TrimPrefix(u.Identifier, "doc://"), "/")
	return "/" + strings.ToLower(rest)
}

// LinkSummary is what other pages, and other bundles, need to link to a topic.
type LinkSummary struct {
	Identifier string   `json:"identifier"`
	Path       string   `json:"path"`
	Title      string   `json:"title"`
	Kind       string   `json:"kind"`
	Abstract   string   `json:"abstract,omitempty"`
	Languages  []string `json:"languages"`
	Fragments  []string `json:"fragments,omitempty"`
}

// IndexRecord is one search index entry: a page, or a section of a page.
type IndexRecord struct {
	Identifier string `json:"identifier"`
	Kind       string `json:"kind"`
	Title      string `json:"title"`
	Summary    string `json:"summary,omitempty"`
	Module     string `json:"module,omitempty"`
}

// Output is everything one conversion produces.
type Output struct {
	Unit    *RenderUnit
	Summary LinkSummary
	Records []IndexRecord
	Assets  []string
}

// SortUnits orders units by identifier.
func SortUnits(units []*RenderUnit) {
	slices.SortFunc(units, func(a, b *RenderUnit) int { return strings.Compare(a.Identifier, b.Identifier) })
}

// SortSummaries orders link summaries by identifier.
func SortSummaries(s []LinkSummary) {
	slices.SortFunc(s, func(a, b LinkSummary) int { return strings.Compare(a.Identifier, b.Identifier) })
}

// SortRecords orders index records by identifier.
func SortRecords(r []IndexRecord) {
	slices.SortFunc(r, func(a, b IndexRecord) int { return strings.Compare(a.Identifier, b.Identifier) })
}
