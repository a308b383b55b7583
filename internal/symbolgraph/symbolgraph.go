// Package symbolgraph decodes symbol graph files: the machine generated
// description of a module's symbols and the relationships between them.
package symbolgraph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"git.home.luguber.info/inful/doctopics/internal/topic"
)

// RelationshipKind names a relationship between two symbols.
type RelationshipKind string

const (
	MemberOf                RelationshipKind = "memberOf"
	ConformsTo              RelationshipKind = "conformsTo"
	InheritsFrom            RelationshipKind = "inheritsFrom"
	DefaultImplementationOf RelationshipKind = "defaultImplementationOf"
	RequirementOf           RelationshipKind = "requirementOf"
	OptionalRequirementOf   RelationshipKind = "optionalRequirementOf"
	ExtensionTo             RelationshipKind = "extensionTo"
	Overrides               RelationshipKind = "overrides"
)

// Graph is one decoded symbol graph file.
type Graph struct {
	Metadata      Metadata       `json:"metadata"`
	Module        Module         `json:"module"`
	Symbols       []Symbol       `json:"symbols"`
	Relationships []Relationship `json:"relationships"`
}

// Metadata describes the tool that produced the graph.
type Metadata struct {
	FormatVersion struct {
		Major int `json:"major"`
		Minor int `json:"minor"`
		Patch int `json:"patch"`
	} `json:"formatVersion"`
	Generator string `json:"generator"`
}

// Module names the module the graph describes.
type Module struct {
	Name     string         `json:"name"`
	Platform map[string]any `json:"platform,omitempty"`
}

// Symbol is one declaration.
type Symbol struct {
	Identifier     Identifier  `json:"identifier"`
	Kind           Kind        `json:"kind"`
	PathComponents []string    `json:"pathComponents"`
	Names          Names       `json:"names"`
	DocComment     *DocComment `json:"docComment,omitempty"`
	AccessLevel    string      `json:"accessLevel"`
	Declaration    []Fragment  `json:"declarationFragments,omitempty"`
	Location       *Location   `json:"location,omitempty"`
	Availability   []Available `json:"availability,omitempty"`
}

// Identifier is the unique, language scoped identity of a symbol.
type Identifier struct {
	Precise           string `json:"precise"`
	InterfaceLanguage string `json:"interfaceLanguage"`
}

// Kind is the raw symbol kind.
type Kind struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"displayName"`
}

// Names holds the display names of a symbol.
type Names struct {
	Title      string     `json:"title"`
	Navigator  []Fragment `json:"navigator,omitempty"`
	SubHeading []Fragment `json:"subHeading,omitempty"`
}

// DocComment is the in-source documentation comment.
type DocComment struct {
	Lines []Line `json:"lines"`
}

// Line is one documentation comment line.
type Line struct {
	Text string `json:"text"`
}

// Fragment is one token of a declaration.
type Fragment struct {
	Kind     string `json:"kind"`
	Spelling string `json:"spelling"`
}

// Location is the source position of a declaration.
type Location struct {
	URI      string `json:"uri"`
	Position struct {
		Line      int `json:"line"`
		Character int `json:"character"`
	} `json:"position"`
}

// Available is one platform availability entry.
type Available struct {
	Domain       string `json:"domain"`
	IsDeprecated bool   `json:"isUnconditionallyDeprecated,omitempty"`
}

// Relationship connects two symbols by precise identifier.
type Relationship struct {
	Kind           RelationshipKind `json:"kind"`
	Source         string           `json:"source"`
	Target         string           `json:"target"`
	TargetFallback string           `json:"targetFallback,omitempty"`
	SourceOrigin   *Origin          `json:"sourceOrigin,omitempty"`
}

// Origin records the symbol a member was inherited from.
type Origin struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"displayName"`
}

// Decode reads one symbol graph and validates its shape.
func Decode(r io.Reader) (*Graph, error) {
	var g Graph
	dec := json.NewDecoder(r)
	if err := dec.Decode(&g); err != nil {
		return nil, fmt.Errorf("decode symbol graph: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// Load decodes the symbol graph stored at path.
func Load(path string) (*Graph, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from catalog discovery
	if err != nil {
		return nil, fmt.Errorf("open symbol graph: %w", err)
	}
	defer func() { _ = f.Close() }()
	g, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Validate checks the fields registration depends on.
func (g *Graph) Validate() error {
	if g.Module.Name == "" {
		return fmt.Errorf("symbol graph: missing module name")
	}
	for i, s := range g.Symbols {
		if s.Identifier.Precise == "" {
			return fmt.Errorf("symbol graph %s: symbol %d has no precise identifier", g.Module.Name, i)
		}
		if len(s.PathComponents) == 0 {
			return fmt.Errorf("symbol graph %s: symbol %s has no path components", g.Module.Name, s.Identifier.Precise)
		}
	}
	for i, r := range g.Relationships {
		if r.Kind == "" || r.Source == "" || r.Target == "" {
			return fmt.Errorf("symbol graph %s: relationship %d is incomplete", g.Module.Name, i)
		}
	}
	return nil
}

// Language returns the source language of the symbol.
func (s Symbol) Language() topic.SourceLanguage {
	return topic.ParseSourceLanguage(s.Identifier.InterfaceLanguage)
}

// TopicKind maps the raw kind onto a topic kind.
func (s Symbol) TopicKind() topic.Kind {
	return topic.ParseSymbolKind(s.Kind.Identifier)
}

// Title returns the display title, falling back to the last path component.
func (s Symbol) Title() string {
	if s.Names.Title != "" {
		return s.Names.Title
	}
	return s.PathComponents[len(s.PathComponents)-1]
}

// Name returns the symbol's own name: its last path component.
func (s Symbol) Name() string {
	return s.PathComponents[len(s.PathComponents)-1]
}

// DocText returns the documentation comment joined into one markup string.
func (s Symbol) DocText() string {
	if s.DocComment == nil {
		return ""
	}
	lines := make([]string, len(s.DocComment.Lines))
	for i, l := range s.DocComment.Lines {
		lines[i] = l.Text
	}
	return strings.Join(lines, "\n")
}

// DeclarationText returns the declaration as a single string.
func (s Symbol) DeclarationText() string {
	var b strings.Builder
	for _, f := range s.Declaration {
		b.WriteString(f.Spelling)
	}
	return b.String()
}

type symbolKey struct {
	precise string
	lang    string
}

type relationshipKey struct {
	kind           RelationshipKind
	source, target string
}

// Merge combines graphs describing the same module, for example the main
// graph, extension graphs and graphs for other source languages. Symbols are
// unique per precise identifier and language; relationships are unique per
// kind and endpoints. The result groups graphs by module name, sorted.
func Merge(graphs ...*Graph) []*Graph {
	byModule := map[string]*Graph{}
	seenSymbols := map[string]map[symbolKey]bool{}
	seenRels := map[string]map[relationshipKey]bool{}
	for _, g := range graphs {
		if g == nil {
			continue
		}
		name := g.Module.Name
		m, ok := byModule[name]
		if !ok {
			m = &Graph{Metadata: g.Metadata, Module: g.Module}
			byModule[name] = m
			seenSymbols[name] = map[symbolKey]bool{}
			seenRels[name] = map[relationshipKey]bool{}
		}
		for _, s := range g.Symbols {
			k := symbolKey{s.Identifier.Precise, s.Identifier.InterfaceLanguage}
			if seenSymbols[name][k] {
				continue
			}
			seenSymbols[name][k] = true
			m.Symbols = append(m.Symbols, s)
		}
		for _, r := range g.Relationships {
			k := relationshipKey{r.Kind, r.Source, r.Target}
			if seenRels[name][k] {
				continue
			}
			seenRels[name][k] = true
			m.Relationships = append(m.Relationships, r)
		}
	}
	out := make([]*Graph, 0, len(byModule))
	for _, g := range byModule {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b *Graph) int { return strings.Compare(a.Module.Name, b.Module.Name) })
	return out
}
