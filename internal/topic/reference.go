// Package topic defines the identity of documentation topics: references,
// kinds, source languages and content locations.
package topic

import (
	"cmp"
	"strings"
)

// Root path components.
const (
	DocumentationRoot = "documentation"
	TutorialsRoot     = "tutorials"
)

// Scheme is the URL scheme used when rendering references as strings.
const Scheme = "doc"

// Reference identifies a topic. References are immutable values and are
// comparable, so they can be used directly as map keys.
//
// Two references with the same path but different fragments are distinct
// topics that live on the same page.
type Reference struct {
	// Bundle is the identifier of the documentation collection owning the topic.
	Bundle string
	// Fragment names an on-page anchor. Empty for page-level topics.
	Fragment string
	// Language is the source language variant the reference was created for.
	Language SourceLanguage

	path string
}

// NewReference builds a reference from path components. Empty components are dropped.
func NewReference(bundle string, lang SourceLanguage, components ...string) Reference {
	parts := make([]string, 0, len(components))
	for _, c := range components {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return Reference{Bundle: bundle, Language: lang, path: "/" + strings.Join(parts, "/")}
}

// ParsePath builds a reference from an absolute path such as
// "/documentation/MyKit/Foo#Overview".
func ParsePath(bundle string, lang SourceLanguage, path string) Reference {
	frag := ""
	if i := strings.IndexByte(path, '#'); i >= 0 {
		path, frag = path[:i], path[i+1:]
	}
	return NewReference(bundle, lang, SplitPath(path)...).WithFragment(frag)
}

// SplitPath splits a slash separated path into components. Slashes inside
// parentheses, and a slash that starts a component and is directly followed
// by "(", belong to the component, so operator names like "/(_:_:)" stay
// intact.
func SplitPath(path string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '/':
			if depth == 0 && i == start && i+1 < len(path) && path[i+1] == '(' {
				continue
			}
			if depth == 0 {
				if i > start {
					out = append(out, path[start:i])
				}
				start = i + 1
			}
		}
	}
	if start < len(path) {
		out = append(out, path[start:])
	}
	return out
}

// IsZero reports whether r is the zero reference.
func (r Reference) IsZero() bool { return r == Reference{} }

// Path returns the absolute path of the reference without fragment.
func (r Reference) Path() string {
	if r.path == "" {
		return "/"
	}
	return r.path
}

// Components returns the path components.
func (r Reference) Components() []string {
	return SplitPath(r.path)
}

// LastComponent returns the final path component, or "" for the root path.
func (r Reference) LastComponent() string {
	c := r.Components()
	if len(c) == 0 {
		return ""
	}
	return c[len(c)-1]
}

// Depth returns the number of path components.
func (r Reference) Depth() int { return len(r.Components()) }

// WithFragment returns a copy of r with the given fragment.
func (r Reference) WithFragment(fragment string) Reference {
	r.Fragment = fragment
	return r
}

// WithoutFragment returns the page-level reference for r.
func (r Reference) WithoutFragment() Reference {
	r.Fragment = ""
	return r
}

// WithLanguage returns a copy of r for another source language variant.
func (r Reference) WithLanguage(lang SourceLanguage) Reference {
	r.Language = lang
	return r
}

// AppendingPath returns a child reference with the extra components appended.
// The fragment is dropped.
func (r Reference) AppendingPath(components ...string) Reference {
	all := append(r.Components(), components...)
	return NewReference(r.Bundle, r.Language, all...)
}

// Parent returns the reference one path component up and false when r is
// already at the root.
func (r Reference) Parent() (Reference, bool) {
	c := r.Components()
	if len(c) == 0 {
		return Reference{}, false
	}
	return NewReference(r.Bundle, r.Language, c[:len(c)-1]...), true
}

// IsSamePage reports whether r and other address the same page, ignoring
// fragments and language variants.
func (r Reference) IsSamePage(other Reference) bool {
	return r.Bundle == other.Bundle && r.Path() == other.Path()
}

// IsDocumentation reports whether the reference lives under /documentation.
func (r Reference) IsDocumentation() bool {
	c := r.Components()
	return len(c) > 0 && c[0] == DocumentationRoot
}

// IsTutorials reports whether the reference lives under /tutorials.
func (r Reference) IsTutorials() bool {
	c := r.Components()
	return len(c) > 0 && c[0] == TutorialsRoot
}

// String renders the reference as "doc://bundle/path#fragment".
func (r Reference) String() string {
	var b strings.Builder
	b.WriteString(Scheme)
	b.WriteString("://")
	b.WriteString(r.Bundle)
	b.WriteString(r.Path())
	if r.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(r.Fragment)
	}
	return b.String()
}

// Compare orders references by path, then fragment, then bundle, then language.
func Compare(a, b Reference) int {
	return cmp.Or(
		strings.Compare(a.Path(), b.Path()),
		strings.Compare(a.Fragment, b.Fragment),
		strings.Compare(a.Bundle, b.Bundle),
		strings.Compare(string(a.Language), string(b.Language)),
	)
}
