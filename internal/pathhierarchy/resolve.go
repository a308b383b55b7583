package pathhierarchy

import (
	"slices"
	"strings"

	"git.home.luguber.info/inful/doctopics/internal/topic"
)

// parsedLink is a link split into path components.
type parsedLink struct {
	raw        string
	bundle     string
	absolute   bool
	root       string
	components []string
	fragment   string
}

func parseLink(link string) parsedLink {
	p := parsedLink{raw: link}
	s := strings.TrimPrefix(link, "doc:")
	if rest, ok := strings.CutPrefix(s, "//"); ok {
		bundle, path, _ := strings.Cut(rest, "/")
		p.bundle = bundle
		s = "/" + path
	}
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s, p.fragment = s[:i], s[i+1:]
	}
	p.absolute = strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "/(")
	p.components = topic.SplitPath(s)
	if p.absolute && len(p.components) > 0 {
		switch p.components[0] {
		case topic.DocumentationRoot, topic.TutorialsRoot:
			p.root = p.components[0]
			p.components = p.components[1:]
		}
	}
	return p
}

// Resolve resolves link relative to scope. scope is the page the link was
// written on; for symbol links in a documentation extension header it is the
// module. A zero scope only resolves absolute links and names that are
// findable from anywhere.
func (h *Hierarchy) Resolve(link string, scope topic.Reference) (topic.Reference, error) {
	p := parseLink(link)
	if p.bundle != "" && p.bundle != h.bundle {
		return topic.Reference{}, &ResolutionError{Kind: NotFound, Link: link}
	}
	if len(p.components) == 0 {
		if p.fragment != "" && !scope.IsZero() {
			return scope.WithFragment(p.fragment), nil
		}
		return topic.Reference{}, &ResolutionError{Kind: NotFound, Link: link}
	}

	first, err := h.lookupFirst(p, scope)
	if err != nil {
		return topic.Reference{}, err
	}

	current := first
	for i := 1; i < len(p.components); i++ {
		next, rerr := h.step(p, i, current)
		if rerr != nil {
			return topic.Reference{}, rerr
		}
		current = next
	}

	if current.placeholder {
		return topic.Reference{}, &ResolutionError{Kind: NotLinkable, Link: link, PartialResult: current.ref}
	}
	return current.ref.WithFragment(p.fragment), nil
}

// lookupFirst finds the topic named by the first link component.
func (h *Hierarchy) lookupFirst(p parsedLink, scope topic.Reference) (*node, error) {
	comp := p.components[0]
	var next string
	if len(p.components) > 1 {
		next = p.components[1]
	}
	final := len(p.components) == 1

	var candidates []*node
	if p.absolute {
		root := p.root
		if root == "" {
			root = topic.DocumentationRoot
		}
		candidates = h.matchIn(h.roots[root], comp)
	} else {
		candidates = h.searchScope(comp, scope)
		if final {
			candidates = mergeUnique(candidates, h.matchIn(h.articles, comp), h.matchIn(h.tutorials, comp))
		}
	}

	if len(candidates) == 0 {
		pool := h.namesNear(scope)
		return nil, &ResolutionError{
			Kind:        NotFound,
			Link:        p.raw,
			Remaining:   slices.Clone(p.components),
			Suggestions: suggest(comp, pool),
		}
	}
	return h.choose(p, 0, candidates, next, final, topic.Reference{})
}

// searchScope walks from the scope towards the root and returns the first
// non-empty match: a child of the current node, or the node itself.
func (h *Hierarchy) searchScope(comp string, scope topic.Reference) []*node {
	if !scope.IsZero() {
		for cur := h.byRef[key(scope)]; cur != nil; cur = cur.parent {
			if found := h.matchChildren(cur, comp); len(found) > 0 {
				return found
			}
			if found := h.matchNodes([]*node{cur}, comp); len(found) > 0 {
				return found
			}
		}
	}
	return h.matchIn(h.roots[topic.DocumentationRoot], comp)
}

func (h *Hierarchy) step(p parsedLink, i int, current *node) (*node, error) {
	comp := p.components[i]
	var next string
	if i+1 < len(p.components) {
		next = p.components[i+1]
	}
	candidates := h.matchChildren(current, comp)
	if len(candidates) == 0 {
		var pool []string
		for name := range current.children {
			pool = append(pool, name)
		}
		return nil, &ResolutionError{
			Kind:          NotFound,
			Link:          p.raw,
			PartialResult: current.ref,
			Remaining:     slices.Clone(p.components[i:]),
			Suggestions:   suggest(comp, pool),
		}
	}
	return h.choose(p, i, candidates, next, i == len(p.components)-1, current.ref)
}

// choose narrows same-named candidates to one.
func (h *Hierarchy) choose(p parsedLink, i int, candidates []*node, next string, final bool, partial topic.Reference) (*node, error) {
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	if !final {
		var withChild []*node
		for _, c := range candidates {
			if len(h.matchChildren(c, next)) > 0 {
				withChild = append(withChild, c)
			}
		}
		switch len(withChild) {
		case 0:
			// Let the next step report the missing component.
			return candidates[0], nil
		case 1:
			return withChild[0], nil
		default:
			candidates = withChild
		}
	} else {
		candidates = byPrecedence(candidates)
		if len(candidates) == 1 {
			return candidates[0], nil
		}
	}

	comp := p.components[i]
	out := make([]Candidate, len(candidates))
	for j, c := range candidates {
		name := linkName(c, comp)
		var sameName []*node
		for _, o := range candidates {
			if linkName(o, comp) == name {
				sameName = append(sameName, o)
			}
		}
		out[j] = Candidate{Reference: c.ref, Kind: c.kind, Name: name, Disambiguation: disambiguation(c, sameName)}
	}
	slices.SortFunc(out, func(a, b Candidate) int {
		if a.Name != b.Name {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Disambiguation, b.Disambiguation)
	})
	return nil, &ResolutionError{
		Kind:          Ambiguous,
		Link:          p.raw,
		PartialResult: partial,
		Remaining:     slices.Clone(p.components[i:]),
		Candidates:    out,
	}
}

// linkName is the name a candidate is linked by: its own name, or its base
// name when it only matched comp through base-name matching. Overloads that
// share a base name are then told apart by kind or hash, which
// "base-suffix" resolves back through the same matching.
func linkName(n *node, comp string) string {
	if n.name == comp {
		return n.name
	}
	if i := strings.IndexByte(n.name, '('); i > 0 {
		return n.name[:i]
	}
	return n.name
}

// byPrecedence keeps articles over tutorials over symbols.
func byPrecedence(candidates []*node) []*node {
	for _, keep := range []func(topic.Kind) bool{topic.Kind.IsArticle, topic.Kind.IsTutorial} {
		var matched []*node
		for _, c := range candidates {
			if keep(c.kind) {
				matched = append(matched, c)
			}
		}
		if len(matched) > 0 {
			return matched
		}
	}
	return candidates
}

func (h *Hierarchy) matchChildren(n *node, comp string) []*node {
	if n == nil {
		return nil
	}
	return h.matchIn(n.children, comp)
}

func (h *Hierarchy) matchNodes(nodes []*node, comp string) []*node {
	m := map[string][]*node{}
	for _, n := range nodes {
		m[n.name] = append(m[n.name], n)
	}
	return h.matchIn(m, comp)
}

// matchIn looks up comp among named nodes. An exact name match wins; then
// "name-suffix" filters by kind identifier or hash; then, when enabled, a
// bare function name matches every overload.
func (h *Hierarchy) matchIn(named map[string][]*node, comp string) []*node {
	if found := named[comp]; len(found) > 0 {
		return found
	}
	if i := strings.LastIndexByte(comp, '-'); i > 0 {
		name, suffix := comp[:i], comp[i+1:]
		if found := filterBySuffix(named[name], suffix); len(found) > 0 {
			return found
		}
		if h.features.ParametersDisambiguation {
			if found := filterBySuffix(baseNameMatches(named, name), suffix); len(found) > 0 {
				return found
			}
		}
	}
	if h.features.ParametersDisambiguation && !strings.Contains(comp, "(") {
		return baseNameMatches(named, comp)
	}
	return nil
}

func baseNameMatches(named map[string][]*node, base string) []*node {
	var out []*node
	for name, nodes := range named {
		if i := strings.IndexByte(name, '('); i > 0 && name[:i] == base {
			out = append(out, nodes...)
		}
	}
	slices.SortFunc(out, func(a, b *node) int { return topic.Compare(a.ref, b.ref) })
	return out
}

func filterBySuffix(nodes []*node, suffix string) []*node {
	if len(nodes) == 0 {
		return nil
	}
	kindSuffix := suffix
	if lang, rest, ok := strings.Cut(suffix, "."); ok && topic.ParseSourceLanguage(lang) != topic.LanguageUnknown {
		kindSuffix = rest
	}
	var out []*node
	for _, n := range nodes {
		if n.kind.Identifier() == kindSuffix || n.hash() == suffix {
			out = append(out, n)
		}
	}
	return out
}

func mergeUnique(groups ...[]*node) []*node {
	var out []*node
	for _, g := range groups {
		for _, n := range g {
			if !slices.Contains(out, n) {
				out = append(out, n)
			}
		}
	}
	return out
}

// namesNear collects the names visible from scope for suggestions.
func (h *Hierarchy) namesNear(scope topic.Reference) []string {
	var pool []string
	if !scope.IsZero() {
		for cur := h.byRef[key(scope)]; cur != nil; cur = cur.parent {
			pool = append(pool, cur.name)
			for name := range cur.children {
				pool = append(pool, name)
			}
		}
	}
	for name := range h.roots[topic.DocumentationRoot] {
		pool = append(pool, name)
	}
	for name := range h.articles {
		pool = append(pool, name)
	}
	for name := range h.tutorials {
		pool = append(pool, name)
	}
	return pool
}
