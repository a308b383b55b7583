// Package pathhierarchy indexes every registered topic by its path
// components and resolves authored links against that index.
//
// Symbols sit below their module following their path components; articles
// and tutorials also sit in the tree and are additionally findable by name
// from anywhere in the bundle. Same-named siblings are told apart with a
// "-suffix": the kind identifier when that is unique among them, otherwise a
// short hash of the symbol's precise identifier.
package pathhierarchy

import (
	"encoding/binary"
	"slices"
	"strconv"
	"strings"

	"lukechampine.com/blake3"

	"git.home.luguber.info/inful/doctopics/internal/config"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

type node struct {
	ref         topic.Reference
	kind        topic.Kind
	name        string
	preciseID   string
	placeholder bool
	parent      *node
	children    map[string][]*node
}

func (n *node) childrenNamed(name string) []*node {
	if n == nil {
		return nil
	}
	return n.children[name]
}

func (n *node) addChild(c *node) {
	if n.children == nil {
		n.children = make(map[string][]*node)
	}
	c.parent = n
	n.children[c.name] = append(n.children[c.name], c)
}

func (n *node) allChildren() []*node {
	var out []*node
	for _, cs := range n.children {
		out = append(out, cs...)
	}
	return out
}

// Hierarchy is the link resolution index for one bundle. It is built during
// registration and read-only afterwards.
type Hierarchy struct {
	bundle   string
	features config.Features
	roots    map[string]map[string][]*node // root component -> name -> nodes
	byRef    map[topic.Reference]*node
	// placeholders holds ancestors nothing has registered yet.
	placeholders map[topic.Reference]*node
	articles     map[string][]*node
	tutorials    map[string][]*node
}

// New creates an empty hierarchy for bundle.
func New(bundle string, features config.Features) *Hierarchy {
	return &Hierarchy{
		bundle:       bundle,
		features:     features,
		roots:        map[string]map[string][]*node{topic.DocumentationRoot: {}, topic.TutorialsRoot: {}},
		byRef:        make(map[topic.Reference]*node),
		placeholders: make(map[topic.Reference]*node),
		articles:     make(map[string][]*node),
		tutorials:    make(map[string][]*node),
	}
}

func key(ref topic.Reference) topic.Reference {
	return ref.WithoutFragment().WithLanguage("")
}

// Add indexes a topic under the last component of its path.
func (h *Hierarchy) Add(ref topic.Reference, kind topic.Kind, preciseID string) {
	h.AddNamed(ref, ref.LastComponent(), kind, preciseID)
}

// AddNamed indexes a topic under name, which may differ from the last path
// component when the reference carries a disambiguating suffix (overloads
// that share a path). The reference must live under /documentation or
// /tutorials. Missing ancestors are added as placeholders that links can
// walk through but not resolve to. preciseID is empty for non-symbols.
func (h *Hierarchy) AddNamed(ref topic.Reference, name string, kind topic.Kind, preciseID string) {
	k := key(ref)
	if _, ok := h.byRef[k]; ok {
		return
	}
	comps := ref.Components()
	if len(comps) < 2 {
		return
	}
	rootMap, ok := h.roots[comps[0]]
	if !ok {
		return
	}

	var parent *node
	for depth := 1; depth < len(comps)-1; depth++ {
		partial := topic.NewReference(ref.Bundle, ref.Language, comps[:depth+1]...)
		pk := key(partial)
		next := h.byRef[pk]
		if next == nil {
			next = h.placeholders[pk]
		}
		if next == nil {
			next = &node{name: comps[depth], placeholder: true, ref: partial}
			h.placeholders[pk] = next
			h.attach(rootMap, parent, next)
		}
		parent = next
	}

	n, filled := h.placeholders[k]
	if filled {
		delete(h.placeholders, k)
		if n.name != name {
			h.detach(rootMap, n)
			n.name = name
			h.attach(rootMap, n.parent, n)
		}
	} else {
		n = &node{name: name}
		h.attach(rootMap, parent, n)
	}
	n.ref = ref.WithoutFragment()
	n.kind = kind
	n.preciseID = preciseID
	n.placeholder = false
	h.byRef[k] = n
	switch {
	case kind.IsArticle():
		h.articles[name] = append(h.articles[name], n)
	case kind.IsTutorial():
		h.tutorials[name] = append(h.tutorials[name], n)
	}
}

func (h *Hierarchy) attach(rootMap map[string][]*node, parent, n *node) {
	if parent == nil {
		n.parent = nil
		rootMap[n.name] = append(rootMap[n.name], n)
		return
	}
	parent.addChild(n)
}

func (h *Hierarchy) detach(rootMap map[string][]*node, n *node) {
	named := rootMap
	if n.parent != nil {
		named = n.parent.children
	}
	named[n.name] = slices.DeleteFunc(named[n.name], func(o *node) bool { return o == n })
	if len(named[n.name]) == 0 {
		delete(named, n.name)
	}
}

// Contains reports whether ref is indexed as a real (non placeholder) topic.
func (h *Hierarchy) Contains(ref topic.Reference) bool {
	n, ok := h.byRef[key(ref)]
	return ok && !n.placeholder
}

// Len returns the number of indexed topics.
func (h *Hierarchy) Len() int { return len(h.byRef) }

// Disambiguation returns the suffix needed to link to ref unambiguously from
// its parent, or "" when its name is unique.
func (h *Hierarchy) Disambiguation(ref topic.Reference) string {
	n, ok := h.byRef[key(ref)]
	if !ok {
		return ""
	}
	return disambiguation(n, h.siblings(n))
}

// LinkPath returns the absolute link for ref with every component
// disambiguated as needed, for example "/MyKit/Foo-struct/bar()".
func (h *Hierarchy) LinkPath(ref topic.Reference) string {
	n, ok := h.byRef[key(ref)]
	if !ok {
		return ""
	}
	var parts []string
	for cur := n; cur != nil; cur = cur.parent {
		name := cur.name
		if suffix := disambiguation(cur, h.siblings(cur)); suffix != "" {
			name += "-" + suffix
		}
		parts = append(parts, name)
	}
	slices.Reverse(parts)
	return "/" + strings.Join(parts, "/")
}

func (h *Hierarchy) siblings(n *node) []*node {
	if n.parent != nil {
		return n.parent.childrenNamed(n.name)
	}
	root := h.roots[topic.DocumentationRoot]
	if n.ref.IsTutorials() {
		root = h.roots[topic.TutorialsRoot]
	}
	return root[n.name]
}

// disambiguation returns the minimal suffix telling n apart from the other
// candidates: its kind identifier when no other candidate shares the kind,
// otherwise its hash.
func disambiguation(n *node, candidates []*node) string {
	if len(candidates) < 2 {
		return ""
	}
	sameKind := 0
	for _, c := range candidates {
		if c.kind == n.kind {
			sameKind++
		}
	}
	if sameKind == 1 {
		return n.kind.Identifier()
	}
	return n.hash()
}

func (n *node) hash() string {
	id := n.preciseID
	if id == "" {
		id = n.ref.Path()
	}
	return ShortHash(id)
}

// ShortHash returns the base-36 form of the first 32 bits of the BLAKE3
// digest of id.
func ShortHash(id string) string {
	sum := blake3.Sum256([]byte(id))
	return strconv.FormatUint(uint64(binary.BigEndian.Uint32(sum[:4])), 36)
}
