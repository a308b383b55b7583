package markup

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/inful/mdfp"
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/doctopics/internal/frontmatter"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

const docScheme = "doc:"

type section int

const (
	sectionNone section = iota
	sectionTopics
	sectionSeeAlso
	sectionOther
)

// Parse parses a markup file, including optional YAML front matter.
func Parse(source []byte) (*Document, error) {
	front, body, offset, _, err := frontmatter.Split(source)
	if err != nil {
		return nil, err
	}
	md, err := frontmatter.Decode(front)
	if err != nil {
		return nil, err
	}

	p := &parser{
		src:       body,
		lineShift: bytes.Count(source[:offset], []byte("\n")),
		doc: &Document{
			Metadata:    md,
			Fingerprint: mdfp.CalculateFingerprintFromParts(string(front), string(body)),
		},
	}
	for i, c := range body {
		if c == '\n' {
			p.newlines = append(p.newlines, i)
		}
	}
	root := goldmark.New().Parser().Parse(text.NewReader(body))
	if err := p.run(root); err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	if p.doc.Title == "" && md.Title != "" {
		p.doc.Title = md.Title
	}
	return p.doc, nil
}

// ParseString parses markup held in a string, such as a symbol doc comment.
func ParseString(s string) *Document {
	doc, err := Parse([]byte(s))
	if err != nil {
		return &Document{}
	}
	return doc
}

type parser struct {
	src       []byte
	newlines  []int
	lineShift int
	doc       *Document

	section  section
	topics   *TopicsSection
	group    *TaskGroup
	seenH1   bool
	abstract bool

	err error
}

// walk runs gmast.Walk below n and keeps the first error for run to return.
func (p *parser) walk(n gmast.Node, fn gmast.Walker) {
	if err := gmast.Walk(n, fn); err != nil && p.err == nil {
		p.err = err
	}
}

func (p *parser) run(root gmast.Node) error {
	p.abstract = true
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch v := n.(type) {
		case *gmast.Heading:
			p.heading(v)
			continue
		case *gmast.Paragraph:
			if p.abstract {
				p.doc.Abstract = p.inlineText(v)
			}
		case *gmast.List:
			if p.section == sectionTopics || p.section == sectionSeeAlso {
				p.list(v)
				p.abstract = false
				continue
			}
		}
		p.abstract = false
		p.collectLinks(n)
	}
	p.flushGroup()
	p.flushTopics()
	p.walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if img, ok := n.(*gmast.Image); ok && entering {
			p.doc.Images = append(p.doc.Images, string(img.Destination))
		}
		return gmast.WalkContinue, nil
	})
	return p.err
}

func (p *parser) heading(h *gmast.Heading) {
	txt := p.inlineText(h)
	hd := Heading{Level: h.Level, Text: txt, Anchor: topic.URLReadable(txt), Line: p.lineOf(h)}
	p.doc.Headings = append(p.doc.Headings, hd)

	switch h.Level {
	case 1:
		if p.seenH1 {
			p.doc.InvalidHeadings = append(p.doc.InvalidHeadings, hd)
			p.abstract = false
			return
		}
		p.seenH1 = true
		p.doc.Title = txt
		if target, ok := p.soleSymbolLink(h); ok {
			p.doc.ExtensionTarget = target
		}
		p.abstract = true
	case 2:
		p.abstract = false
		p.flushGroup()
		p.flushTopics()
		switch strings.ToLower(txt) {
		case "topics":
			p.section = sectionTopics
			p.topics = &TopicsSection{Line: hd.Line}
		case "see also":
			p.section = sectionSeeAlso
		default:
			p.section = sectionOther
		}
	case 3:
		p.abstract = false
		if p.section == sectionTopics || p.section == sectionSeeAlso {
			p.flushGroup()
			p.group = &TaskGroup{Title: txt, Line: hd.Line}
		}
	default:
		p.abstract = false
	}
}

func (p *parser) list(l *gmast.List) {
	if p.group == nil {
		p.group = &TaskGroup{Line: p.lineOf(l)}
	}
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		if link, ok := p.firstLink(item); ok {
			p.group.Links = append(p.group.Links, link)
		}
	}
}

func (p *parser) flushGroup() {
	if p.group == nil {
		return
	}
	switch p.section {
	case sectionTopics:
		p.topics.Groups = append(p.topics.Groups, *p.group)
	case sectionSeeAlso:
		p.doc.SeeAlso = append(p.doc.SeeAlso, *p.group)
	}
	p.group = nil
}

func (p *parser) flushTopics() {
	if p.topics != nil {
		p.doc.TopicsSections = append(p.doc.TopicsSections, *p.topics)
		p.topics = nil
	}
}

// firstLink returns the first topic link inside a list item.
func (p *parser) firstLink(item gmast.Node) (Link, bool) {
	var (
		found Link
		ok    bool
	)
	p.walk(item, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if l, isLink := p.asLink(n); isLink {
			found, ok = l, true
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
	return found, ok
}

func (p *parser) collectLinks(block gmast.Node) {
	p.walk(block, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if l, ok := p.asLink(n); ok {
			p.doc.Links = append(p.doc.Links, l)
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
}

func (p *parser) asLink(n gmast.Node) (Link, bool) {
	switch v := n.(type) {
	case *gmast.AutoLink:
		url := string(v.URL(p.src))
		if strings.HasPrefix(url, docScheme) {
			return Link{Kind: LinkDoc, Destination: url, Line: p.lineOf(n)}, true
		}
	case *gmast.Link:
		dest := string(v.Destination)
		if strings.HasPrefix(dest, docScheme) {
			return Link{Kind: LinkDoc, Destination: dest, Text: p.inlineText(v), Line: p.lineOf(n)}, true
		}
	case *gmast.CodeSpan:
		if target, ok := p.symbolLink(v); ok {
			return Link{Kind: LinkSymbol, Destination: target, Text: target, Line: p.lineOf(n)}, true
		}
	}
	return Link{}, false
}

// lineOf returns the 1-based source line of n, counted from the start of the
// file including front matter.
func (p *parser) lineOf(n gmast.Node) int {
	for cur := n; cur != nil; cur = cur.Parent() {
		if off, ok := firstOffset(cur); ok {
			return p.line(off)
		}
	}
	return p.lineShift + 1
}

func firstOffset(n gmast.Node) (int, bool) {
	if t, ok := n.(*gmast.Text); ok {
		return t.Segment.Start, true
	}
	if n.Type() == gmast.TypeBlock && n.Lines().Len() > 0 {
		return n.Lines().At(0).Start, true
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if off, ok := firstOffset(c); ok {
			return off, true
		}
	}
	return 0, false
}

func (p *parser) line(offset int) int {
	return p.lineShift + 1 + sort.SearchInts(p.newlines, offset)
}

// symbolLink reports whether cs is a double backtick code span and returns its content.
func (p *parser) symbolLink(cs *gmast.CodeSpan) (string, bool) {
	t, ok := cs.FirstChild().(*gmast.Text)
	if !ok {
		return "", false
	}
	start := t.Segment.Start
	if start < 2 || !bytes.Equal(p.src[start-2:start], []byte("``")) {
		return "", false
	}
	s := p.inlineText(cs)
	return s, s != ""
}

// soleSymbolLink reports whether heading h consists of a single symbol link.
func (p *parser) soleSymbolLink(h *gmast.Heading) (string, bool) {
	if h.ChildCount() != 1 {
		return "", false
	}
	cs, ok := h.FirstChild().(*gmast.CodeSpan)
	if !ok {
		return "", false
	}
	return p.symbolLink(cs)
}

// inlineText concatenates the text content below n.
func (p *parser) inlineText(n gmast.Node) string {
	var b strings.Builder
	p.walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *gmast.Text:
			b.Write(v.Segment.Value(p.src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(v.Value)
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
