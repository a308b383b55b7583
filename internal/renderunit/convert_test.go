package renderunit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/doctopics/internal/catalog"
	"git.home.luguber.info/inful/doctopics/internal/config"
	"git.home.luguber.info/inful/doctopics/internal/curation"
	"git.home.luguber.info/inful/doctopics/internal/doccontext"
	"git.home.luguber.info/inful/doctopics/internal/renderunit"
	"git.home.luguber.info/inful/doctopics/internal/symbolgraph"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

const bundleID = "com.example.Kit"

func sym(id, kind string, path ...string) symbolgraph.Symbol {
	return symbolgraph.Symbol{
		Identifier:     symbolgraph.Identifier{Precise: id, InterfaceLanguage: "swift"},
		Kind:           symbolgraph.Kind{Identifier: "swift." + kind},
		PathComponents: path,
		AccessLevel:    "public",
	}
}

func id(path string) string {
	return topic.ParsePath(bundleID, topic.LanguageSwift, path).String()
}

func converter(t *testing.T) (*doccontext.Context, *renderunit.Converter) {
	t.Helper()
	foo := sym("s:Foo", "struct", "Foo")
	foo.Declaration = []symbolgraph.Fragment{{Kind: "keyword", Spelling: "struct"}, {Kind: "text", Spelling: " "}, {Kind: "identifier", Spelling: "Foo"}}
	g := &symbolgraph.Graph{
		Module: symbolgraph.Module{Name: "Kit"},
		Symbols: []symbolgraph.Symbol{
			foo,
			sym("s:Foo.a", "method", "Foo", "a()"),
			sym("s:Foo.b", "method", "Foo", "b()"),
			sym("s:P", "protocol", "P"),
			sym("s:Ext", "extension", "Array"),
			sym("s:Array.x", "property", "Array", "x"),
		},
		Relationships: []symbolgraph.Relationship{
			{Kind: symbolgraph.MemberOf, Source: "s:Foo.a", Target: "s:Foo"},
			{Kind: symbolgraph.MemberOf, Source: "s:Foo.b", Target: "s:Foo"},
			{Kind: symbolgraph.ConformsTo, Source: "s:Foo", Target: "s:P"},
			{Kind: symbolgraph.ConformsTo, Source: "s:Foo", Target: "s:Hashable", TargetFallback: "Swift.Hashable"},
			{Kind: symbolgraph.MemberOf, Source: "s:Array.x", Target: "s:Ext"},
		},
	}
	guide := "# Guide\n\nRead me.\n\n## Overview\n\nSee ``Foo`` and ![chart](chart.png).\n\n## Topics\n\n### Extras\n\n- ``Array/x``\n"
	b := &catalog.Bundle{
		Identifier:      bundleID,
		DisplayName:     "Kit",
		DefaultLanguage: topic.LanguageSwift,
		SymbolGraphs:    []*symbolgraph.Graph{g},
		Markup: []catalog.File{
			{Path: "Foo.md", Content: []byte("# ``Foo``\n\nA foo.\n")},
			{Path: "Guide.md", Content: []byte(guide)},
		},
	}
	docs := doccontext.New(config.DefaultFeatures())
	require.NoError(t, docs.Register(context.Background(), b))
	require.NoError(t, docs.Curate(context.Background()))
	auto := curation.NewAutomatic(docs, docs.Features(), nil)
	return docs, renderunit.NewConverter(docs, auto, nil)
}

func ref(path string) topic.Reference {
	return topic.ParsePath(bundleID, topic.LanguageSwift, path)
}

func TestConvert_Symbol(t *testing.T) {
	_, conv := converter(t)

	out, err := conv.Convert(context.Background(), ref("/documentation/Kit/Foo"))
	require.NoError(t, err)
	u := out.Unit

	assert.Equal(t, id("/documentation/Kit/Foo"), u.Identifier)
	assert.Equal(t, "struct", u.Kind)
	assert.Equal(t, "Foo", u.Title)
	assert.Equal(t, "A foo.", u.Abstract)
	assert.Equal(t, "struct Foo", u.Declaration)
	assert.Equal(t, "Foo.md", u.Source)
	assert.NotEmpty(t, u.Fingerprint)
	assert.Equal(t, []string{id("/documentation/Kit")}, u.Breadcrumbs)
	assert.Equal(t, "/documentation/kit/foo", u.URL())

	require.Len(t, u.Topics, 1)
	assert.Equal(t, renderunit.Section{
		Title:       "Instance Methods",
		Identifiers: []string{id("/documentation/Kit/Foo/a()"), id("/documentation/Kit/Foo/b()")},
		Generated:   true,
	}, u.Topics[0])

	require.Len(t, u.Relationships, 1)
	assert.Equal(t, "Conforms To", u.Relationships[0].Title)
	assert.Equal(t, []string{id("/documentation/Kit/P")}, u.Relationships[0].Identifiers)
	assert.Equal(t, []string{"Swift.Hashable"}, u.Relationships[0].ExternalNames)

	require.Contains(t, u.References, id("/documentation/Kit/P"))
	assert.Equal(t, "protocol", u.References[id("/documentation/Kit/P")].Kind)

	assert.Equal(t, "/documentation/Kit/Foo", out.Summary.Path)
	require.Len(t, out.Records, 1)
	assert.Equal(t, "A foo.", out.Records[0].Summary)
}

func TestConvert_MemberSeeAlso(t *testing.T) {
	_, conv := converter(t)

	out, err := conv.Convert(context.Background(), ref("/documentation/Kit/Foo/a()"))
	require.NoError(t, err)
	require.Len(t, out.Unit.SeeAlso, 1)
	assert.Equal(t, []string{id("/documentation/Kit/Foo/b()")}, out.Unit.SeeAlso[0].Identifiers)
	assert.Equal(t, []string{id("/documentation/Kit"), id("/documentation/Kit/Foo")}, out.Unit.Breadcrumbs)
}

func TestConvert_Article(t *testing.T) {
	_, conv := converter(t)

	out, err := conv.Convert(context.Background(), ref("/documentation/Kit/Guide"))
	require.NoError(t, err)
	u := out.Unit

	assert.Equal(t, "article", u.Kind)
	require.Len(t, u.Topics, 1)
	assert.Equal(t, renderunit.Section{Title: "Extras", Identifiers: []string{id("/documentation/Kit/Array/x")}}, u.Topics[0])
	assert.Contains(t, u.References, id("/documentation/Kit/Foo"))
	assert.Equal(t, []string{"chart.png"}, out.Assets)
	assert.Equal(t, []string{"Overview", "Topics", "Extras"}, out.Summary.Fragments)

	require.Len(t, out.Records, 3)
	assert.Equal(t, id("/documentation/Kit/Guide")+"#Overview", out.Records[1].Identifier)
	assert.Equal(t, "section", out.Records[1].Kind)
	assert.Equal(t, "Extras", out.Records[2].Title)
}

func TestConvert_SkipsEmptyExtensions(t *testing.T) {
	_, conv := converter(t)

	_, err := conv.Convert(context.Background(), ref("/documentation/Kit/Array"))
	require.ErrorIs(t, err, renderunit.ErrSkipped)
}

func TestConvert_Errors(t *testing.T) {
	_, conv := converter(t)

	_, err := conv.Convert(context.Background(), ref("/documentation/Kit/Missing"))
	require.ErrorIs(t, err, doccontext.ErrNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = conv.Convert(ctx, ref("/documentation/Kit/Foo"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestSortUnits(t *testing.T) {
	units := []*renderunit.RenderUnit{{Identifier: "doc://b"}, {Identifier: "doc://a"}}
	renderunit.SortUnits(units)
	assert.Equal(t, "doc://a", units[0].Identifier)
}
