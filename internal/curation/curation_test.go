package curation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/doctopics/internal/catalog"
	"git.home.luguber.info/inful/doctopics/internal/config"
	"git.home.luguber.info/inful/doctopics/internal/curation"
	"git.home.luguber.info/inful/doctopics/internal/doccontext"
	"git.home.luguber.info/inful/doctopics/internal/symbolgraph"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

const bundleID = "com.example.Kit"

func sym(id, lang, kind string, path ...string) symbolgraph.Symbol {
	return symbolgraph.Symbol{
		Identifier:     symbolgraph.Identifier{Precise: id, InterfaceLanguage: lang},
		Kind:           symbolgraph.Kind{Identifier: lang + "." + kind},
		PathComponents: path,
		AccessLevel:    "public",
	}
}

func ref(path string) topic.Reference {
	return topic.ParsePath(bundleID, topic.LanguageSwift, path)
}

func paths(refs []topic.Reference) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Path()
	}
	return out
}

type group struct {
	Title string
	Paths []string
}

func groups(gs []topic.TaskGroup) []group {
	out := make([]group, len(gs))
	for i, g := range gs {
		out[i] = group{Title: g.Title, Paths: paths(g.References)}
	}
	return out
}

func build(t *testing.T, features config.Features, markup ...catalog.File) *doccontext.Context {
	t.Helper()
	g := &symbolgraph.Graph{
		Module: symbolgraph.Module{Name: "Kit"},
		Symbols: []symbolgraph.Symbol{
			sym("s:A", "swift", "struct", "A"),
			sym("s:B", "swift", "func", "B()"),
			sym("s:C", "swift", "struct", "C"),
			sym("s:D", "swift", "struct", "D"),
			sym("c:O", "occ", "class", "O"),
			sym("s:P", "swift", "protocol", "P"),
			sym("s:P.req", "swift", "method", "P", "req()"),
			sym("s:D.req", "swift", "method", "D", "req()"),
		},
		Relationships: []symbolgraph.Relationship{
			{Kind: symbolgraph.RequirementOf, Source: "s:P.req", Target: "s:P"},
			{Kind: symbolgraph.MemberOf, Source: "s:D.req", Target: "s:D"},
			{Kind: symbolgraph.DefaultImplementationOf, Source: "s:D.req", Target: "s:P.req"},
		},
	}
	b := &catalog.Bundle{
		Identifier:      bundleID,
		DisplayName:     "Kit",
		DefaultLanguage: topic.LanguageSwift,
		SymbolGraphs:    []*symbolgraph.Graph{g},
		Markup:          markup,
	}
	c := doccontext.New(features)
	require.NoError(t, c.Register(context.Background(), b))
	require.NoError(t, c.Curate(context.Background()))
	return c
}

var curatedMarkup = []catalog.File{
	{Path: "Guide.md", Content: []byte("# Guide\n\nRead me.\n\n## Topics\n\n### Functions\n\n- ``B()``\n")},
	{Path: "Kit.md", Content: []byte("# ``Kit``\n\nThe kit.\n\n## Topics\n\n### Basics\n\n- ``A``\n- ``C``\n- <doc:Guide>\n")},
}

func TestTopics_GroupsByKindInFixedOrder(t *testing.T) {
	c := build(t, config.DefaultFeatures())
	auto := curation.NewAutomatic(c, c.Features(), nil)

	got := groups(auto.Topics(ref("/documentation/Kit"), nil))
	assert.Equal(t, []group{
		{Title: "Classes", Paths: []string{"/documentation/Kit/O"}},
		{Title: "Structures", Paths: []string{"/documentation/Kit/A", "/documentation/Kit/C", "/documentation/Kit/D"}},
		{Title: "Protocols", Paths: []string{"/documentation/Kit/P"}},
		{Title: "Functions", Paths: []string{"/documentation/Kit/B()"}},
	}, got)

	assert.Equal(t, got, groups(auto.Topics(ref("/documentation/Kit"), nil)))
}

func TestTopics_FiltersByLanguage(t *testing.T) {
	c := build(t, config.DefaultFeatures())
	auto := curation.NewAutomatic(c, c.Features(), nil)

	swift := groups(auto.Topics(ref("/documentation/Kit"), topic.LanguageSet{topic.LanguageSwift}))
	for _, g := range swift {
		assert.NotEqual(t, "Classes", g.Title)
	}
	occ := groups(auto.Topics(ref("/documentation/Kit"), topic.LanguageSet{topic.LanguageOCC}))
	assert.Equal(t, []group{{Title: "Classes", Paths: []string{"/documentation/Kit/O"}}}, occ)
}

func TestTopics_SkipsManuallyAndMultiplyCuratedChildren(t *testing.T) {
	c := build(t, config.DefaultFeatures(), curatedMarkup...)
	auto := curation.NewAutomatic(c, c.Features(), nil)
	root := ref("/documentation/Kit")

	assert.Equal(t, []group{
		{Title: "Classes", Paths: []string{"/documentation/Kit/O"}},
		{Title: "Structures", Paths: []string{"/documentation/Kit/D"}},
		{Title: "Protocols", Paths: []string{"/documentation/Kit/P"}},
	}, groups(auto.Topics(root, nil)))
	assert.Empty(t, auto.Topics(ref("/documentation/Kit/Guide"), nil))

	auto.KeepMultiParent = func(topic.Reference) bool { return true }
	got := groups(auto.Topics(root, nil))
	require.Len(t, got, 4)
	assert.Equal(t, group{Title: "Functions", Paths: []string{"/documentation/Kit/B()"}}, got[3])
}

func TestTopics_DefaultImplementations(t *testing.T) {
	c := build(t, config.DefaultFeatures())
	auto := curation.NewAutomatic(c, c.Features(), nil)

	assert.Equal(t, []group{
		{Title: curation.DefaultImplementationsTitle, Paths: []string{"/documentation/Kit/D/req()"}},
	}, groups(auto.Topics(ref("/documentation/Kit/P/req()"), nil)))
	assert.Empty(t, auto.Topics(ref("/documentation/Kit/D"), nil))
}

func TestSeeAlso(t *testing.T) {
	c := build(t, config.DefaultFeatures(), curatedMarkup...)
	auto := curation.NewAutomatic(c, c.Features(), nil)

	got, ok := auto.SeeAlso(ref("/documentation/Kit/A"), nil)
	require.True(t, ok)
	assert.Equal(t, "Basics", got.Title)
	assert.Equal(t, []string{"/documentation/Kit/C", "/documentation/Kit/Guide"}, paths(got.References))

	_, ok = auto.SeeAlso(ref("/documentation/Kit/D"), nil)
	assert.False(t, ok, "a topic alone in its group has no See Also")

	_, ok = auto.SeeAlso(ref("/documentation/Kit"), nil)
	assert.False(t, ok, "roots have no See Also")
}

func TestSeeAlso_Disabled(t *testing.T) {
	features := config.DefaultFeatures()
	features.AutomaticSeeAlso = false
	c := build(t, features, curatedMarkup...)
	auto := curation.NewAutomatic(c, features, nil)

	_, ok := auto.SeeAlso(ref("/documentation/Kit/A"), nil)
	assert.False(t, ok)

	page := catalog.File{Path: "C.md", Content: []byte("---\nautomatic_see_also: disabled\n---\n# ``C``\n\nSee.\n")}
	c = build(t, config.DefaultFeatures(), append([]catalog.File{page}, curatedMarkup...)...)
	auto = curation.NewAutomatic(c, c.Features(), nil)
	_, ok = auto.SeeAlso(ref("/documentation/Kit/C"), nil)
	assert.False(t, ok)
	_, ok = auto.SeeAlso(ref("/documentation/Kit/A"), nil)
	assert.True(t, ok)
}

func TestPrecomputedCache_MatchesUncachedResults(t *testing.T) {
	c := build(t, config.DefaultFeatures(), curatedMarkup...)
	cache, err := curation.Precompute(context.Background(), c, c.Features())
	require.NoError(t, err)
	assert.Equal(t, c.Graph().Len(), cache.Len())

	cached := curation.NewAutomatic(c, c.Features(), cache)
	direct := curation.NewAutomatic(c, c.Features(), nil)
	for _, r := range c.References() {
		wantGroup, wantOK := direct.SeeAlso(r, nil)
		gotGroup, gotOK := cached.SeeAlso(r, nil)
		assert.Equal(t, wantOK, gotOK, r.Path())
		assert.Equal(t, wantGroup, gotGroup, r.Path())

		wantPath, _ := direct.CanonicalPath(r)
		gotPath, _ := cached.CanonicalPath(r)
		assert.Equal(t, paths(wantPath), paths(gotPath), r.Path())
	}
}

func TestPrecompute_Cancelled(t *testing.T) {
	c := build(t, config.DefaultFeatures())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := curation.Precompute(ctx, c, c.Features())
	require.ErrorIs(t, err, context.Canceled)
}
