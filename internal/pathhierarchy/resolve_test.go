package pathhierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/doctopics/internal/config"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

const bundle = "com.example.MyKit"

func ref(path string) topic.Reference {
	return topic.ParsePath(bundle, topic.LanguageSwift, path)
}

func fixture(t *testing.T) *Hierarchy {
	t.Helper()
	h := New(bundle, config.DefaultFeatures())
	h.Add(ref("/documentation/MyKit"), topic.KindModule, "MyKit")
	h.Add(ref("/documentation/MyKit/Foo"), topic.KindStructure, "s:Foo")
	h.Add(ref("/documentation/MyKit/Foo/bar()"), topic.KindInstanceMethod, "s:Foo.bar")
	h.Add(ref("/documentation/MyKit/Foo/init()"), topic.KindInitializer, "s:Foo.init")
	h.Add(ref("/documentation/MyKit/Baz"), topic.KindClass, "s:Baz")
	h.Add(ref("/documentation/MyKit/Alias"), topic.KindTypeAlias, "s:Alias")
	h.Add(ref("/documentation/MyKit/GettingStarted"), topic.KindArticle, "")
	h.Add(ref("/tutorials/MyKit/BuildingApps"), topic.KindTutorial, "")
	return h
}

func resolve(t *testing.T, h *Hierarchy, link string, scope topic.Reference) string {
	t.Helper()
	r, err := h.Resolve(link, scope)
	require.NoError(t, err, link)
	s := r.Path()
	if r.Fragment != "" {
		s += "#" + r.Fragment
	}
	return s
}

func TestResolve_LinkForms(t *testing.T) {
	h := fixture(t)
	foo := ref("/documentation/MyKit/Foo")
	tests := []struct {
		link  string
		scope topic.Reference
		want  string
	}{
		{"doc:Foo", foo, "/documentation/MyKit/Foo"},
		{"bar()", foo, "/documentation/MyKit/Foo/bar()"},
		{"Foo/bar()", ref("/documentation/MyKit/GettingStarted"), "/documentation/MyKit/Foo/bar()"},
		{"MyKit/Foo", topic.Reference{}, "/documentation/MyKit/Foo"},
		{"/MyKit/Foo/bar()", topic.Reference{}, "/documentation/MyKit/Foo/bar()"},
		{"doc:/documentation/MyKit/Baz", topic.Reference{}, "/documentation/MyKit/Baz"},
		{"doc://com.example.MyKit/documentation/MyKit/Baz", topic.Reference{}, "/documentation/MyKit/Baz"},
		{"doc:Foo#Overview", foo, "/documentation/MyKit/Foo#Overview"},
		{"#Discussion", foo, "/documentation/MyKit/Foo#Discussion"},
		{"GettingStarted", topic.Reference{}, "/documentation/MyKit/GettingStarted"},
		{"BuildingApps", foo, "/tutorials/MyKit/BuildingApps"},
		{"doc:/tutorials/MyKit/BuildingApps", topic.Reference{}, "/tutorials/MyKit/BuildingApps"},
		{"Foo-struct", foo, "/documentation/MyKit/Foo"},
		{"Foo-swift.struct/bar()", foo, "/documentation/MyKit/Foo/bar()"},
		{"MyKit", foo, "/documentation/MyKit"},
		{"init()", ref("/documentation/MyKit/Foo/bar()"), "/documentation/MyKit/Foo/init()"},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			assert.Equal(t, tt.want, resolve(t, h, tt.link, tt.scope))
		})
	}
}

func TestResolve_ArticleBeatsTutorialAndSymbol(t *testing.T) {
	build := func() *Hierarchy {
		h := New(bundle, config.DefaultFeatures())
		h.Add(ref("/documentation/MyKit"), topic.KindModule, "MyKit")
		h.Add(ref("/documentation/MyKit/Widgets"), topic.KindStructure, "s:Widgets")
		h.Add(ref("/tutorials/MyKit/Widgets"), topic.KindTutorial, "")
		return h
	}
	scope := ref("/documentation/MyKit")

	h := build()
	got, err := h.Resolve("doc:Widgets", scope)
	require.NoError(t, err)
	assert.True(t, got.IsTutorials(), "tutorial should beat symbol, got %s", got.Path())

	h = build()
	h.Add(ref("/documentation/Guides/Widgets"), topic.KindArticle, "")
	got, err = h.Resolve("doc:Widgets", scope)
	require.NoError(t, err)
	assert.Equal(t, "/documentation/Guides/Widgets", got.Path())

	// The symbol stays reachable through its parent.
	assert.Equal(t, "/documentation/MyKit/Widgets", resolve(t, h, "/MyKit/Widgets", topic.Reference{}))
}

func TestResolve_SameKindSameNameUsesHash(t *testing.T) {
	h := New(bundle, config.DefaultFeatures())
	h.Add(ref("/documentation/MyKit"), topic.KindModule, "MyKit")
	h.Add(ref("/documentation/MyKit/Foo"), topic.KindStructure, "s:Foo")
	hashA, hashB := ShortHash("s:Foo.bar.A"), ShortHash("s:Foo.bar.B")
	require.NotEqual(t, hashA, hashB)
	h.AddNamed(ref("/documentation/MyKit/Foo/bar()-"+hashA), "bar()", topic.KindInstanceMethod, "s:Foo.bar.A")
	h.AddNamed(ref("/documentation/MyKit/Foo/bar()-"+hashB), "bar()", topic.KindInstanceMethod, "s:Foo.bar.B")

	_, err := h.Resolve("Foo/bar()", topic.Reference{})
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, Ambiguous, re.Kind)
	require.Len(t, re.Candidates, 2)

	got := []string{re.Candidates[0].Disambiguation, re.Candidates[1].Disambiguation}
	assert.ElementsMatch(t, []string{hashA, hashB}, got)
	assert.Less(t, got[0], got[1])

	for _, c := range re.Candidates {
		resolved, err := h.Resolve("Foo/"+c.Link(), topic.Reference{})
		require.NoError(t, err)
		assert.Equal(t, c.Reference, resolved)
	}
}

func TestResolve_KindDisambiguation(t *testing.T) {
	h := New(bundle, config.DefaultFeatures())
	h.Add(ref("/documentation/MyKit"), topic.KindModule, "MyKit")
	// The child arrives before its parent and hangs below a placeholder.
	h.Add(ref("/documentation/MyKit/Shape-protocol/area"), topic.KindInstanceProperty, "s:ShapeP.area")
	h.AddNamed(ref("/documentation/MyKit/Shape-struct"), "Shape", topic.KindStructure, "s:ShapeS")
	h.AddNamed(ref("/documentation/MyKit/Shape-protocol"), "Shape", topic.KindProtocol, "s:ShapeP")
	scope := ref("/documentation/MyKit")

	_, err := h.Resolve("Shape", scope)
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	require.Equal(t, Ambiguous, re.Kind)
	require.Len(t, re.Candidates, 2)
	assert.Equal(t, []string{"Shape-protocol", "Shape-struct"}, []string{re.Candidates[0].Link(), re.Candidates[1].Link()})
	assert.Contains(t, re.Error(), "use one of Shape-protocol, Shape-struct")

	got, err := h.Resolve("Shape-protocol", scope)
	require.NoError(t, err)
	assert.Equal(t, "/documentation/MyKit/Shape-protocol", got.Path())
	assert.Equal(t, "protocol", h.Disambiguation(got))
	assert.Equal(t, "/MyKit/Shape-protocol", h.LinkPath(got))

	// Only the protocol has the child, so the bare name is enough mid-path.
	assert.Equal(t, "/documentation/MyKit/Shape-protocol/area", resolve(t, h, "Shape/area", scope))
	assert.Equal(t, "/MyKit/Shape-protocol/area", h.LinkPath(ref("/documentation/MyKit/Shape-protocol/area")))
}

func TestResolve_BaseNameMatching(t *testing.T) {
	build := func(features config.Features) *Hierarchy {
		h := New(bundle, features)
		h.Add(ref("/documentation/MyKit"), topic.KindModule, "MyKit")
		h.Add(ref("/documentation/MyKit/Foo"), topic.KindStructure, "s:Foo")
		h.Add(ref("/documentation/MyKit/Foo/foo()"), topic.KindInstanceMethod, "s:Foo.foo")
		h.Add(ref("/documentation/MyKit/Foo/foo(_:)"), topic.KindInstanceMethod, "s:Foo.foo_")
		h.Add(ref("/documentation/MyKit/Foo/only(_:)"), topic.KindInstanceMethod, "s:Foo.only")
		return h
	}
	scope := ref("/documentation/MyKit/Foo")

	h := build(config.DefaultFeatures())
	_, err := h.Resolve("foo", scope)
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	require.Equal(t, Ambiguous, re.Kind)
	require.Len(t, re.Candidates, 2)
	seen := map[string]bool{}
	for _, c := range re.Candidates {
		assert.Equal(t, "foo", c.Name)
		assert.Equal(t, ShortHash(map[string]string{
			"/documentation/MyKit/Foo/foo()":   "s:Foo.foo",
			"/documentation/MyKit/Foo/foo(_:)": "s:Foo.foo_",
		}[c.Reference.Path()]), c.Disambiguation)
		assert.Equal(t, "foo-"+c.Disambiguation, c.Link())
		seen[c.Disambiguation] = true
		assert.Equal(t, c.Reference.Path(), resolve(t, h, c.Link(), scope), "candidate link resolves back")
	}
	assert.Len(t, seen, 2, "suffixes are distinct")

	assert.Equal(t, "/documentation/MyKit/Foo/foo()", resolve(t, h, "foo()", scope))
	assert.Equal(t, "/documentation/MyKit/Foo/foo(_:)", resolve(t, h, "foo(_:)", scope))
	assert.Equal(t, "/documentation/MyKit/Foo/only(_:)", resolve(t, h, "only", scope))

	off := config.DefaultFeatures()
	off.ParametersDisambiguation = false
	_, err = build(off).Resolve("only", scope)
	require.ErrorAs(t, err, &re)
	assert.Equal(t, NotFound, re.Kind)
}

func TestResolve_TypeAliasMembersOnlyViaUnderlyingType(t *testing.T) {
	h := fixture(t)
	scope := ref("/documentation/MyKit")

	assert.Equal(t, "/documentation/MyKit/Alias", resolve(t, h, "Alias", scope))
	assert.Equal(t, "/documentation/MyKit/Foo/bar()", resolve(t, h, "Foo/bar()", scope))

	_, err := h.Resolve("Alias/bar()", scope)
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, NotFound, re.Kind)
	assert.Equal(t, "/documentation/MyKit/Alias", re.PartialResult.Path())
	assert.Equal(t, []string{"bar()"}, re.Remaining)
}

func TestResolve_NotFoundSuggestions(t *testing.T) {
	h := fixture(t)
	_, err := h.Resolve("Foo/baz()", ref("/documentation/MyKit"))
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, NotFound, re.Kind)
	assert.Equal(t, []string{"bar()"}, re.Suggestions)
	assert.Contains(t, re.Error(), `did you mean bar()?`)

	_, err = h.Resolve("Fooo", ref("/documentation/MyKit"))
	require.ErrorAs(t, err, &re)
	assert.Contains(t, re.Suggestions, "Foo")
}

func TestResolve_PlaceholderIsNotLinkable(t *testing.T) {
	h := New(bundle, config.DefaultFeatures())
	h.Add(ref("/documentation/MyKit/Outer/Inner"), topic.KindStructure, "s:Inner")

	_, err := h.Resolve("/MyKit/Outer", topic.Reference{})
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, NotLinkable, re.Kind)
	assert.Equal(t, "/documentation/MyKit/Outer", re.PartialResult.Path())

	assert.Equal(t, "/documentation/MyKit/Outer/Inner", resolve(t, h, "/MyKit/Outer/Inner", topic.Reference{}))
	assert.False(t, h.Contains(ref("/documentation/MyKit/Outer")))
	assert.True(t, h.Contains(ref("/documentation/MyKit/Outer/Inner")))
}

func TestResolve_OtherBundleNotFound(t *testing.T) {
	h := fixture(t)
	_, err := h.Resolve("doc://org.other/documentation/Other/Thing", topic.Reference{})
	var re *ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, NotFound, re.Kind)
}

func TestParseLink(t *testing.T) {
	p := parseLink("doc://b/documentation/MyKit/Foo#frag")
	assert.Equal(t, "b", p.bundle)
	assert.True(t, p.absolute)
	assert.Equal(t, topic.DocumentationRoot, p.root)
	assert.Equal(t, []string{"MyKit", "Foo"}, p.components)
	assert.Equal(t, "frag", p.fragment)

	p = parseLink("Vector//(_:_:)")
	assert.False(t, p.absolute)
	assert.Equal(t, []string{"Vector", "/(_:_:)"}, p.components)
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, []string{"bar()", "baz()"}, suggest("bax()", []string{"baz()", "bar()", "unrelated", "bar()"}))
	assert.Empty(t, suggest("x", []string{"completely-different"}))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
	assert.Equal(t, 0, levenshtein("", ""))
}

func TestShortHash_Stable(t *testing.T) {
	assert.Equal(t, ShortHash("s:5MyKit3FooV"), ShortHash("s:5MyKit3FooV"))
	assert.NotContains(t, ShortHash("s:5MyKit3FooV"), "-")
}
