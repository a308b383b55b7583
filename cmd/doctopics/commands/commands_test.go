package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/doctopics/internal/indexstore"
	"git.home.luguber.info/inful/doctopics/internal/pathhierarchy"
	"git.home.luguber.info/inful/doctopics/internal/storage"
)

const kitGraph = `{
  "metadata": {"formatVersion": {"major": 0, "minor": 6, "patch": 0}, "generator": "test"},
  "module": {"name": "MyKit"},
  "symbols": [
    {"identifier": {"precise": "s:5MyKit3FooV", "interfaceLanguage": "swift"},
     "kind": {"identifier": "swift.struct", "displayName": "Structure"},
     "pathComponents": ["Foo"], "names": {"title": "Foo"}, "accessLevel": "public",
     "docComment": {"lines": [{"text": "A foo."}]}},
    {"identifier": {"precise": "s:5MyKit3FooV3baryyF", "interfaceLanguage": "swift"},
     "kind": {"identifier": "swift.method", "displayName": "Instance Method"},
     "pathComponents": ["Foo", "bar()"], "names": {"title": "bar()"}, "accessLevel": "public",
     "docComment": {"lines": [{"text": "Bars the foo."}]}}
  ],
  "relationships": [
    {"kind": "memberOf", "source": "s:5MyKit3FooV3baryyF", "target": "s:5MyKit3FooV"}
  ]
}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func writeCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "MyKit.docc")
	writeFile(t, filepath.Join(root, "Info.yaml"), "identifier: com.example.MyKit\ndisplay_name: My Kit\n")
	writeFile(t, filepath.Join(root, "MyKit.md"), "# ``MyKit``\n\nA kit.\n")
	writeFile(t, filepath.Join(root, "Articles", "GettingStarted.md"), "# Getting Started\n\nStart with ``Foo``.\n")
	writeFile(t, filepath.Join(root, "MyKit.symbols.json"), kitGraph)
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("doctopics"),
		kong.Vars{"version": "test"},
		kong.Bind(&Global{Out: &out}),
		kong.Bind(cli),
		kong.Exit(func(int) { t.Fatal("unexpected exit") }),
	)
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	err = kctx.Run()
	return out.String(), err
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "doctopics.yaml")

	out, err := run(t, "--config", cfgPath, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "initialized successfully")
	assert.FileExists(t, cfgPath)

	_, err = run(t, "--config", cfgPath, "init")
	require.Error(t, err)

	_, err = run(t, "--config", cfgPath, "init", "--force")
	require.NoError(t, err)
}

func TestCompile_WritesSinksAndReport(t *testing.T) {
	catalogDir := writeCatalog(t)
	work := t.TempDir()
	objects := filepath.Join(work, "objects")
	indexDB := filepath.Join(work, "index.db")
	metricsFile := filepath.Join(work, "doctopics.prom")
	reports := filepath.Join(work, "reports")

	out, err := run(t, "--config", filepath.Join(work, "missing.yaml"),
		"compile", catalogDir,
		"--output", objects,
		"--index-db", indexDB,
		"--metrics-file", metricsFile,
		"--report-dir", reports)
	require.NoError(t, err)

	assert.Contains(t, out, "0 errors")
	assert.Contains(t, out, "bundle=com.example.MyKit")
	assert.FileExists(t, metricsFile)
	assert.FileExists(t, filepath.Join(reports, "compile-report.json"))
	assert.DirExists(t, objects)

	store, err := indexstore.Open(indexDB)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	runs, err := store.Runs(t.Context(), "com.example.MyKit")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	summary, err := store.LinkSummary(t.Context(), runs[0], "doc://com.example.MyKit/documentation/MyKit/Foo")
	require.NoError(t, err)
	assert.Equal(t, "Foo", summary.Title)
}

func TestCompile_PruneKeepsOnlyLatestRun(t *testing.T) {
	catalogDir := writeCatalog(t)
	work := t.TempDir()
	objects := filepath.Join(work, "objects")
	cfg := filepath.Join(work, "missing.yaml")

	_, err := run(t, "--config", cfg, "compile", catalogDir, "--output", objects)
	require.NoError(t, err)
	store, err := storage.NewFSStore(objects)
	require.NoError(t, err)
	first, err := store.List(t.Context(), storage.ObjectTypeRenderUnit)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	writeFile(t, filepath.Join(catalogDir, "MyKit.docc", "Articles", "GettingStarted.md"), "# Getting Started\n\nStart with ``Foo`` today.\n")
	_, err = run(t, "--config", cfg, "compile", catalogDir, "--output", objects, "--prune")
	require.NoError(t, err)

	units, err := store.List(t.Context(), storage.ObjectTypeRenderUnit)
	require.NoError(t, err)
	assert.Len(t, units, len(first))
	manifests, err := store.List(t.Context(), storage.ObjectTypeRunManifest)
	require.NoError(t, err)
	assert.Len(t, manifests, 1)
}

func TestCompile_JSONFormat(t *testing.T) {
	catalogDir := writeCatalog(t)

	out, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "compile", catalogDir, "--format", "json")
	require.NoError(t, err)
	assert.NotContains(t, out, "bundle=")
}

func TestCompile_MissingCatalog(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "compile", t.TempDir())
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	catalogDir := writeCatalog(t)
	cfg := filepath.Join(t.TempDir(), "missing.yaml")

	out, err := run(t, "--config", cfg, "resolve", catalogDir, "Foo/bar()")
	require.NoError(t, err)
	assert.Contains(t, out, "doc://com.example.MyKit/documentation/MyKit/Foo/bar()")

	out, err = run(t, "--config", cfg, "resolve", catalogDir, "bar()", "--scope", "/documentation/MyKit/Foo")
	require.NoError(t, err)
	assert.Contains(t, out, "/documentation/MyKit/Foo/bar()")

	out, err = run(t, "--config", cfg, "resolve", catalogDir, "Fooo")
	var re *pathhierarchy.ResolutionError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, pathhierarchy.NotFound, re.Kind)
	assert.Contains(t, out, "unresolved:")
}

func TestHierarchy(t *testing.T) {
	catalogDir := writeCatalog(t)

	out, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "hierarchy", catalogDir)
	require.NoError(t, err)
	assert.Contains(t, out, "/documentation/MyKit\n")
	assert.Contains(t, out, "  Foo [struct] /documentation/MyKit/Foo")
	assert.Contains(t, out, "    bar() [method] /documentation/MyKit/Foo/bar()")
	assert.Contains(t, out, "  Getting Started [article] /documentation/MyKit/GettingStarted")

	out, err = run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "hierarchy", catalogDir, "--depth", "1")
	require.NoError(t, err)
	assert.NotContains(t, out, "Foo [struct]")
}

func TestShouldIgnoreEvent(t *testing.T) {
	assert.True(t, shouldIgnoreEvent("/cat/.Foo.md.swp"))
	assert.True(t, shouldIgnoreEvent("/cat/Foo.md~"))
	assert.True(t, shouldIgnoreEvent("/cat/#Foo.md#"))
	assert.False(t, shouldIgnoreEvent("/cat/Foo.md"))
}
