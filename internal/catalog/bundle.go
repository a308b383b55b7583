// Package catalog finds a documentation catalog on disk and loads its inputs
// into a Bundle: authored markup files, tutorials, symbol graphs and assets.
package catalog

import (
	"path"
	"strings"

	"git.home.luguber.info/inful/doctopics/internal/symbolgraph"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

// File is an authored input file.
type File struct {
	// Path is relative to the catalog root and uses forward slashes.
	Path    string
	Content []byte
}

// Name returns the file name without directory and extension.
func (f File) Name() string {
	base := path.Base(f.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

// Bundle is everything one compilation consumes.
type Bundle struct {
	Identifier      string
	DisplayName     string
	DefaultLanguage topic.SourceLanguage
	// Root is the catalog directory on disk, empty for in-memory bundles.
	Root string

	// Markup holds articles and documentation extensions.
	Markup       []File
	Tutorials    []File
	SymbolGraphs []*symbolgraph.Graph
	Assets       []string
}

// InputCount returns the number of inputs registration will walk.
func (b *Bundle) InputCount() int {
	return len(b.Markup) + len(b.Tutorials) + len(b.SymbolGraphs)
}
