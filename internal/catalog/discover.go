package catalog

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/doctopics/internal/foundation/errors"
	"git.home.luguber.info/inful/doctopics/internal/logfields"
	"git.home.luguber.info/inful/doctopics/internal/symbolgraph"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

// Extension is the directory suffix of a documentation catalog.
const Extension = ".docc"

// InfoFileName is the optional catalog metadata file.
const InfoFileName = "Info.yaml"

const (
	markupPattern      = "**/*.md"
	tutorialPattern    = "**/*.tutorial"
	symbolGraphPattern = "**/*.symbols.json"
	assetPattern       = "**/*.{png,jpg,jpeg,gif,svg,webp}"
)

// Info is the catalog metadata read from Info.yaml.
type Info struct {
	Identifier      string `yaml:"identifier"`
	DisplayName     string `yaml:"display_name"`
	DefaultLanguage string `yaml:"default_language"`
}

// Options tunes discovery.
type Options struct {
	// SymbolGraphDirs are extra directories searched for symbol graphs.
	SymbolGraphDirs []string
}

// Find returns the catalog directory for input: input itself when it is a
// .docc directory, otherwise the single .docc directory below it.
func Find(input string) (string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return "", ferrors.NotFoundError("catalog input").Wrap(err).
			Fatal().WithContext("path", input).Build()
	}
	if !info.IsDir() {
		return "", ferrors.WrapError(ErrCatalogNotFound, ferrors.CategoryCatalog, "catalog input is not a directory").
			Fatal().WithContext("path", input).Build()
	}
	if strings.HasSuffix(filepath.Clean(input), Extension) {
		return input, nil
	}

	var found []string
	err = filepath.WalkDir(input, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && p != input && strings.HasSuffix(d.Name(), Extension) {
			found = append(found, p)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryCatalog, "walk catalog input").
			Fatal().WithContext("path", input).Build()
	}
	switch len(found) {
	case 0:
		return "", ferrors.CatalogError("no "+Extension+" directory").Wrap(ErrCatalogNotFound).
			WithContext("path", input).Build()
	case 1:
		return found[0], nil
	default:
		slices.Sort(found)
		return "", ferrors.CatalogError(strings.Join(found, ", ")).Wrap(ErrMultipleCatalogs).
			WithContext("path", input).Build()
	}
}

// Discover finds the catalog for input and loads every input file into a
// Bundle. Malformed symbol graphs are fatal.
func Discover(input string, opts Options) (*Bundle, error) {
	root, err := Find(input)
	if err != nil {
		return nil, err
	}

	info, err := readInfo(root)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(root), Extension)
	b := &Bundle{
		Identifier:      cmp.Or(info.Identifier, name),
		DisplayName:     cmp.Or(info.DisplayName, name),
		DefaultLanguage: topic.LanguageSwift,
		Root:            root,
	}
	if info.DefaultLanguage != "" {
		b.DefaultLanguage = topic.ParseSourceLanguage(info.DefaultLanguage)
	}

	var graphs []string
	err = walk(root, func(rel string) error {
		switch {
		case match(markupPattern, rel):
			f, err := readFile(root, rel)
			if err != nil {
				return err
			}
			b.Markup = append(b.Markup, f)
		case match(tutorialPattern, rel):
			f, err := readFile(root, rel)
			if err != nil {
				return err
			}
			b.Tutorials = append(b.Tutorials, f)
		case match(symbolGraphPattern, rel):
			graphs = append(graphs, filepath.Join(root, filepath.FromSlash(rel)))
		case match(assetPattern, strings.ToLower(rel)):
			b.Assets = append(b.Assets, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, dir := range opts.SymbolGraphDirs {
		err := walk(dir, func(rel string) error {
			if match(symbolGraphPattern, rel) {
				graphs = append(graphs, filepath.Join(dir, filepath.FromSlash(rel)))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	for _, p := range graphs {
		g, err := symbolgraph.Load(p)
		if err != nil {
			return nil, ferrors.RegistrationError("load symbol graph").Wrap(errors.Join(ErrMalformedSymbolGraph, err)).
				WithContext("path", p).Build()
		}
		b.SymbolGraphs = append(b.SymbolGraphs, g)
	}

	slog.Info("Catalog discovered",
		logfields.Bundle(b.Identifier),
		logfields.Path(root),
		slog.Int("markup", len(b.Markup)),
		slog.Int("tutorials", len(b.Tutorials)),
		slog.Int("symbol_graphs", len(b.SymbolGraphs)),
		slog.Int("assets", len(b.Assets)))
	return b, nil
}

func readInfo(root string) (Info, error) {
	var info Info
	data, err := os.ReadFile(filepath.Join(root, InfoFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return info, nil
	}
	if err != nil {
		return info, ferrors.WrapError(err, ferrors.CategoryCatalog, "read "+InfoFileName).Fatal().Build()
	}
	if err := yaml.Unmarshal(data, &info); err != nil {
		return info, ferrors.CatalogError("parse "+InfoFileName).Wrap(err).
			WithContext("path", filepath.Join(root, InfoFileName)).Build()
	}
	return info, nil
}

// walk calls fn with the slash separated relative path of every regular,
// non-hidden file below dir in lexical order.
func walk(dir string, fn func(rel string) error) error {
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && p != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", p, err)
		}
		return fn(filepath.ToSlash(rel))
	})
	if err != nil {
		var ce *ferrors.ClassifiedError
		if errors.As(err, &ce) {
			return err
		}
		return ferrors.FileSystemError("walk catalog").Wrap(err).WithContext("path", dir).Build()
	}
	return nil
}

func readFile(root, rel string) (File, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return File{}, ferrors.FileSystemError("read catalog file").Wrap(err).WithContext("path", rel).Build()
	}
	return File{Path: rel, Content: data}, nil
}

func match(pattern, rel string) bool {
	ok, err := doublestar.Match(pattern, rel)
	return err == nil && ok
}
