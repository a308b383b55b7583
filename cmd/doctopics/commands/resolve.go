package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"git.home.luguber.info/inful/doctopics/internal/doccontext"
	"git.home.luguber.info/inful/doctopics/internal/pathhierarchy"
	"git.home.luguber.info/inful/doctopics/internal/topic"
)

// ResolveCmd implements the 'resolve' command.
type ResolveCmd struct {
	Catalog string `arg:"" help:"Catalog directory, or a directory containing exactly one .docc catalog" type:"path"`
	Link    string `arg:"" help:"Link to resolve, as written in markup (for example Foo/bar(_:))"`
	Scope   string `short:"s" help:"Absolute topic path the link is written on (defaults to the technology root)"`
}

func (r *ResolveCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	docs, err := analyze(context.Background(), r.Catalog, cfg)
	if err != nil {
		return err
	}

	scope := docs.TechnologyRoot()
	if r.Scope != "" {
		scope = topic.ParsePath(docs.Bundle().Identifier, docs.Bundle().DefaultLanguage, r.Scope)
	}
	ref, err := docs.Resolve(r.Link, scope)
	if err != nil {
		printResolutionError(g.Out, err)
		return err
	}
	printResolved(g.Out, docs, ref)
	return nil
}

func printResolved(w io.Writer, docs *doccontext.Context, ref topic.Reference) {
	_, _ = fmt.Fprintln(w, ref.String())
	if e, err := docs.Entity(ref); err == nil {
		_, _ = fmt.Fprintf(w, "  title: %s\n  kind:  %s\n", e.Title, e.Kind.Identifier())
		if e.Source != "" {
			_, _ = fmt.Fprintf(w, "  source: %s\n", e.Source)
		}
	}
}

func printResolutionError(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "unresolved: %v\n", err)
	var re *pathhierarchy.ResolutionError
	if !errors.As(err, &re) {
		return
	}
	if !re.PartialResult.IsZero() {
		_, _ = fmt.Fprintf(w, "  matched up to: %s\n", re.PartialResult.Path())
	}
	for _, c := range re.Candidates {
		_, _ = fmt.Fprintf(w, "  candidate: %s (%s) %s\n", c.Link(), c.Kind.Identifier(), c.Reference.Path())
	}
	for _, s := range re.Suggestions {
		_, _ = fmt.Fprintf(w, "  suggestion: %s\n", s)
	}
}
