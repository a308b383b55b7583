package commands

import (
	"context"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/doctopics/internal/topicgraph"
)

// HierarchyCmd implements the 'hierarchy' command.
type HierarchyCmd struct {
	Catalog string `arg:"" help:"Catalog directory, or a directory containing exactly one .docc catalog" type:"path"`
	Depth   int    `short:"d" help:"Maximum depth to print; 0 prints everything" default:"0"`
}

func (h *HierarchyCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	docs, err := analyze(context.Background(), h.Catalog, cfg)
	if err != nil {
		return err
	}

	graph := docs.Graph()
	for _, r := range graph.Roots() {
		err := graph.Walk(r, func(n topicgraph.Node, depth int) bool {
			line := fmt.Sprintf("%s%s [%s] %s", strings.Repeat("  ", depth), n.Title, n.Kind.Identifier(), n.Reference.Path())
			if n.IsVirtual {
				line += " (virtual)"
			}
			_, _ = fmt.Fprintln(g.Out, line)
			return h.Depth <= 0 || depth+1 < h.Depth
		})
		if err != nil {
			return err
		}
	}
	return nil
}
