package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/doctopics/cmd/doctopics/commands"
	"git.home.luguber.info/inful/doctopics/internal/foundation/errors"
	"git.home.luguber.info/inful/doctopics/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("doctopics"),
		kong.Description("Compile documentation catalogs into curated topic graphs and render units."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(&commands.Global{Out: os.Stdout}),
		kong.Bind(cli),
	)
	if err := ctx.Run(); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
