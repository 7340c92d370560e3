package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/ironsheep/photo-forensics-mcp/internal/cli"
	"github.com/ironsheep/photo-forensics-mcp/internal/parallel"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var c cli.CLI
	kctx := kong.Parse(&c,
		kong.Name("forensics"),
		kong.Description("Inspect photos for embedded identifying data and produce metadata-free copies."),
		kong.UsageOnError(),
		kong.Vars{"version": Version + " (built " + BuildTime + ", commit " + GitCommit + ")"},
	)

	env, err := c.Setup(os.Stderr)
	kctx.FatalIfErrorf(err)
	slog.SetDefault(env.Logger)

	pool := parallel.Start(env.Config.Workers)
	kctx.FatalIfErrorf(kctx.Run(env, pool.Do, pool.Wait))
}
