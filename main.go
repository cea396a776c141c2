package main

import (
	"log/slog"
	"os"

	"qoiproc/convert"
	"qoiproc/parallel"

	"github.com/alecthomas/kong"
)

var cli struct {
	Jobs int `help:"Number of parallel workers, 0 for one per CPU" short:"j" default:"0"`

	convert.CLICmd
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("qoiproc"),
		kong.Description("Convert images to and from the QOI format"),
		kong.UsageOnError(),
	)

	pool := parallel.Start(cli.Jobs)
	if err := kctx.Run(kctx.Selected().Name, pool); err != nil {
		slog.Error("processing failed", "error", err)
		os.Exit(1)
	}
}
