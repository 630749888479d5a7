// Command loom is the CLI front end for the orchestration core: it
// loads a team definition, runs it behind an HTTP control surface, and
// offers thin client subcommands to drive a running server's Public
// Surface.
//
// Usage:
//
//	loom serve --config team.yaml
//	loom validate --config team.yaml
//	loom start --server http://localhost:8080 --input name=loom
//	loom subscribe --server http://localhost:8080
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/loomwork/loom"
	logger "github.com/loomwork/loom/logging"
)

// CLI defines the command-line interface.
type CLI struct {
	Version   VersionCmd   `cmd:"" help:"Show version information."`
	Serve     ServeCmd     `cmd:"" help:"Load a team definition and run it behind an HTTP server."`
	Validate  ValidateCmd  `cmd:"" help:"Validate a team definition file."`
	Start     StartCmd     `cmd:"" help:"Start a run on a running server."`
	Pause     PauseCmd     `cmd:"" help:"Pause a running team."`
	Resume    ResumeCmd    `cmd:"" help:"Resume a paused team."`
	Stop      StopCmd      `cmd:"" help:"Stop a running team."`
	Subscribe SubscribeCmd `cmd:"" help:"Stream the live workflow log."`

	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

// activeLogLevel is the global --log-level value, read by ServeCmd to
// report the configured level through GetCleanedState (team.SetLogLevel).
var activeLogLevel string

// VersionCmd prints build version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(loom.GetVersion().String())
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("loom"),
		kong.Description("loom - a task-queue multi-agent workflow orchestrator"),
		kong.UsageOnError(),
	)

	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(1)
	}
	logger.Init(level, os.Stderr, "simple")
	slog.SetDefault(logger.GetLogger())
	activeLogLevel = cli.LogLevel

	if err := ctx.Run(&cli); err != nil {
		ctx.FatalIfErrorf(err)
	}
}
