package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"

	"github.com/AiCodeCraft/spacebake/internal"
	"github.com/AiCodeCraft/spacebake/internal/logging"
	"github.com/AiCodeCraft/spacebake/internal/server"
)

// Represents the root command for the spacebake CLI.
var RootCmd struct {
	Quiet   bool   `short:"q" help:"Suppress informational output."`
	Verbose bool   `short:"v" help:"Enable verbose output."`
	Debug   bool   `short:"d" help:"Enable debug output."`
	Socket  string `short:"s" help:"Override the default daemon socket path." placeholder:"PATH"`

	Build    BuildCmd    `cmd:"" help:"Bake a descriptor into an image archive."`
	Run      RunCmd      `cmd:"" help:"Bake an image and run it."`
	Launch   LaunchCmd   `cmd:"" help:"Run the declared command on the host, image-style."`
	Verify   VerifyCmd   `cmd:"" help:"Check an archive against its descriptor."`
	Inspect  InspectCmd  `cmd:"" help:"Show what an archive declares."`
	Env      EnvCmd      `cmd:"" help:"Show the runtime environment contract."`
	Init     InitCmd     `cmd:"" help:"Write a starter descriptor."`
	History  HistoryCmd  `cmd:"" help:"List recorded builds."`
	Daemon   DaemonCmd   `cmd:"" help:"Run the bake daemon."`
	Status   StatusCmd   `cmd:"" help:"Query the daemon."`
	Shutdown ShutdownCmd `cmd:"" help:"Stop the daemon."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Bakes Python web apps into self-contained container images.\n\nA descriptor file declares the base runtime, dependencies, environment, and startup command; spacebake turns it into an OCI archive and can run the result."),
		kong.UsageOnError(),
		kong.Vars{
			"version":              internal.VersionString(),
			"containerd_address":   server.DefaultContainerdAddress,
			"containerd_namespace": server.DefaultContainerdNamespace,
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
func configureLogger() {
	handler, ok := slog.Default().Handler().(logging.Configurable)
	if !ok {
		return // Not ours, nothing to configure
	}

	debug := RootCmd.Debug || internal.IsDebug()
	quiet := RootCmd.Quiet || internal.IsQuiet()
	verbose := RootCmd.Verbose || internal.IsVerbose()

	if debug || verbose {
		handler.SetLevel(slog.LevelDebug)
	} else if quiet {
		handler.SetLevel(slog.LevelWarn)
	} else {
		handler.SetLevel(slog.LevelInfo)
	}

	handler.SetPretty(isatty.IsTerminal(os.Stderr.Fd()))
	handler.SetStream(os.Stderr)
	handler.Flush()
}
