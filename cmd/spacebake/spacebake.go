package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/AiCodeCraft/spacebake/internal"
	"github.com/AiCodeCraft/spacebake/internal/cli"
	"github.com/AiCodeCraft/spacebake/internal/logging"
)

// The entry point for the spacebake CLI.
//
// Initializes logging, displays startup information, and executes the root
// command. If any error occurs during execution, it exits with a non-zero code.
// An application run through 'run' or 'launch' passes its own exit code
// through unchanged.
func main() {
	slog.SetDefault(logger())

	slog.Debug("build", "version", internal.VersionString())

	slog.Debug("spacebake is running",
		"pid", os.Getpid(),
		"cwd", cwd(),
		"args", os.Args,
	)

	if err := cli.Execute(); err != nil {
		var exit *cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}

		slog.Error(err.Error())
		os.Exit(1)
	}
}

// Creates a buffered logger seeded from build-time linker flags.
//
// The logger is reconfigured after flag parsing via cli.Execute.
func logger() *slog.Logger {
	handler := logging.NewHandler()
	handler.SetLevel(internal.LogLevel())
	return slog.New(handler.WithGroup(internal.Name))
}

// Returns the current working directory or "(unknown)".
func cwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "(unknown)"
	}
	return cwd
}
