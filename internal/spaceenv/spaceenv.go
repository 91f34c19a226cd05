// Package spaceenv defines the environment contract between a baked
// image and the process it starts.
//
// The contract is three variables: PORT (where the application listens),
// HF_SPACE (whether it is running on the hosted platform), and
// MPLCONFIGDIR (where the plotting library keeps its cache). Instead of
// reading the environment ad hoc, consumers construct a [Config] once at
// startup; every lookup has a documented default and malformed values
// fail loudly rather than falling back.
package spaceenv

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/AiCodeCraft/spacebake/internal/errs"
)

// Names of the contract variables.
const (
	EnvPort      = "PORT"
	EnvSpace     = "HF_SPACE"
	EnvPlotCache = "MPLCONFIGDIR"
)

const (

	// Port assumed when PORT is unset.
	DefaultPort = 7860

	// Plot cache location assumed when MPLCONFIGDIR is unset.
	DefaultPlotCache = "/tmp/matplotlib-cache"

	// Permission mode of the plot cache directory. World-writable so the
	// directory stays usable regardless of the UID the runtime assigns.
	CacheMode os.FileMode = 0o777
)

var ErrEnvironment = errors.New("invalid environment")

// Runtime configuration assembled from the process environment.
type Config struct {
	Port      int    // TCP port the application listens on.
	Space     bool   // Whether the process runs on the hosted platform.
	PlotCache string // Directory for the plotting library's cache files.
}

// Returns the configuration an empty environment resolves to.
func Default() Config {
	return Config{
		Port:      DefaultPort,
		Space:     false,
		PlotCache: DefaultPlotCache,
	}
}

// Builds the configuration from the process environment.
func FromEnv() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// Builds the configuration from an arbitrary lookup function with the
// same shape as os.LookupEnv.
//
// Unset variables take their defaults. Set-but-empty MPLCONFIGDIR also
// falls back to the default, since an empty cache path is never usable.
// A malformed PORT or HF_SPACE is an error naming the variable; there is
// no silent fallback for values that were explicitly provided.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if v, ok := lookup(EnvPort); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, errs.Wrapf(ErrEnvironment, "%s: %q is not a number", EnvPort, v)
		}
		if port < 1 || port > 65535 {
			return Config{}, errs.Wrapf(ErrEnvironment, "%s: %d is outside 1-65535", EnvPort, port)
		}
		cfg.Port = port
	}

	if v, ok := lookup(EnvSpace); ok {
		space, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, errs.Wrapf(ErrEnvironment, "%s: %q is not a boolean", EnvSpace, v)
		}
		cfg.Space = space
	}

	if v, ok := lookup(EnvPlotCache); ok && v != "" {
		cfg.PlotCache = v
	}

	return cfg, nil
}

// Renders the configuration back to K=V form, in contract order, for
// passing to child processes.
func (c Config) Environ() []string {
	return []string{
		fmt.Sprintf("%s=%d", EnvPort, c.Port),
		fmt.Sprintf("%s=%s", EnvSpace, strconv.FormatBool(c.Space)),
		fmt.Sprintf("%s=%s", EnvPlotCache, c.PlotCache),
	}
}

// Creates the plot cache directory and opens its permissions.
//
// Must run before the application starts so the plotting library finds a
// writable cache from its first import. Idempotent: an existing
// directory is re-chmodded, not an error.
func (c Config) Provision() error {
	if err := os.MkdirAll(c.PlotCache, CacheMode); err != nil {
		return errs.Wrap(ErrEnvironment, err)
	}

	// MkdirAll filters the mode through the umask; chmod to the full
	// contract mode explicitly.
	if err := os.Chmod(c.PlotCache, CacheMode); err != nil {
		return errs.Wrap(ErrEnvironment, err)
	}

	return nil
}
