// Package launch runs a descriptor's command on the host, shaped the
// way the built image would run it: same working directory semantics,
// same environment literals, cache directory provisioned first.
package launch

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/AiCodeCraft/spacebake/internal/descriptor"
	"github.com/AiCodeCraft/spacebake/internal/errs"
	"github.com/AiCodeCraft/spacebake/internal/spaceenv"
)

// How long a cancelled launch waits for the child to honor SIGTERM
// before it is killed.
const stopGrace = 10 * time.Second

// Controls a launch.
type Options struct {
	Descriptor *descriptor.Descriptor
	Dir        string    // Working directory for the process, normally the build context.
	Env        []string  // Extra K=V overrides, highest precedence.
	Stdout     io.Writer // Defaults to os.Stdout.
	Stderr     io.Writer // Defaults to os.Stderr.
}

// Runs the descriptor's command until it exits or ctx is cancelled, and
// returns its exit code.
//
// The child environment is the parent environment with the descriptor's
// literals layered on top and opts.Env above both. The runtime contract
// is parsed from that final environment, so a malformed PORT refuses
// the launch instead of starting a child that will misread it. The
// cache directory is provisioned before the process starts.
//
// Cancelling ctx sends the child SIGTERM and the exit code is returned
// alongside ctx's error.
func Run(ctx context.Context, opts Options) (int, error) {
	d := opts.Descriptor
	if d == nil || len(d.Command) == 0 {
		return -1, errs.Wrapf(ErrLaunch, "nothing to launch")
	}

	env := mergeEnv(os.Environ(), d.Environ(), opts.Env)

	cfg, err := spaceenv.FromLookup(lookupIn(env))
	if err != nil {
		return -1, err
	}

	if err := cfg.Provision(); err != nil {
		return -1, err
	}
	if d.Cache.Path != cfg.PlotCache {
		if err := provision(d.Cache.Path, fs.FileMode(d.Cache.Mode)); err != nil {
			return -1, err
		}
	}

	slog.Info("launching", "command", d.Command, "dir", opts.Dir, "port", cfg.Port)

	cmd := exec.CommandContext(ctx, d.Command[0], d.Command[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = env
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = stopGrace

	err = cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if ctx.Err() != nil {
				return exitErr.ExitCode(), ctx.Err()
			}
			return exitErr.ExitCode(), nil
		}
		return -1, errs.Wrap(ErrLaunch, err)
	}

	return 0, nil
}

// Creates a directory with an explicit mode, umask notwithstanding.
func provision(path string, mode fs.FileMode) error {
	if err := os.MkdirAll(path, mode); err != nil {
		return errs.Wrap(ErrLaunch, err)
	}
	if err := os.Chmod(path, mode); err != nil {
		return errs.Wrap(ErrLaunch, err)
	}
	return nil
}

// Merges K=V lists; later lists win on key conflicts, first-appearance
// order is preserved.
func mergeEnv(layers ...[]string) []string {
	var out []string
	index := map[string]int{}

	for _, layer := range layers {
		for _, kv := range layer {
			key, _, _ := strings.Cut(kv, "=")
			if i, ok := index[key]; ok {
				out[i] = kv
				continue
			}
			index[key] = len(out)
			out = append(out, kv)
		}
	}

	return out
}

// Adapts a merged K=V list to the lookup shape the contract parser
// wants.
func lookupIn(env []string) func(string) (string, bool) {
	values := map[string]string{}
	for _, kv := range env {
		key, value, _ := strings.Cut(kv, "=")
		values[key] = value
	}

	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}
