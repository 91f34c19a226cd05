package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/AiCodeCraft/spacebake/internal/build"
	"github.com/AiCodeCraft/spacebake/internal/descriptor"
	"github.com/AiCodeCraft/spacebake/internal/runtime"
)

// Represents the 'spacebake run' command.
type RunCmd struct {
	Context   string   `arg:"" optional:"" default:"." help:"Build context directory." type:"path"`
	File      string   `short:"f" help:"Descriptor path. Defaults to spacebake.yaml inside the context." placeholder:"PATH" type:"path"`
	Output    string   `short:"o" default:"dist" help:"Directory for the exported archive." type:"path"`
	Tag       string   `short:"t" help:"Tag recorded for the image. Defaults to the context directory name."`
	Platform  string   `help:"Target platform such as linux/amd64. Defaults to the host."`
	NoCache   bool     `help:"Bypass the rebuild cache."`
	Env       []string `short:"e" help:"Environment overrides for the run (K=V)." placeholder:"K=V"`
	Address   string   `help:"Containerd socket address." default:"${containerd_address}"`
	Namespace string   `help:"Containerd namespace." default:"${containerd_namespace}"`
}

func (c *RunCmd) Run(ctx context.Context) error {
	for _, kv := range c.Env {
		if !strings.Contains(kv, "=") {
			return fmt.Errorf("environment override %q is not K=V", kv)
		}
	}

	tag := c.Tag
	if tag == "" {
		tag = defaultTag(c.Context)
	}

	desc, err := descriptor.Load(descriptorPath(c.File, c.Context))
	if err != nil {
		return err
	}

	rt, err := runtime.New(c.Address, c.Namespace)
	if err != nil {
		return err
	}
	defer rt.Close()

	ledger := openLedger()
	if ledger != nil {
		defer ledger.Close()
	}

	result, err := build.Run(ctx, rt, build.Options{
		Descriptor: desc,
		Context:    c.Context,
		Output:     c.Output,
		Tag:        tag,
		Platform:   c.Platform,
		NoCache:    c.NoCache,
		Ledger:     ledger,
	})
	if err != nil {
		return err
	}

	slog.Info("starting application", "archive", result.Archive, "tag", tag)

	code, err := rt.RunApp(ctx, result.Archive, "run-"+slugify(tag), c.Env, os.Stdout, os.Stderr)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// Reduces a tag to a containerd-safe container ID fragment.
func slugify(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, s)
	return strings.Trim(mapped, "-")
}
