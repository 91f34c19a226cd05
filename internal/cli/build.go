package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/AiCodeCraft/spacebake/internal/build"
	"github.com/AiCodeCraft/spacebake/internal/client"
	"github.com/AiCodeCraft/spacebake/internal/descriptor"
	"github.com/AiCodeCraft/spacebake/internal/paths"
	"github.com/AiCodeCraft/spacebake/internal/protocol"
	"github.com/AiCodeCraft/spacebake/internal/runtime"
	"github.com/AiCodeCraft/spacebake/internal/store"
	"github.com/AiCodeCraft/spacebake/internal/watch"
)

// Editors burst rename-write-chmod sequences; wait for the tree to
// settle before rebaking.
const watchSettle = 300 * time.Millisecond

// Represents the 'spacebake build' command.
type BuildCmd struct {
	Context   string `arg:"" optional:"" default:"." help:"Build context directory." type:"path"`
	File      string `short:"f" help:"Descriptor path. Defaults to spacebake.yaml inside the context." placeholder:"PATH" type:"path"`
	Output    string `short:"o" default:"dist" help:"Directory for the exported archive." type:"path"`
	Tag       string `short:"t" help:"Tag recorded for the image. Defaults to the context directory name."`
	Platform  string `help:"Target platform such as linux/amd64. Defaults to the host."`
	NoCache   bool   `help:"Bypass the rebuild cache."`
	Watch     bool   `short:"w" help:"Rebake whenever the context changes."`
	Remote    bool   `help:"Send the build to the daemon instead of baking in-process."`
	Address   string `help:"Containerd socket address." default:"${containerd_address}"`
	Namespace string `help:"Containerd namespace." default:"${containerd_namespace}"`
}

func (c *BuildCmd) Run(ctx context.Context) error {
	if c.Watch {
		return c.watchLoop(ctx)
	}

	result, err := c.bake(ctx)
	if err != nil {
		return err
	}

	fmt.Println(result.Archive)
	return nil
}

// Runs one build, either in-process or through the daemon.
func (c *BuildCmd) bake(ctx context.Context) (*protocol.BuildResult, error) {
	tag := c.Tag
	if tag == "" {
		tag = defaultTag(c.Context)
	}

	if c.Remote {
		// Paths are absolute by the time kong hands them over, so the
		// daemon resolves them the same way we would.
		return client.New(RootCmd.Socket).Build(&protocol.BuildRequest{
			Descriptor: descriptorPath(c.File, c.Context),
			Context:    c.Context,
			Output:     c.Output,
			Tag:        tag,
			Platform:   c.Platform,
			NoCache:    c.NoCache,
		})
	}

	desc, err := descriptor.Load(descriptorPath(c.File, c.Context))
	if err != nil {
		return nil, err
	}

	rt, err := runtime.New(c.Address, c.Namespace)
	if err != nil {
		return nil, err
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
		return nil, err
	}

	slog.Info("baked", "archive", result.Archive, "digest", result.ImageDigest, "cached", result.Cached)

	return &protocol.BuildResult{
		Archive:     result.Archive,
		ImageDigest: result.ImageDigest,
		Cached:      result.Cached,
	}, nil
}

// Bakes, then rebakes every time the context or descriptor changes,
// until ctx is cancelled. A failed bake keeps the loop alive so the
// next save gets another attempt.
func (c *BuildCmd) watchLoop(ctx context.Context) error {
	watched := []string{c.Context}
	if c.File != "" {
		watched = append(watched, c.File)
	}

	for {
		if result, err := c.bake(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("bake failed, watching for changes", "error", err)
		} else {
			fmt.Println(result.Archive)
		}

		wctx, cancel, err := watch.UntilChange(ctx, watched...)
		if err != nil {
			return err
		}
		<-wctx.Done()
		cancel()

		if ctx.Err() != nil {
			return nil
		}

		slog.Info("context changed, rebaking", "cause", context.Cause(wctx))
		time.Sleep(watchSettle)
	}
}

// Returns the descriptor path: an explicit file wins, otherwise the
// default name inside the context directory.
func descriptorPath(file, contextDir string) string {
	if file != "" {
		return file
	}
	return filepath.Join(contextDir, descriptor.DefaultName)
}

// Derives an image tag from the context directory name.
func defaultTag(contextDir string) string {
	base := strings.ToLower(filepath.Base(contextDir))
	if base == "." || base == "/" || base == "" {
		base = "space"
	}
	return base + ":latest"
}

// Opens the build ledger, or returns nil with a warning. Caching is an
// optimization, never a prerequisite for building.
func openLedger() *store.Store {
	ledger, err := store.Open(paths.Ledger())
	if err != nil {
		slog.Warn("build ledger unavailable, caching disabled", "error", err)
		return nil
	}
	return ledger
}
