package build

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/AiCodeCraft/spacebake/internal/descriptor"
	"github.com/AiCodeCraft/spacebake/internal/errs"
	"github.com/AiCodeCraft/spacebake/internal/paths"
	"github.com/AiCodeCraft/spacebake/internal/pull"
	"github.com/AiCodeCraft/spacebake/internal/runtime"
	"github.com/AiCodeCraft/spacebake/internal/store"
)

// Controls descriptor execution.
type Options struct {
	Descriptor *descriptor.Descriptor // Descriptor to bake.
	Context    string                 // Build context directory.
	Output     string                 // Directory for the exported image.
	Tag        string                 // Tag recorded for the image.
	Platform   string                 // Target platform (e.g., "linux/amd64"). Defaults to host.
	NoCache    bool                   // Bypass the rebuild cache.
	Ledger     *store.Store           // Rebuild cache ledger. Nil disables caching.
	Resolver   *pull.Resolver         // Base image resolver. Defaults to the shared XDG cache.
}

// Returned after successful descriptor execution.
type Result struct {
	Archive     string // Path to the exported OCI archive.
	ImageDigest string // Digest of the exported image target.
	Cached      bool   // Whether the archive was reused from the ledger.
}

// The container surface the plan needs. Implemented by
// [runtime.Container]; faked in tests.
type Container interface {
	MkdirAll(ctx context.Context, path string) error
	Chmod(ctx context.Context, path string, mode fs.FileMode) error
	CopyTo(ctx context.Context, r io.Reader, destDir string) error
	Exec(ctx context.Context, argv []string, env []string, workdir string) (*runtime.ExecResult, error)
}

var _ Container = (*runtime.Container)(nil)

// Executes a descriptor against the container runtime.
//
// The seven plan steps run in order against a fresh build container
// started from the resolved base. The result is exported to
// output/image.tar. When a ledger is attached and the build fingerprint
// matches a previous build whose archive still exists, that archive is
// reused instead.
func Run(ctx context.Context, rt *runtime.Runtime, opts Options) (*Result, error) {
	if opts.Platform == "" {
		opts.Platform = runtime.DefaultPlatform()
	}
	if opts.Resolver == nil {
		opts.Resolver = pull.NewResolver(paths.BaseImageCache())
	}

	slog.Info("baking descriptor",
		"base", opts.Descriptor.Base,
		"context", opts.Context,
		"output", opts.Output,
		"tag", opts.Tag,
		"platform", opts.Platform,
	)

	if err := os.MkdirAll(opts.Output, paths.DefaultDirMode); err != nil {
		return nil, errs.Wrap(ErrFileSystemOperation, err)
	}

	return newBake(rt, opts).run(ctx)
}
