package build

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/AiCodeCraft/spacebake/internal/descriptor"
	"github.com/AiCodeCraft/spacebake/internal/errs"
	"github.com/AiCodeCraft/spacebake/internal/paths"
	"github.com/AiCodeCraft/spacebake/internal/pull"
	"github.com/AiCodeCraft/spacebake/internal/runtime"
	"github.com/AiCodeCraft/spacebake/internal/store"
)

// Holds shared state for baking a single descriptor.
type bake struct {
	rt         *runtime.Runtime       // Container runtime for image and container operations.
	desc       *descriptor.Descriptor // Descriptor being baked.
	context    string                 // Build context directory.
	output     string                 // Output directory for the final artifact.
	tag        string                 // Tag recorded for the image.
	platform   string                 // Target platform.
	noCache    bool                   // Bypass the rebuild cache.
	ledger     *store.Store           // Rebuild cache ledger, may be nil.
	resolver   *pull.Resolver         // Base image resolver.
	containers []*runtime.Container   // Build containers, destroyed when the bake completes.
}

// Creates a new [bake] from the given options.
func newBake(rt *runtime.Runtime, opts Options) *bake {
	return &bake{
		rt:       rt,
		desc:     opts.Descriptor,
		context:  opts.Context,
		output:   opts.Output,
		tag:      opts.Tag,
		platform: opts.Platform,
		noCache:  opts.NoCache,
		ledger:   opts.Ledger,
		resolver: opts.Resolver,
	}
}

// Bakes the descriptor end-to-end against the container runtime.
//
// The base is resolved first so the build fingerprint (base digest,
// descriptor digest, context tree digest) can be computed before any
// container work. A ledger hit short-circuits to the recorded archive.
// Otherwise the plan runs in a fresh container, the result is exported,
// and the ledger is updated. The build container is destroyed when the
// bake completes, successful or not.
func (b *bake) run(ctx context.Context) (*Result, error) {
	defer b.destroyContainers(ctx)

	archive, baseDigest, err := b.resolver.Resolve(ctx, b.desc.Base, b.platform)
	if err != nil {
		return nil, errs.Wrap(ErrBaseResolve, err)
	}

	fp, err := b.fingerprint(baseDigest)
	if err != nil {
		return nil, err
	}

	if result, ok := b.reuse(fp); ok {
		return result, nil
	}

	ctr, err := b.rt.StartContainer(ctx, archive, b.containerID(), b.platform)
	if err != nil {
		return nil, errs.Wrapf(ErrBaseResolve, "start on %s: %w", b.desc.Base, err)
	}
	b.containers = append(b.containers, ctr)

	state, err := executePlan(ctx, ctr, b.desc, b.context)
	if err != nil {
		return nil, err
	}

	if err := ctr.Stop(ctx); err != nil {
		return nil, errs.Wrap(runtime.ErrRuntime, err)
	}

	exported, imageDigest, err := ctr.Export(ctx, b.output, state.image())
	if err != nil {
		return nil, errs.Wrap(runtime.ErrRuntime, err)
	}

	b.record(fp, baseDigest, exported, imageDigest)

	return &Result{
		Archive:     exported,
		ImageDigest: imageDigest.String(),
	}, nil
}

// Computes the build fingerprint from the resolved base digest, the
// descriptor digest, and the context tree digest.
func (b *bake) fingerprint(baseDigest digest.Digest) (digest.Digest, error) {
	descDigest, err := b.desc.Digest()
	if err != nil {
		return "", err
	}

	treeDigest, err := TreeDigest(b.context)
	if err != nil {
		return "", errs.Wrap(ErrFileSystemOperation, err)
	}

	return fingerprint(baseDigest, descDigest, treeDigest), nil
}

// Checks the ledger for a previous build with the same fingerprint and
// materializes its archive into the output directory on a hit.
//
// Cache handling never fails the build: a broken ledger logs a warning
// and the bake proceeds as a miss.
func (b *bake) reuse(fp digest.Digest) (*Result, bool) {
	if b.noCache || b.ledger == nil {
		return nil, false
	}

	rec, ok, err := b.ledger.Lookup(fp.String())
	if err != nil {
		slog.Warn("ledger lookup failed", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	out := filepath.Join(b.output, "image.tar")
	if err := copyFile(rec.Archive, out); err != nil {
		slog.Warn("cached archive unusable", "path", rec.Archive, "error", err)
		return nil, false
	}

	slog.Info("reusing cached build", "fingerprint", fp, "archive", rec.Archive)

	return &Result{
		Archive:     out,
		ImageDigest: rec.ImageDigest,
		Cached:      true,
	}, true
}

// Archives the exported image under the build cache and records the
// build in the ledger. Failures are logged, not returned: the build
// itself has already succeeded.
func (b *bake) record(fp, baseDigest digest.Digest, exported string, imageDigest digest.Digest) {
	if b.ledger == nil {
		return
	}

	cached := filepath.Join(paths.BuildCache(), fp.Encoded()+".tar")
	if err := os.MkdirAll(paths.BuildCache(), paths.DefaultDirMode); err != nil {
		slog.Warn("failed to create build cache directory", "error", err)
		return
	}
	if err := copyFile(exported, cached); err != nil {
		slog.Warn("failed to archive build", "error", err)
		return
	}

	rec := store.Record{
		Key:         fp.String(),
		Tag:         b.tag,
		Archive:     cached,
		ImageDigest: imageDigest.String(),
		BaseDigest:  baseDigest.String(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := b.ledger.Put(rec); err != nil {
		slog.Warn("failed to record build", "error", err)
	}
}

// Destroys all build containers.
func (b *bake) destroyContainers(ctx context.Context) {
	for _, ctr := range b.containers {
		ctr.Destroy(ctx)
	}
}

// Returns a unique container ID for this bake, scoped to tag and platform.
func (b *bake) containerID() string {
	return fmt.Sprintf("bake-%s-%s", slugify(b.tag), slugify(b.platform))
}

// Converts a tag or platform string to a containerd-safe slug.
func slugify(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, s)
}

// Combines the build input digests into the rebuild cache key.
func fingerprint(base, desc, tree digest.Digest) digest.Digest {
	d := digest.SHA256.Digester()
	io.WriteString(d.Hash(), base.String()+"\n"+desc.String()+"\n"+tree.String()+"\n")
	return d.Digest()
}

// Copies a file, creating or truncating the destination.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, paths.DefaultFileMode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
