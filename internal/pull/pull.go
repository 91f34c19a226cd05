// Package pull resolves base image references to local OCI archives.
//
// A base naming an existing file on the host is used as-is. Anything
// else is treated as a registry reference: the image is pulled once,
// written into the cache directory as a tarball, and served from there
// on later resolves, including fully offline ones.
package pull

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	gcr "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
	"github.com/opencontainers/go-digest"

	"github.com/AiCodeCraft/spacebake/internal"
	"github.com/AiCodeCraft/spacebake/internal/errs"
	"github.com/AiCodeCraft/spacebake/internal/paths"
)

// Resolves bases against the host filesystem, a tarball cache, and the
// registry, in that order.
type Resolver struct {
	cacheDir string // Directory holding pulled tarballs.
}

// Creates a [Resolver] backed by the given cache directory.
func NewResolver(cacheDir string) *Resolver {
	return &Resolver{cacheDir: cacheDir}
}

// Resolves a base to a local archive path and a digest identifying the
// resolved content.
//
// Local archives digest by file content, registry bases by image
// manifest; either way the digest is stable while the base is
// unchanged, which is what the rebuild fingerprint needs.
func (r *Resolver) Resolve(ctx context.Context, base, platform string) (string, digest.Digest, error) {
	if info, err := os.Stat(base); err == nil && info.Mode().IsRegular() {
		return resolveLocal(base)
	}

	ref, err := name.ParseReference(base)
	if err != nil {
		return "", "", errs.Wrapf(ErrBaseUnavailable, "%q is neither an archive nor a reference: %w", base, err)
	}

	cached := filepath.Join(r.cacheDir, cacheKey(ref, platform))
	if dgst, err := archiveDigest(cached); err == nil {
		slog.Debug("base image cached", "ref", ref.Name(), "archive", cached)
		return cached, dgst, nil
	}

	return r.fetch(ctx, ref, platform, cached)
}

// Pulls the reference from its registry and writes it into the cache.
func (r *Resolver) fetch(ctx context.Context, ref name.Reference, platform, dest string) (string, digest.Digest, error) {
	slog.Info("pulling base image", "ref", ref.Name(), "platform", platform)

	p, err := gcr.ParsePlatform(platform)
	if err != nil {
		return "", "", errs.Wrapf(ErrBaseUnavailable, "platform %q: %w", platform, err)
	}

	img, err := remote.Image(ref,
		remote.WithContext(ctx),
		remote.WithAuthFromKeychain(authn.DefaultKeychain),
		remote.WithPlatform(*p),
		remote.WithUserAgent(internal.UserAgent()),
	)
	if err != nil {
		return "", "", errs.Wrapf(ErrBaseUnavailable, "pull %s: %w", ref.Name(), err)
	}

	if err := os.MkdirAll(r.cacheDir, paths.DefaultDirMode); err != nil {
		return "", "", errs.Wrap(ErrBaseUnavailable, err)
	}

	// Write-then-rename keeps aborted pulls out of the cache: resolves
	// trust any file that parses.
	tmp := dest + ".partial"
	if err := tarball.WriteToFile(tmp, tagFor(ref), img); err != nil {
		os.Remove(tmp)
		return "", "", errs.Wrapf(ErrBaseUnavailable, "write %s: %w", dest, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", "", errs.Wrap(ErrBaseUnavailable, err)
	}

	h, err := img.Digest()
	if err != nil {
		return "", "", errs.Wrap(ErrBaseUnavailable, err)
	}

	return dest, digest.Digest(h.String()), nil
}

// Digests a local archive file by content.
func resolveLocal(path string) (string, digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", errs.Wrap(ErrBaseUnavailable, err)
	}
	defer f.Close()

	dgst, err := digest.FromReader(f)
	if err != nil {
		return "", "", errs.Wrap(ErrBaseUnavailable, err)
	}

	return path, dgst, nil
}

// Returns the manifest digest of a cached tarball, or an error if no
// usable tarball is there.
func archiveDigest(path string) (digest.Digest, error) {
	img, err := tarball.ImageFromPath(path, nil)
	if err != nil {
		return "", err
	}

	h, err := img.Digest()
	if err != nil {
		return "", err
	}

	return digest.Digest(h.String()), nil
}

// Returns the cache file name for a reference and platform.
func cacheKey(ref name.Reference, platform string) string {
	return digest.FromString(ref.Name()+"|"+platform).Encoded() + ".tar"
}

// Returns the tag recorded in the tarball manifest. Digest references
// carry no tag, so the repository's default tag stands in; the pulled
// content is still pinned by the digest.
func tagFor(ref name.Reference) name.Tag {
	if t, ok := ref.(name.Tag); ok {
		return t
	}
	return ref.Context().Tag("latest")
}
