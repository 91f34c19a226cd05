// Package image inspects built archives and verifies them against the
// descriptor they were built from.
package image

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	gcr "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
	"github.com/opencontainers/go-digest"

	"github.com/AiCodeCraft/spacebake/internal/descriptor"
	"github.com/AiCodeCraft/spacebake/internal/errs"
)

// What an archived image declares.
type Summary struct {
	Tags       []string // RepoTags recorded in the archive, if any.
	Digest     string   // Manifest digest.
	Env        []string // Environment literals.
	Entrypoint []string
	Cmd        []string
	WorkingDir string
	Layers     int
}

// Reads the archive and summarizes its configuration.
func Summarize(archive string) (*Summary, error) {
	img, err := load(archive)
	if err != nil {
		return nil, err
	}

	h, err := img.Digest()
	if err != nil {
		return nil, errs.Wrap(ErrArchive, err)
	}

	cfg, err := img.ConfigFile()
	if err != nil {
		return nil, errs.Wrap(ErrArchive, err)
	}

	layers, err := img.Layers()
	if err != nil {
		return nil, errs.Wrap(ErrArchive, err)
	}

	return &Summary{
		Tags:       repoTags(archive),
		Digest:     h.String(),
		Env:        cfg.Config.Env,
		Entrypoint: cfg.Config.Entrypoint,
		Cmd:        cfg.Config.Cmd,
		WorkingDir: cfg.Config.WorkingDir,
		Layers:     len(layers),
	}, nil
}

// A single verified property.
type Check struct {
	Name   string // Property name, stable across runs.
	OK     bool
	Detail string // Expected/actual on failure, empty on success.
}

// The outcome of verifying an archive against its descriptor.
type Report struct {
	Checks []Check
}

// Reports whether every check passed.
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

func (r *Report) String() string {
	var b strings.Builder
	for _, c := range r.Checks {
		if c.OK {
			fmt.Fprintf(&b, "ok   %s\n", c.Name)
			continue
		}
		fmt.Fprintf(&b, "FAIL %s: %s\n", c.Name, c.Detail)
	}
	return b.String()
}

func (r *Report) add(name string, ok bool, detail string) {
	if ok {
		detail = ""
	}
	r.Checks = append(r.Checks, Check{Name: name, OK: ok, Detail: detail})
}

// Verifies the structural properties of a built archive:
//
//   - every declared env var is present with its literal value;
//   - the command equals the declared argv exactly;
//   - the working directory equals the declared workdir;
//   - every context file is present byte-identical under the workdir;
//   - the cache path is a directory with its declared mode.
//
// Any failing check fails the overall report; the error return is for
// unreadable inputs only.
func Verify(archive string, d *descriptor.Descriptor, contextDir string) (*Report, error) {
	img, err := load(archive)
	if err != nil {
		return nil, err
	}

	cfg, err := img.ConfigFile()
	if err != nil {
		return nil, errs.Wrap(ErrArchive, err)
	}

	report := &Report{}

	for _, kv := range d.Environ() {
		report.add("env "+kv, slices.Contains(cfg.Config.Env, kv),
			fmt.Sprintf("not in image env %v", cfg.Config.Env))
	}

	report.add("command", slices.Equal(cfg.Config.Cmd, d.Command),
		fmt.Sprintf("image declares %v, descriptor %v", cfg.Config.Cmd, d.Command))

	report.add("workdir", cfg.Config.WorkingDir == d.Workdir,
		fmt.Sprintf("image declares %q, descriptor %q", cfg.Config.WorkingDir, d.Workdir))

	rootfs, err := flatten(img)
	if err != nil {
		return nil, err
	}

	checkContext(report, rootfs, d.Workdir, contextDir)
	checkCache(report, rootfs, d.Cache)

	return report, nil
}

// One entry of the flattened image filesystem.
type fsEntry struct {
	mode     fs.FileMode
	dgst     digest.Digest // Regular files only.
	linkname string
}

// Flattens the image's layers into a path-indexed view. Paths are
// rooted ("/app/app.py"); whiteouts are already applied by the
// extraction.
func flatten(img gcr.Image) (map[string]fsEntry, error) {
	rc := mutate.Extract(img)
	defer rc.Close()

	entries := map[string]fsEntry{}

	tr := tar.NewReader(rc)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, errs.Wrap(ErrArchive, err)
		}

		e := fsEntry{
			mode:     hdr.FileInfo().Mode(),
			linkname: hdr.Linkname,
		}
		if hdr.Typeflag == tar.TypeReg {
			dgst, err := digest.FromReader(tr)
			if err != nil {
				return nil, errs.Wrap(ErrArchive, err)
			}
			e.dgst = dgst
		}

		entries[rootedPath(hdr.Name)] = e
	}
}

func rootedPath(name string) string {
	return path.Clean("/" + strings.TrimPrefix(name, "./"))
}

// Checks that every file of the build context is present byte-identical
// under the workdir. Extra files in the image are fine; missing or
// differing ones are not.
func checkContext(report *Report, rootfs map[string]fsEntry, workdir, contextDir string) {
	var bad []string

	err := filepath.WalkDir(contextDir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(contextDir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		imagePath := path.Join(workdir, filepath.ToSlash(rel))
		got, ok := rootfs[imagePath]

		switch {
		case !ok:
			bad = append(bad, rel+" missing")

		case entry.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(p)
			if err != nil {
				return err
			}
			if got.linkname != target {
				bad = append(bad, rel+" link differs")
			}

		case entry.Type().IsRegular():
			want, err := fileDigest(p)
			if err != nil {
				return err
			}
			if got.dgst != want {
				bad = append(bad, rel+" differs")
			}
		}

		return nil
	})
	if err != nil {
		report.add("context", false, err.Error())
		return
	}

	report.add("context", len(bad) == 0, strings.Join(bad, ", "))
}

// Checks that the cache path is a directory carrying its declared mode.
func checkCache(report *Report, rootfs map[string]fsEntry, cache descriptor.Cache) {
	name := fmt.Sprintf("cache %s mode %s", cache.Path, cache.Mode)

	e, ok := rootfs[rootedPath(cache.Path)]
	switch {
	case !ok:
		report.add(name, false, "path not in image")
	case !e.mode.IsDir():
		report.add(name, false, "not a directory")
	default:
		report.add(name, e.mode.Perm() == fs.FileMode(cache.Mode).Perm(),
			fmt.Sprintf("mode is 0%o", e.mode.Perm()))
	}
}

func fileDigest(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return digest.FromReader(f)
}

func load(archive string) (gcr.Image, error) {
	img, err := tarball.ImageFromPath(archive, nil)
	if err != nil {
		return nil, errs.Wrapf(ErrArchive, "%s: %w", archive, err)
	}
	return img, nil
}

// Returns the RepoTags recorded in the archive manifest, or nil when
// the archive carries none.
func repoTags(archive string) []string {
	manifest, err := tarball.LoadManifest(func() (io.ReadCloser, error) {
		return os.Open(archive)
	})
	if err != nil || len(manifest) == 0 {
		return nil
	}
	return manifest[0].RepoTags
}
