package build

import (
	"archive/tar"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AiCodeCraft/spacebake/internal/descriptor"
	"github.com/AiCodeCraft/spacebake/internal/runtime"
)

// Records every container operation the plan performs.
type fakeContainer struct {
	mkdirs   []string
	chmods   map[string]fs.FileMode
	copies   []string   // Destination dir per CopyTo, in call order.
	tars     [][]string // Entry names per CopyTo, in call order.
	execs    [][]string
	workdirs []string
	exitCode int
	execErr  error
}

var _ Container = (*fakeContainer)(nil)

func newFakeContainer() *fakeContainer {
	return &fakeContainer{chmods: map[string]fs.FileMode{}}
}

func (f *fakeContainer) MkdirAll(_ context.Context, path string) error {
	f.mkdirs = append(f.mkdirs, path)
	return nil
}

func (f *fakeContainer) Chmod(_ context.Context, path string, mode fs.FileMode) error {
	f.chmods[path] = mode
	return nil
}

func (f *fakeContainer) CopyTo(_ context.Context, r io.Reader, destDir string) error {
	names, err := tarEntryNames(r)
	if err != nil {
		return err
	}
	f.copies = append(f.copies, destDir)
	f.tars = append(f.tars, names)
	return nil
}

func (f *fakeContainer) Exec(_ context.Context, argv []string, _ []string, workdir string) (*runtime.ExecResult, error) {
	f.execs = append(f.execs, argv)
	f.workdirs = append(f.workdirs, workdir)
	if f.execErr != nil {
		return nil, f.execErr
	}
	return &runtime.ExecResult{ExitCode: f.exitCode, Stderr: "boom"}, nil
}

func tarEntryNames(r io.Reader) ([]string, error) {
	tr := tar.NewReader(r)

	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return names, nil
		}
		if err != nil {
			return nil, err
		}
		names = append(names, hdr.Name)
	}
}

func writeContext(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func TestExecutePlan(t *testing.T) {
	buildCtx := writeContext(t, map[string]string{
		"app.py":           "print('hi')\n",
		"requirements.txt": "gradio\n",
	})

	ctr := newFakeContainer()
	d := descriptor.Default()

	state, err := executePlan(context.Background(), ctr, d, buildCtx)
	require.NoError(t, err)

	// Workdir and cache directory are created in the container.
	assert.Equal(t, []string{"/app", "/tmp/matplotlib-cache"}, ctr.mkdirs)
	assert.Equal(t, fs.FileMode(0o777), ctr.chmods["/tmp/matplotlib-cache"])

	// The manifest is pushed first, then the whole context lands in the
	// workdir.
	require.Len(t, ctr.copies, 2)
	assert.Equal(t, []string{"/app", "/app"}, ctr.copies)
	assert.Equal(t, []string{"requirements.txt"}, ctr.tars[0])
	assert.ElementsMatch(t, []string{"app.py", "requirements.txt"}, ctr.tars[1])

	// The installer runs in the workdir with the manifest appended.
	require.Len(t, ctr.execs, 1)
	assert.Equal(t, []string{"pip", "install", "--no-cache-dir", "-r", "requirements.txt"}, ctr.execs[0])
	assert.Equal(t, []string{"/app"}, ctr.workdirs)

	// The state carries everything the export must declare.
	assert.Equal(t, "/app", state.workdir)
	assert.Equal(t, []string{
		"HF_SPACE=true",
		"MPLCONFIGDIR=/tmp/matplotlib-cache",
		"PORT=7860",
	}, state.env)
	assert.Equal(t, []string{"python", "app.py"}, state.cmd)
}

func TestExecutePlanMissingManifest(t *testing.T) {
	buildCtx := writeContext(t, map[string]string{
		"app.py": "print('hi')\n",
	})

	ctr := newFakeContainer()

	_, err := executePlan(context.Background(), ctr, descriptor.Default(), buildCtx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuild)
	assert.ErrorIs(t, err, ErrDependencyInstall)

	// The plan stopped at the dependency step: no context copy, no
	// installer run.
	assert.Empty(t, ctr.copies)
	assert.Empty(t, ctr.execs)
}

func TestExecutePlanInstallerFails(t *testing.T) {
	buildCtx := writeContext(t, map[string]string{
		"app.py":           "print('hi')\n",
		"requirements.txt": "no-such-package\n",
	})

	ctr := newFakeContainer()
	ctr.exitCode = 1

	_, err := executePlan(context.Background(), ctr, descriptor.Default(), buildCtx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDependencyInstall)
	assert.Contains(t, err.Error(), "exit code 1")
	assert.Contains(t, err.Error(), "boom")
}

func TestExecutePlanExecError(t *testing.T) {
	buildCtx := writeContext(t, map[string]string{
		"requirements.txt": "gradio\n",
	})

	ctr := newFakeContainer()
	ctr.execErr = errors.New("task gone")

	_, err := executePlan(context.Background(), ctr, descriptor.Default(), buildCtx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDependencyInstall)
}

func TestInstallDependenciesSkipsWithoutManifest(t *testing.T) {
	ctr := newFakeContainer()

	d := descriptor.Default()
	d.Dependencies.Manifest = ""

	err := installDependencies(context.Background(), ctr, d, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, ctr.copies)
	assert.Empty(t, ctr.execs)
}

func TestCopyContextIsUnfiltered(t *testing.T) {
	buildCtx := writeContext(t, map[string]string{
		"app.py":          "print('hi')\n",
		".env":            "SECRET=1\n",
		".git/HEAD":       "ref: refs/heads/main\n",
		"data/model.bin":  "weights",
		"__pycache__/a.x": "cache",
	})

	ctr := newFakeContainer()

	require.NoError(t, copyContext(context.Background(), ctr, buildCtx, "/app"))
	require.Len(t, ctr.tars, 1)

	// Dotfiles, VCS metadata, and caches all travel: there is no
	// ignore list.
	assert.Contains(t, ctr.tars[0], ".env")
	assert.Contains(t, ctr.tars[0], ".git/HEAD")
	assert.Contains(t, ctr.tars[0], "data/model.bin")
	assert.Contains(t, ctr.tars[0], "__pycache__/a.x")
}
