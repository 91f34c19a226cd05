package launch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AiCodeCraft/spacebake/internal/descriptor"
	"github.com/AiCodeCraft/spacebake/internal/spaceenv"
)

// A descriptor whose cache lives in a throwaway directory, so tests do
// not provision /tmp/matplotlib-cache for real.
func testDescriptor(t *testing.T, argv ...string) *descriptor.Descriptor {
	t.Helper()

	cache := filepath.Join(t.TempDir(), "plot-cache")

	d := descriptor.Default()
	d.Command = argv
	d.Cache.Path = cache
	d.Env[spaceenv.EnvPlotCache] = cache
	return d
}

func TestRunPropagatesExitCode(t *testing.T) {
	d := testDescriptor(t, "sh", "-c", "exit 7")

	code, err := Run(context.Background(), Options{Descriptor: d, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, 7, code)
}

func TestRunSuccess(t *testing.T) {
	var out bytes.Buffer
	d := testDescriptor(t, "sh", "-c", "echo ready")

	code, err := Run(context.Background(), Options{
		Descriptor: d,
		Dir:        t.TempDir(),
		Stdout:     &out,
	})
	require.NoError(t, err)
	assert.Zero(t, code)
	assert.Equal(t, "ready\n", out.String())
}

func TestRunChildSeesContractEnv(t *testing.T) {
	// The child sees the image's literals, not the host's values.
	t.Setenv("PORT", "9999")

	d := testDescriptor(t, "sh", "-c", `test "$PORT" = 7860 -a "$HF_SPACE" = true`)

	code, err := Run(context.Background(), Options{Descriptor: d, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Zero(t, code)
}

func TestRunEnvOverrides(t *testing.T) {
	d := testDescriptor(t, "sh", "-c", `test "$PORT" = 9000`)

	code, err := Run(context.Background(), Options{
		Descriptor: d,
		Dir:        t.TempDir(),
		Env:        []string{"PORT=9000"},
	})
	require.NoError(t, err)
	assert.Zero(t, code)
}

func TestRunRejectsMalformedPort(t *testing.T) {
	d := testDescriptor(t, "sh", "-c", "exit 0")

	_, err := Run(context.Background(), Options{
		Descriptor: d,
		Dir:        t.TempDir(),
		Env:        []string{"PORT=not-a-port"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, spaceenv.ErrEnvironment)
}

func TestRunProvisionsCacheBeforeStart(t *testing.T) {
	d := testDescriptor(t, "sh", "-c", `test -d "$MPLCONFIGDIR"`)

	code, err := Run(context.Background(), Options{Descriptor: d, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Zero(t, code)

	info, err := os.Stat(d.Cache.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o777), info.Mode().Perm())
}

func TestRunWorkdir(t *testing.T) {
	dir := t.TempDir()
	d := testDescriptor(t, "sh", "-c", `test "$PWD" = "$WANT"`)

	code, err := Run(context.Background(), Options{
		Descriptor: d,
		Dir:        dir,
		Env:        []string{"WANT=" + dir},
	})
	require.NoError(t, err)
	assert.Zero(t, code)
}

func TestRunCancelled(t *testing.T) {
	d := testDescriptor(t, "sleep", "30")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := Run(ctx, Options{Descriptor: d, Dir: t.TempDir()})
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRunMissingBinary(t *testing.T) {
	d := testDescriptor(t, "no-such-binary-anywhere")

	_, err := Run(context.Background(), Options{Descriptor: d, Dir: t.TempDir()})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLaunch)
}

func TestMergeEnv(t *testing.T) {
	got := mergeEnv(
		[]string{"PATH=/bin", "PORT=1111", "HOME=/root"},
		[]string{"PORT=7860", "HF_SPACE=true"},
		[]string{"PORT=9000"},
	)

	assert.Equal(t, []string{
		"PATH=/bin",
		"PORT=9000",
		"HOME=/root",
		"HF_SPACE=true",
	}, got)
}
