package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AiCodeCraft/spacebake/internal/descriptor"
)

// The starter file ships fully commented out, so it must load as the
// default descriptor.
func TestStarterDescriptorLoadsAsDefault(t *testing.T) {
	d, err := descriptor.Parse(bytes.NewReader(starterDescriptor))
	require.NoError(t, err)

	assert.Equal(t, descriptor.Default(), d)
}

func TestInitWritesDescriptor(t *testing.T) {
	dir := t.TempDir()

	cmd := &InitCmd{Dir: dir}
	require.NoError(t, cmd.Run(context.Background()))

	written, err := os.ReadFile(filepath.Join(dir, descriptor.DefaultName))
	require.NoError(t, err)
	assert.Equal(t, starterDescriptor, written)
}

func TestInitRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, descriptor.DefaultName)
	require.NoError(t, os.WriteFile(target, []byte("base: custom:1\n"), 0o644))

	cmd := &InitCmd{Dir: dir}
	require.Error(t, cmd.Run(context.Background()))

	kept, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "base: custom:1\n", string(kept), "existing descriptor must survive")
}

func TestInitForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, descriptor.DefaultName)
	require.NoError(t, os.WriteFile(target, []byte("base: custom:1\n"), 0o644))

	cmd := &InitCmd{Dir: dir, Force: true}
	require.NoError(t, cmd.Run(context.Background()))

	written, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, starterDescriptor, written)
}
