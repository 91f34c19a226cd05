package build

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTarTree(t *testing.T) {
	dir := writeContext(t, map[string]string{
		"app.py":         "print('hi')\n",
		"static/cat.png": "not-really-a-png",
	})
	require.NoError(t, os.Symlink("app.py", filepath.Join(dir, "main.py")))

	var buf bytes.Buffer
	require.NoError(t, tarTree(&buf, dir))

	entries := map[string]*tar.Header{}
	tr := tar.NewReader(&buf)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		entries[hdr.Name] = hdr
	}

	require.Contains(t, entries, "app.py")
	require.Contains(t, entries, "static")
	require.Contains(t, entries, "static/cat.png")
	require.Contains(t, entries, "main.py")

	assert.Equal(t, byte(tar.TypeDir), entries["static"].Typeflag)
	assert.Equal(t, byte(tar.TypeSymlink), entries["main.py"].Typeflag)
	assert.Equal(t, "app.py", entries["main.py"].Linkname)
	assert.Equal(t, int64(len("print('hi')\n")), entries["app.py"].Size)
}

func TestTarFile(t *testing.T) {
	dir := writeContext(t, map[string]string{
		"deps/requirements.txt": "gradio\n",
	})

	var buf bytes.Buffer
	require.NoError(t, tarFile(&buf, filepath.Join(dir, "deps", "requirements.txt"), "requirements.txt"))

	tr := tar.NewReader(&buf)
	hdr, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, "requirements.txt", hdr.Name)

	content, err := io.ReadAll(tr)
	require.NoError(t, err)
	assert.Equal(t, "gradio\n", string(content))

	_, err = tr.Next()
	assert.Equal(t, io.EOF, err)
}

func TestTreeDigestIgnoresTimestamps(t *testing.T) {
	dir := writeContext(t, map[string]string{
		"app.py":           "print('hi')\n",
		"requirements.txt": "gradio\n",
	})

	before, err := TreeDigest(dir)
	require.NoError(t, err)

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "app.py"), stale, stale))

	after, err := TreeDigest(dir)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestTreeDigestSeesContent(t *testing.T) {
	dir := writeContext(t, map[string]string{
		"app.py": "print('hi')\n",
	})

	before, err := TreeDigest(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.py"), []byte("print('bye')\n"), 0o644))

	after, err := TreeDigest(dir)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestTreeDigestSeesRenames(t *testing.T) {
	dir := writeContext(t, map[string]string{
		"app.py": "print('hi')\n",
	})

	before, err := TreeDigest(dir)
	require.NoError(t, err)

	require.NoError(t, os.Rename(filepath.Join(dir, "app.py"), filepath.Join(dir, "main.py")))

	after, err := TreeDigest(dir)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}
