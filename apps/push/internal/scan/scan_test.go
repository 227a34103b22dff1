package scan_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kessler/gitstow/apps/push/internal/scan"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
}

func TestCollect_FlattensTreeSortedByPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", "<html></html>")
	writeFile(t, root, "assets/style.css", "body {}")
	writeFile(t, root, "docs/readme.md", "# hi")

	records, err := scan.Collect(root)

	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "assets/style.css", records[0].Path)
	assert.Equal(t, "docs/readme.md", records[1].Path)
	assert.Equal(t, "index.html", records[2].Path)
}

func TestCollect_EncodesContentAndSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "hello.txt", "hello world")

	records, err := scan.Collect(root)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("hello world")), records[0].Content)
	assert.Equal(t, int64(len("hello world")), records[0].Size)
}

func TestCollect_DerivesMimeTypeFromExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "page.html", "<html></html>")
	writeFile(t, root, "noext", "data")

	records, err := scan.Collect(root)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Empty(t, records[0].Type) // noext
	assert.Contains(t, records[1].Type, "text/html")
}

func TestCollect_SkipsGitMetadata(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.txt", "content")
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main")
	writeFile(t, root, ".git/objects/ab/cdef", "blob")
	writeFile(t, root, "vendor/.git/config", "nested")

	records, err := scan.Collect(root)

	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a.txt", records[0].Path)
}

func TestCollect_EmptyDirectory(t *testing.T) {
	records, err := scan.Collect(t.TempDir())

	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCollect_MissingRoot(t *testing.T) {
	_, err := scan.Collect(filepath.Join(t.TempDir(), "nope"))

	assert.Error(t, err)
}
