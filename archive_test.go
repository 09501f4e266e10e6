package asar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree materializes files (relative slash path to content) under dir.
func writeTree(tb testing.TB, dir string, files map[string]string) {
	tb.Helper()
	for path, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(path))
		require.NoError(tb, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(tb, os.WriteFile(full, []byte(content), 0o644))
	}
}

// packFixture packs files into a fresh archive and returns its path.
func packFixture(tb testing.TB, files map[string]string) string {
	tb.Helper()
	root := tb.TempDir()
	src := filepath.Join(root, "src")
	require.NoError(tb, os.MkdirAll(src, 0o755))
	writeTree(tb, src, files)
	archive := filepath.Join(root, "app.asar")
	require.NoError(tb, Pack(src, archive))
	return archive
}

// mustOpen opens an archive and closes it when the test ends.
func mustOpen(tb testing.TB, path string) *Archive {
	tb.Helper()
	a, err := Open(path)
	require.NoError(tb, err)
	tb.Cleanup(func() { a.Close() })
	return a
}

// exampleFiles is the worked example: a 13-byte file followed by a
// 12-byte file in a subdirectory.
var exampleFiles = map[string]string{
	"hello.txt":     "Hello, World!",
	"sub/world.txt": "hello world\n",
}

func TestOpenExample(t *testing.T) {
	t.Parallel()

	a := mustOpen(t, packFixture(t, exampleFiles))

	assert.Equal(t, []string{"hello.txt", "sub/world.txt"}, a.List())

	hello, ok := a.Resolve("hello.txt")
	require.True(t, ok)
	assert.Equal(t, int64(13), hello.(*File).Size)
	assert.Equal(t, int64(0), hello.(*File).Offset)

	world, ok := a.Resolve("sub/world.txt")
	require.True(t, ok)
	assert.Equal(t, int64(12), world.(*File).Size)
	assert.Equal(t, int64(13), world.(*File).Offset)
}

func TestOpenErrors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := Open(filepath.Join(t.TempDir(), "nope.asar"))
		assert.Error(t, err)
	})

	t.Run("garbage content", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "bad.asar")
		require.NoError(t, os.WriteFile(path, []byte("not an archive"), 0o644))
		_, err := Open(path)
		assert.ErrorIs(t, err, ErrFormat)
	})
}

func TestReadFile(t *testing.T) {
	t.Parallel()

	a := mustOpen(t, packFixture(t, exampleFiles))

	content, err := a.ReadFile("sub/world.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", string(content))

	_, err = a.ReadFile("missing.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	// Directories are not files from the caller's point of view.
	_, err = a.ReadFile("sub")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExtractFile(t *testing.T) {
	t.Parallel()

	a := mustOpen(t, packFixture(t, exampleFiles))
	dest := filepath.Join(t.TempDir(), "deep", "nested", "out.txt")

	require.NoError(t, a.ExtractFile("hello.txt", dest))
	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", string(content))

	err = a.ExtractFile("missing.txt", filepath.Join(t.TempDir(), "x"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExtractAll(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"hello.txt":        "Hello, World!",
		"sub/world.txt":    "hello world\n",
		"sub/deep/c.bin":   "\x00\x01\x02\x03",
		"empty.txt":        "",
		"z-last/file.json": `{"k":"v"}`,
	}
	a := mustOpen(t, packFixture(t, files))
	dest := filepath.Join(t.TempDir(), "out")

	require.NoError(t, a.Extract(dest))
	for path, want := range files {
		got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(path)))
		require.NoError(t, err, path)
		assert.Equal(t, want, string(got), path)
	}
}

func TestExtractDestinationExists(t *testing.T) {
	t.Parallel()

	a := mustOpen(t, packFixture(t, exampleFiles))
	dest := t.TempDir()
	assert.ErrorIs(t, a.Extract(dest), ErrExist)
}

func TestExtractSymlink(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	src := filepath.Join(root, "src")
	writeTree(t, src, map[string]string{"hello.txt": "hi"})
	require.NoError(t, os.Symlink("hello.txt", filepath.Join(src, "link.txt")))

	archive := filepath.Join(root, "app.asar")
	require.NoError(t, Pack(src, archive))

	a := mustOpen(t, archive)
	dest := filepath.Join(root, "out")
	require.NoError(t, a.Extract(dest))

	target, err := os.Readlink(filepath.Join(dest, "link.txt"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "hello.txt"), target)

	// Extracted links resolve within the destination root.
	content, err := os.ReadFile(filepath.Join(dest, "link.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hi", string(content))
}

// writeRawArchive assembles an archive directly from a tree and data
// region, for shapes Pack cannot produce (unpacked entries, truncation).
func writeRawArchive(tb testing.TB, path string, root *Dir, data []byte) {
	tb.Helper()
	header, _, err := encodeHeader(root)
	require.NoError(tb, err)
	require.NoError(tb, os.WriteFile(path, append(header, data...), 0o644))
}

func TestUnpackedEntries(t *testing.T) {
	t.Parallel()

	root := &Dir{Children: map[string]Node{
		"a.txt":     &File{Size: 5, Offset: 0},
		"ghost.bin": &File{Size: 9, Unpacked: true},
	}}
	dir := t.TempDir()
	archive := filepath.Join(dir, "app.asar")
	writeRawArchive(t, archive, root, []byte("hello"))

	t.Run("missing sidecar is skipped", func(t *testing.T) {
		a := mustOpen(t, archive)
		dest := filepath.Join(dir, "out1")
		require.NoError(t, a.Extract(dest))

		content, err := os.ReadFile(filepath.Join(dest, "a.txt"))
		require.NoError(t, err)
		assert.Equal(t, "hello", string(content))
		assert.NoFileExists(t, filepath.Join(dest, "ghost.bin"))
	})

	t.Run("sidecar is copied", func(t *testing.T) {
		writeTree(t, archive+UnpackedSuffix, map[string]string{"ghost.bin": "unpacked!"})

		a := mustOpen(t, archive)
		dest := filepath.Join(dir, "out2")
		require.NoError(t, a.Extract(dest))

		content, err := os.ReadFile(filepath.Join(dest, "ghost.bin"))
		require.NoError(t, err)
		assert.Equal(t, "unpacked!", string(content))

		read, err := a.ReadFile("ghost.bin")
		require.NoError(t, err)
		assert.Equal(t, "unpacked!", string(read))
	})
}
