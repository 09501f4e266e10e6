package asar

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// UnpackedSuffix names the sidecar directory holding bytes for unpacked
// entries: "<archive>.unpacked/<entry-path>".
const UnpackedSuffix = ".unpacked"

// Archive provides random access to the entries of an open asar file.
//
// An Archive owns its underlying file handle for its lifetime; callers
// must Close it. Read operations never mutate the file, so independent
// handles on the same path may read concurrently. Patch operations commit
// through a temp file and rename, so they are safe against concurrent
// readers but must be serialized among themselves by the caller.
type Archive struct {
	path       string
	f          *os.File
	root       *Dir
	baseOffset int64
	logger     *slog.Logger
}

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger used for warnings and debug output.
// By default log output is discarded.
func WithLogger(l *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = l
	}
}

// Open opens an existing asar archive for reading and patching.
func Open(path string, opts ...Option) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	root, baseOffset, err := decodeHeader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	a := &Archive{
		path:       path,
		f:          f,
		root:       root,
		baseOffset: baseOffset,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Close releases the underlying file handle.
func (a *Archive) Close() error {
	return a.f.Close()
}

// Path returns the filesystem path the archive was opened from.
func (a *Archive) Path() string {
	return a.path
}

// BaseOffset returns the absolute position where the data region begins.
func (a *Archive) BaseOffset() int64 {
	return a.baseOffset
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// List returns the sorted archive-relative paths of every non-directory
// entry. Directories are not listed.
func (a *Archive) List() []string {
	var paths []string
	// walkLeaves visits in sorted order and the callback never fails.
	_ = a.root.walkLeaves("", func(path string, _ Node) error {
		paths = append(paths, path)
		return nil
	})
	return paths
}

// Walk visits every non-directory entry depth-first in name order.
func (a *Archive) Walk(fn func(path string, n Node) error) error {
	return a.root.walkLeaves("", fn)
}

// Resolve returns the node for an archive-relative path. Separators may be
// forward or backward slashes.
func (a *Archive) Resolve(path string) (Node, bool) {
	return a.root.resolve(path)
}

// ReadFile returns the content of the named file. Unpacked entries are
// read from the sidecar directory. It returns ErrNotFound if path does not
// resolve to a file.
func (a *Archive) ReadFile(path string) ([]byte, error) {
	f, err := a.findFile(path)
	if err != nil {
		return nil, err
	}
	if f.Unpacked {
		return os.ReadFile(a.unpackedPath(path))
	}
	data := make([]byte, f.Size)
	if _, err := a.f.ReadAt(data, a.baseOffset+f.Offset); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Extract recreates the archive's full tree under dest, which must not
// already exist. Unpacked entries whose sidecar file is missing are
// skipped with a warning rather than failing the extraction.
func (a *Archive) Extract(dest string) error {
	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("extract to %s: %w", dest, ErrExist)
	}
	return a.extractDir(a.root, "", dest)
}

// ExtractFile writes the named file's bytes to dest, creating parent
// directories as needed. It returns ErrNotFound if path does not resolve
// to a file.
func (a *Archive) ExtractFile(path, dest string) error {
	f, err := a.findFile(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	if f.Unpacked {
		return copyFile(a.unpackedPath(path), dest)
	}
	return a.writeFileData(f, path, dest)
}

// findFile resolves path to a *File, normalizing separators first.
func (a *Archive) findFile(path string) (*File, error) {
	n, ok := a.root.resolve(path)
	if !ok {
		return nil, fmt.Errorf("%q: %w", path, ErrNotFound)
	}
	f, ok := n.(*File)
	if !ok {
		return nil, fmt.Errorf("%q: %w", path, ErrNotFound)
	}
	return f, nil
}

// unpackedPath maps an archive-relative path to its sidecar location.
func (a *Archive) unpackedPath(path string) string {
	return filepath.Join(a.path+UnpackedSuffix, filepath.FromSlash(normalizePath(path)))
}

// extractDir recursively materializes d under dest/rel.
func (a *Archive) extractDir(d *Dir, rel, dest string) error {
	if err := os.MkdirAll(filepath.Join(dest, filepath.FromSlash(rel)), 0o755); err != nil {
		return err
	}
	for _, name := range d.sortedNames() {
		path := name
		if rel != "" {
			path = rel + "/" + name
		}
		var err error
		switch n := d.Children[name].(type) {
		case *Dir:
			err = a.extractDir(n, path, dest)
		case *Symlink:
			err = a.extractLink(n, path, dest)
		case *File:
			err = a.extractFileEntry(n, path, dest)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// extractFileEntry writes one file entry during a full extraction.
func (a *Archive) extractFileEntry(f *File, path, dest string) error {
	target := filepath.Join(dest, filepath.FromSlash(path))
	if f.Unpacked {
		src := a.unpackedPath(path)
		if _, err := os.Stat(src); err != nil {
			a.log().Warn("skipping unpacked entry, sidecar file missing",
				"path", path, "sidecar", src)
			return nil
		}
		return copyFile(src, target)
	}
	return a.writeFileData(f, path, target)
}

// extractLink recreates a symlink pointing inside the destination root,
// replacing any link already present at the target path.
func (a *Archive) extractLink(s *Symlink, path, dest string) error {
	linkPath := filepath.Join(dest, filepath.FromSlash(path))
	target := filepath.Join(dest, filepath.FromSlash(s.Target))
	err := os.Symlink(target, linkPath)
	if errors.Is(err, fs.ErrExist) {
		if err := os.Remove(linkPath); err != nil {
			return err
		}
		return os.Symlink(target, linkPath)
	}
	return err
}

// writeFileData streams exactly f.Size bytes from the data region to dest.
// A short read means the archive is truncated and is reported as an error.
func (a *Archive) writeFileData(f *File, path, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	src := io.NewSectionReader(a.f, a.baseOffset+f.Offset, f.Size)
	if _, err := io.CopyN(out, src, f.Size); err != nil {
		out.Close()
		return fmt.Errorf("extract %s: %w", path, err)
	}
	return out.Close()
}

// copyFile copies src to dst without preserving metadata.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
