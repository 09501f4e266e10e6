package asar

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// replaceConfig holds configuration for a replace operation.
type replaceConfig struct {
	output string
}

// ReplaceOption configures a replace operation.
type ReplaceOption func(*replaceConfig)

// ReplaceWithOutput writes the patched archive to path instead of
// overwriting the archive in place.
func ReplaceWithOutput(path string) ReplaceOption {
	return func(cfg *replaceConfig) {
		cfg.output = path
	}
}

// Replace rewrites the archive so that the named file holds data and every
// other file's bytes are preserved verbatim. Offsets for all files are
// recomputed, since changing one file's size shifts everything after it.
//
// The new archive is assembled in a temporary file next to the destination
// and committed with a single atomic rename; on any earlier failure the
// destination is left untouched. By default the archive is overwritten in
// place, which concurrent readers of the old handle never observe.
//
// Replace returns ErrNotFound if path does not resolve to a file stored in
// the archive (directories, symlinks, and unpacked entries cannot be
// replaced).
func (a *Archive) Replace(path string, data []byte, opts ...ReplaceOption) error {
	cfg := replaceConfig{output: a.path}
	for _, opt := range opts {
		opt(&cfg)
	}

	target := normalizePath(path)
	f, err := a.findFile(target)
	if err != nil {
		return err
	}
	if f.Unpacked {
		return fmt.Errorf("replace %q: %w: entry is unpacked", path, ErrNotFound)
	}

	// Mutate a deep copy; the open archive keeps describing the original
	// file until the rename lands.
	newRoot := cloneDir(a.root)
	n, _ := newRoot.resolve(target)
	n.(*File).Size = int64(len(data))
	newRoot.assignOffsets(0)

	header, _, err := encodeHeader(newRoot)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(cfg.output), ".asar-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(header); err != nil {
		return err
	}
	if err := a.writeDataRegion(tmp, target, data); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, cfg.output); err != nil {
		return err
	}
	committed = true

	a.log().Debug("replaced file", "path", target, "output", cfg.output, "size", len(data))
	return nil
}

// ReplaceFile is Replace with the new content read from a file on disk.
func (a *Archive) ReplaceFile(path, sourcePath string, opts ...ReplaceOption) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return err
	}
	return a.Replace(path, data, opts...)
}

// writeDataRegion emits the patched data region by walking the original
// tree in offset-assignment order: new bytes for the target, a verbatim
// copy of the original range for every other packed file.
func (a *Archive) writeDataRegion(w io.Writer, target string, data []byte) error {
	return a.root.walkLeaves("", func(path string, n Node) error {
		f, ok := n.(*File)
		if !ok || f.Unpacked {
			return nil
		}
		if path == target {
			_, err := w.Write(data)
			return err
		}
		src := io.NewSectionReader(a.f, a.baseOffset+f.Offset, f.Size)
		if _, err := io.CopyN(w, src, f.Size); err != nil {
			return fmt.Errorf("copy %s: %w", path, err)
		}
		return nil
	})
}
