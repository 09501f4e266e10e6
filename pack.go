package asar

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// packConfig holds configuration for archive creation.
type packConfig struct {
	logger *slog.Logger
}

// PackOption configures archive creation.
type PackOption func(*packConfig)

// PackWithLogger sets the logger used during packing.
func PackWithLogger(l *slog.Logger) PackOption {
	return func(cfg *packConfig) {
		cfg.logger = l
	}
}

// Pack walks srcDir depth-first in name order and writes a new archive at
// dest: the encoded header followed by every file's bytes concatenated in
// walk order. Packing the same unchanged tree twice yields byte-identical
// output. The archive is committed with a temp file and atomic rename.
func Pack(srcDir, dest string, opts ...PackOption) error {
	cfg := packConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	root, sources, err := scanDir(srcDir)
	if err != nil {
		return err
	}
	root.assignOffsets(0)

	header, _, err := encodeHeader(root)
	if err != nil {
		return err
	}
	logger.Debug("packing archive", "dir", srcDir, "files", len(sources))

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".asar-*")
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
	for _, src := range sources {
		if err := appendFile(tmp, src); err != nil {
			return err
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return err
	}
	committed = true
	return nil
}

// scanDir builds the directory tree for srcDir and returns the disk paths
// of every regular file in the same depth-first name order used for offset
// assignment. Offsets are not yet assigned.
func scanDir(srcDir string) (*Dir, []string, error) {
	absRoot, err := filepath.Abs(srcDir)
	if err != nil {
		return nil, nil, err
	}
	var sources []string

	var scan func(dir string) (*Dir, error)
	scan = func(dir string) (*Dir, error) {
		// os.ReadDir returns entries sorted by name, which fixes both the
		// offset assignment order and the data emission order.
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}

		d := &Dir{Children: make(map[string]Node, len(entries))}
		for _, entry := range entries {
			full := filepath.Join(dir, entry.Name())
			switch {
			case entry.Type()&os.ModeSymlink != 0:
				target, err := linkTarget(absRoot, full)
				if err != nil {
					return nil, err
				}
				d.Children[entry.Name()] = &Symlink{Target: target}
			case entry.IsDir():
				child, err := scan(full)
				if err != nil {
					return nil, err
				}
				d.Children[entry.Name()] = child
			default:
				info, err := entry.Info()
				if err != nil {
					return nil, err
				}
				d.Children[entry.Name()] = &File{Size: info.Size()}
				sources = append(sources, full)
			}
		}
		return d, nil
	}

	root, err := scan(absRoot)
	if err != nil {
		return nil, nil, err
	}
	return root, sources, nil
}

// linkTarget resolves a symlink to a slash path relative to the pack root.
// Targets pointing outside the root are recorded as they resolve.
func linkTarget(absRoot, link string) (string, error) {
	target, err := os.Readlink(link)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(link), target)
	}
	rel, err := filepath.Rel(absRoot, target)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(target), nil
	}
	return filepath.ToSlash(rel), nil
}

// appendFile copies one source file's bytes onto the archive being built.
func appendFile(w io.Writer, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("pack %s: %w", src, err)
	}
	return nil
}
