package asar

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Node is a single entry in an archive's directory tree: a *Dir, a *File,
// or a *Symlink.
type Node interface {
	node()
	clone() Node
}

// Dir is a directory entry mapping child names to child nodes. Child names
// never contain a path separator; listing and packing order is lexical.
type Dir struct {
	Children map[string]Node
}

// File is a regular file entry. Offset is relative to the archive's base
// offset (the end of the framed header). Unpacked files have no bytes in
// the archive; their content lives in the sidecar ".unpacked" directory.
type File struct {
	Size     int64
	Offset   int64
	Unpacked bool
}

// Symlink is a symbolic link entry. Target is the link destination as a
// slash-separated path relative to the archive root.
type Symlink struct {
	Target string
}

func (*Dir) node()     {}
func (*File) node()    {}
func (*Symlink) node() {}

func (d *Dir) clone() Node {
	children := make(map[string]Node, len(d.Children))
	for name, child := range d.Children {
		children[name] = child.clone()
	}
	return &Dir{Children: children}
}

func (f *File) clone() Node {
	c := *f
	return &c
}

func (s *Symlink) clone() Node {
	c := *s
	return &c
}

// cloneDir deep-copies a directory tree.
func cloneDir(d *Dir) *Dir {
	return d.clone().(*Dir)
}

// sortedNames returns the directory's child names in lexical order.
func (d *Dir) sortedNames() []string {
	names := make([]string, 0, len(d.Children))
	for name := range d.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolve walks an archive-relative path through nested directories.
// It reports false if any segment is missing or if an intermediate segment
// is not a directory.
func (d *Dir) resolve(path string) (Node, bool) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return nil, false
	}
	var n Node = d
	for _, segment := range segments {
		dir, ok := n.(*Dir)
		if !ok {
			return nil, false
		}
		n, ok = dir.Children[segment]
		if !ok {
			return nil, false
		}
	}
	return n, true
}

// walkLeaves visits every non-directory node depth-first in name order,
// passing the slash-joined archive-relative path. Traversal stops at the
// first error.
func (d *Dir) walkLeaves(prefix string, fn func(path string, n Node) error) error {
	for _, name := range d.sortedNames() {
		path := name
		if prefix != "" {
			path = prefix + "/" + name
		}
		switch n := d.Children[name].(type) {
		case *Dir:
			if err := n.walkLeaves(path, fn); err != nil {
				return err
			}
		default:
			if err := fn(path, n); err != nil {
				return err
			}
		}
	}
	return nil
}

// assignOffsets rewrites every packed file's offset in depth-first name
// order, starting at next, and returns the offset following the last file.
// Unpacked files keep no offset and contribute no bytes.
func (d *Dir) assignOffsets(next int64) int64 {
	for _, name := range d.sortedNames() {
		switch n := d.Children[name].(type) {
		case *Dir:
			next = n.assignOffsets(next)
		case *File:
			if !n.Unpacked {
				n.Offset = next
				next += n.Size
			}
		}
	}
	return next
}

// splitPath normalizes an archive-relative path to its segments.
// Backslashes are treated as separators and empty segments are dropped.
func splitPath(path string) []string {
	path = strings.ReplaceAll(path, `\`, "/")
	parts := strings.Split(path, "/")
	segments := parts[:0]
	for _, part := range parts {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// normalizePath converts a user-provided archive path to the canonical
// slash-separated form used internally.
func normalizePath(path string) string {
	return strings.Join(splitPath(path), "/")
}

// MarshalJSON encodes the directory as {"files":{...}} with child names in
// sorted order, matching the canonical asar tree serialization.
func (d *Dir) MarshalJSON() ([]byte, error) {
	children := d.Children
	if children == nil {
		children = map[string]Node{}
	}
	return json.Marshal(map[string]map[string]Node{"files": children})
}

// MarshalJSON encodes the file with its offset as a decimal string, the
// form Electron uses so offsets survive JavaScript number precision.
// Unpacked files omit the offset entirely.
func (f *File) MarshalJSON() ([]byte, error) {
	obj := map[string]any{"size": f.Size}
	if !f.Unpacked {
		obj["offset"] = strconv.FormatInt(f.Offset, 10)
	}
	return json.Marshal(obj)
}

// MarshalJSON encodes the symlink as {"link":"target"}.
func (s *Symlink) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"link": s.Target})
}

// decodeNode parses one tree node from its JSON object form. The node kind
// is discriminated by key: "files" marks a directory and "link" a symlink;
// anything else is a file, unpacked when "offset" is absent.
func decodeNode(raw json.RawMessage) (Node, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	if files, ok := obj["files"]; ok {
		return decodeDir(files)
	}

	if link, ok := obj["link"]; ok {
		var target string
		if err := json.Unmarshal(link, &target); err != nil {
			return nil, fmt.Errorf("%w: link target: %v", ErrFormat, err)
		}
		return &Symlink{Target: target}, nil
	}

	f := &File{}
	sizeRaw, ok := obj["size"]
	if !ok {
		return nil, fmt.Errorf("%w: file entry missing size", ErrFormat)
	}
	if err := json.Unmarshal(sizeRaw, &f.Size); err != nil {
		return nil, fmt.Errorf("%w: file size: %v", ErrFormat, err)
	}
	if offsetRaw, ok := obj["offset"]; ok {
		offset, err := parseOffset(offsetRaw)
		if err != nil {
			return nil, err
		}
		f.Offset = offset
	} else {
		f.Unpacked = true
	}
	return f, nil
}

// decodeDir parses the {"name": node, ...} children object of a directory.
func decodeDir(raw json.RawMessage) (*Dir, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	children := make(map[string]Node, len(obj))
	for name, childRaw := range obj {
		child, err := decodeNode(childRaw)
		if err != nil {
			return nil, err
		}
		children[name] = child
	}
	return &Dir{Children: children}, nil
}

// parseOffset accepts both the canonical decimal-string form and a bare
// JSON number, which some older archive writers emit.
func parseOffset(raw json.RawMessage) (int64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		offset, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: file offset %q", ErrFormat, s)
		}
		return offset, nil
	}
	var offset int64
	if err := json.Unmarshal(raw, &offset); err != nil {
		return 0, fmt.Errorf("%w: file offset: %v", ErrFormat, err)
	}
	return offset, nil
}
