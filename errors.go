package asar

import "errors"

// Sentinel errors returned by archive operations. Callers should test for
// them with errors.Is; returned errors carry path context via wrapping.
var (
	// ErrFormat is returned when an archive's header frame or tree
	// encoding is malformed or truncated.
	ErrFormat = errors.New("asar: invalid archive format")

	// ErrNotFound is returned when an archive-relative path does not
	// resolve to a file. Paths naming directories also report ErrNotFound,
	// since read and patch operations act on files.
	ErrNotFound = errors.New("asar: file not found in archive")

	// ErrExist is returned when a destination that must not exist
	// already does.
	ErrExist = errors.New("asar: destination already exists")
)
