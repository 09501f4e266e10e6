// Package asar reads, creates, and patches Electron asar archives.
//
// An asar archive is a single file holding a JSON-encoded directory tree
// followed by the concatenated contents of every file in that tree. The
// tree records each file's size and its offset into the data region, so
// individual files can be read without unpacking the whole archive.
//
// # Quick Start
//
// Open an archive and read a file:
//
//	a, err := asar.Open("app.asar")
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//	content, err := a.ReadFile("src/index.js")
//
// Pack a directory into a new archive:
//
//	err := asar.Pack("./my-app", "app.asar")
//
// Replace a single file in place, leaving every other file's bytes
// untouched:
//
//	err = a.ReplaceFile("src/index.js", "./new-index.js")
//
// # Patching
//
// Replace operations rewrite the archive in full: the header is rebuilt
// with recomputed offsets and the data region is re-emitted, copying all
// unchanged file ranges verbatim. The result is written to a temporary
// file and committed with a single atomic rename, so a failed patch never
// leaves a partially written archive behind. [Plan.Apply] extends this to
// an ordered batch of replacements applied as one unit.
package asar
