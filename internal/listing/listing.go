// Package listing renders archive directory listings for human and
// machine consumption. It consumes only the public archive API and adds
// no format semantics of its own.
package listing

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/meigma/asar"
)

// Formats lists the supported render formats in display order.
var Formats = []string{"plain", "long", "json", "xml", "yaml"}

// Entry is one row of a flat archive listing.
type Entry struct {
	Path     string `json:"path" yaml:"path" xml:"path,attr"`
	Size     int64  `json:"size" yaml:"size" xml:"size,attr"`
	Unpacked bool   `json:"unpacked" yaml:"unpacked" xml:"unpacked,attr,omitempty"`
}

// Collect flattens an archive's file entries in sorted path order.
// Symlinks are listed with size zero.
func Collect(a *asar.Archive) []Entry {
	var entries []Entry
	_ = a.Walk(func(path string, n asar.Node) error {
		e := Entry{Path: path}
		if f, ok := n.(*asar.File); ok {
			e.Size = f.Size
			e.Unpacked = f.Unpacked
		}
		entries = append(entries, e)
		return nil
	})
	return entries
}

// Render formats entries in the named format.
func Render(format string, entries []Entry) (string, error) {
	switch format {
	case "plain":
		return renderPlain(entries), nil
	case "long":
		return renderLong(entries), nil
	case "json":
		return renderJSON(entries)
	case "xml":
		return renderXML(entries)
	case "yaml":
		return renderYAML(entries)
	default:
		return "", fmt.Errorf("unknown listing format %q", format)
	}
}

func renderPlain(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Path)
	}
	return b.String()
}

func renderLong(entries []Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%10s  PATH\n", "SIZE")
	b.WriteString(strings.Repeat("-", 50))
	for _, e := range entries {
		fmt.Fprintf(&b, "\n%10d  %s", e.Size, e.Path)
		if e.Unpacked {
			b.WriteString("  [unpacked]")
		}
	}
	return b.String()
}

func renderJSON(entries []Entry) (string, error) {
	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// xmlArchive wraps entries as <archive><file .../></archive>.
type xmlArchive struct {
	XMLName xml.Name `xml:"archive"`
	Files   []Entry  `xml:"file"`
}

func renderXML(entries []Entry) (string, error) {
	out, err := xml.MarshalIndent(xmlArchive{Files: entries}, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func renderYAML(entries []Entry) (string, error) {
	out, err := yaml.Marshal(entries)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}
