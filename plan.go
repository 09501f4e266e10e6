package asar

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Replacement pairs an archive-relative path with the disk file that
// replaces it.
type Replacement struct {
	Archive string `yaml:"archive"`
	Source  string `yaml:"source"`
}

// Plan is an ordered batch of replacements applied to one archive as a
// single unit. Source and Dest may name the same path for an in-place
// patch; Dest defaults to Source when empty.
type Plan struct {
	Source string        `yaml:"source"`
	Dest   string        `yaml:"dest"`
	Files  []Replacement `yaml:"files"`
}

// LoadPlan reads a YAML plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("plan %s: %w", path, err)
	}
	return &p, nil
}

func (p *Plan) validate() error {
	if p.Source == "" {
		return errors.New("missing source archive")
	}
	if len(p.Files) == 0 {
		return errors.New("no files to replace")
	}
	for i, r := range p.Files {
		if r.Archive == "" || r.Source == "" {
			return fmt.Errorf("replacement %d: archive and source are both required", i)
		}
	}
	return nil
}

// applyConfig holds configuration for plan application.
type applyConfig struct {
	logger *slog.Logger
}

// ApplyOption configures plan application.
type ApplyOption func(*applyConfig)

// ApplyWithLogger sets the logger used while applying a plan.
func ApplyWithLogger(l *slog.Logger) ApplyOption {
	return func(cfg *applyConfig) {
		cfg.logger = l
	}
}

// Apply runs every replacement in order against an isolated working copy
// of the source archive and moves the result to Dest only when all of them
// succeed. A failure at any step leaves both Source and Dest unmodified,
// and the working copy is removed on every path.
func (p *Plan) Apply(opts ...ApplyOption) error {
	cfg := applyConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := p.validate(); err != nil {
		return err
	}
	dest := p.Dest
	if dest == "" {
		dest = p.Source
	}

	// Fail fast: every replacement source must exist before any write begins.
	for _, r := range p.Files {
		info, err := os.Stat(r.Source)
		if err != nil {
			return fmt.Errorf("replacement source: %w", err)
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("replacement source %s: not a regular file", r.Source)
		}
	}

	working, err := copyToTemp(p.Source, filepath.Dir(dest))
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			os.Remove(working)
		}
	}()

	// Each step patches the working copy in place, so its output becomes
	// the next step's input.
	for _, r := range p.Files {
		logger.Info("applying replacement", "archive", r.Archive, "source", r.Source)
		if err := replaceInWorking(working, r); err != nil {
			return err
		}
	}

	if err := os.Rename(working, dest); err != nil {
		return err
	}
	committed = true
	logger.Info("plan applied", "source", p.Source, "dest", dest, "replacements", len(p.Files))
	return nil
}

// replaceInWorking applies one replacement to the working archive. The
// archive is reopened for every step because a successful replace renames
// a fresh file over the working path.
func replaceInWorking(working string, r Replacement) error {
	a, err := Open(working)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.ReplaceFile(r.Archive, r.Source)
}

// copyToTemp copies src to a fresh temp file in dir and returns its path.
func copyToTemp(src, dir string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(dir, ".asar-plan-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return tmpPath, nil
}
