// Package scanner walks watch roots and reports paths whose
// permission bits differ from the configured target mode.
package scanner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jontk/permd/internal/errors"
	"github.com/jontk/permd/internal/fileperms"
	"github.com/jontk/permd/internal/logging"
)

// Violation is a path whose permission bits differ from the target
// mode. Produced by a scan and consumed by the enforcer within the
// same reconciliation pass; never persisted.
type Violation struct {
	Path string
	Mode os.FileMode
}

// Scanner checks a directory tree for permission drift. It is purely
// observational and safe to share across passes.
type Scanner struct {
	target  os.FileMode
	ignores []string
}

// New creates a scanner for the given target mode and ignore roots.
func New(target os.FileMode, ignoreDirs []string) *Scanner {
	ignores := make([]string, 0, len(ignoreDirs))
	for _, dir := range ignoreDirs {
		ignores = append(ignores, filepath.Clean(dir))
	}
	return &Scanner{
		target:  target & fileperms.PermMask,
		ignores: ignores,
	}
}

// Ignored reports whether path lies at or below one of the configured
// ignore roots. The match is on whole path components, so an ignore
// root "foo" covers "foo/bar" but not "foo2".
func (s *Scanner) Ignored(path string) bool {
	cleaned := filepath.Clean(path)
	for _, ignore := range s.ignores {
		rel, err := filepath.Rel(ignore, cleaned)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Scan traverses root, following symbolic links, and returns every
// non-ignored path whose permission bits differ from the target mode.
// Failure to stat or list the root itself is an error; failures on
// individual entries below it are logged and skipped.
func (s *Scanner) Scan(root string) ([]Violation, error) {
	if s.Ignored(root) {
		logging.Debugf("skipping ignored path %s", root)
		return nil, nil
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.ScanRoot(root, err)
	}

	var violations []Violation
	if !fileperms.Compliant(info.Mode(), s.target) {
		violations = append(violations, Violation{Path: root, Mode: info.Mode() & fileperms.PermMask})
	}
	if !info.IsDir() {
		return violations, nil
	}

	visited := make(map[string]struct{})
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		visited[resolved] = struct{}{}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.ScanRoot(root, err)
	}
	for _, entry := range entries {
		s.walk(filepath.Join(root, entry.Name()), visited, &violations)
	}
	return violations, nil
}

// walk visits path and, if it is a directory, its children. visited
// holds resolved directory paths to guard against symlink cycles.
func (s *Scanner) walk(path string, visited map[string]struct{}, out *[]Violation) {
	// The ignore test runs before any metadata call so ignored trees
	// cost no I/O and unreadable ignored trees produce no noise.
	if s.Ignored(path) {
		logging.Debugf("skipping ignored path %s", path)
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		logging.Warnf("cannot stat %s: %v", path, err)
		return
	}

	if !fileperms.Compliant(info.Mode(), s.target) {
		*out = append(*out, Violation{Path: path, Mode: info.Mode() & fileperms.PermMask})
	}

	if !info.IsDir() {
		return
	}

	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		if _, seen := visited[resolved]; seen {
			return
		}
		visited[resolved] = struct{}{}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		logging.Warnf("cannot read directory %s: %v", path, err)
		return
	}
	for _, entry := range entries {
		s.walk(filepath.Join(path, entry.Name()), visited, out)
	}
}
