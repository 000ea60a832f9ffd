// Package discovery finds the source files a directory scan should cover.
package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// ErrInvalidPattern indicates a glob pattern that does not compile.
var ErrInvalidPattern = errors.New("invalid glob pattern")

// DefaultInclude selects Python sources.
var DefaultInclude = []string{"**/*.py"}

// DefaultIgnore skips VCS metadata, caches and virtual environments.
var DefaultIgnore = []string{
	".git/**",
	"__pycache__/**",
	"**/__pycache__/**",
	".venv/**",
	"venv/**",
	"node_modules/**",
}

// stateDir holds conceptlens' own config and history and is never scanned.
const stateDir = ".conceptlens"

// compiledPattern holds both the pattern string and compiled glob.
// rootGlob is the pattern without its leading "**/", nil when it has none.
type compiledPattern struct {
	pattern  string
	glob     glob.Glob
	rootGlob glob.Glob
}

// FileDiscovery walks a root directory and selects files by glob.
type FileDiscovery struct {
	rootDir        string
	includes       []compiledPattern
	ignorePatterns []compiledPattern
}

// New creates a discovery for rootDir. Empty pattern lists fall back to
// DefaultInclude / DefaultIgnore.
func New(rootDir string, include, ignore []string) (*FileDiscovery, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}
	if ignore == nil {
		ignore = DefaultIgnore
	}

	fd := &FileDiscovery{rootDir: rootDir}

	var err error
	if fd.includes, err = compile(include); err != nil {
		return nil, err
	}
	if fd.ignorePatterns, err = compile(ignore); err != nil {
		return nil, err
	}
	return fd, nil
}

// ValidatePatterns reports the first pattern that does not compile.
func ValidatePatterns(patterns []string) error {
	_, err := compile(patterns)
	return err
}

func compile(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
		}
		cp := compiledPattern{pattern: pattern, glob: g}
		if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
			if cp.rootGlob, err = glob.Compile(rest, '/'); err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
			}
		}
		out = append(out, cp)
	}
	return out, nil
}

// Discover returns matching files in lexical order.
func (fd *FileDiscovery) Discover() ([]string, error) {
	files := []string{}

	err := filepath.Walk(fd.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && fd.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if fd.shouldIgnore(relPath) {
			return nil
		}
		if fd.Matches(relPath) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", fd.rootDir, err)
	}

	return files, nil
}

// Matches reports whether a root-relative, slash-separated path is
// selected by the include patterns and not ignored.
func (fd *FileDiscovery) Matches(relPath string) bool {
	return !fd.shouldIgnore(relPath) && matchesAnyPattern(relPath, fd.includes)
}

// MatchesPath is Matches for a path on disk under the discovery root.
func (fd *FileDiscovery) MatchesPath(path string) bool {
	relPath, ok := fd.rel(path)
	return ok && fd.Matches(relPath)
}

// IgnoresDir reports whether a directory on disk under the discovery root
// is excluded by the ignore patterns.
func (fd *FileDiscovery) IgnoresDir(path string) bool {
	relPath, ok := fd.rel(path)
	return ok && relPath != "." && fd.shouldIgnore(relPath)
}

func (fd *FileDiscovery) rel(path string) (string, bool) {
	relPath, err := filepath.Rel(fd.rootDir, path)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(relPath), true
}

// shouldIgnore checks if a path matches any ignore pattern.
func (fd *FileDiscovery) shouldIgnore(relPath string) bool {
	if relPath == stateDir || strings.HasPrefix(relPath, stateDir+"/") {
		return true
	}
	if matchesAnyPattern(relPath, fd.ignorePatterns) {
		return true
	}

	// "node_modules" should match pattern "node_modules/**"
	return matchesAnyPattern(relPath+"/**", fd.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Root-level paths also match "**/" patterns with the prefix removed, so
	// "**/*.py" selects both "deploy.py" and "ops/deploy.py".
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if cp.rootGlob != nil && cp.rootGlob.Match(path) {
				return true
			}
		}
	}

	return false
}
