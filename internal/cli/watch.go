package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mvp-joe/concept-lens/internal/discovery"
	"github.com/mvp-joe/concept-lens/internal/watcher"
)

// watchTargets runs initial, then re-scans changed files under targets
// until ctx is done. Changes made while initial runs are held back and
// scanned right after it. Directory targets follow the discovery patterns;
// file targets are watched through their parent directory.
func (r *scanRunner) watchTargets(ctx context.Context, targets []string, debounce time.Duration, out io.Writer, initial func() error) error {
	match, skipDir, dirs, err := r.watchFilters(targets)
	if err != nil {
		return err
	}

	w, err := watcher.NewFileWatcher(dirs, watcher.Options{
		Debounce: debounce,
		Match:    match,
		SkipDir:  skipDir,
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Stop()

	err = w.Start(ctx, func(files []string) {
		r.rescan(ctx, files, out)
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	w.Pause()
	if initial != nil {
		if err := initial(); err != nil {
			slog.Warn("initial scan incomplete", "error", err)
		}
	}
	w.Resume()

	slog.Info("watching for changes", "dirs", dirs)
	<-ctx.Done()
	return nil
}

// rescan scans the files of one change batch that still exist.
func (r *scanRunner) rescan(ctx context.Context, files []string, out io.Writer) {
	present := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			slog.Debug("changed file no longer exists", "path", f)
			continue
		}
		present = append(present, f)
	}
	if len(present) == 0 {
		return
	}

	r.rescanMu.Lock()
	defer r.rescanMu.Unlock()

	results, err := r.scanFiles(ctx, present)
	if err != nil {
		slog.Warn("rescan failed", "error", err)
	}
	if len(results) == 0 {
		return
	}
	if err := r.writer.Write(out, results); err != nil {
		slog.Warn("failed to write report", "error", err)
	}
}

func (r *scanRunner) watchFilters(targets []string) (func(string) bool, func(string) bool, []string, error) {
	var (
		dirs        []string
		roots       []string
		discoveries []*discovery.FileDiscovery
		// parents prune the ignored subdirectories of a file target's directory.
		parents []*discovery.FileDiscovery
		files   = make(map[string]bool)
		seen    = make(map[string]bool)
	)

	for _, target := range targets {
		if target == stdinTarget {
			return nil, nil, nil, fmt.Errorf("--watch cannot read from stdin")
		}
		abs, err := filepath.Abs(target)
		if err != nil {
			return nil, nil, nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, nil, nil, err
		}

		dir := abs
		if info.IsDir() {
			fd, err := discovery.New(abs, r.opts.Include, r.opts.Ignore)
			if err != nil {
				return nil, nil, nil, err
			}
			discoveries = append(discoveries, fd)
			roots = append(roots, abs)
		} else {
			files[abs] = true
			dir = filepath.Dir(abs)
			fd, err := discovery.New(dir, r.opts.Include, r.opts.Ignore)
			if err != nil {
				return nil, nil, nil, err
			}
			parents = append(parents, fd)
		}
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	match := func(path string) bool {
		if files[path] {
			return true
		}
		for _, fd := range discoveries {
			if fd.MatchesPath(path) {
				return true
			}
		}
		return false
	}
	skipDir := func(path string) bool {
		for _, root := range roots {
			if within(root, path) {
				// Never prune a directory target or one of its ancestors.
				return discoveryIgnores(discoveries, path)
			}
		}
		return discoveryIgnores(discoveries, path) || discoveryIgnores(parents, path)
	}
	return match, skipDir, dirs, nil
}

func discoveryIgnores(fds []*discovery.FileDiscovery, path string) bool {
	for _, fd := range fds {
		if fd.IgnoresDir(path) {
			return true
		}
	}
	return false
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
