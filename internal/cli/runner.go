package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/concept-lens/internal/cache"
	"github.com/mvp-joe/concept-lens/internal/concepts"
	"github.com/mvp-joe/concept-lens/internal/config"
	"github.com/mvp-joe/concept-lens/internal/discovery"
	"github.com/mvp-joe/concept-lens/internal/report"
	"github.com/mvp-joe/concept-lens/internal/storage"
)

// stdinTarget scans source read from standard input.
const stdinTarget = "-"

// scanOptions are the resolved settings of one scan invocation.
type scanOptions struct {
	Tiers   concepts.TierSet
	Workers int
	Include []string
	Ignore  []string
}

// scanRunner scans files and directories and renders their reports.
type scanRunner struct {
	scanner  *cache.Scanner
	store    *storage.Store // nil disables history
	writer   report.Writer
	opts     scanOptions
	progress *scanProgress
	stdin    io.Reader
	rescanMu sync.Mutex
}

// newConceptScanner builds the extractor for cfg, extended with its
// rules.extra_calls, behind a result cache. The returned func releases
// the cache.
func newConceptScanner(cfg *config.Config) (*cache.Scanner, func(), error) {
	registry, err := concepts.NewRegistryWithCalls(cfg.CallPatterns())
	if err != nil {
		return nil, nil, err
	}

	resultCache, err := cache.New(cfg.Cache.Capacity)
	if err != nil {
		return nil, nil, err
	}

	return cache.NewScanner(concepts.New(registry), resultCache), resultCache.Close, nil
}

// Run scans every target and writes one report covering all of them.
// Reports for readable inputs are written even when some inputs fail.
func (r *scanRunner) Run(ctx context.Context, targets []string, out io.Writer) error {
	var (
		results []*concepts.ScanResult
		errs    []error
	)

	for _, target := range targets {
		res, err := r.scanTarget(ctx, target)
		results = append(results, res...)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errs = append(errs, err)
		}
	}

	if len(results) > 0 || len(errs) == 0 {
		if err := r.writer.Write(out, results); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	return errors.Join(errs...)
}

// scanTarget scans a file, a directory or standard input.
func (r *scanRunner) scanTarget(ctx context.Context, target string) ([]*concepts.ScanResult, error) {
	if target == stdinTarget {
		return r.scanStdin()
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", concepts.ErrInputUnreadable, target, err)
	}
	if !info.IsDir() {
		return r.scanFiles(ctx, []string{target})
	}

	fd, err := discovery.New(target, r.opts.Include, r.opts.Ignore)
	if err != nil {
		return nil, err
	}
	files, err := fd.Discover()
	if err != nil {
		return nil, err
	}
	slog.Debug("discovered files", "root", target, "count", len(files))

	r.progress.Start(len(files))
	defer r.progress.Finish()
	return r.scanFiles(ctx, files)
}

func (r *scanRunner) scanStdin() ([]*concepts.ScanResult, error) {
	stdin := r.stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	source, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("%w: <stdin>: %w", concepts.ErrInputUnreadable, err)
	}

	result := r.scanner.Scan(source, concepts.Options{Tiers: r.opts.Tiers})
	if r.store != nil {
		if _, err := r.store.SaveScan(result, cache.ContentHash(source)); err != nil {
			return nil, fmt.Errorf("failed to save scan: %w", err)
		}
	}
	return []*concepts.ScanResult{result}, nil
}

// scanFiles scans files on a bounded worker pool. Results keep the order
// of files; unreadable files are reported and skipped.
func (r *scanRunner) scanFiles(ctx context.Context, files []string) ([]*concepts.ScanResult, error) {
	results := make([]*concepts.ScanResult, len(files))

	var (
		mu         sync.Mutex
		unreadable []error
	)

	workers := r.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			result, hash, err := r.scanner.ScanFile(file, concepts.Options{Tiers: r.opts.Tiers, Path: file})
			r.progress.FileDone()
			if err != nil {
				if errors.Is(err, concepts.ErrInputUnreadable) {
					slog.Warn("skipping unreadable file", "path", file, "error", err)
					mu.Lock()
					unreadable = append(unreadable, err)
					mu.Unlock()
					return nil
				}
				return err
			}

			if r.store != nil {
				if _, err := r.store.SaveScan(result, hash); err != nil {
					return fmt.Errorf("failed to save scan of %s: %w", file, err)
				}
			}

			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*concepts.ScanResult, 0, len(results))
	for _, res := range results {
		if res != nil {
			out = append(out, res)
		}
	}
	return out, errors.Join(unreadable...)
}
