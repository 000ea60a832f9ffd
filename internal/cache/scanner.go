package cache

import (
	"fmt"
	"os"

	"github.com/mvp-joe/concept-lens/internal/concepts"
)

// Scanner wraps an Extractor with a ResultCache. Unchanged content is
// served from the cache with the caller's path filled in.
type Scanner struct {
	extractor *concepts.Extractor
	cache     *ResultCache
}

// NewScanner creates a caching scanner. A nil cache disables caching.
func NewScanner(extractor *concepts.Extractor, cache *ResultCache) *Scanner {
	return &Scanner{extractor: extractor, cache: cache}
}

// Extractor returns the wrapped extractor.
func (s *Scanner) Extractor() *concepts.Extractor {
	return s.extractor
}

// Scan returns the result for source, scanning only on a cache miss.
func (s *Scanner) Scan(source []byte, opts concepts.Options) *concepts.ScanResult {
	if s.cache == nil {
		return s.extractor.Scan(source, opts)
	}

	key := Key(source, opts.Tiers)
	if r, ok := s.cache.Get(key); ok {
		r.Path = opts.Path
		return r
	}

	r := s.extractor.Scan(source, opts)
	s.cache.Set(key, r)
	return r
}

// ScanFile reads path and scans it through the cache. It also returns the
// content hash so callers can record it.
func (s *Scanner) ScanFile(path string, opts concepts.Options) (*concepts.ScanResult, string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %w", concepts.ErrInputUnreadable, path, err)
	}
	if opts.Path == "" {
		opts.Path = path
	}
	return s.Scan(source, opts), ContentHash(source), nil
}
