package stats

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hyperifyio/gutenextract/internal/extractor"
)

const defaultCacheSize = 128

// Service computes Statistics for metadata files, caching results keyed by
// path, size, and modification time so a rewritten record is never served
// stale.
type Service struct {
	cache  *lru.Cache[string, *Statistics]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewService returns a Service holding up to size entries; size <= 0 uses
// the default.
func NewService(size int) *Service {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, *Statistics](size)
	if err != nil {
		panic(fmt.Sprintf("stats: lru.New(%d): %v", size, err))
	}
	return &Service{cache: cache}
}

// FromFile loads the metadata record at path and computes its Statistics.
// The returned value is shared with the cache and must not be modified.
func (s *Service) FromFile(path string) (*Statistics, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("metadata file not found: %s: %w", path, err)
	}
	key := fmt.Sprintf("%s|%d|%d", abs, info.Size(), info.ModTime().UnixNano())
	if st, ok := s.cache.Get(key); ok {
		s.hits.Add(1)
		return st, nil
	}
	s.misses.Add(1)
	md, err := extractor.LoadMetadata(abs)
	if err != nil {
		return nil, err
	}
	st := Compute(md)
	s.cache.Add(key, st)
	return st, nil
}

// CacheStats reports cache hits and misses since creation.
func (s *Service) CacheStats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}
