package task

import (
	"log/slog"
	"time"

	"github.com/quillmark/world/vfs"
)

// Evictable is a cache that can trim entries last touched too many
// revisions ago.
type Evictable interface {
	Evict(curr uint64, maxAge uint64)
}

// CacheEvictTask trims the global memoization caches and the parse cache
// after each published revision. Submissions are folded, so an edit burst
// triggers at most one stale sweep plus one final sweep.
//
// The two ages are independent: parsed sources are cheap to rebuild, derived
// artifacts are not, so the parse cache can be trimmed more aggressively.
type CacheEvictTask struct {
	folder FutureFolder
	logger *slog.Logger
	maxAge uint64
	vfsAge uint64
}

// NewCacheEvictTask creates an eviction task. maxAge bounds the revision age
// of global memoization entries, vfsAge that of parsed sources. A nil logger
// falls back to slog.Default.
func NewCacheEvictTask(logger *slog.Logger, maxAge, vfsAge uint64) *CacheEvictTask {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheEvictTask{logger: logger, maxAge: maxAge, vfsAge: vfsAge}
}

// Evict submits one folded sweep for the published revision rev: every cache
// in caches is trimmed to maxAge and sources, when non-nil, to vfsAge.
func (t *CacheEvictTask) Evict(rev uint64, sources *vfs.SourceCache, caches ...Evictable) {
	t.folder.Spawn(rev, func() {
		start := time.Now()
		for _, c := range caches {
			c.Evict(rev, t.maxAge)
		}
		if sources != nil {
			sources.Evict(rev, t.vfsAge)
		}
		t.logger.Info("evicted caches",
			slog.Uint64("revision", rev),
			slog.Duration("elapsed", time.Since(start)))
	})
}
