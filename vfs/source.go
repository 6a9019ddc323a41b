package vfs

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/quillmark/world/errs"
	"github.com/quillmark/world/fingerprint"
	"github.com/quillmark/world/interner"
)

const utf8BOM = "\xef\xbb\xbf"

// Source is the parsed representation of one text file: its decoded content
// plus a line index. Sources are immutable and shared freely between
// concurrent readers.
type Source struct {
	ID          interner.FileID
	Text        string
	Fingerprint fingerprint.Fingerprint

	// lines holds the byte offset of every line start; lines[0] is 0.
	lines []int
}

// newSource decodes content (stripping a UTF-8 BOM) and builds the line
// index. When the decoded text matches the most recently parsed source for
// the same file, that source is reused instead of rebuilding the index.
func newSource(id interner.FileID, content []byte, recent *Source) (*Source, error) {
	fg := fingerprint.FromBytes(content)
	text := strings.TrimPrefix(string(content), utf8BOM)
	if !utf8.ValidString(text) {
		return nil, errs.New(errs.CodeInvalidUTF8, interner.Display(id))
	}
	if recent != nil && recent.Text == text {
		reused := *recent
		reused.Fingerprint = fg
		return &reused, nil
	}
	lines := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &Source{ID: id, Text: text, Fingerprint: fg, lines: lines}, nil
}

// LineCount returns the number of lines in the source.
func (s *Source) LineCount() int {
	return len(s.lines)
}

// LineStart returns the byte offset of the given zero-based line.
func (s *Source) LineStart(line int) (int, bool) {
	if line < 0 || line >= len(s.lines) {
		return 0, false
	}
	return s.lines[line], true
}

// LineOf returns the zero-based line containing the byte offset.
func (s *Source) LineOf(offset int) (int, bool) {
	if offset < 0 || offset > len(s.Text) {
		return 0, false
	}
	lo, hi := 0, len(s.lines)
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if s.lines[mid] <= offset {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, true
}

type sourceEntry struct {
	lastAccess uint64
	source     *Source
	err        error
}

type sourceShard struct {
	lastAccess uint64
	// recent is the most recently parsed source for this file, kept so a
	// small edit reuses the previous decode path.
	recent  *Source
	sources map[fingerprint.Fingerprint]*sourceEntry
}

// SourceCache memoizes parsed sources per file, keyed by content
// fingerprint. Entries record the revision of their last access so the
// eviction task can trim sources untouched for too long. One cache is
// shared by every fork of a Vfs: parsed sources depend only on content, not
// on which view read them.
type SourceCache struct {
	mu     sync.Mutex
	shards map[interner.FileID]*sourceShard
}

// NewSourceCache creates an empty source cache.
func NewSourceCache() *SourceCache {
	return &SourceCache{shards: make(map[interner.FileID]*sourceShard)}
}

// get returns the memoized source for (id, content fingerprint), parsing on
// first request. Parse errors are memoized the same as successes.
func (c *SourceCache) get(id interner.FileID, content []byte, rev uint64) (*Source, error) {
	fg := fingerprint.FromBytes(content)

	c.mu.Lock()
	defer c.mu.Unlock()

	shard, ok := c.shards[id]
	if !ok {
		shard = &sourceShard{sources: make(map[fingerprint.Fingerprint]*sourceEntry)}
		c.shards[id] = shard
	}
	if shard.lastAccess < rev {
		shard.lastAccess = rev
	}

	if entry, ok := shard.sources[fg]; ok {
		if entry.lastAccess < rev {
			entry.lastAccess = rev
		}
		return entry.source, entry.err
	}

	source, err := newSource(id, content, shard.recent)
	if err == nil {
		shard.recent = source
	}
	shard.sources[fg] = &sourceEntry{lastAccess: rev, source: source, err: err}
	return source, err
}

// Len returns the total number of cached sources.
func (c *SourceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, shard := range c.shards {
		n += len(shard.sources)
	}
	return n
}

// Evict drops entries whose last access is more than maxAge revisions
// behind curr, and whole per-file shards untouched for as long.
func (c *SourceCache) Evict(curr uint64, maxAge uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, shard := range c.shards {
		if curr-min(shard.lastAccess, curr) > maxAge {
			delete(c.shards, id)
			continue
		}
		for fg, entry := range shard.sources {
			if curr-min(entry.lastAccess, curr) > maxAge {
				delete(shard.sources, fg)
			}
		}
	}
}
