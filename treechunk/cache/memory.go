package cache

import (
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/dividuum/nbd-chunk-drive/treechunk"
)

// DefaultMaxCached is the cache depth used when a Memory cache is
// constructed without an explicit size.
const DefaultMaxCached = 16

// MemoryOptions configures a Memory cache. It is decoded from the same
// generic params map the storage driver factories take, so a chunk
// cache can be selected and sized from configuration the same way a
// storage backend is.
type MemoryOptions struct {
	MaxCached int `mapstructure:"maxcached"`
}

// Memory is an in-process ChunkCache that evicts in strict insertion
// order: the oldest entry is dropped first whenever an insert would
// take the cache past MaxCached entries, regardless of how recently it
// was read. This
// is deliberately FIFO rather than LRU — a Get never reorders the
// eviction queue.
type Memory struct {
	mu        sync.Mutex
	keys      [][treechunk.HashSize]byte
	entries   map[[treechunk.HashSize]byte][]byte
	maxCached int
}

// NewMemory builds a Memory cache from the given options map, as
// produced by a configuration decoder. A missing or zero maxcached
// value falls back to DefaultMaxCached.
func NewMemory(params map[string]interface{}) (treechunk.ChunkCache, error) {
	var opts MemoryOptions
	if err := mapstructure.Decode(params, &opts); err != nil {
		return nil, err
	}
	return NewMemoryWithSize(opts.MaxCached), nil
}

// NewMemoryWithSize builds a Memory cache holding at most maxCached
// entries. A non-positive maxCached falls back to DefaultMaxCached.
func NewMemoryWithSize(maxCached int) *Memory {
	if maxCached <= 0 {
		maxCached = DefaultMaxCached
	}
	return &Memory{
		entries:   make(map[[treechunk.HashSize]byte][]byte),
		maxCached: maxCached,
	}
}

func (m *Memory) Get(hash [treechunk.HashSize]byte) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.entries[hash]
	return content, ok
}

// Set inserts content under hash, first evicting the oldest entries
// until fewer than maxCached remain. Re-setting an already-cached hash still
// appends a fresh entry to the eviction queue, exactly as repeated
// inserts do upstream: a hash can transiently occupy two queue slots
// until the older one is evicted.
func (m *Memory) Set(hash [treechunk.HashSize]byte, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for len(m.keys) >= m.maxCached {
		oldest := m.keys[0]
		m.keys = m.keys[1:]
		delete(m.entries, oldest)
	}
	m.entries[hash] = content
	m.keys = append(m.keys, hash)
}
