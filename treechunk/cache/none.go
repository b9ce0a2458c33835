// Package cache provides ChunkCache implementations for the treechunk
// reader: an always-miss cache, a bounded in-process FIFO cache, and a
// Redis-backed cache for sharing hot chunks across readers.
package cache

import "github.com/dividuum/nbd-chunk-drive/treechunk"

// None is a ChunkCache that never retains anything. Every lookup
// misses, so every read falls through to the configured ChunkLoader.
type None struct{}

// NewNone returns a ChunkCache with no storage.
func NewNone() treechunk.ChunkCache { return None{} }

func (None) Get(hash [treechunk.HashSize]byte) ([]byte, bool) { return nil, false }
func (None) Set(hash [treechunk.HashSize]byte, content []byte) {}
