// Package chunkstore adapts a generic store/driver.StorageDriver into
// the treechunk.ChunkPersister and treechunk.ChunkLoader interfaces,
// naming every chunk by its hex-encoded content hash under the
// driver's flat root.
package chunkstore

import (
	"context"
	"encoding/hex"
	"io"

	storagedriver "github.com/dividuum/nbd-chunk-drive/store/driver"
	"github.com/dividuum/nbd-chunk-drive/treechunk"
)

// Store persists and loads tree-chunk repository chunks through a
// StorageDriver, so the same repository can live on a local
// filesystem, in memory, or on any other backend the driver package
// supports without the writer or reader needing to know the
// difference.
type Store struct {
	driver storagedriver.StorageDriver
}

// New wraps driver for use as both a ChunkPersister and a ChunkLoader.
func New(driver storagedriver.StorageDriver) *Store {
	return &Store{driver: driver}
}

func chunkPath(hash [treechunk.HashSize]byte) string {
	return "/" + hex.EncodeToString(hash[:])
}

// PersistChunk implements treechunk.ChunkPersister.
func (s *Store) PersistChunk(ctx context.Context, name [treechunk.HashSize]byte, encoded []byte) error {
	return s.driver.PutContent(ctx, chunkPath(name), encoded)
}

// OpenStream implements treechunk.ChunkLoader. The returned stream is
// truncated to maxSize bytes; a chunk larger than that is treated as
// a protocol violation by the caller rather than read in full.
func (s *Store) OpenStream(ctx context.Context, hash [treechunk.HashSize]byte, maxSize int) (io.ReadCloser, error) {
	rc, err := s.driver.Reader(ctx, chunkPath(hash), 0)
	if err != nil {
		return nil, err
	}
	return &limitedStream{ReadCloser: rc, remaining: maxSize}, nil
}

// limitedStream caps the number of bytes read from an underlying
// stream while still closing it on every exit path.
type limitedStream struct {
	io.ReadCloser
	remaining int
}

func (l *limitedStream) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		return 0, io.EOF
	}
	if len(p) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.ReadCloser.Read(p)
	l.remaining -= n
	return n, err
}
