// Package loader provides ChunkLoader implementations for the
// treechunk reader: a local-directory loader and an HTTP loader, each
// resolving a chunk's hex-encoded hash to a readable stream.
package loader

import (
	"context"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/dividuum/nbd-chunk-drive/treechunk"
)

// File loads chunks from a local directory where each chunk is stored
// under its hex-encoded hash as the file name.
type File struct {
	dir string
}

// NewFile returns a ChunkLoader that reads chunks out of dir.
func NewFile(dir string) *File {
	return &File{dir: dir}
}

func (f *File) OpenStream(ctx context.Context, hash [treechunk.HashSize]byte, maxSize int) (io.ReadCloser, error) {
	name := filepath.Join(f.dir, hex.EncodeToString(hash[:]))
	return os.Open(name)
}
