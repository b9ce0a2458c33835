package treechunk

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
)

// ChunkLoader opens a readable stream for the chunk named by hash. The
// stream must be closed by the caller on every exit path, including a
// decode failure. maxSize bounds the number of ciphertext bytes the
// loader is willing to read or transfer.
type ChunkLoader interface {
	OpenStream(ctx context.Context, hash [HashSize]byte, maxSize int) (io.ReadCloser, error)
}

// ChunkCache is consulted by the reader before calling the loader and
// updated with every loader result. Bytes passed to Set are always
// decrypted, decompressed content plaintext; implementations may
// discard entries at any time without affecting correctness.
type ChunkCache interface {
	Get(hash [HashSize]byte) ([]byte, bool)
	Set(hash [HashSize]byte, content []byte)
}

// zeroSource is a virtual byte source of a fixed size that never
// allocates more than the bytes it is asked to hand out; it backs
// reads over elided all-zero subtrees.
type zeroSource struct {
	size      int64
	remaining int64
}

func newZeroSource(size int64) *zeroSource {
	return &zeroSource{size: size, remaining: size}
}

func (z *zeroSource) Seek(offset int64) {
	z.remaining = z.size - offset
}

func (z *zeroSource) Read(p []byte) (int, error) {
	n := int64(len(p))
	if n > z.remaining {
		n = z.remaining
	}
	for i := int64(0); i < n; i++ {
		p[i] = 0
	}
	z.remaining -= n
	if n == 0 {
		return 0, io.EOF
	}
	return int(n), nil
}

// chunkSource is a positioned, readable view over the plaintext of
// one real (non-elided) chunk.
type chunkSource struct {
	r *bytes.Reader
}

func (c *chunkSource) Seek(offset int64) { c.r.Seek(offset, io.SeekStart) }
func (c *chunkSource) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

// source is the minimal interface getChunkStream returns: a stream
// already positioned at a requested logical offset, able to
// read either literal bytes (a data chunk) or a synthesized hash
// reference (an upper chunk).
type source interface {
	Read(p []byte) (int, error)
}

// Reader provides authenticated random-access reads over a
// tree-chunked repository addressed by its intro hash. It composes
// the chunk codec with an injected ChunkLoader and ChunkCache.
type Reader struct {
	ctx context.Context

	loader ChunkLoader
	cache  ChunkCache

	introHash [HashSize]byte
	introKey  []byte

	size2         uint
	numLayers     int
	totalSize     uint64
	blockSize     uint32
	repoKey       []byte
	topChunkHash  [HashSize]byte
	layerKey      []byte
	maxChunkSize  int
	layerShape    []LayerShape
}

// NewReader loads and decodes the intro chunk under unlockKey and
// constructs a Reader ready to serve ReadAt calls. An incorrect
// unlockKey manifests as a BadMagic error from the intro decode: the
// wrong key decrypts the intro into garbage that fails the magic check.
func NewReader(ctx context.Context, introHash [HashSize]byte, unlockKey []byte, loader ChunkLoader, cache ChunkCache) (*Reader, error) {
	r := &Reader{
		ctx:       ctx,
		loader:    loader,
		cache:     cache,
		introHash: introHash,
		introKey:  IntroKey(unlockKey),
	}

	content, err := r.loadChunkContent(introHash, r.introKey, 256)
	if err != nil {
		return nil, err
	}

	if err := r.parseIntro(content); err != nil {
		return nil, err
	}

	r.layerKey = LayerKey(r.repoKey)
	r.maxChunkSize = (1 << r.size2) + 256
	r.layerShape = BuildLayerShapes(r.size2, r.numLayers)
	return r, nil
}

func (r *Reader) parseIntro(content []byte) error {
	if len(content) != introSize {
		return newChunkError(ErrShortHeader, "intro payload is %d bytes, want %d", len(content), introSize)
	}
	var magic [16]byte
	copy(magic[:], content[0:16])
	if magic != Magic {
		return newChunkError(ErrBadMagic, "wrong unlock key or not a tree-chunked repository")
	}
	version := binary.LittleEndian.Uint32(content[16:20])
	if version != Version {
		return newChunkError(ErrBadVersion, "got version %d", version)
	}
	r.size2 = uint(binary.LittleEndian.Uint32(content[20:24]))
	r.numLayers = int(binary.LittleEndian.Uint32(content[24:28]))
	r.totalSize = binary.LittleEndian.Uint64(content[28:36])
	r.blockSize = binary.LittleEndian.Uint32(content[36:40])
	if r.blockSize != 4096 && r.blockSize != 8192 {
		return newChunkError(ErrBadBlockSize, "got block size %d", r.blockSize)
	}
	r.repoKey = append([]byte(nil), content[40:56]...)
	copy(r.topChunkHash[:], content[56:88])
	return nil
}

// TotalSize returns the repository's logical size, including the
// zero pad applied by WrapUp.
func (r *Reader) TotalSize() uint64 { return r.totalSize }

// BlockSize returns the block-alignment size the writer padded to.
func (r *Reader) BlockSize() uint32 { return r.blockSize }

// loadChunkContent consults the cache, falling back to the loader and
// decoder on a miss, and returns decrypted (and, if compressed,
// decompressed) plaintext.
func (r *Reader) loadChunkContent(hash [HashSize]byte, key []byte, maxSize int) ([]byte, error) {
	if cached, ok := r.cache.Get(hash); ok {
		return cached, nil
	}

	stream, err := r.loader.OpenStream(r.ctx, hash, maxSize)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	content, err := DecodeChunk(stream, hash, key, maxSize)
	if err != nil {
		return nil, err
	}
	r.cache.Set(hash, content)
	return content, nil
}

// getChunkStream walks the tree from the top chunk down to the layer-0
// chunk covering offset, returning a positioned source over that
// chunk's plaintext (or a virtual zero source for an elided subtree).
func (r *Reader) getChunkStream(offset uint64) (source, error) {
	if r.topChunkHash == ZeroHash {
		z := newZeroSource(int64(r.totalSize))
		z.Seek(int64(offset))
		return z, nil
	}

	hash := r.topChunkHash
	var current source
	for layer := r.numLayers - 1; layer >= 0; layer-- {
		if hash == ZeroHash {
			z := newZeroSource(int64(r.layerShape[layer+1].EntryCoverSize()))
			z.Seek(int64(r.layerShape[layer].EntryOffset(offset)))
			current = z
		} else {
			content, err := r.loadChunkContent(hash, r.layerKey, r.maxChunkSize)
			if err != nil {
				return nil, err
			}
			c := &chunkSource{r: bytes.NewReader(content)}
			c.Seek(int64(r.layerShape[layer].EntryOffset(offset)))
			current = c
		}

		if layer == 0 {
			break
		}

		var next [HashSize]byte
		n, err := io.ReadFull(current, next[:])
		if err != nil || n != HashSize {
			return nil, newChunkError(ErrIncompleteHashRef, "got %d of %d bytes", n, HashSize)
		}
		hash = next
	}
	return current, nil
}

// ReadAt returns up to size bytes starting at offset, clamped to the
// repository's total size. Each iteration of the internal loop loads
// at most one layer-0 chunk's worth of bytes.
func (r *Reader) ReadAt(offset uint64, size uint64) ([]byte, error) {
	if offset >= r.totalSize {
		return nil, nil
	}
	if offset+size > r.totalSize {
		size = r.totalSize - offset
	}

	out := make([]byte, 0, size)
	remaining := size
	for remaining > 0 {
		stream, err := r.getChunkStream(offset)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, remaining)
		n, err := stream.Read(buf)
		if err != nil && err != io.EOF {
			return nil, err
		}
		if n == 0 {
			return nil, newChunkError(ErrIncompleteHashRef, "chunk stream returned no bytes at offset %d", offset)
		}
		out = append(out, buf[:n]...)
		remaining -= uint64(n)
		offset += uint64(n)
	}
	return out, nil
}
