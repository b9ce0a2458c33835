// Package treechunk implements the chunk codec, hash tree, sparse-aware
// writer and random-access reader of a tree-chunked repository: a
// content-addressed, encrypted, sparse-aware archival format for
// storing hole-containing byte streams as fixed-maximum-size chunks
// keyed by SHA-256 hash.
package treechunk

import (
	"bytes"
	"compress/zlib"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
)

// Version is the only wire format version this package understands.
const Version = 1

// Magic is the 16-byte identifier that opens every chunk header and
// the plaintext intro payload.
var Magic = [16]byte{'T', 'R', 'E', 'E', 'C', 'H', 'U', 'N', 'K', ' ', 'R', 'E', 'P', 'O', '\n', 0}

// HashSize is the width of a SHA-256 digest, and therefore the width
// of every hash entry in an upper tree layer.
const HashSize = 32

// ZeroHash is the sentinel hash entry denoting an all-zero subtree.
// It never occurs as the real hash of a persisted chunk.
var ZeroHash [HashSize]byte

// headerSize is the size in bytes of the fixed chunk header:
// 16 (magic) + 1 (version) + 1 (compressed flag) + 4 (content_len) + 16 (content_iv).
const headerSize = 16 + 1 + 1 + 4 + 16

// ChunkError reports a codec or tree-traversal failure. Kind is a
// stable machine-checkable tag; Reason is a human-readable detail.
type ChunkError struct {
	Kind   string
	Reason string
}

func (e *ChunkError) Error() string {
	if e.Reason == "" {
		return e.Kind
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func newChunkError(kind, format string, args ...interface{}) *ChunkError {
	return &ChunkError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Error kind tags, one per failure mode named in the wire format and
// tree-traversal contract.
const (
	ErrShortHeader       = "ShortHeader"
	ErrBadMagic          = "BadMagic"
	ErrBadVersion        = "BadVersion"
	ErrBadFlag           = "BadFlag"
	ErrBadHash           = "BadHash"
	ErrBadSize           = "BadSize"
	ErrBadLen            = "BadLen"
	ErrBadBlockSize      = "BadBlockSize"
	ErrIncompleteHashRef = "IncompleteHashRef"
	ErrResponseTooLarge  = "ResponseTooLarge"
)

// EncodeChunk frames payload into the authenticated, optionally
// compressed chunk wire format described by the header layout above,
// encrypting it under key with a deterministic keyed IV. compressAllowed
// enables an opportunistic zlib pass that is kept only if it shrinks
// the payload by at least 20%. It returns the chunk's content-addressed
// name (SHA-256 of the encoded bytes) and the encoded bytes themselves.
func EncodeChunk(payload []byte, key []byte, compressAllowed bool) (name [HashSize]byte, encoded []byte, err error) {
	content := payload
	compressed := byte(0)

	if compressAllowed {
		c, cerr := deflate(payload)
		if cerr != nil {
			return name, nil, cerr
		}
		if len(c) <= (len(payload)*8)/10 {
			content = c
			compressed = 1
		}
	}

	contentLen := len(content)
	padded := zeroPad(content, aes.BlockSize)

	contentIV := deriveContentIV(key, content)

	ciphertext, err := cbcEncrypt(key, contentIV, padded)
	if err != nil {
		return name, nil, err
	}

	header := encodeHeader(compressed, uint32(contentLen), contentIV)
	encoded = append(header, ciphertext...)
	name = sha256.Sum256(encoded)
	return name, encoded, nil
}

// DecodeChunk reads exactly one chunk from stream, verifies it
// against expectedName, decrypts and (if flagged) inflates it under
// key, and returns the recovered content. maxSize bounds both the
// ciphertext read from stream and the decompressed output, guarding
// against a hostile or corrupt chunk store inflating memory usage.
func DecodeChunk(stream io.Reader, expectedName [HashSize]byte, key []byte, maxSize int) ([]byte, error) {
	header := make([]byte, headerSize)
	n, err := io.ReadFull(stream, header)
	if err != nil || n != headerSize {
		return nil, newChunkError(ErrShortHeader, "read %d of %d header bytes", n, headerSize)
	}

	var magic [16]byte
	copy(magic[:], header[0:16])
	version := header[16]
	compressed := header[17]
	contentLen := binary.LittleEndian.Uint32(header[18:22])
	contentIV := append([]byte(nil), header[22:38]...)

	if magic != Magic {
		return nil, newChunkError(ErrBadMagic, "unexpected magic bytes")
	}
	if version != Version {
		return nil, newChunkError(ErrBadVersion, "got version %d", version)
	}
	if compressed != 0 && compressed != 1 {
		return nil, newChunkError(ErrBadFlag, "got flag %d", compressed)
	}

	ciphertext := make([]byte, maxSize)
	nRead, err := io.ReadFull(stream, ciphertext)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	ciphertext = ciphertext[:nRead]

	h := sha256.New()
	h.Write(header)
	h.Write(ciphertext)
	var got [HashSize]byte
	copy(got[:], h.Sum(nil))
	if !hmac.Equal(got[:], expectedName[:]) {
		return nil, newChunkError(ErrBadHash, "chunk hash mismatch")
	}

	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, newChunkError(ErrBadSize, "ciphertext length %d not a multiple of %d", len(ciphertext), aes.BlockSize)
	}
	if len(ciphertext) < int(contentLen) {
		return nil, newChunkError(ErrBadLen, "ciphertext shorter than declared content_len")
	}

	content, err := cbcDecrypt(key, contentIV, ciphertext)
	if err != nil {
		return nil, err
	}
	content = content[:contentLen]

	if compressed == 1 {
		content, err = inflate(content, maxSize)
		if err != nil {
			return nil, err
		}
	}
	return content, nil
}

func encodeHeader(compressed byte, contentLen uint32, contentIV []byte) []byte {
	header := make([]byte, headerSize)
	copy(header[0:16], Magic[:])
	header[16] = Version
	header[17] = compressed
	binary.LittleEndian.PutUint32(header[18:22], contentLen)
	copy(header[22:38], contentIV)
	return header
}

func zeroPad(data []byte, align int) []byte {
	if rem := len(data) % align; rem != 0 {
		padded := make([]byte, len(data)+align-rem)
		copy(padded, data)
		return padded
	}
	return append([]byte(nil), data...)
}

func deriveContentIV(key, content []byte) []byte {
	sum := sha256.Sum256(content)
	mac := hmac.New(sha256.New, key)
	mac.Write(sum[:])
	return mac.Sum(nil)[:16]
}

func cbcEncrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)
	return ciphertext, nil
}

func cbcDecrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 {
		return nil, nil
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return plaintext, nil
}

func deflate(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(compressed []byte, maxSize int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	limited := io.LimitReader(r, int64(maxSize)+1)
	out, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if len(out) > maxSize {
		return nil, newChunkError(ErrResponseTooLarge, "decompressed output exceeds %d bytes", maxSize)
	}
	return out, nil
}
