// Package sparse iterates a file as an alternating sequence of data
// and hole sections using the filesystem's SEEK_DATA/SEEK_HOLE
// queries, so that all-zero regions can be fed to a tree-chunk writer
// as explicit zero runs instead of being read and re-detected as zero
// bytes.
package sparse

import (
	"errors"
	"io"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// Section is one contiguous data or hole region of the scanned file.
type Section interface {
	// AllZero reports whether this section is a hole: its bytes are
	// defined to be zero and were never read from the kernel.
	AllZero() bool

	// Read returns up to maxSize bytes from the section, advancing
	// the scanner's logical offset. For a hole section it synthesizes
	// zero bytes rather than reading them. An empty result with a nil
	// error signals the section is exhausted.
	Read(maxSize int) ([]byte, error)

	// Skip advances past the entire remainder of the section without
	// reading it and reports how many bytes were skipped. Only valid
	// on a hole section.
	Skip() (int64, error)
}

// Reader scans a file for its alternating data/hole structure.
type Reader struct {
	f        *os.File
	offset   int64
	size     int64
	seekable bool
	eof      bool
	inData   bool
}

// Open opens name for sparse scanning.
func Open(name string) (*Reader, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}

	r := &Reader{f: f, seekable: true}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		if errors.Is(err, syscall.ESPIPE) {
			r.seekable = false
		} else {
			f.Close()
			return nil, err
		}
	}

	if r.seekable {
		fi, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, err
		}
		r.size = fi.Size()
	}

	r.detectInitialMode()
	return r, nil
}

// Close releases the scanner's file descriptor.
func (r *Reader) Close() error { return r.f.Close() }

// Seekable reports whether the underlying file supports SEEK_DATA and
// SEEK_HOLE; a non-seekable stream is treated as a single unbounded
// data section.
func (r *Reader) Seekable() bool { return r.seekable }

func (r *Reader) detectInitialMode() {
	if !r.seekable {
		r.inData = true
		return
	}
	off, err := r.f.Seek(0, unix.SEEK_DATA)
	r.inData = err == nil && off == 0
	// An error here (typically ENXIO) means the file is one giant
	// hole; inData stays false and the first section covers it all.
}

// detectSectionSize returns the length of the section starting at the
// scanner's current offset, restoring the descriptor's seek position
// to that offset afterward.
func (r *Reader) detectSectionSize() (int64, error) {
	if !r.seekable {
		return -1, nil
	}

	whence := unix.SEEK_DATA
	if r.inData {
		whence = unix.SEEK_HOLE
	}

	nextCut, err := r.f.Seek(r.offset, whence)
	if err != nil {
		if errors.Is(err, syscall.ENXIO) {
			nextCut = r.size
		} else {
			return 0, err
		}
	}

	if _, err := r.f.Seek(r.offset, io.SeekStart); err != nil {
		return 0, err
	}
	return nextCut - r.offset, nil
}

// advance moves the logical offset forward by n bytes and marks EOF
// once it reaches the file's size (or, for non-seekable input, a read
// returns nothing).
func (r *Reader) advance(n int64) int64 {
	r.offset += n
	if r.seekable && r.offset >= r.size {
		r.eof = true
	}
	return n
}

// read performs the raw underlying file read used by data sections.
func (r *Reader) read(size int) ([]byte, error) {
	if r.eof {
		return nil, nil
	}
	buf := make([]byte, size)
	n, err := r.f.Read(buf)
	if err != nil && err != io.EOF {
		return nil, err
	}
	r.advance(int64(n))
	if n == 0 {
		r.eof = true
	}
	return buf[:n], nil
}

// Next returns the next section of the file, or nil when the scanner
// has reached EOF.
func (r *Reader) Next() (Section, error) {
	if r.eof {
		return nil, nil
	}
	size, err := r.detectSectionSize()
	if err != nil {
		return nil, err
	}

	var sec Section
	if r.inData {
		sec = &dataSection{reader: r, remaining: size}
	} else {
		sec = &holeSection{reader: r, remaining: size}
	}
	r.inData = !r.inData
	return sec, nil
}

type dataSection struct {
	reader    *Reader
	remaining int64 // -1 means "unknown, non-seekable stream"
}

func (s *dataSection) AllZero() bool { return false }

func (s *dataSection) Read(maxSize int) ([]byte, error) {
	if s.remaining < 0 {
		return s.reader.read(maxSize)
	}
	readSize := int64(maxSize)
	if s.remaining < readSize {
		readSize = s.remaining
	}
	if readSize == 0 {
		return nil, nil
	}
	buf, err := s.reader.read(int(readSize))
	if err != nil {
		return nil, err
	}
	s.remaining -= int64(len(buf))
	return buf, nil
}

func (s *dataSection) Skip() (int64, error) {
	return 0, errors.New("sparse: cannot skip a data section")
}

type holeSection struct {
	reader    *Reader
	remaining int64
}

func (s *holeSection) AllZero() bool { return true }

func (s *holeSection) Read(maxSize int) ([]byte, error) {
	readSize := int64(maxSize)
	if s.remaining < readSize {
		readSize = s.remaining
	}
	if readSize == 0 {
		return nil, nil
	}
	s.reader.advance(readSize)
	s.remaining -= readSize
	return make([]byte, readSize), nil
}

func (s *holeSection) Skip() (int64, error) {
	skipped := s.reader.advance(s.remaining)
	s.remaining = 0
	return skipped, nil
}
