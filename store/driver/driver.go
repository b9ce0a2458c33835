// Package driver defines the interface a chunk store backend must
// implement so the writer can persist chunks and the reader can load
// them back, keyed only by their hex-encoded name.
//
// The interface mirrors a filesystem-like key/value object store: it
// is deliberately small (Get/Put/Read/Write/Stat/Move/Delete) so that
// a local directory, an in-memory map, or a remote object store can
// all satisfy it with little adaptation.
package driver

import (
	"context"
	"io"
	"regexp"
	"time"
)

// StorageDriver is a generalized backend for storing chunk bytes
// keyed by path. Repository-specific code never talks to a backend
// directly; it always goes through this interface so that the
// local-directory, in-memory, and any future remote backend behave
// identically from the caller's point of view.
type StorageDriver interface {
	// Name returns the human-readable name of the driver.
	Name() string

	// GetContent retrieves the content stored at "path" as a []byte.
	// This should primarily be used for small objects.
	GetContent(ctx context.Context, path string) ([]byte, error)

	// PutContent stores the []byte content at a location designated
	// by "path". This should primarily be used for small objects.
	PutContent(ctx context.Context, path string, content []byte) error

	// Reader retrieves an io.ReadCloser for the content stored at
	// "path" with a given byte offset.
	Reader(ctx context.Context, path string, offset int64) (io.ReadCloser, error)

	// Writer returns a FileWriter which will store the content
	// written to it at "path" once Commit is called.
	Writer(ctx context.Context, path string, append bool) (FileWriter, error)

	// Stat retrieves the FileInfo for the given path, including
	// size and modification time.
	Stat(ctx context.Context, path string) (FileInfo, error)

	// List returns the direct descendants of the given path.
	List(ctx context.Context, path string) ([]string, error)

	// Move moves an object stored at sourcePath to destPath,
	// removing the original object.
	Move(ctx context.Context, sourcePath string, destPath string) error

	// Delete recursively deletes all objects stored at "path" and
	// its subpaths.
	Delete(ctx context.Context, path string) error

	// Walk traverses the objects under "path", calling f on each.
	Walk(ctx context.Context, path string, f WalkFn, options ...func(*WalkOptions)) error
}

// FileWriter is a io.WriteCloser with the addition of a Size method,
// for determining the current size of the file, and a Cancel method,
// for dropping the file contents.
type FileWriter interface {
	io.WriteCloser

	// Size returns the number of bytes written to this FileWriter.
	Size() int64

	// Cancel removes any written content from this FileWriter.
	Cancel(ctx context.Context) error

	// Commit flushes all content written to this FileWriter and
	// makes it available for future calls to StorageDriver.GetContent
	// and StorageDriver.Reader.
	Commit(ctx context.Context) error
}

// FileInfo describes a file, including its path, size, and whether
// it is a directory.
type FileInfo interface {
	// Path provides the full path of the target of this file info.
	Path() string

	// Size returns current length in bytes of the file. The return
	// value is meaningless if IsDir returns true.
	Size() int64

	// ModTime returns the modification time of the file.
	ModTime() time.Time

	// IsDir returns true if the path is a directory.
	IsDir() bool
}

// FileInfoFields is a struct that fulfills the FileInfo interface
// for use from StorageDriver implementations.
type FileInfoFields struct {
	Path    string
	Size    int64
	ModTime time.Time
	IsDir   bool
}

// FileInfoInternal implements FileInfo from a FileInfoFields value.
type FileInfoInternal struct {
	FileInfoFields
}

var _ FileInfo = FileInfoInternal{}

func (fi FileInfoInternal) Path() string         { return fi.FileInfoFields.Path }
func (fi FileInfoInternal) Size() int64          { return fi.FileInfoFields.Size }
func (fi FileInfoInternal) ModTime() time.Time   { return fi.FileInfoFields.ModTime }
func (fi FileInfoInternal) IsDir() bool          { return fi.FileInfoFields.IsDir }

// WalkOptions provides optional parameters to Walk.
type WalkOptions struct {
	// StartAfterHint indicates that Walk can optionally start after
	// this path, not before it. Some drivers will ignore this hint.
	StartAfterHint string
}

// WithStartAfterHint configures Walk to (optionally) start after the
// given path.
func WithStartAfterHint(path string) func(*WalkOptions) {
	return func(options *WalkOptions) {
		options.StartAfterHint = path
	}
}

// PathRegexp is the regular expression a chunk store path must match:
// one or more slash-led components of lowercase letters and digits,
// each optionally joined by single '.', '_' or '-' separators.
var PathRegexp = regexp.MustCompile(`^(/[a-z0-9]+([._-]?[a-z0-9])+)+$`)
