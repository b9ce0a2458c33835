package base

import (
	"context"
	"fmt"
	"io"

	driver "github.com/dividuum/nbd-chunk-drive/store/driver"
)

// Regulator wraps a StorageDriver to limit the number of calls that
// may run against the underlying backend at any given time. Backends
// such as a local filesystem driver use this to cap open file
// descriptors under concurrent chunk reads and writes.
type Regulator struct {
	driver.StorageDriver
	limit chan struct{}
}

// NewRegulator returns a StorageDriver that limits concurrent calls
// into the given driver to maxConcurrency. A maxConcurrency of 0
// means unlimited.
func NewRegulator(d driver.StorageDriver, maxConcurrency uint64) driver.StorageDriver {
	if maxConcurrency == 0 {
		return d
	}
	return &Regulator{
		StorageDriver: d,
		limit:         make(chan struct{}, maxConcurrency),
	}
}

func (r *Regulator) enter() func() {
	r.limit <- struct{}{}
	return func() { <-r.limit }
}

// GetContent wraps GetContent of the underlying storage driver.
func (r *Regulator) GetContent(ctx context.Context, path string) ([]byte, error) {
	defer r.enter()()
	return r.StorageDriver.GetContent(ctx, path)
}

// PutContent wraps PutContent of the underlying storage driver.
func (r *Regulator) PutContent(ctx context.Context, path string, content []byte) error {
	defer r.enter()()
	return r.StorageDriver.PutContent(ctx, path, content)
}

// Reader wraps Reader of the underlying storage driver. The returned
// ReadCloser holds the slot open until it is closed.
func (r *Regulator) Reader(ctx context.Context, path string, offset int64) (io.ReadCloser, error) {
	release := r.enter()
	rc, err := r.StorageDriver.Reader(ctx, path, offset)
	if err != nil {
		release()
		return nil, err
	}
	return &regulatedReadCloser{ReadCloser: rc, release: release}, nil
}

type regulatedReadCloser struct {
	io.ReadCloser
	release func()
}

func (r *regulatedReadCloser) Close() error {
	defer r.release()
	return r.ReadCloser.Close()
}

// Writer wraps Writer of the underlying storage driver.
func (r *Regulator) Writer(ctx context.Context, path string, append bool) (driver.FileWriter, error) {
	defer r.enter()()
	return r.StorageDriver.Writer(ctx, path, append)
}

// Stat wraps Stat of the underlying storage driver.
func (r *Regulator) Stat(ctx context.Context, path string) (driver.FileInfo, error) {
	defer r.enter()()
	return r.StorageDriver.Stat(ctx, path)
}

// List wraps List of the underlying storage driver.
func (r *Regulator) List(ctx context.Context, path string) ([]string, error) {
	defer r.enter()()
	return r.StorageDriver.List(ctx, path)
}

// Move wraps Move of the underlying storage driver.
func (r *Regulator) Move(ctx context.Context, sourcePath, destPath string) error {
	defer r.enter()()
	return r.StorageDriver.Move(ctx, sourcePath, destPath)
}

// Delete wraps Delete of the underlying storage driver.
func (r *Regulator) Delete(ctx context.Context, path string) error {
	defer r.enter()()
	return r.StorageDriver.Delete(ctx, path)
}

// Walk wraps Walk of the underlying storage driver.
func (r *Regulator) Walk(ctx context.Context, path string, f driver.WalkFn, options ...func(*driver.WalkOptions)) error {
	defer r.enter()()
	return r.StorageDriver.Walk(ctx, path, f, options...)
}

// GetLimitFromParameter takes the value of a storage driver
// constructor parameter and converts it into a concurrency limit,
// clamping it to be no lower than min and falling back to
// defaultValue if the parameter is nil.
func GetLimitFromParameter(param interface{}, min, defaultValue uint64) (uint64, error) {
	limit := defaultValue

	switch v := param.(type) {
	case string:
		var err error
		parsed, err := parseUint(v)
		if err != nil {
			return 0, fmt.Errorf("parameter must be an integer, '%v' invalid", param)
		}
		limit = parsed
	case uint64:
		limit = v
	case int:
		if v < 0 {
			return 0, fmt.Errorf("parameter must be a positive integer, '%v' invalid", param)
		}
		limit = uint64(v)
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("parameter must be a positive integer, '%v' invalid", param)
		}
		limit = uint64(v)
	case nil:
		// use default
	default:
		return 0, fmt.Errorf("invalid value for parameter: %v", param)
	}

	if limit < min {
		return min, nil
	}
	return limit, nil
}

func parseUint(s string) (uint64, error) {
	var n uint64
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non-numeric value")
		}
		n = n*10 + uint64(c-'0')
	}
	return n, nil
}
