// Package base provides a base implementation of the storage driver
// that can be used to implement common checks. The goal is to
// increase the amount of code sharing.
//
// The canonical approach to use this class is to embed in the
// exported driver struct such that calls are proxied through this
// implementation. First, declare the internal driver, as follows:
//
//	type driver struct { ... internal ...}
//
// The resulting type should implement StorageDriver such that it can
// be the target of a Base struct. The exported type can then be
// declared as follows:
//
//	type Driver struct {
//		Base
//	}
//
// Because Driver embeds Base, it effectively implements Base. If the
// driver needs to intercept a call before going to base, Driver
// should implement that method. Effectively, Driver can intercept
// calls before coming in and driver implements the actual logic.
//
// To further shield the embed from other packages, it is recommended
// to employ a private embed struct:
//
//	type baseEmbed struct {
//		base.Base
//	}
//
// Then, declare driver to embed baseEmbed, rather than Base directly:
//
//	type Driver struct {
//		baseEmbed
//	}
//
// The type now implements StorageDriver, proxying through Base,
// without exporting an unnecessary field.
package base

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	driver "github.com/dividuum/nbd-chunk-drive/store/driver"
)

// Base provides a wrapper around a storagedriver implementation that
// adds path validation and duration logging to every call.
type Base struct {
	driver.StorageDriver
}

func durationLog(ctx context.Context, methodName string) func() {
	startedAt := time.Now()
	return func() {
		logrus.WithContext(ctx).
			WithField("duration", time.Since(startedAt)).
			Debug("chunkstore." + methodName)
	}
}

func (b *Base) invalid(path string) error {
	return driver.InvalidPathError{Path: path, DriverName: b.Name()}
}

// GetContent wraps GetContent of the underlying storage driver.
func (b *Base) GetContent(ctx context.Context, path string) ([]byte, error) {
	if !driver.PathRegexp.MatchString(path) {
		return nil, b.invalid(path)
	}
	defer durationLog(ctx, "GetContent")()
	return b.StorageDriver.GetContent(ctx, path)
}

// PutContent wraps PutContent of the underlying storage driver.
func (b *Base) PutContent(ctx context.Context, path string, content []byte) error {
	if !driver.PathRegexp.MatchString(path) {
		return b.invalid(path)
	}
	defer durationLog(ctx, "PutContent")()
	return b.StorageDriver.PutContent(ctx, path, content)
}

// Reader wraps Reader of the underlying storage driver.
func (b *Base) Reader(ctx context.Context, path string, offset int64) (io.ReadCloser, error) {
	if offset < 0 {
		return nil, driver.InvalidOffsetError{Path: path, Offset: offset, DriverName: b.Name()}
	}
	if !driver.PathRegexp.MatchString(path) {
		return nil, b.invalid(path)
	}
	defer durationLog(ctx, "Reader")()
	return b.StorageDriver.Reader(ctx, path, offset)
}

// Writer wraps Writer of the underlying storage driver.
func (b *Base) Writer(ctx context.Context, path string, append bool) (driver.FileWriter, error) {
	if !driver.PathRegexp.MatchString(path) {
		return nil, b.invalid(path)
	}
	defer durationLog(ctx, "Writer")()
	return b.StorageDriver.Writer(ctx, path, append)
}

// Stat wraps Stat of the underlying storage driver.
func (b *Base) Stat(ctx context.Context, path string) (driver.FileInfo, error) {
	if !driver.PathRegexp.MatchString(path) {
		return nil, b.invalid(path)
	}
	defer durationLog(ctx, "Stat")()
	return b.StorageDriver.Stat(ctx, path)
}

// List wraps List of the underlying storage driver.
func (b *Base) List(ctx context.Context, path string) ([]string, error) {
	if !driver.PathRegexp.MatchString(path) && path != "/" {
		return nil, b.invalid(path)
	}
	defer durationLog(ctx, "List")()
	return b.StorageDriver.List(ctx, path)
}

// Move wraps Move of the underlying storage driver.
func (b *Base) Move(ctx context.Context, sourcePath, destPath string) error {
	if !driver.PathRegexp.MatchString(sourcePath) {
		return b.invalid(sourcePath)
	} else if !driver.PathRegexp.MatchString(destPath) {
		return b.invalid(destPath)
	}
	defer durationLog(ctx, "Move")()
	return b.StorageDriver.Move(ctx, sourcePath, destPath)
}

// Delete wraps Delete of the underlying storage driver.
func (b *Base) Delete(ctx context.Context, path string) error {
	if !driver.PathRegexp.MatchString(path) {
		return b.invalid(path)
	}
	defer durationLog(ctx, "Delete")()
	return b.StorageDriver.Delete(ctx, path)
}
