// Package inmemory provides a StorageDriver that keeps all content
// in a process-local map. It is useful for tests and for ephemeral
// repositories that never need to survive a restart.
package inmemory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	storagedriver "github.com/dividuum/nbd-chunk-drive/store/driver"
	"github.com/dividuum/nbd-chunk-drive/store/driver/base"
	"github.com/dividuum/nbd-chunk-drive/store/driver/factory"
)

const driverName = "inmemory"

func init() {
	factory.Register(driverName, &inMemoryDriverFactory{})
}

type inMemoryDriverFactory struct{}

func (f *inMemoryDriverFactory) Create(parameters map[string]interface{}) (storagedriver.StorageDriver, error) {
	return New(), nil
}

type entry struct {
	content []byte
	modTime time.Time
}

type driver struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// baseEmbed allows us to hide the Base wrapper's internal methods
// from the exported Driver type.
type baseEmbed struct {
	base.Base
}

// Driver is a StorageDriver implementation backed by an in-memory
// map. None of its state is persisted across process restarts.
type Driver struct {
	baseEmbed
}

// New constructs a new Driver.
func New() *Driver {
	d := &driver{
		entries: make(map[string]*entry),
	}
	return &Driver{
		baseEmbed: baseEmbed{
			Base: base.Base{
				StorageDriver: d,
			},
		},
	}
}

func (d *driver) Name() string {
	return driverName
}

func (d *driver) GetContent(ctx context.Context, p string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.entries[p]
	if !ok {
		return nil, storagedriver.PathNotFoundError{Path: p, DriverName: driverName}
	}
	content := make([]byte, len(e.content))
	copy(content, e.content)
	return content, nil
}

func (d *driver) PutContent(ctx context.Context, p string, content []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	stored := make([]byte, len(content))
	copy(stored, content)
	d.entries[p] = &entry{content: stored, modTime: time.Now()}
	return nil
}

func (d *driver) Reader(ctx context.Context, p string, offset int64) (io.ReadCloser, error) {
	d.mu.RLock()
	e, ok := d.entries[p]
	d.mu.RUnlock()
	if !ok {
		return nil, storagedriver.PathNotFoundError{Path: p, DriverName: driverName}
	}
	if offset < 0 || offset > int64(len(e.content)) {
		return nil, storagedriver.InvalidOffsetError{Path: p, Offset: offset, DriverName: driverName}
	}
	return io.NopCloser(bytes.NewReader(e.content[offset:])), nil
}

func (d *driver) Writer(ctx context.Context, p string, append bool) (storagedriver.FileWriter, error) {
	d.mu.Lock()
	e, ok := d.entries[p]
	if !ok {
		e = &entry{}
		d.entries[p] = e
	}
	var buf bytes.Buffer
	if append {
		buf.Write(e.content)
	}
	d.mu.Unlock()

	return &writer{driver: d, path: p, buf: &buf}, nil
}

type writer struct {
	driver    *driver
	path      string
	buf       *bytes.Buffer
	closed    bool
	committed bool
	cancelled bool
}

func (w *writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	return w.buf.Write(p)
}

func (w *writer) Size() int64 {
	return int64(w.buf.Len())
}

func (w *writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if !w.committed && !w.cancelled {
		return w.Commit(context.Background())
	}
	return nil
}

func (w *writer) Cancel(ctx context.Context) error {
	if w.closed {
		return nil
	}
	w.cancelled = true
	w.closed = true
	return nil
}

func (w *writer) Commit(ctx context.Context) error {
	if w.committed {
		return nil
	}
	w.committed = true
	w.driver.mu.Lock()
	defer w.driver.mu.Unlock()
	w.driver.entries[w.path] = &entry{content: w.buf.Bytes(), modTime: time.Now()}
	return nil
}

func (d *driver) Stat(ctx context.Context, p string) (storagedriver.FileInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p = strings.TrimSuffix(p, "/")
	if e, ok := d.entries[p]; ok {
		return storagedriver.FileInfoInternal{FileInfoFields: storagedriver.FileInfoFields{
			Path:    p,
			Size:    int64(len(e.content)),
			ModTime: e.modTime,
			IsDir:   false,
		}}, nil
	}

	prefix := p
	if prefix != "" {
		prefix += "/"
	}
	for child := range d.entries {
		if strings.HasPrefix(child, prefix) {
			return storagedriver.FileInfoInternal{FileInfoFields: storagedriver.FileInfoFields{
				Path:  p,
				IsDir: true,
			}}, nil
		}
	}
	return nil, storagedriver.PathNotFoundError{Path: p, DriverName: driverName}
}

func (d *driver) List(ctx context.Context, p string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	prefix := strings.TrimSuffix(p, "/")
	if prefix != "" {
		prefix += "/"
	}

	seen := make(map[string]bool)
	var children []string
	for child := range d.entries {
		if !strings.HasPrefix(child, prefix) {
			continue
		}
		rest := strings.TrimPrefix(child, prefix)
		if rest == "" {
			continue
		}
		direct := rest
		if i := strings.Index(rest, "/"); i >= 0 {
			direct = rest[:i]
		}
		full := prefix + direct
		if !seen[full] {
			seen[full] = true
			children = append(children, full)
		}
	}
	if len(children) == 0 {
		if _, ok := d.entries[strings.TrimSuffix(p, "/")]; !ok {
			return nil, storagedriver.PathNotFoundError{Path: p, DriverName: driverName}
		}
	}
	sort.Strings(children)
	return children, nil
}

func (d *driver) Move(ctx context.Context, sourcePath, destPath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.entries[sourcePath]
	if !ok {
		return storagedriver.PathNotFoundError{Path: sourcePath, DriverName: driverName}
	}
	d.entries[destPath] = e
	delete(d.entries, sourcePath)
	return nil
}

func (d *driver) Delete(ctx context.Context, p string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prefix := strings.TrimSuffix(p, "/") + "/"
	found := false
	for child := range d.entries {
		if child == p || strings.HasPrefix(child, prefix) {
			delete(d.entries, child)
			found = true
		}
	}
	if !found {
		return storagedriver.PathNotFoundError{Path: p, DriverName: driverName}
	}
	return nil
}

func (d *driver) Walk(ctx context.Context, from string, f storagedriver.WalkFn, options ...func(*storagedriver.WalkOptions)) error {
	return storagedriver.WalkFallback(ctx, d, from, f, options...)
}
