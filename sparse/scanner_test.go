package sparse

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// writeSparseFile creates a file whose only bytes physically present on
// disk are data; every other offset up to size is expected to read back
// as a hole by a filesystem that supports SEEK_HOLE.
func writeSparseFile(t *testing.T, data map[int64][]byte, size int64) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "sparse.img")
	f, err := os.Create(name)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	if err := f.Truncate(size); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	for off, buf := range data {
		if _, err := f.WriteAt(buf, off); err != nil {
			t.Fatalf("writeAt %d: %v", off, err)
		}
	}
	return name
}

func drain(t *testing.T, sec Section, bufSize int) []byte {
	t.Helper()
	var out bytes.Buffer
	for {
		buf, err := sec.Read(bufSize)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if len(buf) == 0 {
			return out.Bytes()
		}
		out.Write(buf)
	}
}

func TestReaderDataThenHole(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 4096)
	name := writeSparseFile(t, map[int64][]byte{0: payload}, 3*4096)

	r, err := Open(name)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	var sections []Section
	for {
		sec, err := r.Next()
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if sec == nil {
			break
		}
		sections = append(sections, sec)
	}

	if len(sections) == 0 {
		t.Fatal("expected at least one section")
	}
	if sections[0].AllZero() {
		t.Fatal("first section should be data")
	}
	got := drain(t, sections[0], 1024)
	if !bytes.Equal(got, payload) {
		t.Fatalf("data section mismatch: got %d bytes, want %d", len(got), len(payload))
	}

	for _, sec := range sections[1:] {
		if !sec.AllZero() {
			t.Fatal("trailing section should be a hole")
		}
	}
}

func TestReaderAllHole(t *testing.T) {
	name := writeSparseFile(t, nil, 8192)

	r, err := Open(name)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	sec, err := r.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if sec == nil {
		t.Fatal("expected one section for an all-hole file")
	}
	if !sec.AllZero() {
		t.Fatal("file with no writes should scan as a hole")
	}
	n, err := sec.Skip()
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if n != 8192 {
		t.Fatalf("skip length = %d, want 8192", n)
	}

	if sec, err := r.Next(); err != nil || sec != nil {
		t.Fatalf("expected EOF after the single hole section, got sec=%v err=%v", sec, err)
	}
}

func TestReaderRegularFileIsSeekable(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "plain")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	name := f.Name()
	f.WriteString("hello")
	f.Close()

	r, err := Open(name)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()
	if !r.Seekable() {
		t.Fatal("a regular file should report seekable")
	}
}
