package inmemory

import (
	"context"
	"testing"
)

func TestPutGetContent(t *testing.T) {
	d := New()
	ctx := context.Background()

	if err := d.PutContent(ctx, "/foo/bar", []byte("hello")); err != nil {
		t.Fatalf("PutContent: %v", err)
	}
	content, err := d.GetContent(ctx, "/foo/bar")
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if string(content) != "hello" {
		t.Fatalf("got %q, want %q", content, "hello")
	}
}

func TestGetContentMissing(t *testing.T) {
	d := New()
	if _, err := d.GetContent(context.Background(), "/nope"); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestList(t *testing.T) {
	d := New()
	ctx := context.Background()

	for _, p := range []string{"/chunks/ab/abcd", "/chunks/ab/abef", "/chunks/cd/cdcd"} {
		if err := d.PutContent(ctx, p, []byte("x")); err != nil {
			t.Fatalf("PutContent(%s): %v", p, err)
		}
	}

	children, err := d.List(ctx, "/chunks")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("got %d children, want 2: %v", len(children), children)
	}
}

func TestMoveAndDelete(t *testing.T) {
	d := New()
	ctx := context.Background()

	if err := d.PutContent(ctx, "/a", []byte("x")); err != nil {
		t.Fatalf("PutContent: %v", err)
	}
	if err := d.Move(ctx, "/a", "/b"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := d.GetContent(ctx, "/a"); err == nil {
		t.Fatal("expected source to be gone after move")
	}
	if _, err := d.GetContent(ctx, "/b"); err != nil {
		t.Fatalf("GetContent(/b): %v", err)
	}
	if err := d.Delete(ctx, "/b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := d.GetContent(ctx, "/b"); err == nil {
		t.Fatal("expected deleted path to be gone")
	}
}

func TestWriterAppend(t *testing.T) {
	d := New()
	ctx := context.Background()

	w, err := d.Writer(ctx, "/stream", false)
	if err != nil {
		t.Fatalf("Writer: %v", err)
	}
	if _, err := w.Write([]byte("part1")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	w2, err := d.Writer(ctx, "/stream", true)
	if err != nil {
		t.Fatalf("Writer (append): %v", err)
	}
	if _, err := w2.Write([]byte("part2")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w2.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	content, err := d.GetContent(ctx, "/stream")
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if string(content) != "part1part2" {
		t.Fatalf("got %q, want %q", content, "part1part2")
	}
}
