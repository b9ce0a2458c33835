package filesystem

import (
	"context"
	"testing"
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	root := t.TempDir()
	d, err := FromParameters(map[string]interface{}{"rootdirectory": root})
	if err != nil {
		t.Fatalf("FromParameters: %v", err)
	}
	return d
}

func TestPutGetContent(t *testing.T) {
	d := newTestDriver(t)
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

func TestStatMissing(t *testing.T) {
	d := newTestDriver(t)
	if _, err := d.Stat(context.Background(), "/nope"); err == nil {
		t.Fatal("expected error for missing path")
	} else if _, ok := err.(interface{ Error() string }); !ok {
		t.Fatalf("unexpected error type: %T", err)
	}
}

func TestMoveAndDelete(t *testing.T) {
	d := newTestDriver(t)
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
	if err := d.Delete(ctx, "/b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestFromParametersDefaults(t *testing.T) {
	params, err := fromParametersImpl(nil)
	if err != nil {
		t.Fatalf("fromParametersImpl: %v", err)
	}
	if params.MaxThreads != defaultMaxThreads {
		t.Fatalf("got %d, want %d", params.MaxThreads, defaultMaxThreads)
	}
	if params.RootDirectory != defaultRootDirectory {
		t.Fatalf("got %q, want %q", params.RootDirectory, defaultRootDirectory)
	}
}
