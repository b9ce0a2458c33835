package loader

import (
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPOpenStream(t *testing.T) {
	var hash [32]byte
	hash[3] = 0xCD
	want := hex.EncodeToString(hash[:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/"+want {
			http.NotFound(w, r)
			return
		}
		if enc := r.Header.Get("Accept-Encoding"); enc != "identity" {
			t.Errorf("Accept-Encoding = %q, want identity", enc)
		}
		w.Write([]byte("remote chunk"))
	}))
	defer srv.Close()

	l := NewHTTP(srv.URL + "/")
	stream, err := l.OpenStream(context.Background(), hash, 64)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer stream.Close()

	got, err := io.ReadAll(stream)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "remote chunk" {
		t.Fatalf("got %q, want %q", got, "remote chunk")
	}
}

func TestHTTPOpenStreamRejectsOversizedContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.Write(make([]byte, 1000))
	}))
	defer srv.Close()

	l := NewHTTP(srv.URL + "/")
	var hash [32]byte
	if _, err := l.OpenStream(context.Background(), hash, 64); err == nil {
		t.Fatal("expected an error for a response exceeding maxSize")
	}
}

func TestHTTPOpenStreamRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	l := NewHTTP(srv.URL + "/")
	var hash [32]byte
	if _, err := l.OpenStream(context.Background(), hash, 64); err == nil {
		t.Fatal("expected an error for a non-2xx response")
	}
}
