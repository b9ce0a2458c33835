package loader

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dividuum/nbd-chunk-drive/treechunk"
)

// requestTimeout bounds a single chunk fetch; a stalled upstream must
// not hang a reader forever.
const requestTimeout = 5 * time.Second

// HTTP loads chunks from a base URL whose path is replaced by each
// chunk's hex hash, so a chunk is fetched from /<hex hash> on the base
// URL's host; any path in the base URL is discarded. It disables transport-level compression: the
// chunk wire format already carries its own optional compression
// flag, and double-compressing would only cost CPU.
type HTTP struct {
	baseURL string
	client  *http.Client
}

// NewHTTP returns a ChunkLoader that fetches chunks from baseURL.
func NewHTTP(baseURL string) *HTTP {
	return &HTTP{
		baseURL: baseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

func (h *HTTP) OpenStream(ctx context.Context, hash [treechunk.HashSize]byte, maxSize int) (io.ReadCloser, error) {
	u, err := url.Parse(h.baseURL)
	if err != nil {
		return nil, err
	}
	u.Path = hex.EncodeToString(hash[:])

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("User-Agent", "tree-chunker")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("loader/http: unexpected status %s fetching chunk %x", resp.Status, hash)
	}

	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.Atoi(cl); err == nil && n > maxSize {
			resp.Body.Close()
			return nil, &treechunk.ChunkError{Kind: treechunk.ErrResponseTooLarge}
		}
	}

	return resp.Body, nil
}
