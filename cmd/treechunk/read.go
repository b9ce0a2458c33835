package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dividuum/nbd-chunk-drive/treechunk"
)

// readBlockSize is how much plaintext ReadAt is asked for per call
// when streaming a whole repository out to a destination file.
const readBlockSize = 1 << 20

// ReadCmd opens a tree-chunked repository by its intro hash and
// streams its full contents to a destination file.
var ReadCmd = &cobra.Command{
	Use:   "read <config> <intro-hash> <dest-file>",
	Short: "`read` reconstructs a file from a tree-chunked repository",
	Long:  "`read` reconstructs a file from a tree-chunked repository",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfiguration(args[0])
		if err != nil {
			fatalf("configuration error: %v", err)
		}
		if err := configureLogging(cfg); err != nil {
			fatalf("logging configuration error: %v", err)
		}

		introHashBytes, err := hex.DecodeString(args[1])
		if err != nil || len(introHashBytes) != treechunk.HashSize {
			fatalf("invalid intro hash %q", args[1])
		}
		var introHash [treechunk.HashSize]byte
		copy(introHash[:], introHashBytes)

		ctx := context.Background()
		store, err := openStore(ctx, cfg)
		if err != nil {
			fatalf("%v", err)
		}
		chunkCache, err := openCache(cfg)
		if err != nil {
			fatalf("cache configuration error: %v", err)
		}

		r, err := treechunk.NewReader(ctx, introHash, cfg.Repository.UnlockKey, store, chunkCache)
		if err != nil {
			fatalf("failed to open repository: %v", err)
		}

		logrus.WithField("size", r.TotalSize()).Info("reconstructing repository contents")
		if err := readRepository(r, args[2]); err != nil {
			fatalf("read failed: %v", err)
		}
	},
}

func readRepository(r *treechunk.Reader, destPath string) error {
	out, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer out.Close()

	total := r.TotalSize()
	for offset := uint64(0); offset < total; {
		size := uint64(readBlockSize)
		if remaining := total - offset; remaining < size {
			size = remaining
		}

		data, err := r.ReadAt(offset, size)
		if err != nil {
			return fmt.Errorf("reading at offset %d: %w", offset, err)
		}
		if _, err := out.WriteAt(data, int64(offset)); err != nil {
			return err
		}
		offset += size
	}

	return nil
}
