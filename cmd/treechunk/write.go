package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	config "github.com/dividuum/nbd-chunk-drive/config"
	"github.com/dividuum/nbd-chunk-drive/sparse"
	"github.com/dividuum/nbd-chunk-drive/treechunk"
)

const writeBufferSize = 1 << 20

// WriteCmd builds a tree-chunked repository from a sparse source file
// and prints the resulting intro chunk's hex-encoded name.
var WriteCmd = &cobra.Command{
	Use:   "write <config> <source-file>",
	Short: "`write` chunks a file into a tree-chunked repository",
	Long:  "`write` chunks a file into a tree-chunked repository",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := resolveConfiguration(args[0])
		if err != nil {
			fatalf("configuration error: %v", err)
		}
		if err := configureLogging(cfg); err != nil {
			fatalf("logging configuration error: %v", err)
		}

		ctx := context.Background()
		store, err := openStore(ctx, cfg)
		if err != nil {
			fatalf("%v", err)
		}

		introHash, err := writeRepository(ctx, cfg, store, args[1])
		if err != nil {
			fatalf("write failed: %v", err)
		}

		fmt.Println(hex.EncodeToString(introHash[:]))
	},
}

func writeRepository(ctx context.Context, cfg *config.Configuration, persister treechunk.ChunkPersister, sourcePath string) ([treechunk.HashSize]byte, error) {
	var introHash [treechunk.HashSize]byte

	src, err := sparse.Open(sourcePath)
	if err != nil {
		return introHash, err
	}
	defer src.Close()

	w, err := treechunk.NewWriter(ctx, persister, cfg.Repository.Size2, cfg.Repository.UnlockKey, cfg.Repository.RepoKey, cfg.Repository.CompressData)
	if err != nil {
		return introHash, err
	}

	logrus.WithField("source", sourcePath).Info("scanning and chunking source file")
	if err := treechunk.WriteFromSections(w, src, writeBufferSize); err != nil {
		return introHash, err
	}

	return w.WrapUp(cfg.Repository.BlockSize)
}
