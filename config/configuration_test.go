package configuration

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

func sampleYAML(extra string) string {
	return strings.Join([]string{
		"version: 0.1",
		"log:",
		"  level: debug",
		"repository:",
		"  size2: 12",
		"  blocksize: 4096",
		"  compressdata: true",
		"  unlockkey: " + hex.EncodeToString([]byte("0123456789abcdef")),
		"  repokey: " + hex.EncodeToString([]byte("fedcba9876543210")),
		"storage:",
		"  filesystem:",
		"    rootdirectory: /var/lib/treechunk",
		extra,
	}, "\n")
}

func TestParseValidConfiguration(t *testing.T) {
	cfg, err := Parse(bytes.NewBufferString(sampleYAML("")))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Version != CurrentVersion {
		t.Fatalf("version = %q, want %q", cfg.Version, CurrentVersion)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Repository.Size2 != 12 {
		t.Fatalf("size2 = %d, want 12", cfg.Repository.Size2)
	}
	if cfg.Repository.BlockSize != 4096 {
		t.Fatalf("block size = %d, want 4096", cfg.Repository.BlockSize)
	}
	if !cfg.Repository.CompressData {
		t.Fatal("expected compressdata to be true")
	}
	if string(cfg.Repository.UnlockKey) != "0123456789abcdef" {
		t.Fatalf("unlock key = %q, want %q", cfg.Repository.UnlockKey, "0123456789abcdef")
	}
	if cfg.Storage.Type() != "filesystem" {
		t.Fatalf("storage type = %q, want filesystem", cfg.Storage.Type())
	}
	if cfg.Storage.Parameters()["rootdirectory"] != "/var/lib/treechunk" {
		t.Fatalf("rootdirectory = %v", cfg.Storage.Parameters()["rootdirectory"])
	}
}

func TestParseDefaultsBlockSizeAndLogLevel(t *testing.T) {
	yaml := strings.Join([]string{
		"version: 0.1",
		"repository:",
		"  unlockkey: " + hex.EncodeToString([]byte("key1")),
		"  repokey: " + hex.EncodeToString([]byte("key2")),
		"storage:",
		"  inmemory:",
	}, "\n")

	cfg, err := Parse(bytes.NewBufferString(yaml))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Repository.BlockSize != 4096 {
		t.Fatalf("default block size = %d, want 4096", cfg.Repository.BlockSize)
	}
	if cfg.Repository.Size2 != 12 {
		t.Fatalf("default size2 = %d, want 12", cfg.Repository.Size2)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("default log level = %q, want info", cfg.Log.Level)
	}
}

func TestParseRejectsMissingUnlockKey(t *testing.T) {
	yaml := strings.Join([]string{
		"version: 0.1",
		"repository:",
		"  repokey: " + hex.EncodeToString([]byte("key2")),
		"storage:",
		"  inmemory:",
	}, "\n")

	if _, err := Parse(bytes.NewBufferString(yaml)); err == nil {
		t.Fatal("expected an error for a missing unlock key")
	}
}

func TestParseRejectsMissingStorage(t *testing.T) {
	yaml := strings.Join([]string{
		"version: 0.1",
		"repository:",
		"  unlockkey: " + hex.EncodeToString([]byte("key1")),
		"  repokey: " + hex.EncodeToString([]byte("key2")),
	}, "\n")

	if _, err := Parse(bytes.NewBufferString(yaml)); err == nil {
		t.Fatal("expected an error for missing storage configuration")
	}
}

func TestParseRejectsInvalidBlockSize(t *testing.T) {
	yaml := strings.Join([]string{
		"version: 0.1",
		"repository:",
		"  blocksize: 1234",
		"  unlockkey: " + hex.EncodeToString([]byte("key1")),
		"  repokey: " + hex.EncodeToString([]byte("key2")),
		"storage:",
		"  inmemory:",
	}, "\n")

	if _, err := Parse(bytes.NewBufferString(yaml)); err == nil {
		t.Fatal("expected an error for an invalid block size")
	}
}

func TestParseEnvironmentOverride(t *testing.T) {
	t.Setenv("TREECHUNK_LOG_LEVEL", "warn")
	cfg, err := Parse(bytes.NewBufferString(sampleYAML("")))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("log level = %q, want warn (from environment override)", cfg.Log.Level)
	}
}
