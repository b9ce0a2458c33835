package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	config "github.com/dividuum/nbd-chunk-drive/config"
	"github.com/dividuum/nbd-chunk-drive/store/driver/factory"
	"github.com/dividuum/nbd-chunk-drive/treechunk"
	"github.com/dividuum/nbd-chunk-drive/treechunk/cache"
	"github.com/dividuum/nbd-chunk-drive/treechunk/chunkstore"

	// Registers the filesystem and in-memory storage drivers with the
	// factory package so they can be selected by name from config.
	_ "github.com/dividuum/nbd-chunk-drive/store/driver/filesystem"
	_ "github.com/dividuum/nbd-chunk-drive/store/driver/inmemory"
)

func resolveConfiguration(configurationPath string) (*config.Configuration, error) {
	if configurationPath == "" {
		return nil, fmt.Errorf("configuration path unspecified")
	}

	fp, err := os.Open(configurationPath)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	cfg, err := config.Parse(fp)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %v", configurationPath, err)
	}
	return cfg, nil
}

// configureLogging applies a configuration's Log section (level,
// formatter, report-caller) to the package-global logrus logger. The
// static Fields are logged once at debug level; they are not attached
// to later log entries.
func configureLogging(cfg *config.Configuration) error {
	level, err := logrus.ParseLevel(string(cfg.Log.Level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Log.Level, err)
	}
	logrus.SetLevel(level)
	logrus.SetReportCaller(cfg.Log.ReportCaller)

	switch cfg.Log.Formatter {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{})
	default:
		return fmt.Errorf("unsupported logging formatter: %q", cfg.Log.Formatter)
	}

	if len(cfg.Log.Fields) > 0 {
		logrus.WithFields(logrus.Fields(cfg.Log.Fields)).Debug("configured static log fields")
	}

	return nil
}

// openStore builds the storage driver named by the configuration and
// wraps it as a chunkstore.Store, suitable for use both as a
// treechunk.ChunkPersister and a treechunk.ChunkLoader.
func openStore(ctx context.Context, cfg *config.Configuration) (*chunkstore.Store, error) {
	driver, err := factory.Create(ctx, cfg.Storage.Type(), cfg.Storage.Parameters())
	if err != nil {
		return nil, fmt.Errorf("failed to construct %s driver: %w", cfg.Storage.Type(), err)
	}
	return chunkstore.New(driver), nil
}

// openCache builds the chunk cache named by the configuration's Cache
// section, defaulting to a no-op cache when none is configured.
func openCache(cfg *config.Configuration) (treechunk.ChunkCache, error) {
	switch cfg.Cache.Type() {
	case "", "none":
		return cache.NewNone(), nil
	case "memory":
		return cache.NewMemory(cfg.Cache.Parameters())
	case "redis":
		return cache.NewRedis(cfg.Cache.Parameters())
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Cache.Type())
	}
}
