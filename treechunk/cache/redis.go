package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/mitchellh/mapstructure"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dividuum/nbd-chunk-drive/treechunk"
)

// ErrMissingConfig is returned when Redis options are missing entirely.
var ErrMissingConfig = errors.New("cache/redis: missing configuration")

// ErrMissingAddr is returned when Redis options are present but omit
// the server address.
var ErrMissingAddr = errors.New("cache/redis: missing addr")

// RedisOptions configures a Redis-backed chunk cache. It is decoded
// the same way a storage driver's parameters map is.
type RedisOptions struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// TTL is how long a cached chunk is retained; zero means no expiry.
	TTL time.Duration `mapstructure:"ttl"`
	// KeyPrefix namespaces this cache's keys within a shared Redis
	// instance, so several repositories can share one server.
	KeyPrefix string `mapstructure:"keyprefix"`
}

// Redis is a ChunkCache backed by a shared Redis server, letting
// multiple readers (or processes) reuse each other's decoded chunks.
type Redis struct {
	client *goredis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis builds a Redis cache from the given options map, as
// produced by a configuration decoder.
func NewRedis(params map[string]interface{}) (treechunk.ChunkCache, error) {
	if params == nil {
		return nil, ErrMissingConfig
	}
	var opts RedisOptions
	if err := mapstructure.Decode(params, &opts); err != nil {
		return nil, err
	}
	if opts.Addr == "" {
		return nil, ErrMissingAddr
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	return &Redis{client: client, ttl: opts.TTL, prefix: opts.KeyPrefix}, nil
}

func (r *Redis) key(hash [treechunk.HashSize]byte) string {
	return r.prefix + hex.EncodeToString(hash[:])
}

// Get looks up hash's decoded content. Any Redis-level error
// (including a context deadline on a degraded server) is treated as a
// cache miss rather than surfaced to the caller: a miss only costs a
// loader round trip, while propagating the error would turn a cache
// outage into a hard read failure.
func (r *Redis) Get(hash [treechunk.HashSize]byte) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	content, err := r.client.Get(ctx, r.key(hash)).Bytes()
	if err != nil {
		return nil, false
	}
	return content, true
}

func (r *Redis) Set(hash [treechunk.HashSize]byte, content []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	r.client.Set(ctx, r.key(hash), content, r.ttl)
}
