// Package configuration parses the YAML configuration file for a
// tree-chunked repository tool: its chunking parameters, key material,
// storage backend selection, and logging setup.
package configuration

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
)

// Configuration is a versioned configuration, intended to be provided
// by a YAML file and optionally overridden by environment variables.
//
// Note that YAML field names should never include _ characters, since
// this is the separator used in environment variable names.
type Configuration struct {
	// Version defines the format of the rest of the configuration.
	Version Version `yaml:"version"`

	// Log supports setting various parameters related to the logging
	// subsystem.
	Log Log `yaml:"log"`

	// Repository describes the chunking and key parameters of the
	// tree-chunked repository this configuration drives.
	Repository Repository `yaml:"repository"`

	// Storage is the configuration for the chunk storage driver.
	Storage Storage `yaml:"storage"`

	// Cache selects and configures the chunk cache consulted ahead of
	// the storage driver on read.
	Cache Cache `yaml:"cache,omitempty"`
}

// Repository configures the chunking geometry and key material of a
// tree-chunked repository.
type Repository struct {
	// Size2 is the log2 of the maximum chunk payload size in bytes.
	// 4096 and 8192 are the only block sizes the wire format accepts,
	// but Size2 itself may exceed the block size to batch more data
	// per chunk.
	Size2 uint `yaml:"size2"`

	// BlockSize is the alignment, in bytes, that a repository's total
	// size is padded up to. Must be 4096 or 8192.
	BlockSize uint32 `yaml:"blocksize"`

	// CompressData enables opportunistic zlib compression of every
	// non-intro chunk, kept only when it shrinks the chunk by at
	// least 20%.
	CompressData bool `yaml:"compressdata"`

	// UnlockKey is the caller-held secret that derives the intro
	// chunk's encryption key. Without it the repository cannot be
	// opened at all, even by its own writer.
	UnlockKey HexBytes `yaml:"unlockkey"`

	// RepoKey is reduced via SHA-256 to the 16-byte repository key,
	// which is stored inside the encrypted intro chunk and from which
	// the key that encrypts every non-intro chunk is derived.
	RepoKey HexBytes `yaml:"repokey"`
}

// HexBytes is raw key material represented in configuration as a hex
// string, so binary secrets can live in a text YAML file.
type HexBytes []byte

// UnmarshalYAML implements the yaml.Unmarshaler interface, decoding a
// hex string into raw bytes.
func (h *HexBytes) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid hex key material: %w", err)
	}
	*h = decoded
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface.
func (h HexBytes) MarshalYAML() (interface{}, error) {
	return hex.EncodeToString(h), nil
}

// Log supports setting various parameters related to the logging
// subsystem.
type Log struct {
	// Level is the granularity at which operations are logged.
	Level Loglevel `yaml:"level,omitempty"`

	// Formatter overrides the default formatter with another. Options
	// include "text" and "json".
	Formatter string `yaml:"formatter,omitempty"`

	// Fields allows users to specify static fields; the command-line
	// front end logs them once at debug level when logging is set up.
	Fields map[string]interface{} `yaml:"fields,omitempty"`

	// ReportCaller allows the log to report the calling function.
	ReportCaller bool `yaml:"reportcaller,omitempty"`
}

// Loglevel is the level at which operations are logged: error, warn,
// info, or debug.
type Loglevel string

// UnmarshalYAML implements the yaml.Unmarshaler interface. Unmarshals
// a string into a Loglevel, lowercasing it and validating that it
// names a recognized level.
func (loglevel *Loglevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	s = strings.ToLower(s)
	switch s {
	case "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("invalid loglevel %s: must be one of [error, warn, info, debug]", s)
	}

	*loglevel = Loglevel(s)
	return nil
}

// Parameters defines a key-value parameters mapping handed to a
// storage driver or chunk cache factory.
type Parameters map[string]interface{}

// Storage defines the chunk storage backend: a single-item map whose
// one key names the driver and whose value holds its parameters.
type Storage map[string]Parameters

// Type returns the storage driver type, such as filesystem or inmemory.
func (storage Storage) Type() string {
	for k := range storage {
		return k
	}
	return ""
}

// Parameters returns the Parameters map for the configured storage
// driver.
func (storage Storage) Parameters() Parameters {
	return storage[storage.Type()]
}

// UnmarshalYAML implements the yaml.Unmarshaler interface, unmarshaling
// a single-item map into a Storage, or a bare string into a Storage
// with no parameters.
func (storage *Storage) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var storageMap map[string]Parameters
	if err := unmarshal(&storageMap); err == nil {
		if len(storageMap) > 1 {
			types := make([]string, 0, len(storageMap))
			for k := range storageMap {
				types = append(types, k)
			}
			return fmt.Errorf("must provide exactly one storage type, got: %v", types)
		}
		*storage = storageMap
		return nil
	}

	var storageType string
	if err := unmarshal(&storageType); err != nil {
		return err
	}
	*storage = Storage{storageType: Parameters{}}
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface.
func (storage Storage) MarshalYAML() (interface{}, error) {
	if storage.Parameters() == nil {
		return storage.Type(), nil
	}
	return map[string]Parameters(storage), nil
}

// Cache selects and configures the chunk cache: a single-item map
// whose one key names the cache implementation (none, memory, redis)
// and whose value holds its parameters.
type Cache map[string]Parameters

// Type returns the cache implementation name, defaulting to "none"
// when unset.
func (cache Cache) Type() string {
	for k := range cache {
		return k
	}
	return "none"
}

// Parameters returns the Parameters map for the configured cache.
func (cache Cache) Parameters() Parameters {
	return cache[cache.Type()]
}

// UnmarshalYAML implements the yaml.Unmarshaler interface, mirroring
// Storage's single-item-map-or-bare-string convention.
func (cache *Cache) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var cacheMap map[string]Parameters
	if err := unmarshal(&cacheMap); err == nil {
		if len(cacheMap) > 1 {
			types := make([]string, 0, len(cacheMap))
			for k := range cacheMap {
				types = append(types, k)
			}
			return fmt.Errorf("must provide exactly one cache type, got: %v", types)
		}
		*cache = cacheMap
		return nil
	}

	var cacheType string
	if err := unmarshal(&cacheType); err != nil {
		return err
	}
	*cache = Cache{cacheType: Parameters{}}
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface.
func (cache Cache) MarshalYAML() (interface{}, error) {
	if cache.Parameters() == nil {
		return cache.Type(), nil
	}
	return map[string]Parameters(cache), nil
}

// v0_1Configuration is a Version 0.1 Configuration struct. This is
// currently aliased to Configuration, as it is the current version.
type v0_1Configuration Configuration

// UnmarshalYAML implements the yaml.Unmarshaler interface. Unmarshals
// a string of the form X.Y into a Version, validating that X and Y
// can represent unsigned integers.
func (version *Version) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var versionString string
	if err := unmarshal(&versionString); err != nil {
		return err
	}

	newVersion := Version(versionString)
	if _, err := newVersion.major(); err != nil {
		return err
	}
	if _, err := newVersion.minor(); err != nil {
		return err
	}

	*version = newVersion
	return nil
}

// CurrentVersion is the most recent Version that can be parsed.
var CurrentVersion = MajorMinorVersion(0, 1)

// Parse parses an input configuration YAML document into a
// Configuration struct.
//
// Environment variables may be used to override configuration
// parameters other than version, following the scheme below:
// Configuration.Abc may be replaced by the value of TREECHUNK_ABC,
// Configuration.Abc.Xyz may be replaced by the value of
// TREECHUNK_ABC_XYZ, and so forth.
func Parse(rd io.Reader) (*Configuration, error) {
	in, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}

	p := NewParser("treechunk", []VersionedParseInfo{
		{
			Version: MajorMinorVersion(0, 1),
			ParseAs: reflect.TypeOf(v0_1Configuration{}),
			ConversionFunc: func(c interface{}) (interface{}, error) {
				v0_1, ok := c.(*v0_1Configuration)
				if !ok {
					return nil, fmt.Errorf("expected *v0_1Configuration, received %#v", c)
				}

				if v0_1.Log.Level == Loglevel("") {
					v0_1.Log.Level = Loglevel("info")
				}

				if v0_1.Repository.Size2 == 0 {
					v0_1.Repository.Size2 = 12
				}
				if v0_1.Repository.BlockSize == 0 {
					v0_1.Repository.BlockSize = 4096
				}
				if v0_1.Repository.BlockSize != 4096 && v0_1.Repository.BlockSize != 8192 {
					return nil, fmt.Errorf("invalid repository block size %d: must be 4096 or 8192", v0_1.Repository.BlockSize)
				}
				if len(v0_1.Repository.UnlockKey) == 0 {
					return nil, errors.New("no repository unlock key provided")
				}
				if len(v0_1.Repository.RepoKey) == 0 {
					return nil, errors.New("no repository key provided")
				}

				if v0_1.Storage.Type() == "" {
					return nil, errors.New("no storage configuration provided")
				}

				return (*Configuration)(v0_1), nil
			},
		},
	})

	config := new(Configuration)
	if err := p.Parse(in, config); err != nil {
		return nil, err
	}
	return config, nil
}

