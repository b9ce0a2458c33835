// Package factory provides a registry so that storage drivers can be
// selected by name at runtime from configuration, rather than being
// wired in by hand at each call site.
package factory

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	storagedriver "github.com/dividuum/nbd-chunk-drive/store/driver"
)

// driverFactories stores an internal mapping between storage driver
// names and their respective factories.
var driverFactories = make(map[string]StorageDriverFactory)

// StorageDriverFactory is a factory interface for creating
// storagedriver.StorageDriver instances. Storage drivers should call
// Register() with a factory to make the driver available by name.
type StorageDriverFactory interface {
	// Create returns a new storagedriver.StorageDriver with the given
	// parameters. Parameters will vary by driver and may be ignored.
	// Each parameter key must only consist of lowercase letters and
	// numbers.
	Create(parameters map[string]interface{}) (storagedriver.StorageDriver, error)
}

// Register makes a storage driver available by the provided name. If
// Register is called twice with the same name or if driver factory
// is nil, it panics.
func Register(name string, factory StorageDriverFactory) {
	if factory == nil {
		panic("Must not provide nil StorageDriverFactory")
	}
	if _, registered := driverFactories[name]; registered {
		panic(fmt.Sprintf("StorageDriverFactory named %s already registered", name))
	}
	driverFactories[name] = factory
}

// Create builds a new storagedriver.StorageDriver with the given
// name and parameters, then verifies it has read, write and delete
// permissions before returning it. The StorageDriverFactory must
// first have been registered with the given name.
func Create(ctx context.Context, name string, parameters map[string]interface{}) (storagedriver.StorageDriver, error) {
	driverFactory, ok := driverFactories[name]
	if !ok {
		return nil, InvalidStorageDriverError{Name: name}
	}
	d, err := driverFactory.Create(parameters)
	if err != nil {
		return nil, err
	}
	if err := verify(ctx, d); err != nil {
		return nil, fmt.Errorf("unable to verify read, write and delete permissions on storage type %q: %w", name, err)
	}
	return d, nil
}

// verify ensures that the configured storage driver has permissions
// to read, write and delete a file, so that misconfiguration is
// caught at startup rather than on the first real chunk write.
func verify(ctx context.Context, driver storagedriver.StorageDriver) error {
	randomFile := fmt.Sprintf("/%s", uuid.NewString())

	if err := driver.PutContent(ctx, randomFile, []byte("")); err != nil {
		return fmt.Errorf("unable to write verification file: %s", err)
	}

	// May have eventually consistent storage.
	const max = 3 * time.Second
	duration := 10 * time.Millisecond

	for duration < max {
		if _, err := driver.Stat(ctx, randomFile); err != nil {
			if _, ok := err.(storagedriver.PathNotFoundError); ok {
				time.Sleep(duration)
				duration = backOff(duration)
				continue
			}
			return err
		}
		if _, err := driver.GetContent(ctx, randomFile); err != nil {
			return fmt.Errorf("unable to read verification file: %s", err)
		}
		break
	}

	if err := driver.Delete(ctx, randomFile); err != nil {
		return fmt.Errorf("unable to delete verification file: %s", err)
	}
	return nil
}

func backOff(d time.Duration) time.Duration {
	d *= 2
	d += time.Microsecond * time.Duration(rand.Int63n(1000))
	return d
}

// InvalidStorageDriverError records an attempt to construct an
// unregistered storage driver.
type InvalidStorageDriverError struct {
	Name string
}

func (err InvalidStorageDriverError) Error() string {
	return fmt.Sprintf("StorageDriver not registered: %s", err.Name)
}
