package driver

import (
	"encoding/json"
	"fmt"
)

// Error is a generic error wrapping a driver-specific detail with
// the name of the driver that produced it.
type Error struct {
	DriverName string
	Detail     error
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.DriverName, e.Detail)
}

// MarshalJSON implements json.Marshaler.
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DriverName string `json:"driver"`
		Detail     string `json:"detail"`
	}{
		DriverName: e.DriverName,
		Detail:     e.Detail.Error(),
	})
}

// Errors collects multiple errors produced by a single driver call.
type Errors struct {
	DriverName string
	Errs       []error
}

func (errs Errors) Error() string {
	switch len(errs.Errs) {
	case 0:
		return fmt.Sprintf("%s: <nil>", errs.DriverName)
	case 1:
		return fmt.Sprintf("%s: %s", errs.DriverName, errs.Errs[0])
	default:
		msg := fmt.Sprintf("%s: errors:\n", errs.DriverName)
		for _, e := range errs.Errs {
			msg += fmt.Sprintf("%s\n", e)
		}
		return msg
	}
}

// MarshalJSON implements json.Marshaler.
func (errs Errors) MarshalJSON() ([]byte, error) {
	details := make([]string, len(errs.Errs))
	for i, e := range errs.Errs {
		details[i] = e.Error()
	}

	return json.Marshal(struct {
		DriverName string   `json:"driver"`
		Details    []string `json:"details"`
	}{
		DriverName: errs.DriverName,
		Details:    details,
	})
}

// PathNotFoundError is returned when operating on a nonexistent path.
type PathNotFoundError struct {
	Path       string
	DriverName string
}

func (e PathNotFoundError) Error() string {
	return fmt.Sprintf("%s: path not found: %s", e.DriverName, e.Path)
}

// InvalidPathError is returned when the provided path is malformed.
type InvalidPathError struct {
	Path       string
	DriverName string
}

func (e InvalidPathError) Error() string {
	return fmt.Sprintf("%s: invalid path: %s", e.DriverName, e.Path)
}

// InvalidOffsetError is returned when attempting to read or write
// from an invalid offset.
type InvalidOffsetError struct {
	Path       string
	Offset     int64
	DriverName string
}

func (e InvalidOffsetError) Error() string {
	return fmt.Sprintf("%s: invalid offset: %d for path: %s", e.DriverName, e.Offset, e.Path)
}
