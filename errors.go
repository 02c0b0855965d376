package convfs

import (
	"errors"
	"fmt"
)

var (
	// ErrConversion matches every *ConversionError
	ErrConversion = errors.New("source conversion failed")
	// ErrMisconfigured matches every *MisconfigurationError
	ErrMisconfigured = errors.New("overlay source misconfigured")
	// ErrSourceIsDir is returned when a mapping's source is a directory
	ErrSourceIsDir = errors.New("source is a directory")
)

// ConversionError is returned when a source exists but its content cannot
// be transformed.
type ConversionError struct {
	Target string
	Source string
	Err    error
}

// Error implements the [error] interface.
func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s for %s: %v", e.Source, e.Target, e.Err)
}

// Is implements the [errors.Is] interface.
func (*ConversionError) Is(other error) bool {
	if other == ErrConversion {
		return true
	}
	_, ok := other.(*ConversionError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *ConversionError) Unwrap() error {
	return e.Err
}

// MisconfigurationError is returned when checking or reading a source
// fails for any reason other than its absence.
type MisconfigurationError struct {
	Op     string
	Source string
	Err    error
}

// Error implements the [error] interface.
func (e *MisconfigurationError) Error() string {
	return fmt.Sprintf("%s overlay source %s: %v", e.Op, e.Source, e.Err)
}

// Is implements the [errors.Is] interface.
func (*MisconfigurationError) Is(other error) bool {
	if other == ErrMisconfigured {
		return true
	}
	_, ok := other.(*MisconfigurationError)
	return ok
}

// Unwrap implements the [errors.Unwrap] interface.
func (e *MisconfigurationError) Unwrap() error {
	return e.Err
}
