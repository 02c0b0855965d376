// Package transform holds the content converters used to derive a target
// file from its source file.
//
// A converter is a pure function from source bytes to target bytes. It
// keeps no state between calls and must be safe for concurrent use.
package transform

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Func converts the raw bytes of a source file into the raw bytes of the
// derived target file.
type Func func(src []byte) ([]byte, error)

var (
	// ErrUnknownFormat is returned by Lookup for unregistered format names.
	ErrUnknownFormat = errors.New("unknown source format")
	// ErrEmptyDocument is returned when the source holds no document at all.
	ErrEmptyDocument = errors.New("source contains no document")
	// ErrMultipleDocuments is returned when a YAML source holds more than
	// one document.
	ErrMultipleDocuments = errors.New("source contains more than one document")
)

var registry = map[string]Func{
	"yaml": YAMLToJSON,
	"yml":  YAMLToJSON,
	"json": CompactJSON,
}

// Lookup returns the converter registered for the given source format.
// Format names are case-insensitive.
func Lookup(format string) (Func, error) {
	fn, ok := registry[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return fn, nil
}

// Formats lists the registered format names in sorted order.
func Formats() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
