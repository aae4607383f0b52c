package appconf

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrMissingValue is returned when a binding that must produce a value
// resolved to absent across every provider and has no default.
var ErrMissingValue = errors.New("no value resolved from any provider")

// ConversionError reports a converter or decode failure on a resolved raw
// value. It carries the binding path and the offending value for diagnosis.
type ConversionError struct {
	Path string
	Raw  any
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert value %v (%T) for path %q: %v", e.Raw, e.Raw, e.Path, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// LoadError reports a backing file that is present but unreadable or
// unparseable, or a document with unresolvable interpolations. A missing
// backing file is not a LoadError; it yields an empty document.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load config %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PersistenceError reports a Save that could not write to its target path.
// The in-memory document is left unchanged.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to save config to %q: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// PrivateConfigError reports a ${private.*} interpolation whose key is not
// supplied by the private companion file.
type PrivateConfigError struct {
	Key         string
	ConfigPath  string
	PrivatePath string
	// PrivateFileFound distinguishes a companion file that exists but lacks
	// the key from one that is absent entirely.
	PrivateFileFound bool
}

func (e *PrivateConfigError) Error() string {
	verb := "was not found"
	if e.PrivateFileFound {
		verb = "is missing key"
	}
	return fmt.Sprintf("config %q references private key %q, but %q %s; create or update %q with the required private keys",
		filepath.Base(e.ConfigPath), e.Key, filepath.Base(e.PrivatePath), verb, e.PrivatePath)
}
