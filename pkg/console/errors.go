package console

import (
	"errors"
	"fmt"
)

var (
	// ErrNoView means the calling worker has no console bound to it, or the
	// console went away while the call was in flight.
	ErrNoView = errors.New("no console available")
	// ErrStreamClosed is returned by operations on an explicitly closed stream.
	ErrStreamClosed = errors.New("console: stream closed")
	// ErrInterrupted is returned by a read that was woken by an interrupt.
	ErrInterrupted = errors.New("console: interrupted")
	// ErrWrongDirection is returned when reading an output stream or writing the input stream.
	ErrWrongDirection = errors.New("console: wrong stream direction")
	// ErrInvalidSeek is returned for a seek that would land before the start.
	ErrInvalidSeek = errors.New("console: invalid seek")
	// ErrUnsupportedEncoding is returned when asked for anything but UTF-8.
	ErrUnsupportedEncoding = errors.New("console: unsupported encoding")
	// ErrAlreadyBound is returned when binding a view that already has an owner.
	ErrAlreadyBound = errors.New("console: view already bound")
	// ErrUnsupported is returned by glue helpers when the surface lacks a capability.
	ErrUnsupported = errors.New("console: not supported by this surface")

	// ErrPropertyNotFound and ErrTypeMismatch are the causes carried by PropertyError.
	ErrPropertyNotFound = errors.New("not found")
	ErrTypeMismatch     = errors.New("type mismatch")
)

// PropertyError reports a failed property read or write.
type PropertyError struct {
	Name string
	Err  error
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("property %s: %v", e.Name, e.Err)
}

func (e *PropertyError) Unwrap() error { return e.Err }
