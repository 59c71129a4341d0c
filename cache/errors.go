package cache

import "errors"

var (
	// ErrKeyParam indicates a key parameter without a stable string
	// form. This is a programming error at the call site and is never
	// recoverable at runtime.
	ErrKeyParam = errors.New("cache: unserializable key parameter")

	// ErrInvalidResultType indicates a cached value could not be
	// asserted to the type requested by a typed read helper.
	ErrInvalidResultType = errors.New("cache: cached value has unexpected type")

	// ErrNoValue indicates a blocking read settled without producing a
	// value, e.g. the store was reset while the fetch was in flight.
	ErrNoValue = errors.New("cache: no value available")
)
