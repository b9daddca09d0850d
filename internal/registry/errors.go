package registry

import "errors"

var (
	// ErrUnknownAddress is returned when an address is not part of the
	// configured lane set or utility address.
	ErrUnknownAddress = errors.New("registry: unknown address")

	// ErrInvalidConfig is returned by New for duplicate or colliding addresses.
	ErrInvalidConfig = errors.New("registry: invalid configuration")
)
