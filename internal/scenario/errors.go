package scenario

import "errors"

var (
	// ErrInvalidRequest marks a request that names something the school does not offer.
	ErrInvalidRequest = errors.New("invalid scenario")
	// ErrNoCatalog is returned when Build is called before any catalog was loaded.
	ErrNoCatalog = errors.New("no catalog loaded")
)
