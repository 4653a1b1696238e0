package catalog

import "errors"

// ErrEmptyGrid is returned when the source produced no cells at all.
var ErrEmptyGrid = errors.New("catalog grid is empty")
