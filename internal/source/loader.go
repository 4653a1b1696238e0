package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eugenenazirov/music-school-planner/internal/catalog"
)

// Loader reads a grid from a Source and turns it into a catalog.
type Loader struct {
	Source  Source
	Layout  catalog.Layout
	Timeout time.Duration
}

// Name identifies the underlying source.
func (l Loader) Name() string {
	if l.Source == nil {
		return "none"
	}
	return l.Source.Name()
}

// Load fetches the grid and parses it. Every failure wraps ErrSourceUnavailable.
func (l Loader) Load(ctx context.Context) (*catalog.Catalog, error) {
	if l.Source == nil {
		return nil, fmt.Errorf("%w: no source configured", ErrSourceUnavailable)
	}
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	grid, err := l.Source.Values(ctx)
	if err != nil {
		if !errors.Is(err, ErrSourceUnavailable) {
			err = unavailable(l.Name(), err)
		}
		return nil, err
	}
	cat, err := catalog.Load(grid, l.Layout)
	if err != nil {
		return nil, unavailable(l.Name(), err)
	}
	return cat, nil
}
