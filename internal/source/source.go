package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"

	"github.com/eugenenazirov/music-school-planner/internal/catalog"
)

// ErrSourceUnavailable wraps every failure to read the grid: missing files,
// bad credentials, network errors. Nothing can be computed without it.
var ErrSourceUnavailable = errors.New("catalog source unavailable")

// Source yields the worksheet the catalog is loaded from as rows of text cells.
type Source interface {
	Name() string
	Values(ctx context.Context) ([][]string, error)
}

func unavailable(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, name, err)
}

// Builtin serves the grid compiled into the binary.
type Builtin struct{}

func (Builtin) Name() string { return "builtin" }

func (Builtin) Values(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("builtin", err)
	}
	return catalog.DefaultGrid(), nil
}

// CSVFile reads a worksheet exported as comma-separated values.
type CSVFile struct {
	Path string
}

func (c CSVFile) Name() string { return "csv:" + c.Path }

func (c CSVFile) Values(ctx context.Context) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(c.Name(), err)
	}
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, unavailable(c.Name(), err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, unavailable(c.Name(), fmt.Errorf("parse csv: %w", err))
	}
	if len(rows) == 0 {
		return nil, unavailable(c.Name(), catalog.ErrEmptyGrid)
	}
	return rows, nil
}
