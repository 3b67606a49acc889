package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/opticaldepth"
)

// ReadGridJSON decodes a grid written by [WriteGridJSON].
//
// ReadGridJSON returns an INVALID_FORMAT error if the JSON is malformed,
// and an INVALID_INPUT error if:
//   - p or z is empty, non-finite or not ascending
//   - tau does not have len(p) rows of len(z) values
//   - a τ value is negative
//
// ReadGridJSON does not close r.
func ReadGridJSON(r io.Reader) (*opticaldepth.Grid, error) {
	var g opticaldepth.Grid
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode grid")
	}
	if err := errors.ValidateGrid("p", g.P); err != nil {
		return nil, err
	}
	if err := errors.ValidateGrid("z", g.Z); err != nil {
		return nil, err
	}
	if len(g.Tau) != len(g.P) {
		return nil, errors.New(errors.ErrCodeInvalidInput, "tau has %d rows, want %d", len(g.Tau), len(g.P))
	}
	for i, row := range g.Tau {
		if len(row) != len(g.Z) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "tau row %d has %d values, want %d", i, len(row), len(g.Z))
		}
		for j, v := range row {
			if err := errors.ValidateNonNegative(errors.ErrCodeInvalidInput, "tau", v); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "cell p=%g z=%g", g.P[i], g.Z[j])
			}
		}
	}
	return &g, nil
}

// ImportGrid reads the JSON grid file at path.
func ImportGrid(path string) (*opticaldepth.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	g, err := ReadGridJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}
