package io

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/integrators"
	"github.com/matzehuels/windprofile/pkg/opticaldepth"
)

// Format is an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// FormatFromPath returns the format implied by the extension of path.
// Paths without a recognised extension are JSON.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatJSON
}

// ParseFormat parses a format name as given on the command line.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatCSV:
		return f, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want json or csv)", s)
}

// =============================================================================
// Grids
// =============================================================================

// WriteGridJSON encodes g as indented JSON.
func WriteGridJSON(g *opticaldepth.Grid, w io.Writer) error {
	if err := checkComplete(g); err != nil {
		return err
	}
	return writeJSON(g, w)
}

// WriteGridCSV writes g as one row per cell, p-major.
func WriteGridCSV(g *opticaldepth.Grid, w io.Writer) error {
	if err := checkComplete(g); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"p", "z", "tau", "occulted"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, p := range g.P {
		for j, z := range g.Z {
			tau := g.Tau[i][j]
			rec := []string{ftoa(p), ftoa(z), ftoa(tau), strconv.FormatBool(tau == opticaldepth.Occulted)}
			if err := cw.Write(rec); err != nil {
				return fmt.Errorf("write row p=%g z=%g: %w", p, z, err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGrid writes g in the given format.
func WriteGrid(g *opticaldepth.Grid, w io.Writer, f Format) error {
	if f == FormatCSV {
		return WriteGridCSV(g, w)
	}
	return WriteGridJSON(g, w)
}

// ExportGrid writes g to path, choosing the format from the extension.
func ExportGrid(g *opticaldepth.Grid, path string) error {
	return exportFile(path, func(w io.Writer) error {
		return WriteGrid(g, w, FormatFromPath(path))
	})
}

func checkComplete(g *opticaldepth.Grid) error {
	if g == nil {
		return errors.New(errors.ErrCodeInvalidInput, "grid is nil")
	}
	if !g.Complete() {
		return errors.New(errors.ErrCodeInvalidInput, "grid is incomplete")
	}
	return nil
}

// =============================================================================
// Profiles
// =============================================================================

// WriteProfileJSON encodes p as indented JSON.
func WriteProfileJSON(p *integrators.Profile, w io.Writer) error {
	if p == nil {
		return errors.New(errors.ErrCodeInvalidInput, "profile is nil")
	}
	return writeJSON(p, w)
}

// WriteProfileCSV writes one row per bin. Energy columns are written only
// when the profile was computed on an energy grid.
func WriteProfileCSV(p *integrators.Profile, w io.Writer) error {
	if p == nil {
		return errors.New(errors.ErrCodeInvalidInput, "profile is nil")
	}
	if len(p.X) != len(p.Flux)+1 {
		return errors.New(errors.ErrCodeInvalidInput, "profile has %d edges for %d bins", len(p.X), len(p.Flux))
	}
	energy := len(p.Energy) == len(p.X)

	cw := csv.NewWriter(w)
	header := []string{"x_lo", "x_hi", "flux"}
	if energy {
		header = append([]string{"e_lo", "e_hi"}, header...)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, f := range p.Flux {
		rec := []string{ftoa(p.X[i]), ftoa(p.X[i+1]), ftoa(f)}
		if energy {
			rec = append([]string{ftoa(p.Energy[i]), ftoa(p.Energy[i+1])}, rec...)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write bin %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteProfile writes p in the given format.
func WriteProfile(p *integrators.Profile, w io.Writer, f Format) error {
	if f == FormatCSV {
		return WriteProfileCSV(p, w)
	}
	return WriteProfileJSON(p, w)
}

// ExportProfile writes p to path, choosing the format from the extension.
func ExportProfile(p *integrators.Profile, path string) error {
	return exportFile(path, func(w io.Writer) error {
		return WriteProfile(p, w, FormatFromPath(path))
	})
}

// =============================================================================
// Helpers
// =============================================================================

func writeJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func exportFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
