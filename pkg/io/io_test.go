package io

import (
	"bytes"
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/windprofile/pkg/errors"
	"github.com/matzehuels/windprofile/pkg/integrators"
	"github.com/matzehuels/windprofile/pkg/opticaldepth"
)

func testGrid() *opticaldepth.Grid {
	return &opticaldepth.Grid{
		P: []float64{0, 2},
		Z: []float64{-1, 2},
		Tau: [][]float64{
			{opticaldepth.Occulted, math.Ln2},
			{0.5, 0.25},
		},
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"grid.csv", FormatCSV},
		{"GRID.CSV", FormatCSV},
		{"grid.json", FormatJSON},
		{"grid", FormatJSON},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := FormatFromPath(tt.path); got != tt.want {
				t.Errorf("FormatFromPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("CSV"); err != nil || f != FormatCSV {
		t.Errorf("ParseFormat(CSV) = %q, %v", f, err)
	}
	if _, err := ParseFormat("xml"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ParseFormat(xml) error = %v, want INVALID_INPUT", err)
	}
}

func TestGridJSONRoundTrip(t *testing.T) {
	g := testGrid()
	var buf bytes.Buffer
	if err := WriteGridJSON(g, &buf); err != nil {
		t.Fatalf("WriteGridJSON() error: %v", err)
	}
	got, err := ReadGridJSON(&buf)
	if err != nil {
		t.Fatalf("ReadGridJSON() error: %v", err)
	}
	if !reflect.DeepEqual(got.Tau, g.Tau) {
		t.Errorf("Tau = %v, want %v", got.Tau, g.Tau)
	}
}

func TestGridCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGridCSV(testGrid(), &buf); err != nil {
		t.Fatalf("WriteGridCSV() error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5:\n%s", len(lines), buf.String())
	}
	if lines[0] != "p,z,tau,occulted" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "0,-1,1e+06,true" {
		t.Errorf("first row = %q", lines[1])
	}
	if lines[4] != "2,2,0.25,false" {
		t.Errorf("last row = %q", lines[4])
	}
}

func TestWriteIncompleteGrid(t *testing.T) {
	g := testGrid()
	g.Tau[1][1] = math.NaN()
	for _, f := range []Format{FormatJSON, FormatCSV} {
		if err := WriteGrid(g, &bytes.Buffer{}, f); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("WriteGrid(%s) error = %v, want INVALID_INPUT", f, err)
		}
	}
}

func TestReadGridJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		code errors.Code
	}{
		{"malformed", `{"p": [0,`, errors.ErrCodeInvalidFormat},
		{"empty p", `{"p": [], "z": [0], "tau": []}`, errors.ErrCodeInvalidInput},
		{"descending z", `{"p": [0], "z": [1, 0], "tau": [[0, 0]]}`, errors.ErrCodeInvalidInput},
		{"missing row", `{"p": [0, 1], "z": [0], "tau": [[0]]}`, errors.ErrCodeInvalidInput},
		{"short row", `{"p": [0], "z": [0, 1], "tau": [[0]]}`, errors.ErrCodeInvalidInput},
		{"negative tau", `{"p": [0], "z": [0], "tau": [[-1]]}`, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGridJSON(strings.NewReader(tt.in))
			if !errors.Is(err, tt.code) {
				t.Errorf("ReadGridJSON() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestExportImportGrid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.json")
	if err := ExportGrid(testGrid(), path); err != nil {
		t.Fatalf("ExportGrid() error: %v", err)
	}
	g, err := ImportGrid(path)
	if err != nil {
		t.Fatalf("ImportGrid() error: %v", err)
	}
	if g.Cells() != 4 {
		t.Errorf("Cells() = %d, want 4", g.Cells())
	}

	if _, err := ImportGrid(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("ImportGrid(missing) should fail")
	}
}

func TestProfileCSV(t *testing.T) {
	tests := []struct {
		name   string
		prof   *integrators.Profile
		header string
		row    string
	}{
		{
			name:   "x grid",
			prof:   &integrators.Profile{X: []float64{-1, 0, 1}, Flux: []float64{0.75, 0.25}},
			header: "x_lo,x_hi,flux",
			row:    "-1,0,0.75",
		},
		{
			name: "energy grid",
			prof: &integrators.Profile{
				Energy: []float64{0.5, 0.6, 0.7},
				X:      []float64{1, 0, -1},
				Flux:   []float64{0.5, 0.5},
			},
			header: "e_lo,e_hi,x_lo,x_hi,flux",
			row:    "0.5,0.6,1,0,0.5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteProfileCSV(tt.prof, &buf); err != nil {
				t.Fatalf("WriteProfileCSV() error: %v", err)
			}
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			if len(lines) != 3 {
				t.Fatalf("got %d lines, want 3", len(lines))
			}
			if lines[0] != tt.header {
				t.Errorf("header = %q, want %q", lines[0], tt.header)
			}
			if lines[1] != tt.row {
				t.Errorf("row = %q, want %q", lines[1], tt.row)
			}
		})
	}
}

func TestProfileCSVShape(t *testing.T) {
	p := &integrators.Profile{X: []float64{0, 1}, Flux: []float64{0.5, 0.5}}
	if err := WriteProfileCSV(p, &bytes.Buffer{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("WriteProfileCSV() error = %v, want INVALID_INPUT", err)
	}
}

func TestExportProfileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	p := &integrators.Profile{X: []float64{-1, 1}, Flux: []float64{1}, Total: 2.5}
	if err := ExportProfile(p, path); err != nil {
		t.Fatalf("ExportProfile() error: %v", err)
	}
	if err := ExportProfile(nil, path); err == nil {
		t.Error("ExportProfile(nil) should fail")
	}
}
