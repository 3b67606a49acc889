package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/windprofile/pkg/errors"
	wpio "github.com/matzehuels/windprofile/pkg/io"
)

// execute runs the CLI with args and a private cache directory.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	var logs bytes.Buffer
	root := New(&logs, LogInfo).RootCommand()
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	return root.Execute()
}

func TestRootCommands(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()
	want := []string{"tau", "total", "grid", "compare", "rad", "profile", "transmission",
		"luminosity", "sweep", "cache", "serve", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestCommandsRun(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"tau", []string{"tau", "0", "2"}},
		{"tau occulted", []string{"tau", "-m", "numerical", "--", "0.5", "-1"}},
		{"total", []string{"total", "2", "--tau-star", "0.5"}},
		{"grid table", []string{"grid", "--p-count", "3", "--z-count", "4"}},
		{"compare", []string{"compare", "--p-count", "2", "--z-count", "3"}},
		{"rad depth", []string{"rad", "depth", "0", "2", "--delta-e", "0.002", "--gamma-e", "0.001", "--v-inf", "0.005"}},
		{"rad integrand", []string{"rad", "integrand", "0", "2", "3", "--delta-e", "0.002", "--gamma-e", "0.001", "--v-inf", "0.005"}},
		{"profile", []string{"profile", "--bins", "8", "--tau-star", "2"}},
		{"luminosity", []string{"luminosity", "--tau-star", "1"}},
		{"transmission", []string{"transmission", "--u-count", "4", "--json"}},
		{"sweep", []string{"sweep", "--tau-max", "2", "--tau-count", "3", "--json"}},
		{"cache info", []string{"cache", "info"}},
		{"completion", []string{"completion", "bash"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := execute(t, tt.args...); err != nil {
				t.Errorf("%v: %v", tt.args, err)
			}
		})
	}
}

func TestCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"not a number", []string{"tau", "zero", "2"}, errors.ErrCodeInvalidInput},
		{"analytic beta", []string{"tau", "0", "2", "-m", "analytic", "--beta", "2"}, errors.ErrCodeConfiguration},
		{"bad method", []string{"grid", "-m", "guess"}, errors.ErrCodeConfiguration},
		{"bad format", []string{"grid", "--p-count", "2", "--z-count", "2", "-f", "xml"}, errors.ErrCodeInvalidInput},
		{"empty axis", []string{"grid", "--p-count", "0"}, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := execute(t, tt.args...)
			if !errors.Is(err, tt.code) {
				t.Errorf("%v: error = %v, want %s", tt.args, err, tt.code)
			}
		})
	}
}

func TestGridOutputAndShow(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "tau.json")
	csvPath := filepath.Join(dir, "tau.csv")

	if err := execute(t, "grid", "--p-count", "3", "--z-count", "5", "-o", jsonPath); err != nil {
		t.Fatalf("grid -o json: %v", err)
	}
	g, err := wpio.ImportGrid(jsonPath)
	if err != nil {
		t.Fatalf("ImportGrid() error: %v", err)
	}
	if g.Cells() != 15 {
		t.Errorf("Cells() = %d, want 15", g.Cells())
	}
	if err := execute(t, "grid", "show", jsonPath); err != nil {
		t.Errorf("grid show: %v", err)
	}

	if err := execute(t, "grid", "--p-count", "2", "--z-count", "2", "-o", csvPath); err != nil {
		t.Fatalf("grid -o csv: %v", err)
	}
	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Errorf("csv output missing: %v", err)
	}
}

func TestColumnSubset(t *testing.T) {
	if got := columnSubset(4, 9); len(got) != 4 || got[3] != 3 {
		t.Errorf("columnSubset(4, 9) = %v", got)
	}
	got := columnSubset(101, 9)
	if len(got) != 9 || got[0] != 0 || got[8] != 100 {
		t.Errorf("columnSubset(101, 9) = %v, want 9 indices from 0 to 100", got)
	}
}

func TestSparkline(t *testing.T) {
	if got := sparkline([]float64{0, 1, 2, 4}, 10); got != "▁▂▄█" {
		t.Errorf("sparkline() = %q, want %q", got, "▁▂▄█")
	}
	if got := []rune(sparkline(make([]float64, 100), 20)); len(got) != 20 {
		t.Errorf("sparkline() has %d glyphs, want 20", len(got))
	}
}
