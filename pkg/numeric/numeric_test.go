package numeric

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/matzehuels/windprofile/pkg/errors"
)

func TestIntegrate(t *testing.T) {
	tests := []struct {
		name string
		f    Func
		a, b float64
		opts QuadratureOptions
		want float64
	}{
		{
			name: "polynomial",
			f:    func(x float64) float64 { return x * x },
			a:    0, b: 1,
			want: 1.0 / 3,
		},
		{
			name: "reversed limits",
			f:    func(x float64) float64 { return x * x },
			a:    1, b: 0,
			want: -1.0 / 3,
		},
		{
			name: "semi-infinite",
			f:    func(x float64) float64 { return 1 / (x * x) },
			a:    1, b: math.Inf(1),
			want: 1,
		},
		{
			name: "lower semi-infinite",
			f:    func(x float64) float64 { return math.Exp(x) },
			a:    math.Inf(-1), b: 0,
			want: 1,
		},
		{
			name: "whole line",
			f:    func(x float64) float64 { return math.Exp(-x * x) },
			a:    math.Inf(-1), b: math.Inf(1),
			want: math.Sqrt(math.Pi),
		},
		{
			name: "endpoint singularity",
			f:    func(x float64) float64 { return 1 / math.Sqrt(x) },
			a:    0, b: 1,
			opts: QuadratureOptions{SingularLower: true},
			want: 2,
		},
		{
			name: "degenerate interval",
			f:    func(x float64) float64 { return 1 },
			a:    2, b: 2,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Integrate(tt.f, tt.a, tt.b, tt.opts)
			if err != nil {
				t.Fatalf("Integrate() error = %v", err)
			}
			if math.Abs(res.Value-tt.want) > 1e-6*math.Max(1, math.Abs(tt.want)) {
				t.Errorf("Integrate() = %.12g, want %.12g", res.Value, tt.want)
			}
		})
	}
}

func TestIntegrateNonConvergence(t *testing.T) {
	f := func(x float64) float64 { return math.Sin(1 / x) }
	res, err := Integrate(f, 1e-3, 1, QuadratureOptions{RelTol: 1e-12, MaxIntervals: 2})
	if err == nil {
		t.Fatal("Integrate() should fail with a two-interval budget")
	}
	if !errors.Is(err, errors.ErrCodeNonConvergence) {
		t.Errorf("error code = %v, want %v", errors.GetCode(err), errors.ErrCodeNonConvergence)
	}
	if res.Intervals != 2 {
		t.Errorf("Intervals = %d, want 2", res.Intervals)
	}
}

func TestIntegrateRoundoffLimit(t *testing.T) {
	// Bisection pins the jump down to float resolution long before the
	// interval budget runs out, but the tolerance is out of reach.
	const x0 = 0.3713
	f := func(x float64) float64 {
		if x < x0 {
			return 1
		}
		return 0
	}
	res, err := Integrate(f, 0, 1, QuadratureOptions{RelTol: 1e-300, AbsTol: 1e-300})
	if !errors.Is(err, errors.ErrCodeNonConvergence) {
		t.Fatalf("Integrate() error = %v, want %s", err, errors.ErrCodeNonConvergence)
	}
	if !strings.Contains(err.Error(), "roundoff") {
		t.Errorf("error = %q, want it to name the roundoff limit", err)
	}
	if res.Intervals >= DefaultMaxIntervals {
		t.Errorf("Intervals = %d, want fewer than the budget of %d", res.Intervals, DefaultMaxIntervals)
	}
	if math.Abs(res.Value-x0) > 1e-9 {
		t.Errorf("Integrate() = %v, want best estimate near %v", res.Value, x0)
	}
}

func TestIntegrateNotFinite(t *testing.T) {
	f := func(x float64) float64 { return math.NaN() }
	_, err := Integrate(f, 0, 1, QuadratureOptions{})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("Integrate(NaN) error = %v, want INVALID_INPUT", err)
	}
}

func TestIntegrateBreakpoints(t *testing.T) {
	// A narrow Lorentzian is easy to integrate once the peak is a breakpoint.
	const (
		x0    = 0.37
		gamma = 1e-6
	)
	f := func(x float64) float64 {
		d := (x - x0) / gamma
		return 1 / (math.Pi * gamma * (1 + d*d))
	}
	want := (math.Atan((1-x0)/gamma) + math.Atan(x0/gamma)) / math.Pi

	res, err := IntegrateBreakpoints(f, []float64{0, x0, 1}, QuadratureOptions{})
	if err != nil {
		t.Fatalf("IntegrateBreakpoints() error = %v", err)
	}
	if math.Abs(res.Value-want) > 1e-6 {
		t.Errorf("IntegrateBreakpoints() = %.12g, want %.12g", res.Value, want)
	}

	if _, err := IntegrateBreakpoints(f, []float64{1, 0}, QuadratureOptions{}); err == nil {
		t.Error("IntegrateBreakpoints() should reject descending breakpoints")
	}
	if _, err := IntegrateBreakpoints(f, []float64{1}, QuadratureOptions{}); err == nil {
		t.Error("IntegrateBreakpoints() should reject a single breakpoint")
	}
}

func TestCoarsen(t *testing.T) {
	o := QuadratureOptions{}.Coarsen(100)
	if o.RelTol != DefaultRelTol*100 || o.AbsTol != DefaultAbsTol*100 {
		t.Errorf("Coarsen() = %+v", o)
	}
}

func TestSolveRoot(t *testing.T) {
	tests := []struct {
		name          string
		problem       RootProblem
		want          float64
		wantBisection bool
	}{
		{
			name: "newton only",
			problem: RootProblem{
				F:     func(x float64) float64 { return x*x - 2 },
				DF:    func(x float64) float64 { return 2 * x },
				Guess: 1,
				Lo:    0, Hi: 2,
			},
			want: math.Sqrt2,
		},
		{
			name: "no bracket",
			problem: RootProblem{
				F:     func(x float64) float64 { return math.Cos(x) - x },
				DF:    func(x float64) float64 { return -math.Sin(x) - 1 },
				Guess: 1,
			},
			want: 0.7390851332151607,
		},
		{
			name: "divergent newton falls back to bisection",
			problem: RootProblem{
				F:     math.Atan,
				DF:    func(x float64) float64 { return 1 / (1 + x*x) },
				Guess: 2.5,
				Lo:    -1, Hi: 3,
			},
			want:          0,
			wantBisection: true,
		},
		{
			name: "root at bracket edge",
			problem: RootProblem{
				F:  func(x float64) float64 { return x - 1 },
				DF: func(x float64) float64 { return 1 },
				Lo: 1, Hi: 2,
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := SolveRoot(tt.problem)
			if err != nil {
				t.Fatalf("SolveRoot() error = %v", err)
			}
			if math.Abs(res.Root-tt.want) > 1e-9 {
				t.Errorf("SolveRoot() = %.15g, want %.15g", res.Root, tt.want)
			}
			if tt.wantBisection && res.Bisections == 0 {
				t.Error("expected at least one bisection step")
			}
		})
	}
}

func TestSolveRootFailures(t *testing.T) {
	tests := []struct {
		name    string
		problem RootProblem
	}{
		{
			name: "vanishing derivative without bracket",
			problem: RootProblem{
				F:     func(x float64) float64 { return x*x + 1 },
				DF:    func(x float64) float64 { return 2 * x },
				Guess: 0,
			},
		},
		{
			name: "newton cycle exhausts budget",
			problem: RootProblem{
				F:       func(x float64) float64 { return x*x*x - 2*x + 2 },
				DF:      func(x float64) float64 { return 3*x*x - 2 },
				Guess:   0,
				MaxIter: 20,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SolveRoot(tt.problem)
			if !errors.Is(err, errors.ErrCodeNonConvergence) {
				t.Errorf("SolveRoot() error = %v, want NON_CONVERGENCE", err)
			}
		})
	}

	if _, err := SolveRoot(RootProblem{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("SolveRoot(empty) error = %v, want INVALID_INPUT", err)
	}
}

func ExampleIntegrate() {
	res, _ := Integrate(func(x float64) float64 { return 1 / (x * x) }, 1, math.Inf(1), QuadratureOptions{})
	fmt.Printf("%.6f\n", res.Value)
	// Output: 1.000000
}

func ExampleSolveRoot() {
	res, _ := SolveRoot(RootProblem{
		F:     func(x float64) float64 { return x*x - 2 },
		DF:    func(x float64) float64 { return 2 * x },
		Guess: 1,
		Lo:    0,
		Hi:    2,
	})
	fmt.Printf("%.6f\n", res.Root)
	// Output: 1.414214
}
