package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidInput, "test message: %s", "value")

	if err.Code != ErrCodeInvalidInput {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidInput)
	}

	if err.Message != "test message: value" {
		t.Errorf("Message = %v, want %v", err.Message, "test message: value")
	}

	expected := "INVALID_INPUT: test message: value"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeInternal, cause, "failed to evaluate")

	if err.Code != ErrCodeInternal {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInternal)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	// Test Unwrap
	unwrapped := errors.Unwrap(err)
	if unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	// Test errors.Is with wrapped error
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeConfiguration, "test"),
			code:     ErrCodeConfiguration,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeInvalidInput, "test"),
			code:     ErrCodeConfiguration,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeInternal, New(ErrCodeInvalidInput, "inner"), "outer"),
			code:     ErrCodeInternal,
			expected: true,
		},
		{
			name:     "non-convergence type",
			err:      &NonConvergenceError{Op: "root", Iterations: 100},
			code:     ErrCodeNonConvergence,
			expected: true,
		},
		{
			name:     "non-convergence behind fmt wrap",
			err:      fmt.Errorf("grid: %w", &NonConvergenceError{Op: "quadrature"}),
			code:     ErrCodeNonConvergence,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeConfiguration, "test"),
			expected: ErrCodeConfiguration,
		},
		{
			name:     "typed error",
			err:      &NonConvergenceError{},
			expected: ErrCodeNonConvergence,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNonConvergenceAttribution(t *testing.T) {
	base := &NonConvergenceError{Op: "quadrature", Iterations: 1000, Estimate: 1.5, Residual: 0.1}

	t.Run("at point", func(t *testing.T) {
		err := base.At(2, 0.5)
		if err.Point == nil || err.Point.P != 2 || err.Point.Z != 0.5 {
			t.Fatalf("Point = %+v, want (2, 0.5)", err.Point)
		}
		if base.Point != nil {
			t.Error("At() should not mutate the receiver")
		}
		if !strings.Contains(err.Error(), "(p=2, z=0.5)") {
			t.Errorf("Error() = %q, want attributed point", err.Error())
		}
	})

	t.Run("innermost attribution wins", func(t *testing.T) {
		err := base.At(2, 0.5).At(3, 1)
		if err.Point.P != 2 {
			t.Errorf("P = %v, want 2", err.Point.P)
		}
	})

	t.Run("frequency offset", func(t *testing.T) {
		err := base.At(2, 0.5).AtX(-0.3)
		if !err.Point.HasX || err.Point.X != -0.3 || err.Point.P != 2 {
			t.Errorf("Point = %+v, want p=2 x=-0.3", err.Point)
		}
	})

	t.Run("attribute helper", func(t *testing.T) {
		wrapped := fmt.Errorf("outer: %w", base)
		err := Attribute(wrapped, 1.5, 2)
		var nc *NonConvergenceError
		if !errors.As(err, &nc) || nc.Point == nil || nc.Point.P != 1.5 {
			t.Errorf("Attribute() = %v, want attributed NonConvergenceError", err)
		}

		plain := errors.New("plain")
		if Attribute(plain, 1, 1) != plain {
			t.Error("Attribute() should pass through other errors")
		}
	})
}

func TestDomainWarning(t *testing.T) {
	w := DomainWarning(1.0001, 2, "ray grazes the photosphere (|p-1| = %.1e)", 1e-4)
	if w.Code != ErrCodeDomainWarning {
		t.Errorf("Code = %v, want %v", w.Code, ErrCodeDomainWarning)
	}
	if !strings.Contains(w.String(), "DOMAIN_WARNING") {
		t.Errorf("String() = %q", w.String())
	}
}
