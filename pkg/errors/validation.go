package errors

import (
	"math"
)

// ValidateFinite rejects NaN and infinite values.
func ValidateFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidInput, "%s must be finite, got %g", name, v)
	}
	return nil
}

// ValidateNonNegative rejects values below zero, as well as non-finite values.
// Configuration parameters use ErrCodeConfiguration so that the caller can
// tell a bad model from a bad coordinate.
func ValidateNonNegative(code Code, name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(code, "%s must be finite, got %g", name, v)
	}
	if v < 0 {
		return New(code, "%s must be non-negative, got %g", name, v)
	}
	return nil
}

// ValidateRange checks lo <= v <= hi (inclusive bounds).
func ValidateRange(code Code, name string, v, lo, hi float64) error {
	if math.IsNaN(v) || v < lo || v > hi {
		return New(code, "%s must be in [%g, %g], got %g", name, lo, hi, v)
	}
	return nil
}

// ValidateOpenRange checks lo < v < hi (exclusive bounds).
func ValidateOpenRange(code Code, name string, v, lo, hi float64) error {
	if math.IsNaN(v) || v <= lo || v >= hi {
		return New(code, "%s must be in (%g, %g), got %g", name, lo, hi, v)
	}
	return nil
}

// ValidateGrid checks that a coordinate grid is non-empty, finite and
// sorted in ascending order. Repeated samples are allowed.
//
// The validation rules:
//   - At least one sample
//   - No NaN or infinite samples
//   - Non-decreasing order
//   - At most maxGridSize samples
func ValidateGrid(name string, grid []float64) error {
	if len(grid) == 0 {
		return New(ErrCodeInvalidInput, "%s grid cannot be empty", name)
	}
	if len(grid) > maxGridSize {
		return New(ErrCodeInvalidInput, "%s grid too large (max %d samples)", name, maxGridSize)
	}
	for i, v := range grid {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return New(ErrCodeInvalidInput, "%s[%d] must be finite, got %g", name, i, v)
		}
		if i > 0 && v < grid[i-1] {
			return New(ErrCodeInvalidInput, "%s grid must be ascending (%s[%d]=%g < %s[%d]=%g)",
				name, name, i, v, name, i-1, grid[i-1])
		}
	}
	return nil
}

// maxGridSize bounds a single grid axis.
const maxGridSize = 1 << 20
