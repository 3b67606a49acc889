// Package errors provides structured error types for windprofile.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI, the HTTP API and the library
//   - Machine-readable error codes for programmatic handling
//   - Attribution of numerical failures to the ray that triggered them
//   - Non-fatal diagnostics that travel alongside a result
//
// # Error Codes
//
// The taxonomy follows the physics engine:
//   - INVALID_CONFIGURATION: an incompatible method selection or an
//     out-of-domain model parameter. Always detected before any numeric work.
//   - NON_CONVERGENCE: a root solve or quadrature missed its tolerance.
//   - DOMAIN_WARNING: a result that is valid but only approximately so.
//   - INVALID_INPUT: malformed coordinates or grids.
//
// # Usage
//
//	err := errors.New(errors.ErrCodeConfiguration, "rosseland weighting requires the numerical method")
//	if errors.Is(err, errors.ErrCodeConfiguration) {
//	    // reject the request
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInternal, origErr, "grid cell %d", i)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeConfiguration Code = "INVALID_CONFIGURATION"
	ErrCodeInvalidFormat Code = "INVALID_FORMAT"

	// Numerical errors
	ErrCodeNonConvergence Code = "NON_CONVERGENCE"

	// Diagnostics (never returned as errors by the engine)
	ErrCodeDomainWarning Code = "DOMAIN_WARNING"
	ErrCodeOcculted      Code = "OCCULTED"

	// Resource errors
	ErrCodeNotFound Code = "NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// coder is implemented by error types that carry their own code.
type coder interface {
	Code() Code
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error or a typed error
// exposing a Code method, and compares the first one found.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no error in the chain carries a code.
func GetCode(err error) Code {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		if c, ok := err.(coder); ok {
			return c.Code()
		}
		err = errors.Unwrap(err)
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// =============================================================================
// Numerical Errors
// =============================================================================

// Point identifies the ray (and optionally the frequency offset) a
// numerical failure is attributed to.
type Point struct {
	P    float64 `json:"p"`
	Z    float64 `json:"z"`
	X    float64 `json:"x,omitempty"`
	HasX bool    `json:"-"`
}

func (pt Point) String() string {
	if pt.HasX {
		return fmt.Sprintf("(p=%g, z=%g, x=%g)", pt.P, pt.Z, pt.X)
	}
	return fmt.Sprintf("(p=%g, z=%g)", pt.P, pt.Z)
}

// NonConvergenceError reports a root solve or quadrature that did not reach
// its tolerance within the iteration budget.
type NonConvergenceError struct {
	Op         string  // "quadrature" or "root"
	Iterations int     // Iterations (or subintervals) consumed
	Estimate   float64 // Last iterate or integral value
	Residual   float64 // Error estimate or |f(x)| at the last iterate
	Point      *Point  // Attributed coordinates, nil until At is called
}

// Error implements the error interface.
func (e *NonConvergenceError) Error() string {
	msg := fmt.Sprintf("%s did not converge after %d iterations (estimate %g, residual %g)",
		e.Op, e.Iterations, e.Estimate, e.Residual)
	if e.Point != nil {
		msg += " at " + e.Point.String()
	}
	return msg
}

// Code returns the error code for this error type.
func (e *NonConvergenceError) Code() Code {
	return ErrCodeNonConvergence
}

// At returns a copy of e attributed to the ray (p, z).
// An existing attribution is kept, so the innermost call site wins.
func (e *NonConvergenceError) At(p, z float64) *NonConvergenceError {
	out := *e
	if out.Point == nil {
		out.Point = &Point{P: p, Z: z}
	}
	return &out
}

// AtX returns a copy of e attributed to the frequency offset x.
func (e *NonConvergenceError) AtX(x float64) *NonConvergenceError {
	out := *e
	pt := Point{X: x, HasX: true}
	if out.Point != nil {
		pt.P, pt.Z = out.Point.P, out.Point.Z
	}
	out.Point = &pt
	return &out
}

// Attribute attaches (p, z) to err if it is a NonConvergenceError.
// Other errors are returned unchanged.
func Attribute(err error, p, z float64) error {
	var nc *NonConvergenceError
	if errors.As(err, &nc) {
		return nc.At(p, z)
	}
	return err
}

// AttributeX attaches the frequency offset x to err if it is a
// NonConvergenceError. Other errors are returned unchanged.
func AttributeX(err error, x float64) error {
	var nc *NonConvergenceError
	if errors.As(err, &nc) {
		return nc.AtX(x)
	}
	return err
}

// =============================================================================
// Diagnostics
// =============================================================================

// Warning is a non-fatal diagnostic that accompanies a result.
type Warning struct {
	Code    Code    `json:"code"`
	Message string  `json:"message"`
	P       float64 `json:"p"`
	Z       float64 `json:"z"`
}

// String formats the warning for display.
func (w Warning) String() string {
	return fmt.Sprintf("%s at (p=%g, z=%g): %s", w.Code, w.P, w.Z, w.Message)
}

// DomainWarning creates a Warning with code DOMAIN_WARNING.
func DomainWarning(p, z float64, format string, args ...any) Warning {
	return Warning{
		Code:    ErrCodeDomainWarning,
		Message: fmt.Sprintf(format, args...),
		P:       p,
		Z:       z,
	}
}
