// Unified error handling for the hkl Go migration
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// ErrNotConnected reports a solver-touching operation attempted while
	// the device is not fully connected. Recoverable: callers may retry
	// once the device reports ready.
	ErrNotConnected ErrorCode = "NOT_CONNECTED"

	// ErrUnsupportedUnit reports an unrecognized energy unit name.
	ErrUnsupportedUnit ErrorCode = "UNSUPPORTED_UNIT"

	// ErrNoSolution reports a forward search that produced no candidate
	// physical positions.
	ErrNoSolution ErrorCode = "NO_SOLUTION"

	// ErrUnknownAxis reports a move or constraint request naming an axis
	// the device does not have.
	ErrUnknownAxis ErrorCode = "UNKNOWN_AXIS"

	// ErrMixedAxes reports a single move request that targets both pseudo
	// and real axes.
	ErrMixedAxes ErrorCode = "MIXED_AXES"

	// ErrLimit reports a target outside an axis's allowed bounds.
	ErrLimit ErrorCode = "LIMIT"

	// ErrConfiguration reports an invalid diffractometer construction,
	// e.g. an unlocked or mismatched calculation engine.
	ErrConfiguration ErrorCode = "CONFIGURATION"

	// ErrCalc reports a failure inside the bound calculation engine.
	ErrCalc ErrorCode = "CALC"
)

// DiffractError is the unified error type for the diffractometer host
type DiffractError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Device is the diffractometer instance name (if available)
	Device string

	// Axis is the offending axis name (if applicable)
	Axis string

	// Unit is the offending unit string (if applicable)
	Unit string

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *DiffractError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Code, e.Device, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DiffractError) Unwrap() error {
	return e.Err
}

// SetDevice sets the device name
func (e *DiffractError) SetDevice(device string) *DiffractError {
	e.Device = device
	return e
}

// SetAxis sets the offending axis name
func (e *DiffractError) SetAxis(axis string) *DiffractError {
	e.Axis = axis
	return e
}

// SetContext adds additional context
func (e *DiffractError) SetContext(key string, value interface{}) *DiffractError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new DiffractError
func New(code ErrorCode, message string) *DiffractError {
	return &DiffractError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *DiffractError {
	return &DiffractError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NotConnectedError creates an error for an operation attempted before the
// device is fully connected
func NotConnectedError(device, operation string) *DiffractError {
	return New(ErrNotConnected, fmt.Sprintf("%s not fully connected, %s skipped", device, operation)).
		SetDevice(device)
}

// UnsupportedUnitError creates an error for an unrecognized energy unit
func UnsupportedUnitError(unit string) *DiffractError {
	e := New(ErrUnsupportedUnit, fmt.Sprintf("unsupported energy unit %q", unit))
	e.Unit = unit
	return e
}

// NoSolutionError creates an error for a forward search with no candidates.
// The attempted target is carried in the error context.
func NoSolutionError(target []float64) *DiffractError {
	vals := make([]string, len(target))
	for i, v := range target {
		vals[i] = fmt.Sprintf("%g", v)
	}
	return New(ErrNoSolution, fmt.Sprintf("no solution for target (%s)", strings.Join(vals, ", "))).
		SetContext("target", target)
}

// UnknownAxisError creates an error for a request naming a non-existent axis
func UnknownAxisError(axis, device string) *DiffractError {
	return New(ErrUnknownAxis, fmt.Sprintf("%s not in %s", axis, device)).
		SetDevice(device).
		SetAxis(axis)
}

// MixedAxesError creates an error for a move request mixing pseudo and real
// axis targets
func MixedAxesError(device string) *DiffractError {
	return New(ErrMixedAxes, "move request mixes pseudo and real axis targets").
		SetDevice(device)
}

// LimitError creates an error for a target outside an axis's bounds
func LimitError(axis string, target, low, high float64) *DiffractError {
	return New(ErrLimit, fmt.Sprintf("%s target %.5f out of bounds [%.5f, %.5f]", axis, target, low, high)).
		SetAxis(axis)
}

// ConfigurationError creates an error for invalid diffractometer construction
func ConfigurationError(message string) *DiffractError {
	return New(ErrConfiguration, message)
}

// CalcError creates an error for a calculation engine failure
func CalcError(operation string, err error) *DiffractError {
	return Wrap(err, ErrCalc, fmt.Sprintf("calc %s failed", operation))
}

// Is checks if error matches given error code
func Is(err error, code ErrorCode) bool {
	if de, ok := err.(*DiffractError); ok {
		return de.Code == code
	}
	return false
}

// IsNotConnected checks if error is the recoverable not-connected condition
func IsNotConnected(err error) bool {
	return Is(err, ErrNotConnected)
}

// Target returns the attempted target carried by a NO_SOLUTION error,
// or nil if the error carries none.
func Target(err error) []float64 {
	de, ok := err.(*DiffractError)
	if !ok || de.Context == nil {
		return nil
	}
	if t, ok := de.Context["target"].([]float64); ok {
		return t
	}
	return nil
}
