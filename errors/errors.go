// Package errors provides error handling for jbind.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints
//
// Usage:
//
//	// Wrap with context
//	if err := parse(entry); err != nil {
//	    return errors.Wrapf(err, "failed to parse %s", entry.Name)
//	}
//
//	// Add hints for users
//	return errors.WithHint(err, "check naming.rename in jbind.toml")
//
//	// Check the diagnostic kind
//	if errors.Is(err, errors.ErrUnresolvedType) {
//	    // skip the member
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint           = crdb.WithHint
	WithHintf          = crdb.WithHintf
	WithDetail         = crdb.WithDetail
	WithDetailf        = crdb.WithDetailf
	WithSecondaryError = crdb.WithSecondaryError
)

// Error inspection
var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
	Join           = crdb.Join
)

// AssertionFailedf reports a broken internal invariant.
var AssertionFailedf = crdb.AssertionFailedf

// Sentinels for the generator's error taxonomy.
// Diagnostics unwrap to one of these, so callers branch with errors.Is.
var (
	// ErrDuplicateClass indicates two descriptors share a fully-qualified name
	ErrDuplicateClass = New("duplicate class")

	// ErrUnresolvedType indicates a reference to a class absent from the graph
	ErrUnresolvedType = New("unresolved type")

	// ErrInheritanceCycle indicates an ancestor walk that never reaches a root
	ErrInheritanceCycle = New("inheritance cycle")

	// ErrNameCollisionUnresolvable indicates no legal host identifier could be assigned
	ErrNameCollisionUnresolvable = New("name collision unresolvable")

	// ErrConfiguration indicates invalid or unknown configuration
	ErrConfiguration = New("configuration error")

	// ErrEmissionIO indicates generated output could not be written
	ErrEmissionIO = New("emission I/O error")

	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")
)

// IsConfigurationError checks if an error is or wraps ErrConfiguration
func IsConfigurationError(err error) bool {
	return err != nil && Is(err, ErrConfiguration)
}

// IsEmissionIOError checks if an error is or wraps ErrEmissionIO
func IsEmissionIOError(err error) bool {
	return err != nil && Is(err, ErrEmissionIO)
}

// NewConfigurationError creates a configuration error with a formatted message
func NewConfigurationError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrConfiguration)
}

// WrapConfiguration marks err as a configuration error with context
func WrapConfiguration(err error, context string) error {
	return Mark(Wrap(err, context), ErrConfiguration)
}

// WrapEmissionIO marks err as an emission I/O error with context
func WrapEmissionIO(err error, context string) error {
	return Mark(Wrap(err, context), ErrEmissionIO)
}
