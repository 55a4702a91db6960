package logger

import (
	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across jbind.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity
	FieldRunID = "run_id"

	// Components
	FieldComponent = "component"
	FieldStage     = "stage"

	// Descriptor model
	FieldClass   = "class"
	FieldMember  = "member"
	FieldPackage = "package"
	FieldKind    = "kind"
	FieldRef     = "ref"

	// Inputs and outputs
	FieldInput = "input"
	FieldPath  = "path"
	FieldSink  = "sink"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount   = "count"
	FieldSize    = "size"
	FieldWorkers = "workers"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Driver struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func New() *Driver {
//	    return &Driver{logger: logger.ComponentLogger("pipeline")}
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
//
// Example:
//
//	classLogger := logger.ChildLogger(base, logger.FieldClass, node.Name())
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
