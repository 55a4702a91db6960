// Package diag defines the diagnostics produced while generating bindings
// and a collector that keeps their reported order deterministic no matter
// how work was scheduled.
package diag

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/teranos/jbind/errors"
)

// Kind names a diagnostic category.
type Kind string

const (
	DuplicateClass            Kind = "DuplicateClass"
	UnresolvedType            Kind = "UnresolvedType"
	InheritanceCycle          Kind = "InheritanceCycle"
	NameCollisionUnresolvable Kind = "NameCollisionUnresolvable"
	ConfigurationError        Kind = "ConfigurationError"
	EmissionIOError           Kind = "EmissionIOError"

	// Informational kinds
	ErasureFallback  Kind = "ErasureFallback"
	NameCollision    Kind = "NameCollision"
	SuppressedBridge Kind = "SuppressedBridge"
	SkippedMember    Kind = "SkippedMember"
)

var sentinels = map[Kind]error{
	DuplicateClass:            errors.ErrDuplicateClass,
	UnresolvedType:            errors.ErrUnresolvedType,
	InheritanceCycle:          errors.ErrInheritanceCycle,
	NameCollisionUnresolvable: errors.ErrNameCollisionUnresolvable,
	ConfigurationError:        errors.ErrConfiguration,
	EmissionIOError:           errors.ErrEmissionIO,
}

// Severity orders diagnostics by impact.
type Severity uint8

const (
	// Info is an audit note; the run output is complete.
	Info Severity = iota
	// Warning marks an omission, e.g. a member referring to a
	// filtered-out class. Strict mode only promotes NameCollision warnings.
	Warning
	// Error is recoverable: the class or member is skipped. Strict mode
	// promotes errors to fatal.
	Error
	// Fatal aborts the run.
	Fatal
)

var severityNames = [...]string{"info", "warning", "error", "fatal"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "unknown"
}

// Diagnostic is one reported condition.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Class    string // fully-qualified foreign class, if any
	Member   string // member key, if any
	Ref      string // referenced name for UnresolvedType
	Message  string
}

// Error implements error.
func (d Diagnostic) Error() string {
	var b strings.Builder
	b.WriteString(string(d.Kind))
	if d.Class != "" {
		b.WriteString(" ")
		b.WriteString(d.Class)
		if d.Member != "" {
			b.WriteString("#")
			b.WriteString(d.Member)
		}
	}
	if d.Ref != "" {
		fmt.Fprintf(&b, " -> %s", d.Ref)
	}
	if d.Message != "" {
		b.WriteString(": ")
		b.WriteString(d.Message)
	}
	return b.String()
}

// Unwrap returns the taxonomy sentinel so errors.Is matches the kind.
func (d Diagnostic) Unwrap() error {
	return sentinels[d.Kind]
}

func (d Diagnostic) fatal(strict bool) bool {
	switch {
	case d.Severity >= Fatal:
		return true
	case !strict:
		return false
	case d.Severity == Error:
		return true
	}
	// an interface dropped from a handle changes the generated API
	return d.Kind == NameCollision
}

// New builds a diagnostic with the kind's default severity.
func New(kind Kind, class, member, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Kind:     kind,
		Severity: DefaultSeverity(kind),
		Class:    class,
		Member:   member,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Unresolved builds an UnresolvedType diagnostic.
func Unresolved(class, member, ref string) Diagnostic {
	return Diagnostic{
		Kind:     UnresolvedType,
		Severity: Error,
		Class:    class,
		Member:   member,
		Ref:      ref,
	}
}

// DefaultSeverity is the severity a kind is reported with unless the
// producer knows better.
func DefaultSeverity(kind Kind) Severity {
	switch kind {
	case ConfigurationError, EmissionIOError:
		return Fatal
	case DuplicateClass, UnresolvedType, InheritanceCycle, NameCollisionUnresolvable:
		return Error
	case NameCollision:
		return Warning
	}
	return Info
}

// Less orders diagnostics by (class, member, kind, ref, message).
func Less(a, b Diagnostic) bool {
	if a.Class != b.Class {
		return a.Class < b.Class
	}
	if a.Member != b.Member {
		return a.Member < b.Member
	}
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.Ref != b.Ref {
		return a.Ref < b.Ref
	}
	return a.Message < b.Message
}

// Sort orders ds in place.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool { return Less(ds[i], ds[j]) })
}

// Collector accumulates diagnostics from concurrent workers.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

// Add records diagnostics.
func (c *Collector) Add(ds ...Diagnostic) {
	if len(ds) == 0 {
		return
	}
	c.mu.Lock()
	c.items = append(c.items, ds...)
	c.mu.Unlock()
}

// Sorted returns a sorted copy of everything recorded.
func (c *Collector) Sorted() []Diagnostic {
	c.mu.Lock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	c.mu.Unlock()
	Sort(out)
	return out
}

// Len returns the number of recorded diagnostics.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Count returns how many diagnostics have severity >= min.
func (c *Collector) Count(min Severity) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.items {
		if d.Severity >= min {
			n++
		}
	}
	return n
}

// CountKind returns how many diagnostics are of kind k.
func (c *Collector) CountKind(k Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.items {
		if d.Kind == k {
			n++
		}
	}
	return n
}

// Fatal returns the first fatal diagnostic in sorted order as an error.
// With strict set, recoverable errors and capabilities left off a handle
// count as fatal too.
func (c *Collector) Fatal(strict bool) error {
	var failing []error
	for _, d := range c.Sorted() {
		if d.fatal(strict) {
			failing = append(failing, d)
		}
	}
	switch len(failing) {
	case 0:
		return nil
	case 1:
		return failing[0]
	}
	err := errors.Wrapf(failing[0], "%d diagnostics are fatal", len(failing))
	if strict {
		err = errors.WithHint(err, "strict mode treats recoverable diagnostics as fatal; set run.strict = false to continue past them")
	}
	return err
}
