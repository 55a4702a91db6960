package pipeline

import (
	"time"

	"github.com/teranos/jbind/diag"
	"github.com/teranos/jbind/emit"
	"github.com/teranos/jbind/graph"
)

// StageTiming is how long one stage took.
type StageTiming struct {
	Name     string
	Duration time.Duration
}

// Report describes a run.
type Report struct {
	RunID string
	Sink  string

	// Units are the generated files, sorted by path.
	Units []emit.Unit
	// Diagnostics are sorted by (class, member, kind).
	Diagnostics []diag.Diagnostic
	// Pruned lists files of the previous run that were removed.
	Pruned []string

	Ingested          int // classes read from inputs
	Filtered          int // classes dropped by filter patterns
	Classes           int // classes in the type graph
	Emitted           int // classes rendered into some unit
	SkippedMembers    int
	Erased            int // type positions that fell back to an erasure
	SuppressedBridges int

	Graph    graph.Stats
	Stages   []StageTiming
	Duration time.Duration
}

// Count returns how many diagnostics have severity >= min.
func (r *Report) Count(min diag.Severity) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity >= min {
			n++
		}
	}
	return n
}

// Kinds counts diagnostics per kind.
func (r *Report) Kinds() map[diag.Kind]int {
	out := map[diag.Kind]int{}
	for _, d := range r.Diagnostics {
		out[d.Kind]++
	}
	return out
}

// Audit returns the erasure diagnostics: every place a generic type lost
// precision in the generated signatures.
func (r *Report) Audit() []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, d := range r.Diagnostics {
		if d.Kind == diag.ErasureFallback {
			out = append(out, d)
		}
	}
	return out
}

// Paths returns the paths of the generated units.
func (r *Report) Paths() []string {
	out := make([]string, len(r.Units))
	for i, u := range r.Units {
		out[i] = u.Path
	}
	return out
}
