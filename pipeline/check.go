package pipeline

import (
	"bytes"
	"context"
	"sort"
	"strings"

	"github.com/teranos/jbind/emit"
	"github.com/teranos/jbind/errors"
	"github.com/teranos/jbind/output"
)

// ChangeKind says how a file on the sink differs from what would be
// generated.
type ChangeKind string

const (
	Missing  ChangeKind = "missing"  // would be generated, not on the sink
	Modified ChangeKind = "modified" // content differs
	Stale    ChangeKind = "stale"    // generated by an earlier run, no longer produced
)

// Change is one out-of-date file.
type Change struct {
	Path string
	Kind ChangeKind
}

// Diff compares freshly generated units with what sink holds. Files on
// the sink that are not produced now count as stale only when they carry
// the generated-code header, so hand-written files next to the bindings
// are left alone. Changes are sorted by path.
func Diff(ctx context.Context, units []emit.Unit, sink output.Sink) ([]Change, error) {
	var changes []Change
	produced := make(map[string]bool, len(units))
	for _, u := range units {
		produced[u.Path] = true
		have, err := sink.Read(ctx, u.Path)
		if errors.Is(err, errors.ErrNotFound) {
			changes = append(changes, Change{Path: u.Path, Kind: Missing})
			continue
		}
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(have, u.Source) {
			changes = append(changes, Change{Path: u.Path, Kind: Modified})
		}
	}

	existing, err := sink.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range existing {
		if produced[p] || !strings.HasSuffix(p, ".go") {
			continue
		}
		data, err := sink.Read(ctx, p)
		if err != nil {
			return nil, err
		}
		if IsGenerated(data) {
			changes = append(changes, Change{Path: p, Kind: Stale})
		}
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}

// IsGenerated reports whether a Go file starts with the jbind header.
func IsGenerated(src []byte) bool {
	return bytes.HasPrefix(src, []byte("// "+emit.Header))
}
