package naming

import (
	"sort"
	"sync"

	"github.com/teranos/jbind/errors"
)

// Kind is the kind of entity a name belongs to.
type Kind uint8

const (
	KindPackage   Kind = iota // Java package -> Go package path, scoped by the Java package
	KindClass                 // class -> Go type
	KindCompanion             // interface -> concrete handle type
	KindMember                // method or field accessor -> Go method
	KindFunc                  // constructor or static member -> package-level func
	KindConst                 // static constant -> Go const
	KindFile                  // class or package -> file name
)

var kindNames = [...]string{"package", "class", "companion", "member", "func", "const", "file"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Entry is one assignment in the table.
type Entry struct {
	Kind    Kind
	Scope   string // host scope: Go package path, class type or directory
	Foreign string // foreign identifier, e.g. "pkg.Base#foo()I"
	Host    string
}

type forwardKey struct {
	kind    Kind
	foreign string
}

type reverseKey struct {
	kind  Kind
	scope string
	host  string
}

// Table is the bidirectional mapping between foreign identifiers and host
// identifiers for one run. An assignment never changes once made. Safe for
// concurrent use.
type Table struct {
	mu      sync.RWMutex
	forward map[forwardKey]Entry
	reverse map[reverseKey]string
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		forward: map[forwardKey]Entry{},
		reverse: map[reverseKey]string{},
	}
}

// Assign records foreign -> host in scope. Re-assigning a foreign
// identifier, or giving a host identifier in use in the scope to a
// different foreign identifier, is an error.
func (t *Table) Assign(kind Kind, scope, foreign, host string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	fk := forwardKey{kind, foreign}
	if prev, ok := t.forward[fk]; ok {
		if prev.Host == host && prev.Scope == scope {
			return nil
		}
		return errors.AssertionFailedf("%s %s already named %s in %s", kind, foreign, prev.Host, prev.Scope)
	}
	rk := reverseKey{kind, scope, host}
	if owner, ok := t.reverse[rk]; ok {
		return errors.AssertionFailedf("%s %s in %s already names %s", kind, host, scope, owner)
	}
	t.forward[fk] = Entry{Kind: kind, Scope: scope, Foreign: foreign, Host: host}
	t.reverse[rk] = foreign
	return nil
}

// Host returns the host identifier assigned to a foreign identifier.
func (t *Table) Host(kind Kind, foreign string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.forward[forwardKey{kind, foreign}]
	return e.Host, ok
}

// Foreign returns the foreign identifier a host identifier stands for.
func (t *Table) Foreign(kind Kind, scope, host string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	f, ok := t.reverse[reverseKey{kind, scope, host}]
	return f, ok
}

// Entries returns every assignment sorted by (kind, scope, host).
func (t *Table) Entries() []Entry {
	t.mu.RLock()
	out := make([]Entry, 0, len(t.forward))
	for _, e := range t.forward {
		out = append(out, e)
	}
	t.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Scope != b.Scope {
			return a.Scope < b.Scope
		}
		return a.Host < b.Host
	})
	return out
}

// Len returns the number of assignments.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.forward)
}
