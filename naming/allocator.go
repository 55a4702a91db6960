package naming

import (
	"sort"
	"strconv"
)

// TieBreak decides which of several colliding foreign names keeps the
// unsuffixed host identifier.
type TieBreak string

const (
	// TieSorted favors the lexically smallest foreign name, so results do
	// not depend on ingest order.
	TieSorted TieBreak = "sorted"
	// TieIngest favors the first-ingested foreign name.
	TieIngest TieBreak = "ingest"
)

// DefaultMaxSuffix bounds collision suffixing.
const DefaultMaxSuffix = 1000

// Claim asks for a host identifier in a scope.
type Claim struct {
	Foreign string // unique inside the batch
	Index   int    // ingest position, for TieIngest
	Natural string // normalized, escaped identifier
}

// SuffixFunc forms the n-th alternative (n >= 2) of a base identifier.
type SuffixFunc func(base string, n int) string

// NumericSuffix forms base_2, base_3, ...
func NumericSuffix(base string, n int) string {
	return base + "_" + strconv.Itoa(n)
}

// Scope hands out unique host identifiers. Comparison goes through the
// fold function so case-insensitive scopes (file names) work too.
type Scope struct {
	fold      func(string) string
	taken     map[string]string // folded host -> foreign
	maxSuffix int
}

// NewScope returns a scope comparing names exactly.
func NewScope(maxSuffix int) *Scope {
	return NewFoldingScope(maxSuffix, nil)
}

// NewFoldingScope returns a scope comparing names through fold.
func NewFoldingScope(maxSuffix int, fold func(string) string) *Scope {
	if fold == nil {
		fold = func(s string) string { return s }
	}
	if maxSuffix <= 0 {
		maxSuffix = DefaultMaxSuffix
	}
	return &Scope{fold: fold, taken: map[string]string{}, maxSuffix: maxSuffix}
}

// Reserve marks host as unavailable.
func (s *Scope) Reserve(host string) {
	key := s.fold(host)
	if _, ok := s.taken[key]; !ok {
		s.taken[key] = ""
	}
}

// Taken reports whether host is in use, and by which foreign name ("" for
// reserved names).
func (s *Scope) Taken(host string) (string, bool) {
	f, ok := s.taken[s.fold(host)]
	return f, ok
}

// Pin gives host to foreign, which must be free or already foreign's.
func (s *Scope) Pin(foreign, host string) bool {
	key := s.fold(host)
	if owner, ok := s.taken[key]; ok && owner != foreign {
		return false
	}
	s.taken[key] = foreign
	return true
}

// Next returns the first free alternative of base, starting at base itself
// when tryBase is set. ok is false once maxSuffix is exhausted.
func (s *Scope) Next(base string, tryBase bool, suffix SuffixFunc) (string, bool) {
	if tryBase {
		if _, taken := s.taken[s.fold(base)]; !taken {
			return base, true
		}
	}
	for n := 2; n <= s.maxSuffix; n++ {
		cand := suffix(base, n)
		if _, taken := s.taken[s.fold(cand)]; !taken {
			return cand, true
		}
	}
	return "", false
}

// Order sorts claims by tie-break policy.
func Order(claims []Claim, tie TieBreak) {
	sort.SliceStable(claims, func(i, j int) bool {
		a, b := claims[i], claims[j]
		if tie == TieIngest && a.Index != b.Index {
			return a.Index < b.Index
		}
		return a.Foreign < b.Foreign
	})
}

// Allocate resolves a batch of claims. Every claim whose natural name is
// free takes it, in tie-break order; the rest take the lowest free suffix.
// Claims that cannot be satisfied are returned in failed.
func (s *Scope) Allocate(claims []Claim, tie TieBreak, suffix SuffixFunc) (assigned map[string]string, failed []Claim) {
	if suffix == nil {
		suffix = NumericSuffix
	}
	ordered := append([]Claim(nil), claims...)
	Order(ordered, tie)

	assigned = make(map[string]string, len(ordered))
	var losers []Claim
	for _, c := range ordered {
		if _, taken := s.taken[s.fold(c.Natural)]; taken {
			losers = append(losers, c)
			continue
		}
		s.taken[s.fold(c.Natural)] = c.Foreign
		assigned[c.Foreign] = c.Natural
	}
	for _, c := range losers {
		host, ok := s.Next(c.Natural, false, suffix)
		if !ok {
			failed = append(failed, c)
			continue
		}
		s.taken[s.fold(host)] = c.Foreign
		assigned[c.Foreign] = host
	}
	return assigned, failed
}
