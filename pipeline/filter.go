package pipeline

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/teranos/jbind/errors"
)

// Filter selects classes by glob patterns over their dotted names.
// Patterns and names are compared in slash form, so "*" stays inside one
// package segment and "**" crosses them: "java.util.**" matches every
// class below java.util, "android.*.R$*" every nested class of an R.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter compiles include and exclude patterns. An empty include list
// selects everything.
func NewFilter(include, exclude []string) (*Filter, error) {
	f := &Filter{}
	for _, p := range include {
		s := slashForm(p)
		if !doublestar.ValidatePattern(s) {
			return nil, errors.NewConfigurationError("filter.include: invalid pattern %q", p)
		}
		f.include = append(f.include, s)
	}
	for _, p := range exclude {
		s := slashForm(p)
		if !doublestar.ValidatePattern(s) {
			return nil, errors.NewConfigurationError("filter.exclude: invalid pattern %q", p)
		}
		f.exclude = append(f.exclude, s)
	}
	return f, nil
}

// Match reports whether the class is selected.
func (f *Filter) Match(name string) bool {
	s := slashForm(name)
	if len(f.include) > 0 && !matchAny(f.include, s) {
		return false
	}
	return !matchAny(f.exclude, s)
}

// Empty reports whether the filter selects everything.
func (f *Filter) Empty() bool {
	return len(f.include) == 0 && len(f.exclude) == 0
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		// patterns were validated in NewFilter
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

func slashForm(s string) string {
	return strings.ReplaceAll(s, ".", "/")
}
