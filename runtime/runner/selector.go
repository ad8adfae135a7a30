package runner

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Selector filters which test cases a run executes (the --test flag).
// The zero value matches everything.
type Selector struct {
	// Index, if non-zero, matches only the test case at that 1-based
	// source position.
	Index int
	// Name, if non-empty, matches test cases whose name contains it as
	// a substring, falling back to a fuzzy subsequence match so a
	// slightly misspelled selector still finds its target.
	Name string
}

// All is the Selector that matches every test case.
var All = Selector{}

func (s Selector) Matches(index int, name string) bool {
	if s.Index != 0 {
		return index == s.Index
	}
	if s.Name == "" {
		return true
	}
	if strings.Contains(strings.ToLower(name), strings.ToLower(s.Name)) {
		return true
	}
	return fuzzy.MatchFold(s.Name, name)
}
