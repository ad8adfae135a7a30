// Package store implements the per-test-case Variable Store: a simple
// name -> value mapping with expansion of ast.Argument values.
package store

import (
	"fmt"

	"github.com/aledsdavies/shellspec/pkgs/ast"
)

// Store is created empty at the start of each test case and discarded at
// its end; it is never shared across test cases.
type Store struct {
	values map[string]string
}

func New() *Store {
	return &Store{values: make(map[string]string)}
}

// Set overwrites any existing value for name.
func (s *Store) Set(name, value string) {
	s.values[name] = value
}

// Get returns the stored value and whether name is defined.
func (s *Store) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Expand resolves an Argument to its string value: the literal text, or
// the variable store's value for a VarRef, failing with a distinct error
// for an undefined reference.
func (s *Store) Expand(a ast.Argument) (string, error) {
	if a.Kind == ast.Literal {
		return a.Text, nil
	}
	v, ok := s.values[a.Text]
	if !ok {
		return "", fmt.Errorf("undefined variable @%s", a.Text)
	}
	return v, nil
}

// ExpandAll resolves a slice of Arguments in order, failing on the first
// undefined reference.
func (s *Store) ExpandAll(args []ast.Argument) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		v, err := s.Expand(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
