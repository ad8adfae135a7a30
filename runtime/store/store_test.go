package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/shellspec/pkgs/ast"
)

func TestExpandLiteral(t *testing.T) {
	s := New()
	v, err := s.Expand(ast.Lit("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", v)
}

func TestExpandVarRef(t *testing.T) {
	s := New()
	s.Set("out", "captured value")
	v, err := s.Expand(ast.Ref("out"))
	require.NoError(t, err)
	assert.Equal(t, "captured value", v)
}

func TestExpandUndefinedVarRef(t *testing.T) {
	s := New()
	_, err := s.Expand(ast.Ref("missing"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "undefined variable")
}

func TestExpandAll(t *testing.T) {
	s := New()
	s.Set("name", "world")
	out, err := s.ExpandAll([]ast.Argument{ast.Lit("hello"), ast.Ref("name")})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "world"}, out)
}

func TestExpandAllStopsOnFirstError(t *testing.T) {
	s := New()
	_, err := s.ExpandAll([]ast.Argument{ast.Lit("ok"), ast.Ref("missing")})
	assert.Error(t, err)
}

func TestSetOverwrites(t *testing.T) {
	s := New()
	s.Set("k", "first")
	s.Set("k", "second")
	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestStoreIsolationBetweenInstances(t *testing.T) {
	a := New()
	b := New()
	a.Set("shared", "a-value")
	_, ok := b.Get("shared")
	assert.False(t, ok)
}
