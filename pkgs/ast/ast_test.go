package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolarityInvert(t *testing.T) {
	assert.Equal(t, Negative, Positive.Invert())
	assert.Equal(t, Positive, Negative.Invert())
}

func TestArgumentString(t *testing.T) {
	tests := []struct {
		name string
		arg  Argument
		want string
	}{
		{"literal", Lit("hello"), `"hello"`},
		{"varref", Ref("out"), "@out"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.arg.String())
		})
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Structure, "structure"},
		{Shell, "shell"},
		{Assertion, "assertion"},
		{Action, "action"},
		{ContentBlockKind, "content-block"},
		{Kind(99), "unknown"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.kind.String())
	}
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument()
	assert.NotNil(t, doc.Snippets)
	assert.Empty(t, doc.Tests)
}
