package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantPrefix Prefix
		wantRest   string
		wantBlank  bool
	}{
		{"blank", "   ", PrefixUnknown, "", true},
		{"comment", "# a note", PrefixUnknown, "", true},
		{"test header", "> login flow", PrefixTestHeader, " login flow", false},
		{"snippet header", ">@ setup", PrefixSnippetHeader, " setup", false},
		{"run positive", "$. echo hi", PrefixRunPos, " echo hi", false},
		{"run negative", "$! false", PrefixRunNeg, " false", false},
		{"expect", "$< password:", PrefixExpect, " password:", false},
		{"send", "$> secret", PrefixSend, " secret", false},
		{"assert positive", "?. stdout \"hi\"", PrefixAssertPos, ` stdout "hi"`, false},
		{"assert negative", "?! stdout \"hi\"", PrefixAssertNeg, ` stdout "hi"`, false},
		{"action", ":. stdout @out", PrefixAction, " stdout @out", false},
		{"content block", ".. some text", PrefixContentBlock, " some text", false},
		{"unknown", "% nope", PrefixUnknown, "% nope", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prefix, rest, blank := ClassifyLine(tc.raw)
			assert.Equal(t, tc.wantBlank, blank)
			assert.Equal(t, tc.wantPrefix, prefix)
			if !blank {
				assert.Equal(t, tc.wantRest, rest)
			}
		})
	}
}

func TestClassifyLineStripsCR(t *testing.T) {
	prefix, rest, blank := ClassifyLine("$. echo hi\r")
	assert.False(t, blank)
	assert.Equal(t, PrefixRunPos, prefix)
	assert.Equal(t, " echo hi", rest)
}

func TestTokenizeBareWords(t *testing.T) {
	toks, err := Tokenize(" echo hello world", 1)
	require.NoError(t, err)
	require.Len(t, toks, 3)
	for i, want := range []string{"echo", "hello", "world"} {
		assert.Equal(t, TokLiteral, toks[i].Kind)
		assert.Equal(t, want, toks[i].Text)
	}
}

func TestTokenizeQuotedStrings(t *testing.T) {
	toks, err := Tokenize(` "hello world" 'single quoted'`, 1)
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, "hello world", toks[0].Text)
	assert.Equal(t, "single quoted", toks[1].Text)
}

func TestTokenizeQuotedEscapes(t *testing.T) {
	toks, err := Tokenize(`"a\"b\\c"`, 1)
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, `a"b\c`, toks[0].Text)
}

func TestTokenizeUnterminatedQuote(t *testing.T) {
	_, err := Tokenize(`"unterminated`, 1)
	assert.Error(t, err)
}

func TestTokenizeVarRef(t *testing.T) {
	toks, err := Tokenize(" @out", 1)
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, TokVarRef, toks[0].Kind)
	assert.Equal(t, "out", toks[0].Text)
}

func TestTokenizeBareAtSign(t *testing.T) {
	// A standalone '@' not followed by an identifier is the literal
	// snippet-invocation marker, not an (invalid) empty variable name.
	toks, err := Tokenize(" @ setup", 1)
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, TokLiteral, toks[0].Kind)
	assert.Equal(t, "@", toks[0].Text)
	assert.Equal(t, "setup", toks[1].Text)
}

func TestTokenizeTrailingComment(t *testing.T) {
	toks, err := Tokenize(" echo hi # trailing comment", 1)
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, "echo", toks[0].Text)
	assert.Equal(t, "hi", toks[1].Text)
}

func TestTokenizeColumnTracking(t *testing.T) {
	toks, err := Tokenize(" echo hi", 10)
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, 11, toks[0].Column)
	assert.Equal(t, 16, toks[1].Column)
}
