// Package parser turns .spec source text into an *ast.Document: test
// case and snippet boundaries, statement parsing, content-block
// attachment, and interactive expect/send grouping.
package parser

import (
	"fmt"
	"strings"

	"github.com/aledsdavies/shellspec/pkgs/ast"
	"github.com/aledsdavies/shellspec/pkgs/lexer"
)

// ParseError is a parse-time diagnostic with enough context to render a
// compiler-style pointer under the offending source line.
type ParseError struct {
	File    string
	Line    int
	Column  int
	Message string
	Context string // the raw source line, for rendering
}

func (e *ParseError) Error() string {
	file := e.File
	if file == "" {
		file = "<spec>"
	}
	if e.Context == "" {
		return fmt.Sprintf("%s:%d: error: %s", file, e.Line, e.Message)
	}
	pointer := strings.Repeat(" ", max0(e.Column-1)) + "^"
	return fmt.Sprintf("%s:%d:%d: error: %s\n%4d | %s\n     | %s",
		file, e.Line, e.Column, e.Message, e.Line, e.Context, pointer)
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// parser holds state for a single Parse call.
type parser struct {
	file  string
	lines []string
	doc   *ast.Document

	// snippet name -> source line of first declaration, for duplicate
	// detection.
	snippetLines map[string]int
}

// Parse parses the full text of a .spec file into an *ast.Document.
// file is used only for diagnostics and may be empty.
func Parse(file, content string) (*ast.Document, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")

	p := &parser{
		file:         file,
		lines:        lines,
		doc:          ast.NewDocument(),
		snippetLines: make(map[string]int),
	}

	if err := p.run(); err != nil {
		return nil, err
	}
	if err := validateSnippetsAcyclic(p.doc); err != nil {
		return nil, err
	}
	return p.doc, nil
}

// section accumulates statements for the test case or snippet currently
// being built.
type section struct {
	isSnippet bool
	name      string
	sourceLn  int
	stmts     []ast.Statement
}

func (p *parser) run() error {
	var cur *section
	flush := func() {
		if cur == nil {
			return
		}
		if cur.isSnippet {
			p.doc.Snippets[cur.name] = ast.Snippet{Name: cur.name, Statements: cur.stmts, SourceLine: cur.sourceLn}
		} else {
			p.doc.Tests = append(p.doc.Tests, ast.TestCase{Name: cur.name, Statements: cur.stmts, SourceLine: cur.sourceLn})
		}
	}

	i := 0
	for i < len(p.lines) {
		lineNo := i + 1
		raw := p.lines[i]
		prefix, rest, blank := lexer.ClassifyLine(raw)
		if blank {
			i++
			continue
		}

		switch prefix {
		case lexer.PrefixTestHeader:
			flush()
			cur = &section{isSnippet: false, name: strings.TrimSpace(rest), sourceLn: lineNo}
			i++
			continue
		case lexer.PrefixSnippetHeader:
			name := strings.TrimSpace(rest)
			if prev, ok := p.snippetLines[name]; ok {
				return p.errAt(lineNo, 1, raw, fmt.Sprintf("duplicate snippet %q (first declared at line %d)", name, prev))
			}
			p.snippetLines[name] = lineNo
			flush()
			cur = &section{isSnippet: true, name: name, sourceLn: lineNo}
			i++
			continue
		case lexer.PrefixContentBlock:
			return p.errAt(lineNo, 1, raw, "dangling content block: no preceding statement to attach to")
		case lexer.PrefixUnknown:
			return p.errAt(lineNo, firstNonBlankCol(raw), raw, "unrecognized line prefix")
		}

		if cur == nil {
			return p.errAt(lineNo, 1, raw, "statement appears before any '>' test case or '>@' snippet header")
		}

		stmt, next, err := p.parseStatement(prefix, rest, lineNo, raw)
		if err != nil {
			return err
		}
		cur.stmts = append(cur.stmts, stmt)
		i = next
	}
	flush()

	return p.attachInteractiveScripts()
}

// parseStatement parses one logical statement starting at line i
// (1-based lineNo, 0-based index i-1 in p.lines), consuming any
// following `..` content-block lines. It returns the statement and the
// 0-based index of the next unconsumed line.
func (p *parser) parseStatement(prefix lexer.Prefix, rest string, lineNo int, raw string) (ast.Statement, int, error) {
	stmt := ast.Statement{SourceLine: lineNo}

	switch prefix {
	case lexer.PrefixRunPos, lexer.PrefixRunNeg:
		stmt.Kind = ast.Shell
		stmt.ShellKind = ast.Run
		stmt.Polarity = polarityOf(prefix)
	case lexer.PrefixExpect:
		stmt.Kind = ast.Shell
		stmt.ShellKind = ast.Expect
	case lexer.PrefixSend:
		stmt.Kind = ast.Shell
		stmt.ShellKind = ast.Send
	case lexer.PrefixAssertPos, lexer.PrefixAssertNeg:
		stmt.Kind = ast.Assertion
		stmt.Polarity = polarityOf(prefix)
	case lexer.PrefixAction:
		stmt.Kind = ast.Action
	default:
		return stmt, 0, p.errAt(lineNo, 1, raw, fmt.Sprintf("unexpected prefix %q in statement position", prefix))
	}

	baseCol := len(raw) - len(strings.TrimLeft(raw, " \t")) + len(prefix) + 1
	toks, err := lexer.Tokenize(rest, baseCol)
	if err != nil {
		return stmt, 0, p.errAt(lineNo, baseCol, raw, err.Error())
	}
	args := make([]ast.Argument, 0, len(toks))
	for _, t := range toks {
		if t.Kind == lexer.TokVarRef {
			args = append(args, ast.Ref(t.Text))
		} else {
			args = append(args, ast.Lit(t.Text))
		}
	}

	switch stmt.Kind {
	case ast.Assertion, ast.Action:
		if len(args) > 0 {
			stmt.Target = args[0].Text
			args = args[1:]
		}
	}
	stmt.Args = args

	// Consume a following run of `..` lines as this statement's content
	// block, if its kind/target admits one.
	nextIdx := lineNo // 0-based index of the line after raw
	if nextIdx < len(p.lines) {
		if np, _, nblank := lexer.ClassifyLine(p.lines[nextIdx]); !nblank && np == lexer.PrefixContentBlock {
			if !admitsContentBlock(stmt) {
				return stmt, 0, p.errAt(nextIdx+1, 1, p.lines[nextIdx], "dangling content block: statement does not accept one")
			}
		}
	}
	var block []string
	for nextIdx < len(p.lines) {
		np, nrest, nblank := lexer.ClassifyLine(p.lines[nextIdx])
		if nblank || np != lexer.PrefixContentBlock {
			break
		}
		block = append(block, strings.TrimPrefix(nrest, " "))
		nextIdx++
	}
	if len(block) > 0 {
		stmt.ContentBlock = block
		stmt.HasBlock = true
	}

	return stmt, nextIdx, nil
}

// admitsContentBlock reports whether a statement's kind/target can carry
// an attached `..` block: the Action `file`, and the Assertion targets
// stdout/stderr/file when given no inline text argument.
func admitsContentBlock(s ast.Statement) bool {
	switch s.Kind {
	case ast.Action:
		return s.Target == "file"
	case ast.Assertion:
		switch s.Target {
		case "stdout", "stderr":
			return len(s.Args) == 0
		case "file":
			return len(s.Args) <= 1
		}
	}
	return false
}

func polarityOf(p lexer.Prefix) ast.Polarity {
	switch p {
	case lexer.PrefixRunNeg, lexer.PrefixAssertNeg:
		return ast.Negative
	default:
		return ast.Positive
	}
}

func firstNonBlankCol(raw string) int {
	trimmed := strings.TrimLeft(raw, " \t")
	return len(raw) - len(trimmed) + 1
}

func (p *parser) errAt(line, col int, context, msg string) error {
	return &ParseError{File: p.file, Line: line, Column: col, Message: msg, Context: context}
}

// attachInteractiveScripts walks every test case and snippet, attaching
// each contiguous run of Expect/Send statements to the Shell/Run
// statement immediately preceding it, and rejects Expect/Send statements
// that are not immediately preceded (ignoring nothing; blank/comment
// lines are already invisible to the statement stream) by a Run or
// another interaction step belonging to the same Run.
func (p *parser) attachInteractiveScripts() error {
	group := func(stmts []ast.Statement) ([]ast.Statement, error) {
		out := make([]ast.Statement, 0, len(stmts))
		i := 0
		for i < len(stmts) {
			s := stmts[i]
			if s.Kind == ast.Shell && (s.ShellKind == ast.Expect || s.ShellKind == ast.Send) {
				return nil, p.errAt(s.SourceLine, 1, "", "interactive step ($< or $>) is not contiguous with a preceding $. or $! statement")
			}
			if s.Kind == ast.Shell && s.ShellKind == ast.Run {
				j := i + 1
				var script []ast.Statement
				for j < len(stmts) && stmts[j].Kind == ast.Shell &&
					(stmts[j].ShellKind == ast.Expect || stmts[j].ShellKind == ast.Send) {
					script = append(script, stmts[j])
					j++
				}
				s.Script = script
				out = append(out, s)
				i = j
				continue
			}
			out = append(out, s)
			i++
		}
		return out, nil
	}

	for idx, tc := range p.doc.Tests {
		grouped, err := group(tc.Statements)
		if err != nil {
			return err
		}
		p.doc.Tests[idx].Statements = grouped
	}
	for name, sn := range p.doc.Snippets {
		grouped, err := group(sn.Statements)
		if err != nil {
			return err
		}
		sn.Statements = grouped
		p.doc.Snippets[name] = sn
	}
	return nil
}

// validateSnippetsAcyclic detects snippet invocation cycles statically:
// a `:. @ name` Action statement anywhere in a snippet's body that
// (transitively) invokes the snippet itself is a parse error.
func validateSnippetsAcyclic(doc *ast.Document) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(doc.Snippets))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return fmt.Errorf("snippet cycle detected: %s -> %s", strings.Join(path, " -> "), name)
		}
		sn, ok := doc.Snippets[name]
		if !ok {
			return nil // missing snippet is an execution error, not a parse error
		}
		color[name] = gray
		for _, invoked := range snippetInvocations(sn.Statements) {
			if err := visit(invoked, append(path, name)); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}

	for name := range doc.Snippets {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}

func snippetInvocations(stmts []ast.Statement) []string {
	var names []string
	for _, s := range stmts {
		if s.Kind == ast.Action && s.Target == "@" && len(s.Args) == 1 {
			names = append(names, s.Args[0].Text)
		}
	}
	return names
}
