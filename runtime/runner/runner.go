// Package runner executes a parsed document's test cases: per-test
// working-directory isolation, statement-by-statement execution with
// inline snippet expansion, and pass/fail accumulation.
package runner

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/oklog/ulid/v2"

	"github.com/aledsdavies/shellspec/pkgs/ast"
	"github.com/aledsdavies/shellspec/runtime/action"
	"github.com/aledsdavies/shellspec/runtime/assert"
	"github.com/aledsdavies/shellspec/runtime/driver"
	"github.com/aledsdavies/shellspec/runtime/store"
)

// TestFailure records an assertion, polarity, or timeout failure: the
// remainder of the test case is skipped, but the run continues.
type TestFailure struct {
	Line   int
	Detail string
}

func (e *TestFailure) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Detail) }

// ExecError records an undefined variable, missing snippet, or I/O
// failure. Handled identically to TestFailure by the runner, but kept
// as a distinct type so callers can tell the two apart if they want to.
type ExecError struct {
	Line   int
	Detail string
}

func (e *ExecError) Error() string { return fmt.Sprintf("line %d: %s", e.Line, e.Detail) }

// TestResult is the outcome of one test case.
type TestResult struct {
	Index      int
	Name       string
	Passed     bool
	Diagnostic string
}

// Report collects the outcomes of a run.
type Report struct {
	Results []TestResult
}

// AllPassed reports whether every test in the report passed.
func (r *Report) AllPassed() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// Runner ties a parsed Document to a Driver and executes its test
// cases.
type Runner struct {
	Doc     *ast.Document
	Driver  *driver.Driver
	Logger  *slog.Logger
	Verbose bool
}

func New(doc *ast.Document, d *driver.Driver, logger *slog.Logger, verbose bool) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Doc: doc, Driver: d, Logger: logger, Verbose: verbose}
}

// Run executes every test case matched by sel, in source order.
func (r *Runner) Run(sel Selector) (*Report, error) {
	report := &Report{}
	for i, tc := range r.Doc.Tests {
		idx := i + 1
		if !sel.Matches(idx, tc.Name) {
			continue
		}
		report.Results = append(report.Results, r.runTestCase(idx, tc))
	}
	return report, nil
}

func (r *Runner) runTestCase(idx int, tc ast.TestCase) TestResult {
	workdir, err := provisionWorkDir()
	if err != nil {
		return TestResult{Index: idx, Name: tc.Name, Passed: false, Diagnostic: fmt.Sprintf("provisioning working directory: %v", err)}
	}
	defer os.RemoveAll(workdir)

	r.Logger.Debug("test case starting", "name", tc.Name, "workdir", workdir)

	vars := store.New()
	var last *driver.Result

	err = r.execStatements(tc.Statements, workdir, vars, &last, map[string]bool{})
	if err != nil {
		r.Logger.Debug("test case failed", "name", tc.Name, "error", err)
		return TestResult{Index: idx, Name: tc.Name, Passed: false, Diagnostic: err.Error()}
	}
	return TestResult{Index: idx, Name: tc.Name, Passed: true}
}

// execStatements runs stmts in order against the given working
// directory, variable store, and "last Process Result" slot, expanding
// snippet invocations inline. active tracks snippet names currently
// being expanded, to fail fast on re-entry.
func (r *Runner) execStatements(stmts []ast.Statement, workdir string, vars *store.Store, last **driver.Result, active map[string]bool) error {
	for _, stmt := range stmts {
		if err := r.execStatement(stmt, workdir, vars, last, active); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) execStatement(stmt ast.Statement, workdir string, vars *store.Store, last **driver.Result, active map[string]bool) error {
	switch stmt.Kind {
	case ast.Shell:
		return r.execShell(stmt, workdir, vars, last)
	case ast.Assertion:
		ok, diag, err := assert.Eval(assert.Context{WorkDir: workdir, Vars: vars, Last: *last}, stmt)
		if err != nil {
			return &ExecError{Line: stmt.SourceLine, Detail: err.Error()}
		}
		if !ok {
			return &TestFailure{Line: stmt.SourceLine, Detail: diag}
		}
		return nil
	case ast.Action:
		return r.execAction(stmt, workdir, vars, last, active)
	default:
		return &ExecError{Line: stmt.SourceLine, Detail: fmt.Sprintf("statement kind %s cannot be executed directly", stmt.Kind)}
	}
}

func (r *Runner) execShell(stmt ast.Statement, workdir string, vars *store.Store, last **driver.Result) error {
	argv, err := vars.ExpandAll(stmt.Args)
	if err != nil {
		return &ExecError{Line: stmt.SourceLine, Detail: err.Error()}
	}

	script := make([]driver.Step, 0, len(stmt.Script))
	for _, s := range stmt.Script {
		text, err := vars.ExpandAll(s.Args)
		if err != nil {
			return &ExecError{Line: s.SourceLine, Detail: err.Error()}
		}
		joined := ""
		if len(text) > 0 {
			joined = text[0]
		}
		kind := driver.StepExpect
		if s.ShellKind == ast.Send {
			kind = driver.StepSend
		}
		script = append(script, driver.Step{Kind: kind, Text: joined})
	}

	result, runErr := r.Driver.Run(workdir, argv, script)
	*last = &result

	var timeoutErr *driver.TimeoutError
	if errors.As(runErr, &timeoutErr) {
		return &TestFailure{Line: stmt.SourceLine, Detail: fmt.Sprintf("%v\n--- transcript/output so far ---\n%s", timeoutErr, transcriptOrStreams(result))}
	}
	if runErr != nil {
		return &ExecError{Line: stmt.SourceLine, Detail: runErr.Error()}
	}

	if r.Verbose {
		r.Logger.Info("shell result", "line", stmt.SourceLine, "argv", driver.QuoteForDiagnostic(argv), "exit", result.ExitStatus, "mode", modeName(result.Mode))
	}

	wantZero := stmt.Polarity == ast.Positive
	gotZero := result.ExitStatus == 0
	if wantZero != gotZero {
		return &TestFailure{
			Line: stmt.SourceLine,
			Detail: fmt.Sprintf("expected exit status %s, got %d\n--- stdout ---\n%s\n--- stderr ---\n%s",
				polarityWant(stmt.Polarity), result.ExitStatus, result.Stdout, result.Stderr),
		}
	}
	return nil
}

func (r *Runner) execAction(stmt ast.Statement, workdir string, vars *store.Store, last **driver.Result, active map[string]bool) error {
	invocation, err := action.Eval(action.Context{WorkDir: workdir, Vars: vars, Last: *last}, stmt)
	if err != nil {
		return &ExecError{Line: stmt.SourceLine, Detail: err.Error()}
	}
	if invocation == nil {
		return nil
	}

	sn, ok := r.Doc.Snippets[invocation.Name]
	if !ok {
		return &ExecError{Line: stmt.SourceLine, Detail: fmt.Sprintf("snippet %q not found", invocation.Name)}
	}
	if active[invocation.Name] {
		return &ExecError{Line: stmt.SourceLine, Detail: fmt.Sprintf("snippet %q invoked recursively", invocation.Name)}
	}

	active[invocation.Name] = true
	err = r.execStatements(sn.Statements, workdir, vars, last, active)
	delete(active, invocation.Name)
	return err
}

func provisionWorkDir() (string, error) {
	dir := filepath.Join(os.TempDir(), "shellspec-"+ulid.Make().String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func polarityWant(p ast.Polarity) string {
	if p == ast.Positive {
		return "0"
	}
	return "non-zero"
}

func modeName(m driver.Mode) string {
	if m == driver.Interactive {
		return "interactive"
	}
	return "batch"
}

func transcriptOrStreams(r driver.Result) string {
	if r.Mode == driver.Interactive {
		return r.Transcript
	}
	return fmt.Sprintf("stdout:\n%s\nstderr:\n%s", r.Stdout, r.Stderr)
}
