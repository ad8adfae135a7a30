// Package assert interprets `?.`/`?!` statements against the most
// recent process result, the filesystem, or the variable store.
//
// Targets are dispatched through a small registry keyed by target
// name, so adding a predicate is one map entry plus its function.
package assert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aledsdavies/shellspec/pkgs/ast"
	"github.com/aledsdavies/shellspec/runtime/driver"
	"github.com/aledsdavies/shellspec/runtime/store"
)

// Context is everything an assertion predicate needs: the working
// directory, the variable store, and the last Process Result (nil if no
// Shell statement has executed yet in this test case).
type Context struct {
	WorkDir string
	Vars    *store.Store
	Last    *driver.Result
}

// Predicate evaluates one assertion's boolean outcome, before polarity
// inversion.
type Predicate func(ctx Context, stmt ast.Statement) (bool, string, error)

var registry = map[string]Predicate{
	"stdout":     streamPredicate(func(r driver.Result) string { return r.Stdout }),
	"stderr":     streamPredicate(func(r driver.Result) string { return r.Stderr }),
	"file":       filePredicate,
	"==":         equalsPredicate,
	"!=":         notEqualsPredicate,
	"startswith": startsWithPredicate,
	"endswith":   endsWithPredicate,
	"contains":   containsPredicate,
}

// Eval evaluates stmt and returns whether the overall (post-polarity)
// assertion passed, along with a human-readable diagnostic when it did
// not.
func Eval(ctx Context, stmt ast.Statement) (ok bool, diagnostic string, err error) {
	pred, known := registry[stmt.Target]
	if !known {
		return false, "", fmt.Errorf("unknown assertion target %q", stmt.Target)
	}
	result, diag, err := pred(ctx, stmt)
	if err != nil {
		return false, "", err
	}
	if stmt.Polarity == ast.Negative {
		result = !result
	}
	return result, diag, nil
}

func streamPredicate(pick func(driver.Result) string) Predicate {
	return func(ctx Context, stmt ast.Statement) (bool, string, error) {
		if ctx.Last == nil {
			return false, "", fmt.Errorf("%s assertion references a Process Result before any Shell statement executed", stmt.Target)
		}
		stream := pick(*ctx.Last)

		switch {
		case len(stmt.Args) == 1 && !stmt.HasBlock:
			text, err := ctx.Vars.Expand(stmt.Args[0])
			if err != nil {
				return false, "", err
			}
			return strings.Contains(stream, text), fmt.Sprintf("%s did not contain %q\n--- %s ---\n%s", stmt.Target, text, stmt.Target, stream), nil
		case len(stmt.Args) == 0 && stmt.HasBlock:
			want := joinBlock(stmt.ContentBlock)
			got := strings.TrimRight(stream, "\n")
			want = strings.TrimRight(want, "\n")
			return got == want, fmt.Sprintf("%s did not match expected block\n--- got ---\n%s\n--- want ---\n%s", stmt.Target, got, want), nil
		default:
			return false, "", fmt.Errorf("%s assertion needs either one literal argument or an attached content block, not both/neither", stmt.Target)
		}
	}
}

func filePredicate(ctx Context, stmt ast.Statement) (bool, string, error) {
	if len(stmt.Args) == 0 {
		return false, "", fmt.Errorf("file assertion requires a path argument")
	}
	path, err := ctx.Vars.Expand(stmt.Args[0])
	if err != nil {
		return false, "", err
	}
	fullPath := resolvePath(ctx.WorkDir, path)

	switch {
	case len(stmt.Args) == 1 && !stmt.HasBlock:
		_, statErr := os.Stat(fullPath)
		exists := statErr == nil
		return exists, fmt.Sprintf("file %q does not exist", path), nil

	case len(stmt.Args) == 2 && !stmt.HasBlock:
		want, err := ctx.Vars.Expand(stmt.Args[1])
		if err != nil {
			return false, "", err
		}
		data, readErr := os.ReadFile(fullPath)
		if readErr != nil {
			return false, fmt.Sprintf("file %q does not exist or is unreadable: %v", path, readErr), nil
		}
		return strings.Contains(string(data), want), fmt.Sprintf("file %q did not contain %q", path, want), nil

	case len(stmt.Args) == 1 && stmt.HasBlock:
		want := strings.TrimRight(joinBlock(stmt.ContentBlock), "\n")
		data, readErr := os.ReadFile(fullPath)
		if readErr != nil {
			return false, fmt.Sprintf("file %q does not exist or is unreadable: %v", path, readErr), nil
		}
		got := strings.TrimRight(string(data), "\n")
		return got == want, fmt.Sprintf("file %q did not match expected block\n--- got ---\n%s\n--- want ---\n%s", path, got, want), nil

	default:
		return false, "", fmt.Errorf("unrecognized file assertion form")
	}
}

func equalsPredicate(ctx Context, stmt ast.Statement) (bool, string, error) {
	a, b, err := twoOperands(ctx, stmt)
	if err != nil {
		return false, "", err
	}
	return a == b, fmt.Sprintf("%q != %q", a, b), nil
}

func notEqualsPredicate(ctx Context, stmt ast.Statement) (bool, string, error) {
	a, b, err := twoOperands(ctx, stmt)
	if err != nil {
		return false, "", err
	}
	return a != b, fmt.Sprintf("%q == %q", a, b), nil
}

func startsWithPredicate(ctx Context, stmt ast.Statement) (bool, string, error) {
	a, b, err := twoOperands(ctx, stmt)
	if err != nil {
		return false, "", err
	}
	return strings.HasPrefix(a, b), fmt.Sprintf("%q does not start with %q", a, b), nil
}

func endsWithPredicate(ctx Context, stmt ast.Statement) (bool, string, error) {
	a, b, err := twoOperands(ctx, stmt)
	if err != nil {
		return false, "", err
	}
	return strings.HasSuffix(a, b), fmt.Sprintf("%q does not end with %q", a, b), nil
}

func containsPredicate(ctx Context, stmt ast.Statement) (bool, string, error) {
	a, b, err := twoOperands(ctx, stmt)
	if err != nil {
		return false, "", err
	}
	return strings.Contains(a, b), fmt.Sprintf("%q does not contain %q", a, b), nil
}

func twoOperands(ctx Context, stmt ast.Statement) (string, string, error) {
	if len(stmt.Args) != 2 {
		return "", "", fmt.Errorf("%s requires exactly two operands", stmt.Target)
	}
	a, err := ctx.Vars.Expand(stmt.Args[0])
	if err != nil {
		return "", "", err
	}
	b, err := ctx.Vars.Expand(stmt.Args[1])
	if err != nil {
		return "", "", err
	}
	return a, b, nil
}

func joinBlock(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func resolvePath(workdir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workdir, path)
}
