// Package action evaluates `:.` statements: capturing
// stdout/stderr into variables, writing
// files from an attached content block, and resolving snippet
// invocations. Snippet expansion itself is driven by the runner, which
// owns the statement-execution loop; this package only identifies a
// `:. @ name` statement and leaves the loop to the caller.
package action

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aledsdavies/shellspec/pkgs/ast"
	"github.com/aledsdavies/shellspec/runtime/driver"
	"github.com/aledsdavies/shellspec/runtime/store"
)

// Context mirrors assert.Context: the information an Action needs to
// act on the filesystem, the variable store, and the last Process
// Result.
type Context struct {
	WorkDir string
	Vars    *store.Store
	Last    *driver.Result
}

// SnippetInvocation is returned by Eval when stmt is a `:. @ name`
// statement; the runner is responsible for expanding it.
type SnippetInvocation struct {
	Name string
}

// Eval performs the action described by stmt, or returns a
// SnippetInvocation for the caller to expand.
func Eval(ctx Context, stmt ast.Statement) (*SnippetInvocation, error) {
	switch stmt.Target {
	case "stdout":
		return nil, captureStream(ctx, stmt, func(r driver.Result) string { return r.Stdout })
	case "stderr":
		return nil, captureStream(ctx, stmt, func(r driver.Result) string { return r.Stderr })
	case "file":
		return nil, writeFile(ctx, stmt)
	case "@":
		if len(stmt.Args) != 1 {
			return nil, fmt.Errorf(":. @ requires exactly one snippet name")
		}
		return &SnippetInvocation{Name: stmt.Args[0].Text}, nil
	default:
		return nil, fmt.Errorf("unknown action target %q", stmt.Target)
	}
}

func captureStream(ctx Context, stmt ast.Statement, pick func(driver.Result) string) error {
	if ctx.Last == nil {
		return fmt.Errorf(":. %s references a Process Result before any Shell statement executed", stmt.Target)
	}
	if len(stmt.Args) != 1 || stmt.Args[0].Kind != ast.VarRef {
		return fmt.Errorf(":. %s requires exactly one @variable argument", stmt.Target)
	}
	ctx.Vars.Set(stmt.Args[0].Text, pick(*ctx.Last))
	return nil
}

// writeFile implements `:. file "path" [mode]`, writing the attached
// content block (joined with newlines, trailing newline appended; empty
// for a zero-line block) to path relative to the working directory.
func writeFile(ctx Context, stmt ast.Statement) error {
	if len(stmt.Args) < 1 {
		return fmt.Errorf(":. file requires a path argument")
	}
	path, err := ctx.Vars.Expand(stmt.Args[0])
	if err != nil {
		return err
	}
	fullPath := path
	if !filepath.IsAbs(fullPath) {
		fullPath = filepath.Join(ctx.WorkDir, fullPath)
	}

	var mode os.FileMode = 0o644
	if len(stmt.Args) >= 2 {
		modeStr, err := ctx.Vars.Expand(stmt.Args[1])
		if err != nil {
			return err
		}
		parsed, err := strconv.ParseUint(modeStr, 8, 32)
		if err != nil {
			return fmt.Errorf(":. file mode %q is not a valid octal permission literal: %w", modeStr, err)
		}
		mode = os.FileMode(parsed)
	}

	content := ""
	if len(stmt.ContentBlock) > 0 {
		content = strings.Join(stmt.ContentBlock, "\n") + "\n"
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("creating parent directories for %s: %w", path, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), mode); err != nil {
		return fmt.Errorf("writing file %s: %w", path, err)
	}
	if len(stmt.Args) >= 2 {
		// os.WriteFile only applies mode on creation; force it in case
		// the file already existed with different permissions.
		if err := os.Chmod(fullPath, mode); err != nil {
			return fmt.Errorf("setting permissions on %s: %w", path, err)
		}
	}
	return nil
}
