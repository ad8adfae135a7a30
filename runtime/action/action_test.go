package action

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/shellspec/pkgs/ast"
	"github.com/aledsdavies/shellspec/runtime/driver"
	"github.com/aledsdavies/shellspec/runtime/store"
)

func TestCaptureStdoutIntoVariable(t *testing.T) {
	vars := store.New()
	last := driver.Result{Stdout: "captured output\n"}
	ctx := Context{WorkDir: t.TempDir(), Vars: vars, Last: &last}
	stmt := ast.Statement{Kind: ast.Action, Target: "stdout", Args: []ast.Argument{ast.Ref("out")}}

	invocation, err := Eval(ctx, stmt)
	require.NoError(t, err)
	assert.Nil(t, invocation)

	v, ok := vars.Get("out")
	require.True(t, ok)
	assert.Equal(t, "captured output\n", v)
}

func TestCaptureStderrWithoutPriorShellErrors(t *testing.T) {
	ctx := Context{WorkDir: t.TempDir(), Vars: store.New(), Last: nil}
	stmt := ast.Statement{Kind: ast.Action, Target: "stderr", Args: []ast.Argument{ast.Ref("err")}}
	_, err := Eval(ctx, stmt)
	assert.Error(t, err)
}

func TestWriteFileFromContentBlock(t *testing.T) {
	dir := t.TempDir()
	ctx := Context{WorkDir: dir, Vars: store.New()}
	stmt := ast.Statement{
		Kind: ast.Action, Target: "file",
		Args:         []ast.Argument{ast.Lit("out.txt")},
		ContentBlock: []string{"line one", "line two"},
		HasBlock:     true,
	}
	_, err := Eval(ctx, stmt)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", string(data))
}

func TestWriteFileEmptyBlockCreatesEmptyFile(t *testing.T) {
	dir := t.TempDir()
	ctx := Context{WorkDir: dir, Vars: store.New()}
	stmt := ast.Statement{Kind: ast.Action, Target: "file", Args: []ast.Argument{ast.Lit("empty.txt")}}
	_, err := Eval(ctx, stmt)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "empty.txt"))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestWriteFileWithMode(t *testing.T) {
	dir := t.TempDir()
	ctx := Context{WorkDir: dir, Vars: store.New()}
	stmt := ast.Statement{
		Kind: ast.Action, Target: "file",
		Args: []ast.Argument{ast.Lit("script.sh"), ast.Lit("755")},
	}
	_, err := Eval(ctx, stmt)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "script.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestWriteFileCreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	ctx := Context{WorkDir: dir, Vars: store.New()}
	stmt := ast.Statement{Kind: ast.Action, Target: "file", Args: []ast.Argument{ast.Lit("nested/dir/out.txt")}}
	_, err := Eval(ctx, stmt)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "nested", "dir", "out.txt"))
	require.NoError(t, err)
}

func TestSnippetInvocationReturnedNotExecuted(t *testing.T) {
	ctx := Context{WorkDir: t.TempDir(), Vars: store.New()}
	stmt := ast.Statement{Kind: ast.Action, Target: "@", Args: []ast.Argument{ast.Lit("setup")}}
	invocation, err := Eval(ctx, stmt)
	require.NoError(t, err)
	require.NotNil(t, invocation)
	assert.Equal(t, "setup", invocation.Name)
}

func TestUnknownActionTarget(t *testing.T) {
	ctx := Context{WorkDir: t.TempDir(), Vars: store.New()}
	stmt := ast.Statement{Kind: ast.Action, Target: "nope"}
	_, err := Eval(ctx, stmt)
	assert.Error(t, err)
}
