// Package driver runs one Shell statement at a time, either in Batch
// mode (os/exec, separate stdout/stderr capture) or Interactive mode
// (a pty-backed expect/send script), subject to configured timeouts.
package driver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sync/errgroup"
)

// Mode distinguishes how a Shell statement was executed.
type Mode int

const (
	Batch Mode = iota
	Interactive
)

// Result is the outcome of one Shell statement.
type Result struct {
	ExitStatus int
	Stdout     string
	Stderr     string
	Mode       Mode
	Transcript string // interactive only
}

// Step is one interaction step of an interactive script.
type StepKind int

const (
	StepExpect StepKind = iota
	StepSend
)

type Step struct {
	Kind StepKind
	Text string
}

// Driver executes Shell statements. It carries no per-test state of its
// own beyond the alias table and timeouts; the caller supplies the
// working directory per call.
type Driver struct {
	Aliases       map[string]string
	ShellTimeout  time.Duration
	ExpectTimeout time.Duration
}

func New(aliases map[string]string, shellTimeout, expectTimeout time.Duration) *Driver {
	if aliases == nil {
		aliases = map[string]string{}
	}
	return &Driver{Aliases: aliases, ShellTimeout: shellTimeout, ExpectTimeout: expectTimeout}
}

// TimeoutError marks a Run statement that exceeded its wall-clock or
// per-step budget; the partial Result is still populated.
type TimeoutError struct {
	Step    string // "batch command to exit", "expect \"text\"", or "child process to exit"
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s", e.Timeout, e.Step)
}

// resolveArgv replaces argv[0] with its alias table entry, if any.
func (d *Driver) resolveArgv(argv []string) []string {
	if len(argv) == 0 {
		return argv
	}
	if resolved, ok := d.Aliases[argv[0]]; ok {
		out := make([]string, len(argv))
		copy(out, argv)
		out[0] = resolved
		return out
	}
	return argv
}

// Run executes argv in workdir, dispatching to Batch or Interactive mode
// depending on whether script is empty.
func (d *Driver) Run(workdir string, argv []string, script []Step) (Result, error) {
	argv = d.resolveArgv(argv)
	if len(script) == 0 {
		return d.runBatch(workdir, argv)
	}
	return d.runInteractive(workdir, argv, script)
}

// runBatch spawns the process with stdout/stderr captured to separate
// buffers, stdin closed, subject to ShellTimeout. The two stream pumps
// run on background goroutines (to avoid pipe-buffer deadlock on a
// command that writes heavily to both streams) joined via errgroup
// before the wait completes; their effect is synchronous to the caller.
func (d *Driver) runBatch(workdir string, argv []string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, errors.New("empty command")
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.ShellTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = workdir
	cmd.Env = os.Environ()
	cmd.Stdin = nil

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("opening stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("opening stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("starting %s: %w", argv[0], err)
	}

	var stdout, stderr bytes.Buffer
	g, _ := errgroup.WithContext(context.Background())
	g.Go(func() error {
		_, err := stdout.ReadFrom(stdoutPipe)
		return err
	})
	g.Go(func() error {
		_, err := stderr.ReadFrom(stderrPipe)
		return err
	})
	pumpErr := g.Wait()

	waitErr := cmd.Wait()

	result := Result{Mode: Batch, Stdout: stdout.String(), Stderr: stderr.String()}

	if ctx.Err() == context.DeadlineExceeded {
		return result, &TimeoutError{Step: "batch command to exit", Timeout: d.ShellTimeout}
	}
	if pumpErr != nil {
		return result, fmt.Errorf("reading command output: %w", pumpErr)
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		result.ExitStatus = 0
	case errors.As(waitErr, &exitErr):
		result.ExitStatus = exitErr.ExitCode()
	default:
		return result, fmt.Errorf("running %s: %w", argv[0], waitErr)
	}

	return result, nil
}

// runInteractive spawns argv attached to a pseudo-terminal so the child
// never switches to block-buffered output, then drives the expect/send
// script against a growing transcript buffer.
func (d *Driver) runInteractive(workdir string, argv []string, script []Step) (Result, error) {
	if len(argv) == 0 {
		return Result{}, errors.New("empty command")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = workdir
	cmd.Env = os.Environ()

	ptyFile, err := pty.Start(cmd)
	if err != nil {
		return Result{}, fmt.Errorf("starting %s under pty: %w", argv[0], err)
	}
	defer ptyFile.Close()

	tr := newTranscript(ptyFile)
	go tr.pump()

	result := Result{Mode: Interactive}

	for _, step := range script {
		switch step.Kind {
		case StepExpect:
			if !tr.awaitSubstring(step.Text, d.ExpectTimeout) {
				result.Transcript = tr.String()
				result.Stdout = result.Transcript
				_ = cmd.Process.Kill()
				go func() { _ = cmd.Wait() }() // reap
				return result, &TimeoutError{Step: fmt.Sprintf("expect %q", step.Text), Timeout: d.ExpectTimeout}
			}
		case StepSend:
			if _, err := ptyFile.Write([]byte(step.Text + "\n")); err != nil {
				result.Transcript = tr.String()
				result.Stdout = result.Transcript
				return result, fmt.Errorf("writing to child: %w", err)
			}
		}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case waitErr := <-done:
		result.Transcript = tr.String()
		result.Stdout = result.Transcript
		var exitErr *exec.ExitError
		switch {
		case waitErr == nil:
			result.ExitStatus = 0
		case errors.As(waitErr, &exitErr):
			result.ExitStatus = exitErr.ExitCode()
		default:
			return result, fmt.Errorf("running %s: %w", argv[0], waitErr)
		}
		return result, nil
	case <-time.After(d.ShellTimeout):
		_ = cmd.Process.Kill()
		<-done // reap
		result.Transcript = tr.String()
		result.Stdout = result.Transcript
		return result, &TimeoutError{Step: "child process to exit", Timeout: d.ShellTimeout}
	}
}

// QuoteForDiagnostic renders argv the way a shell would echo it, for use
// in failure diagnostics only (the driver itself never invokes a shell).
func QuoteForDiagnostic(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		if strings.ContainsAny(a, " \t\"'") {
			quoted[i] = fmt.Sprintf("%q", a)
		} else {
			quoted[i] = a
		}
	}
	return strings.Join(quoted, " ")
}
