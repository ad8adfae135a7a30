// Command shellspec runs a .spec file's test cases against the shell,
// reporting pass/fail per case.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/shellspec/internal/config"
	"github.com/aledsdavies/shellspec/pkgs/parser"
	"github.com/aledsdavies/shellspec/runtime/driver"
	"github.com/aledsdavies/shellspec/runtime/runner"
)

// Exit codes: 0 all tests passed, 1 at least one test failed, 2 usage
// or parse error.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

var (
	flagTest    string
	flagVerbose bool
	flagConfig  string
)

func main() {
	os.Exit(run())
}

func run() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitCode == exitOK {
			exitCode = exitUsage
		}
		return exitCode
	}
	return exitCode
}

// exitCode is set by runSpec on each path it returns from; an error that
// reaches Execute's error path above with exitCode still exitOK (such as
// a cobra argument or flag error) maps to exitUsage.
var exitCode = exitOK

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "shellspec <file>",
		Short:         "Run declarative shell test specs",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSpec(args[0])
		},
	}
	cmd.Flags().StringVar(&flagTest, "test", "", "run only the test matching this 1-based index or name")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "log each shell statement's result")
	cmd.Flags().StringVar(&flagConfig, "config", "", "path to a JSON configuration file")
	return cmd
}

func runSpec(path string) error {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(flagConfig)
	if err != nil {
		exitCode = exitUsage
		return err
	}
	if flagVerbose {
		cfg.Verbose = true
	}

	content, err := os.ReadFile(path)
	if err != nil {
		exitCode = exitUsage
		return fmt.Errorf("reading %s: %w", path, err)
	}

	doc, err := parser.Parse(path, string(content))
	if err != nil {
		exitCode = exitUsage
		fmt.Fprintln(os.Stderr, err)
		return nil
	}

	sel, err := parseSelector(flagTest)
	if err != nil {
		exitCode = exitUsage
		return err
	}

	drv := driver.New(cfg.AliasTable, cfg.ShellTimeout(), cfg.ExpectTimeout())
	r := runner.New(doc, drv, logger, cfg.Verbose)

	report, err := r.Run(sel)
	if err != nil {
		exitCode = exitUsage
		return err
	}

	for _, res := range report.Results {
		if res.Passed {
			fmt.Printf("PASS [%d] %s\n", res.Index, res.Name)
			continue
		}
		fmt.Printf("FAIL [%d] %s\n%s\n", res.Index, res.Name, res.Diagnostic)
	}

	if len(report.Results) == 0 {
		exitCode = exitUsage
		return fmt.Errorf("no test case matched selector %q", flagTest)
	}
	if !report.AllPassed() {
		exitCode = exitFailed
		return nil
	}
	exitCode = exitOK
	return nil
}

// parseSelector interprets --test as a 1-based index when it parses as
// a positive integer, rejects an integer that is zero or negative, and
// treats any other value as a name/substring selector.
func parseSelector(raw string) (runner.Selector, error) {
	if raw == "" {
		return runner.All, nil
	}
	if idx, err := strconv.Atoi(raw); err == nil {
		if idx <= 0 {
			return runner.Selector{}, fmt.Errorf("invalid --test selector %q: index must be positive", raw)
		}
		return runner.Selector{Index: idx}, nil
	}
	return runner.Selector{Name: raw}, nil
}
