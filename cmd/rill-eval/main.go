// Command rill-eval evaluates a Rill expression or script file.
//
// Exit codes: 0 success, 1 usage error, 2 file I/O error, 3 parse error.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	rillerrors "github.com/rcrsr/rill/internal/errors"
	"github.com/rcrsr/rill/pkg/rill"
	"github.com/rcrsr/rill/pkg/rill/stdlib"
)

var (
	// Version information (set by build flags)
	Version = "0.1.0-dev"

	scriptFile string
	timeoutMs  int
)

const (
	exitUsage = 1
	exitIO    = 2
	exitParse = 3
)

var rootCmd = &cobra.Command{
	Use:   "rill-eval [expression]",
	Short: "Evaluate a Rill expression or script",
	Long: `rill-eval executes a Rill program and prints its final value.

Rill is an embeddable scripting language for hosted, sandboxed execution:
scripts have no ambient I/O and call only the capabilities the host exposes.
This CLI registers the stdlib extension (json::, str::, list::) and a log()
function writing to stdout.

Examples:
  # Evaluate an inline expression
  rill-eval '"hello" -> .upper'

  # Run a script file
  rill-eval -f script.rill`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       Version,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&scriptFile, "file", "f", "", "read the script from a file instead of the argument")
	rootCmd.Flags().IntVar(&timeoutMs, "timeout", 0, "abort execution after this many milliseconds")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			fmt.Fprintln(os.Stderr, "Error: "+exit.message)
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(exitUsage)
	}
}

// exitError carries a process exit code through cobra's RunE.
type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string {
	return e.message
}

func run(_ *cobra.Command, args []string) error {
	source, name, err := readSource(args)
	if err != nil {
		return err
	}

	script, parseErr := rill.Parse(source)
	if parseErr != nil {
		var diag *rill.ParseError
		if errors.As(parseErr, &diag) {
			formatted := rillerrors.NewSourceError(diag.Span, diag.Code, diag.Message, source, name)
			return &exitError{code: exitParse, message: formatted.Format(false)}
		}
		return &exitError{code: exitParse, message: parseErr.Error()}
	}

	std := stdlib.New()
	defer std.Dispose()

	rtc := rill.NewContext(rill.ContextOptions{
		Functions: map[string]*rill.HostFunction{
			"log": {
				Params:      []rill.HostParam{{Name: "value", Type: "any"}},
				Description: "print a value to stdout",
				Fn: func(_ context.Context, callArgs []rill.Value, _ *rill.Context) (rill.Value, error) {
					fmt.Println(callArgs[0].String())
					return callArgs[0], nil
				},
			},
		},
	})
	rtc.RegisterFunctions(std.Functions)

	ctx := context.Background()
	if timeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
		defer cancel()
	}

	result, err := rill.Execute(ctx, script, rtc)
	if err != nil {
		return &exitError{code: exitUsage, message: err.Error()}
	}
	if result.Value != nil {
		fmt.Println(result.Value.String())
	}
	return nil
}

func readSource(args []string) (source, name string, err error) {
	if scriptFile != "" {
		content, readErr := os.ReadFile(scriptFile)
		if readErr != nil {
			return "", "", &exitError{code: exitIO, message: "cannot read " + scriptFile + ": " + readErr.Error()}
		}
		return string(content), scriptFile, nil
	}
	if len(args) == 1 {
		return args[0], "<eval>", nil
	}
	return "", "", &exitError{code: exitUsage, message: "provide an expression or use -f <file>"}
}
