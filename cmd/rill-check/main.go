// Command rill-check parses a Rill file in recovery mode and reports every
// diagnostic, as human-readable text or as JSON.
//
// Exit codes: 0 clean, 1 usage error, 2 file I/O error, 3 parse errors found.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"

	rillerrors "github.com/rcrsr/rill/internal/errors"
	"github.com/rcrsr/rill/pkg/rill"
)

var (
	// Version information (set by build flags)
	Version = "0.1.0-dev"

	jsonOutput bool
)

const (
	exitUsage = 1
	exitIO    = 2
	exitParse = 3
)

var rootCmd = &cobra.Command{
	Use:   "rill-check <file>",
	Short: "Check a Rill file for syntax errors",
	Long: `rill-check parses a file in recovery mode and reports every syntax
diagnostic it finds, instead of stopping at the first.

Examples:
  rill-check script.rill
  rill-check --json script.rill`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       Version,
	RunE:          run,
}

func init() {
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "emit diagnostics as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			if exit.message != "" {
				fmt.Fprintln(os.Stderr, "Error: "+exit.message)
			}
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(exitUsage)
	}
}

type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string {
	return e.message
}

func run(_ *cobra.Command, args []string) error {
	file := args[0]
	content, err := os.ReadFile(file)
	if err != nil {
		return &exitError{code: exitIO, message: "cannot read " + file + ": " + err.Error()}
	}
	source := string(content)

	_, diags := rill.ParseWithRecovery(source)

	if jsonOutput {
		out, err := renderJSON(file, diags)
		if err != nil {
			return &exitError{code: exitUsage, message: err.Error()}
		}
		fmt.Println(out)
	} else {
		for _, diag := range diags {
			formatted := rillerrors.NewSourceError(diag.Span, diag.Code, diag.Message, source, file)
			fmt.Println(formatted.Format(false))
			fmt.Println()
		}
		fmt.Printf("%s: %d error(s)\n", file, len(diags))
	}

	if len(diags) > 0 {
		return &exitError{code: exitParse}
	}
	return nil
}

// renderJSON builds the diagnostic document:
//
//	{file, errors: [{location: {line, column, offset}, severity, code,
//	message, context}], summary: {total, errors, warnings, info}}
func renderJSON(file string, diags []*rill.ParseError) (string, error) {
	doc := "{}"
	var err error

	set := func(path string, value any) {
		if err != nil {
			return
		}
		doc, err = sjson.Set(doc, path, value)
	}

	set("file", file)
	set("errors", []any{})
	for i, diag := range diags {
		prefix := fmt.Sprintf("errors.%d.", i)
		set(prefix+"location.line", diag.Span.Start.Line)
		set(prefix+"location.column", diag.Span.Start.Column)
		set(prefix+"location.offset", diag.Span.Start.Offset)
		set(prefix+"severity", "error")
		set(prefix+"code", diag.Code)
		set(prefix+"message", diag.Message)
		if info, ok := rillerrors.Lookup(diag.Code); ok && info.Resolution != "" {
			set(prefix+"context", info.Resolution)
		}
	}

	severities := lo.CountValuesBy(diags, func(*rill.ParseError) string { return "error" })
	set("summary.total", len(diags))
	set("summary.errors", severities["error"])
	set("summary.warnings", 0)
	set("summary.info", 0)

	return doc, err
}
