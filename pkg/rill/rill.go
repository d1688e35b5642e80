// Package rill is the public embedding API for the Rill scripting language.
//
// Rill is an embeddable scripting language designed as a safe target for
// machine code generation. The host application exposes capability functions
// to scripts and executes user programs in a sandbox with no ambient I/O:
// the core has no access to the network, filesystem, processes, clock, or
// randomness.
//
// A minimal embedding:
//
//	script, err := rill.Parse(`"hello" -> .upper`)
//	if err != nil {
//		return err
//	}
//	rtc := rill.NewContext(rill.ContextOptions{})
//	result, err := rill.Execute(context.Background(), script, rtc)
//	// result.Value is "HELLO"
package rill

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/rcrsr/rill/internal/ast"
	"github.com/rcrsr/rill/internal/eval"
	"github.com/rcrsr/rill/internal/parser"
	"github.com/rcrsr/rill/internal/runtime"
)

// Re-exported core types, so embedding hosts depend on this package alone.
type (
	// Script is a parsed Rill program.
	Script = ast.Script

	// Value is a runtime value.
	Value = runtime.Value

	// Context is the per-execution runtime context.
	Context = runtime.Context

	// ContextOptions configures a new runtime context.
	ContextOptions = runtime.Options

	// HostFunction is a capability exposed to scripts.
	HostFunction = runtime.HostFunction

	// HostParam describes a host function parameter.
	HostParam = runtime.HostParam

	// Callbacks carries userland logging hooks.
	Callbacks = runtime.Callbacks

	// Observability carries the statement driver hooks.
	Observability = runtime.Observability

	// AutoException converts matching post-statement values into errors.
	AutoException = runtime.AutoException

	// Extension is a host function bundle with idempotent dispose.
	Extension = runtime.Extension

	// Stepper drives one-statement-at-a-time execution.
	Stepper = eval.Stepper

	// Result is a completed execution's value and captured variables.
	Result = eval.Result

	// ParseError is a parse diagnostic with a stable code and span.
	ParseError = parser.Error
)

// NewContext creates a runtime context for one execution.
func NewContext(opts ContextOptions) *Context {
	return runtime.New(opts)
}

// NewChildContext forks a context: functions and callbacks are inherited,
// the variable map is fresh with the parent linked for lookup.
func NewChildContext(parent *Context) *Context {
	return runtime.NewChild(parent)
}

// PrefixFunctions rekeys a host function table under a namespace.
func PrefixFunctions(namespace string, functions map[string]*HostFunction) map[string]*HostFunction {
	return runtime.PrefixFunctions(namespace, functions)
}

// NewExtension bundles host functions with an optional dispose hook.
func NewExtension(functions map[string]*HostFunction, dispose func()) *Extension {
	return runtime.NewExtension(functions, dispose)
}

// FromGo converts a Go value to a script value at the host boundary.
func FromGo(v any) (Value, error) {
	return runtime.FromGo(v)
}

// ToGo converts a script value to a plain Go value.
func ToGo(v Value) any {
	return runtime.ToGo(v)
}

// Parse parses a source text strictly. The first parse error is returned;
// errors.As recovers the full *ParseError.
func Parse(source string) (*Script, error) {
	p := parser.New(source)
	script := p.ParseScript()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, errs[0]
	}
	return script, nil
}

// ParseWithRecovery never fails: unparseable statements appear as recovery
// nodes in the script, and all diagnostics are returned alongside it.
// Executing such a script fails with a parse-invalid error.
func ParseWithRecovery(source string) (*Script, []*ParseError) {
	p := parser.New(source, parser.WithRecovery(true))
	script := p.ParseScript()
	return script, p.Errors()
}

// Execute runs a script to completion against a context. The ctx carries the
// abort signal: it is checked before every statement and loop iteration, and
// handed to every host function.
func Execute(ctx context.Context, script *Script, rtc *Context) (Result, error) {
	return eval.Execute(ctx, script, rtc)
}

// NewStepper creates a cooperative driver exposing one-statement-at-a-time
// execution.
func NewStepper(script *Script, rtc *Context) *Stepper {
	return eval.NewStepper(script, rtc)
}

// DecodeFrontmatter parses a script's YAML frontmatter into out. The core
// preserves frontmatter as a raw string and never interprets it; this helper
// is for hosts that do.
func DecodeFrontmatter(script *Script, out any) error {
	if !script.HasFrontmatter {
		return errors.New("script has no frontmatter")
	}
	if err := yaml.Unmarshal([]byte(script.Frontmatter), out); err != nil {
		return fmt.Errorf("invalid frontmatter: %w", err)
	}
	return nil
}
