package eval

import (
	"context"
	"strings"
	"time"

	"github.com/rcrsr/rill/internal/ast"
	"github.com/rcrsr/rill/internal/runtime"
	"github.com/rcrsr/rill/pkg/token"
)

// Result is the outcome of a completed execution: the final statement's
// value and every variable captured into the script's top-level scope.
type Result struct {
	Value     runtime.Value
	Variables map[string]runtime.Value
}

// Stepper drives a script one statement at a time for external control
// loops: debuggers, UIs, and instrumented hosts. One Step checks the abort
// signal, fires OnStepStart, executes the statement, fires OnStepEnd with
// the duration and value, runs the auto-exception check, and fields any
// error through OnError before propagating it.
type Stepper struct {
	ev         *Evaluator
	rtc        *runtime.Context
	statements []ast.Statement
	index      int
	lastValue  runtime.Value
	done       bool
}

// NewStepper creates a stepper over a parsed script. Scripts produced by a
// recovery-mode parse are rejected on the first step.
func NewStepper(script *ast.Script, rtc *runtime.Context) *Stepper {
	return &Stepper{
		ev:         New(),
		rtc:        rtc,
		statements: script.Statements,
	}
}

// Done reports whether execution has finished.
func (s *Stepper) Done() bool {
	return s.done || s.index >= len(s.statements)
}

// Index returns the index of the next statement to execute.
func (s *Stepper) Index() int {
	return s.index
}

// Total returns the number of statements in the script.
func (s *Stepper) Total() int {
	return len(s.statements)
}

// Context returns the runtime context the stepper executes against.
func (s *Stepper) Context() *runtime.Context {
	return s.rtc
}

// Result returns the execution outcome so far.
func (s *Stepper) Result() Result {
	return Result{Value: s.lastValue, Variables: s.rtc.Env().Snapshot()}
}

// Step executes the next statement. It returns the statement's value; the
// error is non-nil when execution failed or was aborted, after which the
// stepper is done.
func (s *Stepper) Step(ctx context.Context) (runtime.Value, error) {
	if s.Done() {
		return s.lastValue, nil
	}

	stmt := s.statements[s.index]
	obs := s.rtc.Observability()

	fail := func(err error) (runtime.Value, error) {
		s.done = true
		if obs.OnError != nil {
			obs.OnError(err, s.index)
		}
		return nil, err
	}

	if err := checkAbort(ctx, stmt.Span()); err != nil {
		return fail(err)
	}

	if obs.OnStepStart != nil {
		obs.OnStepStart(s.index, len(s.statements), s.lastValue)
	}

	s.rtc.SetPipeValue(s.lastValue)
	started := time.Now()
	value, err := s.ev.evalStatement(ctx, stmt, s.rtc)
	if err != nil {
		return fail(surfaceSignal(err))
	}

	if obs.OnStepEnd != nil {
		obs.OnStepEnd(s.index, len(s.statements), value, time.Since(started))
	}

	if err := s.checkAutoExceptions(value, stmt.Span()); err != nil {
		return fail(err)
	}

	s.lastValue = value
	s.index++
	if s.index >= len(s.statements) {
		s.done = true
	}
	return value, nil
}

// checkAutoExceptions matches the post-statement value against the
// configured patterns, raising a typed runtime error on the first match.
func (s *Stepper) checkAutoExceptions(value runtime.Value, span token.Span) error {
	patterns := s.rtc.AutoExceptions()
	if len(patterns) == 0 {
		return nil
	}
	str, ok := value.(*runtime.StringValue)
	if !ok {
		return nil
	}
	for _, auto := range patterns {
		if auto.Pattern != "" && strings.Contains(str.Value, auto.Pattern) {
			code := auto.Code
			if code == "" {
				code = runtime.ErrAutoException
			}
			message := auto.Message
			if message == "" {
				message = "value matched auto-exception pattern '" + auto.Pattern + "'"
			}
			return &runtime.Error{
				Code:    code,
				Message: message,
				Span:    span,
				Context: map[string]any{"pattern": auto.Pattern, "value": str.Value},
			}
		}
	}
	return nil
}

// Execute runs a whole script synchronously: a thin loop over Step. Scripts
// containing RecoveryError nodes are rejected before the first statement.
func Execute(ctx context.Context, script *ast.Script, rtc *runtime.Context) (Result, error) {
	if script.HasRecoveryErrors() {
		return Result{}, runtime.NewError(runtime.ErrParseInvalid, script.Span(),
			"script contains unparseable statements")
	}

	stepper := NewStepper(script, rtc)
	for !stepper.Done() {
		if _, err := stepper.Step(ctx); err != nil {
			return stepper.Result(), err
		}
	}
	return stepper.Result(), nil
}
