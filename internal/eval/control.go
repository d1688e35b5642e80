package eval

import (
	"context"

	"github.com/rcrsr/rill/internal/runtime"
	"github.com/rcrsr/rill/pkg/token"
)

// Control flow signals travel as typed errors: break and return unwind to
// the nearest loop or closure, which consumes them. A signal that escapes to
// the top of execution becomes a runtime error.

type breakSignal struct {
	value runtime.Value
	span  token.Span
}

func (b *breakSignal) Error() string { return "break" }

type returnSignal struct {
	value runtime.Value
	span  token.Span
}

func (r *returnSignal) Error() string { return "return" }

// checkAbort raises an abort error when the context's abort signal has
// fired. The driver calls it before every statement and every loop
// iteration.
func checkAbort(ctx context.Context, span token.Span) error {
	if err := ctx.Err(); err != nil {
		return runtime.NewError(runtime.ErrAborted, span, "execution aborted: %s", err)
	}
	return nil
}

// surfaceSignal converts an escaped control signal into its runtime error.
func surfaceSignal(err error) error {
	switch sig := err.(type) {
	case *breakSignal:
		return runtime.NewError(runtime.ErrBreakOutsideLoop, sig.span, "break outside a loop")
	case *returnSignal:
		return runtime.NewError(runtime.ErrReturnOutside, sig.span, "return outside a closure")
	}
	return err
}
