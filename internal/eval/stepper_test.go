package eval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcrsr/rill/internal/parser"
	"github.com/rcrsr/rill/internal/runtime"
)

func TestStepperDrivesStatements(t *testing.T) {
	p := parser.New("1\n2\n3\n")
	script := p.ParseScript()
	require.Empty(t, p.Errors())

	stepper := NewStepper(script, runtime.New(runtime.Options{}))
	assert.Equal(t, 3, stepper.Total())
	assert.Equal(t, 0, stepper.Index())
	assert.False(t, stepper.Done())

	value, err := stepper.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", value.String())
	assert.Equal(t, 1, stepper.Index())

	for !stepper.Done() {
		_, err := stepper.Step(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, "3", stepper.Result().Value.String())
}

func TestObservabilityHooks(t *testing.T) {
	var starts, ends []int
	var durations []time.Duration

	opts := runtime.Options{
		Observability: runtime.Observability{
			OnStepStart: func(index, total int, _ runtime.Value) {
				starts = append(starts, index)
				assert.Equal(t, 2, total)
			},
			OnStepEnd: func(index, total int, value runtime.Value, duration time.Duration) {
				ends = append(ends, index)
				durations = append(durations, duration)
				require.NotNil(t, value)
			},
		},
	}

	_, err := run(t, "1\n2\n", opts)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, starts)
	assert.Equal(t, []int{0, 1}, ends)
	assert.Len(t, durations, 2)
}

func TestOnErrorHook(t *testing.T) {
	var seenIndex = -1
	var seenErr error
	opts := runtime.Options{
		Observability: runtime.Observability{
			OnError: func(err error, index int) {
				seenErr = err
				seenIndex = index
			},
		},
	}

	_, err := run(t, "1\n$nope\n", opts)
	require.Error(t, err)
	assert.Equal(t, 1, seenIndex)
	assert.Equal(t, err, seenErr, "the stepper fires OnError and still propagates")
}

func TestPipeValueFlowsBetweenStatements(t *testing.T) {
	// OnStepStart receives the previous statement's value as the pipe value.
	var pipes []string
	opts := runtime.Options{
		Observability: runtime.Observability{
			OnStepStart: func(_, _ int, pipe runtime.Value) {
				if pipe == nil {
					pipes = append(pipes, "<nil>")
				} else {
					pipes = append(pipes, pipe.String())
				}
			},
		},
	}
	_, err := run(t, "\"a\"\n$ -> .upper\n", opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"<nil>", "a"}, pipes)
}

func TestAutoException(t *testing.T) {
	opts := runtime.Options{
		AutoExceptions: []runtime.AutoException{
			{Pattern: "FATAL", Code: "R_FATAL_OUTPUT", Message: "fatal output detected"},
		},
	}

	_, err := run(t, `"all good"`, opts)
	assert.NoError(t, err)

	_, err = run(t, `"FATAL: disk on fire"`+"\n"+`"never reached"`, opts)
	require.Error(t, err)
	var rillErr *runtime.Error
	require.ErrorAs(t, err, &rillErr)
	assert.Equal(t, "R_FATAL_OUTPUT", rillErr.Code)
	assert.Equal(t, "fatal output detected", rillErr.Message)
}

func TestAutoExceptionDefaultCode(t *testing.T) {
	opts := runtime.Options{
		AutoExceptions: []runtime.AutoException{{Pattern: "oops"}},
	}
	_, err := run(t, `"oops happened"`, opts)
	var rillErr *runtime.Error
	require.ErrorAs(t, err, &rillErr)
	assert.Equal(t, runtime.ErrAutoException, rillErr.Code)
}

func TestCancellationResponsiveness(t *testing.T) {
	// After the abort signal fires, at most one more statement completes.
	ctx, cancel := context.WithCancel(context.Background())

	p := parser.New("1\n2\n3\n")
	script := p.ParseScript()
	require.Empty(t, p.Errors())

	stepper := NewStepper(script, runtime.New(runtime.Options{}))
	_, err := stepper.Step(ctx)
	require.NoError(t, err)

	cancel()
	_, err = stepper.Step(ctx)
	require.Error(t, err)
	var rillErr *runtime.Error
	require.ErrorAs(t, err, &rillErr)
	assert.Equal(t, runtime.ErrAborted, rillErr.Code)
	assert.True(t, stepper.Done(), "abort ends execution")
}

func TestAbortCheckedPerLoopIteration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := runtime.Options{
		Functions: map[string]*runtime.HostFunction{
			"trip": {
				Fn: func(_ context.Context, args []runtime.Value, _ *runtime.Context) (runtime.Value, error) {
					cancel()
					return args[0], nil
				},
			},
		},
	}

	p := parser.New(`0 -> (true) @ { trip($) }`)
	script := p.ParseScript()
	require.Empty(t, p.Errors())

	_, err := Execute(ctx, script, runtime.New(opts))
	require.Error(t, err)
	var rillErr *runtime.Error
	require.ErrorAs(t, err, &rillErr)
	assert.Equal(t, runtime.ErrAborted, rillErr.Code)
}

func TestTimeoutAnnotation(t *testing.T) {
	opts := runtime.Options{
		Functions: map[string]*runtime.HostFunction{
			"hang": {
				Fn: func(ctx context.Context, _ []runtime.Value, _ *runtime.Context) (runtime.Value, error) {
					select {
					case <-time.After(5 * time.Second):
						return runtime.Null, nil
					case <-ctx.Done():
						return nil, ctx.Err()
					}
				},
			},
		},
	}

	start := time.Now()
	_, err := run(t, `^(timeout: 30) hang()`, opts)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second, "timeout must arm the abort signal")
}

func TestRetryAnnotationSurfacedToHost(t *testing.T) {
	var events []runtime.Event
	opts := runtime.Options{
		Callbacks: runtime.Callbacks{
			OnLogEvent: func(event runtime.Event) {
				events = append(events, event)
			},
		},
	}

	_, err := run(t, `^(retry: 3, backoff: 1.5) 1`, opts)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "annotation.retry", events[0].Name)
	assert.Equal(t, 3.0, events[0].Data["retry"])
	assert.Equal(t, 1.5, events[0].Data["backoff"])
}

func TestStepperContextAccessor(t *testing.T) {
	rtc := runtime.New(runtime.Options{})
	p := parser.New("1\n")
	script := p.ParseScript()
	stepper := NewStepper(script, rtc)
	assert.Same(t, rtc, stepper.Context())
}
