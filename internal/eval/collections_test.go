package eval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcrsr/rill/internal/runtime"
)

func TestEach(t *testing.T) {
	assert.Equal(t, "[2, 4, 6]", evalString(t, `[1,2,3] -> each { $ * 2 }`))
	assert.Equal(t, "[10, 20]", evalString(t, `[1,2] -> each |x| ($x * 10)`))
}

func TestEachAccumulatorIsScan(t *testing.T) {
	// The accumulator form collects the intermediate values.
	assert.Equal(t, "[1, 3, 6]", evalString(t, `[1,2,3] -> each(0) { $@ + $ }`))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "6", evalString(t, `[1,2,3] -> fold(0) { $@ + $ }`))
	assert.Equal(t, "10", evalString(t, `[1,2,3,4] -> fold |x, acc = 0| ($acc + $x)`))
	// Without an init the first element seeds the accumulator.
	assert.Equal(t, "6", evalString(t, `[1,2,3] -> fold { $@ + $ }`))
	assert.Equal(t, "null", evalString(t, `[] -> fold { $@ + $ }`))
}

func TestFilter(t *testing.T) {
	assert.Equal(t, "[3, 4]", evalString(t, `[1,2,3,4] -> filter |x| ($x > 2)`))
	assert.Equal(t, "[]", evalString(t, `[1,2] -> filter |x| ($x > 9)`))
	assert.Equal(t, runtime.ErrNonBoolCondition,
		failCode(t, `[1] -> filter |x| ($x)`, runtime.Options{}))
}

func TestMapOrderPreservation(t *testing.T) {
	// Results follow input order regardless of completion order: the host
	// function finishes early elements last.
	opts := runtime.Options{
		Functions: map[string]*runtime.HostFunction{
			"slow_id": {
				Fn: func(ctx context.Context, args []runtime.Value, _ *runtime.Context) (runtime.Value, error) {
					n := args[0].(*runtime.NumberValue)
					delay := time.Duration(50-int(n.Value)*10) * time.Millisecond
					select {
					case <-time.After(delay):
					case <-ctx.Done():
						return nil, ctx.Err()
					}
					return n, nil
				},
			},
		},
	}
	result, err := run(t, `^(limit: 4) [1,2,3,4] -> map slow_id`, opts)
	require.NoError(t, err)
	assert.Equal(t, "[1, 2, 3, 4]", result.Value.String())
}

func TestFilterOrderPreservation(t *testing.T) {
	result, err := run(t, `^(limit: 3) [5,1,6,2,7] -> filter |x| ($x > 4)`, runtime.Options{})
	require.NoError(t, err)
	assert.Equal(t, "[5, 6, 7]", result.Value.String())
}

func TestMapConcurrencyBoundedByLimit(t *testing.T) {
	var mu sync.Mutex
	active, peak := 0, 0

	opts := runtime.Options{
		Functions: map[string]*runtime.HostFunction{
			"track": {
				Fn: func(ctx context.Context, args []runtime.Value, _ *runtime.Context) (runtime.Value, error) {
					mu.Lock()
					active++
					if active > peak {
						peak = active
					}
					mu.Unlock()
					time.Sleep(10 * time.Millisecond)
					mu.Lock()
					active--
					mu.Unlock()
					return args[0], nil
				},
			},
		},
	}

	_, err := run(t, `^(limit: 2) [1,2,3,4,5,6] -> map track`, opts)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak, 2, "fan-out must not exceed the limit annotation")
	assert.GreaterOrEqual(t, peak, 2, "limit 2 should actually run two at once")
}

func TestMapDefaultsToSequential(t *testing.T) {
	var mu sync.Mutex
	active, peak := 0, 0
	opts := runtime.Options{
		Functions: map[string]*runtime.HostFunction{
			"track": {
				Fn: func(ctx context.Context, args []runtime.Value, _ *runtime.Context) (runtime.Value, error) {
					mu.Lock()
					active++
					if active > peak {
						peak = active
					}
					mu.Unlock()
					time.Sleep(2 * time.Millisecond)
					mu.Lock()
					active--
					mu.Unlock()
					return args[0], nil
				},
			},
		},
	}
	_, err := run(t, `[1,2,3] -> map track`, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, peak, "map without a limit annotation is sequential")
}

func TestParallelTasksGetChildScopes(t *testing.T) {
	// Parallel bodies share the parent scope read-only; captures inside a
	// body stay in the task's child scope.
	source := `"shared" => $outer` + "\n" +
		`^(limit: 3) [1,2,3] -> map { $ => $local` + "\n" + `$outer.length + $local }`
	result, err := run(t, source, runtime.Options{})
	require.NoError(t, err)
	assert.Equal(t, "[7, 8, 9]", result.Value.String())
	_, hasLocal := result.Variables["local"]
	assert.False(t, hasLocal, "parallel captures must not leak into the parent scope")
}

func TestIteratorConsumption(t *testing.T) {
	// A userland iterator: a dict with done/next/value. This one yields a
	// single element before exhausting.
	script := `[done: false, value: 1, next: || ([done: true, next: || ($)])] -> each { $ * 2 }`
	assert.Equal(t, "[2]", evalString(t, script))
}

func TestIteratorFromHost(t *testing.T) {
	// A host-built countdown iterator: 3, 2, 1.
	var build func(n float64) *runtime.DictValue
	build = func(n float64) *runtime.DictValue {
		dict := runtime.NewDict()
		dict.SetEntry("done", runtime.NewBool(n == 0))
		if n > 0 {
			dict.SetEntry("value", runtime.NewNumber(n))
		}
		dict.SetEntry("next", &runtime.HostFuncValue{
			Name: "countdown.next",
			Def: &runtime.HostFunction{
				Fn: func(_ context.Context, _ []runtime.Value, _ *runtime.Context) (runtime.Value, error) {
					return build(n - 1), nil
				},
			},
		})
		return dict
	}

	opts := runtime.Options{
		Functions: map[string]*runtime.HostFunction{
			"countdown": {
				Fn: func(_ context.Context, args []runtime.Value, _ *runtime.Context) (runtime.Value, error) {
					return build(args[0].(*runtime.NumberValue).Value), nil
				},
			},
		},
	}
	result, err := run(t, `countdown(3) -> map |x| ($x * 10)`, opts)
	require.NoError(t, err)
	assert.Equal(t, "[30, 20, 10]", result.Value.String())
}

func TestCollectionRequiresListOrIterator(t *testing.T) {
	assert.Equal(t, runtime.ErrTypeMismatch, failCode(t, `5 -> map |x| ($x)`, runtime.Options{}))
	assert.Equal(t, runtime.ErrTypeMismatch, failCode(t, `[a: 1] -> map |x| ($x)`, runtime.Options{}))
}

func TestOperatorBodyForms(t *testing.T) {
	// Variable holding a closure.
	assert.Equal(t, "[2, 4]", evalString(t, `|x| ($x * 2) => $f`+"\n"+`[1,2] -> map $f`))
	// Grouped expression body.
	assert.Equal(t, "[2, 3]", evalString(t, `[1,2] -> map ($ + 1)`))
	// Method chain body.
	assert.Equal(t, `["A", "B"]`, evalString(t, `["a","b"] -> map .upper`))
}

func TestBreakInsideEach(t *testing.T) {
	source := `[1,2,3,4] -> each { $ -> ($ == 3) ? break ! pass }`
	assert.Equal(t, "[1, 2, 3]", evalString(t, source))
}
