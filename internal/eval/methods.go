package eval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rcrsr/rill/internal/runtime"
	"github.com/rcrsr/rill/pkg/token"
)

// Builtin value methods: the "runtime built-in" callable variant. Methods
// are looked up by receiver type; dict lookups fall back to these after
// field resolution fails, except for the reserved keys/values/entries trio
// which always win.

// callBuiltin resolves and invokes a builtin method on a receiver.
func (ev *Evaluator) callBuiltin(ctx context.Context, recv runtime.Value, name string, args []runtime.Value, span token.Span) (runtime.Value, error) {
	fn := lookupBuiltin(recv, name)
	if fn == nil {
		return nil, runtime.NewError(runtime.ErrUnknownMethod, span,
			"%s has no method '%s'", runtime.TypeOf(recv), name)
	}
	result, err := fn(ctx, recv, args)
	if err != nil {
		return nil, builtinError(err, name, span)
	}
	return result, nil
}

// lookupBuiltin returns the builtin implementation for a receiver/method
// pair, or nil.
func lookupBuiltin(recv runtime.Value, name string) runtime.BuiltinFunc {
	var table map[string]runtime.BuiltinFunc
	switch recv.(type) {
	case *runtime.StringValue:
		table = stringMethods
	case *runtime.NumberValue:
		table = numberMethods
	case *runtime.ListValue:
		table = listMethods
	case *runtime.DictValue:
		table = dictMethods
	default:
		return nil
	}
	return table[name]
}

func wantArgs(args []runtime.Value, n int) error {
	if len(args) != n {
		return fmt.Errorf("expected %d arguments, got %d", n, len(args))
	}
	return nil
}

func argString(args []runtime.Value, i int) (string, error) {
	s, ok := args[i].(*runtime.StringValue)
	if !ok {
		return "", fmt.Errorf("argument %d must be a string, got %s", i+1, runtime.TypeOf(args[i]))
	}
	return s.Value, nil
}

var stringMethods = map[string]runtime.BuiltinFunc{
	"upper": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 0); err != nil {
			return nil, err
		}
		return runtime.NewString(strings.ToUpper(recv.(*runtime.StringValue).Value)), nil
	},
	"lower": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 0); err != nil {
			return nil, err
		}
		return runtime.NewString(strings.ToLower(recv.(*runtime.StringValue).Value)), nil
	},
	"trim": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 0); err != nil {
			return nil, err
		}
		return runtime.NewString(strings.TrimSpace(recv.(*runtime.StringValue).Value)), nil
	},
	"length": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 0); err != nil {
			return nil, err
		}
		return runtime.NewNumber(float64(len([]rune(recv.(*runtime.StringValue).Value)))), nil
	},
	"split": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		sep, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		parts := strings.Split(recv.(*runtime.StringValue).Value, sep)
		elements := make([]runtime.Value, len(parts))
		for i, part := range parts {
			elements[i] = runtime.NewString(part)
		}
		return runtime.NewList(elements), nil
	},
	"contains": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		sub, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		return runtime.NewBool(strings.Contains(recv.(*runtime.StringValue).Value, sub)), nil
	},
	"starts": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		prefix, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		return runtime.NewBool(strings.HasPrefix(recv.(*runtime.StringValue).Value, prefix)), nil
	},
	"ends": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		suffix, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		return runtime.NewBool(strings.HasSuffix(recv.(*runtime.StringValue).Value, suffix)), nil
	},
	"replace": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 2); err != nil {
			return nil, err
		}
		old, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		replacement, err := argString(args, 1)
		if err != nil {
			return nil, err
		}
		return runtime.NewString(strings.ReplaceAll(recv.(*runtime.StringValue).Value, old, replacement)), nil
	},
}

var numberMethods = map[string]runtime.BuiltinFunc{
	"round": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 0); err != nil {
			return nil, err
		}
		return runtime.NewNumber(math.Round(recv.(*runtime.NumberValue).Value)), nil
	},
	"floor": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 0); err != nil {
			return nil, err
		}
		return runtime.NewNumber(math.Floor(recv.(*runtime.NumberValue).Value)), nil
	},
	"ceil": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 0); err != nil {
			return nil, err
		}
		return runtime.NewNumber(math.Ceil(recv.(*runtime.NumberValue).Value)), nil
	},
	"abs": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 0); err != nil {
			return nil, err
		}
		return runtime.NewNumber(math.Abs(recv.(*runtime.NumberValue).Value)), nil
	},
}

var listMethods = map[string]runtime.BuiltinFunc{
	"length": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 0); err != nil {
			return nil, err
		}
		return runtime.NewNumber(float64(len(recv.(*runtime.ListValue).Elements))), nil
	},
	"first": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 0); err != nil {
			return nil, err
		}
		list := recv.(*runtime.ListValue)
		if len(list.Elements) == 0 {
			return runtime.Null, nil
		}
		return list.Elements[0], nil
	},
	"last": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 0); err != nil {
			return nil, err
		}
		list := recv.(*runtime.ListValue)
		if len(list.Elements) == 0 {
			return runtime.Null, nil
		}
		return list.Elements[len(list.Elements)-1], nil
	},
	"reverse": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 0); err != nil {
			return nil, err
		}
		src := recv.(*runtime.ListValue).Elements
		out := make([]runtime.Value, len(src))
		for i, v := range src {
			out[len(src)-1-i] = v
		}
		return runtime.NewList(out), nil
	},
	"join": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		sep, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		parts := make([]string, len(recv.(*runtime.ListValue).Elements))
		for i, v := range recv.(*runtime.ListValue).Elements {
			parts[i] = v.String()
		}
		return runtime.NewString(strings.Join(parts, sep)), nil
	},
	"contains": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		for _, v := range recv.(*runtime.ListValue).Elements {
			if runtime.Equals(v, args[0]) {
				return runtime.True, nil
			}
		}
		return runtime.False, nil
	},
	"append": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		src := recv.(*runtime.ListValue).Elements
		out := make([]runtime.Value, len(src)+1)
		copy(out, src)
		out[len(src)] = args[0]
		return runtime.NewList(out), nil
	},
	"concat": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		other, ok := args[0].(*runtime.ListValue)
		if !ok {
			return nil, fmt.Errorf("concat requires a list, got %s", runtime.TypeOf(args[0]))
		}
		src := recv.(*runtime.ListValue).Elements
		out := make([]runtime.Value, 0, len(src)+len(other.Elements))
		out = append(out, src...)
		out = append(out, other.Elements...)
		return runtime.NewList(out), nil
	},
	"unique": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 0); err != nil {
			return nil, err
		}
		var out []runtime.Value
		for _, v := range recv.(*runtime.ListValue).Elements {
			duplicate := false
			for _, seen := range out {
				if runtime.Equals(v, seen) {
					duplicate = true
					break
				}
			}
			if !duplicate {
				out = append(out, v)
			}
		}
		return runtime.NewList(out), nil
	},
	"sort": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 0); err != nil {
			return nil, err
		}
		src := recv.(*runtime.ListValue).Elements
		out := make([]runtime.Value, len(src))
		copy(out, src)
		var sortErr error
		sort.SliceStable(out, func(i, j int) bool {
			switch a := out[i].(type) {
			case *runtime.NumberValue:
				if b, ok := out[j].(*runtime.NumberValue); ok {
					return a.Value < b.Value
				}
			case *runtime.StringValue:
				if b, ok := out[j].(*runtime.StringValue); ok {
					return a.Value < b.Value
				}
			}
			sortErr = fmt.Errorf("sort requires all numbers or all strings")
			return false
		})
		if sortErr != nil {
			return nil, sortErr
		}
		return runtime.NewList(out), nil
	},
}

var dictMethods = map[string]runtime.BuiltinFunc{
	"keys": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 0); err != nil {
			return nil, err
		}
		keys := recv.(*runtime.DictValue).Keys()
		elements := make([]runtime.Value, len(keys))
		for i, key := range keys {
			elements[i] = runtime.NewString(key)
		}
		return runtime.NewList(elements), nil
	},
	"values": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 0); err != nil {
			return nil, err
		}
		return runtime.NewList(recv.(*runtime.DictValue).Values()), nil
	},
	"entries": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 0); err != nil {
			return nil, err
		}
		dict := recv.(*runtime.DictValue)
		elements := make([]runtime.Value, 0, dict.Len())
		for _, key := range dict.Keys() {
			v, _ := dict.Get(key)
			entry := runtime.NewDict()
			entry.SetEntry("key", runtime.NewString(key))
			entry.SetEntry("value", v)
			elements = append(elements, entry)
		}
		return runtime.NewList(elements), nil
	},
	"has": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		key, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		_, found := recv.(*runtime.DictValue).Get(key)
		return runtime.NewBool(found), nil
	},
	"get": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		key, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		if v, found := recv.(*runtime.DictValue).Get(key); found {
			return v, nil
		}
		return runtime.Null, nil
	},
	"set": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 2); err != nil {
			return nil, err
		}
		key, err := argString(args, 0)
		if err != nil {
			return nil, err
		}
		if runtime.IsReservedDictKey(key) {
			return nil, fmt.Errorf("'%s' is a reserved dict method", key)
		}
		return recv.(*runtime.DictValue).With(key, args[1]), nil
	},
	"merge": func(_ context.Context, recv runtime.Value, args []runtime.Value) (runtime.Value, error) {
		if err := wantArgs(args, 1); err != nil {
			return nil, err
		}
		other, ok := args[0].(*runtime.DictValue)
		if !ok {
			return nil, fmt.Errorf("merge requires a dict, got %s", runtime.TypeOf(args[0]))
		}
		return recv.(*runtime.DictValue).Merge(other), nil
	},
}
