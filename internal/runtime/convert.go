package runtime

import (
	"fmt"
	"sort"

	"github.com/spf13/cast"
)

// FromGo converts a Go value into a Rill value at the host boundary. Numeric
// types collapse onto float64; maps become dicts with sorted keys (Go map
// order is unspecified); nil becomes null.
func FromGo(v any) (Value, error) {
	switch v := v.(type) {
	case nil:
		return Null, nil
	case Value:
		return v, nil
	case bool:
		return NewBool(v), nil
	case string:
		return NewString(v), nil
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, err
		}
		return NewNumber(f), nil
	case []any:
		elements := make([]Value, len(v))
		for i, e := range v {
			converted, err := FromGo(e)
			if err != nil {
				return nil, err
			}
			elements[i] = converted
		}
		return NewList(elements), nil
	case []string:
		elements := make([]Value, len(v))
		for i, s := range v {
			elements[i] = NewString(s)
		}
		return NewList(elements), nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		dict := NewDict()
		for _, key := range keys {
			converted, err := FromGo(v[key])
			if err != nil {
				return nil, err
			}
			dict.set(key, converted)
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to a script value", v)
	}
}

// ToGo converts a Rill value into a plain Go value for host consumption.
// Callables are returned as-is; hosts that need to invoke them go through
// the evaluator.
func ToGo(v Value) any {
	switch v := v.(type) {
	case nil, *NullValue:
		return nil
	case *StringValue:
		return v.Value
	case *NumberValue:
		return v.Value
	case *BoolValue:
		return v.Value
	case *ListValue:
		out := make([]any, len(v.Elements))
		for i, e := range v.Elements {
			out[i] = ToGo(e)
		}
		return out
	case *DictValue:
		out := make(map[string]any, v.Len())
		for _, key := range v.Keys() {
			entry, _ := v.Get(key)
			out[key] = ToGo(entry)
		}
		return out
	case *TupleValue:
		out := make([]any, len(v.Positional))
		for i, e := range v.Positional {
			out[i] = ToGo(e)
		}
		return out
	default:
		return v
	}
}
