// Package stdlib is a reference extension bundle: pure host functions with
// no ambient I/O, registered under the json::, str::, and list:: namespaces.
// It demonstrates the extension contract and gives embedding hosts a useful
// baseline capability set.
package stdlib

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/rcrsr/rill/internal/runtime"
	"github.com/rcrsr/rill/pkg/rill"
)

// New returns the stdlib extension. Dispose is a no-op; the bundle holds no
// resources.
func New() *rill.Extension {
	functions := map[string]*rill.HostFunction{}
	merge := func(ns string, table map[string]*rill.HostFunction) {
		for name, fn := range rill.PrefixFunctions(ns, table) {
			functions[name] = fn
		}
	}
	merge("json", jsonFunctions())
	merge("str", strFunctions())
	merge("list", listFunctions())
	return rill.NewExtension(functions, nil)
}

func jsonFunctions() map[string]*rill.HostFunction {
	return map[string]*rill.HostFunction{
		"encode": {
			Params:      []rill.HostParam{{Name: "value", Type: "any"}},
			Description: "encode a value as a JSON string",
			ReturnType:  "string",
			Fn: func(_ context.Context, args []rill.Value, _ *rill.Context) (rill.Value, error) {
				encoded, err := encodeJSON(args[0])
				if err != nil {
					return nil, err
				}
				return runtime.NewString(encoded), nil
			},
		},
		"decode": {
			Params:      []rill.HostParam{{Name: "text", Type: "string"}},
			Description: "decode a JSON string into a value",
			Fn: func(_ context.Context, args []rill.Value, _ *rill.Context) (rill.Value, error) {
				text := args[0].(*runtime.StringValue).Value
				if !gjson.Valid(text) {
					return nil, fmt.Errorf("invalid JSON")
				}
				return decodeJSON(gjson.Parse(text))
			},
		},
		"get": {
			Params: []rill.HostParam{
				{Name: "text", Type: "string"},
				{Name: "path", Type: "string", Description: "gjson path expression"},
			},
			Description: "extract a value from a JSON string by path",
			Fn: func(_ context.Context, args []rill.Value, _ *rill.Context) (rill.Value, error) {
				text := args[0].(*runtime.StringValue).Value
				path := args[1].(*runtime.StringValue).Value
				result := gjson.Get(text, path)
				if !result.Exists() {
					return runtime.Null, nil
				}
				return decodeJSON(result)
			},
		},
		"set": {
			Params: []rill.HostParam{
				{Name: "text", Type: "string"},
				{Name: "path", Type: "string"},
				{Name: "value", Type: "any"},
			},
			Description: "set a value in a JSON string by path, returning the new JSON",
			ReturnType:  "string",
			Fn: func(_ context.Context, args []rill.Value, _ *rill.Context) (rill.Value, error) {
				text := args[0].(*runtime.StringValue).Value
				path := args[1].(*runtime.StringValue).Value
				updated, err := sjson.Set(text, path, rill.ToGo(args[2]))
				if err != nil {
					return nil, err
				}
				return runtime.NewString(updated), nil
			},
		},
	}
}

// encodeJSON renders a value as JSON using sjson over an empty document.
func encodeJSON(v rill.Value) (string, error) {
	doc, err := sjson.Set("{}", "v", rill.ToGo(v))
	if err != nil {
		return "", err
	}
	return gjson.Get(doc, "v").Raw, nil
}

// decodeJSON converts a gjson result tree into runtime values.
func decodeJSON(result gjson.Result) (rill.Value, error) {
	switch {
	case result.Type == gjson.Null:
		return runtime.Null, nil
	case result.Type == gjson.True:
		return runtime.True, nil
	case result.Type == gjson.False:
		return runtime.False, nil
	case result.Type == gjson.Number:
		return runtime.NewNumber(result.Num), nil
	case result.Type == gjson.String:
		return runtime.NewString(result.Str), nil
	case result.IsArray():
		var elements []rill.Value
		var convErr error
		result.ForEach(func(_, item gjson.Result) bool {
			v, err := decodeJSON(item)
			if err != nil {
				convErr = err
				return false
			}
			elements = append(elements, v)
			return true
		})
		if convErr != nil {
			return nil, convErr
		}
		return runtime.NewList(elements), nil
	case result.IsObject():
		dict := runtime.NewDict()
		var convErr error
		result.ForEach(func(key, item gjson.Result) bool {
			v, err := decodeJSON(item)
			if err != nil {
				convErr = err
				return false
			}
			dict.SetEntry(key.Str, v)
			return true
		})
		if convErr != nil {
			return nil, convErr
		}
		return dict, nil
	}
	return nil, fmt.Errorf("unsupported JSON value")
}

func strFunctions() map[string]*rill.HostFunction {
	return map[string]*rill.HostFunction{
		"repeat": {
			Params: []rill.HostParam{
				{Name: "text", Type: "string"},
				{Name: "count", Type: "number"},
			},
			ReturnType: "string",
			Fn: func(_ context.Context, args []rill.Value, _ *rill.Context) (rill.Value, error) {
				count := int(args[1].(*runtime.NumberValue).Value)
				if count < 0 {
					return nil, fmt.Errorf("count must be non-negative")
				}
				return runtime.NewString(strings.Repeat(args[0].(*runtime.StringValue).Value, count)), nil
			},
		},
		"pad": {
			Params: []rill.HostParam{
				{Name: "text", Type: "string"},
				{Name: "width", Type: "number"},
			},
			Description: "left-pad with spaces to the given width",
			ReturnType:  "string",
			Fn: func(_ context.Context, args []rill.Value, _ *rill.Context) (rill.Value, error) {
				text := args[0].(*runtime.StringValue).Value
				width := int(args[1].(*runtime.NumberValue).Value)
				for len([]rune(text)) < width {
					text = " " + text
				}
				return runtime.NewString(text), nil
			},
		},
	}
}

func listFunctions() map[string]*rill.HostFunction {
	return map[string]*rill.HostFunction{
		"range": {
			Params: []rill.HostParam{
				{Name: "from", Type: "number"},
				{Name: "to", Type: "number"},
			},
			Description: "list of integers from `from` (inclusive) to `to` (exclusive)",
			ReturnType:  "list",
			Fn: func(_ context.Context, args []rill.Value, _ *rill.Context) (rill.Value, error) {
				from := int(args[0].(*runtime.NumberValue).Value)
				to := int(args[1].(*runtime.NumberValue).Value)
				if to < from {
					return runtime.NewList(nil), nil
				}
				elements := make([]rill.Value, 0, to-from)
				for i := from; i < to; i++ {
					elements = append(elements, runtime.NewNumber(float64(i)))
				}
				return runtime.NewList(elements), nil
			},
		},
		"sum": {
			Params:     []rill.HostParam{{Name: "values", Type: "list"}},
			ReturnType: "number",
			Fn: func(_ context.Context, args []rill.Value, _ *rill.Context) (rill.Value, error) {
				total := 0.0
				for _, v := range args[0].(*runtime.ListValue).Elements {
					n, ok := v.(*runtime.NumberValue)
					if !ok {
						return nil, fmt.Errorf("sum requires numbers, got %s", runtime.TypeOf(v))
					}
					total += n.Value
				}
				return runtime.NewNumber(total), nil
			},
		},
	}
}
