package runtime

import (
	"context"
	"sync"
	"time"
)

// HostParam describes one parameter of a host function.
type HostParam struct {
	Name        string
	Type        string
	Description string
}

// HostFunction is a capability exposed by the embedding application. The
// function receives the evaluation context (carrying the abort signal), the
// bound arguments, and the runtime context.
type HostFunction struct {
	Params      []HostParam
	Fn          func(ctx context.Context, args []Value, rtc *Context) (Value, error)
	Description string
	ReturnType  string
}

// Callbacks carries userland logging hooks.
type Callbacks struct {
	OnLog      func(value Value)
	OnLogEvent func(event Event)
}

// Event is a structured extension/runtime event surfaced through OnLogEvent.
// The core uses it to surface observed-but-unimplemented annotations such as
// retry/backoff.
type Event struct {
	Name string
	Data map[string]any
}

// Observability carries the hooks the statement driver fires.
type Observability struct {
	OnStepStart func(index, total int, pipeValue Value)
	OnStepEnd   func(index, total int, value Value, duration time.Duration)
	OnError     func(err error, index int)
}

// AutoException converts a matching post-statement value into a runtime
// error. Pattern is matched as a substring against string pipe values.
type AutoException struct {
	Pattern string
	Code    string
	Message string
}

// DefaultIterationLimit is the hard cap on loop iterations and on elements
// drained from an iterator, overridable per statement via ^(limit: N). It
// does not set map/filter concurrency, which defaults to 1.
const DefaultIterationLimit = 10000

// Options configures a new runtime context.
type Options struct {
	Functions      map[string]*HostFunction
	Callbacks      Callbacks
	Observability  Observability
	Variables      map[string]Value
	AutoExceptions []AutoException
	IterationLimit int
}

// Context holds everything the evaluator reads or mutates during one
// execution: the environment chain, the host function table, callbacks,
// observability hooks, the annotation stack, the pipe value, auto-exception
// patterns, and iteration defaults. The abort signal is the context.Context
// threaded through evaluation.
type Context struct {
	env            *Environment
	functions      map[string]*HostFunction
	callbacks      Callbacks
	obs            Observability
	autoExceptions []AutoException
	iterationLimit int
	annotations    *annotationStack
	pipe           Value
}

// annotationStack is shared between a context and its children so nested
// evaluation sees the annotations in force at the current statement.
type annotationStack struct {
	frames []map[string]Value
}

// New creates a runtime context for one execution.
func New(opts Options) *Context {
	rtc := &Context{
		env:            NewEnvironment(),
		functions:      map[string]*HostFunction{},
		callbacks:      opts.Callbacks,
		obs:            opts.Observability,
		autoExceptions: opts.AutoExceptions,
		iterationLimit: opts.IterationLimit,
		annotations:    &annotationStack{},
	}
	if rtc.iterationLimit <= 0 {
		rtc.iterationLimit = DefaultIterationLimit
	}
	for name, fn := range opts.Functions {
		rtc.functions[name] = fn
	}
	for name, value := range opts.Variables {
		rtc.env.Seed(name, value)
	}
	return rtc
}

// NewChild creates a child context: functions, callbacks, hooks, and the
// annotation stack are inherited; the variable map is fresh with the parent
// linked for lookup.
func NewChild(parent *Context) *Context {
	return &Context{
		env:            NewEnclosedEnvironment(parent.env),
		functions:      parent.functions,
		callbacks:      parent.callbacks,
		obs:            parent.obs,
		autoExceptions: parent.autoExceptions,
		iterationLimit: parent.iterationLimit,
		annotations:    parent.annotations,
		pipe:           parent.pipe,
	}
}

// WithEnv returns a context sharing everything with c but scoped to a fresh
// child of the given environment. Closure invocation uses it to execute in a
// child of the closure's defining scope.
func (c *Context) WithEnv(env *Environment) *Context {
	clone := *c
	clone.env = NewEnclosedEnvironment(env)
	return &clone
}

// Env returns the context's innermost environment.
func (c *Context) Env() *Environment {
	return c.env
}

// GetVariable resolves a variable through the scope chain.
func (c *Context) GetVariable(name string) (Value, bool) {
	return c.env.Get(name)
}

// HasVariable reports whether a variable resolves.
func (c *Context) HasVariable(name string) bool {
	return c.env.Has(name)
}

// SetVariable writes a variable to the innermost scope, honoring the type
// lock.
func (c *Context) SetVariable(name string, value Value) (lockedType string, ok bool) {
	return c.env.Set(name, value)
}

// Function resolves a host function by fully qualified name.
func (c *Context) Function(name string) (*HostFunction, bool) {
	fn, ok := c.functions[name]
	return fn, ok
}

// FunctionNames returns the registered host function names.
func (c *Context) FunctionNames() []string {
	names := make([]string, 0, len(c.functions))
	for name := range c.functions {
		names = append(names, name)
	}
	return names
}

// RegisterFunctions adds host functions to the table.
func (c *Context) RegisterFunctions(functions map[string]*HostFunction) {
	for name, fn := range functions {
		c.functions[name] = fn
	}
}

// Callbacks returns the userland logging callbacks.
func (c *Context) Callbacks() Callbacks {
	return c.callbacks
}

// Observability returns the statement driver hooks.
func (c *Context) Observability() Observability {
	return c.obs
}

// AutoExceptions returns the configured auto-exception patterns.
func (c *Context) AutoExceptions() []AutoException {
	return c.autoExceptions
}

// IterationLimit returns the default cap on loop iterations and iterator
// elements.
func (c *Context) IterationLimit() int {
	return c.iterationLimit
}

// PipeValue returns the current pipe value.
func (c *Context) PipeValue() Value {
	return c.pipe
}

// SetPipeValue sets the current pipe value.
func (c *Context) SetPipeValue(v Value) {
	c.pipe = v
}

// PushAnnotations pushes a statement's annotations onto the stack.
func (c *Context) PushAnnotations(frame map[string]Value) {
	c.annotations.frames = append(c.annotations.frames, frame)
}

// PopAnnotations pops the top annotation frame.
func (c *Context) PopAnnotations() {
	if n := len(c.annotations.frames); n > 0 {
		c.annotations.frames = c.annotations.frames[:n-1]
	}
}

// LookupAnnotation reads an annotation key from the innermost frame outward.
func (c *Context) LookupAnnotation(key string) (Value, bool) {
	frames := c.annotations.frames
	for i := len(frames) - 1; i >= 0; i-- {
		if v, ok := frames[i][key]; ok {
			return v, true
		}
	}
	return nil, false
}

// BindDictCallables attaches a back reference on each callable value of the
// dict so bound methods can resolve bare field access against it.
func (c *Context) BindDictCallables(dict *DictValue) *DictValue {
	bound := NewDict()
	for _, key := range dict.Keys() {
		v, _ := dict.Get(key)
		if closure, ok := v.(*ClosureValue); ok {
			v = closure.BindTo(bound)
		}
		bound.set(key, v)
	}
	return bound
}

// PrefixFunctions rekeys a host function table under a namespace:
// {"get": f} becomes {"ns::get": f}.
func PrefixFunctions(namespace string, functions map[string]*HostFunction) map[string]*HostFunction {
	prefixed := make(map[string]*HostFunction, len(functions))
	for name, fn := range functions {
		prefixed[namespace+"::"+name] = fn
	}
	return prefixed
}

// Extension is a bundle of host functions contributed by an embedding-side
// extension, with an optional teardown hook. Dispose is idempotent.
type Extension struct {
	Functions map[string]*HostFunction

	disposeOnce sync.Once
	dispose     func()
}

// NewExtension bundles functions with an optional dispose hook.
func NewExtension(functions map[string]*HostFunction, dispose func()) *Extension {
	return &Extension{Functions: functions, dispose: dispose}
}

// Dispose tears the extension down. Calling it more than once is safe.
func (e *Extension) Dispose() {
	e.disposeOnce.Do(func() {
		if e.dispose != nil {
			e.dispose()
		}
	})
}
