// Package errors provides the process-wide error code registry and the
// source-context formatting used for Rill diagnostics.
//
// The registry is the only process-wide state in the runtime: a mapping from
// stable error codes to their documentation, initialized once at startup.
package errors

import "sync"

// Info documents one error code.
type Info struct {
	Description string
	Cause       string
	Resolution  string
	Examples    []string
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Info{}
)

// Register adds or replaces the documentation for an error code.
func Register(code string, info Info) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = info
}

// Lookup returns the documentation for a code, if registered.
func Lookup(code string) (Info, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, ok := registry[code]
	return info, ok
}

// Codes returns all registered codes.
func Codes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

func init() {
	for code, info := range coreCodes {
		Register(code, info)
	}
}

// coreCodes documents the runtime error taxonomy.
var coreCodes = map[string]Info{
	"R_PARSE_INVALID": {
		Description: "the script contains unparseable statements",
		Cause:       "a recovery-mode parse produced RecoveryError nodes and the script was executed anyway",
		Resolution:  "fix the reported syntax errors before executing",
	},
	"R_UNDEFINED_VARIABLE": {
		Description: "a variable was read before being assigned",
		Cause:       "the name is not bound in the current scope chain",
		Resolution:  "capture a value into the variable with => before reading it",
		Examples:    []string{`"x" => $v` + "\n" + `$v -> .upper`},
	},
	"R_TYPE_MISMATCH": {
		Description: "a value's type does not match what the operation requires",
		Cause:       "Rill never coerces between types",
		Resolution:  "convert the value explicitly or fix the producing expression",
	},
	"R_TYPE_LOCK": {
		Description: "a variable was reassigned with a value of a different type",
		Cause:       "assignment locks a variable to its first assigned type",
		Resolution:  "use a new variable name for values of a different type",
	},
	"R_FIELD_MISSING": {
		Description: "a dict has no field with the requested key",
		Resolution:  "check with .?field or supply a ?? default",
	},
	"R_INDEX_RANGE": {
		Description: "a list index is out of bounds",
		Resolution:  "check .length before indexing",
	},
	"R_NON_BOOL_CONDITION": {
		Description: "a condition evaluated to a non-Bool value",
		Cause:       "piped conditionals and loop conditions require a Bool",
	},
	"R_EMPTY_BLOCK": {
		Description: "a block with no statements was evaluated",
	},
	"R_ITERATION_LIMIT": {
		Description: "a loop exceeded its iteration cap",
		Cause:       "loops default to a hard cap of 10000 iterations",
		Resolution:  "raise the cap per statement with ^(limit: N)",
	},
	"R_ABORTED": {
		Description: "execution was cancelled through the abort signal",
	},
	"R_AUTO_EXCEPTION": {
		Description: "a statement's value matched a configured auto-exception pattern",
	},
	"R_HOST_ERROR": {
		Description: "a host function returned an error",
		Cause:       "the wrapped message preserves what the host reported",
	},
	"R_DIVISION_BY_ZERO": {
		Description: "division or modulo by zero",
		Cause:       "Rill numbers never hold IEEE infinities or NaN",
	},
	"R_ASSERT_FAILED": {
		Description: "an assert condition evaluated to false",
	},
	"R_USER_ERROR": {
		Description: "a script raised an error with the error keyword",
	},
	"R_BAD_ARGUMENT": {
		Description: "a callable was invoked with the wrong arguments",
	},
	"R_NOT_CALLABLE": {
		Description: "a value that is not a callable was invoked",
	},
	"R_UNKNOWN_FUNCTION": {
		Description: "no host function is registered under the given name",
		Resolution:  "register the function on the runtime context, or check the namespace prefix",
	},
	"R_UNKNOWN_METHOD": {
		Description: "the value has no builtin method with the given name",
	},
	"R_BREAK_OUTSIDE_LOOP": {
		Description: "break was used outside a loop",
	},
	"R_RETURN_OUTSIDE": {
		Description: "return was used outside a closure",
	},
}
