package ast

// Collection operators appear as pipe targets: `c -> each body`,
// `c -> map body`, `c -> fold body`, `c -> filter body`. The body is one of:
// an inline closure, a Block, a GroupedExpr, a variable holding a closure, a
// bare host call name, or `*` (spread of the element into the next call).

// EachExpr iterates a list or iterator sequentially, collecting results. The
// accumulator form `each(init) { ... }` exposes `$@` and collects the
// intermediate accumulator values (a scan).
type EachExpr struct {
	Base
	Body Expression
	Init Expression
}

func (e *EachExpr) expressionNode() {}

func (e *EachExpr) String() string {
	if e.Init != nil {
		return "each(" + e.Init.String() + ") " + e.Body.String()
	}
	return "each " + e.Body.String()
}

// MapExpr transforms elements, fanning out up to the `limit` annotation
// (default 1, sequential) while preserving input order in the output.
type MapExpr struct {
	Base
	Body Expression
}

func (m *MapExpr) expressionNode() {}

func (m *MapExpr) String() string {
	return "map " + m.Body.String()
}

// FoldExpr reduces sequentially, returning only the final accumulator. The
// `fold(init) { ... }` form exposes `$@`.
type FoldExpr struct {
	Base
	Body Expression
	Init Expression
}

func (f *FoldExpr) expressionNode() {}

func (f *FoldExpr) String() string {
	if f.Init != nil {
		return "fold(" + f.Init.String() + ") " + f.Body.String()
	}
	return "fold " + f.Body.String()
}

// FilterExpr keeps elements whose predicate is true, running up to the
// `limit` annotation in parallel and preserving input order.
type FilterExpr struct {
	Base
	Body Expression
}

func (f *FilterExpr) expressionNode() {}

func (f *FilterExpr) String() string {
	return "filter " + f.Body.String()
}
