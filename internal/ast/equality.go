package ast

// Equal reports structural equality of two nodes: variants match and all
// child structural fields are equal, ignoring spans. Closure equality in the
// runtime layers this relation with defining-scope identity.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch a := a.(type) {
	case *Script:
		b, ok := b.(*Script)
		return ok && a.Frontmatter == b.Frontmatter &&
			a.HasFrontmatter == b.HasFrontmatter &&
			equalStatements(a.Statements, b.Statements)

	case *ExprStatement:
		b, ok := b.(*ExprStatement)
		return ok && Equal(a.Chain, b.Chain)

	case *AnnotatedStatement:
		b, ok := b.(*AnnotatedStatement)
		if !ok || len(a.Annotations) != len(b.Annotations) {
			return false
		}
		for i := range a.Annotations {
			if !Equal(a.Annotations[i], b.Annotations[i]) {
				return false
			}
		}
		return Equal(a.Statement, b.Statement)

	case *Annotation:
		b, ok := b.(*Annotation)
		return ok && a.Key == b.Key && a.Spread == b.Spread && Equal(a.Value, b.Value)

	case *RecoveryError:
		b, ok := b.(*RecoveryError)
		return ok && a.Message == b.Message && a.Text == b.Text

	case *PipeChain:
		b, ok := b.(*PipeChain)
		if !ok || !Equal(a.Head, b.Head) || len(a.Pipes) != len(b.Pipes) {
			return false
		}
		for i := range a.Pipes {
			if !Equal(a.Pipes[i], b.Pipes[i]) {
				return false
			}
		}
		return equalTerminators(a.Terminator, b.Terminator)

	case *BinaryExpr:
		b, ok := b.(*BinaryExpr)
		return ok && a.Operator == b.Operator && Equal(a.Left, b.Left) && Equal(a.Right, b.Right)

	case *UnaryExpr:
		b, ok := b.(*UnaryExpr)
		return ok && a.Operator == b.Operator && Equal(a.Operand, b.Operand)

	case *PostfixExpr:
		b, ok := b.(*PostfixExpr)
		if !ok || !Equal(a.Primary, b.Primary) || len(a.Methods) != len(b.Methods) {
			return false
		}
		for i := range a.Methods {
			if !Equal(a.Methods[i], b.Methods[i]) {
				return false
			}
		}
		return Equal(a.Default, b.Default)

	case *MethodCall:
		b, ok := b.(*MethodCall)
		return ok && a.Name == b.Name && a.HasArgs == b.HasArgs && equalExprs(a.Args, b.Args)

	case *Invoke:
		b, ok := b.(*Invoke)
		return ok && equalExprs(a.Args, b.Args)

	case *Index:
		b, ok := b.(*Index)
		return ok && Equal(a.Key, b.Key)

	case *GroupedExpr:
		b, ok := b.(*GroupedExpr)
		return ok && Equal(a.Expr, b.Expr)

	case *Block:
		b, ok := b.(*Block)
		return ok && equalStatements(a.Statements, b.Statements)

	case *Conditional:
		b, ok := b.(*Conditional)
		return ok && Equal(a.Cond, b.Cond) && Equal(a.Then, b.Then) && Equal(a.Else, b.Else)

	case *Loop:
		b, ok := b.(*Loop)
		return ok && a.PostTest == b.PostTest && Equal(a.Cond, b.Cond) && Equal(a.Body, b.Body)

	case *Closure:
		b, ok := b.(*Closure)
		if !ok || len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !equalParams(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return Equal(a.Body, b.Body)

	case *StringLiteral:
		b, ok := b.(*StringLiteral)
		if !ok || a.Multiline != b.Multiline || len(a.Parts) != len(b.Parts) {
			return false
		}
		for i := range a.Parts {
			if !Equal(a.Parts[i], b.Parts[i]) {
				return false
			}
		}
		return true

	case *TextPart:
		b, ok := b.(*TextPart)
		return ok && a.Text == b.Text

	case *Interpolation:
		b, ok := b.(*Interpolation)
		return ok && Equal(a.Expr, b.Expr)

	case *NumberLiteral:
		b, ok := b.(*NumberLiteral)
		return ok && a.Value == b.Value

	case *BoolLiteral:
		b, ok := b.(*BoolLiteral)
		return ok && a.Value == b.Value

	case *TupleLiteral:
		b, ok := b.(*TupleLiteral)
		return ok && equalExprs(a.Elements, b.Elements) && Equal(a.Default, b.Default)

	case *DictLiteral:
		b, ok := b.(*DictLiteral)
		if !ok || len(a.Entries) != len(b.Entries) {
			return false
		}
		for i := range a.Entries {
			if a.Entries[i].Key != b.Entries[i].Key || !Equal(a.Entries[i].Value, b.Entries[i].Value) {
				return false
			}
		}
		return Equal(a.Default, b.Default)

	case *Variable:
		b, ok := b.(*Variable)
		if !ok || a.Name != b.Name || a.IsPipeVar != b.IsPipeVar ||
			a.IsAccumulator != b.IsAccumulator ||
			a.ExistenceCheck != b.ExistenceCheck ||
			len(a.AccessChain) != len(b.AccessChain) {
			return false
		}
		for i := range a.AccessChain {
			if !Equal(a.AccessChain[i], b.AccessChain[i]) {
				return false
			}
		}
		return Equal(a.Default, b.Default)

	case *FieldAccess:
		b, ok := b.(*FieldAccess)
		return ok && a.Name == b.Name

	case *ComputedAccess:
		b, ok := b.(*ComputedAccess)
		return ok && Equal(a.Key, b.Key)

	case *AnnotationAccess:
		b, ok := b.(*AnnotationAccess)
		return ok && a.Key == b.Key

	case *IndexAccess:
		b, ok := b.(*IndexAccess)
		return ok && Equal(a.Key, b.Key)

	case *HostCall:
		b, ok := b.(*HostCall)
		return ok && a.Namespace == b.Namespace && a.Name == b.Name &&
			a.HasArgs == b.HasArgs && equalExprs(a.Args, b.Args)

	case *ClosureCall:
		b, ok := b.(*ClosureCall)
		return ok && a.Name == b.Name && equalExprs(a.Args, b.Args)

	case *PipeInvoke:
		b, ok := b.(*PipeInvoke)
		return ok && equalExprs(a.Args, b.Args)

	case *Capture:
		b, ok := b.(*Capture)
		return ok && a.Name == b.Name && a.TypeName == b.TypeName

	case *BreakStmt:
		_, ok := b.(*BreakStmt)
		return ok

	case *ReturnStmt:
		_, ok := b.(*ReturnStmt)
		return ok

	case *PassStmt:
		_, ok := b.(*PassStmt)
		return ok

	case *Assert:
		b, ok := b.(*Assert)
		return ok && Equal(a.Cond, b.Cond)

	case *ErrorExpr:
		b, ok := b.(*ErrorExpr)
		return ok && Equal(a.Message, b.Message)

	case *Spread:
		b, ok := b.(*Spread)
		return ok && Equal(a.Expr, b.Expr)

	case *Destructure:
		b, ok := b.(*Destructure)
		return ok && equalPatterns(a.Patterns, b.Patterns)

	case *Slice:
		b, ok := b.(*Slice)
		return ok && Equal(a.Start, b.Start) && Equal(a.Stop, b.Stop) && Equal(a.Step, b.Step)

	case *TypeAssertion:
		b, ok := b.(*TypeAssertion)
		return ok && a.TypeName == b.TypeName && Equal(a.Target, b.Target)

	case *TypeCheck:
		b, ok := b.(*TypeCheck)
		return ok && a.TypeName == b.TypeName && Equal(a.Target, b.Target)

	case *EachExpr:
		b, ok := b.(*EachExpr)
		return ok && Equal(a.Body, b.Body) && Equal(a.Init, b.Init)

	case *MapExpr:
		b, ok := b.(*MapExpr)
		return ok && Equal(a.Body, b.Body)

	case *FoldExpr:
		b, ok := b.(*FoldExpr)
		return ok && Equal(a.Body, b.Body) && Equal(a.Init, b.Init)

	case *FilterExpr:
		b, ok := b.(*FilterExpr)
		return ok && Equal(a.Body, b.Body)
	}

	return false
}

func equalExprs(a, b []Expression) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalStatements(a, b []Statement) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalTerminators(a, b Terminator) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Equal(a, b)
}

func equalParams(a, b *Param) bool {
	return a.Name == b.Name && a.TypeName == b.TypeName && Equal(a.Default, b.Default)
}

func equalPatterns(a, b []*DestructurePattern) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Key != b[i].Key ||
			a[i].TypeName != b[i].TypeName || a[i].Skip != b[i].Skip ||
			!equalPatterns(a[i].Nested, b[i].Nested) {
			return false
		}
	}
	return true
}
