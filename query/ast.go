// Package query builds Cypher from a composed chain of query operators.
// The operator chain and the predicate/projection bodies are explicit
// tagged-union ASTs; the translator is exhaustive over them, so an
// unsupported construct fails at query-build time with a
// TRANSLATION_NOT_SUPPORTED error naming the construct, never at the store.
package query

// Direction defines the direction for relationship traversal.
type Direction int

const (
	// Outgoing follows relationship arrows.
	Outgoing Direction = iota
	// Incoming reverses relationship arrows.
	Incoming
	// Both ignores relationship direction.
	Both
)

// String returns the string representation of the Direction.
func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "outgoing"
	case Incoming:
		return "incoming"
	case Both:
		return "both"
	default:
		return "unknown"
	}
}

// Expr is a node in the expression tree of a predicate or projection body.
// The concrete types form a closed set; the translator matches all of them.
type Expr interface {
	isExpr()
}

// Param refers to the query variable itself (the lambda parameter).
type Param struct{}

// Prop is a property access on the query variable, e.g. n.name.
// The path must be a single segment; reaching through a related entity
// requires a declared navigation (see Nav).
type Prop struct {
	Path []string
}

// Lit is a literal value supplied from outside the query body.
// Literals are always bound as query parameters, never interpolated.
type Lit struct {
	Value any
}

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	OpOr BinaryOp = iota
	OpAnd
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

// Binary combines two expressions with a binary operator. Nesting follows
// the source tree exactly; the translator preserves the left-associative
// structure with explicit parentheses where needed.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

// Unary applies a unary operator to an expression.
type Unary struct {
	Op      UnaryOp
	Operand Expr
}

// Fn enumerates supported method calls on expressions.
type Fn int

const (
	FnStartsWith Fn = iota
	FnEndsWith
	FnContains
	FnToLower
	FnToUpper
	FnTrim
	FnSize
	FnAbs
	FnYear
	FnMonth
	FnDay
)

// Call applies a function to its arguments. Args[0] is the receiver.
type Call struct {
	Fn   Fn
	Args []Expr
}

// Cond is a conditional expression (CASE WHEN ... THEN ... ELSE ... END).
type Cond struct {
	If   Expr
	Then Expr
	Else Expr
}

// Nav declares a navigation step: following a typed relationship from the
// query variable to a target entity. Property access through a navigation
// becomes a graph pattern match, not a property reference.
type Nav struct {
	RelType     string
	Direction   Direction
	TargetLabel string
}

// NavProp accesses a property of the entity reached by a navigation,
// e.g. p.Address.City. Translates to a bounded pattern match plus a
// property reference on the pattern's target variable.
type NavProp struct {
	Nav  Nav
	Path []string
}

// NavCount counts navigation edges. Translates to a COUNT pattern
// subquery, not a size-of-array call.
type NavCount struct {
	Nav Nav
}

// NavExists tests whether any navigation target satisfies a predicate.
// Pred is evaluated with the query variable bound to the target.
// Translates to an EXISTS pattern subquery.
type NavExists struct {
	Nav  Nav
	Pred Expr
}

func (*Param) isExpr()     {}
func (*Prop) isExpr()      {}
func (*Lit) isExpr()       {}
func (*Binary) isExpr()    {}
func (*Unary) isExpr()     {}
func (*Call) isExpr()      {}
func (*Cond) isExpr()      {}
func (*NavProp) isExpr()   {}
func (*NavCount) isExpr()  {}
func (*NavExists) isExpr() {}

// Expression constructors. These keep call sites close to the shape of
// the original lambda bodies.

// Self returns the query variable.
func Self() Expr { return &Param{} }

// P accesses a property on the query variable.
func P(name string) Expr { return &Prop{Path: []string{name}} }

// V binds a literal value as a query parameter.
func V(value any) Expr { return &Lit{Value: value} }

// And combines predicates left-associatively.
func And(left, right Expr) Expr { return &Binary{Op: OpAnd, Left: left, Right: right} }

// Or combines predicates left-associatively.
func Or(left, right Expr) Expr { return &Binary{Op: OpOr, Left: left, Right: right} }

// Not negates a predicate.
func Not(operand Expr) Expr { return &Unary{Op: OpNot, Operand: operand} }

// Neg arithmetically negates an expression.
func Neg(operand Expr) Expr { return &Unary{Op: OpNeg, Operand: operand} }

func Eq(left, right Expr) Expr { return &Binary{Op: OpEq, Left: left, Right: right} }
func Ne(left, right Expr) Expr { return &Binary{Op: OpNe, Left: left, Right: right} }
func Lt(left, right Expr) Expr { return &Binary{Op: OpLt, Left: left, Right: right} }
func Le(left, right Expr) Expr { return &Binary{Op: OpLe, Left: left, Right: right} }
func Gt(left, right Expr) Expr { return &Binary{Op: OpGt, Left: left, Right: right} }
func Ge(left, right Expr) Expr { return &Binary{Op: OpGe, Left: left, Right: right} }

func Add(left, right Expr) Expr { return &Binary{Op: OpAdd, Left: left, Right: right} }
func Sub(left, right Expr) Expr { return &Binary{Op: OpSub, Left: left, Right: right} }
func Mul(left, right Expr) Expr { return &Binary{Op: OpMul, Left: left, Right: right} }
func Div(left, right Expr) Expr { return &Binary{Op: OpDiv, Left: left, Right: right} }
func Mod(left, right Expr) Expr { return &Binary{Op: OpMod, Left: left, Right: right} }

func StartsWith(receiver, prefix Expr) Expr {
	return &Call{Fn: FnStartsWith, Args: []Expr{receiver, prefix}}
}

func EndsWith(receiver, suffix Expr) Expr {
	return &Call{Fn: FnEndsWith, Args: []Expr{receiver, suffix}}
}

func Contains(receiver, substring Expr) Expr {
	return &Call{Fn: FnContains, Args: []Expr{receiver, substring}}
}

func ToLower(receiver Expr) Expr { return &Call{Fn: FnToLower, Args: []Expr{receiver}} }
func ToUpper(receiver Expr) Expr { return &Call{Fn: FnToUpper, Args: []Expr{receiver}} }
func Trim(receiver Expr) Expr    { return &Call{Fn: FnTrim, Args: []Expr{receiver}} }

// SizeOf returns the size of a simple collection property.
// For navigation counts use Nav.Count instead.
func SizeOf(receiver Expr) Expr { return &Call{Fn: FnSize, Args: []Expr{receiver}} }

func Abs(receiver Expr) Expr { return &Call{Fn: FnAbs, Args: []Expr{receiver}} }

// Year, Month and Day extract date components from a stored time value.
func Year(receiver Expr) Expr  { return &Call{Fn: FnYear, Args: []Expr{receiver}} }
func Month(receiver Expr) Expr { return &Call{Fn: FnMonth, Args: []Expr{receiver}} }
func Day(receiver Expr) Expr   { return &Call{Fn: FnDay, Args: []Expr{receiver}} }

// If builds a conditional expression.
func If(cond, then, els Expr) Expr { return &Cond{If: cond, Then: then, Else: els} }

// Related declares a navigation over an outgoing relationship.
func Related(relType, targetLabel string) Nav {
	return Nav{RelType: relType, Direction: Outgoing, TargetLabel: targetLabel}
}

// RelatedIn declares a navigation over an incoming relationship.
func RelatedIn(relType, targetLabel string) Nav {
	return Nav{RelType: relType, Direction: Incoming, TargetLabel: targetLabel}
}

// Prop accesses a property of the navigation target.
func (n Nav) Prop(name string) Expr {
	return &NavProp{Nav: n, Path: []string{name}}
}

// Count counts navigation edges as a pattern subquery.
func (n Nav) Count() Expr {
	return &NavCount{Nav: n}
}

// Any tests whether some navigation target satisfies pred.
func (n Nav) Any(pred Expr) Expr {
	return &NavExists{Nav: n, Pred: pred}
}
