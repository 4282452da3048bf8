package query

// Target selects what kind of entity a query ranges over.
type Target int

const (
	// TargetNodes queries nodes by label.
	TargetNodes Target = iota
	// TargetRelationships queries relationships by type.
	TargetRelationships
)

// Op is an operator in the query chain. The concrete types form a closed
// set mirroring the supported operator surface.
type Op interface {
	isOp()
}

// Source is the root of every chain: all entities with a given label or
// relationship type.
type Source struct {
	Label  string
	Target Target
}

// Where filters by a predicate over the query variable.
type Where struct {
	Pred Expr
}

// Field is one projected column.
type Field struct {
	Alias string
	Expr  Expr
}

// Select projects the query variable into named columns. A projected
// query returns maps instead of hydrated entities.
type Select struct {
	Fields []Field
}

// OrderKey is one sort key.
type OrderKey struct {
	Key        Expr
	Descending bool
}

// OrderBy appends sort keys. Reset discards keys established by earlier
// OrderBy operators, matching primary-key versus then-by semantics.
type OrderBy struct {
	Keys  []OrderKey
	Reset bool
}

// Skip discards the first N results. N is bound as a query parameter.
type Skip struct {
	N int
}

// Take caps the result count at N. N is bound as a query parameter.
type Take struct {
	N int
}

// Traverse moves the query variable across a relationship pattern with a
// bounded depth range. Subsequent operators apply to the reached entities.
type Traverse struct {
	Nav      Nav
	MinDepth int
	MaxDepth int
}

// AggFn enumerates aggregate functions usable under GroupBy.
type AggFn int

const (
	AggCount AggFn = iota
	AggSum
	AggAvg
	AggMin
	AggMax
	AggCollect
)

// Aggregate is one aggregated column of a grouped query.
type Aggregate struct {
	Alias string
	Fn    AggFn
	Arg   Expr
}

// GroupBy groups by a key expression and computes aggregates per group.
// Grouped queries return maps keyed by KeyAlias and the aggregate aliases.
type GroupBy struct {
	Key        Expr
	KeyAlias   string
	Aggregates []Aggregate
}

func (*Source) isOp()   {}
func (*Where) isOp()    {}
func (*Select) isOp()   {}
func (*OrderBy) isOp()  {}
func (*Skip) isOp()     {}
func (*Take) isOp()     {}
func (*Traverse) isOp() {}
func (*GroupBy) isOp()  {}

// Terminal selects how a chain is executed and shaped.
type Terminal int

const (
	// TerminalList returns all results.
	TerminalList Terminal = iota
	// TerminalCount returns the number of results.
	TerminalCount
	// TerminalAny reports whether any result exists.
	TerminalAny
	// TerminalAll reports whether every result satisfies a predicate.
	TerminalAll
	// TerminalFirst returns the first result and fails on an empty set.
	TerminalFirst
	// TerminalFirstOrDefault returns the first result or nothing.
	TerminalFirstOrDefault
	// TerminalSingle returns the only result and fails on zero or many.
	TerminalSingle
	// TerminalSingleOrDefault returns the only result, nothing on empty,
	// and fails on many.
	TerminalSingleOrDefault
	// TerminalLast returns the final result of an ordered chain.
	TerminalLast
)

// String returns the operator name of the Terminal.
func (t Terminal) String() string {
	switch t {
	case TerminalList:
		return "ToList"
	case TerminalCount:
		return "Count"
	case TerminalAny:
		return "Any"
	case TerminalAll:
		return "All"
	case TerminalFirst:
		return "First"
	case TerminalFirstOrDefault:
		return "FirstOrDefault"
	case TerminalSingle:
		return "Single"
	case TerminalSingleOrDefault:
		return "SingleOrDefault"
	case TerminalLast:
		return "Last"
	default:
		return "unknown"
	}
}

type opNode struct {
	op   Op
	prev *opNode
}

// Builder is an immutable operator chain. Each method returns a new
// Builder sharing the existing chain, so a partially built query can be
// forked and extended concurrently without copying.
type Builder struct {
	tail *opNode
}

// NewNodes starts a chain over all nodes with the given label.
func NewNodes(label string) *Builder {
	return &Builder{tail: &opNode{op: &Source{Label: label, Target: TargetNodes}}}
}

// NewRelationships starts a chain over all relationships of the given type.
func NewRelationships(relType string) *Builder {
	return &Builder{tail: &opNode{op: &Source{Label: relType, Target: TargetRelationships}}}
}

func (b *Builder) push(op Op) *Builder {
	return &Builder{tail: &opNode{op: op, prev: b.tail}}
}

// Where filters the chain by pred.
func (b *Builder) Where(pred Expr) *Builder {
	return b.push(&Where{Pred: pred})
}

// Select projects the chain into the given fields.
func (b *Builder) Select(fields ...Field) *Builder {
	return b.push(&Select{Fields: fields})
}

// OrderBy establishes the primary ascending sort key, discarding any
// earlier ordering.
func (b *Builder) OrderBy(key Expr) *Builder {
	return b.push(&OrderBy{Keys: []OrderKey{{Key: key}}, Reset: true})
}

// OrderByDescending establishes the primary descending sort key,
// discarding any earlier ordering.
func (b *Builder) OrderByDescending(key Expr) *Builder {
	return b.push(&OrderBy{Keys: []OrderKey{{Key: key, Descending: true}}, Reset: true})
}

// ThenBy appends a secondary ascending sort key.
func (b *Builder) ThenBy(key Expr) *Builder {
	return b.push(&OrderBy{Keys: []OrderKey{{Key: key}}})
}

// ThenByDescending appends a secondary descending sort key.
func (b *Builder) ThenByDescending(key Expr) *Builder {
	return b.push(&OrderBy{Keys: []OrderKey{{Key: key, Descending: true}}})
}

// Skip discards the first n results.
func (b *Builder) Skip(n int) *Builder {
	return b.push(&Skip{N: n})
}

// Take caps the result count at n.
func (b *Builder) Take(n int) *Builder {
	return b.push(&Take{N: n})
}

// Traverse moves the chain across nav within the given depth range.
func (b *Builder) Traverse(nav Nav, minDepth, maxDepth int) *Builder {
	return b.push(&Traverse{Nav: nav, MinDepth: minDepth, MaxDepth: maxDepth})
}

// TraverseOne moves the chain across a single hop of nav.
func (b *Builder) TraverseOne(nav Nav) *Builder {
	return b.push(&Traverse{Nav: nav, MinDepth: 1, MaxDepth: 1})
}

// GroupBy groups the chain by key and computes aggregates per group.
func (b *Builder) GroupBy(key Expr, keyAlias string, aggregates ...Aggregate) *Builder {
	return b.push(&GroupBy{Key: key, KeyAlias: keyAlias, Aggregates: aggregates})
}

// Ops returns the chain in source-first order.
func (b *Builder) Ops() []Op {
	var n int
	for node := b.tail; node != nil; node = node.prev {
		n++
	}
	ops := make([]Op, n)
	for node := b.tail; node != nil; node = node.prev {
		n--
		ops[n] = node.op
	}
	return ops
}
