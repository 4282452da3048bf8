package query

import (
	"fmt"
	"strings"

	"github.com/savasp/graphmodel-go/types"
)

// Shape describes what the result rows of a translated query carry.
type Shape int

const (
	// ShapeNodes rows carry one node per row under Alias.
	ShapeNodes Shape = iota
	// ShapeRelationships rows carry a relationship under Alias plus the
	// endpoint ids under StartColumn and EndColumn.
	ShapeRelationships
	// ShapeScalar rows carry a single scalar under Alias.
	ShapeScalar
	// ShapeProjection rows carry the projected or grouped columns.
	ShapeProjection
)

// Translation is the executable form of an operator chain: query text,
// bound parameters, and enough shape information for the caller to decode
// the rows.
type Translation struct {
	Cypher      string
	Params      map[string]any
	Shape       Shape
	Terminal    Terminal
	Alias       string
	StartColumn string
	EndColumn   string
	Columns     []string
	// Label is the node label results should hydrate as. Traversals move
	// it to the traversal target.
	Label string
}

// Translate turns a chain plus terminal into Cypher and parameters.
// Constructs outside the supported surface fail with a
// TRANSLATION_NOT_SUPPORTED error naming the construct.
func Translate(b *Builder, terminal Terminal) (*Translation, error) {
	return translate(b, terminal, nil)
}

// TranslateAll translates a chain terminated by All(pred): whether every
// element remaining in the chain satisfies pred.
func TranslateAll(b *Builder, pred Expr) (*Translation, error) {
	if pred == nil {
		return nil, types.NewTranslationError("All with a nil predicate")
	}
	return translate(b, TerminalAll, pred)
}

type translator struct {
	params map[string]any
	paramN int

	alias  string
	label  string
	target Target

	matches    []string
	wheres     []string
	orderKeys  []OrderKey
	skip       *int
	take       *int
	sel        *Select
	group      *GroupBy
	distinct   bool
	navAliases map[string]string
	aliasN     int
}

func translate(b *Builder, terminal Terminal, allPred Expr) (*Translation, error) {
	if b == nil || b.tail == nil {
		return nil, types.NewTranslationError("an empty operator chain")
	}
	t := &translator{
		params:     map[string]any{},
		navAliases: map[string]string{},
	}
	ops := b.Ops()
	src, ok := ops[0].(*Source)
	if !ok {
		return nil, types.NewTranslationError("a chain that does not start at a source")
	}
	if err := t.source(src); err != nil {
		return nil, err
	}
	for _, op := range ops[1:] {
		if err := t.apply(op); err != nil {
			return nil, err
		}
	}
	if allPred != nil {
		// All(p) counts the elements violating p; the set is empty
		// exactly when every element satisfies p.
		s, err := t.expr(Not(allPred), t.alias)
		if err != nil {
			return nil, err
		}
		t.wheres = append(t.wheres, s)
	}
	return t.render(terminal)
}

func (t *translator) source(src *Source) error {
	name, err := sanitizeIdent(src.Label)
	if err != nil {
		return err
	}
	t.target = src.Target
	t.label = src.Label
	switch src.Target {
	case TargetNodes:
		t.alias = "n"
		t.matches = append(t.matches, fmt.Sprintf("(n:%s)", name))
	case TargetRelationships:
		t.alias = "r"
		t.matches = append(t.matches, fmt.Sprintf("()-[r:%s]->()", name))
	default:
		return types.NewTranslationError(fmt.Sprintf("source target %d", src.Target))
	}
	return nil
}

func (t *translator) apply(op Op) error {
	switch v := op.(type) {
	case *Source:
		return types.NewTranslationError("a second source in one chain")
	case *Where:
		if t.group != nil {
			return types.NewTranslationError("Where after GroupBy")
		}
		s, err := t.expr(v.Pred, t.alias)
		if err != nil {
			return err
		}
		t.wheres = append(t.wheres, s)
		return nil
	case *Select:
		if t.sel != nil || t.group != nil {
			return types.NewTranslationError("more than one projection in a chain")
		}
		if len(v.Fields) == 0 {
			return types.NewTranslationError("a projection with no fields")
		}
		t.sel = v
		return nil
	case *OrderBy:
		if t.group != nil {
			return types.NewTranslationError("OrderBy after GroupBy")
		}
		if v.Reset {
			t.orderKeys = t.orderKeys[:0]
		}
		t.orderKeys = append(t.orderKeys, v.Keys...)
		return nil
	case *Skip:
		if v.N < 0 {
			return types.NewTranslationError("Skip with a negative count")
		}
		t.skip = &v.N
		return nil
	case *Take:
		if v.N < 0 {
			return types.NewTranslationError("Take with a negative count")
		}
		t.take = &v.N
		return nil
	case *Traverse:
		return t.traverse(v)
	case *GroupBy:
		if t.sel != nil || t.group != nil {
			return types.NewTranslationError("more than one projection in a chain")
		}
		if len(t.orderKeys) > 0 {
			return types.NewTranslationError("GroupBy after OrderBy")
		}
		t.group = v
		return nil
	default:
		return types.NewTranslationError(fmt.Sprintf("operator %T", op))
	}
}

func (t *translator) traverse(tr *Traverse) error {
	if t.target != TargetNodes {
		return types.NewTranslationError("Traverse on a relationship chain")
	}
	if t.sel != nil || t.group != nil {
		return types.NewTranslationError("Traverse after a projection")
	}
	// Order keys and paging render against the final alias; letting them
	// precede a traversal would silently re-scope them to the target.
	if len(t.orderKeys) > 0 || t.skip != nil || t.take != nil {
		return types.NewTranslationError("Traverse after OrderBy, Skip or Take")
	}
	if tr.MinDepth < 0 || tr.MaxDepth < tr.MinDepth {
		return types.NewValidationError(
			fmt.Sprintf("traversal depth range %d..%d is invalid", tr.MinDepth, tr.MaxDepth))
	}
	relType, err := sanitizeIdent(tr.Nav.RelType)
	if err != nil {
		return err
	}
	t.aliasN++
	next := fmt.Sprintf("t%d", t.aliasN)
	var label string
	if tr.Nav.TargetLabel != "" {
		l, err := sanitizeIdent(tr.Nav.TargetLabel)
		if err != nil {
			return err
		}
		label = ":" + l
	}
	// Depth bounds are validated non-negative ints and part of the
	// pattern grammar; they cannot be bound as parameters.
	depth := ""
	if tr.MinDepth != 1 || tr.MaxDepth != 1 {
		depth = fmt.Sprintf("*%d..%d", tr.MinDepth, tr.MaxDepth)
	}
	rel := fmt.Sprintf("[:%s%s]", relType, depth)
	var pattern string
	switch tr.Nav.Direction {
	case Outgoing:
		pattern = fmt.Sprintf("(%s)-%s->(%s%s)", t.alias, rel, next, label)
	case Incoming:
		pattern = fmt.Sprintf("(%s)<-%s-(%s%s)", t.alias, rel, next, label)
	case Both:
		pattern = fmt.Sprintf("(%s)-%s-(%s%s)", t.alias, rel, next, label)
	default:
		return types.NewTranslationError(fmt.Sprintf("traversal direction %d", tr.Nav.Direction))
	}
	t.matches = append(t.matches, pattern)
	t.alias = next
	t.label = tr.Nav.TargetLabel
	// Variable-length patterns can reach the same entity along several
	// paths; entity results must be distinct.
	t.distinct = true
	return nil
}

// bind registers v as a query parameter and returns its placeholder.
// Numeric literals are widened to the store-agnostic int64/float64 forms
// so bound values round-trip the same as serialized properties.
func (t *translator) bind(v any) string {
	switch x := v.(type) {
	case int:
		v = int64(x)
	case int8:
		v = int64(x)
	case int16:
		v = int64(x)
	case int32:
		v = int64(x)
	case float32:
		v = float64(x)
	}
	t.paramN++
	name := fmt.Sprintf("p%d", t.paramN)
	t.params[name] = v
	return "$" + name
}

// navFor returns the pattern variable for a navigation from base, adding
// the match pattern on first use. Repeated accesses through the same
// navigation share one pattern.
func (t *translator) navFor(base string, nav Nav) (string, error) {
	relType, err := sanitizeIdent(nav.RelType)
	if err != nil {
		return "", err
	}
	var label string
	if nav.TargetLabel != "" {
		l, err := sanitizeIdent(nav.TargetLabel)
		if err != nil {
			return "", err
		}
		label = ":" + l
	}
	key := fmt.Sprintf("%s|%s|%d|%s", base, relType, nav.Direction, nav.TargetLabel)
	if alias, ok := t.navAliases[key]; ok {
		return alias, nil
	}
	t.aliasN++
	alias := fmt.Sprintf("v%d", t.aliasN)
	var pattern string
	switch nav.Direction {
	case Outgoing:
		pattern = fmt.Sprintf("(%s)-[:%s]->(%s%s)", base, relType, alias, label)
	case Incoming:
		pattern = fmt.Sprintf("(%s)<-[:%s]-(%s%s)", base, relType, alias, label)
	case Both:
		pattern = fmt.Sprintf("(%s)-[:%s]-(%s%s)", base, relType, alias, label)
	default:
		return "", types.NewTranslationError(fmt.Sprintf("navigation direction %d", nav.Direction))
	}
	t.matches = append(t.matches, pattern)
	t.navAliases[key] = alias
	return alias, nil
}

// navPattern renders the inline pattern for COUNT/EXISTS subqueries.
func navPattern(base, inner string, nav Nav) (string, error) {
	relType, err := sanitizeIdent(nav.RelType)
	if err != nil {
		return "", err
	}
	var label string
	if nav.TargetLabel != "" {
		l, err := sanitizeIdent(nav.TargetLabel)
		if err != nil {
			return "", err
		}
		label = ":" + l
	}
	switch nav.Direction {
	case Outgoing:
		return fmt.Sprintf("(%s)-[:%s]->(%s%s)", base, relType, inner, label), nil
	case Incoming:
		return fmt.Sprintf("(%s)<-[:%s]-(%s%s)", base, relType, inner, label), nil
	case Both:
		return fmt.Sprintf("(%s)-[:%s]-(%s%s)", base, relType, inner, label), nil
	default:
		return "", types.NewTranslationError(fmt.Sprintf("navigation direction %d", nav.Direction))
	}
}

func binarySymbol(op BinaryOp) string {
	switch op {
	case OpOr:
		return "OR"
	case OpAnd:
		return "AND"
	case OpEq:
		return "="
	case OpNe:
		return "<>"
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	default:
		return "?"
	}
}

func binaryPrec(op BinaryOp) int {
	switch op {
	case OpOr:
		return 1
	case OpAnd:
		return 2
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return 4
	case OpAdd, OpSub:
		return 5
	case OpMul, OpDiv, OpMod:
		return 6
	default:
		return 0
	}
}

func isLogical(op BinaryOp) bool {
	return op == OpAnd || op == OpOr
}

// rightNeedsOwnParens reports whether op is non-associative, so an
// equal-precedence right operand must keep its own grouping.
func rightNeedsOwnParens(op BinaryOp) bool {
	switch op {
	case OpSub, OpDiv, OpMod:
		return true
	default:
		return false
	}
}

// expr renders e with the query variable bound to alias.
func (t *translator) expr(e Expr, alias string) (string, error) {
	switch v := e.(type) {
	case *Param:
		return alias, nil
	case *Prop:
		if len(v.Path) != 1 {
			return "", types.NewTranslationError(
				"nested property access without a declared navigation")
		}
		name, err := sanitizeIdent(v.Path[0])
		if err != nil {
			return "", err
		}
		return alias + "." + name, nil
	case *Lit:
		return t.bind(v.Value), nil
	case *Binary:
		left, err := t.operand(v.Left, v.Op, false, alias)
		if err != nil {
			return "", err
		}
		right, err := t.operand(v.Right, v.Op, true, alias)
		if err != nil {
			return "", err
		}
		return left + " " + binarySymbol(v.Op) + " " + right, nil
	case *Unary:
		inner, err := t.expr(v.Operand, alias)
		if err != nil {
			return "", err
		}
		if needsParens(v.Operand) {
			inner = "(" + inner + ")"
		}
		if v.Op == OpNot {
			return "NOT " + inner, nil
		}
		return "-" + inner, nil
	case *Call:
		return t.call(v, alias)
	case *Cond:
		cond, err := t.expr(v.If, alias)
		if err != nil {
			return "", err
		}
		then, err := t.expr(v.Then, alias)
		if err != nil {
			return "", err
		}
		els, err := t.expr(v.Else, alias)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("CASE WHEN %s THEN %s ELSE %s END", cond, then, els), nil
	case *NavProp:
		if len(v.Path) != 1 {
			return "", types.NewTranslationError(
				"property access more than one navigation deep")
		}
		navAlias, err := t.navFor(alias, v.Nav)
		if err != nil {
			return "", err
		}
		name, err := sanitizeIdent(v.Path[0])
		if err != nil {
			return "", err
		}
		return navAlias + "." + name, nil
	case *NavCount:
		pattern, err := navPattern(alias, "", v.Nav)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("COUNT { %s }", pattern), nil
	case *NavExists:
		t.aliasN++
		inner := fmt.Sprintf("x%d", t.aliasN)
		pattern, err := navPattern(alias, inner, v.Nav)
		if err != nil {
			return "", err
		}
		pred, err := t.expr(v.Pred, inner)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("EXISTS { MATCH %s WHERE %s }", pattern, pred), nil
	default:
		return "", types.NewTranslationError(fmt.Sprintf("expression %T", e))
	}
}

// operand renders a child of a binary expression, parenthesizing when the
// child binds looser than the parent, when mixing AND with OR, or when an
// equal-precedence right operand sits under a non-associative operator.
func (t *translator) operand(e Expr, parent BinaryOp, right bool, alias string) (string, error) {
	s, err := t.expr(e, alias)
	if err != nil {
		return "", err
	}
	child, ok := e.(*Binary)
	if !ok {
		return s, nil
	}
	cp, pp := binaryPrec(child.Op), binaryPrec(parent)
	switch {
	case cp < pp:
		return "(" + s + ")", nil
	case isLogical(parent) && isLogical(child.Op) && child.Op != parent:
		return "(" + s + ")", nil
	case cp == pp && right && rightNeedsOwnParens(parent):
		return "(" + s + ")", nil
	default:
		return s, nil
	}
}

func needsParens(e Expr) bool {
	_, ok := e.(*Binary)
	return ok
}

func (t *translator) call(c *Call, alias string) (string, error) {
	arg := func(i int) (string, error) {
		if i >= len(c.Args) {
			return "", types.NewTranslationError("a call with missing arguments")
		}
		return t.expr(c.Args[i], alias)
	}
	switch c.Fn {
	case FnStartsWith, FnEndsWith, FnContains:
		recv, err := arg(0)
		if err != nil {
			return "", err
		}
		operand, err := arg(1)
		if err != nil {
			return "", err
		}
		kw := map[Fn]string{
			FnStartsWith: "STARTS WITH",
			FnEndsWith:   "ENDS WITH",
			FnContains:   "CONTAINS",
		}[c.Fn]
		return recv + " " + kw + " " + operand, nil
	case FnToLower, FnToUpper, FnTrim, FnSize, FnAbs:
		recv, err := arg(0)
		if err != nil {
			return "", err
		}
		fn := map[Fn]string{
			FnToLower: "toLower",
			FnToUpper: "toUpper",
			FnTrim:    "trim",
			FnSize:    "size",
			FnAbs:     "abs",
		}[c.Fn]
		return fmt.Sprintf("%s(%s)", fn, recv), nil
	case FnYear, FnMonth, FnDay:
		recv, err := arg(0)
		if err != nil {
			return "", err
		}
		// Times are stored as RFC 3339 strings; datetime() parses them.
		comp := map[Fn]string{
			FnYear:  "year",
			FnMonth: "month",
			FnDay:   "day",
		}[c.Fn]
		return fmt.Sprintf("datetime(%s).%s", recv, comp), nil
	default:
		return "", types.NewTranslationError(fmt.Sprintf("function %d", c.Fn))
	}
}

func (t *translator) render(terminal Terminal) (*Translation, error) {
	out := &Translation{
		Params:   t.params,
		Terminal: terminal,
		Label:    t.label,
	}
	var sb strings.Builder
	for i, pattern := range t.matches {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("MATCH ")
		sb.WriteString(pattern)
	}
	if len(t.wheres) > 0 {
		sb.WriteString("\nWHERE ")
		if len(t.wheres) == 1 {
			sb.WriteString(t.wheres[0])
		} else {
			clauses := make([]string, len(t.wheres))
			for i, w := range t.wheres {
				clauses[i] = "(" + w + ")"
			}
			sb.WriteString(strings.Join(clauses, " AND "))
		}
	}

	orderable := true
	switch terminal {
	case TerminalCount, TerminalAny, TerminalAll:
		if t.skip != nil || t.take != nil {
			return nil, types.NewTranslationError(terminal.String() + " after Skip or Take")
		}
		orderable = false
	}
	if terminal == TerminalLast && len(t.orderKeys) == 0 {
		return nil, types.NewTranslationError("Last on an unordered chain")
	}

	switch {
	case t.group != nil:
		if err := t.renderGroup(&sb, terminal, out); err != nil {
			return nil, err
		}
		return out, nil
	case terminal == TerminalCount:
		fmt.Fprintf(&sb, "\nRETURN count(%s) AS value", t.countArg())
		out.Shape = ShapeScalar
		out.Alias = "value"
	case terminal == TerminalAny:
		fmt.Fprintf(&sb, "\nRETURN count(%s) > 0 AS value", t.countArg())
		out.Shape = ShapeScalar
		out.Alias = "value"
	case terminal == TerminalAll:
		// The violating-element filter is already in WHERE.
		fmt.Fprintf(&sb, "\nRETURN count(%s) = 0 AS value", t.countArg())
		out.Shape = ShapeScalar
		out.Alias = "value"
	case t.sel != nil:
		cols := make([]string, 0, len(t.sel.Fields))
		out.Columns = make([]string, 0, len(t.sel.Fields))
		for _, f := range t.sel.Fields {
			alias, err := sanitizeIdent(f.Alias)
			if err != nil {
				return nil, err
			}
			s, err := t.expr(f.Expr, t.alias)
			if err != nil {
				return nil, err
			}
			cols = append(cols, s+" AS "+alias)
			out.Columns = append(out.Columns, alias)
		}
		sb.WriteString("\nRETURN ")
		if t.distinct {
			sb.WriteString("DISTINCT ")
		}
		sb.WriteString(strings.Join(cols, ", "))
		out.Shape = ShapeProjection
	case t.target == TargetRelationships:
		sb.WriteString("\nRETURN r, startNode(r).id AS start_id, endNode(r).id AS end_id")
		out.Shape = ShapeRelationships
		out.Alias = "r"
		out.StartColumn = "start_id"
		out.EndColumn = "end_id"
	default:
		sb.WriteString("\nRETURN ")
		if t.distinct {
			sb.WriteString("DISTINCT ")
		}
		sb.WriteString(t.alias)
		out.Shape = ShapeNodes
		out.Alias = t.alias
	}

	if orderable && len(t.orderKeys) > 0 {
		keys := t.orderKeys
		if terminal == TerminalLast {
			keys = make([]OrderKey, len(t.orderKeys))
			for i, k := range t.orderKeys {
				keys[i] = OrderKey{Key: k.Key, Descending: !k.Descending}
			}
		}
		items := make([]string, len(keys))
		for i, k := range keys {
			s, err := t.expr(k.Key, t.alias)
			if err != nil {
				return nil, err
			}
			if k.Descending {
				s += " DESC"
			}
			items[i] = s
		}
		sb.WriteString("\nORDER BY ")
		sb.WriteString(strings.Join(items, ", "))
	}

	if t.skip != nil && orderable {
		fmt.Fprintf(&sb, "\nSKIP %s", t.bind(int64(*t.skip)))
	}
	switch terminal {
	case TerminalFirst, TerminalFirstOrDefault, TerminalLast:
		sb.WriteString("\nLIMIT 1")
	case TerminalSingle, TerminalSingleOrDefault:
		// Two rows are enough to prove non-uniqueness.
		sb.WriteString("\nLIMIT 2")
	default:
		if t.take != nil && orderable {
			fmt.Fprintf(&sb, "\nLIMIT %s", t.bind(int64(*t.take)))
		}
	}

	out.Cypher = sb.String()
	return out, nil
}

func (t *translator) countArg() string {
	if t.distinct {
		return "DISTINCT " + t.alias
	}
	return t.alias
}

func (t *translator) renderGroup(sb *strings.Builder, terminal Terminal, out *Translation) error {
	switch terminal {
	case TerminalList, TerminalFirst, TerminalFirstOrDefault,
		TerminalSingle, TerminalSingleOrDefault:
	default:
		return types.NewTranslationError(terminal.String() + " after GroupBy")
	}
	g := t.group
	keyAlias, err := sanitizeIdent(g.KeyAlias)
	if err != nil {
		return err
	}
	key, err := t.expr(g.Key, t.alias)
	if err != nil {
		return err
	}
	cols := []string{key + " AS " + keyAlias}
	out.Columns = []string{keyAlias}
	for _, agg := range g.Aggregates {
		alias, err := sanitizeIdent(agg.Alias)
		if err != nil {
			return err
		}
		var arg string
		if agg.Arg != nil {
			arg, err = t.expr(agg.Arg, t.alias)
			if err != nil {
				return err
			}
		} else if agg.Fn == AggCount {
			arg = t.alias
		} else {
			return types.NewTranslationError("an aggregate with no argument")
		}
		var fn string
		switch agg.Fn {
		case AggCount:
			fn = "count"
		case AggSum:
			fn = "sum"
		case AggAvg:
			fn = "avg"
		case AggMin:
			fn = "min"
		case AggMax:
			fn = "max"
		case AggCollect:
			fn = "collect"
		default:
			return types.NewTranslationError(fmt.Sprintf("aggregate function %d", agg.Fn))
		}
		cols = append(cols, fmt.Sprintf("%s(%s) AS %s", fn, arg, alias))
		out.Columns = append(out.Columns, alias)
	}
	sb.WriteString("\nRETURN ")
	sb.WriteString(strings.Join(cols, ", "))
	if t.skip != nil {
		fmt.Fprintf(sb, "\nSKIP %s", t.bind(int64(*t.skip)))
	}
	switch terminal {
	case TerminalFirst, TerminalFirstOrDefault:
		sb.WriteString("\nLIMIT 1")
	case TerminalSingle, TerminalSingleOrDefault:
		sb.WriteString("\nLIMIT 2")
	default:
		if t.take != nil {
			fmt.Fprintf(sb, "\nLIMIT %s", t.bind(int64(*t.take)))
		}
	}
	out.Cypher = sb.String()
	out.Shape = ShapeProjection
	return nil
}

// sanitizeIdent validates a name spliced into query text where parameters
// are not allowed (labels, relationship types, property names, aliases).
func sanitizeIdent(name string) (string, error) {
	if name == "" {
		return "", types.NewValidationError("identifier must not be empty")
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return "", types.NewValidationError(
					fmt.Sprintf("identifier %q must not start with a digit", name))
			}
		default:
			return "", types.NewValidationError(
				fmt.Sprintf("identifier %q contains the invalid character %q", name, r))
		}
	}
	return name, nil
}
