package graphmodel

import (
	"context"

	"github.com/savasp/graphmodel-go/graph"
	"github.com/savasp/graphmodel-go/query"
	"github.com/savasp/graphmodel-go/types"
)

// Nodes starts a query over all nodes with the given label. The chain is
// immutable: every operator returns a new query, so a base query can be
// forked safely.
func (g *Graph) Nodes(label string) *NodeQuery {
	return &NodeQuery{g: g, b: query.NewNodes(label)}
}

// Relationships starts a query over all relationships of the given type.
func (g *Graph) Relationships(relType string) *RelationshipQuery {
	return &RelationshipQuery{g: g, b: query.NewRelationships(relType)}
}

// NodeQuery is a composable query over node entities.
type NodeQuery struct {
	g *Graph
	b *query.Builder
}

func (q *NodeQuery) derive(b *query.Builder) *NodeQuery {
	return &NodeQuery{g: q.g, b: b}
}

// Where filters by pred.
func (q *NodeQuery) Where(pred query.Expr) *NodeQuery { return q.derive(q.b.Where(pred)) }

// OrderBy sorts ascending by key, replacing any earlier ordering.
func (q *NodeQuery) OrderBy(key query.Expr) *NodeQuery { return q.derive(q.b.OrderBy(key)) }

// OrderByDescending sorts descending by key, replacing any earlier
// ordering.
func (q *NodeQuery) OrderByDescending(key query.Expr) *NodeQuery {
	return q.derive(q.b.OrderByDescending(key))
}

// ThenBy adds a secondary ascending sort key.
func (q *NodeQuery) ThenBy(key query.Expr) *NodeQuery { return q.derive(q.b.ThenBy(key)) }

// ThenByDescending adds a secondary descending sort key.
func (q *NodeQuery) ThenByDescending(key query.Expr) *NodeQuery {
	return q.derive(q.b.ThenByDescending(key))
}

// Skip discards the first n results.
func (q *NodeQuery) Skip(n int) *NodeQuery { return q.derive(q.b.Skip(n)) }

// Take caps the result count at n.
func (q *NodeQuery) Take(n int) *NodeQuery { return q.derive(q.b.Take(n)) }

// Traverse moves the query across nav within the given depth range;
// later operators apply to the reached nodes.
func (q *NodeQuery) Traverse(nav query.Nav, minDepth, maxDepth int) *NodeQuery {
	return q.derive(q.b.Traverse(nav, minDepth, maxDepth))
}

// TraverseOne moves the query across a single hop of nav.
func (q *NodeQuery) TraverseOne(nav query.Nav) *NodeQuery {
	return q.derive(q.b.TraverseOne(nav))
}

// Select projects into named columns; the query then yields maps.
func (q *NodeQuery) Select(fields ...query.Field) *MapQuery {
	return &MapQuery{g: q.g, b: q.b.Select(fields...)}
}

// GroupBy groups by key and computes aggregates per group; the query
// then yields maps.
func (q *NodeQuery) GroupBy(key query.Expr, keyAlias string, aggregates ...query.Aggregate) *MapQuery {
	return &MapQuery{g: q.g, b: q.b.GroupBy(key, keyAlias, aggregates...)}
}

// ToList returns all matching nodes, complex properties included.
func (q *NodeQuery) ToList(ctx context.Context) ([]Node, error) {
	return q.exec(ctx, query.TerminalList)
}

// First returns the first result and fails with NOT_FOUND on an empty
// set. Ordering decides which result is first.
func (q *NodeQuery) First(ctx context.Context) (Node, error) {
	items, err := q.exec(ctx, query.TerminalFirst)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errNoResults()
	}
	return items[0], nil
}

// FirstOrDefault returns the first result, or nil on an empty set.
func (q *NodeQuery) FirstOrDefault(ctx context.Context) (Node, error) {
	items, err := q.exec(ctx, query.TerminalFirstOrDefault)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// Single returns the only result. An empty set is NOT_FOUND; more than
// one result is a CONFLICT.
func (q *NodeQuery) Single(ctx context.Context) (Node, error) {
	items, err := q.exec(ctx, query.TerminalSingle)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 0:
		return nil, errNoResults()
	case 1:
		return items[0], nil
	default:
		return nil, errManyResults()
	}
}

// SingleOrDefault returns the only result, nil on an empty set, and a
// CONFLICT on more than one result.
func (q *NodeQuery) SingleOrDefault(ctx context.Context) (Node, error) {
	items, err := q.exec(ctx, query.TerminalSingleOrDefault)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 0:
		return nil, nil
	case 1:
		return items[0], nil
	default:
		return nil, errManyResults()
	}
}

// Last returns the final result of an ordered query. An unordered query
// fails at translation.
func (q *NodeQuery) Last(ctx context.Context) (Node, error) {
	items, err := q.exec(ctx, query.TerminalLast)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errNoResults()
	}
	return items[0], nil
}

// Count returns the number of results.
func (q *NodeQuery) Count(ctx context.Context) (int64, error) {
	v, err := q.g.execScalar(ctx, q.b, query.TerminalCount, nil)
	if err != nil {
		return 0, err
	}
	return AsInt(v)
}

// Any reports whether the query has any result.
func (q *NodeQuery) Any(ctx context.Context) (bool, error) {
	v, err := q.g.execScalar(ctx, q.b, query.TerminalAny, nil)
	if err != nil {
		return false, err
	}
	return AsBool(v)
}

// All reports whether every result satisfies pred. An empty set
// satisfies any predicate.
func (q *NodeQuery) All(ctx context.Context, pred query.Expr) (bool, error) {
	v, err := q.g.execScalar(ctx, q.b, query.TerminalAll, pred)
	if err != nil {
		return false, err
	}
	return AsBool(v)
}

func (q *NodeQuery) exec(ctx context.Context, terminal query.Terminal) ([]Node, error) {
	tr, err := query.Translate(q.b, terminal)
	if err != nil {
		return nil, err
	}
	runner := q.g.readRunner(ctx)
	result, err := runner.Run(ctx, tr.Cypher, tr.Params)
	if err != nil {
		return nil, err
	}
	items := make([]Node, 0, len(result.Records))
	for _, rec := range result.Records {
		stored, ok := rec[tr.Alias].(graph.Node)
		if !ok {
			return nil, types.NewValidationError("query did not return nodes")
		}
		node, err := q.g.hydrator.HydrateNode(stored)
		if err != nil {
			return nil, err
		}
		if err := q.g.hydrator.LoadComplexProperties(ctx, runner, node); err != nil {
			return nil, err
		}
		items = append(items, node)
	}
	return items, nil
}

// RelationshipQuery is a composable query over relationship entities.
type RelationshipQuery struct {
	g *Graph
	b *query.Builder
}

func (q *RelationshipQuery) derive(b *query.Builder) *RelationshipQuery {
	return &RelationshipQuery{g: q.g, b: b}
}

// Where filters by pred.
func (q *RelationshipQuery) Where(pred query.Expr) *RelationshipQuery {
	return q.derive(q.b.Where(pred))
}

// OrderBy sorts ascending by key, replacing any earlier ordering.
func (q *RelationshipQuery) OrderBy(key query.Expr) *RelationshipQuery {
	return q.derive(q.b.OrderBy(key))
}

// OrderByDescending sorts descending by key, replacing any earlier
// ordering.
func (q *RelationshipQuery) OrderByDescending(key query.Expr) *RelationshipQuery {
	return q.derive(q.b.OrderByDescending(key))
}

// ThenBy adds a secondary ascending sort key.
func (q *RelationshipQuery) ThenBy(key query.Expr) *RelationshipQuery {
	return q.derive(q.b.ThenBy(key))
}

// ThenByDescending adds a secondary descending sort key.
func (q *RelationshipQuery) ThenByDescending(key query.Expr) *RelationshipQuery {
	return q.derive(q.b.ThenByDescending(key))
}

// Skip discards the first n results.
func (q *RelationshipQuery) Skip(n int) *RelationshipQuery { return q.derive(q.b.Skip(n)) }

// Take caps the result count at n.
func (q *RelationshipQuery) Take(n int) *RelationshipQuery { return q.derive(q.b.Take(n)) }

// ToList returns all matching relationships with their endpoint ids.
func (q *RelationshipQuery) ToList(ctx context.Context) ([]Relationship, error) {
	return q.exec(ctx, query.TerminalList)
}

// First returns the first result and fails with NOT_FOUND on an empty set.
func (q *RelationshipQuery) First(ctx context.Context) (Relationship, error) {
	items, err := q.exec(ctx, query.TerminalFirst)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errNoResults()
	}
	return items[0], nil
}

// FirstOrDefault returns the first result, or nil on an empty set.
func (q *RelationshipQuery) FirstOrDefault(ctx context.Context) (Relationship, error) {
	items, err := q.exec(ctx, query.TerminalFirstOrDefault)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// Single returns the only result. An empty set is NOT_FOUND; more than
// one result is a CONFLICT.
func (q *RelationshipQuery) Single(ctx context.Context) (Relationship, error) {
	items, err := q.exec(ctx, query.TerminalSingle)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 0:
		return nil, errNoResults()
	case 1:
		return items[0], nil
	default:
		return nil, errManyResults()
	}
}

// Count returns the number of results.
func (q *RelationshipQuery) Count(ctx context.Context) (int64, error) {
	v, err := q.g.execScalar(ctx, q.b, query.TerminalCount, nil)
	if err != nil {
		return 0, err
	}
	return AsInt(v)
}

// Any reports whether the query has any result.
func (q *RelationshipQuery) Any(ctx context.Context) (bool, error) {
	v, err := q.g.execScalar(ctx, q.b, query.TerminalAny, nil)
	if err != nil {
		return false, err
	}
	return AsBool(v)
}

// All reports whether every result satisfies pred.
func (q *RelationshipQuery) All(ctx context.Context, pred query.Expr) (bool, error) {
	v, err := q.g.execScalar(ctx, q.b, query.TerminalAll, pred)
	if err != nil {
		return false, err
	}
	return AsBool(v)
}

func (q *RelationshipQuery) exec(ctx context.Context, terminal query.Terminal) ([]Relationship, error) {
	tr, err := query.Translate(q.b, terminal)
	if err != nil {
		return nil, err
	}
	result, err := q.g.readRunner(ctx).Run(ctx, tr.Cypher, tr.Params)
	if err != nil {
		return nil, err
	}
	// Incoming-declared types store the arrow end->start, so the stored
	// start/end columns map back to the entity's endpoints swapped.
	startCol, endCol := tr.StartColumn, tr.EndColumn
	if def, defErr := q.g.registry.RelationshipDefinition(tr.Label); defErr == nil &&
		def.Direction == query.Incoming {
		startCol, endCol = endCol, startCol
	}
	items := make([]Relationship, 0, len(result.Records))
	for _, rec := range result.Records {
		rel, err := q.g.rels.hydrate(rec, tr.Alias, startCol, endCol)
		if err != nil {
			return nil, err
		}
		items = append(items, rel)
	}
	return items, nil
}

// MapQuery is a projected or grouped query; results are maps of column
// name to value.
type MapQuery struct {
	g *Graph
	b *query.Builder
}

func (q *MapQuery) derive(b *query.Builder) *MapQuery {
	return &MapQuery{g: q.g, b: b}
}

// Where filters by pred over the pre-projection query variable.
func (q *MapQuery) Where(pred query.Expr) *MapQuery { return q.derive(q.b.Where(pred)) }

// Skip discards the first n rows.
func (q *MapQuery) Skip(n int) *MapQuery { return q.derive(q.b.Skip(n)) }

// Take caps the row count at n.
func (q *MapQuery) Take(n int) *MapQuery { return q.derive(q.b.Take(n)) }

// ToMaps returns all projected rows restricted to the declared columns.
func (q *MapQuery) ToMaps(ctx context.Context) ([]map[string]any, error) {
	tr, err := query.Translate(q.b, query.TerminalList)
	if err != nil {
		return nil, err
	}
	result, err := q.g.readRunner(ctx).Run(ctx, tr.Cypher, tr.Params)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, len(result.Records))
	for _, rec := range result.Records {
		row := make(map[string]any, len(tr.Columns))
		for _, col := range tr.Columns {
			row[col] = rec[col]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// First returns the first projected row and fails with NOT_FOUND on an
// empty set.
func (q *MapQuery) First(ctx context.Context) (map[string]any, error) {
	rows, err := q.derive(q.b.Take(1)).ToMaps(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errNoResults()
	}
	return rows[0], nil
}

func (g *Graph) execScalar(ctx context.Context, b *query.Builder, terminal query.Terminal, allPred query.Expr) (any, error) {
	var tr *query.Translation
	var err error
	if terminal == query.TerminalAll {
		tr, err = query.TranslateAll(b, allPred)
	} else {
		tr, err = query.Translate(b, terminal)
	}
	if err != nil {
		return nil, err
	}
	result, err := g.readRunner(ctx).Run(ctx, tr.Cypher, tr.Params)
	if err != nil {
		return nil, err
	}
	if len(result.Records) == 0 {
		return nil, types.WrapStoreError("aggregate query returned no rows", nil)
	}
	return result.Records[0][tr.Alias], nil
}

func errNoResults() error {
	return types.NewError(types.ErrCodeNotFound, "the query returned no results")
}

func errManyResults() error {
	return types.NewError(types.ErrCodeConflict, "the query returned more than one result")
}
