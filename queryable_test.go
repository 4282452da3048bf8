package graphmodel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savasp/graphmodel-go/graph"
	"github.com/savasp/graphmodel-go/query"
	"github.com/savasp/graphmodel-go/types"
)

func storedPerson(name string, age int64) map[string]any {
	return map[string]any{"n": graph.Node{
		Labels: []string{"Person"},
		Props:  map[string]any{"id": string(types.NewID()), "name": name, "age": age},
	}}
}

func TestNodeQueryToList(t *testing.T) {
	g, mock := testGraph(t)
	mock.AddRecords(storedPerson("Alice", 30), storedPerson("Bob", 40))

	people, err := g.Nodes("Person").
		Where(query.Gt(query.P("age"), query.V(21))).
		OrderBy(query.P("name")).
		ToList(context.Background())
	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.Equal(t, "Alice", people[0].(*Person).Name)
	assert.Equal(t, "Bob", people[1].(*Person).Name)

	calls := mock.QueryCalls()
	assert.Contains(t, calls[0].Cypher, "WHERE n.age > $p1")
	assert.Equal(t, int64(21), calls[0].Params["p1"])
}

func TestNodeQueryScalars(t *testing.T) {
	t.Run("count", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"value": int64(42)})

		n, err := g.Nodes("Person").Count(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(42), n)
		assert.Contains(t, mock.QueryCalls()[0].Cypher, "RETURN count(n) AS value")
	})

	t.Run("any", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"value": true})

		ok, err := g.Nodes("Person").Any(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Contains(t, mock.QueryCalls()[0].Cypher, "count(n) > 0")
	})

	t.Run("all", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"value": false})

		ok, err := g.Nodes("Person").All(context.Background(),
			query.Ge(query.P("age"), query.V(18)))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Contains(t, mock.QueryCalls()[0].Cypher, "WHERE NOT (n.age >= $p1)")
	})
}

func TestNodeQueryCardinality(t *testing.T) {
	t.Run("first on an empty set is not found", func(t *testing.T) {
		g, _ := testGraph(t)
		_, err := g.Nodes("Person").First(context.Background())
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeNotFound))
	})

	t.Run("first or default on an empty set is nil", func(t *testing.T) {
		g, _ := testGraph(t)
		node, err := g.Nodes("Person").FirstOrDefault(context.Background())
		require.NoError(t, err)
		assert.Nil(t, node)
	})

	t.Run("single with two results is a conflict", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(storedPerson("Alice", 30), storedPerson("Bob", 40))

		_, err := g.Nodes("Person").Single(context.Background())
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeConflict))
	})

	t.Run("single with one result succeeds", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(storedPerson("Alice", 30))

		node, err := g.Nodes("Person").Single(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Alice", node.(*Person).Name)
	})

	t.Run("translation failures surface before execution", func(t *testing.T) {
		g, mock := testGraph(t)
		_, err := g.Nodes("Person").Last(context.Background())
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeTranslationNotSupported))
		assert.Empty(t, mock.QueryCalls())
	})
}

func TestMapQuery(t *testing.T) {
	t.Run("projection returns declared columns only", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"name": "Alice", "age": int64(30), "stray": "x"})

		rows, err := g.Nodes("Person").
			Select(
				query.Field{Alias: "name", Expr: query.P("name")},
				query.Field{Alias: "age", Expr: query.P("age")}).
			ToMaps(context.Background())
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, map[string]any{"name": "Alice", "age": int64(30)}, rows[0])
	})

	t.Run("group by rows", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(
			map[string]any{"city": "Seattle", "total": int64(2)},
			map[string]any{"city": "Tacoma", "total": int64(1)})

		rows, err := g.Nodes("Person").
			GroupBy(query.P("city"), "city",
				query.Aggregate{Alias: "total", Fn: query.AggCount}).
			ToMaps(context.Background())
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Seattle", rows[0]["city"])
		assert.Contains(t, mock.QueryCalls()[0].Cypher, "RETURN n.city AS city, count(n) AS total")
	})
}

func TestRelationshipQuery(t *testing.T) {
	g, mock := testGraph(t)
	start, end := types.NewID(), types.NewID()
	mock.AddRecords(map[string]any{
		"r": graph.Relationship{
			Type:  "WORKS_FOR",
			Props: map[string]any{"id": string(types.NewID()), "since": int64(2021)},
		},
		"start_id": string(start),
		"end_id":   string(end),
	})

	rels, err := g.Relationships("WORKS_FOR").
		Where(query.Ge(query.P("since"), query.V(2020))).
		ToList(context.Background())
	require.NoError(t, err)
	require.Len(t, rels, 1)
	w := rels[0].(*WorksFor)
	assert.Equal(t, start, w.StartID())
	assert.Equal(t, int64(2021), w.Since)
	assert.Contains(t, mock.QueryCalls()[0].Cypher, "startNode(r).id AS start_id")
}

func TestRelationshipQueryOrdering(t *testing.T) {
	g, mock := testGraph(t)
	mock.AddRecords()

	_, err := g.Relationships("WORKS_FOR").
		OrderBy(query.P("since")).
		ThenByDescending(query.P("id")).
		ToList(context.Background())
	require.NoError(t, err)
	assert.Contains(t, mock.QueryCalls()[0].Cypher, "ORDER BY r.since, r.id DESC")
}
