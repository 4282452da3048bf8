package graphmodel

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savasp/graphmodel-go/graph"
	"github.com/savasp/graphmodel-go/types"
)

func testGraph(t *testing.T) (*Graph, *graph.MockGraphClient) {
	t.Helper()
	mock := graph.NewMockGraphClient()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g, err := New(mock, testRegistry(t), DefaultConfig(), logger)
	require.NoError(t, err)
	return g, mock
}

func TestCreateNode(t *testing.T) {
	t.Run("assigns an id and writes labels and properties", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"id": "x"})

		p := &Person{Name: "Alice", Age: 30}
		require.NoError(t, g.CreateNode(context.Background(), p))
		assert.False(t, p.EntityID().IsZero())

		calls := mock.QueryCalls()
		require.Len(t, calls, 1)
		assert.Contains(t, calls[0].Cypher, "CREATE (n:Person {id: $id})")
		assert.Equal(t, string(p.EntityID()), calls[0].Params["id"])
		props, ok := calls[0].Params["props"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Alice", props["name"])
		assert.NotContains(t, props, "id")
	})

	t.Run("derived type writes the full label set", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"id": "x"})

		e := &Employee{Person: Person{Name: "Bob"}, Company: "Acme"}
		require.NoError(t, g.CreateNode(context.Background(), e))
		assert.Contains(t, mock.QueryCalls()[0].Cypher, "CREATE (n:Employee:Person {id: $id})")
	})

	t.Run("existing id is a conflict", func(t *testing.T) {
		g, _ := testGraph(t)
		// No queued result: the guarded CREATE matches nothing.
		err := g.CreateNode(context.Background(), &Person{Name: "Alice"})
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeConflict))
	})

	t.Run("complex property creates a companion node", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"id": "x"})
		mock.AddRecords(map[string]any{"id": "y"})

		p := &Person{Name: "Alice", Address: &Address{City: "Seattle"}}
		require.NoError(t, g.CreateNode(context.Background(), p))

		calls := mock.QueryCalls()
		require.Len(t, calls, 2)
		assert.Contains(t, calls[1].Cypher, "CREATE (c:Address {id: $id})")
		assert.Contains(t, calls[1].Cypher, "[:__PROPERTY__address__ {sequence_number: $seq}]")
		assert.Equal(t, string(p.EntityID()), calls[1].Params["parent_id"])
	})

	t.Run("validation failure runs no queries", func(t *testing.T) {
		g, mock := testGraph(t)
		err := g.CreateNode(context.Background(), &Person{})
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeValidationFailed))
		assert.Empty(t, mock.QueryCalls())
	})
}

func TestGetNode(t *testing.T) {
	t.Run("hydrates the stored node", func(t *testing.T) {
		g, mock := testGraph(t)
		id := types.NewID()
		mock.AddRecords(map[string]any{"n": graph.Node{
			Labels: []string{"Person"},
			Props:  map[string]any{"id": string(id), "name": "Alice", "age": int64(30)},
		}})

		node, err := g.GetNode(context.Background(), "Person", id)
		require.NoError(t, err)
		p, ok := node.(*Person)
		require.True(t, ok)
		assert.Equal(t, "Alice", p.Name)
		assert.Equal(t, id, p.EntityID())
	})

	t.Run("missing node is not found", func(t *testing.T) {
		g, _ := testGraph(t)
		_, err := g.GetNode(context.Background(), "Person", types.NewID())
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeNotFound))
	})

	t.Run("unregistered label fails before querying", func(t *testing.T) {
		g, mock := testGraph(t)
		_, err := g.GetNode(context.Background(), "Ghost", types.NewID())
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeTypeResolutionFailed))
		assert.Empty(t, mock.QueryCalls())
	})
}

func TestUpdateNode(t *testing.T) {
	t.Run("replaces properties and rebuilds companions", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"id": "x"}) // update
		mock.AddRecords()                          // companion delete
		mock.AddRecords(map[string]any{"id": "y"}) // companion create

		p := &Person{Name: "Alice", Address: &Address{City: "Tacoma"}}
		require.NoError(t, p.AssignID(types.NewID()))
		require.NoError(t, g.UpdateNode(context.Background(), p))

		calls := mock.QueryCalls()
		require.Len(t, calls, 3)
		assert.Contains(t, calls[0].Cypher, "SET n = $props, n.id = $id")
		assert.Contains(t, calls[1].Cypher, "DETACH DELETE c")
		assert.Contains(t, calls[2].Cypher, "CREATE (c:Address")
	})

	t.Run("missing node is not found", func(t *testing.T) {
		g, _ := testGraph(t)
		p := &Person{Name: "Alice"}
		require.NoError(t, p.AssignID(types.NewID()))
		err := g.UpdateNode(context.Background(), p)
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeNotFound))
	})

	t.Run("entity without an id fails", func(t *testing.T) {
		g, _ := testGraph(t)
		err := g.UpdateNode(context.Background(), &Person{Name: "Alice"})
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeValidationFailed))
	})
}

func TestDeleteNode(t *testing.T) {
	t.Run("node with relationships is a conflict", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"rel_count": int64(2)})

		err := g.DeleteNode(context.Background(), types.NewID())
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeConflict))
		// Only the safety check ran.
		assert.Len(t, mock.QueryCalls(), 1)
	})

	t.Run("unconnected node is deleted with its companions", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"rel_count": int64(0)})
		mock.AddRecords() // companion delete
		mock.AddRecords() // node delete

		require.NoError(t, g.DeleteNode(context.Background(), types.NewID()))
		calls := mock.QueryCalls()
		require.Len(t, calls, 3)
		assert.Contains(t, calls[1].Cypher, "STARTS WITH $prefix")
		assert.Contains(t, calls[2].Cypher, "DETACH DELETE n")
	})

	t.Run("cascade removes connected nodes as well", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"rel_count": int64(3)})
		mock.AddRecords() // neighbour delete
		mock.AddRecords() // companion delete
		mock.AddRecords() // node delete

		require.NoError(t, g.DeleteNodeCascade(context.Background(), types.NewID()))
		calls := mock.QueryCalls()
		require.Len(t, calls, 4)
		assert.Contains(t, calls[1].Cypher, "MATCH (n {id: $id})-[r]-(m)")
		assert.Contains(t, calls[1].Cypher, "WHERE NOT type(r) STARTS WITH $prefix")
		assert.Contains(t, calls[1].Cypher, "DETACH DELETE m, c")
		assert.Contains(t, calls[3].Cypher, "DETACH DELETE n")
	})

	t.Run("cascade on an unconnected node skips the neighbour pass", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"rel_count": int64(0)})
		mock.AddRecords()
		mock.AddRecords()

		require.NoError(t, g.DeleteNodeCascade(context.Background(), types.NewID()))
		assert.Len(t, mock.QueryCalls(), 3)
	})

	t.Run("missing node is not found", func(t *testing.T) {
		g, _ := testGraph(t)
		err := g.DeleteNode(context.Background(), types.NewID())
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeNotFound))
	})
}
