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

func TestCreateRelationship(t *testing.T) {
	t.Run("creates between existing endpoints", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"id": "x"})

		w := &WorksFor{Since: 2021}
		w.SetEndpoints(types.NewID(), types.NewID())
		require.NoError(t, g.CreateRelationship(context.Background(), w))
		assert.False(t, w.EntityID().IsZero())

		calls := mock.QueryCalls()
		require.Len(t, calls, 1)
		assert.Contains(t, calls[0].Cypher, "CREATE (a)-[rel:WORKS_FOR {id: $id}]->(b)")
		assert.Equal(t, string(w.StartID()), calls[0].Params["start_id"])
	})

	t.Run("missing endpoint is a conflict", func(t *testing.T) {
		g, _ := testGraph(t)
		w := &WorksFor{Since: 2021}
		w.SetEndpoints(types.NewID(), types.NewID())
		err := g.CreateRelationship(context.Background(), w)
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeConflict))
	})

	t.Run("endpoints are required", func(t *testing.T) {
		g, mock := testGraph(t)
		err := g.CreateRelationship(context.Background(), &WorksFor{Since: 2021})
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeValidationFailed))
		assert.Empty(t, mock.QueryCalls())
	})

	t.Run("unregistered type fails before querying", func(t *testing.T) {
		g, mock := testGraph(t)
		u := &unregisteredRel{}
		u.SetEndpoints(types.NewID(), types.NewID())
		err := g.CreateRelationship(context.Background(), u)
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeTypeResolutionFailed))
		assert.Empty(t, mock.QueryCalls())
	})
}

func TestGetRelationship(t *testing.T) {
	t.Run("hydrates with endpoint ids", func(t *testing.T) {
		g, mock := testGraph(t)
		id, start, end := types.NewID(), types.NewID(), types.NewID()
		mock.AddRecords(map[string]any{
			"rel": graph.Relationship{
				Type:  "WORKS_FOR",
				Props: map[string]any{"id": string(id), "since": int64(2021)},
			},
			"start_id": string(start),
			"end_id":   string(end),
		})

		rel, err := g.GetRelationship(context.Background(), "WORKS_FOR", id)
		require.NoError(t, err)
		w, ok := rel.(*WorksFor)
		require.True(t, ok)
		assert.Equal(t, start, w.StartID())
		assert.Equal(t, end, w.EndID())
		assert.Equal(t, int64(2021), w.Since)
	})

	t.Run("missing relationship is not found", func(t *testing.T) {
		g, _ := testGraph(t)
		_, err := g.GetRelationship(context.Background(), "WORKS_FOR", types.NewID())
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeNotFound))
	})
}

func TestUpdateRelationship(t *testing.T) {
	t.Run("replaces properties", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"id": "x"})

		w := &WorksFor{Since: 2022}
		require.NoError(t, w.AssignID(types.NewID()))
		require.NoError(t, g.UpdateRelationship(context.Background(), w))
		assert.Contains(t, mock.QueryCalls()[0].Cypher, "SET rel = $props, rel.id = $id")
	})

	t.Run("missing relationship is not found", func(t *testing.T) {
		g, _ := testGraph(t)
		w := &WorksFor{}
		require.NoError(t, w.AssignID(types.NewID()))
		err := g.UpdateRelationship(context.Background(), w)
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeNotFound))
	})
}

func TestDeleteRelationship(t *testing.T) {
	t.Run("deletes by type and id", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"deleted": "x"})

		require.NoError(t, g.DeleteRelationship(context.Background(), "WORKS_FOR", types.NewID()))
		assert.Contains(t, mock.QueryCalls()[0].Cypher, "DELETE rel")
	})

	t.Run("missing relationship is not found", func(t *testing.T) {
		g, _ := testGraph(t)
		err := g.DeleteRelationship(context.Background(), "WORKS_FOR", types.NewID())
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeNotFound))
	})
}

type ReportsTo struct {
	RelationshipBase
}

func (r *ReportsTo) Type() string { return "REPORTS_TO" }

type FriendsWith struct {
	RelationshipBase
}

func (f *FriendsWith) Type() string { return "FRIENDS_WITH" }

func TestRelationshipDirection(t *testing.T) {
	register := func(t *testing.T, g *Graph) {
		t.Helper()
		require.NoError(t, g.Registry().RegisterRelationship(RelationshipDefinition{
			Type:      "REPORTS_TO",
			Direction: query.Incoming,
			New:       func() Relationship { return &ReportsTo{} },
		}))
		require.NoError(t, g.Registry().RegisterRelationship(RelationshipDefinition{
			Type:      "FRIENDS_WITH",
			Direction: query.Both,
			New:       func() Relationship { return &FriendsWith{} },
		}))
	}

	t.Run("incoming type stores the arrow end to start", func(t *testing.T) {
		g, mock := testGraph(t)
		register(t, g)
		mock.AddRecords(map[string]any{"id": "x"})

		r := &ReportsTo{}
		r.SetEndpoints(types.NewID(), types.NewID())
		require.NoError(t, g.CreateRelationship(context.Background(), r))
		assert.Contains(t, mock.QueryCalls()[0].Cypher,
			"CREATE (a)<-[rel:REPORTS_TO {id: $id}]-(b)")
	})

	t.Run("bidirectional type is matched without orientation", func(t *testing.T) {
		g, mock := testGraph(t)
		register(t, g)
		id := types.NewID()
		mock.AddRecords(map[string]any{
			"rel": graph.Relationship{
				Type:  "FRIENDS_WITH",
				Props: map[string]any{"id": string(id)},
			},
			"start_id": string(types.NewID()),
			"end_id":   string(types.NewID()),
		})

		_, err := g.GetRelationship(context.Background(), "FRIENDS_WITH", id)
		require.NoError(t, err)
		assert.Contains(t, mock.QueryCalls()[0].Cypher,
			"MATCH (a)-[rel:FRIENDS_WITH {id: $id}]-(b)")
	})

	t.Run("unknown direction is rejected at registration", func(t *testing.T) {
		g, _ := testGraph(t)
		err := g.Registry().RegisterRelationship(RelationshipDefinition{
			Type:      "BROKEN",
			Direction: query.Direction(9),
			New:       func() Relationship { return &FriendsWith{} },
		})
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeValidationFailed))
	})
}
