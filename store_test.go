package graphmodel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savasp/graphmodel-go/graph"
	"github.com/savasp/graphmodel-go/types"
)

func TestWithTransaction(t *testing.T) {
	t.Run("commits when the function succeeds", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"id": "x"})

		err := g.WithTransaction(context.Background(), func(ctx context.Context) error {
			return g.CreateNode(ctx, &Person{Name: "Alice"})
		})
		require.NoError(t, err)

		txs := mock.Transactions()
		require.Len(t, txs, 1)
		assert.True(t, txs[0].Committed)
		assert.False(t, txs[0].RolledBack)
		// The create ran inside the transaction, not auto-committed.
		assert.Equal(t, "TxRun", mock.QueryCalls()[0].Method)
	})

	t.Run("rolls back when the function fails", func(t *testing.T) {
		g, mock := testGraph(t)
		boom := errors.New("boom")

		err := g.WithTransaction(context.Background(), func(ctx context.Context) error {
			return boom
		})
		require.ErrorIs(t, err, boom)

		txs := mock.Transactions()
		require.Len(t, txs, 1)
		assert.True(t, txs[0].RolledBack)
	})

	t.Run("rolls back a partially applied create", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"id": "x"})
		mock.FailOnCall(2) // the companion-node write

		err := g.WithTransaction(context.Background(), func(ctx context.Context) error {
			return g.CreateNode(ctx, &Person{
				Name:    "Alice",
				Address: &Address{City: "Seattle"},
			})
		})
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeStoreFailed))

		txs := mock.Transactions()
		require.Len(t, txs, 1)
		assert.True(t, txs[0].RolledBack)
		assert.False(t, txs[0].Committed)
	})

	t.Run("nested transactions are rejected", func(t *testing.T) {
		g, _ := testGraph(t)
		err := g.WithTransaction(context.Background(), func(ctx context.Context) error {
			return g.WithTransaction(ctx, func(ctx context.Context) error { return nil })
		})
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeTransactionFailed))
	})

	t.Run("reads join the ambient transaction", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords() // empty query result

		err := g.WithTransaction(context.Background(), func(ctx context.Context) error {
			_, err := g.Nodes("Person").ToList(ctx)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, "TxRun", mock.QueryCalls()[0].Method)
	})

	t.Run("create without an ambient transaction opens its own", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"id": "x"})
		mock.AddRecords(map[string]any{"id": "y"})

		p := &Person{Name: "Alice", Address: &Address{City: "Seattle"}}
		require.NoError(t, g.CreateNode(context.Background(), p))

		txs := mock.Transactions()
		require.Len(t, txs, 1)
		assert.True(t, txs[0].Committed)
		for _, call := range mock.QueryCalls() {
			assert.Equal(t, "TxRun", call.Method)
		}
	})

	t.Run("companion failure rolls back the main node write", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.AddRecords(map[string]any{"id": "x"})
		mock.FailOnCall(2) // the companion-node write

		err := g.CreateNode(context.Background(), &Person{
			Name:    "Alice",
			Address: &Address{City: "Seattle"},
		})
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeStoreFailed))

		txs := mock.Transactions()
		require.Len(t, txs, 1)
		assert.True(t, txs[0].RolledBack)
		assert.False(t, txs[0].Committed)
	})

	t.Run("begin failure is returned", func(t *testing.T) {
		g, mock := testGraph(t)
		mock.SetBeginError(types.NewConnectionError("gone", nil))

		err := g.WithTransaction(context.Background(), func(ctx context.Context) error { return nil })
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeConnectionFailed))
	})
}

func TestGraphHealth(t *testing.T) {
	g, _ := testGraph(t)

	status := g.Health(context.Background())
	assert.True(t, status.IsUnhealthy())

	require.NoError(t, g.Connect(context.Background()))
	status = g.Health(context.Background())
	assert.True(t, status.IsHealthy())
	require.NoError(t, g.Close(context.Background()))
}

func TestNewGraphValidation(t *testing.T) {
	t.Run("nil client is rejected", func(t *testing.T) {
		_, err := New(nil, NewRegistry(), DefaultConfig(), nil)
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeInvalidConfig))
	})

	t.Run("nil registry is rejected", func(t *testing.T) {
		_, err := New(graph.NewMockGraphClient(), nil, DefaultConfig(), nil)
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeInvalidConfig))
	})
}
