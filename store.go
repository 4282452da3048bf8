package graphmodel

import (
	"context"
	"log/slog"

	"github.com/savasp/graphmodel-go/graph"
	"github.com/savasp/graphmodel-go/types"
)

// Graph is the entry point of the mapping layer: CRUD over registered
// entities, the query surface, and transaction scoping, all against a
// GraphClient. A Graph is safe for concurrent use; all mutable state
// lives in the store.
type Graph struct {
	client   graph.GraphClient
	registry *Registry
	config   GraphConfig
	logger   *slog.Logger

	serializer *Serializer
	hydrator   *Hydrator
	nodes      *nodeManager
	rels       *relationshipManager
}

// New builds a Graph over client using the given registry. A nil logger
// falls back to slog.Default.
func New(client graph.GraphClient, registry *Registry, cfg GraphConfig, logger *slog.Logger) (*Graph, error) {
	if client == nil {
		return nil, types.NewConfigError("a graph client is required", nil)
	}
	if registry == nil {
		return nil, types.NewConfigError("a registry is required", nil)
	}
	cfg.ApplyDefaults()
	if cfg.TraversalDepth < 1 {
		return nil, types.NewConfigError("traversal_depth must be positive", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	g := &Graph{
		client:   client,
		registry: registry,
		config:   cfg,
		logger:   logger,
	}
	g.serializer = NewSerializer(registry, cfg.TraversalDepth)
	g.hydrator = NewHydrator(registry, cfg.TraversalDepth)
	g.nodes = &nodeManager{
		registry:   registry,
		serializer: g.serializer,
		hydrator:   g.hydrator,
		complex:    newComplexManager(cfg.TraversalDepth),
		logger:     logger,
	}
	g.rels = &relationshipManager{
		registry:   registry,
		serializer: g.serializer,
		hydrator:   g.hydrator,
		logger:     logger,
	}
	return g, nil
}

// Registry returns the registry the Graph was built with.
func (g *Graph) Registry() *Registry { return g.registry }

// Connect establishes the store connection.
func (g *Graph) Connect(ctx context.Context) error { return g.client.Connect(ctx) }

// Close releases the store connection.
func (g *Graph) Close(ctx context.Context) error { return g.client.Close(ctx) }

// Health reports the health of the store connection.
func (g *Graph) Health(ctx context.Context) types.HealthStatus { return g.client.Health(ctx) }

type txKey struct{}

func withTx(ctx context.Context, tx graph.Transaction) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func txFromContext(ctx context.Context) (graph.Transaction, bool) {
	tx, ok := ctx.Value(txKey{}).(graph.Transaction)
	return tx, ok
}

// readRunner returns the runner for read queries: the ambient transaction
// if one is open, an auto-committed read otherwise. Reads inside a
// transaction must see its uncommitted writes.
func (g *Graph) readRunner(ctx context.Context) queryRunner {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return readRunner{client: g.client}
}

// writeRunner returns the runner for write queries.
func (g *Graph) writeRunner(ctx context.Context) queryRunner {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return writeRunner{client: g.client}
}

// WithTransaction runs fn inside one explicit transaction. Every Graph
// operation that receives fn's context joins the transaction. The
// transaction commits when fn returns nil and rolls back when fn returns
// an error, so a partial multi-statement write never becomes visible.
// Transactions do not nest: calling WithTransaction from inside fn fails.
func (g *Graph) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFromContext(ctx); ok {
		return types.NewTransactionError("transactions cannot be nested", nil)
	}
	tx, err := g.client.BeginTransaction(ctx)
	if err != nil {
		return err
	}
	if err := fn(withTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			g.logger.ErrorContext(ctx, "rollback failed", "error", rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

// inTx runs fn inside the ambient transaction, opening one when the
// context has none. Operations that issue more than one write statement
// must not straddle auto-committed calls: a failure halfway through
// would leave the earlier statements applied.
func (g *Graph) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFromContext(ctx); ok {
		return fn(ctx)
	}
	return g.WithTransaction(ctx, fn)
}

// CreateNode persists n and its complex properties in one transaction.
// A zero id is assigned; the assigned id is visible on n afterwards.
func (g *Graph) CreateNode(ctx context.Context, n Node) error {
	return g.inTx(ctx, func(ctx context.Context) error {
		return g.nodes.create(ctx, g.writeRunner(ctx), n)
	})
}

// GetNode loads the node with the given label and id, complex properties
// included. The returned entity has the most derived registered type for
// the stored label set.
func (g *Graph) GetNode(ctx context.Context, label string, id types.ID) (Node, error) {
	return g.nodes.get(ctx, g.readRunner(ctx), label, id)
}

// UpdateNode replaces the stored state of n with its current values in
// one transaction.
func (g *Graph) UpdateNode(ctx context.Context, n Node) error {
	return g.inTx(ctx, func(ctx context.Context) error {
		return g.nodes.update(ctx, g.writeRunner(ctx), n)
	})
}

// DeleteNode removes the node with the given id. Without cascade a node
// that still has relationships is a conflict.
func (g *Graph) DeleteNode(ctx context.Context, id types.ID) error {
	return g.inTx(ctx, func(ctx context.Context) error {
		return g.nodes.delete(ctx, g.writeRunner(ctx), id, false)
	})
}

// DeleteNodeCascade removes the node with the given id along with its
// relationships and every directly connected node.
func (g *Graph) DeleteNodeCascade(ctx context.Context, id types.ID) error {
	return g.inTx(ctx, func(ctx context.Context) error {
		return g.nodes.delete(ctx, g.writeRunner(ctx), id, true)
	})
}

// CreateRelationship persists r between its declared endpoints.
func (g *Graph) CreateRelationship(ctx context.Context, r Relationship) error {
	return g.rels.create(ctx, g.writeRunner(ctx), r)
}

// GetRelationship loads the relationship with the given type and id.
func (g *Graph) GetRelationship(ctx context.Context, relType string, id types.ID) (Relationship, error) {
	return g.rels.get(ctx, g.readRunner(ctx), relType, id)
}

// UpdateRelationship replaces the stored properties of r with its
// current values.
func (g *Graph) UpdateRelationship(ctx context.Context, r Relationship) error {
	return g.rels.update(ctx, g.writeRunner(ctx), r)
}

// DeleteRelationship removes the relationship with the given type and id.
func (g *Graph) DeleteRelationship(ctx context.Context, relType string, id types.ID) error {
	return g.rels.delete(ctx, g.writeRunner(ctx), relType, id)
}
