package graphmodel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/savasp/graphmodel-go/graph"
	"github.com/savasp/graphmodel-go/types"
)

// nodeManager implements node CRUD against a query runner.
type nodeManager struct {
	registry   *Registry
	serializer *Serializer
	hydrator   *Hydrator
	complex    *complexManager
	logger     *slog.Logger
}

// create persists n and its complex properties. A zero id gets a fresh
// one; an existing node with the same id is a conflict.
func (m *nodeManager) create(ctx context.Context, runner queryRunner, n Node) error {
	if n.EntityID().IsZero() {
		if err := n.AssignID(types.NewID()); err != nil {
			return err
		}
	}
	info, err := m.serializer.SerializeNode(n)
	if err != nil {
		return err
	}
	cypher := fmt.Sprintf(`
		OPTIONAL MATCH (e {id: $id})
		WITH e
		WHERE e IS NULL
		CREATE (n:%s {id: $id})
		SET n += $props
		RETURN n.id AS id`,
		strings.Join(info.Labels, ":"))
	result, err := runner.Run(ctx, cypher, map[string]any{
		"id":    string(n.EntityID()),
		"props": info.SimpleProperties,
	})
	if err != nil {
		return err
	}
	if len(result.Records) == 0 {
		return types.NewConflictError(
			fmt.Sprintf("a node with id %q already exists", n.EntityID()))
	}
	if err := m.complex.create(ctx, runner, n.EntityID(), info); err != nil {
		return err
	}
	m.logger.DebugContext(ctx, "node created",
		"label", n.Label(), "id", string(n.EntityID()))
	return nil
}

// get loads the node with the given label and id, complex properties
// included.
func (m *nodeManager) get(ctx context.Context, runner queryRunner, label string, id types.ID) (Node, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if _, err := m.registry.NodeDefinition(label); err != nil {
		return nil, err
	}
	cypher := fmt.Sprintf(`
		MATCH (n:%s {id: $id})
		RETURN n`, label)
	result, err := runner.Run(ctx, cypher, map[string]any{"id": string(id)})
	if err != nil {
		return nil, err
	}
	if len(result.Records) == 0 {
		return nil, types.NewNotFoundError("node", string(id))
	}
	stored, ok := result.Records[0]["n"].(graph.Node)
	if !ok {
		return nil, types.NewValidationError("query did not return a node")
	}
	node, err := m.hydrator.HydrateNode(stored)
	if err != nil {
		return nil, err
	}
	if err := m.hydrator.LoadComplexProperties(ctx, runner, node); err != nil {
		return nil, err
	}
	return node, nil
}

// update replaces the simple properties of the stored node with the
// current values of n and rebuilds its complex properties.
func (m *nodeManager) update(ctx context.Context, runner queryRunner, n Node) error {
	if n.EntityID().IsZero() {
		return types.NewValidationError("cannot update an entity without an id")
	}
	info, err := m.serializer.SerializeNode(n)
	if err != nil {
		return err
	}
	cypher := fmt.Sprintf(`
		MATCH (n:%s {id: $id})
		SET n = $props, n.id = $id
		RETURN n.id AS id`, n.Label())
	result, err := runner.Run(ctx, cypher, map[string]any{
		"id":    string(n.EntityID()),
		"props": info.SimpleProperties,
	})
	if err != nil {
		return err
	}
	if len(result.Records) == 0 {
		return types.NewNotFoundError("node", string(n.EntityID()))
	}
	if err := m.complex.update(ctx, runner, n.EntityID(), info); err != nil {
		return err
	}
	m.logger.DebugContext(ctx, "node updated",
		"label", n.Label(), "id", string(n.EntityID()))
	return nil
}

// delete removes the node with the given id together with its private
// companion nodes. Without cascade, a node that still has domain
// relationships is a conflict; with cascade every directly connected
// node is removed as well, companions included.
func (m *nodeManager) delete(ctx context.Context, runner queryRunner, id types.ID, cascade bool) error {
	if err := id.Validate(); err != nil {
		return err
	}
	result, err := runner.Run(ctx, `
		MATCH (n {id: $id})
		OPTIONAL MATCH (n)-[r]-()
		WHERE NOT type(r) STARTS WITH $prefix
		RETURN count(r) AS rel_count`,
		map[string]any{"id": string(id), "prefix": propertyRelPrefix})
	if err != nil {
		return err
	}
	if len(result.Records) == 0 {
		return types.NewNotFoundError("node", string(id))
	}
	relCount, err := AsInt(result.Records[0]["rel_count"])
	if err != nil {
		return types.WrapStoreError("unreadable relationship count", err)
	}
	if relCount > 0 && !cascade {
		return types.NewConflictError(
			fmt.Sprintf("node %q still has %d relationships", id, relCount))
	}
	if cascade && relCount > 0 {
		// Deleting a null c is a no-op, so neighbours without companions
		// pass through the OPTIONAL MATCH unharmed.
		cypher := fmt.Sprintf(`
			MATCH (n {id: $id})-[r]-(m)
			WHERE NOT type(r) STARTS WITH $prefix
			OPTIONAL MATCH (m)-[rels*1..%d]->(c)
			WHERE all(rel IN rels WHERE type(rel) STARTS WITH $prefix)
			DETACH DELETE m, c`, m.complex.maxDepth)
		if _, err := runner.Run(ctx, cypher,
			map[string]any{"id": string(id), "prefix": propertyRelPrefix}); err != nil {
			return err
		}
	}
	if err := m.complex.deleteAll(ctx, runner, id); err != nil {
		return err
	}
	if _, err := runner.Run(ctx, `
		MATCH (n {id: $id})
		DETACH DELETE n`,
		map[string]any{"id": string(id)}); err != nil {
		return err
	}
	m.logger.DebugContext(ctx, "node deleted", "id", string(id), "cascade", cascade)
	return nil
}
