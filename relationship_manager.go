package graphmodel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/savasp/graphmodel-go/graph"
	"github.com/savasp/graphmodel-go/query"
	"github.com/savasp/graphmodel-go/types"
)

// relationshipManager implements relationship CRUD against a query runner.
type relationshipManager struct {
	registry   *Registry
	serializer *Serializer
	hydrator   *Hydrator
	logger     *slog.Logger
}

// create persists r between its declared endpoints. Both endpoints must
// already exist.
func (m *relationshipManager) create(ctx context.Context, runner queryRunner, r Relationship) error {
	if r.StartID().IsZero() || r.EndID().IsZero() {
		return types.NewValidationError("relationship endpoints must both have ids")
	}
	if r.EntityID().IsZero() {
		if err := r.AssignID(types.NewID()); err != nil {
			return err
		}
	}
	def, err := m.registry.RelationshipDefinition(r.Type())
	if err != nil {
		return err
	}
	props, err := m.serializer.SerializeRelationship(r)
	if err != nil {
		return err
	}
	// Incoming stores the arrow end->start; Both needs an arrow too and
	// stores start->end, matched without orientation on read.
	pattern := "CREATE (a)-[rel:%s {id: $id}]->(b)"
	if def.Direction == query.Incoming {
		pattern = "CREATE (a)<-[rel:%s {id: $id}]-(b)"
	}
	cypher := fmt.Sprintf(`
		MATCH (a {id: $start_id}), (b {id: $end_id})
		`+pattern+`
		SET rel += $props
		RETURN rel.id AS id`, r.Type())
	result, err := runner.Run(ctx, cypher, map[string]any{
		"start_id": string(r.StartID()),
		"end_id":   string(r.EndID()),
		"id":       string(r.EntityID()),
		"props":    props,
	})
	if err != nil {
		return err
	}
	if len(result.Records) == 0 {
		return types.NewConflictError(fmt.Sprintf(
			"cannot relate %q to %q: at least one endpoint does not exist",
			r.StartID(), r.EndID()))
	}
	m.logger.DebugContext(ctx, "relationship created",
		"type", r.Type(), "id", string(r.EntityID()))
	return nil
}

// get loads the relationship with the given type and id.
func (m *relationshipManager) get(ctx context.Context, runner queryRunner, relType string, id types.ID) (Relationship, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	def, err := m.registry.RelationshipDefinition(relType)
	if err != nil {
		return nil, err
	}
	var pattern string
	switch def.Direction {
	case query.Incoming:
		pattern = "MATCH (a)<-[rel:%s {id: $id}]-(b)"
	case query.Both:
		pattern = "MATCH (a)-[rel:%s {id: $id}]-(b)"
	default:
		pattern = "MATCH (a)-[rel:%s {id: $id}]->(b)"
	}
	cypher := fmt.Sprintf(pattern+`
		RETURN rel, a.id AS start_id, b.id AS end_id`, relType)
	result, err := runner.Run(ctx, cypher, map[string]any{"id": string(id)})
	if err != nil {
		return nil, err
	}
	if len(result.Records) == 0 {
		return nil, types.NewNotFoundError("relationship", string(id))
	}
	return m.hydrate(result.Records[0], "rel", "start_id", "end_id")
}

// hydrate builds a relationship entity from a result record holding the
// stored relationship and its endpoint ids.
func (m *relationshipManager) hydrate(rec map[string]any, relCol, startCol, endCol string) (Relationship, error) {
	stored, ok := rec[relCol].(graph.Relationship)
	if !ok {
		return nil, types.NewValidationError("query did not return a relationship")
	}
	start, err := AsID(rec[startCol])
	if err != nil {
		return nil, types.WrapStoreError("unreadable start node id", err)
	}
	end, err := AsID(rec[endCol])
	if err != nil {
		return nil, types.WrapStoreError("unreadable end node id", err)
	}
	return m.hydrator.HydrateRelationship(stored, start, end)
}

// update replaces the properties of the stored relationship with the
// current values of r. Endpoints cannot be changed.
func (m *relationshipManager) update(ctx context.Context, runner queryRunner, r Relationship) error {
	if r.EntityID().IsZero() {
		return types.NewValidationError("cannot update an entity without an id")
	}
	props, err := m.serializer.SerializeRelationship(r)
	if err != nil {
		return err
	}
	cypher := fmt.Sprintf(`
		MATCH ()-[rel:%s {id: $id}]->()
		SET rel = $props, rel.id = $id
		RETURN rel.id AS id`, r.Type())
	result, err := runner.Run(ctx, cypher, map[string]any{
		"id":    string(r.EntityID()),
		"props": props,
	})
	if err != nil {
		return err
	}
	if len(result.Records) == 0 {
		return types.NewNotFoundError("relationship", string(r.EntityID()))
	}
	m.logger.DebugContext(ctx, "relationship updated",
		"type", r.Type(), "id", string(r.EntityID()))
	return nil
}

// delete removes the relationship with the given type and id. The
// endpoint nodes are untouched.
func (m *relationshipManager) delete(ctx context.Context, runner queryRunner, relType string, id types.ID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if _, err := m.registry.RelationshipDefinition(relType); err != nil {
		return err
	}
	cypher := fmt.Sprintf(`
		MATCH ()-[rel:%s {id: $id}]->()
		WITH rel, rel.id AS deleted
		DELETE rel
		RETURN deleted`, relType)
	result, err := runner.Run(ctx, cypher, map[string]any{"id": string(id)})
	if err != nil {
		return err
	}
	if len(result.Records) == 0 {
		return types.NewNotFoundError("relationship", string(id))
	}
	m.logger.DebugContext(ctx, "relationship deleted", "type", relType, "id", string(id))
	return nil
}
