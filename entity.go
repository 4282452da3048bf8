// Package graphmodel maps domain objects onto a property graph store.
// Nodes and relationships are persisted through explicit per-type
// registrations, queried through a composable operator chain that is
// translated to Cypher, and hydrated back into registered Go types.
package graphmodel

import (
	"github.com/savasp/graphmodel-go/types"
)

// Entity is anything with a stable string identity in the graph.
type Entity interface {
	// EntityID returns the entity's id, or the zero ID before creation.
	EntityID() types.ID
	// AssignID sets the entity's id. Assigning over an existing id fails.
	AssignID(id types.ID) error
}

// Node is an entity stored as a graph node.
type Node interface {
	Entity
	// Label returns the node's primary label.
	Label() string
}

// Relationship is an entity stored as a graph relationship between two
// nodes identified by their ids.
type Relationship interface {
	Entity
	// Type returns the relationship type.
	Type() string
	// StartID returns the id of the start node.
	StartID() types.ID
	// EndID returns the id of the end node.
	EndID() types.ID
	// SetEndpoints records both endpoint ids, used during hydration.
	SetEndpoints(start, end types.ID)
}

// NodeBase carries the identity of a node entity. Domain types embed it
// and implement Label themselves.
type NodeBase struct {
	ID types.ID `json:"id"`
}

// EntityID returns the node's id.
func (b *NodeBase) EntityID() types.ID { return b.ID }

// AssignID sets the node's id once.
func (b *NodeBase) AssignID(id types.ID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if !b.ID.IsZero() && b.ID != id {
		return types.NewConflictError("entity already has an id")
	}
	b.ID = id
	return nil
}

// RelationshipBase carries the identity and endpoints of a relationship
// entity. Domain types embed it and implement Type themselves.
type RelationshipBase struct {
	ID          types.ID `json:"id"`
	StartNodeID types.ID `json:"startNodeId"`
	EndNodeID   types.ID `json:"endNodeId"`
}

// EntityID returns the relationship's id.
func (b *RelationshipBase) EntityID() types.ID { return b.ID }

// AssignID sets the relationship's id once.
func (b *RelationshipBase) AssignID(id types.ID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	if !b.ID.IsZero() && b.ID != id {
		return types.NewConflictError("entity already has an id")
	}
	b.ID = id
	return nil
}

// StartID returns the id of the start node.
func (b *RelationshipBase) StartID() types.ID { return b.StartNodeID }

// EndID returns the id of the end node.
func (b *RelationshipBase) EndID() types.ID { return b.EndNodeID }

// SetEndpoints records both endpoint ids.
func (b *RelationshipBase) SetEndpoints(start, end types.ID) {
	b.StartNodeID = start
	b.EndNodeID = end
}
