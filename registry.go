package graphmodel

import (
	"fmt"
	"sync"

	"github.com/savasp/graphmodel-go/query"
	"github.com/savasp/graphmodel-go/types"
)

// PropertyKind classifies how a registered property is persisted.
type PropertyKind int

const (
	// KindSimple is a scalar stored directly on the node or relationship.
	KindSimple PropertyKind = iota
	// KindSimpleCollection is a slice of scalars stored as an array
	// property.
	KindSimpleCollection
	// KindComplex is a struct stored as a private companion node.
	KindComplex
	// KindComplexCollection is a slice of structs stored as ordered
	// private companion nodes.
	KindComplexCollection
)

// PropertyDef describes one persisted property of a registered type.
// Get and Set are explicit closures over the concrete type; the mapping
// layer never reflects over domain structs.
type PropertyDef struct {
	// Name is the property name in the store.
	Name string
	// Kind selects the persistence strategy.
	Kind PropertyKind
	// Required rejects nil or zero values at serialization time.
	Required bool
	// Label is the companion node label for complex kinds. Empty for
	// simple kinds.
	Label string
	// Get reads the property from the entity. For complex kinds it
	// returns the nested entity (or a slice of them); a nil nested value
	// must be returned as untyped nil.
	Get func(e Entity) any
	// Set writes a stored value back onto the entity during hydration.
	Set func(e Entity, v any) error
}

// NodeDefinition registers a node type.
type NodeDefinition struct {
	// Label is the type's own label.
	Label string
	// Parent is the label of the registered base type, if any. The full
	// label set of a node is its own label plus the parent chain.
	Parent string
	// New allocates a zero value of the concrete type.
	New func() Node
	// Properties lists the persisted properties.
	Properties []PropertyDef
}

// RelationshipDefinition registers a relationship type. Relationships
// carry simple properties only.
type RelationshipDefinition struct {
	Type string
	// Direction declares how the stored arrow relates to the entity's
	// start and end: Outgoing stores start->end, Incoming stores
	// end->start, and Both is matched without regard to orientation.
	// The zero value is Outgoing.
	Direction  query.Direction
	New        func() Relationship
	Properties []PropertyDef
}

// Registry holds the registered node and relationship types. Register
// everything at startup; lookups are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]*NodeDefinition
	rels  map[string]*RelationshipDefinition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes: map[string]*NodeDefinition{},
		rels:  map[string]*RelationshipDefinition{},
	}
}

// RegisterNode adds a node type. The label must be unused, the parent
// (if named) already registered, and every property well formed.
func (r *Registry) RegisterNode(def NodeDefinition) error {
	if err := validateDomainName("label", def.Label); err != nil {
		return err
	}
	if def.New == nil {
		return types.NewValidationError(
			fmt.Sprintf("node %q must have a constructor", def.Label))
	}
	if err := validateProperties(def.Label, def.Properties, true); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[def.Label]; ok {
		return types.NewConflictError(fmt.Sprintf("label %q is already registered", def.Label))
	}
	if def.Parent != "" {
		if _, ok := r.nodes[def.Parent]; !ok {
			return types.NewValidationError(
				fmt.Sprintf("node %q names the unregistered parent %q", def.Label, def.Parent))
		}
	}
	d := def
	r.nodes[def.Label] = &d
	return nil
}

// RegisterRelationship adds a relationship type. Complex properties on
// relationships are rejected here rather than at serialization time.
func (r *Registry) RegisterRelationship(def RelationshipDefinition) error {
	if err := validateDomainName("relationship type", def.Type); err != nil {
		return err
	}
	if def.New == nil {
		return types.NewValidationError(
			fmt.Sprintf("relationship %q must have a constructor", def.Type))
	}
	switch def.Direction {
	case query.Outgoing, query.Incoming, query.Both:
	default:
		return types.NewValidationError(
			fmt.Sprintf("relationship %q has the unknown direction %d", def.Type, def.Direction))
	}
	if err := validateProperties(def.Type, def.Properties, false); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rels[def.Type]; ok {
		return types.NewConflictError(fmt.Sprintf("relationship type %q is already registered", def.Type))
	}
	d := def
	r.rels[def.Type] = &d
	return nil
}

func validateProperties(owner string, props []PropertyDef, allowComplex bool) error {
	seen := map[string]bool{}
	for _, p := range props {
		if err := validateDomainName("property", p.Name); err != nil {
			return err
		}
		if seen[p.Name] {
			return types.NewValidationError(
				fmt.Sprintf("%q registers the property %q twice", owner, p.Name))
		}
		seen[p.Name] = true
		if p.Name == "id" {
			return types.NewValidationError(
				fmt.Sprintf("%q must not register the reserved property \"id\"", owner))
		}
		if p.Get == nil || p.Set == nil {
			return types.NewValidationError(
				fmt.Sprintf("property %q of %q must have both accessors", p.Name, owner))
		}
		switch p.Kind {
		case KindSimple, KindSimpleCollection:
			if p.Label != "" {
				return types.NewValidationError(
					fmt.Sprintf("simple property %q of %q must not name a label", p.Name, owner))
			}
		case KindComplex, KindComplexCollection:
			if !allowComplex {
				return types.NewValidationError(
					fmt.Sprintf("relationship %q cannot have the complex property %q", owner, p.Name))
			}
			if err := validateDomainName("label", p.Label); err != nil {
				return err
			}
		default:
			return types.NewValidationError(
				fmt.Sprintf("property %q of %q has the unknown kind %d", p.Name, owner, p.Kind))
		}
	}
	return nil
}

// NodeDefinition returns the registration for label.
func (r *Registry) NodeDefinition(label string) (*NodeDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.nodes[label]
	if !ok {
		return nil, types.NewTypeResolutionError([]string{label}, label)
	}
	return def, nil
}

// RelationshipDefinition returns the registration for relType.
func (r *Registry) RelationshipDefinition(relType string) (*RelationshipDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.rels[relType]
	if !ok {
		return nil, types.NewTypeResolutionError([]string{relType}, relType)
	}
	return def, nil
}

// LabelsFor returns the full stored label set for a registered label,
// most derived first, walking the parent chain.
func (r *Registry) LabelsFor(label string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var labels []string
	for current := label; current != ""; {
		def, ok := r.nodes[current]
		if !ok {
			return nil, types.NewTypeResolutionError([]string{current}, label)
		}
		labels = append(labels, current)
		current = def.Parent
	}
	return labels, nil
}

// NodeProperties returns the persisted properties of label including
// inherited ones, most derived first. A derived property shadows a
// parent property of the same name.
func (r *Registry) NodeProperties(label string) ([]PropertyDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var props []PropertyDef
	seen := map[string]bool{}
	for current := label; current != ""; {
		def, ok := r.nodes[current]
		if !ok {
			return nil, types.NewTypeResolutionError([]string{current}, label)
		}
		for _, p := range def.Properties {
			if !seen[p.Name] {
				seen[p.Name] = true
				props = append(props, p)
			}
		}
		current = def.Parent
	}
	return props, nil
}

// ResolveNode picks the registration for a stored label set: the most
// derived registered label wins, so a node stored as Employee+Person
// hydrates as Employee even when queried as Person.
func (r *Registry) ResolveNode(labels []string) (*NodeDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *NodeDefinition
	bestDepth := -1
	for _, label := range labels {
		def, ok := r.nodes[label]
		if !ok {
			continue
		}
		depth := 0
		for p := def.Parent; p != ""; depth++ {
			parent, ok := r.nodes[p]
			if !ok {
				break
			}
			p = parent.Parent
		}
		if depth > bestDepth {
			best, bestDepth = def, depth
		}
	}
	if best == nil {
		return nil, types.NewTypeResolutionError(labels, "")
	}
	return best, nil
}
