package graphmodel

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/savasp/graphmodel-go/graph"
	"github.com/savasp/graphmodel-go/types"
)

// queryRunner abstracts where a query runs: an auto-committed client call
// or an open transaction.
type queryRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (graph.QueryResult, error)
}

type readRunner struct{ client graph.GraphClient }

func (r readRunner) Run(ctx context.Context, cypher string, params map[string]any) (graph.QueryResult, error) {
	return r.client.Read(ctx, cypher, params)
}

type writeRunner struct{ client graph.GraphClient }

func (w writeRunner) Run(ctx context.Context, cypher string, params map[string]any) (graph.QueryResult, error) {
	return w.client.Write(ctx, cypher, params)
}

// Hydrator turns stored records back into registered entities through the
// registration table's Set accessors.
type Hydrator struct {
	registry *Registry
	maxDepth int
}

// NewHydrator returns a hydrator that loads complex properties up to
// maxDepth levels. A non-positive maxDepth uses DefaultDepthAllowed.
func NewHydrator(registry *Registry, maxDepth int) *Hydrator {
	if maxDepth <= 0 {
		maxDepth = DefaultDepthAllowed
	}
	return &Hydrator{registry: registry, maxDepth: maxDepth}
}

// HydrateNode builds the registered entity for a stored node. The stored
// label set picks the most derived registration, so querying a base label
// still yields derived types. Complex properties are not loaded here; see
// LoadComplexProperties.
func (h *Hydrator) HydrateNode(stored graph.Node) (Node, error) {
	def, err := h.registry.ResolveNode(stored.Labels)
	if err != nil {
		return nil, err
	}
	entity := def.New()
	id, err := AsID(stored.Props["id"])
	if err != nil {
		return nil, types.NewValidationError(
			fmt.Sprintf("stored node with labels %v has no usable id", stored.Labels))
	}
	if err := entity.AssignID(id); err != nil {
		return nil, err
	}
	props, err := h.registry.NodeProperties(def.Label)
	if err != nil {
		return nil, err
	}
	for _, p := range props {
		if p.Kind != KindSimple && p.Kind != KindSimpleCollection {
			continue
		}
		v, ok := stored.Props[p.Name]
		if !ok || v == nil {
			continue
		}
		if err := p.Set(entity, v); err != nil {
			return nil, types.NewValidationError(
				fmt.Sprintf("property %q of %q: %s", p.Name, def.Label, err))
		}
	}
	return entity, nil
}

// HydrateRelationship builds the registered entity for a stored
// relationship and its endpoint ids.
func (h *Hydrator) HydrateRelationship(stored graph.Relationship, start, end types.ID) (Relationship, error) {
	def, err := h.registry.RelationshipDefinition(stored.Type)
	if err != nil {
		return nil, err
	}
	rel := def.New()
	id, err := AsID(stored.Props["id"])
	if err != nil {
		return nil, types.NewValidationError(
			fmt.Sprintf("stored relationship of type %q has no usable id", stored.Type))
	}
	if err := rel.AssignID(id); err != nil {
		return nil, err
	}
	rel.SetEndpoints(start, end)
	for _, p := range def.Properties {
		v, ok := stored.Props[p.Name]
		if !ok || v == nil {
			continue
		}
		if err := p.Set(rel, v); err != nil {
			return nil, types.NewValidationError(
				fmt.Sprintf("property %q of %q: %s", p.Name, def.Type, err))
		}
	}
	return rel, nil
}

// LoadComplexProperties loads the private companion nodes of node and
// assigns them, recursively up to the hydrator's depth bound. Already
// visited ids are not reloaded, so malformed self-referencing structures
// cannot loop.
func (h *Hydrator) LoadComplexProperties(ctx context.Context, runner queryRunner, node Node) error {
	return h.loadComplex(ctx, runner, node, node.Label(), 0, map[types.ID]bool{})
}

func (h *Hydrator) loadComplex(ctx context.Context, runner queryRunner, entity Node, label string, depth int, visited map[types.ID]bool) error {
	if depth >= h.maxDepth {
		return nil
	}
	id := entity.EntityID()
	if id.IsZero() {
		return types.NewValidationError("cannot load complex properties of an entity without an id")
	}
	if visited[id] {
		return nil
	}
	visited[id] = true

	props, err := h.registry.NodeProperties(label)
	if err != nil {
		return err
	}
	complexProps := map[string]PropertyDef{}
	for _, p := range props {
		if p.Kind == KindComplex || p.Kind == KindComplexCollection {
			complexProps[p.Name] = p
		}
	}
	if len(complexProps) == 0 {
		return nil
	}

	result, err := runner.Run(ctx, `
		MATCH (p {id: $id})-[rel]->(c)
		WHERE type(rel) STARTS WITH $prefix
		RETURN type(rel) AS rel_type, rel.sequence_number AS seq, c AS child`,
		map[string]any{"id": string(id), "prefix": propertyRelPrefix})
	if err != nil {
		return err
	}

	type entry struct {
		seq   int64
		child Node
	}
	loaded := map[string][]entry{}
	for _, rec := range result.Records {
		relType, err := AsString(rec["rel_type"])
		if err != nil {
			continue
		}
		name, ok := RelationshipTypeToPropertyName(relType)
		if !ok {
			continue
		}
		p, ok := complexProps[name]
		if !ok {
			// A companion node for a property no longer registered.
			continue
		}
		storedChild, ok := rec["child"].(graph.Node)
		if !ok {
			return types.NewValidationError(
				fmt.Sprintf("companion record for property %q is not a node", name))
		}
		child, err := h.HydrateNode(storedChild)
		if err != nil {
			return err
		}
		if err := h.loadComplex(ctx, runner, child, p.Label, depth+1, visited); err != nil {
			return err
		}
		var seq int64
		if s, err := AsInt(rec["seq"]); err == nil {
			seq = s
		}
		loaded[name] = append(loaded[name], entry{seq: seq, child: child})
	}

	for name, entries := range loaded {
		p := complexProps[name]
		sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
		var value any
		if p.Kind == KindComplex {
			if len(entries) > 1 {
				return types.NewValidationError(
					fmt.Sprintf("property %q has %d companion nodes, expected one", name, len(entries)))
			}
			value = entries[0].child
		} else {
			items := make([]Node, len(entries))
			for i, e := range entries {
				items[i] = e.child
			}
			value = items
		}
		if err := p.Set(entity, value); err != nil {
			return types.NewValidationError(
				fmt.Sprintf("property %q of %q: %s", name, label, err))
		}
	}
	return nil
}

// Coercion helpers for Set accessors. Stored values arrive as the
// store-agnostic forms produced by serialization: int64, float64, bool,
// string, and []any.

// AsString coerces a stored value to a string.
func AsString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected a string, got %T", v)
	}
	return s, nil
}

// AsInt coerces a stored value to an int64.
func AsInt(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float64:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("expected an integer, got %T", v)
	}
}

// AsFloat coerces a stored value to a float64.
func AsFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("expected a float, got %T", v)
	}
}

// AsBool coerces a stored value to a bool.
func AsBool(v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("expected a bool, got %T", v)
	}
	return b, nil
}

// AsTime coerces a stored value to a time.Time. Times are stored as
// RFC 3339 strings; native driver times are accepted as well.
func AsTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, x)
		if err != nil {
			return time.Time{}, fmt.Errorf("expected an RFC 3339 time: %w", err)
		}
		return t, nil
	default:
		return time.Time{}, fmt.Errorf("expected a time, got %T", v)
	}
}

// AsID coerces a stored value to an entity id.
func AsID(v any) (types.ID, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected an id string, got %T", v)
	}
	return types.ParseID(s)
}

// AsStringSlice coerces a stored value to a []string.
func AsStringSlice(v any) ([]string, error) {
	switch x := v.(type) {
	case []string:
		return x, nil
	case []any:
		out := make([]string, len(x))
		for i, e := range x {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("expected strings, got %T", e)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a string list, got %T", v)
	}
}

// AsInt64Slice coerces a stored value to a []int64.
func AsInt64Slice(v any) ([]int64, error) {
	switch x := v.(type) {
	case []int64:
		return x, nil
	case []any:
		out := make([]int64, len(x))
		for i, e := range x {
			n, err := AsInt(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an integer list, got %T", v)
	}
}
