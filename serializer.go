package graphmodel

import (
	"fmt"
	"time"

	"github.com/savasp/graphmodel-go/types"
)

// EntityInfo is the serialized form of an entity: what goes on the record
// itself and what becomes private companion nodes. It is store-agnostic;
// the managers turn it into Cypher.
type EntityInfo struct {
	// Labels is the full label set, most derived first.
	Labels []string
	// SimpleProperties holds the scalar and scalar-collection values.
	// The id is not included; the managers bind it separately.
	SimpleProperties map[string]any
	// ComplexProperties holds the nested values, in registration order.
	ComplexProperties []ComplexProperty
}

// ComplexProperty is one complex-valued property of a serialized entity.
type ComplexProperty struct {
	Name string
	// Singular distinguishes a single nested value from a collection.
	Singular bool
	// Label is the companion node label.
	Label string
	// Entries holds the nested values. A singular property has one entry.
	Entries []ComplexEntry
}

// ComplexEntry is one nested value with its position in the collection.
type ComplexEntry struct {
	Info           *EntityInfo
	SequenceNumber int
}

// Serializer turns registered entities into EntityInfo trees using the
// registration table's accessors. It never reflects over domain structs.
type Serializer struct {
	registry *Registry
	maxDepth int
}

// NewSerializer returns a serializer bounded at maxDepth levels of
// complex-property nesting. A non-positive maxDepth uses
// DefaultDepthAllowed.
func NewSerializer(registry *Registry, maxDepth int) *Serializer {
	if maxDepth <= 0 {
		maxDepth = DefaultDepthAllowed
	}
	return &Serializer{registry: registry, maxDepth: maxDepth}
}

// SerializeNode serializes n and its complex properties.
func (s *Serializer) SerializeNode(n Node) (*EntityInfo, error) {
	return s.serializeNode(n, n.Label(), 0, map[Entity]bool{})
}

func (s *Serializer) serializeNode(n Node, label string, depth int, path map[Entity]bool) (*EntityInfo, error) {
	if depth > s.maxDepth {
		return nil, types.NewValidationError(
			fmt.Sprintf("complex property nesting exceeds the allowed depth %d", s.maxDepth))
	}
	if path[n] {
		return nil, types.NewValidationError(
			fmt.Sprintf("complex property cycle through label %q", label))
	}
	path[n] = true
	defer delete(path, n)

	labels, err := s.registry.LabelsFor(label)
	if err != nil {
		return nil, err
	}
	props, err := s.registry.NodeProperties(label)
	if err != nil {
		return nil, err
	}
	info := &EntityInfo{
		Labels:           labels,
		SimpleProperties: map[string]any{},
	}
	for _, p := range props {
		value := p.Get(n)
		switch p.Kind {
		case KindSimple, KindSimpleCollection:
			if value == nil {
				if p.Required {
					return nil, types.NewValidationError(
						fmt.Sprintf("required property %q of %q is nil", p.Name, label))
				}
				continue
			}
			normalized, err := normalizeValue(value)
			if err != nil {
				return nil, types.NewValidationError(
					fmt.Sprintf("property %q of %q: %s", p.Name, label, err))
			}
			info.SimpleProperties[p.Name] = normalized
		case KindComplex:
			if value == nil {
				if p.Required {
					return nil, types.NewValidationError(
						fmt.Sprintf("required property %q of %q is nil", p.Name, label))
				}
				continue
			}
			nested, ok := value.(Node)
			if !ok {
				return nil, types.NewValidationError(
					fmt.Sprintf("complex property %q of %q must yield a node entity, got %T", p.Name, label, value))
			}
			nestedInfo, err := s.serializeNode(nested, p.Label, depth+1, path)
			if err != nil {
				return nil, err
			}
			info.ComplexProperties = append(info.ComplexProperties, ComplexProperty{
				Name:     p.Name,
				Singular: true,
				Label:    p.Label,
				Entries:  []ComplexEntry{{Info: nestedInfo}},
			})
		case KindComplexCollection:
			if value == nil {
				if p.Required {
					return nil, types.NewValidationError(
						fmt.Sprintf("required property %q of %q is nil", p.Name, label))
				}
				continue
			}
			items, ok := value.([]Node)
			if !ok {
				return nil, types.NewValidationError(
					fmt.Sprintf("complex collection %q of %q must yield node entities, got %T", p.Name, label, value))
			}
			cp := ComplexProperty{Name: p.Name, Label: p.Label}
			for i, item := range items {
				if item == nil {
					return nil, types.NewValidationError(
						fmt.Sprintf("complex collection %q of %q contains a nil entry", p.Name, label))
				}
				nestedInfo, err := s.serializeNode(item, p.Label, depth+1, path)
				if err != nil {
					return nil, err
				}
				cp.Entries = append(cp.Entries, ComplexEntry{Info: nestedInfo, SequenceNumber: i})
			}
			info.ComplexProperties = append(info.ComplexProperties, cp)
		}
	}
	return info, nil
}

// SerializeRelationship serializes the simple properties of r. The id and
// endpoints are not included; the managers bind them separately.
func (s *Serializer) SerializeRelationship(r Relationship) (map[string]any, error) {
	def, err := s.registry.RelationshipDefinition(r.Type())
	if err != nil {
		return nil, err
	}
	props := map[string]any{}
	for _, p := range def.Properties {
		value := p.Get(r)
		if value == nil {
			if p.Required {
				return nil, types.NewValidationError(
					fmt.Sprintf("required property %q of %q is nil", p.Name, def.Type))
			}
			continue
		}
		normalized, err := normalizeValue(value)
		if err != nil {
			return nil, types.NewValidationError(
				fmt.Sprintf("property %q of %q: %s", p.Name, def.Type, err))
		}
		props[p.Name] = normalized
	}
	return props, nil
}

// normalizeValue converts a property value to the store-agnostic form:
// int64, float64, bool, string (times as RFC 3339, ids as strings), or a
// []any of those.
func normalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case float64:
		return x, nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	case time.Duration:
		return x.Nanoseconds(), nil
	case types.ID:
		return string(x), nil
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, nil
	case []int:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = int64(n)
		}
		return out, nil
	case []int64:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = n
		}
		return out, nil
	case []float64:
		out := make([]any, len(x))
		for i, f := range x {
			out[i] = f
		}
		return out, nil
	case []bool:
		out := make([]any, len(x))
		for i, b := range x {
			out[i] = b
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			n, err := normalizeValue(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}
