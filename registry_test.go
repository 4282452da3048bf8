package graphmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savasp/graphmodel-go/types"
)

func TestRegistryRegistration(t *testing.T) {
	t.Run("duplicate label is a conflict", func(t *testing.T) {
		r := testRegistry(t)
		err := r.RegisterNode(NodeDefinition{
			Label: "Person",
			New:   func() Node { return &Person{} },
		})
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeConflict))
	})

	t.Run("unknown parent is rejected", func(t *testing.T) {
		r := NewRegistry()
		err := r.RegisterNode(NodeDefinition{
			Label:  "Employee",
			Parent: "Person",
			New:    func() Node { return &Employee{} },
		})
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeValidationFailed))
	})

	t.Run("reserved prefix in a name is rejected", func(t *testing.T) {
		r := NewRegistry()
		err := r.RegisterNode(NodeDefinition{
			Label: "__PROPERTY__Evil__",
			New:   func() Node { return &Person{} },
		})
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeValidationFailed))
	})

	t.Run("reserved id property is rejected", func(t *testing.T) {
		r := NewRegistry()
		err := r.RegisterNode(NodeDefinition{
			Label: "Person",
			New:   func() Node { return &Person{} },
			Properties: []PropertyDef{{
				Name: "id", Kind: KindSimple,
				Get: func(e Entity) any { return nil },
				Set: func(e Entity, v any) error { return nil },
			}},
		})
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeValidationFailed))
	})

	t.Run("complex property on a relationship is rejected", func(t *testing.T) {
		r := NewRegistry()
		err := r.RegisterRelationship(RelationshipDefinition{
			Type: "WORKS_FOR",
			New:  func() Relationship { return &WorksFor{} },
			Properties: []PropertyDef{{
				Name: "office", Kind: KindComplex, Label: "Address",
				Get: func(e Entity) any { return nil },
				Set: func(e Entity, v any) error { return nil },
			}},
		})
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeValidationFailed))
	})
}

func TestRegistryLabels(t *testing.T) {
	r := testRegistry(t)

	t.Run("label set walks the parent chain", func(t *testing.T) {
		labels, err := r.LabelsFor("Employee")
		require.NoError(t, err)
		assert.Equal(t, []string{"Employee", "Person"}, labels)
	})

	t.Run("properties include inherited ones", func(t *testing.T) {
		props, err := r.NodeProperties("Employee")
		require.NoError(t, err)
		names := make([]string, len(props))
		for i, p := range props {
			names[i] = p.Name
		}
		assert.Equal(t, []string{"company", "name", "age", "city", "nicknames", "address"}, names)
	})
}

func TestRegistryResolveNode(t *testing.T) {
	r := testRegistry(t)

	t.Run("most derived label wins", func(t *testing.T) {
		def, err := r.ResolveNode([]string{"Person", "Employee"})
		require.NoError(t, err)
		assert.Equal(t, "Employee", def.Label)
	})

	t.Run("unknown labels are skipped", func(t *testing.T) {
		def, err := r.ResolveNode([]string{"Ghost", "Person"})
		require.NoError(t, err)
		assert.Equal(t, "Person", def.Label)
	})

	t.Run("no registered label fails", func(t *testing.T) {
		_, err := r.ResolveNode([]string{"Ghost"})
		require.Error(t, err)
		assert.True(t, types.HasCode(err, types.ErrCodeTypeResolutionFailed))
	})
}
