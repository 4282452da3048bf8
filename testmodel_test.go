package graphmodel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Shared domain fixture: Person with a complex Address property,
// Employee deriving from Person, and a WORKS_FOR relationship.

type Address struct {
	NodeBase
	Street string
	City   string
	State  string
}

func (a *Address) Label() string { return "Address" }

type Person struct {
	NodeBase
	Name      string
	Age       int64
	City      string
	Nicknames []string
	Address   *Address
}

func (p *Person) Label() string { return "Person" }

// person gives inherited property accessors a way to reach the embedded
// Person from any derived entity.
func (p *Person) person() *Person { return p }

type personLike interface {
	person() *Person
}

type Employee struct {
	Person
	Company string
}

func (e *Employee) Label() string { return "Employee" }

type WorksFor struct {
	RelationshipBase
	Since int64
}

func (w *WorksFor) Type() string { return "WORKS_FOR" }

// Chain is a self-referencing complex type used for cycle and depth tests.
type Chain struct {
	NodeBase
	Name string
	Next *Chain
}

func (c *Chain) Label() string { return "Chain" }

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()

	require.NoError(t, r.RegisterNode(NodeDefinition{
		Label: "Address",
		New:   func() Node { return &Address{} },
		Properties: []PropertyDef{
			{
				Name: "street", Kind: KindSimple,
				Get: func(e Entity) any { return e.(*Address).Street },
				Set: func(e Entity, v any) error {
					s, err := AsString(v)
					e.(*Address).Street = s
					return err
				},
			},
			{
				Name: "city", Kind: KindSimple,
				Get: func(e Entity) any { return e.(*Address).City },
				Set: func(e Entity, v any) error {
					s, err := AsString(v)
					e.(*Address).City = s
					return err
				},
			},
			{
				Name: "state", Kind: KindSimple,
				Get: func(e Entity) any { return e.(*Address).State },
				Set: func(e Entity, v any) error {
					s, err := AsString(v)
					e.(*Address).State = s
					return err
				},
			},
		},
	}))

	require.NoError(t, r.RegisterNode(NodeDefinition{
		Label: "Person",
		New:   func() Node { return &Person{} },
		Properties: []PropertyDef{
			{
				Name: "name", Kind: KindSimple, Required: true,
				Get: func(e Entity) any {
					name := e.(personLike).person().Name
					if name == "" {
						return nil
					}
					return name
				},
				Set: func(e Entity, v any) error {
					s, err := AsString(v)
					e.(personLike).person().Name = s
					return err
				},
			},
			{
				Name: "age", Kind: KindSimple,
				Get: func(e Entity) any { return e.(personLike).person().Age },
				Set: func(e Entity, v any) error {
					n, err := AsInt(v)
					e.(personLike).person().Age = n
					return err
				},
			},
			{
				Name: "city", Kind: KindSimple,
				Get: func(e Entity) any { return e.(personLike).person().City },
				Set: func(e Entity, v any) error {
					s, err := AsString(v)
					e.(personLike).person().City = s
					return err
				},
			},
			{
				Name: "nicknames", Kind: KindSimpleCollection,
				Get: func(e Entity) any {
					nn := e.(personLike).person().Nicknames
					if nn == nil {
						return nil
					}
					return nn
				},
				Set: func(e Entity, v any) error {
					ss, err := AsStringSlice(v)
					e.(personLike).person().Nicknames = ss
					return err
				},
			},
			{
				Name: "address", Kind: KindComplex, Label: "Address",
				Get: func(e Entity) any {
					a := e.(personLike).person().Address
					if a == nil {
						return nil
					}
					return Node(a)
				},
				Set: func(e Entity, v any) error {
					e.(personLike).person().Address = v.(Node).(*Address)
					return nil
				},
			},
		},
	}))

	require.NoError(t, r.RegisterNode(NodeDefinition{
		Label:  "Employee",
		Parent: "Person",
		New:    func() Node { return &Employee{} },
		Properties: []PropertyDef{
			{
				Name: "company", Kind: KindSimple,
				Get: func(e Entity) any { return e.(*Employee).Company },
				Set: func(e Entity, v any) error {
					s, err := AsString(v)
					e.(*Employee).Company = s
					return err
				},
			},
		},
	}))

	require.NoError(t, r.RegisterRelationship(RelationshipDefinition{
		Type: "WORKS_FOR",
		New:  func() Relationship { return &WorksFor{} },
		Properties: []PropertyDef{
			{
				Name: "since", Kind: KindSimple,
				Get: func(e Entity) any { return e.(*WorksFor).Since },
				Set: func(e Entity, v any) error {
					n, err := AsInt(v)
					e.(*WorksFor).Since = n
					return err
				},
			},
		},
	}))

	require.NoError(t, r.RegisterNode(NodeDefinition{
		Label: "Chain",
		New:   func() Node { return &Chain{} },
		Properties: []PropertyDef{
			{
				Name: "name", Kind: KindSimple,
				Get: func(e Entity) any { return e.(*Chain).Name },
				Set: func(e Entity, v any) error {
					s, err := AsString(v)
					e.(*Chain).Name = s
					return err
				},
			},
			{
				Name: "next", Kind: KindComplex, Label: "Chain",
				Get: func(e Entity) any {
					next := e.(*Chain).Next
					if next == nil {
						return nil
					}
					return Node(next)
				},
				Set: func(e Entity, v any) error {
					e.(*Chain).Next = v.(Node).(*Chain)
					return nil
				},
			},
		},
	}))

	return r
}
