package graphmodel

import (
	"fmt"
	"strings"

	"github.com/savasp/graphmodel-go/types"
)

// Complex properties are stored as private companion nodes linked by
// relationships whose type carries a reserved prefix and suffix around
// the property name. The prefix marks graph structure that belongs to
// the mapping layer rather than the domain model: queries, deletion
// safety checks, and hydration all treat it as internal.
const (
	propertyRelPrefix = "__PROPERTY__"
	propertyRelSuffix = "__"
)

// DefaultDepthAllowed bounds how many levels of complex properties are
// serialized and loaded unless configured otherwise.
const DefaultDepthAllowed = 5

// PropertyNameToRelationshipType returns the private relationship type
// for a complex property.
func PropertyNameToRelationshipType(name string) string {
	return propertyRelPrefix + name + propertyRelSuffix
}

// RelationshipTypeToPropertyName recovers the property name from a
// private relationship type. The second result is false when relType is
// not a private property relationship.
func RelationshipTypeToPropertyName(relType string) (string, bool) {
	if !IsPropertyRelationshipType(relType) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(relType, propertyRelPrefix), propertyRelSuffix), true
}

// IsPropertyRelationshipType reports whether relType names a private
// complex-property relationship.
func IsPropertyRelationshipType(relType string) bool {
	return strings.HasPrefix(relType, propertyRelPrefix) &&
		strings.HasSuffix(relType, propertyRelSuffix) &&
		len(relType) > len(propertyRelPrefix)+len(propertyRelSuffix)
}

// validateDomainName rejects property names, labels, and relationship
// types that would collide with the reserved prefix or break out of the
// identifier grammar that query text requires.
func validateDomainName(kind, name string) error {
	if name == "" {
		return types.NewValidationError(kind + " name must not be empty")
	}
	if strings.HasPrefix(name, propertyRelPrefix) {
		return types.NewValidationError(
			fmt.Sprintf("%s name %q uses the reserved prefix %q", kind, name, propertyRelPrefix))
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return types.NewValidationError(
					fmt.Sprintf("%s name %q must not start with a digit", kind, name))
			}
		default:
			return types.NewValidationError(
				fmt.Sprintf("%s name %q contains the invalid character %q", kind, name, r))
		}
	}
	return nil
}
