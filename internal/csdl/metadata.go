package csdl

import "github.com/conduit-lang/edmxtools/internal/position"

// MetadataElement is one node of a resolved service metadata tree. Path is unique
// within one imported metadata set; overloaded actions and functions share Name and
// differ in the "(Type1,Type2)" signature suffix of their path segment.
type MetadataElement struct {
	Path                   string                   `json:"path"`
	Name                   string                   `json:"name"`
	Kind                   string                   `json:"kind"`
	Content                []*MetadataElement       `json:"content"`
	Location               *position.Location       `json:"location,omitempty"`
	IsAnnotatable          bool                     `json:"isAnnotatable"`
	IsCollectionValued     bool                     `json:"isCollectionValued"`
	IsComplexType          bool                     `json:"isComplexType"`
	IsEntityType           bool                     `json:"isEntityType"`
	EdmPrimitiveType       string                   `json:"edmPrimitiveType,omitempty"`
	StructuredType         string                   `json:"structuredType,omitempty"`
	Keys                   []string                 `json:"keys,omitempty"`
	TargetKinds            []string                 `json:"targetKinds"`
	ReferentialConstraints []*ReferentialConstraint `json:"referentialConstraints,omitempty"`
}

// ReferentialConstraint links a dependent property of a navigation source to a
// principal property of its target
type ReferentialConstraint struct {
	SourceTypeName     string `json:"sourceTypeName"`
	SourceProperty     string `json:"sourceProperty"`
	TargetTypeName     string `json:"targetTypeName"`
	ReferencedProperty string `json:"referencedProperty"`
}

// Child returns the direct child with the given name
func (m *MetadataElement) Child(name string) *MetadataElement {
	for _, child := range m.Content {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// Walk visits m and all its descendants depth-first
func (m *MetadataElement) Walk(fn func(*MetadataElement)) {
	fn(m)
	for _, child := range m.Content {
		child.Walk(fn)
	}
}
