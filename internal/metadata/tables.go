package metadata

import (
	"strings"

	"github.com/conduit-lang/edmxtools/internal/csdl"
	"github.com/conduit-lang/edmxtools/internal/xmlast"
)

const (
	baseEntityType  = "Edm.EntityType"
	baseComplexType = "Edm.ComplexType"
	defaultEnumBase = "Edm.Int32"
)

// associationEnd is one <End> of a V2 association
type associationEnd struct {
	typeName     string
	multiplicity string
}

// association is a V2 association with its ends keyed by role
type association struct {
	ends       map[string]associationEnd
	constraint *associationConstraint
}

type associationConstraint struct {
	principalRole  string
	principalProps []string
	dependentRole  string
	dependentProps []string
}

// tables holds the cross-schema lookup maps built before the element walk.
// They are never modified once the walk starts.
type tables struct {
	// aliases maps schema and include aliases to namespaces
	aliases map[string]string
	// types maps fully qualified type names to their base kind
	types map[string]string
	// associations maps fully qualified association names to their ends
	associations map[string]*association
}

func buildTables(root *xmlast.Element, schemas []*xmlast.Element) *tables {
	t := &tables{
		aliases:      map[string]string{},
		types:        map[string]string{},
		associations: map[string]*association{},
	}
	for _, ref := range root.Children(csdl.ElementReference) {
		for _, include := range ref.Children(csdl.ElementInclude) {
			ns, _ := include.AttributeValue(csdl.AttributeNamespace)
			alias, _ := include.AttributeValue(csdl.AttributeAlias)
			if ns != "" && alias != "" {
				t.aliases[alias] = ns
			}
		}
	}
	for _, schema := range schemas {
		ns, _ := schema.AttributeValue(csdl.AttributeNamespace)
		if alias, ok := schema.AttributeValue(csdl.AttributeAlias); ok && alias != "" && ns != "" {
			t.aliases[alias] = ns
		}
	}
	// associations are scanned after all aliases are known since End types may use them
	for _, schema := range schemas {
		ns, _ := schema.AttributeValue(csdl.AttributeNamespace)
		t.scanTypes(schema, ns)
		t.scanAssociations(schema, ns)
	}
	return t
}

func (t *tables) scanTypes(schema *xmlast.Element, ns string) {
	for _, child := range schema.SubElements {
		name, ok := child.AttributeValue(csdl.AttributeName)
		if !ok || name == "" {
			continue
		}
		fq := qualify(ns, name)
		switch child.Name {
		case csdl.ElementEnumType, csdl.ElementTypeDefinition:
			base, _ := child.AttributeValue("UnderlyingType")
			if base == "" {
				base = defaultEnumBase
			}
			t.types[fq] = base
		case csdl.ElementEntityType:
			t.types[fq] = baseEntityType
		case csdl.ElementComplexType:
			t.types[fq] = baseComplexType
		}
	}
}

func (t *tables) scanAssociations(schema *xmlast.Element, ns string) {
	for _, assoc := range schema.Children(csdl.ElementAssociation) {
		name, _ := assoc.AttributeValue(csdl.AttributeName)
		if name == "" {
			continue
		}
		a := &association{ends: map[string]associationEnd{}}
		for _, end := range assoc.Children(csdl.ElementEnd) {
			role, _ := end.AttributeValue("Role")
			typeName, _ := end.AttributeValue(csdl.AttributeType)
			multiplicity, _ := end.AttributeValue("Multiplicity")
			fq, _ := t.resolve(typeName)
			a.ends[role] = associationEnd{typeName: fq, multiplicity: multiplicity}
		}
		if rc := assoc.FirstChild(csdl.ElementReferentialConstraint); rc != nil {
			a.constraint = parseAssociationConstraint(rc)
		}
		t.associations[qualify(ns, name)] = a
	}
}

func parseAssociationConstraint(rc *xmlast.Element) *associationConstraint {
	c := &associationConstraint{}
	if principal := rc.FirstChild("Principal"); principal != nil {
		c.principalRole, _ = principal.AttributeValue("Role")
		c.principalProps = propertyRefs(principal)
	}
	if dependent := rc.FirstChild("Dependent"); dependent != nil {
		c.dependentRole, _ = dependent.AttributeValue("Role")
		c.dependentProps = propertyRefs(dependent)
	}
	return c
}

func propertyRefs(el *xmlast.Element) []string {
	var names []string
	for _, ref := range el.Children(csdl.ElementPropertyRef) {
		if name, ok := ref.AttributeValue(csdl.AttributeName); ok {
			names = append(names, name)
		}
	}
	return names
}

// resolve strips a Collection(...) wrapper and substitutes a known alias prefix with
// its namespace
func (t *tables) resolve(name string) (string, bool) {
	inner, collection := unwrapCollection(name)
	return t.substituteAlias(inner), collection
}

func (t *tables) substituteAlias(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 {
		return name
	}
	if ns, ok := t.aliases[name[:idx]]; ok {
		return ns + name[idx:]
	}
	return name
}

func unwrapCollection(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "Collection(") && strings.HasSuffix(name, ")") {
		return name[len("Collection(") : len(name)-1], true
	}
	return name, false
}

func qualify(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + "." + name
}
