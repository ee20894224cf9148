// Package metadata resolves EDMX service metadata documents into csdl.MetadataElement
// trees. Type references are resolved across schemas, aliases and V2 associations,
// and overloaded actions and functions get signature-qualified paths.
package metadata

import (
	"strings"

	"github.com/conduit-lang/edmxtools/internal/csdl"
	"github.com/conduit-lang/edmxtools/internal/position"
	"github.com/conduit-lang/edmxtools/internal/xmlast"
)

// permittedKinds are the element kinds that become metadata elements.
// Everything else is skipped together with its subtree.
var permittedKinds = map[string]bool{
	csdl.ElementSchema:             true,
	csdl.ElementEntityType:         true,
	csdl.ElementComplexType:        true,
	csdl.ElementProperty:           true,
	csdl.ElementNavigationProperty: true,
	csdl.ElementEntityContainer:    true,
	csdl.ElementEntitySet:          true,
	csdl.ElementSingleton:          true,
	csdl.ElementFunction:           true,
	csdl.ElementAction:             true,
	csdl.ElementFunctionImport:     true,
	csdl.ElementActionImport:       true,
	csdl.ElementParameter:          true,
	csdl.ElementReturnType:         true,
}

// rootKinds get namespace qualified names
var rootKinds = map[string]bool{
	csdl.ElementEntityType:      true,
	csdl.ElementComplexType:     true,
	csdl.ElementFunction:        true,
	csdl.ElementAction:          true,
	csdl.ElementEntityContainer: true,
}

// structuredReferenceKinds always reference a structured type (or an operation)
var structuredReferenceKinds = map[string]bool{
	csdl.ElementEntitySet:          true,
	csdl.ElementSingleton:          true,
	csdl.ElementNavigationProperty: true,
	csdl.ElementFunctionImport:     true,
	csdl.ElementActionImport:       true,
}

// DetectVersion returns the OData version of a metadata document: "2.0" for EDMX 1.0,
// "4.0" for EDMX 4.x and "" when it cannot be told
func DetectVersion(doc *xmlast.Document) string {
	if doc == nil || doc.Root == nil {
		return ""
	}
	version, _ := doc.Root.AttributeValue(csdl.AttributeVersion)
	switch {
	case version == "1.0":
		return "2.0"
	case strings.HasPrefix(version, "4."):
		return "4.0"
	}
	switch doc.Root.NamespaceURI() {
	case csdl.EdmxNamespaceV2:
		return "2.0"
	case csdl.EdmxNamespaceV4:
		return "4.0"
	}
	return ""
}

// ConvertText parses text and converts it
func ConvertText(text, uri string) []*csdl.MetadataElement {
	return Convert(xmlast.Parse(text), uri)
}

// Convert resolves all schemas of a metadata document. The result is empty, never nil,
// for documents without schemas.
func Convert(doc *xmlast.Document, uri string) []*csdl.MetadataElement {
	out := []*csdl.MetadataElement{}
	if doc == nil || doc.Root == nil {
		return out
	}
	dataServices := doc.Root.FirstChild(csdl.ElementDataServices)
	if dataServices == nil {
		return out
	}
	schemas := dataServices.Children(csdl.ElementSchema)
	w := &walker{tables: buildTables(doc.Root, schemas), seen: map[string]bool{}}

	for _, schema := range schemas {
		ns, _ := schema.AttributeValue(csdl.AttributeNamespace)
		ctx := context{uri: uri, namespace: ns}
		for _, child := range schema.SubElements {
			if m := w.convert(child, ctx); m != nil {
				out = append(out, m)
			}
		}
	}
	return out
}

// context carries the position of the walk. It is passed by value so a child never
// sees changes made while converting a sibling.
type context struct {
	uri        string
	namespace  string
	parentPath string
	// parentType is the fully qualified name of the enclosing structured type
	parentType string
}

type walker struct {
	tables *tables
	// seen holds produced paths; a second element with an existing path is dropped
	seen map[string]bool
}

func (w *walker) convert(el *xmlast.Element, ctx context) *csdl.MetadataElement {
	kind := el.Name
	if !permittedKinds[kind] || kind == csdl.ElementSchema {
		return nil
	}

	name, ok := elementName(el, kind, ctx)
	if !ok {
		return nil
	}
	segment := name
	if signature, ok := w.signature(el, kind); ok {
		segment += signature
	}
	path := segment
	if ctx.parentPath != "" {
		path = ctx.parentPath + "/" + segment
	}
	if w.seen[path] {
		return nil
	}
	w.seen[path] = true

	m := &csdl.MetadataElement{
		Path:          path,
		Name:          name,
		Kind:          kind,
		Content:       []*csdl.MetadataElement{},
		IsAnnotatable: true,
		TargetKinds:   []string{kind},
		Location: &position.Location{
			URI:   ctx.uri,
			Range: *position.TransformElementRange(&el.Position, el),
		},
	}

	typeName, collection := w.referenceType(el, kind)
	m.IsCollectionValued = collection
	w.classify(m, typeName)

	switch kind {
	case csdl.ElementEntityType, csdl.ElementComplexType:
		if kind == csdl.ElementEntityType {
			m.IsEntityType = true
			m.Keys = keys(el)
		} else {
			m.IsComplexType = true
		}
		m.StructuredType = name
		ctx.parentType = name
	case csdl.ElementNavigationProperty:
		m.ReferentialConstraints = w.referentialConstraints(el, ctx.parentType, typeName)
	}

	childCtx := ctx
	childCtx.parentPath = path
	if kind == csdl.ElementFunctionImport {
		if it := w.bindingParameter(el, path, ctx.uri); it != nil {
			m.Content = append(m.Content, it)
		}
	}
	for _, sub := range el.SubElements {
		if child := w.convert(sub, childCtx); child != nil {
			m.Content = append(m.Content, child)
		}
	}
	if kind == csdl.ElementFunctionImport {
		if rt := w.functionImportReturnType(el, path, ctx.uri); rt != nil {
			m.Content = append(m.Content, rt)
		}
	}
	return m
}

func elementName(el *xmlast.Element, kind string, ctx context) (string, bool) {
	if kind == csdl.ElementReturnType {
		return csdl.ReturnTypeName, true
	}
	name, ok := el.AttributeValue(csdl.AttributeName)
	if !ok || name == "" {
		return "", false
	}
	if rootKinds[kind] && ctx.parentPath == "" {
		return qualify(ctx.namespace, name), true
	}
	return name, true
}

// referenceAttribute names the attribute holding the type an element refers to
func referenceAttribute(kind string) string {
	switch kind {
	case csdl.ElementEntitySet, csdl.ElementSingleton:
		return "EntityType"
	case csdl.ElementFunctionImport:
		return csdl.ElementFunction
	case csdl.ElementActionImport:
		return csdl.ElementAction
	}
	return csdl.AttributeType
}

// referenceType resolves the fully qualified type an element refers to and whether
// it is collection valued
func (w *walker) referenceType(el *xmlast.Element, kind string) (string, bool) {
	if raw, ok := el.AttributeValue(referenceAttribute(kind)); ok && raw != "" {
		return w.tables.resolve(raw)
	}
	switch kind {
	case csdl.ElementSingleton:
		if raw, ok := el.AttributeValue(csdl.AttributeType); ok && raw != "" {
			return w.tables.resolve(raw)
		}
	case csdl.ElementFunctionImport:
		// V2 function imports name their result type directly
		if raw, ok := el.AttributeValue(csdl.AttributeReturnType); ok && raw != "" {
			return unwrapCollection(raw)
		}
	case csdl.ElementNavigationProperty:
		if end, ok := w.associationEnd(el, "ToRole"); ok {
			return end.typeName, end.multiplicity == "*"
		}
	}
	return "", false
}

func (w *walker) association(nav *xmlast.Element) *association {
	relationship, ok := nav.AttributeValue("Relationship")
	if !ok {
		return nil
	}
	return w.tables.associations[w.tables.substituteAlias(relationship)]
}

func (w *walker) associationEnd(nav *xmlast.Element, roleAttribute string) (associationEnd, bool) {
	assoc := w.association(nav)
	if assoc == nil {
		return associationEnd{}, false
	}
	role, _ := nav.AttributeValue(roleAttribute)
	end, ok := assoc.ends[role]
	return end, ok
}

// classify derives the primitive or structured type fields from a resolved type name.
// Unknown types leave both fields unset.
func (w *walker) classify(m *csdl.MetadataElement, typeName string) {
	if typeName == "" {
		return
	}
	if isPrimitive(typeName) {
		m.EdmPrimitiveType = typeName
		return
	}
	switch base := w.tables.types[typeName]; base {
	case baseEntityType:
		m.IsEntityType = true
		m.StructuredType = typeName
	case baseComplexType:
		m.IsComplexType = true
		m.StructuredType = typeName
	case "":
		if structuredReferenceKinds[m.Kind] {
			m.StructuredType = typeName
		}
	default:
		m.EdmPrimitiveType = base
	}
}

func isPrimitive(typeName string) bool {
	return strings.HasPrefix(typeName, "Edm.") && typeName != baseEntityType && typeName != baseComplexType
}

// signature builds the "(Type1,Type2)" overload suffix. Bound actions omit their
// binding parameter, functions list every parameter, unbound actions have none.
func (w *walker) signature(el *xmlast.Element, kind string) (string, bool) {
	params := el.Children(csdl.ElementParameter)
	switch kind {
	case csdl.ElementFunction:
	case csdl.ElementAction:
		bound, _ := el.AttributeValue(csdl.AttributeIsBound)
		if bound != "true" {
			return "", false
		}
		if len(params) > 0 {
			params = params[1:]
		}
	default:
		return "", false
	}
	types := make([]string, 0, len(params))
	for _, param := range params {
		raw, _ := param.AttributeValue(csdl.AttributeType)
		fq, collection := w.tables.resolve(raw)
		if collection {
			fq = "Collection(" + fq + ")"
		}
		types = append(types, fq)
	}
	return "(" + strings.Join(types, ",") + ")", true
}

func keys(entityType *xmlast.Element) []string {
	key := entityType.FirstChild(csdl.ElementKey)
	if key == nil {
		return nil
	}
	return propertyRefs(key)
}

func (w *walker) referentialConstraints(nav *xmlast.Element, sourceType, targetType string) []*csdl.ReferentialConstraint {
	var out []*csdl.ReferentialConstraint
	for _, rc := range nav.Children(csdl.ElementReferentialConstraint) {
		property, _ := rc.AttributeValue(csdl.AttributeProperty)
		referenced, _ := rc.AttributeValue("ReferencedProperty")
		out = append(out, &csdl.ReferentialConstraint{
			SourceTypeName:     sourceType,
			SourceProperty:     property,
			TargetTypeName:     targetType,
			ReferencedProperty: referenced,
		})
	}
	if len(out) > 0 {
		return out
	}

	assoc := w.association(nav)
	if assoc == nil || assoc.constraint == nil {
		return nil
	}
	c := assoc.constraint
	fromRole, _ := nav.AttributeValue("FromRole")
	source, referencedProps := c.principalProps, c.dependentProps
	if fromRole == c.dependentRole {
		source, referencedProps = c.dependentProps, c.principalProps
	}
	for i := range source {
		if i >= len(referencedProps) {
			break
		}
		out = append(out, &csdl.ReferentialConstraint{
			SourceTypeName:     sourceType,
			SourceProperty:     source[i],
			TargetTypeName:     targetType,
			ReferencedProperty: referencedProps[i],
		})
	}
	return out
}

// functionImportReturnType synthesizes the "$ReturnType" child of a V2 function import
func (w *walker) functionImportReturnType(el *xmlast.Element, parentPath, uri string) *csdl.MetadataElement {
	attr := el.Attribute(csdl.AttributeReturnType)
	if attr == nil || attr.Value == "" {
		return nil
	}
	path := parentPath + "/" + csdl.ReturnTypeName
	if w.seen[path] {
		return nil
	}
	w.seen[path] = true

	typeName, collection := w.tables.resolve(attr.Value)
	m := &csdl.MetadataElement{
		Path:               path,
		Name:               csdl.ReturnTypeName,
		Kind:               csdl.ElementReturnType,
		Content:            []*csdl.MetadataElement{},
		IsAnnotatable:      true,
		IsCollectionValued: collection,
		TargetKinds:        []string{csdl.ElementReturnType},
		Location:           &position.Location{URI: uri, Range: *position.TransformRange(&attr.Position)},
	}
	w.classify(m, typeName)
	return m
}

// bindingParameter synthesizes the implicit "_it" parameter of a V2 function import
// marked with sap:action-for
func (w *walker) bindingParameter(el *xmlast.Element, parentPath, uri string) *csdl.MetadataElement {
	attr := el.LocalAttribute("action-for")
	if attr == nil || attr.Value == "" {
		return nil
	}
	path := parentPath + "/" + csdl.BindingParameterName
	if w.seen[path] {
		return nil
	}
	w.seen[path] = true

	return &csdl.MetadataElement{
		Path:           path,
		Name:           csdl.BindingParameterName,
		Kind:           csdl.ElementParameter,
		Content:        []*csdl.MetadataElement{},
		IsAnnotatable:  false,
		IsEntityType:   true,
		StructuredType: w.tables.substituteAlias(attr.Value),
		TargetKinds:    []string{csdl.ElementParameter},
		Location:       &position.Location{URI: uri, Range: *position.TransformRange(&attr.Position)},
	}
}
