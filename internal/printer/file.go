package printer

import (
	"github.com/conduit-lang/edmxtools/internal/csdl"
)

const edmxPrefix = "edmx"

// TargetElement rebuilds the <Annotations> element of a target
func TargetElement(target *csdl.Target) *csdl.Element {
	el := csdl.NewElement(csdl.ElementAnnotations).SetAttribute(csdl.AttributeTarget, target.Name)
	if target.Qualifier != "" {
		el.SetAttribute(csdl.AttributeQualifier, target.Qualifier)
	}
	for _, term := range target.Terms {
		el.Append(term)
	}
	return el
}

// PrintTarget renders a target as an <Annotations> block
func PrintTarget(target *csdl.Target, opts Options) string {
	return PrintElement(TargetElement(target), opts)
}

// PrintAnnotationFile renders a complete EDMX annotation document. Targets are
// grouped into one schema per namespace in order of first appearance.
func PrintAnnotationFile(file *csdl.AnnotationFile, opts Options) string {
	return PrintElement(FileElement(file), opts)
}

// FileElement rebuilds the element tree of an annotation file
func FileElement(file *csdl.AnnotationFile) *csdl.Element {
	root := edmxElement(csdl.ElementEdmx).
		SetAttribute("xmlns:"+edmxPrefix, csdl.EdmxNamespaceV4).
		SetAttribute(csdl.AttributeVersion, "4.0")

	for _, group := range groupReferences(file.References) {
		ref := edmxElement(csdl.ElementReference).SetAttribute(csdl.AttributeURI, group.uri)
		for _, r := range group.refs {
			include := edmxElement(csdl.ElementInclude).SetAttribute(csdl.AttributeNamespace, r.Name)
			if r.Alias != "" {
				include.SetAttribute(csdl.AttributeAlias, r.Alias)
			}
			ref.Append(include)
		}
		root.Append(ref)
	}

	dataServices := edmxElement(csdl.ElementDataServices)
	for _, schema := range schemas(file) {
		dataServices.Append(schema)
	}
	return root.Append(dataServices)
}

func edmxElement(name string) *csdl.Element {
	el := csdl.NewElement(name)
	el.NamespaceAlias = edmxPrefix
	el.Namespace = csdl.EdmxNamespaceV4
	return el
}

type referenceGroup struct {
	uri  string
	refs []*csdl.Reference
}

func groupReferences(refs []*csdl.Reference) []*referenceGroup {
	var groups []*referenceGroup
	byURI := map[string]*referenceGroup{}
	for _, ref := range refs {
		g, ok := byURI[ref.URI]
		if !ok {
			g = &referenceGroup{uri: ref.URI}
			byURI[ref.URI] = g
			groups = append(groups, g)
		}
		g.refs = append(g.refs, ref)
	}
	return groups
}

func schemas(file *csdl.AnnotationFile) []*csdl.Element {
	var out []*csdl.Element
	byNamespace := map[string]*csdl.Element{}
	schemaFor := func(ns, alias string) *csdl.Element {
		if el, ok := byNamespace[ns]; ok {
			return el
		}
		el := csdl.NewElement(csdl.ElementSchema).
			SetAttribute("xmlns", csdl.EdmNamespaceV4).
			SetAttribute(csdl.AttributeNamespace, ns)
		if alias != "" {
			el.SetAttribute(csdl.AttributeAlias, alias)
		}
		byNamespace[ns] = el
		out = append(out, el)
		return el
	}

	if file.Namespace != nil {
		schemaFor(file.Namespace.Name, file.Namespace.Alias)
	}
	for _, target := range file.Targets {
		schemaFor(target.Namespace, target.Alias).Append(TargetElement(target))
	}
	return out
}
