package tooling

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/edmxtools/internal/csdl"
	"github.com/conduit-lang/edmxtools/internal/position"
	"github.com/conduit-lang/edmxtools/internal/service"
)

// Hover is markdown hover content for a range
type Hover struct {
	Contents string
	Range    position.Range
}

// ResolveTargetPath rewrites the aliases used in a target name into the namespaces
// they stand for. Aliases come from the file's references and the target's schema.
func ResolveTargetPath(file *csdl.AnnotationFile, target *csdl.Target) string {
	aliases := map[string]string{}
	if file != nil {
		for _, ref := range file.References {
			if ref.Alias != "" {
				aliases[ref.Alias] = ref.Name
			}
		}
	}
	if target.Alias != "" {
		aliases[target.Alias] = target.Namespace
	}
	return substituteAliases(target.Name, aliases)
}

// substituteAliases replaces the qualifier of every qualified name in path.
// Names are delimited by '/', '(', ')' and ','.
func substituteAliases(path string, aliases map[string]string) string {
	if len(aliases) == 0 {
		return path
	}
	var b strings.Builder
	start := 0
	flush := func(end int) {
		name := path[start:end]
		if dot := strings.LastIndexByte(name, '.'); dot > 0 {
			if ns, ok := aliases[name[:dot]]; ok {
				name = ns + name[dot:]
			}
		}
		b.WriteString(name)
	}
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '/', '(', ')', ',':
			flush(i)
			b.WriteByte(path[i])
			start = i + 1
		}
	}
	flush(len(path))
	return b.String()
}

// GetDefinition returns the metadata locations of the target at pos.
// The result is empty when pos is not on a target name.
func (a *API) GetDefinition(uri string, pos position.Position) ([]position.Location, error) {
	doc, err := a.document(uri)
	if err != nil {
		return nil, err
	}
	target := targetAt(doc.Annotations, pos)
	if target == nil {
		return []position.Location{}, nil
	}
	return a.view().GetMetadataElementLocations(ResolveTargetPath(doc.Annotations, target)), nil
}

// GetReferences returns every open target annotating the same element as the target at pos
func (a *API) GetReferences(uri string, pos position.Position) ([]position.Location, error) {
	doc, err := a.document(uri)
	if err != nil {
		return nil, err
	}
	target := targetAt(doc.Annotations, pos)
	if target == nil {
		return []position.Location{}, nil
	}
	return a.symbolIndex.FindReferences(ResolveTargetPath(doc.Annotations, target)), nil
}

// GetHover returns a summary of the metadata element a target refers to.
// Returns (nil, nil) if pos is not on a known target.
func (a *API) GetHover(uri string, pos position.Position) (*Hover, error) {
	doc, err := a.document(uri)
	if err != nil {
		return nil, err
	}
	target := targetAt(doc.Annotations, pos)
	if target == nil {
		return nil, nil //nolint:nilnil // nil hover is valid when no target at position
	}
	path := ResolveTargetPath(doc.Annotations, target)
	view := a.view()
	m := view.GetMetadataElement(path)
	if m == nil {
		return nil, nil //nolint:nilnil // unknown targets have no hover
	}
	return &Hover{
		Contents: buildHover(m, view.GetEdmTargetKinds(path)),
		Range:    *target.NameRange,
	}, nil
}

func buildHover(m *csdl.MetadataElement, targetKinds []string) string {
	var content strings.Builder

	content.WriteString(fmt.Sprintf("**%s** `%s`\n\n", m.Kind, m.Path))

	typeName := m.EdmPrimitiveType
	if typeName == "" {
		typeName = m.StructuredType
	}
	if typeName != "" {
		if m.IsCollectionValued {
			typeName = csdl.KindCollection + "(" + typeName + ")"
		}
		content.WriteString(fmt.Sprintf("- Type: `%s`\n", typeName))
	}
	if len(m.Keys) > 0 {
		content.WriteString(fmt.Sprintf("- Keys: `%s`\n", strings.Join(m.Keys, "`, `")))
	}
	if len(targetKinds) > 0 {
		content.WriteString(fmt.Sprintf("- Target kinds: %s\n", strings.Join(targetKinds, ", ")))
	}
	if !m.IsAnnotatable {
		content.WriteString("- Not annotatable\n")
	}
	return content.String()
}

func (a *API) view() service.View {
	return a.service.View(service.DefaultKey)
}
