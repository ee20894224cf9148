package tooling

import (
	"sort"
	"strings"

	"github.com/conduit-lang/edmxtools/internal/csdl"
	"github.com/conduit-lang/edmxtools/internal/position"
)

// CompletionItem is a completion suggestion
type CompletionItem struct {
	Label  string
	Detail string
	// InsertText is the text to insert (if different from label)
	InsertText string
}

// GetCompletions suggests annotatable metadata paths while a Target attribute value
// is being typed. The typed prefix may use a referenced alias.
func (a *API) GetCompletions(uri string, pos position.Position) ([]CompletionItem, error) {
	doc, err := a.document(uri)
	if err != nil {
		return nil, err
	}
	items := []CompletionItem{}
	target := targetAt(doc.Annotations, pos)
	if target == nil {
		return items, nil
	}

	start := doc.XML.OffsetAt(target.NameRange.Start.Line, target.NameRange.Start.Character)
	end := doc.XML.OffsetAt(pos.Line, pos.Character)
	typed := ""
	if end > start {
		typed = doc.Content[start:end]
	}
	prefix := ResolveTargetPath(doc.Annotations, &csdl.Target{
		Name:      typed,
		Namespace: target.Namespace,
		Alias:     target.Alias,
	})

	a.view().VisitMetadataElements(func(m *csdl.MetadataElement) {
		if !m.IsAnnotatable || !strings.HasPrefix(m.Path, prefix) {
			return
		}
		items = append(items, CompletionItem{Label: m.Path, Detail: m.Kind})
	})
	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return items, nil
}
