package tooling

import (
	"sort"
	"strings"
	"sync"

	"github.com/conduit-lang/edmxtools/internal/csdl"
	"github.com/conduit-lang/edmxtools/internal/position"
)

// SymbolKind categorizes symbols for editor display
type SymbolKind int

const (
	// SymbolKindTarget is an <Annotations> block
	SymbolKindTarget SymbolKind = iota
	// SymbolKindTerm is an <Annotation> inside a target
	SymbolKindTerm
	// SymbolKindType is an entity, complex, enum or type definition
	SymbolKindType
	// SymbolKindProperty is a structural or navigation property
	SymbolKindProperty
	// SymbolKindContainer is an entity container
	SymbolKindContainer
	// SymbolKindContainerMember is an entity set, singleton or import
	SymbolKindContainerMember
	// SymbolKindOperation is an action or function
	SymbolKindOperation
	// SymbolKindParameter is an operation parameter or return type
	SymbolKindParameter
)

// Symbol is a named entity of a document
type Symbol struct {
	Name   string
	Kind   SymbolKind
	Detail string
	Range  position.Range
	// SelectionRange is the range of the name itself
	SelectionRange position.Range
	Children       []*Symbol
}

// IndexedSymbol is a target symbol with the metadata path it resolves to
type IndexedSymbol struct {
	URI  string
	Path string
	*Symbol
}

// SymbolIndex maintains a searchable index of annotation targets across documents
type SymbolIndex struct {
	// symbols maps resolved target paths to all targets annotating them
	symbols map[string][]*IndexedSymbol
	mutex   sync.RWMutex
}

// NewSymbolIndex creates a new symbol index
func NewSymbolIndex() *SymbolIndex {
	return &SymbolIndex{
		symbols: make(map[string][]*IndexedSymbol),
	}
}

// Index replaces the symbols recorded for uri
func (si *SymbolIndex) Index(uri string, symbols []*IndexedSymbol) {
	si.mutex.Lock()
	defer si.mutex.Unlock()

	si.removeDocumentLocked(uri)
	for _, sym := range symbols {
		si.symbols[sym.Path] = append(si.symbols[sym.Path], sym)
	}
}

// RemoveDocument removes all symbols from a document
func (si *SymbolIndex) RemoveDocument(uri string) {
	si.mutex.Lock()
	defer si.mutex.Unlock()

	si.removeDocumentLocked(uri)
}

func (si *SymbolIndex) removeDocumentLocked(uri string) {
	for path, syms := range si.symbols {
		filtered := syms[:0:0]
		for _, sym := range syms {
			if sym.URI != uri {
				filtered = append(filtered, sym)
			}
		}
		if len(filtered) > 0 {
			si.symbols[path] = filtered
		} else {
			delete(si.symbols, path)
		}
	}
}

// FindReferences returns the locations of every target annotating path
func (si *SymbolIndex) FindReferences(path string) []position.Location {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	syms := si.symbols[path]
	locations := make([]position.Location, 0, len(syms))
	for _, sym := range syms {
		locations = append(locations, position.Location{URI: sym.URI, Range: sym.SelectionRange})
	}
	return locations
}

// SearchSymbols returns targets whose path contains query, case-insensitively,
// ordered by path and URI
func (si *SymbolIndex) SearchSymbols(query string) []*IndexedSymbol {
	si.mutex.RLock()
	defer si.mutex.RUnlock()

	query = strings.ToLower(query)
	var results []*IndexedSymbol
	for path, syms := range si.symbols {
		if query == "" || strings.Contains(strings.ToLower(path), query) {
			results = append(results, syms...)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Path != results[j].Path {
			return results[i].Path < results[j].Path
		}
		return results[i].URI < results[j].URI
	})
	return results
}

// GetDocumentSymbols returns the outline of a document: targets with their terms for
// annotation files, and the element tree for metadata documents
func (a *API) GetDocumentSymbols(uri string) ([]*Symbol, error) {
	doc, err := a.document(uri)
	if err != nil {
		return nil, err
	}
	if doc.Kind == DocumentKindMetadata {
		return metadataSymbols(doc.Metadata, uri), nil
	}
	return annotationSymbols(doc.Annotations), nil
}

// GetWorkspaceSymbols searches annotation targets of all open documents
func (a *API) GetWorkspaceSymbols(query string) []*IndexedSymbol {
	return a.symbolIndex.SearchSymbols(query)
}

func annotationSymbols(file *csdl.AnnotationFile) []*Symbol {
	symbols := []*Symbol{}
	if file == nil {
		return symbols
	}
	for _, target := range file.Targets {
		symbols = append(symbols, targetSymbol(target))
	}
	return symbols
}

func targetSymbol(target *csdl.Target) *Symbol {
	sym := &Symbol{
		Name:     target.Name,
		Kind:     SymbolKindTarget,
		Detail:   target.Qualifier,
		Range:    rangeOrZero(target.Range),
		Children: []*Symbol{},
	}
	sym.SelectionRange = sym.Range
	if target.NameRange != nil {
		sym.SelectionRange = *target.NameRange
	}
	for _, term := range target.Terms {
		name := term.AttributeValue(csdl.AttributeTerm)
		if qualifier := term.AttributeValue(csdl.AttributeQualifier); qualifier != "" {
			name += "#" + qualifier
		}
		child := &Symbol{Name: name, Kind: SymbolKindTerm, Range: rangeOrZero(term.Range)}
		child.SelectionRange = child.Range
		if attr := term.Attribute(csdl.AttributeTerm); attr != nil && attr.ValueRange != nil {
			child.SelectionRange = *attr.ValueRange
		}
		sym.Children = append(sym.Children, child)
	}
	return sym
}

func metadataSymbols(elements []*csdl.MetadataElement, uri string) []*Symbol {
	symbols := []*Symbol{}
	for _, m := range elements {
		// synthesized elements have no location of their own
		if m.Location == nil || m.Location.URI != uri {
			continue
		}
		symbols = append(symbols, &Symbol{
			Name:           m.Name,
			Kind:           metadataSymbolKind(m.Kind),
			Detail:         m.Kind,
			Range:          m.Location.Range,
			SelectionRange: m.Location.Range,
			Children:       metadataSymbols(m.Content, uri),
		})
	}
	return symbols
}

func metadataSymbolKind(kind string) SymbolKind {
	switch kind {
	case csdl.ElementEntityType, csdl.ElementComplexType, csdl.ElementEnumType, csdl.ElementTypeDefinition:
		return SymbolKindType
	case csdl.ElementProperty, csdl.ElementNavigationProperty:
		return SymbolKindProperty
	case csdl.ElementEntityContainer:
		return SymbolKindContainer
	case csdl.ElementEntitySet, csdl.ElementSingleton, csdl.ElementFunctionImport, csdl.ElementActionImport:
		return SymbolKindContainerMember
	case csdl.ElementAction, csdl.ElementFunction:
		return SymbolKindOperation
	default:
		return SymbolKindParameter
	}
}

// indexTargets records the targets of an annotation file under their resolved paths
func (a *API) indexTargets(doc *Document) {
	if doc.Kind != DocumentKindAnnotation || doc.Annotations == nil {
		a.symbolIndex.RemoveDocument(doc.URI)
		return
	}
	indexed := make([]*IndexedSymbol, 0, len(doc.Annotations.Targets))
	for _, target := range doc.Annotations.Targets {
		indexed = append(indexed, &IndexedSymbol{
			URI:    doc.URI,
			Path:   ResolveTargetPath(doc.Annotations, target),
			Symbol: targetSymbol(target),
		})
	}
	a.symbolIndex.Index(doc.URI, indexed)
}

func rangeOrZero(r *position.Range) position.Range {
	if r == nil {
		return position.Range{}
	}
	return *r
}
