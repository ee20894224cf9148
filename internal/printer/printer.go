package printer

import (
	"sort"
	"strings"

	"github.com/conduit-lang/edmxtools/internal/csdl"
	"github.com/conduit-lang/edmxtools/internal/escape"
)

// structuredElements always place their content on indented lines of their own
var structuredElements = map[string]bool{
	csdl.ElementAnnotations:    true,
	csdl.ElementAnnotation:     true,
	csdl.ElementCollection:     true,
	csdl.ElementRecord:         true,
	csdl.ElementPropertyValue:  true,
	csdl.ElementApply:          true,
	csdl.ElementLabeledElement: true,
	"If":                       true,
	"Not":                      true,
	"And":                      true,
	"Or":                       true,
	"Eq":                       true,
	"Ne":                       true,
	"Gt":                       true,
	"Ge":                       true,
	"Lt":                       true,
	"Le":                       true,
	"In":                       true,
}

// attributeRank orders well-known attributes first; the rest follow lexically
var attributeRank = map[string]int{
	csdl.AttributeTerm:      1,
	csdl.AttributeQualifier: 2,
	csdl.AttributeTarget:    3,
	csdl.AttributeName:      4,
	csdl.AttributePath:      5,
	csdl.AttributeProperty:  6,
	csdl.AttributeType:      7,
}

// IsStructured reports whether elements named name always print their content on
// separate lines
func IsStructured(name string) bool {
	return structuredElements[name]
}

// PrintElement renders one element at indent level zero
func PrintElement(el *csdl.Element, opts Options) string {
	return PrintDocumentToString(ElementDoc(el), opts)
}

// ElementDoc builds the layout document of an element
func ElementDoc(el *csdl.Element) Doc {
	name := qualifiedName(el)
	open := Concat{Text("<" + name), attributesDoc(el.Attributes)}

	if len(el.Content) == 0 {
		return append(open, Text("/>"))
	}
	if text, ok := singleText(el); ok && !IsStructured(el.Name) {
		return append(open, Text(">"), literalDoc(text), Text("</"+name+">"))
	}

	children := make(Concat, 0, 2*len(el.Content))
	for _, node := range el.Content {
		children = append(children, HardLine, nodeDoc(node))
	}
	return append(open,
		Text(">"),
		Indent{Contents: children},
		HardLine,
		Text("</"+name+">"),
	)
}

func nodeDoc(node csdl.Node) Doc {
	switch n := node.(type) {
	case *csdl.Element:
		return ElementDoc(n)
	case *csdl.TextNode:
		return textDoc(n.Text)
	}
	return nil
}

// textDoc lays out text placed on lines of its own. Surrounding whitespace is
// dropped and inner line breaks follow the current indent.
func textDoc(text string) Doc {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	docs := make([]Doc, 0, len(lines))
	for _, line := range lines {
		docs = append(docs, Text(escape.EscapeText(strings.TrimSpace(line))))
	}
	return Join(HardLine, docs)
}

// literalDoc lays out text that belongs to a value. Only the whitespace around a
// multi-line value is dropped and the inner lines are emitted unchanged.
func literalDoc(text string) Doc {
	if !strings.Contains(text, "\n") {
		return Text(escape.EscapeText(text))
	}
	lines := strings.Split(strings.TrimSpace(text), "\n")
	docs := make([]Doc, 0, len(lines))
	for _, line := range lines {
		docs = append(docs, Text(escape.EscapeText(line)))
	}
	return Join(LiteralLine, docs)
}

func singleText(el *csdl.Element) (string, bool) {
	if len(el.Content) != 1 {
		return "", false
	}
	text, ok := el.Content[0].(*csdl.TextNode)
	if !ok {
		return "", false
	}
	return text.Text, true
}

func qualifiedName(el *csdl.Element) string {
	if el.NamespaceAlias == "" {
		return el.Name
	}
	return el.NamespaceAlias + ":" + el.Name
}

func attributesDoc(attrs csdl.Attributes) Doc {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	SortAttributeNames(names)

	out := make(Concat, 0, 2*len(names))
	for _, name := range names {
		attr := attrs[name]
		out = append(out, Line, Text(name+`="`+escape.EscapeAttribute(attr.Value)+`"`))
	}
	return out
}

// SortAttributeNames orders attribute names the way they are printed
func SortAttributeNames(names []string) {
	sort.Slice(names, func(i, j int) bool {
		ri, rj := attributeRank[names[i]], attributeRank[names[j]]
		switch {
		case ri != 0 && rj != 0:
			return ri < rj
		case ri != 0:
			return true
		case rj != 0:
			return false
		}
		return names[i] < names[j]
	})
}
