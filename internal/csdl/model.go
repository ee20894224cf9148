// Package csdl holds the in-memory document model for OData annotation files and
// metadata trees. All types are plain data and survive a JSON round trip.
// Ranges are optional: nodes built programmatically carry none.
package csdl

import (
	"strings"

	"github.com/conduit-lang/edmxtools/internal/position"
)

// Node type discriminators used in JSON
const (
	TypeElement   = "element"
	TypeText      = "text"
	TypeAttribute = "attribute"
)

// Node is an entry of Element.Content: either *Element or *TextNode
type Node interface {
	NodeType() string
}

// Attribute is a name/value pair owned by one element
type Attribute struct {
	Type       string          `json:"type"`
	Name       string          `json:"name"`
	Value      string          `json:"value"`
	NameRange  *position.Range `json:"nameRange,omitempty"`
	ValueRange *position.Range `json:"valueRange,omitempty"`
}

// Attributes maps attribute names to attributes. Duplicate names resolve to the last
// occurrence in the source.
type Attributes map[string]*Attribute

// TextNode is one logical text value. FragmentRanges lists the original source spans
// when the value was assembled from several raw fragments.
type TextNode struct {
	Type           string           `json:"type"`
	Text           string           `json:"text"`
	Range          *position.Range  `json:"range,omitempty"`
	FragmentRanges []position.Range `json:"fragmentRanges,omitempty"`
}

// NodeType implements Node
func (t *TextNode) NodeType() string { return TypeText }

// Element is a generic element of an annotation document
type Element struct {
	Type           string          `json:"type"`
	Name           string          `json:"name"`
	Namespace      string          `json:"namespace,omitempty"`
	NamespaceAlias string          `json:"namespaceAlias,omitempty"`
	Attributes     Attributes      `json:"attributes"`
	Content        []Node          `json:"content"`
	Range          *position.Range `json:"range,omitempty"`
	NameRange      *position.Range `json:"nameRange,omitempty"`
	ContentRange   *position.Range `json:"contentRange,omitempty"`
}

// NodeType implements Node
func (e *Element) NodeType() string { return TypeElement }

// NewElement creates an element with the given content
func NewElement(name string, content ...Node) *Element {
	if content == nil {
		content = []Node{}
	}
	return &Element{
		Type:       TypeElement,
		Name:       name,
		Attributes: Attributes{},
		Content:    content,
	}
}

// NewTextNode creates a text node without range information
func NewTextNode(text string) *TextNode {
	return &TextNode{Type: TypeText, Text: text}
}

// NewAttribute creates an attribute without range information
func NewAttribute(name, value string) *Attribute {
	return &Attribute{Type: TypeAttribute, Name: name, Value: value}
}

// SetAttribute adds or replaces an attribute and returns the element for chaining
func (e *Element) SetAttribute(name, value string) *Element {
	if e.Attributes == nil {
		e.Attributes = Attributes{}
	}
	e.Attributes[name] = NewAttribute(name, value)
	return e
}

// Attribute returns the named attribute or nil
func (e *Element) Attribute(name string) *Attribute {
	if e.Attributes == nil {
		return nil
	}
	return e.Attributes[name]
}

// AttributeValue returns the value of the named attribute, or "" when absent
func (e *Element) AttributeValue(name string) string {
	if attr := e.Attribute(name); attr != nil {
		return attr.Value
	}
	return ""
}

// Append adds nodes to the end of the element's content
func (e *Element) Append(nodes ...Node) *Element {
	e.Content = append(e.Content, nodes...)
	return e
}

// ChildElements returns the element children in document order, optionally
// restricted to the given names
func (e *Element) ChildElements(names ...string) []*Element {
	var out []*Element
	for _, node := range e.Content {
		child, ok := node.(*Element)
		if !ok {
			continue
		}
		if len(names) == 0 || containsName(names, child.Name) {
			out = append(out, child)
		}
	}
	return out
}

// Text concatenates the text children of the element
func (e *Element) Text() string {
	var b strings.Builder
	for _, node := range e.Content {
		if text, ok := node.(*TextNode); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// Reference is one <Include> of an <edmx:Reference>
type Reference struct {
	Name       string          `json:"name"`
	Alias      string          `json:"alias,omitempty"`
	URI        string          `json:"uri,omitempty"`
	NameRange  *position.Range `json:"nameRange,omitempty"`
	AliasRange *position.Range `json:"aliasRange,omitempty"`
	URIRange   *position.Range `json:"uriRange,omitempty"`
}

// Namespace is the namespace and alias declared by a <Schema>
type Namespace struct {
	Name         string          `json:"name"`
	Alias        string          `json:"alias,omitempty"`
	ContentRange *position.Range `json:"contentRange,omitempty"`
	NameRange    *position.Range `json:"nameRange,omitempty"`
	AliasRange   *position.Range `json:"aliasRange,omitempty"`
}

// Target is one <Annotations Target="..."> block
type Target struct {
	Name       string          `json:"name"`
	Qualifier  string          `json:"qualifier,omitempty"`
	Terms      []*Element      `json:"terms"`
	Range      *position.Range `json:"range,omitempty"`
	TermsRange *position.Range `json:"termsRange,omitempty"`
	NameRange  *position.Range `json:"nameRange,omitempty"`
	Namespace  string          `json:"namespace"`
	Alias      string          `json:"alias,omitempty"`
}

// AnnotationFile is the root of a converted annotation document
type AnnotationFile struct {
	URI          string          `json:"uri"`
	Range        *position.Range `json:"range,omitempty"`
	ContentRange *position.Range `json:"contentRange,omitempty"`
	References   []*Reference    `json:"references"`
	Targets      []*Target       `json:"targets"`
	Namespace    *Namespace      `json:"namespace,omitempty"`
}

// NewAnnotationFile returns an empty file for uri
func NewAnnotationFile(uri string) *AnnotationFile {
	return &AnnotationFile{
		URI:        uri,
		References: []*Reference{},
		Targets:    []*Target{},
	}
}

// FindTarget returns the first target with the given path
func (f *AnnotationFile) FindTarget(name string) *Target {
	for _, target := range f.Targets {
		if target.Name == name {
			return target
		}
	}
	return nil
}
