// Package xmlast provides a tolerant XML scanner that produces a generic element tree.
// Every element, attribute and text fragment carries 1-based source positions, and
// element tag boundaries (open name, open body, close name) are recorded separately so
// that callers can derive precise sub-ranges for editor tooling.
//
// Attribute values and text are kept raw (entities are not resolved); consumers decide
// which entity set applies.
package xmlast

import "strings"

// Position is a source span using the xml-tools convention: lines and columns are
// 1-based and both EndOffset and EndColumn point at the last character of the span.
type Position struct {
	StartOffset int `json:"startOffset"`
	EndOffset   int `json:"endOffset"`
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}

// Syntax holds the positions of an element's tag boundaries
type Syntax struct {
	// OpenName is the element name inside the opening tag
	OpenName *Position `json:"openName,omitempty"`
	// OpenBody spans the whole opening tag, from '<' to '>'
	OpenBody *Position `json:"openBody,omitempty"`
	// CloseName is the element name inside the closing tag
	CloseName *Position `json:"closeName,omitempty"`
	// CloseBody spans the whole closing tag
	CloseBody *Position `json:"closeBody,omitempty"`
	// GuessedAttributesRange is set when the opening tag was never terminated
	GuessedAttributesRange bool `json:"guessedAttributesRange,omitempty"`
	SelfClosing            bool `json:"selfClosing,omitempty"`
}

// Attribute is a raw attribute of an element
type Attribute struct {
	// Key is the qualified attribute name as written (e.g. "xmlns:edmx")
	Key string `json:"key"`
	// Value is the raw attribute value without quotes, entities unresolved
	Value    string    `json:"value"`
	Position Position  `json:"position"`
	// SyntaxKey spans the attribute name
	SyntaxKey *Position `json:"syntaxKey,omitempty"`
	// SyntaxValue spans the attribute value including its quotes
	SyntaxValue *Position `json:"syntaxValue,omitempty"`
}

// TextContent is one raw character-data fragment
type TextContent struct {
	Text     string   `json:"text"`
	Position Position `json:"position"`
	// CData marks text taken from a CDATA section; it must not be unescaped
	CData bool `json:"cdata,omitempty"`
}

// Element is a generic XML element node
type Element struct {
	// Name is the local name
	Name string `json:"name"`
	// NS is the namespace prefix ("" for the default namespace)
	NS string `json:"ns,omitempty"`
	// Namespaces maps every prefix in scope to its URI, inherited bindings included.
	// The default namespace is stored under "".
	Namespaces   map[string]string `json:"namespaces,omitempty"`
	Attributes   []*Attribute      `json:"attributes"`
	SubElements  []*Element        `json:"subElements"`
	TextContents []*TextContent    `json:"textContents"`
	Position     Position          `json:"position"`
	Syntax       Syntax            `json:"syntax"`
}

// QName returns the element name as written, including its prefix
func (e *Element) QName() string {
	if e.NS == "" {
		return e.Name
	}
	return e.NS + ":" + e.Name
}

// NamespaceURI returns the URI bound to the element's prefix
func (e *Element) NamespaceURI() string {
	if e.Namespaces == nil {
		return ""
	}
	return e.Namespaces[e.NS]
}

// Attribute returns the attribute with the given qualified key.
// When a key is repeated the last occurrence wins.
func (e *Element) Attribute(key string) *Attribute {
	for i := len(e.Attributes) - 1; i >= 0; i-- {
		if e.Attributes[i].Key == key {
			return e.Attributes[i]
		}
	}
	return nil
}

// AttributeValue returns the raw value of an attribute and whether it exists
func (e *Element) AttributeValue(key string) (string, bool) {
	attr := e.Attribute(key)
	if attr == nil {
		return "", false
	}
	return attr.Value, true
}

// LocalAttribute returns the last attribute whose local name (prefix stripped) matches
func (e *Element) LocalAttribute(local string) *Attribute {
	for i := len(e.Attributes) - 1; i >= 0; i-- {
		key := e.Attributes[i].Key
		if idx := strings.IndexByte(key, ':'); idx >= 0 {
			key = key[idx+1:]
		}
		if key == local {
			return e.Attributes[i]
		}
	}
	return nil
}

// Children returns the direct sub-elements with the given local name
func (e *Element) Children(local string) []*Element {
	var out []*Element
	for _, child := range e.SubElements {
		if child.Name == local {
			out = append(out, child)
		}
	}
	return out
}

// FirstChild returns the first direct sub-element with the given local name
func (e *Element) FirstChild(local string) *Element {
	for _, child := range e.SubElements {
		if child.Name == local {
			return child
		}
	}
	return nil
}

// Document is the result of scanning one XML text
type Document struct {
	Root     *Element  `json:"root,omitempty"`
	Problems []Problem `json:"problems,omitempty"`

	text        string
	lineOffsets []int
}

// Text returns the scanned source text
func (d *Document) Text() string {
	return d.text
}

// LineCount returns the number of lines in the source
func (d *Document) LineCount() int {
	return len(d.lineOffsets)
}

// OffsetAt converts a zero-based line and UTF-16 character offset into a byte offset.
// Out-of-range values are clamped to the document bounds.
func (d *Document) OffsetAt(line, character int) int {
	if line < 0 {
		return 0
	}
	if line >= len(d.lineOffsets) {
		return len(d.text)
	}
	offset := d.lineOffsets[line]
	units := 0
	for offset < len(d.text) && units < character {
		r, size := decodeRune(d.text[offset:])
		if r == '\n' {
			break
		}
		units += utf16Len(r)
		offset += size
	}
	return offset
}

// LineColumn converts a byte offset into a 1-based line and column
func (d *Document) LineColumn(offset int) (line, column int) {
	return lineColumn(d.text, d.lineOffsets, offset)
}

// Visit walks the element tree depth-first in document order.
// Returning false from fn skips the element's children.
func (d *Document) Visit(fn func(*Element) bool) {
	if d.Root == nil {
		return
	}
	var walk func(*Element)
	walk = func(e *Element) {
		if !fn(e) {
			return
		}
		for _, child := range e.SubElements {
			walk(child)
		}
	}
	walk(d.Root)
}
