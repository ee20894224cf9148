// Package annotation converts XML annotation documents into the csdl document model.
//
// Conversion never fails. Missing or malformed parts of the document are skipped and
// the remaining structure is still returned, so the result is usable while a document
// is being edited.
package annotation

import (
	"sort"
	"strings"

	"github.com/conduit-lang/edmxtools/internal/csdl"
	"github.com/conduit-lang/edmxtools/internal/escape"
	"github.com/conduit-lang/edmxtools/internal/position"
	"github.com/conduit-lang/edmxtools/internal/xmlast"
)

// Options controls the behaviors that differ between annotation tool generations
type Options struct {
	// KeepEmptyText keeps merged text nodes whose content is only whitespace.
	// By default such nodes are dropped.
	KeepEmptyText bool `yaml:"keep_empty_text" mapstructure:"keep_empty_text"`
	// LegacyEntities restricts unescaping to &lt; &amp; and &quot;
	LegacyEntities bool `yaml:"legacy_entities" mapstructure:"legacy_entities"`
}

// DefaultOptions drops whitespace-only text and resolves the full entity set
func DefaultOptions() Options {
	return Options{}
}

// LegacyOptions reproduces the first converter generation: whitespace-only text is
// dropped and only the reduced entity set is resolved
func LegacyOptions() Options {
	return Options{LegacyEntities: true}
}

// PreserveTextOptions reproduces the second converter generation, which keeps every
// merged text node
func PreserveTextOptions() Options {
	return Options{KeepEmptyText: true}
}

// ConvertText parses text and converts it
func ConvertText(text, uri string, opts Options) *csdl.AnnotationFile {
	return Convert(xmlast.Parse(text), uri, opts)
}

// Convert builds an AnnotationFile from a parsed document. A document without a usable
// root element yields an empty file.
func Convert(doc *xmlast.Document, uri string, opts Options) *csdl.AnnotationFile {
	file := csdl.NewAnnotationFile(uri)
	if doc == nil || doc.Root == nil {
		return file
	}
	root := doc.Root
	if root.Syntax.OpenBody == nil && root.Syntax.CloseName == nil {
		return file
	}

	c := &converter{opts: opts}
	file.Range = position.TransformElementRange(&root.Position, root)
	file.ContentRange = position.GapRangeBetween(root.Syntax.OpenBody, root.Syntax.CloseName)
	file.References = c.references(root)

	dataServices := root.FirstChild(csdl.ElementDataServices)
	if dataServices == nil {
		return file
	}
	for _, schema := range dataServices.Children(csdl.ElementSchema) {
		ns := c.namespace(schema)
		if file.Namespace == nil {
			file.Namespace = ns
		}
		for _, annotations := range schema.Children(csdl.ElementAnnotations) {
			file.Targets = append(file.Targets, c.target(annotations, ns))
		}
	}
	return file
}

// ConvertElement converts one generic XML element and its subtree
func ConvertElement(el *xmlast.Element, opts Options) *csdl.Element {
	c := &converter{opts: opts}
	return c.element(el)
}

type converter struct {
	opts Options
}

func (c *converter) unescape(raw string) string {
	return escape.Unescape(raw, c.opts.LegacyEntities)
}

func (c *converter) references(root *xmlast.Element) []*csdl.Reference {
	refs := []*csdl.Reference{}
	for _, ref := range root.Children(csdl.ElementReference) {
		uri, uriRange := c.attributeValue(ref, csdl.AttributeURI)
		for _, include := range ref.Children(csdl.ElementInclude) {
			if include.Attribute(csdl.AttributeNamespace) == nil {
				continue
			}
			name, nameRange := c.attributeValue(include, csdl.AttributeNamespace)
			alias, aliasRange := c.attributeValue(include, csdl.AttributeAlias)
			refs = append(refs, &csdl.Reference{
				Name:       name,
				Alias:      alias,
				URI:        uri,
				NameRange:  nameRange,
				AliasRange: aliasRange,
				URIRange:   position.Copy(uriRange),
			})
		}
	}
	return refs
}

func (c *converter) namespace(schema *xmlast.Element) *csdl.Namespace {
	name, nameRange := c.attributeValue(schema, csdl.AttributeNamespace)
	alias, aliasRange := c.attributeValue(schema, csdl.AttributeAlias)
	return &csdl.Namespace{
		Name:         name,
		Alias:        alias,
		ContentRange: position.GapRangeBetween(schema.Syntax.OpenBody, schema.Syntax.CloseName),
		NameRange:    nameRange,
		AliasRange:   aliasRange,
	}
}

func (c *converter) target(annotations *xmlast.Element, ns *csdl.Namespace) *csdl.Target {
	name, nameRange := c.attributeValue(annotations, csdl.AttributeTarget)
	qualifier, _ := c.attributeValue(annotations, csdl.AttributeQualifier)
	target := &csdl.Target{
		Name:       name,
		Qualifier:  qualifier,
		Terms:      []*csdl.Element{},
		Range:      position.TransformElementRange(&annotations.Position, annotations),
		TermsRange: position.GapRangeBetween(annotations.Syntax.OpenBody, annotations.Syntax.CloseName),
		NameRange:  nameRange,
		Namespace:  ns.Name,
		Alias:      ns.Alias,
	}
	for _, term := range annotations.Children(csdl.ElementAnnotation) {
		target.Terms = append(target.Terms, c.element(term))
	}
	return target
}

// attributeValue returns the unescaped value of an attribute and the range of the
// value without its quotes
func (c *converter) attributeValue(el *xmlast.Element, key string) (string, *position.Range) {
	attr := el.Attribute(key)
	if attr == nil {
		return "", nil
	}
	return c.unescape(attr.Value), valueRange(attr)
}

func valueRange(attr *xmlast.Attribute) *position.Range {
	r := position.TransformRange(attr.SyntaxValue)
	if r == nil {
		return nil
	}
	width := attr.SyntaxValue.EndOffset - attr.SyntaxValue.StartOffset + 1
	startDelta, endDelta := 0, 0
	if width > len(attr.Value) {
		startDelta = 1
	}
	if width == len(attr.Value)+2 {
		endDelta = -1
	}
	position.AdjustRange(r, startDelta, endDelta)
	return r
}

func (c *converter) element(el *xmlast.Element) *csdl.Element {
	out := &csdl.Element{
		Type:           csdl.TypeElement,
		Name:           el.Name,
		Namespace:      el.NamespaceURI(),
		NamespaceAlias: el.NS,
		Attributes:     c.attributes(el),
		Content:        c.content(el),
		Range:          position.TransformElementRange(&el.Position, el),
		NameRange:      position.TransformRange(el.Syntax.OpenName),
		ContentRange:   position.GapRangeBetween(el.Syntax.OpenBody, el.Syntax.CloseName),
	}
	return out
}

func (c *converter) attributes(el *xmlast.Element) csdl.Attributes {
	attrs := make(csdl.Attributes, len(el.Attributes))
	for _, attr := range el.Attributes {
		attrs[attr.Key] = &csdl.Attribute{
			Type:       csdl.TypeAttribute,
			Name:       attr.Key,
			Value:      c.unescape(attr.Value),
			NameRange:  position.TransformRange(attr.SyntaxKey),
			ValueRange: valueRange(attr),
		}
	}
	return attrs
}

type child struct {
	offset  int
	element *xmlast.Element
	text    *xmlast.TextContent
}

// content folds the element's text fragments and sub-elements in source order.
// Consecutive text fragments become one TextNode.
func (c *converter) content(el *xmlast.Element) []csdl.Node {
	children := make([]child, 0, len(el.SubElements)+len(el.TextContents))
	for _, sub := range el.SubElements {
		children = append(children, child{offset: sub.Position.StartOffset, element: sub})
	}
	for _, text := range el.TextContents {
		children = append(children, child{offset: text.Position.StartOffset, text: text})
	}
	sort.SliceStable(children, func(i, j int) bool {
		return children[i].offset < children[j].offset
	})

	content := []csdl.Node{}
	var pending []*xmlast.TextContent
	flush := func() {
		if node := c.mergeText(pending); node != nil {
			content = append(content, node)
		}
		pending = pending[:0]
	}
	for _, ch := range children {
		if ch.text != nil {
			pending = append(pending, ch.text)
			continue
		}
		flush()
		content = append(content, c.element(ch.element))
	}
	flush()
	return content
}

func (c *converter) mergeText(fragments []*xmlast.TextContent) *csdl.TextNode {
	if len(fragments) == 0 {
		return nil
	}
	var b strings.Builder
	for _, fragment := range fragments {
		if fragment.CData {
			b.WriteString(fragment.Text)
		} else {
			b.WriteString(c.unescape(fragment.Text))
		}
	}
	text := b.String()
	if !c.opts.KeepEmptyText && strings.TrimSpace(text) == "" {
		return nil
	}

	first, last := fragments[0].Position, fragments[len(fragments)-1].Position
	node := &csdl.TextNode{
		Type: csdl.TypeText,
		Text: text,
		Range: position.TransformRange(&xmlast.Position{
			StartOffset: first.StartOffset,
			EndOffset:   last.EndOffset,
			StartLine:   first.StartLine,
			StartColumn: first.StartColumn,
			EndLine:     last.EndLine,
			EndColumn:   last.EndColumn,
		}),
	}
	if len(fragments) > 1 {
		node.FragmentRanges = make([]position.Range, 0, len(fragments))
		for _, fragment := range fragments {
			node.FragmentRanges = append(node.FragmentRanges, *position.TransformRange(&fragment.Position))
		}
	}
	return node
}
