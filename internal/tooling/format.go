package tooling

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/conduit-lang/edmxtools/internal/annotation"
	"github.com/conduit-lang/edmxtools/internal/csdl"
	"github.com/conduit-lang/edmxtools/internal/position"
	"github.com/conduit-lang/edmxtools/internal/printer"
	"github.com/conduit-lang/edmxtools/internal/xmlast"
)

// ErrNotFormattable is returned for documents the printer cannot reproduce faithfully
var ErrNotFormattable = errors.New("document cannot be formatted")

// ErrTargetNotFound is returned when an insertion names no target and there is no
// schema to add one to
var ErrTargetNotFound = errors.New("annotation target not found")

// FormatContent pretty prints an XML document. Documents with syntax problems or
// comments are refused since printing would lose content. The prolog before the
// root element is kept.
func FormatContent(content string, opts printer.Options) (string, error) {
	return formatDocument(xmlast.Parse(content), opts)
}

func formatDocument(doc *xmlast.Document, opts printer.Options) (string, error) {
	if doc.Root == nil {
		return "", fmt.Errorf("%w: no root element", ErrNotFormattable)
	}
	if len(doc.Problems) > 0 {
		return "", fmt.Errorf("%w: %v", ErrNotFormattable, doc.Problems[0])
	}
	text := doc.Text()
	if strings.Contains(text[doc.Root.Position.StartOffset:], "<!--") {
		return "", fmt.Errorf("%w: comments would be lost", ErrNotFormattable)
	}

	var b strings.Builder
	if prolog := strings.TrimSpace(text[:doc.Root.Position.StartOffset]); prolog != "" {
		b.WriteString(prolog)
		b.WriteString("\n")
	}
	b.WriteString(printer.PrintElement(annotation.ConvertElement(doc.Root, annotation.DefaultOptions()), opts))
	b.WriteString("\n")
	return b.String(), nil
}

// Format returns the edits that pretty print a whole document. The result is empty
// when the document is already formatted.
func (a *API) Format(uri string) ([]position.TextEdit, error) {
	doc, err := a.document(uri)
	if err != nil {
		return nil, err
	}
	formatted, err := formatDocument(doc.XML, a.config.Printer)
	if err != nil {
		return nil, err
	}
	if formatted == doc.Content {
		return []position.TextEdit{}, nil
	}
	return []position.TextEdit{{
		Range:   position.Range{End: endPosition(doc.Content)},
		NewText: formatted,
	}}, nil
}

// endPosition is the zero-based position just past the last character of text
func endPosition(text string) position.Position {
	line := strings.Count(text, "\n")
	last := text[strings.LastIndexByte(text, '\n')+1:]
	return position.Position{Line: line, Character: len(utf16.Encode([]rune(last)))}
}

// InsertAnnotation returns the edit that adds el to the target named targetName.
// When the file has no such target a new <Annotations> block holding el is added
// as the first child of the file's schema.
func (a *API) InsertAnnotation(uri, targetName string, el *csdl.Element) (position.TextEdit, error) {
	doc, err := a.document(uri)
	if err != nil {
		return position.TextEdit{}, err
	}
	if doc.Annotations == nil {
		return position.TextEdit{}, fmt.Errorf("%w: %s is not an annotation document", ErrTargetNotFound, uri)
	}

	if target := doc.Annotations.FindTarget(targetName); target != nil {
		if edit, ok := printer.InsertIntoTarget(target, el, a.config.Printer); ok {
			return edit, nil
		}
		return position.TextEdit{}, fmt.Errorf("%w: target %s has no content range", ErrTargetNotFound, targetName)
	}

	schema := firstSchema(doc.XML)
	if schema == nil || schema.Syntax.OpenBody == nil || schema.Syntax.SelfClosing {
		return position.TextEdit{}, fmt.Errorf("%w: %s", ErrTargetNotFound, targetName)
	}
	block := printer.TargetElement(&csdl.Target{Name: targetName, Terms: []*csdl.Element{el}})
	at := position.Position{
		Line:      schema.Syntax.OpenBody.EndLine - 1,
		Character: schema.Syntax.OpenBody.EndColumn,
	}
	return printer.Insert(at, schema.Position.StartColumn-1, block, a.config.Printer), nil
}

func firstSchema(doc *xmlast.Document) *xmlast.Element {
	var schema *xmlast.Element
	doc.Visit(func(el *xmlast.Element) bool {
		if schema != nil {
			return false
		}
		if el.Name == csdl.ElementSchema {
			schema = el
			return false
		}
		return true
	})
	return schema
}
