// Package position defines zero-based document positions and ranges, and the
// conversions from the 1-based spans produced by the XML scanner.
package position

import "github.com/conduit-lang/edmxtools/internal/xmlast"

// Position represents a position in a document (zero-based for LSP compatibility)
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range represents a range in a document. End is exclusive.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location represents a source location with URI and range
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// TextEdit replaces Range with NewText. An empty range is an insertion.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// NewRange creates a range from its four scalar fields
func NewRange(startLine, startCharacter, endLine, endCharacter int) Range {
	return Range{
		Start: Position{Line: startLine, Character: startCharacter},
		End:   Position{Line: endLine, Character: endCharacter},
	}
}

// Compare orders positions lexicographically by line then character
func (p Position) Compare(other Position) int {
	switch {
	case p.Line < other.Line:
		return -1
	case p.Line > other.Line:
		return 1
	case p.Character < other.Character:
		return -1
	case p.Character > other.Character:
		return 1
	}
	return 0
}

// Before reports whether p comes strictly before other
func (p Position) Before(other Position) bool {
	return p.Compare(other) < 0
}

// Contains reports whether pos lies within r, both ends inclusive so that a cursor
// placed right after the last character still matches.
func (r Range) Contains(pos Position) bool {
	return r.Start.Compare(pos) <= 0 && pos.Compare(r.End) <= 0
}

// Valid reports whether Start does not come after End
func (r Range) Valid() bool {
	return r.Start.Compare(r.End) <= 0
}

// Copy returns a pointer to a copy of r, or nil
func Copy(r *Range) *Range {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// TransformRange converts a 1-based inclusive scanner span into a zero-based
// exclusive range. A nil span yields nil.
func TransformRange(pos *xmlast.Position) *Range {
	if pos == nil {
		return nil
	}
	r := NewRange(pos.StartLine-1, pos.StartColumn-1, pos.EndLine-1, pos.EndColumn)
	return &r
}

// TransformElementRange converts an element span. When the element's opening tag
// was never terminated the end is widened by one character so completion at the
// end of a partially typed tag still lands inside the element.
func TransformElementRange(pos *xmlast.Position, element *xmlast.Element) *Range {
	r := TransformRange(pos)
	if r != nil && element != nil && element.Syntax.GuessedAttributesRange {
		r.End.Character++
	}
	return r
}

// GapRangeBetween returns the range from the end of begin up to the '<' of a closing
// tag whose name starts at end. It is used for element content ranges: begin is the
// opening tag body and end is the closing tag name, so the "</" prefix is excluded.
func GapRangeBetween(begin, end *xmlast.Position) *Range {
	if begin == nil || end == nil {
		return nil
	}
	r := NewRange(begin.EndLine-1, begin.EndColumn, end.StartLine-1, end.StartColumn-3)
	return &r
}

// AdjustRange adds character deltas to the start and end of r in place.
// AdjustRange(r, 1, -1) strips the quotes from an attribute value range.
func AdjustRange(r *Range, startCharacterDelta, endCharacterDelta int) {
	AdjustRangeLines(r, startCharacterDelta, endCharacterDelta, 0, 0)
}

// AdjustRangeLines adds character and line deltas to r in place. A nil range is ignored.
func AdjustRangeLines(r *Range, startCharacterDelta, endCharacterDelta, startLineDelta, endLineDelta int) {
	if r == nil {
		return
	}
	r.Start.Character += startCharacterDelta
	r.End.Character += endCharacterDelta
	r.Start.Line += startLineDelta
	r.End.Line += endLineDelta
}

// Span returns the range covering a through b. Either may be nil.
func Span(a, b *Range) *Range {
	switch {
	case a == nil:
		return Copy(b)
	case b == nil:
		return Copy(a)
	}
	r := Range{Start: a.Start, End: b.End}
	if b.Start.Before(r.Start) {
		r.Start = b.Start
	}
	if r.End.Before(a.End) {
		r.End = a.End
	}
	return &r
}
