package printer

import (
	"github.com/conduit-lang/edmxtools/internal/csdl"
	"github.com/conduit-lang/edmxtools/internal/position"
)

// Insert builds an edit that places el on a new line at pos. openColumn is the
// column of the '<' of the enclosing element; the new element is indented one
// level deeper.
func Insert(pos position.Position, openColumn int, el *csdl.Element, opts Options) position.TextEdit {
	level := openColumn / opts.tabWidth()
	if opts.UseTabs {
		level = openColumn
	}
	childIndent := makeIndent(level+1, opts)
	return position.TextEdit{
		Range:   position.Range{Start: pos, End: pos},
		NewText: "\n" + childIndent.value + printAt(ElementDoc(el), opts, level+1),
	}
}

// InsertElement inserts el as the first child of target, just after its opening tag.
// It reports false when target has no content range, which is the case for
// self-closing or programmatically built elements.
func InsertElement(target *csdl.Element, el *csdl.Element, opts Options) (position.TextEdit, bool) {
	if target == nil || target.ContentRange == nil || target.Range == nil {
		return position.TextEdit{}, false
	}
	return Insert(target.ContentRange.Start, target.Range.Start.Character, el, opts), true
}

// InsertIntoTarget inserts el as the first term of an <Annotations> block
func InsertIntoTarget(target *csdl.Target, el *csdl.Element, opts Options) (position.TextEdit, bool) {
	if target == nil || target.TermsRange == nil || target.Range == nil {
		return position.TextEdit{}, false
	}
	return Insert(target.TermsRange.Start, target.Range.Start.Character, el, opts), true
}
