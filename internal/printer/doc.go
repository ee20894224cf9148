// Package printer serializes the csdl document model into formatted XML.
//
// Layout is expressed in a small document algebra (Text, Concat, Indent and line
// breaks) that PrintDocumentToString interprets with an explicit stack.
package printer

import "strings"

// Doc is a layout document
type Doc interface {
	isDoc()
}

// Text is emitted verbatim. It must not contain newlines.
type Text string

// Concat lays out its parts one after another
type Concat []Doc

// Indent increases the indent level of line breaks inside Contents
type Indent struct {
	Contents Doc
}

// LineBreak is a soft line (one space), a hard line (newline plus indent) or a
// literal line (bare newline, the preceding text kept as is)
type LineBreak struct {
	Hard    bool
	Literal bool
}

func (Text) isDoc()      {}
func (Concat) isDoc()    {}
func (Indent) isDoc()    {}
func (LineBreak) isDoc() {}

var (
	// Line renders as a single space
	Line = LineBreak{}
	// HardLine renders as a newline followed by the current indent
	HardLine = LineBreak{Hard: true}
	// LiteralLine renders as a newline without indent
	LiteralLine = LineBreak{Hard: true, Literal: true}
)

// Join places sep between docs
func Join(sep Doc, docs []Doc) Doc {
	out := make(Concat, 0, 2*len(docs))
	for i, d := range docs {
		if i > 0 {
			out = append(out, sep)
		}
		out = append(out, d)
	}
	return out
}

// indentation is the indent descriptor of one stack frame
type indentation struct {
	value  string
	length int
	level  int
}

func makeIndent(level int, opts Options) indentation {
	if level <= 0 {
		return indentation{}
	}
	if opts.UseTabs {
		return indentation{value: strings.Repeat("\t", level), length: level, level: level}
	}
	width := level * opts.tabWidth()
	return indentation{value: strings.Repeat(" ", width), length: width, level: level}
}

type frame struct {
	indent indentation
	doc    Doc
}

// PrintDocumentToString renders doc. No line ended by a hard line ends with whitespace.
func PrintDocumentToString(doc Doc, opts Options) string {
	return printAt(doc, opts, 0)
}

func printAt(doc Doc, opts Options, level int) string {
	var out []string
	stack := []frame{{indent: makeIndent(level, opts), doc: doc}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch d := f.doc.(type) {
		case nil:
		case Text:
			out = append(out, string(d))
		case Concat:
			for i := len(d) - 1; i >= 0; i-- {
				stack = append(stack, frame{indent: f.indent, doc: d[i]})
			}
		case Indent:
			stack = append(stack, frame{indent: makeIndent(f.indent.level+1, opts), doc: d.Contents})
		case LineBreak:
			if !d.Hard {
				out = append(out, " ")
				continue
			}
			if d.Literal {
				out = append(out, "\n")
				continue
			}
			out = trimTrailing(out)
			out = append(out, "\n"+f.indent.value)
		}
	}
	return strings.Join(out, "")
}

// trimTrailing removes spaces and tabs from the end of the emitted fragments
func trimTrailing(out []string) []string {
	for len(out) > 0 {
		last := out[len(out)-1]
		trimmed := strings.TrimRight(last, " \t")
		if trimmed != "" {
			out[len(out)-1] = trimmed
			return out
		}
		out = out[:len(out)-1]
	}
	return out
}
