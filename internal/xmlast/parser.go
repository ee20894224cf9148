package xmlast

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Parse scans text into a Document. It never fails: malformed markup is recovered
// from and recorded in Document.Problems, so partially typed documents still yield
// a usable tree.
func Parse(text string) *Document {
	s := &scanner{
		src: text,
		doc: &Document{text: text, lineOffsets: computeLineOffsets(text)},
	}
	s.run()
	return s.doc
}

type scanner struct {
	src   string
	pos   int
	doc   *Document
	stack []*Element
}

func (s *scanner) run() {
	for s.pos < len(s.src) {
		if s.src[s.pos] != '<' {
			s.text(s.pos)
			continue
		}
		rest := s.src[s.pos:]
		switch {
		case strings.HasPrefix(rest, "<!--"):
			s.skipMarkup(len("<!--"), "-->", "comment")
		case strings.HasPrefix(rest, "<![CDATA["):
			s.cdata()
		case strings.HasPrefix(rest, "<?"):
			s.skipMarkup(len("<?"), "?>", "processing instruction")
		case strings.HasPrefix(rest, "<!"):
			s.skipMarkup(len("<!"), ">", "declaration")
		case strings.HasPrefix(rest, "</"):
			s.closeTag()
		case len(rest) > 1 && isNameStart(rest[1]):
			s.openTag()
		default:
			// a '<' that cannot start markup is kept as character data
			s.text(s.pos + 1)
		}
	}
	s.finish()
}

func (s *scanner) current() *Element {
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

func (s *scanner) text(searchFrom int) {
	start := s.pos
	end := len(s.src)
	if searchFrom < len(s.src) {
		if idx := strings.IndexByte(s.src[searchFrom:], '<'); idx >= 0 {
			end = searchFrom + idx
		}
	}
	s.pos = end
	s.addText(&TextContent{Text: s.src[start:end], Position: s.span(start, end-1)})
}

func (s *scanner) addText(text *TextContent) {
	// character data outside the root element is not part of the tree
	if parent := s.current(); parent != nil {
		parent.TextContents = append(parent.TextContents, text)
	}
}

func (s *scanner) skipMarkup(openerLen int, terminator, what string) {
	start := s.pos
	idx := strings.Index(s.src[start+openerLen:], terminator)
	if idx < 0 {
		s.problem(ProblemUnterminatedMarkup, start, len(s.src)-1, "unterminated %s", what)
		s.pos = len(s.src)
		return
	}
	s.pos = start + openerLen + idx + len(terminator)
}

func (s *scanner) cdata() {
	start := s.pos
	body := start + len("<![CDATA[")
	inner := s.src[body:]
	end := len(s.src)
	if idx := strings.Index(inner, "]]>"); idx >= 0 {
		inner = inner[:idx]
		end = body + idx + len("]]>")
	} else {
		s.problem(ProblemUnterminatedMarkup, start, len(s.src)-1, "unterminated CDATA section")
	}
	s.pos = end
	s.addText(&TextContent{Text: inner, Position: s.span(start, end-1), CData: true})
}

func (s *scanner) openTag() {
	start := s.pos
	s.pos++
	nameStart := s.pos
	s.pos = s.scanName(s.pos)
	qname := s.src[nameStart:s.pos]

	el := &Element{
		Attributes:   []*Attribute{},
		SubElements:  []*Element{},
		TextContents: []*TextContent{},
	}
	el.NS, el.Name = splitQName(qname)
	el.Syntax.OpenName = s.spanPtr(nameStart, s.pos-1)

	bodyEnd := -1
scan:
	for s.pos < len(s.src) {
		s.skipSpace()
		if s.pos >= len(s.src) {
			break
		}
		c := s.src[s.pos]
		switch {
		case c == '>':
			bodyEnd = s.pos
			s.pos++
			break scan
		case c == '/' && s.peek(1) == '>':
			el.Syntax.SelfClosing = true
			bodyEnd = s.pos + 1
			s.pos += 2
			break scan
		case c == '<':
			break scan
		case c == '/':
			s.pos++
		default:
			s.attribute(el)
		}
	}
	if bodyEnd < 0 {
		bodyEnd = s.pos - 1
		for bodyEnd > start && isSpace(s.src[bodyEnd]) {
			bodyEnd--
		}
		el.Syntax.GuessedAttributesRange = true
		s.problem(ProblemUnterminatedTag, start, bodyEnd, "opening tag <%s> is not terminated", qname)
	}

	el.Namespaces = s.namespaces(el)
	el.Syntax.OpenBody = s.spanPtr(start, bodyEnd)
	el.Position = s.span(start, bodyEnd)

	if parent := s.current(); parent != nil {
		parent.SubElements = append(parent.SubElements, el)
	} else if s.doc.Root == nil {
		s.doc.Root = el
	}
	if el.Syntax.SelfClosing {
		return
	}
	s.stack = append(s.stack, el)
}

// namespaces resolves the prefixes in scope for el. The parent map is shared
// unless el declares its own bindings.
func (s *scanner) namespaces(el *Element) map[string]string {
	var inherited map[string]string
	if parent := s.current(); parent != nil {
		inherited = parent.Namespaces
	}
	var own map[string]string
	for _, attr := range el.Attributes {
		var prefix string
		switch {
		case attr.Key == "xmlns":
		case strings.HasPrefix(attr.Key, "xmlns:"):
			prefix = attr.Key[len("xmlns:"):]
		default:
			continue
		}
		if own == nil {
			own = make(map[string]string, len(inherited)+1)
			for k, v := range inherited {
				own[k] = v
			}
		}
		own[prefix] = attr.Value
	}
	if own != nil {
		return own
	}
	return inherited
}

func (s *scanner) attribute(el *Element) {
	start := s.pos
	s.pos = s.scanName(s.pos)
	if s.pos == start {
		s.pos++
		return
	}
	attr := &Attribute{Key: s.src[start:s.pos], SyntaxKey: s.spanPtr(start, s.pos-1)}
	end := s.pos - 1
	afterName := s.pos

	s.skipSpace()
	if s.peek(0) != '=' {
		s.pos = afterName
		s.problem(ProblemMissingValue, start, end, "attribute %q has no value", attr.Key)
		attr.Position = s.span(start, end)
		el.Attributes = append(el.Attributes, attr)
		return
	}
	s.pos++
	s.skipSpace()

	valueStart := s.pos
	switch quote := s.peek(0); quote {
	case '"', '\'':
		if idx := strings.IndexByte(s.src[valueStart+1:], quote); idx >= 0 {
			closing := valueStart + 1 + idx
			attr.Value = s.src[valueStart+1 : closing]
			attr.SyntaxValue = s.spanPtr(valueStart, closing)
			s.pos = closing + 1
			end = closing
		} else {
			stop := s.indexAny(valueStart+1, "<>")
			attr.Value = s.src[valueStart+1 : stop]
			attr.SyntaxValue = s.spanPtr(valueStart, stop-1)
			s.pos = stop
			end = stop - 1
			s.problem(ProblemUnterminatedValue, valueStart, end, "value of attribute %q is not terminated", attr.Key)
		}
	default:
		stop := valueStart
		for stop < len(s.src) {
			c := s.src[stop]
			if isSpace(c) || c == '<' || c == '>' || (c == '/' && stop+1 < len(s.src) && s.src[stop+1] == '>') {
				break
			}
			stop++
		}
		attr.Value = s.src[valueStart:stop]
		s.pos = stop
		if stop > valueStart {
			attr.SyntaxValue = s.spanPtr(valueStart, stop-1)
			end = stop - 1
			s.problem(ProblemUnterminatedValue, valueStart, end, "value of attribute %q is not quoted", attr.Key)
		} else {
			s.problem(ProblemMissingValue, start, end, "attribute %q has no value", attr.Key)
		}
	}
	attr.Position = s.span(start, end)
	el.Attributes = append(el.Attributes, attr)
}

func (s *scanner) closeTag() {
	start := s.pos
	s.pos += 2
	nameStart := s.pos
	s.pos = s.scanName(s.pos)
	qname := s.src[nameStart:s.pos]
	var closeName *Position
	if s.pos > nameStart {
		closeName = s.spanPtr(nameStart, s.pos-1)
	}

	s.skipSpace()
	end := s.pos - 1
	if s.peek(0) == '>' {
		end = s.pos
		s.pos++
	} else {
		for end > start && isSpace(s.src[end]) {
			end--
		}
		s.problem(ProblemUnterminatedTag, start, end, "closing tag </%s> is not terminated", qname)
	}

	idx := -1
	for i := len(s.stack) - 1; i >= 0; i-- {
		if s.stack[i].QName() == qname {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.problem(ProblemUnexpectedClose, start, end, "unexpected closing tag </%s>", qname)
		return
	}
	for i := len(s.stack) - 1; i > idx; i-- {
		s.unclosed(s.stack[i], start-1)
	}

	el := s.stack[idx]
	el.Syntax.CloseName = closeName
	el.Syntax.CloseBody = s.spanPtr(start, end)
	el.Position = s.span(el.Position.StartOffset, end)
	s.stack = s.stack[:idx]
}

func (s *scanner) unclosed(el *Element, end int) {
	if end < el.Position.EndOffset {
		end = el.Position.EndOffset
	}
	el.Position = s.span(el.Position.StartOffset, end)
	openName := el.Position
	if el.Syntax.OpenName != nil {
		openName = *el.Syntax.OpenName
	}
	s.doc.Problems = append(s.doc.Problems, Problem{
		Code:     ProblemUnclosedTag,
		Message:  fmt.Sprintf("element <%s> is not closed", el.QName()),
		Position: openName,
	})
}

func (s *scanner) finish() {
	for i := len(s.stack) - 1; i >= 0; i-- {
		s.unclosed(s.stack[i], len(s.src)-1)
	}
	s.stack = nil
	if s.doc.Root == nil {
		s.problem(ProblemMissingRoot, 0, len(s.src)-1, "document has no root element")
	}
}

func (s *scanner) problem(code ProblemCode, start, end int, format string, args ...any) {
	s.doc.Problems = append(s.doc.Problems, Problem{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Position: s.span(start, end),
	})
}

// span builds a Position for the inclusive byte range [start, end]
func (s *scanner) span(start, end int) Position {
	if end < start {
		end = start
	}
	startLine, startColumn := lineColumn(s.src, s.doc.lineOffsets, start)
	endLine, endColumn := endLineColumn(s.src, s.doc.lineOffsets, start, end)
	return Position{
		StartOffset: start,
		EndOffset:   end,
		StartLine:   startLine,
		StartColumn: startColumn,
		EndLine:     endLine,
		EndColumn:   endColumn,
	}
}

func (s *scanner) spanPtr(start, end int) *Position {
	p := s.span(start, end)
	return &p
}

func (s *scanner) peek(n int) byte {
	if s.pos+n >= len(s.src) {
		return 0
	}
	return s.src[s.pos+n]
}

func (s *scanner) skipSpace() {
	for s.pos < len(s.src) && isSpace(s.src[s.pos]) {
		s.pos++
	}
}

func (s *scanner) scanName(i int) int {
	for i < len(s.src) && isNameChar(s.src[i]) {
		i++
	}
	return i
}

func (s *scanner) indexAny(from int, chars string) int {
	if from >= len(s.src) {
		return len(s.src)
	}
	if idx := strings.IndexAny(s.src[from:], chars); idx >= 0 {
		return from + idx
	}
	return len(s.src)
}

func computeLineOffsets(text string) []int {
	offsets := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// lineColumn returns the 1-based line and column of offset. Columns count UTF-16
// code units so they line up with editor positions.
func lineColumn(text string, lines []int, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}
	idx := sort.Search(len(lines), func(i int) bool { return lines[i] > offset }) - 1
	if idx < 0 {
		idx = 0
	}
	column := 1
	for i := lines[idx]; i < offset; {
		r, size := decodeRune(text[i:])
		column += utf16Len(r)
		i += size
	}
	return idx + 1, column
}

// endLineColumn returns the line and column of the last UTF-16 code unit of the
// rune that contains the byte at end.
func endLineColumn(text string, lines []int, start, end int) (int, int) {
	if end >= len(text) {
		return lineColumn(text, lines, end)
	}
	runeStart := end
	for runeStart > start && !utf8.RuneStart(text[runeStart]) {
		runeStart--
	}
	line, column := lineColumn(text, lines, runeStart)
	r, _ := decodeRune(text[runeStart:])
	return line, column + utf16Len(r) - 1
}

func splitQName(qname string) (prefix, local string) {
	if idx := strings.IndexByte(qname, ':'); idx >= 0 {
		return qname[:idx], qname[idx+1:]
	}
	return "", qname
}

func decodeRune(s string) (rune, int) {
	return utf8.DecodeRuneInString(s)
}

func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isNameStart(c byte) bool {
	return c == '_' || c == ':' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isNameChar(c byte) bool {
	if c <= ' ' {
		return false
	}
	switch c {
	case '<', '>', '/', '=', '"', '\'':
		return false
	}
	return true
}
