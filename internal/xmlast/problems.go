package xmlast

import "fmt"

// ProblemCode identifies a recoverable syntax problem found while scanning
type ProblemCode string

const (
	// ProblemUnclosedTag is reported for an element that has no closing tag
	ProblemUnclosedTag ProblemCode = "XML001"
	// ProblemUnexpectedClose is reported for a closing tag with no open element
	ProblemUnexpectedClose ProblemCode = "XML002"
	// ProblemUnterminatedValue is reported for an attribute value missing its closing quote
	ProblemUnterminatedValue ProblemCode = "XML003"
	// ProblemUnterminatedMarkup is reported for comments, CDATA sections and processing
	// instructions that run to the end of the input
	ProblemUnterminatedMarkup ProblemCode = "XML004"
	// ProblemMissingValue is reported for an attribute without "=value"
	ProblemMissingValue ProblemCode = "XML005"
	// ProblemUnterminatedTag is reported for an opening or closing tag missing its '>'
	ProblemUnterminatedTag ProblemCode = "XML006"
	// ProblemMissingRoot is reported when the input contains no element at all
	ProblemMissingRoot ProblemCode = "XML007"
)

// Problem is a recoverable syntax issue. Scanning always continues past it.
type Problem struct {
	Code     ProblemCode `json:"code"`
	Message  string      `json:"message"`
	Position Position    `json:"position"`
}

// Error implements the error interface so problems can be reported directly
func (p Problem) Error() string {
	return fmt.Sprintf("%s at %d:%d: %s", p.Code, p.Position.StartLine, p.Position.StartColumn, p.Message)
}
