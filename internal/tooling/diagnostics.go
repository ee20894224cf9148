package tooling

import (
	"fmt"

	"github.com/conduit-lang/edmxtools/internal/position"
)

// DiagnosticSeverity indicates the severity of a diagnostic
type DiagnosticSeverity int

const (
	// DiagnosticSeverityError represents an error diagnostic
	DiagnosticSeverityError DiagnosticSeverity = iota
	// DiagnosticSeverityWarning represents a warning diagnostic
	DiagnosticSeverityWarning
	// DiagnosticSeverityInfo represents an informational diagnostic
	DiagnosticSeverityInfo
	// DiagnosticSeverityHint represents a hint diagnostic
	DiagnosticSeverityHint
)

// DiagnosticSource is reported as the origin of every diagnostic
const DiagnosticSource = "edmx"

// CodeUnknownTarget marks a target that does not resolve against the loaded metadata
const CodeUnknownTarget = "unknown-target"

// Diagnostic is a syntax problem or an unresolved target
type Diagnostic struct {
	Range    position.Range
	Severity DiagnosticSeverity
	Code     string
	Message  string
	Source   string
}

// GetDiagnostics returns the syntax problems of a document and, once metadata is
// loaded, a warning for every target that names no known element
func (a *API) GetDiagnostics(uri string) []Diagnostic {
	doc, exists := a.GetDocument(uri)
	if !exists {
		return nil
	}

	diagnostics := make([]Diagnostic, 0, len(doc.XML.Problems))
	for _, problem := range doc.XML.Problems {
		problem := problem
		diagnostics = append(diagnostics, Diagnostic{
			Range:    *position.TransformRange(&problem.Position),
			Severity: DiagnosticSeverityError,
			Code:     string(problem.Code),
			Message:  problem.Message,
			Source:   DiagnosticSource,
		})
	}

	view := a.view()
	if doc.Kind != DocumentKindAnnotation || doc.Annotations == nil || view.Len() == 0 {
		return diagnostics
	}
	for _, target := range doc.Annotations.Targets {
		if target.NameRange == nil {
			continue
		}
		if view.GetMetadataElement(ResolveTargetPath(doc.Annotations, target)) != nil {
			continue
		}
		diagnostics = append(diagnostics, Diagnostic{
			Range:    *target.NameRange,
			Severity: DiagnosticSeverityWarning,
			Code:     CodeUnknownTarget,
			Message:  fmt.Sprintf("unknown annotation target %q", target.Name),
			Source:   DiagnosticSource,
		})
	}
	return diagnostics
}
