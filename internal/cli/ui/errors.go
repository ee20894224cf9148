package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Level is the severity of a message
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
)

// Message describes a user-facing problem with optional suggestions and hints
type Message struct {
	Level       Level
	Context     string
	Problem     string
	Detail      string
	Suggestions []string
	Hints       []string
	NoColor     bool
}

// Format renders a message like:
//
//	✗ ELEMENT NOT FOUND: NS.Departmnt
//
//	   Did you mean: NS.Department?
//
//	   → List roots: edmx metadata service.xml --tree
func Format(m Message) string {
	var header *color.Color
	var symbol string
	switch m.Level {
	case LevelWarning:
		header, symbol = color.New(color.FgYellow, color.Bold), "!"
	case LevelInfo:
		header, symbol = color.New(color.FgCyan, color.Bold), "i"
	default:
		header, symbol = color.New(color.FgRed, color.Bold), "✗"
	}
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	if m.NoColor {
		header.DisableColor()
		yellow.DisableColor()
		cyan.DisableColor()
	}

	var b strings.Builder
	if m.Context != "" {
		header.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(m.Context), m.Problem)
	} else {
		header.Fprintf(&b, "%s %s\n", symbol, m.Problem)
	}
	if m.Detail != "" {
		fmt.Fprintf(&b, "   %s\n", m.Detail)
	}
	if len(m.Suggestions) > 0 {
		b.WriteString("\n")
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(m.Suggestions, ", "))
	}
	if len(m.Hints) > 0 {
		b.WriteString("\n")
		for _, hint := range m.Hints {
			cyan.Fprintf(&b, "   → %s\n", hint)
		}
	}
	return b.String()
}

// Write writes a formatted message to w
func Write(w io.Writer, m Message) {
	fmt.Fprint(w, Format(m))
}

// FormatSuccess renders a success line
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success line to w
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// ElementNotFound reports an unknown metadata path of file
func ElementNotFound(path, file string, suggestions []string, noColor bool) string {
	return Format(Message{
		Context:     "element not found",
		Problem:     path,
		Suggestions: suggestions,
		Hints:       []string{"List elements: edmx metadata " + file + " --tree"},
		NoColor:     noColor,
	})
}

// NotFormatted reports files that differ from their printed form
func NotFormatted(files []string, noColor bool) string {
	return Format(Message{
		Context: "not formatted",
		Problem: fmt.Sprintf("%d file(s) need formatting", len(files)),
		Detail:  strings.Join(files, "\n   "),
		Hints:   []string{"Fix them: edmx format --write " + strings.Join(files, " ")},
		NoColor: noColor,
	})
}

// ConfigError reports an unusable configuration
func ConfigError(err error, noColor bool) string {
	return Format(Message{
		Context: "configuration error",
		Problem: err.Error(),
		Hints:   []string{"Check edmx.yaml or EDMX_ environment variables"},
		NoColor: noColor,
	})
}

// Warning renders a warning line
func Warning(message string, noColor bool) string {
	return Format(Message{Level: LevelWarning, Problem: message, NoColor: noColor})
}
