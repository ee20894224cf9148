package printer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// DiffOp is the kind of a diff line
type DiffOp int

const (
	DiffEqual DiffOp = iota
	DiffRemoved
	DiffAdded
)

// DiffLine is one line of a line diff
type DiffLine struct {
	Op   DiffOp
	Text string
	// Line is the 1-based line number in the original text for equal and removed
	// lines, and in the formatted text for added lines
	Line int
}

// DiffResult represents the difference between an original and a formatted document
type DiffResult struct {
	Original  string
	Formatted string
	Changed   bool
	Lines     []DiffLine
}

// Diff compares original and formatted text line by line
func Diff(original, formatted string) *DiffResult {
	d := &DiffResult{
		Original:  original,
		Formatted: formatted,
		Changed:   original != formatted,
	}
	if d.Changed {
		d.Lines = diffLines(strings.Split(original, "\n"), strings.Split(formatted, "\n"))
	}
	return d
}

// diffLines computes a longest-common-subsequence line diff
func diffLines(a, b []string) []DiffLine {
	n, m := len(a), len(b)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var out []DiffLine
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			out = append(out, DiffLine{Op: DiffEqual, Text: a[i], Line: i + 1})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			out = append(out, DiffLine{Op: DiffRemoved, Text: a[i], Line: i + 1})
			i++
		default:
			out = append(out, DiffLine{Op: DiffAdded, Text: b[j], Line: j + 1})
			j++
		}
	}
	for ; i < n; i++ {
		out = append(out, DiffLine{Op: DiffRemoved, Text: a[i], Line: i + 1})
	}
	for ; j < m; j++ {
		out = append(out, DiffLine{Op: DiffAdded, Text: b[j], Line: j + 1})
	}
	return out
}

// String returns the changed lines with color highlighting
func (d *DiffResult) String() string {
	if !d.Changed {
		return color.GreenString("No changes needed")
	}

	var buf bytes.Buffer
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)

	inHunk := false
	for _, line := range d.Lines {
		switch line.Op {
		case DiffEqual:
			inHunk = false
			continue
		case DiffRemoved:
			if !inHunk {
				cyan.Fprintf(&buf, "@@ line %d @@\n", line.Line)
			}
			red.Fprintf(&buf, "- %s\n", line.Text)
		case DiffAdded:
			if !inHunk {
				cyan.Fprintf(&buf, "@@ line %d @@\n", line.Line)
			}
			green.Fprintf(&buf, "+ %s\n", line.Text)
		}
		inHunk = true
	}
	return buf.String()
}

// UnifiedDiff returns the changes in a plain unified-style format
func (d *DiffResult) UnifiedDiff(filename string) string {
	if !d.Changed {
		return ""
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "--- a/%s\n", filename)
	fmt.Fprintf(&buf, "+++ b/%s\n", filename)
	for _, line := range d.Lines {
		switch line.Op {
		case DiffEqual:
			fmt.Fprintf(&buf, " %s\n", line.Text)
		case DiffRemoved:
			fmt.Fprintf(&buf, "-%s\n", line.Text)
		case DiffAdded:
			fmt.Fprintf(&buf, "+%s\n", line.Text)
		}
	}
	return buf.String()
}

// Stats returns statistics about the changes
func (d *DiffResult) Stats() string {
	if !d.Changed {
		return "No changes"
	}
	added, removed := 0, 0
	for _, line := range d.Lines {
		switch line.Op {
		case DiffAdded:
			added++
		case DiffRemoved:
			removed++
		}
	}
	return fmt.Sprintf("%d lines added, %d removed", added, removed)
}
