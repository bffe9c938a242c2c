// Package diag defines the diagnostic catalog emitted by the analyzers.
//
// Codes are stable and append-only; presentation layers key on them, so a
// code is never renumbered or reused.
package diag

import (
	"fmt"
	"sort"
	"strings"
)

// Severity of a diagnostic.
type Severity int

const (
	// Error severity
	Error Severity = iota + 1
	// Warning severity
	Warning
	// Info severity
	Info
)

// String returns the uppercase name of the severity.
func (s Severity) String() string {
	switch s {
	case Error:
		return "ERROR"
	case Warning:
		return "WARNING"
	default:
		return "INFO"
	}
}

// Position is a 1-based line, 0-based column location.
type Position struct {
	Line   int
	Column int
}

// Range is a half-open span between two positions.
type Range struct {
	Start Position
	End   Position
}

// LineRange returns a range covering a whole line.
func LineRange(line int) Range {
	return Range{Start: Position{Line: line}, End: Position{Line: line, Column: 999}}
}

// Overlaps reports whether two ranges intersect.
func (r Range) Overlaps(other Range) bool {
	if other.End.Line < r.Start.Line ||
		(other.End.Line == r.Start.Line && other.End.Column < r.Start.Column) {
		return false
	}
	if other.Start.Line > r.End.Line ||
		(other.Start.Line == r.End.Line && other.Start.Column > r.End.Column) {
		return false
	}
	return true
}

// Context carries the attribution fields shared by diagnostics of one pass.
type Context struct {
	Path     string
	Module   string
	Model    string
	Class    string
	Function string
}

// Diagnostic is an immutable analyzer finding.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Range    Range
	Path     string
	Module   string
	Model    string
	Class    string
	Function string
	Message  string
}

// String renders the diagnostic in the CLI format.
func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s][relint-%s] @ %s L%d %s",
		d.Severity, d.Code, d.Path, d.Range.Start.Line, d.Message)
}

// Sort orders diagnostics deterministically: by file, line, column, code.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Range.Start.Line != b.Range.Start.Line {
			return a.Range.Start.Line < b.Range.Start.Line
		}
		if a.Range.Start.Column != b.Range.Start.Column {
			return a.Range.Start.Column < b.Range.Start.Column
		}
		return a.Code < b.Code
	})
}

// ignoreMarker is the inline suppression marker prefix. A comment containing
// "RELINT-IGNORE-<code>" on the offending line, or on a comment line directly
// above it, suppresses that code for that line only.
const ignoreMarker = "RELINT-IGNORE-"

// MarkerFor returns the full suppression marker for a code.
func MarkerFor(code Code) string {
	return ignoreMarker + string(code)
}

// Suppressed reports whether the given code is suppressed at line (1-based)
// within the raw source lines.
func Suppressed(lines []string, code Code, line int) bool {
	if line < 1 || line > len(lines) {
		return false
	}
	marker := MarkerFor(code)
	if strings.Contains(lines[line-1], marker) {
		return true
	}
	if line > 1 {
		above := strings.TrimSpace(lines[line-2])
		if (strings.HasPrefix(above, "#") || strings.HasPrefix(above, "<!--")) &&
			strings.Contains(above, marker) {
			return true
		}
	}
	return false
}
