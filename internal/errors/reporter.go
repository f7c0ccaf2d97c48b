package errors

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// Position is a 1-based line and column in a source file, plus a 0-based byte offset
type Position struct {
	Line   int
	Column int
	Offset int
}

// ErrorLevel represents the severity of a diagnostic
type ErrorLevel string

const (
	Error   ErrorLevel = "error"
	Warning ErrorLevel = "warning"
	Note    ErrorLevel = "note"
)

// CompilerError represents a structured diagnostic with suggestions and context
type CompilerError struct {
	Level       ErrorLevel
	Code        string       // Error code like E0101
	Message     string       // Primary error message
	Position    Position     // Location in source
	Length      int          // Length of the problematic region
	Suggestions []Suggestion // Suggested fixes
	Notes       []string     // Additional context notes
	HelpText    string       // Help text for the error
}

// Suggestion represents a suggested fix. A suggestion with a Replacement rewrites the
// Length bytes at Position, and the reporter shows the line as it would read afterwards.
type Suggestion struct {
	Message     string
	Replacement string
	Position    Position
	Length      int
}

// Error implements the error interface with a one-line rendering
func (e CompilerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d:%d: %s[%s]: %s", e.Position.Line, e.Position.Column, e.Level, e.Code, e.Message)
	}
	return fmt.Sprintf("%d:%d: %s: %s", e.Position.Line, e.Position.Column, e.Level, e.Message)
}

var (
	dim  = color.New(color.Faint).SprintFunc()
	bold = color.New(color.Bold).SprintFunc()
	fix  = color.New(color.FgCyan).SprintFunc()
)

// ErrorReporter renders diagnostics against the IR text they were found in
type ErrorReporter struct {
	filename string
	lines    []string
}

// NewErrorReporter creates a new error reporter for a file
func NewErrorReporter(filename, source string) *ErrorReporter {
	return &ErrorReporter{
		filename: filename,
		lines:    strings.Split(source, "\n"),
	}
}

// gutter is the line number column to the left of quoted source
type gutter struct {
	width int
}

func newGutter(lastLine int) gutter {
	return gutter{width: max(3, len(strconv.Itoa(lastLine)))}
}

func (g gutter) blank() string { return strings.Repeat(" ", g.width) }

// rule writes an empty gutter line
func (g gutter) rule(b *strings.Builder) {
	fmt.Fprintf(b, "%s %s\n", g.blank(), dim("│"))
}

// quote writes a numbered source line
func (g gutter) quote(b *strings.Builder, n int, text string, emphasize bool) {
	num := fmt.Sprintf("%*d", g.width, n)
	if emphasize {
		num = bold(num)
	} else {
		num = dim(num)
	}
	fmt.Fprintf(b, "%s %s %s\n", num, dim("│"), text)
}

// underline writes a marker of length characters under column
func (g gutter) underline(b *strings.Builder, column, length int, char string, paint func(...interface{}) string) {
	spaces := strings.Repeat(" ", max(0, column-1))
	fmt.Fprintf(b, "%s %s %s%s\n", g.blank(), dim("│"), spaces, paint(strings.Repeat(char, max(1, length))))
}

// FormatError renders a diagnostic with the offending line, its neighbours, and any
// suggested fix applied to that line
func (er *ErrorReporter) FormatError(err CompilerError) string {
	var b strings.Builder
	paint := levelColor(err.Level)
	line := err.Position.Line
	g := newGutter(line + 1)

	if err.Code != "" {
		fmt.Fprintf(&b, "%s[%s]: %s\n", paint(string(err.Level)), err.Code, err.Message)
	} else {
		fmt.Fprintf(&b, "%s: %s\n", paint(string(err.Level)), err.Message)
	}
	fmt.Fprintf(&b, "%s %s %s:%d:%d\n", g.blank(), dim("-->"), er.filename, line, err.Position.Column)
	g.rule(&b)

	if text, ok := er.line(line - 1); ok {
		g.quote(&b, line-1, text, false)
	}
	if text, ok := er.line(line); ok {
		g.quote(&b, line, text, true)
		g.underline(&b, err.Position.Column, err.Length, "^", paint)
	}
	if text, ok := er.line(line + 1); ok {
		g.quote(&b, line+1, text, false)
	}

	for i, s := range err.Suggestions {
		if i == 0 {
			g.rule(&b)
		}
		fmt.Fprintf(&b, "%s %s %s\n", g.blank(), fix("help:"), s.Message)
		if patched, ok := er.apply(s); ok {
			g.quote(&b, s.Position.Line, patched, false)
			g.underline(&b, s.Position.Column, len(s.Replacement), "~", fix)
		}
	}

	for _, note := range err.Notes {
		fmt.Fprintf(&b, "%s %s %s %s\n", g.blank(), dim("│"), color.BlueString("note:"), note)
	}
	if err.HelpText != "" {
		fmt.Fprintf(&b, "%s %s %s %s\n", g.blank(), dim("│"), color.GreenString("help:"), err.HelpText)
	}

	b.WriteString("\n")
	return b.String()
}

// FormatAll formats every error in order
func (er *ErrorReporter) FormatAll(errs []CompilerError) string {
	var result strings.Builder
	for _, err := range errs {
		result.WriteString(er.FormatError(err))
	}
	return result.String()
}

// line returns the 1-based line n, if the source has it
func (er *ErrorReporter) line(n int) (string, bool) {
	if n < 1 || n > len(er.lines) {
		return "", false
	}
	return er.lines[n-1], true
}

// apply returns the line a suggestion rewrites, with its replacement in place
func (er *ErrorReporter) apply(s Suggestion) (string, bool) {
	if s.Replacement == "" {
		return "", false
	}
	text, ok := er.line(s.Position.Line)
	start := s.Position.Column - 1
	end := start + s.Length
	if !ok || start < 0 || end > len(text) || end < start {
		return "", false
	}
	return text[:start] + s.Replacement + text[end:], true
}

func levelColor(level ErrorLevel) func(...interface{}) string {
	switch level {
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case Note:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}
