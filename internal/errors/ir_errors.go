package errors

import (
	"fmt"
	"strings"
)

// ErrorBuilder provides a fluent interface for creating diagnostics with suggestions
type ErrorBuilder struct {
	err CompilerError
}

// NewError creates a new error builder
func NewError(code, message string, pos Position) *ErrorBuilder {
	return &ErrorBuilder{
		err: CompilerError{
			Level:    Error,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

// NewWarning creates a new warning builder
func NewWarning(code, message string, pos Position) *ErrorBuilder {
	return &ErrorBuilder{
		err: CompilerError{
			Level:    Warning,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

// NewNote creates a new informational note builder
func NewNote(code, message string, pos Position) *ErrorBuilder {
	return &ErrorBuilder{
		err: CompilerError{
			Level:    Note,
			Code:     code,
			Message:  message,
			Position: pos,
			Length:   1,
		},
	}
}

// WithLength sets the length of the error span
func (b *ErrorBuilder) WithLength(length int) *ErrorBuilder {
	b.err.Length = length
	return b
}

// WithSuggestion adds a suggestion to the error
func (b *ErrorBuilder) WithSuggestion(message string) *ErrorBuilder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{Message: message})
	return b
}

// WithReplacement adds a suggestion that rewrites the error's span to replacement
func (b *ErrorBuilder) WithReplacement(message, replacement string) *ErrorBuilder {
	b.err.Suggestions = append(b.err.Suggestions, Suggestion{
		Message:     message,
		Replacement: replacement,
		Position:    b.err.Position,
		Length:      b.err.Length,
	})
	return b
}

// WithNote adds a note to the error
func (b *ErrorBuilder) WithNote(note string) *ErrorBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

// WithHelp adds help text to the error
func (b *ErrorBuilder) WithHelp(help string) *ErrorBuilder {
	b.err.HelpText = help
	return b
}

// Build returns the completed compiler error
func (b *ErrorBuilder) Build() CompilerError {
	return b.err
}

// SyntaxError wraps a grammar mismatch
func SyntaxError(message string, pos Position, length int) CompilerError {
	return NewError(ErrorSyntax, message, pos).
		WithLength(length).
		Build()
}

// UnknownType creates an error for a type name that does not exist
func UnknownType(name string, pos Position) CompilerError {
	builder := NewError(ErrorUnknownType, fmt.Sprintf("unknown type '%s'", name), pos).
		WithLength(len(name)).
		WithHelp("integer types are i1, i8, i16, i32 and i64")
	for _, similar := range findSimilarNames(name, []string{"i1", "i8", "i16", "i32", "i64"}) {
		builder = builder.WithReplacement(fmt.Sprintf("did you mean '%s'?", similar), similar)
	}
	return builder.Build()
}

// DuplicateFunction creates an error for a function defined twice
func DuplicateFunction(name string, pos Position) CompilerError {
	return NewError(ErrorDuplicateFunction, fmt.Sprintf("function '@%s' is already defined", name), pos).
		WithLength(len(name) + 1).
		Build()
}

// DuplicateValue creates an error for a value name defined twice
func DuplicateValue(name string, pos Position) CompilerError {
	return NewError(ErrorDuplicateValue, fmt.Sprintf("value '%%%s' is already defined", name), pos).
		WithLength(len(name) + 1).
		WithNote("every value in SSA form has exactly one definition").
		Build()
}

// UndefinedValue creates an error for an operand that names no value
func UndefinedValue(name string, pos Position, known []string) CompilerError {
	builder := NewError(ErrorUndefinedValue, fmt.Sprintf("undefined value '%%%s'", name), pos).
		WithLength(len(name) + 1)

	similar := findSimilarNames(name, known)
	if len(similar) > 0 {
		builder = builder.WithReplacement(fmt.Sprintf("did you mean '%%%s'?", similar[0]), "%"+similar[0])
	} else {
		builder = builder.WithSuggestion("make sure the value is defined by a parameter or an instruction")
	}
	return builder.Build()
}

// DuplicateLabel creates an error for a block label used twice
func DuplicateLabel(label string, pos Position) CompilerError {
	return NewError(ErrorDuplicateLabel, fmt.Sprintf("block '%s' is already defined", label), pos).
		WithLength(len(label)).
		Build()
}

// UndefinedLabel creates an error for a reference to a missing block
func UndefinedLabel(label string, pos Position, known []string) CompilerError {
	builder := NewError(ErrorUndefinedLabel, fmt.Sprintf("undefined block '%s'", label), pos).
		WithLength(len(label))
	for _, similar := range findSimilarNames(label, known) {
		builder = builder.WithReplacement(fmt.Sprintf("did you mean '%s'?", similar), similar)
	}
	return builder.Build()
}

// InvalidInteger creates an error for a literal that does not parse
func InvalidInteger(text string, pos Position) CompilerError {
	return NewError(ErrorInvalidInteger, fmt.Sprintf("integer literal '%s' does not fit in 64 bits", text), pos).
		WithLength(len(text)).
		Build()
}

// MisplacedPhi creates an error for a phi that follows another instruction
func MisplacedPhi(name string, pos Position) CompilerError {
	return NewError(ErrorMisplacedPhi, fmt.Sprintf("phi '%%%s' follows a non-phi instruction", name), pos).
		WithLength(len(name) + 1).
		WithHelp("move all phi instructions to the start of the block").
		Build()
}

// UnknownPredicate creates an error for an unsupported icmp predicate
func UnknownPredicate(pred string, pos Position) CompilerError {
	return NewError(ErrorUnknownPredicate, fmt.Sprintf("unknown predicate '%s'", pred), pos).
		WithLength(len(pred)).
		WithHelp("predicates are eq, ne, slt, sle, sgt and sge").
		Build()
}

// VerifierViolation reports one violation found by the verifier in function name
func VerifierViolation(function, violation string, pos Position) CompilerError {
	return NewError(ErrorVerifier, fmt.Sprintf("@%s: %s", function, violation), pos).
		WithLength(len(function) + 1).
		Build()
}

// InvalidVersion creates an error for a malformed version header
func InvalidVersion(version string, pos Position, cause error) CompilerError {
	return NewError(ErrorInvalidVersion, fmt.Sprintf("invalid version '%s'", version), pos).
		WithLength(len(version) + 2).
		WithNote(cause.Error()).
		Build()
}

// UnsupportedVersion creates an error for a version outside the accepted range
func UnsupportedVersion(version, constraint string, pos Position) CompilerError {
	return NewError(ErrorUnsupportedVersion, fmt.Sprintf("unsupported version '%s'", version), pos).
		WithLength(len(version) + 2).
		WithHelp(fmt.Sprintf("this toolchain reads versions %s", constraint)).
		Build()
}

// UnreachableBlock warns about a block no path from the entry reaches
func UnreachableBlock(function, label string, pos Position) CompilerError {
	return NewWarning(WarningUnreachableBlock, fmt.Sprintf("@%s: block '%s' is unreachable", function, label), pos).
		WithLength(len(label)).
		Build()
}

// MulExpansionNote tells how many multiplications a function holds
func MulExpansionNote(function string, count int, pos Position) CompilerError {
	noun := "multiplications"
	if count == 1 {
		noun = "multiplication"
	}
	return NewNote(NoteMulExpansion, fmt.Sprintf("@%s: %d %s will be expanded into repeated additions", function, count, noun), pos).
		WithLength(len(function) + 1).
		Build()
}

// findSimilarNames returns candidates within a small edit distance of target
func findSimilarNames(target string, candidates []string) []string {
	var similar []string

	for _, candidate := range candidates {
		if candidate == target {
			continue
		}
		if levenshteinDistance(strings.ToLower(target), strings.ToLower(candidate)) <= 2 && len(candidate) > 1 {
			similar = append(similar, candidate)
		}
	}

	return similar
}

// Simple Levenshtein distance implementation for finding similar names
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Create matrix
	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
	}

	// Initialize first row and column
	for i := 0; i <= len(a); i++ {
		matrix[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		matrix[0][j] = j
	}

	// Fill the matrix
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}
