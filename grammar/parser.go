package grammar

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/fatih/color"
)

// NewParser builds the participle parser for IR source files
func NewParser() (*participle.Parser[File], error) {
	parser, err := participle.Build[File](
		participle.Lexer(IRLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(3),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}
	return parser, nil
}

// ParseFile parses the file at path and prints a caret-style message to stderr on a syntax error
func ParseFile(path string) (*File, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	parser, err := NewParser()
	if err != nil {
		return nil, err
	}

	file, err := parser.ParseString(path, string(source))
	if err != nil {
		ReportParseError(os.Stderr, string(source), err)
		return nil, err
	}
	return file, nil
}

// Tokenize splits source into lexer tokens, comments and whitespace included.
// The trailing EOF token is dropped. On a lexing error the tokens read before the
// offending character are returned together with the error.
func Tokenize(filename, source string) ([]lexer.Token, error) {
	lex, err := IRLexer.LexString(filename, source)
	if err != nil {
		return nil, err
	}
	var tokens []lexer.Token
	for {
		t, err := lex.Next()
		if err != nil {
			return tokens, err
		}
		if t.EOF() {
			return tokens, nil
		}
		tokens = append(tokens, t)
	}
}

// TokenKind returns the lexer rule name of a token type, such as "Ident" or "Local"
func TokenKind(t lexer.TokenType) string {
	for name, tt := range IRLexer.Symbols() {
		if tt == t {
			return name
		}
	}
	return ""
}

// ReportParseError prints a friendly caret-style parse error message.
func ReportParseError(w io.Writer, src string, err error) {
	red := color.New(color.FgRed)
	pe, ok := err.(participle.Error)
	if !ok {
		red.Fprintf(w, "Unexpected error: %s\n", err)
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		red.Fprintf(w, "Syntax error at unknown location: %s\n", err)
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", max(0, pos.Column-1)) + "^"

	red.Fprintf(w, "Syntax error in %s at line %d, column %d:\n", pos.Filename, pos.Line, pos.Column)
	fmt.Fprintln(w, line)
	color.New(color.FgHiRed).Fprintln(w, caret)
	fmt.Fprintf(w, "→ %s\n", pe.Message())
}
