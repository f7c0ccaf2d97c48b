package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var IRLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments run to the end of the line
		{"Comment", `;[^\n]*`, nil},

		// Version header
		{"String", `"(\\.|[^"\\])*"`, nil},

		// Function names and SSA values
		{"Global", `@[a-zA-Z_][a-zA-Z0-9_.]*`, nil},
		{"Local", `%[a-zA-Z0-9_.]+`, nil},

		{"Arrow", `->`, nil},

		// Integer literals
		{"Integer", `-?[0-9]+`, nil},

		// Keywords, types and block labels
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_.]*`, nil},

		// Punctuation
		{"Punctuation", `[{}()\[\],:=]`, nil},

		// Whitespace
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})

// Keywords are the reserved words of the textual IR
var Keywords = []string{
	"version", "func", "phi", "icmp", "const",
	"add", "sub", "mul", "and", "or", "xor",
	"br", "jmp", "ret", "void",
}

// Types are the integer type names of the textual IR
var Types = []string{"i1", "i8", "i16", "i32", "i64"}

// Predicates are the comparison predicates accepted after icmp
var Predicates = []string{"eq", "ne", "slt", "sle", "sgt", "sge"}

// IsKeyword reports whether word is reserved
func IsKeyword(word string) bool {
	for _, k := range Keywords {
		if k == word {
			return true
		}
	}
	return false
}
