package lsp

import (
	"slices"

	"github.com/alecthomas/participle/v2/lexer"

	"deopt/grammar"
)

// SemanticToken represents a single LSP semantic token entry
// Line and StartChar are 0-based positions
// TokenType is an index into the semanticTokenTypes array
// TokenModifiers is a bitmask based on semanticTokenModifiers
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int // index into semanticTokenTypes
	TokenModifiers int // bitmask
}

// collectSemanticTokens classifies the lexer's tokens. It works on the token stream rather
// than the parse tree, so a document that fails to parse is still highlighted. A character
// the lexer rejects ends highlighting there; everything before it keeps its tokens.
func collectSemanticTokens(filename, text string) []SemanticToken {
	raw, err := grammar.Tokenize(filename, text)
	if err != nil {
		log.Debugf("highlighting %s up to lexer error: %s", filename, err)
	}

	var toks []lexer.Token
	for _, t := range raw {
		if grammar.TokenKind(t.Type) != "Whitespace" {
			toks = append(toks, t)
		}
	}

	var (
		tokens      []SemanticToken
		inSignature bool
		params      = make(map[string]bool)
	)
	for i, t := range toks {
		prev, next := "", ""
		if i > 0 {
			prev = toks[i-1].Value
		}
		if i+1 < len(toks) {
			next = toks[i+1].Value
		}

		switch grammar.TokenKind(t.Type) {
		case "Comment":
			tokens = append(tokens, makeToken(t, "comment", 0))
		case "String":
			tokens = append(tokens, makeToken(t, "string", 0))
		case "Integer":
			tokens = append(tokens, makeToken(t, "number", 0))
		case "Global":
			decl := 0
			if prev == "func" {
				decl = 1
				inSignature = true
				clear(params)
			}
			tokens = append(tokens, makeToken(t, "function", decl))
		case "Local":
			switch {
			case inSignature:
				params[t.Value] = true
				tokens = append(tokens, makeToken(t, "parameter", 1))
			case params[t.Value]:
				tokens = append(tokens, makeToken(t, "parameter", 0))
			case next == "=":
				tokens = append(tokens, makeToken(t, "variable", 1))
			default:
				tokens = append(tokens, makeToken(t, "variable", 0))
			}
		case "Ident":
			switch {
			case grammar.IsKeyword(t.Value):
				tokens = append(tokens, makeToken(t, "keyword", 0))
			case slices.Contains(grammar.Types, t.Value):
				tokens = append(tokens, makeToken(t, "type", 0))
			case prev == "icmp" && slices.Contains(grammar.Predicates, t.Value):
				tokens = append(tokens, makeToken(t, "operator", 0))
			case next == ":":
				tokens = append(tokens, makeToken(t, "namespace", 1))
			default:
				tokens = append(tokens, makeToken(t, "namespace", 0))
			}
		case "Punctuation":
			if t.Value == "{" {
				inSignature = false
			}
		}
	}

	return tokens
}

// makeToken creates a semantic token for a lexer token
func makeToken(t lexer.Token, tokenType string, declModifier int) SemanticToken {
	return SemanticToken{
		Line:           uint32(t.Pos.Line - 1),   // LSP uses 0-based line numbers
		StartChar:      uint32(t.Pos.Column - 1), // LSP uses 0-based column numbers
		Length:         uint32(len([]rune(t.Value))),
		TokenType:      indexOf(tokenType, SemanticTokenTypes),
		TokenModifiers: declModifier << indexOf("declaration", SemanticTokenModifiers),
	}
}

// indexOf returns the index of a string in a slice, or 0 if not found
func indexOf(target string, list []string) int {
	for i, v := range list {
		if v == target {
			return i
		}
	}
	return 0
}
