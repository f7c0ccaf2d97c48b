package lsp_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"deopt/internal/lsp"
)

const twice = `version "1.0.0"
; doubles
func @twice(i32 %x) -> i32 {
entry:
  %r = mul i32 %x, 2
  ret i32 %r
}
`

const twiceURI = "file:///tmp/twice.ir"

// recorder captures the notifications a handler sends
type recorder struct {
	published []*protocol.PublishDiagnosticsParams
}

func (r *recorder) context() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			if method == protocol.ServerTextDocumentPublishDiagnostics {
				r.published = append(r.published, params.(*protocol.PublishDiagnosticsParams))
			}
		},
	}
}

func (r *recorder) last(t *testing.T) *protocol.PublishDiagnosticsParams {
	t.Helper()
	require.NotEmpty(t, r.published, "no diagnostics were published")
	return r.published[len(r.published)-1]
}

func open(t *testing.T, h *lsp.IRHandler, ctx *glsp.Context, uri, text string) {
	t.Helper()
	err := h.TextDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "deopt-ir", Version: 1, Text: text},
	})
	require.NoError(t, err)
}

func TestTextDocumentSemanticTokensFull(t *testing.T) {
	handler := lsp.NewIRHandler()
	rec := &recorder{}
	open(t, handler, rec.context(), twiceURI, twice)

	tokens, err := handler.TextDocumentSemanticTokensFull(rec.context(), &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: twiceURI},
	})
	require.NoError(t, err, "TextDocumentSemanticTokensFull returned error")
	require.NotNil(t, tokens, "Returned tokens should not be nil")

	decoded, err := decodeSemanticTokens(tokens.Data)
	require.NoError(t, err, "Failed to decode semantic tokens")
	require.Len(t, decoded, 17)

	assertToken(t, &decoded[0], 1, 1, 7, "keyword", nil)
	assertToken(t, &decoded[1], 1, 9, 7, "string", nil)
	assertToken(t, &decoded[2], 2, 1, 9, "comment", nil)
	assertToken(t, &decoded[3], 3, 1, 4, "keyword", nil)
	assertToken(t, &decoded[4], 3, 6, 6, "function", []string{"declaration"})
	assertToken(t, &decoded[5], 3, 13, 3, "type", nil)
	assertToken(t, &decoded[6], 3, 17, 2, "parameter", []string{"declaration"})
	assertToken(t, &decoded[7], 3, 24, 3, "type", nil)
	assertToken(t, &decoded[8], 4, 1, 5, "namespace", []string{"declaration"})
	assertToken(t, &decoded[9], 5, 3, 2, "variable", []string{"declaration"})
	assertToken(t, &decoded[10], 5, 8, 3, "keyword", nil)
	assertToken(t, &decoded[11], 5, 12, 3, "type", nil)
	assertToken(t, &decoded[12], 5, 16, 2, "parameter", nil)
	assertToken(t, &decoded[13], 5, 20, 1, "number", nil)
	assertToken(t, &decoded[14], 6, 3, 3, "keyword", nil)
	assertToken(t, &decoded[15], 6, 7, 3, "type", nil)
	assertToken(t, &decoded[16], 6, 11, 2, "variable", nil)
}

func TestSemanticTokensClassifyLabelsAndPredicates(t *testing.T) {
	handler := lsp.NewIRHandler()
	src := "func @f(i32 %a) -> i1 {\nentry:\n  %c = icmp sle i32 0, %a\n  br %c, yes, no\nyes:\n  ret i1 1\nno:\n  ret i1 0\n}\n"
	open(t, handler, nil, "file:///tmp/f.ir", src)

	tokens, err := handler.TextDocumentSemanticTokensFull(nil, &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///tmp/f.ir"},
	})
	require.NoError(t, err)
	decoded, err := decodeSemanticTokens(tokens.Data)
	require.NoError(t, err)

	byPosition := make(map[string]DecodedToken)
	for _, tok := range decoded {
		byPosition[fmt.Sprintf("%d:%d", tok.Line, tok.Char)] = tok
	}

	assert.Equal(t, "operator", byPosition["3:13"].Type, "predicate after icmp")
	assert.Equal(t, "namespace", byPosition["4:10"].Type, "branch target")
	assert.Empty(t, byPosition["4:10"].Modifiers)
	assert.Equal(t, "namespace", byPosition["5:1"].Type, "block label")
	assert.Equal(t, []string{"declaration"}, byPosition["5:1"].Modifiers)
}

func TestSemanticTokensSurviveStrayCharacter(t *testing.T) {
	handler := lsp.NewIRHandler()
	rec := &recorder{}
	open(t, handler, rec.context(), twiceURI, twice+"$\n")

	diags := rec.last(t).Diagnostics
	require.NotEmpty(t, diags)
	assert.Equal(t, "E0101", diags[0].Code.Value)

	tokens, err := handler.TextDocumentSemanticTokensFull(rec.context(), &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: twiceURI},
	})
	require.NoError(t, err)
	decoded, err := decodeSemanticTokens(tokens.Data)
	require.NoError(t, err)
	require.Len(t, decoded, 17)
	assertToken(t, &decoded[16], 6, 11, 2, "variable", nil)
}

func TestSemanticTokensReadsUnopenedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.ir")
	require.NoError(t, os.WriteFile(path, []byte(twice), 0o644))
	uri := "file://" + filepath.ToSlash(path)

	handler := lsp.NewIRHandler()
	rec := &recorder{}
	tokens, err := handler.TextDocumentSemanticTokensFull(rec.context(), &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	require.NoError(t, err)
	assert.Len(t, tokens.Data, 17*5)
	assert.Equal(t, uri, rec.last(t).URI)

	_, err = handler.TextDocumentSemanticTokensFull(rec.context(), &protocol.SemanticTokensParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///does/not/exist.ir"},
	})
	assert.Error(t, err)
}

func TestDidOpenPublishesMulNote(t *testing.T) {
	handler := lsp.NewIRHandler()
	rec := &recorder{}
	open(t, handler, rec.context(), twiceURI, twice)

	published := rec.last(t)
	assert.Equal(t, twiceURI, published.URI)
	require.Len(t, published.Diagnostics, 1)

	diag := published.Diagnostics[0]
	assert.Equal(t, protocol.DiagnosticSeverityInformation, *diag.Severity)
	assert.Equal(t, "E0802", diag.Code.Value)
	assert.Equal(t, uint32(2), diag.Range.Start.Line)
	assert.Contains(t, diag.Message, "@twice: 1 multiplication")
}

func TestDidChangeReplacesDocument(t *testing.T) {
	handler := lsp.NewIRHandler()
	rec := &recorder{}
	open(t, handler, rec.context(), twiceURI, twice)

	broken := "func @f() -> i32 {\nentry:\n  ret i32 %missing\n}\n"
	err := handler.TextDocumentDidChange(rec.context(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: twiceURI},
			Version:                2,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: broken}},
	})
	require.NoError(t, err)

	diags := rec.last(t).Diagnostics
	require.Len(t, diags, 1)
	assert.Equal(t, protocol.DiagnosticSeverityError, *diags[0].Severity)
	assert.Equal(t, "E0105", diags[0].Code.Value)
	assert.Equal(t, "deopt-parser", *diags[0].Source)
	assert.Equal(t, protocol.Position{Line: 2, Character: 10}, diags[0].Range.Start)
	assert.Equal(t, protocol.Position{Line: 2, Character: 18}, diags[0].Range.End)

	fixed := "func @f() -> i32 {\nentry:\n  ret i32 0\n}\n"
	err = handler.TextDocumentDidChange(rec.context(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: twiceURI},
			Version:                3,
		},
		ContentChanges: []any{&protocol.TextDocumentContentChangeEventWhole{Text: fixed}},
	})
	require.NoError(t, err)
	assert.Empty(t, rec.last(t).Diagnostics)

	result, ok := handler.Result(twiceURI)
	require.True(t, ok)
	assert.NotNil(t, result.Module.FindFunction("f"))
}

func TestDidChangeRequiresWholeDocument(t *testing.T) {
	handler := lsp.NewIRHandler()
	err := handler.TextDocumentDidChange(nil, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: twiceURI},
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEvent{Text: "x"}},
	})
	assert.Error(t, err)
}

func TestVerifierAndUnreachableDiagnostics(t *testing.T) {
	handler := lsp.NewIRHandler()
	rec := &recorder{}

	open(t, handler, rec.context(), "file:///tmp/dom.ir",
		"func @f(i1 %c) -> i32 {\nentry:\n  br %c, a, b\na:\n  %v = const i32 1\n  jmp b\nb:\n  ret i32 %v\n}\n")
	diags := rec.last(t).Diagnostics
	require.NotEmpty(t, diags)
	assert.Equal(t, "E0201", diags[0].Code.Value)
	assert.Equal(t, "deopt-verifier", *diags[0].Source)

	open(t, handler, rec.context(), "file:///tmp/dead.ir",
		"func @f() -> i32 {\nentry:\n  ret i32 0\ndead:\n  ret i32 1\n}\n")
	diags = rec.last(t).Diagnostics
	require.Len(t, diags, 1)
	assert.Equal(t, protocol.DiagnosticSeverityWarning, *diags[0].Severity)
	assert.Equal(t, uint32(3), diags[0].Range.Start.Line)
}

func TestDidCloseForgetsDocument(t *testing.T) {
	handler := lsp.NewIRHandler()
	open(t, handler, nil, twiceURI, twice)

	_, ok := handler.Result(twiceURI)
	require.True(t, ok)

	require.NoError(t, handler.TextDocumentDidClose(nil, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: twiceURI},
	}))
	_, ok = handler.Result(twiceURI)
	assert.False(t, ok)
}

func TestCompletionOffersKeywordsTypesAndPredicates(t *testing.T) {
	handler := lsp.NewIRHandler()
	res, err := handler.TextDocumentCompletion(nil, &protocol.CompletionParams{})
	require.NoError(t, err)

	list, ok := res.(*protocol.CompletionList)
	require.True(t, ok)

	labels := make(map[string]bool)
	for _, item := range list.Items {
		labels[item.Label] = true
	}
	for _, want := range []string{"phi", "br", "i32", "i1", "sle", "eq"} {
		assert.True(t, labels[want], "missing completion %q", want)
	}
}

func TestInitializeReportsServerInfo(t *testing.T) {
	handler := lsp.NewIRHandler()
	res, err := handler.Initialize(nil, &protocol.InitializeParams{})
	require.NoError(t, err)

	result, ok := res.(*protocol.InitializeResult)
	require.True(t, ok)
	require.NotNil(t, result.ServerInfo)
	assert.Equal(t, "deopt", result.ServerInfo.Name)
	assert.Equal(t, "1.0.0", *result.ServerInfo.Version)
}

type DecodedToken struct {
	Index     int
	Line      uint32
	Char      uint32
	Length    uint32
	Type      string
	Modifiers []string
}

func decodeSemanticTokens(raw []uint32) ([]DecodedToken, error) {
	if len(raw)%5 != 0 {
		return nil, fmt.Errorf("raw token data length %d is not a multiple of 5", len(raw))
	}

	var (
		decoded []DecodedToken
		line    uint32
		char    uint32
	)

	for i := 0; i < len(raw); i += 5 {
		deltaLine := raw[i]
		deltaStart := raw[i+1]
		length := raw[i+2]
		tokenTypeIdx := raw[i+3]
		tokenModMask := raw[i+4]

		if deltaLine == 0 {
			char += deltaStart
		} else {
			line += deltaLine
			char = deltaStart
		}

		var modifiers []string
		for j, name := range lsp.SemanticTokenModifiers {
			if tokenModMask&(1<<j) != 0 {
				modifiers = append(modifiers, name)
			}
		}

		decoded = append(decoded, DecodedToken{
			Index:     i / 5,
			Line:      line + 1, // LSP uses 0-based indexing
			Char:      char + 1, // LSP uses 0-based indexing
			Length:    length,
			Type:      lsp.SemanticTokenTypes[tokenTypeIdx],
			Modifiers: modifiers,
		})
	}

	return decoded, nil
}

func assertToken(t *testing.T, token *DecodedToken, expectedLine, expectedChar, expectedLength uint32, expectedType string, expectedModifiers []string) {
	require.Equal(t, expectedLine, token.Line, "line mismatch (expected line %d)", expectedLine)
	require.Equal(t, expectedChar, token.Char, "char mismatch (expected char %d)", expectedChar)
	require.Equal(t, expectedLength, token.Length, "length mismatch")
	require.Equal(t, expectedType, token.Type, "type mismatch")
	require.ElementsMatch(t, expectedModifiers, token.Modifiers, "modifiers mismatch")
}
