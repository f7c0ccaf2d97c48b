package lsp

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"deopt/grammar"
	"deopt/internal/parser"
)

var log = commonlog.GetLogger("deopt.lsp")

// Define the set of supported semantic token types (as required by the LSP spec)
var SemanticTokenTypes = []string{
	"namespace",
	"type",
	"function",
	"variable",
	"parameter",
	"keyword",
	"number",
	"string",
	"comment",
	"operator",
}

// Define the set of supported semantic token modifiers
var SemanticTokenModifiers = []string{
	"declaration",
	"definition",
	"readonly",
}

// IRHandler implements the LSP server handlers for the textual IR
type IRHandler struct {
	mu      sync.RWMutex
	content map[string]string
	results map[string]*parser.ParseResult
}

// NewIRHandler creates and returns a new IRHandler instance
func NewIRHandler() *IRHandler {
	return &IRHandler{
		content: make(map[string]string),
		results: make(map[string]*parser.ParseResult),
	}
}

// Initialize responds to the LSP client's initialize request and advertises the server's capabilities
func (h *IRHandler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("initialize")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			CompletionProvider: &protocol.CompletionOptions{
				ResolveProvider: ptrBool(false),
			},
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true),
			},
		},
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    "deopt",
			Version: ptrString(parser.CurrentVersion),
		},
	}, nil
}

// Initialized is called after the client receives the server's capabilities and completes initialization
func (h *IRHandler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Info("initialized")
	return nil
}

// Shutdown handles the LSP shutdown request
func (h *IRHandler) Shutdown(ctx *glsp.Context) error {
	log.Info("shutdown")
	return nil
}

// SetTrace accepts the client's trace level
func (h *IRHandler) SetTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	log.Debugf("trace set to %s", params.Value)
	return nil
}

// TextDocumentDidOpen handles file open notifications from the editor
func (h *IRHandler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	log.Infof("opened %s", uri)

	h.update(uri, params.TextDocument.Text)
	h.publish(ctx, uri)
	return nil
}

// TextDocumentDidClose handles file close notifications from the editor
func (h *IRHandler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	log.Infof("closed %s", params.TextDocument.URI)

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.content, params.TextDocument.URI)
	delete(h.results, params.TextDocument.URI)

	return nil
}

// TextDocumentDidChange handles file change notifications from the editor. The server
// asks for full sync, so the last whole-document change wins.
func (h *IRHandler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	log.Debugf("changed %s", uri)

	text, ok := "", false
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text, ok = c.Text, true
		case *protocol.TextDocumentContentChangeEventWhole:
			text, ok = c.Text, true
		}
	}
	if !ok {
		return fmt.Errorf("no whole-document change for %s", uri)
	}

	h.update(uri, text)
	h.publish(ctx, uri)
	return nil
}

// TextDocumentCompletion offers keywords, types and predicates
func (h *IRHandler) TextDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	var items []protocol.CompletionItem
	add := func(words []string, kind protocol.CompletionItemKind, detail string) {
		for _, w := range words {
			items = append(items, protocol.CompletionItem{
				Label:  w,
				Kind:   &kind,
				Detail: ptrString(detail),
			})
		}
	}
	add(grammar.Keywords, protocol.CompletionItemKindKeyword, "keyword")
	add(grammar.Types, protocol.CompletionItemKindTypeParameter, "integer type")
	add(grammar.Predicates, protocol.CompletionItemKindOperator, "icmp predicate")

	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        items,
	}, nil
}

// TextDocumentSemanticTokensFull handles semantic token requests for the entire document
func (h *IRHandler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	uri := params.TextDocument.URI
	log.Debugf("semantic tokens for %s", uri)

	text, err := h.document(ctx, uri)
	if err != nil {
		return nil, err
	}

	tokens := collectSemanticTokens(uri, text)

	var data []uint32
	var prevLine, prevStart uint32

	// Encode tokens into LSP wire format (using delta-line, delta-start compression)
	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		var deltaStart uint32
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		} else {
			deltaStart = token.StartChar
		}

		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))

		prevLine = token.Line
		prevStart = token.StartChar
	}

	return &protocol.SemanticTokens{
		Data: data,
	}, nil
}

// Result returns the latest parse result for uri, if the document is open
func (h *IRHandler) Result(uri protocol.DocumentUri) (*parser.ParseResult, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result, ok := h.results[uri]
	return result, ok
}

// document returns the open text of uri, reading it from disk when the editor never sent it
func (h *IRHandler) document(ctx *glsp.Context, uri protocol.DocumentUri) (string, error) {
	h.mu.RLock()
	text, ok := h.content[uri]
	h.mu.RUnlock()
	if ok {
		return text, nil
	}

	path, err := uriToPath(uri)
	if err != nil {
		return "", fmt.Errorf("failed to convert URI %s: %w", uri, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", path, err)
	}

	h.update(uri, string(content))
	h.publish(ctx, uri)
	return string(content), nil
}

func (h *IRHandler) update(uri protocol.DocumentUri, text string) {
	result := parser.ParseSourceWithPositions(uri, text)

	h.mu.Lock()
	h.content[uri] = text
	h.results[uri] = result
	h.mu.Unlock()
}

func (h *IRHandler) publish(ctx *glsp.Context, uri protocol.DocumentUri) {
	result, ok := h.Result(uri)
	if !ok {
		return
	}
	sendDiagnosticNotification(ctx, uri, CollectDiagnostics(result))
}

// Convert URI to platform-local file path
func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path

	// On Windows, remove leading slash (e.g., /C:/...) to get C:/...
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}

	return filepath.FromSlash(path), nil
}

func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.URI, diagnostics []protocol.Diagnostic) {
	if ctx == nil || ctx.Notify == nil {
		return
	}
	log.Debugf("sending %d diagnostic(s) for %s", len(diagnostics), uri)

	// An empty list clears stale diagnostics in the editor
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func ptrBool(b bool) *bool {
	return &b
}

func ptrString(s string) *string {
	return &s
}

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
