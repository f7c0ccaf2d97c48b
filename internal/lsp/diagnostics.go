package lsp

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"deopt/internal/errors"
	"deopt/internal/parser"
)

// CollectDiagnostics turns everything known about a document into LSP diagnostics:
// parse and lowering errors, verifier findings, unreachable blocks, and a note for each
// function the expansion stage would rewrite.
func CollectDiagnostics(result *parser.ParseResult) []protocol.Diagnostic {
	if result == nil {
		return nil
	}

	diags := result.Check()
	if !parser.HasErrors(diags) {
		diags = append(diags, result.MulNotes()...)
	}
	return ConvertCompilerErrors(diags)
}

// ConvertCompilerErrors transforms compiler diagnostics into LSP diagnostics for IDE display
func ConvertCompilerErrors(errs []errors.CompilerError) []protocol.Diagnostic {
	var diagnostics []protocol.Diagnostic

	for _, e := range errs {
		length := e.Length
		if length <= 0 {
			length = 1
		}
		line := uint32(max(0, e.Position.Line-1))
		start := uint32(max(0, e.Position.Column-1))

		message := e.Message
		if e.HelpText != "" {
			message += "\nhelp: " + e.HelpText
		}
		for _, s := range e.Suggestions {
			message += "\n" + s.Message
		}

		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{Line: line, Character: start},
				End:   protocol.Position{Line: line, Character: start + uint32(length)},
			},
			Severity: ptrSeverity(severity(e.Level)),
			Code:     &protocol.IntegerOrString{Value: e.Code},
			Source:   ptrString(source(e.Code)),
			Message:  message,
		})
	}

	return diagnostics
}

func severity(level errors.ErrorLevel) protocol.DiagnosticSeverity {
	switch level {
	case errors.Warning:
		return protocol.DiagnosticSeverityWarning
	case errors.Note:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityError
	}
}

func source(code string) string {
	switch errors.GetErrorCategory(code) {
	case "Verifier":
		return "deopt-verifier"
	case "Warning":
		return "deopt-lint"
	default:
		return "deopt-parser"
	}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}
