// SPDX-License-Identifier: Apache-2.0
package main

import (
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"deopt/internal/lsp"
)

const lsName = "deopt" // Name identifier for the language server

var handler protocol.Handler // Protocol handler instance (wired up below)

func main() {
	// Logs go to stderr; stdout carries the protocol
	commonlog.Configure(1, nil)
	log := commonlog.GetLogger("deopt.lsp")

	irHandler := lsp.NewIRHandler()

	handler = protocol.Handler{
		Initialize:                     irHandler.Initialize,
		Initialized:                    irHandler.Initialized,
		Shutdown:                       irHandler.Shutdown,
		SetTrace:                       irHandler.SetTrace,
		TextDocumentDidOpen:            irHandler.TextDocumentDidOpen,
		TextDocumentDidClose:           irHandler.TextDocumentDidClose,
		TextDocumentDidChange:          irHandler.TextDocumentDidChange,
		TextDocumentCompletion:         irHandler.TextDocumentCompletion,
		TextDocumentSemanticTokensFull: irHandler.TextDocumentSemanticTokensFull,
	}

	s := server.NewServer(&handler, lsName, false)

	log.Info("starting deopt language server")

	if err := s.RunStdio(); err != nil {
		log.Errorf("language server stopped: %s", err)
		os.Exit(1)
	}
}
