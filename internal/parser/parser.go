package parser

import (
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2"

	"deopt/grammar"
	"deopt/internal/errors"
	"deopt/internal/ir"
)

var parser = buildParser()

func buildParser() *participle.Parser[grammar.File] {
	p, err := grammar.NewParser()
	if err != nil {
		panic(err)
	}

	return p
}

// ParseFile reads and parses the IR file at path
func ParseFile(path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return ParseSourceWithPositions(path, string(source)), nil
}

// ParseSource parses and lowers source into a module. On any error the module is nil.
func ParseSource(sourceName string, source string) (*ir.Module, []errors.CompilerError) {
	result := ParseSourceWithPositions(sourceName, source)
	if len(result.Errors) > 0 {
		return nil, result.Errors
	}
	return result.Module, nil
}

// MustParse parses source and panics on any error. Meant for tests and fixed inputs.
func MustParse(source string) *ir.Module {
	module, errs := ParseSource("<inline>", source)
	if len(errs) > 0 {
		panic(fmt.Sprintf("parse failed: %v", errs))
	}
	return module
}

func syntaxError(err error) errors.CompilerError {
	if pe, ok := err.(participle.Error); ok {
		pos := pe.Position()
		return errors.SyntaxError(pe.Message(), errors.Position{Line: pos.Line, Column: pos.Column, Offset: pos.Offset}, 1)
	}
	return errors.SyntaxError(err.Error(), errors.Position{Line: 1, Column: 1}, 1)
}
