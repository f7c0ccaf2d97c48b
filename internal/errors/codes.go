package errors

import (
	"fmt"
	"strings"
)

// Error codes for the deopt toolchain
// These codes are used in diagnostics printed by the CLI and published by the language server.
//
// Error code ranges:
// E0100-E0199: Syntax and lowering errors
// E0200-E0299: Verifier errors
// E0300-E0399: Format version errors
// E0800-E0899: Warnings and informational notes

const (
	// E0101: Input does not match the IR grammar
	ErrorSyntax = "E0101"

	// E0102: Unknown type name
	ErrorUnknownType = "E0102"

	// E0103: Two functions with the same name
	ErrorDuplicateFunction = "E0103"

	// E0104: A value name defined twice in one function
	ErrorDuplicateValue = "E0104"

	// E0105: An operand names a value that is never defined
	ErrorUndefinedValue = "E0105"

	// E0106: Two blocks with the same label
	ErrorDuplicateLabel = "E0106"

	// E0107: A branch or phi names a block that does not exist
	ErrorUndefinedLabel = "E0107"

	// E0108: Integer literal out of range
	ErrorInvalidInteger = "E0108"

	// E0109: Phi after a non-phi instruction
	ErrorMisplacedPhi = "E0109"

	// E0110: Unknown comparison predicate
	ErrorUnknownPredicate = "E0110"

	// E0201: Structural or SSA verification failure
	ErrorVerifier = "E0201"

	// E0301: Malformed version header
	ErrorInvalidVersion = "E0301"

	// E0302: Version outside the supported range
	ErrorUnsupportedVersion = "E0302"

	// E0801: Block is not reachable from the entry
	WarningUnreachableBlock = "E0801"

	// E0802: Multiplications the expansion stage will rewrite
	NoteMulExpansion = "E0802"
)

// GetErrorDescription returns a human-readable description of the error code
func GetErrorDescription(code string) string {
	switch code {
	case ErrorSyntax:
		return "Input does not match the IR grammar"
	case ErrorUnknownType:
		return "Type name is not one of i1, i8, i16, i32, i64"
	case ErrorDuplicateFunction:
		return "Function is defined more than once"
	case ErrorDuplicateValue:
		return "Value name is defined more than once in a function"
	case ErrorUndefinedValue:
		return "Operand refers to a value that is never defined"
	case ErrorDuplicateLabel:
		return "Block label is used more than once in a function"
	case ErrorUndefinedLabel:
		return "Branch or phi refers to a block that does not exist"
	case ErrorInvalidInteger:
		return "Integer literal does not fit in 64 bits"
	case ErrorMisplacedPhi:
		return "Phi instructions must come first in their block"
	case ErrorUnknownPredicate:
		return "Comparison predicate is not supported"
	case ErrorVerifier:
		return "Function violates a CFG or SSA invariant"
	case ErrorInvalidVersion:
		return "Version header is not a semantic version"
	case ErrorUnsupportedVersion:
		return "Version header is outside the supported range"
	case WarningUnreachableBlock:
		return "Block is unreachable from the entry block"
	case NoteMulExpansion:
		return "Multiplications will be expanded into repeated additions"
	default:
		return "Unknown error code"
	}
}

// GetErrorCategory returns the category of the error based on its code
func GetErrorCategory(code string) string {
	switch {
	case code >= "E0100" && code < "E0200":
		return "Parser"
	case code >= "E0200" && code < "E0300":
		return "Verifier"
	case code >= "E0300" && code < "E0400":
		return "Format Version"
	case code >= "E0800" && code < "E0900":
		return "Warning"
	default:
		return "Unknown"
	}
}

// Explain renders the category and description of an error code on one line
func Explain(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return fmt.Sprintf("%s (%s): %s", code, GetErrorCategory(code), GetErrorDescription(code))
}
