package parser

import (
	"deopt/grammar"
	"deopt/internal/errors"
	"deopt/internal/ir"
)

// ParseResult contains the full parsing result including source positions
type ParseResult struct {
	File   *grammar.File
	Module *ir.Module
	Errors []errors.CompilerError

	functionAt map[*ir.Function]errors.Position
	blockAt    map[*ir.BasicBlock]errors.Position
}

// ParseSourceWithPositions parses and lowers source, keeping where each function and block was written
func ParseSourceWithPositions(path string, source string) *ParseResult {
	result := &ParseResult{
		functionAt: make(map[*ir.Function]errors.Position),
		blockAt:    make(map[*ir.BasicBlock]errors.Position),
	}

	file, err := parser.ParseString(path, source)
	if err != nil {
		result.Errors = append(result.Errors, syntaxError(err))
		return result
	}
	result.File = file

	version, errs := checkVersion(file.Version)
	result.Errors = append(result.Errors, errs...)

	module := &ir.Module{Version: version}
	seen := make(map[string]bool)
	for _, gf := range file.Functions {
		l, fn := lowerFunction(gf)
		result.Errors = append(result.Errors, l.errs...)
		if seen[fn.Name] {
			result.Errors = append(result.Errors, errors.DuplicateFunction(fn.Name, position(gf.Name.Pos)))
			continue
		}
		seen[fn.Name] = true
		module.Functions = append(module.Functions, fn)
		result.functionAt[fn] = position(gf.Name.Pos)
		for b, pos := range l.blockAt {
			result.blockAt[b] = pos
		}
	}
	result.Module = module

	return result
}

// FunctionPosition returns where fn's name was written
func (pr *ParseResult) FunctionPosition(fn *ir.Function) errors.Position {
	if pos, ok := pr.functionAt[fn]; ok {
		return pos
	}
	return errors.Position{Line: 1, Column: 1}
}

// BlockPosition returns where b's label was written
func (pr *ParseResult) BlockPosition(b *ir.BasicBlock) errors.Position {
	if pos, ok := pr.blockAt[b]; ok {
		return pos
	}
	return errors.Position{Line: 1, Column: 1}
}

// Check returns every diagnostic for the source. Verifier findings and warnings are only
// produced once the source parsed and lowered cleanly.
func (pr *ParseResult) Check() []errors.CompilerError {
	if len(pr.Errors) > 0 || pr.Module == nil {
		return pr.Errors
	}

	var diags []errors.CompilerError
	for _, fn := range pr.Module.Functions {
		pos := pr.FunctionPosition(fn)
		if err := ir.Verify(fn); err != nil {
			if verr, ok := err.(*ir.VerifyError); ok {
				for _, violation := range verr.Violations {
					diags = append(diags, errors.VerifierViolation(fn.Name, violation, pos))
				}
			} else {
				diags = append(diags, errors.VerifierViolation(fn.Name, err.Error(), pos))
			}
			continue
		}

		dom := ir.ComputeDominators(fn)
		for _, b := range fn.Blocks {
			if !dom.Reachable(b) {
				diags = append(diags, errors.UnreachableBlock(fn.Name, b.Label, pr.BlockPosition(b)))
			}
		}
	}
	return diags
}

// HasErrors reports whether any diagnostic is an error rather than a warning or note
func HasErrors(diags []errors.CompilerError) bool {
	for _, d := range diags {
		if d.Level == errors.Error {
			return true
		}
	}
	return false
}

// MulNotes returns a note for every function that still holds multiplications
func (pr *ParseResult) MulNotes() []errors.CompilerError {
	if pr.Module == nil {
		return nil
	}
	var notes []errors.CompilerError
	for _, fn := range pr.Module.Functions {
		if n := ir.CountMuls(fn); n > 0 {
			notes = append(notes, errors.MulExpansionNote(fn.Name, n, pr.FunctionPosition(fn)))
		}
	}
	return notes
}
