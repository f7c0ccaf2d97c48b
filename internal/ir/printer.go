package ir

import (
	"fmt"
	"strings"
)

// Printer provides pretty-printing for IR. Its output is accepted by the parser.
type Printer struct {
	indent    int
	output    strings.Builder
	showPreds bool
}

// NewPrinter creates a new IR printer
func NewPrinter() *Printer {
	return &Printer{indent: 0}
}

// WithPredecessors annotates every block label with its predecessor list
func (p *Printer) WithPredecessors() *Printer {
	p.showPreds = true
	return p
}

// Print returns the string representation of an IR module
func Print(module *Module) string {
	p := NewPrinter()
	p.printModule(module)
	return p.output.String()
}

// PrintFunction returns the string representation of a single function
func PrintFunction(fn *Function) string {
	p := NewPrinter()
	p.printFunction(fn)
	return p.output.String()
}

// Module prints a whole module with the printer's settings
func (p *Printer) Module(module *Module) string {
	p.output.Reset()
	p.printModule(module)
	return p.output.String()
}

// Helper methods

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

// printModule prints the version header and every function
func (p *Printer) printModule(module *Module) {
	if module.Version != "" {
		p.writeLine("version %q", module.Version)
		p.writeLine("")
	}
	for i, fn := range module.Functions {
		if i > 0 {
			p.writeLine("")
		}
		p.printFunction(fn)
	}
}

// printFunction prints an SSA function
func (p *Printer) printFunction(fn *Function) {
	params := make([]string, len(fn.Params))
	for i, param := range fn.Params {
		params[i] = fmt.Sprintf("%s %%%s", param.Type, param.Value.Name)
	}
	sig := fmt.Sprintf("func @%s(%s)", fn.Name, strings.Join(params, ", "))
	if fn.ReturnType != nil {
		sig += " -> " + fn.ReturnType.String()
	}
	p.writeLine("%s {", sig)

	for _, block := range fn.Blocks {
		p.printBasicBlock(block)
	}

	p.writeLine("}")
}

// printBasicBlock prints a basic block in IR form
func (p *Printer) printBasicBlock(block *BasicBlock) {
	if p.showPreds && len(block.Predecessors) > 0 {
		preds := make([]string, len(block.Predecessors))
		for i, pred := range block.Predecessors {
			preds[i] = pred.Label
		}
		p.writeLine("%s:  ; preds = %s", block.Label, strings.Join(preds, ", "))
	} else {
		p.writeLine("%s:", block.Label)
	}

	p.indent++
	for _, inst := range block.Instructions {
		p.writeLine("%s", formatInstruction(inst))
	}
	if block.Terminator != nil {
		p.writeLine("%s", formatInstruction(block.Terminator))
	}
	p.indent--
}

// formatInstruction renders one instruction in the textual form
func formatInstruction(inst Instruction) string {
	switch i := inst.(type) {
	case *PhiInstruction:
		inputs := make([]string, len(i.Incoming))
		for j, in := range i.Incoming {
			inputs[j] = fmt.Sprintf("[ %s, %s ]", in.Value, blockLabel(in.Block))
		}
		return fmt.Sprintf("%s = phi %s %s", i.Result, i.Result.Type, strings.Join(inputs, ", "))
	case *BinaryInstruction:
		return fmt.Sprintf("%s = %s %s %s, %s", i.Result, i.Op, i.Result.Type, i.Left, i.Right)
	case *CompareInstruction:
		return fmt.Sprintf("%s = icmp %s %s %s, %s", i.Result, i.Pred, i.Left.Type, i.Left, i.Right)
	case *ConstantInstruction:
		return fmt.Sprintf("%s = const %s %d", i.Result, i.Result.Type, i.Value)
	case *ReturnTerminator:
		if i.Value != nil {
			return fmt.Sprintf("ret %s %s", i.Value.Type, i.Value)
		}
		return "ret void"
	case *BranchTerminator:
		return fmt.Sprintf("br %s, %s, %s", i.Condition, blockLabel(i.TrueBlock), blockLabel(i.FalseBlock))
	case *JumpTerminator:
		return fmt.Sprintf("jmp %s", blockLabel(i.Target))
	default:
		return fmt.Sprintf("unknown<%T> %d", i, i.GetID())
	}
}

func blockLabel(b *BasicBlock) string {
	if b == nil {
		return "<nil>"
	}
	return b.Label
}
