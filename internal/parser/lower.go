package parser

import (
	"sort"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"deopt/grammar"
	"deopt/internal/errors"
	"deopt/internal/ir"
)

// lowerer turns one grammar function into an ir.Function.
// Values are declared before any instruction is built so operands may refer forward;
// dominance is left to the verifier.
type lowerer struct {
	fn      *ir.Function
	values  map[string]*ir.Value
	results map[*grammar.Instruction]*ir.Value
	blocks  map[string]*ir.BasicBlock
	errs    []errors.CompilerError
	blockAt map[*ir.BasicBlock]errors.Position
}

func position(pos lexer.Position) errors.Position {
	return errors.Position{Line: pos.Line, Column: pos.Column, Offset: pos.Offset}
}

func lowerFunction(gf *grammar.Function) (*lowerer, *ir.Function) {
	l := &lowerer{
		values:  make(map[string]*ir.Value),
		results: make(map[*grammar.Instruction]*ir.Value),
		blocks:  make(map[string]*ir.BasicBlock),
		blockAt: make(map[*ir.BasicBlock]errors.Position),
	}

	var ret ir.Type
	if gf.Return != nil {
		ret = l.lookupType(gf.Return)
	}
	l.fn = ir.NewFunction(strings.TrimPrefix(gf.Name.Value, "@"), ret)

	for _, p := range gf.Params {
		name := strings.TrimPrefix(p.Name.Value, "%")
		t := l.lookupType(p.Type)
		if _, dup := l.values[name]; dup {
			l.errs = append(l.errs, errors.DuplicateValue(name, position(p.Name.Pos)))
			continue
		}
		l.values[name] = l.fn.AddParam(name, t)
	}

	// Blocks first, so branches and phis can name blocks further down.
	lowered := make([]*ir.BasicBlock, len(gf.Blocks))
	for i, gb := range gf.Blocks {
		label := gb.Label.Value
		if _, dup := l.blocks[label]; dup {
			l.errs = append(l.errs, errors.DuplicateLabel(label, position(gb.Label.Pos)))
			continue
		}
		b := l.fn.NewBlock(label)
		l.fn.AppendBlock(b)
		l.blocks[label] = b
		l.blockAt[b] = position(gb.Label.Pos)
		lowered[i] = b
	}

	// Then every result value.
	for i, gb := range gf.Blocks {
		if lowered[i] == nil {
			continue
		}
		for _, gi := range gb.Instructions {
			name := strings.TrimPrefix(gi.Result.Value, "%")
			t := l.resultType(gi)
			if _, dup := l.values[name]; dup {
				l.errs = append(l.errs, errors.DuplicateValue(name, position(gi.Result.Pos)))
				continue
			}
			v := l.fn.NewValue(name, t)
			l.values[name] = v
			l.results[gi] = v
		}
	}

	// Finally the instructions and terminators.
	bld := ir.NewBuilder(l.fn)
	for i, gb := range gf.Blocks {
		b := lowered[i]
		if b == nil {
			continue
		}
		bld.SetInsertBlock(b)
		seenNonPhi := false
		for _, gi := range gb.Instructions {
			if gi.Phi == nil {
				seenNonPhi = true
			} else if seenNonPhi {
				l.errs = append(l.errs, errors.MisplacedPhi(strings.TrimPrefix(gi.Result.Value, "%"), position(gi.Result.Pos)))
				continue
			}
			if inst := l.lowerInstruction(gi); inst != nil {
				bld.Insert(inst)
			}
		}
		if term := l.lowerTerminator(gb.Terminator); term != nil {
			l.fn.SetTerminator(b, term)
		}
	}

	return l, l.fn
}

func (l *lowerer) lookupType(ref *grammar.TypeRef) ir.Type {
	t, ok := ir.LookupType(ref.Name)
	if !ok {
		l.errs = append(l.errs, errors.UnknownType(ref.Name, position(ref.Pos)))
		return ir.I64
	}
	return t
}

// resultType is the type of the value an instruction defines, without reporting errors
func (l *lowerer) resultType(gi *grammar.Instruction) ir.Type {
	var ref *grammar.TypeRef
	switch {
	case gi.Compare != nil:
		return ir.I1
	case gi.Phi != nil:
		ref = gi.Phi.Type
	case gi.Const != nil:
		ref = gi.Const.Type
	case gi.Binary != nil:
		ref = gi.Binary.Type
	}
	if t, ok := ir.LookupType(ref.Name); ok {
		return t
	}
	return ir.I64
}

func (l *lowerer) lowerInstruction(gi *grammar.Instruction) ir.Instruction {
	res, ok := l.results[gi]
	if !ok {
		// Duplicate definition, already reported
		return nil
	}

	switch {
	case gi.Phi != nil:
		t := l.lookupType(gi.Phi.Type)
		phi := &ir.PhiInstruction{Result: res}
		for _, edge := range gi.Phi.Incoming {
			v := l.operand(edge.Value, t)
			b := l.block(edge.Block)
			if v == nil || b == nil {
				return nil
			}
			phi.Incoming = append(phi.Incoming, ir.PhiIncoming{Block: b, Value: v})
		}
		return phi

	case gi.Compare != nil:
		pred, ok := ir.LookupPredicate(gi.Compare.Pred.Value)
		if !ok {
			l.errs = append(l.errs, errors.UnknownPredicate(gi.Compare.Pred.Value, position(gi.Compare.Pred.Pos)))
			return nil
		}
		t := l.lookupType(gi.Compare.Type)
		left, right := l.operand(gi.Compare.Left, t), l.operand(gi.Compare.Right, t)
		if left == nil || right == nil {
			return nil
		}
		return &ir.CompareInstruction{Result: res, Pred: pred, Left: left, Right: right}

	case gi.Const != nil:
		t := l.lookupType(gi.Const.Type)
		op := gi.Const.Value
		if op.Int == nil {
			l.errs = append(l.errs, errors.SyntaxError("const requires an integer literal", position(op.Pos), len(*op.Local)))
			return nil
		}
		v := l.operand(op, t)
		if v == nil {
			return nil
		}
		return &ir.ConstantInstruction{Result: res, Value: v.Int}

	case gi.Binary != nil:
		op, ok := ir.LookupBinaryOp(gi.Binary.Op)
		if !ok {
			l.errs = append(l.errs, errors.SyntaxError("unknown operation "+gi.Binary.Op, position(gi.Pos), len(gi.Binary.Op)))
			return nil
		}
		t := l.lookupType(gi.Binary.Type)
		left, right := l.operand(gi.Binary.Left, t), l.operand(gi.Binary.Right, t)
		if left == nil || right == nil {
			return nil
		}
		return &ir.BinaryInstruction{Result: res, Op: op, Left: left, Right: right}
	}
	return nil
}

func (l *lowerer) lowerTerminator(gt *grammar.Terminator) ir.Terminator {
	switch {
	case gt.Ret != nil:
		if gt.Ret.Void {
			return &ir.ReturnTerminator{}
		}
		v := l.operand(gt.Ret.Value, l.lookupType(gt.Ret.Type))
		if v == nil {
			return nil
		}
		return &ir.ReturnTerminator{Value: v}

	case gt.Branch != nil:
		cond := l.operand(gt.Branch.Condition, ir.I1)
		ifTrue, ifFalse := l.block(gt.Branch.True), l.block(gt.Branch.False)
		if cond == nil || ifTrue == nil || ifFalse == nil {
			return nil
		}
		return &ir.BranchTerminator{Condition: cond, TrueBlock: ifTrue, FalseBlock: ifFalse}

	case gt.Jump != nil:
		target := l.block(gt.Jump.Target)
		if target == nil {
			return nil
		}
		return &ir.JumpTerminator{Target: target}
	}
	return nil
}

// operand resolves a named value or materializes an immediate of type t
func (l *lowerer) operand(op *grammar.Operand, t ir.Type) *ir.Value {
	if op.Local != nil {
		name := strings.TrimPrefix(*op.Local, "%")
		v, ok := l.values[name]
		if !ok {
			l.errs = append(l.errs, errors.UndefinedValue(name, position(op.Pos), l.valueNames()))
			return nil
		}
		return v
	}

	n, err := strconv.ParseInt(*op.Int, 10, 64)
	if err != nil {
		l.errs = append(l.errs, errors.InvalidInteger(*op.Int, position(op.Pos)))
		return nil
	}
	return ir.ConstInt(t, n)
}

func (l *lowerer) block(ref grammar.Label) *ir.BasicBlock {
	b, ok := l.blocks[ref.Value]
	if !ok {
		l.errs = append(l.errs, errors.UndefinedLabel(ref.Value, position(ref.Pos), l.labels()))
		return nil
	}
	return b
}

func (l *lowerer) valueNames() []string {
	names := make([]string, 0, len(l.values))
	for name := range l.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *lowerer) labels() []string {
	labels := make([]string, 0, len(l.blocks))
	for label := range l.blocks {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
