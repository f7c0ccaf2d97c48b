package ir

import "fmt"

// Builder appends instructions to an insertion block of a function.
// Every instruction it creates is registered in the use-lists of its operands.
type Builder struct {
	fn    *Function
	block *BasicBlock
}

// NewBuilder creates a builder for fn with no insertion block
func NewBuilder(fn *Function) *Builder {
	return &Builder{fn: fn}
}

// Function returns the function being built
func (b *Builder) Function() *Function { return b.fn }

// SetInsertBlock moves the insertion point to the end of block
func (b *Builder) SetInsertBlock(block *BasicBlock) {
	b.block = block
}

// InsertBlock returns the current insertion block
func (b *Builder) InsertBlock() *BasicBlock { return b.block }

// Insert appends a fully formed instruction to the insertion block.
// Phis are kept together at the head of the block.
func (b *Builder) Insert(inst Instruction) {
	if b.block == nil {
		panic("BUG: builder has no insertion block")
	}
	if inst.IsTerminator() {
		panic(fmt.Sprintf("BUG: terminator %s inserted as an instruction", inst))
	}

	b.fn.assignID(inst)
	inst.setBlock(b.block)
	if res := inst.GetResult(); res != nil {
		res.DefInst = inst
		res.DefBlock = b.block
	}
	for _, op := range inst.GetOperands() {
		addUse(op, inst)
	}

	if _, ok := inst.(*PhiInstruction); ok {
		n := len(b.block.Phis())
		b.block.Instructions = append(b.block.Instructions[:n], append([]Instruction{inst}, b.block.Instructions[n:]...)...)
		return
	}
	b.block.Instructions = append(b.block.Instructions, inst)
}

// Const materializes an integer constant in the insertion block
func (b *Builder) Const(t Type, v int64, name string) *Value {
	if it, ok := t.(*IntType); ok {
		v = it.Wrap(v)
	}
	res := b.fn.NewValue(name, t)
	b.Insert(&ConstantInstruction{Result: res, Value: v})
	return res
}

// Binary emits an integer binary operation; the result has the type of left
func (b *Builder) Binary(op BinaryOp, left, right *Value, name string) *Value {
	res := b.fn.NewValue(name, left.Type)
	b.Insert(&BinaryInstruction{Result: res, Op: op, Left: left, Right: right})
	return res
}

// Compare emits a signed comparison producing an i1
func (b *Builder) Compare(pred Predicate, left, right *Value, name string) *Value {
	res := b.fn.NewValue(name, I1)
	b.Insert(&CompareInstruction{Result: res, Pred: pred, Left: left, Right: right})
	return res
}

// Phi emits an empty phi; incoming edges are added with AddIncoming
func (b *Builder) Phi(t Type, name string) *PhiInstruction {
	phi := &PhiInstruction{Result: b.fn.NewValue(name, t)}
	b.Insert(phi)
	return phi
}

// Jump terminates the insertion block with an unconditional branch
func (b *Builder) Jump(target *BasicBlock) *JumpTerminator {
	term := &JumpTerminator{Target: target}
	b.fn.SetTerminator(b.block, term)
	return term
}

// Branch terminates the insertion block with a conditional branch
func (b *Builder) Branch(cond *Value, ifTrue, ifFalse *BasicBlock) *BranchTerminator {
	term := &BranchTerminator{Condition: cond, TrueBlock: ifTrue, FalseBlock: ifFalse}
	b.fn.SetTerminator(b.block, term)
	return term
}

// Return terminates the insertion block; v may be nil
func (b *Builder) Return(v *Value) *ReturnTerminator {
	term := &ReturnTerminator{Value: v}
	b.fn.SetTerminator(b.block, term)
	return term
}
