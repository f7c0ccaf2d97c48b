package ir

import (
	"fmt"
	"strconv"
)

// IR types and structures for the deopt toolchain
// This IR uses Static Single Assignment (SSA) form with basic blocks and an explicit control flow graph

// Module represents a parsed compilation unit
type Module struct {
	Version   string
	Functions []*Function
}

// Function represents a function in IR form
type Function struct {
	Name       string
	Params     []*Parameter
	ReturnType Type
	Blocks     []*BasicBlock

	nextValueID int
	nextInstID  int
	names       map[string]bool
	labels      map[string]bool
}

// BasicBlock represents a sequence of instructions ending in exactly one terminator.
// Predecessors and Successors are maintained eagerly by SetTerminator and SplitBlock.
type BasicBlock struct {
	Label        string
	Instructions []Instruction
	Terminator   Terminator
	Predecessors []*BasicBlock
	Successors   []*BasicBlock
	Parent       *Function
}

// Value represents a value in SSA form - each value has exactly one definition.
// Immediate integer constants have Const set and no defining instruction.
type Value struct {
	ID       int
	Name     string
	Type     Type
	DefBlock *BasicBlock
	DefInst  Instruction
	Uses     []*Use
	Const    bool
	Int      int64
}

// Use represents one operand slot of User that reads Value
type Use struct {
	Value *Value
	User  Instruction
}

// Block returns the block currently holding the user
func (u *Use) Block() *BasicBlock { return u.User.GetBlock() }

// Parameter represents a function parameter
type Parameter struct {
	Name  string
	Type  Type
	Value *Value
}

// Instructions in SSA form

type Instruction interface {
	GetID() int
	GetResult() *Value
	GetOperands() []*Value
	GetBlock() *BasicBlock
	IsTerminator() bool
	String() string

	setID(id int)
	setBlock(b *BasicBlock)
	replaceOperand(old, new *Value)
}

// Terminators end basic blocks
type Terminator interface {
	Instruction
	GetSuccessors() []*BasicBlock
	replaceSuccessor(old, new *BasicBlock)
}

// BinaryOp names an integer binary operation
type BinaryOp string

const (
	OpAdd BinaryOp = "add"
	OpSub BinaryOp = "sub"
	OpMul BinaryOp = "mul"
	OpAnd BinaryOp = "and"
	OpOr  BinaryOp = "or"
	OpXor BinaryOp = "xor"
)

// Predicate names an integer comparison. All orderings are signed.
type Predicate string

const (
	PredEQ  Predicate = "eq"
	PredNE  Predicate = "ne"
	PredSLT Predicate = "slt"
	PredSLE Predicate = "sle"
	PredSGT Predicate = "sgt"
	PredSGE Predicate = "sge"
)

// Core SSA Instructions

type PhiInstruction struct {
	ID       int
	Result   *Value
	Block    *BasicBlock
	Incoming []PhiIncoming
}

// PhiIncoming is the value flowing into a phi along the edge from Block
type PhiIncoming struct {
	Block *BasicBlock
	Value *Value
}

type BinaryInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Op     BinaryOp
	Left   *Value
	Right  *Value
}

type CompareInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Pred   Predicate
	Left   *Value
	Right  *Value
}

type ConstantInstruction struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Value  int64
}

// Terminators

type ReturnTerminator struct {
	ID    int
	Block *BasicBlock
	Value *Value
}

type BranchTerminator struct {
	ID         int
	Block      *BasicBlock
	Condition  *Value
	TrueBlock  *BasicBlock
	FalseBlock *BasicBlock
}

type JumpTerminator struct {
	ID     int
	Block  *BasicBlock
	Target *BasicBlock
}

// Implementation of interfaces

func (p *PhiInstruction) GetID() int { return p.ID }
func (p *PhiInstruction) GetResult() *Value { return p.Result }
func (p *PhiInstruction) GetOperands() []*Value {
	ops := make([]*Value, 0, len(p.Incoming))
	for _, in := range p.Incoming {
		ops = append(ops, in.Value)
	}
	return ops
}
func (p *PhiInstruction) GetBlock() *BasicBlock { return p.Block }
func (p *PhiInstruction) IsTerminator() bool { return false }
func (p *PhiInstruction) setID(id int) { p.ID = id }
func (p *PhiInstruction) setBlock(b *BasicBlock) { p.Block = b }
func (p *PhiInstruction) String() string { return formatInstruction(p) }
func (p *PhiInstruction) replaceOperand(old, new *Value) {
	for i := range p.Incoming {
		if p.Incoming[i].Value == old {
			p.Incoming[i].Value = new
		}
	}
}

// AddIncoming appends the value arriving along the edge from block
func (p *PhiInstruction) AddIncoming(v *Value, block *BasicBlock) {
	p.Incoming = append(p.Incoming, PhiIncoming{Block: block, Value: v})
	addUse(v, p)
}

// IncomingFor returns the value arriving from block, or nil
func (p *PhiInstruction) IncomingFor(block *BasicBlock) *Value {
	for _, in := range p.Incoming {
		if in.Block == block {
			return in.Value
		}
	}
	return nil
}

func (b *BinaryInstruction) GetID() int { return b.ID }
func (b *BinaryInstruction) GetResult() *Value { return b.Result }
func (b *BinaryInstruction) GetOperands() []*Value { return []*Value{b.Left, b.Right} }
func (b *BinaryInstruction) GetBlock() *BasicBlock { return b.Block }
func (b *BinaryInstruction) IsTerminator() bool { return false }
func (b *BinaryInstruction) setID(id int) { b.ID = id }
func (b *BinaryInstruction) setBlock(bb *BasicBlock) { b.Block = bb }
func (b *BinaryInstruction) String() string { return formatInstruction(b) }
func (b *BinaryInstruction) replaceOperand(old, new *Value) {
	if b.Left == old {
		b.Left = new
	}
	if b.Right == old {
		b.Right = new
	}
}

func (c *CompareInstruction) GetID() int { return c.ID }
func (c *CompareInstruction) GetResult() *Value { return c.Result }
func (c *CompareInstruction) GetOperands() []*Value { return []*Value{c.Left, c.Right} }
func (c *CompareInstruction) GetBlock() *BasicBlock { return c.Block }
func (c *CompareInstruction) IsTerminator() bool { return false }
func (c *CompareInstruction) setID(id int) { c.ID = id }
func (c *CompareInstruction) setBlock(bb *BasicBlock) { c.Block = bb }
func (c *CompareInstruction) String() string { return formatInstruction(c) }
func (c *CompareInstruction) replaceOperand(old, new *Value) {
	if c.Left == old {
		c.Left = new
	}
	if c.Right == old {
		c.Right = new
	}
}

func (c *ConstantInstruction) GetID() int { return c.ID }
func (c *ConstantInstruction) GetResult() *Value { return c.Result }
func (c *ConstantInstruction) GetOperands() []*Value { return []*Value{} }
func (c *ConstantInstruction) GetBlock() *BasicBlock { return c.Block }
func (c *ConstantInstruction) IsTerminator() bool { return false }
func (c *ConstantInstruction) setID(id int) { c.ID = id }
func (c *ConstantInstruction) setBlock(bb *BasicBlock) { c.Block = bb }
func (c *ConstantInstruction) String() string { return formatInstruction(c) }
func (c *ConstantInstruction) replaceOperand(_, _ *Value)  {}

// Terminator implementations

func (r *ReturnTerminator) GetID() int { return r.ID }
func (r *ReturnTerminator) GetResult() *Value { return nil }
func (r *ReturnTerminator) GetOperands() []*Value {
	if r.Value != nil {
		return []*Value{r.Value}
	}
	return []*Value{}
}
func (r *ReturnTerminator) GetBlock() *BasicBlock { return r.Block }
func (r *ReturnTerminator) IsTerminator() bool { return true }
func (r *ReturnTerminator) GetSuccessors() []*BasicBlock { return []*BasicBlock{} }
func (r *ReturnTerminator) setID(id int) { r.ID = id }
func (r *ReturnTerminator) setBlock(b *BasicBlock) { r.Block = b }
func (r *ReturnTerminator) String() string { return formatInstruction(r) }
func (r *ReturnTerminator) replaceSuccessor(_, _ *BasicBlock)    {}
func (r *ReturnTerminator) replaceOperand(old, new *Value) {
	if r.Value == old {
		r.Value = new
	}
}

func (b *BranchTerminator) GetID() int { return b.ID }
func (b *BranchTerminator) GetResult() *Value { return nil }
func (b *BranchTerminator) GetOperands() []*Value { return []*Value{b.Condition} }
func (b *BranchTerminator) GetBlock() *BasicBlock { return b.Block }
func (b *BranchTerminator) IsTerminator() bool { return true }
func (b *BranchTerminator) GetSuccessors() []*BasicBlock {
	return []*BasicBlock{b.TrueBlock, b.FalseBlock}
}
func (b *BranchTerminator) setID(id int) { b.ID = id }
func (b *BranchTerminator) setBlock(bb *BasicBlock) { b.Block = bb }
func (b *BranchTerminator) String() string { return formatInstruction(b) }
func (b *BranchTerminator) replaceOperand(old, new *Value) {
	if b.Condition == old {
		b.Condition = new
	}
}
func (b *BranchTerminator) replaceSuccessor(old, new *BasicBlock) {
	if b.TrueBlock == old {
		b.TrueBlock = new
	}
	if b.FalseBlock == old {
		b.FalseBlock = new
	}
}

func (j *JumpTerminator) GetID() int { return j.ID }
func (j *JumpTerminator) GetResult() *Value { return nil }
func (j *JumpTerminator) GetOperands() []*Value { return []*Value{} }
func (j *JumpTerminator) GetBlock() *BasicBlock { return j.Block }
func (j *JumpTerminator) IsTerminator() bool { return true }
func (j *JumpTerminator) GetSuccessors() []*BasicBlock { return []*BasicBlock{j.Target} }
func (j *JumpTerminator) setID(id int) { j.ID = id }
func (j *JumpTerminator) setBlock(b *BasicBlock) { j.Block = b }
func (j *JumpTerminator) String() string { return formatInstruction(j) }
func (j *JumpTerminator) replaceOperand(_, _ *Value)     {}
func (j *JumpTerminator) replaceSuccessor(old, new *BasicBlock) {
	if j.Target == old {
		j.Target = new
	}
}

// Values

// ConstInt returns an immediate integer operand of type t, wrapped to its width
func ConstInt(t Type, v int64) *Value {
	if it, ok := t.(*IntType); ok {
		v = it.Wrap(v)
	}
	return &Value{Type: t, Const: true, Int: v}
}

// IsConstant reports whether v is known at compile time, either as an
// immediate or as the result of a ConstantInstruction.
func (v *Value) IsConstant() (int64, bool) {
	if v.Const {
		return v.Int, true
	}
	if c, ok := v.DefInst.(*ConstantInstruction); ok {
		return c.Value, true
	}
	return 0, false
}

func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	if v.Const {
		return strconv.FormatInt(v.Int, 10)
	}
	return "%" + v.Name
}

// Types

type Type interface {
	String() string
}

// IntType is a two's complement integer of Bits width
type IntType struct {
	Bits int
}

func (i *IntType) String() string { return fmt.Sprintf("i%d", i.Bits) }

// Wrap reduces v to the type's width using modular arithmetic and sign extension.
// i1 values are normalized to 0 or 1.
func (i *IntType) Wrap(v int64) int64 {
	switch {
	case i.Bits >= 64:
		return v
	case i.Bits == 1:
		return v & 1
	}
	shift := 64 - uint(i.Bits)
	return (v << shift) >> shift
}

// Min and Max return the signed range of the type
func (i *IntType) Min() int64 {
	if i.Bits == 1 {
		return 0
	}
	return -1 << (uint(i.Bits) - 1)
}

func (i *IntType) Max() int64 {
	if i.Bits == 1 {
		return 1
	}
	return 1<<(uint(i.Bits)-1) - 1
}

var (
	I1  = &IntType{Bits: 1}
	I8  = &IntType{Bits: 8}
	I16 = &IntType{Bits: 16}
	I32 = &IntType{Bits: 32}
	I64 = &IntType{Bits: 64}
)

// LookupType maps a type name from the textual form to a Type
func LookupType(name string) (Type, bool) {
	switch name {
	case "i1":
		return I1, true
	case "i8":
		return I8, true
	case "i16":
		return I16, true
	case "i32":
		return I32, true
	case "i64":
		return I64, true
	}
	return nil, false
}

// SameType reports whether a and b denote the same type
func SameType(a, b Type) bool {
	ai, aok := a.(*IntType)
	bi, bok := b.(*IntType)
	if aok && bok {
		return ai.Bits == bi.Bits
	}
	return a == b
}

// IsInteger reports whether t is an integer type
func IsInteger(t Type) bool {
	_, ok := t.(*IntType)
	return ok
}
