package ir

// add1: returns x + 1
func newAddFunction() *Function {
	fn := NewFunction("add1", I32)
	x := fn.AddParam("x", I32)
	entry := fn.NewBlock("entry")
	fn.AppendBlock(entry)

	b := NewBuilder(fn)
	b.SetInsertBlock(entry)
	y := b.Binary(OpAdd, x, ConstInt(I32, 1), "y")
	b.Return(y)
	return fn
}

// pick: returns -x for negative x, x otherwise, through a diamond joined by a phi
func newDiamondFunction() (*Function, *PhiInstruction) {
	fn := NewFunction("pick", I32)
	x := fn.AddParam("x", I32)
	entry := fn.NewBlock("entry")
	left := fn.NewBlock("left")
	right := fn.NewBlock("right")
	join := fn.NewBlock("join")
	for _, blk := range []*BasicBlock{entry, left, right, join} {
		fn.AppendBlock(blk)
	}

	b := NewBuilder(fn)
	b.SetInsertBlock(entry)
	neg := b.Compare(PredSLT, x, ConstInt(I32, 0), "neg")
	b.Branch(neg, left, right)

	b.SetInsertBlock(left)
	abs := b.Binary(OpSub, ConstInt(I32, 0), x, "abs")
	b.Jump(join)

	b.SetInsertBlock(right)
	b.Jump(join)

	b.SetInsertBlock(join)
	phi := b.Phi(I32, "r")
	phi.AddIncoming(abs, left)
	phi.AddIncoming(x, right)
	b.Return(phi.Result)
	return fn, phi
}
