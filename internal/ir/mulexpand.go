package ir

// MulExpansion replaces every integer multiplication with a loop of additions.
// For %r = mul T %a, %b in block B the pass produces:
//
//	B:          ...prefix...                         jmp B_diamondN
//	B_diamondN: %sign = icmp sle T 0, %a              br %sign, B_diamondE, B_diamondW
//	B_diamondW: %neg = const T -1
//	            %negstep = sub T 0, %b                jmp B_diamondS
//	B_diamondE: %pos = const T 1                      jmp B_diamondS
//	B_diamondS: %offset = phi T [ %neg, W ], [ %pos, E ]
//	            %addend = phi T [ %negstep, W ], [ %b, E ]
//	                                                  jmp B_forloopy
//	B_forloopy: %count = phi T [ 0, S ], [ %count.next, B_forloopy ]
//	            %accum = phi T [ 0, S ], [ %accum.next, B_forloopy ]
//	            %done = icmp eq T %count, %a
//	            %count.next = add T %count, %offset
//	            %accum.next = add T %accum, %addend   br %done, B_after, B_forloopy
//	B_after:    ...suffix, uses of %r read %accum...
//
// The exit test reads the phi, so a zero %a leaves with %accum == 0 and any other %a
// takes exactly |%a| back-edges. Stepping by -1 and adding -%b for a negative %a keeps
// the result equal to %a * %b under the width's modular arithmetic.
type MulExpansion struct {
	Reporter Reporter
}

func (m *MulExpansion) Name() string {
	return "Multiplication Expansion"
}

func (m *MulExpansion) Description() string {
	return "Replaces integer mul with a sign diamond and a repeated-addition loop"
}

// Placement asks the pipeline to run this pass before anything else
func (m *MulExpansion) Placement() Placement {
	return PlacementEarliest
}

// RunOnFunction rewrites every multiplication of fn in block order, then instruction
// order, and reports how many were rewritten. It returns true when fn changed.
func (m *MulExpansion) RunOnFunction(fn *Function) bool {
	rewritten := 0

	// fn.Blocks grows while we walk it: a rewrite inserts the diamond, the loop and the
	// "after" block right behind the host block, so the tail of the host block is
	// scanned when the walk reaches "after".
	for i := 0; i < len(fn.Blocks); i++ {
		for _, inst := range fn.Blocks[i].Instructions {
			site, ok := matchMul(inst)
			if !ok {
				continue
			}
			m.expand(fn, site)
			rewritten++
			break
		}
	}

	report := ExpansionReport{Function: fn.Name, Rewritten: rewritten}
	if m.Reporter != nil {
		m.Reporter.Report(report)
	}
	return report.Changed()
}

// mulSite is everything the rewrite needs, captured before any mutation
type mulSite struct {
	inst  *BinaryInstruction
	block *BasicBlock
	lhs   *Value
	rhs   *Value
	typ   Type
	uses  []*Use
}

func matchMul(inst Instruction) (mulSite, bool) {
	bin, ok := inst.(*BinaryInstruction)
	if !ok || bin.Op != OpMul || !IsInteger(bin.Result.Type) {
		return mulSite{}, false
	}
	return mulSite{
		inst:  bin,
		block: bin.Block,
		lhs:   bin.Left,
		rhs:   bin.Right,
		typ:   bin.Result.Type,
		uses:  append([]*Use(nil), bin.Result.Uses...),
	}, true
}

func (m *MulExpansion) expand(fn *Function, site mulSite) {
	host := site.block
	t := site.typ

	after := fn.SplitBlock(host, site.inst)

	north := fn.NewBlock(host.Label + "_diamondN")
	west := fn.NewBlock(host.Label + "_diamondW")
	east := fn.NewBlock(host.Label + "_diamondE")
	south := fn.NewBlock(host.Label + "_diamondS")
	loop := fn.NewBlock(host.Label + "_forloopy")
	prev := host
	for _, b := range []*BasicBlock{north, west, east, south, loop} {
		fn.InsertBlockAfter(prev, b)
		prev = b
	}

	bld := NewBuilder(fn)

	// Sign diamond. Zero counts as non-negative.
	bld.SetInsertBlock(west)
	negOne := bld.Const(t, -1, "neg")
	negStep := bld.Binary(OpSub, ConstInt(t, 0), site.rhs, "negstep")
	bld.Jump(south)

	bld.SetInsertBlock(east)
	posOne := bld.Const(t, 1, "pos")
	bld.Jump(south)

	bld.SetInsertBlock(north)
	sign := bld.Compare(PredSLE, ConstInt(t, 0), site.lhs, "sign")
	bld.Branch(sign, east, west)

	// south.Predecessors is [west, east]; the phis follow that order.
	bld.SetInsertBlock(south)
	offset := bld.Phi(t, "offset")
	offset.AddIncoming(negOne, west)
	offset.AddIncoming(posOne, east)
	addend := bld.Phi(t, "addend")
	addend.AddIncoming(negStep, west)
	addend.AddIncoming(site.rhs, east)
	bld.Jump(loop)

	// Accumulation loop, a single self-looping block.
	bld.SetInsertBlock(loop)
	count := bld.Phi(t, "count")
	accum := bld.Phi(t, "accum")
	done := bld.Compare(PredEQ, count.Result, site.lhs, "done")
	nextCount := bld.Binary(OpAdd, count.Result, offset.Result, "count.next")
	nextAccum := bld.Binary(OpAdd, accum.Result, addend.Result, "accum.next")
	bld.Branch(done, after, loop)
	count.AddIncoming(ConstInt(t, 0), south)
	count.AddIncoming(nextCount, loop)
	accum.AddIncoming(ConstInt(t, 0), south)
	accum.AddIncoming(nextAccum, loop)

	// Enter the diamond instead of falling into "after"; the loop is now its only predecessor.
	fn.SetTerminator(host, &JumpTerminator{Target: north})

	// Only the uses captured before the rewrite read the product; EraseInstruction
	// panics if anything else picked it up in between.
	fn.ReplaceUses(site.inst.Result, accum.Result, site.uses)
	fn.EraseInstruction(site.inst)
}
