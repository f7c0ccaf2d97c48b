package ir

import (
	"fmt"
	"strings"
)

// VerifyError lists every structural or SSA violation found in one function
type VerifyError struct {
	Function   string
	Violations []string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("func %s: %d violation(s):\n  %s",
		e.Function, len(e.Violations), strings.Join(e.Violations, "\n  "))
}

// VerifyModule verifies every function and returns the first failure
func VerifyModule(module *Module) error {
	for _, fn := range module.Functions {
		if err := Verify(fn); err != nil {
			return err
		}
	}
	return nil
}

// Verify checks the CFG and SSA invariants of fn: every block is terminated, edge lists
// are symmetric, phis sit at block heads and have exactly one entry per predecessor,
// use-lists match operands, and every definition dominates its uses.
func Verify(fn *Function) error {
	var errs []string
	add := func(format string, args ...interface{}) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	if len(fn.Blocks) == 0 {
		add("no blocks")
		return &VerifyError{Function: fn.Name, Violations: errs}
	}
	if entry := fn.Entry(); len(entry.Predecessors) != 0 {
		add("entry block %s has %d predecessors, want 0", entry, len(entry.Predecessors))
	}

	blockSet := make(map[*BasicBlock]bool, len(fn.Blocks))
	labels := make(map[string]bool, len(fn.Blocks))
	for _, b := range fn.Blocks {
		blockSet[b] = true
		if labels[b.Label] {
			add("duplicate block label %s", b.Label)
		}
		labels[b.Label] = true
	}

	// Values that are legitimately available in this function, and the position of their definition.
	type site struct {
		block *BasicBlock
		index int
	}
	defs := make(map[*Value]site)
	users := make(map[Instruction]bool)
	for _, param := range fn.Params {
		defs[param.Value] = site{block: nil, index: -1}
	}
	for _, b := range fn.Blocks {
		for i, inst := range b.Instructions {
			users[inst] = true
			if res := inst.GetResult(); res != nil {
				if _, dup := defs[res]; dup {
					add("%s: value %s defined more than once", b, res)
				}
				defs[res] = site{block: b, index: i}
			}
		}
		if b.Terminator != nil {
			users[b.Terminator] = true
		}
	}

	for _, b := range fn.Blocks {
		if b.Parent != fn {
			add("%s: parent pointer does not point to the function", b)
		}

		// Instructions
		seenNonPhi := false
		for _, inst := range b.Instructions {
			if inst.GetBlock() != b {
				add("%s: %s has block pointer %s", b, inst, blockLabel(inst.GetBlock()))
			}
			if inst.IsTerminator() {
				add("%s: terminator %s in instruction list", b, inst)
			}
			if _, isPhi := inst.(*PhiInstruction); isPhi {
				if seenNonPhi {
					add("%s: phi %s is not at the head of the block", b, inst)
				}
			} else {
				seenNonPhi = true
			}
			if res := inst.GetResult(); res != nil && (res.DefInst != inst || res.DefBlock != b) {
				add("%s: %s does not record its own definition", b, inst)
			}
			verifyTypes(inst, add)
		}

		// Terminator and edges
		if b.Terminator == nil {
			add("%s: block has no terminator", b)
			continue
		}
		if b.Terminator.GetBlock() != b {
			add("%s: terminator has block pointer %s", b, blockLabel(b.Terminator.GetBlock()))
		}
		verifyTypes(b.Terminator, add)
		if ret, ok := b.Terminator.(*ReturnTerminator); ok {
			switch {
			case fn.ReturnType == nil && ret.Value != nil:
				add("%s: returns a value from a function without result", b)
			case fn.ReturnType != nil && ret.Value == nil:
				add("%s: missing return value", b)
			case fn.ReturnType != nil && !SameType(fn.ReturnType, ret.Value.Type):
				add("%s: returns %s, want %s", b, ret.Value.Type, fn.ReturnType)
			}
		}

		succs := b.Terminator.GetSuccessors()
		if !sameBlocks(succs, b.Successors) {
			add("%s: successor list %v does not match terminator %v", b, b.Successors, succs)
		}
		for _, succ := range succs {
			if succ == nil || !blockSet[succ] {
				add("%s: successor %s not in function", b, blockLabel(succ))
				continue
			}
			if countBlock(succ.Predecessors, b) != countBlock(succs, succ) {
				add("%s: successor %s lists it %d time(s) as predecessor, want %d",
					b, succ, countBlock(succ.Predecessors, b), countBlock(succs, succ))
			}
		}
		for _, pred := range b.Predecessors {
			if !blockSet[pred] {
				add("%s: predecessor %s not in function", b, pred)
				continue
			}
			if countBlock(pred.Successors, b) == 0 {
				add("%s: predecessor %s does not branch here", b, pred)
			}
		}

		// Phi incoming lists against the actual predecessor set
		for _, phi := range b.Phis() {
			if len(phi.Incoming) != len(b.Predecessors) {
				add("%s: phi %s has %d incoming values but block has %d predecessors",
					b, phi.Result, len(phi.Incoming), len(b.Predecessors))
			}
			for _, in := range phi.Incoming {
				if countIncoming(phi, in.Block) != countBlock(b.Predecessors, in.Block) {
					add("%s: phi %s has incoming block %s which is not a matching predecessor",
						b, phi.Result, blockLabel(in.Block))
				}
			}
			for _, pred := range b.Predecessors {
				if countIncoming(phi, pred) == 0 {
					add("%s: phi %s has no incoming value for predecessor %s", b, phi.Result, pred)
				}
			}
			// An edge listed twice (br %c, X, X) must carry one value
			for i, in := range phi.Incoming {
				for _, earlier := range phi.Incoming[:i] {
					if earlier.Block == in.Block && !sameValue(earlier.Value, in.Value) {
						add("%s: phi %s has conflicting values %s and %s for predecessor %s",
							b, phi.Result, earlier.Value, in.Value, blockLabel(in.Block))
						break
					}
				}
			}
		}
	}

	// Operands and use-lists
	verifyOperands := func(inst Instruction) {
		b := inst.GetBlock()
		for _, op := range inst.GetOperands() {
			if op == nil {
				add("%s: %s has a nil operand", b, inst)
				continue
			}
			if op.Const {
				continue
			}
			if _, ok := defs[op]; !ok {
				add("%s: %s uses %s which is not defined in the function", b, inst, op)
				continue
			}
			slots := 0
			for _, other := range inst.GetOperands() {
				if other == op {
					slots++
				}
			}
			if n := countUses(op, inst); n != slots {
				add("%s: %s reads %s %d time(s) but the use-list records %d", b, inst, op, slots, n)
			}
		}
	}
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			verifyOperands(inst)
		}
		if b.Terminator != nil {
			verifyOperands(b.Terminator)
		}
	}
	for v := range defs {
		for _, u := range v.Uses {
			if !users[u.User] {
				add("value %s has a use by %s which is not in the function", v, u.User)
			}
		}
	}

	if len(errs) > 0 {
		return &VerifyError{Function: fn.Name, Violations: errs}
	}

	// Dominance: only meaningful once the CFG itself is sound.
	dom := ComputeDominators(fn)
	dominatesUse := func(def site, useBlock *BasicBlock, useIndex int) bool {
		if def.block == nil {
			return true
		}
		if def.block == useBlock {
			return def.index < useIndex
		}
		return dom.Dominates(def.block, useBlock)
	}
	for _, b := range fn.Blocks {
		if !dom.Reachable(b) {
			continue
		}
		for i, inst := range b.Instructions {
			if phi, ok := inst.(*PhiInstruction); ok {
				for _, in := range phi.Incoming {
					if in.Value.Const || !dom.Reachable(in.Block) {
						continue
					}
					if !dominatesUse(defs[in.Value], in.Block, len(in.Block.Instructions)) {
						add("%s: phi %s incoming %s from %s is not dominated by its definition",
							b, phi.Result, in.Value, in.Block)
					}
				}
				continue
			}
			for _, op := range inst.GetOperands() {
				if !op.Const && !dominatesUse(defs[op], b, i) {
					add("%s: %s uses %s before it is defined on every path", b, inst, op)
				}
			}
		}
		for _, op := range b.Terminator.GetOperands() {
			if !op.Const && !dominatesUse(defs[op], b, len(b.Instructions)) {
				add("%s: %s uses %s before it is defined on every path", b, b.Terminator, op)
			}
		}
	}

	if len(errs) > 0 {
		return &VerifyError{Function: fn.Name, Violations: errs}
	}
	return nil
}

func verifyTypes(inst Instruction, add func(string, ...interface{})) {
	b := inst.GetBlock()
	switch i := inst.(type) {
	case *BinaryInstruction:
		if i.Left == nil || i.Right == nil {
			return
		}
		if !IsInteger(i.Result.Type) || !SameType(i.Left.Type, i.Result.Type) || !SameType(i.Right.Type, i.Result.Type) {
			add("%s: %s mixes operand types %s and %s", b, i, i.Left.Type, i.Right.Type)
		}
	case *CompareInstruction:
		if i.Left == nil || i.Right == nil {
			return
		}
		if !SameType(i.Left.Type, i.Right.Type) {
			add("%s: %s compares %s with %s", b, i, i.Left.Type, i.Right.Type)
		}
		if !SameType(i.Result.Type, I1) {
			add("%s: %s must produce i1", b, i)
		}
	case *PhiInstruction:
		for _, in := range i.Incoming {
			if in.Value != nil && !SameType(in.Value.Type, i.Result.Type) {
				add("%s: phi %s receives %s of type %s", b, i.Result, in.Value, in.Value.Type)
			}
		}
	case *BranchTerminator:
		if i.Condition != nil && !SameType(i.Condition.Type, I1) {
			add("%s: branch condition %s is %s, want i1", b, i.Condition, i.Condition.Type)
		}
	}
}

func sameBlocks(a, b []*BasicBlock) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func countBlock(blocks []*BasicBlock, b *BasicBlock) int {
	n := 0
	for _, x := range blocks {
		if x == b {
			n++
		}
	}
	return n
}

func countIncoming(phi *PhiInstruction, b *BasicBlock) int {
	n := 0
	for _, in := range phi.Incoming {
		if in.Block == b {
			n++
		}
	}
	return n
}

// sameValue reports whether a and b are one definition or equal constants
func sameValue(a, b *Value) bool {
	if a == b {
		return true
	}
	return a != nil && b != nil && a.Const && b.Const && a.Int == b.Int && SameType(a.Type, b.Type)
}

func countUses(v *Value, user Instruction) int {
	n := 0
	for _, u := range v.Uses {
		if u.User == user {
			n++
		}
	}
	return n
}
