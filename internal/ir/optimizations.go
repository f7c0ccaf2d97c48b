package ir

// This file contains the pass pipeline and the function-level passes that run on the IR.
// Multiplication expansion asks to run first; the cleanup passes may run after it.

import (
	"sort"

	"github.com/tliron/commonlog"
)

var pipelineLog = commonlog.GetLogger("deopt.pipeline")

// Placement is an ordering hint a pass gives to the pipeline
type Placement int

const (
	PlacementEarliest Placement = iota
	PlacementDefault
	PlacementLast
)

func (p Placement) String() string {
	switch p {
	case PlacementEarliest:
		return "earliest"
	case PlacementLast:
		return "last"
	default:
		return "default"
	}
}

// Pass represents a single function-level transformation
type Pass interface {
	Name() string
	Description() string
	Placement() Placement
	RunOnFunction(fn *Function) bool // Returns true if changes were made
}

// OptimizationPipeline manages the sequence of passes
type OptimizationPipeline struct {
	passes []Pass
}

// NewOptimizationPipeline creates a pipeline with multiplication expansion followed by cleanup passes
func NewOptimizationPipeline(reporter Reporter) *OptimizationPipeline {
	pipeline := &OptimizationPipeline{}

	pipeline.AddPass(&ConstantFolding{})
	pipeline.AddPass(&DeadCodeElimination{})
	pipeline.AddPass(&MulExpansion{Reporter: reporter})

	return pipeline
}

// NewExpansionPipeline creates a pipeline that only expands multiplications
func NewExpansionPipeline(reporter Reporter) *OptimizationPipeline {
	pipeline := &OptimizationPipeline{}
	pipeline.AddPass(&MulExpansion{Reporter: reporter})
	return pipeline
}

// AddPass adds a pass, keeping passes ordered by placement and then by insertion
func (p *OptimizationPipeline) AddPass(pass Pass) {
	p.passes = append(p.passes, pass)
	sort.SliceStable(p.passes, func(i, j int) bool {
		return p.passes[i].Placement() < p.passes[j].Placement()
	})
}

// Passes returns the passes in execution order
func (p *OptimizationPipeline) Passes() []Pass {
	return append([]Pass(nil), p.passes...)
}

// Run executes every pass on every function of the module and reports whether anything changed
func (p *OptimizationPipeline) Run(module *Module) bool {
	pipelineLog.Debugf("running %d passes over %d functions", len(p.passes), len(module.Functions))

	changed := false
	for _, pass := range p.passes {
		passChanged := false
		for _, fn := range module.Functions {
			if pass.RunOnFunction(fn) {
				passChanged = true
			}
		}
		if passChanged {
			pipelineLog.Infof("%s: applied", pass.Name())
			changed = true
		} else {
			pipelineLog.Debugf("%s: no changes needed", pass.Name())
		}
	}
	return changed
}

// ConstantFolding evaluates operations on constants at compile time
type ConstantFolding struct{}

func (cf *ConstantFolding) Name() string {
	return "Constant Folding"
}

func (cf *ConstantFolding) Description() string {
	return "Evaluates constant expressions at compile time and replaces them with constants"
}

func (cf *ConstantFolding) Placement() Placement {
	return PlacementDefault
}

func (cf *ConstantFolding) RunOnFunction(fn *Function) bool {
	changed := false

	for _, block := range fn.Blocks {
		for i, inst := range block.Instructions {
			if folded := cf.foldInstruction(inst); folded != nil {
				for _, op := range inst.GetOperands() {
					removeUse(op, inst)
				}
				folded.Result.DefInst = folded
				block.Instructions[i] = folded
				changed = true
			}
		}
	}

	return changed
}

// foldInstruction returns the constant replacing inst, or nil when inst cannot be folded
func (cf *ConstantFolding) foldInstruction(inst Instruction) *ConstantInstruction {
	var left, right *Value
	switch i := inst.(type) {
	case *BinaryInstruction:
		left, right = i.Left, i.Right
	case *CompareInstruction:
		left, right = i.Left, i.Right
	default:
		return nil
	}

	a, aok := left.IsConstant()
	b, bok := right.IsConstant()
	if !aok || !bok {
		return nil
	}

	var result int64
	switch i := inst.(type) {
	case *BinaryInstruction:
		t, ok := i.Result.Type.(*IntType)
		if !ok {
			return nil
		}
		r, err := EvalBinary(i.Op, t, a, b)
		if err != nil {
			return nil
		}
		result = r
	case *CompareInstruction:
		r, err := EvalCompare(i.Pred, a, b)
		if err != nil {
			return nil
		}
		if r {
			result = 1
		}
	}

	return &ConstantInstruction{
		ID:     inst.GetID(),
		Result: inst.GetResult(),
		Block:  inst.GetBlock(),
		Value:  result,
	}
}

// DeadCodeElimination removes unreachable code and unused values
type DeadCodeElimination struct{}

func (dce *DeadCodeElimination) Name() string {
	return "Dead Code Elimination"
}

func (dce *DeadCodeElimination) Description() string {
	return "Removes unreachable basic blocks and unused instructions"
}

func (dce *DeadCodeElimination) Placement() Placement {
	return PlacementLast
}

func (dce *DeadCodeElimination) RunOnFunction(fn *Function) bool {
	changed := false
	if dce.eliminateDeadBlocks(fn) {
		changed = true
	}
	if dce.eliminateDeadInstructions(fn) {
		changed = true
	}
	return changed
}

// eliminateDeadBlocks removes unreachable basic blocks using reachability analysis
func (dce *DeadCodeElimination) eliminateDeadBlocks(fn *Function) bool {
	if len(fn.Blocks) == 0 {
		return false
	}

	reachable := make(map[*BasicBlock]bool)
	dce.markReachable(fn.Blocks[0], reachable)

	var dead []*BasicBlock
	for _, block := range fn.Blocks {
		if !reachable[block] {
			dead = append(dead, block)
		}
	}

	for _, block := range dead {
		for _, inst := range block.Instructions {
			for _, op := range inst.GetOperands() {
				removeUse(op, inst)
			}
		}
		fn.RemoveBlock(block)
	}

	return len(dead) > 0
}

// markReachable recursively marks all blocks reachable from the given block
func (dce *DeadCodeElimination) markReachable(block *BasicBlock, reachable map[*BasicBlock]bool) {
	if reachable[block] {
		return
	}

	reachable[block] = true
	for _, succ := range block.Successors {
		dce.markReachable(succ, reachable)
	}
}

// eliminateDeadInstructions removes pure instructions whose results are never used
func (dce *DeadCodeElimination) eliminateDeadInstructions(fn *Function) bool {
	changed := false

	for again := true; again; {
		again = false
		for _, block := range fn.Blocks {
			for _, inst := range append([]Instruction(nil), block.Instructions...) {
				if res := inst.GetResult(); res != nil && len(res.Uses) == 0 && IsPure(inst) {
					fn.EraseInstruction(inst)
					again = true
					changed = true
				}
			}
		}
	}

	return changed
}
