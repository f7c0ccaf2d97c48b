package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deopt/internal/ir"
)

// countdown: loops x times and returns the number of iterations times two
func countdown() *ir.Function {
	fn := ir.NewFunction("countdown", ir.I32)
	x := fn.AddParam("x", ir.I32)
	entry := fn.NewBlock("entry")
	loop := fn.NewBlock("loop")
	exit := fn.NewBlock("exit")
	for _, b := range []*ir.BasicBlock{entry, loop, exit} {
		fn.AppendBlock(b)
	}

	b := ir.NewBuilder(fn)
	b.SetInsertBlock(entry)
	b.Jump(loop)

	b.SetInsertBlock(loop)
	n := b.Phi(ir.I32, "n")
	acc := b.Phi(ir.I32, "acc")
	stop := b.Compare(ir.PredSLE, n.Result, ir.ConstInt(ir.I32, 0), "stop")
	nNext := b.Binary(ir.OpSub, n.Result, ir.ConstInt(ir.I32, 1), "n.next")
	accNext := b.Binary(ir.OpAdd, acc.Result, ir.ConstInt(ir.I32, 2), "acc.next")
	b.Branch(stop, exit, loop)
	n.AddIncoming(x, entry)
	n.AddIncoming(nNext, loop)
	acc.AddIncoming(ir.ConstInt(ir.I32, 0), entry)
	acc.AddIncoming(accNext, loop)

	b.SetInsertBlock(exit)
	b.Return(acc.Result)
	return fn
}

func TestRunLoop(t *testing.T) {
	res, err := Run(countdown(), []int64{5}, Config{RecordPath: true})
	require.NoError(t, err)

	assert.True(t, res.HasValue)
	assert.Equal(t, int64(10), res.Value)
	assert.Equal(t, 6, res.Trace.Visits["loop"])
	assert.Equal(t, 1, res.Trace.Visits["exit"])
	assert.Equal(t, []string{"entry", "loop", "loop", "loop", "loop", "loop", "loop", "exit"}, res.Trace.Path)
	assert.Greater(t, res.Trace.Steps, 6)
}

func TestRunStepLimit(t *testing.T) {
	_, err := Run(countdown(), []int64{1000}, Config{MaxSteps: 50})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStepLimit)

	_, err = Run(countdown(), []int64{1000}, Config{MaxSteps: -1})
	assert.NoError(t, err)
}

func TestRunArity(t *testing.T) {
	_, err := Run(countdown(), nil, Config{})
	assert.ErrorIs(t, err, ErrArity)
}

func TestRunWrapsArgumentsAndArithmetic(t *testing.T) {
	fn := ir.NewFunction("inc", ir.I8)
	x := fn.AddParam("x", ir.I8)
	entry := fn.NewBlock("entry")
	fn.AppendBlock(entry)
	b := ir.NewBuilder(fn)
	b.SetInsertBlock(entry)
	b.Return(b.Binary(ir.OpAdd, x, ir.ConstInt(ir.I8, 1), "y"))

	res, err := Run(fn, []int64{127}, Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(-128), res.Value)

	res, err = Run(fn, []int64{255}, Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Value, "255 is -1 as an i8")
}

func TestRunPhisReadSimultaneously(t *testing.T) {
	// swap: two phis that exchange their values on the back-edge
	fn := ir.NewFunction("swap", ir.I32)
	a := fn.AddParam("a", ir.I32)
	bv := fn.AddParam("b", ir.I32)
	entry := fn.NewBlock("entry")
	loop := fn.NewBlock("loop")
	exit := fn.NewBlock("exit")
	for _, blk := range []*ir.BasicBlock{entry, loop, exit} {
		fn.AppendBlock(blk)
	}

	b := ir.NewBuilder(fn)
	b.SetInsertBlock(entry)
	b.Jump(loop)

	b.SetInsertBlock(loop)
	p := b.Phi(ir.I32, "p")
	q := b.Phi(ir.I32, "q")
	k := b.Phi(ir.I32, "k")
	kNext := b.Binary(ir.OpAdd, k.Result, ir.ConstInt(ir.I32, 1), "k.next")
	again := b.Compare(ir.PredSLT, kNext, ir.ConstInt(ir.I32, 2), "again")
	b.Branch(again, loop, exit)
	p.AddIncoming(a, entry)
	p.AddIncoming(q.Result, loop)
	q.AddIncoming(bv, entry)
	q.AddIncoming(p.Result, loop)
	k.AddIncoming(ir.ConstInt(ir.I32, 0), entry)
	k.AddIncoming(kNext, loop)

	b.SetInsertBlock(exit)
	b.Return(p.Result)
	require.NoError(t, ir.Verify(fn))

	res, err := Run(fn, []int64{1, 2}, Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Value)
}

func TestRunModule(t *testing.T) {
	module := &ir.Module{Functions: []*ir.Function{countdown()}}

	res, err := RunModule(module, "countdown", []int64{0}, Config{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Value)

	_, err = RunModule(module, "missing", nil, Config{})
	assert.ErrorContains(t, err, "no function @missing")
}

func TestRunVoidFunction(t *testing.T) {
	fn := ir.NewFunction("nothing", nil)
	entry := fn.NewBlock("entry")
	fn.AppendBlock(entry)
	b := ir.NewBuilder(fn)
	b.SetInsertBlock(entry)
	b.Return(nil)

	res, err := Run(fn, nil, Config{})
	require.NoError(t, err)
	assert.False(t, res.HasValue)
}
