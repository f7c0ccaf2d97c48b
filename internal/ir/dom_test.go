package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDominatorsOfDiamond(t *testing.T) {
	fn, _ := newDiamondFunction()
	entry := fn.BlockByLabel("entry")
	left := fn.BlockByLabel("left")
	right := fn.BlockByLabel("right")
	join := fn.BlockByLabel("join")

	dom := ComputeDominators(fn)

	assert.Nil(t, dom.Idom(entry))
	assert.Same(t, entry, dom.Idom(left))
	assert.Same(t, entry, dom.Idom(right))
	assert.Same(t, entry, dom.Idom(join))

	assert.True(t, dom.Dominates(entry, join))
	assert.True(t, dom.Dominates(join, join))
	assert.False(t, dom.Dominates(left, join))
	assert.False(t, dom.Dominates(right, left))
}

func TestDominatorsWithLoopAndUnreachableBlock(t *testing.T) {
	fn := NewFunction("loop", nil)
	c := fn.AddParam("c", I1)
	entry := fn.NewBlock("entry")
	head := fn.NewBlock("head")
	exit := fn.NewBlock("exit")
	island := fn.NewBlock("island")
	for _, blk := range []*BasicBlock{entry, head, exit, island} {
		fn.AppendBlock(blk)
	}

	b := NewBuilder(fn)
	b.SetInsertBlock(entry)
	b.Jump(head)
	b.SetInsertBlock(head)
	b.Branch(c, head, exit)
	b.SetInsertBlock(exit)
	b.Return(nil)
	b.SetInsertBlock(island)
	b.Jump(exit)

	order := ReversePostOrder(fn)
	assert.Equal(t, []*BasicBlock{entry, head, exit}, order)

	dom := ComputeDominators(fn)
	assert.Same(t, head, dom.Idom(exit))
	assert.True(t, dom.Dominates(head, head))
	assert.False(t, dom.Reachable(island))
	assert.False(t, dom.Dominates(island, exit))
}
