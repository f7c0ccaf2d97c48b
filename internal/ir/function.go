package ir

import (
	"fmt"
	"slices"
)

// NewFunction creates an empty function. ret may be nil for functions that return nothing.
func NewFunction(name string, ret Type) *Function {
	return &Function{
		Name:       name,
		ReturnType: ret,
		names:      make(map[string]bool),
		labels:     make(map[string]bool),
	}
}

// AddParam declares a parameter and returns the value that represents it in the body
func (f *Function) AddParam(name string, t Type) *Value {
	v := f.NewValue(name, t)
	f.Params = append(f.Params, &Parameter{Name: v.Name, Type: t, Value: v})
	return v
}

// NewValue allocates a value with a function-unique name. An empty name gets a numbered one.
func (f *Function) NewValue(name string, t Type) *Value {
	f.nextValueID++
	if name == "" {
		name = fmt.Sprintf("v%d", f.nextValueID)
	}
	return &Value{ID: f.nextValueID, Name: f.uniqueName(name), Type: t}
}

// HasValueName reports whether name is already taken by a value of this function
func (f *Function) HasValueName(name string) bool {
	return f.names[name]
}

func (f *Function) uniqueName(base string) string {
	f.ensureMaps()
	name := base
	for i := 1; f.names[name]; i++ {
		name = fmt.Sprintf("%s.%d", base, i)
	}
	f.names[name] = true
	return name
}

func (f *Function) uniqueLabel(base string) string {
	f.ensureMaps()
	label := base
	for i := 1; f.labels[label]; i++ {
		label = fmt.Sprintf("%s.%d", base, i)
	}
	f.labels[label] = true
	return label
}

func (f *Function) ensureMaps() {
	if f.names == nil {
		f.names = make(map[string]bool)
	}
	if f.labels == nil {
		f.labels = make(map[string]bool)
	}
}

// NewBlock allocates a block with a function-unique label. The block is not
// placed in the block list until AppendBlock or InsertBlockAfter is called.
func (f *Function) NewBlock(label string) *BasicBlock {
	return &BasicBlock{Label: f.uniqueLabel(label), Parent: f}
}

// AppendBlock places b at the end of the block list
func (f *Function) AppendBlock(b *BasicBlock) {
	b.Parent = f
	f.Blocks = append(f.Blocks, b)
}

// InsertBlockAfter places b directly after pos in the block list
func (f *Function) InsertBlockAfter(pos, b *BasicBlock) {
	i := f.blockIndex(pos)
	if i < 0 {
		panic(fmt.Sprintf("BUG: block %s is not in function %s", pos.Label, f.Name))
	}
	b.Parent = f
	f.Blocks = slices.Insert(f.Blocks, i+1, b)
}

// RemoveBlock drops b from the block list and unlinks its outgoing edges.
// Phis of former successors lose their incoming entry for b.
func (f *Function) RemoveBlock(b *BasicBlock) {
	i := f.blockIndex(b)
	if i < 0 {
		return
	}
	f.unlinkTerminator(b)
	f.Blocks = slices.Delete(f.Blocks, i, i+1)
	b.Parent = nil
}

// Entry returns the entry block, or nil for an empty function
func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

// BlockByLabel finds a block by its label
func (f *Function) BlockByLabel(label string) *BasicBlock {
	for _, b := range f.Blocks {
		if b.Label == label {
			return b
		}
	}
	return nil
}

func (f *Function) blockIndex(b *BasicBlock) int {
	return slices.Index(f.Blocks, b)
}

// SetTerminator replaces the terminator of b and immediately rewires the CFG edges.
// Phis in blocks that stop being successors keep their entries; callers that drop an
// edge into a block with phis must repair them.
func (f *Function) SetTerminator(b *BasicBlock, term Terminator) {
	if b.Terminator != nil {
		f.dropEdges(b)
		for _, op := range b.Terminator.GetOperands() {
			removeUse(op, b.Terminator)
		}
	}

	f.assignID(term)
	term.setBlock(b)
	b.Terminator = term
	for _, op := range term.GetOperands() {
		addUse(op, term)
	}
	b.Successors = term.GetSuccessors()
	for _, succ := range b.Successors {
		succ.Predecessors = append(succ.Predecessors, b)
	}
}

// unlinkTerminator removes b's outgoing edges together with the phi entries they fed
func (f *Function) unlinkTerminator(b *BasicBlock) {
	if b.Terminator == nil {
		return
	}
	for _, succ := range b.Successors {
		for _, phi := range succ.Phis() {
			phi.removeIncoming(b)
		}
	}
	f.dropEdges(b)
	for _, op := range b.Terminator.GetOperands() {
		removeUse(op, b.Terminator)
	}
	b.Terminator = nil
}

func (f *Function) dropEdges(b *BasicBlock) {
	for _, succ := range b.Successors {
		if i := slices.Index(succ.Predecessors, b); i >= 0 {
			succ.Predecessors = slices.Delete(succ.Predecessors, i, i+1)
		}
	}
	b.Successors = nil
}

// SplitBlock splits b before at. Every instruction from at onward, together with b's
// terminator, moves into a new block labelled "<b>_after" placed right after b. The edges
// that left b now leave the new block, so successor predecessor lists and phis are
// rewritten to name it. b ends with a jump to the new block.
func (f *Function) SplitBlock(b *BasicBlock, at Instruction) *BasicBlock {
	i := slices.Index(b.Instructions, at)
	if i < 0 {
		panic(fmt.Sprintf("BUG: %s is not in block %s", at, b.Label))
	}
	if _, ok := at.(*PhiInstruction); ok {
		panic(fmt.Sprintf("BUG: cannot split block %s at phi %s", b.Label, at))
	}

	after := f.NewBlock(b.Label + "_after")
	after.Instructions = slices.Clone(b.Instructions[i:])
	b.Instructions = slices.Clone(b.Instructions[:i])
	for _, inst := range after.Instructions {
		inst.setBlock(after)
		if res := inst.GetResult(); res != nil {
			res.DefBlock = after
		}
	}

	if term := b.Terminator; term != nil {
		term.setBlock(after)
		after.Terminator = term
		after.Successors = b.Successors
		b.Terminator, b.Successors = nil, nil
		for _, succ := range after.Successors {
			for j, pred := range succ.Predecessors {
				if pred == b {
					succ.Predecessors[j] = after
				}
			}
			for _, phi := range succ.Phis() {
				phi.replaceIncomingBlock(b, after)
			}
		}
	}

	f.InsertBlockAfter(b, after)
	f.SetTerminator(b, &JumpTerminator{Target: after})
	return after
}

// ReplaceAllUsesWith redirects every use of old to new. old is left without uses.
func (f *Function) ReplaceAllUsesWith(old, new *Value) {
	f.ReplaceUses(old, new, slices.Clone(old.Uses))
}

// ReplaceUses redirects the listed uses of old to new. A user's operand slots are
// rewritten together, so uses must name every slot of each user they cover.
// Entries that are no longer on old's use-list are skipped.
func (f *Function) ReplaceUses(old, new *Value, uses []*Use) {
	if old == new {
		return
	}
	for _, u := range uses {
		i := slices.Index(old.Uses, u)
		if i < 0 {
			continue
		}
		old.Uses = slices.Delete(old.Uses, i, i+1)
		u.User.replaceOperand(old, new)
		addUse(new, u.User)
	}
}

// EraseInstruction removes a non-terminator instruction from its block.
// The result must no longer be used.
func (f *Function) EraseInstruction(inst Instruction) {
	if res := inst.GetResult(); res != nil && len(res.Uses) > 0 {
		panic(fmt.Sprintf("BUG: erasing %s which still has %d uses", inst, len(res.Uses)))
	}
	b := inst.GetBlock()
	if b != nil {
		if i := slices.Index(b.Instructions, inst); i >= 0 {
			b.Instructions = slices.Delete(b.Instructions, i, i+1)
		}
	}
	for _, op := range inst.GetOperands() {
		removeUse(op, inst)
	}
	inst.setBlock(nil)
}

func (f *Function) assignID(inst Instruction) {
	if inst.GetID() == 0 {
		f.nextInstID++
		inst.setID(f.nextInstID)
	}
}

// Phis returns the phi instructions at the head of b
func (b *BasicBlock) Phis() []*PhiInstruction {
	var phis []*PhiInstruction
	for _, inst := range b.Instructions {
		phi, ok := inst.(*PhiInstruction)
		if !ok {
			break
		}
		phis = append(phis, phi)
	}
	return phis
}

func (b *BasicBlock) String() string { return b.Label }

func (p *PhiInstruction) replaceIncomingBlock(old, new *BasicBlock) {
	for i := range p.Incoming {
		if p.Incoming[i].Block == old {
			p.Incoming[i].Block = new
		}
	}
}

func (p *PhiInstruction) removeIncoming(block *BasicBlock) {
	for i, in := range p.Incoming {
		if in.Block == block {
			removeUse(in.Value, p)
			p.Incoming = slices.Delete(p.Incoming, i, i+1)
			return
		}
	}
}

func addUse(v *Value, user Instruction) {
	if v == nil {
		return
	}
	v.Uses = append(v.Uses, &Use{Value: v, User: user})
}

func removeUse(v *Value, user Instruction) {
	if v == nil {
		return
	}
	for i, u := range v.Uses {
		if u.User == user {
			v.Uses = slices.Delete(v.Uses, i, i+1)
			return
		}
	}
}
