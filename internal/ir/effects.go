package ir

// This file describes the effects of instructions
// Pure instructions only produce their result; control instructions move between blocks

// Effect classifies what an instruction does besides producing a value
type Effect int

const (
	EffectPure Effect = iota
	EffectControl
)

func (e Effect) String() string {
	if e == EffectControl {
		return "control"
	}
	return "pure"
}

// EffectOf returns the effect of inst
func EffectOf(inst Instruction) Effect {
	switch inst.(type) {
	case *PhiInstruction, *BinaryInstruction, *CompareInstruction, *ConstantInstruction:
		return EffectPure
	case *ReturnTerminator, *BranchTerminator, *JumpTerminator:
		return EffectControl
	}
	// Unknown instructions are never removed.
	return EffectControl
}

// IsPure reports whether inst can be dropped once its result is unused
func IsPure(inst Instruction) bool {
	return EffectOf(inst) == EffectPure
}
