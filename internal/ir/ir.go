package ir

// This file provides the main entry points for the IR system
// The IR is implemented using Static Single Assignment (SSA) form over an explicit CFG

// Expand rewrites every multiplication of the module into additions
func Expand(module *Module, reporter Reporter) bool {
	return NewExpansionPipeline(reporter).Run(module)
}

// Optimize expands multiplications and then cleans up with folding and dead code elimination
func Optimize(module *Module, reporter Reporter) bool {
	return NewOptimizationPipeline(reporter).Run(module)
}

// PrintModule returns a pretty-printed representation of the IR
func PrintModule(module *Module) string {
	return Print(module)
}

// CountMuls returns the number of integer multiplications left in fn
func CountMuls(fn *Function) int {
	n := 0
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if _, ok := matchMul(inst); ok {
				n++
			}
		}
	}
	return n
}

// FindFunction looks a function up by name
func (m *Module) FindFunction(name string) *Function {
	for _, fn := range m.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}
