// Package interp executes IR functions directly. It is used to check that a
// transformed function still computes what the original computed.
package interp

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"deopt/internal/ir"
)

var log = commonlog.GetLogger("deopt.interp")

// DefaultMaxSteps bounds execution when Config.MaxSteps is zero
const DefaultMaxSteps = 10_000_000

var (
	// ErrStepLimit is returned when execution runs longer than Config.MaxSteps
	ErrStepLimit = errors.New("step limit exceeded")
	// ErrArity is returned when the argument count does not match the parameters
	ErrArity = errors.New("wrong number of arguments")
)

// Config controls a single execution
type Config struct {
	// MaxSteps is the number of instructions, terminators included, that may execute.
	// Zero means DefaultMaxSteps; a negative value disables the limit.
	MaxSteps int
	// RecordPath keeps the sequence of visited block labels in the trace
	RecordPath bool
}

// Trace describes how an execution went
type Trace struct {
	Steps  int
	Visits map[string]int
	Path   []string
}

// Result is the outcome of running a function
type Result struct {
	Value    int64
	HasValue bool
	Trace    Trace
}

type machine struct {
	fn    *ir.Function
	cfg   Config
	env   map[*ir.Value]int64
	trace Trace
}

// RunModule runs the function called name
func RunModule(module *ir.Module, name string, args []int64, cfg Config) (*Result, error) {
	fn := module.FindFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("no function @%s", name)
	}
	return Run(fn, args, cfg)
}

// Run executes fn with args. Arguments are wrapped to their parameter types.
func Run(fn *ir.Function, args []int64, cfg Config) (*Result, error) {
	if len(args) != len(fn.Params) {
		return nil, fmt.Errorf("@%s: %w: got %d, want %d", fn.Name, ErrArity, len(args), len(fn.Params))
	}
	entry := fn.Entry()
	if entry == nil {
		return nil, fmt.Errorf("@%s: function has no blocks", fn.Name)
	}
	if cfg.MaxSteps == 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}

	m := &machine{
		fn:    fn,
		cfg:   cfg,
		env:   make(map[*ir.Value]int64),
		trace: Trace{Visits: make(map[string]int)},
	}
	for i, param := range fn.Params {
		m.env[param.Value] = wrap(param.Type, args[i])
	}

	result, err := m.run(entry)
	if err != nil {
		return nil, fmt.Errorf("@%s: %w", fn.Name, err)
	}
	log.Debugf("@%s returned after %d steps", fn.Name, m.trace.Steps)
	result.Trace = m.trace
	return result, nil
}

func (m *machine) run(block *ir.BasicBlock) (*Result, error) {
	var prev *ir.BasicBlock
	for {
		m.trace.Visits[block.Label]++
		if m.cfg.RecordPath {
			m.trace.Path = append(m.trace.Path, block.Label)
		}

		if err := m.enter(block, prev); err != nil {
			return nil, err
		}
		for _, inst := range block.Instructions {
			if _, ok := inst.(*ir.PhiInstruction); ok {
				continue
			}
			if err := m.step(); err != nil {
				return nil, err
			}
			if err := m.exec(inst); err != nil {
				return nil, fmt.Errorf("%s: %w", block.Label, err)
			}
		}

		if err := m.step(); err != nil {
			return nil, err
		}
		switch term := block.Terminator.(type) {
		case *ir.ReturnTerminator:
			if term.Value == nil {
				return &Result{}, nil
			}
			v, err := m.get(term.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", block.Label, err)
			}
			return &Result{Value: v, HasValue: true}, nil
		case *ir.JumpTerminator:
			prev, block = block, term.Target
		case *ir.BranchTerminator:
			cond, err := m.get(term.Condition)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", block.Label, err)
			}
			next := term.FalseBlock
			if cond != 0 {
				next = term.TrueBlock
			}
			prev, block = block, next
		case nil:
			return nil, fmt.Errorf("%s: block has no terminator", block.Label)
		default:
			return nil, fmt.Errorf("%s: unsupported terminator %s", block.Label, term)
		}
	}
}

// enter evaluates the phis of block for the edge from prev. All phis read
// their inputs before any of them is assigned.
func (m *machine) enter(block, prev *ir.BasicBlock) error {
	phis := block.Phis()
	if len(phis) == 0 {
		return nil
	}
	if prev == nil {
		return fmt.Errorf("%s: phi in the entry block", block.Label)
	}

	values := make([]int64, len(phis))
	for i, phi := range phis {
		if err := m.step(); err != nil {
			return err
		}
		in := phi.IncomingFor(prev)
		if in == nil {
			return fmt.Errorf("%s: %s has no incoming value from %s", block.Label, phi.Result, prev.Label)
		}
		v, err := m.get(in)
		if err != nil {
			return fmt.Errorf("%s: %w", block.Label, err)
		}
		values[i] = v
	}
	for i, phi := range phis {
		m.env[phi.Result] = values[i]
	}
	return nil
}

func (m *machine) exec(inst ir.Instruction) error {
	switch i := inst.(type) {
	case *ir.ConstantInstruction:
		m.env[i.Result] = wrap(i.Result.Type, i.Value)
	case *ir.BinaryInstruction:
		a, b, err := m.operands(i.Left, i.Right)
		if err != nil {
			return err
		}
		t, ok := i.Result.Type.(*ir.IntType)
		if !ok {
			return fmt.Errorf("%s: result is not an integer", i)
		}
		r, err := ir.EvalBinary(i.Op, t, a, b)
		if err != nil {
			return err
		}
		m.env[i.Result] = r
	case *ir.CompareInstruction:
		a, b, err := m.operands(i.Left, i.Right)
		if err != nil {
			return err
		}
		r, err := ir.EvalCompare(i.Pred, a, b)
		if err != nil {
			return err
		}
		m.env[i.Result] = 0
		if r {
			m.env[i.Result] = 1
		}
	default:
		return fmt.Errorf("unsupported instruction %s", inst)
	}
	return nil
}

func (m *machine) operands(left, right *ir.Value) (int64, int64, error) {
	a, err := m.get(left)
	if err != nil {
		return 0, 0, err
	}
	b, err := m.get(right)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func (m *machine) get(v *ir.Value) (int64, error) {
	if v == nil {
		return 0, errors.New("nil operand")
	}
	if v.Const {
		return wrap(v.Type, v.Int), nil
	}
	r, ok := m.env[v]
	if !ok {
		return 0, fmt.Errorf("use of %s before its definition", v)
	}
	return r, nil
}

func (m *machine) step() error {
	m.trace.Steps++
	if m.cfg.MaxSteps > 0 && m.trace.Steps > m.cfg.MaxSteps {
		return fmt.Errorf("%w (%d)", ErrStepLimit, m.cfg.MaxSteps)
	}
	return nil
}

func wrap(t ir.Type, v int64) int64 {
	if it, ok := t.(*ir.IntType); ok {
		return it.Wrap(v)
	}
	return v
}
