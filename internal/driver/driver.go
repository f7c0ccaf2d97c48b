// Package driver runs the parse, check, expand and verify sequence shared by the
// command line tool and the REPL.
package driver

import (
	goerrors "errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"

	"deopt/internal/errors"
	"deopt/internal/interp"
	"deopt/internal/ir"
	"deopt/internal/parser"
)

var log = commonlog.GetLogger("deopt.driver")

var (
	// ErrDiagnostics is returned when the source has errors that stop processing
	ErrDiagnostics = goerrors.New("source has errors")
	// ErrMismatch is returned when the transformed function computes a different value
	ErrMismatch = goerrors.New("result changed after expansion")
)

// Options control one run of the driver
type Options struct {
	// Optimize also folds constants and removes dead code after expansion
	Optimize bool
	// Print writes the resulting module
	Print bool
	// ShowPreds annotates printed block labels with their predecessors
	ShowPreds bool
	// Function is executed before and after the transformation when set
	Function string
	Args     []int64
	MaxSteps int
}

// Outcome is everything one run produced
type Outcome struct {
	Path        string
	Source      string
	Module      *ir.Module
	Diagnostics []errors.CompilerError
	Reports     []ir.ExpansionReport
	Before      *interp.Result
	After       *interp.Result
	Duration    time.Duration
}

// Rewritten returns the number of multiplications replaced over all functions
func (o *Outcome) Rewritten() int {
	n := 0
	for _, r := range o.Reports {
		n += r.Rewritten
	}
	return n
}

// ProcessFile reads path and processes it
func ProcessFile(path string, opts Options) (*Outcome, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Process(path, string(source), opts)
}

// Process parses and checks source, expands every multiplication, verifies the result,
// and when a function is named runs it on both sides of the transformation.
func Process(path, source string, opts Options) (*Outcome, error) {
	start := time.Now()
	out := &Outcome{Path: path, Source: source}
	defer func() { out.Duration = time.Since(start) }()

	result := parser.ParseSourceWithPositions(path, source)
	out.Diagnostics = result.Check()
	if parser.HasErrors(out.Diagnostics) {
		return out, ErrDiagnostics
	}
	out.Module = result.Module

	cfg := interp.Config{MaxSteps: opts.MaxSteps}
	if opts.Function != "" {
		before, err := interp.RunModule(out.Module, opts.Function, opts.Args, cfg)
		if err != nil {
			return out, fmt.Errorf("before expansion: %w", err)
		}
		out.Before = before
	}

	collector := &ir.Collector{}
	reporter := ir.MultiReporter{collector, &ir.LogReporter{Log: log}}
	if opts.Optimize {
		ir.Optimize(out.Module, reporter)
	} else {
		ir.Expand(out.Module, reporter)
	}
	out.Reports = collector.Reports()

	if err := ir.VerifyModule(out.Module); err != nil {
		return out, fmt.Errorf("transformed module is invalid: %w", err)
	}

	if opts.Function != "" {
		after, err := interp.RunModule(out.Module, opts.Function, opts.Args, cfg)
		if err != nil {
			return out, fmt.Errorf("after expansion: %w", err)
		}
		out.After = after
		if after.HasValue != out.Before.HasValue || after.Value != out.Before.Value {
			return out, fmt.Errorf("@%s: %w: %d before, %d after", opts.Function, ErrMismatch, out.Before.Value, after.Value)
		}
	}

	return out, nil
}

// Write renders an outcome the way the command line tool shows it
func (o *Outcome) Write(w io.Writer, opts Options) {
	if len(o.Diagnostics) > 0 {
		fmt.Fprint(w, errors.NewErrorReporter(o.Path, o.Source).FormatAll(o.Diagnostics))
	}
	if o.Module == nil {
		return
	}

	for _, r := range o.Reports {
		if r.Changed() {
			color.New(color.FgCyan).Fprintln(w, r.String())
		} else {
			fmt.Fprintln(w, r.String())
		}
	}

	if opts.Print {
		p := ir.NewPrinter()
		if opts.ShowPreds {
			p = p.WithPredecessors()
		}
		fmt.Fprintln(w)
		fmt.Fprint(w, p.Module(o.Module))
	}

	if o.Before != nil && o.After != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "@%s(%s)\n", opts.Function, formatArgs(opts.Args))
		fmt.Fprintf(w, "  before: %s in %d steps\n", formatResult(o.Before), o.Before.Trace.Steps)
		fmt.Fprintf(w, "  after:  %s in %d steps\n", formatResult(o.After), o.After.Trace.Steps)
	}
}

// Summary is the closing line of a run
func Summary(out *Outcome, err error) string {
	var d string
	if out != nil {
		d = FormatDuration(out.Duration)
	}
	if err != nil {
		return color.RedString("Failed after %s: %v", d, err)
	}
	return color.GreenString("Expanded %d multiplication(s) in %s in %s", out.Rewritten(), out.Path, d)
}

// ProcessAndWrite is ProcessFile followed by Write and Summary
func ProcessAndWrite(w io.Writer, path string, opts Options) error {
	out, err := ProcessFile(path, opts)
	if out != nil {
		out.Write(w, opts)
	}
	fmt.Fprintln(w, Summary(out, err))
	return err
}

// ParseArgs parses a comma separated list of integers
func ParseArgs(list string) ([]int64, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}
	var args []int64
	for _, field := range strings.Split(list, ",") {
		v, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid argument %q: %w", field, err)
		}
		args = append(args, v)
	}
	return args, nil
}

// FormatDuration renders d with a unit that keeps it short
func FormatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}

func formatArgs(args []int64) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return strings.Join(parts, ", ")
}

func formatResult(r *interp.Result) string {
	if !r.HasValue {
		return "void"
	}
	return fmt.Sprint(r.Value)
}
