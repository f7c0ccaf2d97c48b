// Package repl SPDX-License-Identifier: Apache-2.0
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"deopt/internal/driver"
	"deopt/internal/errors"
)

const PROMPT = ">> "

// CONTINUE is shown while a function body is still open
const CONTINUE = ".. "

// Start reads IR text from in. Every time a function's closing brace balances the input,
// the text read so far is expanded and the result is written to out.
// A line ":run NAME ARGS" sets the function to execute before and after expansion.
func Start(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	opts := driver.Options{Print: true}

	var (
		buf   strings.Builder
		depth int
	)
	for {
		if depth > 0 {
			fmt.Fprint(out, CONTINUE)
		} else {
			fmt.Fprint(out, PROMPT)
		}
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}
		line := scanner.Text()

		if depth == 0 && strings.HasPrefix(strings.TrimSpace(line), ":") {
			if !command(out, strings.TrimSpace(line), &opts) {
				return
			}
			continue
		}

		buf.WriteString(line)
		buf.WriteByte('\n')
		code := stripComment(line)
		depth += strings.Count(code, "{") - strings.Count(code, "}")
		if depth > 0 || !strings.Contains(code, "}") {
			continue
		}
		depth = 0

		result, err := driver.Process("<repl>", buf.String(), opts)
		result.Write(out, opts)
		fmt.Fprintln(out, driver.Summary(result, err))
		buf.Reset()
	}
}

// command handles a ":" line and reports whether the session goes on
func command(out io.Writer, line string, opts *driver.Options) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q":
		return false
	case ":run":
		if len(fields) < 2 {
			opts.Function, opts.Args = "", nil
			fmt.Fprintln(out, "run disabled")
			return true
		}
		args, err := driver.ParseArgs(strings.Join(fields[2:], ""))
		if err != nil {
			fmt.Fprintln(out, err)
			return true
		}
		opts.Function, opts.Args = fields[1], args
		fmt.Fprintf(out, "running @%s after each function\n", opts.Function)
	case ":explain":
		if len(fields) != 2 {
			fmt.Fprintln(out, "usage: :explain CODE")
			return true
		}
		fmt.Fprintln(out, errors.Explain(fields[1]))
	case ":opt":
		opts.Optimize = !opts.Optimize
		fmt.Fprintf(out, "cleanup passes: %v\n", opts.Optimize)
	default:
		fmt.Fprintf(out, "unknown command %s (try :run NAME ARGS, :opt, :explain CODE, :quit)\n", fields[0])
	}
	return true
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		return line[:i]
	}
	return line
}
