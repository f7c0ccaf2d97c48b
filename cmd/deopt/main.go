// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"deopt/internal/driver"
	"deopt/internal/errors"
)

func main() {
	var (
		optimize  = flag.Bool("O", false, "fold constants and remove dead code after expansion")
		printIR   = flag.Bool("print", true, "print the transformed IR")
		preds     = flag.Bool("preds", false, "annotate block labels with their predecessors")
		run       = flag.String("run", "", "run `function` before and after expansion and compare the results")
		args      = flag.String("args", "", "comma separated integer arguments for -run")
		maxSteps  = flag.Int("max-steps", 0, "instruction budget for -run (0 for the default, negative for none)")
		watch     = flag.Bool("watch", false, "process the file again every time it changes")
		verbosity = flag.Int("v", 0, "log verbosity")
		explain   = flag.String("explain", "", "describe a diagnostic `code` such as E0105 and exit")
	)
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "Usage: deopt [flags] <file.ir>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *explain != "" {
		fmt.Println(errors.Explain(*explain))
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	path := flag.Arg(0)

	commonlog.Configure(*verbosity, nil)

	parsedArgs, err := driver.ParseArgs(*args)
	if err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}

	opts := driver.Options{
		Optimize:  *optimize,
		Print:     *printIR,
		ShowPreds: *preds,
		Function:  *run,
		Args:      parsedArgs,
		MaxSteps:  *maxSteps,
	}

	err = driver.ProcessAndWrite(os.Stdout, path, opts)
	if !*watch {
		if err != nil {
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = driver.Watch(ctx, path, func() {
		fmt.Println()
		driver.ProcessAndWrite(os.Stdout, path, opts)
	})
	if err != nil {
		color.Red("watch failed: %v", err)
		os.Exit(1)
	}
}
