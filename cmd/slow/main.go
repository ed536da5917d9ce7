// Command slow is the CLI driver (§6.4): parse (AST dump), compile
// (bytecode disassembly), and run (lex+parse+compile+execute in one
// shot), sharing one *cli.Command tree per the teacher's cmd/slow
// structure.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"nikand.dev/go/cli"

	"github.com/slowlang/slow/src/compiler"
	"github.com/slowlang/slow/src/compiler/bytecode"
	"github.com/slowlang/slow/src/compiler/parse"
	"github.com/slowlang/slow/src/vm"
)

func main() {
	parseCmd := &cli.Command{
		Name:   "parse",
		Action: parseAct,
		Args:   cli.Args{},
	}

	compileCmd := &cli.Command{
		Name:   "compile",
		Action: compileAct,
		Args:   cli.Args{},
	}

	runCmd := &cli.Command{
		Name:   "run",
		Action: runAct,
		Args:   cli.Args{},
	}

	app := &cli.Command{
		Name:        "slow",
		Description: "slow is a tool for managining slow source code",
		Commands: []*cli.Command{
			parseCmd,
			compileCmd,
			runCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func parseAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		x, err := parse.Parse(text)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		fmt.Printf("ast: %+v\n", x)
	}

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		prog, err := compiler.CompileFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		fmt.Print(bytecode.Disassemble(prog))
	}

	return nil
}

func runAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		prog, err := compiler.CompileFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		if err := vm.Run(ctx, prog); err != nil {
			var assertErr *vm.AssertionError
			if stderrors.As(err, &assertErr) {
				fmt.Fprintln(os.Stderr, assertErr.Error())
				os.Exit(1)
			}

			return errors.Wrap(err, "run %v", a)
		}
	}

	return nil
}
