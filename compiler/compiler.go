// Package compiler glues the pipeline stages together: source text to
// parsed AST to compiled bytecode.Program (§3.3, §3.4). This is the
// teacher's CompileFile/Compile entry point, adapted from the teacher's
// lex(implicit)->front.Parse->front.Analyze->front.Compile pipeline to
// this repo's lex->parse->front.Compile one.
package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/slow/src/compiler/bytecode"
	"github.com/slowlang/slow/src/compiler/front"
	"github.com/slowlang/slow/src/compiler/parse"
)

// CompileFile reads name and compiles its contents.
func CompileFile(ctx context.Context, name string) (*bytecode.Program, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text)
}

// Compile parses and compiles text (name is used only for diagnostics).
func Compile(ctx context.Context, name string, text []byte) (*bytecode.Program, error) {
	module, err := parse.Parse(text)
	if err != nil {
		return nil, errors.Wrap(err, "parse %v", name)
	}

	prog, err := front.Compile(ctx, module)
	if err != nil {
		return nil, errors.Wrap(err, "compile %v", name)
	}

	return prog, nil
}
