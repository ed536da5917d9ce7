// Package front is the compiler / code generator (§4): an AST walk that
// type-checks and emits bytecode against the stack-oriented abstract
// machine of §4.5, consulting compiler/tp and compiler/scope along the
// way. This is the teacher's "front" package name, generalized from
// arm64-assembly codegen to bytecode-for-a-stack-VM codegen.
package front

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/slow/src/compiler/ast"
	"github.com/slowlang/slow/src/compiler/builtin"
	"github.com/slowlang/slow/src/compiler/bytecode"
	"github.com/slowlang/slow/src/compiler/scope"
	"github.com/slowlang/slow/src/compiler/tp"
)

// funcSig is what the compiler knows about a function before (and while)
// compiling its body: enough to type-check call sites and to support
// recursive calls via forward signature registration.
type funcSig struct {
	fn     *bytecode.Func
	params []tp.Type
	ret    tp.Type
}

// methodSig is a struct member function: like funcSig but with an
// explicit self parameter type (§4.4's "ptr to instance"/"ptr to const
// instance" enforcement).
type methodSig struct {
	fn       *bytecode.Func
	selfType tp.Type // Ptr(T) or Ptr(const T)
	params   []tp.Type
	ret      tp.Type
}

type structInfo struct {
	methods map[string]*methodSig
}

// Compiler is the AST-to-bytecode compiler: the CORE subsystem of §4.
// One aggregate holds all compiler state, per the "no global state"
// design note of §9.
type Compiler struct {
	reg  *tp.Registry
	vars *scope.Manager
	prog *bytecode.Program

	structs map[string]*structInfo

	funcTasks     map[string]*ast.FuncDecl   // non-template, not yet compiled
	templateFuncs map[string]*ast.FuncDecl   // template function bodies, keyed by base name
	templateTypes map[string]*ast.StructDecl // template struct bodies, keyed by base name

	funcs      map[string]*funcSig // resolved/compiling/compiled non-template functions
	instFuncs  map[string]*funcSig // resolved template function instantiations, by canonical name

	templateEnv map[string]tp.Type // active template parameter bindings, nil outside a template body

	currentStructName  string
	currentStructConst bool // only meaningful while compiling a member function: whether self is const

	cur *bytecode.Writer
}

func New() *Compiler {
	return &Compiler{
		reg:           tp.NewRegistry(),
		vars:          scope.NewManager(),
		structs:       map[string]*structInfo{},
		funcTasks:     map[string]*ast.FuncDecl{},
		templateFuncs: map[string]*ast.FuncDecl{},
		templateTypes: map[string]*ast.StructDecl{},
		funcs:         map[string]*funcSig{},
		instFuncs:     map[string]*funcSig{},
	}
}

// Compile lowers a parsed module (§3.3: a Seq of top-level declarations
// and statements) to a bytecode.Program. Function 0 is always `$main`
// (§3.4), built from whatever top-level statements are not struct/function
// declarations.
func Compile(ctx context.Context, module *ast.Seq) (*bytecode.Program, error) {
	c := New()

	c.prog = bytecode.NewProgram()
	mainFn := c.prog.AddFunc("$main")

	var mainStmts []ast.Stmt

	for _, s := range module.Stmts {
		switch s := s.(type) {
		case *ast.StructDecl:
			if len(s.Templates) > 0 {
				c.templateTypes[s.Name] = s
				continue
			}

			if err := c.registerStruct(s, nil); err != nil {
				return nil, errors.Wrap(err, "struct %s", s.Name)
			}
		case *ast.FuncDecl:
			if len(s.Templates) > 0 {
				c.templateFuncs[s.Name] = s
				continue
			}

			c.funcTasks[s.Name] = s
		default:
			mainStmts = append(mainStmts, s)
		}
	}

	// Compile every eagerly-declared non-template function. The order is
	// that of map iteration; a function referenced before its turn is
	// compiled on first use by resolveFunc, so forward references work.
	for name := range c.funcTasks {
		if _, err := c.resolveFunc(name); err != nil {
			return nil, errors.Wrap(err, "func %s", name)
		}
	}

	c.vars.EnterFunction(tp.Null)
	c.cur = bytecode.NewWriter(mainFn)

	for _, s := range mainStmts {
		if err := c.compileStmt(s); err != nil {
			return nil, errors.Wrap(err, "%v", s)
		}
	}

	c.cur.EndProgram()

	if err := mainFn.ValidateJumps(); err != nil {
		return nil, err
	}

	for _, fs := range c.funcs {
		if err := fs.fn.ValidateJumps(); err != nil {
			return nil, err
		}
	}

	tlog.SpanFromContext(ctx).Printw("compiled", "funcs", len(c.prog.Funcs), "rom_bytes", len(c.prog.Rom))

	return c.prog, nil
}

// builtinSigType resolves a builtin.Entry to a tp.Type for call-site
// type-checking (§4.3's Builtin-binding).
func builtinSigType(e builtin.Entry) tp.Type {
	return tp.BuiltinBinding(e.ID, e.Params, e.Return)
}
