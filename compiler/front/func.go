package front

import (
	"tlog.app/go/errors"

	"github.com/slowlang/slow/src/compiler/ast"
	"github.com/slowlang/slow/src/compiler/bytecode"
	"github.com/slowlang/slow/src/compiler/scope"
	"github.com/slowlang/slow/src/compiler/tp"
)

// resolveFunc compiles decl on first use and caches the result, so
// (self-)recursive calls see a signature before the body is fully
// compiled (§9: "no global state... one aggregate", plus the teacher's
// addTask/compileTask lazy-compilation pattern in front/compile6.go).
func (c *Compiler) resolveFunc(name string) (*funcSig, error) {
	if fs, ok := c.funcs[name]; ok {
		return fs, nil
	}

	decl, ok := c.funcTasks[name]
	if !ok {
		return nil, errors.New("unknown function: %s", name)
	}

	return c.compileFuncDecl(name, decl, nil)
}

// compileFuncDecl allocates a bytecode.Func, registers its signature
// (before compiling the body, to support recursion), then compiles the
// body. env binds template parameters for a template instantiation, nil
// for a plain function.
func (c *Compiler) compileFuncDecl(name string, decl *ast.FuncDecl, env map[string]tp.Type) (*funcSig, error) {
	savedEnv := c.templateEnv
	c.templateEnv = env
	defer func() { c.templateEnv = savedEnv }()

	params := make([]tp.Type, len(decl.Params))
	for i, p := range decl.Params {
		t, err := c.resolveType(p.Type)
		if err != nil {
			return nil, errors.Wrap(err, "param %s", p.Name)
		}
		params[i] = t
	}

	ret := tp.Null
	if decl.Return != nil {
		r, err := c.resolveType(decl.Return)
		if err != nil {
			return nil, err
		}
		ret = r
	}

	fn := c.prog.AddFunc(name)
	fs := &funcSig{fn: fn, params: params, ret: ret}

	if env != nil {
		c.instFuncs[name] = fs
	} else {
		c.funcs[name] = fs
	}

	if err := c.compileFuncBody(fn, decl.Params, params, ret, decl.Body, nil); err != nil {
		return nil, err
	}

	return fs, nil
}

// compileFuncBody lays out parameters at the start of the callee's frame
// (§4.5: "callee begins with its args already at the base of its frame"),
// pushes a function scope carrying the return type, compiles the body,
// and rejects a non-null-returning function whose body does not end in a
// return statement (§7's "non-exhaustive return" diagnostic).
func (c *Compiler) compileFuncBody(fn *bytecode.Func, astParams []ast.Param, paramTypes []tp.Type, ret tp.Type, body ast.Stmt, selfType *tp.Type) error {
	savedVars, savedCur := c.vars, c.cur
	c.vars = scope.NewManager()
	c.cur = bytecode.NewWriter(fn)
	defer func() { c.vars, c.cur = savedVars, savedCur }()

	c.vars.EnterFunction(ret)

	if selfType != nil {
		if _, err := c.vars.Declare("self", *selfType, selfType.Size(c.reg)); err != nil {
			return err
		}
	}

	for i, p := range astParams {
		if _, err := c.vars.Declare(p.Name, paramTypes[i], paramTypes[i].Size(c.reg)); err != nil {
			return err
		}
	}

	if err := c.compileStmt(body); err != nil {
		return err
	}

	if ret.Kind != tp.KindNull && !stmtAlwaysReturns(body) {
		return errors.New("function does not return a value on all paths")
	}

	// Fall-through path for a null-returning function: pop nothing extra,
	// just `ret 0`. Value-returning functions get no fall-through `ret`.
	if ret.Kind == tp.KindNull {
		c.cur.Ret(0)
	}

	return nil
}

// stmtAlwaysReturns is a conservative reachability check for §7's
// "non-exhaustive return" diagnostic.
func stmtAlwaysReturns(s ast.Stmt) bool {
	switch s := s.(type) {
	case *ast.Return:
		return true
	case *ast.Block:
		return stmtAlwaysReturns(s.Body)
	case *ast.Seq:
		for _, st := range s.Stmts {
			if stmtAlwaysReturns(st) {
				return true
			}
		}
		return false
	case *ast.If:
		return s.Else != nil && stmtAlwaysReturns(s.Then) && stmtAlwaysReturns(s.Else)
	case *ast.Loop:
		return true // only exits via return or an enclosing break, which this helper does not need to rule out
	default:
		return false
	}
}

// compileMethod compiles a struct member function. The first parameter
// (per §4.4) must declare `self` with a pointer-to-instance type; the
// compiler enforces (§4.3/§9's resolved Open Question) that binding a
// const receiver to a non-const `self` parameter is rejected.
func (c *Compiler) compileMethod(structName string, decl *ast.FuncDecl) error {
	if len(decl.Params) == 0 || decl.Params[0].Name != "self" {
		return errors.New("member function %s.%s must declare a self parameter", structName, decl.Name)
	}

	selfType, err := c.resolveType(decl.Params[0].Type)
	if err != nil {
		return err
	}

	if selfType.Kind != tp.KindPtr || selfType.Elem.Kind != tp.KindStruct || selfType.Elem.StructName != structName {
		return errors.New("self parameter of %s.%s must be a pointer to %s", structName, decl.Name, structName)
	}

	params := make([]tp.Type, len(decl.Params)-1)
	for i, p := range decl.Params[1:] {
		t, err := c.resolveType(p.Type)
		if err != nil {
			return err
		}
		params[i] = t
	}

	ret := tp.Null
	if decl.Return != nil {
		ret, err = c.resolveType(decl.Return)
		if err != nil {
			return err
		}
	}

	fullName := structName + "." + decl.Name
	fn := c.prog.AddFunc(fullName)

	ms := &methodSig{fn: fn, selfType: selfType, params: params, ret: ret}
	c.structs[structName].methods[decl.Name] = ms

	savedConst := c.currentStructConst
	c.currentStructConst = selfType.Elem.IsConst
	defer func() { c.currentStructConst = savedConst }()

	return c.compileFuncBody(fn, decl.Params[1:], params, ret, decl.Body, &selfType)
}

// instantiateFuncTemplate compiles base!(args...) on first use and caches
// it by canonical name, so a later use of the same instantiation reuses
// the compiled body (§4.3, §9: "a template is compiled on first use;
// later uses reuse the cached instantiation").
func (c *Compiler) instantiateFuncTemplate(base string, args []tp.Type) (*funcSig, error) {
	name := tp.InstantiationName(base, args)

	if fs, ok := c.instFuncs[name]; ok {
		return fs, nil
	}

	decl, ok := c.templateFuncs[base]
	if !ok {
		return nil, errors.New("unknown function template: %s", base)
	}

	if len(decl.Templates) != len(args) {
		return nil, errors.New("func %s: expected %d template arguments, got %d", base, len(decl.Templates), len(args))
	}

	env := make(map[string]tp.Type, len(args))
	for i, p := range decl.Templates {
		env[p] = args[i]
	}

	return c.compileFuncDecl(name, decl, env)
}
