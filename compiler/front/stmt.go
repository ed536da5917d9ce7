package front

import (
	"strings"

	"tlog.app/go/errors"

	"github.com/slowlang/slow/src/compiler/ast"
	"github.com/slowlang/slow/src/compiler/bytecode"
	"github.com/slowlang/slow/src/compiler/tp"
)

// compileStmt is the statement-level dispatcher (§4.4). Ret's frame
// handling is the load-bearing design choice here: `ret <size>` truncates
// the callee's entire frame down to the top `size` bytes (the return
// value) as one VM-side operation, so returning never needs an explicit
// byte-accounting pop the way break/continue do — those jump within the
// same frame and so must release their own enclosing scopes by hand
// (§4.2's handle_loop_exit).
func (c *Compiler) compileStmt(s ast.Stmt) error {
	switch s := s.(type) {
	case *ast.Seq:
		for _, st := range s.Stmts {
			if err := c.compileStmt(st); err != nil {
				return err
			}
		}
		return nil

	case *ast.Block:
		c.vars.NewScope()
		err := c.compileStmt(s.Body)
		released := c.vars.PopScope()
		if err != nil {
			return err
		}
		c.cur.Pop(released)
		return nil

	case *ast.Loop:
		return c.compileLoop(s)
	case *ast.While:
		return c.compileWhile(s)
	case *ast.For:
		return c.compileFor(s)
	case *ast.If:
		return c.compileIf(s)

	case *ast.Break:
		bytes, err := c.vars.BytesToLoopExit()
		if err != nil {
			return err
		}
		c.cur.Pop(bytes)
		at := c.cur.Jump(bytecode.OpJump)
		return c.vars.RecordBreak(at)

	case *ast.Continue:
		bytes, err := c.vars.BytesToLoopExit()
		if err != nil {
			return err
		}
		c.cur.Pop(bytes)
		at := c.cur.Jump(bytecode.OpJump)
		return c.vars.RecordContinue(at)

	case *ast.Return:
		return c.compileReturn(s)

	case *ast.Assert:
		ct, err := c.compileExprValue(s.Cond)
		if err != nil {
			return err
		}
		if ct.Kind != tp.KindBool {
			return errors.New("assert condition must be bool, got %s", ct)
		}
		ofs, n := c.prog.InternRom(s.Message)
		c.cur.Assert(ofs, n)
		return nil

	case *ast.Print:
		return c.compilePrint(s)

	case *ast.Delete:
		xt, err := c.compileExprValue(s.X)
		if err != nil {
			return err
		}
		if xt.Kind != tp.KindArena {
			return errors.New("delete requires an arena, got %s", xt)
		}
		c.cur.Op(bytecode.OpArenaFree)
		return nil

	case *ast.VarDecl:
		return c.compileVarDecl(s)

	case *ast.ArenaDecl:
		// The handle pushed by arena_new is the variable's storage.
		if _, err := c.vars.Declare(s.Name, tp.Arena(), tp.PointerWidth); err != nil {
			return err
		}
		c.cur.Op(bytecode.OpArenaNew)
		return nil

	case *ast.Assign:
		return c.compileAssign(s)

	case *ast.ExprStmt:
		t, err := c.compileExprValue(s.X)
		if err != nil {
			return err
		}
		if !t.IsCompileTimeOnly() {
			c.cur.Pop(t.Size(c.reg))
		}
		return nil

	case *ast.StructDecl:
		return errors.New("struct declarations must be at the top level")
	case *ast.FuncDecl:
		return errors.New("function declarations must be at the top level")

	default:
		return errors.New("unsupported statement %T", s)
	}
}

func (c *Compiler) compileVarDecl(s *ast.VarDecl) error {
	vt, err := c.compileExprValue(s.Value)
	if err != nil {
		return err
	}

	declType := vt
	if s.Type != nil {
		t, err := c.resolveType(s.Type)
		if err != nil {
			return err
		}
		if !tp.ConstConvertibleTo(vt, t) {
			return errors.New("cannot initialize %s with a value of type %s", t, vt)
		}
		declType = t
	}

	if s.AddConst {
		declType = declType.WithConst(true)
	}

	// The value just pushed stays on the stack as the variable's storage.
	if _, err := c.vars.Declare(s.Name, declType, declType.Size(c.reg)); err != nil {
		return err
	}

	return nil
}

func (c *Compiler) compileAssign(s *ast.Assign) error {
	rt, err := c.compileExprValue(s.RHS)
	if err != nil {
		return err
	}

	lt, err := c.addrExpr(s.LHS)
	if err != nil {
		return err
	}

	if lt.IsConst {
		return errors.New("cannot assign to a const value")
	}

	if !tp.ConstConvertibleTo(rt, lt) {
		return errors.New("cannot assign a value of type %s to %s", rt, lt)
	}

	c.cur.Save(lt.Size(c.reg))

	return nil
}

// compileReturn type-checks against the enclosing function's declared
// return type and emits ret (§4.4). See compileStmt's doc for why no
// manual frame-exit byte accounting is needed here.
func (c *Compiler) compileReturn(s *ast.Return) error {
	if !c.vars.InFunction() {
		return errors.New("return outside a function")
	}

	retType := c.vars.ReturnType()

	if s.Value == nil {
		if retType.Kind != tp.KindNull {
			return errors.New("function must return a value of type %s", retType)
		}
		c.cur.Ret(0)
		return nil
	}

	vt, err := c.compileExprValue(s.Value)
	if err != nil {
		return err
	}

	if !tp.ConstConvertibleTo(vt, retType) {
		return errors.New("cannot return a value of type %s as %s", vt, retType)
	}

	c.cur.Ret(retType.Size(c.reg))

	return nil
}

// compileLoop lowers the bare `loop { ... }` (§4.4): unconditional, exits
// only through break (or return).
func (c *Compiler) compileLoop(s *ast.Loop) error {
	c.vars.NewLoopScope()

	start := c.cur.Len()

	if err := c.compileStmt(s.Body); err != nil {
		return err
	}

	breaks, continues, err := c.vars.LoopPatches()
	if err != nil {
		return err
	}

	for _, at := range continues {
		c.cur.Patch(at, start)
	}

	back := c.cur.Jump(bytecode.OpJump)
	c.cur.Patch(back, start)

	released := c.vars.PopScope()
	c.cur.Pop(released)

	after := c.cur.Len()
	for _, at := range breaks {
		c.cur.Patch(at, after)
	}

	return nil
}

// compileWhile lowers `while cond { ... }` (§4.4). continue re-enters at
// the condition check; break and the condition-false path converge on the
// same post-loop point, both after the loop scope's own bytes are
// released.
func (c *Compiler) compileWhile(s *ast.While) error {
	top := c.cur.Len()

	ct, err := c.compileExprValue(s.Cond)
	if err != nil {
		return err
	}
	if ct.Kind != tp.KindBool {
		return errors.New("while condition must be bool, got %s", ct)
	}

	exitJump := c.cur.Jump(bytecode.OpJumpIfFalse)

	c.vars.NewLoopScope()

	if err := c.compileStmt(s.Body); err != nil {
		return err
	}

	breaks, continues, err := c.vars.LoopPatches()
	if err != nil {
		return err
	}

	for _, at := range continues {
		c.cur.Patch(at, top)
	}

	back := c.cur.Jump(bytecode.OpJump)
	c.cur.Patch(back, top)

	released := c.vars.PopScope()
	c.cur.Pop(released)

	after := c.cur.Len()
	c.cur.Patch(exitJump, after)
	for _, at := range breaks {
		c.cur.Patch(at, after)
	}

	return nil
}

// compileFor desugars `for x in iter { ... }` over an array or lvalue span
// (§4.3) into index-counted iteration: a hidden index and length variable,
// a per-iteration copy of the element into x, and an increment step that
// continue jumps to directly (skipping the rest of the body, still
// re-checking the condition on the way back around).
func (c *Compiler) compileFor(s *ast.For) error {
	iterT, err := c.typeOf(s.Iter)
	if err != nil {
		return err
	}

	var elemType tp.Type
	switch iterT.Kind {
	case tp.KindArray, tp.KindSpan:
		elemType = *iterT.Elem
	default:
		return errors.New("for requires an array or a span, got %s", iterT)
	}

	// The hidden variables and x live in a plain scope around the loop
	// scope, so break/continue release only the body's bytes.
	c.vars.NewScope()

	idxVar, err := c.vars.Declare("$idx", tp.U64, 8)
	if err != nil {
		return err
	}
	c.cur.PushU64(0)

	lenVar, err := c.vars.Declare("$len", tp.U64, 8)
	if err != nil {
		return err
	}
	if iterT.Kind == tp.KindArray {
		c.cur.PushU64(uint64(iterT.Count))
	} else {
		if _, err := c.addrExpr(s.Iter); err != nil {
			return err
		}
		c.cur.PushFieldOffset(tp.PointerWidth)
		c.cur.Load(8)
	}

	elemSize := elemType.Size(c.reg)
	elemVar, err := c.vars.Declare(s.Var, elemType, elemSize)
	if err != nil {
		return err
	}
	c.cur.Reserve(elemSize)

	c.vars.NewLoopScope()

	top := c.cur.Len()
	c.cur.PushPtrLocal(int32(idxVar.Offset))
	c.cur.Load(8)
	c.cur.PushPtrLocal(int32(lenVar.Offset))
	c.cur.Load(8)
	c.cur.Op(bytecode.OpLtU64)
	exitJump := c.cur.Jump(bytecode.OpJumpIfFalse)

	if iterT.Kind == tp.KindArray {
		if _, err := c.addrExpr(s.Iter); err != nil {
			return err
		}
	} else {
		if _, err := c.addrExpr(s.Iter); err != nil {
			return err
		}
		c.cur.Load(tp.PointerWidth)
	}
	c.cur.PushPtrLocal(int32(idxVar.Offset))
	c.cur.Load(8)
	c.cur.PushIndexScaled(elemSize)
	c.cur.Load(elemSize)
	c.cur.PushPtrLocal(int32(elemVar.Offset))
	c.cur.Save(elemSize)

	if err := c.compileStmt(s.Body); err != nil {
		return err
	}

	incrStart := c.cur.Len()
	c.cur.PushPtrLocal(int32(idxVar.Offset))
	c.cur.Load(8)
	c.cur.PushU64(1)
	c.cur.Op(bytecode.OpAddU64)
	c.cur.PushPtrLocal(int32(idxVar.Offset))
	c.cur.Save(8)

	back := c.cur.Jump(bytecode.OpJump)
	c.cur.Patch(back, top)

	breaks, continues, err := c.vars.LoopPatches()
	if err != nil {
		return err
	}
	for _, at := range continues {
		c.cur.Patch(at, incrStart)
	}

	normalExit := c.cur.Len()
	c.cur.Patch(exitJump, normalExit)
	c.cur.Pop(c.vars.PopScope())

	after := c.cur.Len()
	for _, at := range breaks {
		c.cur.Patch(at, after)
	}

	released := c.vars.PopScope()
	c.cur.Pop(released)

	return nil
}

func (c *Compiler) compileIf(s *ast.If) error {
	ct, err := c.compileExprValue(s.Cond)
	if err != nil {
		return err
	}
	if ct.Kind != tp.KindBool {
		return errors.New("if condition must be bool, got %s", ct)
	}

	elseJump := c.cur.Jump(bytecode.OpJumpIfFalse)

	if err := c.compileStmt(s.Then); err != nil {
		return err
	}

	if s.Else == nil {
		c.cur.Patch(elseJump)
		return nil
	}

	endJump := c.cur.Jump(bytecode.OpJump)
	c.cur.Patch(elseJump)

	if err := c.compileStmt(s.Else); err != nil {
		return err
	}

	c.cur.Patch(endJump)

	return nil
}

// compilePrint splits Format on its `{}` placeholders (one per argument)
// and interleaves literal rom-interned fragments with type-directed print
// opcodes (§4.4).
func (c *Compiler) compilePrint(s *ast.Print) error {
	parts := splitOnPlaceholders(s.Format)
	if len(parts) != len(s.Args)+1 {
		return errors.New("print format has %d placeholders, got %d arguments", len(parts)-1, len(s.Args))
	}

	for i, lit := range parts {
		if lit != "" {
			ofs, n := c.prog.InternRom(lit)
			c.cur.PushStringLiteral(ofs, n)
			c.cur.Op(bytecode.OpPrintCharSpan)
		}

		if i < len(s.Args) {
			at, err := c.compileExprValue(s.Args[i])
			if err != nil {
				return err
			}

			op, err := printOpFor(at)
			if err != nil {
				return err
			}

			c.cur.Op(op)
		}
	}

	return nil
}

func splitOnPlaceholders(format string) []string {
	var parts []string

	for {
		i := strings.Index(format, "{}")
		if i < 0 {
			parts = append(parts, format)
			return parts
		}
		parts = append(parts, format[:i])
		format = format[i+2:]
	}
}

func printOpFor(t tp.Type) (bytecode.Op, error) {
	switch t.Kind {
	case tp.KindBool:
		return bytecode.OpPrintBool, nil
	case tp.KindChar:
		return bytecode.OpPrintChar, nil
	case tp.KindI32:
		return bytecode.OpPrintI32, nil
	case tp.KindI64:
		return bytecode.OpPrintI64, nil
	case tp.KindU64:
		return bytecode.OpPrintU64, nil
	case tp.KindF64:
		return bytecode.OpPrintF64, nil
	case tp.KindNull:
		return bytecode.OpPrintNull, nil
	case tp.KindPtr, tp.KindFunctionPtr, tp.KindArena, tp.KindNullptr:
		return bytecode.OpPrintPtr, nil
	case tp.KindSpan:
		if t.Elem.Kind == tp.KindChar {
			return bytecode.OpPrintCharSpan, nil
		}
		return 0, errors.New("cannot print a span of %s", t.Elem)
	default:
		return 0, errors.New("cannot print a value of type %s", t)
	}
}
