package front

import (
	"tlog.app/go/errors"

	"github.com/slowlang/slow/src/compiler/ast"
	"github.com/slowlang/slow/src/compiler/bytecode"
	"github.com/slowlang/slow/src/compiler/tp"
)

// arithOps and cmpOps table the arithmetic/comparison opcode for each
// (operator, fundamental-type) pair (§4.3/§4.5: "one opcode per (type, op)").
var arithOps = map[tp.Kind]map[string]bytecode.Op{
	tp.KindI32: {"+": bytecode.OpAddI32, "-": bytecode.OpSubI32, "*": bytecode.OpMulI32, "/": bytecode.OpDivI32, "%": bytecode.OpModI32},
	tp.KindI64: {"+": bytecode.OpAddI64, "-": bytecode.OpSubI64, "*": bytecode.OpMulI64, "/": bytecode.OpDivI64, "%": bytecode.OpModI64},
	tp.KindU64: {"+": bytecode.OpAddU64, "-": bytecode.OpSubU64, "*": bytecode.OpMulU64, "/": bytecode.OpDivU64, "%": bytecode.OpModU64},
	tp.KindF64: {"+": bytecode.OpAddF64, "-": bytecode.OpSubF64, "*": bytecode.OpMulF64, "/": bytecode.OpDivF64},
}

var cmpOps = map[tp.Kind]map[string]bytecode.Op{
	tp.KindI32:  {"==": bytecode.OpEqI32, "!=": bytecode.OpNeI32, "<": bytecode.OpLtI32, "<=": bytecode.OpLeI32, ">": bytecode.OpGtI32, ">=": bytecode.OpGeI32},
	tp.KindI64:  {"==": bytecode.OpEqI64, "!=": bytecode.OpNeI64, "<": bytecode.OpLtI64, "<=": bytecode.OpLeI64, ">": bytecode.OpGtI64, ">=": bytecode.OpGeI64},
	tp.KindU64:  {"==": bytecode.OpEqU64, "!=": bytecode.OpNeU64, "<": bytecode.OpLtU64, "<=": bytecode.OpLeU64, ">": bytecode.OpGtU64, ">=": bytecode.OpGeU64},
	tp.KindF64:  {"==": bytecode.OpEqF64, "!=": bytecode.OpNeF64, "<": bytecode.OpLtF64, "<=": bytecode.OpLeF64, ">": bytecode.OpGtF64, ">=": bytecode.OpGeF64},
	tp.KindBool: {"==": bytecode.OpEqBool, "!=": bytecode.OpNeBool},
	tp.KindChar: {"==": bytecode.OpEqChar, "!=": bytecode.OpNeChar},
}

// compileBinary implements §4.3's binary operator lowering. && and ||
// evaluate both operands unconditionally rather than short-circuiting — a
// simplification noted in DESIGN.md, since the bytecode has no separate
// conditional-skip-if-already-decided primitive beyond the jump opcodes
// statements already use for control flow.
func (c *Compiler) compileBinary(e *ast.Binary) (tp.Type, error) {
	lt, err := c.compileExprValue(e.Left)
	if err != nil {
		return tp.Type{}, err
	}

	rt, err := c.compileExprValue(e.Right)
	if err != nil {
		return tp.Type{}, err
	}

	if (e.Op == "==" || e.Op == "!=") && isPtrOrNullptr(lt) && isPtrOrNullptr(rt) {
		if e.Op == "==" {
			c.cur.Op(bytecode.OpEqU64)
		} else {
			c.cur.Op(bytecode.OpNeU64)
		}
		return tp.Bool, nil
	}

	if !tp.Equal(lt, rt) {
		return tp.Type{}, errors.New("mismatched operand types: %s vs %s", lt, rt)
	}

	switch e.Op {
	case "+", "-", "*", "/", "%":
		op, ok := arithOps[lt.Kind][e.Op]
		if !ok {
			return tp.Type{}, errors.New("operator %s not defined for %s", e.Op, lt)
		}
		c.cur.Op(op)
		return tp.Type{Kind: lt.Kind}, nil

	case "==", "!=", "<", "<=", ">", ">=":
		op, ok := cmpOps[lt.Kind][e.Op]
		if !ok {
			return tp.Type{}, errors.New("operator %s not defined for %s", e.Op, lt)
		}
		c.cur.Op(op)
		return tp.Bool, nil

	case "&&", "||":
		if lt.Kind != tp.KindBool {
			return tp.Type{}, errors.New("%s requires bool operands, got %s", e.Op, lt)
		}
		if e.Op == "&&" {
			c.cur.Op(bytecode.OpAndBool)
		} else {
			c.cur.Op(bytecode.OpOrBool)
		}
		return tp.Bool, nil

	default:
		return tp.Type{}, errors.New("unknown binary operator %q", e.Op)
	}
}

func isPtrOrNullptr(t tp.Type) bool {
	return t.Kind == tp.KindPtr || t.Kind == tp.KindNullptr
}

// compileCall implements §4.3's call dispatch, keyed off the callee's
// compile-time type: a constructor (TypeValue), a plain/template function
// or function-pointer value (FunctionPtr), a builtin (Builtin-binding), or
// a member function reached through `recv.name(...)` (resolved before
// falling back to the generic paths, since a method name is not itself a
// value with a static type).
func (c *Compiler) compileCall(e *ast.Call) (tp.Type, error) {
	if f, ok := e.Callee.(*ast.Field); ok && f.Field != "size" {
		if structName, _, ok := c.tryReceiverStructType(f.X); ok {
			if si, ok2 := c.structs[structName]; ok2 {
				if _, hasMethod := si.methods[f.Field]; hasMethod {
					return c.compileMethodCall(f, e.Args)
				}
			}
		}
	}

	ct, err := c.typeOf(e.Callee)
	if err != nil {
		return tp.Type{}, err
	}

	switch ct.Kind {
	case tp.KindTypeValue:
		return c.compileConstructorCall(*ct.Inner, e.Args)
	case tp.KindFunctionPtr:
		return c.compileFunctionCall(e.Callee, ct, e.Args)
	case tp.KindBuiltinBinding:
		return c.compileBuiltinCall(ct, e.Args)
	default:
		return tp.Type{}, errors.New("cannot call a value of type %s", ct)
	}
}

func (c *Compiler) compileMethodCall(f *ast.Field, args []ast.Expr) (tp.Type, error) {
	structName, isConst, err := c.compileReceiverPtr(f.X)
	if err != nil {
		return tp.Type{}, err
	}

	si, ok := c.structs[structName]
	if !ok {
		return tp.Type{}, errors.New("unknown struct %s", structName)
	}

	ms, ok := si.methods[f.Field]
	if !ok {
		return tp.Type{}, errors.New("%s has no method %s", structName, f.Field)
	}

	if isConst && !ms.selfType.Elem.IsConst {
		return tp.Type{}, errors.New("cannot call non-const method %s.%s on a const instance", structName, f.Field)
	}

	if len(args) != len(ms.params) {
		return tp.Type{}, errors.New("%s.%s: expected %d arguments, got %d", structName, f.Field, len(ms.params), len(args))
	}

	argsSize := tp.PointerWidth
	for i, a := range args {
		at, err := c.compileExprValue(a)
		if err != nil {
			return tp.Type{}, err
		}
		if !tp.ConstConvertibleTo(at, ms.params[i]) {
			return tp.Type{}, errors.New("%s.%s: argument %d: cannot convert %s to %s", structName, f.Field, i, at, ms.params[i])
		}
		argsSize += ms.params[i].Size(c.reg)
	}

	c.cur.PushFunctionPtr(ms.fn.ID)
	c.cur.Call(argsSize)

	return ms.ret, nil
}

func (c *Compiler) compileFunctionCall(calleeExpr ast.Expr, ct tp.Type, args []ast.Expr) (tp.Type, error) {
	if len(args) != len(ct.Params) {
		return tp.Type{}, errors.New("expected %d arguments, got %d", len(ct.Params), len(args))
	}

	argsSize := 0
	for i, a := range args {
		at, err := c.compileExprValue(a)
		if err != nil {
			return tp.Type{}, err
		}
		if !tp.ConstConvertibleTo(at, ct.Params[i]) {
			return tp.Type{}, errors.New("argument %d: cannot convert %s to %s", i, at, ct.Params[i])
		}
		argsSize += ct.Params[i].Size(c.reg)
	}

	if _, err := c.compileExprValue(calleeExpr); err != nil {
		return tp.Type{}, err
	}

	c.cur.Call(argsSize)

	return *ct.Return, nil
}

func (c *Compiler) compileBuiltinCall(ct tp.Type, args []ast.Expr) (tp.Type, error) {
	if len(args) != len(ct.Params) {
		return tp.Type{}, errors.New("builtin: expected %d arguments, got %d", len(ct.Params), len(args))
	}

	for i, a := range args {
		at, err := c.compileExprValue(a)
		if err != nil {
			return tp.Type{}, err
		}
		if !tp.ConstConvertibleTo(at, ct.Params[i]) {
			return tp.Type{}, errors.New("builtin: argument %d: cannot convert %s to %s", i, at, ct.Params[i])
		}
	}

	c.cur.BuiltinCall(ct.BuiltinID)

	return *ct.Return, nil
}

// compileConstructorCall builds a struct value field-by-field (or,
// zero-argument, as zeroed storage) directly on the stack: since fields
// lay out tightly in declaration order (§3.1/§4.1), compiling each
// argument's value in order already produces the struct's bytes with no
// dedicated opcode needed.
func (c *Compiler) compileConstructorCall(t tp.Type, args []ast.Expr) (tp.Type, error) {
	if t.Kind != tp.KindStruct {
		return tp.Type{}, errors.New("cannot construct non-struct type %s", t)
	}

	fields, err := c.reg.FieldsOf(t.StructName)
	if err != nil {
		return tp.Type{}, err
	}

	if len(args) == 0 {
		c.cur.Reserve(c.reg.SizeOfStruct(t.StructName))
		return t, nil
	}

	if len(args) != len(fields) {
		return tp.Type{}, errors.New("%s: expected %d constructor arguments, got %d", t.StructName, len(fields), len(args))
	}

	for i, a := range args {
		at, err := c.compileExprValue(a)
		if err != nil {
			return tp.Type{}, err
		}
		if !tp.ConstConvertibleTo(at, fields[i].Type) {
			return tp.Type{}, errors.New("%s: field %s: cannot convert %s to %s", t.StructName, fields[i].Name, at, fields[i].Type)
		}
	}

	return t, nil
}

// compileNewValue emits elemType's bytes in place, from either a
// struct-style constructor argument list, a single convertible initializer,
// or (zero arguments) zeroed storage.
func (c *Compiler) compileNewValue(elemType tp.Type, args []ast.Expr) error {
	if elemType.Kind == tp.KindStruct {
		_, err := c.compileConstructorCall(elemType, args)
		return err
	}

	if len(args) == 0 {
		c.cur.Reserve(elemType.Size(c.reg))
		return nil
	}

	if len(args) != 1 {
		return errors.New("new %s: expected 1 initializer, got %d", elemType, len(args))
	}

	at, err := c.compileExprValue(args[0])
	if err != nil {
		return err
	}
	if !tp.ConstConvertibleTo(at, elemType) {
		return errors.New("new %s: cannot convert initializer of type %s", elemType, at)
	}

	return nil
}

// pushArenaHandle pushes the u64 arena handle referenced by arenaExpr,
// auto-dereferencing a single pointer-to-arena indirection (§4.3).
func (c *Compiler) pushArenaHandle(arenaExpr ast.Expr) error {
	at, err := c.typeOf(arenaExpr)
	if err != nil {
		return err
	}

	switch at.Kind {
	case tp.KindArena:
		_, err := c.compileExprValue(arenaExpr)
		return err
	case tp.KindPtr:
		if at.Elem.Kind != tp.KindArena {
			return errors.New("expected an arena or pointer to arena, got %s", at)
		}
		if _, err := c.compileExprValue(arenaExpr); err != nil {
			return err
		}
		c.cur.Load(tp.PointerWidth)
		return nil
	default:
		return errors.New("expected an arena or pointer to arena, got %s", at)
	}
}

// compileNew lowers `new T(args) using arena` / `new T : count using arena`
// (§4.3, §9 Open Question — this repo's chosen concrete syntax, see
// DESIGN.md): build the value (or, for an array, push only the count; the
// arena allocator zero-fills count elements) then hand it to the arena
// allocator.
func (c *Compiler) compileNew(e *ast.NewExpr) (tp.Type, error) {
	elemType, err := c.resolveType(e.Type)
	if err != nil {
		return tp.Type{}, err
	}

	if e.Count != nil {
		if len(e.Args) > 0 {
			return tp.Type{}, errors.New("new T : count does not take constructor arguments")
		}

		ct, err := c.compileExprValue(e.Count)
		if err != nil {
			return tp.Type{}, err
		}
		if ct.Kind != tp.KindU64 {
			return tp.Type{}, errors.New("new T : count must be u64, got %s", ct)
		}

		if err := c.pushArenaHandle(e.Arena); err != nil {
			return tp.Type{}, err
		}

		c.cur.ArenaAllocArray(elemType.Size(c.reg))

		return tp.Span(elemType), nil
	}

	if err := c.compileNewValue(elemType, e.Args); err != nil {
		return tp.Type{}, err
	}

	if err := c.pushArenaHandle(e.Arena); err != nil {
		return tp.Type{}, err
	}

	c.cur.ArenaAlloc(elemType.Size(c.reg))

	return tp.Ptr(elemType), nil
}

// compileArrayLit lowers `[e1, e2, ...]`: concatenating each element's
// value bytes in order already produces the array's layout (§3.1: array
// elements are contiguous, no padding). Empty array literals are rejected
// (§8.3).
func (c *Compiler) compileArrayLit(e *ast.ArrayLit) (tp.Type, error) {
	if len(e.Elems) == 0 {
		return tp.Type{}, errors.New("array literal must not be empty")
	}

	first, err := c.compileExprValue(e.Elems[0])
	if err != nil {
		return tp.Type{}, err
	}

	for _, el := range e.Elems[1:] {
		t, err := c.compileExprValue(el)
		if err != nil {
			return tp.Type{}, err
		}
		if !tp.ConstConvertibleTo(t, first) && !tp.ConstConvertibleTo(first, t) {
			return tp.Type{}, errors.New("array literal: mismatched element types %s and %s", first, t)
		}
	}

	return tp.Array(first, len(e.Elems)), nil
}

// compileRepeatArrayLit lowers `[value; count]` by re-evaluating value
// count times (the bytecode has no stack-duplicate primitive); count must
// be a literal so the array's size is known at compile time. Documented in
// DESIGN.md as a simplification: value must be side-effect-free for this
// to behave as "one value, N times" rather than "N independent
// evaluations".
func (c *Compiler) compileRepeatArrayLit(e *ast.RepeatArrayLit) (tp.Type, error) {
	lit, ok := e.Count.(*ast.IntLit)
	if !ok {
		return tp.Type{}, errors.New("repeat array count must be a compile-time constant")
	}

	n := int(lit.Value)
	if n < 1 {
		return tp.Type{}, errors.New("array length must be >= 1")
	}

	var elemType tp.Type
	for i := 0; i < n; i++ {
		t, err := c.compileExprValue(e.Value)
		if err != nil {
			return tp.Type{}, err
		}
		if i == 0 {
			elemType = t
		}
	}

	return tp.Array(elemType, n), nil
}

// compileAddrOf lowers `&x`: x must be an lvalue (§4.3).
func (c *Compiler) compileAddrOf(e *ast.AddrOf) (tp.Type, error) {
	t, err := c.addrExpr(e.X)
	if err != nil {
		return tp.Type{}, err
	}
	return tp.Ptr(t), nil
}

// compileSizeof lowers sizeof(T) / sizeof(expr) to an immediate u64
// constant (§4.3): expr's bytes are never emitted, only its type is
// computed (via typeOf's scratch-writer discard).
func (c *Compiler) compileSizeof(e *ast.SizeofExpr) (tp.Type, error) {
	var t tp.Type
	var err error

	if e.Type != nil {
		t, err = c.resolveType(e.Type)
	} else {
		t, err = c.typeOf(e.X)
	}
	if err != nil {
		return tp.Type{}, err
	}

	c.cur.PushU64(uint64(t.Size(c.reg)))

	return tp.U64, nil
}

// compileSpan lowers `expr[lo:hi]` / `expr[:]` over an array or an lvalue
// span (§4.3). Lo and Hi are nil together (full span) or both present,
// enforced by the parser.
func (c *Compiler) compileSpan(e *ast.SpanExpr) (tp.Type, error) {
	xt, err := c.typeOf(e.X)
	if err != nil {
		return tp.Type{}, err
	}

	elemT := *xt.Elem
	if xt.IsConst {
		elemT = elemT.WithConst(true)
	}

	switch xt.Kind {
	case tp.KindArray:
		if _, err := c.addrExpr(e.X); err != nil {
			return tp.Type{}, err
		}

		if e.Lo != nil {
			if _, err := c.compileExprValue(e.Lo); err != nil {
				return tp.Type{}, err
			}
			c.cur.PushIndexScaled(xt.Elem.Size(c.reg))
		}

		if e.Hi != nil {
			if _, err := c.compileExprValue(e.Hi); err != nil {
				return tp.Type{}, err
			}
			if _, err := c.compileExprValue(e.Lo); err != nil {
				return tp.Type{}, err
			}
			c.cur.Op(bytecode.OpSubU64)
		} else {
			c.cur.PushU64(uint64(xt.Count))
		}

		return tp.Span(elemT), nil

	case tp.KindSpan:
		if _, err := c.addrExpr(e.X); err != nil {
			return tp.Type{}, err
		}
		c.cur.Load(tp.PointerWidth)

		if e.Lo != nil {
			if _, err := c.compileExprValue(e.Lo); err != nil {
				return tp.Type{}, err
			}
			c.cur.PushIndexScaled(xt.Elem.Size(c.reg))
		}

		if e.Hi != nil {
			if _, err := c.compileExprValue(e.Hi); err != nil {
				return tp.Type{}, err
			}
			if _, err := c.compileExprValue(e.Lo); err != nil {
				return tp.Type{}, err
			}
			c.cur.Op(bytecode.OpSubU64)
		} else {
			if _, err := c.addrExpr(e.X); err != nil {
				return tp.Type{}, err
			}
			c.cur.PushFieldOffset(tp.PointerWidth)
			c.cur.Load(8)
		}

		return tp.Span(elemT), nil

	default:
		return tp.Type{}, errors.New("cannot take a span of %s", xt)
	}
}
