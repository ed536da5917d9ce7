package front

import (
	"tlog.app/go/errors"

	"github.com/slowlang/slow/src/compiler/ast"
	"github.com/slowlang/slow/src/compiler/builtin"
	"github.com/slowlang/slow/src/compiler/bytecode"
	"github.com/slowlang/slow/src/compiler/tp"
)

// typeOf compiles e against a scratch writer and discards the emitted
// bytes, keeping only the inferred type (§4.3's "type-of-expression"
// operation, used by sizeof/typeof and for computing expected argument
// types).
func (c *Compiler) typeOf(e ast.Expr) (tp.Type, error) {
	saved := c.cur
	scratch := bytecode.NewWriter(&bytecode.Func{})
	c.cur = scratch

	t, err := c.compileExprValue(e)

	c.cur = saved

	return t, err
}

// compileExprValue compiles e in value mode: the bytes of its result end
// up on top of the stack (§4.3).
func (c *Compiler) compileExprValue(e ast.Expr) (tp.Type, error) {
	switch e := e.(type) {
	case *ast.IntLit:
		return c.compileIntLit(e), nil
	case *ast.FloatLit:
		c.cur.PushF64(e.Value)
		return tp.F64, nil
	case *ast.BoolLit:
		c.cur.PushBool(e.Value)
		return tp.Bool, nil
	case *ast.CharLit:
		c.cur.PushChar(e.Value)
		return tp.Char, nil
	case *ast.StringLit:
		ofs, n := c.prog.InternRom(e.Value)
		c.cur.PushStringLiteral(ofs, n)
		return tp.Span(tp.Char.WithConst(true)).WithConst(true), nil
	case *ast.NullLit:
		c.cur.PushNull()
		return tp.Null, nil
	case *ast.NullptrLit:
		c.cur.PushNullptr()
		return tp.Nullptr, nil
	case *ast.Name:
		return c.compileName(e)
	case *ast.Field:
		return c.compileFieldValue(e)
	case *ast.Unary:
		return c.compileUnary(e)
	case *ast.Binary:
		return c.compileBinary(e)
	case *ast.Call:
		return c.compileCall(e)
	case *ast.ArrayLit:
		return c.compileArrayLit(e)
	case *ast.RepeatArrayLit:
		return c.compileRepeatArrayLit(e)
	case *ast.AddrOf:
		return c.compileAddrOf(e)
	case *ast.Deref:
		t, err := c.addrExpr(e)
		if err != nil {
			return tp.Type{}, err
		}
		c.cur.Load(t.Size(c.reg))
		return t, nil
	case *ast.Subscript:
		t, err := c.addrExpr(e)
		if err != nil {
			return tp.Type{}, err
		}
		c.cur.Load(t.Size(c.reg))
		return t, nil
	case *ast.SizeofExpr:
		return c.compileSizeof(e)
	case *ast.SpanExpr:
		return c.compileSpan(e)
	case *ast.TypeofExpr:
		t, err := c.typeOf(e.X)
		if err != nil {
			return tp.Type{}, err
		}
		return tp.TypeValue(t), nil
	case *ast.NewExpr:
		return c.compileNew(e)
	case *ast.FuncPtrTypeLit:
		t, err := c.resolveType(e.Type)
		if err != nil {
			return tp.Type{}, err
		}
		return tp.TypeValue(t), nil
	default:
		return tp.Type{}, errors.New("unsupported expression %T", e)
	}
}

func (c *Compiler) compileIntLit(e *ast.IntLit) tp.Type {
	switch e.Suffix {
	case "i64":
		c.cur.PushI64(e.Value)
		return tp.I64
	case "u", "u64":
		c.cur.PushU64(uint64(e.Value))
		return tp.U64
	default:
		c.cur.PushI32(int32(e.Value))
		return tp.I32
	}
}

// compileName resolves a bare identifier: a local/global variable loads
// its value; otherwise it is a compile-time-only reference to a type, a
// function, or a builtin, resolved (and, for templates, instantiated) per
// §4.3.
func (c *Compiler) compileName(e *ast.Name) (tp.Type, error) {
	if v, ok := c.vars.Find(e.Name); ok && len(e.Args) == 0 {
		if v.Global {
			c.cur.PushPtrGlobal(int32(v.Offset))
		} else {
			c.cur.PushPtrLocal(int32(v.Offset))
		}
		c.cur.Load(v.Size)
		return v.Type, nil
	}

	if len(e.Args) > 0 {
		args := make([]tp.Type, len(e.Args))
		for i, a := range e.Args {
			t, err := c.resolveType(a)
			if err != nil {
				return tp.Type{}, err
			}
			args[i] = t
		}

		if _, ok := c.templateFuncs[e.Name]; ok {
			fs, err := c.instantiateFuncTemplate(e.Name, args)
			if err != nil {
				return tp.Type{}, err
			}
			c.cur.PushFunctionPtr(fs.fn.ID)
			return tp.FunctionPtr(fs.params, fs.ret), nil
		}

		if _, ok := c.templateTypes[e.Name]; ok {
			name, err := c.instantiateStructTemplate(e.Name, args)
			if err != nil {
				return tp.Type{}, err
			}
			return tp.TypeValue(tp.StructType(name)), nil
		}

		return tp.Type{}, errors.New("%s is not a template", e.Name)
	}

	if fs, err := c.resolveFunc(e.Name); err == nil {
		c.cur.PushFunctionPtr(fs.fn.ID)
		return tp.FunctionPtr(fs.params, fs.ret), nil
	}

	if c.reg.Contains(e.Name) || c.templateTypes[e.Name] != nil {
		return tp.TypeValue(tp.StructType(e.Name)), nil
	}

	if bi, ok := builtin.Lookup(e.Name); ok {
		return builtinSigType(bi), nil
	}

	return tp.Type{}, errors.New("unknown name: %s", e.Name)
}

func (c *Compiler) compileFieldValue(e *ast.Field) (tp.Type, error) {
	// `.size` on an array/span/arena is a pseudo-field resolved directly
	// to a value rather than routed through a distinct compile-time-only
	// callable type (§4.3's BoundBuiltinMethod, simplified per DESIGN.md).
	if e.Field == "size" {
		if t, ok, err := c.compileDotSize(e.X); ok {
			return t, err
		}
	}

	t, err := c.addrExpr(e)
	if err != nil {
		return tp.Type{}, err
	}

	c.cur.Load(t.Size(c.reg))

	return t, nil
}

func (c *Compiler) compileUnary(e *ast.Unary) (tp.Type, error) {
	xt, err := c.compileExprValue(e.X)
	if err != nil {
		return tp.Type{}, err
	}

	switch e.Op {
	case "-":
		switch xt.Kind {
		case tp.KindI32:
			c.cur.Op(bytecode.OpNegI32)
		case tp.KindI64:
			c.cur.Op(bytecode.OpNegI64)
		case tp.KindF64:
			c.cur.Op(bytecode.OpNegF64)
		default:
			return tp.Type{}, errors.New("cannot negate %s", xt)
		}
		return tp.Type{Kind: xt.Kind}, nil
	case "!":
		if xt.Kind != tp.KindBool {
			return tp.Type{}, errors.New("! requires bool, got %s", xt)
		}
		c.cur.Op(bytecode.OpNotBool)
		return tp.Bool, nil
	case "~":
		switch xt.Kind {
		case tp.KindI32:
			c.cur.Op(bytecode.OpBitNotI32)
		case tp.KindI64:
			c.cur.Op(bytecode.OpBitNotI64)
		case tp.KindU64:
			c.cur.Op(bytecode.OpBitNotU64)
		default:
			return tp.Type{}, errors.New("~ requires an integer type, got %s", xt)
		}
		return tp.Type{Kind: xt.Kind}, nil
	default:
		return tp.Type{}, errors.New("unknown unary operator %q", e.Op)
	}
}
