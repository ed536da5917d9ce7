package front

import (
	"tlog.app/go/errors"

	"github.com/slowlang/slow/src/compiler/ast"
	"github.com/slowlang/slow/src/compiler/bytecode"
	"github.com/slowlang/slow/src/compiler/tp"
)

// addrExpr compiles e in address mode: the bytes left on top of the stack
// are a pointer to e's storage, not e's value (§4.3's lvalue/rvalue
// discrimination). It returns e's static type (with constness carried
// through field/element access). Only the four lvalue expression shapes
// are accepted; anything else is a compile error.
func (c *Compiler) addrExpr(e ast.Expr) (tp.Type, error) {
	switch e := e.(type) {
	case *ast.Name:
		v, ok := c.vars.Find(e.Name)
		if !ok {
			return tp.Type{}, errors.New("%s is not an addressable variable", e.Name)
		}
		if v.Global {
			c.cur.PushPtrGlobal(int32(v.Offset))
		} else {
			c.cur.PushPtrLocal(int32(v.Offset))
		}
		return v.Type, nil

	case *ast.Field:
		structName, isConst, err := c.addrStructBase(e.X)
		if err != nil {
			return tp.Type{}, err
		}

		field, offset, err := c.reg.FieldOffset(structName, e.Field)
		if err != nil {
			return tp.Type{}, err
		}

		c.cur.PushFieldOffset(offset)

		ft := field.Type
		if isConst {
			ft = ft.WithConst(true)
		}

		return ft, nil

	case *ast.Deref:
		xt, err := c.compileExprValue(e.X)
		if err != nil {
			return tp.Type{}, err
		}
		if xt.Kind != tp.KindPtr {
			return tp.Type{}, errors.New("cannot dereference non-pointer type %s", xt)
		}
		return *xt.Elem, nil

	case *ast.Subscript:
		return c.addrSubscript(e)

	default:
		return tp.Type{}, errors.New("%T is not an lvalue", e)
	}
}

// addrStructBase compiles the address of the struct instance reached from
// x, transparently following pointer indirections (§4.3: "field access
// through a pointer emits as many load-pointer-width opcodes as needed to
// reach a non-pointer base"). It returns the struct's registered name and
// whether the instance is const.
func (c *Compiler) addrStructBase(x ast.Expr) (string, bool, error) {
	xt, err := c.typeOf(x)
	if err != nil {
		return "", false, err
	}

	switch xt.Kind {
	case tp.KindStruct:
		if _, err := c.addrExpr(x); err != nil {
			return "", false, err
		}
		return xt.StructName, xt.IsConst, nil

	case tp.KindPtr:
		if _, err := c.compileExprValue(x); err != nil {
			return "", false, err
		}

		cur := xt
		for cur.Elem.Kind == tp.KindPtr {
			c.cur.Load(tp.PointerWidth)
			cur = *cur.Elem
		}

		if cur.Elem.Kind != tp.KindStruct {
			return "", false, errors.New("field access requires a struct or pointer to struct, got %s", xt)
		}

		return cur.Elem.StructName, cur.Elem.IsConst, nil

	default:
		return "", false, errors.New("field access requires a struct or pointer to struct, got %s", xt)
	}
}

// addrSubscript compiles x[idx] in address mode for an array or an lvalue
// span (§4.3), requiring a u64 index.
func (c *Compiler) addrSubscript(e *ast.Subscript) (tp.Type, error) {
	xt, err := c.typeOf(e.X)
	if err != nil {
		return tp.Type{}, err
	}

	switch xt.Kind {
	case tp.KindArray:
		if _, err := c.addrExpr(e.X); err != nil {
			return tp.Type{}, err
		}
	case tp.KindSpan:
		if _, err := c.addrExpr(e.X); err != nil {
			return tp.Type{}, err
		}
		c.cur.Load(tp.PointerWidth)
	default:
		return tp.Type{}, errors.New("cannot subscript %s", xt)
	}

	it, err := c.compileExprValue(e.Index)
	if err != nil {
		return tp.Type{}, err
	}
	if it.Kind != tp.KindU64 {
		return tp.Type{}, errors.New("array/span index must be u64, got %s", it)
	}

	elemSize := xt.Elem.Size(c.reg)
	c.cur.PushIndexScaled(elemSize)

	ft := *xt.Elem
	if xt.IsConst {
		ft = ft.WithConst(true)
	}

	return ft, nil
}

// compileDotSize handles the `.size` pseudo-field on arrays, spans, and
// arenas, resolved directly to a u64 value rather than through a distinct
// compile-time-only callable type (§4.3's BoundBuiltinMethod, simplified
// per DESIGN.md). ok is false when x's type has no `.size`.
func (c *Compiler) compileDotSize(x ast.Expr) (t tp.Type, ok bool, err error) {
	xt, err := c.typeOf(x)
	if err != nil {
		return tp.Type{}, true, err
	}

	switch xt.Kind {
	case tp.KindArray:
		c.cur.PushU64(uint64(xt.Count))
		return tp.U64, true, nil

	case tp.KindSpan:
		if _, err := c.addrExpr(x); err != nil {
			return tp.Type{}, true, err
		}
		c.cur.PushFieldOffset(tp.PointerWidth)
		c.cur.Load(8)
		return tp.U64, true, nil

	case tp.KindArena:
		if _, err := c.compileExprValue(x); err != nil {
			return tp.Type{}, true, err
		}
		c.cur.Op(bytecode.OpArenaSize)
		return tp.U64, true, nil

	case tp.KindPtr:
		if xt.Elem.Kind != tp.KindArena {
			return tp.Type{}, false, nil
		}
		if _, err := c.compileExprValue(x); err != nil {
			return tp.Type{}, true, err
		}
		c.cur.Load(tp.PointerWidth)
		c.cur.Op(bytecode.OpArenaSize)
		return tp.U64, true, nil

	default:
		return tp.Type{}, false, nil
	}
}

// tryReceiverStructType peeks at x's static type (without emitting any
// real bytecode, via typeOf's scratch writer) to decide whether a call
// `x.name(...)` should be resolved as a member-function call.
func (c *Compiler) tryReceiverStructType(x ast.Expr) (string, bool, bool) {
	xt, err := c.typeOf(x)
	if err != nil {
		return "", false, false
	}

	switch xt.Kind {
	case tp.KindStruct:
		return xt.StructName, xt.IsConst, true
	case tp.KindPtr:
		cur := xt
		for cur.Elem.Kind == tp.KindPtr {
			cur = *cur.Elem
		}
		if cur.Elem.Kind == tp.KindStruct {
			return cur.Elem.StructName, cur.Elem.IsConst, true
		}
	}

	return "", false, false
}

// compileReceiverPtr emits the bytes for tryReceiverStructType's resolved
// path: a pointer to the struct instance, suitable as a method's self
// argument.
func (c *Compiler) compileReceiverPtr(x ast.Expr) (string, bool, error) {
	return c.addrStructBase(x)
}
