// Package tp implements the type system: the TypeName variants of
// spec §3.1, their size rules, const propagation, and structural vs.
// nominal equality.
package tp

import (
	"fmt"
	"unsafe"

	"golang.org/x/exp/constraints"
)

// sizeOf reports the machine size in bytes of an integer type T, so the
// fundamental-kind cases in Size stay expressed in terms of Go's own
// integer widths instead of repeating 4/8 literals by hand.
func sizeOf[T constraints.Integer]() int {
	var v T
	return int(unsafe.Sizeof(v))
}

// Kind discriminates the TypeName variants. Type is a closed tagged
// union over these kinds, following the teacher's one-type-per-variant
// pattern (compiler/tp.Type in slowlang-slow) generalized from a plain
// Int/Ptr/Array/Struct set to the full variant list the language needs.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindChar
	KindI32
	KindI64
	KindU64
	KindF64
	KindNullptr
	KindStruct
	KindArray
	KindSpan
	KindPtr
	KindFunctionPtr
	KindArena
	KindTypeValue
	KindBuiltinBinding
	KindBoundMethod
	KindBoundBuiltinMethod
)

// PointerWidth is the implementation-fixed machine pointer size (§3.1).
const PointerWidth = 8

// Type is a TypeName: a tagged variant carrying a Kind plus whatever
// payload that Kind needs, and an orthogonal const flag (§3.1).
type Type struct {
	Kind Kind

	IsConst bool

	// Struct
	StructName string

	// Array: Elem + Count. Span, Ptr: Elem only.
	Elem  *Type
	Count int

	// FunctionPtr, Builtin-binding, BoundMethod
	Params []Type
	Return *Type

	// BoundMethod: the target function id
	FuncID uint64

	// TypeValue
	Inner *Type

	// Builtin-binding
	BuiltinID int
}

func Fundamental(k Kind) Type { return Type{Kind: k} }

var (
	Null    = Fundamental(KindNull)
	Bool    = Fundamental(KindBool)
	Char    = Fundamental(KindChar)
	I32     = Fundamental(KindI32)
	I64     = Fundamental(KindI64)
	U64     = Fundamental(KindU64)
	F64     = Fundamental(KindF64)
	Nullptr = Fundamental(KindNullptr)
)

func StructType(name string) Type { return Type{Kind: KindStruct, StructName: name} }

func Array(elem Type, n int) Type { return Type{Kind: KindArray, Elem: &elem, Count: n} }

func Span(elem Type) Type { return Type{Kind: KindSpan, Elem: &elem} }

func Ptr(pointee Type) Type { return Type{Kind: KindPtr, Elem: &pointee} }

func FunctionPtr(params []Type, ret Type) Type {
	return Type{Kind: KindFunctionPtr, Params: params, Return: &ret}
}

func Arena() Type { return Type{Kind: KindArena} }

func TypeValue(inner Type) Type { return Type{Kind: KindTypeValue, Inner: &inner} }

func BuiltinBinding(id int, params []Type, ret Type) Type {
	return Type{Kind: KindBuiltinBinding, BuiltinID: id, Params: params, Return: &ret}
}

func BoundMethod(id uint64, params []Type, ret Type) Type {
	return Type{Kind: KindBoundMethod, FuncID: id, Params: params, Return: &ret}
}

func BoundBuiltinMethod() Type { return Type{Kind: KindBoundBuiltinMethod} }

// WithConst returns x with IsConst set as requested; it does not mutate x.
func (x Type) WithConst(c bool) Type {
	x.IsConst = c
	return x
}

// IsCompileTimeOnly reports whether a value of this type never occupies
// runtime storage (TypeValue, Builtin-binding, BoundMethod and its
// builtin-method cousin all resolve entirely during compilation).
func (x Type) IsCompileTimeOnly() bool {
	switch x.Kind {
	case KindTypeValue, KindBuiltinBinding, KindBoundMethod, KindBoundBuiltinMethod:
		return true
	default:
		return false
	}
}

// Size returns the size in bytes per the rules of spec §3.1. reg is used
// to resolve struct field lists; it may be nil only when x is known not
// to contain a Struct anywhere in its spine.
func (x Type) Size(reg *Registry) int {
	switch x.Kind {
	case KindNull, KindBool, KindChar:
		return sizeOf[int8]()
	case KindI32:
		return sizeOf[int32]()
	case KindI64:
		return sizeOf[int64]()
	case KindU64, KindNullptr:
		return sizeOf[uint64]()
	case KindF64:
		return 8
	case KindPtr, KindFunctionPtr, KindArena:
		return PointerWidth
	case KindSpan:
		return PointerWidth + 8
	case KindArray:
		return x.Elem.Size(reg) * x.Count
	case KindStruct:
		return reg.SizeOfStruct(x.StructName)
	default:
		return 0
	}
}

// Equal implements canonical equality: structural for everything except
// Struct, which is nominal by canonical name (§3.1) so that any two
// instantiations `Foo!(A,B)` compare equal by name alone. Const-ness is
// not considered; callers that care about const use ConstConvertibleTo.
func Equal(a, b Type) bool {
	if a.Kind != b.Kind {
		return false
	}

	switch a.Kind {
	case KindStruct:
		return a.StructName == b.StructName
	case KindArray:
		return a.Count == b.Count && Equal(*a.Elem, *b.Elem)
	case KindSpan, KindPtr:
		return Equal(*a.Elem, *b.Elem)
	case KindFunctionPtr:
		if len(a.Params) != len(b.Params) || !Equal(*a.Return, *b.Return) {
			return false
		}
		for i := range a.Params {
			if !Equal(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// ConstConvertibleTo reports whether a value of type src may be used
// where dst is expected (assignment, argument passing): walking the
// structural spine, every position where src is const must have dst
// const too (§4.3). Nullptr converts to any Ptr, and to a Span (as a
// zero-length span).
func ConstConvertibleTo(src, dst Type) bool {
	if src.Kind == KindNullptr && (dst.Kind == KindPtr || dst.Kind == KindSpan) {
		return true
	}

	if src.Kind != dst.Kind {
		return false
	}

	if src.IsConst && !dst.IsConst {
		return false
	}

	switch src.Kind {
	case KindStruct:
		return src.StructName == dst.StructName
	case KindArray:
		return src.Count == dst.Count && ConstConvertibleTo(*src.Elem, *dst.Elem)
	case KindSpan, KindPtr:
		return ConstConvertibleTo(*src.Elem, *dst.Elem)
	case KindFunctionPtr:
		return Equal(src, dst)
	default:
		return true
	}
}

func (x Type) String() string {
	prefix := ""
	if x.IsConst {
		prefix = "const "
	}

	switch x.Kind {
	case KindNull:
		return prefix + "null"
	case KindBool:
		return prefix + "bool"
	case KindChar:
		return prefix + "char"
	case KindI32:
		return prefix + "i32"
	case KindI64:
		return prefix + "i64"
	case KindU64:
		return prefix + "u64"
	case KindF64:
		return prefix + "f64"
	case KindNullptr:
		return prefix + "nullptr"
	case KindStruct:
		return prefix + x.StructName
	case KindArray:
		return fmt.Sprintf("%s%s[%d]", prefix, x.Elem, x.Count)
	case KindSpan:
		return fmt.Sprintf("%s%s[]", prefix, x.Elem)
	case KindPtr:
		return fmt.Sprintf("%s%s*", prefix, x.Elem)
	case KindFunctionPtr:
		return fmt.Sprintf("%sfn(%v)->%s", prefix, x.Params, x.Return)
	case KindArena:
		return prefix + "arena"
	case KindTypeValue:
		return fmt.Sprintf("typeof(%s)", x.Inner)
	default:
		return prefix + "<compile-time>"
	}
}
