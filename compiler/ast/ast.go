// Package ast defines the tagged-variant tree the parser produces and the
// compiler consumes (§3.3). Every node carries the originating token for
// diagnostics, following the teacher's ast.Base embedding pattern.
package ast

import "github.com/slowlang/slow/src/compiler/token"

type (
	// Base is embedded in every node and carries its originating token,
	// mirroring the teacher's ast.Base{Pos,End} embedding.
	Base struct {
		Tok token.Token `tlog:",embed"`
	}

	Expr interface{ exprNode() }
	Stmt interface{ stmtNode() }

	// TypeExpr is the pre-resolution surface syntax for a type: the
	// compiler turns one of these into a tp.Type.
	TypeExpr interface{ typeExprNode() }
)

// ---- type expressions ----

type (
	NameTypeExpr struct {
		Base
		Name string
		Args []TypeExpr // template arguments, nil if not a template use
	}

	ArrayTypeExpr struct {
		Base
		Elem  TypeExpr
		Count Expr
	}

	SpanTypeExpr struct {
		Base
		Elem TypeExpr
	}

	PtrTypeExpr struct {
		Base
		Pointee TypeExpr
	}

	FuncPtrTypeExpr struct {
		Base
		Params []TypeExpr
		Return TypeExpr
	}

	ConstTypeExpr struct {
		Base
		Inner TypeExpr
	}
)

func (*NameTypeExpr) typeExprNode()    {}
func (*ArrayTypeExpr) typeExprNode()   {}
func (*SpanTypeExpr) typeExprNode()    {}
func (*PtrTypeExpr) typeExprNode()     {}
func (*FuncPtrTypeExpr) typeExprNode() {}
func (*ConstTypeExpr) typeExprNode()   {}

// ---- expressions ----

type (
	IntLit struct {
		Base
		Value  int64
		Suffix string // "", "i32", "i64", "u", "u64"
	}

	FloatLit struct {
		Base
		Value float64
	}

	BoolLit struct {
		Base
		Value bool
	}

	CharLit struct {
		Base
		Value byte
	}

	StringLit struct {
		Base
		Value string
	}

	NullLit struct{ Base }

	NullptrLit struct{ Base }

	Name struct {
		Base
		Name string
		Args []TypeExpr // template arguments on a name use, e.g. id!(i32)
	}

	Field struct {
		Base
		X     Expr
		Field string
	}

	Unary struct {
		Base
		Op string // "-", "!", "~"
		X  Expr
	}

	Binary struct {
		Base
		Op          string
		Left, Right Expr
	}

	Call struct {
		Base
		Callee Expr
		Args   []Expr
	}

	ArrayLit struct {
		Base
		Elems []Expr
	}

	RepeatArrayLit struct {
		Base
		Value Expr
		Count Expr
	}

	AddrOf struct {
		Base
		X Expr
	}

	Deref struct {
		Base
		X Expr
	}

	// SizeofExpr is sizeof(T) when Type != nil, sizeof(expr) when X != nil.
	SizeofExpr struct {
		Base
		Type TypeExpr
		X    Expr
	}

	Subscript struct {
		Base
		X     Expr
		Index Expr
	}

	// SpanExpr is `expr[lo:hi]` / `expr[:]`. Lo/Hi are nil together for
	// `expr[:]`; otherwise both must be present (§4.3).
	SpanExpr struct {
		Base
		X      Expr
		Lo, Hi Expr
	}

	TypeofExpr struct {
		Base
		X Expr
	}

	// NewExpr builds an object (or a Count-length array, if Count != nil)
	// and moves it into Arena (§4.3). This repo's chosen concrete syntax
	// is `new T using arena` / `new T : count using arena` — one pick
	// among the Open Question's candidate spellings in spec §9; see
	// DESIGN.md for the decision.
	NewExpr struct {
		Base
		Type  TypeExpr
		Args  []Expr
		Count Expr
		Arena Expr
	}

	FuncPtrTypeLit struct {
		Base
		Type *FuncPtrTypeExpr
	}
)

func (*IntLit) exprNode()         {}
func (*FloatLit) exprNode()       {}
func (*BoolLit) exprNode()        {}
func (*CharLit) exprNode()        {}
func (*StringLit) exprNode()      {}
func (*NullLit) exprNode()        {}
func (*NullptrLit) exprNode()     {}
func (*Name) exprNode()           {}
func (*Field) exprNode()          {}
func (*Unary) exprNode()          {}
func (*Binary) exprNode()         {}
func (*Call) exprNode()           {}
func (*ArrayLit) exprNode()       {}
func (*RepeatArrayLit) exprNode() {}
func (*AddrOf) exprNode()         {}
func (*Deref) exprNode()          {}
func (*SizeofExpr) exprNode()     {}
func (*Subscript) exprNode()      {}
func (*SpanExpr) exprNode()       {}
func (*TypeofExpr) exprNode()     {}
func (*NewExpr) exprNode()        {}
func (*FuncPtrTypeLit) exprNode() {}

// ---- statements ----

type (
	Seq struct {
		Base
		Stmts []Stmt
	}

	Block struct {
		Base
		Body Stmt
	}

	Loop struct {
		Base
		Body Stmt
	}

	While struct {
		Base
		Cond Expr
		Body Stmt
	}

	// For iterates over an array or lvalue span (§4.3).
	For struct {
		Base
		Var  string
		Iter Expr
		Body Stmt
	}

	If struct {
		Base
		Cond       Expr
		Then, Else Stmt // Else may be nil
	}

	MemberFunc struct {
		Base
		Fn *FuncDecl
	}

	StructDecl struct {
		Base
		Name      string
		Templates []string // template parameter names, nil if not a template
		Fields    []FieldDecl
		Methods   []*MemberFunc
	}

	FieldDecl struct {
		Base
		Name string
		Type TypeExpr
	}

	Param struct {
		Base
		Name string
		Type TypeExpr
	}

	FuncDecl struct {
		Base
		Name      string
		Templates []string
		Params    []Param
		Return    TypeExpr // nil means null return
		Body      Stmt
	}

	Break struct{ Base }

	Continue struct{ Base }

	VarDecl struct {
		Base
		Name     string
		Type     TypeExpr // nil if inferred from Value
		AddConst bool
		Value    Expr
	}

	ArenaDecl struct {
		Base
		Name string
	}

	Assign struct {
		Base
		LHS, RHS Expr
	}

	ExprStmt struct {
		Base
		X Expr
	}

	Return struct {
		Base
		Value Expr // nil for null return
	}

	Assert struct {
		Base
		Cond    Expr
		Message string
	}

	Print struct {
		Base
		Format string
		Args   []Expr
	}

	Delete struct {
		Base
		X Expr
	}
)

func (*Seq) stmtNode()        {}
func (*Block) stmtNode()      {}
func (*Loop) stmtNode()       {}
func (*While) stmtNode()      {}
func (*For) stmtNode()        {}
func (*If) stmtNode()         {}
func (*StructDecl) stmtNode() {}
func (*FuncDecl) stmtNode()   {}
func (*Break) stmtNode()      {}
func (*Continue) stmtNode()   {}
func (*VarDecl) stmtNode()    {}
func (*ArenaDecl) stmtNode()  {}
func (*Assign) stmtNode()     {}
func (*ExprStmt) stmtNode()   {}
func (*Return) stmtNode()     {}
func (*Assert) stmtNode()     {}
func (*Print) stmtNode()      {}
func (*Delete) stmtNode()     {}
