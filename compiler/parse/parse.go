// Package parse is the parser: an out-of-core collaborator (§1) that
// turns a token stream into the AST shape specified in §3.3. A thin
// recursive-descent parser, deliberately unambitious — the real
// engineering is downstream in compiler/front.
package parse

import (
	"strconv"

	"tlog.app/go/errors"

	"github.com/slowlang/slow/src/compiler/ast"
	"github.com/slowlang/slow/src/compiler/lex"
	"github.com/slowlang/slow/src/compiler/token"
)

type parser struct {
	toks []token.Token
	i    int
}

// Parse lexes and parses src into a module: a Seq of top-level
// statements (struct/function declarations, per §3.3's "module is a
// sequence").
func Parse(src []byte) (*ast.Seq, error) {
	toks, err := lex.All(src)
	if err != nil {
		return nil, errors.Wrap(err, "lex")
	}

	p := &parser{toks: toks}

	return p.module()
}

func (p *parser) module() (*ast.Seq, error) {
	start := p.cur()
	seq := &ast.Seq{Base: ast.Base{Tok: start}}

	for p.cur().Tag != token.EOF {
		s, err := p.stmt()
		if err != nil {
			return nil, err
		}

		seq.Stmts = append(seq.Stmts, s)
	}

	return seq, nil
}

func (p *parser) cur() token.Token  { return p.toks[p.i] }
func (p *parser) peek(n int) token.Token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) advance() token.Token {
	t := p.toks[p.i]
	if p.i < len(p.toks)-1 {
		p.i++
	}
	return t
}

func (p *parser) at(tag token.Tag) bool { return p.cur().Tag == tag }

func (p *parser) expect(tag token.Tag) (token.Token, error) {
	if !p.at(tag) {
		return token.Token{}, errors.New("%d:%d: expected %v, got %q", p.cur().Line, p.cur().Col, tag, p.cur().Text)
	}
	return p.advance(), nil
}

// ---- statements ----

func (p *parser) stmt() (ast.Stmt, error) {
	tok := p.cur()

	switch tok.Tag {
	case token.Struct:
		return p.structDecl()
	case token.Fn:
		return p.funcDecl()
	case token.LBrace:
		return p.block()
	case token.Loop:
		p.advance()
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		return &ast.Loop{Base: ast.Base{Tok: tok}, Body: body}, nil
	case token.While:
		p.advance()
		cond, err := p.expr()
		if err != nil {
			return nil, err
		}
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		return &ast.While{Base: ast.Base{Tok: tok}, Cond: cond, Body: body}, nil
	case token.For:
		return p.forStmt()
	case token.If:
		return p.ifStmt()
	case token.Break:
		p.advance()
		if _, err := p.expect(token.Semi); err != nil {
			return nil, err
		}
		return &ast.Break{Base: ast.Base{Tok: tok}}, nil
	case token.Continue:
		p.advance()
		if _, err := p.expect(token.Semi); err != nil {
			return nil, err
		}
		return &ast.Continue{Base: ast.Base{Tok: tok}}, nil
	case token.Return:
		p.advance()
		var val ast.Expr
		if !p.at(token.Semi) {
			v, err := p.expr()
			if err != nil {
				return nil, err
			}
			val = v
		}
		if _, err := p.expect(token.Semi); err != nil {
			return nil, err
		}
		return &ast.Return{Base: ast.Base{Tok: tok}, Value: val}, nil
	case token.Assert:
		return p.assertStmt()
	case token.Ident:
		if tok.Text == "print" {
			return p.printStmt()
		}
		if tok.Text == "var" {
			return p.varDecl()
		}
		if tok.Text == "arena" {
			return p.arenaDecl()
		}
		return p.exprOrAssignStmt()
	case token.Delete:
		p.advance()
		x, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Semi); err != nil {
			return nil, err
		}
		return &ast.Delete{Base: ast.Base{Tok: tok}, X: x}, nil
	case token.Const:
		return p.varDecl()
	default:
		return p.exprOrAssignStmt()
	}
}

func (p *parser) block() (*ast.Block, error) {
	tok := p.cur()

	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}

	seq := &ast.Seq{Base: ast.Base{Tok: tok}}

	for !p.at(token.RBrace) {
		s, err := p.stmt()
		if err != nil {
			return nil, err
		}
		seq.Stmts = append(seq.Stmts, s)
	}

	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}

	return &ast.Block{Base: ast.Base{Tok: tok}, Body: seq}, nil
}

func (p *parser) forStmt() (ast.Stmt, error) {
	tok := p.advance() // 'for'

	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.In); err != nil {
		return nil, err
	}

	iter, err := p.expr()
	if err != nil {
		return nil, err
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &ast.For{Base: ast.Base{Tok: tok}, Var: name.Text, Iter: iter, Body: body}, nil
}

func (p *parser) ifStmt() (ast.Stmt, error) {
	tok := p.advance() // 'if'

	cond, err := p.expr()
	if err != nil {
		return nil, err
	}

	then, err := p.block()
	if err != nil {
		return nil, err
	}

	n := &ast.If{Base: ast.Base{Tok: tok}, Cond: cond, Then: then}

	if p.at(token.Else) {
		p.advance()
		if p.at(token.If) {
			els, err := p.ifStmt()
			if err != nil {
				return nil, err
			}
			n.Else = els
		} else {
			els, err := p.block()
			if err != nil {
				return nil, err
			}
			n.Else = els
		}
	}

	return n, nil
}

func (p *parser) assertStmt() (ast.Stmt, error) {
	tok := p.advance() // 'assert'

	cond, err := p.expr()
	if err != nil {
		return nil, err
	}

	msg := ""
	if p.at(token.Comma) {
		p.advance()
		m, err := p.expect(token.String)
		if err != nil {
			return nil, err
		}
		msg = m.Text
	} else {
		msg = "line " + strconv.Itoa(tok.Line)
	}

	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}

	return &ast.Assert{Base: ast.Base{Tok: tok}, Cond: cond, Message: msg}, nil
}

func (p *parser) printStmt() (ast.Stmt, error) {
	tok := p.advance() // 'print'

	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}

	fmtTok, err := p.expect(token.String)
	if err != nil {
		return nil, err
	}

	var args []ast.Expr
	for p.at(token.Comma) {
		p.advance()
		a, err := p.expr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}

	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}

	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}

	return &ast.Print{Base: ast.Base{Tok: tok}, Format: fmtTok.Text, Args: args}, nil
}

func (p *parser) varDecl() (ast.Stmt, error) {
	tok := p.cur()

	addConst := false
	if p.at(token.Const) {
		p.advance()
		addConst = true
	}

	if _, err := p.expect(token.Ident); err != nil { // 'var'
		return nil, err
	}

	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}

	var typ ast.TypeExpr
	if p.at(token.Colon) {
		p.advance()
		typ, err = p.typeExpr()
		if err != nil {
			return nil, err
		}
	}

	if _, err := p.expect(token.ColonEq); err != nil {
		return nil, err
	}

	val, err := p.expr()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}

	return &ast.VarDecl{Base: ast.Base{Tok: tok}, Name: name.Text, Type: typ, AddConst: addConst, Value: val}, nil
}

func (p *parser) arenaDecl() (ast.Stmt, error) {
	tok := p.advance() // 'arena'

	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}

	return &ast.ArenaDecl{Base: ast.Base{Tok: tok}, Name: name.Text}, nil
}

func (p *parser) exprOrAssignStmt() (ast.Stmt, error) {
	tok := p.cur()

	x, err := p.expr()
	if err != nil {
		return nil, err
	}

	if p.at(token.Eq) {
		p.advance()
		rhs, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Semi); err != nil {
			return nil, err
		}
		return &ast.Assign{Base: ast.Base{Tok: tok}, LHS: x, RHS: rhs}, nil
	}

	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}

	return &ast.ExprStmt{Base: ast.Base{Tok: tok}, X: x}, nil
}

func (p *parser) templateNames() ([]string, error) {
	if !p.at(token.Bang) {
		return nil, nil
	}

	p.advance()
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}

	var names []string
	for !p.at(token.RParen) {
		id, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		names = append(names, id.Text)

		if p.at(token.Comma) {
			p.advance()
		}
	}

	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}

	return names, nil
}

func (p *parser) structDecl() (ast.Stmt, error) {
	tok := p.advance() // 'struct'

	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}

	templates, err := p.templateNames()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}

	n := &ast.StructDecl{Base: ast.Base{Tok: tok}, Name: name.Text, Templates: templates}

	for !p.at(token.RBrace) {
		if p.at(token.Fn) {
			fn, err := p.funcDecl()
			if err != nil {
				return nil, err
			}
			n.Methods = append(n.Methods, &ast.MemberFunc{Base: fn.(*ast.FuncDecl).Base, Fn: fn.(*ast.FuncDecl)})
			continue
		}

		fname, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}

		ftyp, err := p.typeExpr()
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(token.Semi); err != nil {
			return nil, err
		}

		n.Fields = append(n.Fields, ast.FieldDecl{Base: ast.Base{Tok: fname}, Name: fname.Text, Type: ftyp})
	}

	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}

	return n, nil
}

func (p *parser) funcDecl() (ast.Stmt, error) {
	tok := p.advance() // 'fn'

	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}

	templates, err := p.templateNames()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}

	var params []ast.Param
	for !p.at(token.RParen) {
		pname, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}

		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}

		ptyp, err := p.typeExpr()
		if err != nil {
			return nil, err
		}

		params = append(params, ast.Param{Base: ast.Base{Tok: pname}, Name: pname.Text, Type: ptyp})

		if p.at(token.Comma) {
			p.advance()
		}
	}

	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}

	var ret ast.TypeExpr
	if p.at(token.Arrow) {
		p.advance()
		ret, err = p.typeExpr()
		if err != nil {
			return nil, err
		}
	}

	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &ast.FuncDecl{Base: ast.Base{Tok: tok}, Name: name.Text, Templates: templates, Params: params, Return: ret, Body: body}, nil
}

// ---- type expressions ----

func (p *parser) typeExpr() (ast.TypeExpr, error) {
	var base ast.TypeExpr
	var err error

	if p.at(token.Const) {
		tok := p.advance()
		inner, err := p.typeExpr()
		if err != nil {
			return nil, err
		}
		base = &ast.ConstTypeExpr{Base: ast.Base{Tok: tok}, Inner: inner}
	} else if p.at(token.Fn) {
		base, err = p.funcPtrType()
		if err != nil {
			return nil, err
		}
	} else {
		// Fundamental type names lex as keywords, not identifiers.
		tok := p.cur()
		switch tok.Tag {
		case token.Ident, token.Bool, token.CharKw, token.I32, token.I64, token.U64, token.F64, token.Null, token.Nullptr:
			p.advance()
		default:
			return nil, errors.New("%d:%d: expected a type name, got %q", tok.Line, tok.Col, tok.Text)
		}

		n := &ast.NameTypeExpr{Base: ast.Base{Tok: tok}, Name: tok.Text}

		if p.at(token.Bang) {
			p.advance()
			if _, err := p.expect(token.LParen); err != nil {
				return nil, err
			}
			for !p.at(token.RParen) {
				a, err := p.typeExpr()
				if err != nil {
					return nil, err
				}
				n.Args = append(n.Args, a)
				if p.at(token.Comma) {
					p.advance()
				}
			}
			if _, err := p.expect(token.RParen); err != nil {
				return nil, err
			}
		}

		base = n
	}

	for {
		switch {
		case p.at(token.Const):
			tok := p.advance()
			base = &ast.ConstTypeExpr{Base: ast.Base{Tok: tok}, Inner: base}
		case p.at(token.Amp), p.at(token.Star):
			tok := p.advance()
			base = &ast.PtrTypeExpr{Base: ast.Base{Tok: tok}, Pointee: base}
		case p.at(token.LBracket):
			tok := p.advance()
			if p.at(token.RBracket) {
				p.advance()
				base = &ast.SpanTypeExpr{Base: ast.Base{Tok: tok}, Elem: base}
			} else {
				n, err := p.expect(token.Int)
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(token.RBracket); err != nil {
					return nil, err
				}
				v, _ := parseIntLiteral(n.Text)
				base = &ast.ArrayTypeExpr{Base: ast.Base{Tok: tok}, Elem: base, Count: &ast.IntLit{Base: ast.Base{Tok: n}, Value: v}}
			}
		default:
			return base, nil
		}
	}
}

func (p *parser) funcPtrType() (*ast.FuncPtrTypeExpr, error) {
	tok := p.advance() // 'fn'

	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}

	n := &ast.FuncPtrTypeExpr{Base: ast.Base{Tok: tok}}

	for !p.at(token.RParen) {
		t, err := p.typeExpr()
		if err != nil {
			return nil, err
		}
		n.Params = append(n.Params, t)
		if p.at(token.Comma) {
			p.advance()
		}
	}

	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}

	if _, err := p.expect(token.Arrow); err != nil {
		return nil, err
	}

	ret, err := p.typeExpr()
	if err != nil {
		return nil, err
	}
	n.Return = ret

	return n, nil
}

func parseIntLiteral(text string) (int64, string) {
	for i := 0; i < len(text); i++ {
		if text[i] == ' ' {
			v, _ := strconv.ParseInt(text[:i], 10, 64)
			return v, text[i+1:]
		}
	}
	v, _ := strconv.ParseInt(text, 10, 64)
	return v, ""
}
