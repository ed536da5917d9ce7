package parse

import (
	"tlog.app/go/errors"

	"github.com/slowlang/slow/src/compiler/ast"
	"github.com/slowlang/slow/src/compiler/token"
)

// precedence climbing over the binary operator table; unary/postfix are
// handled by unary()/postfix().
var binPrec = map[token.Tag]int{
	token.PipePipe: 1,
	token.AmpAmp:   2,
	token.EqEq:     3, token.BangEq: 3,
	token.Lt: 4, token.Le: 4, token.Gt: 4, token.Ge: 4,
	token.Plus: 5, token.Minus: 5,
	token.Star: 6, token.Slash: 6, token.Percent: 6,
}

var opText = map[token.Tag]string{
	token.PipePipe: "||", token.AmpAmp: "&&",
	token.EqEq: "==", token.BangEq: "!=",
	token.Lt: "<", token.Le: "<=", token.Gt: ">", token.Ge: ">=",
	token.Plus: "+", token.Minus: "-",
	token.Star: "*", token.Slash: "/", token.Percent: "%",
}

func (p *parser) expr() (ast.Expr, error) {
	return p.binary(1)
}

func (p *parser) binary(minPrec int) (ast.Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}

	for {
		prec, ok := binPrec[p.cur().Tag]
		if !ok || prec < minPrec {
			return left, nil
		}

		tok := p.advance()

		right, err := p.binary(prec + 1)
		if err != nil {
			return nil, err
		}

		left = &ast.Binary{Base: ast.Base{Tok: tok}, Op: opText[tok.Tag], Left: left, Right: right}
	}
}

func (p *parser) unary() (ast.Expr, error) {
	tok := p.cur()

	switch tok.Tag {
	case token.Minus, token.Bang, token.Tilde:
		p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Base: ast.Base{Tok: tok}, Op: opText2(tok.Tag), X: x}, nil
	case token.Amp:
		p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.AddrOf{Base: ast.Base{Tok: tok}, X: x}, nil
	case token.Star:
		p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.Deref{Base: ast.Base{Tok: tok}, X: x}, nil
	default:
		return p.postfix()
	}
}

func opText2(tag token.Tag) string {
	switch tag {
	case token.Minus:
		return "-"
	case token.Bang:
		return "!"
	case token.Tilde:
		return "~"
	}
	return "?"
}

func (p *parser) postfix() (ast.Expr, error) {
	x, err := p.primary()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.at(token.Dot):
			tok := p.advance()
			name, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			x = &ast.Field{Base: ast.Base{Tok: tok}, X: x, Field: name.Text}
		case p.at(token.LParen):
			tok := p.advance()
			var args []ast.Expr
			for !p.at(token.RParen) {
				a, err := p.expr()
				if err != nil {
					return nil, err
				}
				args = append(args, a)
				if p.at(token.Comma) {
					p.advance()
				}
			}
			if _, err := p.expect(token.RParen); err != nil {
				return nil, err
			}
			x = &ast.Call{Base: ast.Base{Tok: tok}, Callee: x, Args: args}
		case p.at(token.LBracket):
			var err error
			x, err = p.subscriptOrSpan(x)
			if err != nil {
				return nil, err
			}
		default:
			return x, nil
		}
	}
}

func (p *parser) subscriptOrSpan(x ast.Expr) (ast.Expr, error) {
	tok := p.advance() // '['

	if p.at(token.Colon) {
		p.advance()
		if _, err := p.expect(token.RBracket); err != nil {
			return nil, err
		}
		return &ast.SpanExpr{Base: ast.Base{Tok: tok}, X: x}, nil
	}

	idx, err := p.expr()
	if err != nil {
		return nil, err
	}

	if p.at(token.Colon) {
		p.advance()
		hi, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBracket); err != nil {
			return nil, err
		}
		return &ast.SpanExpr{Base: ast.Base{Tok: tok}, X: x, Lo: idx, Hi: hi}, nil
	}

	if _, err := p.expect(token.RBracket); err != nil {
		return nil, err
	}

	return &ast.Subscript{Base: ast.Base{Tok: tok}, X: x, Index: idx}, nil
}

func (p *parser) primary() (ast.Expr, error) {
	tok := p.cur()

	switch tok.Tag {
	case token.Int:
		p.advance()
		v, suffix := parseIntLiteral(tok.Text)
		return &ast.IntLit{Base: ast.Base{Tok: tok}, Value: v, Suffix: suffix}, nil
	case token.Float:
		p.advance()
		v, err := parseFloat(tok.Text)
		if err != nil {
			return nil, err
		}
		return &ast.FloatLit{Base: ast.Base{Tok: tok}, Value: v}, nil
	case token.True:
		p.advance()
		return &ast.BoolLit{Base: ast.Base{Tok: tok}, Value: true}, nil
	case token.False:
		p.advance()
		return &ast.BoolLit{Base: ast.Base{Tok: tok}, Value: false}, nil
	case token.Char:
		p.advance()
		var b byte
		if len(tok.Text) > 0 {
			b = tok.Text[0]
		}
		return &ast.CharLit{Base: ast.Base{Tok: tok}, Value: b}, nil
	case token.String:
		p.advance()
		return &ast.StringLit{Base: ast.Base{Tok: tok}, Value: tok.Text}, nil
	case token.Null:
		p.advance()
		return &ast.NullLit{Base: ast.Base{Tok: tok}}, nil
	case token.Nullptr:
		p.advance()
		return &ast.NullptrLit{Base: ast.Base{Tok: tok}}, nil
	case token.LParen:
		p.advance()
		x, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return x, nil
	case token.LBracket:
		return p.arrayLit()
	case token.Sizeof:
		return p.sizeofExpr()
	case token.Typeof:
		p.advance()
		if _, err := p.expect(token.LParen); err != nil {
			return nil, err
		}
		x, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return &ast.TypeofExpr{Base: ast.Base{Tok: tok}, X: x}, nil
	case token.New:
		return p.newExpr()
	case token.Fn:
		t, err := p.funcPtrType()
		if err != nil {
			return nil, err
		}
		return &ast.FuncPtrTypeLit{Base: ast.Base{Tok: tok}, Type: t}, nil
	case token.Ident:
		p.advance()
		n := &ast.Name{Base: ast.Base{Tok: tok}, Name: tok.Text}

		if p.at(token.Bang) && p.peek(1).Tag == token.LParen {
			p.advance()
			p.advance()
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

		return n, nil
	default:
		return nil, errors.New("%d:%d: unexpected token %q in expression", tok.Line, tok.Col, tok.Text)
	}
}

// arrayLit parses `[e1, e2, ...]` (ArrayLit) or `[value; count]`
// (RepeatArrayLit). An empty `[]` is rejected at the compiler stage per
// §8.3, not here, since the parser has no type information.
func (p *parser) arrayLit() (ast.Expr, error) {
	tok := p.advance() // '['

	if p.at(token.RBracket) {
		p.advance()
		return &ast.ArrayLit{Base: ast.Base{Tok: tok}}, nil
	}

	first, err := p.expr()
	if err != nil {
		return nil, err
	}

	if p.at(token.Semi) {
		p.advance()
		count, err := p.expr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBracket); err != nil {
			return nil, err
		}
		return &ast.RepeatArrayLit{Base: ast.Base{Tok: tok}, Value: first, Count: count}, nil
	}

	elems := []ast.Expr{first}
	for p.at(token.Comma) {
		p.advance()
		if p.at(token.RBracket) {
			break
		}
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
	}

	if _, err := p.expect(token.RBracket); err != nil {
		return nil, err
	}

	return &ast.ArrayLit{Base: ast.Base{Tok: tok}, Elems: elems}, nil
}

func (p *parser) sizeofExpr() (ast.Expr, error) {
	tok := p.advance() // 'sizeof'

	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}

	save := p.i
	if t, err := p.typeExpr(); err == nil && p.at(token.RParen) {
		p.advance()
		return &ast.SizeofExpr{Base: ast.Base{Tok: tok}, Type: t}, nil
	}
	p.i = save

	x, err := p.expr()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}

	return &ast.SizeofExpr{Base: ast.Base{Tok: tok}, X: x}, nil
}

// newExpr parses this repo's chosen `new` surface syntax (§9 Open
// Question, decided in DESIGN.md): `new T(args) using arena` for a single
// object, `new T : count using arena` for an array.
func (p *parser) newExpr() (ast.Expr, error) {
	tok := p.advance() // 'new'

	typ, err := p.typeExpr()
	if err != nil {
		return nil, err
	}

	n := &ast.NewExpr{Base: ast.Base{Tok: tok}, Type: typ}

	switch {
	case p.at(token.LParen):
		p.advance()
		for !p.at(token.RParen) {
			a, err := p.expr()
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
	case p.at(token.Colon):
		p.advance()
		count, err := p.expr()
		if err != nil {
			return nil, err
		}
		n.Count = count
	}

	if !(p.at(token.Ident) && p.cur().Text == "using") {
		return nil, errors.New("%d:%d: expected 'using' in new-expression", p.cur().Line, p.cur().Col)
	}
	p.advance()

	arenaExpr, err := p.expr()
	if err != nil {
		return nil, err
	}
	n.Arena = arenaExpr

	return n, nil
}

func parseFloat(text string) (float64, error) {
	var v float64
	var frac float64 = 1
	seenDot := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '.' {
			seenDot = true
			continue
		}
		d := float64(c - '0')
		if seenDot {
			frac /= 10
			v += d * frac
		} else {
			v = v*10 + d
		}
	}

	return v, nil
}
