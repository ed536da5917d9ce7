// Package lex is the lexer: an out-of-core collaborator (§1) that turns
// source text into the token stream shape specified in §6.1. Its job ends
// at producing tagged lexemes with source position; the real engineering
// is downstream in compiler/front.
package lex

import (
	"strconv"

	"tlog.app/go/errors"

	"github.com/slowlang/slow/src/compiler/token"
)

type Lexer struct {
	src        []byte
	i          int
	line, col  int
}

func New(src []byte) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

// All lexes the entire source into a token stream, ending in one EOF
// token, per §6.1.
func All(src []byte) ([]token.Token, error) {
	l := New(src)

	var toks []token.Token
	for {
		t, err := l.Next()
		if err != nil {
			return nil, err
		}

		toks = append(toks, t)

		if t.Tag == token.EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) Next() (token.Token, error) {
	l.skipSpaceAndComments()

	line, col := l.line, l.col

	if l.i >= len(l.src) {
		return token.Token{Tag: token.EOF, Line: line, Col: col}, nil
	}

	c := l.src[l.i]

	switch {
	case isDigit(c):
		return l.lexNumber(line, col)
	case isIdentStart(c):
		return l.lexIdent(line, col)
	case c == '"':
		return l.lexString(line, col)
	case c == '\'':
		return l.lexChar(line, col)
	default:
		return l.lexPunct(line, col)
	}
}

func (l *Lexer) lexIdent(line, col int) (token.Token, error) {
	st := l.i
	for l.i < len(l.src) && isIdentPart(l.src[l.i]) {
		l.advance()
	}

	text := string(l.src[st:l.i])

	tag := token.Ident
	if kw, ok := token.Lookup(text); ok {
		tag = kw
	}

	return token.Token{Tag: tag, Text: text, Line: line, Col: col}, nil
}

func (l *Lexer) lexNumber(line, col int) (token.Token, error) {
	st := l.i
	isFloat := false

	for l.i < len(l.src) && isDigit(l.src[l.i]) {
		l.advance()
	}

	if l.i < len(l.src) && l.src[l.i] == '.' && l.i+1 < len(l.src) && isDigit(l.src[l.i+1]) {
		isFloat = true
		l.advance()
		for l.i < len(l.src) && isDigit(l.src[l.i]) {
			l.advance()
		}
	}

	digits := string(l.src[st:l.i])

	// optional suffix: i32, i64, u, u64
	sufSt := l.i
	for l.i < len(l.src) && isIdentPart(l.src[l.i]) {
		l.advance()
	}
	suffix := string(l.src[sufSt:l.i])

	if isFloat {
		if suffix != "" {
			return token.Token{}, errors.New("%d:%d: float literal cannot have suffix %q", line, col, suffix)
		}
		return token.Token{Tag: token.Float, Text: digits, Line: line, Col: col}, nil
	}

	text := digits
	if suffix != "" {
		text += " " + suffix
	}

	return token.Token{Tag: token.Int, Text: text, Line: line, Col: col}, nil
}

func (l *Lexer) lexString(line, col int) (token.Token, error) {
	l.advance() // opening quote

	st := l.i
	for l.i < len(l.src) && l.src[l.i] != '"' {
		if l.src[l.i] == '\\' {
			l.advance()
		}
		l.advance()
	}

	if l.i >= len(l.src) {
		return token.Token{}, errors.New("%d:%d: unterminated string literal", line, col)
	}

	raw := string(l.src[st:l.i])
	l.advance() // closing quote

	return token.Token{Tag: token.String, Text: unescape(raw), Line: line, Col: col}, nil
}

func (l *Lexer) lexChar(line, col int) (token.Token, error) {
	l.advance() // opening quote

	if l.i >= len(l.src) {
		return token.Token{}, errors.New("%d:%d: unterminated char literal", line, col)
	}

	st := l.i
	if l.src[l.i] == '\\' {
		l.advance()
	}
	l.advance()

	raw := string(l.src[st:l.i])

	if l.i >= len(l.src) || l.src[l.i] != '\'' {
		return token.Token{}, errors.New("%d:%d: unterminated char literal", line, col)
	}
	l.advance()

	return token.Token{Tag: token.Char, Text: unescape(raw), Line: line, Col: col}, nil
}

type punctRule struct {
	text string
	tag  token.Tag
}

// ordered longest-first so multi-byte punctuation wins over its prefix.
var puncts = []punctRule{
	{":=", token.ColonEq}, {"->", token.Arrow},
	{"&&", token.AmpAmp}, {"||", token.PipePipe},
	{"!=", token.BangEq}, {"==", token.EqEq},
	{"<=", token.Le}, {">=", token.Ge},
	{"(", token.LParen}, {")", token.RParen},
	{"{", token.LBrace}, {"}", token.RBrace},
	{"[", token.LBracket}, {"]", token.RBracket},
	{";", token.Semi}, {",", token.Comma}, {".", token.Dot}, {":", token.Colon},
	{"&", token.Amp}, {"|", token.Pipe}, {"!", token.Bang}, {"=", token.Eq},
	{"<", token.Lt}, {">", token.Gt},
	{"+", token.Plus}, {"-", token.Minus}, {"*", token.Star}, {"/", token.Slash},
	{"%", token.Percent}, {"~", token.Tilde},
}

func (l *Lexer) lexPunct(line, col int) (token.Token, error) {
	rest := l.src[l.i:]

	for _, r := range puncts {
		if len(rest) >= len(r.text) && string(rest[:len(r.text)]) == r.text {
			for range r.text {
				l.advance()
			}
			return token.Token{Tag: r.tag, Text: r.text, Line: line, Col: col}, nil
		}
	}

	return token.Token{}, errors.New("%d:%d: unexpected character %q", line, col, rest[0])
}

func (l *Lexer) skipSpaceAndComments() {
	for l.i < len(l.src) {
		c := l.src[l.i]

		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '#':
			for l.i < len(l.src) && l.src[l.i] != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) advance() {
	if l.src[l.i] == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	l.i++
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) }

func unescape(s string) string {
	out, err := strconv.Unquote(`"` + s + `"`)
	if err != nil {
		return s
	}
	return out
}
