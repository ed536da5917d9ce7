// Package token defines the tag set emitted by the lexer, as consumed by
// the parser and referenced from every AST node for diagnostics.
package token

// Tag is the closed set of lexeme kinds the lexer may produce.
type Tag int

const (
	EOF Tag = iota

	Ident
	Int
	Float
	Char
	String

	// keywords
	Assert
	Bool
	Break
	CharKw
	Const
	Continue
	Delete
	Else
	F64
	False
	For
	Fn
	I32
	I64
	If
	Import
	In
	Loop
	New
	Null
	Nullptr
	Return
	Sizeof
	Struct
	True
	Typeof
	U64
	While

	// punctuation
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semi
	Comma
	Dot
	Colon
	ColonEq
	Arrow
	Amp
	AmpAmp
	Pipe
	PipePipe
	Bang
	BangEq
	Eq
	EqEq
	Lt
	Le
	Gt
	Ge
	Plus
	Minus
	Star
	Slash
	Percent
	Tilde
)

var keywords = map[string]Tag{
	"assert":   Assert,
	"bool":     Bool,
	"break":    Break,
	"char":     CharKw,
	"const":    Const,
	"continue": Continue,
	"delete":   Delete,
	"else":     Else,
	"f64":      F64,
	"false":    False,
	"for":      For,
	"fn":       Fn,
	"i32":      I32,
	"i64":      I64,
	"if":       If,
	"import":   Import,
	"in":       In,
	"loop":     Loop,
	"new":      New,
	"null":     Null,
	"nullptr":  Nullptr,
	"return":   Return,
	"sizeof":   Sizeof,
	"struct":   Struct,
	"true":     True,
	"typeof":   Typeof,
	"u64":      U64,
	"while":    While,
}

// Lookup returns the keyword tag for text, or (Ident, false) if text is a
// plain identifier.
func Lookup(text string) (Tag, bool) {
	t, ok := keywords[text]
	if !ok {
		return Ident, false
	}
	return t, true
}

// Token is one lexeme: its text, source position, and tag.
type Token struct {
	Tag  Tag
	Text string
	Line int
	Col  int
}

func (t Token) String() string {
	return t.Text
}
