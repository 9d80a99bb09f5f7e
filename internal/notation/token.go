package notation

import "fmt"

type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenIdent
	TokenString
	TokenNumber
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenColon
	TokenSpecializes // :>
	TokenAssign
	TokenSemicolon
	TokenComma
	TokenDot
	TokenDotDot
	TokenDoubleColon // ::
	TokenStar
)

var tokenNames = map[TokenKind]string{
	TokenEOF:         "end of input",
	TokenIdent:       "identifier",
	TokenString:      "string literal",
	TokenNumber:      "number literal",
	TokenLBrace:      "'{'",
	TokenRBrace:      "'}'",
	TokenLBracket:    "'['",
	TokenRBracket:    "']'",
	TokenColon:       "':'",
	TokenSpecializes: "':>'",
	TokenAssign:      "'='",
	TokenSemicolon:   "';'",
	TokenComma:       "','",
	TokenDot:         "'.'",
	TokenDotDot:      "'..'",
	TokenDoubleColon: "'::'",
	TokenStar:        "'*'",
}

func (k TokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(k))
}

type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

type Token struct {
	Kind TokenKind
	Text string
	Pos  Position
}

// Keywords of the supported notation subset. They are contextual: the
// parser decides whether an identifier acts as a keyword, so model element
// names may still use them where unambiguous.
const (
	kwPackage     = "package"
	kwPart        = "part"
	kwAttribute   = "attribute"
	kwDef         = "def"
	kwImport      = "import"
	kwSpecializes = "specializes"
	kwDoc         = "doc"
	kwTrue        = "true"
	kwFalse       = "false"
)
