package notation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type lexer struct {
	src    string
	offset int
	line   int
	column int
	diags  *Diagnostics
}

func newLexer(src string, diags *Diagnostics) *lexer {
	return &lexer{src: src, line: 1, column: 1, diags: diags}
}

func (l *lexer) pos() Position {
	return Position{Line: l.line, Column: l.column}
}

func (l *lexer) peek() rune {
	if l.offset >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.offset:])
	return r
}

func (l *lexer) peekAt(n int) rune {
	off := l.offset
	for i := 0; i < n; i++ {
		if off >= len(l.src) {
			return 0
		}
		_, size := utf8.DecodeRuneInString(l.src[off:])
		off += size
	}
	if off >= len(l.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[off:])
	return r
}

func (l *lexer) advance() rune {
	if l.offset >= len(l.src) {
		return 0
	}
	r, size := utf8.DecodeRuneInString(l.src[l.offset:])
	l.offset += size
	if r == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return r
}

func (l *lexer) skipSpaceAndComments() {
	for {
		r := l.peek()
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			l.advance()
		case r == '/' && l.peekAt(1) == '/':
			for l.peek() != '\n' && l.peek() != 0 {
				l.advance()
			}
		case r == '/' && l.peekAt(1) == '*':
			start := l.pos()
			l.advance()
			l.advance()
			closed := false
			for l.peek() != 0 {
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				l.diags.errorf(start, "unterminated block comment")
			}
		default:
			return
		}
	}
}

// docBody consumes the block comment following a 'doc' keyword and returns
// its cleaned body. Must be called while the parser still sits on the 'doc'
// token, before the comment is skipped as trivia.
func (l *lexer) docBody() (string, bool) {
	for {
		r := l.peek()
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			l.advance()
			continue
		}
		break
	}
	if l.peek() != '/' || l.peekAt(1) != '*' {
		return "", false
	}

	start := l.pos()
	l.advance()
	l.advance()
	var sb strings.Builder
	closed := false
	for l.peek() != 0 {
		if l.peek() == '*' && l.peekAt(1) == '/' {
			l.advance()
			l.advance()
			closed = true
			break
		}
		sb.WriteRune(l.advance())
	}
	if !closed {
		l.diags.errorf(start, "unterminated block comment")
	}
	return cleanDocBody(sb.String()), true
}

// cleanDocBody trims the decoration conventional in doc comments: leading
// asterisks and shared indentation.
func cleanDocBody(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func (l *lexer) next() Token {
	l.skipSpaceAndComments()

	pos := l.pos()
	r := l.peek()

	switch {
	case r == 0:
		return Token{Kind: TokenEOF, Pos: pos}
	case r == '{':
		l.advance()
		return Token{Kind: TokenLBrace, Text: "{", Pos: pos}
	case r == '}':
		l.advance()
		return Token{Kind: TokenRBrace, Text: "}", Pos: pos}
	case r == '[':
		l.advance()
		return Token{Kind: TokenLBracket, Text: "[", Pos: pos}
	case r == ']':
		l.advance()
		return Token{Kind: TokenRBracket, Text: "]", Pos: pos}
	case r == ';':
		l.advance()
		return Token{Kind: TokenSemicolon, Text: ";", Pos: pos}
	case r == ',':
		l.advance()
		return Token{Kind: TokenComma, Text: ",", Pos: pos}
	case r == '=':
		l.advance()
		return Token{Kind: TokenAssign, Text: "=", Pos: pos}
	case r == '*':
		l.advance()
		return Token{Kind: TokenStar, Text: "*", Pos: pos}
	case r == ':':
		l.advance()
		if l.peek() == '>' {
			l.advance()
			return Token{Kind: TokenSpecializes, Text: ":>", Pos: pos}
		}
		if l.peek() == ':' {
			l.advance()
			return Token{Kind: TokenDoubleColon, Text: "::", Pos: pos}
		}
		return Token{Kind: TokenColon, Text: ":", Pos: pos}
	case r == '.':
		l.advance()
		if l.peek() == '.' {
			l.advance()
			return Token{Kind: TokenDotDot, Text: "..", Pos: pos}
		}
		return Token{Kind: TokenDot, Text: ".", Pos: pos}
	case r == '"':
		return l.lexString(pos)
	case r == '\'':
		return l.lexQuotedName(pos)
	case unicode.IsDigit(r) || (r == '-' && unicode.IsDigit(l.peekAt(1))):
		return l.lexNumber(pos)
	case unicode.IsLetter(r) || r == '_':
		return l.lexIdent(pos)
	default:
		l.advance()
		l.diags.errorf(pos, "unexpected character %q", r)
		return l.next()
	}
}

func (l *lexer) lexString(pos Position) Token {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		r := l.peek()
		if r == 0 || r == '\n' {
			l.diags.errorf(pos, "unterminated string literal")
			break
		}
		l.advance()
		if r == '"' {
			break
		}
		if r == '\\' {
			esc := l.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '"', '\\':
				sb.WriteRune(esc)
			default:
				l.diags.errorf(pos, "unknown escape sequence %q", fmt.Sprintf("\\%c", esc))
				sb.WriteRune(esc)
			}
			continue
		}
		sb.WriteRune(r)
	}
	return Token{Kind: TokenString, Text: sb.String(), Pos: pos}
}

// lexQuotedName handles 'unrestricted names' which the notation allows for
// identifiers containing spaces or reserved words.
func (l *lexer) lexQuotedName(pos Position) Token {
	l.advance()
	var sb strings.Builder
	for {
		r := l.peek()
		if r == 0 || r == '\n' {
			l.diags.errorf(pos, "unterminated quoted name")
			break
		}
		l.advance()
		if r == '\'' {
			break
		}
		sb.WriteRune(r)
	}
	return Token{Kind: TokenIdent, Text: sb.String(), Pos: pos}
}

func (l *lexer) lexNumber(pos Position) Token {
	var sb strings.Builder
	if l.peek() == '-' {
		sb.WriteRune(l.advance())
	}
	seenDot := false
	for {
		r := l.peek()
		if unicode.IsDigit(r) {
			sb.WriteRune(l.advance())
			continue
		}
		// A single '.' followed by a digit continues the literal; '..'
		// belongs to a multiplicity range.
		if r == '.' && !seenDot && unicode.IsDigit(l.peekAt(1)) {
			seenDot = true
			sb.WriteRune(l.advance())
			continue
		}
		break
	}
	return Token{Kind: TokenNumber, Text: sb.String(), Pos: pos}
}

func (l *lexer) lexIdent(pos Position) Token {
	var sb strings.Builder
	for {
		r := l.peek()
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			sb.WriteRune(l.advance())
			continue
		}
		break
	}
	return Token{Kind: TokenIdent, Text: sb.String(), Pos: pos}
}
