package notation

import (
	"errors"
	"strings"
)

// ErrParse is returned when a source contains at least one error-severity
// diagnostic. The diagnostics carry the details.
var ErrParse = errors.New("notation parse failed")

type parser struct {
	lex   *lexer
	tok   Token
	diags *Diagnostics
}

// Parse loads a textual model. The returned diagnostics may contain
// warnings even on success; err is non-nil only when errors were reported.
func Parse(src string) (*Model, *Diagnostics, error) {
	diags := &Diagnostics{}
	p := &parser{lex: newLexer(src, diags), diags: diags}
	p.advance()

	m := &Model{}
	for p.tok.Kind != TokenEOF {
		if p.tok.Kind == TokenIdent && p.tok.Text == kwPackage {
			if pkg := p.parsePackage(); pkg != nil {
				m.Packages = append(m.Packages, pkg)
			}
			continue
		}
		p.diags.errorf(p.tok.Pos, "expected 'package', found %s", p.describe())
		p.recover()
	}

	if diags.HasErrors() {
		return m, diags, ErrParse
	}
	return m, diags, nil
}

func (p *parser) advance() {
	p.tok = p.lex.next()
}

func (p *parser) describe() string {
	if p.tok.Kind == TokenIdent || p.tok.Kind == TokenNumber {
		return "'" + p.tok.Text + "'"
	}
	return p.tok.Kind.String()
}

func (p *parser) expect(kind TokenKind) Token {
	tok := p.tok
	if tok.Kind != kind {
		p.diags.errorf(tok.Pos, "expected %s, found %s", kind, p.describe())
		return Token{Kind: kind, Pos: tok.Pos}
	}
	p.advance()
	return tok
}

func (p *parser) atKeyword(kw string) bool {
	return p.tok.Kind == TokenIdent && p.tok.Text == kw
}

func (p *parser) expectKeyword(kw string) {
	if !p.atKeyword(kw) {
		p.diags.errorf(p.tok.Pos, "expected '%s', found %s", kw, p.describe())
		return
	}
	p.advance()
}

// recover skips ahead to the next statement boundary after an error.
func (p *parser) recover() {
	depth := 0
	for p.tok.Kind != TokenEOF {
		switch p.tok.Kind {
		case TokenSemicolon:
			if depth == 0 {
				p.advance()
				return
			}
		case TokenLBrace:
			depth++
		case TokenRBrace:
			if depth == 0 {
				return
			}
			depth--
		}
		p.advance()
	}
}

func (p *parser) parseQualifiedName() string {
	var parts []string
	parts = append(parts, p.expect(TokenIdent).Text)
	for p.tok.Kind == TokenDoubleColon {
		// A trailing ::* belongs to an import, not the name.
		if p.lexPeekStar() {
			break
		}
		p.advance()
		parts = append(parts, p.expect(TokenIdent).Text)
	}
	return strings.Join(parts, "::")
}

// lexPeekStar reports whether the current '::' is followed by '*'. The
// lexer has no lookahead buffer, so probe the raw input.
func (p *parser) lexPeekStar() bool {
	rest := p.lex.src[p.lex.offset:]
	rest = strings.TrimLeft(rest, " \t\r\n")
	return strings.HasPrefix(rest, "*")
}

func (p *parser) parsePackage() *Package {
	p.expectKeyword(kwPackage)
	name := p.expect(TokenIdent)
	if name.Text == "" {
		p.recover()
		return nil
	}

	pkg := &Package{Name: name.Text}

	if p.tok.Kind == TokenSemicolon {
		p.advance()
		return pkg
	}

	p.expect(TokenLBrace)
	for p.tok.Kind != TokenRBrace && p.tok.Kind != TokenEOF {
		p.parsePackageMember(pkg)
	}
	p.expect(TokenRBrace)
	return pkg
}

// parseDoc consumes `doc /* body */` into dst. The comment must be read
// from the lexer before advancing, or it is skipped as trivia.
func (p *parser) parseDoc(dst *string) {
	pos := p.tok.Pos
	body, ok := p.lex.docBody()
	p.advance()
	if !ok {
		p.diags.errorf(pos, "expected /* comment */ after 'doc'")
		return
	}
	if *dst != "" {
		p.diags.warnf(pos, "duplicate doc comment replaces the previous one")
	}
	*dst = body
}

func (p *parser) parsePackageMember(pkg *Package) {
	switch {
	case p.atKeyword(kwDoc):
		p.parseDoc(&pkg.Doc)
	case p.atKeyword(kwImport):
		if imp := p.parseImport(); imp != nil {
			pkg.Imports = append(pkg.Imports, imp)
		}
	case p.atKeyword(kwPackage):
		if nested := p.parsePackage(); nested != nil {
			pkg.Members = append(pkg.Members, nested)
		}
	default:
		if member := p.parseMember(); member != nil {
			pkg.Members = append(pkg.Members, member)
		}
	}
}

func (p *parser) parseImport() *Import {
	p.expectKeyword(kwImport)
	imp := &Import{Target: p.parseQualifiedName()}
	if p.tok.Kind == TokenDoubleColon {
		p.advance()
		p.expect(TokenStar)
		imp.Wildcard = true
	}
	p.expect(TokenSemicolon)
	return imp
}

func (p *parser) parseMember() Member {
	switch {
	case p.atKeyword(kwPart):
		return p.parsePart()
	case p.atKeyword(kwAttribute):
		return p.parseAttribute()
	default:
		p.diags.errorf(p.tok.Pos, "expected member declaration, found %s", p.describe())
		p.recover()
		return nil
	}
}

func (p *parser) parsePart() Member {
	p.expectKeyword(kwPart)

	if p.atKeyword(kwDef) {
		p.advance()
		return p.parsePartDef()
	}
	return p.parsePartUsage()
}

func (p *parser) parsePartDef() Member {
	def := &PartDef{Name: p.expect(TokenIdent).Text}
	def.Specializes = p.parseSpecializes()

	if p.tok.Kind == TokenSemicolon {
		p.advance()
		return def
	}

	p.expect(TokenLBrace)
	for p.tok.Kind != TokenRBrace && p.tok.Kind != TokenEOF {
		if p.atKeyword(kwDoc) {
			p.parseDoc(&def.Doc)
			continue
		}
		if member := p.parseMember(); member != nil {
			def.Members = append(def.Members, member)
		}
	}
	p.expect(TokenRBrace)
	return def
}

func (p *parser) parsePartUsage() Member {
	usage := &PartUsage{Name: p.expect(TokenIdent).Text}

	if p.tok.Kind == TokenColon {
		p.advance()
		usage.TypeName = p.parseQualifiedName()
	}
	usage.Multiplicity = p.parseMultiplicity()

	if p.tok.Kind == TokenLBrace {
		p.advance()
		for p.tok.Kind != TokenRBrace && p.tok.Kind != TokenEOF {
			if member := p.parseMember(); member != nil {
				usage.Members = append(usage.Members, member)
			}
		}
		p.expect(TokenRBrace)
		return usage
	}

	p.expect(TokenSemicolon)
	return usage
}

func (p *parser) parseAttribute() Member {
	p.expectKeyword(kwAttribute)

	if p.atKeyword(kwDef) {
		p.advance()
		def := &AttrDef{Name: p.expect(TokenIdent).Text}
		def.Specializes = p.parseSpecializes()
		p.expect(TokenSemicolon)
		return def
	}

	usage := &AttrUsage{Name: p.expect(TokenIdent).Text}
	if p.tok.Kind == TokenColon {
		p.advance()
		usage.TypeName = p.parseQualifiedName()
	}
	usage.Multiplicity = p.parseMultiplicity()

	if p.tok.Kind == TokenAssign {
		p.advance()
		usage.Value = p.parseLiteral()
	}
	p.expect(TokenSemicolon)
	return usage
}

func (p *parser) parseSpecializes() []string {
	if p.tok.Kind != TokenSpecializes && !p.atKeyword(kwSpecializes) {
		return nil
	}
	p.advance()

	var targets []string
	targets = append(targets, p.parseQualifiedName())
	for p.tok.Kind == TokenComma {
		p.advance()
		targets = append(targets, p.parseQualifiedName())
	}
	return targets
}

func (p *parser) parseMultiplicity() *Multiplicity {
	if p.tok.Kind != TokenLBracket {
		return nil
	}
	p.advance()

	lower := p.parseBound()
	mult := &Multiplicity{Lower: lower, Upper: lower}
	if p.tok.Kind == TokenDotDot {
		p.advance()
		mult.Upper = p.parseBound()
	}
	p.expect(TokenRBracket)
	return mult
}

func (p *parser) parseBound() string {
	switch p.tok.Kind {
	case TokenNumber:
		text := p.tok.Text
		p.advance()
		return text
	case TokenStar:
		p.advance()
		return "*"
	default:
		p.diags.errorf(p.tok.Pos, "expected multiplicity bound, found %s", p.describe())
		p.advance()
		return "1"
	}
}

func (p *parser) parseLiteral() *Literal {
	tok := p.tok
	switch {
	case tok.Kind == TokenString:
		p.advance()
		return &Literal{Kind: LiteralString, Text: tok.Text}
	case tok.Kind == TokenNumber:
		p.advance()
		return &Literal{Kind: LiteralNumber, Text: tok.Text}
	case tok.Kind == TokenIdent && (tok.Text == kwTrue || tok.Text == kwFalse):
		p.advance()
		return &Literal{Kind: LiteralBoolean, Text: tok.Text}
	default:
		p.diags.errorf(tok.Pos, "expected literal value, found %s", p.describe())
		p.advance()
		return nil
	}
}
