package notation

import (
	"strconv"
	"strings"
)

// PrinterConfig controls the rendered text. Defaults match what the rest of
// the toolchain expects when diffing rendered models.
type PrinterConfig struct {
	LineWidth int
	TabWidth  int
}

func DefaultPrinterConfig() PrinterConfig {
	return PrinterConfig{LineWidth: 80, TabWidth: 2}
}

type printer struct {
	cfg PrinterConfig
	sb  strings.Builder
}

// Print renders the model as canonical textual notation.
func Print(m *Model, cfg PrinterConfig) string {
	if cfg.LineWidth <= 0 {
		cfg.LineWidth = DefaultPrinterConfig().LineWidth
	}
	if cfg.TabWidth <= 0 {
		cfg.TabWidth = DefaultPrinterConfig().TabWidth
	}

	p := &printer{cfg: cfg}
	for i, pkg := range m.Packages {
		if i > 0 {
			p.sb.WriteByte('\n')
		}
		p.printPackage(pkg, 0)
	}
	return p.sb.String()
}

func (p *printer) indent(depth int) string {
	return strings.Repeat(" ", depth*p.cfg.TabWidth)
}

func (p *printer) line(depth int, text string) {
	p.sb.WriteString(p.indent(depth))
	p.sb.WriteString(text)
	p.sb.WriteByte('\n')
}

func (p *printer) printPackage(pkg *Package, depth int) {
	if pkg.Doc == "" && len(pkg.Imports) == 0 && len(pkg.Members) == 0 {
		p.line(depth, "package "+quoteName(pkg.Name)+";")
		return
	}

	p.line(depth, "package "+quoteName(pkg.Name)+" {")
	p.printDoc(pkg.Doc, depth+1)
	for _, imp := range pkg.Imports {
		target := imp.Target
		if imp.Wildcard {
			target += "::*"
		}
		p.line(depth+1, "import "+target+";")
	}
	for _, member := range pkg.Members {
		p.printMember(member, depth+1)
	}
	p.line(depth, "}")
}

func (p *printer) printMember(member Member, depth int) {
	switch m := member.(type) {
	case *Package:
		p.printPackage(m, depth)
	case *PartDef:
		p.printPartDef(m, depth)
	case *AttrDef:
		p.line(depth, p.defHeader("attribute def", m.Name, m.Specializes, depth)+";")
	case *PartUsage:
		p.printPartUsage(m, depth)
	case *AttrUsage:
		p.printAttrUsage(m, depth)
	}
}

func (p *printer) printPartDef(def *PartDef, depth int) {
	header := p.defHeader("part def", def.Name, def.Specializes, depth)
	if def.Doc == "" && len(def.Members) == 0 {
		p.line(depth, header+";")
		return
	}

	p.line(depth, header+" {")
	p.printDoc(def.Doc, depth+1)
	for _, member := range def.Members {
		p.printMember(member, depth+1)
	}
	p.line(depth, "}")
}

func (p *printer) printDoc(doc string, depth int) {
	if doc == "" {
		return
	}
	if !strings.Contains(doc, "\n") {
		p.line(depth, "doc /* "+doc+" */")
		return
	}
	p.line(depth, "doc /*")
	for _, docLine := range strings.Split(doc, "\n") {
		p.line(depth+1, docLine)
	}
	p.line(depth, "*/")
}

// defHeader renders `kind Name :> A, B`, breaking the specialization list
// across lines when it would overflow the configured width.
func (p *printer) defHeader(kind, name string, specializes []string, depth int) string {
	header := kind + " " + quoteName(name)
	if len(specializes) == 0 {
		return header
	}

	oneLine := header + " :> " + strings.Join(specializes, ", ")
	if len(p.indent(depth))+len(oneLine) <= p.cfg.LineWidth {
		return oneLine
	}

	sep := ",\n" + p.indent(depth+2)
	return header + " :>\n" + p.indent(depth+2) + strings.Join(specializes, sep)
}

func (p *printer) printPartUsage(usage *PartUsage, depth int) {
	header := "part " + quoteName(usage.Name)
	if usage.TypeName != "" {
		header += " : " + usage.TypeName
	}
	if usage.Multiplicity != nil {
		header += " " + usage.Multiplicity.String()
	}

	if len(usage.Members) == 0 {
		p.line(depth, header+";")
		return
	}

	p.line(depth, header+" {")
	for _, member := range usage.Members {
		p.printMember(member, depth+1)
	}
	p.line(depth, "}")
}

func (p *printer) printAttrUsage(usage *AttrUsage, depth int) {
	text := "attribute " + quoteName(usage.Name)
	if usage.TypeName != "" {
		text += " : " + usage.TypeName
	}
	if usage.Multiplicity != nil {
		text += " " + usage.Multiplicity.String()
	}
	if usage.Value != nil {
		text += " = " + formatLiteral(usage.Value)
	}
	p.line(depth, text+";")
}

func formatLiteral(lit *Literal) string {
	switch lit.Kind {
	case LiteralString:
		return strconv.Quote(lit.Text)
	default:
		return lit.Text
	}
}

// quoteName wraps names that are not plain identifiers in single quotes.
func quoteName(name string) string {
	if name == "" {
		return "''"
	}
	for i, r := range name {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
		isDigit := r >= '0' && r <= '9'
		if !isLetter && !(isDigit && i > 0) {
			return "'" + name + "'"
		}
	}
	return name
}
