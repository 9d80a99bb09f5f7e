// Package notation implements a textual codec for the core SysML v2 subset
// the bridge round-trips: packages, part and attribute definitions and
// usages, imports, specialization, typing, multiplicity, and literal values.
// It parses text into an AST, prints an AST back to canonical text, and
// converts between the AST and the repository element graph.
package notation

import "fmt"

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

type Diagnostic struct {
	Severity Severity
	Message  string
	Pos      Position
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Message)
}

type Diagnostics struct {
	Items []Diagnostic
}

func (d *Diagnostics) errorf(pos Position, format string, args ...any) {
	d.Items = append(d.Items, Diagnostic{
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	})
}

func (d *Diagnostics) warnf(pos Position, format string, args ...any) {
	d.Items = append(d.Items, Diagnostic{
		Severity: SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
	})
}

// HasErrors reports whether any diagnostic is an error. Warnings and
// informational messages never fail a load.
func (d *Diagnostics) HasErrors() bool {
	for _, item := range d.Items {
		if item.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Model is the parsed document: the content of the root namespace.
type Model struct {
	Packages []*Package
}

type Package struct {
	Name string
	// Doc is the body of the `doc /* ... */` annotation, if any.
	Doc     string
	Imports []*Import
	Members []Member
}

func (p *Package) memberName() string { return p.Name }

type Import struct {
	// Target is the imported qualified name, without any trailing ::*.
	Target   string
	Wildcard bool
}

// Member is a named element owned by a package, definition, or usage body.
type Member interface {
	memberName() string
}

// PartDef is a `part def` declaration.
type PartDef struct {
	Name        string
	Doc         string
	Specializes []string
	Members     []Member
}

func (d *PartDef) memberName() string { return d.Name }

// AttrDef is an `attribute def` declaration.
type AttrDef struct {
	Name        string
	Specializes []string
}

func (d *AttrDef) memberName() string { return d.Name }

// PartUsage is a `part` usage: `part engine : Engine [1] { ... }`.
type PartUsage struct {
	Name         string
	TypeName     string
	Multiplicity *Multiplicity
	Members      []Member
}

func (u *PartUsage) memberName() string { return u.Name }

// AttrUsage is an `attribute` usage with optional type and value.
type AttrUsage struct {
	Name         string
	TypeName     string
	Multiplicity *Multiplicity
	Value        *Literal
}

func (u *AttrUsage) memberName() string { return u.Name }

// Multiplicity is a `[lower..upper]` or `[bound]` range. Bounds are kept
// textual; "*" means unbounded.
type Multiplicity struct {
	Lower string
	Upper string
}

func (m *Multiplicity) String() string {
	if m.Lower == m.Upper || m.Lower == "" {
		return "[" + m.Upper + "]"
	}
	return "[" + m.Lower + ".." + m.Upper + "]"
}

type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralNumber
	LiteralBoolean
)

type Literal struct {
	Kind LiteralKind
	// Text is the source form: the unquoted string, the number as written,
	// or "true"/"false".
	Text string
}
