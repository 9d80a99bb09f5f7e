package syside

import "time"

type CheckerState string

const (
	StateStopped      CheckerState = "stopped"
	StateStarting     CheckerState = "starting"
	StateInitializing CheckerState = "initializing"
	StateReady        CheckerState = "ready"
	StateError        CheckerState = "error"
)

// CheckerConfig describes the external SysIDE language server used for
// semantic validation. An empty Command disables checking entirely.
type CheckerConfig struct {
	Command        string        `json:"command"`
	Args           []string      `json:"args"`
	InitTimeout    time.Duration `json:"init_timeout"`
	RequestTimeout time.Duration `json:"request_timeout"`
	MaxRestarts    int           `json:"max_restarts"`
}

func DefaultCheckerConfig() CheckerConfig {
	return CheckerConfig{
		Command:        "",
		Args:           []string{"--stdio"},
		InitTimeout:    30 * time.Second,
		RequestTimeout: 10 * time.Second,
		MaxRestarts:    3,
	}
}

type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

type DiagnosticSeverity int

const (
	SeverityError       DiagnosticSeverity = 1
	SeverityWarning     DiagnosticSeverity = 2
	SeverityInformation DiagnosticSeverity = 3
	SeverityHint        DiagnosticSeverity = 4
)

func (s DiagnosticSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "information"
	case SeverityHint:
		return "hint"
	default:
		return "unknown"
	}
}

// Diagnostic is a validation finding reported by the checker.
type Diagnostic struct {
	Range    Range              `json:"range"`
	Severity DiagnosticSeverity `json:"severity,omitempty"`
	Code     any                `json:"code,omitempty"`
	Source   string             `json:"source,omitempty"`
	Message  string             `json:"message"`
}

// CheckResult collects diagnostics for one document.
type CheckResult struct {
	URI         string       `json:"uri"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

func (r *CheckResult) ErrorCount() int {
	count := 0
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			count++
		}
	}
	return count
}

type initializeParams struct {
	ProcessID    int    `json:"processId"`
	RootURI      string `json:"rootUri"`
	Capabilities any    `json:"capabilities"`
}

type initializeResult struct {
	Capabilities serverCapabilities `json:"capabilities"`
}

type serverCapabilities struct {
	TextDocumentSync any `json:"textDocumentSync,omitempty"`
}

type textDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

type didOpenParams struct {
	TextDocument textDocumentItem `json:"textDocument"`
}

type didCloseParams struct {
	TextDocument textDocumentIdentifier `json:"textDocument"`
}

type textDocumentIdentifier struct {
	URI string `json:"uri"`
}

type publishDiagnosticsParams struct {
	URI         string       `json:"uri"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}
