// Package diff compares model snapshots while ignoring element identity.
// Serializing the same model twice produces fresh UUIDs everywhere, so a
// meaningful comparison canonicalizes the JSON and scrubs the ids first.
package diff

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

var uuidPattern = regexp.MustCompile(
	`\b[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\b`)

const placeholder = "<UUID>"

type Options struct {
	// CanonicalizeJSON re-marshals inputs that parse as JSON with sorted
	// keys and compact separators before comparing.
	CanonicalizeJSON bool
	// NormalizeWhitespace collapses runs of whitespace, so formatting
	// differences do not count.
	NormalizeWhitespace bool
}

func DefaultOptions() Options {
	return Options{CanonicalizeJSON: true, NormalizeWhitespace: true}
}

// Equal reports whether a and b are the same after UUID scrubbing.
func Equal(a, b string, opts Options) bool {
	return prepare(a, opts) == prepare(b, opts)
}

// Diff returns a unified diff of the scrubbed inputs, or "" when equal.
func Diff(a, b string, opts Options) (string, error) {
	sa := prepare(a, Options{CanonicalizeJSON: opts.CanonicalizeJSON})
	sb := prepare(b, Options{CanonicalizeJSON: opts.CanonicalizeJSON})
	if opts.NormalizeWhitespace && collapseWhitespace(sa) == collapseWhitespace(sb) {
		return "", nil
	}
	if sa == sb {
		return "", nil
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(sa),
		B:        difflib.SplitLines(sb),
		FromFile: "a",
		ToFile:   "b",
		Context:  3,
	})
}

func prepare(s string, opts Options) string {
	if opts.CanonicalizeJSON {
		s = canonicalizeIfJSON(s)
	}
	s = uuidPattern.ReplaceAllString(s, placeholder)
	if opts.NormalizeWhitespace {
		s = collapseWhitespace(s)
	}
	return s
}

// canonicalizeIfJSON returns a stable rendering when s parses as JSON;
// encoding/json marshals map keys in sorted order. Non-JSON input passes
// through untouched.
func canonicalizeIfJSON(s string) string {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	out, err := json.Marshal(v)
	if err != nil {
		return s
	}
	return string(out)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
