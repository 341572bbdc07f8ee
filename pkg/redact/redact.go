// Package redact masks sensitive values in decoded payloads before they are
// logged.
package redact

import (
	"regexp"
)

// Mask replaces the value of every matching key.
const Mask = "***"

// DefaultPatterns match the credential and account keys used by back-office
// forms. Matching is case insensitive.
var DefaultPatterns = []string{
	`(?i)password`,
	`(?i)secret`,
	`(?i)token`,
	`(?i)^pin$`,
	`(?i)otp`,
	`(?i)credential`,
	`(?i)api_?key`,
	`(?i)account_?number`,
}

// Redactor masks map values whose keys match any of its patterns.
type Redactor struct {
	patterns []*regexp.Regexp
}

// New compiles patterns into a Redactor. It panics on an invalid expression.
func New(patterns ...string) *Redactor {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return &Redactor{patterns: compiled}
}

// Default returns a Redactor using DefaultPatterns.
func Default() *Redactor {
	return New(DefaultPatterns...)
}

// Value returns a masked deep copy of v. Maps and slices are copied; the
// input is never modified.
func (r *Redactor) Value(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return r.Map(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = r.Value(e)
		}
		return out
	}
	return v
}

// Map returns a masked deep copy of m.
func (r *Redactor) Map(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if r.sensitive(k) {
			out[k] = Mask
			continue
		}
		out[k] = r.Value(v)
	}
	return out
}

func (r *Redactor) sensitive(key string) bool {
	for _, p := range r.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
