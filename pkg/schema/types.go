package schema

import (
	"fmt"
	"regexp"
	"slices"
	"time"
)

// Kind names a member of the closed set of rule kinds.
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindEnum    Kind = "enum"
	KindDate    Kind = "date"
	KindObject  Kind = "object"
	KindArray   Kind = "array"
)

// Rule is the validation contract for a single value.
// It is implemented only by the rule types of this package.
type Rule interface {
	Kind() Kind
	flags() presence
	evaluate(ev *evaluation, path string, value any) any
}

type undefined struct{}

func (undefined) String() string { return "undefined" }

func (undefined) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Undefined stands for an absent value. Absent map keys are undefined; an
// explicit nil is null.
var Undefined any = undefined{}

// IsUndefined reports whether v is the Undefined sentinel.
func IsUndefined(v any) bool {
	_, ok := v.(undefined)
	return ok
}

// presence holds the settings shared by every rule kind.
type presence struct {
	optional        bool
	nullable        bool
	hasDefault      bool
	def             any
	message         string
	requiredMessage string
}

func (p presence) required() bool { return !p.optional && !p.hasDefault }

type opt[T any] struct {
	ok bool
	v  T
}

func some[T any](v T) opt[T] { return opt[T]{ok: true, v: v} }

// --- String ---

// StringRule validates character sequences.
type StringRule struct {
	presence
	minLen  opt[int]
	maxLen  opt[int]
	trim    bool
	pattern *regexp.Regexp
	source  string
	format  string
}

// String creates a required string rule.
func String() StringRule { return StringRule{} }

func (r StringRule) Kind() Kind      { return KindString }
func (r StringRule) flags() presence { return r.presence }

// Min sets the minimum length in characters.
func (r StringRule) Min(n int) StringRule {
	if n < 0 {
		misconfigured("", "string min length %d is negative", n)
	}
	if r.maxLen.ok && n > r.maxLen.v {
		misconfigured("", "string min length %d exceeds max length %d", n, r.maxLen.v)
	}
	r.minLen = some(n)
	return r
}

// Max sets the maximum length in characters.
func (r StringRule) Max(n int) StringRule {
	if n < 0 {
		misconfigured("", "string max length %d is negative", n)
	}
	if r.minLen.ok && n < r.minLen.v {
		misconfigured("", "string max length %d is below min length %d", n, r.minLen.v)
	}
	r.maxLen = some(n)
	return r
}

// Length requires exactly n characters.
func (r StringRule) Length(n int) StringRule {
	r.minLen, r.maxLen = opt[int]{}, opt[int]{}
	return r.Min(n).Max(n)
}

// Pattern requires the whole value to match expr; `[A-Z]{3}` rejects "ABCD".
// The expression is compiled immediately.
func (r StringRule) Pattern(expr string) StringRule {
	re, err := regexp.Compile(AnchorPattern(expr))
	if err != nil {
		misconfigured("", "invalid pattern %q: %v", expr, err)
	}
	r.pattern = re
	r.source = expr
	return r
}

// AnchorPattern wraps expr so it only matches a whole value.
func AnchorPattern(expr string) string {
	return `^(?:` + expr + `)$`
}

// Format requires the value to satisfy a named format such as FormatEmail.
func (r StringRule) Format(tag string) StringRule {
	if err := checkFormatTag(tag); err != nil {
		misconfigured("", "%v", err)
	}
	r.format = tag
	return r
}

// Trim strips surrounding whitespace before any other check.
func (r StringRule) Trim() StringRule { r.trim = true; return r }

func (r StringRule) Optional() StringRule        { r.optional = true; return r }
func (r StringRule) Nullable() StringRule        { r.nullable = true; return r }
func (r StringRule) Default(v string) StringRule { r.hasDefault, r.def = true, v; return r }

// Message replaces the message of every failure except required.
func (r StringRule) Message(msg string) StringRule { r.message = msg; return r }

// RequiredMessage replaces the message reported for a missing value.
func (r StringRule) RequiredMessage(msg string) StringRule { r.requiredMessage = msg; return r }

// --- Number ---

// NumberRule validates real numbers.
type NumberRule struct {
	presence
	min     opt[float64]
	max     opt[float64]
	integer bool
}

// Number creates a required number rule.
func Number() NumberRule { return NumberRule{} }

func (r NumberRule) Kind() Kind      { return KindNumber }
func (r NumberRule) flags() presence { return r.presence }

// Min sets the inclusive lower bound.
func (r NumberRule) Min(v float64) NumberRule {
	if r.max.ok && v > r.max.v {
		misconfigured("", "number min %v exceeds max %v", v, r.max.v)
	}
	r.min = some(v)
	return r
}

// Max sets the inclusive upper bound.
func (r NumberRule) Max(v float64) NumberRule {
	if r.min.ok && v < r.min.v {
		misconfigured("", "number max %v is below min %v", v, r.min.v)
	}
	r.max = some(v)
	return r
}

// Integer requires whole values, normalized to int64.
func (r NumberRule) Integer() NumberRule {
	r.integer = true
	if f, ok := r.def.(float64); ok {
		r.def = int64(f)
	}
	return r
}

func (r NumberRule) Optional() NumberRule { r.optional = true; return r }
func (r NumberRule) Nullable() NumberRule { r.nullable = true; return r }

func (r NumberRule) Default(v float64) NumberRule {
	r.hasDefault = true
	if r.integer {
		r.def = int64(v)
	} else {
		r.def = v
	}
	return r
}

func (r NumberRule) Message(msg string) NumberRule         { r.message = msg; return r }
func (r NumberRule) RequiredMessage(msg string) NumberRule { r.requiredMessage = msg; return r }

// --- Boolean ---

// BooleanRule accepts exactly true or false.
type BooleanRule struct {
	presence
}

// Boolean creates a required boolean rule.
func Boolean() BooleanRule { return BooleanRule{} }

func (r BooleanRule) Kind() Kind      { return KindBoolean }
func (r BooleanRule) flags() presence { return r.presence }

func (r BooleanRule) Optional() BooleanRule      { r.optional = true; return r }
func (r BooleanRule) Nullable() BooleanRule      { r.nullable = true; return r }
func (r BooleanRule) Default(v bool) BooleanRule { r.hasDefault, r.def = true, v; return r }

func (r BooleanRule) Message(msg string) BooleanRule         { r.message = msg; return r }
func (r BooleanRule) RequiredMessage(msg string) BooleanRule { r.requiredMessage = msg; return r }

// --- Enum ---

// EnumRule restricts a string to a closed set of literals.
type EnumRule struct {
	presence
	values  []string
	members map[string]struct{}
}

// Enum creates a required enum rule. It panics if values is empty, contains
// an empty string or repeats a member.
func Enum(values ...string) EnumRule {
	if len(values) == 0 {
		misconfigured("", "enum has no members")
	}
	members := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			misconfigured("", "enum member is empty")
		}
		if _, dup := members[v]; dup {
			misconfigured("", "enum member %q is repeated", v)
		}
		members[v] = struct{}{}
	}
	return EnumRule{values: slices.Clone(values), members: members}
}

func (r EnumRule) Kind() Kind      { return KindEnum }
func (r EnumRule) flags() presence { return r.presence }

// Values returns the allowed literals in declaration order.
func (r EnumRule) Values() []string { return slices.Clone(r.values) }

// Has reports whether v is a member.
func (r EnumRule) Has(v string) bool {
	_, ok := r.members[v]
	return ok
}

func (r EnumRule) Optional() EnumRule { r.optional = true; return r }
func (r EnumRule) Nullable() EnumRule { r.nullable = true; return r }

// Default sets the value used when input is missing. It must be a member.
func (r EnumRule) Default(v string) EnumRule {
	if !r.Has(v) {
		misconfigured("", "enum default %q is not a member", v)
	}
	r.hasDefault, r.def = true, v
	return r
}

func (r EnumRule) Message(msg string) EnumRule         { r.message = msg; return r }
func (r EnumRule) RequiredMessage(msg string) EnumRule { r.requiredMessage = msg; return r }

// --- Date ---

var defaultLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// DateRule accepts time.Time values and parseable date strings.
type DateRule struct {
	presence
	min     opt[time.Time]
	max     opt[time.Time]
	layouts []string
}

// Date creates a required date rule.
func Date() DateRule { return DateRule{} }

func (r DateRule) Kind() Kind      { return KindDate }
func (r DateRule) flags() presence { return r.presence }

// Min sets the inclusive earliest date.
func (r DateRule) Min(t time.Time) DateRule {
	if r.max.ok && t.After(r.max.v) {
		misconfigured("", "date min %s is after max %s", t.Format(time.RFC3339), r.max.v.Format(time.RFC3339))
	}
	r.min = some(t)
	return r
}

// Max sets the inclusive latest date.
func (r DateRule) Max(t time.Time) DateRule {
	if r.min.ok && t.Before(r.min.v) {
		misconfigured("", "date max %s is before min %s", t.Format(time.RFC3339), r.min.v.Format(time.RFC3339))
	}
	r.max = some(t)
	return r
}

// Layouts adds time layouts tried before the built-in ISO 8601 layouts.
func (r DateRule) Layouts(layouts ...string) DateRule {
	for _, l := range layouts {
		if l == "" {
			misconfigured("", "empty date layout")
		}
	}
	r.layouts = append(slices.Clone(r.layouts), layouts...)
	return r
}

func (r DateRule) Optional() DateRule           { r.optional = true; return r }
func (r DateRule) Nullable() DateRule           { r.nullable = true; return r }
func (r DateRule) Default(t time.Time) DateRule { r.hasDefault, r.def = true, t; return r }

func (r DateRule) Message(msg string) DateRule         { r.message = msg; return r }
func (r DateRule) RequiredMessage(msg string) DateRule { r.requiredMessage = msg; return r }

func (r DateRule) parse(s string) (time.Time, error) {
	for _, layout := range slices.Concat(r.layouts, defaultLayouts) {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no layout matches %q", s)
}
