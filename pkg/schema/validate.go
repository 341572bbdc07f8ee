package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Options tunes a single evaluation. The zero value is the default.
type Options struct {
	// StrictUnknownKeys reports keys that no object field declares.
	// When false they are dropped from the normalized value.
	StrictUnknownKeys bool `json:"strictUnknownKeys" yaml:"strictUnknownKeys"`
	// HaltOnFirstRefinementFailure stops the refinement phase at the first
	// failing refinement.
	HaltOnFirstRefinementFailure bool `json:"haltOnFirstRefinementFailure" yaml:"haltOnFirstRefinementFailure"`
}

// Result is the outcome of Validate: a normalized value or a list of errors.
type Result struct {
	Value  any    `json:"value,omitempty"`
	Errors Errors `json:"errors,omitempty"`
}

// Valid reports whether the evaluation produced no errors.
func (r Result) Valid() bool { return len(r.Errors) == 0 }

// Err returns the errors as an error, or nil when valid.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return r.Errors
}

// Object returns the normalized value as a map when the root rule is an object.
func (r Result) Object() map[string]any {
	m, _ := r.Value.(map[string]any)
	return m
}

// Validate evaluates value against rule. It never panics on bad input; the
// only panic is for a nil rule, which is a programming error.
func Validate(rule Rule, value any, opts Options) Result {
	if rule == nil {
		panic(&ConfigError{Reason: "validate called with a nil rule"})
	}
	ev := &evaluation{opts: opts}
	out := ev.check(rule, "", value)
	if len(ev.errs) == 0 {
		ev.refine()
	}
	if len(ev.errs) > 0 {
		return Result{Errors: ev.errs}
	}
	return Result{Value: out}
}

type pendingRefinement struct {
	path        string
	value       map[string]any
	refinements []Refinement
}

type evaluation struct {
	opts    Options
	errs    Errors
	pending []pendingRefinement
}

func (ev *evaluation) add(path, code, msg string) {
	ev.errs = append(ev.errs, FieldError{Path: path, Message: msg, Code: code})
}

func (ev *evaluation) fail(p presence, path, code, msg string) any {
	if p.message != "" {
		msg = p.message
	}
	ev.add(path, code, msg)
	return Undefined
}

func (ev *evaluation) missing(p presence, path string) any {
	switch {
	case p.hasDefault:
		return cloneDefault(p.def)
	case p.optional:
		return Undefined
	}
	msg := "required"
	if p.requiredMessage != "" {
		msg = p.requiredMessage
	}
	ev.add(path, CodeRequired, msg)
	return Undefined
}

// check applies presence semantics shared by all kinds, then the kind itself.
func (ev *evaluation) check(r Rule, path string, value any) any {
	p := r.flags()
	if isMissing(r.Kind(), value) {
		return ev.missing(p, path)
	}
	if isNil(value) {
		switch {
		case p.nullable:
			return nil
		case p.optional || p.hasDefault:
			ev.add(path, CodeNotNullable, "must not be null")
			return Undefined
		}
		return ev.missing(presence{requiredMessage: p.requiredMessage}, path)
	}
	return r.evaluate(ev, path, value)
}

func (ev *evaluation) refine() {
	for _, p := range ev.pending {
		for _, ref := range p.refinements {
			issues := ref.fn(maps.Clone(p.value))
			for _, fe := range issues {
				if fe.Code == "" {
					fe.Code = CodeCustom
				}
				fe.Path = JoinPath(p.path, fe.Path)
				ev.errs = append(ev.errs, fe)
			}
			if len(issues) > 0 && (ref.halt || ev.opts.HaltOnFirstRefinementFailure) {
				return
			}
		}
	}
}

// --- Field validators ---

func (r StringRule) evaluate(ev *evaluation, path string, value any) any {
	s, ok := asString(value)
	if !ok {
		return ev.fail(r.presence, path, CodeInvalidType, "expected string, received "+typeName(value))
	}
	if r.trim {
		s = strings.TrimSpace(s)
	}
	if s == "" {
		if r.hasDefault || !r.optional {
			return ev.missing(r.presence, path)
		}
		return s
	}
	n := utf8.RuneCountInString(s)
	switch {
	case r.minLen.ok && n < r.minLen.v:
		return ev.fail(r.presence, path, CodeTooSmall, fmt.Sprintf("must be at least %d characters", r.minLen.v))
	case r.maxLen.ok && n > r.maxLen.v:
		return ev.fail(r.presence, path, CodeTooBig, fmt.Sprintf("must be at most %d characters", r.maxLen.v))
	case r.pattern != nil && !r.pattern.MatchString(s):
		return ev.fail(r.presence, path, CodeInvalidPattern, "invalid format")
	case r.format != "" && !matchesFormat(s, r.format):
		return ev.fail(r.presence, path, CodeInvalidFormat, "invalid "+r.format)
	}
	return s
}

func (r NumberRule) evaluate(ev *evaluation, path string, value any) any {
	if r.integer {
		return r.evaluateInt(ev, path, value)
	}
	f, code := toFloat(value)
	switch code {
	case CodeInvalidType:
		return ev.fail(r.presence, path, code, "expected number, received "+typeName(value))
	case CodeInvalidNumber:
		return ev.fail(r.presence, path, code, "invalid number")
	}
	if msg, code := r.bounds(f); code != "" {
		return ev.fail(r.presence, path, code, msg)
	}
	return f
}

func (r NumberRule) evaluateInt(ev *evaluation, path string, value any) any {
	n, code := toInt(value)
	switch code {
	case CodeInvalidType:
		if _, c := toFloat(value); c == "" {
			return ev.fail(r.presence, path, code, "expected integer, received float")
		}
		return ev.fail(r.presence, path, code, "expected number, received "+typeName(value))
	case CodeInvalidNumber:
		return ev.fail(r.presence, path, code, "invalid number")
	}
	if msg, code := r.bounds(float64(n)); code != "" {
		return ev.fail(r.presence, path, code, msg)
	}
	return n
}

func (r NumberRule) bounds(f float64) (string, string) {
	switch {
	case r.min.ok && f < r.min.v:
		return "must be greater than or equal to " + formatFloat(r.min.v), CodeTooSmall
	case r.max.ok && f > r.max.v:
		return "must be less than or equal to " + formatFloat(r.max.v), CodeTooBig
	}
	return "", ""
}

func (r BooleanRule) evaluate(ev *evaluation, path string, value any) any {
	b, ok := value.(bool)
	if !ok {
		return ev.fail(r.presence, path, CodeInvalidType, "expected boolean, received "+typeName(value))
	}
	return b
}

func (r EnumRule) evaluate(ev *evaluation, path string, value any) any {
	s, ok := asString(value)
	if !ok {
		return ev.fail(r.presence, path, CodeInvalidType, "expected string, received "+typeName(value))
	}
	if !r.Has(s) {
		return ev.fail(r.presence, path, CodeInvalidEnum, "must be one of: "+strings.Join(r.values, ", "))
	}
	return s
}

func (r DateRule) evaluate(ev *evaluation, path string, value any) any {
	var t time.Time
	switch v := value.(type) {
	case time.Time:
		t = v
	case *time.Time:
		t = *v
	default:
		s, ok := asString(value)
		if !ok {
			return ev.fail(r.presence, path, CodeInvalidType, "expected date, received "+typeName(value))
		}
		parsed, err := r.parse(strings.TrimSpace(s))
		if err != nil {
			return ev.fail(r.presence, path, CodeInvalidDate, "invalid date")
		}
		t = parsed
	}
	switch {
	case r.min.ok && t.Before(r.min.v):
		return ev.fail(r.presence, path, CodeTooSmall, "must be on or after "+r.min.v.Format(time.RFC3339))
	case r.max.ok && t.After(r.max.v):
		return ev.fail(r.presence, path, CodeTooBig, "must be on or before "+r.max.v.Format(time.RFC3339))
	}
	return t
}

// --- Composers ---

func (r ObjectRule) evaluate(ev *evaluation, path string, value any) any {
	m, ok := asObject(value)
	if !ok {
		return ev.fail(r.presence, path, CodeInvalidType, "expected object, received "+typeName(value))
	}
	out := make(map[string]any, len(r.fields))
	for _, f := range r.fields {
		raw, present := m[f.Name]
		if !present {
			raw = Undefined
		}
		if v := ev.check(f.Rule, JoinPath(path, f.Name), raw); !IsUndefined(v) {
			out[f.Name] = v
		}
	}
	if ev.opts.StrictUnknownKeys {
		var unknown []string
		for k := range m {
			if _, declared := r.index[k]; !declared {
				unknown = append(unknown, k)
			}
		}
		slices.Sort(unknown)
		for _, k := range unknown {
			ev.add(JoinPath(path, k), CodeUnrecognizedKey, "unrecognized key")
		}
	}
	if len(r.refinements) > 0 {
		ev.pending = append(ev.pending, pendingRefinement{path: path, value: out, refinements: r.refinements})
	}
	return out
}

func (r ArrayRule) evaluate(ev *evaluation, path string, value any) any {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return ev.fail(r.presence, path, CodeInvalidType, "expected array, received "+typeName(value))
	}
	n := rv.Len()
	switch {
	case r.minItems.ok && n < r.minItems.v:
		ev.fail(r.presence, path, CodeTooSmall, fmt.Sprintf("must contain at least %d item(s)", r.minItems.v))
	case r.maxItems.ok && n > r.maxItems.v:
		ev.fail(r.presence, path, CodeTooBig, fmt.Sprintf("must contain at most %d item(s)", r.maxItems.v))
	}
	out := make([]any, n)
	for i := 0; i < n; i++ {
		v := ev.check(r.elem, indexPath(path, i), rv.Index(i).Interface())
		if IsUndefined(v) {
			v = nil
		}
		out[i] = v
	}
	return out
}

// --- Coercion helpers ---

func isMissing(kind Kind, v any) bool {
	if IsUndefined(v) {
		return true
	}
	if kind == KindString {
		return false
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func asString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	case json.Number:
		return "", false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// toFloat returns "" as code on success.
func toFloat(v any) (float64, string) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return 0, CodeInvalidNumber
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, CodeInvalidNumber
		}
		f = parsed
	default:
		return 0, CodeInvalidType
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, CodeInvalidNumber
	}
	return f, ""
}

// toInt converts integer inputs without a float64 round trip. Fractional
// values report CodeInvalidType and values outside the int64 range report
// CodeInvalidNumber; "" is returned on success.
func toInt(v any) (int64, string) {
	switch n := v.(type) {
	case int:
		return int64(n), ""
	case int8:
		return int64(n), ""
	case int16:
		return int64(n), ""
	case int32:
		return int64(n), ""
	case int64:
		return n, ""
	case uint:
		return uintToInt(uint64(n))
	case uint8:
		return int64(n), ""
	case uint16:
		return int64(n), ""
	case uint32:
		return int64(n), ""
	case uint64:
		return uintToInt(n)
	case json.Number:
		return parseInt(string(n))
	case string:
		return parseInt(strings.TrimSpace(n))
	}
	f, code := toFloat(v)
	if code != "" {
		return 0, code
	}
	return floatToInt(f)
}

func uintToInt(u uint64) (int64, string) {
	if u > math.MaxInt64 {
		return 0, CodeInvalidNumber
	}
	return int64(u), ""
}

func parseInt(s string) (int64, string) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return n, ""
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, CodeInvalidNumber
	}
	// Literals such as "1e3" or "2.0" are whole numbers in another notation.
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, CodeInvalidNumber
	}
	return floatToInt(f)
}

// floatToInt accepts whole floats in [MinInt64, MaxInt64]. 2^63 itself is
// representable as a float64 but not as an int64.
func floatToInt(f float64) (int64, string) {
	if f != math.Trunc(f) {
		return 0, CodeInvalidType
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, CodeInvalidNumber
	}
	return int64(f), ""
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string, []byte:
		return "string"
	case bool:
		return "boolean"
	case time.Time, *time.Time:
		return "date"
	case json.Number:
		return "number"
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	case reflect.String:
		return "string"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func cloneDefault(v any) any {
	switch d := v.(type) {
	case map[string]any:
		return maps.Clone(d)
	case []any:
		return slices.Clone(d)
	}
	return v
}
