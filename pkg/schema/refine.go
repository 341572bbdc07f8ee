package schema

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"
)

// RefineFunc inspects a normalized object and returns the failures it finds.
// Paths in the returned errors are relative to the object. The map must not
// be modified.
type RefineFunc func(obj map[string]any) []FieldError

// Refinement is a cross-field rule attached to an object.
type Refinement struct {
	name    string
	paths   []string
	message string
	halt    bool
	fn      RefineFunc
}

// Refine wraps fn as a named refinement. paths lists the fields it may blame
// and is used for introspection only.
func Refine(name string, paths []string, fn RefineFunc) Refinement {
	if fn == nil {
		misconfigured("", "refinement %q has no function", name)
	}
	return Refinement{name: name, paths: slices.Clone(paths), fn: fn}
}

func (r Refinement) Name() string    { return r.name }
func (r Refinement) Paths() []string { return slices.Clone(r.paths) }
func (r Refinement) Halts() bool     { return r.halt }

// Halting returns a copy that stops the refinement phase when it fails.
func (r Refinement) Halting() Refinement {
	r.halt = true
	return r
}

// Equal requires field and other to hold equal values. A mismatch is blamed
// on other, the confirmation field.
func Equal(field, other, message string) Refinement {
	if message == "" {
		message = fmt.Sprintf("must match %s", field)
	}
	ref := Refine("equal:"+field+"="+other, []string{other}, func(obj map[string]any) []FieldError {
		if sameValue(obj[field], obj[other]) {
			return nil
		}
		return []FieldError{{Path: other, Message: message}}
	})
	ref.message = message
	return ref
}

// RequiredWhen requires target to be present and non-empty whenever the
// discriminator field equals one of values.
func RequiredWhen(target, discriminator string, values []any, message string) Refinement {
	if len(values) == 0 {
		misconfigured(target, "required-when on %q has no trigger values", discriminator)
	}
	if message == "" {
		message = "required"
	}
	values = slices.Clone(values)
	name := fmt.Sprintf("required_when:%s:%s=%v", target, discriminator, values)
	ref := Refine(name, []string{target}, func(obj map[string]any) []FieldError {
		d, ok := obj[discriminator]
		if !ok || !slices.ContainsFunc(values, func(v any) bool { return sameValue(v, d) }) {
			return nil
		}
		if !blank(obj[target], hasKey(obj, target)) {
			return nil
		}
		return []FieldError{{Path: target, Message: message, Code: CodeRequired}}
	})
	ref.message = message
	return ref
}

// Check blames every listed path with message when pred returns false. With no
// paths the failure is attributed to the object itself.
func Check(name string, paths []string, message string, pred func(obj map[string]any) bool) Refinement {
	if pred == nil {
		misconfigured("", "check %q has no predicate", name)
	}
	paths = slices.Clone(paths)
	ref := Refine(name, paths, func(obj map[string]any) []FieldError {
		if pred(obj) {
			return nil
		}
		if len(paths) == 0 {
			return []FieldError{{Message: message}}
		}
		out := make([]FieldError, len(paths))
		for i, p := range paths {
			out[i] = FieldError{Path: p, Message: message}
		}
		return out
	})
	ref.message = message
	return ref
}

func hasKey(obj map[string]any, key string) bool {
	_, ok := obj[key]
	return ok
}

// blank reports whether a value counts as not provided.
func blank(v any, present bool) bool {
	if !present || v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func sameValue(a, b any) bool {
	ta, aok := a.(time.Time)
	tb, bok := b.(time.Time)
	if aok && bok {
		return ta.Equal(tb)
	}
	ia, aok := a.(int64)
	ib, bok := b.(int64)
	if aok && bok {
		return ia == ib
	}
	if numeric(a) && numeric(b) {
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func numeric(v any) bool {
	if _, ok := v.(string); ok || v == nil {
		return false
	}
	_, code := toFloat(v)
	return code == ""
}
