package schema

import (
	"slices"
)

// ObjectField binds a name to a rule inside an object.
type ObjectField struct {
	Name string
	Rule Rule
}

// Field declares an object field.
func Field(name string, rule Rule) ObjectField {
	return ObjectField{Name: name, Rule: rule}
}

// ObjectRule validates a map against an ordered list of fields.
type ObjectRule struct {
	presence
	fields      []ObjectField
	index       map[string]int
	refinements []Refinement
}

// Object creates a required object rule. It panics on empty or duplicate
// field names and on fields without a rule.
func Object(fields ...ObjectField) ObjectRule {
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			misconfigured("", "field %d has no name", i)
		}
		if f.Rule == nil {
			misconfigured(f.Name, "field has no rule")
		}
		if _, dup := index[f.Name]; dup {
			misconfigured(f.Name, "duplicate field name")
		}
		index[f.Name] = i
	}
	return ObjectRule{fields: slices.Clone(fields), index: index}
}

func (r ObjectRule) Kind() Kind      { return KindObject }
func (r ObjectRule) flags() presence { return r.presence }

// Fields returns the declared fields in order.
func (r ObjectRule) Fields() []ObjectField { return slices.Clone(r.fields) }

// Lookup returns the rule declared for name.
func (r ObjectRule) Lookup(name string) (Rule, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.fields[i].Rule, true
}

// Refinements returns the attached cross-field rules in order.
func (r ObjectRule) Refinements() []Refinement { return slices.Clone(r.refinements) }

// Refine appends cross-field rules evaluated after all fields pass.
func (r ObjectRule) Refine(refinements ...Refinement) ObjectRule {
	for _, ref := range refinements {
		if ref.fn == nil {
			misconfigured("", "refinement %q has no function", ref.name)
		}
	}
	r.refinements = slices.Concat(r.refinements, refinements)
	return r
}

// Extend returns a rule with additional fields appended. Refinements are kept.
func (r ObjectRule) Extend(fields ...ObjectField) ObjectRule {
	out := Object(slices.Concat(r.fields, fields)...)
	out.presence = r.presence
	out.refinements = slices.Clone(r.refinements)
	return out
}

// Pick returns a rule with only the named fields, in their original order.
// Refinements are dropped since they may reference removed fields.
func (r ObjectRule) Pick(names ...string) ObjectRule {
	for _, n := range names {
		if _, ok := r.index[n]; !ok {
			misconfigured(n, "cannot pick unknown field")
		}
	}
	kept := make([]ObjectField, 0, len(names))
	for _, f := range r.fields {
		if slices.Contains(names, f.Name) {
			kept = append(kept, f)
		}
	}
	out := Object(kept...)
	out.presence = r.presence
	return out
}

// Omit returns a rule without the named fields. Refinements are dropped.
func (r ObjectRule) Omit(names ...string) ObjectRule {
	for _, n := range names {
		if _, ok := r.index[n]; !ok {
			misconfigured(n, "cannot omit unknown field")
		}
	}
	kept := make([]ObjectField, 0, len(r.fields))
	for _, f := range r.fields {
		if !slices.Contains(names, f.Name) {
			kept = append(kept, f)
		}
	}
	out := Object(kept...)
	out.presence = r.presence
	return out
}

// Partial returns a rule whose top-level fields are all optional.
func (r ObjectRule) Partial() ObjectRule {
	fields := make([]ObjectField, len(r.fields))
	for i, f := range r.fields {
		fields[i] = ObjectField{Name: f.Name, Rule: optional(f.Rule)}
	}
	out := Object(fields...)
	out.presence = r.presence
	out.refinements = slices.Clone(r.refinements)
	return out
}

func (r ObjectRule) Optional() ObjectRule { r.optional = true; return r }
func (r ObjectRule) Nullable() ObjectRule { r.nullable = true; return r }

func (r ObjectRule) Default(v map[string]any) ObjectRule {
	r.hasDefault, r.def = true, v
	return r
}

func (r ObjectRule) Message(msg string) ObjectRule         { r.message = msg; return r }
func (r ObjectRule) RequiredMessage(msg string) ObjectRule { r.requiredMessage = msg; return r }

// ArrayRule validates every element of a slice against one rule.
type ArrayRule struct {
	presence
	elem     Rule
	minItems opt[int]
	maxItems opt[int]
}

// Array creates a required array rule. It panics if elem is nil.
func Array(elem Rule) ArrayRule {
	if elem == nil {
		misconfigured("", "array has no element rule")
	}
	return ArrayRule{elem: elem}
}

func (r ArrayRule) Kind() Kind      { return KindArray }
func (r ArrayRule) flags() presence { return r.presence }

// Element returns the element rule.
func (r ArrayRule) Element() Rule { return r.elem }

// MinItems sets the minimum number of elements.
func (r ArrayRule) MinItems(n int) ArrayRule {
	if n < 0 || (r.maxItems.ok && n > r.maxItems.v) {
		misconfigured("", "invalid array min items %d", n)
	}
	r.minItems = some(n)
	return r
}

// MaxItems sets the maximum number of elements.
func (r ArrayRule) MaxItems(n int) ArrayRule {
	if n < 0 || (r.minItems.ok && n < r.minItems.v) {
		misconfigured("", "invalid array max items %d", n)
	}
	r.maxItems = some(n)
	return r
}

func (r ArrayRule) Optional() ArrayRule { r.optional = true; return r }
func (r ArrayRule) Nullable() ArrayRule { r.nullable = true; return r }

func (r ArrayRule) Default(v []any) ArrayRule {
	r.hasDefault, r.def = true, slices.Clone(v)
	return r
}

func (r ArrayRule) Message(msg string) ArrayRule         { r.message = msg; return r }
func (r ArrayRule) RequiredMessage(msg string) ArrayRule { r.requiredMessage = msg; return r }

// optional marks any rule optional. The switch covers the closed set of kinds.
func optional(r Rule) Rule {
	switch v := r.(type) {
	case StringRule:
		return v.Optional()
	case NumberRule:
		return v.Optional()
	case BooleanRule:
		return v.Optional()
	case EnumRule:
		return v.Optional()
	case DateRule:
		return v.Optional()
	case ObjectRule:
		return v.Optional()
	case ArrayRule:
		return v.Optional()
	default:
		panic(&ConfigError{Reason: "unknown rule kind"})
	}
}
