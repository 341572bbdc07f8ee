package definition

import (
	"fmt"
	"time"

	"github.com/aretw0/formguard/pkg/schema"
)

func compileObject(path string, fields []Field, refinements []Refinement) (schema.ObjectRule, error) {
	if len(fields) == 0 {
		return schema.ObjectRule{}, fmt.Errorf("%s: object has no fields", label(path))
	}
	decl := make([]schema.ObjectField, 0, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return schema.ObjectRule{}, fmt.Errorf("%s: field %d has no name", label(path), i)
		}
		rule, err := compileField(schema.JoinPath(path, f.Name), f)
		if err != nil {
			return schema.ObjectRule{}, err
		}
		decl = append(decl, schema.Field(f.Name, rule))
	}
	obj := schema.Object(decl...)
	for i, r := range refinements {
		ref, err := compileRefinement(r)
		if err != nil {
			return schema.ObjectRule{}, fmt.Errorf("%s: refinement %d: %w", label(path), i, err)
		}
		for _, p := range r.names() {
			if _, ok := obj.Lookup(p); !ok {
				return schema.ObjectRule{}, fmt.Errorf("%s: refinement %d: unknown field %q", label(path), i, p)
			}
		}
		obj = obj.Refine(ref)
	}
	return obj, nil
}

func compileField(path string, f Field) (schema.Rule, error) {
	switch f.Type {
	case "string":
		return compileString(path, f)
	case "number":
		return compileNumber(path, f)
	case "boolean":
		r := schema.Boolean()
		if f.Default != nil {
			b, ok := f.Default.(bool)
			if !ok {
				return nil, fmt.Errorf("%s: boolean default must be true or false", path)
			}
			r = r.Default(b)
		}
		return withPresence(r, f), nil
	case "enum":
		r := schema.Enum(f.Values...)
		if f.Default != nil {
			s, ok := f.Default.(string)
			if !ok {
				return nil, fmt.Errorf("%s: enum default must be a string", path)
			}
			r = r.Default(s)
		}
		return withPresence(r, f), nil
	case "date":
		return compileDate(path, f)
	case "object":
		r, err := compileObject(path, f.Fields, f.Refinements)
		if err != nil {
			return nil, err
		}
		if f.Default != nil {
			m, ok := f.Default.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s: object default must be a mapping", path)
			}
			r = r.Default(m)
		}
		return withPresence(r, f), nil
	case "array":
		return compileArray(path, f)
	case "":
		return nil, fmt.Errorf("%s: missing type", path)
	}
	return nil, fmt.Errorf("%s: unknown type %q", path, f.Type)
}

func compileString(path string, f Field) (schema.Rule, error) {
	r := schema.String()
	if f.Trim {
		r = r.Trim()
	}
	minLen, err := intBound(path, "min", f.MinLength, f.Min)
	if err != nil {
		return nil, err
	}
	maxLen, err := intBound(path, "max", f.MaxLength, f.Max)
	if err != nil {
		return nil, err
	}
	if minLen != nil {
		r = r.Min(*minLen)
	}
	if maxLen != nil {
		r = r.Max(*maxLen)
	}
	if f.Pattern != "" {
		r = r.Pattern(f.Pattern)
	}
	if f.Format != "" {
		r = r.Format(f.Format)
	}
	if f.Default != nil {
		s, ok := f.Default.(string)
		if !ok {
			return nil, fmt.Errorf("%s: string default must be a string", path)
		}
		r = r.Default(s)
	}
	return withPresence(r, f), nil
}

func compileNumber(path string, f Field) (schema.Rule, error) {
	r := schema.Number()
	if f.Integer {
		r = r.Integer()
	}
	if f.Min != nil {
		v, ok := toFloat(f.Min)
		if !ok {
			return nil, fmt.Errorf("%s: min must be a number", path)
		}
		r = r.Min(v)
	}
	if f.Max != nil {
		v, ok := toFloat(f.Max)
		if !ok {
			return nil, fmt.Errorf("%s: max must be a number", path)
		}
		r = r.Max(v)
	}
	if f.Default != nil {
		v, ok := toFloat(f.Default)
		if !ok {
			return nil, fmt.Errorf("%s: number default must be a number", path)
		}
		r = r.Default(v)
	}
	return withPresence(r, f), nil
}

func compileDate(path string, f Field) (schema.Rule, error) {
	r := schema.Date()
	if len(f.Layouts) > 0 {
		r = r.Layouts(f.Layouts...)
	}
	if f.Min != nil {
		t, err := toTime(f.Min)
		if err != nil {
			return nil, fmt.Errorf("%s: min: %w", path, err)
		}
		r = r.Min(t)
	}
	if f.Max != nil {
		t, err := toTime(f.Max)
		if err != nil {
			return nil, fmt.Errorf("%s: max: %w", path, err)
		}
		r = r.Max(t)
	}
	if f.Default != nil {
		t, err := toTime(f.Default)
		if err != nil {
			return nil, fmt.Errorf("%s: default: %w", path, err)
		}
		r = r.Default(t)
	}
	return withPresence(r, f), nil
}

func compileArray(path string, f Field) (schema.Rule, error) {
	if f.Items == nil {
		return nil, fmt.Errorf("%s: array without items", path)
	}
	items := *f.Items
	elem, err := compileField(path+"[]", items)
	if err != nil {
		return nil, err
	}
	r := schema.Array(elem)
	minItems, err := intBound(path, "min", f.MinItems, f.Min)
	if err != nil {
		return nil, err
	}
	maxItems, err := intBound(path, "max", f.MaxItems, f.Max)
	if err != nil {
		return nil, err
	}
	if minItems != nil {
		r = r.MinItems(*minItems)
	}
	if maxItems != nil {
		r = r.MaxItems(*maxItems)
	}
	if f.Default != nil {
		d, ok := f.Default.([]any)
		if !ok {
			return nil, fmt.Errorf("%s: array default must be a list", path)
		}
		r = r.Default(d)
	}
	return withPresence(r, f), nil
}

// presenceRule is the builder surface shared by every rule kind.
type presenceRule[R any] interface {
	Optional() R
	Nullable() R
	Message(string) R
	RequiredMessage(string) R
}

func withPresence[R presenceRule[R]](r R, f Field) R {
	if f.Optional {
		r = r.Optional()
	}
	if f.Nullable {
		r = r.Nullable()
	}
	if f.Message != "" {
		r = r.Message(f.Message)
	}
	if f.RequiredMessage != "" {
		r = r.RequiredMessage(f.RequiredMessage)
	}
	return r
}

// names lists every field the refinement reads, including the ones it never
// blames.
func (r Refinement) names() []string {
	var out []string
	for _, n := range []string{r.Field, r.Other, r.Target, r.When} {
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

func compileRefinement(r Refinement) (schema.Refinement, error) {
	var ref schema.Refinement
	switch r.Kind {
	case "equal":
		if r.Field == "" || r.Other == "" {
			return ref, fmt.Errorf("equal needs field and other")
		}
		ref = schema.Equal(r.Field, r.Other, r.Message)
	case "required_when":
		if r.Target == "" || r.When == "" {
			return ref, fmt.Errorf("required_when needs target and when")
		}
		ref = schema.RequiredWhen(r.Target, r.When, r.Values, r.Message)
	case "ordered":
		if r.Field == "" || r.Other == "" {
			return ref, fmt.Errorf("ordered needs field and other")
		}
		ref = ordered(r.Field, r.Other, r.Message)
	default:
		return ref, fmt.Errorf("unknown refinement kind %q", r.Kind)
	}
	if r.Halt {
		ref = ref.Halting()
	}
	return ref, nil
}

// ordered requires upper >= lower whenever both hold numbers or both hold dates.
func ordered(lower, upper, message string) schema.Refinement {
	if message == "" {
		message = fmt.Sprintf("must not be below %s", lower)
	}
	name := fmt.Sprintf("ordered:%s<=%s", lower, upper)
	return schema.Check(name, []string{upper}, message, func(obj map[string]any) bool {
		if lo, ok := obj[lower].(time.Time); ok {
			hi, ok := obj[upper].(time.Time)
			return !ok || !hi.Before(lo)
		}
		lo, lok := toFloat(obj[lower])
		hi, hok := toFloat(obj[upper])
		return !lok || !hok || hi >= lo
	})
}

func intBound(path, key string, explicit *int, generic any) (*int, error) {
	if explicit != nil {
		return explicit, nil
	}
	if generic == nil {
		return nil, nil
	}
	f, ok := toFloat(generic)
	if !ok || f != float64(int(f)) {
		return nil, fmt.Errorf("%s: %s must be a whole number", path, key)
	}
	n := int(f)
	return &n, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

var timeLayouts = []string{time.RFC3339, "2006-01-02"}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid date %q", t)
	}
	return time.Time{}, fmt.Errorf("expected date string, got %T", v)
}

func label(path string) string {
	if path == "" {
		return "root"
	}
	return path
}
