package schema

import (
	"slices"
	"time"
)

// Description is a structural, data-only view of a rule, used by callers that
// render forms or export schemas. It plays no part in validation.
type Description struct {
	Kind            Kind                    `json:"kind" yaml:"kind"`
	Required        bool                    `json:"required" yaml:"required"`
	Optional        bool                    `json:"optional,omitempty" yaml:"optional,omitempty"`
	Nullable        bool                    `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	HasDefault      bool                    `json:"hasDefault,omitempty" yaml:"hasDefault,omitempty"`
	Default         any                     `json:"default,omitempty" yaml:"default,omitempty"`
	Message         string                  `json:"message,omitempty" yaml:"message,omitempty"`
	RequiredMessage string                  `json:"requiredMessage,omitempty" yaml:"requiredMessage,omitempty"`
	MinLength       *int                    `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength       *int                    `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Trim            bool                    `json:"trim,omitempty" yaml:"trim,omitempty"`
	Pattern         string                  `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Format          string                  `json:"format,omitempty" yaml:"format,omitempty"`
	Minimum         *float64                `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum         *float64                `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	Integer         bool                    `json:"integer,omitempty" yaml:"integer,omitempty"`
	Values          []string                `json:"values,omitempty" yaml:"values,omitempty"`
	MinDate         *time.Time              `json:"minDate,omitempty" yaml:"minDate,omitempty"`
	MaxDate         *time.Time              `json:"maxDate,omitempty" yaml:"maxDate,omitempty"`
	Layouts         []string                `json:"layouts,omitempty" yaml:"layouts,omitempty"`
	Fields          []FieldDescription      `json:"fields,omitempty" yaml:"fields,omitempty"`
	Items           *Description            `json:"items,omitempty" yaml:"items,omitempty"`
	MinItems        *int                    `json:"minItems,omitempty" yaml:"minItems,omitempty"`
	MaxItems        *int                    `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
	Refinements     []RefinementDescription `json:"refinements,omitempty" yaml:"refinements,omitempty"`
}

// FieldDescription describes one object field.
type FieldDescription struct {
	Name        string `json:"name" yaml:"name"`
	Description `yaml:",inline"`
}

// RefinementDescription names a cross-field rule and the fields it may blame.
type RefinementDescription struct {
	Name    string   `json:"name" yaml:"name"`
	Paths   []string `json:"paths,omitempty" yaml:"paths,omitempty"`
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`
	Halts   bool     `json:"halts,omitempty" yaml:"halts,omitempty"`
}

// Describe returns the structural description of rule.
func Describe(rule Rule) Description {
	p := rule.flags()
	d := Description{
		Kind:            rule.Kind(),
		Required:        p.required(),
		Optional:        p.optional,
		Nullable:        p.nullable,
		HasDefault:      p.hasDefault,
		Default:         p.def,
		Message:         p.message,
		RequiredMessage: p.requiredMessage,
	}
	switch r := rule.(type) {
	case StringRule:
		d.MinLength = ptrOf(r.minLen)
		d.MaxLength = ptrOf(r.maxLen)
		d.Trim = r.trim
		d.Format = r.format
		d.Pattern = r.source
	case NumberRule:
		d.Minimum = ptrOf(r.min)
		d.Maximum = ptrOf(r.max)
		d.Integer = r.integer
	case BooleanRule:
	case EnumRule:
		d.Values = r.Values()
	case DateRule:
		d.MinDate = ptrOf(r.min)
		d.MaxDate = ptrOf(r.max)
		d.Layouts = slices.Clone(r.layouts)
	case ObjectRule:
		d.Fields = make([]FieldDescription, len(r.fields))
		for i, f := range r.fields {
			d.Fields[i] = FieldDescription{Name: f.Name, Description: Describe(f.Rule)}
		}
		for _, ref := range r.refinements {
			d.Refinements = append(d.Refinements, RefinementDescription{
				Name:    ref.name,
				Paths:   ref.Paths(),
				Message: ref.message,
				Halts:   ref.halt,
			})
		}
	case ArrayRule:
		items := Describe(r.elem)
		d.Items = &items
		d.MinItems = ptrOf(r.minItems)
		d.MaxItems = ptrOf(r.maxItems)
	default:
		panic(&ConfigError{Reason: "unknown rule kind"})
	}
	return d
}

// RequiredFields lists the names of object fields a caller must supply.
func (d Description) RequiredFields() []string {
	var out []string
	for _, f := range d.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// Field returns the description of the named object field.
func (d Description) Field(name string) (Description, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Description, true
		}
	}
	return Description{}, false
}

func ptrOf[T any](o opt[T]) *T {
	if !o.ok {
		return nil
	}
	v := o.v
	return &v
}
