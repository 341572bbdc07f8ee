package schema

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Decode copies a normalized value into target, a pointer to a struct tagged
// with `json` names. Only call it with Result.Value of a successful evaluation.
func Decode(value any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           target,
		ZeroFields:       true,
		WeaklyTypedInput: false,
	})
	if err != nil {
		return fmt.Errorf("schema: decoder: %w", err)
	}
	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("schema: decode: %w", err)
	}
	return nil
}

// ValidateInto validates value and, when valid, decodes the normalized result
// into target. Validation failures are returned as Errors.
func ValidateInto(rule Rule, value any, opts Options, target any) error {
	res := Validate(rule, value, opts)
	if !res.Valid() {
		return res.Errors
	}
	return Decode(res.Value, target)
}
