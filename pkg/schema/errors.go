package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Machine-readable codes carried by FieldError.Code.
const (
	CodeRequired        = "required"
	CodeNotNullable     = "not_nullable"
	CodeInvalidType     = "invalid_type"
	CodeInvalidNumber   = "invalid_number"
	CodeInvalidDate     = "invalid_date"
	CodeInvalidEnum     = "invalid_enum_value"
	CodeInvalidPattern  = "invalid_pattern"
	CodeInvalidFormat   = "invalid_format"
	CodeTooSmall        = "too_small"
	CodeTooBig          = "too_big"
	CodeUnrecognizedKey = "unrecognized_key"
	CodeCustom          = "custom"
)

// FieldError represents a single validation failure attributed to a field path.
type FieldError struct {
	Path    string `json:"fieldPath" yaml:"fieldPath"`
	Message string `json:"message" yaml:"message"`
	Code    string `json:"code,omitempty" yaml:"code,omitempty"`
}

func (e FieldError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("field %q: %s", e.Path, e.Message)
}

// Errors is the ordered list of failures produced by one evaluation.
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:\n", len(e))
	for i, fe := range e {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, fe.Error())
	}
	return b.String()
}

// ByPath groups messages by field path, keeping the original order per path.
func (e Errors) ByPath() map[string][]string {
	out := make(map[string][]string, len(e))
	for _, fe := range e {
		out[fe.Path] = append(out[fe.Path], fe.Message)
	}
	return out
}

// First returns the first message reported for path, or "".
func (e Errors) First(path string) string {
	for _, fe := range e {
		if fe.Path == path {
			return fe.Message
		}
	}
	return ""
}

// ValidationErrors returns the field errors wrapped in err, if any.
func ValidationErrors(err error) Errors {
	var errs Errors
	if errors.As(err, &errs) {
		return errs
	}
	return nil
}

// ConfigError reports a schema that was built incorrectly. It is raised with
// panic during construction, never during evaluation.
type ConfigError struct {
	Path   string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return "schema: " + e.Reason
	}
	return fmt.Sprintf("schema: %s: %s", e.Path, e.Reason)
}

func misconfigured(path, format string, args ...any) {
	panic(&ConfigError{Path: path, Reason: fmt.Sprintf(format, args...)})
}

// Build runs a schema constructor and returns a *ConfigError instead of
// panicking when the constructor is misconfigured. Other panics propagate.
func Build[R Rule](construct func() R) (rule R, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			ce, ok := rec.(*ConfigError)
			if !ok {
				panic(rec)
			}
			err = ce
		}
	}()
	return construct(), nil
}
