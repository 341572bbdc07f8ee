package schema

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Common string formats. Any single go-playground/validator tag is accepted.
const (
	FormatEmail    = "email"
	FormatURL      = "url"
	FormatUUID     = "uuid"
	FormatE164     = "e164"
	FormatNumeric  = "numeric"
	FormatAlphanum = "alphanum"
	FormatIP       = "ip"
	FormatHostname = "hostname"
)

var (
	formatValidator *validator.Validate
	formatOnce      sync.Once
)

func formats() *validator.Validate {
	formatOnce.Do(func() {
		formatValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return formatValidator
}

// checkFormatTag runs the tag once so unknown tags fail at construction
// instead of panicking inside validator during evaluation.
func checkFormatTag(tag string) (err error) {
	if tag == "" {
		return fmt.Errorf("empty format")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("unknown format %q", tag)
		}
	}()
	_ = formats().Var("", tag)
	return nil
}

func matchesFormat(s, tag string) bool {
	return formats().Var(s, tag) == nil
}
