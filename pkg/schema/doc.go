// Package schema provides a declarative validation engine for form data.
//
// A schema is a tree of rules. The set of rule kinds is closed: String, Number,
// Boolean, Enum, Date, Object and Array. Every rule is an immutable value; each
// builder method returns a modified copy, so a schema built at startup can be
// shared by any number of goroutines without locking.
//
// Basic usage:
//
//	changePassword := schema.Object(
//	    schema.Field("currentPassword", schema.String()),
//	    schema.Field("newPassword", schema.String().Min(8)),
//	    schema.Field("confirmPassword", schema.String()),
//	).Refine(
//	    schema.Equal("newPassword", "confirmPassword", "Passwords don't match!"),
//	)
//
//	res := schema.Validate(changePassword, map[string]any{
//	    "currentPassword": "old-secret",
//	    "newPassword":     "abc12345",
//	    "confirmPassword": "xyz99999",
//	}, schema.Options{})
//
//	if !res.Valid() {
//	    for _, fe := range res.Errors {
//	        fmt.Println(fe.Path, fe.Message) // confirmPassword Passwords don't match!
//	    }
//	}
//
// Evaluation happens in two phases. Every declared field is checked first and
// all failures are collected in declaration order. Refinements (cross-field
// rules attached to objects) run only when the first phase produced no errors.
//
// An absent map key is undefined, an explicit nil is null. Optional rules accept
// undefined, nullable rules accept null. Callers may pass Undefined to mark an
// absent root value.
//
// Misconfigured schemas (an empty enum, duplicate field names, an invalid
// pattern) panic with a *ConfigError at construction time. Use Build to turn
// such a panic into an error when schemas come from data.
package schema
