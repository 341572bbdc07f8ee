/*
Package formguard validates back-office form payloads (users, roles, merchants,
charge rules, contracts, USSD menus and API integrations) against declarative
entity schemas.

The schema language lives in pkg/schema: field rules, object and array
composition, and cross-field refinements such as password confirmation or
fields that become required depending on another field. This package wraps a
registry of those schemas behind a small Engine that is shared by the CLI, the
HTTP service and the MCP server.

# Usage

	eng, err := formguard.New()
	if err != nil {
		log.Fatal(err)
	}

	res, err := eng.Validate(ctx, "auth.change_password", map[string]any{
		"currentPassword": "old-secret1",
		"newPassword":     "abc12345",
		"confirmPassword": "xyz99999",
	}, schema.Options{})
	if err != nil {
		log.Fatal(err) // unknown entity
	}
	for _, fe := range res.Errors {
		fmt.Println(fe.Path, fe.Message) // confirmPassword Passwords don't match!
	}

Validation failures are data. Validate only returns an error for an unknown
entity (ErrUnknownEntity) or a canceled context.

# Definitions

Entities can also be declared in YAML or JSON files and loaded with
WithDefinitions; see pkg/definition for the format.
*/
package formguard
