package redact_test

import (
	"testing"

	"github.com/aretw0/formguard/pkg/redact"
	"github.com/stretchr/testify/assert"
)

func TestRedactor_Map(t *testing.T) {
	input := map[string]any{
		"username":        "admin",
		"newPassword":     "abc12345",
		"confirmPassword": "abc12345",
		"settlementAccount": map[string]any{
			"bankName":      "Stanbic",
			"accountNumber": "0012345678",
		},
		"headers": []any{
			map[string]any{"key": "X-Api-Key", "value": "v"},
			map[string]any{"token": "t"},
		},
	}

	out := redact.Default().Map(input)

	assert.Equal(t, "admin", out["username"])
	assert.Equal(t, redact.Mask, out["newPassword"])
	assert.Equal(t, redact.Mask, out["confirmPassword"])
	acct := out["settlementAccount"].(map[string]any)
	assert.Equal(t, "Stanbic", acct["bankName"])
	assert.Equal(t, redact.Mask, acct["accountNumber"])
	headers := out["headers"].([]any)
	assert.Equal(t, "X-Api-Key", headers[0].(map[string]any)["key"])
	assert.Equal(t, redact.Mask, headers[1].(map[string]any)["token"])

	// Input untouched
	assert.Equal(t, "abc12345", input["newPassword"])
	assert.Equal(t, "0012345678", input["settlementAccount"].(map[string]any)["accountNumber"])
	assert.Equal(t, "t", input["headers"].([]any)[1].(map[string]any)["token"])
}

func TestRedactor_CustomPatterns(t *testing.T) {
	r := redact.New(`^ssn$`)

	out := r.Value(map[string]any{"ssn": "123", "ssn_hint": "x"}).(map[string]any)
	assert.Equal(t, redact.Mask, out["ssn"])
	assert.Equal(t, "x", out["ssn_hint"])

	assert.Equal(t, 42, r.Value(42))
	assert.Nil(t, r.Map(nil))
}
