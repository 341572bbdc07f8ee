package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/formguard/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var invalid = schema.Result{Errors: schema.Errors{
	{Path: "confirmPassword", Message: "Passwords don't match!", Code: schema.CodeCustom},
	{Path: "", Message: "a | b", Code: schema.CodeInvalidType},
}}

func TestReport(t *testing.T) {
	md := Report("auth.change_password", invalid)
	assert.Contains(t, md, "payload is invalid")
	assert.Contains(t, md, "2 errors found.")
	assert.Contains(t, md, "| `confirmPassword` | Passwords don't match! | custom |")
	assert.Contains(t, md, "| `(root)` | a \\| b |")

	assert.Contains(t, Report("role", schema.Result{Value: map[string]any{}}), "payload is valid")
}

func TestPlain(t *testing.T) {
	out := Plain("auth.change_password", invalid)
	assert.Equal(t, "auth.change_password: invalid\n  confirmPassword: Passwords don't match!\n  : a | b\n", out)
	assert.Equal(t, "role: valid\n", Plain("role", schema.Result{}))
}

func TestRenderer(t *testing.T) {
	render, err := NewRenderer()
	require.NoError(t, err)

	out, err := render(Report("auth.change_password", invalid))
	require.NoError(t, err)
	assert.Contains(t, out, "confirmPassword")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Equal(t, len(bannerLines)+2, strings.Count(buf.String(), "\n"))
}
