// Package tui renders validation results for terminals.
package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/formguard/pkg/schema"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() (func(string) (string, error), error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return r.Render, nil
}

// Report formats a validation result as markdown.
func Report(entity string, res schema.Result) string {
	var b strings.Builder
	if res.Valid() {
		fmt.Fprintf(&b, "# ✔ `%s` payload is valid\n", entity)
		return b.String()
	}

	fmt.Fprintf(&b, "# ✘ `%s` payload is invalid\n\n", entity)
	fmt.Fprintf(&b, "%d %s found.\n\n", len(res.Errors), plural(len(res.Errors), "error", "errors"))
	b.WriteString("| Field | Message | Code |\n")
	b.WriteString("|---|---|---|\n")
	for _, fe := range res.Errors {
		path := fe.Path
		if path == "" {
			path = "(root)"
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s |\n", path, escape(fe.Message), fe.Code)
	}
	return b.String()
}

// Plain formats a result for non-terminal output, one error per line.
func Plain(entity string, res schema.Result) string {
	if res.Valid() {
		return fmt.Sprintf("%s: valid\n", entity)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: invalid\n", entity)
	for _, fe := range res.Errors {
		fmt.Fprintf(&b, "  %s: %s\n", fe.Path, fe.Message)
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
