package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aretw0/formguard/internal/presentation/tui"
	"github.com/aretw0/formguard/pkg/openapi"
	"github.com/aretw0/formguard/pkg/schema"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

var describeCmd = &cobra.Command{
	Use:   "describe <entity>",
	Short: "Show the fields and rules of an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		eng, err := newEngine(cmd, logger)
		if err != nil {
			return err
		}
		d, err := eng.Describe(args[0])
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		return runDescribe(cmd.OutOrStdout(), args[0], d, format, isTerminal(cmd.OutOrStdout()))
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	describeCmd.Flags().StringP("format", "f", "text", "Output format: text, json, yaml or openapi")
}

func runDescribe(w io.Writer, entity string, d schema.Description, format string, tty bool) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(d)
	case "openapi":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(openapi.Schema(d))
	case "text":
		return printMarkdown(w, describeMarkdown(entity, d), tty)
	}
	return fmt.Errorf("unknown format %q (want text, json, yaml or openapi)", format)
}

func describeMarkdown(entity string, d schema.Description) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", entity)
	b.WriteString("| Field | Kind | Presence | Constraints |\n")
	b.WriteString("|---|---|---|---|\n")
	writeFields(&b, "", d.Fields)

	if rules := refinementLines("", d, nil); len(rules) > 0 {
		b.WriteString("\n## Cross-field rules\n\n")
		for _, line := range rules {
			b.WriteString(line)
		}
	}
	return b.String()
}

func writeFields(b *strings.Builder, prefix string, fields []schema.FieldDescription) {
	for _, f := range fields {
		path := schema.JoinPath(prefix, f.Name)
		fmt.Fprintf(b, "| `%s` | %s | %s | %s |\n", path, kindLabel(f.Description), presence(f.Description), constraints(f.Description))
		switch {
		case f.Kind == schema.KindObject:
			writeFields(b, path, f.Fields)
		case f.Kind == schema.KindArray && f.Items != nil && f.Items.Kind == schema.KindObject:
			writeFields(b, path+"[]", f.Items.Fields)
		}
	}
}

// refinementLines lists the refinements of d and of every nested object,
// with blamed paths made absolute.
func refinementLines(prefix string, d schema.Description, lines []string) []string {
	for _, r := range d.Refinements {
		line := fmt.Sprintf("- `%s`", r.Name)
		if len(r.Paths) > 0 {
			paths := make([]string, len(r.Paths))
			for i, p := range r.Paths {
				paths[i] = "`" + schema.JoinPath(prefix, p) + "`"
			}
			line += " on " + strings.Join(paths, ", ")
		}
		if r.Halts {
			line += " (halts)"
		}
		lines = append(lines, line+"\n")
	}
	for _, f := range d.Fields {
		lines = refinementLines(schema.JoinPath(prefix, f.Name), f.Description, lines)
	}
	if d.Items != nil {
		lines = refinementLines(prefix+"[]", *d.Items, lines)
	}
	return lines
}

func kindLabel(d schema.Description) string {
	if d.Kind == schema.KindArray && d.Items != nil {
		return string(d.Items.Kind) + "[]"
	}
	if d.Kind == schema.KindNumber && d.Integer {
		return "integer"
	}
	return string(d.Kind)
}

func presence(d schema.Description) string {
	var parts []string
	if d.Required {
		parts = append(parts, "required")
	} else {
		parts = append(parts, "optional")
	}
	if d.Nullable {
		parts = append(parts, "nullable")
	}
	if d.HasDefault {
		parts = append(parts, fmt.Sprintf("default `%v`", d.Default))
	}
	return strings.Join(parts, ", ")
}

func constraints(d schema.Description) string {
	var parts []string
	if d.Trim {
		parts = append(parts, "trimmed")
	}
	if d.MinLength != nil {
		parts = append(parts, fmt.Sprintf("min length %d", *d.MinLength))
	}
	if d.MaxLength != nil {
		parts = append(parts, fmt.Sprintf("max length %d", *d.MaxLength))
	}
	if d.Pattern != "" {
		parts = append(parts, "pattern `"+strings.ReplaceAll(d.Pattern, "|", `\|`)+"`")
	}
	if d.Format != "" {
		parts = append(parts, d.Format)
	}
	if d.Minimum != nil {
		parts = append(parts, fmt.Sprintf("≥ %v", *d.Minimum))
	}
	if d.Maximum != nil {
		parts = append(parts, fmt.Sprintf("≤ %v", *d.Maximum))
	}
	if len(d.Values) > 0 {
		parts = append(parts, strings.Join(d.Values, " \\| "))
	}
	if d.MinDate != nil {
		parts = append(parts, "from "+d.MinDate.Format(time.DateOnly))
	}
	if d.MaxDate != nil {
		parts = append(parts, "until "+d.MaxDate.Format(time.DateOnly))
	}
	if d.MinItems != nil {
		parts = append(parts, fmt.Sprintf("min %d items", *d.MinItems))
	}
	if d.MaxItems != nil {
		parts = append(parts, fmt.Sprintf("max %d items", *d.MaxItems))
	}
	return strings.Join(parts, ", ")
}

// printMarkdown renders md with glamour on terminals and writes it raw otherwise.
func printMarkdown(w io.Writer, md string, tty bool) error {
	if !tty {
		_, err := io.WriteString(w, md)
		return err
	}
	render, err := tui.NewRenderer()
	if err != nil {
		return err
	}
	out, err := render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
