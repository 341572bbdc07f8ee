package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/formguard"
	"github.com/aretw0/formguard/internal/presentation/tui"
	fghttp "github.com/aretw0/formguard/pkg/adapters/http"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var validateCmd = &cobra.Command{
	Use:   "validate <entity> <file|->",
	Short: "Validate a JSON or YAML payload against an entity",
	Long: `Validates a payload file (or standard input when the file is "-") against an
entity schema. The exit code is 1 when the payload is invalid.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}
		eng, err := newEngine(cmd, logger)
		if err != nil {
			return err
		}

		payload, err := readPayload(cmd.InOrStdin(), args[1], inputFormat(cmd, args[1]))
		if err != nil {
			return err
		}

		output, _ := cmd.Flags().GetString("output")
		w := cmd.OutOrStdout()
		return runValidate(cmd, eng, args[0], payload, output, isTerminal(w))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().String("input-format", "", "Payload format: json or yaml (default: by extension, json for stdin)")
	validateCmd.Flags().StringP("output", "o", "report", "Output: report or json")
}

func runValidate(cmd *cobra.Command, eng *formguard.Engine, entity string, payload any, output string, tty bool) error {
	res, err := eng.Validate(cmd.Context(), entity, payload, validationOptions(cmd))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(fghttp.ValidationResponse{Valid: res.Valid(), Value: res.Value, Errors: res.Errors}); err != nil {
			return err
		}
	case "report":
		if tty {
			if err := printMarkdown(w, tui.Report(entity, res), true); err != nil {
				return err
			}
		} else if _, err := io.WriteString(w, tui.Plain(entity, res)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown output %q (want report or json)", output)
	}

	if !res.Valid() {
		return errInvalid
	}
	return nil
}

func inputFormat(cmd *cobra.Command, path string) string {
	if f, _ := cmd.Flags().GetString("input-format"); f != "" {
		return strings.ToLower(f)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}

// readPayload decodes the payload at path, or stdin for "-". JSON numbers are
// kept as json.Number so integer checks see the literal.
func readPayload(stdin io.Reader, path, format string) (any, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	var payload any
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil {
			return nil, fmt.Errorf("failed to parse JSON payload: %w", err)
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("failed to parse YAML payload: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown input format %q", format)
	}
	return payload, nil
}
