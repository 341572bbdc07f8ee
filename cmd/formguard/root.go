package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/formguard"
	"github.com/aretw0/formguard/internal/logging"
	"github.com/aretw0/formguard/pkg/schema"
	"github.com/spf13/cobra"
)

// errInvalid marks a payload that failed validation. The report has already
// been printed, so Execute only sets the exit code.
var errInvalid = errors.New("payload is invalid")

var rootCmd = &cobra.Command{
	Use:   "formguard",
	Short: "formguard validates back-office form payloads",
	Long: `formguard checks payloads for users, roles, merchants, charge rules, contracts,
USSD menus and API integrations against declarative entity schemas.

Extra entities can be declared in YAML or JSON definition files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errInvalid) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringSlice("definitions", nil, "Entity definition files or directories (YAML or JSON)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Bool("strict", false, "Report keys the entity does not declare")
	rootCmd.PersistentFlags().Bool("halt", false, "Stop at the first failing cross-field rule")
}

// newLogger builds the stderr logger from --log-level.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	raw, _ := cmd.Flags().GetString("log-level")
	level, err := logging.ParseLevel(raw)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}

// newEngine builds an engine from the persistent flags.
func newEngine(cmd *cobra.Command, logger *slog.Logger, extra ...formguard.Option) (*formguard.Engine, error) {
	defs, _ := cmd.Flags().GetStringSlice("definitions")
	opts := []formguard.Option{formguard.WithLogger(logger)}
	if len(defs) > 0 {
		opts = append(opts, formguard.WithDefinitions(defs...))
	}
	opts = append(opts, extra...)

	eng, err := formguard.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init engine: %w", err)
	}
	return eng, nil
}

func validationOptions(cmd *cobra.Command) schema.Options {
	strict, _ := cmd.Flags().GetBool("strict")
	halt, _ := cmd.Flags().GetBool("halt")
	return schema.Options{StrictUnknownKeys: strict, HaltOnFirstRefinementFailure: halt}
}
